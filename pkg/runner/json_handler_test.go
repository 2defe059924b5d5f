package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/aretw0/mentor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONHandler_Output(t *testing.T) {
	buf := &bytes.Buffer{}
	h := NewJSONHandler(nil, buf)

	require.NoError(t, h.Output(context.Background(), domain.View{SessionID: "s", Phase: domain.PhaseQuestions, CanSubmit: true}))
	require.NoError(t, h.SystemOutput(context.Background(), "retry"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var v domain.View
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &v))
	assert.Equal(t, domain.PhaseQuestions, v.Phase)
	assert.True(t, v.CanSubmit)
	assert.JSONEq(t, `{"system":"retry"}`, lines[1])
}

func TestJSONHandler_Input(t *testing.T) {
	h := NewJSONHandler(strings.NewReader("\"review\"\n2\nlast"), nil)
	ctx := context.Background()

	val, err := h.Input(ctx)
	require.NoError(t, err)
	assert.Equal(t, "review", val)

	val, err = h.Input(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2", val, "numbers are passed through as text")

	val, err = h.Input(ctx)
	require.NoError(t, err)
	assert.Equal(t, "last", val, "a final line without newline is still read")

	_, err = h.Input(ctx)
	assert.ErrorIs(t, err, io.EOF)
}
