package mentor_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/aretw0/mentor"
	"github.com/aretw0/mentor/pkg/adapters/scripted"
	"github.com/aretw0/mentor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoAtoms = `
session_id: s-42
concept_name: Photosynthesis
atoms:
  - id: light
    name: Light reactions
    teaching:
      explanation: "Light splits water."
    questions:
      - question: "What is split?"
        options: ["water", "glucose"]
        answer: 0
    completions:
      - next_action: recommend_review
      - next_action: auto_advance
  - id: calvin
    name: Calvin cycle
    questions:
      - question: "What is fixed?"
        options: ["oxygen", "carbon"]
        answer: 1
`

func newTutor(t *testing.T, opts ...mentor.Option) (*mentor.Tutor, *scripted.Service) {
	t.Helper()
	script, err := scripted.ParseScript([]byte(twoAtoms))
	require.NoError(t, err)
	svc := scripted.NewService(script)
	tutor, err := mentor.New(svc, opts...)
	require.NoError(t, err)
	return tutor, svc
}

func TestNew_RequiresService(t *testing.T) {
	_, err := mentor.New(nil)
	assert.Error(t, err)
}

func TestTutor_FullSession(t *testing.T) {
	var completions int
	tutor, _ := newTutor(t, mentor.WithLifecycleHooks(domain.LifecycleHooks{
		OnAtomComplete: func(context.Context, *domain.CompletionEvent) { completions++ },
	}), mentor.WithMessages(map[domain.PacingBand]string{domain.PacingSpeedUp: "Brilliant."}))
	ctx := context.Background()

	sess, err := tutor.Start(ctx, "photosynthesis", domain.LevelZero)
	require.NoError(t, err)
	assert.Equal(t, "s-42", sess.ID())

	content, err := sess.LoadTeaching(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Light splits water.", content.Explanation)

	require.NoError(t, sess.FinishTeaching(ctx))
	res, err := sess.SubmitAnswer(ctx, 0, 3*time.Second)
	require.NoError(t, err)
	assert.True(t, res.Correct)

	d, err := sess.Continue(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.DirectivePromptChoice, d.Kind)
	require.NoError(t, sess.Choose(ctx, domain.ChoiceReview))
	assert.Equal(t, domain.PhaseTeaching, sess.Phase())

	require.NoError(t, sess.FinishTeaching(ctx))
	_, err = sess.SubmitAnswer(ctx, 0, time.Second)
	require.NoError(t, err)
	d, err = sess.Continue(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.DirectiveAutoAdvance, d.Kind)

	require.NoError(t, sess.FinishTeaching(ctx))
	_, err = sess.SubmitAnswer(ctx, 1, time.Second)
	require.NoError(t, err)
	d, err = sess.Continue(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.DirectiveFinish, d.Kind)

	assert.Equal(t, domain.PhaseSessionComplete, sess.Phase())
	assert.Equal(t, 3, completions)
	records := sess.Records()
	require.Len(t, records, 3)
	assert.Equal(t, mentor.Summarize(records, 2).Distribution, sess.Summary().Distribution)
	assert.Equal(t, "Brilliant.", sess.View().Message)
}

func TestTutor_ResumeFromJSONSnapshot(t *testing.T) {
	tutor, _ := newTutor(t)
	ctx := context.Background()

	sess, err := tutor.Start(ctx, "photosynthesis", domain.LevelBeginner)
	require.NoError(t, err)
	require.NoError(t, sess.FinishTeaching(ctx))

	raw, err := json.Marshal(sess.Snapshot())
	require.NoError(t, err)
	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(raw, &snap))

	resumed, err := tutor.Resume(snap)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseQuestions, resumed.Phase())
	q := resumed.View().Question
	require.NotNil(t, q)
	assert.Equal(t, "What is split?", q.Text)

	_, err = resumed.RequestHint(ctx)
	require.NoError(t, err)
	_, err = resumed.SubmitAnswer(ctx, 0, time.Second)
	require.NoError(t, err)
}

func TestTutor_EmptyConcept(t *testing.T) {
	tutor, err := mentor.New(scripted.NewService(scripted.Script{}))
	require.NoError(t, err)
	_, err = tutor.Start(context.Background(), "void", domain.LevelBeginner)
	assert.ErrorIs(t, err, domain.ErrNoContent)
}

func TestSession_Stop(t *testing.T) {
	tutor, svc := newTutor(t)
	ctx := context.Background()
	sess, err := tutor.Start(ctx, "photosynthesis", domain.LevelBeginner)
	require.NoError(t, err)

	sess.Stop(ctx)
	assert.Equal(t, domain.PhaseExited, sess.Phase())
	assert.ErrorIs(t, sess.FinishTeaching(ctx), domain.ErrInvalidTransition)
	assert.Zero(t, svc.Calls(scripted.CallQuestions))
}
