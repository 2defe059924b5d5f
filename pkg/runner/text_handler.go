package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aretw0/mentor/pkg/domain"
)

// TextHandler implements the standard text-based interface.
type TextHandler struct {
	Reader   *bufio.Reader
	Writer   io.Writer
	Renderer ContentRenderer
	Styler   PacingStyler
	MaxInput int

	inputChan chan inputResult
	startOnce sync.Once
}

type inputResult struct {
	text string
	err  error
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the markdown renderer used for teaching content.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// WithTextHandlerStyler configures how pacing labels are decorated.
func WithTextHandlerStyler(styler PacingStyler) TextHandlerOption {
	return func(h *TextHandler) {
		h.Styler = styler
	}
}

// WithTextHandlerMaxInput caps the size of one input line.
func WithTextHandlerMaxInput(limit int) TextHandlerOption {
	return func(h *TextHandler) {
		h.MaxInput = limit
	}
}

// NewTextHandler creates a handler for standard text IO.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		Reader: bufio.NewReader(r),
		Writer: w,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult)
		go h.pump()
	})
}

// pump reads lines in the background so Input can honour cancellation.
func (h *TextHandler) pump() {
	for {
		text, err := h.Reader.ReadString('\n')
		if text != "" {
			h.inputChan <- inputResult{text: text}
		}
		if err != nil {
			if err != io.EOF {
				h.inputChan <- inputResult{err: err}
			}
			close(h.inputChan)
			return
		}
	}
}

// Input implements IOHandler.
func (h *TextHandler) Input(ctx context.Context) (string, error) {
	h.initPump()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
			fmt.Fprint(h.Writer, "> ")
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case res, ok := <-h.inputChan:
			if !ok {
				return "", io.EOF
			}
			if res.err != nil {
				return "", res.err
			}
			clean, err := SanitizeInput(res.text, h.MaxInput)
			if err != nil {
				fmt.Fprintf(h.Writer, "Error: %v. Please try again.\n", err)
				continue
			}
			return clean, nil
		}
	}
}

// SystemOutput implements IOHandler.
func (h *TextHandler) SystemOutput(_ context.Context, msg string) error {
	_, err := fmt.Fprintf(h.Writer, "\n[System] %s\n", msg)
	return err
}

// Output implements IOHandler.
func (h *TextHandler) Output(_ context.Context, v domain.View) error {
	var b strings.Builder
	switch v.Phase {
	case domain.PhaseTeaching:
		h.writeAtomHeader(&b, v)
		if v.Teaching != nil {
			b.WriteString(h.render(TeachingMarkdown(v.Teaching)))
			b.WriteString("\n")
		}
		b.WriteString("\nPress Enter when you are ready for the questions (q to quit).\n")
	case domain.PhaseQuestions:
		h.writeQuestion(&b, v)
	case domain.PhaseAwaitingChoice:
		h.writeChoice(&b, v)
	case domain.PhaseSessionComplete:
		b.WriteString("\nSession complete!\n")
		h.writeSummary(&b, v)
	case domain.PhaseHalted:
		fmt.Fprintf(&b, "\nThe session cannot continue: %s\n", v.Message)
	case domain.PhaseExited:
		b.WriteString("\nSession ended. See you next time.\n")
	}
	_, err := io.WriteString(h.Writer, b.String())
	return err
}

func (h *TextHandler) render(markdown string) string {
	if h.Renderer == nil {
		return markdown
	}
	out, err := h.Renderer(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimSpace(out)
}

func (h *TextHandler) pacing(band domain.PacingBand) string {
	label := strings.ReplaceAll(string(band), "_", " ")
	if h.Styler == nil {
		return label
	}
	return h.Styler(band, label)
}

func (h *TextHandler) writeAtomHeader(b *strings.Builder, v domain.View) {
	name := ""
	if v.Atom != nil {
		name = v.Atom.Name
	}
	fmt.Fprintf(b, "\n== %s | Atom %d/%d: %s ==\n", v.ConceptName, v.AtomIndex+1, v.TotalAtoms, name)
	if v.CurrentPacing != "" {
		fmt.Fprintf(b, "Pacing: %s\n", h.pacing(v.CurrentPacing))
	}
}

func (h *TextHandler) writeQuestion(b *strings.Builder, v domain.View) {
	if v.Question == nil {
		return
	}
	if v.CanSubmit {
		fmt.Fprintf(b, "\nQuestion %d/%d: %s\n", v.QuestionIndex+1, v.QuestionCount, v.Question.Text)
		for i, opt := range v.Question.Options {
			fmt.Fprintf(b, "  %d) %s\n", i+1, opt)
		}
		if v.Hint != "" {
			fmt.Fprintf(b, "Hint: %s\n", v.Hint)
		}
		b.WriteString("Enter an option number (h for a hint, q to quit).\n")
		return
	}
	if r := v.LastResult; r != nil {
		if r.Correct {
			b.WriteString("\nCorrect!")
		} else {
			b.WriteString("\nNot quite.")
		}
		fmt.Fprintf(b, " Mastery: %.0f%%", r.MasteryAfter*100)
		if r.Streak > 1 {
			fmt.Fprintf(b, " | Streak: %d", r.Streak)
		}
		if r.Pacing != "" {
			fmt.Fprintf(b, " | Pacing: %s", h.pacing(r.Pacing))
		}
		b.WriteString("\n")
	}
	if v.CanContinue {
		b.WriteString("Press Enter to continue.\n")
	}
}

func (h *TextHandler) writeChoice(b *strings.Builder, v domain.View) {
	b.WriteString("\n")
	if v.Reason != "" {
		fmt.Fprintf(b, "%s\n", v.Reason)
	}
	if m := v.Metrics; m != nil {
		fmt.Fprintf(b, "Accuracy: %.0f%% | Mastery: %.0f%%\n", m.Accuracy*100, m.FinalMastery*100)
	}
	b.WriteString("What next?\n")
	for i, c := range v.Choices {
		fmt.Fprintf(b, "  %d) %s\n", i+1, c)
	}
}

func (h *TextHandler) writeSummary(b *strings.Builder, v domain.View) {
	s := v.Summary
	if s == nil {
		return
	}
	fmt.Fprintf(b, "Completed %d/%d atoms (%.1f%%)\n", s.CompletedAtoms, s.TotalAtoms, s.CompletionPercent)
	fmt.Fprintf(b, "Mastered: %d | Developing: %d | Struggling: %d\n",
		s.Distribution.Mastered, s.Distribution.Developing, s.Distribution.Struggling)
	if s.LastPacing != "" {
		fmt.Fprintf(b, "Final pacing: %s\n", h.pacing(s.LastPacing))
	}
	if v.Message != "" {
		fmt.Fprintf(b, "%s\n", v.Message)
	}
}

// TeachingMarkdown formats teaching content as markdown.
func TeachingMarkdown(c *domain.TeachingContent) string {
	var b strings.Builder
	b.WriteString(c.Explanation)
	b.WriteString("\n")
	if len(c.Examples) > 0 {
		b.WriteString("\n### Examples\n\n")
		for _, ex := range c.Examples {
			fmt.Fprintf(&b, "- %s\n", ex)
		}
	}
	if c.Analogy != "" {
		fmt.Fprintf(&b, "\n### Analogy\n\n%s\n", c.Analogy)
	}
	if c.Misconception != "" {
		fmt.Fprintf(&b, "\n### Common misconception\n\n%s\n", c.Misconception)
	}
	return b.String()
}
