package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/mentor"
	"github.com/aretw0/mentor/internal/presentation/tui"
	"github.com/aretw0/mentor/pkg/domain"
	"github.com/aretw0/mentor/pkg/runner"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var learnCmd = &cobra.Command{
	Use:   "learn [concept]",
	Short: "Learn a concept interactively in the terminal",
	Long: `Starts a learning session and walks through its atoms in the terminal.

Without --script the session runs against the learning service configured in
service.base_url. With --script it runs offline from a YAML script.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		scriptPath, _ := cmd.Flags().GetString("script")
		levelFlag, _ := cmd.Flags().GetString("level")
		jsonMode, _ := cmd.Flags().GetBool("json")

		concept := ""
		if len(args) > 0 {
			concept = args[0]
		}
		if concept == "" && scriptPath == "" {
			return errors.New("a concept is required when no --script is given")
		}
		level, err := domain.ParseKnowledgeLevel(levelFlag)
		if err != nil {
			return err
		}

		svc, err := newService(cfg, scriptPath, logger)
		if err != nil {
			return err
		}
		tutor, err := newTutor(cfg, svc, logger, domain.LifecycleHooks{})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var handler runner.IOHandler
		if jsonMode {
			handler = runner.NewJSONHandler(os.Stdin, os.Stdout)
		} else {
			handler, err = textHandler()
			if err != nil {
				return err
			}
		}

		sess, err := tutor.Start(ctx, concept, level)
		if err != nil {
			return fmt.Errorf("could not start the session: %w", err)
		}
		logger.Debug("session started", "session_id", sess.ID(), "level", level)

		r := runner.NewRunner(runner.WithInputHandler(handler), runner.WithLogger(logger))
		summary, err := r.Run(ctx, sess)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		logger.Debug("session finished",
			"session_id", sess.ID(),
			"completed", summary.CompletedAtoms,
			"total", summary.TotalAtoms,
		)
		return nil
	},
}

// textHandler builds the terminal handler, with markdown rendering and
// colours only when stdout is a terminal.
func textHandler() (*runner.TextHandler, error) {
	if !tui.IsTerminal(os.Stdout) {
		return runner.NewTextHandler(os.Stdin, os.Stdout), nil
	}

	tui.PrintBanner(os.Stdout, mentor.Version)
	render, err := tui.NewRenderer(tui.DefaultWordWrap)
	if err != nil {
		return nil, err
	}
	return runner.NewTextHandler(os.Stdin, os.Stdout,
		runner.WithTextHandlerRenderer(render),
		runner.WithTextHandlerStyler(tui.PacingStyle(termenv.NewOutput(os.Stdout).Profile)),
	), nil
}

func init() {
	rootCmd.AddCommand(learnCmd)

	learnCmd.Flags().String("script", "", "Run offline from a YAML session script")
	learnCmd.Flags().StringP("level", "l", string(domain.LevelBeginner), "Starting knowledge level (zero, beginner, intermediate, advanced)")
	learnCmd.Flags().Bool("json", false, "Run in JSON mode (NDJSON views out, one answer per line in)")
}
