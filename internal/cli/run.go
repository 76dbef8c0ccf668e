package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/caseflow/playbook"
	"github.com/caseflow/playbook/internal/config"
	"github.com/caseflow/playbook/internal/logging"
	"github.com/caseflow/playbook/internal/presentation/tui"
	"github.com/caseflow/playbook/pkg/domain"
)

// RunOptions contains the configuration for the interactive run command.
type RunOptions struct {
	ConfigPath string
	SessionID  string
	CaseID     string
	PlaybookID string
	Headless   bool
	Debug      bool
}

// RunInteractive walks one session in the terminal: it resolves or starts
// the session, then loops question -> option -> rationale -> confidence
// until the path completes or the user interrupts.
func RunInteractive(opts RunOptions) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	if opts.Debug {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)

	var extraHooks []domain.LifecycleHooks
	if opts.Debug {
		extraHooks = append(extraHooks, debugHooks(logger))
	}

	rt, err := BuildRuntime(cfg, logger, extraHooks...)
	if err != nil {
		return err
	}
	defer rt.Close()

	if !opts.Headless {
		tui.PrintBanner(playbook.Version)
	}

	// Setup signal handling
	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	sessionID, err := resolveSession(sigCtx, rt, opts)
	if err != nil {
		return err
	}

	runner := playbook.NewRunner()
	runner.Input = NewInterruptibleReader(os.Stdin, sigCtx.Done())
	runner.Output = os.Stdout
	runner.Headless = opts.Headless
	if !opts.Headless {
		runner.Renderer = tui.NewRenderer()
	}

	runErr := runner.Run(sigCtx, rt.Engine, sessionID)

	// If the context was canceled (signal received), reflect it in the error
	// unless the runner already surfaced something.
	if sigCtx.Err() != nil && runErr == nil {
		runErr = sigCtx.Err()
	}

	logCompletion(sigCtx, rt, sessionID, runErr, opts.Headless)
	return handleExecutionError(runErr)
}

// resolveSession picks the session to walk: an explicit id, a resumed
// active session for the (case, playbook) pair, or a brand-new one.
func resolveSession(ctx context.Context, rt *Runtime, opts RunOptions) (string, error) {
	if opts.SessionID != "" {
		sess, err := rt.Engine.GetSession(ctx, opts.SessionID)
		if err != nil {
			return "", err
		}
		if !opts.Headless && sess.Active() {
			printSystemMessage("Resuming session '%s' at node '%s'.", sess.SessionID, sess.CurrentNodeID)
		}
		return sess.SessionID, nil
	}

	if opts.CaseID == "" || opts.PlaybookID == "" {
		return "", fmt.Errorf("either --session or both --case and --playbook are required")
	}

	sess, err := rt.Engine.StartSession(ctx, opts.CaseID, opts.PlaybookID)
	if err != nil {
		var dup *domain.DuplicateActiveSessionError
		if errors.As(err, &dup) && dup.SessionID != "" {
			if !opts.Headless {
				printSystemMessage("Resuming active session '%s'.", dup.SessionID)
			}
			return dup.SessionID, nil
		}
		return "", err
	}
	if !opts.Headless {
		printSystemMessage("Session '%s' started.", sess.SessionID)
	}
	return sess.SessionID, nil
}

// logCompletion reports where the walk ended. Interruptions exit politely
// instead of dumping an error trace.
func logCompletion(sigCtx *SignalContext, rt *Runtime, sessionID string, runErr error, quiet bool) {
	if quiet {
		return
	}

	if runErr != nil && isInterrupted(runErr) {
		if sigCtx.Signal() == os.Interrupt {
			fmt.Printf("[CTRL+C]\n")
		}
		if sess, err := rt.Engine.GetSession(context.Background(), sessionID); err == nil && sess.Active() {
			printSystemMessage("Interrupted at node '%s'. Run again to resume.", sess.CurrentNodeID)
		} else {
			printSystemMessage("Interrupted.")
		}
		return
	}
	if runErr != nil {
		return
	}

	if sess, err := rt.Engine.GetSession(context.Background(), sessionID); err == nil {
		if sess.Completed() {
			printSystemMessage("Session '%s' completed in %d steps.", sessionID, len(sess.History))
		} else {
			printSystemMessage("Paused at node '%s'. Run again to resume.", sess.CurrentNodeID)
		}
	}
}
