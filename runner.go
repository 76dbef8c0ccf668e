package playbook

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/caseflow/playbook/pkg/domain"
	"github.com/caseflow/playbook/pkg/ports"
)

// Runner drives one session interactively using the provided IO.
// This allows for easy testing and integration with different frontends
// (CLI, TUI, etc).
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	Headless bool
	Renderer ContentRenderer
}

// ContentRenderer transforms content before outputting it. This allows for
// TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)

// NewRunner creates a Runner. Callers must set Input and Output (usually
// os.Stdin and os.Stdout) before Run.
func NewRunner() *Runner {
	return &Runner{}
}

// Run walks the session until it completes or the input ends. Each step
// shows the current question with its options and research context, then
// prompts for the selected option, the rationale, and a confidence value.
func (r *Runner) Run(ctx context.Context, engine *Engine, sessionID string) error {
	if r.Input == nil {
		return fmt.Errorf("input reader must be set (use os.Stdin)")
	}
	if r.Output == nil {
		return fmt.Errorf("output writer must be set (use os.Stdout)")
	}
	lineReader := bufio.NewReader(r.Input)
	writer := r.Output

	sess, err := engine.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	if !r.Headless {
		fmt.Fprintf(writer, "--- Playbook Session %s ---\n", sess.SessionID)
	}

	graph, err := engine.Provider().Graph(ctx, sess.PlaybookID)
	if err != nil {
		return err
	}

	lastRenderedID := ""
	for {
		if sess.Completed() {
			r.print(writer, formatRecommendations(sess))
			return nil
		}
		if !sess.Active() {
			return &domain.SessionNotActiveError{SessionID: sess.SessionID, Status: sess.Status}
		}

		node, ok := graph.Node(sess.CurrentNodeID)
		if !ok {
			return &domain.GraphIntegrityError{
				PlaybookID: sess.PlaybookID,
				NodeID:     sess.CurrentNodeID,
				Reason:     "current node missing from graph",
			}
		}

		// Only print the question on fresh entry, so invalid input does
		// not repeat it.
		if node.ID != lastRenderedID {
			r.print(writer, formatNode(node))
			lastRenderedID = node.ID
		}

		option, done, err := r.prompt(lineReader, writer, "option> ")
		if err != nil || done {
			return err
		}
		if idx, convErr := strconv.Atoi(option); convErr == nil && idx >= 1 && idx <= len(node.Options) {
			option = node.Options[idx-1].Label
		}

		rationale, done, err := r.prompt(lineReader, writer, "rationale> ")
		if err != nil || done {
			return err
		}

		confText, done, err := r.prompt(lineReader, writer, "confidence [0-1]> ")
		if err != nil || done {
			return err
		}
		confidence, convErr := strconv.ParseFloat(confText, 64)
		if convErr != nil {
			fmt.Fprintln(writer, "confidence must be a number between 0 and 1")
			continue
		}

		updated, err := engine.SubmitDecision(ctx, sess.SessionID, ports.SubmitDecisionCommand{
			SelectedOption:  option,
			Rationale:       rationale,
			Confidence:      confidence,
			ExpectedVersion: sess.Version,
		})
		if err != nil {
			var invalidOpt *domain.InvalidOptionError
			var validation *domain.ValidationError
			switch {
			case errors.As(err, &invalidOpt):
				fmt.Fprintf(writer, "unknown option %q; valid: %s\n",
					invalidOpt.Option, strings.Join(invalidOpt.Valid, ", "))
				continue
			case errors.As(err, &validation):
				fmt.Fprintf(writer, "%s: %s\n", validation.Field, validation.Reason)
				continue
			default:
				return err
			}
		}
		sess = updated
	}
}

// prompt reads one trimmed input line. The boolean result is true when the
// runner should stop: on EOF or an explicit exit command.
func (r *Runner) prompt(reader *bufio.Reader, writer io.Writer, label string) (string, bool, error) {
	fmt.Fprint(writer, label)
	text, err := reader.ReadString('\n')
	if err != nil {
		if err == io.EOF {
			return "", true, nil
		}
		return "", true, fmt.Errorf("input error: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "exit" || text == "quit" {
		fmt.Fprintln(writer, "Bye!")
		return "", true, nil
	}
	return text, false, nil
}

func (r *Runner) print(writer io.Writer, content string) {
	if r.Renderer != nil {
		if rendered, err := r.Renderer(content); err == nil {
			content = rendered
		}
	}
	fmt.Fprintln(writer, strings.TrimSpace(content))
}

func formatNode(node *domain.DecisionNode) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### %s\n", node.Question)
	if len(node.ResearchContext) > 0 {
		b.WriteString("\nResearch context:\n")
		for _, ref := range node.ResearchContext {
			fmt.Fprintf(&b, "  - %s\n", ref)
		}
	}
	b.WriteString("\nOptions:\n")
	for i, opt := range node.Options {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, opt.Label)
	}
	return b.String()
}

func formatRecommendations(sess *domain.DecisionSession) string {
	recs := sess.FinalRecommendations
	if recs == nil {
		return "Session completed without recommendations."
	}

	var b strings.Builder
	b.WriteString("## Final Recommendations\n\n")
	fmt.Fprintf(&b, "%s\n", recs.OverallAssessment)
	fmt.Fprintf(&b, "\nRisk: %s\n", recs.RiskAssessment.Level)
	for _, factor := range recs.RiskAssessment.Factors {
		fmt.Fprintf(&b, "  - %s\n", factor)
	}
	if len(recs.StrategicRecommendations) > 0 {
		b.WriteString("\nStrategic recommendations:\n")
		for _, rec := range recs.StrategicRecommendations {
			fmt.Fprintf(&b, "  - %s\n", rec)
		}
	}
	if len(recs.NextSteps) > 0 {
		b.WriteString("\nNext steps:\n")
		for _, step := range recs.NextSteps {
			fmt.Fprintf(&b, "  - %s\n", step)
		}
	}
	if len(recs.DecisionPath) > 0 {
		parts := make([]string, 0, len(recs.DecisionPath))
		for _, step := range recs.DecisionPath {
			parts = append(parts, fmt.Sprintf("%s(%s)", step.NodeID, step.SelectedOption))
		}
		fmt.Fprintf(&b, "\nDecision path: %s\n", strings.Join(parts, " -> "))
	}
	return b.String()
}
