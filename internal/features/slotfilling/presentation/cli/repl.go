package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"

	"hello-prompt-agent/internal/features/slotfilling/domain"
)

const (
	pasteCommand = "/paste"
	pasteEnd     = "/end"
	separator    = "------------------------------------------------------------------------"
	doneBanner   = "(Final prompt generated. Keep adding details to iterate, or /reset to start a new task.)"
)

// Stepper runs one conversation turn.
type Stepper interface {
	Step(ctx context.Context, text string) domain.StepResult
}

// REPL is the interactive line-oriented front end.
type REPL struct {
	engine Stepper
	in     *bufio.Reader
	out    *termenv.Output
	render func(string) (string, error)
}

// NewREPL creates a REPL reading from in and writing to out. With render
// set, completed prompts are rendered as Markdown for the terminal.
func NewREPL(engine Stepper, in io.Reader, out io.Writer, render bool) *REPL {
	r := &REPL{
		engine: engine,
		in:     bufio.NewReader(in),
		out:    termenv.NewOutput(out),
	}
	if render {
		r.render = newRenderer()
	}
	return r
}

func newRenderer() func(string) (string, error) {
	tr, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return nil
	}
	return tr.Render
}

// Run reads turns until EOF, /exit or /quit, or until ctx is done.
func (r *REPL) Run(ctx context.Context) error {
	r.banner()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.print(r.style("You> ", "#818cf8"))

		line, err := r.in.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			if errors.Is(err, io.EOF) {
				r.println("\nBye.")
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		text := strings.TrimSpace(line)
		switch text {
		case "":
			continue
		case "/exit", "/quit":
			r.println("Bye.")
			return nil
		case pasteCommand:
			text, err = r.readPaste()
			if err != nil {
				return err
			}
			if text == "" {
				r.println("(nothing pasted)")
				continue
			}
		}

		r.show(r.engine.Step(ctx, text))
	}
}

// readPaste collects raw lines until a line reading /end or EOF.
func (r *REPL) readPaste() (string, error) {
	r.println("(paste mode: finish with " + pasteEnd + " on its own line)")
	var lines []string
	for {
		line, err := r.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("failed to read pasted input: %w", err)
		}
		trimmed := strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(trimmed) == pasteEnd {
			break
		}
		if trimmed != "" || err == nil {
			lines = append(lines, trimmed)
		}
		if err != nil {
			break
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}

func (r *REPL) show(res domain.StepResult) {
	text := res.Text
	if res.Done && r.render != nil {
		if rendered, err := r.render(text); err == nil {
			text = rendered
		}
	}
	r.println("")
	r.println(r.style("Agent>", "#c084fc"))
	r.println(text)
	r.println(separator)
	if res.Done {
		r.println(r.style(doneBanner, "#34d399"))
		r.println(separator)
	}
}

func (r *REPL) banner() {
	r.println(r.style("Hello Prompt Agent", "#a78bfa"))
	r.println("Type /templates to list modes, or start with /mode CODE EXTEND. /help lists commands.")
	r.println(separator)
}

func (r *REPL) style(s, color string) string {
	return r.out.String(s).Foreground(r.out.Color(color)).Bold().String()
}

func (r *REPL) print(s string) {
	fmt.Fprint(r.out, s)
}

func (r *REPL) println(s string) {
	fmt.Fprintln(r.out, s)
}
