package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/go-drift/loom/internal/linediff"
)

func init() {
	RegisterCommand(&Command{
		Name:  "diff",
		Short: "Show the updates between two view descriptions",
		Long: `Show the updates between two view descriptions.

Renders the old description, hot-updates the component to the new one and
prints the surface operations the update produced, followed by a line
diff of the rendered markup.

Flags:
  --state FILE    Merge state values from a YAML file`,
		Usage: "loom diff [--state FILE] <old.yaml> <new.yaml>",
		Run:   runDiff,
	})
}

type diffOptions struct {
	from, to  string
	stateFile string
}

func parseDiffArgs(args []string) (diffOptions, error) {
	var opts diffOptions
	var files []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--state":
			if i+1 >= len(args) {
				return opts, fmt.Errorf("--state requires a file")
			}
			i++
			opts.stateFile = args[i]
		default:
			files = append(files, args[i])
		}
	}
	if len(files) != 2 {
		return opts, fmt.Errorf("diff requires two view files, got %d", len(files))
	}
	opts.from, opts.to = files[0], files[1]
	return opts, nil
}

func runDiff(args []string) error {
	opts, err := parseDiffArgs(args)
	if err != nil {
		return err
	}
	p, err := loadProject()
	if err != nil {
		return err
	}
	configureColor(p.cfg.Color)
	return p.diff(stdout, opts)
}

func (p *project) diff(w io.Writer, opts diffOptions) error {
	if opts.stateFile != "" {
		if err := p.mergeState(opts.stateFile); err != nil {
			return err
		}
	}
	next, err := readDescription(opts.to)
	if err != nil {
		return err
	}
	c, err := p.renderTarget(opts.from)
	if err != nil {
		return err
	}
	defer c.Remove()

	before := outline(p.tree.Root())
	p.tree.ResetOps()
	if err := p.app.UpdateView(c.Name(), next); err != nil {
		return err
	}
	after := outline(p.tree.Root())

	ops := p.tree.Ops()
	if len(ops) == 0 {
		fmt.Fprintln(w, "no changes")
		return nil
	}
	fmt.Fprintf(w, "%d operations:\n", len(ops))
	for _, op := range ops {
		fmt.Fprintln(w, "  "+opColor(op.Kind).Sprint(op.String()))
	}

	fmt.Fprintln(w)
	for _, l := range linediff.Lines(joinLines(before), joinLines(after)) {
		switch l.Kind {
		case linediff.Delete:
			fmt.Fprintln(w, color.RedString("- %s", l.Text))
		case linediff.Insert:
			fmt.Fprintln(w, color.GreenString("+ %s", l.Text))
		default:
			fmt.Fprintln(w, "  "+l.Text)
		}
	}
	return nil
}

func opColor(kind string) *color.Color {
	switch kind {
	case "create", "insert":
		return color.New(color.FgGreen)
	case "remove":
		return color.New(color.FgRed)
	default:
		return color.New(color.FgYellow)
	}
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
