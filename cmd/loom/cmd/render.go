package cmd

import (
	"fmt"
	"io"
)

func init() {
	RegisterCommand(&Command{
		Name:  "render",
		Short: "Render a component to markup",
		Long: `Render a component to markup.

The target is either a component configured in loom.yaml or a path to a
view description file (.yaml or .yml). State comes from loom.yaml, the
LOOM_STATE file and the --state flag, in that order.

Flags:
  --state FILE    Merge state values from a YAML file
  --ops           Print the surface operations recorded while rendering`,
		Usage: "loom render [--state FILE] [--ops] <component|file.yaml>",
		Run:   runRender,
	})
}

type renderOptions struct {
	target    string
	stateFile string
	ops       bool
}

func parseRenderArgs(args []string) (renderOptions, error) {
	var opts renderOptions
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--state":
			if i+1 >= len(args) {
				return opts, fmt.Errorf("--state requires a file")
			}
			i++
			opts.stateFile = args[i]
		case "--ops":
			opts.ops = true
		default:
			if opts.target != "" {
				return opts, fmt.Errorf("unexpected argument %q", args[i])
			}
			opts.target = args[i]
		}
	}
	if opts.target == "" {
		return opts, fmt.Errorf("render requires a component name or view file")
	}
	return opts, nil
}

func runRender(args []string) error {
	opts, err := parseRenderArgs(args)
	if err != nil {
		return err
	}
	p, err := loadProject()
	if err != nil {
		return err
	}
	return p.render(stdout, opts)
}

func (p *project) render(w io.Writer, opts renderOptions) error {
	if opts.stateFile != "" {
		if err := p.mergeState(opts.stateFile); err != nil {
			return err
		}
	}
	c, err := p.renderTarget(opts.target)
	if err != nil {
		return err
	}
	defer c.Remove()

	fmt.Fprintln(w, p.tree.String())
	if opts.ops {
		for _, op := range p.tree.Ops() {
			fmt.Fprintln(w, op.String())
		}
	}
	p.logger.Debug("rendered", "target", opts.target, "ops", len(p.tree.Ops()))
	return nil
}
