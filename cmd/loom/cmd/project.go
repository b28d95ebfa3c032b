package cmd

import (
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/go-drift/loom/cmd/loom/internal/config"
	"github.com/go-drift/loom/pkg/component"
	"github.com/go-drift/loom/pkg/errors"
	"github.com/go-drift/loom/pkg/surface"
	"github.com/go-drift/loom/pkg/view"
)

// project is a loaded loom project: its configuration, a registry with the
// configured components and an app rendering into an in-memory tree.
type project struct {
	cfg    *config.Resolved
	logger *slog.Logger
	app    *component.App
	tree   *surface.Tree
}

// loadProject resolves the configuration for the current directory and
// builds an app from it.
func loadProject() (*project, error) {
	root, err := config.FindProjectRoot()
	if err != nil {
		root, err = os.Getwd()
		if err != nil {
			return nil, err
		}
	}
	cfg, err := config.Resolve(root)
	if err != nil {
		return nil, err
	}
	return newProject(cfg)
}

func newProject(cfg *config.Resolved) (*project, error) {
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	errors.SetHandler(&errors.LogHandler{Logger: logger, Verbose: cfg.LogLevel <= slog.LevelDebug})

	registry := component.NewRegistry()
	for _, name := range cfg.ComponentNames() {
		desc, err := readDescription(cfg.Components[name])
		if err != nil {
			return nil, fmt.Errorf("component %s: %w", name, err)
		}
		registry.Component(name, component.Definition{View: desc})
	}

	tree := surface.NewTree()
	app := component.NewApp(
		component.WithLogger(logger.With("app", cfg.AppName)),
		component.WithRegistry(registry),
		component.WithSurface(tree, tree.Root()),
	)
	declare(app, cfg.State)
	return &project{cfg: cfg, logger: logger, app: app, tree: tree}, nil
}

// mergeState loads a state file over the app state.
func (p *project) mergeState(path string) error {
	values, err := config.LoadState(path)
	if err != nil {
		return err
	}
	declare(p.app, values)
	return nil
}

// declare adds values to the app state, overwriting existing names.
func declare(app *component.App, values map[string]any) {
	for _, name := range slices.Sorted(maps.Keys(values)) {
		app.State().Add(name, values[name])
	}
}

// renderTarget renders a configured component by name or a description
// file. Files are registered under their base name.
func (p *project) renderTarget(target string) (*component.Component, error) {
	name := target
	if isDescriptionFile(target) {
		desc, err := readDescription(target)
		if err != nil {
			return nil, err
		}
		name = strings.TrimSuffix(filepath.Base(target), filepath.Ext(target))
		p.app.Registry().Component(name, component.Definition{View: desc})
	}
	return p.app.Render(name)
}

func isDescriptionFile(target string) bool {
	switch filepath.Ext(target) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func readDescription(path string) (view.Description, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return view.Description{}, fmt.Errorf("failed to read view: %w", err)
	}
	return view.Parse(data)
}

// useColor reports whether output to f should be colored for the given
// color mode.
func useColor(mode string, f *os.File) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// configureColor applies the color mode to fatih/color's global switch.
func configureColor(mode string) {
	color.NoColor = !useColor(mode, os.Stdout)
}

// outline renders the children of n one node per line, indented by depth.
func outline(n *surface.TreeNode) []string {
	var lines []string
	var walk func(n *surface.TreeNode, depth int)
	walk = func(n *surface.TreeNode, depth int) {
		indent := strings.Repeat("  ", depth)
		switch n.Kind {
		case surface.KindText:
			if n.Text != "" {
				lines = append(lines, indent+n.Text)
			}
		case surface.KindGroup:
			for _, c := range n.Children {
				walk(c, depth)
			}
		default:
			lines = append(lines, indent+openTag(n))
			for _, c := range n.Children {
				walk(c, depth+1)
			}
		}
	}
	for _, c := range n.Children {
		walk(c, 0)
	}
	return lines
}

func openTag(n *surface.TreeNode) string {
	var sb strings.Builder
	sb.WriteString("<" + n.Tag)
	for _, name := range slices.Sorted(maps.Keys(n.Attrs)) {
		fmt.Fprintf(&sb, " %s=%q", name, n.Attrs[name])
	}
	sb.WriteString(">")
	return sb.String()
}
