package cmd

import (
	"fmt"
	"runtime"
)

func init() {
	RegisterCommand(&Command{
		Name:  "version",
		Short: "Show version information",
		Long:  "Show the loom CLI version and the Go version it was built with.",
		Usage: "loom version",
		Run:   runVersion,
	})
}

func runVersion(args []string) error {
	fmt.Fprintf(stdout, "loom CLI version %s (built %s, %s)\n", Version, BuildTime, runtime.Version())
	return nil
}
