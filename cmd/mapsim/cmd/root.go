// Package cmd implements the mapsim commands.
package cmd

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
)

// Version is set at build time; it falls back to the module version.
var Version = ""

const longHelp = `mapsim replays map scenarios against an in-memory map.

A scenario is a YAML file of steps that drive the host lifecycle, the map
view and its camera controller. mapsim prints every call the map receives
and checks the expectations the scenario declares.`

var exampleUsage = strings.TrimSpace(`
  mapsim run scenarios/fly.yaml
  mapsim run --watch --log-level debug scenarios/fly.yaml
  mapsim graph resumed destroyed
`)

func version() string {
	v := Version
	if v == "" {
		v = "dev"
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
			v = info.Main.Version
		}
	}
	return fmt.Sprintf("%s %s/%s", v, runtime.GOOS, runtime.GOARCH)
}

// NewRootCommand builds the mapsim command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "mapsim",
		Short:         "Replay map lifecycle and camera scenarios",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       version(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCommand(), newGraphCommand())
	return root
}

// Execute runs the CLI and prints any error to stderr.
func Execute() error {
	root := NewRootCommand()
	err := root.Execute()
	if err != nil {
		fmt.Fprintf(root.ErrOrStderr(), "Error: %v\n", err)
	}
	return err
}
