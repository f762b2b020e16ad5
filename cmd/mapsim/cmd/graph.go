package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-drift/maps/pkg/maps"
)

func newGraphCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "graph <from> <to>",
		Short: "Print the lifecycle path between two states",
		Long: `graph prints the lifecycle events a map view goes through between two
states, one edge per line. States are destroyed, initialized, created,
started and resumed.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := maps.ParseLifecycleState(args[0])
			if err != nil {
				return err
			}
			to, err := maps.ParseLifecycleState(args[1])
			if err != nil {
				return err
			}
			path, err := maps.NewLifecycleGraph().Path(from, to)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(path) == 0 {
				fmt.Fprintf(out, "%s: no transition\n", from)
				return nil
			}
			for _, edge := range path {
				if edge.Silent {
					fmt.Fprintf(out, "%s -%s-> %s (no hook)\n", edge.From, edge.Event, edge.To)
				} else {
					fmt.Fprintf(out, "%s -%s-> %s\n", edge.From, edge.Event, edge.To)
				}
			}
			return nil
		},
	}
}
