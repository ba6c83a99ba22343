package cluster

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"ekscd/internal/cli/workspace"
	"ekscd/internal/cluster"
	"ekscd/internal/logging"
)

var graphFormat string

var graphCmd = &cobra.Command{
	Use:   "graph [flags]",
	Short: "Print the dependency graph of the provisioned objects",
	Long: `Print the dependency graph of the provisioned objects.

The dot format renders with Graphviz:
    ekscd cluster graph --format dot | dot -Tpng -o cluster.png`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := workspace.Load()
		if err != nil {
			return err
		}
		switch graphFormat {
		case "dot":
			_, err = fmt.Fprint(logging.Output, ws.Stack.Graph.Dot())
			return err
		case "levels":
			return printLevels(ws.Stack.Graph)
		}
		return errors.Errorf("unknown format %q, use levels or dot", graphFormat)
	},
}

func printLevels(g *cluster.Graph) error {
	levels, err := g.Levels()
	if err != nil {
		return err
	}
	for i, level := range levels {
		logging.UserProgress("Level %d", i)
		for _, r := range level {
			address := cluster.Address(r)
			var deps []string
			for _, edge := range g.Dependencies(address) {
				deps = append(deps, fmt.Sprintf("%s (%s)", edge.To, edge.Kind))
			}
			if len(deps) == 0 {
				logging.UserInfo("\t- %s", address)
				continue
			}
			logging.UserInfo("\t- %s <- %s", address, strings.Join(deps, ", "))
		}
	}
	return nil
}

func init() {
	graphCmd.Flags().StringVar(&graphFormat, "format", "levels", "Output format: levels or dot")
}
