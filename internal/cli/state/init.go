package state

import (
	"github.com/spf13/cobra"

	"ekscd/internal/aws/db"
	"ekscd/internal/cli/workspace"
	"ekscd/internal/logging"
	"ekscd/internal/manifest"
	"ekscd/internal/state"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the state backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ws, err := workspace.Load()
		if err != nil {
			return err
		}

		if ws.Manifest.State.Backend == manifest.StateBackendDynamoDB {
			table := ws.Manifest.State.Table
			logging.UserProgress("Creating state table %s ...", table)
			if err := db.CreateTable(ctx, table, state.KeyAttribute, ws.Stack.Settings.Tags()); err != nil {
				logging.UserFailure("State init failed!")
				return err
			}
		}

		store, err := ws.OpenStore(ctx)
		if err != nil {
			logging.UserFailure("State init failed!")
			return err
		}
		defer store.Close()
		snapshot, err := store.Read(ctx)
		if err != nil {
			return err
		}
		logging.UserSuccess("State backend %s is ready, serial %d", ws.Manifest.State.Backend, snapshot.Serial)
		return nil
	},
}
