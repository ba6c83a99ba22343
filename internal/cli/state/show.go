package state

import (
	"github.com/spf13/cobra"

	"ekscd/internal/cli/workspace"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "List the recorded resources",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ws, err := workspace.Load()
		if err != nil {
			return err
		}
		store, err := ws.OpenStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		snapshot, err := store.Read(ctx)
		if err != nil {
			return err
		}
		lock, err := store.LockInfo(ctx)
		if err != nil {
			return err
		}
		workspace.PrintSnapshot(snapshot, lock)
		return nil
	},
}
