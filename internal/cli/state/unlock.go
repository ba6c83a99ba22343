package state

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"ekscd/internal/cli/workspace"
	"ekscd/internal/logging"
)

var forceUnlock bool

var unlockCmd = &cobra.Command{
	Use:   "unlock [lock id] [flags]",
	Short: "Release a lock left by an interrupted apply or destroy",
	Args:  cobra.MaximumNArgs(1),
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

		lock, err := store.LockInfo(ctx)
		if err != nil {
			return err
		}
		if lock == nil {
			logging.UserInfo("State is not locked")
			return nil
		}

		if forceUnlock {
			if !workspace.Confirm("Release the lock held for " + lock.String() + "?") {
				return nil
			}
			err = store.ForceUnlock(ctx)
		} else {
			if len(args) == 0 {
				return errors.Errorf("state is locked by %s, pass its lock id or --force", lock)
			}
			err = store.Unlock(ctx, args[0])
		}
		if err != nil {
			logging.UserFailure("Unlock failed!")
			return err
		}
		logging.UserSuccess("State unlocked")
		return nil
	},
}

func init() {
	unlockCmd.Flags().BoolVar(&forceUnlock, "force", false, "Release the lock whoever holds it")
}
