package workspace

import (
	"strconv"

	"ekscd/internal/aws/common"
	"ekscd/internal/cluster"
	"ekscd/internal/logging"
	"ekscd/internal/state"
)

// PrintPlan lists every change with its level. No-ops are hidden unless verbose.
func PrintPlan(plan *cluster.Plan, verbose bool) {
	var rows [][]string
	for _, change := range plan.Changes {
		if change.Action == cluster.ActionNoop && !verbose {
			continue
		}
		rows = append(rows, []string{
			strconv.Itoa(change.Level),
			logging.Colorize(actionColor(change.Action), string(change.Action)),
			change.Address,
			cluster.ShortVersion(change.DeployedVersion),
			cluster.ShortVersion(change.TargetVersion),
		})
	}
	if len(rows) > 0 {
		common.RenderTable([]string{"Level", "Action", "Address", "Deployed", "Target"}, rows)
	}
	if !plan.HasChanges() {
		logging.UserSuccess("No changes, the cluster matches the manifest")
		return
	}
	logging.UserInfo("Plan: %s", plan.Summary())
}

func PrintSnapshot(snapshot *state.Snapshot, lock *state.LockInfo) {
	logging.UserInfo("Serial %d, lineage %s", snapshot.Serial, snapshot.Lineage)
	if lock != nil {
		logging.UserWarning("state is locked: %s", lock)
	}
	var rows [][]string
	for _, address := range snapshot.Addresses() {
		record := snapshot.Resources[address]
		rows = append(rows, []string{
			address,
			record.ID,
			record.Owner,
			cluster.ShortVersion(record.Version),
			record.UpdatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	if len(rows) == 0 {
		logging.UserInfo("No resources recorded")
		return
	}
	common.RenderTable([]string{"Address", "ID", "Owner", "Version", "Updated"}, rows)
}
