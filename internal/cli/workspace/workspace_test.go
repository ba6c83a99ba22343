package workspace

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lithammer/dedent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ekscd/internal/cluster"
	"ekscd/internal/env"
	"ekscd/internal/logging"
	"ekscd/internal/state"
)

var clusterYAML = dedent.Dedent(`
	region: eu-west-1
	default_tags:
	  Name: demo
	  Repository: https://github.com/acme/infra
	cluster:
	  subnet_ids: [subnet-a, subnet-b]
	gitops:
	  owner: acme
	  repository: fleet
	`)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	previous, noColor := logging.Output, logging.NoColor
	logging.Output, logging.NoColor = buf, true
	t.Cleanup(func() { logging.Output, logging.NoColor = previous, noColor })
	return buf
}

func withConfig(t *testing.T, manifestPath, region string) {
	t.Helper()
	previous := env.Config
	env.Config.Manifest = manifestPath
	env.Config.Region = region
	t.Cleanup(func() { env.Config = previous })
}

func writeManifest(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cluster.yaml")
	require.NoError(t, os.WriteFile(path, []byte(clusterYAML), 0o600))
	return path
}

func TestLoadTakesRegionFromManifest(t *testing.T) {
	withConfig(t, writeManifest(t), "")
	w, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", env.Config.Region)
	assert.Equal(t, "demo-cluster", w.ClusterName())
	assert.Equal(t, "flux-system", w.FluxNamespace())
}

func TestLoadKeepsRegionFlag(t *testing.T) {
	withConfig(t, writeManifest(t), "us-east-2")
	_, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "us-east-2", env.Config.Region)
}

func TestLoadMissingManifest(t *testing.T) {
	withConfig(t, filepath.Join(t.TempDir(), "missing.yaml"), "")
	_, err := Load()
	assert.ErrorContains(t, err, "reading manifest")
}

func TestConfirm(t *testing.T) {
	capture(t)
	previous := Input
	t.Cleanup(func() { Input = previous })

	for answer, want := range map[string]bool{"yes\n": true, "  yes  \n": true, "y\n": false, "": false, "no\n": false} {
		Input = strings.NewReader(answer)
		assert.Equal(t, want, Confirm("destroy everything?"), "answer %q", answer)
	}
}

func TestPrintPlanHidesNoops(t *testing.T) {
	out := capture(t)
	plan := &cluster.Plan{Changes: []cluster.Change{
		{Address: "log_group./aws/eks/demo-cluster/cluster", Action: cluster.ActionNoop, Level: 0},
		{Address: "eks_cluster.demo-cluster", Action: cluster.ActionUpdate, DeployedVersion: "0123456789abcdef", TargetVersion: "fedcba9876543210", Level: 2},
	}}
	PrintPlan(plan, false)
	assert.NotContains(t, out.String(), "log_group")
	assert.Contains(t, out.String(), "eks_cluster.demo-cluster")
	assert.Contains(t, out.String(), "0123456789ab")
	assert.NotContains(t, out.String(), "0123456789abc")
	assert.Contains(t, out.String(), "Plan: 0 to create, 1 to update, 0 to delete")

	out.Reset()
	PrintPlan(&cluster.Plan{Changes: plan.Changes[:1]}, true)
	assert.Contains(t, out.String(), "log_group")
	assert.Contains(t, out.String(), "No changes")
}

func TestPrintSnapshot(t *testing.T) {
	out := capture(t)
	snapshot := state.NewSnapshot()
	snapshot.Serial = 3
	snapshot.Lineage = "lineage-1"
	snapshot.Put(state.Record{
		Address:   "iam_role.demo-node-role",
		ID:        "AROAEXAMPLE",
		Owner:     "ekscd",
		Version:   "abc",
		UpdatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	})
	PrintSnapshot(snapshot, &state.LockInfo{ID: "lock-1", Operation: "apply", Who: "ci"})
	assert.Contains(t, out.String(), "Serial 3, lineage lineage-1")
	assert.Contains(t, out.String(), "WARNING: state is locked: apply by ci")
	assert.Contains(t, out.String(), "AROAEXAMPLE")
	assert.Contains(t, out.String(), "2024-05-01 12:00:00")

	out.Reset()
	PrintSnapshot(state.NewSnapshot(), nil)
	assert.Contains(t, out.String(), "No resources recorded")
}
