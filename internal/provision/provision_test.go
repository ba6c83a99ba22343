package provision

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/lithammer/dedent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ekscd/internal/aws/awstest"
	awscluster "ekscd/internal/aws/cluster"
	"ekscd/internal/cluster"
	"ekscd/internal/manifest"
	"ekscd/internal/state"
)

var clusterYAML = dedent.Dedent(`
	region: eu-west-1
	default_tags:
	  Name: demo
	cluster:
	  subnet_ids: [subnet-a, subnet-b]
	`)

func setup(t *testing.T) (*awstest.Cloud, *manifest.Manifest, state.Store) {
	t.Helper()
	cloud := awstest.NewCloud()
	t.Cleanup(cloud.Install())

	m, err := manifest.Parse([]byte(clusterYAML))
	require.NoError(t, err)
	require.NoError(t, m.Validate())

	store, err := OpenStore(context.Background(), m, filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return cloud, m, store
}

func newStack(t *testing.T, m *manifest.Manifest) *awscluster.Stack {
	t.Helper()
	s, err := awscluster.NewStack(m)
	require.NoError(t, err)
	return s
}

func TestApplyRecordsEveryResource(t *testing.T) {
	ctx := context.Background()
	_, m, store := setup(t)

	done, err := Apply(ctx, store, newStack(t, m), 4)
	require.NoError(t, err)
	assert.Equal(t, 10, done.Count(cluster.ActionCreate))

	snapshot, err := store.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), snapshot.Serial)
	assert.NotEmpty(t, snapshot.Lineage)
	require.Len(t, snapshot.Resources, 10)

	record := snapshot.Resources["eks_cluster.demo-cluster"]
	assert.Equal(t, "eks_cluster", record.Type)
	assert.Equal(t, "demo-cluster", record.Name)
	assert.Equal(t, "arn:aws:eks:eu-west-1:123456789012:cluster/demo-cluster", record.ID)
	assert.Equal(t, string(cluster.OwnerProvisioner), record.Owner)
	assert.NotEmpty(t, record.Version)

	info, err := store.LockInfo(ctx)
	require.NoError(t, err)
	assert.Nil(t, info, "lock must be released after apply")
}

func TestSecondApplyKeepsRecordsAndBumpsSerial(t *testing.T) {
	ctx := context.Background()
	_, m, store := setup(t)

	_, err := Apply(ctx, store, newStack(t, m), 2)
	require.NoError(t, err)
	first, err := store.Read(ctx)
	require.NoError(t, err)

	plan, err := Plan(ctx, newStack(t, m), 2)
	require.NoError(t, err)
	assert.False(t, plan.HasChanges())

	_, err = Apply(ctx, store, newStack(t, m), 2)
	require.NoError(t, err)
	second, err := store.Read(ctx)
	require.NoError(t, err)

	assert.Equal(t, first.Serial+1, second.Serial)
	assert.Equal(t, first.Lineage, second.Lineage)
	assert.Equal(t, first.Resources, second.Resources)
}

func TestApplyRefusesWhileLocked(t *testing.T) {
	ctx := context.Background()
	cloud, m, store := setup(t)

	_, err := store.Lock(ctx, state.NewLockInfo("destroy"))
	require.NoError(t, err)

	_, err = Apply(ctx, store, newStack(t, m), 2)
	require.ErrorIs(t, err, state.ErrLocked)
	assert.Empty(t, cloud.Calls())
}

func TestPartialApplyIsRecorded(t *testing.T) {
	ctx := context.Background()
	cloud, m, store := setup(t)
	_, err := Apply(ctx, store, newStack(t, m), 2)
	require.NoError(t, err)

	cloud.EKS.SetClusterTag("demo-cluster", cluster.OwnerTagKey, string(cluster.OwnerGitOps))
	s := newStack(t, m)
	s.LogGroup.RetentionDays = 14
	_, err = Apply(ctx, store, s, 1)
	require.Error(t, err)
	assert.True(t, cluster.IsOwnershipError(err))

	snapshot, err := store.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), snapshot.Serial)
	assert.Equal(t, s.LogGroup.TargetVersion(), snapshot.Resources["log_group./aws/eks/demo-cluster/cluster"].Version)
}

func TestDestroyEmptiesState(t *testing.T) {
	ctx := context.Background()
	_, m, store := setup(t)
	_, err := Apply(ctx, store, newStack(t, m), 4)
	require.NoError(t, err)

	plan, err := PlanDestroy(ctx, newStack(t, m), 4)
	require.NoError(t, err)
	assert.Equal(t, 10, plan.Count(cluster.ActionDelete))

	done, err := Destroy(ctx, store, newStack(t, m), 4)
	require.NoError(t, err)
	assert.Equal(t, 10, done.Count(cluster.ActionDelete))

	snapshot, err := store.Read(ctx)
	require.NoError(t, err)
	assert.Empty(t, snapshot.Resources)
}

func TestRecorderDropsAbsentResources(t *testing.T) {
	snapshot := state.NewSnapshot()
	r := &awscluster.LogGroup{Name: "/aws/eks/demo-cluster/cluster", RetentionDays: 7}
	recorder := NewRecorder(snapshot, cluster.OwnerProvisioner)

	// not fetched, so absent
	recorder.Record(r, cluster.ActionNoop)
	assert.Empty(t, snapshot.Resources)

	snapshot.Put(state.Record{Address: cluster.Address(r), UpdatedAt: time.Unix(0, 0)})
	recorder.Record(r, cluster.ActionDelete)
	assert.Empty(t, snapshot.Resources)
}
