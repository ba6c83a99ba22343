package cluster

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chain struct {
	cloud *fakeCloud
	graph *Graph
	role  *fakeResource
	eks   *fakeResource
	nodes *fakeResource
}

func newChain(t *testing.T) chain {
	cloud := newFakeCloud()
	c := chain{
		cloud: cloud,
		graph: NewGraph(),
		role:  cloud.resource("role", "r", "v1"),
		eks:   cloud.resource("cluster", "c", "v1"),
		nodes: cloud.resource("nodegroup", "n", "v1"),
	}
	require.NoError(t, c.graph.Add(c.role, c.eks, c.nodes))
	require.NoError(t, c.graph.Connect(c.eks, c.role, EdgeReference))
	require.NoError(t, c.graph.Connect(c.nodes, c.eks, EdgeReference))
	return c
}

func TestApplyCreatesInOrderAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	c := newChain(t)
	rec := &recorded{}

	plan, err := PlanApply(ctx, c.graph, testSettings(), Options{Parallelism: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, plan.Count(ActionCreate))
	assert.Equal(t, "3 to create, 0 to update, 0 to delete", plan.Summary())

	done, err := Apply(ctx, c.graph, testSettings(), Options{Parallelism: 2, Recorder: rec})
	require.NoError(t, err)
	assert.Equal(t, 3, done.Count(ActionCreate))
	assert.Equal(t, map[string]Action{
		"role.r":      ActionCreate,
		"cluster.c":   ActionCreate,
		"nodegroup.n": ActionCreate,
	}, rec.actions)

	var creates []string
	for _, call := range c.cloud.Calls() {
		if call[:6] == "create" {
			creates = append(creates, call)
		}
	}
	assert.Equal(t, []string{"create role.r", "create cluster.c", "create nodegroup.n"}, creates)

	object := c.cloud.objects["cluster.c"]
	assert.Equal(t, "ekscd", object.tags[OwnerTagKey])
	assert.Equal(t, "v1", object.tags[VersionTagKey])
	assert.Equal(t, "demo", object.tags[NameTagKey])

	plan, err = PlanApply(ctx, c.graph, testSettings(), Options{})
	require.NoError(t, err)
	assert.False(t, plan.HasChanges())
	assert.Equal(t, 3, plan.Count(ActionNoop))
}

func TestApplyUpdatesDrift(t *testing.T) {
	ctx := context.Background()
	c := newChain(t)
	_, err := Apply(ctx, c.graph, testSettings(), Options{})
	require.NoError(t, err)

	c.nodes.target = "v2"
	plan, err := PlanApply(ctx, c.graph, testSettings(), Options{})
	require.NoError(t, err)
	require.Len(t, plan.Changes, 3)
	assert.Equal(t, Change{
		Address:         "nodegroup.n",
		Type:            "nodegroup",
		Name:            "n",
		Action:          ActionUpdate,
		DeployedVersion: "v1",
		TargetVersion:   "v2",
		Level:           2,
	}, plan.Changes[2])

	done, err := Apply(ctx, c.graph, testSettings(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, done.Count(ActionUpdate))
	assert.Equal(t, "v2", c.cloud.objects["nodegroup.n"].version)
}

func TestApplyStopsAtFailingLevel(t *testing.T) {
	ctx := context.Background()
	c := newChain(t)
	boom := errors.New("boom")
	c.cloud.fail["create cluster.c"] = boom

	done, err := Apply(ctx, c.graph, testSettings(), Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, done.Count(ActionCreate))
	assert.NotContains(t, c.cloud.Calls(), "fetch nodegroup.n")
}

func TestOwnershipConflictBlocksMutation(t *testing.T) {
	ctx := context.Background()
	c := newChain(t)
	c.cloud.objects["cluster.c"] = fakeObject{version: "old", tags: Tags{OwnerTagKey: "flux"}}

	_, err := PlanApply(ctx, c.graph, testSettings(), Options{})
	require.Error(t, err)
	assert.True(t, IsOwnershipError(err))

	_, err = Apply(ctx, c.graph, testSettings(), Options{})
	require.Error(t, err)
	assert.True(t, IsOwnershipError(err))
	assert.NotContains(t, c.cloud.Calls(), "update cluster.c")
	assert.Equal(t, "old", c.cloud.objects["cluster.c"].version)

	c.cloud.objects["cluster.c"] = fakeObject{version: "v1", tags: Tags{}}
	_, err = Destroy(ctx, c.graph, testSettings(), Options{})
	var ownership *OwnershipError
	require.ErrorAs(t, err, &ownership)
	assert.Equal(t, Owner(""), ownership.Actual)
	assert.NotContains(t, c.cloud.Calls(), "delete cluster.c")
}

func TestDestroyReverseOrder(t *testing.T) {
	ctx := context.Background()
	c := newChain(t)
	_, err := Apply(ctx, c.graph, testSettings(), Options{})
	require.NoError(t, err)

	plan, err := PlanDestroy(ctx, c.graph, testSettings(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, plan.Count(ActionDelete))
	assert.Equal(t, "nodegroup.n", plan.Changes[0].Address)

	rec := &recorded{}
	done, err := Destroy(ctx, c.graph, testSettings(), Options{Recorder: rec})
	require.NoError(t, err)
	assert.Equal(t, 3, done.Count(ActionDelete))
	assert.Empty(t, c.cloud.objects)
	assert.Len(t, rec.actions, 3)

	var deletes []string
	for _, call := range c.cloud.Calls() {
		if call[:6] == "delete" {
			deletes = append(deletes, call)
		}
	}
	assert.Equal(t, []string{"delete nodegroup.n", "delete cluster.c", "delete role.r"}, deletes)

	done, err = Destroy(ctx, c.graph, testSettings(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, done.Count(ActionNoop))
}

func TestUntaggedExistingResourceIsRefused(t *testing.T) {
	ctx := context.Background()
	c := newChain(t)
	c.cloud.objects["cluster.c"] = fakeObject{version: "old"}

	_, err := PlanApply(ctx, c.graph, testSettings(), Options{})
	var ownership *OwnershipError
	require.ErrorAs(t, err, &ownership)
	assert.Equal(t, "cluster.c", ownership.Address)
	assert.Equal(t, Owner(""), ownership.Actual)

	_, err = Apply(ctx, c.graph, testSettings(), Options{})
	require.Error(t, err)
	assert.True(t, IsOwnershipError(err))
	assert.NotContains(t, c.cloud.Calls(), "update cluster.c")

	_, err = Destroy(ctx, c.graph, testSettings(), Options{})
	require.Error(t, err)
	assert.True(t, IsOwnershipError(err))
	assert.NotContains(t, c.cloud.Calls(), "delete cluster.c")
}

func TestDestroyRecordsWhatHappened(t *testing.T) {
	ctx := context.Background()
	c := newChain(t)
	_, err := Apply(ctx, c.graph, testSettings(), Options{})
	require.NoError(t, err)
	delete(c.cloud.objects, "nodegroup.n")

	rec := &recorded{}
	_, err = Destroy(ctx, c.graph, testSettings(), Options{Recorder: rec})
	require.NoError(t, err)
	assert.Equal(t, map[string]Action{
		"nodegroup.n": ActionNoop,
		"cluster.c":   ActionDelete,
		"role.r":      ActionDelete,
	}, rec.actions)
}

func TestApplyHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := newChain(t)
	_, err := Apply(ctx, c.graph, testSettings(), Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, c.cloud.Calls())
}
