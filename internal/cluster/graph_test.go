package cluster

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addresses(levels [][]Resource) [][]string {
	var out [][]string
	for _, level := range levels {
		var names []string
		for _, r := range level {
			names = append(names, Address(r))
		}
		out = append(out, names)
	}
	return out
}

func TestGraphLevels(t *testing.T) {
	cloud := newFakeCloud()
	logs := cloud.resource("log_group", "logs", "v1")
	role := cloud.resource("role", "role", "v1")
	attachment := cloud.resource("attachment", "policy", "v1")
	eks := cloud.resource("cluster", "eks", "v1")
	nodes := cloud.resource("nodegroup", "nodes", "v1")
	addon := cloud.resource("addon", "metrics", "v1")

	g := NewGraph()
	require.NoError(t, g.Add(addon, nodes, eks, attachment, role, logs))
	require.NoError(t, g.Connect(attachment, role, EdgeReference))
	require.NoError(t, g.Connect(eks, role, EdgeReference))
	require.NoError(t, g.Connect(eks, attachment, EdgeDependsOn))
	require.NoError(t, g.Connect(eks, logs, EdgeDependsOn))
	require.NoError(t, g.Connect(nodes, eks, EdgeReference))
	require.NoError(t, g.Connect(addon, eks, EdgeReference))
	require.NoError(t, g.Connect(addon, nodes, EdgeDependsOn))

	levels, err := g.Levels()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"log_group.logs", "role.role"},
		{"attachment.policy"},
		{"cluster.eks"},
		{"nodegroup.nodes"},
		{"addon.metrics"},
	}, addresses(levels))

	assert.Equal(t, []Edge{
		{From: "cluster.eks", To: "attachment.policy", Kind: EdgeDependsOn},
		{From: "cluster.eks", To: "log_group.logs", Kind: EdgeDependsOn},
		{From: "cluster.eks", To: "role.role", Kind: EdgeReference},
	}, g.Dependencies("cluster.eks"))
	assert.Len(t, g.Edges(), 7)
}

func TestGraphErrors(t *testing.T) {
	cloud := newFakeCloud()
	a := cloud.resource("t", "a", "v1")
	b := cloud.resource("t", "b", "v1")
	c := cloud.resource("t", "c", "v1")
	unknown := cloud.resource("t", "unknown", "v1")

	g := NewGraph()
	require.NoError(t, g.Add(a, b, c))
	assert.Error(t, g.Add(cloud.resource("t", "a", "v2")))
	assert.Error(t, g.Connect(a, unknown, EdgeReference))
	assert.Error(t, g.Connect(a, a, EdgeReference))
	require.NoError(t, g.Connect(a, b, EdgeReference))
	require.NoError(t, g.Connect(a, b, EdgeReference))
	assert.Error(t, g.Connect(a, b, EdgeDependsOn))

	require.NoError(t, g.Connect(b, c, EdgeDependsOn))
	require.NoError(t, g.Connect(c, a, EdgeDependsOn))
	_, err := g.Levels()
	var cycle *CycleError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, []string{"t.a", "t.b", "t.c"}, cycle.Addresses)
}

func TestGraphDot(t *testing.T) {
	cloud := newFakeCloud()
	role := cloud.resource("role", "r", "v1")
	eks := cloud.resource("cluster", "c", "v1")
	g := NewGraph()
	require.NoError(t, g.Add(role, eks))
	require.NoError(t, g.Connect(eks, role, EdgeReference))

	out := g.Dot()
	assert.True(t, strings.HasPrefix(out, "digraph"))
	assert.Contains(t, out, "cluster.c")
	assert.Contains(t, out, "role.r")
	assert.Contains(t, out, "reference")
}
