package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"cluster", "plan"}, {"cluster", "apply"}, {"cluster", "destroy"}, {"cluster", "graph"},
		{"gitops", "bootstrap"}, {"gitops", "teardown"}, {"gitops", "inventory"}, {"gitops", "logs"},
		{"state", "init"}, {"state", "show"}, {"state", "unlock"},
		{"kube", "token"}, {"kube", "kubeconfig"},
		{"audit", "metrics"},
		{"version"},
	} {
		c, _, err := rootCmd.Find(path)
		require.NoError(t, err, "%v", path)
		assert.Equal(t, path[len(path)-1], c.Name())
	}
}

func TestHelpListsGroups(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"--help"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "Cluster lifecycle:")
	assert.Contains(t, out.String(), "gitops")
	assert.Contains(t, out.String(), "--manifest")
}
