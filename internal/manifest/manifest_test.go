package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/google/go-cmp/cmp"
	"github.com/lithammer/dedent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ekscd/internal/cluster"
)

var minimal = dedent.Dedent(`
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

func TestParseAppliesDefaults(t *testing.T) {
	m, err := Parse([]byte(minimal))
	require.NoError(t, err)
	require.NoError(t, m.Validate())

	desired, min, max := m.NodeGroup.Scaling()
	assert.Equal(t, 5, desired)
	assert.Equal(t, 5, min)
	assert.Equal(t, 5, max)
	assert.Equal(t, 7, m.Logging.Retention())
	assert.Equal(t, "ON_DEMAND", m.NodeGroup.CapacityType)
	assert.Equal(t, []string{"t3.medium"}, m.NodeGroup.InstanceTypes)
	assert.Equal(t, 20, m.NodeGroup.DiskSize)
	assert.Equal(t, "AL2_x86_64", m.NodeGroup.AmiType)
	assert.Equal(t, []string{"subnet-a", "subnet-b"}, m.NodeGroup.SubnetIDs)
	assert.Equal(t, []string{"api", "audit", "authenticator", "controllerManager", "scheduler"}, m.Cluster.LogTypes)
	assert.True(t, m.Cluster.PublicAccess())
	assert.False(t, m.Cluster.PrivateAccess())
	assert.Equal(t, "1.29", m.Cluster.Version)

	if diff := cmp.Diff([]AddonSpec{{
		Name:                     "metrics-server",
		ResolveConflictsOnCreate: "OVERWRITE",
		ResolveConflictsOnUpdate: "OVERWRITE",
	}}, m.Addons); diff != "" {
		t.Errorf("addons mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, "main", m.GitOps.Branch)
	assert.Equal(t, "./clusters/demo", m.GitOps.Path)
	assert.Equal(t, "flux-system", m.GitOps.Namespace)
	assert.Equal(t, []string{"apps", "infrastructure"}, m.GitOps.TeardownOrder)
	assert.Equal(t, StateBackendSQLite, m.State.Backend)
	require.NoError(t, m.GitOpsReady())
}

func TestExplicitZeroesArePreserved(t *testing.T) {
	m, err := Parse([]byte(minimal + dedent.Dedent(`
		logging:
		  retention_days: 0
		node_group:
		  min_size: 0
		  desired_size: 2
		  max_size: 4
		`)))
	require.NoError(t, err)
	require.NoError(t, m.Validate())
	assert.Equal(t, 0, m.Logging.Retention())
	desired, min, max := m.NodeGroup.Scaling()
	assert.Equal(t, []int{2, 0, 4}, []int{desired, min, max})
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("cluster:\n  subnets: [subnet-a]\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subnets")
}

func TestValidateAggregatesProblems(t *testing.T) {
	m, err := Parse([]byte(dedent.Dedent(`
		cluster:
		  version: "1.21"
		  log_types: [api, kubelet]
		logging:
		  retention_days: 8
		node_group:
		  min_size: 3
		  desired_size: 2
		  max_size: 5
		  capacity_type: RESERVED
		addons:
		  - name: metrics-server
		    resolve_conflicts_on_update: MERGE
		  - name: metrics-server
		state:
		  backend: s3
		`)))
	require.NoError(t, err)

	err = m.Validate()
	var invalid *ValidationError
	require.ErrorAs(t, err, &invalid)
	joined := err.Error()
	for _, fragment := range []string{
		"default_tags",
		"cluster.subnet_ids",
		"older than 1.23",
		`unknown category "kubelet"`,
		"retention_days: 8",
		"min_size (3) <= desired_size (2)",
		"RESERVED",
		"MERGE",
		"declared twice",
		`"s3"`,
	} {
		assert.Contains(t, joined, fragment)
	}
}

func TestGitOpsReady(t *testing.T) {
	m, err := Parse([]byte("default_tags: {Name: demo}\n"))
	require.NoError(t, err)
	err = m.GitOpsReady()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gitops.owner")
	assert.Contains(t, err.Error(), "gitops.repository")
}

func TestLoadDerivesRepositoryFromOrigin(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	_, err = repo.CreateRemote(&config.RemoteConfig{Name: "origin", URLs: []string{"git@github.com:acme/infra.git"}})
	require.NoError(t, err)

	sub := filepath.Join(dir, "eks")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	path := filepath.Join(sub, "cluster.yaml")
	require.NoError(t, os.WriteFile(path, []byte(dedent.Dedent(`
		default_tags:
		  Name: demo
		cluster:
		  subnet_ids: [subnet-a]
		`)), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/acme/infra", m.DefaultTags[cluster.RepositoryTagKey])
	assert.Equal(t, sub, m.Dir())
}

func TestLoadWithoutGitDropsRepositoryTag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cluster.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_tags: {Name: demo, Repository: \"\"}\ncluster: {subnet_ids: [subnet-a]}\n"), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	assert.NotContains(t, m.DefaultTags, cluster.RepositoryTagKey)
}

func TestNormalizeRemoteURL(t *testing.T) {
	for in, want := range map[string]string{
		"git@github.com:acme/infra.git":         "https://github.com/acme/infra",
		"ssh://git@github.com/acme/infra.git":   "https://github.com/acme/infra",
		"https://github.com/acme/infra.git":     "https://github.com/acme/infra",
		"https://gitlab.example.com/team/infra": "https://gitlab.example.com/team/infra",
	} {
		assert.Equal(t, want, NormalizeRemoteURL(in), in)
	}
}
