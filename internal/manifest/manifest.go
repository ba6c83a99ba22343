// Package manifest loads cluster.yaml, the declared desired state of one EKS cluster.
package manifest

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"ekscd/internal/cluster"
)

const DefaultPath = "cluster.yaml"

type Manifest struct {
	Region      string            `yaml:"region"`
	DefaultTags cluster.NamedTags `yaml:"default_tags"`
	Cluster     ClusterSpec       `yaml:"cluster"`
	Logging     LoggingSpec       `yaml:"logging"`
	NodeGroup   NodeGroupSpec     `yaml:"node_group"`
	Addons      []AddonSpec       `yaml:"addons"`
	GitOps      GitOpsSpec        `yaml:"gitops"`
	State       StateSpec         `yaml:"state"`

	path string
}

type ClusterSpec struct {
	Version               string   `yaml:"version"`
	SubnetIDs             []string `yaml:"subnet_ids"`
	LogTypes              []string `yaml:"log_types"`
	EndpointPublicAccess  *bool    `yaml:"endpoint_public_access"`
	EndpointPrivateAccess *bool    `yaml:"endpoint_private_access"`
}

type LoggingSpec struct {
	RetentionDays *int `yaml:"retention_days"`
}

type NodeGroupSpec struct {
	DesiredSize   *int     `yaml:"desired_size"`
	MinSize       *int     `yaml:"min_size"`
	MaxSize       *int     `yaml:"max_size"`
	InstanceTypes []string `yaml:"instance_types"`
	CapacityType  string   `yaml:"capacity_type"`
	DiskSize      int      `yaml:"disk_size"`
	AmiType       string   `yaml:"ami_type"`
	// SubnetIDs default to the cluster subnets.
	SubnetIDs []string `yaml:"subnet_ids"`
}

type AddonSpec struct {
	Name                     string `yaml:"name"`
	Version                  string `yaml:"version"`
	ResolveConflictsOnCreate string `yaml:"resolve_conflicts_on_create"`
	ResolveConflictsOnUpdate string `yaml:"resolve_conflicts_on_update"`
}

type GitOpsSpec struct {
	Owner      string `yaml:"owner"`
	Repository string `yaml:"repository"`
	Branch     string `yaml:"branch"`
	Path       string `yaml:"path"`
	Personal   *bool  `yaml:"personal"`
	Private    *bool  `yaml:"private"`
	Namespace  string `yaml:"namespace"`
	// TeardownOrder lists the Kustomizations deleted first, in order. Others follow by name.
	TeardownOrder []string `yaml:"teardown_order"`
}

type StateBackend string

const (
	StateBackendSQLite   StateBackend = "sqlite"
	StateBackendDynamoDB StateBackend = "dynamodb"
)

type StateSpec struct {
	Backend StateBackend `yaml:"backend"`
	Path    string       `yaml:"path"`
	Table   string       `yaml:"table"`
}

// Path is the file the manifest was loaded from.
func (m *Manifest) Path() string {
	return m.path
}

// Dir is the directory relative paths of the manifest resolve against.
func (m *Manifest) Dir() string {
	if m.path == "" {
		return "."
	}
	return filepath.Dir(m.path)
}

func (m *Manifest) NamePrefix() (string, error) {
	return m.DefaultTags.NamePrefix()
}

func (n NodeGroupSpec) Scaling() (desired, min, max int) {
	return intValue(n.DesiredSize), intValue(n.MinSize), intValue(n.MaxSize)
}

func (l LoggingSpec) Retention() int {
	return intValue(l.RetentionDays)
}

func (c ClusterSpec) PublicAccess() bool {
	return boolValue(c.EndpointPublicAccess)
}

func (c ClusterSpec) PrivateAccess() bool {
	return boolValue(c.EndpointPrivateAccess)
}

func intValue(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func boolValue(p *bool) bool {
	return p != nil && *p
}

// Parse decodes a manifest strictly and applies defaults without validating it.
func Parse(data []byte) (*Manifest, error) {
	m := &Manifest{}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(m); err != nil {
		return nil, errors.Wrap(err, "decoding manifest")
	}
	m.ApplyDefaults()
	return m, nil
}

// Load reads, defaults and validates the manifest at path. An empty Repository tag is
// derived from the origin remote of the git repository holding the manifest.
func Load(path string) (*Manifest, error) {
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading manifest %s", path)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	m.path = path

	if m.DefaultTags.Repository() == "" {
		repository, err := OriginURL(m.Dir())
		if err != nil {
			log.Debug().Err(err).Msg("repository tag left empty")
			delete(m.DefaultTags, cluster.RepositoryTagKey)
		} else {
			m.DefaultTags[cluster.RepositoryTagKey] = repository
		}
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (g GitOpsSpec) IsPersonal() bool {
	return boolValue(g.Personal)
}

func (g GitOpsSpec) IsPrivate() bool {
	return boolValue(g.Private)
}
