package manifest

import "ekscd/internal/cluster"

const (
	DefaultKubernetesVersion = "1.29"
	DefaultRetentionDays     = 7
	DefaultNodeCount         = 5
	DefaultInstanceType      = "t3.medium"
	DefaultDiskSize          = 20
	DefaultAmiType           = "AL2_x86_64"
	DefaultFluxNamespace     = "flux-system"
	DefaultStateTable        = "ekscd-state"

	CapacityOnDemand = "ON_DEMAND"
	CapacitySpot     = "SPOT"

	ResolveOverwrite = "OVERWRITE"
	ResolveNone      = "NONE"
	ResolvePreserve  = "PRESERVE"

	MetricsServerAddon = "metrics-server"
)

// LogTypes are the control plane log categories EKS can forward.
var LogTypes = []string{"api", "audit", "authenticator", "controllerManager", "scheduler"}

func intPtr(v int) *int {
	return &v
}

func boolPtr(v bool) *bool {
	return &v
}

func (m *Manifest) ApplyDefaults() {
	if m.DefaultTags == nil {
		m.DefaultTags = cluster.NamedTags{}
	}

	c := &m.Cluster
	if c.Version == "" {
		c.Version = DefaultKubernetesVersion
	}
	if c.LogTypes == nil {
		c.LogTypes = append([]string(nil), LogTypes...)
	}
	if c.EndpointPublicAccess == nil {
		c.EndpointPublicAccess = boolPtr(true)
	}
	if c.EndpointPrivateAccess == nil {
		c.EndpointPrivateAccess = boolPtr(false)
	}

	if m.Logging.RetentionDays == nil {
		m.Logging.RetentionDays = intPtr(DefaultRetentionDays)
	}

	n := &m.NodeGroup
	if n.DesiredSize == nil && n.MinSize == nil && n.MaxSize == nil {
		n.DesiredSize = intPtr(DefaultNodeCount)
		n.MinSize = intPtr(DefaultNodeCount)
		n.MaxSize = intPtr(DefaultNodeCount)
	}
	if n.DesiredSize == nil {
		n.DesiredSize = intPtr(intValue(n.MinSize))
	}
	if n.MinSize == nil {
		n.MinSize = intPtr(intValue(n.DesiredSize))
	}
	if n.MaxSize == nil {
		n.MaxSize = intPtr(intValue(n.DesiredSize))
	}
	if len(n.InstanceTypes) == 0 {
		n.InstanceTypes = []string{DefaultInstanceType}
	}
	if n.CapacityType == "" {
		n.CapacityType = CapacityOnDemand
	}
	if n.DiskSize == 0 {
		n.DiskSize = DefaultDiskSize
	}
	if n.AmiType == "" {
		n.AmiType = DefaultAmiType
	}
	if len(n.SubnetIDs) == 0 {
		n.SubnetIDs = append([]string(nil), c.SubnetIDs...)
	}

	if m.Addons == nil {
		m.Addons = []AddonSpec{{Name: MetricsServerAddon}}
	}
	for i := range m.Addons {
		if m.Addons[i].ResolveConflictsOnCreate == "" {
			m.Addons[i].ResolveConflictsOnCreate = ResolveOverwrite
		}
		if m.Addons[i].ResolveConflictsOnUpdate == "" {
			m.Addons[i].ResolveConflictsOnUpdate = ResolveOverwrite
		}
	}

	g := &m.GitOps
	if g.Branch == "" {
		g.Branch = "main"
	}
	if g.Path == "" && m.DefaultTags[cluster.NameTagKey] != "" {
		g.Path = "./clusters/" + m.DefaultTags[cluster.NameTagKey]
	}
	if g.Namespace == "" {
		g.Namespace = DefaultFluxNamespace
	}
	if g.Personal == nil {
		g.Personal = boolPtr(true)
	}
	if g.Private == nil {
		g.Private = boolPtr(true)
	}
	if g.TeardownOrder == nil {
		g.TeardownOrder = []string{"apps", "infrastructure"}
	}

	if m.State.Backend == "" {
		m.State.Backend = StateBackendSQLite
	}
	if m.State.Backend == StateBackendDynamoDB && m.State.Table == "" {
		m.State.Table = DefaultStateTable
	}
}
