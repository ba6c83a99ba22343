package cluster

import (
	"ekscd/internal/aws/common"
	awseks "ekscd/internal/aws/eks"
	"ekscd/internal/aws/iam"
	"ekscd/internal/cluster"
	"ekscd/internal/manifest"
)

// Stack is every provisioned object of one cluster, wired into a dependency graph.
type Stack struct {
	Names              common.ResourceNames
	Settings           cluster.Settings
	LogGroup           *LogGroup
	ClusterRole        *Role
	NodeRole           *Role
	ClusterAttachments []*RolePolicyAttachment
	NodeAttachments    []*RolePolicyAttachment
	Cluster            *EksCluster
	NodeGroup          *NodeGroup
	Addons             []*Addon
	Graph              *cluster.Graph
}

func attachments(role *Role, policies []string) []*RolePolicyAttachment {
	var out []*RolePolicyAttachment
	for _, arn := range policies {
		out = append(out, &RolePolicyAttachment{Role: role, PolicyArn: arn})
	}
	return out
}

func NewStack(m *manifest.Manifest) (*Stack, error) {
	names, err := common.Names(m.DefaultTags)
	if err != nil {
		return nil, err
	}

	s := &Stack{
		Names: names,
		Settings: cluster.Settings{
			ClusterName: cluster.ClusterName(names.Cluster),
			DefaultTags: m.DefaultTags,
			OwnedBy:     cluster.OwnerProvisioner,
		},
		LogGroup: &LogGroup{
			Name:          names.LogGroup,
			RetentionDays: m.Logging.Retention(),
		},
		ClusterRole: &Role{
			Name:             names.ClusterRole,
			AssumeRolePolicy: iam.ServiceAssumeRolePolicy(iam.EKSServicePrincipal),
		},
		NodeRole: &Role{
			Name:             names.NodeRole,
			AssumeRolePolicy: iam.ServiceAssumeRolePolicy(iam.EC2ServicePrincipal),
		},
	}
	s.ClusterAttachments = attachments(s.ClusterRole, iam.ClusterPolicies)
	s.NodeAttachments = attachments(s.NodeRole, iam.NodePolicies)

	s.Cluster = &EksCluster{
		Spec: awseks.ClusterSpec{
			Name:          names.Cluster,
			Version:       m.Cluster.Version,
			SubnetIDs:     m.Cluster.SubnetIDs,
			LogTypes:      m.Cluster.LogTypes,
			PublicAccess:  m.Cluster.PublicAccess(),
			PrivateAccess: m.Cluster.PrivateAccess(),
		},
		Role: s.ClusterRole,
	}

	desired, min, max := m.NodeGroup.Scaling()
	s.NodeGroup = &NodeGroup{
		Spec: awseks.NodegroupSpec{
			Name:          names.NodeGroup,
			SubnetIDs:     m.NodeGroup.SubnetIDs,
			InstanceTypes: m.NodeGroup.InstanceTypes,
			DesiredSize:   int64(desired),
			MinSize:       int64(min),
			MaxSize:       int64(max),
			CapacityType:  m.NodeGroup.CapacityType,
			DiskSize:      int64(m.NodeGroup.DiskSize),
			AmiType:       m.NodeGroup.AmiType,
		},
		Cluster: s.Cluster,
		Role:    s.NodeRole,
	}

	for _, addon := range m.Addons {
		s.Addons = append(s.Addons, &Addon{
			Spec: awseks.AddonSpec{
				Name:                     addon.Name,
				Version:                  addon.Version,
				ResolveConflictsOnCreate: addon.ResolveConflictsOnCreate,
				ResolveConflictsOnUpdate: addon.ResolveConflictsOnUpdate,
			},
			Cluster: s.Cluster,
		})
	}

	if err := s.buildGraph(); err != nil {
		return nil, err
	}
	return s, nil
}

type edge struct {
	from cluster.Resource
	to   cluster.Resource
	kind cluster.EdgeKind
}

func (s *Stack) buildGraph() error {
	g := cluster.NewGraph()
	if err := g.Add(s.LogGroup, s.ClusterRole, s.NodeRole); err != nil {
		return err
	}
	var edges []edge
	for _, a := range s.ClusterAttachments {
		if err := g.Add(a); err != nil {
			return err
		}
		edges = append(edges,
			edge{a, s.ClusterRole, cluster.EdgeReference},
			edge{s.Cluster, a, cluster.EdgeDependsOn},
		)
	}
	for _, a := range s.NodeAttachments {
		if err := g.Add(a); err != nil {
			return err
		}
		edges = append(edges,
			edge{a, s.NodeRole, cluster.EdgeReference},
			edge{s.NodeGroup, a, cluster.EdgeDependsOn},
		)
	}
	if err := g.Add(s.Cluster, s.NodeGroup); err != nil {
		return err
	}
	edges = append(edges,
		edge{s.Cluster, s.ClusterRole, cluster.EdgeReference},
		edge{s.Cluster, s.LogGroup, cluster.EdgeDependsOn},
		edge{s.NodeGroup, s.Cluster, cluster.EdgeReference},
		edge{s.NodeGroup, s.NodeRole, cluster.EdgeReference},
	)
	for _, addon := range s.Addons {
		if err := g.Add(addon); err != nil {
			return err
		}
		edges = append(edges,
			edge{addon, s.Cluster, cluster.EdgeReference},
			edge{addon, s.NodeGroup, cluster.EdgeDependsOn},
		)
	}

	for _, e := range edges {
		if err := g.Connect(e.from, e.to, e.kind); err != nil {
			return err
		}
	}
	s.Graph = g
	return nil
}
