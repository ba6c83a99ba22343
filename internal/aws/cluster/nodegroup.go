package cluster

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	awseks "ekscd/internal/aws/eks"
	"ekscd/internal/cluster"
)

const ResourceTypeNodeGroup = "eks_node_group"

type scalingState struct {
	DesiredSize int64
	MinSize     int64
	MaxSize     int64
}

type nodeGroupState struct {
	Scaling       scalingState
	InstanceTypes []string
	CapacityType  string
	DiskSize      int64
	AmiType       string
	SubnetIDs     []string
}

func stateOfNodeGroup(spec awseks.NodegroupSpec) nodeGroupState {
	return nodeGroupState{
		Scaling: scalingState{
			DesiredSize: spec.DesiredSize,
			MinSize:     spec.MinSize,
			MaxSize:     spec.MaxSize,
		},
		InstanceTypes: sortedCopy(spec.InstanceTypes),
		CapacityType:  spec.CapacityType,
		DiskSize:      spec.DiskSize,
		AmiType:       spec.AmiType,
		SubnetIDs:     sortedCopy(spec.SubnetIDs),
	}
}

// NodeGroup is a fixed size managed worker pool. Spec.ClusterName and Spec.NodeRoleArn
// are taken from Cluster and Role.
type NodeGroup struct {
	Spec    awseks.NodegroupSpec
	Cluster *EksCluster
	Role    *Role

	deployed *awseks.Nodegroup
}

func (n *NodeGroup) ResourceType() string {
	return ResourceTypeNodeGroup
}

func (n *NodeGroup) ResourceName() string {
	return n.Spec.Name
}

func (n *NodeGroup) Tags() cluster.Tags {
	return cluster.GetResourceVersionTag(n.TargetVersion())
}

func (n *NodeGroup) Fetch(ctx context.Context) error {
	deployed, err := awseks.GetNodegroup(ctx, n.Cluster.Spec.Name, n.Spec.Name)
	if err != nil {
		return err
	}
	n.deployed = deployed
	return nil
}

func (n *NodeGroup) DeployedVersion() string {
	if n.deployed == nil {
		return ""
	}
	return cluster.SpecHash(stateOfNodeGroup(n.deployed.NodegroupSpec))
}

func (n *NodeGroup) TargetVersion() string {
	return cluster.SpecHash(stateOfNodeGroup(n.Spec))
}

func (n *NodeGroup) LiveTags() cluster.Tags {
	if n.deployed == nil {
		return nil
	}
	return n.deployed.Tags
}

func (n *NodeGroup) ResourceID() string {
	if n.deployed == nil {
		return ""
	}
	return n.deployed.Arn
}

func (n *NodeGroup) Create(ctx context.Context, tags cluster.Tags) error {
	spec := n.Spec
	spec.ClusterName = n.Cluster.Spec.Name
	spec.NodeRoleArn = n.Role.Arn()
	if spec.NodeRoleArn == "" {
		return errors.Errorf("role %s has no arn yet", n.Role.Name)
	}
	deployed, err := awseks.CreateNodegroup(ctx, spec, tags)
	if err != nil {
		return err
	}
	n.deployed = deployed
	return nil
}

// Update resizes in place when only the scaling bounds drifted and recreates the node group otherwise.
func (n *NodeGroup) Update(ctx context.Context, tags cluster.Tags) error {
	current := stateOfNodeGroup(n.deployed.NodegroupSpec)
	target := stateOfNodeGroup(n.Spec)

	withTargetScaling := current
	withTargetScaling.Scaling = target.Scaling
	if cluster.SpecHash(withTargetScaling) != cluster.SpecHash(target) {
		log.Info().Msgf("node group %s changed beyond its scaling bounds, recreating it", n.Spec.Name)
		return cluster.UpdateByRecreate(ctx, n, tags)
	}

	s := target.Scaling
	if err := awseks.UpdateNodegroupScaling(ctx, n.Cluster.Spec.Name, n.Spec.Name, s.DesiredSize, s.MinSize, s.MaxSize); err != nil {
		return err
	}
	if err := awseks.TagResource(ctx, n.deployed.Arn, tags); err != nil {
		return err
	}
	return n.Fetch(ctx)
}

func (n *NodeGroup) Delete(ctx context.Context) error {
	return awseks.DeleteNodegroup(ctx, n.Cluster.Spec.Name, n.Spec.Name)
}
