package cluster

import (
	"context"
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/aws/aws-sdk-go/service/eks"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	awseks "ekscd/internal/aws/eks"
	"ekscd/internal/cluster"
)

const ResourceTypeCluster = "eks_cluster"

type clusterState struct {
	Version       string
	LogTypes      []string
	SubnetIDs     []string
	PublicAccess  bool
	PrivateAccess bool
}

func sortedCopy(values []string) []string {
	out := append([]string{}, values...)
	sort.Strings(out)
	return out
}

func stateOfCluster(spec awseks.ClusterSpec) clusterState {
	return clusterState{
		Version:       spec.Version,
		LogTypes:      sortedCopy(spec.LogTypes),
		SubnetIDs:     sortedCopy(spec.SubnetIDs),
		PublicAccess:  spec.PublicAccess,
		PrivateAccess: spec.PrivateAccess,
	}
}

type EksCluster struct {
	// Spec.RoleArn is taken from Role when the cluster is created.
	Spec awseks.ClusterSpec
	Role *Role

	deployed *awseks.Cluster
}

func (c *EksCluster) ResourceType() string {
	return ResourceTypeCluster
}

func (c *EksCluster) ResourceName() string {
	return c.Spec.Name
}

func (c *EksCluster) Tags() cluster.Tags {
	return cluster.GetResourceVersionTag(c.TargetVersion())
}

func (c *EksCluster) Fetch(ctx context.Context) error {
	deployed, err := awseks.GetCluster(ctx, c.Spec.Name)
	if err != nil {
		return err
	}
	c.deployed = deployed
	return nil
}

func (c *EksCluster) DeployedVersion() string {
	if c.deployed == nil {
		return ""
	}
	return cluster.SpecHash(stateOfCluster(c.deployed.ClusterSpec))
}

func (c *EksCluster) TargetVersion() string {
	return cluster.SpecHash(stateOfCluster(c.Spec))
}

func (c *EksCluster) LiveTags() cluster.Tags {
	if c.deployed == nil {
		return nil
	}
	return c.deployed.Tags
}

func (c *EksCluster) ResourceID() string {
	if c.deployed == nil {
		return ""
	}
	return c.deployed.Arn
}

// Deployed is the cluster as last fetched, nil when it does not exist.
func (c *EksCluster) Deployed() *awseks.Cluster {
	return c.deployed
}

func (c *EksCluster) Create(ctx context.Context, tags cluster.Tags) error {
	spec := c.Spec
	spec.RoleArn = c.Role.Arn()
	if spec.RoleArn == "" {
		return errors.Errorf("role %s has no arn yet", c.Role.Name)
	}
	deployed, err := awseks.CreateCluster(ctx, spec, tags)
	if err != nil {
		return err
	}
	c.deployed = deployed
	return nil
}

func checkVersionUpgrade(current, target string) error {
	from, err := semver.NewVersion(current)
	if err != nil {
		return errors.Wrapf(err, "deployed version %q", current)
	}
	to, err := semver.NewVersion(target)
	if err != nil {
		return errors.Wrapf(err, "target version %q", target)
	}
	if to.LessThan(from) {
		return errors.Errorf("cannot downgrade the control plane from %s to %s", current, target)
	}
	if to.Major() != from.Major() || to.Minor() > from.Minor()+1 {
		return errors.Errorf("the control plane upgrades one minor version at a time, %s cannot go to %s", current, target)
	}
	return nil
}

func (c *EksCluster) Update(ctx context.Context, tags cluster.Tags) error {
	current := stateOfCluster(c.deployed.ClusterSpec)
	target := stateOfCluster(c.Spec)

	if !equalStrings(current.SubnetIDs, target.SubnetIDs) {
		return errors.Errorf("subnets of cluster %s cannot change in place, it must be destroyed and created again", c.Spec.Name)
	}
	if c.deployed.Status != eks.ClusterStatusActive {
		return errors.Errorf("cluster %s is %s, retry once it is %s", c.Spec.Name, c.deployed.Status, eks.ClusterStatusActive)
	}

	if current.Version != target.Version {
		if err := checkVersionUpgrade(current.Version, target.Version); err != nil {
			return err
		}
		log.Info().Msgf("upgrading cluster %s from %s to %s", c.Spec.Name, current.Version, target.Version)
		if err := awseks.UpdateClusterVersion(ctx, c.Spec.Name, target.Version); err != nil {
			return err
		}
	}
	if !equalStrings(current.LogTypes, target.LogTypes) {
		if err := awseks.UpdateClusterLogging(ctx, c.Spec.Name, target.LogTypes); err != nil {
			return err
		}
	}
	if current.PublicAccess != target.PublicAccess || current.PrivateAccess != target.PrivateAccess {
		if err := awseks.UpdateClusterEndpointAccess(ctx, c.Spec.Name, target.PublicAccess, target.PrivateAccess); err != nil {
			return err
		}
	}
	if err := awseks.TagResource(ctx, c.deployed.Arn, tags); err != nil {
		return err
	}
	return c.Fetch(ctx)
}

func (c *EksCluster) Delete(ctx context.Context) error {
	return awseks.DeleteCluster(ctx, c.Spec.Name)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
