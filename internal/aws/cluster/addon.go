package cluster

import (
	"context"

	awseks "ekscd/internal/aws/eks"
	"ekscd/internal/cluster"
)

const ResourceTypeAddon = "eks_addon"

type addonState struct {
	Name    string
	Version string `json:",omitempty"`
}

// Addon is a managed add-on. Without a pinned Spec.Version the version EKS picked is not drift.
type Addon struct {
	Spec    awseks.AddonSpec
	Cluster *EksCluster

	deployed *awseks.Addon
}

func (a *Addon) ResourceType() string {
	return ResourceTypeAddon
}

func (a *Addon) ResourceName() string {
	return a.Spec.Name
}

func (a *Addon) Tags() cluster.Tags {
	return cluster.GetResourceVersionTag(a.TargetVersion())
}

func (a *Addon) spec() awseks.AddonSpec {
	spec := a.Spec
	spec.ClusterName = a.Cluster.Spec.Name
	return spec
}

func (a *Addon) Fetch(ctx context.Context) error {
	deployed, err := awseks.GetAddon(ctx, a.Cluster.Spec.Name, a.Spec.Name)
	if err != nil {
		return err
	}
	a.deployed = deployed
	return nil
}

func (a *Addon) DeployedVersion() string {
	if a.deployed == nil {
		return ""
	}
	state := addonState{Name: a.deployed.Name}
	if a.Spec.Version != "" {
		state.Version = a.deployed.Version
	}
	return cluster.SpecHash(state)
}

func (a *Addon) TargetVersion() string {
	return cluster.SpecHash(addonState{Name: a.Spec.Name, Version: a.Spec.Version})
}

func (a *Addon) LiveTags() cluster.Tags {
	if a.deployed == nil {
		return nil
	}
	return a.deployed.Tags
}

func (a *Addon) ResourceID() string {
	if a.deployed == nil {
		return ""
	}
	return a.deployed.Arn
}

func (a *Addon) Create(ctx context.Context, tags cluster.Tags) error {
	deployed, err := awseks.CreateAddon(ctx, a.spec(), tags)
	if err != nil {
		return err
	}
	a.deployed = deployed
	return nil
}

func (a *Addon) Update(ctx context.Context, tags cluster.Tags) error {
	if err := awseks.UpdateAddon(ctx, a.spec()); err != nil {
		return err
	}
	if err := awseks.TagResource(ctx, a.deployed.Arn, tags); err != nil {
		return err
	}
	return a.Fetch(ctx)
}

func (a *Addon) Delete(ctx context.Context) error {
	return awseks.DeleteAddon(ctx, a.Cluster.Spec.Name, a.Spec.Name)
}
