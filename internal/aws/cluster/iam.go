package cluster

import (
	"context"

	"ekscd/internal/aws/iam"
	"ekscd/internal/cluster"
	libstrings "ekscd/internal/lib/strings"
)

const (
	ResourceTypeRole             = "iam_role"
	ResourceTypePolicyAttachment = "iam_role_policy_attachment"

	attachmentVersion = "v1"
	// reported for roles that exist without our version tag
	untaggedVersion = "untagged"
)

type Role struct {
	Name             string
	AssumeRolePolicy iam.AssumeRolePolicyDocument

	deployed *iam.Role
}

func (r *Role) ResourceType() string {
	return ResourceTypeRole
}

func (r *Role) ResourceName() string {
	return r.Name
}

func (r *Role) Tags() cluster.Tags {
	return cluster.GetResourceVersionTag(r.TargetVersion())
}

func (r *Role) Fetch(ctx context.Context) error {
	deployed, err := iam.GetRole(ctx, r.Name)
	if err != nil {
		return err
	}
	r.deployed = deployed
	return nil
}

func (r *Role) DeployedVersion() string {
	if r.deployed == nil {
		return ""
	}
	if version := r.deployed.Tags[cluster.VersionTagKey]; version != "" {
		return version
	}
	return untaggedVersion
}

func (r *Role) TargetVersion() string {
	return r.AssumeRolePolicy.VersionHash()
}

func (r *Role) LiveTags() cluster.Tags {
	if r.deployed == nil {
		return nil
	}
	return r.deployed.Tags
}

func (r *Role) ResourceID() string {
	return r.Arn()
}

// Arn is known once the role was fetched or created.
func (r *Role) Arn() string {
	if r.deployed == nil {
		return ""
	}
	return r.deployed.Arn
}

func (r *Role) Create(ctx context.Context, tags cluster.Tags) error {
	deployed, err := iam.CreateRole(ctx, r.Name, r.AssumeRolePolicy, tags)
	if err != nil {
		return err
	}
	r.deployed = deployed
	return nil
}

func (r *Role) Update(ctx context.Context, tags cluster.Tags) error {
	if err := iam.UpdateAssumeRolePolicy(ctx, r.Name, r.AssumeRolePolicy, tags); err != nil {
		return err
	}
	return r.Fetch(ctx)
}

func (r *Role) Delete(ctx context.Context) error {
	return iam.DeleteRole(ctx, r.Name)
}

// RolePolicyAttachment attaches one AWS managed policy to a role. Attachments carry no tags.
type RolePolicyAttachment struct {
	Role      *Role
	PolicyArn string

	attached bool
}

func (a *RolePolicyAttachment) ResourceType() string {
	return ResourceTypePolicyAttachment
}

func (a *RolePolicyAttachment) ResourceName() string {
	return a.Role.Name + "/" + iam.PolicyName(a.PolicyArn)
}

func (a *RolePolicyAttachment) Tags() cluster.Tags {
	return cluster.Tags{}
}

func (a *RolePolicyAttachment) Fetch(ctx context.Context) error {
	attached, err := iam.ListAttachedPolicies(ctx, a.Role.Name)
	if err != nil {
		return err
	}
	a.attached = libstrings.AnyOf(a.PolicyArn, attached...)
	return nil
}

func (a *RolePolicyAttachment) DeployedVersion() string {
	if !a.attached {
		return ""
	}
	return attachmentVersion
}

func (a *RolePolicyAttachment) TargetVersion() string {
	return attachmentVersion
}

// LiveTags are the tags of the role, an attachment is owned by whoever owns its role.
func (a *RolePolicyAttachment) LiveTags() cluster.Tags {
	if !a.attached {
		return nil
	}
	return a.Role.LiveTags()
}

func (a *RolePolicyAttachment) ResourceID() string {
	return a.PolicyArn
}

func (a *RolePolicyAttachment) Create(ctx context.Context, tags cluster.Tags) error {
	if err := iam.AttachRolePolicy(ctx, a.Role.Name, a.PolicyArn); err != nil {
		return err
	}
	a.attached = true
	return nil
}

func (a *RolePolicyAttachment) Update(ctx context.Context, tags cluster.Tags) error {
	return a.Create(ctx, tags)
}

func (a *RolePolicyAttachment) Delete(ctx context.Context) error {
	if err := iam.DetachRolePolicy(ctx, a.Role.Name, a.PolicyArn); err != nil {
		return err
	}
	a.attached = false
	return nil
}
