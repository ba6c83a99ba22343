package awstest

import (
	"sort"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/iam"
	"github.com/aws/aws-sdk-go/service/iam/iamiface"
)

type role struct {
	arn      string
	trust    string
	tags     map[string]string
	attached map[string]bool
}

type IAM struct {
	iamiface.IAMAPI
	cloud *Cloud
	roles map[string]*role
}

func (f *IAM) noSuchRole(name string) error {
	return notFound(iam.ErrCodeNoSuchEntityException, "role %s not found", name)
}

// SetRoleTag changes a live tag, used to simulate objects owned by someone else.
func (f *IAM) SetRoleTag(name, key, value string) {
	f.cloud.mu.Lock()
	defer f.cloud.mu.Unlock()
	f.roles[name].tags[key] = value
}

func (f *IAM) CreateRoleWithContext(_ aws.Context, in *iam.CreateRoleInput, _ ...request.Option) (*iam.CreateRoleOutput, error) {
	name := aws.StringValue(in.RoleName)
	f.cloud.record("iam:CreateRole %s", name)
	f.cloud.mu.Lock()
	defer f.cloud.mu.Unlock()
	if _, ok := f.roles[name]; ok {
		return nil, awserr.New(iam.ErrCodeEntityAlreadyExistsException, "role exists", nil)
	}
	r := &role{
		arn:      "arn:aws:iam::" + AccountID + ":role/" + name,
		trust:    aws.StringValue(in.AssumeRolePolicyDocument),
		tags:     map[string]string{},
		attached: map[string]bool{},
	}
	for _, tag := range in.Tags {
		r.tags[aws.StringValue(tag.Key)] = aws.StringValue(tag.Value)
	}
	f.roles[name] = r
	return &iam.CreateRoleOutput{Role: &iam.Role{Arn: aws.String(r.arn), RoleName: aws.String(name)}}, nil
}

func (f *IAM) WaitUntilRoleExistsWithContext(aws.Context, *iam.GetRoleInput, ...request.WaiterOption) error {
	return nil
}

func (f *IAM) GetRoleWithContext(_ aws.Context, in *iam.GetRoleInput, _ ...request.Option) (*iam.GetRoleOutput, error) {
	name := aws.StringValue(in.RoleName)
	f.cloud.mu.Lock()
	defer f.cloud.mu.Unlock()
	r, ok := f.roles[name]
	if !ok {
		return nil, f.noSuchRole(name)
	}
	out := &iam.Role{Arn: aws.String(r.arn), RoleName: aws.String(name), AssumeRolePolicyDocument: aws.String(r.trust)}
	keys := make([]string, 0, len(r.tags))
	for k := range r.tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out.Tags = append(out.Tags, &iam.Tag{Key: aws.String(k), Value: aws.String(r.tags[k])})
	}
	return &iam.GetRoleOutput{Role: out}, nil
}

func (f *IAM) UpdateAssumeRolePolicyWithContext(_ aws.Context, in *iam.UpdateAssumeRolePolicyInput, _ ...request.Option) (*iam.UpdateAssumeRolePolicyOutput, error) {
	name := aws.StringValue(in.RoleName)
	f.cloud.record("iam:UpdateAssumeRolePolicy %s", name)
	f.cloud.mu.Lock()
	defer f.cloud.mu.Unlock()
	r, ok := f.roles[name]
	if !ok {
		return nil, f.noSuchRole(name)
	}
	r.trust = aws.StringValue(in.PolicyDocument)
	return &iam.UpdateAssumeRolePolicyOutput{}, nil
}

func (f *IAM) TagRoleWithContext(_ aws.Context, in *iam.TagRoleInput, _ ...request.Option) (*iam.TagRoleOutput, error) {
	name := aws.StringValue(in.RoleName)
	f.cloud.mu.Lock()
	defer f.cloud.mu.Unlock()
	r, ok := f.roles[name]
	if !ok {
		return nil, f.noSuchRole(name)
	}
	for _, tag := range in.Tags {
		r.tags[aws.StringValue(tag.Key)] = aws.StringValue(tag.Value)
	}
	return &iam.TagRoleOutput{}, nil
}

func (f *IAM) DeleteRoleWithContext(_ aws.Context, in *iam.DeleteRoleInput, _ ...request.Option) (*iam.DeleteRoleOutput, error) {
	name := aws.StringValue(in.RoleName)
	f.cloud.record("iam:DeleteRole %s", name)
	f.cloud.mu.Lock()
	defer f.cloud.mu.Unlock()
	r, ok := f.roles[name]
	if !ok {
		return nil, f.noSuchRole(name)
	}
	if len(r.attached) > 0 {
		return nil, awserr.New(iam.ErrCodeDeleteConflictException, "role has attached policies", nil)
	}
	delete(f.roles, name)
	return &iam.DeleteRoleOutput{}, nil
}

func (f *IAM) ListAttachedRolePoliciesPagesWithContext(_ aws.Context, in *iam.ListAttachedRolePoliciesInput, fn func(*iam.ListAttachedRolePoliciesOutput, bool) bool, _ ...request.Option) error {
	name := aws.StringValue(in.RoleName)
	f.cloud.mu.Lock()
	r, ok := f.roles[name]
	if !ok {
		f.cloud.mu.Unlock()
		return f.noSuchRole(name)
	}
	var arns []string
	for arn := range r.attached {
		arns = append(arns, arn)
	}
	f.cloud.mu.Unlock()

	sort.Strings(arns)
	out := &iam.ListAttachedRolePoliciesOutput{}
	for _, arn := range arns {
		out.AttachedPolicies = append(out.AttachedPolicies, &iam.AttachedPolicy{PolicyArn: aws.String(arn)})
	}
	fn(out, true)
	return nil
}

func (f *IAM) AttachRolePolicyWithContext(_ aws.Context, in *iam.AttachRolePolicyInput, _ ...request.Option) (*iam.AttachRolePolicyOutput, error) {
	name := aws.StringValue(in.RoleName)
	f.cloud.record("iam:AttachRolePolicy %s %s", name, aws.StringValue(in.PolicyArn))
	f.cloud.mu.Lock()
	defer f.cloud.mu.Unlock()
	r, ok := f.roles[name]
	if !ok {
		return nil, f.noSuchRole(name)
	}
	r.attached[aws.StringValue(in.PolicyArn)] = true
	return &iam.AttachRolePolicyOutput{}, nil
}

func (f *IAM) DetachRolePolicyWithContext(_ aws.Context, in *iam.DetachRolePolicyInput, _ ...request.Option) (*iam.DetachRolePolicyOutput, error) {
	name := aws.StringValue(in.RoleName)
	f.cloud.record("iam:DetachRolePolicy %s %s", name, aws.StringValue(in.PolicyArn))
	f.cloud.mu.Lock()
	defer f.cloud.mu.Unlock()
	r, ok := f.roles[name]
	if !ok || !r.attached[aws.StringValue(in.PolicyArn)] {
		return nil, notFound(iam.ErrCodeNoSuchEntityException, "policy not attached")
	}
	delete(r.attached, aws.StringValue(in.PolicyArn))
	return &iam.DetachRolePolicyOutput{}, nil
}
