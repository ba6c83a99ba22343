package iam

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/iam"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"ekscd/internal/aws/common"
	"ekscd/internal/cluster"
	"ekscd/internal/connectors"
)

type Role struct {
	Arn  string
	Name string
	Tags cluster.Tags
}

func CreateRole(ctx context.Context, roleName string, assumeRolePolicy AssumeRolePolicyDocument, tags cluster.Tags) (*Role, error) {
	log.Debug().Msgf("creating role %s", roleName)
	svc := connectors.GetAWSSession().IAM
	result, err := svc.CreateRoleWithContext(ctx, &iam.CreateRoleInput{
		AssumeRolePolicyDocument: aws.String(assumeRolePolicy.String()),
		Path:                     aws.String("/"),
		//max roleName length must be 64 characters
		RoleName: aws.String(roleName),
		Tags:     tags.AsIam(),
	})
	if err != nil {
		return nil, err
	}

	err = svc.WaitUntilRoleExistsWithContext(ctx, &iam.GetRoleInput{RoleName: aws.String(roleName)})
	if err != nil {
		return nil, err
	}
	log.Debug().Msgf("role %s was created successfully!", roleName)
	return &Role{
		Arn:  aws.StringValue(result.Role.Arn),
		Name: roleName,
		Tags: tags.Clone(),
	}, nil
}

// GetRole returns nil when the role does not exist.
func GetRole(ctx context.Context, roleName string) (*Role, error) {
	svc := connectors.GetAWSSession().IAM
	out, err := svc.GetRoleWithContext(ctx, &iam.GetRoleInput{RoleName: aws.String(roleName)})
	if err != nil {
		if common.IsErrorCode(err, iam.ErrCodeNoSuchEntityException) {
			return nil, nil
		}
		return nil, err
	}
	return &Role{
		Arn:  aws.StringValue(out.Role.Arn),
		Name: roleName,
		Tags: cluster.FromIam(out.Role.Tags),
	}, nil
}

func UpdateAssumeRolePolicy(ctx context.Context, roleName string, assumeRolePolicy AssumeRolePolicyDocument, tags cluster.Tags) error {
	svc := connectors.GetAWSSession().IAM
	_, err := svc.UpdateAssumeRolePolicyWithContext(ctx, &iam.UpdateAssumeRolePolicyInput{
		RoleName:       aws.String(roleName),
		PolicyDocument: aws.String(assumeRolePolicy.String()),
	})
	if err != nil {
		return err
	}
	_, err = svc.TagRoleWithContext(ctx, &iam.TagRoleInput{
		RoleName: aws.String(roleName),
		Tags:     tags.AsIam(),
	})
	return err
}

// DeleteRole detaches every managed policy first, IAM refuses to delete a role with attachments.
func DeleteRole(ctx context.Context, roleName string) error {
	svc := connectors.GetAWSSession().IAM
	attached, err := ListAttachedPolicies(ctx, roleName)
	if err != nil {
		return err
	}
	for _, policyArn := range attached {
		if err := DetachRolePolicy(ctx, roleName, policyArn); err != nil {
			return err
		}
	}

	_, err = svc.DeleteRoleWithContext(ctx, &iam.DeleteRoleInput{RoleName: aws.String(roleName)})
	if err != nil {
		if common.IsErrorCode(err, iam.ErrCodeNoSuchEntityException) {
			return nil
		}
		return errors.Wrapf(err, "deleting role %s", roleName)
	}
	log.Debug().Msgf("role %s was deleted successfully", roleName)
	return nil
}
