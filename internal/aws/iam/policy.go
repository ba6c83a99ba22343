package iam

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/iam"
	"github.com/rs/zerolog/log"

	"ekscd/internal/aws/common"
	"ekscd/internal/connectors"
)

// ListAttachedPolicies returns the managed policy arns attached to the role, nothing when the role is missing.
func ListAttachedPolicies(ctx context.Context, roleName string) ([]string, error) {
	svc := connectors.GetAWSSession().IAM
	var arns []string
	err := svc.ListAttachedRolePoliciesPagesWithContext(ctx, &iam.ListAttachedRolePoliciesInput{
		RoleName: aws.String(roleName),
	}, func(page *iam.ListAttachedRolePoliciesOutput, lastPage bool) bool {
		for _, policy := range page.AttachedPolicies {
			arns = append(arns, aws.StringValue(policy.PolicyArn))
		}
		return true
	})
	if err != nil {
		if common.IsErrorCode(err, iam.ErrCodeNoSuchEntityException) {
			return nil, nil
		}
		return nil, err
	}
	return arns, nil
}

func AttachRolePolicy(ctx context.Context, roleName, policyArn string) error {
	svc := connectors.GetAWSSession().IAM
	_, err := svc.AttachRolePolicyWithContext(ctx, &iam.AttachRolePolicyInput{
		RoleName:  aws.String(roleName),
		PolicyArn: aws.String(policyArn),
	})
	if err != nil {
		return err
	}
	log.Debug().Msgf("policy %s attached to %s", PolicyName(policyArn), roleName)
	return nil
}

func DetachRolePolicy(ctx context.Context, roleName, policyArn string) error {
	svc := connectors.GetAWSSession().IAM
	_, err := svc.DetachRolePolicyWithContext(ctx, &iam.DetachRolePolicyInput{
		RoleName:  aws.String(roleName),
		PolicyArn: aws.String(policyArn),
	})
	if err != nil {
		if common.IsErrorCode(err, iam.ErrCodeNoSuchEntityException) {
			return nil
		}
		return err
	}
	log.Debug().Msgf("policy %s detached from %s", PolicyName(policyArn), roleName)
	return nil
}
