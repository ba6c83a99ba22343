package eks

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/eks"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"ekscd/internal/aws/common"
	"ekscd/internal/cluster"
	"ekscd/internal/connectors"
)

type AddonSpec struct {
	ClusterName              string
	Name                     string
	Version                  string
	ResolveConflictsOnCreate string
	ResolveConflictsOnUpdate string
}

type Addon struct {
	ClusterName string
	Name        string
	Version     string
	Arn         string
	Status      string
	Tags        cluster.Tags
}

func describeAddonInput(clusterName, name string) *eks.DescribeAddonInput {
	return &eks.DescribeAddonInput{
		ClusterName: aws.String(clusterName),
		AddonName:   aws.String(name),
	}
}

func CreateAddon(ctx context.Context, spec AddonSpec, tags cluster.Tags) (*Addon, error) {
	svc := connectors.GetAWSSession().EKS
	input := &eks.CreateAddonInput{
		ClusterName:      aws.String(spec.ClusterName),
		AddonName:        aws.String(spec.Name),
		ResolveConflicts: aws.String(spec.ResolveConflictsOnCreate),
		Tags:             tags.AsStringRefs(),
	}
	if spec.Version != "" {
		input.AddonVersion = aws.String(spec.Version)
	}
	_, err := svc.CreateAddonWithContext(ctx, input)
	if err != nil {
		return nil, err
	}

	log.Debug().Msgf("waiting for add-on %s to become active ...", spec.Name)
	err = svc.WaitUntilAddonActiveWithContext(ctx, describeAddonInput(spec.ClusterName, spec.Name))
	if err != nil {
		return nil, errors.Wrapf(err, "waiting for add-on %s", spec.Name)
	}
	return GetAddon(ctx, spec.ClusterName, spec.Name)
}

// GetAddon returns nil when the add-on, or its cluster, does not exist.
func GetAddon(ctx context.Context, clusterName, name string) (*Addon, error) {
	svc := connectors.GetAWSSession().EKS
	out, err := svc.DescribeAddonWithContext(ctx, describeAddonInput(clusterName, name))
	if err != nil {
		if common.IsErrorCode(err, eks.ErrCodeResourceNotFoundException) {
			return nil, nil
		}
		return nil, err
	}
	a := out.Addon
	return &Addon{
		ClusterName: clusterName,
		Name:        name,
		Version:     aws.StringValue(a.AddonVersion),
		Arn:         aws.StringValue(a.AddonArn),
		Status:      aws.StringValue(a.Status),
		Tags:        cluster.FromStringRefs(a.Tags),
	}, nil
}

func UpdateAddon(ctx context.Context, spec AddonSpec) error {
	svc := connectors.GetAWSSession().EKS
	input := &eks.UpdateAddonInput{
		ClusterName:      aws.String(spec.ClusterName),
		AddonName:        aws.String(spec.Name),
		ResolveConflicts: aws.String(spec.ResolveConflictsOnUpdate),
	}
	if spec.Version != "" {
		input.AddonVersion = aws.String(spec.Version)
	}
	out, err := svc.UpdateAddonWithContext(ctx, input)
	if err != nil {
		return err
	}
	return WaitForUpdate(ctx, spec.ClusterName, "", spec.Name, out.Update)
}

func DeleteAddon(ctx context.Context, clusterName, name string) error {
	svc := connectors.GetAWSSession().EKS
	_, err := svc.DeleteAddonWithContext(ctx, &eks.DeleteAddonInput{
		ClusterName: aws.String(clusterName),
		AddonName:   aws.String(name),
	})
	if err != nil {
		if common.IsErrorCode(err, eks.ErrCodeResourceNotFoundException) {
			return nil
		}
		return err
	}
	log.Debug().Msgf("waiting for add-on %s to be deleted ...", name)
	return svc.WaitUntilAddonDeletedWithContext(ctx, describeAddonInput(clusterName, name))
}
