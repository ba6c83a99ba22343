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
	libstrings "ekscd/internal/lib/strings"
)

type NodegroupSpec struct {
	ClusterName   string
	Name          string
	NodeRoleArn   string
	SubnetIDs     []string
	InstanceTypes []string
	DesiredSize   int64
	MinSize       int64
	MaxSize       int64
	CapacityType  string
	DiskSize      int64
	AmiType       string
}

type Nodegroup struct {
	NodegroupSpec
	Arn    string
	Status string
	Tags   cluster.Tags
}

func CreateNodegroup(ctx context.Context, spec NodegroupSpec, tags cluster.Tags) (*Nodegroup, error) {
	svc := connectors.GetAWSSession().EKS
	_, err := svc.CreateNodegroupWithContext(ctx, &eks.CreateNodegroupInput{
		ClusterName:   aws.String(spec.ClusterName),
		NodegroupName: aws.String(spec.Name),
		NodeRole:      aws.String(spec.NodeRoleArn),
		Subnets:       libstrings.ListToRefList(spec.SubnetIDs),
		InstanceTypes: libstrings.ListToRefList(spec.InstanceTypes),
		ScalingConfig: &eks.NodegroupScalingConfig{
			DesiredSize: aws.Int64(spec.DesiredSize),
			MinSize:     aws.Int64(spec.MinSize),
			MaxSize:     aws.Int64(spec.MaxSize),
		},
		CapacityType: aws.String(spec.CapacityType),
		DiskSize:     aws.Int64(spec.DiskSize),
		AmiType:      aws.String(spec.AmiType),
		Tags:         tags.AsStringRefs(),
	})
	if err != nil {
		return nil, err
	}

	log.Debug().Msgf("waiting for node group %s to become active ...", spec.Name)
	err = svc.WaitUntilNodegroupActiveWithContext(ctx, describeNodegroupInput(spec.ClusterName, spec.Name))
	if err != nil {
		return nil, errors.Wrapf(err, "waiting for node group %s", spec.Name)
	}
	return GetNodegroup(ctx, spec.ClusterName, spec.Name)
}

func describeNodegroupInput(clusterName, name string) *eks.DescribeNodegroupInput {
	return &eks.DescribeNodegroupInput{
		ClusterName:   aws.String(clusterName),
		NodegroupName: aws.String(name),
	}
}

// GetNodegroup returns nil when the node group, or its cluster, does not exist.
func GetNodegroup(ctx context.Context, clusterName, name string) (*Nodegroup, error) {
	svc := connectors.GetAWSSession().EKS
	out, err := svc.DescribeNodegroupWithContext(ctx, describeNodegroupInput(clusterName, name))
	if err != nil {
		if common.IsErrorCode(err, eks.ErrCodeResourceNotFoundException) {
			return nil, nil
		}
		return nil, err
	}
	n := out.Nodegroup
	result := &Nodegroup{
		NodegroupSpec: NodegroupSpec{
			ClusterName:   clusterName,
			Name:          name,
			NodeRoleArn:   aws.StringValue(n.NodeRole),
			SubnetIDs:     sorted(aws.StringValueSlice(n.Subnets)),
			InstanceTypes: aws.StringValueSlice(n.InstanceTypes),
			CapacityType:  aws.StringValue(n.CapacityType),
			DiskSize:      aws.Int64Value(n.DiskSize),
			AmiType:       aws.StringValue(n.AmiType),
		},
		Arn:    aws.StringValue(n.NodegroupArn),
		Status: aws.StringValue(n.Status),
		Tags:   cluster.FromStringRefs(n.Tags),
	}
	if scaling := n.ScalingConfig; scaling != nil {
		result.DesiredSize = aws.Int64Value(scaling.DesiredSize)
		result.MinSize = aws.Int64Value(scaling.MinSize)
		result.MaxSize = aws.Int64Value(scaling.MaxSize)
	}
	return result, nil
}

func UpdateNodegroupScaling(ctx context.Context, clusterName, name string, desired, min, max int64) error {
	svc := connectors.GetAWSSession().EKS
	out, err := svc.UpdateNodegroupConfigWithContext(ctx, &eks.UpdateNodegroupConfigInput{
		ClusterName:   aws.String(clusterName),
		NodegroupName: aws.String(name),
		ScalingConfig: &eks.NodegroupScalingConfig{
			DesiredSize: aws.Int64(desired),
			MinSize:     aws.Int64(min),
			MaxSize:     aws.Int64(max),
		},
	})
	if err != nil {
		return err
	}
	return WaitForUpdate(ctx, clusterName, name, "", out.Update)
}

func DeleteNodegroup(ctx context.Context, clusterName, name string) error {
	svc := connectors.GetAWSSession().EKS
	_, err := svc.DeleteNodegroupWithContext(ctx, &eks.DeleteNodegroupInput{
		ClusterName:   aws.String(clusterName),
		NodegroupName: aws.String(name),
	})
	if err != nil {
		if common.IsErrorCode(err, eks.ErrCodeResourceNotFoundException) {
			return nil
		}
		return err
	}
	log.Debug().Msgf("waiting for node group %s to be deleted ...", name)
	return svc.WaitUntilNodegroupDeletedWithContext(ctx, describeNodegroupInput(clusterName, name))
}
