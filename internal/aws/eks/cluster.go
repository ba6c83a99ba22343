package eks

import (
	"context"
	"sort"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/eks"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"ekscd/internal/aws/common"
	"ekscd/internal/cluster"
	"ekscd/internal/connectors"
	libstrings "ekscd/internal/lib/strings"
)

type ClusterSpec struct {
	Name          string
	RoleArn       string
	Version       string
	SubnetIDs     []string
	LogTypes      []string
	PublicAccess  bool
	PrivateAccess bool
}

type Cluster struct {
	ClusterSpec
	Arn                  string
	Status               string
	Endpoint             string
	CertificateAuthority string
	Tags                 cluster.Tags
}

func sorted(values []string) []string {
	out := append([]string{}, values...)
	sort.Strings(out)
	return out
}

func CreateCluster(ctx context.Context, spec ClusterSpec, tags cluster.Tags) (*Cluster, error) {
	svc := connectors.GetAWSSession().EKS
	_, err := svc.CreateClusterWithContext(ctx, &eks.CreateClusterInput{
		Name:    aws.String(spec.Name),
		RoleArn: aws.String(spec.RoleArn),
		Version: aws.String(spec.Version),
		ResourcesVpcConfig: &eks.VpcConfigRequest{
			SubnetIds:             libstrings.ListToRefList(spec.SubnetIDs),
			EndpointPublicAccess:  aws.Bool(spec.PublicAccess),
			EndpointPrivateAccess: aws.Bool(spec.PrivateAccess),
		},
		Logging: clusterLogging(spec.LogTypes),
		Tags:    tags.AsStringRefs(),
	})
	if err != nil {
		return nil, err
	}

	log.Debug().Msgf("waiting for cluster %s to become active ...", spec.Name)
	err = svc.WaitUntilClusterActiveWithContext(ctx, &eks.DescribeClusterInput{Name: aws.String(spec.Name)})
	if err != nil {
		return nil, errors.Wrapf(err, "waiting for cluster %s", spec.Name)
	}
	return GetCluster(ctx, spec.Name)
}

// GetCluster returns nil when the cluster does not exist.
func GetCluster(ctx context.Context, name string) (*Cluster, error) {
	svc := connectors.GetAWSSession().EKS
	out, err := svc.DescribeClusterWithContext(ctx, &eks.DescribeClusterInput{Name: aws.String(name)})
	if err != nil {
		if common.IsErrorCode(err, eks.ErrCodeResourceNotFoundException) {
			return nil, nil
		}
		return nil, err
	}
	c := out.Cluster
	result := &Cluster{
		ClusterSpec: ClusterSpec{
			Name:    name,
			RoleArn: aws.StringValue(c.RoleArn),
			Version: aws.StringValue(c.Version),
		},
		Arn:      aws.StringValue(c.Arn),
		Status:   aws.StringValue(c.Status),
		Endpoint: aws.StringValue(c.Endpoint),
		Tags:     cluster.FromStringRefs(c.Tags),
	}
	if c.CertificateAuthority != nil {
		result.CertificateAuthority = aws.StringValue(c.CertificateAuthority.Data)
	}
	if vpc := c.ResourcesVpcConfig; vpc != nil {
		result.SubnetIDs = sorted(aws.StringValueSlice(vpc.SubnetIds))
		result.PublicAccess = aws.BoolValue(vpc.EndpointPublicAccess)
		result.PrivateAccess = aws.BoolValue(vpc.EndpointPrivateAccess)
	}
	if c.Logging != nil {
		var enabled []string
		for _, setup := range c.Logging.ClusterLogging {
			if aws.BoolValue(setup.Enabled) {
				enabled = append(enabled, aws.StringValueSlice(setup.Types)...)
			}
		}
		result.LogTypes = sorted(enabled)
	}
	return result, nil
}

func clusterLogging(enabled []string) *eks.Logging {
	var disabled []string
	for _, logType := range eks.LogType_Values() {
		if !libstrings.AnyOf(logType, enabled...) {
			disabled = append(disabled, logType)
		}
	}
	logging := &eks.Logging{}
	if len(enabled) > 0 {
		logging.ClusterLogging = append(logging.ClusterLogging, &eks.LogSetup{
			Enabled: aws.Bool(true),
			Types:   libstrings.ListToRefList(enabled),
		})
	}
	if len(disabled) > 0 {
		logging.ClusterLogging = append(logging.ClusterLogging, &eks.LogSetup{
			Enabled: aws.Bool(false),
			Types:   libstrings.ListToRefList(disabled),
		})
	}
	return logging
}

func UpdateClusterLogging(ctx context.Context, name string, enabled []string) error {
	svc := connectors.GetAWSSession().EKS
	out, err := svc.UpdateClusterConfigWithContext(ctx, &eks.UpdateClusterConfigInput{
		Name:    aws.String(name),
		Logging: clusterLogging(enabled),
	})
	if err != nil {
		return err
	}
	return WaitForUpdate(ctx, name, "", "", out.Update)
}

func UpdateClusterEndpointAccess(ctx context.Context, name string, public, private bool) error {
	svc := connectors.GetAWSSession().EKS
	out, err := svc.UpdateClusterConfigWithContext(ctx, &eks.UpdateClusterConfigInput{
		Name: aws.String(name),
		ResourcesVpcConfig: &eks.VpcConfigRequest{
			EndpointPublicAccess:  aws.Bool(public),
			EndpointPrivateAccess: aws.Bool(private),
		},
	})
	if err != nil {
		return err
	}
	return WaitForUpdate(ctx, name, "", "", out.Update)
}

func UpdateClusterVersion(ctx context.Context, name, version string) error {
	svc := connectors.GetAWSSession().EKS
	out, err := svc.UpdateClusterVersionWithContext(ctx, &eks.UpdateClusterVersionInput{
		Name:    aws.String(name),
		Version: aws.String(version),
	})
	if err != nil {
		return err
	}
	return WaitForUpdate(ctx, name, "", "", out.Update)
}

func TagResource(ctx context.Context, arn string, tags cluster.Tags) error {
	svc := connectors.GetAWSSession().EKS
	_, err := svc.TagResourceWithContext(ctx, &eks.TagResourceInput{
		ResourceArn: aws.String(arn),
		Tags:        tags.AsStringRefs(),
	})
	return err
}

func DeleteCluster(ctx context.Context, name string) error {
	svc := connectors.GetAWSSession().EKS
	_, err := svc.DeleteClusterWithContext(ctx, &eks.DeleteClusterInput{Name: aws.String(name)})
	if err != nil {
		if common.IsErrorCode(err, eks.ErrCodeResourceNotFoundException) {
			return nil
		}
		return err
	}
	log.Debug().Msgf("waiting for cluster %s to be deleted ...", name)
	return svc.WaitUntilClusterDeletedWithContext(ctx, &eks.DescribeClusterInput{Name: aws.String(name)})
}
