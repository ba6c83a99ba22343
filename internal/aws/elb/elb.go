// Package elb finds the load balancers Kubernetes created for a cluster. They belong
// to the GitOps side of the cluster and are never declared in the provisioning graph.
package elb

import (
	"context"
	"sort"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/elb"
	"github.com/aws/aws-sdk-go/service/elbv2"
	"github.com/rs/zerolog/log"

	"ekscd/internal/aws/common"
	"ekscd/internal/cluster"
	"ekscd/internal/connectors"
)

const (
	KindClassic = "classic"

	// describe tags accepts at most 20 load balancers per call
	describeTagsBatch = 20

	AWSLoadBalancerControllerTagKey = "elbv2.k8s.aws/cluster"
)

type LoadBalancer struct {
	Name    string
	Arn     string
	DNSName string
	Kind    string
	Tags    cluster.Tags
}

// ClusterTagKey is the tag the in-tree cloud provider puts on load balancers it creates for clusterName.
func ClusterTagKey(clusterName string) string {
	return "kubernetes.io/cluster/" + clusterName
}

func BelongsTo(tags cluster.Tags, clusterName string) bool {
	if _, ok := tags[ClusterTagKey(clusterName)]; ok {
		return true
	}
	return tags[AWSLoadBalancerControllerTagKey] == clusterName
}

func batches(items []string) [][]string {
	var out [][]string
	for len(items) > describeTagsBatch {
		out = append(out, items[:describeTagsBatch])
		items = items[describeTagsBatch:]
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}

// ClusterLoadBalancers lists classic and v2 load balancers tagged for clusterName.
func ClusterLoadBalancers(ctx context.Context, clusterName string) ([]LoadBalancer, error) {
	classic, err := classicLoadBalancers(ctx, clusterName)
	if err != nil {
		return nil, err
	}
	v2, err := v2LoadBalancers(ctx, clusterName)
	if err != nil {
		return nil, err
	}
	all := append(classic, v2...)
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all, nil
}

func classicLoadBalancers(ctx context.Context, clusterName string) ([]LoadBalancer, error) {
	svc := connectors.GetAWSSession().ELB
	byName := map[string]*elb.LoadBalancerDescription{}
	var names []string
	err := svc.DescribeLoadBalancersPagesWithContext(ctx, &elb.DescribeLoadBalancersInput{},
		func(page *elb.DescribeLoadBalancersOutput, lastPage bool) bool {
			for _, lb := range page.LoadBalancerDescriptions {
				name := aws.StringValue(lb.LoadBalancerName)
				byName[name] = lb
				names = append(names, name)
			}
			return true
		})
	if err != nil {
		return nil, err
	}

	var result []LoadBalancer
	for _, batch := range batches(names) {
		out, err := svc.DescribeTagsWithContext(ctx, &elb.DescribeTagsInput{
			LoadBalancerNames: aws.StringSlice(batch),
		})
		if err != nil {
			return nil, err
		}
		for _, description := range out.TagDescriptions {
			tags := cluster.Tags{}
			for _, tag := range description.Tags {
				tags[aws.StringValue(tag.Key)] = aws.StringValue(tag.Value)
			}
			if !BelongsTo(tags, clusterName) {
				continue
			}
			name := aws.StringValue(description.LoadBalancerName)
			result = append(result, LoadBalancer{
				Name:    name,
				DNSName: aws.StringValue(byName[name].DNSName),
				Kind:    KindClassic,
				Tags:    tags,
			})
		}
	}
	return result, nil
}

func v2LoadBalancers(ctx context.Context, clusterName string) ([]LoadBalancer, error) {
	svc := connectors.GetAWSSession().ELBV2
	byArn := map[string]*elbv2.LoadBalancer{}
	var arns []string
	err := svc.DescribeLoadBalancersPagesWithContext(ctx, &elbv2.DescribeLoadBalancersInput{},
		func(page *elbv2.DescribeLoadBalancersOutput, lastPage bool) bool {
			for _, lb := range page.LoadBalancers {
				arn := aws.StringValue(lb.LoadBalancerArn)
				byArn[arn] = lb
				arns = append(arns, arn)
			}
			return true
		})
	if err != nil {
		return nil, err
	}

	var result []LoadBalancer
	for _, batch := range batches(arns) {
		out, err := svc.DescribeTagsWithContext(ctx, &elbv2.DescribeTagsInput{
			ResourceArns: aws.StringSlice(batch),
		})
		if err != nil {
			return nil, err
		}
		for _, description := range out.TagDescriptions {
			tags := cluster.Tags{}
			for _, tag := range description.Tags {
				tags[aws.StringValue(tag.Key)] = aws.StringValue(tag.Value)
			}
			if !BelongsTo(tags, clusterName) {
				continue
			}
			lb := byArn[aws.StringValue(description.ResourceArn)]
			result = append(result, LoadBalancer{
				Name:    aws.StringValue(lb.LoadBalancerName),
				Arn:     aws.StringValue(lb.LoadBalancerArn),
				DNSName: aws.StringValue(lb.DNSName),
				Kind:    aws.StringValue(lb.Type),
				Tags:    tags,
			})
		}
	}
	return result, nil
}

func DeleteLoadBalancer(ctx context.Context, lb LoadBalancer) error {
	var err error
	if lb.Kind == KindClassic {
		_, err = connectors.GetAWSSession().ELB.DeleteLoadBalancerWithContext(ctx, &elb.DeleteLoadBalancerInput{
			LoadBalancerName: aws.String(lb.Name),
		})
	} else {
		_, err = connectors.GetAWSSession().ELBV2.DeleteLoadBalancerWithContext(ctx, &elbv2.DeleteLoadBalancerInput{
			LoadBalancerArn: aws.String(lb.Arn),
		})
		if common.IsErrorCode(err, elbv2.ErrCodeLoadBalancerNotFoundException) {
			err = nil
		}
	}
	if err != nil {
		return err
	}
	log.Debug().Msgf("load balancer %s was deleted successfully", lb.Name)
	return nil
}
