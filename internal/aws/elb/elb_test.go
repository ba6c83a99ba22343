package elb

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/elb"
	"github.com/aws/aws-sdk-go/service/elb/elbiface"
	"github.com/aws/aws-sdk-go/service/elbv2"
	"github.com/aws/aws-sdk-go/service/elbv2/elbv2iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ekscd/internal/cluster"
	"ekscd/internal/connectors"
)

type mockELB struct {
	elbiface.ELBAPI
	balancers    []*elb.LoadBalancerDescription
	tags         map[string][]*elb.Tag
	describeTags int
	deleted      []string
}

func (m *mockELB) DescribeLoadBalancersPagesWithContext(_ aws.Context, _ *elb.DescribeLoadBalancersInput, fn func(*elb.DescribeLoadBalancersOutput, bool) bool, _ ...request.Option) error {
	fn(&elb.DescribeLoadBalancersOutput{LoadBalancerDescriptions: m.balancers}, true)
	return nil
}

func (m *mockELB) DescribeTagsWithContext(_ aws.Context, in *elb.DescribeTagsInput, _ ...request.Option) (*elb.DescribeTagsOutput, error) {
	m.describeTags++
	if len(in.LoadBalancerNames) > 20 {
		return nil, fmt.Errorf("too many load balancers: %d", len(in.LoadBalancerNames))
	}
	out := &elb.DescribeTagsOutput{}
	for _, name := range in.LoadBalancerNames {
		out.TagDescriptions = append(out.TagDescriptions, &elb.TagDescription{LoadBalancerName: name, Tags: m.tags[aws.StringValue(name)]})
	}
	return out, nil
}

func (m *mockELB) DeleteLoadBalancerWithContext(_ aws.Context, in *elb.DeleteLoadBalancerInput, _ ...request.Option) (*elb.DeleteLoadBalancerOutput, error) {
	m.deleted = append(m.deleted, aws.StringValue(in.LoadBalancerName))
	return &elb.DeleteLoadBalancerOutput{}, nil
}

type mockELBV2 struct {
	elbv2iface.ELBV2API
	balancers []*elbv2.LoadBalancer
	tags      map[string][]*elbv2.Tag
	deleted   []string
}

func (m *mockELBV2) DescribeLoadBalancersPagesWithContext(_ aws.Context, _ *elbv2.DescribeLoadBalancersInput, fn func(*elbv2.DescribeLoadBalancersOutput, bool) bool, _ ...request.Option) error {
	fn(&elbv2.DescribeLoadBalancersOutput{LoadBalancers: m.balancers}, true)
	return nil
}

func (m *mockELBV2) DescribeTagsWithContext(_ aws.Context, in *elbv2.DescribeTagsInput, _ ...request.Option) (*elbv2.DescribeTagsOutput, error) {
	out := &elbv2.DescribeTagsOutput{}
	for _, arn := range in.ResourceArns {
		out.TagDescriptions = append(out.TagDescriptions, &elbv2.TagDescription{ResourceArn: arn, Tags: m.tags[aws.StringValue(arn)]})
	}
	return out, nil
}

func (m *mockELBV2) DeleteLoadBalancerWithContext(_ aws.Context, in *elbv2.DeleteLoadBalancerInput, _ ...request.Option) (*elbv2.DeleteLoadBalancerOutput, error) {
	m.deleted = append(m.deleted, aws.StringValue(in.LoadBalancerArn))
	return &elbv2.DeleteLoadBalancerOutput{}, nil
}

func TestClusterLoadBalancers(t *testing.T) {
	classic := &mockELB{tags: map[string][]*elb.Tag{}}
	for i := 0; i < 25; i++ {
		name := fmt.Sprintf("lb-%02d", i)
		classic.balancers = append(classic.balancers, &elb.LoadBalancerDescription{LoadBalancerName: aws.String(name), DNSName: aws.String(name + ".elb")})
	}
	classic.tags["lb-03"] = []*elb.Tag{{Key: aws.String("kubernetes.io/cluster/demo-cluster"), Value: aws.String("owned")}}
	classic.tags["lb-22"] = []*elb.Tag{{Key: aws.String("kubernetes.io/cluster/other-cluster"), Value: aws.String("owned")}}

	v2 := &mockELBV2{
		balancers: []*elbv2.LoadBalancer{
			{LoadBalancerName: aws.String("k8s-ingress"), LoadBalancerArn: aws.String("arn:ingress"), Type: aws.String("application")},
			{LoadBalancerName: aws.String("unrelated"), LoadBalancerArn: aws.String("arn:unrelated"), Type: aws.String("network")},
		},
		tags: map[string][]*elbv2.Tag{
			"arn:ingress": {{Key: aws.String(AWSLoadBalancerControllerTagKey), Value: aws.String("demo-cluster")}},
		},
	}
	restore := connectors.SetAWSSession(&connectors.SAwsSession{ELB: classic, ELBV2: v2})
	defer restore()

	lbs, err := ClusterLoadBalancers(context.Background(), "demo-cluster")
	require.NoError(t, err)
	require.Len(t, lbs, 2)
	assert.Equal(t, "k8s-ingress", lbs[0].Name)
	assert.Equal(t, "application", lbs[0].Kind)
	assert.Equal(t, "lb-03", lbs[1].Name)
	assert.Equal(t, KindClassic, lbs[1].Kind)
	assert.Equal(t, "lb-03.elb", lbs[1].DNSName)
	assert.Equal(t, 2, classic.describeTags)

	require.NoError(t, DeleteLoadBalancer(context.Background(), lbs[0]))
	require.NoError(t, DeleteLoadBalancer(context.Background(), lbs[1]))
	assert.Equal(t, []string{"arn:ingress"}, v2.deleted)
	assert.Equal(t, []string{"lb-03"}, classic.deleted)
}

func TestBelongsTo(t *testing.T) {
	assert.True(t, BelongsTo(cluster.Tags{"kubernetes.io/cluster/c": "shared"}, "c"))
	assert.True(t, BelongsTo(cluster.Tags{AWSLoadBalancerControllerTagKey: "c"}, "c"))
	assert.False(t, BelongsTo(cluster.Tags{AWSLoadBalancerControllerTagKey: "d"}, "c"))
	assert.False(t, BelongsTo(nil, "c"))
}
