package awstest

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/eks"
	"github.com/aws/aws-sdk-go/service/eks/eksiface"
)

// CAPEM is a self-signed certificate, client-go refuses a CA bundle it cannot parse.
const CAPEM = `-----BEGIN CERTIFICATE-----
MIIBgTCCASegAwIBAgIUHgnwWwBMkSz3DEVHD9FQx0irWM8wCgYIKoZIzj0EAwIw
FTETMBEGA1UEAwwKa3ViZXJuZXRlczAgFw0yNjEwMTkxMTU4MDhaGA8yMTI2MDky
NTExNTgwOFowFTETMBEGA1UEAwwKa3ViZXJuZXRlczBZMBMGByqGSM49AgEGCCqG
SM49AwEHA0IABM36xGI/6Sjaco7kSF0rPRB51Jja+560lt2JIeJWYsp4QdGEpe2I
MXeY+oNXdyOrVY762legNHz/MrggPcQInq2jUzBRMB0GA1UdDgQWBBR9+66UO8ka
R8OGa+JTMfO5YpwQEjAfBgNVHSMEGDAWgBR9+66UO8kaR8OGa+JTMfO5YpwQEjAP
BgNVHRMBAf8EBTADAQH/MAoGCCqGSM49BAMCA0gAMEUCIA8Qr/CgH+JbcaeFHm8b
o1Y8qkYykp0Oeh8vhyBQToiIAiEAv86Cjk3kBMUUrqxtdzeB7x9ou8wCL23JjSct
BvdQwas=
-----END CERTIFICATE-----
`

// CAData is the base64 certificate authority every fake cluster reports.
var CAData = base64.StdEncoding.EncodeToString([]byte(CAPEM))

type EKS struct {
	eksiface.EKSAPI
	cloud      *Cloud
	clusters   map[string]*eks.Cluster
	nodegroups map[string]*eks.Nodegroup
	addons     map[string]*eks.Addon
	updates    map[string]*eks.Update
	nextUpdate int
}

func newEKS(c *Cloud) *EKS {
	return &EKS{
		cloud:      c,
		clusters:   map[string]*eks.Cluster{},
		nodegroups: map[string]*eks.Nodegroup{},
		addons:     map[string]*eks.Addon{},
		updates:    map[string]*eks.Update{},
	}
}

func child(clusterName, name *string) string {
	return aws.StringValue(clusterName) + "/" + aws.StringValue(name)
}

func clusterMissing(name string) error {
	return notFound(eks.ErrCodeResourceNotFoundException, "No cluster found for name: %s.", name)
}

// newUpdate must be called with the lock held.
func (f *EKS) newUpdate(updateType string) *eks.Update {
	f.nextUpdate++
	update := &eks.Update{
		Id:     aws.String(fmt.Sprintf("update-%d", f.nextUpdate)),
		Type:   aws.String(updateType),
		Status: aws.String(eks.UpdateStatusSuccessful),
	}
	f.updates[*update.Id] = update
	return update
}

// SetClusterTag changes a live tag, used to simulate objects owned by someone else.
func (f *EKS) SetClusterTag(name, key, value string) {
	f.cloud.mu.Lock()
	defer f.cloud.mu.Unlock()
	c := f.clusters[name]
	if c.Tags == nil {
		c.Tags = map[string]*string{}
	}
	c.Tags[key] = aws.String(value)
}

// ScaleNodegroup changes the desired size behind the provisioner's back.
func (f *EKS) ScaleNodegroup(clusterName, name string, desired int64) {
	f.cloud.mu.Lock()
	defer f.cloud.mu.Unlock()
	f.nodegroups[clusterName+"/"+name].ScalingConfig.DesiredSize = aws.Int64(desired)
}

func (f *EKS) CreateClusterWithContext(_ aws.Context, in *eks.CreateClusterInput, _ ...request.Option) (*eks.CreateClusterOutput, error) {
	name := aws.StringValue(in.Name)
	f.cloud.record("eks:CreateCluster %s", name)
	f.cloud.mu.Lock()
	defer f.cloud.mu.Unlock()
	if _, ok := f.clusters[name]; ok {
		return nil, awserr.New(eks.ErrCodeResourceInUseException, "cluster exists", nil)
	}
	if aws.StringValue(in.RoleArn) == "" {
		return nil, awserr.New(eks.ErrCodeInvalidParameterException, "role arn is required", nil)
	}
	c := &eks.Cluster{
		Name:     in.Name,
		Arn:      aws.String("arn:aws:eks:" + Region + ":" + AccountID + ":cluster/" + name),
		RoleArn:  in.RoleArn,
		Version:  in.Version,
		Status:   aws.String(eks.ClusterStatusActive),
		Endpoint: aws.String("https://" + strings.ToLower(name) + ".eks.example.com"),
		CertificateAuthority: &eks.Certificate{
			Data: aws.String(CAData),
		},
		ResourcesVpcConfig: &eks.VpcConfigResponse{
			SubnetIds:             in.ResourcesVpcConfig.SubnetIds,
			EndpointPublicAccess:  in.ResourcesVpcConfig.EndpointPublicAccess,
			EndpointPrivateAccess: in.ResourcesVpcConfig.EndpointPrivateAccess,
		},
		Logging: in.Logging,
		Tags:    copyTags(in.Tags),
	}
	f.clusters[name] = c
	return &eks.CreateClusterOutput{Cluster: c}, nil
}

func (f *EKS) WaitUntilClusterActiveWithContext(aws.Context, *eks.DescribeClusterInput, ...request.WaiterOption) error {
	return nil
}

func (f *EKS) WaitUntilClusterDeletedWithContext(aws.Context, *eks.DescribeClusterInput, ...request.WaiterOption) error {
	return nil
}

func (f *EKS) DescribeClusterWithContext(_ aws.Context, in *eks.DescribeClusterInput, _ ...request.Option) (*eks.DescribeClusterOutput, error) {
	name := aws.StringValue(in.Name)
	f.cloud.mu.Lock()
	defer f.cloud.mu.Unlock()
	c, ok := f.clusters[name]
	if !ok {
		return nil, clusterMissing(name)
	}
	clone := *c
	clone.Tags = copyTags(c.Tags)
	return &eks.DescribeClusterOutput{Cluster: &clone}, nil
}

func (f *EKS) UpdateClusterConfigWithContext(_ aws.Context, in *eks.UpdateClusterConfigInput, _ ...request.Option) (*eks.UpdateClusterConfigOutput, error) {
	name := aws.StringValue(in.Name)
	kind := eks.UpdateTypeLoggingUpdate
	if in.ResourcesVpcConfig != nil {
		kind = eks.UpdateTypeEndpointAccessUpdate
	}
	f.cloud.record("eks:UpdateClusterConfig %s %s", name, kind)
	f.cloud.mu.Lock()
	defer f.cloud.mu.Unlock()
	c, ok := f.clusters[name]
	if !ok {
		return nil, clusterMissing(name)
	}
	if in.Logging != nil && in.ResourcesVpcConfig != nil {
		return nil, awserr.New(eks.ErrCodeInvalidParameterException, "only one type of update can be allowed", nil)
	}
	var update *eks.Update
	if in.Logging != nil {
		c.Logging = in.Logging
		update = f.newUpdate(eks.UpdateTypeLoggingUpdate)
	}
	if in.ResourcesVpcConfig != nil {
		vpc := *c.ResourcesVpcConfig
		vpc.EndpointPublicAccess = in.ResourcesVpcConfig.EndpointPublicAccess
		vpc.EndpointPrivateAccess = in.ResourcesVpcConfig.EndpointPrivateAccess
		c.ResourcesVpcConfig = &vpc
		update = f.newUpdate(eks.UpdateTypeEndpointAccessUpdate)
	}
	return &eks.UpdateClusterConfigOutput{Update: update}, nil
}

func (f *EKS) UpdateClusterVersionWithContext(_ aws.Context, in *eks.UpdateClusterVersionInput, _ ...request.Option) (*eks.UpdateClusterVersionOutput, error) {
	name := aws.StringValue(in.Name)
	f.cloud.record("eks:UpdateClusterVersion %s %s", name, aws.StringValue(in.Version))
	f.cloud.mu.Lock()
	defer f.cloud.mu.Unlock()
	c, ok := f.clusters[name]
	if !ok {
		return nil, clusterMissing(name)
	}
	c.Version = in.Version
	return &eks.UpdateClusterVersionOutput{Update: f.newUpdate(eks.UpdateTypeVersionUpdate)}, nil
}

func (f *EKS) DescribeUpdateWithContext(_ aws.Context, in *eks.DescribeUpdateInput, _ ...request.Option) (*eks.DescribeUpdateOutput, error) {
	f.cloud.mu.Lock()
	defer f.cloud.mu.Unlock()
	update, ok := f.updates[aws.StringValue(in.UpdateId)]
	if !ok {
		return nil, notFound(eks.ErrCodeResourceNotFoundException, "update not found")
	}
	return &eks.DescribeUpdateOutput{Update: update}, nil
}

func (f *EKS) TagResourceWithContext(_ aws.Context, in *eks.TagResourceInput, _ ...request.Option) (*eks.TagResourceOutput, error) {
	arn := aws.StringValue(in.ResourceArn)
	f.cloud.mu.Lock()
	defer f.cloud.mu.Unlock()
	var tags map[string]*string
	found := false
	for _, c := range f.clusters {
		if aws.StringValue(c.Arn) == arn {
			if c.Tags == nil {
				c.Tags = map[string]*string{}
			}
			tags, found = c.Tags, true
		}
	}
	for _, n := range f.nodegroups {
		if aws.StringValue(n.NodegroupArn) == arn {
			if n.Tags == nil {
				n.Tags = map[string]*string{}
			}
			tags, found = n.Tags, true
		}
	}
	for _, a := range f.addons {
		if aws.StringValue(a.AddonArn) == arn {
			if a.Tags == nil {
				a.Tags = map[string]*string{}
			}
			tags, found = a.Tags, true
		}
	}
	if !found {
		return nil, notFound(eks.ErrCodeResourceNotFoundException, "no resource %s", arn)
	}
	for k, v := range in.Tags {
		tags[k] = aws.String(aws.StringValue(v))
	}
	return &eks.TagResourceOutput{}, nil
}

func (f *EKS) DeleteClusterWithContext(_ aws.Context, in *eks.DeleteClusterInput, _ ...request.Option) (*eks.DeleteClusterOutput, error) {
	name := aws.StringValue(in.Name)
	f.cloud.record("eks:DeleteCluster %s", name)
	f.cloud.mu.Lock()
	defer f.cloud.mu.Unlock()
	if _, ok := f.clusters[name]; !ok {
		return nil, clusterMissing(name)
	}
	for key := range f.nodegroups {
		if strings.HasPrefix(key, name+"/") {
			return nil, awserr.New(eks.ErrCodeResourceInUseException, "cluster has node groups attached", nil)
		}
	}
	delete(f.clusters, name)
	for key := range f.addons {
		if strings.HasPrefix(key, name+"/") {
			delete(f.addons, key)
		}
	}
	return &eks.DeleteClusterOutput{}, nil
}

func (f *EKS) CreateNodegroupWithContext(_ aws.Context, in *eks.CreateNodegroupInput, _ ...request.Option) (*eks.CreateNodegroupOutput, error) {
	key := child(in.ClusterName, in.NodegroupName)
	f.cloud.record("eks:CreateNodegroup %s", aws.StringValue(in.NodegroupName))
	f.cloud.mu.Lock()
	defer f.cloud.mu.Unlock()
	if _, ok := f.clusters[aws.StringValue(in.ClusterName)]; !ok {
		return nil, clusterMissing(aws.StringValue(in.ClusterName))
	}
	if _, ok := f.nodegroups[key]; ok {
		return nil, awserr.New(eks.ErrCodeResourceInUseException, "node group exists", nil)
	}
	scaling := *in.ScalingConfig
	n := &eks.Nodegroup{
		ClusterName:   in.ClusterName,
		NodegroupName: in.NodegroupName,
		NodegroupArn:  aws.String("arn:aws:eks:" + Region + ":" + AccountID + ":nodegroup/" + key),
		NodeRole:      in.NodeRole,
		Subnets:       in.Subnets,
		InstanceTypes: in.InstanceTypes,
		ScalingConfig: &scaling,
		CapacityType:  in.CapacityType,
		DiskSize:      in.DiskSize,
		AmiType:       in.AmiType,
		Status:        aws.String(eks.NodegroupStatusActive),
		Tags:          copyTags(in.Tags),
	}
	f.nodegroups[key] = n
	return &eks.CreateNodegroupOutput{Nodegroup: n}, nil
}

func (f *EKS) WaitUntilNodegroupActiveWithContext(aws.Context, *eks.DescribeNodegroupInput, ...request.WaiterOption) error {
	return nil
}

func (f *EKS) WaitUntilNodegroupDeletedWithContext(aws.Context, *eks.DescribeNodegroupInput, ...request.WaiterOption) error {
	return nil
}

func (f *EKS) DescribeNodegroupWithContext(_ aws.Context, in *eks.DescribeNodegroupInput, _ ...request.Option) (*eks.DescribeNodegroupOutput, error) {
	f.cloud.mu.Lock()
	defer f.cloud.mu.Unlock()
	if _, ok := f.clusters[aws.StringValue(in.ClusterName)]; !ok {
		return nil, clusterMissing(aws.StringValue(in.ClusterName))
	}
	n, ok := f.nodegroups[child(in.ClusterName, in.NodegroupName)]
	if !ok {
		return nil, notFound(eks.ErrCodeResourceNotFoundException, "No node group found for name: %s.", aws.StringValue(in.NodegroupName))
	}
	clone := *n
	scaling := *n.ScalingConfig
	clone.ScalingConfig = &scaling
	clone.Tags = copyTags(n.Tags)
	return &eks.DescribeNodegroupOutput{Nodegroup: &clone}, nil
}

func (f *EKS) UpdateNodegroupConfigWithContext(_ aws.Context, in *eks.UpdateNodegroupConfigInput, _ ...request.Option) (*eks.UpdateNodegroupConfigOutput, error) {
	f.cloud.record("eks:UpdateNodegroupConfig %s", aws.StringValue(in.NodegroupName))
	f.cloud.mu.Lock()
	defer f.cloud.mu.Unlock()
	n, ok := f.nodegroups[child(in.ClusterName, in.NodegroupName)]
	if !ok {
		return nil, notFound(eks.ErrCodeResourceNotFoundException, "no node group")
	}
	if in.ScalingConfig != nil {
		scaling := *in.ScalingConfig
		n.ScalingConfig = &scaling
	}
	return &eks.UpdateNodegroupConfigOutput{Update: f.newUpdate(eks.UpdateTypeConfigUpdate)}, nil
}

func (f *EKS) DeleteNodegroupWithContext(_ aws.Context, in *eks.DeleteNodegroupInput, _ ...request.Option) (*eks.DeleteNodegroupOutput, error) {
	f.cloud.record("eks:DeleteNodegroup %s", aws.StringValue(in.NodegroupName))
	f.cloud.mu.Lock()
	defer f.cloud.mu.Unlock()
	key := child(in.ClusterName, in.NodegroupName)
	if _, ok := f.nodegroups[key]; !ok {
		return nil, notFound(eks.ErrCodeResourceNotFoundException, "no node group")
	}
	delete(f.nodegroups, key)
	return &eks.DeleteNodegroupOutput{}, nil
}

func (f *EKS) CreateAddonWithContext(_ aws.Context, in *eks.CreateAddonInput, _ ...request.Option) (*eks.CreateAddonOutput, error) {
	key := child(in.ClusterName, in.AddonName)
	f.cloud.record("eks:CreateAddon %s %s", aws.StringValue(in.AddonName), aws.StringValue(in.ResolveConflicts))
	f.cloud.mu.Lock()
	defer f.cloud.mu.Unlock()
	if _, ok := f.clusters[aws.StringValue(in.ClusterName)]; !ok {
		return nil, clusterMissing(aws.StringValue(in.ClusterName))
	}
	version := aws.StringValue(in.AddonVersion)
	if version == "" {
		version = "v0.7.1-eksbuild.1"
	}
	a := &eks.Addon{
		ClusterName:  in.ClusterName,
		AddonName:    in.AddonName,
		AddonArn:     aws.String("arn:aws:eks:" + Region + ":" + AccountID + ":addon/" + key),
		AddonVersion: aws.String(version),
		Status:       aws.String(eks.AddonStatusActive),
		Tags:         copyTags(in.Tags),
	}
	f.addons[key] = a
	return &eks.CreateAddonOutput{Addon: a}, nil
}

func (f *EKS) WaitUntilAddonActiveWithContext(aws.Context, *eks.DescribeAddonInput, ...request.WaiterOption) error {
	return nil
}

func (f *EKS) WaitUntilAddonDeletedWithContext(aws.Context, *eks.DescribeAddonInput, ...request.WaiterOption) error {
	return nil
}

func (f *EKS) DescribeAddonWithContext(_ aws.Context, in *eks.DescribeAddonInput, _ ...request.Option) (*eks.DescribeAddonOutput, error) {
	f.cloud.mu.Lock()
	defer f.cloud.mu.Unlock()
	if _, ok := f.clusters[aws.StringValue(in.ClusterName)]; !ok {
		return nil, clusterMissing(aws.StringValue(in.ClusterName))
	}
	a, ok := f.addons[child(in.ClusterName, in.AddonName)]
	if !ok {
		return nil, notFound(eks.ErrCodeResourceNotFoundException, "No addon: %s found in cluster", aws.StringValue(in.AddonName))
	}
	clone := *a
	clone.Tags = copyTags(a.Tags)
	return &eks.DescribeAddonOutput{Addon: &clone}, nil
}

func (f *EKS) UpdateAddonWithContext(_ aws.Context, in *eks.UpdateAddonInput, _ ...request.Option) (*eks.UpdateAddonOutput, error) {
	f.cloud.record("eks:UpdateAddon %s %s", aws.StringValue(in.AddonName), aws.StringValue(in.ResolveConflicts))
	f.cloud.mu.Lock()
	defer f.cloud.mu.Unlock()
	a, ok := f.addons[child(in.ClusterName, in.AddonName)]
	if !ok {
		return nil, notFound(eks.ErrCodeResourceNotFoundException, "no addon")
	}
	if in.AddonVersion != nil {
		a.AddonVersion = in.AddonVersion
	}
	return &eks.UpdateAddonOutput{Update: f.newUpdate(eks.UpdateTypeAddonUpdate)}, nil
}

func (f *EKS) DeleteAddonWithContext(_ aws.Context, in *eks.DeleteAddonInput, _ ...request.Option) (*eks.DeleteAddonOutput, error) {
	f.cloud.record("eks:DeleteAddon %s", aws.StringValue(in.AddonName))
	f.cloud.mu.Lock()
	defer f.cloud.mu.Unlock()
	key := child(in.ClusterName, in.AddonName)
	if _, ok := f.addons[key]; !ok {
		return nil, notFound(eks.ErrCodeResourceNotFoundException, "no addon")
	}
	delete(f.addons, key)
	return &eks.DeleteAddonOutput{}, nil
}
