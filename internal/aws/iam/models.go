package iam

import (
	"encoding/json"

	"ekscd/internal/cluster"
)

const (
	ClusterPolicyArn             = "arn:aws:iam::aws:policy/AmazonEKSClusterPolicy"
	WorkerNodePolicyArn          = "arn:aws:iam::aws:policy/AmazonEKSWorkerNodePolicy"
	CNIPolicyArn                 = "arn:aws:iam::aws:policy/AmazonEKS_CNI_Policy"
	ContainerRegistryReadOnlyArn = "arn:aws:iam::aws:policy/AmazonEC2ContainerRegistryReadOnly"

	EKSServicePrincipal = "eks.amazonaws.com"
	EC2ServicePrincipal = "ec2.amazonaws.com"
)

var (
	ClusterPolicies = []string{ClusterPolicyArn}
	NodePolicies    = []string{WorkerNodePolicyArn, CNIPolicyArn, ContainerRegistryReadOnlyArn}
)

type Principal struct {
	Service string
}

// Resource is prohibited for assume role
type PolicyStatement struct {
	Effect    string
	Action    []string
	Principal Principal
}

type AssumeRolePolicyDocument struct {
	Version   string
	Statement []PolicyStatement
}

func (a AssumeRolePolicyDocument) Bytes() []byte {
	policy, err := json.Marshal(&a)
	if err != nil {
		panic(err)
	}
	return policy
}

func (a AssumeRolePolicyDocument) String() string {
	return string(a.Bytes())
}

func (a AssumeRolePolicyDocument) VersionHash() string {
	return cluster.SpecHash(a.Statement)
}

func ServiceAssumeRolePolicy(service string) AssumeRolePolicyDocument {
	return AssumeRolePolicyDocument{
		Version: "2012-10-17",
		Statement: []PolicyStatement{
			{
				Effect: "Allow",
				Action: []string{
					"sts:AssumeRole",
				},
				Principal: Principal{
					Service: service,
				},
			},
		},
	}
}

func PolicyName(arn string) string {
	for i := len(arn) - 1; i >= 0; i-- {
		if arn[i] == '/' {
			return arn[i+1:]
		}
	}
	return arn
}
