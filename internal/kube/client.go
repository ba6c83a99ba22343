package kube

import (
	"context"
	"encoding/base64"

	"github.com/pkg/errors"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	awseks "ekscd/internal/aws/eks"
	"ekscd/internal/connectors"
)

var ErrClusterNotFound = errors.New("cluster does not exist")

// ClusterInfo is what a client needs to reach an API server.
type ClusterInfo struct {
	Name     string
	Endpoint string
	// CAData is base64 encoded, as EKS returns it.
	CAData string
}

// Describe looks the cluster up, it must exist and have an endpoint.
func Describe(ctx context.Context, clusterName string) (ClusterInfo, error) {
	c, err := awseks.GetCluster(ctx, clusterName)
	if err != nil {
		return ClusterInfo{}, err
	}
	if c == nil {
		return ClusterInfo{}, errors.Wrap(ErrClusterNotFound, clusterName)
	}
	if c.Endpoint == "" {
		return ClusterInfo{}, errors.Errorf("cluster %s has no endpoint yet, it is %s", clusterName, c.Status)
	}
	return ClusterInfo{Name: clusterName, Endpoint: c.Endpoint, CAData: c.CertificateAuthority}, nil
}

func RestConfig(info ClusterInfo, tokens *TokenProvider) (*rest.Config, error) {
	ca, err := base64.StdEncoding.DecodeString(info.CAData)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding certificate authority of %s", info.Name)
	}
	return &rest.Config{
		Host: info.Endpoint,
		TLSClientConfig: rest.TLSClientConfig{
			CAData: ca,
		},
		WrapTransport: tokens.WrapTransport,
	}, nil
}

type Clients struct {
	Config    *rest.Config
	Clientset kubernetes.Interface
	Dynamic   dynamic.Interface
}

func NewClients(config *rest.Config) (*Clients, error) {
	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, errors.Wrap(err, "creating kubernetes client")
	}
	dynamicClient, err := dynamic.NewForConfig(config)
	if err != nil {
		return nil, errors.Wrap(err, "creating dynamic client")
	}
	return &Clients{Config: config, Clientset: clientset, Dynamic: dynamicClient}, nil
}

// Connect builds clients for a live cluster using the current AWS session.
func Connect(ctx context.Context, clusterName string) (*Clients, error) {
	info, err := Describe(ctx, clusterName)
	if err != nil {
		return nil, err
	}
	config, err := RestConfig(info, NewTokenProvider(connectors.GetAWSSession().STS, clusterName))
	if err != nil {
		return nil, err
	}
	return NewClients(config)
}
