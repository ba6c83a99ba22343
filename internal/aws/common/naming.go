package common

import (
	"fmt"

	"ekscd/internal/cluster"
	libstrings "ekscd/internal/lib/strings"
)

const (
	maxRoleNameLength      = 64
	maxNodeGroupNameLength = 63
)

// ResourceNames are the names of every provisioned object, all derived from the Name default tag.
type ResourceNames struct {
	Prefix      string
	Cluster     string
	ClusterRole string
	NodeRole    string
	NodeGroup   string
	LogGroup    string
}

func Names(tags cluster.NamedTags) (ResourceNames, error) {
	prefix, err := tags.NamePrefix()
	if err != nil {
		return ResourceNames{}, err
	}
	clusterName := prefix + "-cluster"
	return ResourceNames{
		Prefix:      prefix,
		Cluster:     clusterName,
		ClusterRole: libstrings.HashSuffixed(prefix+"-cluster-role", maxRoleNameLength),
		NodeRole:    libstrings.HashSuffixed(prefix+"-node-role", maxRoleNameLength),
		NodeGroup:   libstrings.HashSuffixed(prefix+"-nodes", maxNodeGroupNameLength),
		LogGroup:    ControlPlaneLogGroup(clusterName),
	}, nil
}

// ControlPlaneLogGroup is the log group EKS forwards control plane logs to.
func ControlPlaneLogGroup(clusterName string) string {
	return fmt.Sprintf("/aws/eks/%s/cluster", clusterName)
}
