// Package cleaner removes cloud objects Kubernetes created for a cluster and left behind.
package cleaner

import (
	"context"

	"github.com/pkg/errors"

	"ekscd/internal/aws/elb"
	"ekscd/internal/logging"
)

// LoadBalancers are the load balancers still tagged for a cluster once its Services
// should have released them.
type LoadBalancers struct {
	ClusterName string
	// List and Remove default to the elb package, tests replace them.
	List   func(ctx context.Context, clusterName string) ([]elb.LoadBalancer, error)
	Remove func(ctx context.Context, lb elb.LoadBalancer) error

	found []elb.LoadBalancer
}

func (l *LoadBalancers) Fetch(ctx context.Context) error {
	list := l.List
	if list == nil {
		list = elb.ClusterLoadBalancers
	}
	found, err := list(ctx, l.ClusterName)
	if err != nil {
		return errors.Wrapf(err, "listing load balancers of %s", l.ClusterName)
	}
	l.found = found
	return nil
}

func (l *LoadBalancers) Found() []elb.LoadBalancer {
	return l.found
}

func (l *LoadBalancers) Delete(ctx context.Context) error {
	remove := l.Remove
	if remove == nil {
		remove = elb.DeleteLoadBalancer
	}
	for _, lb := range l.found {
		if err := remove(ctx, lb); err != nil {
			return errors.Wrapf(err, "deleting load balancer %s", lb.Name)
		}
	}
	return nil
}

func (l *LoadBalancers) Print() {
	logging.UserInfo("LoadBalancers:")
	for _, lb := range l.found {
		logging.UserInfo("\t- %s (%s) %s", lb.Name, lb.Kind, lb.DNSName)
	}
}
