package gitops

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"k8s.io/apimachinery/pkg/util/wait"

	"ekscd/internal/aws/cleaner"
	"ekscd/internal/aws/elb"
	"ekscd/internal/cluster"
	"ekscd/internal/logging"
)

var (
	ErrGitOpsObjectsRemain = errors.New("GitOps managed objects still exist, run gitops teardown first")

	TeardownPollInterval = 10 * time.Second
)

// Teardown unwinds Flux before the infrastructure underneath it is destroyed.
type Teardown struct {
	Flux      *Flux
	Collector *Collector
	Namespace string
	// Order lists Kustomizations deleted first. The rest follow sorted by name.
	Order   []string
	Timeout time.Duration
	DryRun  bool
	// DeleteOrphans removes load balancers that outlive the timeout instead of failing.
	DeleteOrphans bool
	// RemoveLoadBalancer defaults to elb.DeleteLoadBalancer.
	RemoveLoadBalancer func(ctx context.Context, lb elb.LoadBalancer) error
}

// DeletionOrder puts the configured names first, then every other Kustomization. The
// Flux root Kustomization is left to uninstall.
func DeletionOrder(found []Kustomization, order []string, fluxNamespace string) []Kustomization {
	rank := map[string]int{}
	for i, name := range order {
		if _, ok := rank[name]; !ok {
			rank[name] = i
		}
	}
	var out []Kustomization
	for _, k := range found {
		if !isRoot(k, fluxNamespace) {
			out = append(out, k)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, iRanked := rank[out[i].Name]
		rj, jRanked := rank[out[j].Name]
		switch {
		case iRanked && jRanked:
			return ri < rj
		case iRanked != jRanked:
			return iRanked
		case out[i].Name != out[j].Name:
			return out[i].Name < out[j].Name
		}
		return out[i].Namespace < out[j].Namespace
	})
	return out
}

func (t *Teardown) Run(ctx context.Context) error {
	inventory, err := t.Collector.Collect(ctx)
	if err != nil {
		return err
	}
	steps := DeletionOrder(inventory.Kustomizations, t.Order, t.Namespace)

	if t.DryRun {
		logging.UserInfo("Dry run, nothing will be deleted")
		for _, k := range steps {
			logging.UserInfo("would delete kustomization %s/%s", k.Namespace, k.Name)
		}
		logging.UserInfo("would wait up to %s for these to be released:", t.Timeout)
		lbs := &cleaner.LoadBalancers{ClusterName: t.Collector.ClusterName, List: t.Collector.LoadBalancers}
		if err := cluster.CleanupResource(ctx, lbs, true); err != nil {
			return err
		}
		logging.UserInfo("would uninstall flux from %s", t.Namespace)
		return nil
	}

	for _, k := range steps {
		logging.UserProgress("Deleting kustomization %s/%s ...", k.Namespace, k.Name)
		if err := t.Flux.DeleteKustomization(ctx, k.Namespace, k.Name); err != nil {
			return err
		}
	}

	if err := t.waitForLoadBalancers(ctx); err != nil {
		return err
	}

	logging.UserProgress("Uninstalling flux ...")
	if err := t.Flux.Uninstall(ctx, t.Namespace); err != nil {
		return err
	}
	logging.UserSuccess("GitOps teardown finished, the cluster can be destroyed")
	return nil
}

func (t *Teardown) waitForLoadBalancers(ctx context.Context) error {
	logging.UserProgress("Waiting for load balancers to be released ...")
	var last *Inventory
	err := wait.PollUntilContextTimeout(ctx, TeardownPollInterval, t.Timeout, true, func(ctx context.Context) (bool, error) {
		inventory, err := t.Collector.Collect(ctx)
		if err != nil {
			return false, err
		}
		last = inventory
		log.Debug().Msgf("%d load balancer services and %d load balancers remain", len(inventory.Services), len(inventory.LoadBalancers))
		return len(inventory.Services) == 0 && len(inventory.LoadBalancers) == 0, nil
	})
	if err == nil {
		return nil
	}
	if ctx.Err() != nil || !wait.Interrupted(err) {
		return err
	}
	if !t.DeleteOrphans {
		if last != nil {
			last.Print()
		}
		return errors.Errorf("load balancers were not released within %s", t.Timeout)
	}

	logging.UserWarning("load balancers outlived the timeout, deleting them")
	lbs := &cleaner.LoadBalancers{
		ClusterName: t.Collector.ClusterName,
		List:        t.Collector.LoadBalancers,
		Remove:      t.RemoveLoadBalancer,
	}
	return cluster.CleanupResource(ctx, lbs, false)
}

// CheckDestroy enforces that GitOps objects are gone before infrastructure destroy.
// With force the check only warns.
func CheckDestroy(inventory *Inventory, fluxNamespace string, force bool) error {
	if !inventory.Blocking(fluxNamespace) {
		return nil
	}
	inventory.Print()
	if !force {
		return ErrGitOpsObjectsRemain
	}
	logging.UserWarning("destroying anyway, load balancers created by Kubernetes may be orphaned and block VPC deletion")
	return nil
}
