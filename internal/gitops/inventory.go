package gitops

import (
	"context"
	"fmt"
	"sort"

	"github.com/pkg/errors"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"

	"ekscd/internal/aws/common"
	"ekscd/internal/aws/elb"
	"ekscd/internal/logging"
)

var KustomizationResource = schema.GroupVersionResource{
	Group:    "kustomize.toolkit.fluxcd.io",
	Version:  "v1",
	Resource: "kustomizations",
}

type Kustomization struct {
	Namespace string
	Name      string
	Path      string
	Ready     string
}

type LoadBalancerService struct {
	Namespace string
	Name      string
	Hostnames []string
}

// Inventory is everything the GitOps side created that blocks infrastructure teardown.
type Inventory struct {
	Kustomizations []Kustomization
	Services       []LoadBalancerService
	LoadBalancers  []elb.LoadBalancer
}

func (i *Inventory) Empty() bool {
	return len(i.Kustomizations) == 0 && len(i.Services) == 0 && len(i.LoadBalancers) == 0
}

// Blocking reports objects other than the Flux root Kustomization, which uninstall removes.
func (i *Inventory) Blocking(fluxNamespace string) bool {
	for _, k := range i.Kustomizations {
		if !isRoot(k, fluxNamespace) {
			return true
		}
	}
	return len(i.Services) > 0 || len(i.LoadBalancers) > 0
}

func (i *Inventory) Print() {
	if i.Empty() {
		logging.UserInfo("No GitOps managed objects found")
		return
	}
	var rows [][]string
	for _, k := range i.Kustomizations {
		rows = append(rows, []string{"Kustomization", k.Namespace + "/" + k.Name, k.Ready})
	}
	for _, s := range i.Services {
		hostnames := "pending"
		if len(s.Hostnames) > 0 {
			hostnames = fmt.Sprint(s.Hostnames)
		}
		rows = append(rows, []string{"Service", s.Namespace + "/" + s.Name, hostnames})
	}
	for _, lb := range i.LoadBalancers {
		rows = append(rows, []string{"LoadBalancer (" + lb.Kind + ")", lb.Name, lb.DNSName})
	}
	common.RenderTable([]string{"Kind", "Name", "Status"}, rows)
}

func isRoot(k Kustomization, fluxNamespace string) bool {
	return k.Namespace == fluxNamespace && k.Name == fluxNamespace
}

// Collector gathers the inventory of one cluster.
type Collector struct {
	ClusterName   string
	Clientset     kubernetes.Interface
	Dynamic       dynamic.Interface
	LoadBalancers func(ctx context.Context, clusterName string) ([]elb.LoadBalancer, error)
}

func (c *Collector) Collect(ctx context.Context) (*Inventory, error) {
	inventory := &Inventory{}
	var err error
	if inventory.Kustomizations, err = c.kustomizations(ctx); err != nil {
		return nil, err
	}
	if inventory.Services, err = c.services(ctx); err != nil {
		return nil, err
	}
	list := c.LoadBalancers
	if list == nil {
		list = elb.ClusterLoadBalancers
	}
	if inventory.LoadBalancers, err = list(ctx, c.ClusterName); err != nil {
		return nil, errors.Wrap(err, "listing cluster load balancers")
	}
	return inventory, nil
}

func (c *Collector) kustomizations(ctx context.Context) ([]Kustomization, error) {
	list, err := c.Dynamic.Resource(KustomizationResource).Namespace(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) || meta.IsNoMatchError(err) {
			// flux is not installed
			return nil, nil
		}
		return nil, errors.Wrap(err, "listing kustomizations")
	}
	var out []Kustomization
	for _, item := range list.Items {
		path, _, _ := unstructured.NestedString(item.Object, "spec", "path")
		out = append(out, Kustomization{
			Namespace: item.GetNamespace(),
			Name:      item.GetName(),
			Path:      path,
			Ready:     readyStatus(item),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Namespace != out[j].Namespace {
			return out[i].Namespace < out[j].Namespace
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func readyStatus(item unstructured.Unstructured) string {
	conditions, _, _ := unstructured.NestedSlice(item.Object, "status", "conditions")
	for _, c := range conditions {
		condition, ok := c.(map[string]interface{})
		if !ok || condition["type"] != "Ready" {
			continue
		}
		status, _ := condition["status"].(string)
		if status == "True" {
			return "Ready"
		}
		reason, _ := condition["reason"].(string)
		return "NotReady: " + reason
	}
	return "Unknown"
}

func (c *Collector) services(ctx context.Context) ([]LoadBalancerService, error) {
	list, err := c.Clientset.CoreV1().Services(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "listing services")
	}
	var out []LoadBalancerService
	for _, svc := range list.Items {
		if svc.Spec.Type != corev1.ServiceTypeLoadBalancer {
			continue
		}
		s := LoadBalancerService{Namespace: svc.Namespace, Name: svc.Name}
		for _, ingress := range svc.Status.LoadBalancer.Ingress {
			if ingress.Hostname != "" {
				s.Hostnames = append(s.Hostnames, ingress.Hostname)
			}
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Namespace != out[j].Namespace {
			return out[i].Namespace < out[j].Namespace
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}
