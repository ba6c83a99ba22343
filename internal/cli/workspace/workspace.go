// Package workspace loads what every command needs: the manifest, the process
// environment and the stack derived from them.
package workspace

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	awscluster "ekscd/internal/aws/cluster"
	"ekscd/internal/aws/elb"
	"ekscd/internal/cluster"
	"ekscd/internal/env"
	"ekscd/internal/gitops"
	"ekscd/internal/kube"
	"ekscd/internal/logging"
	"ekscd/internal/manifest"
	"ekscd/internal/provision"
	"ekscd/internal/state"
)

// Input is read by Confirm.
var Input io.Reader = os.Stdin

type Workspace struct {
	Manifest    *manifest.Manifest
	Environment env.Environment
	Stack       *awscluster.Stack
}

// Load reads the manifest named by --manifest. The region flag wins over the manifest
// region, and must be settled before the first AWS call creates the session.
func Load() (*Workspace, error) {
	environment, err := env.LoadEnvironment()
	if err != nil {
		return nil, err
	}
	path := env.Config.Manifest
	if path == "" {
		path = manifest.DefaultPath
	}
	m, err := manifest.Load(path)
	if err != nil {
		return nil, err
	}
	if env.Config.Region == "" {
		env.Config.Region = m.Region
	}
	stack, err := awscluster.NewStack(m)
	if err != nil {
		return nil, err
	}
	log.Debug().Msgf("loaded %s for cluster %s in %s", m.Path(), stack.Names.Cluster, env.Config.Region)
	return &Workspace{Manifest: m, Environment: environment, Stack: stack}, nil
}

func (w *Workspace) ClusterName() string {
	return w.Stack.Names.Cluster
}

func (w *Workspace) OpenStore(ctx context.Context) (state.Store, error) {
	return provision.OpenStore(ctx, w.Manifest, w.Environment.StatePath)
}

func (w *Workspace) FluxNamespace() string {
	return w.Manifest.GitOps.Namespace
}

// Collector connects to the live cluster and returns an inventory collector for it.
func (w *Workspace) Collector(ctx context.Context) (*gitops.Collector, *kube.Clients, error) {
	clients, err := kube.Connect(ctx, w.ClusterName())
	if err != nil {
		return nil, nil, err
	}
	return &gitops.Collector{
		ClusterName:   w.ClusterName(),
		Clientset:     clients.Clientset,
		Dynamic:       clients.Dynamic,
		LoadBalancers: elb.ClusterLoadBalancers,
	}, clients, nil
}

// Confirm asks a yes/no question. Only "yes" confirms.
func Confirm(question string) bool {
	logging.UserWarning("%s", question)
	_, _ = fmt.Fprint(logging.Output, "Enter 'yes' to continue: ")
	answer, err := bufio.NewReader(Input).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	return strings.TrimSpace(answer) == "yes"
}

func actionColor(action cluster.Action) string {
	switch action {
	case cluster.ActionCreate:
		return logging.ColorSuccess
	case cluster.ActionUpdate:
		return logging.ColorWarning
	case cluster.ActionDelete:
		return logging.ColorFailure
	}
	return ""
}
