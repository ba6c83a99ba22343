// Package gitops drives the Flux side of the cluster: bootstrapping it, listing what it
// created, and unwinding it before the provisioned infrastructure is destroyed.
package gitops

import (
	"context"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"ekscd/internal/manifest"
)

// Runner executes an external program, exec.CommandContext in production.
type Runner interface {
	Run(ctx context.Context, name string, args []string, env []string, stdout, stderr io.Writer) error
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args []string, env []string, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// Flux wraps the flux CLI against one cluster.
type Flux struct {
	Binary      string
	Kubeconfig  string
	GithubToken string
	Stdout      io.Writer
	Stderr      io.Writer
	Runner      Runner
}

func NewFlux(binary, kubeconfig, githubToken string) *Flux {
	return &Flux{
		Binary:      binary,
		Kubeconfig:  kubeconfig,
		GithubToken: githubToken,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		Runner:      execRunner{},
	}
}

func (f *Flux) env() []string {
	var env []string
	if f.Kubeconfig != "" {
		env = append(env, "KUBECONFIG="+f.Kubeconfig)
	}
	if f.GithubToken != "" {
		env = append(env, "GITHUB_TOKEN="+f.GithubToken)
	}
	return env
}

func (f *Flux) run(ctx context.Context, args ...string) error {
	log.Debug().Msgf("running %s %s", f.Binary, strings.Join(args, " "))
	err := f.Runner.Run(ctx, f.Binary, args, f.env(), f.Stdout, f.Stderr)
	if err != nil {
		return errors.Wrapf(err, "%s %s", f.Binary, args[0])
	}
	return nil
}

func BootstrapArgs(spec manifest.GitOpsSpec) []string {
	return []string{
		"bootstrap", "github",
		"--owner=" + spec.Owner,
		"--repository=" + spec.Repository,
		"--branch=" + spec.Branch,
		"--path=" + spec.Path,
		"--personal=" + strconv.FormatBool(spec.IsPersonal()),
		"--private=" + strconv.FormatBool(spec.IsPrivate()),
		"--namespace=" + spec.Namespace,
	}
}

func (f *Flux) Bootstrap(ctx context.Context, spec manifest.GitOpsSpec) error {
	if f.GithubToken == "" {
		return ErrMissingToken
	}
	return f.run(ctx, BootstrapArgs(spec)...)
}

func (f *Flux) DeleteKustomization(ctx context.Context, namespace, name string) error {
	return f.run(ctx, "delete", "kustomization", name, "--namespace="+namespace, "--silent")
}

func (f *Flux) Uninstall(ctx context.Context, namespace string) error {
	return f.run(ctx, "uninstall", "--namespace="+namespace, "--silent")
}

func (f *Flux) Logs(ctx context.Context, namespace, level string, follow bool) error {
	args := []string{"logs", "--flux-namespace=" + namespace}
	if level != "" {
		args = append(args, "--level="+level)
	}
	if follow {
		args = append(args, "--follow")
	}
	return f.run(ctx, args...)
}
