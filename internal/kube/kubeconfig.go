package kube

import (
	"encoding/base64"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"k8s.io/client-go/tools/clientcmd"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"
)

// KubeconfigOptions controls the exec plugin the kubeconfig user runs.
type KubeconfigOptions struct {
	// Command is the ekscd binary, "ekscd" when empty.
	Command string
	Region  string
	Profile string
}

// Kubeconfig has a single context whose user fetches tokens through
// "ekscd kube token".
func Kubeconfig(info ClusterInfo, opts KubeconfigOptions) (*clientcmdapi.Config, error) {
	ca, err := base64.StdEncoding.DecodeString(info.CAData)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding certificate authority of %s", info.Name)
	}
	command := opts.Command
	if command == "" {
		command = "ekscd"
	}
	args := []string{"kube", "token", "--cluster", info.Name}
	if opts.Region != "" {
		args = append(args, "--region", opts.Region)
	}
	if opts.Profile != "" {
		args = append(args, "--profile", opts.Profile)
	}

	config := clientcmdapi.NewConfig()
	config.Clusters[info.Name] = &clientcmdapi.Cluster{
		Server:                   info.Endpoint,
		CertificateAuthorityData: ca,
	}
	config.AuthInfos[info.Name] = &clientcmdapi.AuthInfo{
		Exec: &clientcmdapi.ExecConfig{
			APIVersion:      ExecAPIVersion,
			Command:         command,
			Args:            args,
			InteractiveMode: clientcmdapi.NeverExecInteractiveMode,
		},
	}
	config.Contexts[info.Name] = &clientcmdapi.Context{
		Cluster:  info.Name,
		AuthInfo: info.Name,
	}
	config.CurrentContext = info.Name
	return config, nil
}

func WriteKubeconfig(config *clientcmdapi.Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return clientcmd.WriteToFile(*config, path)
}
