// Package awstest provides in-memory fakes of the AWS APIs the provisioner drives.
package awstest

import (
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go/aws/awserr"

	"ekscd/internal/connectors"
)

const (
	Region    = "eu-west-1"
	AccountID = "123456789012"
)

// Cloud holds the fakes and the ordered list of mutating calls made against them.
type Cloud struct {
	mu    sync.Mutex
	calls []string

	IAM  *IAM
	Logs *Logs
	EKS  *EKS
}

func NewCloud() *Cloud {
	c := &Cloud{}
	c.IAM = &IAM{cloud: c, roles: map[string]*role{}}
	c.Logs = &Logs{cloud: c, groups: map[string]*logGroup{}}
	c.EKS = newEKS(c)
	return c
}

// Install replaces the session clients with the fakes until restore is called.
func (c *Cloud) Install() (restore func()) {
	return connectors.SetAWSSession(&connectors.SAwsSession{
		IAM:  c.IAM,
		Logs: c.Logs,
		EKS:  c.EKS,
	})
}

func (c *Cloud) record(format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, fmt.Sprintf(format, args...))
}

// Calls returns the mutating calls made so far, such as "eks:CreateCluster demo-cluster".
func (c *Cloud) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func (c *Cloud) ResetCalls() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = nil
}

func notFound(code, format string, args ...interface{}) error {
	return awserr.New(code, fmt.Sprintf(format, args...), nil)
}

// copyTags keeps a nil map nil, the APIs omit tags on untagged resources.
func copyTags(tags map[string]*string) map[string]*string {
	if tags == nil {
		return nil
	}
	out := map[string]*string{}
	for k, v := range tags {
		value := *v
		out[k] = &value
	}
	return out
}
