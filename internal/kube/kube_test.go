package kube

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sts"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/client-go/tools/clientcmd"

	"ekscd/internal/aws/awstest"
	awseks "ekscd/internal/aws/eks"
	"ekscd/internal/cluster"
)

func stsClient(t *testing.T) *sts.STS {
	t.Helper()
	sess, err := session.NewSession(&aws.Config{
		Region:      aws.String(awstest.Region),
		Credentials: credentials.NewStaticCredentials("AKIDEXAMPLE", "secret", ""),
	})
	require.NoError(t, err)
	return sts.New(sess)
}

func TestGenerateTokenPresignsCallerIdentity(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	token, err := GenerateToken(context.Background(), stsClient(t), "demo-cluster", now)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(token.Value, TokenPrefix))
	assert.Equal(t, now.Add(14*time.Minute), token.Expiration)

	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(token.Value, TokenPrefix))
	require.NoError(t, err)
	presigned, err := url.Parse(string(raw))
	require.NoError(t, err)
	query := presigned.Query()
	assert.Equal(t, "GetCallerIdentity", query.Get("Action"))
	assert.Equal(t, "60", query.Get("X-Amz-Expires"))
	assert.Contains(t, query.Get("X-Amz-SignedHeaders"), ClusterIDHeader)
	assert.NotEmpty(t, query.Get("X-Amz-Signature"))
}

func TestTokenProviderCaches(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	generated := 0
	tp := &TokenProvider{
		now: func() time.Time { return now },
		generate: func(context.Context) (Token, error) {
			generated++
			return Token{Value: TokenPrefix + "t", Expiration: now.Add(tokenLifetime)}, nil
		},
	}
	ctx := context.Background()

	_, err := tp.Token(ctx)
	require.NoError(t, err)
	_, err = tp.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, generated)

	now = now.Add(13*time.Minute + time.Second)
	_, err = tp.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, generated)
}

func TestTokenProviderError(t *testing.T) {
	tp := &TokenProvider{
		now: time.Now,
		generate: func(context.Context) (Token, error) {
			return Token{}, errors.New("no credentials")
		},
	}
	_, err := tp.Token(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no credentials")
}

func TestTransportSetsBearer(t *testing.T) {
	var header string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Get("Authorization")
	}))
	defer server.Close()

	tp := &TokenProvider{
		now: time.Now,
		generate: func(context.Context) (Token, error) {
			return Token{Value: "k8s-aws-v1.abc", Expiration: time.Now().Add(time.Hour)}, nil
		},
	}
	client := &http.Client{Transport: tp.WrapTransport(http.DefaultTransport)}
	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, "Bearer k8s-aws-v1.abc", header)
}

func TestExecCredential(t *testing.T) {
	out, err := ExecCredential(Token{Value: "k8s-aws-v1.abc", Expiration: time.Date(2024, 5, 1, 12, 14, 0, 0, time.UTC)})
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, ExecAPIVersion, decoded["apiVersion"])
	assert.Equal(t, "ExecCredential", decoded["kind"])
	status := decoded["status"].(map[string]interface{})
	assert.Equal(t, "k8s-aws-v1.abc", status["token"])
	assert.Equal(t, "2024-05-01T12:14:00Z", status["expirationTimestamp"])
}

func TestKubeconfigRoundTrip(t *testing.T) {
	info := ClusterInfo{Name: "demo-cluster", Endpoint: "https://demo.example.com", CAData: awstest.CAData}
	config, err := Kubeconfig(info, KubeconfigOptions{Region: "eu-west-1"})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "kube", "config")
	require.NoError(t, WriteKubeconfig(config, path))

	loaded, err := clientcmd.LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "demo-cluster", loaded.CurrentContext)
	assert.Equal(t, "https://demo.example.com", loaded.Clusters["demo-cluster"].Server)
	assert.Equal(t, []byte(awstest.CAPEM), loaded.Clusters["demo-cluster"].CertificateAuthorityData)
	exec := loaded.AuthInfos["demo-cluster"].Exec
	require.NotNil(t, exec)
	assert.Equal(t, "ekscd", exec.Command)
	assert.Equal(t, []string{"kube", "token", "--cluster", "demo-cluster", "--region", "eu-west-1"}, exec.Args)
	assert.Equal(t, ExecAPIVersion, exec.APIVersion)
}

func TestKubeconfigRejectsBadCA(t *testing.T) {
	_, err := Kubeconfig(ClusterInfo{Name: "x", CAData: "%%%"}, KubeconfigOptions{})
	assert.Error(t, err)
	_, err = RestConfig(ClusterInfo{Name: "x", CAData: "%%%"}, &TokenProvider{})
	assert.Error(t, err)
}

func TestDescribeAndClients(t *testing.T) {
	cloud := awstest.NewCloud()
	t.Cleanup(cloud.Install())
	ctx := context.Background()

	_, err := Describe(ctx, "demo-cluster")
	require.Error(t, err)

	_, err = awseks.CreateCluster(ctx, awseks.ClusterSpec{
		Name:         "demo-cluster",
		RoleArn:      "arn:aws:iam::123456789012:role/demo-cluster-role",
		Version:      "1.29",
		SubnetIDs:    []string{"subnet-a"},
		PublicAccess: true,
	}, cluster.Tags{})
	require.NoError(t, err)

	info, err := Describe(ctx, "demo-cluster")
	require.NoError(t, err)
	assert.Equal(t, "https://demo-cluster.eks.example.com", info.Endpoint)
	assert.Equal(t, awstest.CAData, info.CAData)

	config, err := RestConfig(info, &TokenProvider{})
	require.NoError(t, err)
	assert.Equal(t, []byte(awstest.CAPEM), config.TLSClientConfig.CAData)
	clients, err := NewClients(config)
	require.NoError(t, err)
	assert.NotNil(t, clients.Clientset)
	assert.NotNil(t, clients.Dynamic)
}
