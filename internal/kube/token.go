// Package kube gives the provisioner access to the Kubernetes API of the cluster it
// created, authenticating with IAM the way aws eks get-token does.
package kube

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/service/sts"
	"github.com/aws/aws-sdk-go/service/sts/stsiface"
	"github.com/pkg/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	clientauthv1beta1 "k8s.io/client-go/pkg/apis/clientauthentication/v1beta1"
)

const (
	TokenPrefix     = "k8s-aws-v1."
	ClusterIDHeader = "x-k8s-aws-id"

	ExecAPIVersion = "client.authentication.k8s.io/v1beta1"

	presignExpiry = 60 * time.Second
	// the API server accepts a presigned url for 15 minutes
	tokenLifetime = 14 * time.Minute
	refreshBuffer = time.Minute
)

type Token struct {
	Value      string
	Expiration time.Time
}

type generateFunc func(ctx context.Context) (Token, error)

// TokenProvider caches a bearer token until one minute before it expires.
type TokenProvider struct {
	mu       sync.Mutex
	token    Token
	now      func() time.Time
	generate generateFunc
}

func NewTokenProvider(svc stsiface.STSAPI, clusterName string) *TokenProvider {
	tp := &TokenProvider{now: time.Now}
	tp.generate = func(ctx context.Context) (Token, error) {
		return GenerateToken(ctx, svc, clusterName, tp.now())
	}
	return tp
}

// GenerateToken presigns sts:GetCallerIdentity with the cluster name bound into the
// signature.
func GenerateToken(ctx context.Context, svc stsiface.STSAPI, clusterName string, now time.Time) (Token, error) {
	req, _ := svc.GetCallerIdentityRequest(&sts.GetCallerIdentityInput{})
	req.SetContext(ctx)
	req.HTTPRequest.Header.Add(ClusterIDHeader, clusterName)
	presigned, err := req.Presign(presignExpiry)
	if err != nil {
		return Token{}, errors.Wrap(err, "presigning sts:GetCallerIdentity")
	}
	return Token{
		Value:      TokenPrefix + base64.RawURLEncoding.EncodeToString([]byte(presigned)),
		Expiration: now.Add(tokenLifetime),
	}, nil
}

func (tp *TokenProvider) Token(ctx context.Context) (Token, error) {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	if tp.token.Value != "" && tp.token.Expiration.Sub(tp.now()) > refreshBuffer {
		return tp.token, nil
	}
	token, err := tp.generate(ctx)
	if err != nil {
		return Token{}, errors.Wrap(err, "generating EKS token")
	}
	tp.token = token
	return token, nil
}

func (tp *TokenProvider) WrapTransport(rt http.RoundTripper) http.RoundTripper {
	return &tokenTransport{base: rt, provider: tp}
}

type tokenTransport struct {
	base     http.RoundTripper
	provider *TokenProvider
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.provider.Token(req.Context())
	if err != nil {
		return nil, err
	}
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+token.Value)
	return t.base.RoundTrip(req)
}

// ExecCredential renders the token as the output of a kubeconfig exec plugin.
func ExecCredential(token Token) ([]byte, error) {
	expiration := metav1.NewTime(token.Expiration.UTC())
	credential := clientauthv1beta1.ExecCredential{
		TypeMeta: metav1.TypeMeta{
			APIVersion: ExecAPIVersion,
			Kind:       "ExecCredential",
		},
		Status: &clientauthv1beta1.ExecCredentialStatus{
			Token:               token.Value,
			ExpirationTimestamp: &expiration,
		},
	}
	return json.MarshalIndent(credential, "", "  ")
}
