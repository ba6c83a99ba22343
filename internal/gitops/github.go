package gitops

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v55/github"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"ekscd/internal/logging"
	"ekscd/internal/manifest"
)

var ErrMissingToken = errors.New("GITHUB_TOKEN must be set, flux bootstrap authenticates to GitHub with it")

// Preflight checks GitHub access before flux bootstrap is started.
type Preflight struct {
	Token string
	// BaseURL overrides api.github.com, used for GitHub Enterprise and tests.
	BaseURL string
}

func (p Preflight) client(ctx context.Context) (*github.Client, error) {
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: p.Token}))
	client := github.NewClient(httpClient)
	if p.BaseURL != "" {
		base := p.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		parsed, err := url.Parse(base)
		if err != nil {
			return nil, errors.Wrap(err, "github base url")
		}
		client.BaseURL = parsed
	}
	return client, nil
}

// Check verifies the token, that a personal repository belongs to the token's user, and
// reports whether the repository exists yet. A missing repository is created by flux.
func (p Preflight) Check(ctx context.Context, spec manifest.GitOpsSpec) (exists bool, err error) {
	if p.Token == "" {
		return false, ErrMissingToken
	}
	client, err := p.client(ctx)
	if err != nil {
		return false, err
	}

	user, _, err := client.Users.Get(ctx, "")
	if err != nil {
		return false, errors.Wrap(err, "GITHUB_TOKEN was rejected by GitHub")
	}
	login := user.GetLogin()
	log.Debug().Msgf("github token belongs to %s", login)
	if spec.IsPersonal() && !strings.EqualFold(login, spec.Owner) {
		return false, errors.Errorf("gitops.personal is set but the token belongs to %s, not %s", login, spec.Owner)
	}

	repo, resp, err := client.Repositories.Get(ctx, spec.Owner, spec.Repository)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			logging.UserInfo("Repository %s/%s does not exist yet, flux will create it", spec.Owner, spec.Repository)
			return false, nil
		}
		return false, errors.Wrapf(err, "reading repository %s/%s", spec.Owner, spec.Repository)
	}
	if repo.GetPrivate() != spec.IsPrivate() {
		logging.UserWarning("repository %s is private=%t while gitops.private is %t", repo.GetFullName(), repo.GetPrivate(), spec.IsPrivate())
	}
	return true, nil
}
