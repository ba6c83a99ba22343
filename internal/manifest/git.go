package manifest

import (
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/pkg/errors"
)

// OriginURL returns the https form of the origin remote of the git repository containing dir.
func OriginURL(dir string) (string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", errors.Wrapf(err, "opening git repository at %s", dir)
	}
	remote, err := repo.Remote("origin")
	if err != nil {
		return "", errors.Wrap(err, "reading origin remote")
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", errors.New("origin remote has no url")
	}
	return NormalizeRemoteURL(urls[0]), nil
}

// NormalizeRemoteURL turns scp-like and ssh remotes into https urls without the .git suffix.
func NormalizeRemoteURL(url string) string {
	url = strings.TrimSuffix(url, ".git")
	switch {
	case strings.HasPrefix(url, "ssh://"):
		url = strings.TrimPrefix(url, "ssh://")
		url = url[strings.Index(url, "@")+1:]
		return "https://" + url
	case strings.HasPrefix(url, "git@"):
		url = strings.TrimPrefix(url, "git@")
		return "https://" + strings.Replace(url, ":", "/", 1)
	}
	return url
}
