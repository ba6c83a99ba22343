package cluster

import (
	"strings"

	"github.com/pkg/errors"
)

//goland:noinspection GoNameStartsWithPackageName
type ClusterName string

type IClusterSettings interface {
	Tags() Tags
	Owner() Owner
}

// Settings carries the tags every resource of one cluster is stamped with.
type Settings struct {
	ClusterName ClusterName
	DefaultTags NamedTags
	OwnedBy     Owner
}

func (s Settings) Tags() Tags {
	return Tags(s.DefaultTags).Clone().Update(Tags{
		ManagedTagKey:     "true",
		APIVersionTagKey:  "v1",
		ClusterNameTagKey: string(s.ClusterName),
		OwnerTagKey:       string(s.OwnedBy),
	})
}

func (s Settings) Owner() Owner {
	return s.OwnedBy
}

// ParseTagsList turns repeated "key=value" flags into Tags.
func ParseTagsList(tagsList []string) (Tags, error) {
	tags := make(Tags)
	for _, tag := range tagsList {
		keyVal := strings.Split(tag, "=")
		if len(keyVal) != 2 || keyVal[0] == "" {
			return nil, errors.Errorf("invalid tag %q, expected key=value and =(equal sign) is not allowed in keys and values", tag)
		}
		tags[keyVal[0]] = keyVal[1]
	}
	return tags, nil
}
