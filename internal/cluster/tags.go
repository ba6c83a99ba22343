package cluster

import (
	"sort"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/iam"
	"github.com/pkg/errors"
)

type Tags map[string]string
type TagsRefsValues map[string]*string

const (
	ManagedTagKey     = "ekscd.io/managed"
	APIVersionTagKey  = "ekscd.io/api_version"
	VersionTagKey     = "ekscd.io/version"
	ClusterNameTagKey = "ekscd.io/cluster_name"
	OwnerTagKey       = "ekscd.io/owner"

	NameTagKey       = "Name"
	RepositoryTagKey = "Repository"
)

var ErrEmptyName = errors.New("the Name default tag must be set, every resource name is derived from it")

// NamedTags are the provider-level default tags applied to every resource.
type NamedTags map[string]string

// NamePrefix returns the canonical prefix of every resource name.
func (n NamedTags) NamePrefix() (string, error) {
	name := n[NameTagKey]
	if name == "" {
		return "", ErrEmptyName
	}
	return name, nil
}

func (n NamedTags) Repository() string {
	return n[RepositoryTagKey]
}

func (t Tags) Update(tags Tags) Tags {
	for k, v := range tags {
		t[k] = v
	}
	return t
}

func (t Tags) Clone() Tags {
	newTags := Tags{}
	for k, v := range t {
		newTags[k] = v
	}
	return newTags
}

func (t Tags) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (t Tags) AsStringRefs() TagsRefsValues {
	tagsRefs := TagsRefsValues{}
	for key, value := range t {
		v := value
		tagsRefs[key] = &v
	}
	return tagsRefs
}

func (t Tags) AsIam() []*iam.Tag {
	var iamTags []*iam.Tag
	for _, key := range t.Keys() {
		iamTags = append(iamTags, &iam.Tag{
			Key:   aws.String(key),
			Value: aws.String(t[key]),
		})
	}
	return iamTags
}

func FromStringRefs(refs map[string]*string) Tags {
	tags := Tags{}
	for key, value := range refs {
		tags[key] = aws.StringValue(value)
	}
	return tags
}

func FromIam(iamTags []*iam.Tag) Tags {
	tags := Tags{}
	for _, tag := range iamTags {
		tags[aws.StringValue(tag.Key)] = aws.StringValue(tag.Value)
	}
	return tags
}

func GetResourceVersionTag(version string) Tags {
	return Tags{
		VersionTagKey: version,
	}
}
