package cluster

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type Resource interface {
	ResourceType() string
	ResourceName() string
	Tags() Tags
	Fetch(ctx context.Context) error
	// DeployedVersion is empty when the resource does not exist.
	DeployedVersion() string
	TargetVersion() string
	Create(ctx context.Context, tags Tags) error
	Update(ctx context.Context, tags Tags) error
	Delete(ctx context.Context) error
}

// Owned is implemented by resources whose live tags name the controller that owns them.
type Owned interface {
	LiveTags() Tags
}

func Address(r Resource) string {
	return r.ResourceType() + "." + r.ResourceName()
}

func Exists(r Resource) bool {
	return r.DeployedVersion() != ""
}

func Diff(r Resource) Action {
	if !Exists(r) {
		return ActionCreate
	}
	if r.DeployedVersion() != r.TargetVersion() {
		return ActionUpdate
	}
	return ActionNoop
}

func EnsureResource(ctx context.Context, r Resource, clusterSettings IClusterSettings) (Action, error) {
	resourceType := r.ResourceType()
	tags := r.Tags().Clone().Update(clusterSettings.Tags())

	err := r.Fetch(ctx)
	if err != nil {
		return ActionNoop, errors.Wrapf(err, "fetching %s", Address(r))
	}

	action := Diff(r)
	if action != ActionCreate {
		if err := CheckOwnership(r, clusterSettings.Owner()); err != nil {
			return action, err
		}
	}

	switch action {
	case ActionCreate:
		log.Info().Msgf("creating resource %s %s ...", resourceType, r.ResourceName())
		err = r.Create(ctx, tags)
	case ActionUpdate:
		log.Info().Msgf("updating resource %s %s ...", resourceType, r.ResourceName())
		err = r.Update(ctx, tags)
	default:
		log.Debug().Msgf("resource %s %s exists and updated", resourceType, r.ResourceName())
	}
	if err != nil {
		return action, errors.Wrapf(err, "%s %s", action, Address(r))
	}
	return action, nil
}

func DestroyResource(ctx context.Context, r Resource, clusterSettings IClusterSettings) (Action, error) {
	err := r.Fetch(ctx)
	if err != nil {
		return ActionNoop, errors.Wrapf(err, "fetching %s", Address(r))
	}
	if !Exists(r) {
		log.Debug().Msgf("resource %s %s is already gone", r.ResourceType(), r.ResourceName())
		return ActionNoop, nil
	}
	if err := CheckOwnership(r, clusterSettings.Owner()); err != nil {
		return ActionDelete, err
	}

	log.Info().Msgf("deleting resource %s %s ...", r.ResourceType(), r.ResourceName())
	if err := r.Delete(ctx); err != nil {
		return ActionDelete, errors.Wrapf(err, "delete %s", Address(r))
	}
	return ActionDelete, nil
}

func UpdateByRecreate(ctx context.Context, r Resource, tags Tags) error {
	if err := r.Delete(ctx); err != nil {
		return err
	}
	return r.Create(ctx, tags)
}
