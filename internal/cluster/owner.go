package cluster

import (
	"fmt"

	"github.com/pkg/errors"
)

// Owner names the controller allowed to mutate a resource.
type Owner string

const (
	OwnerProvisioner Owner = "ekscd"
	OwnerGitOps      Owner = "flux"
)

type OwnershipError struct {
	Address  string
	Expected Owner
	Actual   Owner
}

func (e *OwnershipError) Error() string {
	if e.Actual == "" {
		return fmt.Sprintf("%s exists but carries no %s tag, refusing to mutate a resource owned by nobody we know", e.Address, OwnerTagKey)
	}
	return fmt.Sprintf("%s is owned by %q, refusing to mutate it as %q", e.Address, e.Actual, e.Expected)
}

func IsOwnershipError(err error) bool {
	var ownershipError *OwnershipError
	return errors.As(err, &ownershipError)
}

// CheckOwnership refuses an existing resource whose owner tag does not name owner.
// A resource that exists without any tags is refused too.
func CheckOwnership(r Resource, owner Owner) error {
	owned, ok := r.(Owned)
	if !ok || !Exists(r) {
		return nil
	}
	actual := Owner(owned.LiveTags()[OwnerTagKey])
	if actual != owner {
		return &OwnershipError{
			Address:  Address(r),
			Expected: owner,
			Actual:   actual,
		}
	}
	return nil
}
