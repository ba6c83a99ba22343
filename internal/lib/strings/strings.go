package strings

import (
	"fmt"
	"hash/fnv"
)

func AnyOf(testString string, variants ...string) bool {
	for _, s := range variants {
		if testString == s {
			return true
		}
	}
	return false
}

// HashSuffixed shortens name to maxLength, replacing the tail with a stable hash of the full name.
func HashSuffixed(name string, maxLength int) string {
	if len(name) <= maxLength {
		return name
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	suffix := fmt.Sprintf("-%08x", h.Sum32())
	if maxLength <= len(suffix) {
		return suffix[len(suffix)-maxLength:]
	}
	return name[:maxLength-len(suffix)] + suffix
}

func ListToRefList(list []string) []*string {
	refs := make([]*string, 0, len(list))
	for i := range list {
		refs = append(refs, &list[i])
	}
	return refs
}
