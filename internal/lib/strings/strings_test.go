package strings

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnyOf(t *testing.T) {
	assert.True(t, AnyOf("SPOT", "ON_DEMAND", "SPOT"))
	assert.False(t, AnyOf("spot", "ON_DEMAND", "SPOT"))
	assert.False(t, AnyOf("x"))
}

func TestHashSuffixed(t *testing.T) {
	assert.Equal(t, "short-name", HashSuffixed("short-name", 64))

	long := strings.Repeat("flux-eks-", 10) + "node-role"
	shortened := HashSuffixed(long, 64)
	assert.Len(t, shortened, 64)
	assert.Equal(t, shortened, HashSuffixed(long, 64), "hash suffix must be stable")
	assert.NotEqual(t, shortened, HashSuffixed(long+"x", 64))
}

func TestListToRefList(t *testing.T) {
	refs := ListToRefList([]string{"a", "b"})
	assert.Len(t, refs, 2)
	assert.Equal(t, "b", *refs[1])
}
