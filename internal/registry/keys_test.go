package registry

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeIDKey_NumericOrderMatchesByteOrder(t *testing.T) {
	k9, err := codeIDKey("chain-A", 9)
	require.NoError(t, err)
	k10, err := codeIDKey("chain-A", 10)
	require.NoError(t, err)
	k256, err := codeIDKey("chain-A", 256)
	require.NoError(t, err)

	assert.Equal(t, -1, bytes.Compare(k9, k10))
	assert.Equal(t, -1, bytes.Compare(k10, k256))
}

func TestNamePrefix_IsExactForNameAndChain(t *testing.T) {
	// "ab"+"c" and "a"+"bc" must not share a prefix
	p1, err := namePrefix("ab", "c")
	require.NoError(t, err)
	p2, err := namePrefix("a", "bc")
	require.NoError(t, err)
	assert.False(t, bytes.HasPrefix(p1, p2))
	assert.False(t, bytes.HasPrefix(p2, p1))

	// chain "x" must not match chain "xy"
	k, err := nameKey("name", "xy", "1.0.0")
	require.NoError(t, err)
	p, err := namePrefix("name", "x")
	require.NoError(t, err)
	assert.False(t, bytes.HasPrefix(k, p))

	k, err = nameKey("name", "x", "1.0.0")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(k, p))
}

func TestNameKey_VersionOrdersBytewise(t *testing.T) {
	k9, err := nameKey("n", "c", "0.0.9")
	require.NoError(t, err)
	k10, err := nameKey("n", "c", "0.0.10")
	require.NoError(t, err)

	// no semver: "0.0.10" sorts before "0.0.9"
	assert.Equal(t, -1, bytes.Compare(k10, k9))
}

func TestKeys_NamespacesDoNotCollide(t *testing.T) {
	ck, err := codeIDKey("c", 1)
	require.NoError(t, err)
	np, err := namePrefix("", "")
	require.NoError(t, err)

	assert.False(t, bytes.HasPrefix(ck, np))
	assert.False(t, bytes.HasPrefix([]byte(adminKey), ck[:2]))
}

func TestKeys_RejectOversizedComponents(t *testing.T) {
	long := strings.Repeat("x", 0x10000)

	_, err := codeIDKey(long, 1)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = nameKey(long, "c", "v")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = namePrefix("n", long)
	assert.ErrorIs(t, err, ErrInvalidInput)

	// version is the raw suffix and has no length limit
	_, err = nameKey("n", "c", long)
	assert.NoError(t, err)
}
