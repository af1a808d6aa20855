package keypath

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	syncerrors "github.com/standardbeagle/i18nsync/internal/errors"
)

func TestValidate(t *testing.T) {
	valid := []string{"a", "common.ok", "auth.login-form.submit_btn", "list.0", "A1.b2"}
	for _, k := range valid {
		assert.NoError(t, Validate(k), k)
	}

	invalid := []string{"", ".a", "a.", "a..b", "a b", "a/b", "ключ", "a.$b"}
	for _, k := range invalid {
		err := Validate(k)
		assert.ErrorIs(t, err, syncerrors.ErrInvalidKeyPath, k)
	}
}

func TestParse(t *testing.T) {
	segs, err := Parse("auth.login.title")
	require.NoError(t, err)
	assert.Equal(t, []string{"auth", "login", "title"}, segs)

	// second parse comes from the cache
	before := CacheStats().Hits
	_, err = Parse("auth.login.title")
	require.NoError(t, err)
	assert.Equal(t, before+1, CacheStats().Hits)

	_, err = Parse("bad..key")
	assert.Error(t, err)
}

func TestParentChild(t *testing.T) {
	p, ok := Parent("a.b.c")
	assert.True(t, ok)
	assert.Equal(t, "a.b", p)

	_, ok = Parent("a")
	assert.False(t, ok)

	assert.Equal(t, "a.b", Child("a", "b"))
	assert.Equal(t, "b", Child("", "b"))
	assert.Equal(t, "c", LastSegment("a.b.c"))
	assert.Equal(t, 3, Depth("a.b.c"))
	assert.Equal(t, 0, Depth(""))
}

func TestIsDescendant(t *testing.T) {
	assert.True(t, IsDescendant("a.b", "a"))
	assert.True(t, IsDescendant("a.b.c", "a"))
	assert.False(t, IsDescendant("ab.c", "a"))
	assert.False(t, IsDescendant("a", "a"))
	assert.True(t, IsDescendant("a", ""))

	assert.True(t, IsDirectChild("a.b", "a"))
	assert.False(t, IsDirectChild("a.b.c", "a"))
	assert.True(t, IsDirectChild("a", ""))
	assert.False(t, IsDirectChild("a.b", ""))
}

func TestCommonPrefix(t *testing.T) {
	assert.Equal(t, "auth", CommonPrefix("auth.login", "auth.logout"))
	assert.Equal(t, "auth.login", CommonPrefix("auth.login.title", "auth.login.submit"))
	assert.Equal(t, "", CommonPrefix("auth.login", "common.ok"))
	assert.Equal(t, "a.b", CommonPrefix("a.b"))
	assert.Equal(t, "", CommonPrefix())
}

func TestCompare(t *testing.T) {
	keys := []string{"a.b", "a", "a-b", "a.a.z", "b"}
	sort.Slice(keys, func(i, j int) bool { return Compare(keys[i], keys[j]) < 0 })
	assert.Equal(t, []string{"a", "a.a.z", "a.b", "a-b", "b"}, keys)
}
