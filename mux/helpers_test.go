package mux

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanPath(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty path", input: "", expected: "/"},
		{name: "root path", input: "/", expected: "/"},
		{name: "simple path", input: "/foo", expected: "/foo"},
		{name: "trailing slash", input: "/foo/", expected: "/foo/"},
		{name: "double slash", input: "/foo//bar", expected: "/foo/bar"},
		{name: "dot segments", input: "/foo/./bar", expected: "/foo/bar"},
		{name: "dotdot segments", input: "/foo/bar/../baz", expected: "/foo/baz"},
		{name: "no leading slash", input: "foo", expected: "/foo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, cleanPath(tt.input))
		})
	}
}

func TestJoinPath(t *testing.T) {
	tests := []struct {
		name     string
		segments []string
		expected string
	}{
		{name: "nothing", segments: nil, expected: "/"},
		{name: "root", segments: []string{"/"}, expected: "/"},
		{name: "prefix and uri", segments: []string{"admin", "users"}, expected: "/admin/users"},
		{name: "surplus slashes", segments: []string{"/admin/", "/users/"}, expected: "/admin/users"},
		{name: "empty prefix", segments: []string{"", "users/{id}"}, expected: "/users/{id}"},
		{name: "nested", segments: []string{"a//b", "c"}, expected: "/a/b/c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, joinPath(tt.segments...))
		})
	}
}

func TestJoinName(t *testing.T) {
	assert.Equal(t, "admin.users.show", joinName("admin.", "users.", "show"))
	assert.Equal(t, "admin.users", joinName("admin..", ".users"))
	assert.Equal(t, "", joinName("", ""))
}

func TestRandomName(t *testing.T) {
	a := randomName()
	b := randomName()

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}

func TestCheckPairs(t *testing.T) {
	t.Run("valid pairs", func(t *testing.T) {
		n, err := checkPairs("a", "b", "c", "d")
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("odd number of pairs", func(t *testing.T) {
		_, err := checkPairs("a", "b", "c")
		assert.Error(t, err)
	})
}

func TestMapFromPairsToString(t *testing.T) {
	t.Run("valid pairs", func(t *testing.T) {
		m, err := mapFromPairsToString("key1", "val1", "key2", "val2")
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"key1": "val1", "key2": "val2"}, m)
	})

	t.Run("odd number of pairs returns error", func(t *testing.T) {
		_, err := mapFromPairsToString("key1")
		assert.Error(t, err)
	})
}

func TestMatchInArray(t *testing.T) {
	assert.True(t, matchInArray([]string{"a", "b", "c"}, "b"))
	assert.False(t, matchInArray([]string{"a", "b", "c"}, "d"))
	assert.False(t, matchInArray(nil, "a"))
}

func TestSplitMiddleware(t *testing.T) {
	tests := []struct {
		id     string
		base   string
		params []string
	}{
		{id: "auth", base: "auth"},
		{id: "throttle:60,1", base: "throttle", params: []string{"60", "1"}},
		{id: "can:edit", base: "can", params: []string{"edit"}},
		{id: "empty:", base: "empty"},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			base, params := splitMiddleware(tt.id)
			assert.Equal(t, tt.base, base)
			assert.Equal(t, tt.params, params)
		})
	}
}
