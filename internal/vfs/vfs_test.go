package vfs

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ia32os/internal/kerrno"
)

func resetMounts() { mounts = nil }

func TestResolvePicksLongestPrefix(t *testing.T) {
	resetMounts()
	Mount("/", nil)
	Mount("/mnt", nil)

	_, rest, code := resolve("/mnt/readme.txt")
	require.Equal(t, kerrno.OK, code)
	require.Equal(t, "readme.txt", rest)
}

func TestResolveFallsBackToShorterPrefix(t *testing.T) {
	resetMounts()
	Mount("/", nil)
	Mount("/mnt", nil)

	_, rest, code := resolve("/etc/config")
	require.Equal(t, kerrno.OK, code)
	require.Equal(t, "etc/config", rest)
}

func TestResolveNoMountReturnsBadPath(t *testing.T) {
	resetMounts()
	_, _, code := resolve("/anything")
	require.Equal(t, kerrno.ErrBadPath, code)
}

func TestOpenWithNoMountsFails(t *testing.T) {
	resetMounts()
	_, code := Open("nonexistent", 0)
	require.Equal(t, kerrno.ErrBadPath, code)
}
