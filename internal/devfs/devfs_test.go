package devfs

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ia32os/internal/kerrno"
)

func TestResolveParsesMinorFromSuffix(t *testing.T) {
	minor, ok := Resolve("tty0")
	assert.True(t, ok)
	assert.Equal(t, 0, minor)

	minor, ok = Resolve("tty7")
	assert.True(t, ok)
	assert.Equal(t, 7, minor)
}

func TestResolveRejectsOutOfRangeMinor(t *testing.T) {
	_, ok := Resolve("tty8")
	assert.False(t, ok)
}

func TestResolveRejectsNonTTYPath(t *testing.T) {
	_, ok := Resolve("SHELL.ELF")
	assert.False(t, ok)
}

func TestResolveRejectsNonDigitSuffix(t *testing.T) {
	_, ok := Resolve("ttyX")
	assert.False(t, ok)
}

func TestResolveRejectsBareePrefix(t *testing.T) {
	_, ok := Resolve("tty")
	assert.False(t, ok)
}

func TestOpenUnregisteredMinorFails(t *testing.T) {
	_, _, code := Open("tty0")
	assert.Equal(t, kerrno.ErrBadPath, code)
}

func TestOpenRejectsNonTTYPath(t *testing.T) {
	_, _, code := Open("README.TXT")
	assert.Equal(t, kerrno.ErrBadPath, code)
}
