package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ia32os/internal/kerrno"
)

func resetTable() {
	for maj := range table {
		for min := range table[maj] {
			table[maj][min] = slot{}
		}
	}
}

func TestRegisterAndOpenInvokesVTable(t *testing.T) {
	resetTable()
	opened := false
	vt := &VTable{
		Open: func(minor int) kerrno.Code {
			opened = true
			return kerrno.OK
		},
	}
	require.Equal(t, kerrno.OK, Register(MajorTTY, 3, vt))

	got, code := Open(MajorTTY, 3)
	require.Equal(t, kerrno.OK, code)
	assert.True(t, opened)
	assert.Same(t, vt, got)
	assert.Equal(t, 1, OpenCount(MajorTTY, 3))
}

func TestOpenUnregisteredMinorFails(t *testing.T) {
	resetTable()
	_, code := Open(MajorTTY, 5)
	assert.Equal(t, kerrno.ErrBadPath, code)
}

func TestCloseOnlyInvokesHookAtZeroCount(t *testing.T) {
	resetTable()
	closes := 0
	vt := &VTable{
		Open:  func(minor int) kerrno.Code { return kerrno.OK },
		Close: func(minor int) kerrno.Code { closes++; return kerrno.OK },
	}
	require.Equal(t, kerrno.OK, Register(MajorTTY, 0, vt))

	Open(MajorTTY, 0)
	Open(MajorTTY, 0)
	require.Equal(t, 2, OpenCount(MajorTTY, 0))

	assert.Equal(t, kerrno.OK, Close(MajorTTY, 0))
	assert.Equal(t, 0, closes)
	assert.Equal(t, 1, OpenCount(MajorTTY, 0))

	assert.Equal(t, kerrno.OK, Close(MajorTTY, 0))
	assert.Equal(t, 1, closes)
	assert.Equal(t, 0, OpenCount(MajorTTY, 0))
}

func TestRegisterRejectsOutOfRangeMinor(t *testing.T) {
	resetTable()
	code := Register(MajorTTY, MaxMinorsPerMajor, &VTable{})
	assert.Equal(t, kerrno.ErrInval, code)
}
