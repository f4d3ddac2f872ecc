package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")

	s, err := NewFileStore(path)
	require.NoError(t, err)

	_, ok, err := s.GetItem("parental_pin")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetItem("parental_pin", "1234"))
	require.NoError(t, s.SetItem("restricted_mode", "true"))

	v, ok, err := s.GetItem("parental_pin")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1234", v)

	// Reopen and verify persistence.
	s2, err := NewFileStore(path)
	require.NoError(t, err)

	v, ok, err = s2.GetItem("restricted_mode")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "true", v)
}

func TestFileStore_MultiRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")

	s, err := NewFileStore(path)
	require.NoError(t, err)

	require.NoError(t, s.SetItem("a", "1"))
	require.NoError(t, s.SetItem("b", "2"))
	require.NoError(t, s.SetItem("c", "3"))

	require.NoError(t, s.MultiRemove([]string{"a", "c", "missing"}))

	_, ok, _ := s.GetItem("a")
	assert.False(t, ok)
	_, ok, _ = s.GetItem("c")
	assert.False(t, ok)
	v, ok, _ := s.GetItem("b")
	assert.True(t, ok)
	assert.Equal(t, "2", v)

	// Removing nothing is a no-op, not an error.
	require.NoError(t, s.MultiRemove([]string{"missing"}))
}

func TestFileStore_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml: ["), 0644))

	s, err := NewFileStore(path)
	require.NoError(t, err)

	_, ok, err := s.GetItem("parental_pin")
	require.NoError(t, err)
	assert.False(t, ok)

	// A write replaces the corrupt file cleanly.
	require.NoError(t, s.SetItem("parental_pin", "0000"))
	s2, err := NewFileStore(path)
	require.NoError(t, err)
	v, ok, _ := s2.GetItem("parental_pin")
	assert.True(t, ok)
	assert.Equal(t, "0000", v)
}

func TestMemStore_FailWrites(t *testing.T) {
	s := NewMemStore()
	require.NoError(t, s.SetItem("k", "v"))

	s.FailWrites = assert.AnError
	assert.Error(t, s.SetItem("k", "other"))
	assert.Error(t, s.MultiRemove([]string{"k"}))

	s.FailWrites = nil
	v, ok, _ := s.GetItem("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}
