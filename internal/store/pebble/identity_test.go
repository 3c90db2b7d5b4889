package pebble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityRoundTrip(t *testing.T) {
	s, err := OpenInMemory()
	require.NoError(t, err)
	defer s.Close()

	name, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, name)

	require.NoError(t, s.Save("alice"))
	name, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, "alice", name)

	require.NoError(t, s.Save("bob"))
	name, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, "bob", name)

	require.NoError(t, s.Remove())
	require.NoError(t, s.Remove())
	name, err = s.Load()
	require.NoError(t, err)
	assert.Empty(t, name)
}

func TestIdentitySurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Save("carol"))
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()

	name, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "carol", name)
}
