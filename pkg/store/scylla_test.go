package store

import (
	"errors"
	"testing"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveUserName(t *testing.T) {
	name, err := resolveUserName("u1", "User One", nil)
	require.NoError(t, err)
	assert.Equal(t, "User One", name)
}

func TestResolveUserNameFallsBackForMissingProfile(t *testing.T) {
	name, err := resolveUserName("u1", "", gocql.ErrNotFound)
	require.NoError(t, err)
	assert.Equal(t, "u1", name)

	name, err = resolveUserName("u2", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "u2", name)
}

func TestResolveUserNameSurfacesQueryErrors(t *testing.T) {
	_, err := resolveUserName("u1", "", errors.New("no connections were made"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}
