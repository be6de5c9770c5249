package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLifecycle(t *testing.T) {
	s, err := NewSession(32, nil)
	require.NoError(t, err)

	e := s.register(DimSolid, &record{})
	assert.Equal(t, DimSolid, e.Dim)
	assert.Len(t, s.Entities(), 1)

	require.NoError(t, s.Remove(e))
	assert.Empty(t, s.Entities())
	require.Error(t, s.Remove(e))

	s.Close()
	assert.ErrorIs(t, s.Remove(e), ErrClosed)
	_, err = s.Mesh(e)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSessionRejectsTinyResolution(t *testing.T) {
	_, err := NewSession(1, nil)
	require.Error(t, err)
}

func TestSessionEntitiesDeterministicOrder(t *testing.T) {
	s, err := NewSession(32, nil)
	require.NoError(t, err)
	defer s.Close()

	surf := s.register(DimSurface, &record{})
	solid := s.register(DimSolid, &record{})
	got := s.Entities()
	require.Len(t, got, 2)
	assert.Equal(t, surf, got[0])
	assert.Equal(t, solid, got[1])
}
