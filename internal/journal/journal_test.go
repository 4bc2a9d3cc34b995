package journal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	_, _, err := s.Load(ctx, "ABCDEF")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Save(ctx, "ABCDEF", 3, []byte(`{"night":1}`)))
	version, payload, err := s.Load(ctx, "ABCDEF")
	require.NoError(t, err)
	assert.Equal(t, 3, version)
	assert.JSONEq(t, `{"night":1}`, string(payload))

	// A newer save replaces the previous snapshot wholesale.
	require.NoError(t, s.Save(ctx, "ABCDEF", 4, []byte(`{"night":2}`)))
	version, payload, err = s.Load(ctx, "ABCDEF")
	require.NoError(t, err)
	assert.Equal(t, 4, version)
	assert.JSONEq(t, `{"night":2}`, string(payload))

	require.NoError(t, s.Delete(ctx, "ABCDEF"))
	_, _, err = s.Load(ctx, "ABCDEF")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemStoreCopiesPayload(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	buf := []byte(`{"v":1}`)
	require.NoError(t, s.Save(ctx, "ROOM", 1, buf))
	buf[2] = 'x' // caller reuses its buffer

	_, payload, err := s.Load(ctx, "ROOM")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1}`, string(payload))

	payload[2] = 'y'
	_, again, err := s.Load(ctx, "ROOM")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1}`, string(again))
}
