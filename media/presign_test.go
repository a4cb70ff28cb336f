package media

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssuer_Issue(t *testing.T) {
	ctx := context.Background()
	stored := testBaseURL + "music/tracks/song.mp3"

	t.Run("nil input", func(t *testing.T) {
		p := &fakePresigner{}
		url, err := NewIssuer(p, testBaseURL).Issue(ctx, nil, OpRead)
		require.NoError(t, err)
		assert.Nil(t, url)
		assert.Zero(t, p.gets)
	})

	t.Run("read strips base url", func(t *testing.T) {
		url, err := NewIssuer(&fakePresigner{}, testBaseURL).Issue(ctx, &stored, OpRead)
		require.NoError(t, err)
		assert.Equal(t, "https://signed.example.com/music/tracks/song.mp3?op=get&expires=300", *url)
	})

	t.Run("write", func(t *testing.T) {
		url, err := NewIssuer(&fakePresigner{}, testBaseURL).Issue(ctx, &stored, OpWrite)
		require.NoError(t, err)
		assert.Equal(t, "https://signed.example.com/music/tracks/song.mp3?op=put&expires=300", *url)
	})

	t.Run("invalid operation", func(t *testing.T) {
		_, err := NewIssuer(&fakePresigner{}, testBaseURL).Issue(ctx, &stored, Operation("delete"))
		require.ErrorIs(t, err, ErrInvalidOperation)
	})

	t.Run("presigner failure", func(t *testing.T) {
		_, err := NewIssuer(&fakePresigner{err: errStore}, testBaseURL).Issue(ctx, &stored, OpWrite)
		require.ErrorIs(t, err, ErrPresign)
		assert.ErrorIs(t, err, errStore)
	})

	t.Run("presigner timeout stays visible", func(t *testing.T) {
		_, err := NewIssuer(&fakePresigner{err: context.DeadlineExceeded}, testBaseURL).Issue(ctx, &stored, OpRead)
		require.ErrorIs(t, err, ErrPresign)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("read urls are cached, write urls are not", func(t *testing.T) {
		p := &fakePresigner{}
		cache := memCache{}
		issuer := NewIssuer(p, testBaseURL, WithReadCache(cache))

		for i := 0; i < 3; i++ {
			_, err := issuer.Issue(ctx, &stored, OpRead)
			require.NoError(t, err)
			_, err = issuer.Issue(ctx, &stored, OpWrite)
			require.NoError(t, err)
		}
		assert.Equal(t, 1, p.gets)
		assert.Equal(t, 3, p.puts)
		assert.Contains(t, cache, "music/tracks/song.mp3")
	})
}
