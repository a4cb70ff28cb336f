package media

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUploader(lookup URLLookup) *Uploader {
	registry := testRegistry()
	return NewUploader(registry, NewResolver(registry, lookup, 0), NewIssuer(&fakePresigner{}, testBaseURL))
}

func TestUploader_Stage(t *testing.T) {
	ctx := context.Background()

	t.Run("create track with audio", func(t *testing.T) {
		u := newTestUploader(newFakeLookup())
		track := newFakeEntity(EntityTrack, 0)

		err := u.Stage(ctx, track, Filenames{FieldAudio: strPtr("song.mp3")})
		require.NoError(t, err)
		assert.Equal(t, testBaseURL+"music/tracks/song.mp3", *track.MediaURL(FieldAudio))
		assert.Nil(t, track.MediaURL(FieldImage))

		targets, err := u.UploadTargets(ctx, track, Filenames{FieldAudio: strPtr("song.mp3")})
		require.NoError(t, err)
		require.NotNil(t, targets[FieldAudio])
		assert.Equal(t, "https://signed.example.com/music/tracks/song.mp3?op=put&expires=300", *targets[FieldAudio])
		assert.Nil(t, targets[FieldImage])
	})

	t.Run("set image collides with another set", func(t *testing.T) {
		lookup := newFakeLookup()
		lookup.put(EntitySet, FieldImage, testBaseURL+"images/sets/cover.jpg", 1)
		u := newTestUploader(lookup)
		set := newFakeEntity(EntitySet, 2)

		require.NoError(t, u.Stage(ctx, set, Filenames{FieldImage: strPtr("cover.jpg")}))
		assert.Equal(t, testBaseURL+"images/sets/cover-1.jpg", *set.MediaURL(FieldImage))
	})

	t.Run("one invalid field aborts all", func(t *testing.T) {
		u := newTestUploader(newFakeLookup())
		track := newFakeEntity(EntityTrack, 0)

		err := u.Stage(ctx, track, Filenames{
			FieldAudio: strPtr("song.mp3"),
			FieldImage: strPtr("cover.bmp"),
		})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "image_filename", verr.Field)
		assert.Nil(t, track.MediaURL(FieldAudio))
	})

	t.Run("field not on entity", func(t *testing.T) {
		u := newTestUploader(newFakeLookup())
		err := u.Stage(ctx, newFakeEntity(EntitySet, 1), Filenames{FieldAudio: strPtr("song.mp3")})
		require.ErrorIs(t, err, ErrUnregisteredField)
	})

	t.Run("explicit null leaves field untouched", func(t *testing.T) {
		u := newTestUploader(newFakeLookup())
		user := newFakeEntity(EntityUser, 4)
		user.SetMediaURL(FieldImageProfile, "old")

		require.NoError(t, u.Stage(ctx, user, Filenames{FieldImageProfile: nil}))
		assert.Equal(t, "old", *user.MediaURL(FieldImageProfile))
	})
}

func TestUploader_Apply(t *testing.T) {
	ctx := context.Background()
	base := testBaseURL + "images/sets/"

	t.Run("retries once on conflict", func(t *testing.T) {
		lookup := newFakeLookup()
		u := newTestUploader(lookup)
		set := newFakeEntity(EntitySet, 0)

		calls := 0
		err := u.Apply(ctx, set, Filenames{FieldImage: strPtr("a.jpg")}, func(context.Context) error {
			calls++
			if calls == 1 {
				// a concurrent request stored the same url first
				lookup.put(EntitySet, FieldImage, base+"a.jpg", 9)
				return fmt.Errorf("insert: %w", ErrConflict)
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
		assert.Equal(t, base+"a-1.jpg", *set.MediaURL(FieldImage))
	})

	t.Run("second conflict is surfaced", func(t *testing.T) {
		u := newTestUploader(newFakeLookup())
		calls := 0
		err := u.Apply(ctx, newFakeEntity(EntitySet, 0), Filenames{FieldImage: strPtr("a.jpg")}, func(context.Context) error {
			calls++
			return ErrConflict
		})
		require.ErrorIs(t, err, ErrConflict)
		assert.Equal(t, 2, calls)
	})

	t.Run("validation failure never persists", func(t *testing.T) {
		u := newTestUploader(newFakeLookup())
		called := false
		err := u.Apply(ctx, newFakeEntity(EntityTrack, 0), Filenames{FieldAudio: strPtr("x.txt")}, func(context.Context) error {
			called = true
			return nil
		})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.False(t, called)
	})

	t.Run("other persist errors pass through", func(t *testing.T) {
		u := newTestUploader(newFakeLookup())
		calls := 0
		err := u.Apply(ctx, newFakeEntity(EntityTrack, 0), Filenames{FieldAudio: strPtr("a.mp3")}, func(context.Context) error {
			calls++
			return errStore
		})
		require.ErrorIs(t, err, errStore)
		assert.Equal(t, 1, calls)
	})
}
