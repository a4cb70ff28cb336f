package server

import (
	"fmt"
	"net/http"
	"testing"

	"soundhub/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLikeTrack(t *testing.T) {
	env := newTestEnv(t)
	artist, token := env.addUser("artist@example.com")
	track := env.addTrack(artist.ID, "song", nil)
	path := fmt.Sprintf("/api/likes/tracks/%d", track.ID)

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodPost, path, "", nil).Code)
	assert.Equal(t, http.StatusCreated, env.do(http.MethodPost, path, token, nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, path, token, nil).Code)

	detail := decodeBody(t, env.do(http.MethodGet, fmt.Sprintf("/api/tracks/%d", track.ID), "", nil))
	assert.EqualValues(t, 1, detail["like_count"])
	assert.EqualValues(t, 0, detail["repost_count"])

	assert.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, path, token, nil).Code)
	rec := env.do(http.MethodDelete, path, token, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Not liked yet.", decodeBody(t, rec)["detail"])
}

func TestRepostSet(t *testing.T) {
	env := newTestEnv(t)
	creator, token := env.addUser("creator@example.com")
	set := env.addSet(creator.ID, "mix", nil)
	path := fmt.Sprintf("/api/reposts/sets/%d", set.ID)

	assert.Equal(t, http.StatusCreated, env.do(http.MethodPost, path, token, nil).Code)
	rec := env.do(http.MethodPost, path, token, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Already reposted.", decodeBody(t, rec)["detail"])

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodPost, "/api/reposts/sets/999", token, nil).Code)
}

func TestTrackLikersPageSize(t *testing.T) {
	env := newTestEnv(t)
	artist, _ := env.addUser("artist@example.com")
	track := env.addTrack(artist.ID, "song", nil)
	for i := 0; i < 7; i++ {
		user, _ := env.addUser(fmt.Sprintf("%c@example.com", 'b'+i))
		env.db.reactions[reactionKey{repository.KindLike, user.ID, "track", track.ID}] = env.handler.now()
	}

	body := decodeBody(t, env.do(http.MethodGet, fmt.Sprintf("/api/tracks/%d/likers", track.ID), "", nil))
	assert.EqualValues(t, 7, body["count"])
	assert.Len(t, body["results"], reactionPageSize)

	body = decodeBody(t, env.do(http.MethodGet, fmt.Sprintf("/api/tracks/%d/likers?page=2", track.ID), "", nil))
	assert.Len(t, body["results"], 1)

	body = decodeBody(t, env.do(http.MethodGet, fmt.Sprintf("/api/tracks/%d/reposters", track.ID), "", nil))
	assert.EqualValues(t, 0, body["count"])
}
