package server

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"soundhub/config"
	"soundhub/core/auth"
	"soundhub/model"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "https://bucket.example.com/"

type testEnv struct {
	t         *testing.T
	db        *memDB
	presigner *fakePresigner
	tokens    *auth.TokenManager
	handler   *APIHandler
	router    *mux.Router
}

func testConfig() *config.Config {
	return &config.Config{
		StorageBaseURL:       testBaseURL,
		MusicTrackDir:        "music/track/",
		ImagesTrackDir:       "images/track/",
		ImagesSetDir:         "images/set/",
		ImagesUserProfileDir: "images/user/profile/",
		ImagesUserHeaderDir:  "images/user/header/",
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newMemDB()
	presigner := &fakePresigner{}
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	uploader := NewMediaUploader(testConfig(), db, presigner, nil)

	h := NewAPIHandler(Repositories{
		Users:     fakeUserRepo{db},
		Tracks:    fakeTrackRepo{db},
		Sets:      fakeSetRepo{db},
		Reactions: fakeReactionRepo{db},
		Comments:  fakeCommentRepo{db},
	}, uploader, tokens)
	h.now = func() time.Time { return time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC) }

	return &testEnv{t: t, db: db, presigner: presigner, tokens: tokens, handler: h, router: NewRouter(h)}
}

// addUser stores a user directly and returns it with a bearer token.
func (e *testEnv) addUser(email string) (*model.User, string) {
	e.t.Helper()
	hash, err := auth.HashPassword("password123")
	require.NoError(e.t, err)

	u := &model.User{
		Email:        email,
		Permalink:    "user" + email[:1],
		DisplayName:  "User " + email[:1],
		PasswordHash: hash,
		IsActive:     true,
	}
	e.db.mu.Lock()
	u.ID = e.db.id()
	e.db.users[u.ID] = copyUser(u)
	e.db.mu.Unlock()

	token, err := e.tokens.GenerateToken(u.ID, u.Permalink)
	require.NoError(e.t, err)
	return u, token
}

func (e *testEnv) addTrack(artistID int64, permalink string, audio *string) *model.Track {
	e.db.mu.Lock()
	defer e.db.mu.Unlock()
	t := &model.Track{ID: e.db.id(), ArtistID: artistID, Title: permalink, Permalink: permalink, Audio: audio}
	e.db.tracks[t.ID] = t
	return t
}

func (e *testEnv) addSet(creatorID int64, permalink string, image *string) *model.Set {
	e.db.mu.Lock()
	defer e.db.mu.Unlock()
	s := &model.Set{ID: e.db.id(), CreatorID: creatorID, Title: permalink, Permalink: permalink, Type: model.SetTypePlaylist, Image: image}
	e.db.sets[s.ID] = s
	return s
}

// do sends a JSON request through the router. An empty token sends no Authorization header.
func (e *testEnv) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func strPtr(s string) *string { return &s }
