package server

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"soundhub/media"
	"soundhub/model"
	"soundhub/repository"
)

// memDB is an in-memory stand-in for MySQL shared by the fake repositories.
type memDB struct {
	mu        sync.Mutex
	nextID    int64
	users     map[int64]*model.User
	tracks    map[int64]*model.Track
	sets      map[int64]*model.Set
	setTracks map[int64][]int64
	follows   map[[2]int64]time.Time
	reactions map[reactionKey]time.Time
	comments  map[int64]*model.Comment
	tags      map[string]*model.Tag

	// persistConflicts makes the next N track/set/user writes fail with ErrDuplicate.
	persistConflicts int
	// commentErr, when set, is returned by every comment lookup.
	commentErr error
}

type reactionKey struct {
	kind       repository.ReactionKind
	userID     int64
	targetType string
	targetID   int64
}

func newMemDB() *memDB {
	return &memDB{
		users:     map[int64]*model.User{},
		tracks:    map[int64]*model.Track{},
		sets:      map[int64]*model.Set{},
		setTracks: map[int64][]int64{},
		follows:   map[[2]int64]time.Time{},
		reactions: map[reactionKey]time.Time{},
		comments:  map[int64]*model.Comment{},
		tags:      map[string]*model.Tag{},
	}
}

// saveTags matches or creates tags by name, like the repository transaction.
// Callers hold mu.
func (db *memDB) saveTags(genre *model.Tag, genreID **int64, tags []*model.Tag) {
	for _, tag := range append([]*model.Tag{genre}, tags...) {
		if tag == nil {
			continue
		}
		stored, ok := db.tags[tag.Name]
		if !ok {
			stored = &model.Tag{ID: db.id(), Name: tag.Name}
			db.tags[tag.Name] = stored
		}
		*tag = *stored
	}
	if genre != nil {
		id := genre.ID
		*genreID = &id
	}
}

func (db *memDB) id() int64 {
	db.nextID++
	return db.nextID
}

func (db *memDB) conflict() bool {
	if db.persistConflicts > 0 {
		db.persistConflicts--
		return true
	}
	return false
}

func copyUser(u *model.User) *model.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// MediaURLExists implements media.URLLookup.
func (db *memDB) MediaURLExists(_ context.Context, entity media.EntityType, field media.Field, url string, excludeID int64) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var holders []media.Entity
	switch entity {
	case media.EntityTrack:
		for _, t := range db.tracks {
			holders = append(holders, t)
		}
	case media.EntitySet:
		for _, s := range db.sets {
			holders = append(holders, s)
		}
	case media.EntityUser:
		for _, u := range db.users {
			holders = append(holders, u)
		}
	}
	for _, e := range holders {
		if e.MediaID() == excludeID {
			continue
		}
		if u := e.MediaURL(field); u != nil && *u == url {
			return true, nil
		}
	}
	return false, nil
}

func paged[T any](items []T, page repository.Page) []T {
	start := page.Offset()
	if start >= len(items) {
		return nil
	}
	end := start + page.Size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// ========== users ==========

type fakeUserRepo struct{ db *memDB }

func (r fakeUserRepo) Create(_ context.Context, u *model.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.users {
		if existing.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	u.ID = r.db.id()
	u.CreatedAt = time.Now()
	r.db.users[u.ID] = copyUser(u)
	return nil
}

func (r fakeUserRepo) GetByID(_ context.Context, id int64) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyUser(u), nil
}

func (r fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r fakeUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	return err == nil, nil
}

func (r fakeUserRepo) PermalinkExists(_ context.Context, permalink string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if u.Permalink == permalink {
			return true, nil
		}
	}
	return false, nil
}

func (r fakeUserRepo) Update(_ context.Context, u *model.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.conflict() {
		return repository.ErrDuplicate
	}
	r.db.users[u.ID] = copyUser(u)
	return nil
}

func (r fakeUserRepo) UpdateLastLogin(_ context.Context, id int64, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.LastLogin = &at
	return nil
}

func (r fakeUserRepo) Follow(_ context.Context, followerID, followeeID int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	key := [2]int64{followerID, followeeID}
	if _, ok := r.db.follows[key]; ok {
		return repository.ErrDuplicate
	}
	r.db.follows[key] = time.Now()
	return nil
}

func (r fakeUserRepo) Unfollow(_ context.Context, followerID, followeeID int64) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	key := [2]int64{followerID, followeeID}
	_, ok := r.db.follows[key]
	delete(r.db.follows, key)
	return ok, nil
}

func (r fakeUserRepo) followList(userID int64, followers bool, page repository.Page) ([]*model.User, int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var users []*model.User
	for pair := range r.db.follows {
		switch {
		case followers && pair[1] == userID:
			users = append(users, copyUser(r.db.users[pair[0]]))
		case !followers && pair[0] == userID:
			users = append(users, copyUser(r.db.users[pair[1]]))
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return paged(users, page), int64(len(users)), nil
}

func (r fakeUserRepo) Followers(_ context.Context, userID int64, page repository.Page) ([]*model.User, int64, error) {
	return r.followList(userID, true, page)
}

func (r fakeUserRepo) Followings(_ context.Context, userID int64, page repository.Page) ([]*model.User, int64, error) {
	return r.followList(userID, false, page)
}

func (r fakeUserRepo) FollowCounts(_ context.Context, userID int64) (int64, int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var followers, followings int64
	for pair := range r.db.follows {
		if pair[1] == userID {
			followers++
		}
		if pair[0] == userID {
			followings++
		}
	}
	return followers, followings, nil
}

// ========== tracks ==========

type fakeTrackRepo struct{ db *memDB }

func (r fakeTrackRepo) loadTrack(t *model.Track) *model.Track {
	c := *t
	c.Artist = copyUser(r.db.users[t.ArtistID])
	return &c
}

func (r fakeTrackRepo) Create(_ context.Context, t *model.Track) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.conflict() {
		return repository.ErrDuplicate
	}
	r.db.saveTags(t.Genre, &t.GenreID, t.Tags)
	t.ID = r.db.id()
	t.CreatedAt = time.Now()
	c := *t
	r.db.tracks[t.ID] = &c
	return nil
}

func (r fakeTrackRepo) GetByID(_ context.Context, id int64) (*model.Track, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.tracks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.loadTrack(t), nil
}

func (r fakeTrackRepo) List(_ context.Context, viewerID int64, page repository.Page) ([]*model.Track, int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var tracks []*model.Track
	for _, t := range r.db.tracks {
		if !t.IsPrivate || t.ArtistID == viewerID {
			tracks = append(tracks, r.loadTrack(t))
		}
	}
	sort.Slice(tracks, func(i, j int) bool { return tracks[i].ID > tracks[j].ID })
	return paged(tracks, page), int64(len(tracks)), nil
}

func (r fakeTrackRepo) ListByArtist(_ context.Context, artistID int64, includePrivate bool, page repository.Page) ([]*model.Track, int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var tracks []*model.Track
	for _, t := range r.db.tracks {
		if t.ArtistID == artistID && (includePrivate || !t.IsPrivate) {
			tracks = append(tracks, r.loadTrack(t))
		}
	}
	sort.Slice(tracks, func(i, j int) bool { return tracks[i].ID > tracks[j].ID })
	return paged(tracks, page), int64(len(tracks)), nil
}

func (r fakeTrackRepo) Update(_ context.Context, t *model.Track, replaceTags bool) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.conflict() {
		return repository.ErrDuplicate
	}
	old, ok := r.db.tracks[t.ID]
	if !ok {
		return repository.ErrNotFound
	}
	r.db.saveTags(t.Genre, &t.GenreID, t.Tags)
	c := *t
	c.Artist = nil
	if !replaceTags {
		c.Tags = old.Tags
	}
	r.db.tracks[t.ID] = &c
	return nil
}

func (r fakeTrackRepo) Delete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.tracks[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.tracks, id)
	for setID, ids := range r.db.setTracks {
		kept := ids[:0]
		for _, tid := range ids {
			if tid != id {
				kept = append(kept, tid)
			}
		}
		r.db.setTracks[setID] = kept
	}
	return nil
}

func (r fakeTrackRepo) Counts(_ context.Context, id int64) (repository.TrackCounts, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var c repository.TrackCounts
	for k := range r.db.reactions {
		if k.targetType != model.TargetTrack || k.targetID != id {
			continue
		}
		if k.kind == repository.KindLike {
			c.Likes++
		} else {
			c.Reposts++
		}
	}
	for _, cm := range r.db.comments {
		if cm.TrackID == id {
			c.Comments++
		}
	}
	return c, nil
}

func (r fakeTrackRepo) PermalinkExists(_ context.Context, artistID int64, permalink string, excludeID int64) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, t := range r.db.tracks {
		if t.ArtistID == artistID && t.Permalink == permalink && t.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

// ========== sets ==========

type fakeSetRepo struct{ db *memDB }

func (r fakeSetRepo) Create(_ context.Context, s *model.Set) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.conflict() {
		return repository.ErrDuplicate
	}
	r.db.saveTags(s.Genre, &s.GenreID, s.Tags)
	s.ID = r.db.id()
	s.CreatedAt = time.Now()
	c := *s
	r.db.sets[s.ID] = &c
	return nil
}

func (r fakeSetRepo) load(s *model.Set) *model.Set {
	c := *s
	c.Creator = copyUser(r.db.users[s.CreatorID])
	c.Tracks = nil
	for _, tid := range r.db.setTracks[s.ID] {
		if t, ok := r.db.tracks[tid]; ok {
			tc := *t
			tc.Artist = copyUser(r.db.users[t.ArtistID])
			c.Tracks = append(c.Tracks, &tc)
		}
	}
	return &c
}

func (r fakeSetRepo) GetByID(_ context.Context, id int64) (*model.Set, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.sets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.load(s), nil
}

func (r fakeSetRepo) List(_ context.Context, viewerID int64, page repository.Page) ([]*model.Set, int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var sets []*model.Set
	for _, s := range r.db.sets {
		if !s.IsPrivate || s.CreatorID == viewerID {
			sets = append(sets, r.load(s))
		}
	}
	sort.Slice(sets, func(i, j int) bool { return sets[i].ID > sets[j].ID })
	return paged(sets, page), int64(len(sets)), nil
}

func (r fakeSetRepo) Update(_ context.Context, s *model.Set, replaceTags bool) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.conflict() {
		return repository.ErrDuplicate
	}
	old, ok := r.db.sets[s.ID]
	if !ok {
		return repository.ErrNotFound
	}
	r.db.saveTags(s.Genre, &s.GenreID, s.Tags)
	c := *s
	c.Creator, c.Tracks = nil, nil
	if !replaceTags {
		c.Tags = old.Tags
	}
	r.db.sets[s.ID] = &c
	return nil
}

func (r fakeSetRepo) Delete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.sets[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.sets, id)
	delete(r.db.setTracks, id)
	return nil
}

func (r fakeSetRepo) AddTrack(_ context.Context, setID, trackID int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, tid := range r.db.setTracks[setID] {
		if tid == trackID {
			return repository.ErrDuplicate
		}
	}
	r.db.setTracks[setID] = append(r.db.setTracks[setID], trackID)
	return nil
}

func (r fakeSetRepo) RemoveTrack(_ context.Context, setID, trackID int64) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	ids := r.db.setTracks[setID]
	for i, tid := range ids {
		if tid == trackID {
			r.db.setTracks[setID] = append(ids[:i:i], ids[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r fakeSetRepo) Tracks(_ context.Context, setID int64) ([]*model.Track, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.sets[setID]
	if !ok {
		return nil, nil
	}
	return r.load(s).Tracks, nil
}

func (r fakeSetRepo) PermalinkExists(_ context.Context, creatorID int64, permalink string, excludeID int64) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, s := range r.db.sets {
		if s.CreatorID == creatorID && s.Permalink == permalink && s.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

// ========== reactions, comments, tags ==========

type fakeReactionRepo struct{ db *memDB }

func (r fakeReactionRepo) Add(_ context.Context, kind repository.ReactionKind, userID int64, targetType string, targetID int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	key := reactionKey{kind, userID, targetType, targetID}
	if _, ok := r.db.reactions[key]; ok {
		return repository.ErrDuplicate
	}
	r.db.reactions[key] = time.Now()
	return nil
}

func (r fakeReactionRepo) Remove(_ context.Context, kind repository.ReactionKind, userID int64, targetType string, targetID int64) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	key := reactionKey{kind, userID, targetType, targetID}
	_, ok := r.db.reactions[key]
	delete(r.db.reactions, key)
	return ok, nil
}

func (r fakeReactionRepo) Exists(_ context.Context, kind repository.ReactionKind, userID int64, targetType string, targetID int64) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	_, ok := r.db.reactions[reactionKey{kind, userID, targetType, targetID}]
	return ok, nil
}

func (r fakeReactionRepo) Count(_ context.Context, kind repository.ReactionKind, targetType string, targetID int64) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for k := range r.db.reactions {
		if k.kind == kind && k.targetType == targetType && k.targetID == targetID {
			n++
		}
	}
	return n, nil
}

func (r fakeReactionRepo) Users(_ context.Context, kind repository.ReactionKind, targetType string, targetID int64, page repository.Page) ([]*model.User, int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var users []*model.User
	for k := range r.db.reactions {
		if k.kind == kind && k.targetType == targetType && k.targetID == targetID {
			users = append(users, copyUser(r.db.users[k.userID]))
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return paged(users, page), int64(len(users)), nil
}

type fakeCommentRepo struct{ db *memDB }

func (r fakeCommentRepo) Create(_ context.Context, c *model.Comment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c.ID = r.db.id()
	c.CreatedAt = time.Now()
	cp := *c
	r.db.comments[c.ID] = &cp
	return nil
}

func (r fakeCommentRepo) GetByID(_ context.Context, id int64) (*model.Comment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.commentErr != nil {
		return nil, r.db.commentErr
	}
	c, ok := r.db.comments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	cp.Writer = copyUser(r.db.users[c.WriterID])
	return &cp, nil
}

func (r fakeCommentRepo) ListByTrack(_ context.Context, trackID int64, page repository.Page) ([]*model.Comment, int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*model.Comment
	for _, c := range r.db.comments {
		if c.TrackID == trackID {
			cp := *c
			cp.Writer = copyUser(r.db.users[c.WriterID])
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CommentedAt != out[j].CommentedAt {
			return out[i].CommentedAt < out[j].CommentedAt
		}
		return out[i].ID < out[j].ID
	})
	return paged(out, page), int64(len(out)), nil
}

func (r fakeCommentRepo) Delete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.comments[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.comments, id)
	for cid, c := range r.db.comments {
		if c.ParentCommentID != nil && *c.ParentCommentID == id {
			delete(r.db.comments, cid)
		}
	}
	return nil
}

// fakePresigner signs URLs offline.
type fakePresigner struct {
	fail bool
}

var errStorageDown = errors.New("storage unreachable")

func (p *fakePresigner) sign(key, op string) (string, error) {
	if p.fail {
		return "", errStorageDown
	}
	return "https://signed.example.com/" + strings.TrimPrefix(key, "/") + "?op=" + op, nil
}

func (p *fakePresigner) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return p.sign(key, "get")
}

func (p *fakePresigner) PresignPut(_ context.Context, key string, _ time.Duration) (string, error) {
	return p.sign(key, "put")
}
