package server

import (
	"context"
	"encoding/json"
	"time"

	"soundhub/media"
	"soundhub/model"
	"soundhub/repository"
)

// userSummary is the nested form of a user inside other resources.
type userSummary struct {
	ID           int64   `json:"id"`
	Permalink    string  `json:"permalink"`
	DisplayName  string  `json:"display_name"`
	ImageProfile *string `json:"image_profile"`
}

type userResponse struct {
	ID             int64      `json:"id"`
	Permalink      string     `json:"permalink"`
	DisplayName    string     `json:"display_name"`
	Email          string     `json:"email,omitempty"`
	Birthday       *string    `json:"birthday,omitempty"`
	Gender         string     `json:"gender"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	City           string     `json:"city"`
	Country        string     `json:"country"`
	Bio            string     `json:"bio"`
	ImageProfile   *string    `json:"image_profile"`
	ImageHeader    *string    `json:"image_header"`
	FollowerCount  int64      `json:"follower_count"`
	FollowingCount int64      `json:"following_count"`
	IsActive       bool       `json:"is_active"`
	LastLogin      *time.Time `json:"last_login,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type trackResponse struct {
	ID           int64        `json:"id"`
	Title        string       `json:"title"`
	Artist       *userSummary `json:"artist"`
	Permalink    string       `json:"permalink"`
	Audio        *string      `json:"audio"`
	Image        *string      `json:"image"`
	LikeCount    int64        `json:"like_count"`
	RepostCount  int64        `json:"repost_count"`
	CommentCount int64        `json:"comment_count"`
	Description  string       `json:"description"`
	Count        int64        `json:"count"`
	Genre        *model.Tag   `json:"genre"`
	Tags         []*model.Tag `json:"tags"`
	IsPrivate    bool         `json:"is_private"`
	CreatedAt    time.Time    `json:"created_at"`
}

// setTrackResponse 歌单中的歌曲
type setTrackResponse struct {
	ID        int64        `json:"id"`
	Title     string       `json:"title"`
	Artist    *userSummary `json:"artist"`
	Permalink string       `json:"permalink"`
	Audio     *string      `json:"audio"`
	Image     *string      `json:"image"`
	IsPrivate bool         `json:"is_private"`
}

type setResponse struct {
	ID          int64               `json:"id"`
	Title       string              `json:"title"`
	Creator     *userSummary        `json:"creator"`
	Permalink   string              `json:"permalink"`
	Description string              `json:"description"`
	Type        string              `json:"type"`
	Image       *string             `json:"image"`
	Genre       *model.Tag          `json:"genre"`
	Tags        []*model.Tag        `json:"tags"`
	IsPrivate   bool                `json:"is_private"`
	LikeCount   int64               `json:"like_count"`
	RepostCount int64               `json:"repost_count"`
	Tracks      []*setTrackResponse `json:"tracks"`
	CreatedAt   time.Time           `json:"created_at"`
}

type commentResponse struct {
	ID            int64        `json:"id"`
	Writer        *userSummary `json:"writer"`
	TrackID       int64        `json:"track_id"`
	Content       string       `json:"content"`
	CommentedAt   int          `json:"commented_at"`
	ParentComment *int64       `json:"parent_comment"`
	CreatedAt     time.Time    `json:"created_at"`
}

// readURLs presigns a read URL for every media field of e.
func (h *APIHandler) readURLs(ctx context.Context, e media.Entity, fields ...media.Field) (map[media.Field]*string, error) {
	urls := make(map[media.Field]*string, len(fields))
	for _, f := range fields {
		u, err := h.uploader.DownloadURL(ctx, e.MediaURL(f))
		if err != nil {
			return nil, err
		}
		urls[f] = u
	}
	return urls, nil
}

func (h *APIHandler) serializeUserSummary(ctx context.Context, u *model.User) (*userSummary, error) {
	if u == nil {
		return nil, nil
	}
	img, err := h.uploader.DownloadURL(ctx, u.ImageProfile)
	if err != nil {
		return nil, err
	}
	return &userSummary{ID: u.ID, Permalink: u.Permalink, DisplayName: u.DisplayName, ImageProfile: img}, nil
}

func (h *APIHandler) serializeUserSummaries(ctx context.Context, users []*model.User) ([]*userSummary, error) {
	out := make([]*userSummary, 0, len(users))
	for _, u := range users {
		s, err := h.serializeUserSummary(ctx, u)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// serializeUser renders a profile. Private fields are included for the owner only.
func (h *APIHandler) serializeUser(ctx context.Context, u *model.User, owner bool) (*userResponse, error) {
	urls, err := h.readURLs(ctx, u, media.FieldImageProfile, media.FieldImageHeader)
	if err != nil {
		return nil, err
	}
	followers, followings, err := h.userRepo.FollowCounts(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	resp := &userResponse{
		ID:             u.ID,
		Permalink:      u.Permalink,
		DisplayName:    u.DisplayName,
		Gender:         u.Gender,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		City:           u.City,
		Country:        u.Country,
		Bio:            u.Bio,
		ImageProfile:   urls[media.FieldImageProfile],
		ImageHeader:    urls[media.FieldImageHeader],
		FollowerCount:  followers,
		FollowingCount: followings,
		IsActive:       u.IsActive,
		CreatedAt:      u.CreatedAt,
	}
	if owner {
		resp.Email = u.Email
		resp.LastLogin = u.LastLogin
		if u.Birthday != nil {
			b := u.Birthday.Format("2006-01-02")
			resp.Birthday = &b
		}
	}
	return resp, nil
}

func (h *APIHandler) serializeTrack(ctx context.Context, t *model.Track) (*trackResponse, error) {
	urls, err := h.readURLs(ctx, t, media.FieldAudio, media.FieldImage)
	if err != nil {
		return nil, err
	}
	artist, err := h.serializeUserSummary(ctx, t.Artist)
	if err != nil {
		return nil, err
	}
	counts, err := h.trackRepo.Counts(ctx, t.ID)
	if err != nil {
		return nil, err
	}

	tags := t.Tags
	if tags == nil {
		tags = []*model.Tag{}
	}
	return &trackResponse{
		ID:           t.ID,
		Title:        t.Title,
		Artist:       artist,
		Permalink:    t.Permalink,
		Audio:        urls[media.FieldAudio],
		Image:        urls[media.FieldImage],
		LikeCount:    counts.Likes,
		RepostCount:  counts.Reposts,
		CommentCount: counts.Comments,
		Description:  t.Description,
		Count:        t.Count,
		Genre:        t.Genre,
		Tags:         tags,
		IsPrivate:    t.IsPrivate,
		CreatedAt:    t.CreatedAt,
	}, nil
}

func (h *APIHandler) serializeTracks(ctx context.Context, tracks []*model.Track) ([]*trackResponse, error) {
	out := make([]*trackResponse, 0, len(tracks))
	for _, t := range tracks {
		resp, err := h.serializeTrack(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, resp)
	}
	return out, nil
}

// serializeSet renders s for viewerID; private tracks of other artists are left out.
func (h *APIHandler) serializeSet(ctx context.Context, s *model.Set, viewerID int64) (*setResponse, error) {
	image, err := h.uploader.DownloadURL(ctx, s.Image)
	if err != nil {
		return nil, err
	}
	creator, err := h.serializeUserSummary(ctx, s.Creator)
	if err != nil {
		return nil, err
	}
	likes, err := h.reactionRepo.Count(ctx, repository.KindLike, model.TargetSet, s.ID)
	if err != nil {
		return nil, err
	}
	reposts, err := h.reactionRepo.Count(ctx, repository.KindRepost, model.TargetSet, s.ID)
	if err != nil {
		return nil, err
	}

	tracks := make([]*setTrackResponse, 0, len(s.Tracks))
	for _, t := range s.Tracks {
		if !trackVisible(t, viewerID) {
			continue
		}
		urls, err := h.readURLs(ctx, t, media.FieldAudio, media.FieldImage)
		if err != nil {
			return nil, err
		}
		artist, err := h.serializeUserSummary(ctx, t.Artist)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, &setTrackResponse{
			ID:        t.ID,
			Title:     t.Title,
			Artist:    artist,
			Permalink: t.Permalink,
			Audio:     urls[media.FieldAudio],
			Image:     urls[media.FieldImage],
			IsPrivate: t.IsPrivate,
		})
	}

	tags := s.Tags
	if tags == nil {
		tags = []*model.Tag{}
	}
	return &setResponse{
		ID:          s.ID,
		Title:       s.Title,
		Creator:     creator,
		Permalink:   s.Permalink,
		Description: s.Description,
		Type:        s.Type,
		Image:       image,
		Genre:       s.Genre,
		Tags:        tags,
		IsPrivate:   s.IsPrivate,
		LikeCount:   likes,
		RepostCount: reposts,
		Tracks:      tracks,
		CreatedAt:   s.CreatedAt,
	}, nil
}

func (h *APIHandler) serializeComment(ctx context.Context, c *model.Comment) (*commentResponse, error) {
	writer, err := h.serializeUserSummary(ctx, c.Writer)
	if err != nil {
		return nil, err
	}
	return &commentResponse{
		ID:            c.ID,
		Writer:        writer,
		TrackID:       c.TrackID,
		Content:       c.Content,
		CommentedAt:   c.CommentedAt,
		ParentComment: c.ParentCommentID,
		CreatedAt:     c.CreatedAt,
	}, nil
}

// withUploadTargets adds a `<field>_presigned_url` key per target to the
// JSON object form of resp.
func withUploadTargets(resp interface{}, targets map[media.Field]*string) (map[string]json.RawMessage, error) {
	raw, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	out := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	for field, url := range targets {
		v, err := json.Marshal(url)
		if err != nil {
			return nil, err
		}
		out[field.PresignedKey()] = v
	}
	return out, nil
}
