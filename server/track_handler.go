package server

import (
	"context"
	"net/http"
	"unicode"

	"soundhub/logger"
	"soundhub/media"
	"soundhub/model"
	"soundhub/repository"
)

// trackRequest is the create/update body of a track. Nil fields were not sent.
type trackRequest struct {
	Title         *string   `json:"title" validate:"omitempty,min=1,max=100"`
	Permalink     *string   `json:"permalink" validate:"omitempty,min=3,max=255"`
	Description   *string   `json:"description"`
	GenreInput    *string   `json:"genre_input" validate:"omitempty,min=1,max=20"`
	TagsInput     *[]string `json:"tags_input" validate:"omitempty,dive,min=1,max=20"`
	IsPrivate     *bool     `json:"is_private"`
	AudioFilename *string   `json:"audio_filename"`
	ImageFilename *string   `json:"image_filename"`
}

func (req *trackRequest) filenames() media.Filenames {
	f := media.Filenames{}
	if req.AudioFilename != nil {
		f[media.FieldAudio] = req.AudioFilename
	}
	if req.ImageFilename != nil {
		f[media.FieldImage] = req.ImageFilename
	}
	return f
}

// validate checks field formats. Required fields are enforced unless partial.
func (req *trackRequest) validate(creating, partial bool) error {
	if !partial {
		if err := requireField("title", req.Title); err != nil {
			return err
		}
		if err := requireField("permalink", req.Permalink); err != nil {
			return err
		}
	}
	if err := validateRequest(req); err != nil {
		return err
	}
	if req.Permalink != nil {
		if err := checkPermalink(*req.Permalink); err != nil {
			return err
		}
	}
	if creating {
		return requireField(media.FieldAudio.FilenameKey(), req.AudioFilename)
	}
	return nil
}

// checkPermalink 至少包含一个字母，长度由 validate tag 约束
func checkPermalink(permalink string) error {
	for _, c := range permalink {
		if unicode.IsLetter(c) {
			return nil
		}
	}
	return fieldError("permalink", "Permalink must contain at least one alphabetic character.")
}

func (req *trackRequest) applyTo(t *model.Track) {
	if req.Title != nil {
		t.Title = *req.Title
	}
	if req.Permalink != nil {
		t.Permalink = *req.Permalink
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.IsPrivate != nil {
		t.IsPrivate = *req.IsPrivate
	}
}

// prepareTrack validates req against t and stages the scalar and tag changes.
func (h *APIHandler) prepareTrack(ctx context.Context, req *trackRequest, t *model.Track, creating, partial bool) error {
	if err := req.validate(creating, partial); err != nil {
		return err
	}
	if err := h.uploader.Validate(media.EntityTrack, req.filenames()); err != nil {
		return err
	}
	if req.Permalink != nil {
		taken, err := h.trackRepo.PermalinkExists(ctx, t.ArtistID, *req.Permalink, t.ID)
		if err != nil {
			return err
		}
		if taken {
			return fieldError("non_field_errors", "Already existing permalink for the requested user.")
		}
	}

	genre, tags := namedTags(req.GenreInput, req.TagsInput)
	if genre != nil {
		t.Genre = genre
	}
	if req.TagsInput != nil {
		t.Tags = tags
	}
	req.applyTo(t)
	return nil
}

// respondTrackWrite reloads the track and renders it with its upload targets.
func (h *APIHandler) respondTrackWrite(w http.ResponseWriter, r *http.Request, status int, id int64, filenames media.Filenames) {
	ctx := r.Context()
	track, err := h.trackRepo.GetByID(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	targets, err := h.uploader.UploadTargets(ctx, track, filenames)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp, err := h.serializeTrack(ctx, track)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := withUploadTargets(resp, targets)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, status, out)
}

// CreateTrackHandler 创建歌曲并返回上传地址
func (h *APIHandler) CreateTrackHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, errUnauthorized)
		return
	}

	var req trackRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()
	track := &model.Track{ArtistID: userID}
	if err := h.prepareTrack(ctx, &req, track, true, false); err != nil {
		writeError(w, r, err)
		return
	}

	filenames := req.filenames()
	err := h.uploader.Apply(ctx, track, filenames, func(ctx context.Context) error {
		return h.trackRepo.Create(ctx, track)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	logger.Info("[Track] 创建成功",
		logger.Int64("trackID", track.ID),
		logger.Int64("artistID", userID))
	h.respondTrackWrite(w, r, http.StatusCreated, track.ID, filenames)
}

// ownedTrack loads the track at {id} and checks the caller is its artist.
func (h *APIHandler) ownedTrack(r *http.Request) (*model.Track, error) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		return nil, errUnauthorized
	}
	id, err := pathID(r, "id")
	if err != nil {
		return nil, err
	}
	track, err := h.trackRepo.GetByID(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if track.ArtistID != userID {
		return nil, errForbidden
	}
	return track, nil
}

// visibleTrack loads the track at {id}. Private tracks exist only for their artist.
func (h *APIHandler) visibleTrack(r *http.Request, param string) (*model.Track, error) {
	id, err := pathID(r, param)
	if err != nil {
		return nil, err
	}
	track, err := h.trackRepo.GetByID(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if !trackVisible(track, viewerID(r)) {
		return nil, repository.ErrNotFound
	}
	return track, nil
}

// trackVisible 私有歌曲仅对作者可见
func trackVisible(t *model.Track, viewerID int64) bool {
	return !t.IsPrivate || t.ArtistID == viewerID
}

// UpdateTrackHandler handles PUT and PATCH on a track.
func (h *APIHandler) UpdateTrackHandler(w http.ResponseWriter, r *http.Request) {
	track, err := h.ownedTrack(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req trackRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()
	partial := r.Method == http.MethodPatch
	if err := h.prepareTrack(ctx, &req, track, false, partial); err != nil {
		writeError(w, r, err)
		return
	}

	filenames := req.filenames()
	err = h.uploader.Apply(ctx, track, filenames, func(ctx context.Context) error {
		return h.trackRepo.Update(ctx, track, req.TagsInput != nil)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.respondTrackWrite(w, r, http.StatusOK, track.ID, filenames)
}

// GetTrackHandler 获取歌曲详情
func (h *APIHandler) GetTrackHandler(w http.ResponseWriter, r *http.Request) {
	track, err := h.visibleTrack(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp, err := h.serializeTrack(r.Context(), track)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListTracksHandler 分页列出歌曲
func (h *APIHandler) ListTracksHandler(w http.ResponseWriter, r *http.Request) {
	page := pageFromRequest(r, defaultPageSize)
	tracks, total, err := h.trackRepo.List(r.Context(), viewerID(r), page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	results, err := h.serializeTracks(r.Context(), tracks)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pageResponse{Count: total, Page: page.Number, Results: results})
}

// ListUserTracksHandler 某个用户的歌曲，本人可见私有歌曲
func (h *APIHandler) ListUserTracksHandler(w http.ResponseWriter, r *http.Request) {
	artistID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := h.userRepo.GetByID(r.Context(), artistID); err != nil {
		writeError(w, r, err)
		return
	}

	page := pageFromRequest(r, defaultPageSize)
	tracks, total, err := h.trackRepo.ListByArtist(r.Context(), artistID, viewerID(r) == artistID, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	results, err := h.serializeTracks(r.Context(), tracks)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pageResponse{Count: total, Page: page.Number, Results: results})
}

// DeleteTrackHandler 删除歌曲
func (h *APIHandler) DeleteTrackHandler(w http.ResponseWriter, r *http.Request) {
	track, err := h.ownedTrack(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.trackRepo.Delete(r.Context(), track.ID); err != nil {
		writeError(w, r, err)
		return
	}
	logger.Info("[Track] 删除成功", logger.Int64("trackID", track.ID))
	w.WriteHeader(http.StatusNoContent)
}
