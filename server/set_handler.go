package server

import (
	"context"
	"errors"
	"net/http"

	"soundhub/logger"
	"soundhub/media"
	"soundhub/model"
	"soundhub/repository"
)

// setRequest 歌单创建/更新请求体
type setRequest struct {
	Title         *string   `json:"title" validate:"omitempty,min=1,max=100"`
	Permalink     *string   `json:"permalink" validate:"omitempty,min=3,max=255"`
	Description   *string   `json:"description"`
	Type          *string   `json:"type" validate:"omitempty,oneof=playlist album ep single compilation"`
	GenreInput    *string   `json:"genre_input" validate:"omitempty,min=1,max=20"`
	TagsInput     *[]string `json:"tags_input" validate:"omitempty,dive,min=1,max=20"`
	IsPrivate     *bool     `json:"is_private"`
	ImageFilename *string   `json:"image_filename"`
}

func (req *setRequest) filenames() media.Filenames {
	f := media.Filenames{}
	if req.ImageFilename != nil {
		f[media.FieldImage] = req.ImageFilename
	}
	return f
}

func (req *setRequest) validate(partial bool) error {
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
		return checkPermalink(*req.Permalink)
	}
	return nil
}

func (req *setRequest) applyTo(s *model.Set) {
	if req.Title != nil {
		s.Title = *req.Title
	}
	if req.Permalink != nil {
		s.Permalink = *req.Permalink
	}
	if req.Description != nil {
		s.Description = *req.Description
	}
	if req.Type != nil {
		s.Type = *req.Type
	}
	if req.IsPrivate != nil {
		s.IsPrivate = *req.IsPrivate
	}
}

func (h *APIHandler) prepareSet(ctx context.Context, req *setRequest, s *model.Set, partial bool) error {
	if err := req.validate(partial); err != nil {
		return err
	}
	if err := h.uploader.Validate(media.EntitySet, req.filenames()); err != nil {
		return err
	}
	if req.Permalink != nil {
		taken, err := h.setRepo.PermalinkExists(ctx, s.CreatorID, *req.Permalink, s.ID)
		if err != nil {
			return err
		}
		if taken {
			return fieldError("non_field_errors", "Already existing permalink for the requested user.")
		}
	}

	genre, tags := namedTags(req.GenreInput, req.TagsInput)
	if genre != nil {
		s.Genre = genre
	}
	if req.TagsInput != nil {
		s.Tags = tags
	}
	req.applyTo(s)
	return nil
}

func (h *APIHandler) respondSetWrite(w http.ResponseWriter, r *http.Request, status int, id int64, filenames media.Filenames) {
	ctx := r.Context()
	set, err := h.setRepo.GetByID(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	targets, err := h.uploader.UploadTargets(ctx, set, filenames)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp, err := h.serializeSet(ctx, set, viewerID(r))
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

// CreateSetHandler 创建歌单
func (h *APIHandler) CreateSetHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, errUnauthorized)
		return
	}

	var req setRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()
	set := &model.Set{CreatorID: userID, Type: model.SetTypePlaylist}
	if err := h.prepareSet(ctx, &req, set, false); err != nil {
		writeError(w, r, err)
		return
	}

	filenames := req.filenames()
	err := h.uploader.Apply(ctx, set, filenames, func(ctx context.Context) error {
		return h.setRepo.Create(ctx, set)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	logger.Info("[Set] 创建成功", logger.Int64("setID", set.ID), logger.Int64("creatorID", userID))
	h.respondSetWrite(w, r, http.StatusCreated, set.ID, filenames)
}

func (h *APIHandler) ownedSet(r *http.Request) (*model.Set, error) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		return nil, errUnauthorized
	}
	id, err := pathID(r, "id")
	if err != nil {
		return nil, err
	}
	set, err := h.setRepo.GetByID(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if set.CreatorID != userID {
		return nil, errForbidden
	}
	return set, nil
}

func (h *APIHandler) visibleSet(r *http.Request) (*model.Set, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return nil, err
	}
	set, err := h.setRepo.GetByID(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if set.IsPrivate && set.CreatorID != viewerID(r) {
		return nil, repository.ErrNotFound
	}
	return set, nil
}

// UpdateSetHandler handles PUT and PATCH on a set.
func (h *APIHandler) UpdateSetHandler(w http.ResponseWriter, r *http.Request) {
	set, err := h.ownedSet(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req setRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()
	if err := h.prepareSet(ctx, &req, set, r.Method == http.MethodPatch); err != nil {
		writeError(w, r, err)
		return
	}

	filenames := req.filenames()
	err = h.uploader.Apply(ctx, set, filenames, func(ctx context.Context) error {
		return h.setRepo.Update(ctx, set, req.TagsInput != nil)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.respondSetWrite(w, r, http.StatusOK, set.ID, filenames)
}

// GetSetHandler 获取歌单详情
func (h *APIHandler) GetSetHandler(w http.ResponseWriter, r *http.Request) {
	set, err := h.visibleSet(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp, err := h.serializeSet(r.Context(), set, viewerID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListSetsHandler 分页列出歌单
func (h *APIHandler) ListSetsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page := pageFromRequest(r, defaultPageSize)
	sets, total, err := h.setRepo.List(ctx, viewerID(r), page)
	if err != nil {
		writeError(w, r, err)
		return
	}

	results := make([]*setResponse, 0, len(sets))
	for _, s := range sets {
		resp, err := h.serializeSet(ctx, s, viewerID(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		results = append(results, resp)
	}
	writeJSON(w, http.StatusOK, pageResponse{Count: total, Page: page.Number, Results: results})
}

// DeleteSetHandler 删除歌单
func (h *APIHandler) DeleteSetHandler(w http.ResponseWriter, r *http.Request) {
	set, err := h.ownedSet(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.setRepo.Delete(r.Context(), set.ID); err != nil {
		writeError(w, r, err)
		return
	}
	logger.Info("[Set] 删除成功", logger.Int64("setID", set.ID))
	w.WriteHeader(http.StatusNoContent)
}

type setTrackRequest struct {
	TrackID *int64 `json:"track_id"`
}

// SetTracksHandler adds (POST) or removes (DELETE) one track of a set.
func (h *APIHandler) SetTracksHandler(w http.ResponseWriter, r *http.Request) {
	set, err := h.ownedSet(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req setTrackRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.TrackID == nil {
		writeError(w, r, fieldError("track_id", "This field is required."))
		return
	}

	ctx := r.Context()
	track, err := h.trackRepo.GetByID(ctx, *req.TrackID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if r.Method == http.MethodDelete {
		removed, err := h.setRepo.RemoveTrack(ctx, set.ID, track.ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !removed {
			writeError(w, r, detailError(http.StatusBadRequest, "Track is not in the set."))
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"detail": "Track removed from the set."})
		return
	}

	if !trackVisible(track, set.CreatorID) {
		writeError(w, r, repository.ErrNotFound)
		return
	}
	if err := h.setRepo.AddTrack(ctx, set.ID, track.ID); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			writeError(w, r, detailError(http.StatusBadRequest, "Track is already in the set."))
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"detail": "Track added to the set."})
}
