package server

import (
	"errors"
	"net/http"

	"soundhub/model"
	"soundhub/repository"
)

type commentRequest struct {
	Content       string `json:"content" validate:"required"`
	CommentedAt   *int   `json:"commented_at" validate:"omitempty,gte=0"`
	ParentComment *int64 `json:"parent_comment"`
}

// ListCommentsHandler 列出歌曲的评论
func (h *APIHandler) ListCommentsHandler(w http.ResponseWriter, r *http.Request) {
	track, err := h.visibleTrack(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()
	page := pageFromRequest(r, defaultPageSize)
	comments, total, err := h.commentRepo.ListByTrack(ctx, track.ID, page)
	if err != nil {
		writeError(w, r, err)
		return
	}

	results := make([]*commentResponse, 0, len(comments))
	for _, c := range comments {
		resp, err := h.serializeComment(ctx, c)
		if err != nil {
			writeError(w, r, err)
			return
		}
		results = append(results, resp)
	}
	writeJSON(w, http.StatusOK, pageResponse{Count: total, Page: page.Number, Results: results})
}

// CreateCommentHandler 发表评论，parent_comment 必须属于同一首歌曲
func (h *APIHandler) CreateCommentHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, errUnauthorized)
		return
	}
	track, err := h.visibleTrack(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()
	if req.ParentComment != nil {
		parent, err := h.commentRepo.GetByID(ctx, *req.ParentComment)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			writeError(w, r, err)
			return
		}
		if parent == nil || parent.TrackID != track.ID {
			writeError(w, r, fieldError("parent_comment", "Invalid parent comment."))
			return
		}
	}

	comment := &model.Comment{
		WriterID:        userID,
		TrackID:         track.ID,
		Content:         req.Content,
		ParentCommentID: req.ParentComment,
	}
	if req.CommentedAt != nil {
		comment.CommentedAt = *req.CommentedAt
	}
	if err := h.commentRepo.Create(ctx, comment); err != nil {
		writeError(w, r, err)
		return
	}

	saved, err := h.commentRepo.GetByID(ctx, comment.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp, err := h.serializeComment(ctx, saved)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// DeleteCommentHandler 删除评论，仅限评论作者
func (h *APIHandler) DeleteCommentHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, errUnauthorized)
		return
	}
	trackID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	commentID, err := pathID(r, "comment_id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()
	comment, err := h.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if comment.TrackID != trackID {
		writeError(w, r, detailError(http.StatusNotFound, "Not found."))
		return
	}
	if comment.WriterID != userID {
		writeError(w, r, errForbidden)
		return
	}
	if err := h.commentRepo.Delete(ctx, commentID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
