package server

import (
	"errors"
	"net/http"

	"soundhub/logger"
	"soundhub/model"
	"soundhub/repository"

	"github.com/gorilla/mux"
)

var pastTense = map[repository.ReactionKind]string{
	repository.KindLike:   "liked",
	repository.KindRepost: "reposted",
}

var targetByPath = map[string]string{
	"tracks": model.TargetTrack,
	"sets":   model.TargetSet,
}

// ensureTarget checks the reaction target at {id} exists and is visible to the caller.
func (h *APIHandler) ensureTarget(r *http.Request, target string) (int64, error) {
	if target == model.TargetSet {
		set, err := h.visibleSet(r)
		if err != nil {
			return 0, err
		}
		return set.ID, nil
	}
	track, err := h.visibleTrack(r, "id")
	if err != nil {
		return 0, err
	}
	return track.ID, nil
}

// ReactionHandler likes or reposts (POST) and undoes it (DELETE).
// Route: /api/{likes|reposts}/{tracks|sets}/{id}
func (h *APIHandler) ReactionHandler(kind repository.ReactionKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserIDFromContext(r.Context())
		if !ok {
			writeError(w, r, errUnauthorized)
			return
		}
		target, ok := targetByPath[mux.Vars(r)["target"]]
		if !ok {
			writeError(w, r, repository.ErrNotFound)
			return
		}
		targetID, err := h.ensureTarget(r, target)
		if err != nil {
			writeError(w, r, err)
			return
		}

		ctx := r.Context()
		if r.Method == http.MethodDelete {
			removed, err := h.reactionRepo.Remove(ctx, kind, userID, target, targetID)
			if err != nil {
				writeError(w, r, err)
				return
			}
			if !removed {
				writeError(w, r, detailError(http.StatusBadRequest, "Not "+pastTense[kind]+" yet."))
				return
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if err := h.reactionRepo.Add(ctx, kind, userID, target, targetID); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				writeError(w, r, detailError(http.StatusBadRequest, "Already "+pastTense[kind]+"."))
				return
			}
			writeError(w, r, err)
			return
		}
		logger.Debug("reaction added",
			logger.String("kind", string(kind)),
			logger.String("target", target),
			logger.Int64("targetID", targetID),
			logger.Int64("userID", userID))
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"target_type": target,
			"target_id":   targetID,
		})
	}
}

// ReactorsHandler lists the users who liked or reposted a track or set.
func (h *APIHandler) ReactorsHandler(kind repository.ReactionKind, target string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		targetID, err := h.ensureTarget(r, target)
		if err != nil {
			writeError(w, r, err)
			return
		}

		ctx := r.Context()
		page := pageFromRequest(r, reactionPageSize)
		users, total, err := h.reactionRepo.Users(ctx, kind, target, targetID, page)
		if err != nil {
			writeError(w, r, err)
			return
		}
		results, err := h.serializeUserSummaries(ctx, users)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, pageResponse{Count: total, Page: page.Number, Results: results})
	}
}
