package server

import (
	"context"
	"errors"
	"net/http"

	"soundhub/core/auth"
	"soundhub/logger"
	"soundhub/media"
	"soundhub/model"
	"soundhub/repository"
)

// userUpdateRequest 用户资料更新请求体
type userUpdateRequest struct {
	Email                *string `json:"email" validate:"omitempty,max=100,email"`
	Permalink            *string `json:"permalink" validate:"omitempty,min=3,max=25"`
	DisplayName          *string `json:"display_name" validate:"omitempty,min=1,max=25"`
	Password             *string `json:"password" validate:"omitempty,min=8,max=128"`
	Age                  *int    `json:"age" validate:"omitempty,gte=1"`
	Gender               *string `json:"gender" validate:"omitempty,max=20"`
	FirstName            *string `json:"first_name" validate:"omitempty,max=20"`
	LastName             *string `json:"last_name" validate:"omitempty,max=20"`
	City                 *string `json:"city" validate:"omitempty,max=50"`
	Country              *string `json:"country" validate:"omitempty,max=50"`
	Bio                  *string `json:"bio"`
	ImageProfileFilename *string `json:"image_profile_filename"`
	ImageHeaderFilename  *string `json:"image_header_filename"`
}

func (req *userUpdateRequest) filenames() media.Filenames {
	f := media.Filenames{}
	if req.ImageProfileFilename != nil {
		f[media.FieldImageProfile] = req.ImageProfileFilename
	}
	if req.ImageHeaderFilename != nil {
		f[media.FieldImageHeader] = req.ImageHeaderFilename
	}
	return f
}

func (h *APIHandler) applyUserUpdate(ctx context.Context, req *userUpdateRequest, u *model.User) error {
	if req.Email != nil && *req.Email != u.Email {
		taken, err := h.userRepo.EmailExists(ctx, *req.Email)
		if err != nil {
			return err
		}
		if taken {
			return &httpError{status: http.StatusConflict, body: map[string]string{"email": "Already existing email."}}
		}
		u.Email = *req.Email
	}
	if req.Permalink != nil && *req.Permalink != u.Permalink {
		taken, err := h.userRepo.PermalinkExists(ctx, *req.Permalink)
		if err != nil {
			return err
		}
		if taken {
			return fieldError("permalink", "Already existing permalink.")
		}
		u.Permalink = *req.Permalink
	}
	if req.Password != nil {
		hashed, err := auth.HashPassword(*req.Password)
		if err != nil {
			return err
		}
		u.PasswordHash = hashed
	}
	if req.Age != nil {
		birthday := birthdayFromAge(h.now(), *req.Age)
		u.Birthday = &birthday
	}

	for _, f := range []struct {
		src *string
		dst *string
	}{
		{req.DisplayName, &u.DisplayName},
		{req.Gender, &u.Gender},
		{req.FirstName, &u.FirstName},
		{req.LastName, &u.LastName},
		{req.City, &u.City},
		{req.Country, &u.Country},
		{req.Bio, &u.Bio},
	} {
		if f.src != nil {
			*f.dst = *f.src
		}
	}

	if (u.FirstName == "") != (u.LastName == "") {
		return fieldError("non_field_errors", "Both of the first name and the last name must be entered.")
	}
	return nil
}

// GetUserHandler 获取用户公开资料
func (h *APIHandler) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeUser(w, r, id, http.StatusOK, nil)
}

// GetMeHandler 获取当前用户资料
func (h *APIHandler) GetMeHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, errUnauthorized)
		return
	}
	h.writeUser(w, r, userID, http.StatusOK, nil)
}

// writeUser renders user id. Non-nil filenames add upload targets.
func (h *APIHandler) writeUser(w http.ResponseWriter, r *http.Request, id int64, status int, filenames media.Filenames) {
	ctx := r.Context()
	user, err := h.userRepo.GetByID(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp, err := h.serializeUser(ctx, user, viewerID(r) == user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if filenames == nil {
		writeJSON(w, status, resp)
		return
	}

	targets, err := h.uploader.UploadTargets(ctx, user, filenames)
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

// UpdateMeHandler handles PUT and PATCH on the current user.
func (h *APIHandler) UpdateMeHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, errUnauthorized)
		return
	}

	var req userUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()
	filenames := req.filenames()
	if err := h.uploader.Validate(media.EntityUser, filenames); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.userRepo.GetByID(ctx, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.applyUserUpdate(ctx, &req, user); err != nil {
		writeError(w, r, err)
		return
	}

	err = h.uploader.Apply(ctx, user, filenames, func(ctx context.Context) error {
		return h.userRepo.Update(ctx, user)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeUser(w, r, userID, http.StatusOK, filenames)
}

// ========== 关注 ==========

// FollowHandler follows (POST) or unfollows (DELETE) the user at {id}.
func (h *APIHandler) FollowHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, errUnauthorized)
		return
	}
	targetID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if targetID == userID {
		writeError(w, r, detailError(http.StatusBadRequest, "You cannot follow yourself."))
		return
	}

	ctx := r.Context()
	if _, err := h.userRepo.GetByID(ctx, targetID); err != nil {
		writeError(w, r, err)
		return
	}

	if r.Method == http.MethodDelete {
		removed, err := h.userRepo.Unfollow(ctx, userID, targetID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !removed {
			writeError(w, r, detailError(http.StatusNotFound, "Not following this user."))
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := h.userRepo.Follow(ctx, userID, targetID); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			writeError(w, r, detailError(http.StatusConflict, "Already following this user."))
			return
		}
		writeError(w, r, err)
		return
	}
	logger.Debug("follow created", logger.Int64("follower", userID), logger.Int64("followee", targetID))
	h.writeUser(w, r, targetID, http.StatusCreated, nil)
}

// FollowListHandler lists followers or followings of the user at {id}.
func (h *APIHandler) FollowListHandler(followers bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}

		ctx := r.Context()
		if _, err := h.userRepo.GetByID(ctx, id); err != nil {
			writeError(w, r, err)
			return
		}

		page := pageFromRequest(r, defaultPageSize)
		list := h.userRepo.Followings
		if followers {
			list = h.userRepo.Followers
		}
		users, total, err := list(ctx, id, page)
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
