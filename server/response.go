package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"soundhub/logger"
	"soundhub/media"
	"soundhub/repository"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
	// 点赞/转发用户列表的分页大小
	reactionPageSize = 6
)

// httpError carries an explicit status and JSON body.
type httpError struct {
	status int
	body   interface{}
}

func (e *httpError) Error() string {
	b, _ := json.Marshal(e.body)
	return http.StatusText(e.status) + ": " + string(b)
}

// fieldError is a 400 naming the offending request field.
func fieldError(field, reason string) error {
	return &httpError{status: http.StatusBadRequest, body: map[string][]string{field: {reason}}}
}

func detailError(status int, msg string) error {
	return &httpError{status: status, body: map[string]string{"detail": msg}}
}

var (
	errUnauthorized = detailError(http.StatusUnauthorized, "Authentication credentials were not provided.")
	errForbidden    = detailError(http.StatusForbidden, "You do not have permission to perform this action.")
	errInvalidBody  = detailError(http.StatusBadRequest, "Invalid request body.")
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("写入响应失败", logger.ErrorField(err))
	}
}

// writeError maps err to a status code and body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		httpErr  *httpError
		validErr *media.ValidationError
	)
	switch {
	case errors.As(err, &httpErr):
		writeJSON(w, httpErr.status, httpErr.body)
	case errors.As(err, &validErr):
		writeJSON(w, http.StatusBadRequest, map[string][]string{validErr.Field: {validErr.Reason}})
	case errors.Is(err, repository.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
	case errors.Is(err, media.ErrConflict), errors.Is(err, media.ErrSuffixExhausted):
		logger.Warn("media url conflict", logger.String("path", r.URL.Path), logger.ErrorField(err))
		writeJSON(w, http.StatusConflict, map[string]string{"detail": "Already existing name."})
	case errors.Is(err, media.ErrPresign):
		logger.Error("presign failed", logger.String("path", r.URL.Path), logger.ErrorField(err))
		writeJSON(w, http.StatusBadGateway, map[string]string{"detail": "Object storage is unavailable."})
	default:
		logger.Error("request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.ErrorField(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "Internal server error."})
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		logger.Debug("解析请求体失败", logger.ErrorField(err))
		return errInvalidBody
	}
	return nil
}

// pageFromRequest reads ?page=&page_size=.
func pageFromRequest(r *http.Request, size int) repository.Page {
	q := r.URL.Query()
	number, err := strconv.Atoi(q.Get("page"))
	if err != nil || number < 1 {
		number = 1
	}
	if s, err := strconv.Atoi(q.Get("page_size")); err == nil && s > 0 {
		size = s
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return repository.Page{Number: number, Size: size}
}

// pageResponse 分页响应
type pageResponse struct {
	Count   int64       `json:"count"`
	Page    int         `json:"page"`
	Results interface{} `json:"results"`
}
