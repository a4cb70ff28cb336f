package server

import (
	"net/http"
	"strconv"
	"time"

	"soundhub/core/auth"
	"soundhub/media"
	"soundhub/model"
	"soundhub/repository"

	"github.com/gorilla/mux"
)

// Repositories 汇总处理器依赖的仓库
type Repositories struct {
	Users     repository.UserRepository
	Tracks    repository.TrackRepository
	Sets      repository.SetRepository
	Reactions repository.ReactionRepository
	Comments  repository.CommentRepository
}

// APIHandler 处理所有API请求
type APIHandler struct {
	userRepo     repository.UserRepository
	trackRepo    repository.TrackRepository
	setRepo      repository.SetRepository
	reactionRepo repository.ReactionRepository
	commentRepo  repository.CommentRepository
	uploader     *media.Uploader
	tokens       *auth.TokenManager
	now          func() time.Time
}

// NewAPIHandler 创建新的API处理器
func NewAPIHandler(repos Repositories, uploader *media.Uploader, tokens *auth.TokenManager) *APIHandler {
	return &APIHandler{
		userRepo:     repos.Users,
		trackRepo:    repos.Tracks,
		setRepo:      repos.Sets,
		reactionRepo: repos.Reactions,
		commentRepo:  repos.Comments,
		uploader:     uploader,
		tokens:       tokens,
		now:          time.Now,
	}
}

// pathID parses a numeric mux path variable. Routes constrain it to digits,
// so a parse failure means the id is out of range.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, repository.ErrNotFound
	}
	return id, nil
}

// namedTags stages the genre and tags named in a request. Rows are matched or
// created by the repository in the same transaction as the owning entity.
func namedTags(genreInput *string, tagsInput *[]string) (*model.Tag, []*model.Tag) {
	var genre *model.Tag
	if genreInput != nil {
		genre = &model.Tag{Name: *genreInput}
	}
	var tags []*model.Tag
	if tagsInput != nil {
		tags = make([]*model.Tag, 0, len(*tagsInput))
		for _, name := range *tagsInput {
			tags = append(tags, &model.Tag{Name: name})
		}
	}
	return genre, tags
}
