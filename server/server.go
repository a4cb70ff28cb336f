package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"soundhub/cache"
	"soundhub/config"
	"soundhub/core/auth"
	"soundhub/db"
	"soundhub/logger"
	"soundhub/media"
	"soundhub/model"
	"soundhub/repository"
	"soundhub/storage"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const requestIDHeader = "X-Request-ID"

// NewRouter registers every API route on a gorilla/mux router.
func NewRouter(h *APIHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(corsMiddleware, requestLogMiddleware)

	api := router.PathPrefix("/api").Subrouter()

	// 用户认证相关的API端点
	api.HandleFunc("/users", h.RegisterHandler).Methods(http.MethodPost)
	api.HandleFunc("/login", h.LoginHandler).Methods(http.MethodPost, http.MethodPut)

	// 用户与关注
	api.HandleFunc("/users/me", h.AuthMiddleware(h.GetMeHandler)).Methods(http.MethodGet)
	api.HandleFunc("/users/me", h.AuthMiddleware(h.UpdateMeHandler)).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/users/me/followings/{id:[0-9]+}", h.AuthMiddleware(h.FollowHandler)).Methods(http.MethodPost, http.MethodDelete)
	api.HandleFunc("/users/{id:[0-9]+}", h.OptionalAuth(h.GetUserHandler)).Methods(http.MethodGet)
	api.HandleFunc("/users/{id:[0-9]+}/followers", h.FollowListHandler(true)).Methods(http.MethodGet)
	api.HandleFunc("/users/{id:[0-9]+}/followings", h.FollowListHandler(false)).Methods(http.MethodGet)
	api.HandleFunc("/users/{id:[0-9]+}/tracks", h.OptionalAuth(h.ListUserTracksHandler)).Methods(http.MethodGet)

	// 歌曲
	api.HandleFunc("/tracks", h.OptionalAuth(h.ListTracksHandler)).Methods(http.MethodGet)
	api.HandleFunc("/tracks", h.AuthMiddleware(h.CreateTrackHandler)).Methods(http.MethodPost)
	api.HandleFunc("/tracks/{id:[0-9]+}", h.OptionalAuth(h.GetTrackHandler)).Methods(http.MethodGet)
	api.HandleFunc("/tracks/{id:[0-9]+}", h.AuthMiddleware(h.UpdateTrackHandler)).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/tracks/{id:[0-9]+}", h.AuthMiddleware(h.DeleteTrackHandler)).Methods(http.MethodDelete)
	api.HandleFunc("/tracks/{id:[0-9]+}/likers", h.OptionalAuth(h.ReactorsHandler(repository.KindLike, model.TargetTrack))).Methods(http.MethodGet)
	api.HandleFunc("/tracks/{id:[0-9]+}/reposters", h.OptionalAuth(h.ReactorsHandler(repository.KindRepost, model.TargetTrack))).Methods(http.MethodGet)
	api.HandleFunc("/tracks/{id:[0-9]+}/comments", h.OptionalAuth(h.ListCommentsHandler)).Methods(http.MethodGet)
	api.HandleFunc("/tracks/{id:[0-9]+}/comments", h.AuthMiddleware(h.CreateCommentHandler)).Methods(http.MethodPost)
	api.HandleFunc("/tracks/{id:[0-9]+}/comments/{comment_id:[0-9]+}", h.AuthMiddleware(h.DeleteCommentHandler)).Methods(http.MethodDelete)

	// 歌单
	api.HandleFunc("/sets", h.OptionalAuth(h.ListSetsHandler)).Methods(http.MethodGet)
	api.HandleFunc("/sets", h.AuthMiddleware(h.CreateSetHandler)).Methods(http.MethodPost)
	api.HandleFunc("/sets/{id:[0-9]+}", h.OptionalAuth(h.GetSetHandler)).Methods(http.MethodGet)
	api.HandleFunc("/sets/{id:[0-9]+}", h.AuthMiddleware(h.UpdateSetHandler)).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/sets/{id:[0-9]+}", h.AuthMiddleware(h.DeleteSetHandler)).Methods(http.MethodDelete)
	api.HandleFunc("/sets/{id:[0-9]+}/tracks", h.AuthMiddleware(h.SetTracksHandler)).Methods(http.MethodPost, http.MethodDelete)
	api.HandleFunc("/sets/{id:[0-9]+}/likers", h.OptionalAuth(h.ReactorsHandler(repository.KindLike, model.TargetSet))).Methods(http.MethodGet)
	api.HandleFunc("/sets/{id:[0-9]+}/reposters", h.OptionalAuth(h.ReactorsHandler(repository.KindRepost, model.TargetSet))).Methods(http.MethodGet)

	// 点赞与转发
	api.HandleFunc("/likes/{target:tracks|sets}/{id:[0-9]+}", h.AuthMiddleware(h.ReactionHandler(repository.KindLike))).Methods(http.MethodPost, http.MethodDelete)
	api.HandleFunc("/reposts/{target:tracks|sets}/{id:[0-9]+}", h.AuthMiddleware(h.ReactionHandler(repository.KindRepost))).Methods(http.MethodPost, http.MethodDelete)

	return router
}

// 添加 CORS 中间件
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+requestIDHeader)
		w.Header().Set("Access-Control-Expose-Headers", requestIDHeader)
		w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// requestLogMiddleware tags each request with an id and logs its outcome.
func requestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		logger.Info("http request",
			logger.String("requestID", id),
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", rec.status),
			logger.Duration("latency", time.Since(start)))
	})
}

// NewMediaUploader wires the media pipeline for cfg. cache may be nil.
func NewMediaUploader(cfg *config.Config, lookup media.URLLookup, presigner media.ObjectPresigner, urlCache media.URLCache) *media.Uploader {
	registry := media.NewRegistry(cfg.StorageBaseURL, media.Dirs{
		TrackAudio:  cfg.MusicTrackDir,
		TrackImage:  cfg.ImagesTrackDir,
		SetImage:    cfg.ImagesSetDir,
		UserProfile: cfg.ImagesUserProfileDir,
		UserHeader:  cfg.ImagesUserHeaderDir,
	})
	resolver := media.NewResolver(registry, lookup, cfg.ResolveMaxAttempts)

	var opts []media.IssuerOption
	if urlCache != nil {
		opts = append(opts, media.WithReadCache(urlCache))
	}
	issuer := media.NewIssuer(presigner, cfg.StorageBaseURL, opts...)

	logger.Info("Media pipeline ready",
		logger.Any("basePaths", registry.BasePaths()),
		logger.Int("maxAttempts", cfg.ResolveMaxAttempts),
		logger.Bool("readCache", urlCache != nil))
	return media.NewUploader(registry, resolver, issuer)
}

// Start initializes and starts the HTTP server.
func Start(cfg *config.Config) error {
	gdb, err := db.ConnectGormDB(cfg)
	if err != nil {
		return err
	}
	defer db.CloseGormDB()

	if err := db.AutoMigrate(gdb); err != nil {
		return err
	}

	presigner, err := storage.NewPresigner(cfg)
	if err != nil {
		return err
	}
	if store, ok := presigner.(*storage.MinioStore); ok {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := store.EnsureBucket(ctx)
		cancel()
		if err != nil {
			return err
		}
	}

	// Redis 不可用时不缓存预签名URL
	var urlCache media.URLCache
	if client, err := cache.ConnectRedis(cfg); err != nil {
		logger.Warn("Redis unavailable, presigned URL cache disabled", logger.ErrorField(err))
	} else {
		defer cache.CloseRedis()
		presignCache := cache.NewPresignCache(client, cfg.PresignCacheTTL)
		urlCache = presignCache
		logger.Info("Successfully connected to Redis", logger.String("presignCacheTTL", presignCache.TTL().String()))
	}

	uploader := NewMediaUploader(cfg, repository.NewMediaRepository(gdb), presigner, urlCache)
	handler := NewAPIHandler(Repositories{
		Users:     repository.NewGormUserRepository(gdb),
		Tracks:    repository.NewGormTrackRepository(gdb),
		Sets:      repository.NewGormSetRepository(gdb),
		Reactions: repository.NewGormReactionRepository(gdb),
		Comments:  repository.NewGormCommentRepository(gdb),
	}, uploader, auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiry))

	// 设置服务器超时
	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      NewRouter(handler),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 创建一个通道来接收操作系统信号
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", logger.String("addr", cfg.ServerAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// 等待中断信号
	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-stop:
	}
	logger.Info("Shutting down server...")

	// 创建一个5秒超时的上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 优雅关闭服务器
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}
