package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"bionorm/database"
	"bionorm/internal/config"
	"bionorm/normalization"
	"bionorm/server/handlers"
	"bionorm/server/middleware"
	"bionorm/server/services"
)

const (
	// cachePurgeInterval период фоновой чистки истекших записей кэша
	cachePurgeInterval = 1 * time.Hour
)

// Server HTTP сервер нормализации терминов
type Server struct {
	config     *config.Config
	normalizer *normalization.Normalizer
	cache      normalization.CacheStore
	termDB     *database.TermDB
	serviceDB  *database.ServiceDB

	normalizationService *services.NormalizationService
	dictionaryService    *services.DictionaryService

	normalizationHandler *handlers.NormalizationHandler
	dictionaryHandler    *handlers.DictionaryHandler
	recordsHandler       *handlers.RecordsHandler
	cacheHandler         *handlers.CacheHandler
	statsHandler         *handlers.StatsHandler
	configHandler        *handlers.ConfigHandler

	httpServer     *http.Server
	httpHandler    http.Handler
	handlerOnce    sync.Once
	handlerInitErr error
	shutdownChan   chan struct{}
	startTime      time.Time
	logger         *slog.Logger
}

// NewServer создает сервер и связывает сервисы с обработчиками.
// dict нужен сервису словаря для публикации изменений без перезапуска;
// cache передается тем же экземпляром, что подключен к оркестратору
func NewServer(
	cfg *config.Config,
	normalizer *normalization.Normalizer,
	dict *normalization.Dictionary,
	cache normalization.CacheStore,
	termDB *database.TermDB,
	serviceDB *database.ServiceDB,
) *Server {
	s := &Server{
		config:       cfg,
		normalizer:   normalizer,
		cache:        cache,
		termDB:       termDB,
		serviceDB:    serviceDB,
		shutdownChan: make(chan struct{}),
		startTime:    time.Now(),
		logger:       slog.Default().With("component", "server"),
	}

	s.normalizationService = services.NewNormalizationService(normalizer, serviceDB, cache, 0)
	if termDB != nil {
		s.dictionaryService = services.NewDictionaryService(termDB, dict)
	}

	s.normalizationHandler = handlers.NewNormalizationHandler(s.normalizationService)
	s.cacheHandler = handlers.NewCacheHandler(s.normalizationService)
	s.statsHandler = handlers.NewStatsHandler(s.normalizationService, s.dictionaryService)
	if s.dictionaryService != nil {
		s.dictionaryHandler = handlers.NewDictionaryHandler(s.dictionaryService)
	}
	if serviceDB != nil {
		s.recordsHandler = handlers.NewRecordsHandler(serviceDB)
		s.configHandler = handlers.NewConfigHandler(serviceDB)
	}

	return s
}

// Start запускает HTTP сервер. Блокирует до остановки
func (s *Server) Start() error {
	handler, err := s.ensureHTTPHandler()
	if err != nil {
		return err
	}

	// WriteTimeout рассчитан на длинные стримы экспорта
	addr := fmt.Sprintf(":%s", s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go s.startCachePurger()

	s.logger.Info("starting HTTP server", "addr", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed on %s: %w", addr, err)
	}

	return nil
}

// Shutdown останавливает сервер gracefully: фоновые задачи завершаются,
// активные запросы дорабатывают до дедлайна контекста
func (s *Server) Shutdown(ctx context.Context) error {
	close(s.shutdownChan)

	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("initiating graceful shutdown")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("graceful shutdown completed")
	return nil
}

// ServeHTTP реализует http.Handler для тестов и вспомогательных утилит
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	handler, err := s.ensureHTTPHandler()
	if err != nil {
		http.Error(w, "server is not initialized", http.StatusInternalServerError)
		return
	}

	handler.ServeHTTP(w, r)
}

func (s *Server) ensureHTTPHandler() (http.Handler, error) {
	s.handlerOnce.Do(func() {
		handler, err := s.buildHTTPHandler()
		if err != nil {
			s.handlerInitErr = err
			return
		}
		s.httpHandler = handler
	})

	if s.handlerInitErr != nil {
		return nil, s.handlerInitErr
	}
	if s.httpHandler == nil {
		return nil, fmt.Errorf("http handler is nil")
	}
	return s.httpHandler, nil
}

func (s *Server) buildHTTPHandler() (http.Handler, error) {
	// Режим Gin: release по умолчанию, переопределяется через GIN_MODE
	if ginMode := os.Getenv("GIN_MODE"); ginMode == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.GinRequestIDMiddleware())
	router.Use(middleware.GinCORSMiddleware())
	router.Use(middleware.GinGzipMiddleware())
	router.Use(middleware.GinLoggerMiddleware())
	router.Use(middleware.GinRecoveryMiddleware())

	handlers.RegisterSwaggerRoutes(router, s.config.Port)
	s.registerGinHandlers(router)

	return router, nil
}

// registerGinHandlers регистрирует все маршруты API
func (s *Server) registerGinHandlers(router *gin.Engine) {
	// Health check без зависимостей
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"service":  "bionorm",
			"time":     time.Now().Format(time.RFC3339),
			"uptime_s": int64(time.Since(s.startTime).Seconds()),
		})
	})

	api := router.Group("/api/v1")

	api.POST("/normalize", s.normalizationHandler.HandleNormalizeGin)
	api.POST("/normalize/batch", s.normalizationHandler.HandleNormalizeBatchGin)

	cacheAPI := api.Group("/cache")
	{
		cacheAPI.GET("/stats", s.cacheHandler.HandleCacheStatsGin)
		cacheAPI.POST("/clear", s.cacheHandler.HandleCacheClearGin)
	}

	api.GET("/stats", s.statsHandler.HandleStatsGin)

	if s.dictionaryHandler != nil {
		dictionaryAPI := api.Group("/dictionary")
		{
			dictionaryAPI.POST("/reload", s.dictionaryHandler.HandleDictionaryReloadGin)
			dictionaryAPI.GET("/:category", s.dictionaryHandler.HandleDictionaryListGin)
			dictionaryAPI.POST("/:category", s.dictionaryHandler.HandleDictionaryUpsertGin)
			dictionaryAPI.DELETE("/:category/:id", s.dictionaryHandler.HandleDictionaryDeleteGin)
		}
	}

	if s.recordsHandler != nil {
		api.GET("/records", s.recordsHandler.HandleRecordsListGin)
		api.GET("/records/review", s.recordsHandler.HandleReviewQueueGin)
		api.GET("/export", s.recordsHandler.HandleExportGin)
	}

	if s.configHandler != nil {
		configAPI := api.Group("/config")
		{
			configAPI.GET("", s.configHandler.HandleConfigGetGin)
			configAPI.PUT("", s.configHandler.HandleConfigUpdateGin)
			configAPI.GET("/history", s.configHandler.HandleConfigHistoryGin)
		}
	}
}

// startCachePurger периодически вычищает истекшие записи из кэша,
// если бекенд поддерживает чистку. TTL проверяется лениво при чтении,
// фоновая чистка не дает протухшим записям накапливаться в SQLite
func (s *Server) startCachePurger() {
	purger, ok := s.cache.(interface{ PurgeExpired() (int64, error) })
	if !ok {
		return
	}

	ticker := time.NewTicker(cachePurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			purged, err := purger.PurgeExpired()
			if err != nil {
				s.logger.Warn("cache purge failed", "error", err)
				continue
			}
			if purged > 0 {
				s.logger.Info("purged expired cache entries", "count", purged)
			}
		case <-s.shutdownChan:
			return
		}
	}
}
