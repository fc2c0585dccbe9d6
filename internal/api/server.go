package api

import (
	"context"
	"log/slog"
	"net/http"

	"rastreador-precos/internal/models"
	"rastreador-precos/internal/monitor"
	"rastreador-precos/internal/tracking"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// TrackerService são os casos de uso de trackers expostos pela API
type TrackerService interface {
	CreateTracker(ctx context.Context, userID int64, productURL string, targetPrice *decimal.Decimal) (*tracking.CreateResult, error)
	ListTrackers(ctx context.Context, userID int64) ([]models.TrackerWithProduct, error)
	DeleteTracker(ctx context.Context, userID, trackerID int64) error
	SetActive(ctx context.Context, userID, trackerID int64, active bool) error
	ProductDetail(ctx context.Context, userID, productID int64) (*tracking.ProductDetail, error)
	RecentAlerts(ctx context.Context, userID int64, limit int) ([]models.Alert, error)
}

// BatchRunner dispara uma passada de atualização
type BatchRunner interface {
	RunBatch(ctx context.Context) (monitor.BatchResult, error)
	State() monitor.State
}

// AlertRunner dispara uma avaliação de alertas
type AlertRunner interface {
	Evaluate(ctx context.Context) (monitor.AlertResult, error)
}

// AdminStore é o acesso direto ao banco usado pelos endpoints de admin e health
type AdminStore interface {
	RecentScrapeLogs(ctx context.Context, limit int) ([]models.ScrapeLog, error)
	Ping(ctx context.Context) error
}

// Server expõe a API HTTP
type Server struct {
	logger   *slog.Logger
	router   *gin.Engine
	trackers TrackerService
	batch    BatchRunner
	alerts   AlertRunner
	store    AdminStore
}

// NewServer monta o roteador com todas as rotas
func NewServer(trackers TrackerService, batch BatchRunner, alerts AlertRunner, store AdminStore, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(logger))

	s := &Server{
		logger:   logger,
		router:   r,
		trackers: trackers,
		batch:    batch,
		alerts:   alerts,
		store:    store,
	}
	s.registerRoutes()
	return s
}

// Router retorna o handler HTTP
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.router.GET("/healthz", s.handleHealthz)

	api := s.router.Group("/api")

	user := api.Group("/")
	user.Use(UserIDMiddleware())
	user.POST("/trackers", s.handleCreateTracker)
	user.GET("/trackers", s.handleListTrackers)
	user.PATCH("/trackers/:id", s.handleUpdateTracker)
	user.DELETE("/trackers/:id", s.handleDeleteTracker)
	user.GET("/products/:id", s.handleProductDetail)
	user.GET("/alerts", s.handleListAlerts)

	// autenticação de admin fica na camada de borda, como a do usuário
	admin := api.Group("/admin")
	admin.POST("/batch", s.handleRunBatch)
	admin.GET("/batch", s.handleBatchState)
	admin.POST("/alerts", s.handleRunAlerts)
	admin.GET("/scrape-logs", s.handleScrapeLogs)
}
