package tracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"rastreador-precos/internal/database"
	"rastreador-precos/internal/models"
	"rastreador-precos/internal/queue"
	"rastreador-precos/internal/scraper"

	"github.com/shopspring/decimal"
)

// ErrInvalidTargetPrice indica preço alvo zero ou negativo
var ErrInvalidTargetPrice = errors.New("preço alvo deve ser positivo")

// HistoryWindow é o período de histórico devolvido no detalhe do produto
const HistoryWindow = 30 * 24 * time.Hour

// Store é o que o serviço precisa do banco
type Store interface {
	GetOrCreateProductByURL(ctx context.Context, url string, platform models.Platform) (int64, bool, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	CreateTracker(ctx context.Context, userID, productID int64, targetPrice decimal.NullDecimal) (*models.Tracker, error)
	ListTrackersByUser(ctx context.Context, userID int64) ([]models.TrackerWithProduct, error)
	GetTrackerForUser(ctx context.Context, userID, productID int64) (*models.Tracker, error)
	DeleteTracker(ctx context.Context, trackerID, userID int64) error
	SetTrackerActive(ctx context.Context, trackerID, userID int64, active bool) error
	QueryHistory(ctx context.Context, productID int64, since time.Time) ([]models.PriceSnapshot, error)
	ListAlertsByUser(ctx context.Context, userID int64, limit int) ([]models.Alert, error)
}

// Refresher atualiza um único produto
type Refresher interface {
	ScrapeProduct(ctx context.Context, product models.Product) error
}

// Submitter enfileira trabalho em segundo plano
type Submitter interface {
	Submit(name string, job queue.Job) (*queue.Task, error)
}

// Service reúne os casos de uso de trackers usados pelo bot e pela API
type Service struct {
	store     Store
	refresher Refresher
	queue     Submitter
	logger    *slog.Logger
	now       func() time.Time
}

// NewService cria o serviço
func NewService(store Store, refresher Refresher, q Submitter, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		refresher: refresher,
		queue:     q,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateResult é o tracker criado e, se houver, a atualização disparada para o produto
type CreateResult struct {
	Tracker models.TrackerWithProduct
	// Refresh é nil quando o produto já tinha dados ou a fila recusou a tarefa
	Refresh *queue.Task
}

// CreateTracker valida a URL e o alvo, resolve o produto e cria o tracker.
// Produto novo (ou ainda sem dados) ganha uma atualização na fila; a chamada não espera por ela.
func (s *Service) CreateTracker(ctx context.Context, userID int64, productURL string, targetPrice *decimal.Decimal) (*CreateResult, error) {
	productURL = strings.TrimSpace(productURL)
	platform, err := scraper.ResolvePlatform(productURL)
	if err != nil {
		return nil, err
	}

	target := decimal.NullDecimal{}
	if targetPrice != nil {
		if !targetPrice.IsPositive() {
			return nil, ErrInvalidTargetPrice
		}
		target = decimal.NewNullDecimal(*targetPrice)
	}

	productID, created, err := s.store.GetOrCreateProductByURL(ctx, productURL, platform)
	if err != nil {
		return nil, err
	}
	tracker, err := s.store.CreateTracker(ctx, userID, productID, target)
	if err != nil {
		return nil, err
	}
	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	result := &CreateResult{Tracker: models.TrackerWithProduct{Tracker: *tracker, Product: *product}}
	if created || product.IsPlaceholder() {
		result.Refresh = s.submitRefresh(*product)
	}

	s.logger.Info("tracker criado",
		"user_id", userID,
		"product_id", productID,
		"platform", platform,
		"new_product", created)
	return result, nil
}

func (s *Service) submitRefresh(product models.Product) *queue.Task {
	if s.queue == nil || s.refresher == nil {
		return nil
	}
	task, err := s.queue.Submit(fmt.Sprintf("refresh:%d", product.ID), func(ctx context.Context) error {
		return s.refresher.ScrapeProduct(ctx, product)
	})
	if err != nil {
		// o produto continua placeholder e entra na próxima passada
		s.logger.Warn("atualização imediata não enfileirada", "product_id", product.ID, "error", err)
		return nil
	}
	return task
}

// ListTrackers retorna os trackers do usuário com o estado atual dos produtos
func (s *Service) ListTrackers(ctx context.Context, userID int64) ([]models.TrackerWithProduct, error) {
	return s.store.ListTrackersByUser(ctx, userID)
}

// DeleteTracker remove um tracker do usuário; de outro usuário vira ErrNotFound
func (s *Service) DeleteTracker(ctx context.Context, userID, trackerID int64) error {
	return s.store.DeleteTracker(ctx, trackerID, userID)
}

// SetActive pausa ou retoma um tracker
func (s *Service) SetActive(ctx context.Context, userID, trackerID int64, active bool) error {
	return s.store.SetTrackerActive(ctx, trackerID, userID, active)
}

// RecentAlerts retorna os últimos alertas do usuário
func (s *Service) RecentAlerts(ctx context.Context, userID int64, limit int) ([]models.Alert, error) {
	return s.store.ListAlertsByUser(ctx, userID, limit)
}

// ProductDetail é o produto com histórico, estatísticas e o tracker do usuário
type ProductDetail struct {
	Product      models.Product         `json:"product"`
	PriceHistory []models.PriceSnapshot `json:"priceHistory"`
	Tracker      *models.Tracker        `json:"tracker"`
	Statistics   models.PriceStats      `json:"statistics"`
}

// ProductDetail monta o detalhe do produto para o usuário
func (s *Service) ProductDetail(ctx context.Context, userID, productID int64) (*ProductDetail, error) {
	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	history, err := s.store.QueryHistory(ctx, productID, s.now().Add(-HistoryWindow))
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []models.PriceSnapshot{}
	}

	tracker, err := s.store.GetTrackerForUser(ctx, userID, productID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	return &ProductDetail{
		Product:      *product,
		PriceHistory: history,
		Tracker:      tracker,
		Statistics:   Stats(history),
	}, nil
}

// Stats calcula menor, maior e média do histórico; a média tem duas casas
func Stats(history []models.PriceSnapshot) models.PriceStats {
	if len(history) == 0 {
		return models.PriceStats{}
	}
	lowest, highest, sum := history[0].Price, history[0].Price, decimal.Zero
	for _, s := range history {
		if s.Price.LessThan(lowest) {
			lowest = s.Price
		}
		if s.Price.GreaterThan(highest) {
			highest = s.Price
		}
		sum = sum.Add(s.Price)
	}
	return models.PriceStats{
		LowestPrice:  lowest,
		HighestPrice: highest,
		AvgPrice:     sum.Div(decimal.NewFromInt(int64(len(history)))).Round(2),
	}
}
