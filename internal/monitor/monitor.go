package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"rastreador-precos/internal/metrics"
	"rastreador-precos/internal/models"
	"rastreador-precos/internal/scraper"

	"github.com/codeGROOVE-dev/retry"
	"github.com/google/uuid"
)

// ErrBatchRunning indica que já existe uma passada em andamento
var ErrBatchRunning = errors.New("atualização de preços já em andamento")

// State é a fase da passada atual (ou da última)
type State string

const (
	StateIdle        State = "idle"
	StateEnumerating State = "enumerating"
	StateBatching    State = "batching"
	StateCompleted   State = "completed"
)

// Store é o que o monitor precisa do banco
type Store interface {
	ListTrackedProducts(ctx context.Context) ([]models.Product, error)
	SaveScrapeResult(ctx context.Context, productID int64, scraped *models.ScrapedProduct) (int64, error)
	RecordScrapeResult(ctx context.Context, productID *int64, status models.ScrapeStatus, errorMessage string) error
}

// Scraper busca e extrai um produto a partir da URL
type Scraper interface {
	Scrape(ctx context.Context, productURL string) (*models.ScrapedProduct, error)
}

// Config controla o ritmo das passadas
type Config struct {
	Interval      time.Duration
	BatchSize     int
	BatchDelay    time.Duration
	RetryAttempts uint
	RetryDelay    time.Duration
}

// BatchResult resume uma passada
type BatchResult struct {
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
	Total   int `json:"total"`
}

// Monitor gerencia a atualização periódica dos produtos acompanhados
type Monitor struct {
	store     Store
	scraper   Scraper
	evaluator *Evaluator
	cfg       Config
	logger    *slog.Logger

	running atomic.Bool
	mu      sync.RWMutex
	state   State
}

// New cria uma nova instância do monitor. evaluator pode ser nil.
func New(store Store, s Scraper, evaluator *Evaluator, cfg Config, logger *slog.Logger) *Monitor {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	if cfg.BatchDelay < 0 {
		cfg.BatchDelay = 0
	}
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = 1
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Minute
	}
	return &Monitor{
		store:     store,
		scraper:   s,
		evaluator: evaluator,
		cfg:       cfg,
		logger:    logger,
		state:     StateIdle,
	}
}

// State retorna a fase atual
func (m *Monitor) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Monitor) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// Start roda uma passada imediatamente e depois a cada intervalo, até ctx acabar
func (m *Monitor) Start(ctx context.Context) {
	m.logger.Info("monitor iniciado", "interval", m.cfg.Interval, "batch_size", m.cfg.BatchSize)

	m.runScheduled(ctx)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("monitor parado")
			return
		case <-ticker.C:
			m.runScheduled(ctx)
		}
	}
}

func (m *Monitor) runScheduled(ctx context.Context) {
	if _, err := m.RunBatch(ctx); err != nil {
		if errors.Is(err, ErrBatchRunning) {
			m.logger.Info("passada agendada ignorada, outra em andamento")
			return
		}
		m.logger.Error("erro na passada agendada", "error", err)
	}
}

// RunBatch executa uma passada completa: enumera, atualiza em lotes e avalia alertas.
// Só uma passada roda por vez; as demais recebem ErrBatchRunning.
func (m *Monitor) RunBatch(ctx context.Context) (BatchResult, error) {
	if !m.running.CompareAndSwap(false, true) {
		return BatchResult{}, ErrBatchRunning
	}
	defer m.running.Store(false)

	logger := m.logger.With("run_id", uuid.NewString())
	start := time.Now()
	defer func() { metrics.BatchDuration.Observe(time.Since(start).Seconds()) }()

	m.setState(StateEnumerating)
	products, err := m.store.ListTrackedProducts(ctx)
	if err != nil {
		m.setState(StateIdle)
		return BatchResult{}, fmt.Errorf("enumerar produtos: %w", err)
	}

	result := BatchResult{Total: len(products)}
	batches := partition(products, m.cfg.BatchSize)
	logger.Info("passada iniciada", "products", len(products), "batches", len(batches))

	m.setState(StateBatching)
	for i, batch := range batches {
		for _, err := range m.runItems(ctx, batch) {
			if err != nil {
				result.Failed++
			} else {
				result.Updated++
			}
		}

		if i < len(batches)-1 && m.cfg.BatchDelay > 0 {
			select {
			case <-ctx.Done():
				m.setState(StateIdle)
				logger.Warn("passada interrompida", "updated", result.Updated, "failed", result.Failed)
				return result, ctx.Err()
			case <-time.After(m.cfg.BatchDelay):
			}
		}
	}

	if m.evaluator != nil {
		alerts, err := m.evaluator.Evaluate(ctx)
		if err != nil {
			logger.Error("erro ao avaliar alertas", "error", err)
		} else {
			logger.Info("alertas avaliados", "sent", alerts.AlertsSent, "errors", alerts.Errors)
		}
	}

	m.setState(StateCompleted)
	logger.Info("passada concluída",
		"updated", result.Updated,
		"failed", result.Failed,
		"total", result.Total,
		"duration", time.Since(start))
	return result, nil
}

// runItems roda o pipeline de cada item em paralelo e espera todos,
// guardando o resultado de cada um sem cancelar os demais.
func (m *Monitor) runItems(ctx context.Context, batch []models.Product) []error {
	errs := make([]error, len(batch))
	var wg sync.WaitGroup
	for i := range batch {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("panic ao atualizar produto %d: %v", batch[i].ID, r)
					m.logger.Error("panic recuperado", "product_id", batch[i].ID, "panic", r)
				}
			}()
			errs[i] = m.ScrapeProduct(ctx, batch[i])
		}(i)
	}
	wg.Wait()
	return errs
}

// ScrapeProduct atualiza um produto: busca, extrai, grava e registra o log.
// Falhas viram um ScrapeLog Failed; erro ao gravar o log não mascara o erro original.
func (m *Monitor) ScrapeProduct(ctx context.Context, product models.Product) error {
	logger := m.logger.With("product_id", product.ID, "url", product.URL, "platform", product.Platform)

	scraped, err := m.scrapeWithRetry(ctx, product.URL, logger)
	if err == nil {
		_, err = m.store.SaveScrapeResult(ctx, product.ID, scraped)
	}
	if err != nil {
		metrics.ScrapeTotal.WithLabelValues(string(product.Platform), "failed").Inc()
		logger.Warn("falha ao atualizar produto", "error", err)
		if logErr := m.store.RecordScrapeResult(context.WithoutCancel(ctx), &product.ID, models.ScrapeFailed, err.Error()); logErr != nil {
			logger.Error("erro ao gravar log de scrape", "error", logErr)
		}
		return err
	}

	metrics.ScrapeTotal.WithLabelValues(string(product.Platform), "success").Inc()
	logger.Debug("produto atualizado",
		"price", scraped.Price.String(),
		"available", scraped.IsAvailable,
		"price_source", scraped.PriceSource,
		"name_source", scraped.NameSource)
	return nil
}

// scrapeWithRetry repete só falhas transitórias de rede (timeout, 429, 5xx)
func (m *Monitor) scrapeWithRetry(ctx context.Context, productURL string, logger *slog.Logger) (*models.ScrapedProduct, error) {
	var scraped *models.ScrapedProduct
	var lastErr error

	err := retry.Do(
		func() error {
			var err error
			scraped, err = m.scraper.Scrape(ctx, productURL)
			lastErr = err
			return err
		},
		retry.Attempts(m.cfg.RetryAttempts),
		retry.Delay(m.cfg.RetryDelay),
		retry.MaxDelay(30*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			logger.Info("tentando buscar de novo", "attempt", n+1, "error", err)
		}),
		retry.RetryIf(isRetryable),
	)
	if err != nil {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, err
	}
	return scraped, nil
}

func isRetryable(err error) bool {
	var fe *scraper.FetchError
	return errors.As(err, &fe) && fe.Retryable()
}

func partition(products []models.Product, size int) [][]models.Product {
	var batches [][]models.Product
	for start := 0; start < len(products); start += size {
		end := start + size
		if end > len(products) {
			end = len(products)
		}
		batches = append(batches, products[start:end])
	}
	return batches
}
