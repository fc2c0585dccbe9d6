package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"rastreador-precos/internal/database"
	"rastreador-precos/internal/metrics"
	"rastreador-precos/internal/models"
	"rastreador-precos/internal/notify"

	"github.com/shopspring/decimal"
)

// AlertStore é o que o avaliador precisa do banco
type AlertStore interface {
	ListAlertCandidates(ctx context.Context) ([]models.TrackerWithProduct, error)
	RecentSnapshots(ctx context.Context, productID int64, n int) ([]models.PriceSnapshot, error)
	QueryHistory(ctx context.Context, productID int64, since time.Time) ([]models.PriceSnapshot, error)
	LastAlertForTracker(ctx context.Context, trackerID int64) (*models.Alert, error)
	CreateAlert(ctx context.Context, alert *models.Alert) error
	UpdateAlertStatus(ctx context.Context, alertID int64, status models.AlertStatus) error
}

// AlertResult resume uma avaliação
type AlertResult struct {
	AlertsSent int `json:"alertsSent"`
	Errors     int `json:"errors"`
}

// Evaluator compara o preço atual com o alvo de cada tracker e dispara alertas.
//
// Com dedup ligado, um tracker não é alertado de novo enquanto o preço atual
// for igual ao do último alerta entregue e nenhum snapshot desde então tiver
// passado do alvo. Com dedup desligado, alerta em toda avaliação.
type Evaluator struct {
	store    AlertStore
	notifier notify.Notifier
	dedup    bool
	logger   *slog.Logger
}

// NewEvaluator cria o avaliador de alertas
func NewEvaluator(store AlertStore, notifier notify.Notifier, dedup bool, logger *slog.Logger) *Evaluator {
	return &Evaluator{store: store, notifier: notifier, dedup: dedup, logger: logger}
}

// Evaluate avalia todos os trackers ativos com preço alvo.
// Falha em um tracker é contada e não interrompe os outros.
func (e *Evaluator) Evaluate(ctx context.Context) (AlertResult, error) {
	var result AlertResult

	candidates, err := e.store.ListAlertCandidates(ctx)
	if err != nil {
		return result, fmt.Errorf("listar trackers com alvo: %w", err)
	}

	for _, c := range candidates {
		sent, err := e.evaluateSafe(ctx, c)
		if err != nil {
			result.Errors++
			e.logger.Warn("erro ao avaliar tracker", "tracker_id", c.ID, "product_id", c.ProductID, "error", err)
			continue
		}
		if sent {
			result.AlertsSent++
		}
	}
	return result, nil
}

func (e *Evaluator) evaluateSafe(ctx context.Context, c models.TrackerWithProduct) (sent bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			sent, err = false, fmt.Errorf("panic ao avaliar tracker %d: %v", c.ID, r)
		}
	}()
	return e.evaluate(ctx, c)
}

func (e *Evaluator) evaluate(ctx context.Context, c models.TrackerWithProduct) (bool, error) {
	if !c.TargetPrice.Valid {
		return false, nil
	}
	target := c.TargetPrice.Decimal
	latest := c.Product.LatestPrice

	// produto ainda sem scrape não tem preço para comparar
	if c.Product.IsPlaceholder() || !latest.IsPositive() {
		return false, nil
	}
	if latest.GreaterThan(target) {
		return false, nil
	}

	if e.dedup {
		dup, err := e.alreadyAlerted(ctx, c, target)
		if err != nil {
			return false, err
		}
		if dup {
			return false, nil
		}
	}

	oldPrice, err := e.previousPrice(ctx, c.ProductID, target)
	if err != nil {
		return false, err
	}

	alert := &models.Alert{
		UserID:    c.UserID,
		TrackerID: c.ID,
		OldPrice:  oldPrice,
		NewPrice:  latest,
		Status:    models.AlertPending,
	}
	if err := e.store.CreateAlert(ctx, alert); err != nil {
		return false, err
	}

	event := models.AlertEvent{
		AlertID:     alert.ID,
		TrackerID:   c.ID,
		ProductID:   c.ProductID,
		ProductName: c.Product.Name,
		ProductURL:  c.Product.URL,
		Currency:    c.Product.Currency,
		OldPrice:    oldPrice,
		NewPrice:    latest,
		TargetPrice: target,
	}
	notifyErr := e.notifier.Notify(ctx, c.UserID, event)

	status := models.AlertSent
	if notifyErr != nil {
		status = models.AlertFailed
	}
	metrics.AlertsTotal.WithLabelValues(string(status)).Inc()
	if err := e.store.UpdateAlertStatus(ctx, alert.ID, status); err != nil {
		e.logger.Error("erro ao atualizar estado do alerta", "alert_id", alert.ID, "error", err)
	}
	if notifyErr != nil {
		return false, fmt.Errorf("notificar usuário %d: %w", c.UserID, notifyErr)
	}

	e.logger.Info("alerta enviado",
		"tracker_id", c.ID,
		"user_id", c.UserID,
		"old_price", oldPrice.String(),
		"new_price", latest.String())
	return true, nil
}

// previousPrice é o preço do penúltimo snapshot, ou o alvo quando há menos de dois
func (e *Evaluator) previousPrice(ctx context.Context, productID int64, target decimal.Decimal) (decimal.Decimal, error) {
	snapshots, err := e.store.RecentSnapshots(ctx, productID, 2)
	if err != nil {
		return decimal.Zero, err
	}
	if len(snapshots) < 2 {
		return target, nil
	}
	return snapshots[1].Price, nil
}

func (e *Evaluator) alreadyAlerted(ctx context.Context, c models.TrackerWithProduct, target decimal.Decimal) (bool, error) {
	last, err := e.store.LastAlertForTracker(ctx, c.ID)
	if errors.Is(err, database.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	// só conta alerta com entrega confirmada; Failed e Pending são tentados de novo
	if last.Status != models.AlertSent {
		return false, nil
	}
	if !last.NewPrice.Equal(c.Product.LatestPrice) {
		return false, nil
	}

	since, err := e.store.QueryHistory(ctx, c.ProductID, last.TriggeredAt)
	if err != nil {
		return false, err
	}
	for _, s := range since {
		if s.Price.GreaterThan(target) {
			return false, nil
		}
	}
	return true, nil
}
