package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertStatus é o estado de entrega de um alerta
type AlertStatus string

const (
	AlertPending AlertStatus = "Pending"
	AlertSent    AlertStatus = "Sent"
	AlertFailed  AlertStatus = "Failed"
)

// Alert registra uma queda de preço que atingiu o alvo de um tracker
type Alert struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"userId"`
	TrackerID   int64           `json:"trackerId"`
	OldPrice    decimal.Decimal `json:"oldPrice"`
	NewPrice    decimal.Decimal `json:"newPrice"`
	Status      AlertStatus     `json:"status"`
	TriggeredAt time.Time       `json:"triggeredAt"`
}

// AlertEvent é o que o sink de notificação recebe
type AlertEvent struct {
	AlertID     int64
	TrackerID   int64
	ProductID   int64
	ProductName string
	ProductURL  string
	Currency    string
	OldPrice    decimal.Decimal
	NewPrice    decimal.Decimal
	TargetPrice decimal.Decimal
}
