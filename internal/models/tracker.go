package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tracker é a inscrição de um usuário em um produto
type Tracker struct {
	ID          int64               `json:"id"`
	UserID      int64               `json:"userId"`
	ProductID   int64               `json:"productId"`
	TargetPrice decimal.NullDecimal `json:"targetPrice"`
	IsActive    bool                `json:"isActive"`
	CreatedAt   time.Time           `json:"createdAt"`
}

// TrackerWithProduct junta o tracker ao estado atual do produto
type TrackerWithProduct struct {
	Tracker
	Product Product `json:"product"`
}
