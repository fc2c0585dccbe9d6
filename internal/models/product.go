package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Platform identifica uma loja suportada
type Platform string

const (
	PlatformAmazon   Platform = "Amazon"
	PlatformFlipkart Platform = "Flipkart"
	PlatformMyntra   Platform = "Myntra"
	PlatformAjio     Platform = "Ajio"
	PlatformSnapdeal Platform = "Snapdeal"
)

// PlaceholderName é o nome de um produto criado antes do primeiro scrape
const PlaceholderName = "Product loading..."

// Product representa um produto acompanhado, único por URL
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Platform    Platform        `json:"platform"`
	URL         string          `json:"url"`
	LatestPrice decimal.Decimal `json:"latestPrice"`
	Currency    string          `json:"currency"`
	ImageURL    string          `json:"imageUrl"`
	IsAvailable bool            `json:"isAvailable"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// IsPlaceholder indica se o produto ainda não teve nenhum scrape bem-sucedido
func (p Product) IsPlaceholder() bool {
	return p.LatestPrice.IsZero() && p.Name == PlaceholderName
}

// PriceSnapshot é uma observação imutável de preço
type PriceSnapshot struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"productId"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	IsAvailable bool            `json:"isAvailable"`
	SnapshotAt  time.Time       `json:"snapshotAt"`
}

// ScrapedProduct é o resultado normalizado da extração de uma página
type ScrapedProduct struct {
	Name        string
	Price       decimal.Decimal
	Currency    string
	ImageURL    string
	IsAvailable bool
	// Fontes de cada campo (structured, pattern, url, placeholder), usadas em logs
	NameSource  string
	PriceSource string
	ImageSource string
}

// PriceStats resume o histórico de preços de um produto
type PriceStats struct {
	LowestPrice  decimal.Decimal `json:"lowestPrice"`
	HighestPrice decimal.Decimal `json:"highestPrice"`
	AvgPrice     decimal.Decimal `json:"avgPrice"`
}
