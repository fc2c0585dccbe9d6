package models

import "time"

// ScrapeStatus é o resultado de uma tentativa de scrape
type ScrapeStatus string

const (
	ScrapeSuccess ScrapeStatus = "Success"
	ScrapeFailed  ScrapeStatus = "Failed"
)

// ScrapeLog é o registro de diagnóstico de uma tentativa de scrape
type ScrapeLog struct {
	ID           int64        `json:"id"`
	ProductID    *int64       `json:"productId"`
	Status       ScrapeStatus `json:"status"`
	ErrorMessage string       `json:"errorMessage,omitempty"`
	ScrapedAt    time.Time    `json:"scrapedAt"`
}
