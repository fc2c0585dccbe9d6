package scraper

import (
	"context"
	"log/slog"

	"rastreador-precos/internal/models"
)

// PageFetcher define a interface do fetcher usada pelo Registry
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (*RawPage, error)
}

// Registry junta roteador, fetcher e extractor para as lojas suportadas
type Registry struct {
	fetcher   PageFetcher
	extractor *Extractor
}

// NewRegistry cria um novo registro de scrapers
func NewRegistry(fetcher PageFetcher, logger *slog.Logger) *Registry {
	return &Registry{
		fetcher:   fetcher,
		extractor: NewExtractor(logger),
	}
}

// CanHandle verifica se a URL pertence a uma loja suportada
func (r *Registry) CanHandle(rawURL string) bool {
	_, err := ResolvePlatform(rawURL)
	return err == nil
}

// Scrape resolve a loja, busca a página e extrai os dados do produto
func (r *Registry) Scrape(ctx context.Context, productURL string) (*models.ScrapedProduct, error) {
	platform, err := ResolvePlatform(productURL)
	if err != nil {
		return nil, err
	}
	page, err := r.fetcher.Fetch(ctx, productURL)
	if err != nil {
		return nil, err
	}
	return r.extractor.Extract(platform, page)
}
