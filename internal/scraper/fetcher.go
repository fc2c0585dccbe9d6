package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxPageBytes = 5 << 20

// RawPage é o conteúdo bruto de uma página de produto
type RawPage struct {
	URL        string
	StatusCode int
	Body       string
}

// FetchError descreve uma falha de rede ou HTTP ao buscar uma página
type FetchError struct {
	URL        string
	StatusCode int
	Status     string
	Timeout    bool
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("timeout ao buscar %s: %v", e.URL, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("status %d (%s) ao buscar %s", e.StatusCode, e.Status, e.URL)
	default:
		return fmt.Sprintf("erro ao buscar %s: %v", e.URL, e.Err)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Retryable indica se vale a pena tentar de novo (timeout, rede, 429 ou 5xx)
func (e *FetchError) Retryable() bool {
	if e.Timeout {
		return true
	}
	if e.StatusCode == 0 {
		return e.Err != nil
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsFetchError verifica se o erro veio do fetcher
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// Limiter controla a taxa de requisições de saída por chave
type Limiter interface {
	Acquire(ctx context.Context, key string) error
}

// Fetcher faz o GET de uma página com cabeçalhos de navegador.
// Não faz retry: quem chama decide, para não esconder falhas do lote.
type Fetcher struct {
	client  *http.Client
	limiter Limiter
	logger  *slog.Logger
}

// NewFetcher cria um fetcher com um único timeout limitado
func NewFetcher(timeout time.Duration, limiter Limiter, logger *slog.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		client:  &http.Client{Timeout: timeout},
		limiter: limiter,
		logger:  logger,
	}
}

// Fetch busca a página e devolve o corpo, ou um *FetchError
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*RawPage, error) {
	cleanURL := stripFragment(pageURL)

	if f.limiter != nil {
		if err := f.limiter.Acquire(ctx, limiterKey(cleanURL)); err != nil {
			return nil, &FetchError{URL: cleanURL, Err: fmt.Errorf("rate limit: %w", err)}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cleanURL, http.NoBody)
	if err != nil {
		return nil, &FetchError{URL: cleanURL, Err: err}
	}

	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-IN,en-GB;q=0.9,en-US;q=0.8,en;q=0.7")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: cleanURL, Timeout: isTimeout(err), Err: err}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			f.logger.Warn("falha ao fechar corpo da resposta", "error", closeErr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: cleanURL, StatusCode: resp.StatusCode, Status: http.StatusText(resp.StatusCode)}
	}

	// um byte além do limite indica que a página foi cortada
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes+1))
	if err != nil {
		return nil, &FetchError{URL: cleanURL, Timeout: isTimeout(err), Err: fmt.Errorf("ler corpo: %w", err)}
	}
	if len(body) > maxPageBytes {
		body = body[:maxPageBytes]
		f.logger.Warn("página maior que o limite, corpo truncado",
			"url", cleanURL,
			"limit_bytes", maxPageBytes)
	}

	f.logger.Debug("página obtida",
		"url", cleanURL,
		"status_code", resp.StatusCode,
		"bytes", len(body),
		"duration_ms", time.Since(start).Milliseconds())

	return &RawPage{URL: cleanURL, StatusCode: resp.StatusCode, Body: string(body)}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func stripFragment(rawURL string) string {
	parts := strings.Split(rawURL, "#")
	return parts[0]
}

func limiterKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "default"
	}
	return strings.ToLower(u.Hostname())
}
