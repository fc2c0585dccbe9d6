package scraper

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"rastreador-precos/internal/models"
)

var (
	// ErrInvalidURL indica uma URL que não pôde ser interpretada
	ErrInvalidURL = errors.New("url inválida")
	// ErrUnsupportedPlatform indica um domínio fora da tabela de lojas conhecidas
	ErrUnsupportedPlatform = errors.New("plataforma não suportada")
)

type domainRule struct {
	fragment string
	platform models.Platform
}

// a primeira regra que casar vence
var domainTable = []domainRule{
	{"amazon.", models.PlatformAmazon},
	{"flipkart.", models.PlatformFlipkart},
	{"myntra.", models.PlatformMyntra},
	{"ajio.", models.PlatformAjio},
	{"snapdeal.", models.PlatformSnapdeal},
}

// ResolvePlatform identifica a loja de uma URL pelo hostname
func ResolvePlatform(rawURL string) (models.Platform, error) {
	host, err := hostOf(rawURL)
	if err != nil {
		return "", err
	}
	for _, rule := range domainTable {
		if strings.Contains(host, rule.fragment) {
			return rule.platform, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedPlatform, host)
}

// CurrencyFor retorna a moeda em que a loja publica preços
func CurrencyFor(platform models.Platform) string {
	// todas as lojas suportadas são indianas
	return "INR"
}

func hostOf(rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", fmt.Errorf("%w: vazia", ErrInvalidURL)
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: esquema %q", ErrInvalidURL, u.Scheme)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", fmt.Errorf("%w: sem host", ErrInvalidURL)
	}
	return host, nil
}
