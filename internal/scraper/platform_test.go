package scraper

import (
	"errors"
	"testing"

	"rastreador-precos/internal/models"
)

func TestResolvePlatform(t *testing.T) {
	tests := []struct {
		url  string
		want models.Platform
	}{
		{"https://www.amazon.in/dp/B0CHX1W1XY", models.PlatformAmazon},
		{"https://WWW.AMAZON.COM/gp/product/B01", models.PlatformAmazon},
		{"https://www.flipkart.com/phone/p/itm123?pid=X", models.PlatformFlipkart},
		{"https://www.myntra.com/tshirts/brand/123/buy", models.PlatformMyntra},
		{"https://www.ajio.com/shoes/p/4600", models.PlatformAjio},
		{"http://m.snapdeal.com/product/watch/6388", models.PlatformSnapdeal},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := ResolvePlatform(tt.url)
			if err != nil {
				t.Fatalf("ResolvePlatform(%q) error: %v", tt.url, err)
			}
			if got != tt.want {
				t.Errorf("ResolvePlatform(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestResolvePlatform_Unsupported(t *testing.T) {
	for _, u := range []string{
		"https://www.ebay.com/itm/123",
		"https://mercadolivre.com.br/produto",
		"https://example.com/amazon/dp/X",
	} {
		if _, err := ResolvePlatform(u); !errors.Is(err, ErrUnsupportedPlatform) {
			t.Errorf("ResolvePlatform(%q) error = %v, want ErrUnsupportedPlatform", u, err)
		}
	}
}

func TestResolvePlatform_InvalidURL(t *testing.T) {
	for _, u := range []string{"", "not a url", "ftp://amazon.in/x", "https://", "://amazon.in"} {
		if _, err := ResolvePlatform(u); !errors.Is(err, ErrInvalidURL) {
			t.Errorf("ResolvePlatform(%q) error = %v, want ErrInvalidURL", u, err)
		}
	}
}
