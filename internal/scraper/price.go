package scraper

import (
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// sinal e símbolo de moeda são capturados para que "-₹500" não vire 500
var priceNumberRe = regexp.MustCompile(`([-−]?)\s*(?:₹|Rs\.?|INR|R\$|\$)?\s*(\d[\d,]*(?:\.\d+)?(?:[eE][+-]?\d+)?)`)

// parsePrice lê o primeiro número de um texto como "₹19,999.00" ou "Rs. 1,23,456".
// Só aceita valores positivos.
func parsePrice(text string) (decimal.Decimal, bool) {
	match := priceNumberRe.FindStringSubmatch(html.UnescapeString(text))
	if match == nil || match[1] != "" {
		return decimal.Zero, false
	}
	price, err := decimal.NewFromString(strings.ReplaceAll(match[2], ",", ""))
	if err != nil || !price.IsPositive() {
		return decimal.Zero, false
	}
	return price, true
}

// cleanName normaliza espaços e entidades HTML
func cleanName(text string) (string, bool) {
	name := strings.Join(strings.Fields(html.UnescapeString(text)), " ")
	return name, name != ""
}

// cleanImage aceita apenas URLs http(s); data URIs são descartadas
func cleanImage(text string) (string, bool) {
	img := strings.TrimSpace(html.UnescapeString(text))
	if strings.HasPrefix(img, "//") {
		img = "https:" + img
	}
	if strings.HasPrefix(strings.ToLower(img), "data:") {
		return "", false
	}
	u, err := url.Parse(img)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", false
	}
	return img, true
}
