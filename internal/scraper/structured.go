package scraper

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

// ldProduct é o registro tipado de um bloco JSON-LD schema.org/Product
type ldProduct struct {
	Type   json.RawMessage `json:"@type"`
	Name   json.RawMessage `json:"name"`
	Image  json.RawMessage `json:"image"`
	Offers json.RawMessage `json:"offers"`
}

type ldOffer struct {
	Price         json.RawMessage `json:"price"`
	LowPrice      json.RawMessage `json:"lowPrice"`
	PriceCurrency string          `json:"priceCurrency"`
}

type ldImage struct {
	URL        string `json:"url"`
	ContentURL string `json:"contentUrl"`
}

// extractStructured lê os blocos application/ld+json da página.
// Cada campo é preenchido pelo primeiro bloco de produto que o tiver.
func extractStructured(doc *goquery.Document) fields {
	var out fields
	if doc == nil {
		return out
	}

	doc.Find(`script[type="application/ld+json"]`).Each(func(i int, s *goquery.Selection) {
		for _, p := range productBlocks(s.Text()) {
			if out.name == "" {
				if name, ok := cleanName(rawString(p.Name)); ok {
					out.name, out.nameSource = name, SourceStructured
				}
			}
			if !out.hasPrice {
				if price, ok := offerPrice(p.Offers); ok {
					out.price, out.hasPrice, out.priceSource = price, true, SourceStructured
				}
			}
			if out.image == "" {
				if img, ok := firstImage(p.Image); ok {
					out.image, out.imageSource = img, SourceStructured
				}
			}
		}
	})
	return out
}

// productBlocks devolve os nós com @type Product, inclusive dentro de arrays e @graph
func productBlocks(text string) []ldProduct {
	dec := json.NewDecoder(strings.NewReader(strings.TrimSpace(text)))
	dec.UseNumber()
	var root any
	if err := dec.Decode(&root); err != nil {
		return nil
	}

	var nodes []map[string]any
	collectNodes(root, &nodes)

	var products []ldProduct
	for _, node := range nodes {
		if !isProductType(node["@type"]) {
			continue
		}
		raw, err := json.Marshal(node)
		if err != nil {
			continue
		}
		var p ldProduct
		if err := json.Unmarshal(raw, &p); err != nil {
			continue
		}
		products = append(products, p)
	}
	return products
}

func collectNodes(v any, out *[]map[string]any) {
	switch t := v.(type) {
	case map[string]any:
		*out = append(*out, t)
		if graph, ok := t["@graph"]; ok {
			collectNodes(graph, out)
		}
	case []any:
		for _, item := range t {
			collectNodes(item, out)
		}
	}
}

func isProductType(v any) bool {
	switch t := v.(type) {
	case string:
		return strings.EqualFold(t, "Product") || strings.EqualFold(t, "ProductGroup")
	case []any:
		for _, item := range t {
			if isProductType(item) {
				return true
			}
		}
	}
	return false
}

func offerPrice(raw json.RawMessage) (decimal.Decimal, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return decimal.Zero, false
	}

	var offers []ldOffer
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &offers); err != nil {
			return decimal.Zero, false
		}
	} else {
		var single ldOffer
		if err := json.Unmarshal(raw, &single); err != nil {
			return decimal.Zero, false
		}
		offers = append(offers, single)
	}

	for _, o := range offers {
		if price, ok := structuredPrice(o.Price); ok {
			return price, true
		}
		if price, ok := structuredPrice(o.LowPrice); ok {
			return price, true
		}
	}
	return decimal.Zero, false
}

// structuredPrice lê números JSON (com sinal e expoente) de forma exata;
// só texto que não é número puro, como "₹19,999", passa por parsePrice
func structuredPrice(raw json.RawMessage) (decimal.Decimal, bool) {
	text := strings.TrimSpace(rawString(raw))
	if text == "" {
		return decimal.Zero, false
	}
	if price, err := decimal.NewFromString(text); err == nil {
		return price, price.IsPositive()
	}
	return parsePrice(text)
}

func firstImage(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}

	switch raw[0] {
	case '"':
		return cleanImage(rawString(raw))
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return "", false
		}
		for _, item := range items {
			if img, ok := firstImage(item); ok {
				return img, true
			}
		}
	case '{':
		var obj ldImage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return "", false
		}
		if img, ok := cleanImage(obj.URL); ok {
			return img, true
		}
		return cleanImage(obj.ContentURL)
	}
	return "", false
}

// rawString aceita tanto "19999" quanto 19999
func rawString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	}
	if raw[0] == '{' || raw[0] == '[' {
		return ""
	}
	return string(raw)
}
