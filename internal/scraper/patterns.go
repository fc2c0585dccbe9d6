package scraper

import (
	"regexp"
	"strings"

	"rastreador-precos/internal/models"

	"github.com/PuerkitoBio/goquery"
)

// pattern é uma regra de busca: seletor CSS (texto ou atributo) ou regex
// sobre o HTML bruto, caso em que o primeiro grupo é o valor.
type pattern struct {
	selector string
	attr     string
	re       *regexp.Regexp
}

func sel(selector string) pattern { return pattern{selector: selector} }
func selAttr(selector, attr string) pattern { return pattern{selector: selector, attr: attr} }
func rx(expr string) pattern { return pattern{re: regexp.MustCompile(expr)} }

// platformRules são as regras de uma loja, em ordem de prioridade por campo
type platformRules struct {
	name       []pattern
	price      []pattern
	image      []pattern
	outOfStock []string
}

var commonName = []pattern{
	selAttr(`meta[property="og:title"]`, "content"),
	selAttr(`meta[name="twitter:title"]`, "content"),
}

var commonPrice = []pattern{
	selAttr(`meta[property="product:price:amount"]`, "content"),
	selAttr(`meta[property="og:price:amount"]`, "content"),
	selAttr(`[itemprop="price"]`, "content"),
}

var commonImage = []pattern{
	selAttr(`meta[property="og:image"]`, "content"),
	selAttr(`meta[name="twitter:image"]`, "content"),
}

var commonOutOfStock = []string{
	"currently unavailable",
	"out of stock",
	"sold out",
}

func withCommon(specific, common []pattern) []pattern {
	out := make([]pattern, 0, len(specific)+len(common))
	out = append(out, specific...)
	return append(out, common...)
}

func withCommonPhrases(specific ...string) []string {
	return append(append([]string{}, commonOutOfStock...), specific...)
}

var defaultRules = map[models.Platform]platformRules{
	models.PlatformAmazon: {
		name: withCommon([]pattern{
			sel("#productTitle"),
			sel("#title"),
		}, commonName),
		price: withCommon([]pattern{
			sel("#corePriceDisplay_desktop_feature_div .a-price-whole"),
			sel("#corePrice_feature_div .a-offscreen"),
			sel("#priceblock_dealprice"),
			sel("#priceblock_ourprice"),
			sel(".a-price .a-offscreen"),
			rx(`"priceAmount"\s*:\s*([0-9.]+)`),
		}, commonPrice),
		image: withCommon([]pattern{
			selAttr("#landingImage", "data-old-hires"),
			selAttr("#landingImage", "src"),
			selAttr("#imgBlkFront", "src"),
			rx(`"hiRes"\s*:\s*"(https://[^"]+)"`),
		}, commonImage),
		outOfStock: withCommonPhrases("temporarily unavailable"),
	},
	models.PlatformFlipkart: {
		name: withCommon([]pattern{
			sel("span.VU-ZEz"),
			sel("span.B_NuCI"),
			sel("h1 span"),
		}, commonName),
		price: withCommon([]pattern{
			sel("div.Nx9bqj.CxhGGd"),
			sel("div._30jeq3._16Jk6d"),
			sel("div.Nx9bqj"),
			sel("div._30jeq3"),
			rx(`"finalPrice"\s*:\s*\{[^}]*?"value"\s*:\s*([0-9.]+)`),
			rx(`"sellingPrice"\s*:\s*\{[^}]*?"value"\s*:\s*([0-9.]+)`),
		}, commonPrice),
		image: withCommon([]pattern{
			selAttr("img.DByuf4", "src"),
			selAttr("img._396cs4", "src"),
			selAttr("img._2r_T1I", "src"),
		}, commonImage),
		outOfStock: withCommonPhrases("coming soon", "this item is currently out of stock"),
	},
	models.PlatformMyntra: {
		name: withCommon([]pattern{
			sel("h1.pdp-name"),
			sel("h1.pdp-title"),
			rx(`"name"\s*:\s*"([^"]+)"\s*,\s*"brand"`),
		}, commonName),
		price: withCommon([]pattern{
			sel("span.pdp-price strong"),
			sel("span.pdp-price"),
			rx(`"discounted"\s*:\s*([0-9]+)`),
			rx(`"mrp"\s*:\s*([0-9]+)`),
		}, commonPrice),
		image: withCommon([]pattern{
			rx(`"(?:src|imageURL)"\s*:\s*"(https?://assets\.myntassets\.com[^"]+)"`),
			rx(`url\(&quot;(https?://assets\.myntassets\.com[^&]+)&quot;\)`),
		}, commonImage),
		outOfStock: withCommonPhrases(),
	},
	models.PlatformAjio: {
		name: withCommon([]pattern{
			sel("h1.prod-name"),
			sel("div.prod-name"),
			rx(`"productName"\s*:\s*"([^"]+)"`),
		}, commonName),
		price: withCommon([]pattern{
			sel("div.prod-sp"),
			sel("span.prod-sp"),
			rx(`"offerPrice"\s*:\s*\{[^}]*?"value"\s*:\s*([0-9.]+)`),
			rx(`"sellingPrice"\s*:\s*([0-9.]+)`),
		}, commonPrice),
		image: withCommon([]pattern{
			selAttr("img.rilrtl-lazy-img", "src"),
			selAttr(".img-container img", "src"),
		}, commonImage),
		outOfStock: withCommonPhrases("this product is out of stock"),
	},
	models.PlatformSnapdeal: {
		name: withCommon([]pattern{
			sel("h1.pdp-e-i-head"),
			sel(`h1[itemprop="name"]`),
		}, commonName),
		price: withCommon([]pattern{
			sel("span.payBlkBig"),
			sel("span.pdp-final-price"),
			rx(`"sellingPrice"\s*:\s*([0-9.]+)`),
		}, commonPrice),
		image: withCommon([]pattern{
			selAttr("img.cloudzoom", "src"),
			selAttr("#bx-slider-left-image-panel img", "src"),
			selAttr("#bx-slider-left-image-panel img", "lazysrc"),
		}, commonImage),
		outOfStock: withCommonPhrases("this product has been sold out"),
	},
}

// firstMatch aplica os padrões em ordem e devolve o primeiro valor aceito por valid
func firstMatch(doc *goquery.Document, body string, patterns []pattern, valid func(string) bool) (string, bool) {
	for _, p := range patterns {
		if p.re != nil {
			for _, m := range p.re.FindAllStringSubmatch(body, -1) {
				if len(m) > 1 && valid(m[1]) {
					return m[1], true
				}
			}
			continue
		}
		if doc == nil {
			continue
		}

		var found string
		doc.Find(p.selector).EachWithBreak(func(i int, s *goquery.Selection) bool {
			var value string
			if p.attr != "" {
				value = s.AttrOr(p.attr, "")
			} else {
				value = strings.TrimSpace(s.Text())
			}
			if value != "" && valid(value) {
				found = value
				return false
			}
			return true
		})
		if found != "" {
			return found, true
		}
	}
	return "", false
}

// extractPatterns preenche apenas os campos que ainda faltam em current
func extractPatterns(doc *goquery.Document, body string, rules platformRules, current fields) fields {
	var out fields

	if current.name == "" {
		if raw, ok := firstMatch(doc, body, rules.name, func(v string) bool { _, ok := cleanName(v); return ok }); ok {
			out.name, _ = cleanName(raw)
			out.nameSource = SourcePattern
		}
	}
	if !current.hasPrice {
		if raw, ok := firstMatch(doc, body, rules.price, func(v string) bool { _, ok := parsePrice(v); return ok }); ok {
			out.price, out.hasPrice = parsePrice(raw)
			out.priceSource = SourcePattern
		}
	}
	if current.image == "" {
		if raw, ok := firstMatch(doc, body, rules.image, func(v string) bool { _, ok := cleanImage(v); return ok }); ok {
			out.image, _ = cleanImage(raw)
			out.imageSource = SourcePattern
		}
	}
	return out
}
