package scraper

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"rastreador-precos/internal/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Fontes possíveis de cada campo extraído
const (
	SourceStructured  = "structured"
	SourcePattern     = "pattern"
	SourceURL         = "url"
	SourcePlaceholder = "placeholder"
)

// PlaceholderImage é usada quando nenhuma imagem é encontrada
const PlaceholderImage = "https://placehold.co/400x400?text=Sem+imagem"

// ReasonPriceNotFound é o motivo da falha quando nenhuma estratégia acha preço
const ReasonPriceNotFound = "preço não encontrado"

const maxNameLength = 100

// ExtractionError indica que a página não rendeu um produto válido
type ExtractionError struct {
	Reason string
}

func (e *ExtractionError) Error() string {
	return "falha na extração: " + e.Reason
}

type fields struct {
	name        string
	price       decimal.Decimal
	hasPrice    bool
	image       string
	nameSource  string
	priceSource string
	imageSource string
}

// merge completa os campos vazios de f com os de other
func (f *fields) merge(other fields) {
	if f.name == "" && other.name != "" {
		f.name, f.nameSource = other.name, other.nameSource
	}
	if !f.hasPrice && other.hasPrice {
		f.price, f.hasPrice, f.priceSource = other.price, true, other.priceSource
	}
	if f.image == "" && other.image != "" {
		f.image, f.imageSource = other.image, other.imageSource
	}
}

// Extractor transforma páginas em ScrapedProduct usando estratégias em ordem:
// dados estruturados, padrões da loja e, só para o nome, a própria URL.
type Extractor struct {
	rules  map[models.Platform]platformRules
	logger *slog.Logger
}

// NewExtractor cria um extractor com as regras das lojas suportadas
func NewExtractor(logger *slog.Logger) *Extractor {
	return &Extractor{rules: defaultRules, logger: logger}
}

// Extract aplica a cadeia de estratégias. Preço é obrigatório; nome e imagem não.
func (e *Extractor) Extract(platform models.Platform, page *RawPage) (*models.ScrapedProduct, error) {
	rules, ok := e.rules[platform]
	if !ok {
		return nil, &ExtractionError{Reason: fmt.Sprintf("sem regras para %q", platform)}
	}
	if page == nil || strings.TrimSpace(page.Body) == "" {
		return nil, &ExtractionError{Reason: "página vazia"}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.Body))
	if err != nil {
		e.logger.Warn("html não pôde ser interpretado, usando apenas regex", "url", page.URL, "error", err)
		doc = nil
	}

	var f fields
	e.run("structured", page.URL, func() {
		f.merge(extractStructured(doc))
	})
	e.run("pattern", page.URL, func() {
		f.merge(extractPatterns(doc, page.Body, rules, f))
	})

	if !f.hasPrice {
		return nil, &ExtractionError{Reason: ReasonPriceNotFound}
	}

	if f.name == "" {
		f.name, f.nameSource = nameFromURL(page.URL), SourceURL
	}
	if f.image == "" {
		f.image, f.imageSource = PlaceholderImage, SourcePlaceholder
	}

	available := true
	e.run("availability", page.URL, func() {
		available = isAvailable(doc, page.Body, rules.outOfStock)
	})

	return &models.ScrapedProduct{
		Name:        f.name,
		Price:       f.price,
		Currency:    CurrencyFor(platform),
		ImageURL:    f.image,
		IsAvailable: available,
		NameSource:  f.nameSource,
		PriceSource: f.priceSource,
		ImageSource: f.imageSource,
	}, nil
}

// run isola cada estratégia: um panic em uma não interrompe as outras
func (e *Extractor) run(strategy, pageURL string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("estratégia de extração falhou",
				"strategy", strategy,
				"url", pageURL,
				"panic", r)
		}
	}()
	fn()
}

// nameFromURL monta um nome a partir do último segmento não vazio do caminho
func nameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "Produto sem nome"
	}

	var slug string
	segments := strings.Split(u.Path, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if s := strings.TrimSpace(segments[i]); s != "" {
			slug = s
			break
		}
	}
	if unescaped, err := url.PathUnescape(slug); err == nil {
		slug = unescaped
	}

	slug = strings.Map(func(r rune) rune {
		switch r {
		case '-', '_', '+', '.':
			return ' '
		}
		return r
	}, slug)

	name := strings.Join(strings.Fields(slug), " ")
	if name == "" {
		return "Produto sem nome"
	}
	name = cases.Title(language.Und, cases.NoLower).String(name)

	runes := []rune(name)
	if len(runes) > maxNameLength {
		name = strings.TrimSpace(string(runes[:maxNameLength]))
	}
	return name
}

// isAvailable procura frases de indisponibilidade no texto visível da página
func isAvailable(doc *goquery.Document, body string, phrases []string) bool {
	text := body
	if doc != nil {
		visible := doc.Find("body").Clone()
		visible.Find("script, style, noscript, template").Remove()
		text = visible.Text()
	}
	text = strings.ToLower(strings.Join(strings.Fields(text), " "))

	for _, phrase := range phrases {
		if strings.Contains(text, phrase) {
			return false
		}
	}
	return true
}
