package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"rastreador-precos/internal/models"

	"github.com/shopspring/decimal"
)

// Notifier entrega eventos de alerta ao usuário
type Notifier interface {
	Notify(ctx context.Context, userID int64, event models.AlertEvent) error
}

// LogNotifier só registra o alerta no log; usado quando não há bot configurado
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier cria um notifier que escreve no log
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify registra o alerta
func (n *LogNotifier) Notify(ctx context.Context, userID int64, event models.AlertEvent) error {
	n.logger.Info("alerta de preço",
		"user_id", userID,
		"alert_id", event.AlertID,
		"product_id", event.ProductID,
		"old_price", event.OldPrice.String(),
		"new_price", event.NewPrice.String(),
		"target_price", event.TargetPrice.String())
	return nil
}

var currencySymbols = map[string]string{
	"INR": "₹",
	"BRL": "R$",
	"USD": "$",
}

// FormatPrice formata um valor com o símbolo da moeda e duas casas
func FormatPrice(currency string, price decimal.Decimal) string {
	symbol, ok := currencySymbols[strings.ToUpper(currency)]
	if !ok {
		symbol = currency + " "
	}
	return symbol + price.StringFixed(2)
}

// FormatAlert monta o texto enviado ao usuário
func FormatAlert(event models.AlertEvent) string {
	var b strings.Builder
	b.WriteString("🎉 PROMOÇÃO DETECTADA!\n\n")
	fmt.Fprintf(&b, "Produto: %s\n", event.ProductName)
	fmt.Fprintf(&b, "Preço atual: %s\n", FormatPrice(event.Currency, event.NewPrice))
	fmt.Fprintf(&b, "Preço alvo: %s\n", FormatPrice(event.Currency, event.TargetPrice))
	if event.OldPrice.GreaterThan(event.NewPrice) && event.OldPrice.IsPositive() {
		discount := event.OldPrice.Sub(event.NewPrice).Div(event.OldPrice).Mul(decimal.NewFromInt(100))
		fmt.Fprintf(&b, "Antes: %s (-%s%%)\n", FormatPrice(event.Currency, event.OldPrice), discount.StringFixed(1))
	}
	fmt.Fprintf(&b, "\nLink: %s", event.ProductURL)
	return b.String()
}
