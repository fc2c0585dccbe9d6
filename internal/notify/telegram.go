package notify

import (
	"context"
	"fmt"
	"log/slog"

	"rastreador-precos/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// MessageSender é a parte do BotAPI usada para enviar mensagens
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier envia alertas como mensagem no chat do usuário.
// O userID dos trackers criados pelo bot é o chat ID do Telegram.
type TelegramNotifier struct {
	sender MessageSender
	logger *slog.Logger
}

// NewTelegramNotifier cria o notifier sobre um bot já autorizado
func NewTelegramNotifier(sender MessageSender, logger *slog.Logger) *TelegramNotifier {
	return &TelegramNotifier{sender: sender, logger: logger}
}

// Notify envia o alerta para o chat do usuário
func (n *TelegramNotifier) Notify(ctx context.Context, userID int64, event models.AlertEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(userID, FormatAlert(event))
	if _, err := n.sender.Send(msg); err != nil {
		return fmt.Errorf("enviar alerta %d para %d: %w", event.AlertID, userID, err)
	}
	n.logger.Info("notificação enviada", "user_id", userID, "product_id", event.ProductID)
	return nil
}
