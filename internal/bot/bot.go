package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"rastreador-precos/internal/models"
	"rastreador-precos/internal/monitor"
	"rastreador-precos/internal/tracking"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
)

// Init inicializa o bot do Telegram
func Init(token string, logger *slog.Logger) (*tgbotapi.BotAPI, error) {
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN não configurado")
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		if err.Error() == "Unauthorized" {
			return nil, fmt.Errorf("token do Telegram inválido ou expirado; para obter um token, fale com @BotFather")
		}
		return nil, fmt.Errorf("erro ao conectar com Telegram: %w", err)
	}

	bot.Debug = false
	logger.Info("bot autorizado", "username", bot.Self.UserName)
	return bot, nil
}

// Sender é a parte do BotAPI usada pelos handlers
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TrackerService são os casos de uso disponíveis no chat
type TrackerService interface {
	CreateTracker(ctx context.Context, userID int64, productURL string, targetPrice *decimal.Decimal) (*tracking.CreateResult, error)
	ListTrackers(ctx context.Context, userID int64) ([]models.TrackerWithProduct, error)
	DeleteTracker(ctx context.Context, userID, trackerID int64) error
	SetActive(ctx context.Context, userID, trackerID int64, active bool) error
	ProductDetail(ctx context.Context, userID, productID int64) (*tracking.ProductDetail, error)
}

// BatchRunner dispara uma passada de atualização
type BatchRunner interface {
	RunBatch(ctx context.Context) (monitor.BatchResult, error)
}

// AlertRunner dispara uma avaliação de alertas
type AlertRunner interface {
	Evaluate(ctx context.Context) (monitor.AlertResult, error)
}

// Handler despacha os comandos recebidos pelo bot.
// O chat ID de quem envia é o userID dos trackers.
type Handler struct {
	api         Sender
	trackers    TrackerService
	batch       BatchRunner
	alerts      AlertRunner
	adminChatID int64
	logger      *slog.Logger

	// pending conta as respostas que rodam fora do loop de mensagens
	pending sync.WaitGroup
}

// NewHandler cria o despachante de comandos; adminChatID 0 desliga /update e /alerts
func NewHandler(api Sender, trackers TrackerService, batch BatchRunner, alerts AlertRunner, adminChatID int64, logger *slog.Logger) *Handler {
	return &Handler{
		api:         api,
		trackers:    trackers,
		batch:       batch,
		alerts:      alerts,
		adminChatID: adminChatID,
		logger:      logger,
	}
}

// Run consome as atualizações do Telegram até ctx acabar
func (h *Handler) Run(ctx context.Context, bot *tgbotapi.BotAPI) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := bot.GetUpdatesChan(u)
	defer h.pending.Wait()
	defer bot.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			h.HandleMessage(ctx, update.Message)
		}
	}
}

// Wait bloqueia até as respostas em segundo plano terminarem
func (h *Handler) Wait() {
	h.pending.Wait()
}

// HandleMessage interpreta e executa um comando
func (h *Handler) HandleMessage(ctx context.Context, message *tgbotapi.Message) {
	parts := strings.Fields(message.Text)
	if len(parts) == 0 {
		return
	}

	command := strings.ToLower(parts[0])
	// Remover @botname se presente
	if idx := strings.Index(command, "@"); idx > 0 {
		command = command[:idx]
	}
	args := parts[1:]
	chatID := message.Chat.ID

	switch command {
	case "/start", "/help":
		h.handleHelp(chatID)
	case "/track", "/add":
		h.handleTrack(ctx, chatID, args)
	case "/list":
		h.handleList(ctx, chatID)
	case "/remove":
		h.handleRemove(ctx, chatID, args)
	case "/pause":
		h.handleSetActive(ctx, chatID, args, false)
	case "/resume":
		h.handleSetActive(ctx, chatID, args, true)
	case "/product":
		h.handleProduct(ctx, chatID, args)
	case "/update":
		if h.requireAdmin(chatID) {
			h.handleUpdate(ctx, chatID)
		}
	case "/alerts":
		if h.requireAdmin(chatID) {
			h.handleAlerts(ctx, chatID)
		}
	default:
		h.reply(chatID, "Comando não reconhecido. Use /help para ver os comandos disponíveis.")
	}
}

func (h *Handler) requireAdmin(chatID int64) bool {
	if h.adminChatID != 0 && chatID == h.adminChatID {
		return true
	}
	h.reply(chatID, "Você não está autorizado a usar este comando.")
	return false
}

// reply envia texto simples
func (h *Handler) reply(chatID int64, text string) {
	if _, err := h.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		h.logger.Warn("erro ao enviar mensagem", "chat_id", chatID, "error", err)
	}
}

// replyHTML envia com formatação HTML e, se o Telegram recusar, sem formatação
func (h *Handler) replyHTML(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := h.api.Send(msg); err != nil {
		h.logger.Warn("erro ao enviar mensagem com HTML, tentando sem formatação", "chat_id", chatID, "error", err)
		msg.ParseMode = ""
		if _, err := h.api.Send(msg); err != nil {
			h.logger.Warn("erro ao enviar mensagem", "chat_id", chatID, "error", err)
		}
	}
}

// escapeHTML escapa caracteres especiais do HTML
func escapeHTML(text string) string {
	text = strings.ReplaceAll(text, "&", "&amp;")
	text = strings.ReplaceAll(text, "<", "&lt;")
	text = strings.ReplaceAll(text, ">", "&gt;")
	return text
}
