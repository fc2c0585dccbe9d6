package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"rastreador-precos/internal/database"
	"rastreador-precos/internal/notify"
	"rastreador-precos/internal/queue"
	"rastreador-precos/internal/scraper"
	"rastreador-precos/internal/tracking"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
)

const helpText = `🤖 <b>Rastreador de Preços</b>

<b>Comandos disponíveis:</b>

<b>/track</b> - Acompanhar um produto
Uso: /track &lt;URL&gt; [preço_alvo]
Exemplo: /track https://www.amazon.in/dp/B0EXAMPLE 1999

<b>/list</b> - Listar seus produtos acompanhados

<b>/product &lt;id&gt;</b> - Histórico e estatísticas de um produto
Exemplo: /product 3

<b>/pause &lt;id&gt;</b> e <b>/resume &lt;id&gt;</b> - Pausar ou retomar alertas de um tracker

<b>/remove &lt;id&gt;</b> - Parar de acompanhar
Exemplo: /remove 1

<b>/help</b> - Mostrar esta mensagem de ajuda

Lojas suportadas: Amazon, Flipkart, Myntra, Ajio e Snapdeal.`

func (h *Handler) handleHelp(chatID int64) {
	h.replyHTML(chatID, helpText)
}

// parseTargetPrice aceita "1999", "1,999.50" e "₹1999"
func parseTargetPrice(raw string) (*decimal.Decimal, error) {
	cleaned := strings.NewReplacer(",", "", "₹", "", "R$", "", "$", "").Replace(raw)
	price, err := decimal.NewFromString(strings.TrimSpace(cleaned))
	if err != nil {
		return nil, err
	}
	return &price, nil
}

func (h *Handler) handleTrack(ctx context.Context, chatID int64, args []string) {
	if len(args) < 1 || len(args) > 2 {
		h.reply(chatID, "❌ Formato incorreto.\n\nUso: /track <URL> [preço_alvo]\n\nExemplo: /track https://www.amazon.in/dp/B0EXAMPLE 1999")
		return
	}

	var target *decimal.Decimal
	if len(args) == 2 {
		price, err := parseTargetPrice(args[1])
		if err != nil {
			h.reply(chatID, "❌ Preço inválido. Use um valor numérico positivo.")
			return
		}
		target = price
	}

	res, err := h.trackers.CreateTracker(ctx, chatID, args[0], target)
	if err != nil {
		h.reply(chatID, trackErrorText(err))
		return
	}

	tracker := res.Tracker
	var response strings.Builder
	response.WriteString("✅ <b>Produto adicionado!</b>\n\n")
	response.WriteString(fmt.Sprintf("🆔 Tracker: %d\n", tracker.ID))
	response.WriteString(fmt.Sprintf("🏬 %s\n", tracker.Product.Platform))
	if tracker.TargetPrice.Valid {
		response.WriteString(fmt.Sprintf("🎯 Preço alvo: %s\n", notify.FormatPrice(tracker.Product.Currency, tracker.TargetPrice.Decimal)))
	}
	if tracker.Product.IsPlaceholder() {
		response.WriteString("\n⏳ Verificando preço...")
	} else {
		response.WriteString(fmt.Sprintf("📦 %s\n", escapeHTML(tracker.Product.Name)))
		response.WriteString(fmt.Sprintf("💰 Preço atual: %s", notify.FormatPrice(tracker.Product.Currency, tracker.Product.LatestPrice)))
	}
	h.replyHTML(chatID, response.String())

	if res.Refresh != nil {
		h.pending.Add(1)
		go func() {
			defer h.pending.Done()
			h.followRefresh(ctx, chatID, tracker.ProductID, res.Refresh)
		}()
	}
}

// followRefresh espera a atualização enfileirada e avisa o resultado no chat
func (h *Handler) followRefresh(ctx context.Context, chatID, productID int64, task *queue.Task) {
	if err := task.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		h.logger.Warn("atualização inicial falhou", "product_id", productID, "error", err)
		h.reply(chatID, "⚠️ Não consegui buscar o preço agora. Vou tentar de novo na próxima verificação.")
		return
	}

	detail, err := h.trackers.ProductDetail(ctx, chatID, productID)
	if err != nil {
		h.logger.Warn("erro ao buscar produto atualizado", "product_id", productID, "error", err)
		return
	}
	h.replyHTML(chatID, productSummary(detail))
}

func trackErrorText(err error) string {
	switch {
	case errors.Is(err, scraper.ErrInvalidURL):
		return "❌ URL inválida."
	case errors.Is(err, scraper.ErrUnsupportedPlatform):
		return "❌ Loja não suportada. Use /help para ver as lojas aceitas."
	case errors.Is(err, tracking.ErrInvalidTargetPrice):
		return "❌ Preço inválido. Use um valor numérico positivo."
	case errors.Is(err, database.ErrDuplicateTracker):
		return "❌ Você já acompanha este produto."
	default:
		return fmt.Sprintf("❌ Erro ao adicionar produto: %v", err)
	}
}

func (h *Handler) handleList(ctx context.Context, chatID int64) {
	trackers, err := h.trackers.ListTrackers(ctx, chatID)
	if err != nil {
		h.reply(chatID, fmt.Sprintf("❌ Erro ao listar produtos: %v", err))
		return
	}

	if len(trackers) == 0 {
		h.reply(chatID, "📋 Nenhum produto sendo acompanhado. Use /track para começar.")
		return
	}

	var response strings.Builder
	response.WriteString("📋 <b>Produtos acompanhados:</b>\n\n")

	for _, t := range trackers {
		p := t.Product
		response.WriteString(fmt.Sprintf("🆔 <b>Tracker: %d</b> (produto %d)", t.ID, p.ID))
		if !t.IsActive {
			response.WriteString(" ⏸")
		}
		response.WriteString("\n")

		if p.IsPlaceholder() {
			response.WriteString("📦 Aguardando primeira verificação\n")
		} else {
			response.WriteString(fmt.Sprintf("📦 %s\n", escapeHTML(p.Name)))
			response.WriteString(fmt.Sprintf("💰 <b>Preço atual: %s</b>\n", notify.FormatPrice(p.Currency, p.LatestPrice)))
		}

		if t.TargetPrice.Valid {
			target := t.TargetPrice.Decimal
			if !p.IsPlaceholder() && p.LatestPrice.LessThanOrEqual(target) {
				response.WriteString(fmt.Sprintf("🎯 Preço alvo: %s ✅ <b>META ATINGIDA!</b>\n", notify.FormatPrice(p.Currency, target)))
			} else {
				response.WriteString(fmt.Sprintf("🎯 Preço alvo: %s\n", notify.FormatPrice(p.Currency, target)))
			}
		}

		response.WriteString(fmt.Sprintf("🕐 Última verificação: %s\n", p.UpdatedAt.Local().Format("02/01/2006 15:04")))
		response.WriteString(fmt.Sprintf("🔗 %s\n\n", p.URL))
	}

	h.replyHTML(chatID, response.String())
}

// parseID lê o único argumento numérico de /remove, /pause, /resume e /product
func parseID(args []string) (int64, bool) {
	if len(args) != 1 {
		return 0, false
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (h *Handler) handleRemove(ctx context.Context, chatID int64, args []string) {
	id, ok := parseID(args)
	if !ok {
		h.reply(chatID, "❌ Formato incorreto.\n\nUso: /remove <id>\n\nExemplo: /remove 1")
		return
	}

	if err := h.trackers.DeleteTracker(ctx, chatID, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			h.reply(chatID, "❌ Tracker não encontrado.")
			return
		}
		h.reply(chatID, fmt.Sprintf("❌ Erro ao remover tracker: %v", err))
		return
	}
	h.reply(chatID, fmt.Sprintf("✅ Tracker %d removido.", id))
}

func (h *Handler) handleSetActive(ctx context.Context, chatID int64, args []string, active bool) {
	command := "/pause"
	if active {
		command = "/resume"
	}
	id, ok := parseID(args)
	if !ok {
		h.reply(chatID, fmt.Sprintf("❌ Formato incorreto.\n\nUso: %s <id>", command))
		return
	}

	if err := h.trackers.SetActive(ctx, chatID, id, active); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			h.reply(chatID, "❌ Tracker não encontrado.")
			return
		}
		h.reply(chatID, fmt.Sprintf("❌ Erro ao atualizar tracker: %v", err))
		return
	}

	if active {
		h.reply(chatID, fmt.Sprintf("▶️ Tracker %d retomado.", id))
	} else {
		h.reply(chatID, fmt.Sprintf("⏸ Tracker %d pausado. Você não receberá alertas até usar /resume.", id))
	}
}

func (h *Handler) handleProduct(ctx context.Context, chatID int64, args []string) {
	id, ok := parseID(args)
	if !ok {
		h.reply(chatID, "❌ Formato incorreto.\n\nUso: /product <id>\n\nExemplo: /product 1")
		return
	}

	detail, err := h.trackers.ProductDetail(ctx, chatID, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			h.reply(chatID, "❌ Produto não encontrado.")
			return
		}
		h.reply(chatID, fmt.Sprintf("❌ Erro ao buscar produto: %v", err))
		return
	}
	h.replyHTML(chatID, productSummary(detail))
}

// productSummary monta a mensagem de detalhe com as estatísticas de 30 dias
func productSummary(detail *tracking.ProductDetail) string {
	p := detail.Product
	if p.IsPlaceholder() {
		return fmt.Sprintf("📊 Produto %d ainda não foi verificado.\n🔗 %s", p.ID, p.URL)
	}

	var response strings.Builder
	response.WriteString(fmt.Sprintf("📊 <b>Produto: %s</b>\n\n", escapeHTML(p.Name)))
	response.WriteString(fmt.Sprintf("💰 Preço atual: %s\n", notify.FormatPrice(p.Currency, p.LatestPrice)))
	if !p.IsAvailable {
		response.WriteString("🚫 Indisponível\n")
	}

	if len(detail.PriceHistory) > 0 {
		stats := detail.Statistics
		response.WriteString(fmt.Sprintf("\n📉 Menor (30 dias): %s\n", notify.FormatPrice(p.Currency, stats.LowestPrice)))
		response.WriteString(fmt.Sprintf("📈 Maior (30 dias): %s\n", notify.FormatPrice(p.Currency, stats.HighestPrice)))
		response.WriteString(fmt.Sprintf("➗ Média: %s\n", notify.FormatPrice(p.Currency, stats.AvgPrice)))
		response.WriteString(fmt.Sprintf("🧾 %d registros\n", len(detail.PriceHistory)))
	}

	if t := detail.Tracker; t != nil && t.TargetPrice.Valid {
		target := t.TargetPrice.Decimal
		if p.LatestPrice.LessThanOrEqual(target) {
			response.WriteString(fmt.Sprintf("\n✅ Abaixo do preço alvo de %s!\n", notify.FormatPrice(p.Currency, target)))
		} else {
			response.WriteString(fmt.Sprintf("\n🎯 Preço alvo: %s\n", notify.FormatPrice(p.Currency, target)))
		}
	}

	response.WriteString(fmt.Sprintf("\n🔗 %s", p.URL))
	return response.String()
}

func (h *Handler) handleUpdate(ctx context.Context, chatID int64) {
	sent, err := h.api.Send(tgbotapi.NewMessage(chatID, "⏳ Atualizando preços..."))
	messageID := 0
	if err == nil {
		messageID = sent.MessageID
	}

	h.pending.Add(1)
	go func() {
		defer h.pending.Done()
		result, err := h.batch.RunBatch(ctx)
		var text string
		if err != nil {
			text = fmt.Sprintf("❌ Erro na atualização: %v", err)
		} else {
			text = fmt.Sprintf("✅ Atualização concluída: %d atualizados, %d falharam, %d no total.", result.Updated, result.Failed, result.Total)
		}
		h.editOrReply(chatID, messageID, text)
	}()
}

func (h *Handler) handleAlerts(ctx context.Context, chatID int64) {
	result, err := h.alerts.Evaluate(ctx)
	if err != nil {
		h.reply(chatID, fmt.Sprintf("❌ Erro ao verificar alertas: %v", err))
		return
	}
	h.reply(chatID, fmt.Sprintf("🔔 %d alertas enviados, %d erros.", result.AlertsSent, result.Errors))
}

// editOrReply troca o texto da mensagem de espera; se não houver, envia uma nova
func (h *Handler) editOrReply(chatID int64, messageID int, text string) {
	if messageID != 0 {
		edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
		_, err := h.api.Send(edit)
		if err == nil {
			return
		}
		h.logger.Warn("erro ao editar mensagem (tentando enviar nova)", "chat_id", chatID, "error", err)
	}
	h.reply(chatID, text)
}
