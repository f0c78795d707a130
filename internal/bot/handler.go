package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/otabekdev/exchangebot/internal/broadcast"
	"github.com/otabekdev/exchangebot/internal/config"
	"github.com/otabekdev/exchangebot/internal/domain"
	orderservice "github.com/otabekdev/exchangebot/internal/service/orderservice"
	"github.com/otabekdev/exchangebot/internal/telegram"
)

// pendingListPace spaces out the per-order messages of the pending list so a
// long list does not trip the bot API flood limits.
const pendingListPace = 100 * time.Millisecond

const listLimit = 10

type Handler struct {
	tg         Transport
	accounts   AccountRepo
	orders     OrderService
	review     ReviewService
	dispatcher Broadcaster
	sessions   *Sessions
	cfg        *config.Config
}

func NewHandler(tg Transport, accounts AccountRepo, orders OrderService, review ReviewService, dispatcher Broadcaster, cfg *config.Config) *Handler {
	return &Handler{
		tg:         tg,
		accounts:   accounts,
		orders:     orders,
		review:     review,
		dispatcher: dispatcher,
		sessions:   NewSessions(),
		cfg:        cfg,
	}
}

func (h *Handler) HandleUpdate(ctx context.Context, upd telegram.Update) {
	switch {
	case upd.CallbackQuery != nil:
		h.handleCallback(ctx, *upd.CallbackQuery)
	case upd.Message != nil:
		h.handleMessage(ctx, *upd.Message)
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg telegram.Message) {
	if msg.From == nil || msg.From.IsBot {
		return
	}

	if msg.From.ID == h.cfg.AdminID {
		h.handleAdminMessage(ctx, msg)
		return
	}
	h.handleUserMessage(ctx, msg)
}

func (h *Handler) handleUserMessage(ctx context.Context, msg telegram.Message) {
	account, err := h.accounts.Upsert(ctx, &domain.Account{
		ID:        msg.From.ID,
		Username:  msg.From.Username,
		FirstName: msg.From.FirstName,
		LastName:  msg.From.LastName,
	})
	if err != nil {
		h.reply(ctx, msg.Chat.ID, textInternalError)
		return
	}

	if !account.Subscribed {
		if h.isSubscribed(ctx, account.ID) {
			if err := h.accounts.SetSubscribed(ctx, account.ID, true); err != nil {
				zap.L().Error("can't persist subscription", zap.Int64("accountID", account.ID), zap.Error(err))
			}
			account.Subscribed = true
		} else {
			h.send(ctx, telegram.SendMessageRequest{
				ChatID:      msg.Chat.ID,
				Text:        textSubscriptionGate,
				ReplyMarkup: subscriptionKeyboard(h.cfg.Exchange.RequiredChannels),
			})
			return
		}
	}

	if len(msg.Photo) > 0 {
		h.handleProof(ctx, msg, account)
		return
	}

	switch msg.Text {
	case "/start":
		h.send(ctx, telegram.SendMessageRequest{
			ChatID:      msg.Chat.ID,
			Text:        textWelcome,
			ReplyMarkup: mainMenuKeyboard(),
		})
	case buttonExchange:
		h.send(ctx, telegram.SendMessageRequest{
			ChatID:      msg.Chat.ID,
			Text:        textPickCurrency,
			ReplyMarkup: currencyKeyboard(h.cfg.Exchange.Currencies),
		})
	case buttonTransactions:
		h.sendTransactions(ctx, msg.Chat.ID, account.ID)
	case buttonContact:
		h.reply(ctx, msg.Chat.ID, textContactAdmin)
	default:
		h.handleAmount(ctx, msg, account)
	}
}

func (h *Handler) handleAmount(ctx context.Context, msg telegram.Message, account *domain.Account) {
	if !account.HasSelection() {
		h.reply(ctx, msg.Chat.ID, fmt.Sprintf(textNoSelection, buttonExchange))
		return
	}

	raw := strings.NewReplacer(" ", "", ",", ".").Replace(msg.Text)
	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil || amount <= 0 {
		h.reply(ctx, msg.Chat.ID, textInvalidAmount)
		return
	}

	order, err := h.orders.Create(ctx, account.ID, *account.SelectedMethod, *account.SelectedCurrency, amount)
	switch {
	case errors.Is(err, orderservice.ErrBelowMinimum):
		h.reply(ctx, msg.Chat.ID, fmt.Sprintf(textBelowMinimum, formatAmount(h.cfg.Exchange.MinAmount)))
		return
	case err != nil:
		h.reply(ctx, msg.Chat.ID, textInternalError)
		return
	}

	h.reply(ctx, msg.Chat.ID, fmt.Sprintf(textInvoice,
		order.ID,
		formatAmount(order.Amount),
		formatAmount(order.Fee),
		formatAmount(order.TotalPayable),
		order.PaymentDetails,
	))
}

// handleProof attaches the receipt photo to the account's open order and
// forwards it to the operator with the review keyboard.
func (h *Handler) handleProof(ctx context.Context, msg telegram.Message, account *domain.Account) {
	proofRef := msg.Photo[len(msg.Photo)-1].FileID

	order, err := h.orders.AttachProof(ctx, account.ID, proofRef)
	switch {
	case errors.Is(err, orderservice.ErrNoPendingOrder):
		h.reply(ctx, msg.Chat.ID, textProofUnmatched)
		return
	case err != nil:
		h.reply(ctx, msg.Chat.ID, textInternalError)
		return
	}

	h.reply(ctx, msg.Chat.ID, fmt.Sprintf(textProofReceived, order.ID))

	review, err := h.tg.SendPhoto(ctx, telegram.SendPhotoRequest{
		ChatID:      h.cfg.AdminID,
		Photo:       proofRef,
		Caption:     formatReviewCaption(*order, account),
		ReplyMarkup: reviewKeyboard(order.ID),
	})
	if err != nil {
		zap.L().Error("can't forward proof for review", zap.Int64("orderID", order.ID), zap.Error(err))
		return
	}
	if err := h.orders.SetReviewMessage(ctx, order.ID, review.MessageID); err != nil {
		zap.L().Error("can't remember review message", zap.Int64("orderID", order.ID), zap.Error(err))
	}
}

func (h *Handler) sendTransactions(ctx context.Context, chatID, accountID int64) {
	orders, err := h.orders.ListByAccount(ctx, accountID, listLimit)
	if err != nil {
		h.reply(ctx, chatID, textInternalError)
		return
	}
	if len(orders) == 0 {
		h.reply(ctx, chatID, textNoTransactions)
		return
	}

	lines := make([]string, 0, len(orders))
	for _, order := range orders {
		lines = append(lines, formatOrderLine(order))
	}
	h.reply(ctx, chatID, strings.Join(lines, "\n"))
}

func (h *Handler) handleCallback(ctx context.Context, cb telegram.CallbackQuery) {
	if cb.From.ID == h.cfg.AdminID {
		if command, err := DecodeCommand(cb.Data); err == nil {
			h.handleReviewCommand(ctx, cb, command)
			return
		}
	}

	switch {
	case cb.Data == checkSubscription:
		h.handleSubscriptionCheck(ctx, cb)
	case strings.HasPrefix(cb.Data, currencyPrefix):
		h.handleCurrencyPick(ctx, cb, strings.TrimPrefix(cb.Data, currencyPrefix))
	case strings.HasPrefix(cb.Data, methodPrefix):
		h.handleMethodPick(ctx, cb, strings.TrimPrefix(cb.Data, methodPrefix))
	default:
		h.answer(ctx, cb.ID, "")
	}
}

func (h *Handler) handleSubscriptionCheck(ctx context.Context, cb telegram.CallbackQuery) {
	if !h.isSubscribed(ctx, cb.From.ID) {
		h.answer(ctx, cb.ID, textStillNotMember)
		return
	}

	if err := h.accounts.SetSubscribed(ctx, cb.From.ID, true); err != nil {
		zap.L().Error("can't persist subscription", zap.Int64("accountID", cb.From.ID), zap.Error(err))
	}
	h.answer(ctx, cb.ID, "✅")
	h.send(ctx, telegram.SendMessageRequest{
		ChatID:      cb.From.ID,
		Text:        textWelcome,
		ReplyMarkup: mainMenuKeyboard(),
	})
}

func (h *Handler) handleCurrencyPick(ctx context.Context, cb telegram.CallbackQuery, currency string) {
	if err := h.accounts.SetSelectedCurrency(ctx, cb.From.ID, currency); err != nil {
		h.answer(ctx, cb.ID, textInternalError)
		return
	}

	methods := make([]string, 0, len(h.cfg.Exchange.PaymentMethods))
	for name := range h.cfg.Exchange.PaymentMethods {
		methods = append(methods, name)
	}
	sort.Strings(methods)

	h.answer(ctx, cb.ID, currency)
	h.send(ctx, telegram.SendMessageRequest{
		ChatID:      cb.From.ID,
		Text:        textPickMethod,
		ReplyMarkup: methodKeyboard(methods),
	})
}

func (h *Handler) handleMethodPick(ctx context.Context, cb telegram.CallbackQuery, method string) {
	if err := h.accounts.SetSelectedMethod(ctx, cb.From.ID, method); err != nil {
		h.answer(ctx, cb.ID, textInternalError)
		return
	}

	h.answer(ctx, cb.ID, method)
	h.reply(ctx, cb.From.ID, fmt.Sprintf(textAskAmount, formatAmount(h.cfg.Exchange.MinAmount)))
}

func (h *Handler) handleReviewCommand(ctx context.Context, cb telegram.CallbackQuery, command Command) {
	if command.Kind == KindDetail {
		order, err := h.orders.Get(ctx, command.OrderID)
		if err != nil {
			h.answer(ctx, cb.ID, fmt.Sprintf(textOrderMissing, command.OrderID))
			return
		}
		h.answer(ctx, cb.ID, "")
		h.reply(ctx, h.cfg.AdminID, formatReviewCaption(*order, nil))
		return
	}

	approve := command.Kind == KindApprove
	order, err := h.orders.Decide(ctx, command.OrderID, approve)
	switch {
	case errors.Is(err, orderservice.ErrAlreadyDecided):
		h.answer(ctx, cb.ID, fmt.Sprintf(textOrderAlreadyDecided, order.ID, order.Status))
		return
	case errors.Is(err, orderservice.ErrOrderNotFound):
		h.answer(ctx, cb.ID, fmt.Sprintf(textOrderMissing, command.OrderID))
		return
	case err != nil:
		h.answer(ctx, cb.ID, textInternalError)
		return
	}

	h.answer(ctx, cb.ID, "✔️")

	if cb.Message != nil {
		decision := "✅ approved"
		if !approve {
			decision = "❌ rejected"
		}
		caption := formatReviewCaption(*order, nil) + "\n\n" + decision
		if err := h.tg.EditMessageCaption(ctx, telegram.EditMessageCaptionRequest{
			ChatID:    cb.Message.Chat.ID,
			MessageID: cb.Message.MessageID,
			Caption:   caption,
		}); err != nil {
			zap.L().Warn("can't edit review message", zap.Int64("orderID", order.ID), zap.Error(err))
		}
	}

	if approve {
		h.reply(ctx, order.AccountID, fmt.Sprintf(textOrderApproved, order.ID, formatAmount(order.Amount), order.PayOutCurrency))
	} else {
		h.reply(ctx, order.AccountID, fmt.Sprintf(textOrderRejected, order.ID))
	}
}

func (h *Handler) handleAdminMessage(ctx context.Context, msg telegram.Message) {
	session := h.sessions.Get(msg.From.ID)

	if msg.Text == buttonCancel && session.Step != StepNone {
		h.sessions.Reset(msg.From.ID)
		h.send(ctx, telegram.SendMessageRequest{
			ChatID:      msg.Chat.ID,
			Text:        textAnnouncementCancelled,
			ReplyMarkup: adminMenuKeyboard(),
		})
		return
	}

	switch session.Step {
	case StepAwaitAnnouncementText:
		if len(msg.Photo) > 0 {
			h.sessions.Set(msg.From.ID, Session{
				Step:     StepAwaitAnnouncementCaption,
				PhotoRef: msg.Photo[len(msg.Photo)-1].FileID,
			})
			h.reply(ctx, msg.Chat.ID, textAskAnnouncementCaption)
			return
		}
		if msg.Text != "" {
			h.sessions.Reset(msg.From.ID)
			h.startBroadcast(ctx, msg.Chat.ID, broadcast.Payload{Text: msg.Text})
		}
		return
	case StepAwaitAnnouncementCaption:
		if msg.Text != "" {
			h.sessions.Reset(msg.From.ID)
			h.startBroadcast(ctx, msg.Chat.ID, broadcast.Payload{Text: msg.Text, ImageRef: session.PhotoRef})
		}
		return
	}

	switch msg.Text {
	case "/start", "/admin":
		h.send(ctx, telegram.SendMessageRequest{
			ChatID:      msg.Chat.ID,
			Text:        "Admin panel",
			ReplyMarkup: adminMenuKeyboard(),
		})
	case buttonPending:
		h.sendPendingList(ctx, msg.Chat.ID)
	case buttonStats:
		h.sendStats(ctx, msg.Chat.ID)
	case buttonUsers:
		h.sendUsers(ctx, msg.Chat.ID)
	case buttonAnnouncement:
		h.sessions.Set(msg.From.ID, Session{Step: StepAwaitAnnouncementText})
		h.send(ctx, telegram.SendMessageRequest{
			ChatID:      msg.Chat.ID,
			Text:        textAskAnnouncementText,
			ReplyMarkup: cancelKeyboard(),
		})
	}
}

func (h *Handler) sendPendingList(ctx context.Context, chatID int64) {
	orders, err := h.review.PendingOrders(ctx, 0)
	if err != nil {
		h.reply(ctx, chatID, textInternalError)
		return
	}
	if len(orders) == 0 {
		h.reply(ctx, chatID, textNoPending)
		return
	}

	for i, order := range orders {
		h.send(ctx, telegram.SendMessageRequest{
			ChatID:      chatID,
			Text:        formatReviewCaption(order, nil),
			ReplyMarkup: pendingItemKeyboard(order.ID),
		})
		if i < len(orders)-1 {
			time.Sleep(pendingListPace)
		}
	}
}

func (h *Handler) sendStats(ctx context.Context, chatID int64) {
	stats, err := h.review.Stats(ctx, time.Now())
	if err != nil {
		h.reply(ctx, chatID, textInternalError)
		return
	}
	accounts, err := h.accounts.Count(ctx)
	if err != nil {
		h.reply(ctx, chatID, textInternalError)
		return
	}
	h.reply(ctx, chatID, formatStats(stats, accounts))
}

func (h *Handler) sendUsers(ctx context.Context, chatID int64) {
	accounts, err := h.accounts.ListRecent(ctx, listLimit)
	if err != nil {
		h.reply(ctx, chatID, textInternalError)
		return
	}

	lines := make([]string, 0, len(accounts))
	for _, account := range accounts {
		lines = append(lines, formatAccountLine(account))
	}
	h.reply(ctx, chatID, strings.Join(lines, "\n"))
}

// startBroadcast fans the announcement out in the background; the poll loop
// must not stall for the duration of a paced run over every account.
func (h *Handler) startBroadcast(ctx context.Context, chatID int64, payload broadcast.Payload) {
	recipients, err := h.accounts.ListIDs(ctx)
	if err != nil {
		h.reply(ctx, chatID, textInternalError)
		return
	}

	h.reply(ctx, chatID, fmt.Sprintf(textAnnouncementStarted, len(recipients)))
	progressMsg, _ := h.tg.SendMessage(ctx, telegram.SendMessageRequest{
		ChatID: chatID,
		Text:   fmt.Sprintf(textBroadcastProgress, 0, 0, 0),
	})

	bgCtx := context.WithoutCancel(ctx)
	go func() {
		progress := func(processed, sent, failed int) {
			if progressMsg == nil {
				return
			}
			h.tg.EditMessageText(bgCtx, telegram.EditMessageTextRequest{
				ChatID:    chatID,
				MessageID: progressMsg.MessageID,
				Text:      fmt.Sprintf(textBroadcastProgress, processed, sent, failed),
			})
		}

		report := h.dispatcher.Run(bgCtx, recipients, payload, h.sendAnnouncement, progress)

		h.send(bgCtx, telegram.SendMessageRequest{
			ChatID:      chatID,
			Text:        fmt.Sprintf(textBroadcastDone, report.Sent, report.Failed),
			ReplyMarkup: adminMenuKeyboard(),
		})
	}()
}

func (h *Handler) sendAnnouncement(ctx context.Context, recipient int64, payload broadcast.Payload) error {
	if payload.ImageRef != "" {
		_, err := h.tg.SendPhoto(ctx, telegram.SendPhotoRequest{
			ChatID:  recipient,
			Photo:   payload.ImageRef,
			Caption: payload.Text,
		})
		return err
	}
	_, err := h.tg.SendMessage(ctx, telegram.SendMessageRequest{
		ChatID: recipient,
		Text:   payload.Text,
	})
	return err
}

// isSubscribed requires membership in every configured channel.
func (h *Handler) isSubscribed(ctx context.Context, userID int64) bool {
	for _, channel := range h.cfg.Exchange.RequiredChannels {
		status, err := h.tg.GetChatMember(ctx, channel, userID)
		if err != nil {
			zap.L().Warn("can't check channel membership", zap.String("channel", channel), zap.Error(err))
			return false
		}
		switch status {
		case "member", "administrator", "creator":
		default:
			return false
		}
	}
	return true
}

func (h *Handler) send(ctx context.Context, req telegram.SendMessageRequest) {
	if _, err := h.tg.SendMessage(ctx, req); err != nil {
		zap.L().Warn("can't send message", zap.Int64("chatID", req.ChatID), zap.Error(err))
	}
}

func (h *Handler) reply(ctx context.Context, chatID int64, text string) {
	h.send(ctx, telegram.SendMessageRequest{ChatID: chatID, Text: text})
}

func (h *Handler) answer(ctx context.Context, callbackID, text string) {
	if err := h.tg.AnswerCallbackQuery(ctx, callbackID, text); err != nil {
		zap.L().Warn("can't answer callback", zap.Error(err))
	}
}
