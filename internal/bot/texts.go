package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/otabekdev/exchangebot/internal/domain"
	reviewservice "github.com/otabekdev/exchangebot/internal/service/reviewservice"
)

const (
	textWelcome = "Welcome! Pick an action from the menu below."

	textSubscriptionGate = "To use the exchange you need to be subscribed to our channel. Subscribe and press the button."
	textStillNotMember   = "You are not subscribed yet."

	textPickCurrency = "Pick the currency you want to receive:"
	textPickMethod   = "Pick how you will pay:"
	textAskAmount    = "Enter the amount in UZS (minimum %s):"

	textBelowMinimum  = "The amount is below the minimum of %s UZS."
	textInvalidAmount = "Please send the amount as a number."
	textNoSelection   = "Start with %s and pick a currency first."

	textInvoice = "Order #%d\n\nAmount: %s UZS\nFee: %s UZS\nTotal to pay: %s UZS\n\nPay to:\n%s\n\nThen send a photo of the payment receipt."

	textProofReceived  = "Receipt for order #%d received. We will notify you after review."
	textProofUnmatched = "You have no open order waiting for a receipt. Start a new exchange first."

	textOrderApproved = "Order #%d approved ✅\n%s %s has been credited."
	textOrderRejected = "Order #%d rejected ❌\nContact the admin if you think this is a mistake."

	textContactAdmin = "Write to the admin directly and mention your order number."

	textNoTransactions = "You have no transactions yet."

	textNoPending = "No pending orders."

	textAskAnnouncementText    = "Send the announcement text, or a photo to attach one."
	textAskAnnouncementCaption = "Photo saved. Now send the caption text."
	textAnnouncementStarted    = "Broadcast started for %d recipients."
	textAnnouncementCancelled  = "Announcement cancelled."
	textBroadcastProgress      = "Broadcast: %d processed, %d sent, %d failed"
	textBroadcastDone          = "Broadcast finished: %d sent, %d failed"

	textOrderAlreadyDecided = "Order #%d is already %s."
	textOrderMissing        = "Order #%d not found."

	textInternalError = "Something went wrong, please try again."
)

func formatAmount(amount float64) string {
	// 1234567.5 -> "1 234 567.5"; exchange sums in UZS read better grouped
	s := strconv.FormatFloat(amount, 'f', -1, 64)
	intPart, frac, hasFrac := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 && r != '-' {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}

func formatOrderLine(order domain.Order) string {
	icon := "⏳"
	switch order.Status {
	case "approved":
		icon = "✅"
	case "rejected":
		icon = "❌"
	}
	return fmt.Sprintf("%s #%d · %s UZS → %s · %s",
		icon, order.ID, formatAmount(order.Amount), order.PayOutCurrency,
		order.CreatedAt.Format("02.01.2006 15:04"))
}

func formatReviewCaption(order domain.Order, account *domain.Account) string {
	who := fmt.Sprintf("id %d", order.AccountID)
	if account != nil {
		who = fmt.Sprintf("%s %s (@%s, id %d)", account.FirstName, account.LastName, account.Username, account.ID)
	}
	return fmt.Sprintf("Order #%d\nFrom: %s\nPay-in: %s\nPay-out: %s\nAmount: %s UZS\nFee: %s UZS\nTotal: %s UZS",
		order.ID, who, order.PayInMethod, order.PayOutCurrency,
		formatAmount(order.Amount), formatAmount(order.Fee), formatAmount(order.TotalPayable))
}

func formatStats(stats *reviewservice.Stats, accounts int) string {
	return fmt.Sprintf(
		"👥 Accounts: %d\n\nToday:\n  orders: %d\n  approved: %d\n  volume: %s UZS\n\nLast 7 days:\n  orders: %d\n  approved: %d\n  volume: %s UZS",
		accounts,
		stats.TodayTotal, stats.TodayApproved, formatAmount(stats.TodayAmount),
		stats.WeekTotal, stats.WeekApproved, formatAmount(stats.WeekAmount),
	)
}

func formatAccountLine(account domain.Account) string {
	return fmt.Sprintf("@%s · %s %s · balance %s · since %s",
		account.Username, account.FirstName, account.LastName,
		formatAmount(account.Balance), account.CreatedAt.Format("02.01.2006"))
}
