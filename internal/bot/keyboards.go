package bot

import (
	"strings"

	"github.com/otabekdev/exchangebot/internal/telegram"
)

const (
	buttonExchange     = "💱 Exchange"
	buttonTransactions = "📜 My transactions"
	buttonContact      = "💬 Contact admin"

	buttonPending      = "📋 Pending orders"
	buttonStats        = "📊 Stats"
	buttonUsers        = "👥 Users"
	buttonAnnouncement = "📢 Announcement"
	buttonCancel       = "❌ Cancel"
)

func mainMenuKeyboard() telegram.ReplyKeyboardMarkup {
	return telegram.ReplyKeyboardMarkup{
		Keyboard: [][]telegram.KeyboardButton{
			{{Text: buttonExchange}},
			{{Text: buttonTransactions}, {Text: buttonContact}},
		},
		ResizeKeyboard: true,
	}
}

func adminMenuKeyboard() telegram.ReplyKeyboardMarkup {
	return telegram.ReplyKeyboardMarkup{
		Keyboard: [][]telegram.KeyboardButton{
			{{Text: buttonPending}, {Text: buttonStats}},
			{{Text: buttonUsers}, {Text: buttonAnnouncement}},
		},
		ResizeKeyboard: true,
	}
}

func cancelKeyboard() telegram.ReplyKeyboardMarkup {
	return telegram.ReplyKeyboardMarkup{
		Keyboard:       [][]telegram.KeyboardButton{{{Text: buttonCancel}}},
		ResizeKeyboard: true,
	}
}

func subscriptionKeyboard(channels []string) telegram.InlineKeyboardMarkup {
	var rows [][]telegram.InlineKeyboardButton
	for _, channel := range channels {
		rows = append(rows, []telegram.InlineKeyboardButton{{
			Text: channel,
			URL:  "https://t.me/" + strings.TrimPrefix(channel, "@"),
		}})
	}
	rows = append(rows, []telegram.InlineKeyboardButton{{
		Text:         "✅ I subscribed",
		CallbackData: checkSubscription,
	}})
	return telegram.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func currencyKeyboard(currencies []string) telegram.InlineKeyboardMarkup {
	var rows [][]telegram.InlineKeyboardButton
	for _, currency := range currencies {
		rows = append(rows, []telegram.InlineKeyboardButton{{
			Text:         currency,
			CallbackData: currencyPrefix + currency,
		}})
	}
	return telegram.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func methodKeyboard(methods []string) telegram.InlineKeyboardMarkup {
	var rows [][]telegram.InlineKeyboardButton
	for _, method := range methods {
		rows = append(rows, []telegram.InlineKeyboardButton{{
			Text:         method,
			CallbackData: methodPrefix + method,
		}})
	}
	return telegram.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func reviewKeyboard(orderID int64) telegram.InlineKeyboardMarkup {
	return telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{{
			{Text: "✅ Approve", CallbackData: Command{Kind: KindApprove, OrderID: orderID}.Encode()},
			{Text: "❌ Reject", CallbackData: Command{Kind: KindReject, OrderID: orderID}.Encode()},
		}},
	}
}

func pendingItemKeyboard(orderID int64) telegram.InlineKeyboardMarkup {
	return telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{{
			{Text: "🔍 Detail", CallbackData: Command{Kind: KindDetail, OrderID: orderID}.Encode()},
			{Text: "✅ Approve", CallbackData: Command{Kind: KindApprove, OrderID: orderID}.Encode()},
			{Text: "❌ Reject", CallbackData: Command{Kind: KindReject, OrderID: orderID}.Encode()},
		}},
	}
}
