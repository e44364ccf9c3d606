package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/mod-bot/internal/domain/actions"
)

// liftKeyboard по кнопке «Снять» на каждую строку /actions.
func liftKeyboard(list []actions.Action) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(list))
	for i, a := range list {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("Снять #%d", i+1), liftData(a.Kind, a.SubjectID)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
