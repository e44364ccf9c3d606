package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/mod-bot/internal/domain/actions"
	"github.com/Spok95/mod-bot/internal/domain/ranks"
)

const liftPrefix = "lift:"

func liftData(kind actions.Kind, subjectID int64) string {
	return fmt.Sprintf("%s%s:%d", liftPrefix, kind, subjectID)
}

func parseLiftData(data string) (actions.Kind, int64, bool) {
	rest, ok := strings.CutPrefix(data, liftPrefix)
	if !ok {
		return "", 0, false
	}
	kindStr, idStr, ok := strings.Cut(rest, ":")
	if !ok {
		return "", 0, false
	}
	kind, err := actions.ParseKind(kindStr)
	if err != nil {
		return "", 0, false
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return "", 0, false
	}
	return kind, id, true
}

// onCallback кнопки «Снять» из /actions; права те же, что у /unban и /unmute.
func (b *Bot) onCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return
	}
	kind, subjectID, ok := parseLiftData(cb.Data)
	if !ok {
		b.answerCallback(cb, "Неизвестная кнопка", false)
		return
	}
	if !b.ranks.Authorize(ctx, cb.From.ID, ranks.RankSudo) {
		b.answerCallback(cb, "Недостаточно прав", true)
		return
	}

	chatID := cb.Message.Chat.ID
	key := actions.Key{ScopeID: chatID, SubjectID: subjectID, Kind: kind}
	_, err := b.sched.Lift(ctx, key, func(ctx context.Context) error {
		return b.mod.Reverse(ctx, chatID, subjectID, kind)
	})
	if err != nil {
		b.log.Error("lift from button failed", "chat_id", chatID, "user_id", subjectID, "kind", kind, "err", err)
		b.answerCallback(cb, failText(err), true)
		return
	}
	b.log.Info("lifted", "chat_id", chatID, "user_id", subjectID, "kind", kind, "actor_id", cb.From.ID)
	b.record(ctx, chatID, cb.From.ID, liftAction[kind], subjectID, "кнопка")
	b.answerCallback(cb, "Снято", false)
	b.editTextAndClear(chatID, cb.Message.MessageID,
		fmt.Sprintf("%s %s снят досрочно (%s).", b.describe(ctx, subjectID), kind, userName(cb.From)))
}
