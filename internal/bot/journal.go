package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/Spok95/mod-bot/internal/domain/modlog"
)

const logsLimit = 20

// record пишет действие в журнал; сбой журнала команду не отменяет.
func (b *Bot) record(ctx context.Context, scopeID, actorID int64, action modlog.Action, targetID int64, details string) {
	err := b.journal.Write(ctx, modlog.Entry{
		ScopeID:   scopeID,
		ActorID:   actorID,
		Action:    action,
		TargetID:  targetID,
		Details:   details,
		CreatedAt: b.now().UTC(),
	})
	if err != nil {
		b.log.Error("write moderation log failed", "chat_id", scopeID, "action", action, "err", err)
	}
}

func (b *Bot) logs(ctx context.Context, req *request) {
	list, err := b.journal.List(ctx, req.chatID(), logsLimit)
	if err != nil {
		b.log.Error("list moderation log failed", "chat_id", req.chatID(), "err", err)
		b.reply(req, "Ошибка хранилища, попробуйте позже.")
		return
	}
	if len(list) == 0 {
		b.reply(req, "Журнал пуст.")
		return
	}

	var sb strings.Builder
	sb.WriteString("Последние действия:\n")
	for _, e := range list {
		fmt.Fprintf(&sb, "%s %s: %s", e.CreatedAt.Local().Format(timeLayout), b.describe(ctx, e.ActorID), e.Action)
		if e.TargetID != 0 {
			sb.WriteString(" → " + b.describe(ctx, e.TargetID))
		}
		if e.Details != "" {
			sb.WriteString(" (" + e.Details + ")")
		}
		sb.WriteString("\n")
	}
	b.reply(req, strings.TrimRight(sb.String(), "\n"))
}
