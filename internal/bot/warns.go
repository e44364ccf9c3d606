package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/Spok95/mod-bot/internal/domain/modlog"
	"github.com/Spok95/mod-bot/internal/domain/warnings"
	"github.com/Spok95/mod-bot/internal/pkg/duration"
)

const (
	noReason      = "без причины"
	warnsShown    = 5
	warnEscalated = "лимит предупреждений"
)

// warn при достижении лимита применяет WarnPolicy и обнуляет счётчик.
func (b *Bot) warn(ctx context.Context, req *request) {
	t, rest, ok := b.targetOrReply(ctx, req, "/warn <цель> [причина]")
	if !ok {
		return
	}
	if reason := b.guard(ctx, req, t, true); reason != "" {
		b.reply(req, reason)
		return
	}
	reason := strings.TrimSpace(strings.Join(rest, " "))
	if reason == "" {
		reason = noReason
	}

	chatID := req.chatID()
	n, err := b.warns.Add(ctx, warnings.Warning{
		ScopeID:   chatID,
		SubjectID: t.id,
		WarnedBy:  req.actor,
		Reason:    reason,
		CreatedAt: b.now().UTC(),
	})
	if err != nil {
		b.log.Error("add warning failed", "chat_id", chatID, "user_id", t.id, "err", err)
		b.reply(req, "Ошибка хранилища, попробуйте позже.")
		return
	}
	b.log.Info("warned", "chat_id", chatID, "user_id", t.id, "actor_id", req.actor, "count", n)
	b.record(ctx, chatID, req.actor, modlog.ActionWarn, t.id, fmt.Sprintf("%d/%d: %s", n, b.policy.Limit, reason))

	text := fmt.Sprintf("%s получает предупреждение %d/%d.\nПричина: %s", t, n, b.policy.Limit, reason)
	if n < b.policy.Limit {
		b.reply(req, text)
		return
	}

	if err := b.applyRestriction(ctx, req, t.id, b.policy.Kind, b.policy.Duration, warnEscalated); err != nil {
		b.reply(req, text+"\nЛимит достигнут, но ограничить не удалось: "+failText(err))
		return
	}
	if _, err := b.warns.Clear(ctx, chatID, t.id); err != nil {
		b.log.Error("reset warnings failed", "chat_id", chatID, "user_id", t.id, "err", err)
	}
	term := "навсегда"
	if b.policy.Duration > 0 {
		term = "на " + duration.Format(b.policy.Duration)
	}
	b.reply(req, fmt.Sprintf("%s\nЛимит достигнут: %s %s %s.", text, t, kindDone[b.policy.Kind], term))
}

// listWarns без цели показывает предупреждения автора команды.
func (b *Bot) listWarns(ctx context.Context, req *request) {
	t := target{id: req.actor, name: userName(req.msg.From)}
	if len(req.args) > 0 || req.msg.ReplyToMessage != nil {
		var ok bool
		if t, _, ok = b.targetOrReply(ctx, req, "/warns [цель]"); !ok {
			return
		}
	}

	list, err := b.warns.List(ctx, req.chatID(), t.id)
	if err != nil {
		b.log.Error("list warnings failed", "chat_id", req.chatID(), "user_id", t.id, "err", err)
		b.reply(req, "Ошибка хранилища, попробуйте позже.")
		return
	}
	if len(list) == 0 {
		b.reply(req, fmt.Sprintf("У %s нет предупреждений.", t))
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "У %s предупреждений: %d/%d.", t, len(list), b.policy.Limit)
	for i, w := range list {
		if i == warnsShown {
			break
		}
		fmt.Fprintf(&sb, "\n%s: %s", w.CreatedAt.Local().Format(timeLayout), w.Reason)
	}
	b.reply(req, sb.String())
}

func (b *Bot) clearWarns(ctx context.Context, req *request) {
	t, _, ok := b.targetOrReply(ctx, req, "/clearwarns <цель>")
	if !ok {
		return
	}
	n, err := b.warns.Clear(ctx, req.chatID(), t.id)
	if err != nil {
		b.log.Error("clear warnings failed", "chat_id", req.chatID(), "user_id", t.id, "err", err)
		b.reply(req, "Ошибка хранилища, попробуйте позже.")
		return
	}
	b.record(ctx, req.chatID(), req.actor, modlog.ActionClearWarn, t.id, fmt.Sprintf("снято %d", n))
	b.reply(req, fmt.Sprintf("Предупреждения %s сняты (%d).", t, n))
}
