package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/mod-bot/internal/domain/actions"
	"github.com/Spok95/mod-bot/internal/domain/modlog"
	"github.com/Spok95/mod-bot/internal/domain/ranks"
	"github.com/Spok95/mod-bot/internal/export"
	"github.com/Spok95/mod-bot/internal/pkg/duration"
)

const (
	pendingLimit = 20
	exportLimit  = 5000
	timeLayout   = "02.01.2006 15:04"
)

func (b *Bot) start(_ context.Context, req *request) {
	b.reply(req, fmt.Sprintf(
		"Привет! Я бот модерации групп.\nВаш ранг: %s. Список команд: /help", req.rank))
}

func (b *Bot) help(_ context.Context, req *request) {
	lines := b.visible(req.rank)
	b.reply(req, fmt.Sprintf("Доступные команды (ранг %s):\n%s\n\nСрок: 30m, 2h, 1d12h, 1w; число = минуты.",
		req.rank, strings.Join(lines, "\n")))
}

func (b *Bot) ping(_ context.Context, req *request) {
	b.reply(req, "pong")
}

func (b *Bot) rank(ctx context.Context, req *request) {
	if len(req.args) == 0 && req.msg.ReplyToMessage == nil {
		b.reply(req, fmt.Sprintf("Ваш ранг: %s.", req.rank))
		return
	}
	t, _, ok := b.targetOrReply(ctx, req, "/rank [цель]")
	if !ok {
		return
	}
	b.reply(req, fmt.Sprintf("Ранг %s: %s.", t, b.ranks.Resolve(ctx, t.id)))
}

func (b *Bot) listRanks(ctx context.Context, req *request) {
	list, err := b.ranks.ListOverrides(ctx)
	if err != nil {
		b.log.Error("list rank overrides failed", "err", err)
		b.reply(req, failText(err))
		return
	}
	if len(list) == 0 {
		b.reply(req, "Назначенных рангов нет.")
		return
	}
	var sb strings.Builder
	sb.WriteString("Назначенные ранги:\n")
	for _, o := range list {
		fmt.Fprintf(&sb, "%s: %s (назначил %d, %s)\n",
			b.describe(ctx, o.SubjectID), o.Rank, o.SetBy, o.SetAt.Format(timeLayout))
	}
	b.reply(req, strings.TrimRight(sb.String(), "\n"))
}

func (b *Bot) setRank(ctx context.Context, req *request) {
	const usage = "/setrank <цель> <ранг>\nРанги: user, support, sudo (admin), dev"
	t, rest, ok := b.targetOrReply(ctx, req, usage)
	if !ok {
		return
	}
	if len(rest) == 0 {
		b.reply(req, usage)
		return
	}
	rk, err := ranks.ParseRank(rest[0])
	if err != nil {
		b.reply(req, fmt.Sprintf("Неизвестный ранг %q.\n%s", rest[0], usage))
		return
	}
	if err := b.ranks.SetOverride(ctx, req.actor, t.id, rk); err != nil {
		b.log.Warn("set rank failed", "actor_id", req.actor, "subject_id", t.id, "err", err)
		b.reply(req, failText(err))
		return
	}
	b.record(ctx, req.chatID(), req.actor, modlog.ActionSetRank, t.id, rk.String())
	b.reply(req, fmt.Sprintf("%s теперь %s.", t, rk))
}

func (b *Bot) clearRank(ctx context.Context, req *request) {
	t, _, ok := b.targetOrReply(ctx, req, "/clearrank <цель>")
	if !ok {
		return
	}
	if err := b.ranks.ClearOverride(ctx, req.actor, t.id); err != nil {
		b.log.Warn("clear rank failed", "actor_id", req.actor, "subject_id", t.id, "err", err)
		b.reply(req, failText(err))
		return
	}
	b.record(ctx, req.chatID(), req.actor, modlog.ActionClearRank, t.id, "")
	b.reply(req, fmt.Sprintf("Назначенный ранг %s снят, действует %s.", t, b.ranks.Resolve(ctx, t.id)))
}

// status ранг, ограничения по журналу и ответ Telegram.
func (b *Bot) status(ctx context.Context, req *request) {
	t, _, ok := b.targetOrReply(ctx, req, "/status <цель>")
	if !ok {
		return
	}
	chatID := req.chatID()

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (id %d)\nРанг: %s\n", t, t.id, b.ranks.Resolve(ctx, t.id))

	pending, err := b.sched.Pending(ctx, chatID, 0)
	if err != nil {
		b.log.Error("list pending failed", "chat_id", chatID, "err", err)
	}
	for _, kind := range []actions.Kind{actions.KindBan, actions.KindMute} {
		restricted, err := b.sched.Restricted(ctx, actions.Key{ScopeID: chatID, SubjectID: t.id, Kind: kind})
		switch {
		case err != nil:
			fmt.Fprintf(&sb, "%s: ошибка проверки\n", kind)
		case !restricted:
			fmt.Fprintf(&sb, "%s: нет\n", kind)
		default:
			line := fmt.Sprintf("%s: активен", kind)
			for _, a := range pending {
				if a.SubjectID == t.id && a.Kind == kind {
					line += " до " + a.ExpiresAt.In(time.Local).Format(timeLayout)
				}
			}
			sb.WriteString(line + "\n")
		}
	}
	fmt.Fprintf(&sb, "Telegram: %s", b.mod.Status(ctx, chatID, t.id))
	b.reply(req, sb.String())
}

// pendingActions ожидающие снятия; у каждой кнопка досрочного снятия.
func (b *Bot) pendingActions(ctx context.Context, req *request) {
	chatID := req.chatID()
	list, err := b.sched.Pending(ctx, chatID, pendingLimit)
	if err != nil {
		b.log.Error("list pending failed", "chat_id", chatID, "err", err)
		b.reply(req, failText(err))
		return
	}
	if len(list) == 0 {
		b.reply(req, "Временных ограничений нет.")
		return
	}

	now := b.now()
	var sb strings.Builder
	sb.WriteString("Временные ограничения:\n")
	for i, a := range list {
		left := a.ExpiresAt.Sub(now)
		if left < 0 {
			left = 0
		}
		fmt.Fprintf(&sb, "%d. %s %s, осталось %s", i+1, a.Kind, b.describe(ctx, a.SubjectID), duration.Format(left.Truncate(time.Second)))
		if a.FlaggedAt != nil {
			fmt.Fprintf(&sb, " ⚠ не снято после %d попыток: %s", a.Attempts, a.LastError)
		}
		sb.WriteString("\n")
	}

	m := tgbotapi.NewMessage(chatID, strings.TrimRight(sb.String(), "\n"))
	m.ReplyToMessageID = req.msg.MessageID
	m.ReplyMarkup = liftKeyboard(list)
	b.send(m)
}

func (b *Bot) export(ctx context.Context, req *request) {
	chatID := req.chatID()
	history, err := b.sched.History(ctx, chatID, exportLimit)
	if err != nil {
		b.log.Error("export history failed", "chat_id", chatID, "err", err)
		b.reply(req, failText(err))
		return
	}
	overrides, err := b.ranks.ListOverrides(ctx)
	if err != nil {
		b.log.Error("export ranks failed", "err", err)
		b.reply(req, failText(err))
		return
	}
	entries, err := b.journal.List(ctx, chatID, exportLimit)
	if err != nil {
		b.log.Error("export log failed", "chat_id", chatID, "err", err)
		b.reply(req, failText(err))
		return
	}
	data, err := export.Audit(history, overrides, entries)
	if err != nil {
		b.log.Error("build export failed", "err", err)
		b.reply(req, "Ошибка формирования файла.")
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  export.FileName(chatID, b.now()),
		Bytes: data,
	})
	doc.Caption = fmt.Sprintf("Журнал модерации: %d временных действий, %d назначенных рангов, %d записей журнала.",
		len(history), len(overrides), len(entries))
	doc.ReplyToMessageID = req.msg.MessageID
	b.send(doc)
}

// describe имя из справочника или просто id.
func (b *Bot) describe(ctx context.Context, id int64) string {
	if u, err := b.users.GetByTelegramID(ctx, id); err == nil && u != nil {
		if name := u.DisplayName(); name != "" {
			return fmt.Sprintf("%s (%d)", name, id)
		}
	}
	return fmt.Sprintf("%d", id)
}
