package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/mod-bot/internal/domain/locks"
	"github.com/Spok95/mod-bot/internal/domain/modlog"
)

const (
	reportAdmins  = 5
	reportExcerpt = 100
)

func (b *Bot) pin(ctx context.Context, req *request) {
	r := req.msg.ReplyToMessage
	if r == nil {
		b.reply(req, "Ответьте на сообщение, которое нужно закрепить.")
		return
	}
	if err := b.mod.Pin(ctx, req.chatID(), r.MessageID); err != nil {
		b.log.Error("pin failed", "chat_id", req.chatID(), "message_id", r.MessageID, "err", err)
		b.reply(req, failText(err))
		return
	}
	b.record(ctx, req.chatID(), req.actor, modlog.ActionPin, 0, "сообщение "+strconv.Itoa(r.MessageID))
	b.reply(req, "Сообщение закреплено.")
}

// unpin ответом открепляет то сообщение, иначе последнее закреплённое.
func (b *Bot) unpin(ctx context.Context, req *request) {
	id := 0
	if r := req.msg.ReplyToMessage; r != nil {
		id = r.MessageID
	}
	if err := b.mod.Unpin(ctx, req.chatID(), id); err != nil {
		b.log.Error("unpin failed", "chat_id", req.chatID(), "message_id", id, "err", err)
		b.reply(req, failText(err))
		return
	}
	details := "последнее"
	if id != 0 {
		details = "сообщение " + strconv.Itoa(id)
	}
	b.record(ctx, req.chatID(), req.actor, modlog.ActionUnpin, 0, details)
	b.reply(req, "Сообщение откреплено.")
}

// lock /lock и /unlock: меняют права всех участников чата.
func (b *Bot) lock(on bool) func(context.Context, *request) {
	name, action := "/unlock", modlog.ActionUnlock
	if on {
		name, action = "/lock", modlog.ActionLock
	}
	names := make([]string, 0, len(locks.Names()))
	for _, n := range locks.Names() {
		names = append(names, string(n))
	}
	usage := fmt.Sprintf("%s <тип>\nТипы: %s", name, strings.Join(names, ", "))

	return func(ctx context.Context, req *request) {
		if len(req.args) == 0 {
			b.reply(req, usage)
			return
		}
		t, err := locks.Parse(req.args[0])
		if err != nil {
			b.reply(req, fmt.Sprintf("Неизвестный тип %q.\n%s", req.args[0], usage))
			return
		}

		if on {
			err = b.mod.Lock(ctx, req.chatID(), t)
		} else {
			err = b.mod.Unlock(ctx, req.chatID(), t)
		}
		if err != nil {
			b.log.Error("set lock failed", "chat_id", req.chatID(), "lock", t, "on", on, "err", err)
			b.reply(req, failText(err))
			return
		}
		b.record(ctx, req.chatID(), req.actor, action, 0, string(t))
		if on {
			b.reply(req, fmt.Sprintf("Заблокировано для участников: %s.", t))
			return
		}
		b.reply(req, fmt.Sprintf("Разблокировано для участников: %s.", t))
	}
}

// report жалоба ответом: бот отвечает на спорное сообщение и зовёт админов.
func (b *Bot) report(ctx context.Context, req *request) {
	r := req.msg.ReplyToMessage
	if r == nil || r.From == nil {
		b.reply(req, "Ответьте на сообщение, на которое хотите пожаловаться.")
		return
	}
	if r.From.ID == req.actor || r.From.ID == b.selfID {
		b.reply(req, "На это сообщение пожаловаться нельзя.")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Жалоба от %s\nНа: %s", userName(req.msg.From), userName(r.From))
	excerpt := "медиа или файл"
	if text := []rune(r.Text); len(text) > 0 {
		if len(text) > reportExcerpt {
			text = append(text[:reportExcerpt], '…')
		}
		excerpt = string(text)
	}
	fmt.Fprintf(&sb, "\nСообщение: %s", excerpt)

	admins, err := b.mod.ChatAdmins(ctx, req.chatID())
	if err != nil {
		b.log.Warn("list chat admins failed", "chat_id", req.chatID(), "err", err)
	}
	var mentions []string
	for _, a := range admins {
		if a.Username != "" {
			mentions = append(mentions, "@"+a.Username)
		}
		if len(mentions) == reportAdmins {
			break
		}
	}
	if len(mentions) > 0 {
		fmt.Fprintf(&sb, "\n\nАдминистраторы: %s", strings.Join(mentions, " "))
	}

	m := tgbotapi.NewMessage(req.chatID(), sb.String())
	m.ReplyToMessageID = r.MessageID
	b.send(m)
	b.record(ctx, req.chatID(), req.actor, modlog.ActionReport, r.From.ID, excerpt)
}
