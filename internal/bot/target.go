package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var (
	errNoTarget      = errors.New("no target")
	errUnknownTarget = errors.New("unknown target")
)

type target struct {
	id   int64
	name string
}

func (t target) String() string {
	if t.name != "" {
		return t.name
	}
	return strconv.FormatInt(t.id, 10)
}

// resolveTarget автор сообщения, на которое ответили, иначе первый
// аргумент: числовой id или @username. Возвращает оставшиеся аргументы.
func (b *Bot) resolveTarget(ctx context.Context, msg *tgbotapi.Message, args []string) (target, []string, error) {
	if r := msg.ReplyToMessage; r != nil && r.From != nil {
		return target{id: r.From.ID, name: userName(r.From)}, args, nil
	}
	if len(args) == 0 {
		return target{}, nil, errNoTarget
	}

	arg, rest := args[0], args[1:]
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil && id != 0 {
		t := target{id: id}
		if u, err := b.users.GetByTelegramID(ctx, id); err == nil && u != nil {
			t.name = u.DisplayName()
		}
		return t, rest, nil
	}
	if strings.HasPrefix(arg, "@") && len(arg) > 1 {
		u, err := b.users.GetByUsername(ctx, arg)
		if err != nil {
			b.log.Warn("lookup username failed", "username", arg, "err", err)
			return target{}, nil, errUnknownTarget
		}
		if u == nil {
			return target{}, nil, errUnknownTarget
		}
		return target{id: u.TelegramID, name: u.DisplayName()}, rest, nil
	}
	return target{}, nil, errNoTarget
}

// targetOrReply разбирает цель и сам отвечает об ошибке.
func (b *Bot) targetOrReply(ctx context.Context, req *request, usage string) (target, []string, bool) {
	t, rest, err := b.resolveTarget(ctx, req.msg, req.args)
	switch {
	case errors.Is(err, errUnknownTarget):
		b.reply(req, "Не знаю такого пользователя. Ответьте на его сообщение или укажите id.")
		return target{}, nil, false
	case err != nil:
		b.reply(req, "Ответьте на сообщение пользователя или укажите id/@username.\n"+usage)
		return target{}, nil, false
	}
	return t, rest, true
}

// guard проверки цели до обращения к Telegram. Пустая строка = можно.
// checkAdmin: не трогать действующих администраторов чата.
func (b *Bot) guard(ctx context.Context, req *request, t target, checkAdmin bool) string {
	switch {
	case t.id == b.selfID:
		return "Не могу применить это к себе."
	case t.id == req.actor:
		return "Нельзя применить это к самому себе."
	case t.id == b.ranks.OwnerID():
		return "Владелец бота неприкосновенен."
	}
	if b.ranks.Resolve(ctx, t.id) >= req.rank {
		return "Ранг цели не ниже вашего."
	}
	if checkAdmin {
		admin, err := b.mod.IsChatAdmin(ctx, req.chatID(), t.id)
		if err != nil {
			b.log.Warn("check chat admin failed", "chat_id", req.chatID(), "user_id", t.id, "err", err)
			return "Не удалось проверить статус участника."
		}
		if admin {
			return "Это администратор чата."
		}
	}
	return ""
}
