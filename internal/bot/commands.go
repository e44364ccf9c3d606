package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/mod-bot/internal/domain/actions"
	"github.com/Spok95/mod-bot/internal/domain/errs"
	"github.com/Spok95/mod-bot/internal/domain/ranks"
)

type request struct {
	msg    *tgbotapi.Message
	args   []string
	actor  int64
	rank   ranks.Rank
	silent bool
}

func (r *request) chatID() int64 { return r.msg.Chat.ID }

type command struct {
	min    ranks.Rank
	group  bool // только в группах
	silent bool // без ответа, команда удаляется
	usage  string
	handle func(ctx context.Context, req *request)
}

func (b *Bot) commandTable() map[string]command {
	ban := b.restrict(actions.KindBan, false)
	tban := b.restrict(actions.KindBan, true)
	mute := b.restrict(actions.KindMute, false)
	tmute := b.restrict(actions.KindMute, true)
	kick := b.kick

	return map[string]command{
		"start": {min: ranks.RankUser, handle: b.start},
		"help":  {min: ranks.RankUser, usage: "/help", handle: b.help},
		"ping":  {min: ranks.RankUser, usage: "/ping", handle: b.ping},
		"rank":  {min: ranks.RankUser, usage: "/rank [цель]", handle: b.rank},

		"ranks":     {min: ranks.RankDev, usage: "/ranks", handle: b.listRanks},
		"setrank":   {min: ranks.RankDev, usage: "/setrank <цель> <ранг>", handle: b.setRank},
		"clearrank": {min: ranks.RankDev, usage: "/clearrank <цель>", handle: b.clearRank},

		"ban":    {min: ranks.RankSudo, group: true, usage: "/ban <цель>", handle: ban},
		"sban":   {min: ranks.RankSudo, group: true, silent: true, handle: ban},
		"tban":   {min: ranks.RankSudo, group: true, usage: "/tban <цель> <срок>", handle: tban},
		"unban":  {min: ranks.RankSudo, group: true, usage: "/unban <цель>", handle: b.lift(actions.KindBan)},
		"mute":   {min: ranks.RankSudo, group: true, usage: "/mute <цель>", handle: mute},
		"smute":  {min: ranks.RankSudo, group: true, silent: true, handle: mute},
		"tmute":  {min: ranks.RankSudo, group: true, usage: "/tmute <цель> <срок>", handle: tmute},
		"unmute": {min: ranks.RankSudo, group: true, usage: "/unmute <цель>", handle: b.lift(actions.KindMute)},
		"kick":   {min: ranks.RankSudo, group: true, usage: "/kick <цель>", handle: kick},
		"skick":  {min: ranks.RankSudo, group: true, silent: true, handle: kick},

		"promote": {min: ranks.RankSudo, group: true, usage: "/promote <цель>", handle: b.promote},
		"demote":  {min: ranks.RankSudo, group: true, usage: "/demote <цель>", handle: b.demote},
		"purge":   {min: ranks.RankSudo, group: true, usage: "/purge [N] или ответом", handle: b.purge},

		"warn":       {min: ranks.RankSudo, group: true, usage: "/warn <цель> [причина]", handle: b.warn},
		"warns":      {min: ranks.RankSupport, group: true, usage: "/warns [цель]", handle: b.listWarns},
		"clearwarns": {min: ranks.RankSudo, group: true, usage: "/clearwarns <цель>", handle: b.clearWarns},

		"pin":    {min: ranks.RankSudo, group: true, usage: "/pin ответом", handle: b.pin},
		"unpin":  {min: ranks.RankSudo, group: true, usage: "/unpin [ответом]", handle: b.unpin},
		"lock":   {min: ranks.RankSudo, group: true, usage: "/lock <тип>", handle: b.lock(true)},
		"unlock": {min: ranks.RankSudo, group: true, usage: "/unlock <тип>", handle: b.lock(false)},
		"report": {min: ranks.RankUser, group: true, usage: "/report ответом", handle: b.report},

		"status":  {min: ranks.RankSupport, group: true, usage: "/status <цель>", handle: b.status},
		"actions": {min: ranks.RankSupport, group: true, usage: "/actions", handle: b.pendingActions},
		"logs":    {min: ranks.RankSupport, group: true, usage: "/logs", handle: b.logs},
		"export":  {min: ranks.RankDev, group: true, usage: "/export", handle: b.export},
	}
}

// dispatch авторизация обязательна для всех команд, в том числе тихих.
func (b *Bot) dispatch(ctx context.Context, msg *tgbotapi.Message) {
	name, addressee, _ := strings.Cut(strings.ToLower(msg.CommandWithAt()), "@")
	// команда другому боту в той же группе
	if addressee != "" && !strings.EqualFold(addressee, b.selfName) {
		return
	}
	cmd, ok := b.commands[name]
	if !ok {
		return
	}

	req := &request{
		msg:    msg,
		args:   strings.Fields(msg.CommandArguments()),
		actor:  msg.From.ID,
		silent: cmd.silent,
	}

	if cmd.group && !msg.Chat.IsGroup() && !msg.Chat.IsSuperGroup() {
		b.reply(req, "Команда работает только в группах.")
		return
	}

	req.rank = b.ranks.Resolve(ctx, req.actor)
	if !b.ranks.Authorize(ctx, req.actor, cmd.min) {
		b.log.Info("command denied", "command", name, "user_id", req.actor,
			"rank", req.rank.String(), "required", cmd.min.String())
		b.reply(req, fmt.Sprintf("Недостаточно прав: нужен ранг %s.", cmd.min))
		return
	}

	if cmd.silent {
		if _, err := b.api.Request(tgbotapi.NewDeleteMessage(msg.Chat.ID, msg.MessageID)); err != nil {
			b.log.Warn("delete silent command failed", "chat_id", msg.Chat.ID, "err", err)
		}
	}

	b.log.Debug("command", "command", name, "chat_id", msg.Chat.ID, "user_id", req.actor)
	cmd.handle(ctx, req)
}

func (b *Bot) reply(req *request, text string) {
	if req.silent {
		return
	}
	m := tgbotapi.NewMessage(req.msg.Chat.ID, text)
	m.ReplyToMessageID = req.msg.MessageID
	b.send(m)
}

// failText ответ пользователю по таксономии ошибок.
func failText(err error) string {
	switch {
	case errors.Is(err, errs.ErrForbidden):
		return "Недостаточно прав."
	case errors.Is(err, errs.ErrInvalidTarget):
		return "Недопустимая цель."
	case errors.Is(err, errs.ErrNotFound):
		return "Не найдено."
	case errors.Is(err, errs.ErrTransport):
		return "Telegram отклонил запрос. Проверьте права бота в чате."
	case errors.Is(err, errs.ErrStorage):
		return "Ошибка хранилища, попробуйте позже."
	default:
		return "Не удалось выполнить команду."
	}
}

// visible команды, доступные рангу, по алфавиту.
func (b *Bot) visible(rank ranks.Rank) []string {
	var out []string
	for _, cmd := range b.commands {
		if cmd.usage == "" || cmd.min > rank {
			continue
		}
		out = append(out, cmd.usage)
	}
	sort.Strings(out)
	return out
}
