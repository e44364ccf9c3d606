package bot

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Spok95/mod-bot/internal/domain/actions"
	"github.com/Spok95/mod-bot/internal/domain/modlog"
	"github.com/Spok95/mod-bot/internal/pkg/duration"
)

const purgeLimit = 100

var kindDone = map[actions.Kind]string{
	actions.KindBan:  "забанен",
	actions.KindMute: "в муте",
}

var kindLifted = map[actions.Kind]string{
	actions.KindBan:  "разбанен",
	actions.KindMute: "размучен",
}

var restrictAction = map[actions.Kind]modlog.Action{
	actions.KindBan:  modlog.ActionBan,
	actions.KindMute: modlog.ActionMute,
}

var liftAction = map[actions.Kind]modlog.Action{
	actions.KindBan:  modlog.ActionUnban,
	actions.KindMute: modlog.ActionUnmute,
}

// restrict /ban /mute и временные /tban /tmute.
func (b *Bot) restrict(kind actions.Kind, timed bool) func(context.Context, *request) {
	usage := "/" + string(kind) + " <цель>"
	if timed {
		usage = "/t" + string(kind) + " <цель> <срок>"
	}
	return func(ctx context.Context, req *request) {
		t, rest, ok := b.targetOrReply(ctx, req, usage)
		if !ok {
			return
		}

		var d time.Duration
		if timed {
			if len(rest) == 0 {
				b.reply(req, "Укажите срок: 30m, 2h, 1d12h.\n"+usage)
				return
			}
			var err error
			if d, err = duration.Parse(rest[0]); err != nil {
				b.reply(req, fmt.Sprintf("Неверный срок %q: %v", rest[0], err))
				return
			}
		}

		if reason := b.guard(ctx, req, t, true); reason != "" {
			b.reply(req, reason)
			return
		}

		if err := b.applyRestriction(ctx, req, t.id, kind, d, ""); err != nil {
			b.reply(req, failText(err))
			return
		}
		if d > 0 {
			b.reply(req, fmt.Sprintf("%s %s на %s.", t, kindDone[kind], duration.Format(d)))
			return
		}
		b.reply(req, fmt.Sprintf("%s %s навсегда.", t, kindDone[kind]))
	}
}

// applyRestriction бан или мут через планировщик: d > 0 ставит срок снятия.
func (b *Bot) applyRestriction(ctx context.Context, req *request, subjectID int64,
	kind actions.Kind, d time.Duration, note string) error {

	chatID := req.chatID()
	var until *time.Time
	if d > 0 {
		u := b.now().Add(d)
		until = &u
	}
	key := actions.Key{ScopeID: chatID, SubjectID: subjectID, Kind: kind}
	_, err := b.sched.Restrict(ctx, key, d, func(ctx context.Context) error {
		return b.mod.Apply(ctx, chatID, subjectID, kind, until)
	})
	if err != nil {
		b.log.Error("restrict failed", "chat_id", chatID, "user_id", subjectID, "kind", kind, "err", err)
		return err
	}

	b.log.Info("restricted", "chat_id", chatID, "user_id", subjectID, "kind", kind,
		"actor_id", req.actor, "duration", d)
	details := "навсегда"
	if d > 0 {
		details = duration.Format(d)
	}
	if note != "" {
		details += ", " + note
	}
	b.record(ctx, chatID, req.actor, restrictAction[kind], subjectID, details)
	return nil
}

// lift /unban /unmute: немедленное снятие, затем отмена записи.
func (b *Bot) lift(kind actions.Kind) func(context.Context, *request) {
	usage := "/un" + string(kind) + " <цель>"
	return func(ctx context.Context, req *request) {
		t, _, ok := b.targetOrReply(ctx, req, usage)
		if !ok {
			return
		}
		if t.id == b.selfID {
			b.reply(req, "Не могу применить это к себе.")
			return
		}
		chatID := req.chatID()
		key := actions.Key{ScopeID: chatID, SubjectID: t.id, Kind: kind}
		found, err := b.sched.Lift(ctx, key, func(ctx context.Context) error {
			return b.mod.Reverse(ctx, chatID, t.id, kind)
		})
		if err != nil {
			b.log.Error("lift failed", "chat_id", chatID, "user_id", t.id, "kind", kind, "err", err)
			b.reply(req, failText(err))
			return
		}
		b.log.Info("lifted", "chat_id", chatID, "user_id", t.id, "kind", kind,
			"actor_id", req.actor, "had_pending", found)
		b.record(ctx, chatID, req.actor, liftAction[kind], t.id, "")
		b.reply(req, fmt.Sprintf("%s %s.", t, kindLifted[kind]))
	}
}

func (b *Bot) kick(ctx context.Context, req *request) {
	t, _, ok := b.targetOrReply(ctx, req, "/kick <цель>")
	if !ok {
		return
	}
	if reason := b.guard(ctx, req, t, true); reason != "" {
		b.reply(req, reason)
		return
	}
	if err := b.mod.Kick(ctx, req.chatID(), t.id); err != nil {
		b.log.Error("kick failed", "chat_id", req.chatID(), "user_id", t.id, "err", err)
		b.reply(req, failText(err))
		return
	}
	b.record(ctx, req.chatID(), req.actor, modlog.ActionKick, t.id, "")
	b.reply(req, fmt.Sprintf("%s исключён из чата.", t))
}

// promote/demote сами меняют админство, поэтому проверка на админа не нужна.
func (b *Bot) promote(ctx context.Context, req *request) {
	t, _, ok := b.targetOrReply(ctx, req, "/promote <цель>")
	if !ok {
		return
	}
	if reason := b.guard(ctx, req, t, false); reason != "" {
		b.reply(req, reason)
		return
	}
	if err := b.mod.Promote(ctx, req.chatID(), t.id); err != nil {
		b.log.Error("promote failed", "chat_id", req.chatID(), "user_id", t.id, "err", err)
		b.reply(req, failText(err))
		return
	}
	b.record(ctx, req.chatID(), req.actor, modlog.ActionPromote, t.id, "")
	b.reply(req, fmt.Sprintf("%s назначен администратором.", t))
}

func (b *Bot) demote(ctx context.Context, req *request) {
	t, _, ok := b.targetOrReply(ctx, req, "/demote <цель>")
	if !ok {
		return
	}
	if reason := b.guard(ctx, req, t, false); reason != "" {
		b.reply(req, reason)
		return
	}
	if err := b.mod.Demote(ctx, req.chatID(), t.id); err != nil {
		b.log.Error("demote failed", "chat_id", req.chatID(), "user_id", t.id, "err", err)
		b.reply(req, failText(err))
		return
	}
	b.record(ctx, req.chatID(), req.actor, modlog.ActionDemote, t.id, "")
	b.reply(req, fmt.Sprintf("%s больше не администратор.", t))
}

// purge ответом: от того сообщения до команды; иначе N предыдущих (по умолчанию 1).
func (b *Bot) purge(ctx context.Context, req *request) {
	cur := req.msg.MessageID
	from := cur - 1
	switch {
	case req.msg.ReplyToMessage != nil:
		from = req.msg.ReplyToMessage.MessageID
	case len(req.args) > 0:
		n, err := strconv.Atoi(req.args[0])
		if err != nil || n <= 0 {
			b.reply(req, "Укажите число сообщений или ответьте на сообщение.")
			return
		}
		from = cur - n
	}
	if cur-from > purgeLimit {
		from = cur - purgeLimit
	}
	if from < 1 {
		from = 1
	}

	ids := make([]int, 0, cur-from+1)
	for id := cur; id >= from; id-- {
		ids = append(ids, id)
	}
	deleted, err := b.mod.DeleteMessages(ctx, req.chatID(), ids)
	if err != nil {
		b.log.Error("purge failed", "chat_id", req.chatID(), "deleted", deleted, "err", err)
		b.reply(req, failText(err))
		return
	}
	b.log.Info("purged", "chat_id", req.chatID(), "deleted", deleted, "actor_id", req.actor)
	b.record(ctx, req.chatID(), req.actor, modlog.ActionPurge, 0, fmt.Sprintf("удалено %d", deleted))
	if !req.silent {
		b.send(newText(req.chatID(), fmt.Sprintf("Удалено сообщений: %d.", deleted)))
	}
}
