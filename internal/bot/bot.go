package bot

import (
	"context"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/mod-bot/internal/domain/actions"
	"github.com/Spok95/mod-bot/internal/domain/locks"
	"github.com/Spok95/mod-bot/internal/domain/modlog"
	"github.com/Spok95/mod-bot/internal/domain/ranks"
	"github.com/Spok95/mod-bot/internal/domain/users"
	"github.com/Spok95/mod-bot/internal/domain/warnings"
)

// API часть *tgbotapi.BotAPI, которой пользуется бот.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Moderation ChatModerationClient и дополнительные действия над участниками.
type Moderation interface {
	Apply(ctx context.Context, scopeID, subjectID int64, kind actions.Kind, until *time.Time) error
	Reverse(ctx context.Context, scopeID, subjectID int64, kind actions.Kind) error
	Status(ctx context.Context, scopeID, subjectID int64) actions.Restriction
	IsChatAdmin(ctx context.Context, scopeID, subjectID int64) (bool, error)
	Kick(ctx context.Context, scopeID, subjectID int64) error
	Promote(ctx context.Context, scopeID, subjectID int64) error
	Demote(ctx context.Context, scopeID, subjectID int64) error
	DeleteMessages(ctx context.Context, scopeID int64, ids []int) (int, error)
	Pin(ctx context.Context, scopeID int64, messageID int) error
	Unpin(ctx context.Context, scopeID int64, messageID int) error
	Lock(ctx context.Context, scopeID int64, t locks.Type) error
	Unlock(ctx context.Context, scopeID int64, t locks.Type) error
	ChatAdmins(ctx context.Context, scopeID int64) ([]users.Telegram, error)
}

type Scheduler interface {
	Restrict(ctx context.Context, key actions.Key, d time.Duration, apply func(context.Context) error) (actions.Action, error)
	Lift(ctx context.Context, key actions.Key, reverse func(context.Context) error) (bool, error)
	Restricted(ctx context.Context, key actions.Key) (bool, error)
	Pending(ctx context.Context, scopeID int64, limit int) ([]actions.Action, error)
	History(ctx context.Context, scopeID int64, limit int) ([]actions.Action, error)
}

type Ranks interface {
	OwnerID() int64
	Resolve(ctx context.Context, userID int64) ranks.Rank
	Authorize(ctx context.Context, userID int64, minimum ranks.Rank) bool
	SetOverride(ctx context.Context, actorID, subjectID int64, newRank ranks.Rank) error
	ClearOverride(ctx context.Context, actorID, subjectID int64) error
	ListOverrides(ctx context.Context) ([]ranks.Override, error)
}

// Directory увиденные пользователи, для @username.
type Directory interface {
	Touch(ctx context.Context, tg users.Telegram) error
	GetByTelegramID(ctx context.Context, tgID int64) (*users.User, error)
	GetByUsername(ctx context.Context, username string) (*users.User, error)
}

type Warnings interface {
	Add(ctx context.Context, w warnings.Warning) (int, error)
	List(ctx context.Context, scopeID, subjectID int64) ([]warnings.Warning, error)
	Clear(ctx context.Context, scopeID, subjectID int64) (int64, error)
}

// Journal журнал модерации.
type Journal interface {
	Write(ctx context.Context, e modlog.Entry) error
	List(ctx context.Context, scopeID int64, limit int) ([]modlog.Entry, error)
}

// WarnPolicy что делать, когда предупреждений набралось Limit.
type WarnPolicy struct {
	Limit    int
	Kind     actions.Kind
	Duration time.Duration // 0 = навсегда
}

type Bot struct {
	api      API
	log      *slog.Logger
	ranks    Ranks
	sched    Scheduler
	mod      Moderation
	users    Directory
	warns    Warnings
	journal  Journal
	policy   WarnPolicy
	selfID   int64
	selfName string
	now      func() time.Time

	commands map[string]command
}

func New(api API, log *slog.Logger, ranksResolver Ranks, sched Scheduler,
	mod Moderation, dir Directory, warns Warnings, journal Journal,
	policy WarnPolicy, self tgbotapi.User) *Bot {

	if log == nil {
		log = slog.Default()
	}
	b := &Bot{
		api: api, log: log, ranks: ranksResolver, sched: sched,
		mod: mod, users: dir, warns: warns, journal: journal, policy: policy,
		selfID: self.ID, selfName: self.UserName, now: time.Now,
	}
	b.commands = b.commandTable()
	return b
}

func (b *Bot) Run(ctx context.Context, timeoutSec int) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeoutSec
	u.AllowedUpdates = []string{"message", "callback_query"}
	updates := b.api.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			b.HandleUpdate(ctx, upd)
		}
	}
}

// HandleUpdate одно обновление; паника в обработчике не роняет цикл.
func (b *Bot) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("update handler panic", "update_id", upd.UpdateID, "panic", r)
		}
	}()
	switch {
	case upd.Message != nil:
		b.onMessage(ctx, upd.Message)
	case upd.CallbackQuery != nil:
		b.onCallback(ctx, upd.CallbackQuery)
	}
}

func (b *Bot) onMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}
	b.touch(ctx, msg.From)
	if msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil {
		b.touch(ctx, msg.ReplyToMessage.From)
	}
	if msg.IsCommand() {
		b.dispatch(ctx, msg)
	}
}

func (b *Bot) touch(ctx context.Context, u *tgbotapi.User) {
	if u.IsBot {
		return
	}
	err := b.users.Touch(ctx, users.Telegram{
		ID: u.ID, Username: u.UserName, FirstName: u.FirstName, LastName: u.LastName,
	})
	if err != nil {
		b.log.Warn("touch user failed", "user_id", u.ID, "err", err)
	}
}
