package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/mod-bot/internal/domain/actions"
	"github.com/Spok95/mod-bot/internal/domain/errs"
	"github.com/Spok95/mod-bot/internal/domain/locks"
	"github.com/Spok95/mod-bot/internal/domain/modlog"
	"github.com/Spok95/mod-bot/internal/domain/ranks"
	"github.com/Spok95/mod-bot/internal/domain/users"
	"github.com/Spok95/mod-bot/internal/scheduler"
	"github.com/Spok95/mod-bot/internal/storage/memory"
)

const (
	chatID  int64 = -100
	ownerID int64 = 1
	devID   int64 = 2
	sudoID  int64 = 3
	suppID  int64 = 4
	userA   int64 = 10
	userB   int64 = 11
	botID   int64 = 999
)

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	updates  chan tgbotapi.Update
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel { return f.updates }

func (f *fakeAPI) StopReceivingUpdates() {}

// texts тексты отправленных сообщений.
func (f *fakeAPI) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, m.Text)
		case tgbotapi.EditMessageTextConfig:
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeAPI) last() string {
	t := f.texts()
	if len(t) == 0 {
		return ""
	}
	return t[len(t)-1]
}

type applyCall struct {
	subject int64
	kind    actions.Kind
	until   *time.Time
}

type fakeMod struct {
	mu       sync.Mutex
	applied  []applyCall
	reversed []actions.Key
	kicked   []int64
	promoted []int64
	demoted  []int64
	deleted  []int
	pinned   []int
	unpinned []int
	locked   map[locks.Type]bool
	admins   map[int64]bool
	applyErr error
}

func (f *fakeMod) Apply(_ context.Context, scope, subject int64, kind actions.Kind, until *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.applyErr != nil {
		return f.applyErr
	}
	f.applied = append(f.applied, applyCall{subject, kind, until})
	return nil
}

func (f *fakeMod) Reverse(_ context.Context, scope, subject int64, kind actions.Kind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reversed = append(f.reversed, actions.Key{ScopeID: scope, SubjectID: subject, Kind: kind})
	return nil
}

func (f *fakeMod) Status(context.Context, int64, int64) actions.Restriction { return actions.Unrestricted }

func (f *fakeMod) IsChatAdmin(_ context.Context, _ int64, subject int64) (bool, error) {
	return f.admins[subject], nil
}

func (f *fakeMod) Kick(_ context.Context, _ int64, subject int64) error {
	f.kicked = append(f.kicked, subject)
	return nil
}

func (f *fakeMod) Promote(_ context.Context, _ int64, subject int64) error {
	f.promoted = append(f.promoted, subject)
	return nil
}

func (f *fakeMod) Demote(_ context.Context, _ int64, subject int64) error {
	f.demoted = append(f.demoted, subject)
	return nil
}

func (f *fakeMod) DeleteMessages(_ context.Context, _ int64, ids []int) (int, error) {
	f.deleted = append(f.deleted, ids...)
	return len(ids), nil
}

func (f *fakeMod) Pin(_ context.Context, _ int64, messageID int) error {
	f.pinned = append(f.pinned, messageID)
	return nil
}

func (f *fakeMod) Unpin(_ context.Context, _ int64, messageID int) error {
	f.unpinned = append(f.unpinned, messageID)
	return nil
}

func (f *fakeMod) Lock(_ context.Context, _ int64, t locks.Type) error {
	f.locked[t] = true
	return nil
}

func (f *fakeMod) Unlock(_ context.Context, _ int64, t locks.Type) error {
	delete(f.locked, t)
	return nil
}

func (f *fakeMod) ChatAdmins(context.Context, int64) ([]users.Telegram, error) {
	return []users.Telegram{{ID: sudoID, Username: "mod_one"}, {ID: devID}}, nil
}

type env struct {
	bot     *Bot
	api     *fakeAPI
	mod     *fakeMod
	actions *memory.Actions
	ranks   *memory.Ranks
	users   *memory.Users
	warns   *memory.Warnings
	journal *memory.Log
}

func newEnv(t *testing.T) *env {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := &env{
		api:     &fakeAPI{updates: make(chan tgbotapi.Update)},
		mod:     &fakeMod{admins: map[int64]bool{}, locked: map[locks.Type]bool{}},
		actions: memory.NewActions(),
		ranks:   memory.NewRanks(),
		users:   memory.NewUsers(),
		warns:   memory.NewWarnings(),
		journal: memory.NewLog(),
	}
	resolver := ranks.NewResolver(ranks.Static{
		OwnerID:  ownerID,
		Devs:     []int64{devID},
		Sudos:    []int64{sudoID},
		Supports: []int64{suppID},
	}, e.ranks, log)
	sched := scheduler.New(e.actions, e.mod, log, scheduler.Options{Workers: 1})
	t.Cleanup(sched.Stop)
	policy := WarnPolicy{Limit: 3, Kind: actions.KindMute, Duration: time.Hour}
	e.bot = New(e.api, log, resolver, sched, e.mod, e.users, e.warns, e.journal, policy,
		tgbotapi.User{ID: botID, UserName: "ModBot", IsBot: true})
	return e
}

var group = &tgbotapi.Chat{ID: chatID, Type: "supergroup", Title: "test"}

func cmdMsg(chat *tgbotapi.Chat, from int64, text string) *tgbotapi.Message {
	n := strings.IndexByte(text, ' ')
	if n < 0 {
		n = len(text)
	}
	return &tgbotapi.Message{
		MessageID: 500,
		From:      &tgbotapi.User{ID: from, FirstName: "actor"},
		Chat:      chat,
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: n}},
	}
}

func replyTo(msg *tgbotapi.Message, author *tgbotapi.User) *tgbotapi.Message {
	msg.ReplyToMessage = &tgbotapi.Message{MessageID: 480, From: author, Chat: msg.Chat}
	return msg
}

func (e *env) handle(msg *tgbotapi.Message) {
	e.bot.HandleUpdate(context.Background(), tgbotapi.Update{Message: msg})
}

func (e *env) pending(t *testing.T) []actions.Action {
	t.Helper()
	var out []actions.Action
	for _, a := range e.actions.All() {
		if a.Status == actions.StatusPending {
			out = append(out, a)
		}
	}
	return out
}

func TestTempBanByReply(t *testing.T) {
	e := newEnv(t)

	e.handle(replyTo(cmdMsg(group, sudoID, "/tban 1h"), &tgbotapi.User{ID: userA, UserName: "alice"}))

	require.Len(t, e.mod.applied, 1)
	assert.Equal(t, userA, e.mod.applied[0].subject)
	assert.Equal(t, actions.KindBan, e.mod.applied[0].kind)
	require.NotNil(t, e.mod.applied[0].until)

	p := e.pending(t)
	require.Len(t, p, 1)
	assert.Equal(t, userA, p[0].SubjectID)
	assert.Equal(t, chatID, p[0].ScopeID)
	assert.Equal(t, "@alice забанен на 1h.", e.api.last())
}

func TestTempMuteByUsername(t *testing.T) {
	e := newEnv(t)
	// пользователь написал в чат, бот его запомнил
	e.handle(&tgbotapi.Message{MessageID: 1, From: &tgbotapi.User{ID: userB, UserName: "Bob"}, Chat: group, Text: "hi"})

	e.handle(cmdMsg(group, sudoID, "/tmute @bob 30"))

	require.Len(t, e.mod.applied, 1)
	assert.Equal(t, userB, e.mod.applied[0].subject)
	assert.Equal(t, actions.KindMute, e.mod.applied[0].kind)
	p := e.pending(t)
	require.Len(t, p, 1)
	assert.Equal(t, 30*time.Minute, p[0].ExpiresAt.Sub(p[0].IssuedAt))
}

func TestTempBanRejectsBadDuration(t *testing.T) {
	e := newEnv(t)

	e.handle(cmdMsg(group, sudoID, "/tban 10 forever"))
	assert.Empty(t, e.mod.applied)
	assert.Contains(t, e.api.last(), "Неверный срок")

	e.handle(cmdMsg(group, sudoID, "/tban 10"))
	assert.Empty(t, e.mod.applied)
	assert.Contains(t, e.api.last(), "Укажите срок")
}

func TestPermanentBanIsNotScheduled(t *testing.T) {
	e := newEnv(t)

	e.handle(cmdMsg(group, sudoID, "/ban 10"))

	require.Len(t, e.mod.applied, 1)
	assert.Nil(t, e.mod.applied[0].until)
	assert.Empty(t, e.actions.All())
	assert.Contains(t, e.api.last(), "навсегда")
}

func TestSilentCommandStillAuthorizes(t *testing.T) {
	e := newEnv(t)

	e.handle(cmdMsg(group, userA, "/sban 11"))
	assert.Empty(t, e.mod.applied)
	assert.Empty(t, e.api.texts())
	assert.Empty(t, e.api.requests, "denied silent command must not be deleted either")

	e.handle(cmdMsg(group, sudoID, "/sban 11"))
	require.Len(t, e.mod.applied, 1)
	assert.Empty(t, e.api.texts())
	require.Len(t, e.api.requests, 1)
	del, ok := e.api.requests[0].(tgbotapi.DeleteMessageConfig)
	require.True(t, ok)
	assert.Equal(t, 500, del.MessageID)
}

func TestDeniedBelowRank(t *testing.T) {
	e := newEnv(t)

	e.handle(cmdMsg(group, suppID, "/mute 10"))
	assert.Empty(t, e.mod.applied)
	assert.Equal(t, "Недостаточно прав: нужен ранг sudo.", e.api.last())
}

func TestGuards(t *testing.T) {
	e := newEnv(t)
	e.mod.admins[userB] = true

	cases := map[string]string{
		"/ban 999": "Не могу применить это к себе.",
		"/ban 3":   "Нельзя применить это к самому себе.",
		"/ban 1":   "Владелец бота неприкосновенен.",
		"/ban 2":   "Ранг цели не ниже вашего.",
		"/kick 11": "Это администратор чата.",
	}
	for text, want := range cases {
		e.handle(cmdMsg(group, sudoID, text))
		assert.Equal(t, want, e.api.last(), text)
	}
	assert.Empty(t, e.mod.applied)
	assert.Empty(t, e.mod.kicked)
}

func TestSameRankCannotBeTargeted(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.bot.ranks.SetOverride(context.Background(), ownerID, userA, ranks.RankSudo))

	e.handle(cmdMsg(group, sudoID, "/mute 10"))
	assert.Empty(t, e.mod.applied)

	e.handle(cmdMsg(group, devID, "/mute 10"))
	assert.Len(t, e.mod.applied, 1)
}

func TestGroupOnly(t *testing.T) {
	e := newEnv(t)
	private := &tgbotapi.Chat{ID: sudoID, Type: "private"}

	e.handle(cmdMsg(private, sudoID, "/ban 10"))
	assert.Empty(t, e.mod.applied)
	assert.Equal(t, "Команда работает только в группах.", e.api.last())
}

func TestUnbanCancelsAndReverses(t *testing.T) {
	e := newEnv(t)
	e.handle(cmdMsg(group, sudoID, "/tban 10 2h"))
	require.Len(t, e.pending(t), 1)

	e.handle(cmdMsg(group, sudoID, "/unban 10"))

	assert.Empty(t, e.pending(t))
	require.Len(t, e.mod.reversed, 1)
	assert.Equal(t, actions.Key{ScopeID: chatID, SubjectID: userA, Kind: actions.KindBan}, e.mod.reversed[0])
	assert.Equal(t, "10 разбанен.", e.api.last())
}

func TestApplyFailureSchedulesNothing(t *testing.T) {
	e := newEnv(t)
	e.mod.applyErr = errors.Join(errs.ErrTransport, errors.New("not enough rights"))

	e.handle(cmdMsg(group, sudoID, "/tmute 10 1h"))

	assert.Empty(t, e.actions.All())
	assert.Equal(t, "Telegram отклонил запрос. Проверьте права бота в чате.", e.api.last())
}

func TestKickPromoteDemote(t *testing.T) {
	e := newEnv(t)

	e.handle(cmdMsg(group, sudoID, "/kick 10"))
	e.handle(cmdMsg(group, sudoID, "/promote 10"))
	e.mod.admins[userA] = true
	e.handle(cmdMsg(group, sudoID, "/demote 10"))

	assert.Equal(t, []int64{userA}, e.mod.kicked)
	assert.Equal(t, []int64{userA}, e.mod.promoted)
	assert.Equal(t, []int64{userA}, e.mod.demoted)
}

func TestPurge(t *testing.T) {
	e := newEnv(t)

	e.handle(cmdMsg(group, sudoID, "/purge 3"))
	assert.Equal(t, []int{500, 499, 498, 497}, e.mod.deleted)
	assert.Equal(t, "Удалено сообщений: 4.", e.api.last())

	e.mod.deleted = nil
	e.handle(replyTo(cmdMsg(group, sudoID, "/purge"), &tgbotapi.User{ID: userA}))
	assert.Len(t, e.mod.deleted, 21)

	e.mod.deleted = nil
	e.handle(cmdMsg(group, sudoID, "/purge 1000"))
	assert.Len(t, e.mod.deleted, purgeLimit+1)
}

func TestRankCommands(t *testing.T) {
	e := newEnv(t)

	e.handle(cmdMsg(group, userA, "/rank"))
	assert.Equal(t, "Ваш ранг: user.", e.api.last())

	e.handle(cmdMsg(group, devID, "/setrank 10 admin"))
	// автор /rank попал в справочник под именем actor
	assert.Equal(t, "actor теперь sudo.", e.api.last())
	assert.Equal(t, ranks.RankSudo, e.bot.ranks.Resolve(context.Background(), userA))

	e.handle(cmdMsg(group, sudoID, "/setrank 11 dev"))
	assert.Equal(t, "Недостаточно прав: нужен ранг dev.", e.api.last())

	e.handle(cmdMsg(group, devID, "/setrank 1 user"))
	assert.Equal(t, "Недопустимая цель.", e.api.last())

	e.handle(cmdMsg(group, devID, "/ranks"))
	assert.Contains(t, e.api.last(), "actor (10): sudo")

	e.handle(cmdMsg(group, devID, "/clearrank 10"))
	assert.Equal(t, ranks.RankUser, e.bot.ranks.Resolve(context.Background(), userA))
}

func TestHelpDependsOnRank(t *testing.T) {
	e := newEnv(t)

	e.handle(cmdMsg(group, userA, "/help"))
	userHelp := e.api.last()
	assert.Contains(t, userHelp, "/rank")
	assert.NotContains(t, userHelp, "/ban")

	e.handle(cmdMsg(group, devID, "/help"))
	assert.Contains(t, e.api.last(), "/ban")
	assert.Contains(t, e.api.last(), "/setrank")
}

func TestActionsListAndLiftButton(t *testing.T) {
	e := newEnv(t)
	e.handle(cmdMsg(group, sudoID, "/tmute 10 1h"))

	e.handle(cmdMsg(group, suppID, "/actions"))
	e.api.mu.Lock()
	m, ok := e.api.sent[len(e.api.sent)-1].(tgbotapi.MessageConfig)
	e.api.mu.Unlock()
	require.True(t, ok)
	assert.Contains(t, m.Text, "mute 10")
	kb, ok := m.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	data := *kb.InlineKeyboard[0][0].CallbackData
	assert.Equal(t, "lift:mute:10", data)

	cb := &tgbotapi.CallbackQuery{
		ID:      "cb1",
		From:    &tgbotapi.User{ID: suppID},
		Message: &tgbotapi.Message{MessageID: 600, Chat: group},
		Data:    data,
	}
	e.bot.HandleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: cb})
	assert.Len(t, e.pending(t), 1, "support cannot lift")

	cb.From = &tgbotapi.User{ID: sudoID}
	e.bot.HandleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: cb})
	assert.Empty(t, e.pending(t))
	assert.Len(t, e.mod.reversed, 1)
}

func TestStatus(t *testing.T) {
	e := newEnv(t)
	e.handle(cmdMsg(group, sudoID, "/tban 10 1d"))

	e.handle(cmdMsg(group, suppID, "/status 10"))
	text := e.api.last()
	assert.Contains(t, text, "Ранг: user")
	assert.Contains(t, text, "ban: активен до")
	assert.Contains(t, text, "mute: нет")
}

func TestExportSendsDocument(t *testing.T) {
	e := newEnv(t)
	e.handle(cmdMsg(group, sudoID, "/tban 10 1h"))

	e.handle(cmdMsg(group, devID, "/export"))

	e.api.mu.Lock()
	defer e.api.mu.Unlock()
	doc, ok := e.api.sent[len(e.api.sent)-1].(tgbotapi.DocumentConfig)
	require.True(t, ok)
	file, ok := doc.File.(tgbotapi.FileBytes)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(file.Name, "audit_-100_"))
	assert.NotEmpty(t, file.Bytes)
}

func TestUnknownCommandIgnored(t *testing.T) {
	e := newEnv(t)
	e.handle(cmdMsg(group, ownerID, "/whatever 10"))
	assert.Empty(t, e.api.texts())
}

func TestRunStopsOnContext(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- e.bot.Run(ctx, 1) }()

	e.api.updates <- tgbotapi.Update{Message: cmdMsg(group, userA, "/ping")}
	require.Eventually(t, func() bool { return e.api.last() == "pong" }, time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestCommandForAnotherBotIgnored(t *testing.T) {
	e := newEnv(t)

	e.handle(cmdMsg(group, sudoID, "/ban@OtherBot 10"))
	assert.Empty(t, e.mod.applied)
	assert.Empty(t, e.api.texts())

	e.handle(cmdMsg(group, sudoID, "/ban@modbot 10"))
	require.Len(t, e.mod.applied, 1)
	assert.Equal(t, userA, e.mod.applied[0].subject)
}

func TestWarnEscalatesAtLimit(t *testing.T) {
	e := newEnv(t)

	e.handle(cmdMsg(group, sudoID, "/warn 10 флуд"))
	assert.Equal(t, "10 получает предупреждение 1/3.\nПричина: флуд", e.api.last())
	e.handle(cmdMsg(group, sudoID, "/warn 10"))
	assert.Contains(t, e.api.last(), "2/3")
	assert.Contains(t, e.api.last(), "без причины")
	assert.Empty(t, e.mod.applied)

	e.handle(cmdMsg(group, sudoID, "/warn 10 спам"))
	require.Len(t, e.mod.applied, 1)
	assert.Equal(t, actions.KindMute, e.mod.applied[0].kind)
	require.NotNil(t, e.mod.applied[0].until)
	p := e.pending(t)
	require.Len(t, p, 1)
	assert.Equal(t, time.Hour, p[0].ExpiresAt.Sub(p[0].IssuedAt))
	assert.Contains(t, e.api.last(), "Лимит достигнут: 10 в муте на 1h.")

	left, err := e.warns.List(context.Background(), chatID, userA)
	require.NoError(t, err)
	assert.Empty(t, left)
	assert.Equal(t, []modlog.Action{modlog.ActionWarn, modlog.ActionWarn, modlog.ActionWarn, modlog.ActionMute},
		e.journal.Actions())
}

func TestWarnRespectsGuards(t *testing.T) {
	e := newEnv(t)

	e.handle(cmdMsg(group, userA, "/warn 11"))
	assert.Equal(t, "Недостаточно прав: нужен ранг sudo.", e.api.last())

	e.handle(cmdMsg(group, sudoID, "/warn 2"))
	assert.Equal(t, "Ранг цели не ниже вашего.", e.api.last())

	list, err := e.warns.List(context.Background(), chatID, devID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestWarnsAndClearWarns(t *testing.T) {
	e := newEnv(t)
	e.handle(cmdMsg(group, sudoID, "/warn 10 оффтоп"))

	e.handle(cmdMsg(group, suppID, "/warns 10"))
	assert.Contains(t, e.api.last(), "1/3")
	assert.Contains(t, e.api.last(), "оффтоп")

	e.handle(cmdMsg(group, suppID, "/warns"))
	assert.Equal(t, "У actor нет предупреждений.", e.api.last())

	e.handle(cmdMsg(group, suppID, "/clearwarns 10"))
	assert.Contains(t, e.api.last(), "Недостаточно прав")

	e.handle(cmdMsg(group, sudoID, "/clearwarns 10"))
	assert.Equal(t, "Предупреждения 10 сняты (1).", e.api.last())
	list, err := e.warns.List(context.Background(), chatID, userA)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestPinUnpin(t *testing.T) {
	e := newEnv(t)

	e.handle(cmdMsg(group, sudoID, "/pin"))
	assert.Empty(t, e.mod.pinned)
	assert.Contains(t, e.api.last(), "Ответьте")

	e.handle(replyTo(cmdMsg(group, sudoID, "/pin"), &tgbotapi.User{ID: userA}))
	assert.Equal(t, []int{480}, e.mod.pinned)

	e.handle(cmdMsg(group, sudoID, "/unpin"))
	assert.Equal(t, []int{0}, e.mod.unpinned)
	assert.Equal(t, []modlog.Action{modlog.ActionPin, modlog.ActionUnpin}, e.journal.Actions())
}

func TestLockUnlock(t *testing.T) {
	e := newEnv(t)

	e.handle(cmdMsg(group, sudoID, "/lock stickers"))
	assert.True(t, e.mod.locked[locks.Stickers])
	assert.Equal(t, "Заблокировано для участников: sticker.", e.api.last())

	e.handle(cmdMsg(group, sudoID, "/lock games"))
	assert.Contains(t, e.api.last(), "Неизвестный тип")

	e.handle(cmdMsg(group, sudoID, "/unlock sticker"))
	assert.False(t, e.mod.locked[locks.Stickers])

	e.handle(cmdMsg(group, suppID, "/lock all"))
	assert.False(t, e.mod.locked[locks.All])
}

func TestReportMentionsAdmins(t *testing.T) {
	e := newEnv(t)
	msg := replyTo(cmdMsg(group, userB, "/report"), &tgbotapi.User{ID: userA, FirstName: "Spammer"})
	msg.ReplyToMessage.Text = "купи слона"

	e.handle(msg)

	e.api.mu.Lock()
	m, ok := e.api.sent[len(e.api.sent)-1].(tgbotapi.MessageConfig)
	e.api.mu.Unlock()
	require.True(t, ok)
	assert.Equal(t, 480, m.ReplyToMessageID)
	assert.Contains(t, m.Text, "На: Spammer")
	assert.Contains(t, m.Text, "купи слона")
	assert.Contains(t, m.Text, "@mod_one")
	assert.Equal(t, []modlog.Action{modlog.ActionReport}, e.journal.Actions())

	e.handle(cmdMsg(group, userB, "/report"))
	assert.Contains(t, e.api.last(), "Ответьте")
}

func TestModerationLog(t *testing.T) {
	e := newEnv(t)
	e.handle(cmdMsg(group, sudoID, "/ban 10"))
	e.handle(cmdMsg(group, sudoID, "/kick 11"))
	e.handle(cmdMsg(group, sudoID, "/unban 10"))
	e.handle(cmdMsg(group, devID, "/setrank 11 support"))

	assert.Equal(t, []modlog.Action{modlog.ActionBan, modlog.ActionKick, modlog.ActionUnban, modlog.ActionSetRank},
		e.journal.Actions())

	e.handle(cmdMsg(group, suppID, "/logs"))
	text := e.api.last()
	assert.Contains(t, text, "Последние действия:")
	assert.Contains(t, text, "ban → 10 (навсегда)")
	assert.Contains(t, text, "setrank → 11 (support)")
	assert.Less(t, strings.Index(text, "setrank"), strings.Index(text, "kick"), "newest first")
}
