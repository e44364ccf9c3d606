package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/mod-bot/internal/domain/actions"
	"github.com/Spok95/mod-bot/internal/domain/errs"
	"github.com/Spok95/mod-bot/internal/domain/locks"
	"github.com/Spok95/mod-bot/internal/domain/users"
)

// API подмножество *tgbotapi.BotAPI, нужное модерации.
type API interface {
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
	GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error)
	GetChatAdministrators(config tgbotapi.ChatAdministratorsConfig) ([]tgbotapi.ChatMember, error)
}

// Moderator ChatModerationClient поверх Bot API.
type Moderator struct {
	api API
	log *slog.Logger
}

func NewModerator(api API, log *slog.Logger) *Moderator {
	if log == nil {
		log = slog.Default()
	}
	return &Moderator{api: api, log: log}
}

// ответы, при которых снимать уже нечего
var gone = []string{
	"user not found",
	"not a member",
	"participant_id_invalid",
	"user_not_participant",
}

// Apply бан или мут; until передаётся Telegram как нативный срок.
func (m *Moderator) Apply(ctx context.Context, scopeID, subjectID int64, kind actions.Kind, until *time.Time) error {
	var untilDate int64
	if until != nil {
		untilDate = until.Unix()
	}
	member := tgbotapi.ChatMemberConfig{ChatID: scopeID, UserID: subjectID}

	var c tgbotapi.Chattable
	switch kind {
	case actions.KindBan:
		c = tgbotapi.BanChatMemberConfig{ChatMemberConfig: member, UntilDate: untilDate}
	case actions.KindMute:
		c = tgbotapi.RestrictChatMemberConfig{
			ChatMemberConfig: member,
			UntilDate:        untilDate,
			Permissions:      &tgbotapi.ChatPermissions{},
		}
	default:
		return fmt.Errorf("%w: unsupported kind %q", errs.ErrInvalidTarget, kind)
	}

	if err := m.call(ctx, c); err != nil {
		return fmt.Errorf("%w: apply %s to %d in %d: %w", errs.ErrTransport, kind, subjectID, scopeID, err)
	}
	return nil
}

// Reverse идемпотентен: участник, которого уже нет или который не ограничен, это успех.
func (m *Moderator) Reverse(ctx context.Context, scopeID, subjectID int64, kind actions.Kind) error {
	member := tgbotapi.ChatMemberConfig{ChatID: scopeID, UserID: subjectID}

	var c tgbotapi.Chattable
	switch kind {
	case actions.KindBan:
		c = tgbotapi.UnbanChatMemberConfig{ChatMemberConfig: member, OnlyIfBanned: true}
	case actions.KindMute:
		c = tgbotapi.RestrictChatMemberConfig{ChatMemberConfig: member, Permissions: fullPermissions()}
	default:
		return fmt.Errorf("%w: unsupported kind %q", errs.ErrInvalidTarget, kind)
	}

	err := m.call(ctx, c)
	if err != nil && isGone(err) {
		m.log.Debug("reverse: subject already gone", "chat_id", scopeID, "user_id", subjectID, "kind", kind, "err", err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: reverse %s for %d in %d: %w", errs.ErrTransport, kind, subjectID, scopeID, err)
	}
	return nil
}

// Status только для диагностики; ошибка транспорта даёт Unknown.
func (m *Moderator) Status(ctx context.Context, scopeID, subjectID int64) actions.Restriction {
	cm, err := m.member(ctx, scopeID, subjectID)
	if err != nil {
		m.log.Warn("get chat member failed", "chat_id", scopeID, "user_id", subjectID, "err", err)
		return actions.Unknown
	}
	switch {
	case cm.WasKicked():
		return actions.Restricted
	case cm.Status == "restricted" && !cm.CanSendMessages:
		return actions.Restricted
	default:
		return actions.Unrestricted
	}
}

// IsChatAdmin создатель или администратор чата.
func (m *Moderator) IsChatAdmin(ctx context.Context, scopeID, subjectID int64) (bool, error) {
	cm, err := m.member(ctx, scopeID, subjectID)
	if err != nil {
		if isGone(err) {
			return false, nil
		}
		return false, fmt.Errorf("%w: get chat member: %w", errs.ErrTransport, err)
	}
	return cm.IsCreator() || cm.IsAdministrator(), nil
}

// Kick выгоняет без бана: бан и сразу разбан.
func (m *Moderator) Kick(ctx context.Context, scopeID, subjectID int64) error {
	member := tgbotapi.ChatMemberConfig{ChatID: scopeID, UserID: subjectID}
	if err := m.call(ctx, tgbotapi.BanChatMemberConfig{ChatMemberConfig: member}); err != nil {
		return fmt.Errorf("%w: kick %d from %d: %w", errs.ErrTransport, subjectID, scopeID, err)
	}
	if err := m.call(ctx, tgbotapi.UnbanChatMemberConfig{ChatMemberConfig: member, OnlyIfBanned: true}); err != nil {
		return fmt.Errorf("%w: unban after kick %d from %d: %w", errs.ErrTransport, subjectID, scopeID, err)
	}
	return nil
}

func (m *Moderator) Promote(ctx context.Context, scopeID, subjectID int64) error {
	c := tgbotapi.PromoteChatMemberConfig{
		ChatMemberConfig:   tgbotapi.ChatMemberConfig{ChatID: scopeID, UserID: subjectID},
		CanManageChat:      true,
		CanDeleteMessages:  true,
		CanRestrictMembers: true,
		CanInviteUsers:     true,
		CanPinMessages:     true,
	}
	if err := m.call(ctx, c); err != nil {
		return fmt.Errorf("%w: promote %d in %d: %w", errs.ErrTransport, subjectID, scopeID, err)
	}
	return nil
}

// Demote все права false снимают администратора.
func (m *Moderator) Demote(ctx context.Context, scopeID, subjectID int64) error {
	c := tgbotapi.PromoteChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: scopeID, UserID: subjectID},
	}
	if err := m.call(ctx, c); err != nil {
		return fmt.Errorf("%w: demote %d in %d: %w", errs.ErrTransport, subjectID, scopeID, err)
	}
	return nil
}

// DeleteMessages удаляет сообщения по одному; возвращает число удалённых.
// Уже удалённые и слишком старые пропускаются.
func (m *Moderator) DeleteMessages(ctx context.Context, scopeID int64, ids []int) (int, error) {
	deleted := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		if err := m.call(ctx, tgbotapi.NewDeleteMessage(scopeID, id)); err != nil {
			var apiErr *tgbotapi.Error
			if errors.As(err, &apiErr) && apiErr.Code == 400 {
				m.log.Debug("skip message", "chat_id", scopeID, "message_id", id, "err", err)
				continue
			}
			return deleted, fmt.Errorf("%w: delete message %d in %d: %w", errs.ErrTransport, id, scopeID, err)
		}
		deleted++
	}
	return deleted, nil
}

// Pin без уведомления участников.
func (m *Moderator) Pin(ctx context.Context, scopeID int64, messageID int) error {
	c := tgbotapi.PinChatMessageConfig{ChatID: scopeID, MessageID: messageID, DisableNotification: true}
	if err := m.call(ctx, c); err != nil {
		return fmt.Errorf("%w: pin %d in %d: %w", errs.ErrTransport, messageID, scopeID, err)
	}
	return nil
}

// Unpin messageID 0 открепляет последнее закреплённое.
func (m *Moderator) Unpin(ctx context.Context, scopeID int64, messageID int) error {
	c := tgbotapi.UnpinChatMessageConfig{ChatID: scopeID, MessageID: messageID}
	if err := m.call(ctx, c); err != nil {
		return fmt.Errorf("%w: unpin in %d: %w", errs.ErrTransport, scopeID, err)
	}
	return nil
}

// Lock снимает право из текущих прав чата, остальные не трогает.
func (m *Moderator) Lock(ctx context.Context, scopeID int64, t locks.Type) error {
	return m.setLock(ctx, scopeID, t, false)
}

func (m *Moderator) Unlock(ctx context.Context, scopeID int64, t locks.Type) error {
	return m.setLock(ctx, scopeID, t, true)
}

func (m *Moderator) setLock(ctx context.Context, scopeID int64, t locks.Type, allow bool) error {
	perms, err := m.permissions(ctx, scopeID)
	if err != nil {
		return fmt.Errorf("%w: get chat %d: %w", errs.ErrTransport, scopeID, err)
	}
	switch t {
	case locks.Messages:
		perms.CanSendMessages = allow
	case locks.Media:
		perms.CanSendMediaMessages = allow
	case locks.Stickers:
		perms.CanSendOtherMessages = allow
	case locks.Polls:
		perms.CanSendPolls = allow
	case locks.Previews:
		perms.CanAddWebPagePreviews = allow
	case locks.All:
		if allow {
			full := fullPermissions()
			full.CanChangeInfo, full.CanPinMessages = perms.CanChangeInfo, perms.CanPinMessages
			perms = full
		} else {
			perms.CanSendMessages = false
			perms.CanSendMediaMessages = false
			perms.CanSendPolls = false
			perms.CanSendOtherMessages = false
			perms.CanAddWebPagePreviews = false
		}
	default:
		return fmt.Errorf("%w: unsupported lock %q", errs.ErrInvalidTarget, t)
	}
	// отправка медиа без текста невозможна
	if allow && t != locks.Messages && t != locks.All {
		perms.CanSendMessages = true
	}

	c := tgbotapi.SetChatPermissionsConfig{ChatConfig: tgbotapi.ChatConfig{ChatID: scopeID}, Permissions: perms}
	if err := m.call(ctx, c); err != nil {
		return fmt.Errorf("%w: set permissions in %d: %w", errs.ErrTransport, scopeID, err)
	}
	return nil
}

// ChatAdmins администраторы чата без ботов.
func (m *Moderator) ChatAdmins(ctx context.Context, scopeID int64) ([]users.Telegram, error) {
	type result struct {
		list []tgbotapi.ChatMember
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		list, err := m.api.GetChatAdministrators(tgbotapi.ChatAdministratorsConfig{
			ChatConfig: tgbotapi.ChatConfig{ChatID: scopeID},
		})
		ch <- result{list, err}
	}()

	var r result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r = <-ch:
	}
	if r.err != nil {
		return nil, fmt.Errorf("%w: get admins of %d: %w", errs.ErrTransport, scopeID, r.err)
	}

	out := make([]users.Telegram, 0, len(r.list))
	for _, cm := range r.list {
		if cm.User == nil || cm.User.IsBot {
			continue
		}
		out = append(out, users.Telegram{
			ID: cm.User.ID, Username: cm.User.UserName, FirstName: cm.User.FirstName, LastName: cm.User.LastName,
		})
	}
	return out, nil
}

// permissions текущие права чата; если Telegram их не вернул, считаем всё разрешённым.
func (m *Moderator) permissions(ctx context.Context, scopeID int64) (*tgbotapi.ChatPermissions, error) {
	type result struct {
		chat tgbotapi.Chat
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		chat, err := m.api.GetChat(tgbotapi.ChatInfoConfig{ChatConfig: tgbotapi.ChatConfig{ChatID: scopeID}})
		ch <- result{chat, err}
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return nil, r.err
		}
		if r.chat.Permissions == nil {
			return fullPermissions(), nil
		}
		p := *r.chat.Permissions
		return &p, nil
	}
}

func (m *Moderator) member(ctx context.Context, scopeID, subjectID int64) (tgbotapi.ChatMember, error) {
	type result struct {
		cm  tgbotapi.ChatMember
		err error
	}
	ch := make(chan result, 1)
	go func() {
		cm, err := m.api.GetChatMember(tgbotapi.GetChatMemberConfig{
			ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: scopeID, UserID: subjectID},
		})
		ch <- result{cm, err}
	}()
	select {
	case <-ctx.Done():
		return tgbotapi.ChatMember{}, ctx.Err()
	case r := <-ch:
		return r.cm, r.err
	}
}

// call Bot API не принимает context, поэтому дедлайн соблюдаем сами.
func (m *Moderator) call(ctx context.Context, c tgbotapi.Chattable) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ch := make(chan error, 1)
	go func() {
		_, err := m.api.Request(c)
		ch <- err
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-ch:
		return err
	}
}

func fullPermissions() *tgbotapi.ChatPermissions {
	return &tgbotapi.ChatPermissions{
		CanSendMessages:       true,
		CanSendMediaMessages:  true,
		CanSendPolls:          true,
		CanSendOtherMessages:  true,
		CanAddWebPagePreviews: true,
		CanInviteUsers:        true,
	}
}

func isGone(err error) bool {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	msg := strings.ToLower(apiErr.Message)
	for _, s := range gone {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
