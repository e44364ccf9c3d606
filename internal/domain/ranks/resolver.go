package ranks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Spok95/mod-bot/internal/domain/errs"
)

// Store хранит ручные назначения рангов.
type Store interface {
	Get(ctx context.Context, subjectID int64) (*Override, error)
	Upsert(ctx context.Context, o Override) error
	Delete(ctx context.Context, subjectID int64) (bool, error)
	List(ctx context.Context) ([]Override, error)
}

// Static статические списки из конфига.
type Static struct {
	OwnerID  int64
	Devs     []int64
	Sudos    []int64
	Supports []int64
}

// Resolver единая точка проверки прав для всех команд.
type Resolver struct {
	ownerID int64
	static  map[int64]Rank
	store   Store
	log     *slog.Logger
	now     func() time.Time
}

func NewResolver(cfg Static, store Store, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	static := make(map[int64]Rank, len(cfg.Devs)+len(cfg.Sudos)+len(cfg.Supports))
	// младшие списки первыми, чтобы при дублях побеждал старший ранг
	for _, id := range cfg.Supports {
		static[id] = RankSupport
	}
	for _, id := range cfg.Sudos {
		static[id] = RankSudo
	}
	for _, id := range cfg.Devs {
		static[id] = RankDev
	}
	delete(static, cfg.OwnerID)

	return &Resolver{
		ownerID: cfg.OwnerID,
		static:  static,
		store:   store,
		log:     log,
		now:     time.Now,
	}
}

func (r *Resolver) OwnerID() int64 { return r.ownerID }

// Resolve никогда не падает: при ошибке хранилища откатываемся к статике/User.
func (r *Resolver) Resolve(ctx context.Context, userID int64) Rank {
	if userID == r.ownerID {
		return RankOwner
	}
	if r.store != nil {
		o, err := r.store.Get(ctx, userID)
		if err != nil {
			r.log.Warn("rank override lookup failed", "user_id", userID, "err", err)
		} else if o != nil && o.Rank.Valid() && o.Rank != RankOwner {
			return o.Rank
		}
	}
	if rk, ok := r.static[userID]; ok {
		return rk
	}
	return RankUser
}

func (r *Resolver) Authorize(ctx context.Context, userID int64, minimum Rank) bool {
	return r.Resolve(ctx, userID) >= minimum
}

func (r *Resolver) SetOverride(ctx context.Context, actorID, subjectID int64, newRank Rank) error {
	if err := r.checkManage(ctx, actorID, subjectID); err != nil {
		return err
	}
	if !newRank.Valid() || newRank == RankOwner {
		return fmt.Errorf("%w: rank %s cannot be assigned", errs.ErrInvalidTarget, newRank)
	}
	if r.store == nil {
		return fmt.Errorf("%w: no override store", errs.ErrStorage)
	}

	o := Override{SubjectID: subjectID, Rank: newRank, SetBy: actorID, SetAt: r.now().UTC()}
	if err := r.store.Upsert(ctx, o); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrStorage, err)
	}
	r.log.Info("rank override set", "actor_id", actorID, "subject_id", subjectID, "rank", newRank.String())
	return nil
}

// ClearOverride: отсутствие записи не ошибка.
func (r *Resolver) ClearOverride(ctx context.Context, actorID, subjectID int64) error {
	if err := r.checkManage(ctx, actorID, subjectID); err != nil {
		return err
	}
	if r.store == nil {
		return nil
	}
	removed, err := r.store.Delete(ctx, subjectID)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrStorage, err)
	}
	if removed {
		r.log.Info("rank override cleared", "actor_id", actorID, "subject_id", subjectID)
	}
	return nil
}

func (r *Resolver) ListOverrides(ctx context.Context) ([]Override, error) {
	if r.store == nil {
		return nil, nil
	}
	list, err := r.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrStorage, err)
	}
	return list, nil
}

func (r *Resolver) checkManage(ctx context.Context, actorID, subjectID int64) error {
	if r.Resolve(ctx, actorID) < RankDev {
		return fmt.Errorf("%w: rank %s required", errs.ErrForbidden, RankDev)
	}
	if subjectID == r.ownerID {
		return fmt.Errorf("%w: owner rank is fixed", errs.ErrInvalidTarget)
	}
	return nil
}
