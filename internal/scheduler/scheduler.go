package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/sourcegraph/conc/pool"

	"github.com/Spok95/mod-bot/internal/domain/actions"
	"github.com/Spok95/mod-bot/internal/domain/errs"
)

// Store долговременное хранилище scheduled_actions.
type Store interface {
	Supersede(ctx context.Context, a actions.Action) ([]uuid.UUID, error)
	CancelPending(ctx context.Context, k actions.Key, at time.Time) (uuid.UUID, bool, error)
	MarkReversed(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID, attempts int, lastErr string, at time.Time) error
	Get(ctx context.Context, id uuid.UUID) (*actions.Action, error)
	GetPending(ctx context.Context, k actions.Key) (*actions.Action, error)
	ListPending(ctx context.Context) ([]actions.Action, error)
	ListByScope(ctx context.Context, scopeID int64, onlyPending bool, limit int) ([]actions.Action, error)
	PruneResolved(ctx context.Context, before time.Time) (int64, error)
}

// Reverser снимает ограничение; повторное снятие должно быть успехом.
type Reverser interface {
	Reverse(ctx context.Context, scopeID, subjectID int64, kind actions.Kind) error
}

type Options struct {
	Workers        int
	MaxAttempts    int
	BackoffBase    time.Duration
	BackoffMax     time.Duration
	ReverseTimeout time.Duration
	// RetryCooldown через сколько повторить снятие после исчерпания попыток; 0 = только после рестарта.
	RetryCooldown time.Duration
	// PruneAfter сколько хранить завершённые записи; 0 = не чистить.
	PruneAfter time.Duration
	PruneEvery time.Duration
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = time.Second
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = time.Minute
	}
	if o.ReverseTimeout <= 0 {
		o.ReverseTimeout = 10 * time.Second
	}
	if o.PruneEvery <= 0 {
		o.PruneEvery = time.Hour
	}
	return o
}

const maxIdle = time.Hour

type Option func(*Scheduler)

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// Scheduler хранит временные баны/муты и снимает каждый ровно один раз.
//
// Все изменения статуса по ключу (чат, пользователь, вид) идут под мьютексом
// ключа. Снятие, уже начатое воркером, не прерывается: Cancel ждёт его
// завершения и после успешного снятия возвращает false.
type Scheduler struct {
	store   Store
	client  Reverser
	log     *slog.Logger
	opts    Options
	metrics *Metrics
	now     func() time.Time

	locks *keyLocks

	mu    sync.Mutex
	queue *queue
	wake  chan struct{}

	workers  *pool.Pool
	inflight sync.WaitGroup

	stopOnce sync.Once
	cancel   context.CancelFunc
	done     chan struct{}
}

func New(store Store, client Reverser, log *slog.Logger, opts Options, extra ...Option) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	opts = opts.withDefaults()
	s := &Scheduler{
		store:  store,
		client: client,
		log:    log,
		opts:   opts,
		now:    time.Now,
		locks:  newKeyLocks(),
		queue:  newQueue(),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	for _, o := range extra {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}
	s.workers = pool.New().WithMaxGoroutines(opts.Workers)
	return s
}

// Register с нулевой длительностью ничего не планирует и возвращает
// постоянную отметку. Иначе прежняя pending-запись по ключу отменяется
// без снятия, новая сохраняется и ставится на будильник.
func (s *Scheduler) Register(ctx context.Context, key actions.Key, d time.Duration) (actions.Action, error) {
	if _, err := actions.ParseKind(string(key.Kind)); err != nil {
		return actions.Action{}, fmt.Errorf("%w: %w", errs.ErrInvalidTarget, err)
	}
	if d <= 0 {
		return s.permanent(key), nil
	}
	unlock := s.locks.lock(key)
	defer unlock()
	return s.registerLocked(ctx, key, d)
}

// Cancel отменяет pending-запись. Транспорт не вызывается: снять
// ограничение сразу должен вызывающий (см. Lift).
func (s *Scheduler) Cancel(ctx context.Context, key actions.Key) (bool, error) {
	unlock := s.locks.lock(key)
	defer unlock()
	return s.cancelLocked(ctx, key)
}

// Restrict выполняет apply и регистрирует срок под одним замком ключа,
// так что начатое снятие предыдущего ограничения завершится раньше apply.
// Постоянное ограничение отменяет ожидающее временное.
func (s *Scheduler) Restrict(ctx context.Context, key actions.Key, d time.Duration, apply func(context.Context) error) (actions.Action, error) {
	if _, err := actions.ParseKind(string(key.Kind)); err != nil {
		return actions.Action{}, fmt.Errorf("%w: %w", errs.ErrInvalidTarget, err)
	}
	unlock := s.locks.lock(key)
	defer unlock()

	if err := apply(ctx); err != nil {
		return actions.Action{}, err
	}
	if d <= 0 {
		if _, err := s.cancelLocked(ctx, key); err != nil {
			return actions.Action{}, err
		}
		return s.permanent(key), nil
	}
	return s.registerLocked(ctx, key, d)
}

// Lift снимает ограничение сразу и только после успеха отменяет запись.
// Если снять не удалось, pending-запись остаётся на будильнике.
// found сообщает, было ли что отменять.
func (s *Scheduler) Lift(ctx context.Context, key actions.Key, reverse func(context.Context) error) (found bool, err error) {
	unlock := s.locks.lock(key)
	defer unlock()

	if err := reverse(ctx); err != nil {
		s.log.Warn("lift reverse failed, scheduled reversal kept", "key", key.String(), "err", err)
		return false, err
	}
	return s.cancelLocked(ctx, key)
}

// Restricted авторитетная проверка: просроченная pending-запись сначала снимается.
func (s *Scheduler) Restricted(ctx context.Context, key actions.Key) (bool, error) {
	unlock := s.locks.lock(key)
	defer unlock()

	a, err := s.store.GetPending(ctx, key)
	if err != nil {
		return false, fmt.Errorf("%w: %w", errs.ErrStorage, err)
	}
	if a == nil {
		return false, nil
	}
	if a.ExpiresAt.After(s.now()) {
		return true, nil
	}

	s.mu.Lock()
	s.queue.remove(a.ID)
	s.mu.Unlock()

	if err := s.reverseLocked(ctx, a.ID, key); err != nil {
		return true, err
	}
	return false, nil
}

// Pending ожидающие снятия записи чата.
func (s *Scheduler) Pending(ctx context.Context, scopeID int64, limit int) ([]actions.Action, error) {
	list, err := s.store.ListByScope(ctx, scopeID, true, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrStorage, err)
	}
	return list, nil
}

// History все записи чата, новые первыми.
func (s *Scheduler) History(ctx context.Context, scopeID int64, limit int) ([]actions.Action, error) {
	list, err := s.store.ListByScope(ctx, scopeID, false, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrStorage, err)
	}
	return list, nil
}

// Recover загружает pending-записи и ставит будильники; просроченные
// срабатывают сразу.
func (s *Scheduler) Recover(ctx context.Context) (int, error) {
	list, err := s.store.ListPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: recover pending actions: %w", errs.ErrStorage, err)
	}

	now := s.now()
	overdue := 0
	s.mu.Lock()
	for _, a := range list {
		due := a.ExpiresAt
		if due.Before(now) {
			due = now
			overdue++
		}
		s.queue.upsert(a.ID, a.Key(), due)
	}
	s.metrics.Pending.Set(float64(s.queue.Len()))
	s.mu.Unlock()
	s.signal()

	s.log.Info("scheduler recovered", "pending", len(list), "overdue", overdue)
	return len(list), nil
}

// Start восстанавливает очередь и запускает фоновый цикл. Ошибка
// восстановления фатальна.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.Recover(ctx); err != nil {
		return err
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.run(loopCtx)
	return nil
}

// Stop останавливает цикл и ждёт воркеров.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
			<-s.done
		}
		s.workers.Wait()
	})
}

// ExecDue отправляет созревшие записи в пул воркеров и возвращает время
// следующего будильника (нулевое, если очередь пуста).
func (s *Scheduler) ExecDue(ctx context.Context) time.Time {
	s.mu.Lock()
	due := s.queue.popDue(s.now())
	next, _ := s.queue.next()
	s.metrics.Pending.Set(float64(s.queue.Len()))
	s.mu.Unlock()

	for _, it := range due {
		it := it
		s.inflight.Add(1)
		s.workers.Go(func() { s.fire(ctx, it) })
	}
	return next
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	var pruneC <-chan time.Time
	if s.opts.PruneAfter > 0 {
		t := time.NewTicker(s.opts.PruneEvery)
		defer t.Stop()
		pruneC = t.C
	}

	for {
		next := s.ExecDue(ctx)

		sleep := maxIdle
		if !next.IsZero() {
			sleep = next.Sub(s.now())
			if sleep < 0 {
				sleep = 0
			}
			if sleep > maxIdle {
				sleep = maxIdle
			}
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.wake:
			timer.Stop()
		case <-pruneC:
			timer.Stop()
			s.prune(ctx)
		case <-timer.C:
		}
	}
}

func (s *Scheduler) fire(ctx context.Context, it *item) {
	defer s.inflight.Done()

	unlock := s.locks.lock(it.key)
	defer unlock()

	_ = s.reverseLocked(ctx, it.id, it.key)
}

// reverseLocked вызывается под замком ключа.
func (s *Scheduler) reverseLocked(ctx context.Context, id uuid.UUID, key actions.Key) error {
	cur, err := s.store.Get(ctx, id)
	if err != nil {
		s.log.Error("load scheduled action failed", "action_id", id, "err", err)
		s.rearm(id, key, s.now().Add(s.opts.BackoffMax))
		return fmt.Errorf("%w: %w", errs.ErrStorage, err)
	}
	// отменено или перекрыто, пока ждали замок
	if cur == nil || cur.Status != actions.StatusPending {
		return nil
	}

	attempts := 0
	backoff := retry.NewExponential(s.opts.BackoffBase)
	backoff = retry.WithCappedDuration(s.opts.BackoffMax, backoff)
	backoff = retry.WithMaxRetries(uint64(s.opts.MaxAttempts-1), backoff)

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		rctx, cancel := context.WithTimeout(ctx, s.opts.ReverseTimeout)
		defer cancel()
		if err := s.client.Reverse(rctx, key.ScopeID, key.SubjectID, key.Kind); err != nil {
			s.metrics.ReversalFailures.Inc()
			s.log.Warn("reverse failed", "action_id", id, "key", key.String(), "attempt", attempts, "err", err)
			return retry.RetryableError(err)
		}
		return nil
	})

	if err != nil {
		if ctx.Err() != nil {
			// остановка процесса: запись остаётся pending и поднимется при старте
			return ctx.Err()
		}
		now := s.now().UTC()
		s.metrics.Exhausted.Inc()
		s.log.Error("reverse attempts exhausted, action left pending",
			"action_id", id, "key", key.String(), "attempts", attempts, "err", err)
		if ferr := s.store.MarkFailed(ctx, id, attempts, err.Error(), now); ferr != nil {
			s.log.Error("flag failed action", "action_id", id, "err", ferr)
		}
		if s.opts.RetryCooldown > 0 {
			s.rearm(id, key, now.Add(s.opts.RetryCooldown))
		}
		return fmt.Errorf("%w: %w", errs.ErrTransport, err)
	}

	now := s.now().UTC()
	ok, err := s.store.MarkReversed(ctx, id, now)
	if err != nil {
		// снятие идемпотентно, повтор безопасен
		s.log.Error("mark reversed failed", "action_id", id, "err", err)
		s.rearm(id, key, now.Add(s.opts.BackoffMax))
		return fmt.Errorf("%w: %w", errs.ErrStorage, err)
	}
	if ok {
		s.metrics.Reversed.Inc()
		s.log.Info("action reversed", "action_id", id, "key", key.String())
	}
	return nil
}

func (s *Scheduler) registerLocked(ctx context.Context, key actions.Key, d time.Duration) (actions.Action, error) {
	now := s.now().UTC()
	a := actions.Action{
		ID:        uuid.New(),
		ScopeID:   key.ScopeID,
		SubjectID: key.SubjectID,
		Kind:      key.Kind,
		IssuedAt:  now,
		ExpiresAt: now.Add(d),
		Status:    actions.StatusPending,
	}

	superseded, err := s.store.Supersede(ctx, a)
	if err != nil {
		return actions.Action{}, fmt.Errorf("%w: register %s: %w", errs.ErrStorage, key, err)
	}

	s.mu.Lock()
	for _, id := range superseded {
		s.queue.remove(id)
	}
	s.queue.upsert(a.ID, key, a.ExpiresAt)
	s.metrics.Pending.Set(float64(s.queue.Len()))
	s.mu.Unlock()
	s.signal()

	s.metrics.Registered.Inc()
	s.metrics.Superseded.Add(float64(len(superseded)))
	s.log.Info("action scheduled", "action_id", a.ID, "key", key.String(),
		"expires_at", a.ExpiresAt, "superseded", len(superseded))
	return a, nil
}

func (s *Scheduler) cancelLocked(ctx context.Context, key actions.Key) (bool, error) {
	id, found, err := s.store.CancelPending(ctx, key, s.now().UTC())
	if err != nil {
		return false, fmt.Errorf("%w: cancel %s: %w", errs.ErrStorage, key, err)
	}
	if !found {
		return false, nil
	}

	s.mu.Lock()
	s.queue.remove(id)
	s.metrics.Pending.Set(float64(s.queue.Len()))
	s.mu.Unlock()
	s.signal()

	s.metrics.Cancelled.Inc()
	s.log.Info("action cancelled", "action_id", id, "key", key.String())
	return true, nil
}

func (s *Scheduler) permanent(key actions.Key) actions.Action {
	return actions.Action{
		ScopeID:   key.ScopeID,
		SubjectID: key.SubjectID,
		Kind:      key.Kind,
		IssuedAt:  s.now().UTC(),
		Permanent: true,
	}
}

func (s *Scheduler) rearm(id uuid.UUID, key actions.Key, due time.Time) {
	s.mu.Lock()
	s.queue.upsert(id, key, due)
	s.metrics.Pending.Set(float64(s.queue.Len()))
	s.mu.Unlock()
	s.signal()
}

func (s *Scheduler) prune(ctx context.Context) {
	n, err := s.store.PruneResolved(ctx, s.now().Add(-s.opts.PruneAfter))
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.log.Error("prune resolved actions failed", "err", err)
		}
		return
	}
	if n > 0 {
		s.log.Info("pruned resolved actions", "deleted", n)
	}
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}
