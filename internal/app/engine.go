package app

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"trivia-quiz-service/internal/domain"
)

// DefaultDuration is the countdown given to a freshly bootstrapped attempt.
const DefaultDuration = 10 * time.Minute

// Deps are the collaborators an engine orchestrates. Results may be nil.
type Deps struct {
	Source   QuestionSource
	Cache    QuestionCache
	Sessions SessionStore
	Results  ResultRepository
}

// Options tune an engine. Zero values fall back to the defaults.
type Options struct {
	Duration     time.Duration
	CacheTTL     time.Duration
	TickInterval time.Duration
	// Seed fixes the answer permutation sequence; 0 seeds from the clock.
	Seed   int64
	Clock  func() time.Time
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Duration <= 0 {
		o.Duration = DefaultDuration
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = DefaultCacheTTL
	}
	if o.TickInterval <= 0 {
		o.TickInterval = time.Second
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Engine drives one owner's quiz attempt: bootstrapping from the stored session,
// the cache or the provider, then recording answers and counting down until completion.
// Every mutation is serialized by mu and written back to the session store.
type Engine struct {
	owner     string
	deps      Deps
	opts      Options
	logger    *slog.Logger
	rnd       *rand.Rand
	countdown *Countdown

	mu              sync.Mutex
	generation      uint64
	phase           domain.Phase
	origin          domain.BatchSource
	state           domain.SessionState
	choices         []string
	result          *domain.QuizResult
	loading         bool
	failure         error
	retryAttempt    int
	retryDelay      time.Duration
	cancelBootstrap context.CancelFunc
	subscribers     map[chan domain.Snapshot]struct{}
}

func NewEngine(owner string, deps Deps, opts Options) *Engine {
	opts = opts.withDefaults()
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Engine{
		owner:       owner,
		deps:        deps,
		opts:        opts,
		logger:      opts.Logger.With("owner", owner),
		rnd:         rand.New(rand.NewSource(seed)),
		countdown:   NewCountdown(opts.TickInterval),
		phase:       domain.PhaseBootstrapping,
		subscribers: make(map[chan domain.Snapshot]struct{}),
	}
}

// Owner returns the identity the engine was created for.
func (e *Engine) Owner() string {
	return e.owner
}

// Start bootstraps the attempt. It resumes a stored session if there is one,
// otherwise uses a fresh cached batch, otherwise fetches from the provider.
// Calling Start again after a failed bootstrap retries it; in any other phase it is a no-op.
func (e *Engine) Start(ctx context.Context) (domain.Snapshot, error) {
	e.mu.Lock()
	if e.phase != domain.PhaseBootstrapping || e.loading {
		snap := e.snapshotLocked()
		e.mu.Unlock()
		return snap, nil
	}
	e.generation++
	gen := e.generation
	e.failure = nil
	e.loading = true
	bctx, cancel := context.WithCancel(ctx)
	e.cancelBootstrap = cancel
	e.broadcastLocked()
	e.mu.Unlock()
	defer cancel()

	state, origin, err := e.bootstrap(WithRetryNotice(bctx, e.retryNotice(gen)))

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.generation {
		// Restart, logout or suspend superseded this bootstrap.
		return e.snapshotLocked(), context.Canceled
	}
	e.loading = false
	e.cancelBootstrap = nil
	e.retryAttempt, e.retryDelay = 0, 0
	if err != nil {
		e.failure = err
		e.logger.Warn("bootstrap failed", "reason", domain.ReasonFor(err), "err", err)
		return e.broadcastLocked(), err
	}
	e.logger.Info("session started", "source", origin, "attempt", state.AttemptID,
		"cursor", state.Cursor, "remaining", state.RemainingSeconds)
	e.adoptLocked(ctx, state, origin)
	return e.snapshotLocked(), nil
}

func (e *Engine) bootstrap(ctx context.Context) (domain.SessionState, domain.BatchSource, error) {
	if state, ok := e.deps.Sessions.Load(ctx, e.owner); ok {
		return state, domain.SourceResumed, nil
	}

	batch, ok, err := e.deps.Cache.Read(ctx, e.owner)
	if err != nil {
		e.logger.Warn("question cache read failed", "err", err)
	}
	if ok && IsFresh(batch, e.opts.Clock(), e.opts.CacheTTL) {
		return e.newState(batch.Questions), domain.SourceCache, nil
	}

	questions, err := e.deps.Source.FetchBatch(ctx)
	if err != nil {
		return domain.SessionState{}, "", err
	}
	if len(questions) == 0 {
		return domain.SessionState{}, "", &domain.FetchError{Reason: domain.ReasonEmptyBatch, Attempts: 1, Err: domain.ErrEmptyBatch}
	}
	if err := e.deps.Cache.Write(ctx, e.owner, domain.CachedBatch{Questions: questions, FetchedAt: e.opts.Clock()}); err != nil {
		e.logger.Warn("question cache write failed", "err", err)
	}
	return e.newState(questions), domain.SourceProvider, nil
}

func (e *Engine) newState(questions []domain.Question) domain.SessionState {
	return domain.SessionState{
		AttemptID:        uuid.NewString(),
		Owner:            e.owner,
		Questions:        append([]domain.Question(nil), questions...),
		Cursor:           0,
		Answers:          []domain.RecordedAnswer{},
		RemainingSeconds: int(e.opts.Duration / time.Second),
	}
}

func (e *Engine) retryNotice(gen uint64) RetryNotice {
	return func(attempt int, delay time.Duration) {
		e.mu.Lock()
		defer e.mu.Unlock()
		if gen != e.generation || !e.loading {
			return
		}
		e.retryAttempt, e.retryDelay = attempt, delay
		e.broadcastLocked()
	}
}

func (e *Engine) adoptLocked(ctx context.Context, state domain.SessionState, origin domain.BatchSource) {
	e.state = state.Clone()
	e.origin = origin
	e.phase = domain.PhaseInProgress
	e.result = nil

	if e.state.Cursor >= len(e.state.Questions) {
		e.completeLocked(ctx, domain.CompletionFinished)
		return
	}
	if e.state.RemainingSeconds <= 0 {
		e.completeLocked(ctx, domain.CompletionTimeout)
		return
	}
	e.choices = Permute(e.state.Questions[e.state.Cursor], e.rnd)
	e.persistLocked(ctx)
	e.countdown.Start(e.generation, e.onTick)
	e.broadcastLocked()
}

// SubmitAnswer records value as the answer to the current question. It reports
// false and leaves state untouched when no attempt is in progress.
func (e *Engine) SubmitAnswer(ctx context.Context, value string) (domain.Snapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != domain.PhaseInProgress || e.state.Cursor >= len(e.state.Questions) {
		return e.snapshotLocked(), false
	}

	q := e.state.Questions[e.state.Cursor]
	e.state.Answers = append(e.state.Answers, domain.RecordedAnswer{
		QuestionText:   q.Text,
		SelectedAnswer: value,
		CorrectAnswer:  q.CorrectAnswer,
		IsCorrect:      value == q.CorrectAnswer,
	})
	e.state.Cursor++

	if e.state.Cursor == len(e.state.Questions) {
		e.completeLocked(ctx, domain.CompletionFinished)
		return e.snapshotLocked(), true
	}
	e.choices = Permute(e.state.Questions[e.state.Cursor], e.rnd)
	e.persistLocked(ctx)
	return e.broadcastLocked(), true
}

// Tick consumes one second of the countdown. The engine's own countdown calls it
// once per tick interval; it is exported for callers that drive time themselves.
func (e *Engine) Tick(ctx context.Context) (domain.Snapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != domain.PhaseInProgress {
		return e.snapshotLocked(), false
	}
	e.tickLocked(ctx)
	return e.snapshotLocked(), true
}

func (e *Engine) onTick(token uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if token != e.generation || e.phase != domain.PhaseInProgress {
		return
	}
	e.tickLocked(context.Background())
}

func (e *Engine) tickLocked(ctx context.Context) {
	if e.state.RemainingSeconds > 0 {
		e.state.RemainingSeconds--
	}
	if e.state.RemainingSeconds == 0 {
		e.completeLocked(ctx, domain.CompletionTimeout)
		return
	}
	e.persistLocked(ctx)
	e.broadcastLocked()
}

func (e *Engine) completeLocked(ctx context.Context, reason domain.CompletionReason) {
	e.countdown.Stop()

	result := Score(e.state.Answers, len(e.state.Questions))
	result.AttemptID = e.state.AttemptID
	result.Owner = e.owner
	result.Reason = reason
	result.CompletedAt = e.opts.Clock()

	e.result = &result
	e.phase = domain.PhaseCompleted
	e.choices = nil

	if err := e.deps.Sessions.Clear(ctx, e.owner); err != nil {
		e.logger.Warn("clear session failed", "err", err)
	}
	if e.deps.Results != nil {
		if err := e.deps.Results.Record(ctx, result); err != nil {
			e.logger.Warn("record result failed", "attempt", result.AttemptID, "err", err)
		}
	}
	e.logger.Info("session completed", "attempt", result.AttemptID, "reason", reason,
		"correct", result.CorrectCount, "answered", result.AnsweredCount, "grade", result.Grade)
	e.broadcastLocked()
}

func (e *Engine) persistLocked(ctx context.Context) {
	if err := e.deps.Sessions.Save(ctx, e.state.Clone()); err != nil {
		e.logger.Warn("save session failed", "cursor", e.state.Cursor, "err", err)
	}
}

// Restart discards the current attempt (in progress, completed or failed), clears
// the stored session and cached batch, and bootstraps a new attempt.
func (e *Engine) Restart(ctx context.Context) (domain.Snapshot, error) {
	e.mu.Lock()
	if err := e.resetLocked(ctx, true); err != nil {
		e.logger.Warn("restart cleanup failed", "err", err)
	}
	e.mu.Unlock()
	return e.Start(ctx)
}

// Logout stops the attempt and removes everything stored for the owner.
func (e *Engine) Logout(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	err := e.resetLocked(ctx, true)
	e.broadcastLocked()
	return err
}

// Suspend stops the countdown and any pending bootstrap but keeps the stored
// session, so the next Start resumes where the attempt left off.
// A completed attempt keeps its result; only Restart leaves that phase.
func (e *Engine) Suspend() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.suspendLocked()
}

// SuspendIfIdle suspends only when nobody is subscribed any more.
// It reports whether the engine was suspended.
func (e *Engine) SuspendIfIdle() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.subscribers) > 0 {
		return false
	}
	e.suspendLocked()
	return true
}

func (e *Engine) suspendLocked() {
	if e.phase == domain.PhaseCompleted {
		e.countdown.Stop()
		return
	}
	_ = e.resetLocked(context.Background(), false)
}

// Subscribers returns the number of live subscriptions.
func (e *Engine) Subscribers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subscribers)
}

func (e *Engine) resetLocked(ctx context.Context, clearStored bool) error {
	e.generation++
	if e.cancelBootstrap != nil {
		e.cancelBootstrap()
		e.cancelBootstrap = nil
	}
	e.countdown.Stop()

	e.phase = domain.PhaseBootstrapping
	e.origin = ""
	e.state = domain.SessionState{}
	e.choices = nil
	e.result = nil
	e.loading = false
	e.failure = nil
	e.retryAttempt, e.retryDelay = 0, 0

	if !clearStored {
		return nil
	}
	return errors.Join(
		e.deps.Sessions.Clear(ctx, e.owner),
		e.deps.Cache.Clear(ctx, e.owner),
	)
}

// Snapshot returns the current view of the engine.
func (e *Engine) Snapshot() domain.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// State returns a copy of the session state (zero while bootstrapping).
func (e *Engine) State() domain.SessionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// Subscribe returns a channel that receives a snapshot after every change.
// The caller must invoke the returned cancel function to avoid leaks.
func (e *Engine) Subscribe() (<-chan domain.Snapshot, func()) {
	ch := make(chan domain.Snapshot, 8)

	e.mu.Lock()
	e.subscribers[ch] = struct{}{}
	initial := e.snapshotLocked()
	e.mu.Unlock()

	ch <- initial

	cancel := func() {
		e.mu.Lock()
		if _, ok := e.subscribers[ch]; ok {
			delete(e.subscribers, ch)
			close(ch)
		}
		e.mu.Unlock()
	}
	return ch, cancel
}

func (e *Engine) broadcastLocked() domain.Snapshot {
	snap := e.snapshotLocked()
	for ch := range e.subscribers {
		select {
		case ch <- snap:
		default:
			// Slow subscriber: drop its oldest snapshot, the newest one supersedes it.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
	return snap
}

func (e *Engine) snapshotLocked() domain.Snapshot {
	snap := domain.Snapshot{
		Owner:             e.owner,
		Phase:             e.phase,
		Source:            e.origin,
		RemainingSeconds:  e.state.RemainingSeconds,
		Answered:          len(e.state.Answers),
		Total:             len(e.state.Questions),
		Loading:           e.loading,
		RetryAttempt:      e.retryAttempt,
		RetryDelaySeconds: int(e.retryDelay / time.Second),
	}
	if e.phase == domain.PhaseInProgress && e.state.Cursor < len(e.state.Questions) {
		q := e.state.Questions[e.state.Cursor]
		snap.Question = &domain.QuestionView{
			Number:     e.state.Cursor + 1,
			Text:       q.Text,
			Category:   q.Category,
			Difficulty: q.Difficulty,
			Choices:    append([]string(nil), e.choices...),
		}
	}
	if e.result != nil {
		result := *e.result
		snap.Result = &result
	}
	if e.failure != nil {
		snap.Error = e.failure.Error()
		snap.Reason = domain.ReasonFor(e.failure)
	}
	return snap
}
