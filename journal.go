package conductor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coregx/conductor/frame"
	"github.com/coregx/conductor/model"
	"github.com/coregx/conductor/retry"
)

// DefaultJournalBufferSize is the number of records the journal holds between flushes.
const DefaultJournalBufferSize = 4096

// finalFlushTimeout bounds the flush performed when Run stops.
const finalFlushTimeout = 5 * time.Second

// journalEntry holds exactly one of route or session.
type journalEntry struct {
	route   *model.RouteRecord
	session *model.SubscriberSession
}

// Journal is an asynchronous, metadata-only audit trail of the broker.
//
// The routing engine and the registration goroutines enqueue records without
// blocking; a full buffer drops the record and logs a warning. Run flushes the
// buffer to the repositories at a fixed interval, retrying failed saves
// according to the retry strategy. Payloads are never stored and nothing is
// ever replayed to subscribers.
//
// Records are flushed in the order they were enqueued, so a session is inserted
// before it is marked dead.
//
// Thread safety: Safe for concurrent use.
type Journal struct {
	routes        RouteRecordRepository
	sessions      SessionRepository
	logger        Logger
	retryStrategy retry.Strategy
	bufferSize    int

	entries chan journalEntry
	dropped atomic.Int64
	flushMu sync.Mutex
}

// JournalOption is a function that configures a Journal.
type JournalOption func(*Journal) error

// WithJournalRepositories sets the repositories records are written to.
func WithJournalRepositories(routes RouteRecordRepository, sessions SessionRepository) JournalOption {
	return func(j *Journal) error {
		if routes == nil {
			return fmt.Errorf("route record repository cannot be nil")
		}
		if sessions == nil {
			return fmt.Errorf("session repository cannot be nil")
		}
		j.routes = routes
		j.sessions = sessions
		return nil
	}
}

// WithJournalLogger sets the logger instance for the journal.
func WithJournalLogger(logger Logger) JournalOption {
	return func(j *Journal) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		j.logger = logger
		return nil
	}
}

// WithJournalRetryStrategy sets a custom retry strategy for failed saves.
// The default is retry.DefaultStrategy().
func WithJournalRetryStrategy(strategy retry.Strategy) JournalOption {
	return func(j *Journal) error {
		if strategy.MaxAttempts <= 0 {
			return fmt.Errorf("max attempts must be > 0, got %d", strategy.MaxAttempts)
		}
		j.retryStrategy = strategy
		return nil
	}
}

// WithJournalBufferSize sets how many records may wait for the next flush.
// Must be > 0.
func WithJournalBufferSize(size int) JournalOption {
	return func(j *Journal) error {
		if size <= 0 {
			return fmt.Errorf("journal buffer size must be > 0, got %d", size)
		}
		j.bufferSize = size
		return nil
	}
}

// NewJournal creates a new journal with the provided options.
//
// Required options:
//   - WithJournalRepositories: route record and session repositories
//
// Optional options:
//   - WithJournalLogger: logger instance (default: NoopLogger)
//   - WithJournalRetryStrategy: retry strategy (default: retry.DefaultStrategy())
//   - WithJournalBufferSize: pending record capacity (default: 4096)
//
// Example:
//
//	repos := relica.NewRepositories(db, "sqlite3")
//	journal, err := conductor.NewJournal(
//	    conductor.WithJournalRepositories(repos.Route, repos.Session),
//	    conductor.WithJournalLogger(logger),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	go journal.Run(ctx, 5*time.Second)
func NewJournal(opts ...JournalOption) (*Journal, error) {
	j := &Journal{
		logger:        &NoopLogger{},
		retryStrategy: retry.DefaultStrategy(),
		bufferSize:    DefaultJournalBufferSize,
	}

	for _, opt := range opts {
		if err := opt(j); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply journal option", err)
		}
	}

	if j.routes == nil || j.sessions == nil {
		return nil, NewError(ErrCodeConfiguration, "journal repositories are required (use WithJournalRepositories)")
	}

	j.entries = make(chan journalEntry, j.bufferSize)
	return j, nil
}

// RecordRoute enqueues a summary of one fan-out. raw is the complete frame; only
// its sizes are recorded.
func (j *Journal) RecordRoute(report DeliveryReport, raw []byte) {
	payloadSize := 0
	if h, err := frame.DecodeHeader(raw); err == nil {
		payloadSize = int(h.PayloadLen)
	}

	record := model.NewRouteRecord(report.Topic, payloadSize, len(raw),
		report.Targeted, report.Delivered, len(report.Pruned))
	j.enqueue(journalEntry{route: &record})
}

// RecordSession enqueues a session. An active session is inserted; a dead one
// marks the stored session dead.
func (j *Journal) RecordSession(session model.SubscriberSession) {
	j.enqueue(journalEntry{session: &session})
}

func (j *Journal) enqueue(e journalEntry) {
	select {
	case j.entries <- e:
	default:
		n := j.dropped.Add(1)
		j.logger.Warnf("Journal buffer full, record dropped (total dropped=%d)", n)
	}
}

// Pending returns the number of records waiting for the next flush.
func (j *Journal) Pending() int {
	return len(j.entries)
}

// Dropped returns the number of records dropped because the buffer was full.
func (j *Journal) Dropped() int64 {
	return j.dropped.Load()
}

// Flush writes every record queued at the time of the call.
//
// Returns the number of saved records. A record whose save still fails after
// the retry strategy is exhausted is logged and skipped; the first such failure
// is returned as a DATABASE_ERROR once the batch is done.
func (j *Journal) Flush(ctx context.Context) (int, error) {
	j.flushMu.Lock()
	defer j.flushMu.Unlock()

	pending := len(j.entries)
	saved := 0
	failed := 0
	var firstErr error

	for i := 0; i < pending; i++ {
		e, ok := j.next()
		if !ok {
			break
		}

		err := j.retryStrategy.Do(ctx, func(attempt int) error {
			if attempt > 1 {
				j.logger.Debugf("Retrying journal save (attempt=%d)", attempt)
			}
			return j.save(ctx, e)
		})
		if err != nil {
			j.logger.Errorf("Failed to save journal record: %v", err)
			failed++
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		saved++
	}

	if failed > 0 {
		return saved, NewErrorWithCause(ErrCodeDatabase,
			fmt.Sprintf("failed to save %d journal records", failed), firstErr)
	}
	return saved, nil
}

func (j *Journal) next() (journalEntry, bool) {
	select {
	case e := <-j.entries:
		return e, true
	default:
		return journalEntry{}, false
	}
}

func (j *Journal) save(ctx context.Context, e journalEntry) error {
	switch {
	case e.route != nil:
		_, err := j.routes.Save(ctx, *e.route)
		return err
	case e.session != nil && e.session.State == model.SessionStateDead:
		return j.sessions.MarkDead(ctx, e.session.SessionID, e.session.DeadAt.Time)
	case e.session != nil:
		_, err := j.sessions.Save(ctx, *e.session)
		return err
	default:
		return nil
	}
}

// Run starts the journal flush loop. It runs until the context is canceled,
// flushing at the specified interval, and performs a final flush before
// returning.
//
// This method blocks and should typically be run in a goroutine.
//
// Example:
//
//	go journal.Run(ctx, 5*time.Second)
func (j *Journal) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("Journal started")

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), finalFlushTimeout)
			j.flush(flushCtx)
			cancel()
			j.logger.Info("Journal stopped")
			return
		case <-ticker.C:
			j.flush(ctx)
		}
	}
}

func (j *Journal) flush(ctx context.Context) {
	saved, err := j.Flush(ctx)
	if err != nil {
		j.logger.Errorf("Journal flush incomplete: %v", err)
	}
	if saved > 0 {
		j.logger.Debugf("Journal flushed %d records", saved)
	}
}
