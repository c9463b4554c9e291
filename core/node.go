package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"bondfarm/core/events"
	"bondfarm/core/state"
	"bondfarm/native/bank"
	"bondfarm/native/bond"
	"bondfarm/native/farm"
	"bondfarm/native/swap"
	"bondfarm/observability"
	"bondfarm/storage"
)

var (
	// ErrNilDatabase is returned when a node is built without storage.
	ErrNilDatabase = errors.New("core: database must not be nil")
	// ErrNonceUsed is returned when a signed envelope reuses a nonce.
	ErrNonceUsed = errors.New("core: nonce already used")
	// ErrEnvelopeExpired is returned when a signed envelope is past its expiry.
	ErrEnvelopeExpired = errors.New("core: envelope expired")
	// ErrUnknownOperation is returned for envelopes naming no known operation.
	ErrUnknownOperation = errors.New("core: unknown operation")
)

// Option customises a Node.
type Option func(*Node)

// WithClock injects the unix-seconds clock used for every operation.
func WithClock(now func() int64) Option {
	return func(n *Node) {
		if now != nil {
			n.nowFn = now
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Node) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// WithEmitter receives events after their transaction commits.
func WithEmitter(emitter events.Emitter) Option {
	return func(n *Node) {
		if emitter != nil {
			n.emitter = emitter
		}
	}
}

// WithFarmParams overrides the staking lock and fee parameters.
func WithFarmParams(params farm.Params) Option {
	return func(n *Node) { n.farmParams = params }
}

// WithTracer sets the tracer used to open one span per operation.
func WithTracer(tracer trace.Tracer) Option {
	return func(n *Node) {
		if tracer != nil {
			n.tracer = tracer
		}
	}
}

// WithMetrics enables prometheus operation metrics.
func WithMetrics(metrics *observability.OperationMetrics) Option {
	return func(n *Node) { n.metrics = metrics }
}

// Node hosts the farm, bond, bank and swap modules over one state database.
// Every mutating operation runs in its own state transaction under the write
// lock; views share the read lock.
type Node struct {
	db      storage.Database
	manager *state.Manager

	mu sync.RWMutex

	farmParams farm.Params
	nowFn      func() int64
	logger     *slog.Logger
	emitter    events.Emitter
	tracer     trace.Tracer
	metrics    *observability.OperationMetrics
}

// NewNode opens the state held in db, stamping the schema version of a
// fresh database.
func NewNode(db storage.Database, opts ...Option) (*Node, error) {
	if db == nil {
		return nil, ErrNilDatabase
	}
	n := &Node{
		db:         db,
		manager:    state.NewManager(db),
		farmParams: farm.DefaultParams(),
		nowFn:      func() int64 { return time.Now().Unix() },
		logger:     slog.Default(),
		emitter:    events.NoopEmitter{},
		tracer:     noop.NewTracerProvider().Tracer("bondfarm"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(n)
		}
	}
	if err := state.EnsureStateVersion(n.manager, false); err != nil {
		return nil, err
	}
	return n, nil
}

// Close releases the underlying database.
func (n *Node) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.db.Close()
}

// Now returns the node clock.
func (n *Node) Now() int64 { return n.nowFn() }

// modules is the set of engines bound to one transaction.
type modules struct {
	tx     *state.Tx
	now    int64
	bank   *bank.Ledger
	swap   *swap.Router
	farm   *farm.Engine
	bond   *bond.Engine
	events *events.Buffer
}

func (n *Node) bind(tx *state.Tx, now int64) *modules {
	buf := &events.Buffer{}
	clock := func() int64 { return now }

	ledger := bank.NewLedger(tx)
	ledger.SetEmitter(buf)

	router := swap.NewRouter(tx, ledger)
	router.SetEmitter(buf)

	farmEngine := farm.NewEngine(n.farmParams)
	farmEngine.SetState(tx)
	farmEngine.SetBank(ledger)
	farmEngine.SetPauses(tx)
	farmEngine.SetEmitter(buf)
	farmEngine.SetNowFunc(clock)

	bondEngine := bond.NewEngine()
	bondEngine.SetState(tx)
	bondEngine.SetBank(ledger)
	bondEngine.SetSwapper(router)
	bondEngine.SetPauses(tx)
	bondEngine.SetEmitter(buf)
	bondEngine.SetNowFunc(clock)

	return &modules{
		tx:     tx,
		now:    now,
		bank:   ledger,
		swap:   router,
		farm:   farmEngine,
		bond:   bondEngine,
		events: buf,
	}
}

// update runs fn in a fresh transaction under the write lock. The
// transaction commits only when fn succeeds; events are forwarded after the
// commit and returned to the caller.
func (n *Node) update(ctx context.Context, op string, fn func(*modules) error) ([]events.Event, error) {
	return n.updateAt(ctx, op, 0, fn)
}

// updateAt behaves like update with the clock pinned to at when positive.
func (n *Node) updateAt(ctx context.Context, op string, at int64, fn func(*modules) error) ([]events.Event, error) {
	_, span := n.tracer.Start(ctx, op, trace.WithAttributes(attribute.String("bondfarm.operation", op)))
	defer span.End()
	start := time.Now()

	n.mu.Lock()
	defer n.mu.Unlock()

	now := at
	if now <= 0 {
		now = n.nowFn()
	}
	tx := n.manager.Begin()
	m := n.bind(tx, now)
	err := fn(m)
	if err == nil {
		err = tx.Commit()
		if err != nil {
			err = fmt.Errorf("core: commit %s: %w", op, err)
		}
	} else {
		tx.Discard()
	}
	n.metrics.Observe(op, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		n.logger.Debug("operation rejected", slog.String("operation", op), slog.Any("error", err))
		return nil, err
	}
	emitted := m.events.Events()
	m.events.Flush(n.emitter)
	span.SetAttributes(attribute.Int("bondfarm.events", len(emitted)))
	n.logger.Debug("operation committed", slog.String("operation", op), slog.Int("events", len(emitted)))
	return emitted, nil
}

// view runs fn against committed state under the read lock. Writes made by
// fn are discarded.
func (n *Node) view(ctx context.Context, op string, fn func(*modules) error) error {
	_, span := n.tracer.Start(ctx, op, trace.WithAttributes(attribute.String("bondfarm.operation", op)))
	defer span.End()

	n.mu.RLock()
	defer n.mu.RUnlock()

	tx := n.manager.Begin()
	defer tx.Discard()
	if err := fn(n.bind(tx, n.nowFn())); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}
