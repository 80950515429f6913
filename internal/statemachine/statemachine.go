// Package statemachine replays the durable command log into a Store and
// applies new commands on behalf of the primary. It is the only code
// path permitted to mutate a Store (spec §4.3, §5): every other
// consumer reads through View, which takes the state machine's
// reader-writer lock for the duration of the callback so reads observe
// a consistent snapshot.
package statemachine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streamforge/schema-registry/internal/compatibility"
	"github.com/streamforge/schema-registry/internal/schema/avro"
	"github.com/streamforge/schema-registry/internal/store"
	"github.com/streamforge/schema-registry/internal/walog"
)

// StateMachine owns a durable log and the Store it rebuilds from that
// log. All writes flow through Append*; the only mutator of the
// underlying Store is this type.
type StateMachine struct {
	mu      sync.RWMutex
	log     *walog.Log
	store   *store.Store
	logger  *slog.Logger
	onFatal func(error)
}

// New returns a StateMachine over log, with an empty Store. Call
// Bootstrap before serving any request. onFatal is invoked (in addition
// to a log line) when replay encounters an invariant violation; it may
// be nil, in which case only the log line is emitted. A typical onFatal
// terminates the process, per spec §7's "fatal errors terminate the
// process" policy — that termination itself lives in cmd/schema-registry-node,
// not here.
func New(log *walog.Log, logger *slog.Logger, onFatal func(error)) *StateMachine {
	if logger == nil {
		logger = slog.Default()
	}
	return &StateMachine{
		log:     log,
		store:   store.New(),
		logger:  logger,
		onFatal: onFatal,
	}
}

// Bootstrap replays the log from offset 0 to tail, rebuilding the Store.
// It must be called once, before the state machine accepts any
// Append/View calls.
func (sm *StateMachine) Bootstrap() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	var replayed int64
	err := sm.log.Replay(func(seq int64, payload []byte) error {
		if err := sm.apply(payload); err != nil {
			return err
		}
		replayed++
		return nil
	})
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	sm.logger.Info("state machine bootstrapped", "commands_replayed", replayed)
	return nil
}

// View runs fn against the Store with a read lock held, giving fn a
// consistent snapshot for its duration. fn must not retain the Store
// pointer beyond the call.
func (sm *StateMachine) View(fn func(s *store.Store)) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	fn(sm.store)
}

// AppendRegisterSchema durably appends a RegisterSchema command and
// applies it, returning the derived schema id and version number.
//
// Cancellation semantics (spec §5): if ctx is already done, this
// returns ctx.Err() without touching the log. Once the log append has
// returned successfully, the command is considered possibly committed
// and is always applied to the Store — cancellation past that point
// cannot un-apply it, and callers must treat the registration as
// idempotent (retrying with the same subject and schema text is safe).
func (sm *StateMachine) AppendRegisterSchema(ctx context.Context, subject, canonicalText string) (store.RegisterResult, error) {
	if err := ctx.Err(); err != nil {
		return store.RegisterResult{}, err
	}

	payload, err := json.Marshal(Command{
		Kind:          KindRegisterSchema,
		Subject:       subject,
		CanonicalText: canonicalText,
	})
	if err != nil {
		return store.RegisterResult{}, fmt.Errorf("encode command: %w", err)
	}

	// The write lock spans append and apply so the Store sees commands in
	// log order, exactly as a later replay will.
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if _, err := sm.log.Append(payload); err != nil {
		return store.RegisterResult{}, fmt.Errorf("%w: %v", ErrLogUnavailable, err)
	}

	fingerprint := avro.Fingerprint(canonicalText)
	return sm.store.ApplyRegisterSchema(subject, canonicalText, fingerprint), nil
}

// AppendSetConfig durably appends a SetConfig command and applies it.
// Cancellation semantics mirror AppendRegisterSchema.
func (sm *StateMachine) AppendSetConfig(ctx context.Context, scope store.ConfigScope, policy compatibility.Mode) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(Command{
		Kind:   KindSetConfig,
		Scope:  scope.Subject,
		Policy: string(policy),
	})
	if err != nil {
		return fmt.Errorf("encode command: %w", err)
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()
	if _, err := sm.log.Append(payload); err != nil {
		return fmt.Errorf("%w: %v", ErrLogUnavailable, err)
	}

	sm.store.ApplySetConfig(scope, policy)
	return nil
}

// apply decodes and replays a single command payload into the Store.
// Any decoding or semantic failure here means the committed log itself
// is invalid — a condition this node cannot reconcile by itself, so it
// is reported as a fatal replay invariant violation rather than
// skipped or guessed at.
func (sm *StateMachine) apply(payload []byte) error {
	var cmd Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return sm.fatal(fmt.Errorf("%w: malformed command: %v", ErrReplayInvariant, err))
	}

	switch cmd.Kind {
	case KindRegisterSchema:
		fingerprint := avro.Fingerprint(cmd.CanonicalText)
		sm.store.ApplyRegisterSchema(cmd.Subject, cmd.CanonicalText, fingerprint)
		return nil
	case KindSetConfig:
		mode, ok := compatibility.ParseMode(cmd.Policy)
		if !ok {
			return sm.fatal(fmt.Errorf("%w: invalid compatibility policy %q", ErrReplayInvariant, cmd.Policy))
		}
		sm.store.ApplySetConfig(store.ConfigScope{Subject: cmd.Scope}, mode)
		return nil
	default:
		return sm.fatal(fmt.Errorf("%w: unknown command kind %q", ErrReplayInvariant, cmd.Kind))
	}
}

func (sm *StateMachine) fatal(err error) error {
	sm.logger.Error("replay invariant violation", "error", err)
	if sm.onFatal != nil {
		sm.onFatal(err)
	}
	return err
}
