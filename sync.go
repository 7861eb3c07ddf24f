package erpsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrMutationInFlight is returned when a second mutation targets a record
// whose previous mutation has not settled yet. The caller retries once the
// first operation completes; nothing was changed locally or remotely.
var ErrMutationInFlight = errors.New("une modification est déjà en cours sur cet enregistrement")

// ============================================================================
// Outcome
// ============================================================================

// OutcomeStatus tags which reconciliation path an operation took.
type OutcomeStatus string

const (
	// OutcomeApplied means the local mutation stands, confirmed by the server
	// (or by an idempotent not-found on delete).
	OutcomeApplied OutcomeStatus = "applied"
	// OutcomeRolledBack means the store is unchanged and an error was surfaced.
	OutcomeRolledBack OutcomeStatus = "rolled_back"
	// OutcomeResynced means local state was replaced by a full refresh from
	// the server after an ambiguous failure.
	OutcomeResynced OutcomeStatus = "resynced"
)

// Outcome is the tagged result of every sync operation, so callers and tests
// can assert which path was taken instead of inferring it from side effects.
type Outcome struct {
	Status  OutcomeStatus
	Message string
	OpID    string
	// Succeeded and Failed are populated by batch operations (DeleteMany,
	// TransferMany). Failed counts real errors only; not-found is a success.
	Succeeded int
	Failed    int
	Err       error
}

// Applied reports whether the operation's mutation stands.
func (o Outcome) Applied() bool { return o.Status == OutcomeApplied }

// ============================================================================
// SyncController
// ============================================================================

// SyncController reconciles the local store of one entity type with a remote
// authority. Mutations are applied optimistically where the UI needs instant
// feedback (delete paths) and remote-first where the server assigns canonical
// fields (create, update).
type SyncController[T Entity] struct {
	store    *Store[T]
	remote   RemoteService[T]
	feedback *FeedbackBus
	log      zerolog.Logger
	label    string

	mu       sync.Mutex
	inflight map[string]struct{}
}

// ControllerOption configures a SyncController.
type ControllerOption func(*controllerConfig)

type controllerConfig struct {
	label    string
	feedback *FeedbackBus
	log      zerolog.Logger
}

// WithLabel sets the user-facing entity label used in status messages
// ("achat", "prospect", ...).
func WithLabel(label string) ControllerOption {
	return func(c *controllerConfig) { c.label = label }
}

// WithFeedback publishes every status message on the given bus.
func WithFeedback(bus *FeedbackBus) ControllerOption {
	return func(c *controllerConfig) { c.feedback = bus }
}

// WithSyncLogger enables operation logging.
func WithSyncLogger(log zerolog.Logger) ControllerOption {
	return func(c *controllerConfig) { c.log = log }
}

// NewSyncController creates a controller over a store and its remote service.
func NewSyncController[T Entity](store *Store[T], remote RemoteService[T], opts ...ControllerOption) *SyncController[T] {
	cfg := controllerConfig{label: "élément", log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &SyncController[T]{
		store:    store,
		remote:   remote,
		feedback: cfg.feedback,
		log:      cfg.log,
		label:    cfg.label,
		inflight: make(map[string]struct{}),
	}
}

// Store returns the controller's local store.
func (sc *SyncController[T]) Store() *Store[T] { return sc.store }

// ── List / refresh ────────────────────────────────────────

// Refresh fetches the full collection and reconciles the store with it:
// records absent from the server are pruned, records present are upserted.
// On failure local data is preserved and the error surfaced.
func (sc *SyncController[T]) Refresh(ctx context.Context) Outcome {
	op := uuid.NewString()
	res := sc.remote.GetAll(ctx)
	if !res.Success {
		sc.log.Warn().Str("op", op).Str("entity", sc.label).Str("error", res.Error).Msg("refresh failed")
		return sc.finish(Outcome{
			Status:  OutcomeRolledBack,
			Message: "Impossible de charger les données. " + res.Error,
			OpID:    op,
			Err:     errors.New(res.Error),
		}, FeedbackError)
	}
	sc.store.Reconcile(res.Data)
	sc.log.Debug().Str("op", op).Str("entity", sc.label).Int("count", len(res.Data)).Msg("refreshed")
	return Outcome{Status: OutcomeApplied, OpID: op}
}

// ── Create ────────────────────────────────────────────────

// Create sends the payload to the server and, only on success, inserts the
// server-returned canonical record. On failure the store is untouched.
func (sc *SyncController[T]) Create(ctx context.Context, payload T) (T, Outcome) {
	op := uuid.NewString()
	var zero T

	res := sc.remote.Create(ctx, payload)
	if !res.Success {
		return zero, sc.finish(Outcome{
			Status:  OutcomeRolledBack,
			Message: fmt.Sprintf("Erreur lors de la création: %s", res.Error),
			OpID:    op,
			Err:     errors.New(res.Error),
		}, FeedbackError)
	}

	// Server-assigned fields (id, computed totals) are authoritative: the
	// returned record is inserted verbatim, never the payload.
	sc.store.Upsert(res.Data)
	sc.log.Debug().Str("op", op).Str("entity", sc.label).Str("id", res.Data.EntityID()).Msg("created")
	return res.Data, sc.finish(Outcome{
		Status:  OutcomeApplied,
		Message: fmt.Sprintf("%s ajouté.", capitalize(sc.label)),
		OpID:    op,
	}, FeedbackInfo)
}

// ── Update ────────────────────────────────────────────────

// Update sends the payload to the server and merges the returned canonical
// record on success. On failure the store is unchanged so a pending edit form
// can stay open. A concurrent mutation on the same id is rejected with
// ErrMutationInFlight.
func (sc *SyncController[T]) Update(ctx context.Context, id string, payload T) (T, Outcome) {
	op := uuid.NewString()
	var zero T

	if !sc.acquire(id) {
		return zero, Outcome{Status: OutcomeRolledBack, Message: ErrMutationInFlight.Error(), OpID: op, Err: ErrMutationInFlight}
	}
	defer sc.release(id)

	res := sc.remote.Update(ctx, id, payload)
	if !res.Success {
		return zero, sc.finish(Outcome{
			Status:  OutcomeRolledBack,
			Message: fmt.Sprintf("Erreur lors de la mise à jour: %s", res.Error),
			OpID:    op,
			Err:     errors.New(res.Error),
		}, FeedbackError)
	}

	sc.store.Upsert(res.Data)
	sc.log.Debug().Str("op", op).Str("entity", sc.label).Str("id", id).Msg("updated")
	return res.Data, sc.finish(Outcome{
		Status:  OutcomeApplied,
		Message: fmt.Sprintf("%s mis à jour.", capitalize(sc.label)),
		OpID:    op,
	}, FeedbackInfo)
}

// ── Delete ────────────────────────────────────────────────

// Delete removes the record locally before the remote call settles, for
// instant feedback. A not-found answer is an idempotent success. Any other
// failure triggers a full refresh to resynchronize with the server.
func (sc *SyncController[T]) Delete(ctx context.Context, id string) Outcome {
	op := uuid.NewString()

	if !sc.acquire(id) {
		return Outcome{Status: OutcomeRolledBack, Message: ErrMutationInFlight.Error(), OpID: op, Err: ErrMutationInFlight}
	}
	defer sc.release(id)

	sc.store.Remove(id)

	res := sc.remote.Delete(ctx, id)
	if res.Success || res.NotFound {
		sc.log.Debug().Str("op", op).Str("entity", sc.label).Str("id", id).Bool("notFound", res.NotFound).Msg("deleted")
		return sc.finish(Outcome{
			Status:  OutcomeApplied,
			Message: fmt.Sprintf("%s supprimé.", capitalize(sc.label)),
			OpID:    op,
		}, FeedbackInfo)
	}

	sc.log.Warn().Str("op", op).Str("entity", sc.label).Str("id", id).Str("error", res.Error).Msg("delete failed, resyncing")
	refreshErr := sc.resync(ctx)
	return sc.finish(Outcome{
		Status:  OutcomeResynced,
		Message: "Erreur lors de la suppression. Les données ont été resynchronisées.",
		OpID:    op,
		Err:     refreshErr,
	}, FeedbackError)
}

// DeleteMany removes a batch optimistically, then issues one remote delete
// per id concurrently and joins on all of them. Not-found answers are
// ignored; real errors trigger a single full refresh. The aggregate message
// reports "N supprimé(s), M erreur(s)".
func (sc *SyncController[T]) DeleteMany(ctx context.Context, ids []string) Outcome {
	op := uuid.NewString()
	if len(ids) == 0 {
		return Outcome{Status: OutcomeApplied, OpID: op}
	}

	var acquired []string
	busy := 0
	for _, id := range ids {
		if sc.acquire(id) {
			acquired = append(acquired, id)
		} else {
			busy++
		}
	}
	defer func() {
		for _, id := range acquired {
			sc.release(id)
		}
	}()

	sc.store.RemoveMany(acquired)

	results := make([]Result[Unit], len(acquired))
	var wg sync.WaitGroup
	for i, id := range acquired {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			results[i] = sc.remote.Delete(ctx, id)
		}(i, id)
	}
	wg.Wait()

	realErrors := busy
	for _, r := range results {
		if !r.Success && !r.NotFound {
			realErrors++
		}
	}

	succeeded := len(ids) - realErrors
	if realErrors == 0 {
		sc.log.Debug().Str("op", op).Str("entity", sc.label).Int("count", succeeded).Msg("bulk deleted")
		return sc.finish(Outcome{
			Status:    OutcomeApplied,
			Message:   fmt.Sprintf("%d %s(s) supprimé(s).", succeeded, sc.label),
			OpID:      op,
			Succeeded: succeeded,
		}, FeedbackInfo)
	}

	sc.log.Warn().Str("op", op).Str("entity", sc.label).Int("errors", realErrors).Msg("bulk delete partial failure, resyncing")
	refreshErr := sc.resync(ctx)
	return sc.finish(Outcome{
		Status:    OutcomeResynced,
		Message:   fmt.Sprintf("%d %s(s) supprimé(s). %d erreur(s).", succeeded, sc.label, realErrors),
		OpID:      op,
		Succeeded: succeeded,
		Failed:    realErrors,
		Err:       refreshErr,
	}, FeedbackError)
}

// ── Internals ─────────────────────────────────────────────

// resync refetches the full collection after an ambiguous failure. A failed
// refetch leaves local data in place; the error is reported on the outcome.
func (sc *SyncController[T]) resync(ctx context.Context) error {
	res := sc.remote.GetAll(ctx)
	if !res.Success {
		return errors.New(res.Error)
	}
	sc.store.Reconcile(res.Data)
	return nil
}

func (sc *SyncController[T]) acquire(id string) bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if _, busy := sc.inflight[id]; busy {
		return false
	}
	sc.inflight[id] = struct{}{}
	return true
}

func (sc *SyncController[T]) release(id string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	delete(sc.inflight, id)
}

func (sc *SyncController[T]) finish(o Outcome, level FeedbackLevel) Outcome {
	if sc.feedback != nil && o.Message != "" {
		sc.feedback.Publish(level, o.Message)
	}
	return o
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
