package erpsync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// fakeERP is an in-memory purchases backend for controller tests.
type fakeERP struct {
	mu        sync.Mutex
	purchases map[string]Purchase
	order     []string
	nextID    int

	// failDelete maps ids to a forced HTTP status on DELETE.
	failDelete map[string]int
	// failCreate forces every POST to fail with the given status.
	failCreate int
	// blockUpdate, when set, is received from before PUT answers. Used to
	// hold a mutation in flight; updateEntered signals the handler was
	// reached.
	blockUpdate   chan struct{}
	updateEntered chan struct{}

	deleteCalls int
}

func newFakeERP(seed ...Purchase) *fakeERP {
	f := &fakeERP{
		purchases:  make(map[string]Purchase),
		failDelete: make(map[string]int),
	}
	for _, p := range seed {
		f.purchases[p.ID] = p
		f.order = append(f.order, p.ID)
	}
	return f
}

func (f *fakeERP) list() []Purchase {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Purchase, 0, len(f.order))
	for _, id := range f.order {
		if p, ok := f.purchases[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

func (f *fakeERP) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/purchases/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/purchases/")

		switch {
		case r.Method == http.MethodGet && id == "":
			json.NewEncoder(w).Encode(f.list())

		case r.Method == http.MethodPost:
			if f.failCreate != 0 {
				w.WriteHeader(f.failCreate)
				json.NewEncoder(w).Encode(map[string]string{"detail": "montant invalide"})
				return
			}
			var p Purchase
			json.NewDecoder(r.Body).Decode(&p)
			f.mu.Lock()
			f.nextID++
			p.ID = fmt.Sprintf("srv-%d", f.nextID)
			// The backend recomputes the TTC amount, whatever the client sent.
			p.AmountTTC = ComputeAmountTTC(p.AmountHT, p.VATRate)
			f.purchases[p.ID] = p
			f.order = append(f.order, p.ID)
			f.mu.Unlock()
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(p)

		case r.Method == http.MethodPut:
			if f.blockUpdate != nil {
				f.updateEntered <- struct{}{}
				<-f.blockUpdate
			}
			f.mu.Lock()
			_, exists := f.purchases[id]
			f.mu.Unlock()
			if !exists {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			var p Purchase
			json.NewDecoder(r.Body).Decode(&p)
			p.ID = id
			p.AmountTTC = ComputeAmountTTC(p.AmountHT, p.VATRate)
			f.mu.Lock()
			f.purchases[id] = p
			f.mu.Unlock()
			json.NewEncoder(w).Encode(p)

		case r.Method == http.MethodDelete:
			f.mu.Lock()
			f.deleteCalls++
			status, forced := f.failDelete[id]
			_, exists := f.purchases[id]
			if !forced && exists {
				delete(f.purchases, id)
			}
			f.mu.Unlock()
			if forced {
				w.WriteHeader(status)
				return
			}
			if !exists {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.WriteHeader(http.StatusNoContent)

		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	return mux
}

// newTestController spins up the fake backend and a controller over it.
func newTestController(t *testing.T, f *fakeERP, opts ...ControllerOption) (*Store[Purchase], *SyncController[Purchase]) {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL)
	store := NewStore[Purchase]()
	opts = append([]ControllerOption{WithLabel("achat")}, opts...)
	return store, NewSyncController[Purchase](store, client.Purchases(), opts...)
}

// ── Refresh ───────────────────────────────────────────────

func TestRefreshLoadsCollection(t *testing.T) {
	f := newFakeERP(
		Purchase{ID: "p1", Vendor: "Total"},
		Purchase{ID: "p2", Vendor: "Leroy"},
	)
	store, ctrl := newTestController(t, f)

	out := ctrl.Refresh(context.Background())
	if !out.Applied() {
		t.Fatalf("Refresh outcome = %+v, want applied", out)
	}
	if store.Len() != 2 {
		t.Errorf("store has %d records, want 2", store.Len())
	}
}

func TestRefreshFailurePreservesLocalData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	store := NewStore[Purchase]()
	store.Add(Purchase{ID: "p1"})
	ctrl := NewSyncController[Purchase](store, client.Purchases())

	out := ctrl.Refresh(context.Background())
	if out.Status != OutcomeRolledBack {
		t.Fatalf("outcome = %s, want rolled_back", out.Status)
	}
	if !strings.HasPrefix(out.Message, "Impossible de charger les données.") {
		t.Errorf("message = %q", out.Message)
	}
	if store.Len() != 1 {
		t.Error("local data was lost on failed refresh")
	}
}

func TestRefreshUnreachableServer(t *testing.T) {
	client := NewClient("http://127.0.0.1:1")
	store := NewStore[Purchase]()
	ctrl := NewSyncController[Purchase](store, client.Purchases())

	out := ctrl.Refresh(context.Background())
	if out.Status != OutcomeRolledBack {
		t.Fatalf("outcome = %s, want rolled_back", out.Status)
	}
	if !strings.Contains(out.Message, "Impossible de contacter le serveur") {
		t.Errorf("message = %q", out.Message)
	}
}

// ── Create ────────────────────────────────────────────────

func TestCreateInsertsServerRecord(t *testing.T) {
	f := newFakeERP()
	store, ctrl := newTestController(t, f)

	created, out := ctrl.Create(context.Background(), Purchase{
		Vendor: "Total", AmountHT: 250, VATRate: 20,
		AmountTTC: ComputeAmountTTC(250, 20), Status: PurchaseValidated,
	})
	if !out.Applied() {
		t.Fatalf("outcome = %+v, want applied", out)
	}
	if out.Message != "Achat ajouté." {
		t.Errorf("message = %q", out.Message)
	}
	if created.ID == "" {
		t.Fatal("created record has no server id")
	}
	if created.AmountTTC != 300 {
		t.Errorf("AmountTTC = %v, want 300", created.AmountTTC)
	}
	got, ok := store.Get(created.ID)
	if !ok {
		t.Fatal("created record not in store")
	}
	if got.AmountTTC != 300 {
		t.Errorf("store holds %v, want the server record", got.AmountTTC)
	}
}

func TestCreateFailureLeavesStoreUntouched(t *testing.T) {
	f := newFakeERP()
	f.failCreate = http.StatusUnprocessableEntity
	store, ctrl := newTestController(t, f)

	_, out := ctrl.Create(context.Background(), Purchase{Vendor: "Total"})
	if out.Status != OutcomeRolledBack {
		t.Fatalf("outcome = %s, want rolled_back", out.Status)
	}
	if !strings.Contains(out.Message, "Erreur lors de la création") {
		t.Errorf("message = %q", out.Message)
	}
	if !strings.Contains(out.Message, "montant invalide") {
		t.Errorf("message %q should carry the backend detail", out.Message)
	}
	if store.Len() != 0 {
		t.Error("failed create left a record in the store")
	}
}

// ── Update ────────────────────────────────────────────────

func TestUpdateMergesServerRecord(t *testing.T) {
	f := newFakeERP(Purchase{ID: "p1", Vendor: "Total", AmountHT: 100, VATRate: 20, AmountTTC: 120})
	store, ctrl := newTestController(t, f)
	ctrl.Refresh(context.Background())

	// Client sends a stale TTC; the server's recomputed value must win.
	updated, out := ctrl.Update(context.Background(), "p1", Purchase{
		ID: "p1", Vendor: "Total", AmountHT: 200, VATRate: 20, AmountTTC: 120,
	})
	if !out.Applied() {
		t.Fatalf("outcome = %+v, want applied", out)
	}
	if updated.AmountTTC != 240 {
		t.Errorf("AmountTTC = %v, want server-computed 240", updated.AmountTTC)
	}
	got, _ := store.Get("p1")
	if got.AmountTTC != 240 {
		t.Errorf("store holds %v, want 240", got.AmountTTC)
	}
}

func TestUpdateFailureKeepsLocalRecord(t *testing.T) {
	f := newFakeERP(Purchase{ID: "p1", Vendor: "Total"})
	store, ctrl := newTestController(t, f)
	ctrl.Refresh(context.Background())

	_, out := ctrl.Update(context.Background(), "missing", Purchase{ID: "missing"})
	if out.Status != OutcomeRolledBack {
		t.Fatalf("outcome = %s, want rolled_back", out.Status)
	}
	got, _ := store.Get("p1")
	if got.Vendor != "Total" {
		t.Error("unrelated record changed on failed update")
	}
}

func TestUpdateRejectsConcurrentMutation(t *testing.T) {
	f := newFakeERP(Purchase{ID: "p1", Vendor: "Total"})
	f.blockUpdate = make(chan struct{})
	f.updateEntered = make(chan struct{})
	_, ctrl := newTestController(t, f)

	done := make(chan Outcome, 1)
	go func() {
		_, out := ctrl.Update(context.Background(), "p1", Purchase{ID: "p1", Vendor: "held"})
		done <- out
	}()

	// Once the handler is reached the first update holds the in-flight slot.
	<-f.updateEntered

	_, second := ctrl.Update(context.Background(), "p1", Purchase{ID: "p1", Vendor: "racer"})
	if second.Err != ErrMutationInFlight {
		t.Errorf("second update err = %v, want ErrMutationInFlight", second.Err)
	}
	if second.Status != OutcomeRolledBack {
		t.Errorf("guarded outcome = %s, want rolled_back", second.Status)
	}

	close(f.blockUpdate)
	if first := <-done; !first.Applied() {
		t.Errorf("first update outcome = %+v, want applied", first)
	}
}

// ── Delete ────────────────────────────────────────────────

func TestDeleteIsOptimistic(t *testing.T) {
	f := newFakeERP(Purchase{ID: "p1"}, Purchase{ID: "p2"})
	store, ctrl := newTestController(t, f)
	ctrl.Refresh(context.Background())

	out := ctrl.Delete(context.Background(), "p1")
	if !out.Applied() {
		t.Fatalf("outcome = %+v, want applied", out)
	}
	if out.Message != "Achat supprimé." {
		t.Errorf("message = %q", out.Message)
	}
	if _, ok := store.Get("p1"); ok {
		t.Error("record still in store after delete")
	}
}

func TestDeleteNotFoundIsIdempotentSuccess(t *testing.T) {
	f := newFakeERP(Purchase{ID: "p1"})
	store, ctrl := newTestController(t, f)
	ctrl.Refresh(context.Background())

	if out := ctrl.Delete(context.Background(), "p1"); !out.Applied() {
		t.Fatalf("first delete = %+v", out)
	}
	// A second delete hits 404 on the backend and still succeeds silently.
	out := ctrl.Delete(context.Background(), "p1")
	if !out.Applied() {
		t.Fatalf("second delete = %+v, want applied", out)
	}
	if store.Len() != 0 {
		t.Errorf("store has %d records, want 0", store.Len())
	}
}

func TestDeleteRealFailureResyncs(t *testing.T) {
	f := newFakeERP(Purchase{ID: "p1"}, Purchase{ID: "p2"})
	f.failDelete["p1"] = http.StatusInternalServerError
	store, ctrl := newTestController(t, f)
	ctrl.Refresh(context.Background())

	out := ctrl.Delete(context.Background(), "p1")
	if out.Status != OutcomeResynced {
		t.Fatalf("outcome = %s, want resynced", out.Status)
	}
	if out.Message != "Erreur lors de la suppression. Les données ont été resynchronisées." {
		t.Errorf("message = %q", out.Message)
	}
	// The record survived on the server, so the resync restores it locally.
	if _, ok := store.Get("p1"); !ok {
		t.Error("p1 not restored by resync")
	}
	if store.Len() != 2 {
		t.Errorf("store has %d records, want 2", store.Len())
	}
}

// ── DeleteMany ────────────────────────────────────────────

func TestDeleteManyAllSucceed(t *testing.T) {
	f := newFakeERP(Purchase{ID: "p1"}, Purchase{ID: "p2"}, Purchase{ID: "p3"})
	store, ctrl := newTestController(t, f)
	ctrl.Refresh(context.Background())

	out := ctrl.DeleteMany(context.Background(), []string{"p1", "p3"})
	if !out.Applied() {
		t.Fatalf("outcome = %+v, want applied", out)
	}
	if out.Message != "2 achat(s) supprimé(s)." {
		t.Errorf("message = %q", out.Message)
	}
	if out.Succeeded != 2 {
		t.Errorf("Succeeded = %d, want 2", out.Succeeded)
	}
	if store.Len() != 1 {
		t.Errorf("store has %d records, want 1", store.Len())
	}
}

func TestDeleteManyIgnoresNotFound(t *testing.T) {
	f := newFakeERP(Purchase{ID: "p1"})
	store, ctrl := newTestController(t, f)
	ctrl.Refresh(context.Background())
	store.Add(Purchase{ID: "ghost"}) // never existed on the server

	out := ctrl.DeleteMany(context.Background(), []string{"p1", "ghost"})
	if !out.Applied() {
		t.Fatalf("outcome = %+v, want applied despite the 404", out)
	}
	if out.Message != "2 achat(s) supprimé(s)." {
		t.Errorf("message = %q", out.Message)
	}
}

func TestDeleteManyPartialFailureResyncs(t *testing.T) {
	f := newFakeERP(Purchase{ID: "p1"}, Purchase{ID: "p2"}, Purchase{ID: "p3"})
	f.failDelete["p2"] = http.StatusInternalServerError
	store, ctrl := newTestController(t, f)
	ctrl.Refresh(context.Background())

	out := ctrl.DeleteMany(context.Background(), []string{"p1", "p2", "p3"})
	if out.Status != OutcomeResynced {
		t.Fatalf("outcome = %s, want resynced", out.Status)
	}
	if out.Message != "2 achat(s) supprimé(s). 1 erreur(s)." {
		t.Errorf("message = %q", out.Message)
	}
	if out.Succeeded != 2 || out.Failed != 1 {
		t.Errorf("counts = %d/%d, want 2/1", out.Succeeded, out.Failed)
	}
	// p2 survived server-side and reappears after the resync.
	if _, ok := store.Get("p2"); !ok {
		t.Error("p2 not restored by resync")
	}
}

func TestDeleteManyEmptyInput(t *testing.T) {
	f := newFakeERP()
	_, ctrl := newTestController(t, f)

	out := ctrl.DeleteMany(context.Background(), nil)
	if !out.Applied() {
		t.Errorf("outcome = %+v, want applied no-op", out)
	}
	if f.deleteCalls != 0 {
		t.Errorf("backend saw %d deletes, want 0", f.deleteCalls)
	}
}

// ── Feedback ──────────────────────────────────────────────

func TestControllerPublishesFeedback(t *testing.T) {
	f := newFakeERP(Purchase{ID: "p1"})
	bus := NewFeedbackBus()
	var got []Feedback
	var mu sync.Mutex
	bus.Subscribe(func(fb Feedback) {
		mu.Lock()
		got = append(got, fb)
		mu.Unlock()
	})

	_, ctrl := newTestController(t, f, WithFeedback(bus))
	ctrl.Refresh(context.Background())
	ctrl.Delete(context.Background(), "p1")

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("got %d feedback messages, want 1", len(got))
	}
	if got[0].Level != FeedbackInfo || got[0].Message != "Achat supprimé." {
		t.Errorf("feedback = %+v", got[0])
	}
}

func TestFeedbackBusSurvivesPanickingHandler(t *testing.T) {
	bus := NewFeedbackBus()
	bus.Subscribe(func(Feedback) { panic("broken consumer") })
	delivered := false
	bus.Subscribe(func(Feedback) { delivered = true })

	bus.Publish(FeedbackInfo, "test")
	if !delivered {
		t.Error("second handler not reached after panic in first")
	}
}
