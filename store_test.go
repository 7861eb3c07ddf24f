package erpsync

import "testing"

func purchaseIDs(s *Store[Purchase]) []string {
	list := s.List()
	ids := make([]string, len(list))
	for i, p := range list {
		ids[i] = p.ID
	}
	return ids
}

func equalIDs(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestStoreUpsertIsIdempotent(t *testing.T) {
	s := NewStore[Purchase]()
	s.Upsert(Purchase{ID: "p1", Vendor: "Total"})
	s.Upsert(Purchase{ID: "p1", Vendor: "Total Energies"})

	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
	p, ok := s.Get("p1")
	if !ok || p.Vendor != "Total Energies" {
		t.Errorf("Get(p1) = %+v, want updated vendor", p)
	}
}

func TestStorePreservesInsertionOrder(t *testing.T) {
	s := NewStore[Purchase]()
	s.Add(Purchase{ID: "p1"})
	s.Add(Purchase{ID: "p2"})
	s.Add(Purchase{ID: "p3"})
	s.Upsert(Purchase{ID: "p2", Vendor: "edited"})

	if !equalIDs(purchaseIDs(s), []string{"p1", "p2", "p3"}) {
		t.Errorf("order = %v, want p1 p2 p3", purchaseIDs(s))
	}
}

func TestStoreRemove(t *testing.T) {
	s := NewStore[Purchase]()
	s.Add(Purchase{ID: "p1"})
	s.Add(Purchase{ID: "p2"})

	if !s.Remove("p1") {
		t.Error("Remove(p1) = false, want true")
	}
	if s.Remove("p1") {
		t.Error("second Remove(p1) = true, want false")
	}
	if _, ok := s.Get("p1"); ok {
		t.Error("p1 still present after Remove")
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestStoreRemoveMany(t *testing.T) {
	s := NewStore[Purchase]()
	for _, id := range []string{"p1", "p2", "p3", "p4"} {
		s.Add(Purchase{ID: id})
	}
	s.RemoveMany([]string{"p2", "p4", "missing"})

	if !equalIDs(purchaseIDs(s), []string{"p1", "p3"}) {
		t.Errorf("ids = %v, want p1 p3", purchaseIDs(s))
	}
}

func TestStoreReconcilePrunesAndUpserts(t *testing.T) {
	s := NewStore[Purchase]()
	s.Add(Purchase{ID: "p1", Vendor: "old"})
	s.Add(Purchase{ID: "p2"})
	s.Add(Purchase{ID: "p3"})

	// Server dropped p2, edited p1, added p9.
	s.Reconcile([]Purchase{
		{ID: "p9"},
		{ID: "p1", Vendor: "new"},
		{ID: "p3"},
	})

	if !equalIDs(purchaseIDs(s), []string{"p1", "p3", "p9"}) {
		t.Fatalf("ids = %v, want survivors in local order then p9", purchaseIDs(s))
	}
	p, _ := s.Get("p1")
	if p.Vendor != "new" {
		t.Errorf("p1 vendor = %q, want server version", p.Vendor)
	}
}

func TestStoreReconcileEmptyServer(t *testing.T) {
	s := NewStore[Purchase]()
	s.Add(Purchase{ID: "p1"})
	s.Reconcile(nil)

	if s.Len() != 0 {
		t.Errorf("Len = %d after empty reconcile, want 0", s.Len())
	}
}

func TestStoreListIsSnapshot(t *testing.T) {
	s := NewStore[Purchase]()
	s.Add(Purchase{ID: "p1", Vendor: "a"})
	snapshot := s.List()
	s.Upsert(Purchase{ID: "p1", Vendor: "b"})

	if snapshot[0].Vendor != "a" {
		t.Error("List snapshot mutated by later Upsert")
	}
}

func TestStoreUpdateMerge(t *testing.T) {
	s := NewStore[Purchase]()
	s.Add(Purchase{ID: "p1", AmountHT: 100})

	found := s.Update("p1", func(p Purchase) Purchase {
		p.Status = PurchasePaid
		return p
	})
	if !found {
		t.Fatal("Update(p1) = false, want true")
	}
	p, _ := s.Get("p1")
	if p.Status != PurchasePaid || p.AmountHT != 100 {
		t.Errorf("merge lost fields: %+v", p)
	}

	if s.Update("missing", func(p Purchase) Purchase { return p }) {
		t.Error("Update(missing) = true, want false")
	}
}
