package vecstore

import "testing"

func TestExportRestoreRoundTrip(t *testing.T) {
	s, err := New(3, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.EnableSQ8()
	s.EnableBQ()

	var ids []VectorId
	for i := 0; i < 5; i++ {
		id, err := s.Push([]float32{float32(i), float32(i + 1), float32(i + 2)})
		if err != nil {
			t.Fatalf("Push: %v", err)
		}
		ids = append(ids, id)
		slot, _ := s.Slot(id)
		s.SetSQ8(slot, []byte{byte(i)}, SQ8Params{Min: 0, Scale: 1})
		s.SetBQ(slot, []byte{byte(i)})
	}
	if err := s.MarkDeleted(ids[2]); err != nil {
		t.Fatalf("MarkDeleted: %v", err)
	}

	slots := s.ExportSlots()
	tomb := s.ExportTombstones()

	restored, err := Restore(3, 2, slots, tomb, true, true)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if restored.LiveCount() != 4 {
		t.Fatalf("want live count 4, got %d", restored.LiveCount())
	}
	if restored.TotalCount() != 5 {
		t.Fatalf("want total count 5, got %d", restored.TotalCount())
	}
	if !restored.IsDeleted(ids[2]) {
		t.Fatal("expected restored id 2 to remain tombstoned")
	}
	for i, id := range ids {
		if i == 2 {
			continue
		}
		slot, ok := restored.Slot(id)
		if !ok {
			t.Fatalf("id %d missing after restore", id)
		}
		if got := restored.VectorAt(slot); got[0] != float32(i) {
			t.Fatalf("slot %d vector mismatch: got %v", slot, got)
		}
		bits, ok := restored.BQAt(slot)
		if !ok || bits[0] != byte(i) {
			t.Fatalf("slot %d bq mismatch: got %v ok=%v", slot, bits, ok)
		}
	}
}

func TestPushWithIdRejectsDuplicate(t *testing.T) {
	s, err := New(2, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.PushWithId(VectorId(100), []float32{1, 2}); err != nil {
		t.Fatalf("first PushWithId: %v", err)
	}
	if _, err := s.PushWithId(VectorId(100), []float32{3, 4}); err == nil {
		t.Fatal("expected duplicate id error")
	}
}
