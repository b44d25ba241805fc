package store

import (
	"context"
	"sync"
	"testing"

	"github.com/PrimaryFunction/Arkos/internal/model"
)

func TestGetXP_DefaultsForUnknownUser(t *testing.T) {
	s := createTestStore(t)

	rec, err := s.GetXP(context.Background(), "1")
	if err != nil {
		t.Fatalf("GetXP() failed: %v", err)
	}
	if rec != model.DefaultXPRecord("1") {
		t.Errorf("GetXP() = %+v, want default", rec)
	}

	// Reading must not create a row.
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM xp`).Scan(&count); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if count != 0 {
		t.Errorf("GetXP() created %d rows", count)
	}
}

func TestUpdateXP_CreatesAndUpdates(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	add := func(delta int64) func(model.XPRecord) model.XPRecord {
		return func(r model.XPRecord) model.XPRecord {
			r.XP += delta
			return r
		}
	}

	rec, err := s.UpdateXP(ctx, "1", add(5))
	if err != nil {
		t.Fatalf("first UpdateXP() failed: %v", err)
	}
	if rec.XP != 5 || rec.Level != 1 {
		t.Errorf("after first update = %+v, want xp=5 level=1", rec)
	}

	rec, err = s.UpdateXP(ctx, "1", add(7))
	if err != nil {
		t.Fatalf("second UpdateXP() failed: %v", err)
	}
	if rec.XP != 12 {
		t.Errorf("after second update xp = %d, want 12", rec.XP)
	}

	stored, err := s.GetXP(ctx, "1")
	if err != nil {
		t.Fatalf("GetXP() failed: %v", err)
	}
	if stored != rec {
		t.Errorf("stored = %+v, returned = %+v", stored, rec)
	}
}

func TestUpdateXP_RejectsInvalidRecord(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.UpdateXP(ctx, "1", func(r model.XPRecord) model.XPRecord {
		r.Level = 0
		return r
	})
	if err == nil {
		t.Fatal("UpdateXP() accepted level 0")
	}

	rec, err := s.GetXP(ctx, "1")
	if err != nil {
		t.Fatalf("GetXP() failed: %v", err)
	}
	if rec != model.DefaultXPRecord("1") {
		t.Errorf("rejected update persisted: %+v", rec)
	}
}

func TestUpdateXP_ConcurrentIncrementsNotLost(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	const workers = 20
	const perWorker = 10

	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				_, err := s.UpdateXP(ctx, "1", func(r model.XPRecord) model.XPRecord {
					r.XP++
					return r
				})
				if err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent UpdateXP() failed: %v", err)
	}

	rec, err := s.GetXP(ctx, "1")
	if err != nil {
		t.Fatalf("GetXP() failed: %v", err)
	}
	if rec.XP != workers*perWorker {
		t.Errorf("xp = %d, want %d", rec.XP, workers*perWorker)
	}
}
