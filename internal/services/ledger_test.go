package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Blokmap/backend/internal/apperrors"
	"github.com/Blokmap/backend/internal/models"
	"github.com/google/uuid"
)

func newTestLedger(store *fakeStore) *Ledger {
	return NewLedger(store, time.Second)
}

func seatOverride(n int) *int { return &n }

func TestAdmissionScenario(t *testing.T) {
	// Location seat_count=2, block_size=30min; window 09:00-10:00 (blocks 0,1).
	store := newFakeStore()
	ot, loc := testWindow(30, 1)
	store.addLocation(loc)
	store.addOpeningTime(ot)
	ledger := newTestLedger(store)
	ctx := context.Background()

	admit := func(profile uuid.UUID, base, count int) (*models.Reservation, error) {
		res := &models.Reservation{
			ProfileID:      profile,
			OpeningTimeID:  ot.ID,
			State:          models.ReservationCreated,
			BaseBlockIndex: base,
			BlockCount:     count,
		}
		err := ledger.TryAdmit(ctx, ot, loc, res)
		return res, err
	}

	// A books block 0.
	a, err := admit(uuid.New(), 0, 1)
	if err != nil {
		t.Fatalf("A: %v", err)
	}
	if got := store.activeCountAt(ot.ID, 0); got != 1 {
		t.Fatalf("active@0 = %d, want 1", got)
	}

	// B books blocks 0-1: 1+1<=2 at block 0, 0+1<=2 at block 1.
	if _, err := admit(uuid.New(), 0, 2); err != nil {
		t.Fatalf("B: %v", err)
	}

	// C books block 0: 2+1 > 2.
	profileC := uuid.New()
	if _, err := admit(profileC, 0, 1); !errors.Is(err, apperrors.ErrCapacityExceeded) {
		t.Fatalf("C: expected ErrCapacityExceeded, got %v", err)
	}
	if got := store.activeCountAt(ot.ID, 0); got != 2 {
		t.Fatalf("rejected admission mutated the ledger: active@0 = %d", got)
	}

	// Cancel A: block 0 frees immediately.
	if err := store.UpdateState(ctx, a.ID, models.ReservationCancelled, nil); err != nil {
		t.Fatal(err)
	}
	if got := store.activeCountAt(ot.ID, 0); got != 1 {
		t.Fatalf("active@0 after cancel = %d, want 1", got)
	}

	// Retry C: succeeds now.
	if _, err := admit(profileC, 0, 1); err != nil {
		t.Fatalf("C retry: %v", err)
	}
}

func TestAdmissionDuplicateBooking(t *testing.T) {
	store := newFakeStore()
	ot, loc := testWindow(30, 2)
	loc.SeatCount = 5
	store.addLocation(loc)
	store.addOpeningTime(ot)
	ledger := newTestLedger(store)
	ctx := context.Background()

	profile := uuid.New()
	first := &models.Reservation{
		ProfileID: profile, OpeningTimeID: ot.ID,
		State: models.ReservationCreated, BaseBlockIndex: 0, BlockCount: 2,
	}
	if err := ledger.TryAdmit(ctx, ot, loc, first); err != nil {
		t.Fatal(err)
	}

	// Overlapping second booking by the same profile is rejected even though
	// seats remain.
	overlapping := &models.Reservation{
		ProfileID: profile, OpeningTimeID: ot.ID,
		State: models.ReservationCreated, BaseBlockIndex: 1, BlockCount: 1,
	}
	if err := ledger.TryAdmit(ctx, ot, loc, overlapping); !errors.Is(err, apperrors.ErrAlreadyReserved) {
		t.Fatalf("expected ErrAlreadyReserved, got %v", err)
	}

	// A disjoint booking in the same window is fine.
	disjoint := &models.Reservation{
		ProfileID: profile, OpeningTimeID: ot.ID,
		State: models.ReservationCreated, BaseBlockIndex: 2, BlockCount: 1,
	}
	if err := ledger.TryAdmit(ctx, ot, loc, disjoint); err != nil {
		t.Fatalf("disjoint booking rejected: %v", err)
	}
}

func TestAdmissionSeatCountOverride(t *testing.T) {
	store := newFakeStore()
	ot, loc := testWindow(30, 1)
	ot.SeatCount = seatOverride(1)
	store.addLocation(loc)
	store.addOpeningTime(ot)
	ledger := newTestLedger(store)
	ctx := context.Background()

	first := &models.Reservation{
		ProfileID: uuid.New(), OpeningTimeID: ot.ID,
		State: models.ReservationCreated, BaseBlockIndex: 0, BlockCount: 1,
	}
	if err := ledger.TryAdmit(ctx, ot, loc, first); err != nil {
		t.Fatal(err)
	}

	// The override (1) wins over the location's seat count (2).
	second := &models.Reservation{
		ProfileID: uuid.New(), OpeningTimeID: ot.ID,
		State: models.ReservationCreated, BaseBlockIndex: 0, BlockCount: 1,
	}
	if err := ledger.TryAdmit(ctx, ot, loc, second); !errors.Is(err, apperrors.ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
}

func TestConcurrentAdmissionsNeverExceedCapacity(t *testing.T) {
	store := newFakeStore()
	ot, loc := testWindow(30, 2) // 4 blocks
	loc.SeatCount = 3
	store.addLocation(loc)
	store.addOpeningTime(ot)
	ledger := newTestLedger(store)
	ctx := context.Background()

	// Many goroutines race for the same block range; at most seat_count may
	// win for any block.
	const attempts = 40
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res := &models.Reservation{
				ProfileID:      uuid.New(),
				OpeningTimeID:  ot.ID,
				State:          models.ReservationCreated,
				BaseBlockIndex: i % 3, // overlapping ranges across blocks
				BlockCount:     2,
			}
			_ = ledger.TryAdmit(ctx, ot, loc, res)
		}(i)
	}
	wg.Wait()

	for block := 0; block < 4; block++ {
		if got := store.activeCountAt(ot.ID, block); got > loc.SeatCount {
			t.Fatalf("capacity invariant violated: active@%d = %d > %d", block, got, loc.SeatCount)
		}
	}
}

func TestCancellationFreesOnlyCoveredBlocks(t *testing.T) {
	store := newFakeStore()
	ot, loc := testWindow(30, 2) // 4 blocks
	loc.SeatCount = 1
	store.addLocation(loc)
	store.addOpeningTime(ot)
	ledger := newTestLedger(store)
	ctx := context.Background()

	spanning := &models.Reservation{
		ProfileID: uuid.New(), OpeningTimeID: ot.ID,
		State: models.ReservationCreated, BaseBlockIndex: 0, BlockCount: 2,
	}
	if err := ledger.TryAdmit(ctx, ot, loc, spanning); err != nil {
		t.Fatal(err)
	}
	tail := &models.Reservation{
		ProfileID: uuid.New(), OpeningTimeID: ot.ID,
		State: models.ReservationCreated, BaseBlockIndex: 2, BlockCount: 2,
	}
	if err := ledger.TryAdmit(ctx, ot, loc, tail); err != nil {
		t.Fatal(err)
	}

	if err := store.UpdateState(ctx, spanning.ID, models.ReservationCancelled, nil); err != nil {
		t.Fatal(err)
	}

	for block, want := range map[int]int{0: 0, 1: 0, 2: 1, 3: 1} {
		if got := store.activeCountAt(ot.ID, block); got != want {
			t.Errorf("active@%d = %d, want %d", block, got, want)
		}
	}
}

func TestCheckAdmissionTable(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	spans := []models.ReservationSpan{
		{ProfileID: alice, State: models.ReservationCreated, BaseBlockIndex: 0, BlockCount: 2},
		{ProfileID: bob, State: models.ReservationPresent, BaseBlockIndex: 1, BlockCount: 1},
	}

	cases := []struct {
		name        string
		profile     uuid.UUID
		base, count int
		capacity    int
		wantErr     error
	}{
		{"fits beside existing", uuid.New(), 2, 1, 2, nil},
		{"block 1 full", uuid.New(), 1, 1, 2, apperrors.ErrCapacityExceeded},
		{"block 1 has room at capacity 3", uuid.New(), 1, 1, 3, nil},
		{"same profile overlap", alice, 1, 2, 5, apperrors.ErrAlreadyReserved},
		{"same profile disjoint", alice, 2, 1, 5, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckAdmission(spans, tc.profile, tc.base, tc.count, tc.capacity)
			if tc.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}
