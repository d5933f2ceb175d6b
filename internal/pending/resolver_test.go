package pending

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/PawanKumar-Dev/domainflow/internal/domain"
)

type fakePendingStore struct {
	records map[string]*domain.PendingDomain
}

func (f *fakePendingStore) GetByID(ctx context.Context, id string) (*domain.PendingDomain, error) {
	record, ok := f.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *record
	return &copied, nil
}

func (f *fakePendingStore) Transition(ctx context.Context, id string, status domain.PendingDomainStatus, notes string) error {
	record, ok := f.records[id]
	if !ok {
		return ErrNotFound
	}
	if record.Status.Terminal() {
		if record.Status == status {
			return nil
		}
		return ErrAlreadyResolved
	}
	record.Status = status
	if notes != "" {
		record.AdminNotes = notes
	}
	return nil
}

type fakeOrderSyncer struct {
	syncCalls  int
	eventCalls int
	matched    bool
	syncErr    error
	lastStatus domain.DomainStatus
}

func (f *fakeOrderSyncer) SyncOutcome(ctx context.Context, orderID, domainName string, status domain.DomainStatus, registrarOrderID string, expiresAt *time.Time) (bool, error) {
	f.syncCalls++
	f.lastStatus = status
	return f.matched, f.syncErr
}

func (f *fakeOrderSyncer) AppendStatusEvent(ctx context.Context, orderID, domainName string, event domain.StatusEvent) error {
	f.eventCalls++
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pendingRecord() *domain.PendingDomain {
	return &domain.PendingDomain{
		ID:         "pending-1",
		OrderID:    "order-1",
		DomainName: "beta.shop",
		Status:     domain.PendingStatusPending,
		Reason:     "registrar request timed out",
	}
}

func TestResolver_Resolve(t *testing.T) {
	t.Run("transitions the record and syncs the order outcome", func(t *testing.T) {
		store := &fakePendingStore{records: map[string]*domain.PendingDomain{"pending-1": pendingRecord()}}
		syncer := &fakeOrderSyncer{matched: true}
		resolver := NewResolver(store, syncer, testLogger())

		record, err := resolver.Resolve(context.Background(), "pending-1", Outcome{
			Status:           domain.DomainStatusRegistered,
			RegistrarOrderID: "reg-42",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if record.Status != domain.PendingStatusRegistered {
			t.Errorf("expected registered, got %s", record.Status)
		}
		if syncer.syncCalls != 1 || syncer.lastStatus != domain.DomainStatusRegistered {
			t.Errorf("expected one sync to registered, got %d calls (last %s)", syncer.syncCalls, syncer.lastStatus)
		}
		if syncer.eventCalls != 1 {
			t.Errorf("expected one status event, got %d", syncer.eventCalls)
		}
	})

	t.Run("retrying the same resolution is a no-op success", func(t *testing.T) {
		store := &fakePendingStore{records: map[string]*domain.PendingDomain{"pending-1": pendingRecord()}}
		syncer := &fakeOrderSyncer{matched: true}
		resolver := NewResolver(store, syncer, testLogger())

		for i := 0; i < 2; i++ {
			if _, err := resolver.Resolve(context.Background(), "pending-1", Outcome{Status: domain.DomainStatusRegistered}); err != nil {
				t.Fatalf("call %d: unexpected error: %v", i+1, err)
			}
		}
		if syncer.syncCalls != 2 {
			t.Errorf("expected sync attempted on both calls, got %d", syncer.syncCalls)
		}
	})

	t.Run("a conflicting terminal status is rejected", func(t *testing.T) {
		store := &fakePendingStore{records: map[string]*domain.PendingDomain{"pending-1": pendingRecord()}}
		syncer := &fakeOrderSyncer{matched: true}
		resolver := NewResolver(store, syncer, testLogger())

		if _, err := resolver.Resolve(context.Background(), "pending-1", Outcome{Status: domain.DomainStatusRegistered}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_, err := resolver.Resolve(context.Background(), "pending-1", Outcome{Status: domain.DomainStatusFailed})
		if !errors.Is(err, ErrAlreadyResolved) {
			t.Errorf("expected ErrAlreadyResolved, got %v", err)
		}
	})

	t.Run("a missing order-side match is logged, not an error", func(t *testing.T) {
		store := &fakePendingStore{records: map[string]*domain.PendingDomain{"pending-1": pendingRecord()}}
		syncer := &fakeOrderSyncer{matched: false}
		resolver := NewResolver(store, syncer, testLogger())

		record, err := resolver.Resolve(context.Background(), "pending-1", Outcome{Status: domain.DomainStatusFailed})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if record.Status != domain.PendingStatusFailed {
			t.Errorf("expected failed, got %s", record.Status)
		}
		if syncer.eventCalls != 0 {
			t.Errorf("expected no status event without a match, got %d", syncer.eventCalls)
		}
	})

	t.Run("an order-side sync failure does not fail the resolution", func(t *testing.T) {
		store := &fakePendingStore{records: map[string]*domain.PendingDomain{"pending-1": pendingRecord()}}
		syncer := &fakeOrderSyncer{syncErr: errors.New("store unavailable")}
		resolver := NewResolver(store, syncer, testLogger())

		record, err := resolver.Resolve(context.Background(), "pending-1", Outcome{Status: domain.DomainStatusFailed})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if record.Status != domain.PendingStatusFailed {
			t.Errorf("expected pending record transitioned anyway, got %s", record.Status)
		}
	})

	t.Run("rejects non-terminal resolution statuses", func(t *testing.T) {
		store := &fakePendingStore{records: map[string]*domain.PendingDomain{"pending-1": pendingRecord()}}
		resolver := NewResolver(store, &fakeOrderSyncer{}, testLogger())

		if _, err := resolver.Resolve(context.Background(), "pending-1", Outcome{Status: "processing"}); err == nil {
			t.Error("expected error for non-terminal status")
		}
	})
}
