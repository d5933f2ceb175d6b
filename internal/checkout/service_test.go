package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PawanKumar-Dev/domainflow/internal/domain"
	"github.com/PawanKumar-Dev/domainflow/internal/eligibility"
	"github.com/PawanKumar-Dev/domainflow/internal/orders"
	"github.com/PawanKumar-Dev/domainflow/internal/payment"
	"github.com/PawanKumar-Dev/domainflow/internal/registrar"
)

type fakeVerifier struct {
	charge *payment.VerifiedCharge
	err    error
	calls  int
}

func (f *fakeVerifier) Verify(ctx context.Context, conf payment.Confirmation, items []domain.CartItem) (*payment.VerifiedCharge, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.charge, nil
}

type fakeRegistrar struct {
	mu            sync.Mutex
	customerErr   error
	results       map[string]*registrar.RegisterResult
	errs          map[string]error
	delays        map[string]time.Duration
	customerCalls int
	registerCalls int
}

func (f *fakeRegistrar) GetOrCreateCustomer(ctx context.Context, customer domain.Customer) (registrar.Identity, error) {
	f.mu.Lock()
	f.customerCalls++
	f.mu.Unlock()
	if f.customerErr != nil {
		return registrar.Identity{}, f.customerErr
	}
	return registrar.Identity{CustomerID: "cust-1", ContactID: "cont-1"}, nil
}

func (f *fakeRegistrar) RegisterDomain(ctx context.Context, req registrar.RegisterRequest) (*registrar.RegisterResult, error) {
	f.mu.Lock()
	f.registerCalls++
	delay := f.delays[req.DomainName]
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err, ok := f.errs[req.DomainName]; ok {
		return nil, err
	}
	if result, ok := f.results[req.DomainName]; ok {
		return result, nil
	}
	return &registrar.RegisterResult{
		Status:           registrar.StatusSuccess,
		RegistrarOrderID: "reg-" + req.DomainName,
	}, nil
}

type fakeOrderStore struct {
	existing  *domain.Order
	created   *domain.Order
	createErr error
	getErr    error
	// winner is returned by GetByChargeID after a failed Create, simulating
	// losing the insert race to a concurrent run.
	winner *domain.Order
}

func (f *fakeOrderStore) Create(ctx context.Context, order *domain.Order) error {
	if f.createErr != nil {
		f.existing = f.winner
		return f.createErr
	}
	order.ID = "ord-1"
	order.InvoiceNumber = "INV-20260824-TEST0001"
	order.CreatedAt = time.Now().UTC()
	f.created = order
	return nil
}

func (f *fakeOrderStore) GetByChargeID(ctx context.Context, gatewayChargeID string) (*domain.Order, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.existing != nil && f.existing.GatewayChargeID == gatewayChargeID {
		return f.existing, nil
	}
	return nil, nil
}

type fakePendingStore struct {
	mu      sync.Mutex
	records []*domain.PendingDomain
	err     error
}

func (f *fakePendingStore) Create(ctx context.Context, record *domain.PendingDomain) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	record.ID = fmt.Sprintf("pend-%d", len(f.records)+1)
	f.records = append(f.records, record)
	return nil
}

type fakeRejectionStore struct {
	rejections []*domain.CheckoutRejection
}

func (f *fakeRejectionStore) Create(ctx context.Context, rejection *domain.CheckoutRejection) error {
	f.rejections = append(f.rejections, rejection)
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	orders []*domain.Order
}

func (f *fakeNotifier) OrderCompleted(ctx context.Context, order *domain.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, order)
}

type serviceFixture struct {
	verifier   *fakeVerifier
	registrar  *fakeRegistrar
	orders     *fakeOrderStore
	pending    *fakePendingStore
	rejections *fakeRejectionStore
	notifier   *fakeNotifier
	service    *Service
}

func newFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		verifier: &fakeVerifier{charge: &payment.VerifiedCharge{
			Charge: payment.Charge{
				ID:       "pay_abc123",
				OrderID:  "order_xyz789",
				Status:   "captured",
				Amount:   300000,
				Currency: "INR",
			},
			VerifiedAt: time.Now().UTC(),
		}},
		registrar:  &fakeRegistrar{},
		orders:     &fakeOrderStore{},
		pending:    &fakePendingStore{},
		rejections: &fakeRejectionStore{},
		notifier:   &fakeNotifier{},
	}
	f.service = NewService(ServiceConfig{
		Verifier:       f.verifier,
		Eligibility:    eligibility.NewFilter(nil),
		Registrar:      f.registrar,
		Orders:         f.orders,
		Pending:        f.pending,
		Rejections:     f.rejections,
		Notifier:       f.notifier,
		Logger:         slog.New(slog.DiscardHandler),
		SupportContact: "support@example.com",
	})
	return f
}

func testConfirmation() payment.Confirmation {
	return payment.Confirmation{
		GatewayOrderID:  "order_xyz789",
		GatewayChargeID: "pay_abc123",
		Signature:       "deadbeef",
	}
}

func testCart() []domain.CartItem {
	return []domain.CartItem{
		{DomainName: "alpha.com", Price: 1200, Currency: "INR", Period: 1},
		{DomainName: "beta.shop", Price: 1800, Currency: "INR", Period: 2},
	}
}

func testCustomer() domain.Customer {
	return domain.Customer{Email: "buyer@example.com", Name: "Asha Buyer"}
}

func TestServiceProcess(t *testing.T) {
	ctx := context.Background()

	t.Run("registers every domain and completes the order", func(t *testing.T) {
		f := newFixture(t)

		result, err := f.service.Process(ctx, testConfirmation(), testCart(), testCustomer())
		if err != nil {
			t.Fatalf("Process returned error: %v", err)
		}

		if result.OrderID != "ord-1" {
			t.Errorf("expected order id ord-1, got %q", result.OrderID)
		}
		if result.InvoiceNumber == "" {
			t.Error("expected an invoice number")
		}
		if len(result.PerDomainResults) != 2 {
			t.Fatalf("expected 2 per-domain results, got %d", len(result.PerDomainResults))
		}
		if result.PerDomainResults[0].DomainName != "alpha.com" || result.PerDomainResults[1].DomainName != "beta.shop" {
			t.Errorf("results out of cart order: %+v", result.PerDomainResults)
		}
		if len(result.SuccessfulDomains) != 2 {
			t.Errorf("expected 2 successful domains, got %v", result.SuccessfulDomains)
		}

		order := f.orders.created
		if order == nil {
			t.Fatal("order was not persisted")
		}
		if order.Status != domain.OrderStatusCompleted {
			t.Errorf("expected completed order, got %s", order.Status)
		}
		if order.Amount != 300000 || order.Payment.GatewayAmount != 300000 {
			t.Errorf("payment snapshot amount mismatch: %d / %d", order.Amount, order.Payment.GatewayAmount)
		}
		if len(f.pending.records) != 0 {
			t.Errorf("expected no pending records, got %d", len(f.pending.records))
		}
		if len(f.notifier.orders) != 1 {
			t.Errorf("expected 1 notification, got %d", len(f.notifier.orders))
		}
	})

	t.Run("replays an already processed charge without side effects", func(t *testing.T) {
		f := newFixture(t)
		f.orders.existing = &domain.Order{
			ID:              "ord-prev",
			InvoiceNumber:   "INV-20260823-AAAA1111",
			GatewayChargeID: "pay_abc123",
			Status:          domain.OrderStatusCompleted,
			Domains: []domain.DomainOutcome{
				{DomainName: "alpha.com", Status: domain.DomainStatusRegistered},
				{DomainName: "beta.shop", Status: domain.DomainStatusRegistered},
			},
			SuccessfulDomains: []string{"alpha.com", "beta.shop"},
		}

		result, err := f.service.Process(ctx, testConfirmation(), testCart(), testCustomer())
		if err != nil {
			t.Fatalf("Process returned error: %v", err)
		}

		if result.OrderID != "ord-prev" {
			t.Errorf("expected replay of ord-prev, got %q", result.OrderID)
		}
		if f.registrar.customerCalls != 0 || f.registrar.registerCalls != 0 {
			t.Errorf("replay must not touch the registrar: %d customer calls, %d register calls",
				f.registrar.customerCalls, f.registrar.registerCalls)
		}
		if f.orders.created != nil {
			t.Error("replay must not create a second order")
		}
		if len(f.notifier.orders) != 0 {
			t.Error("replay must not re-notify")
		}
	})

	t.Run("isolates a failed domain and records it for recovery", func(t *testing.T) {
		f := newFixture(t)
		f.verifier.charge.Amount = 500000
		f.registrar.results = map[string]*registrar.RegisterResult{
			"gamma.io": {Status: registrar.StatusError, Message: "insufficient reseller balance"},
		}
		cart := []domain.CartItem{
			{DomainName: "alpha.com", Price: 1200, Currency: "INR", Period: 1},
			{DomainName: "gamma.io", Price: 2000, Currency: "INR", Period: 1},
			{DomainName: "beta.shop", Price: 1800, Currency: "INR", Period: 2},
		}

		result, err := f.service.Process(ctx, testConfirmation(), cart, testCustomer())
		if err != nil {
			t.Fatalf("Process returned error: %v", err)
		}

		if f.orders.created.Status != domain.OrderStatusCompleted {
			t.Errorf("order must complete despite the failed domain, got %s", f.orders.created.Status)
		}
		if len(result.SuccessfulDomains) != 2 {
			t.Errorf("expected 2 successful domains, got %v", result.SuccessfulDomains)
		}

		failed := result.PerDomainResults[1]
		if failed.DomainName != "gamma.io" || failed.Status != domain.DomainStatusFailed {
			t.Fatalf("expected gamma.io failed at position 1, got %+v", failed)
		}
		if !strings.Contains(failed.Error, "insufficient reseller balance") {
			t.Errorf("failure reason lost: %q", failed.Error)
		}

		if len(f.pending.records) != 1 {
			t.Fatalf("expected 1 pending record, got %d", len(f.pending.records))
		}
		record := f.pending.records[0]
		if record.DomainName != "gamma.io" || record.OrderID != "ord-1" {
			t.Errorf("pending record mismatch: %+v", record)
		}
		if record.UserEmail != "buyer@example.com" {
			t.Errorf("pending record missing purchaser email: %q", record.UserEmail)
		}
		if record.CustomerID != "cust-1" || record.ContactID != "cont-1" {
			t.Errorf("pending record missing registrar identity: customer_id=%q contact_id=%q",
				record.CustomerID, record.ContactID)
		}
	})

	t.Run("rejects the whole cart when any domain is restricted", func(t *testing.T) {
		f := newFixture(t)
		cart := append(testCart(), domain.CartItem{DomainName: "vault.bank", Price: 5000, Currency: "INR", Period: 1})

		_, err := f.service.Process(ctx, testConfirmation(), cart, testCustomer())

		var procErr *Error
		if !errors.As(err, &procErr) || procErr.Kind != KindRestrictedDomain {
			t.Fatalf("expected restricted_domain error, got %v", err)
		}
		if len(procErr.RestrictedDomains) != 1 || procErr.RestrictedDomains[0].DomainName != "vault.bank" {
			t.Errorf("expected vault.bank flagged, got %+v", procErr.RestrictedDomains)
		}
		if procErr.SupportContact != "support@example.com" {
			t.Errorf("expected support contact in rejection, got %q", procErr.SupportContact)
		}
		if f.registrar.customerCalls != 0 || f.registrar.registerCalls != 0 {
			t.Error("restricted cart must not reach the registrar")
		}
		if f.orders.created != nil {
			t.Error("restricted cart must not create an order")
		}
		if len(f.rejections.rejections) != 1 {
			t.Fatalf("expected 1 recorded rejection, got %d", len(f.rejections.rejections))
		}
		if f.rejections.rejections[0].GatewayChargeID != "pay_abc123" {
			t.Errorf("rejection not tied to the charge: %+v", f.rejections.rejections[0])
		}
	})

	t.Run("keeps outcomes in cart order under concurrency", func(t *testing.T) {
		f := newFixture(t)
		f.verifier.charge.Amount = 400000
		f.registrar.delays = map[string]time.Duration{
			"one.com":   40 * time.Millisecond,
			"two.com":   1 * time.Millisecond,
			"three.com": 25 * time.Millisecond,
			"four.com":  5 * time.Millisecond,
		}
		cart := []domain.CartItem{
			{DomainName: "one.com", Price: 1000, Currency: "INR", Period: 1},
			{DomainName: "two.com", Price: 1000, Currency: "INR", Period: 1},
			{DomainName: "three.com", Price: 1000, Currency: "INR", Period: 1},
			{DomainName: "four.com", Price: 1000, Currency: "INR", Period: 1},
		}

		result, err := f.service.Process(ctx, testConfirmation(), cart, testCustomer())
		if err != nil {
			t.Fatalf("Process returned error: %v", err)
		}

		for i, item := range cart {
			if result.PerDomainResults[i].DomainName != item.DomainName {
				t.Errorf("position %d: expected %s, got %s", i, item.DomainName, result.PerDomainResults[i].DomainName)
			}
		}
	})

	t.Run("returns the winning order after losing the insert race", func(t *testing.T) {
		f := newFixture(t)
		f.orders.createErr = orders.ErrDuplicateCharge
		f.orders.winner = &domain.Order{
			ID:                "ord-winner",
			InvoiceNumber:     "INV-20260824-WINNER01",
			GatewayChargeID:   "pay_abc123",
			Status:            domain.OrderStatusCompleted,
			SuccessfulDomains: []string{"alpha.com", "beta.shop"},
		}

		result, err := f.service.Process(ctx, testConfirmation(), testCart(), testCustomer())
		if err != nil {
			t.Fatalf("Process returned error: %v", err)
		}
		if result.OrderID != "ord-winner" {
			t.Errorf("expected the winning order, got %q", result.OrderID)
		}
	})

	t.Run("reports persistence failure after registration", func(t *testing.T) {
		f := newFixture(t)
		f.orders.createErr = errors.New("connection reset")

		_, err := f.service.Process(ctx, testConfirmation(), testCart(), testCustomer())

		var procErr *Error
		if !errors.As(err, &procErr) || procErr.Kind != KindPersistenceFailure {
			t.Fatalf("expected persistence_failure, got %v", err)
		}
	})

	t.Run("reports a store outage before registration as retryable", func(t *testing.T) {
		f := newFixture(t)
		f.orders.getErr = errors.New("connection refused")

		_, err := f.service.Process(ctx, testConfirmation(), testCart(), testCustomer())

		var procErr *Error
		if !errors.As(err, &procErr) || procErr.Kind != KindStoreUnavailable {
			t.Fatalf("expected store_unavailable, got %v", err)
		}
		if f.registrar.customerCalls != 0 || f.registrar.registerCalls != 0 {
			t.Error("store outage before registration must not reach the registrar")
		}
	})

	t.Run("rejects a period below the TLD minimum before any registrar call", func(t *testing.T) {
		f := newFixture(t)
		cart := append(testCart(), domain.CartItem{DomainName: "studio.ai", Price: 6000, Currency: "INR", Period: 1})

		_, err := f.service.Process(ctx, testConfirmation(), cart, testCustomer())

		var procErr *Error
		if !errors.As(err, &procErr) || procErr.Kind != KindRestrictedDomain {
			t.Fatalf("expected restricted_domain error, got %v", err)
		}
		if len(procErr.RestrictedDomains) != 1 || procErr.RestrictedDomains[0].DomainName != "studio.ai" {
			t.Errorf("expected studio.ai flagged, got %+v", procErr.RestrictedDomains)
		}
		if f.registrar.customerCalls != 0 || f.registrar.registerCalls != 0 {
			t.Error("short-period cart must not reach the registrar")
		}
		if f.orders.created != nil {
			t.Error("short-period cart must not create an order")
		}
	})

	t.Run("rejects a tampered confirmation with zero side effects", func(t *testing.T) {
		f := newFixture(t)
		f.verifier.err = payment.ErrSignatureInvalid

		_, err := f.service.Process(ctx, testConfirmation(), testCart(), testCustomer())

		var procErr *Error
		if !errors.As(err, &procErr) || procErr.Kind != KindSignatureInvalid {
			t.Fatalf("expected signature_invalid, got %v", err)
		}
		if f.registrar.customerCalls != 0 || f.registrar.registerCalls != 0 {
			t.Error("failed verification must not reach the registrar")
		}
		if f.orders.created != nil || len(f.pending.records) != 0 || len(f.notifier.orders) != 0 {
			t.Error("failed verification must leave no records")
		}
	})

	t.Run("reports a registrar timeout as a recoverable failure", func(t *testing.T) {
		f := newFixture(t)
		f.registrar.errs = map[string]error{
			"beta.shop": fmt.Errorf("register beta.shop: %w", context.DeadlineExceeded),
		}

		result, err := f.service.Process(ctx, testConfirmation(), testCart(), testCustomer())
		if err != nil {
			t.Fatalf("Process returned error: %v", err)
		}

		timedOut := result.PerDomainResults[1]
		if timedOut.Status != domain.DomainStatusFailed {
			t.Fatalf("expected beta.shop failed, got %+v", timedOut)
		}
		if timedOut.Error != "registrar request timed out" {
			t.Errorf("expected timeout message, got %q", timedOut.Error)
		}
		if len(f.pending.records) != 1 || f.pending.records[0].DomainName != "beta.shop" {
			t.Errorf("expected pending record for beta.shop, got %+v", f.pending.records)
		}
	})

	t.Run("fails every domain when registrar customer setup fails", func(t *testing.T) {
		f := newFixture(t)
		f.registrar.customerErr = errors.New("registrar unavailable")

		result, err := f.service.Process(ctx, testConfirmation(), testCart(), testCustomer())
		if err != nil {
			t.Fatalf("Process returned error: %v", err)
		}

		if len(result.SuccessfulDomains) != 0 {
			t.Errorf("expected no successful domains, got %v", result.SuccessfulDomains)
		}
		if f.orders.created == nil || f.orders.created.Status != domain.OrderStatusCompleted {
			t.Fatal("order must still be persisted as completed")
		}
		if len(f.pending.records) != 2 {
			t.Errorf("expected a pending record per cart item, got %d", len(f.pending.records))
		}
		for _, record := range f.pending.records {
			if record.CustomerID != "" || record.ContactID != "" {
				t.Errorf("no registrar identity exists, record must not carry one: %+v", record)
			}
		}
		if f.registrar.registerCalls != 0 {
			t.Error("must not attempt registrations without a customer identity")
		}
	})

	t.Run("pending store failure does not fail checkout", func(t *testing.T) {
		f := newFixture(t)
		f.pending.err = errors.New("pending store down")
		f.registrar.results = map[string]*registrar.RegisterResult{
			"alpha.com": {Status: registrar.StatusError, Message: "rejected"},
		}

		result, err := f.service.Process(ctx, testConfirmation(), testCart(), testCustomer())
		if err != nil {
			t.Fatalf("Process returned error: %v", err)
		}
		if result.PerDomainResults[0].Status != domain.DomainStatusFailed {
			t.Errorf("expected alpha.com failed, got %+v", result.PerDomainResults[0])
		}
	})
}
