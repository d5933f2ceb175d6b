// Package checkout orchestrates the work that happens after a payment gateway
// confirms a charge: verifying the payment, registering each cart domain with
// the registrar, and persisting the order with per-domain outcomes. Money has
// already moved by the time this code runs, so the orchestrator must never
// double-register a charge and must never silently lose a paid-for domain.
package checkout

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/PawanKumar-Dev/domainflow/internal/domain"
	"github.com/PawanKumar-Dev/domainflow/internal/eligibility"
	"github.com/PawanKumar-Dev/domainflow/internal/orders"
	"github.com/PawanKumar-Dev/domainflow/internal/payment"
	"github.com/PawanKumar-Dev/domainflow/internal/registrar"
	"github.com/PawanKumar-Dev/domainflow/internal/telemetry"
)

var tracer = otel.Tracer("checkout")

const defaultConcurrency = 4

// Verifier validates a payment confirmation against the gateway.
type Verifier interface {
	Verify(ctx context.Context, conf payment.Confirmation, items []domain.CartItem) (*payment.VerifiedCharge, error)
}

// Registrar is the domain registrar boundary.
type Registrar interface {
	GetOrCreateCustomer(ctx context.Context, customer domain.Customer) (registrar.Identity, error)
	RegisterDomain(ctx context.Context, req registrar.RegisterRequest) (*registrar.RegisterResult, error)
}

// OrderStore persists order aggregates. Create must reject a duplicate
// gateway charge id with orders.ErrDuplicateCharge.
type OrderStore interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByChargeID(ctx context.Context, gatewayChargeID string) (*domain.Order, error)
}

// PendingStore records failed registrations for manual recovery.
type PendingStore interface {
	Create(ctx context.Context, record *domain.PendingDomain) error
}

// RejectionStore records restricted-cart rejections of captured charges.
type RejectionStore interface {
	Create(ctx context.Context, rejection *domain.CheckoutRejection) error
}

// Notifier fires post-checkout notifications. Implementations must not fail
// the checkout; errors stay inside the notifier.
type Notifier interface {
	OrderCompleted(ctx context.Context, order *domain.Order)
}

type ServiceConfig struct {
	Verifier    Verifier
	Eligibility *eligibility.Filter
	Registrar   Registrar
	Orders      OrderStore
	Pending     PendingStore
	Rejections  RejectionStore
	Notifier    Notifier
	Metrics     *telemetry.CheckoutMetrics
	Logger      *slog.Logger

	// SupportContact is included in rejection responses so customers with a
	// captured-but-unfulfillable payment know where to go.
	SupportContact string

	// Concurrency bounds the per-item registrar fan-out. Zero means default.
	Concurrency int
}

type Service struct {
	verifier       Verifier
	eligibility    *eligibility.Filter
	registrar      Registrar
	orders         OrderStore
	pending        PendingStore
	rejections     RejectionStore
	notifier       Notifier
	metrics        *telemetry.CheckoutMetrics
	logger         *slog.Logger
	supportContact string
	concurrency    int
}

func NewService(cfg ServiceConfig) *Service {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Service{
		verifier:       cfg.Verifier,
		eligibility:    cfg.Eligibility,
		registrar:      cfg.Registrar,
		orders:         cfg.Orders,
		pending:        cfg.Pending,
		rejections:     cfg.Rejections,
		notifier:       cfg.Notifier,
		metrics:        cfg.Metrics,
		logger:         cfg.Logger,
		supportContact: cfg.SupportContact,
		concurrency:    concurrency,
	}
}

// Process runs the full payment-confirmed registration workflow. It is safe
// to call any number of times with the same gateway charge id: at most one
// order is ever created, and replays return the recorded result.
func (s *Service) Process(ctx context.Context, conf payment.Confirmation, items []domain.CartItem, customer domain.Customer) (*OrderResult, error) {
	ctx, span := tracer.Start(ctx, "checkout.process")
	defer span.End()

	verified, err := s.verifier.Verify(ctx, conf, items)
	if err != nil {
		s.metrics.RecordOrder(ctx, "verification_failed")
		return nil, fromVerification(err)
	}

	// Cheap pre-flight; the unique constraint on gateway_charge_id at insert
	// time is the actual correctness mechanism.
	existing, err := s.orders.GetByChargeID(ctx, conf.GatewayChargeID)
	if err != nil {
		// Nothing has been registered yet, so this is an ordinary store
		// outage, not a lost-order persistence failure.
		return nil, newError(KindStoreUnavailable, "order store lookup failed", err)
	}
	if existing != nil {
		s.metrics.RecordIdempotentReplay(ctx)
		s.logger.Info("duplicate charge replayed from existing order",
			"gateway_charge_id", conf.GatewayChargeID, "order_id", existing.ID)
		return ResultFromOrder(existing), nil
	}

	if restricted := s.eligibility.Check(items); len(restricted) > 0 {
		s.recordRejection(ctx, conf, customer, restricted)
		s.metrics.RecordOrder(ctx, "restricted")
		return nil, &Error{
			Kind:              KindRestrictedDomain,
			Message:           "cart contains domains that require manual verification",
			RestrictedDomains: restricted,
			SupportContact:    s.supportContact,
		}
	}

	// The payment is captured. From here on a client disconnect must not
	// abandon the work, or a paid-for purchase is silently lost.
	ctx = context.WithoutCancel(ctx)

	outcomes, identity := s.registerAll(ctx, items, customer)

	order := &domain.Order{
		GatewayChargeID: conf.GatewayChargeID,
		GatewayOrderID:  conf.GatewayOrderID,
		CustomerEmail:   customer.Email,
		CustomerName:    customer.Name,
		Amount:          verified.Amount,
		Currency:        verified.Currency,
		// Business policy, not an oversight: payment succeeded, so the order
		// is completed regardless of per-domain outcomes. Failures live on
		// the outcomes and their pending records.
		Status:            domain.OrderStatusCompleted,
		Domains:           outcomes,
		SuccessfulDomains: successfulNames(outcomes),
		Payment: domain.PaymentSnapshot{
			VerifiedAt:      verified.VerifiedAt,
			GatewayStatus:   verified.Status,
			GatewayAmount:   verified.Amount,
			GatewayCurrency: verified.Currency,
		},
	}

	if err := s.orders.Create(ctx, order); err != nil {
		if errors.Is(err, orders.ErrDuplicateCharge) {
			return s.replayWinner(ctx, conf.GatewayChargeID, err)
		}
		s.metrics.RecordPersistenceFailure(ctx)
		s.logger.Error("order persistence failed after payment capture",
			"error", err, "gateway_charge_id", conf.GatewayChargeID)
		return nil, newError(KindPersistenceFailure,
			"payment captured but the order could not be persisted", err)
	}

	s.createPendingRecords(ctx, order, customer, identity)

	if s.notifier != nil {
		s.notifier.OrderCompleted(ctx, order)
	}

	s.metrics.RecordOrder(ctx, "completed")
	s.logger.Info("order processed",
		"order_id", order.ID,
		"invoice_number", order.InvoiceNumber,
		"gateway_charge_id", order.GatewayChargeID,
		"registered", len(order.SuccessfulDomains),
		"failed", len(order.Domains)-len(order.SuccessfulDomains))

	return ResultFromOrder(order), nil
}

// registerAll resolves the registrar identity once, then fans out one
// registration per cart item. Failures are isolated per item and converted to
// failed outcomes; the final slice always matches cart order. The resolved
// identity is returned so pending records can carry it; it is zero when
// customer setup itself failed.
func (s *Service) registerAll(ctx context.Context, items []domain.CartItem, customer domain.Customer) ([]domain.DomainOutcome, registrar.Identity) {
	identity, err := s.registrar.GetOrCreateCustomer(ctx, customer)
	if err != nil {
		s.logger.Error("registrar customer setup failed", "error", err, "email", customer.Email)
		outcomes := make([]domain.DomainOutcome, len(items))
		for i, item := range items {
			outcomes[i] = failedOutcome(item, "registrar customer setup failed: "+err.Error())
			s.metrics.RecordRegistration(ctx, string(domain.DomainStatusFailed))
		}
		return outcomes, registrar.Identity{}
	}

	outcomes := make([]domain.DomainOutcome, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, item := range items {
		g.Go(func() error {
			outcomes[i] = s.registerOne(gctx, identity, item)
			return nil
		})
	}
	// Goroutines only report outcomes, never errors.
	_ = g.Wait()

	return outcomes, identity
}

func (s *Service) registerOne(ctx context.Context, identity registrar.Identity, item domain.CartItem) domain.DomainOutcome {
	outcome := domain.DomainOutcome{
		DomainName: item.DomainName,
		Price:      item.Price,
		Currency:   item.Currency,
		Period:     item.Period,
		Events: []domain.StatusEvent{{
			Step:      "registrar_submit",
			Message:   "registration submitted to registrar",
			Progress:  25,
			Timestamp: time.Now().UTC(),
		}},
	}

	result, err := s.registrar.RegisterDomain(ctx, registrar.RegisterRequest{
		DomainName:       item.DomainName,
		Years:            item.Period,
		CustomerID:       identity.CustomerID,
		AdminContactID:   identity.ContactID,
		TechContactID:    identity.ContactID,
		BillingContactID: identity.ContactID,
	})

	switch {
	case err != nil:
		message := "registrar request failed: " + err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			message = "registrar request timed out"
		}
		outcome.Status = domain.DomainStatusFailed
		outcome.Error = message
		outcome.Events = append(outcome.Events, statusEvent("registrar_result", message))
		s.logger.Error("domain registration failed", "domain", item.DomainName, "error", err)

	case result.Status == registrar.StatusSuccess:
		outcome.Status = domain.DomainStatusRegistered
		outcome.RegistrarOrderID = result.RegistrarOrderID
		outcome.ExpiresAt = result.ExpiresAt
		outcome.Events = append(outcome.Events, statusEvent("registrar_result", "domain registered"))
		s.logger.Info("domain registered", "domain", item.DomainName, "registrar_order_id", result.RegistrarOrderID)

	default:
		message := result.Message
		if message == "" {
			message = "registration rejected by registrar"
		}
		outcome.Status = domain.DomainStatusFailed
		outcome.Error = message
		outcome.Events = append(outcome.Events, statusEvent("registrar_result", message))
		s.logger.Error("domain registration rejected", "domain", item.DomainName, "reason", message)
	}

	s.metrics.RecordRegistration(ctx, string(outcome.Status))
	return outcome
}

// replayWinner handles losing the insert race: another run already created
// the order for this charge, so return its recorded result.
func (s *Service) replayWinner(ctx context.Context, gatewayChargeID string, cause error) (*OrderResult, error) {
	winner, err := s.orders.GetByChargeID(ctx, gatewayChargeID)
	if err != nil || winner == nil {
		return nil, newError(KindDuplicateCharge,
			"charge was processed concurrently but the existing order could not be read", cause)
	}
	s.metrics.RecordIdempotentReplay(ctx)
	s.logger.Info("lost duplicate-insert race, replaying winning order",
		"gateway_charge_id", gatewayChargeID, "order_id", winner.ID)
	return ResultFromOrder(winner), nil
}

// createPendingRecords escalates every failed outcome into a recovery record.
// The registrar identity travels with each record so a manual retry does not
// have to re-resolve the customer. A pending-store failure is logged only;
// the order itself is already durable and remains the primary audit trail.
func (s *Service) createPendingRecords(ctx context.Context, order *domain.Order, customer domain.Customer, identity registrar.Identity) {
	for _, outcome := range order.Domains {
		if outcome.Status != domain.DomainStatusFailed {
			continue
		}
		record := &domain.PendingDomain{
			OrderID:    order.ID,
			DomainName: outcome.DomainName,
			Price:      outcome.Price,
			Currency:   outcome.Currency,
			Period:     outcome.Period,
			CustomerID: identity.CustomerID,
			ContactID:  identity.ContactID,
			UserEmail:  customer.Email,
			Reason:     outcome.Error,
		}
		if err := s.pending.Create(ctx, record); err != nil {
			s.logger.Error("failed to create pending domain record",
				"error", err, "order_id", order.ID, "domain", outcome.DomainName)
			continue
		}
		s.logger.Info("pending domain record created",
			"pending_id", record.ID, "order_id", order.ID, "domain", outcome.DomainName)
	}
}

func (s *Service) recordRejection(ctx context.Context, conf payment.Confirmation, customer domain.Customer, restricted []domain.RestrictedDomain) {
	rejection := &domain.CheckoutRejection{
		GatewayChargeID:   conf.GatewayChargeID,
		GatewayOrderID:    conf.GatewayOrderID,
		UserEmail:         customer.Email,
		Reason:            "restricted TLD in cart",
		RestrictedDomains: restricted,
	}
	if err := s.rejections.Create(ctx, rejection); err != nil {
		s.logger.Error("failed to record checkout rejection",
			"error", err, "gateway_charge_id", conf.GatewayChargeID)
		return
	}
	s.logger.Warn("checkout rejected for restricted domains",
		"gateway_charge_id", conf.GatewayChargeID, "restricted", len(restricted))
}

func successfulNames(outcomes []domain.DomainOutcome) []string {
	names := []string{}
	for _, outcome := range outcomes {
		if outcome.Status == domain.DomainStatusRegistered {
			names = append(names, outcome.DomainName)
		}
	}
	return names
}

func failedOutcome(item domain.CartItem, message string) domain.DomainOutcome {
	return domain.DomainOutcome{
		DomainName: item.DomainName,
		Price:      item.Price,
		Currency:   item.Currency,
		Period:     item.Period,
		Status:     domain.DomainStatusFailed,
		Error:      message,
		Events:     []domain.StatusEvent{statusEvent("registrar_submit", message)},
	}
}

func statusEvent(step, message string) domain.StatusEvent {
	return domain.StatusEvent{
		Step:      step,
		Message:   message,
		Progress:  100,
		Timestamp: time.Now().UTC(),
	}
}
