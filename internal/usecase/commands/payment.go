package commands

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"time"

	"tourism-booking/internal/domain/payment"
	"tourism-booking/internal/domain/reservation"
	"tourism-booking/internal/infra"
	"tourism-booking/internal/pkg/clock"
	"tourism-booking/internal/pkg/errs"
	"tourism-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

const (
	SourceQuery    = "query"
	SourceCallback = "callback"

	lateCompletionNote = "payment completed after the reservation was cancelled; refund required"
	doubleChargeNote   = "payment completed for a reservation that was already paid; refund required"
)

var (
	ErrPaymentNotFound     = errs.Mark(errs.New("payment not found"), errs.ErrNotFound)
	ErrPaymentForbidden    = errs.Mark(errs.New("not allowed to access this payment"), errs.ErrForbidden)
	ErrPaymentNotAllowed   = errs.Mark(errs.New("reservation cannot be paid"), errs.ErrInvalidState)
	ErrAmountMismatch      = errs.Mark(errs.New("reported amount does not match the payment; held for review"), errs.ErrInvalidState)
	ErrInvalidPhoneNumber  = errs.Mark(errs.New("invalid phone number"), errs.ErrValidation)
	ErrCallbackUnauthentic = errs.New("callback token mismatch")
)

// PaymentSettings carries the configuration the engine needs at construction.
type PaymentSettings struct {
	Currency       string
	CountryCode    string
	HoldTTL        time.Duration
	GatewayTimeout time.Duration
	CallbackToken  string
}

type InitiateInput struct {
	ReservationID uuid.UUID
	CallerID      uuid.UUID
	CallerIsAdmin bool
	PhoneNumber   string
}

type InitiateResult struct {
	Payment           *payment.Payment
	CheckoutRequestID string
	CustomerMessage   string
}

type ReconcileResult struct {
	Payment    *payment.Payment
	Resolution payment.Resolution
	// Duplicate: the payment was already terminal and nothing changed.
	Duplicate bool
	Anomaly   bool
}

type PaymentCommands interface {
	Initiate(ctx context.Context, in InitiateInput) (*InitiateResult, error)
	// Reconcile is the single path both the poller and the webhook feed outcomes into.
	Reconcile(ctx context.Context, source string, outcome payment.Outcome) (*ReconcileResult, error)
	CheckStatus(ctx context.Context, checkoutRequestID string, callerID uuid.UUID, callerIsAdmin bool) (*payment.Payment, error)
	// HandleCallback never fails; the provider always gets an acknowledgement.
	HandleCallback(ctx context.Context, body []byte, token string) CallbackAck
}

type paymentUseCaseImpl struct {
	uow          shared.UnitOfWork
	gateway      PaymentGateway
	reservations ReservationCommands
	clock        clock.Clock
	metrics      Metrics
	settings     PaymentSettings
}

func NewPaymentUseCase(
	uow shared.UnitOfWork,
	gateway PaymentGateway,
	reservations ReservationCommands,
	clock clock.Clock,
	metrics Metrics,
	settings PaymentSettings,
) PaymentCommands {
	if metrics == nil {
		metrics = NoopMetrics()
	}
	return &paymentUseCaseImpl{
		uow:          uow,
		gateway:      gateway,
		reservations: reservations,
		clock:        clock,
		metrics:      metrics,
		settings:     settings,
	}
}

func (p *paymentUseCaseImpl) Initiate(ctx context.Context, in InitiateInput) (*InitiateResult, error) {
	reads := p.uow.CommandReads()

	res, err := reads.ReservationByID(ctx, in.ReservationID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	if !in.CallerIsAdmin && !res.IsOwnedBy(in.CallerID) {
		return nil, ErrPaymentForbidden
	}
	if err := res.CanInitiatePayment(); err != nil {
		return nil, errs.Mark(err, ErrPaymentNotAllowed)
	}

	phone, err := payment.NormalizePhone(in.PhoneNumber, p.settings.CountryCode)
	if err != nil {
		return nil, errs.Mark(err, ErrInvalidPhoneNumber)
	}

	snapshot, err := reads.ResourceByID(ctx, res.ResourceID())
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrResourceNotFound
		}
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}

	// No transaction is open while the provider is called.
	gwCtx, cancel := p.gatewayContext(ctx)
	push, err := p.gateway.InitiatePush(gwCtx, PushRequest{
		Phone:       phone,
		Amount:      res.TotalPrice(),
		Reference:   fmt.Sprintf("Booking-%s", res.ID()),
		Description: fmt.Sprintf("Payment for %s", snapshot.Name),
	})
	cancel()
	if err != nil {
		p.metrics.PaymentInitiated(false)
		slog.Warn("payment initiation failed",
			"reservation_id", res.ID(),
			"error", err.Error())
		return nil, errs.Mark(errs.Wrap(err, "initiate payment"), errs.ErrPaymentInitiationFailed)
	}

	var created *payment.Payment
	err = p.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		now := p.clock.Now()
		entity, err := payment.NewPayment(
			res.ID(), res.UserID(),
			res.TotalPrice(),
			p.settings.Currency,
			payment.MethodMpesa,
			phone, push.MerchantRequestID, push.CheckoutRequestID,
			now,
		)
		if err != nil {
			return errs.Mark(err, errs.ErrPaymentInitiationFailed)
		}
		if err := tx.Payments().Create(ctx, entity); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}

		locked, err := findForUpdate(ctx, tx, res.ID())
		if err != nil {
			return err
		}
		if locked.LifecycleState() == reservation.LifecyclePending {
			locked.ExtendHold(now.Add(p.settings.HoldTTL))
			if err := tx.Reservations().Update(ctx, locked); err != nil {
				return errs.Mark(err, errs.ErrDatabaseOperationFailed)
			}
		}
		created = entity
		return nil
	})
	if err != nil {
		p.metrics.PaymentInitiated(false)
		slog.Error("accepted push could not be recorded",
			"reservation_id", res.ID(),
			"checkout_request_id", push.CheckoutRequestID,
			"error", err.Error())
		return nil, err
	}

	p.metrics.PaymentInitiated(true)
	return &InitiateResult{
		Payment:           created,
		CheckoutRequestID: push.CheckoutRequestID,
		CustomerMessage:   push.CustomerMessage,
	}, nil
}

func (p *paymentUseCaseImpl) Reconcile(ctx context.Context, source string, outcome payment.Outcome) (*ReconcileResult, error) {
	var result *ReconcileResult
	err := p.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		result = nil
		now := p.clock.Now()

		entity, err := tx.Payments().FindByCheckoutIDForUpdate(ctx, outcome.CheckoutRequestID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return ErrPaymentNotFound
			}
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}

		resolution, err := entity.Apply(outcome, now)
		if err != nil {
			return errs.Mark(err, errs.ErrInvalidState)
		}
		r := &ReconcileResult{
			Payment:    entity,
			Resolution: resolution,
			Duplicate:  !resolution.Transitioned() && resolution != payment.ResolutionAmountMismatch,
			Anomaly:    resolution.IsAnomaly(),
		}

		switch resolution {
		case payment.ResolutionDuplicate, payment.ResolutionContradiction:
			result = r
			return nil
		case payment.ResolutionCompleted:
			if err := p.confirmReservation(ctx, tx, entity, r, now); err != nil {
				return err
			}
		}

		if err := tx.Payments().Update(ctx, entity); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.metrics.PaymentReconciled(source, result.Resolution)
	logReconciliation(source, outcome, result)
	return result, nil
}

// confirmReservation either confirms the booking or, when it was already released
// or already paid by another attempt, flags the completed payment for a refund.
func (p *paymentUseCaseImpl) confirmReservation(ctx context.Context, tx shared.Tx, entity *payment.Payment, r *ReconcileResult, now time.Time) error {
	_, err := p.reservations.Confirm(ctx, tx, entity.ReservationID())
	switch {
	case err == nil:
	case errs.Is(err, reservation.ErrReservationCancelled):
		entity.FlagForReview(lateCompletionNote, now)
		r.Anomaly = true
		return nil
	case errs.Is(err, reservation.ErrAlreadyPaid):
		entity.FlagForReview(doubleChargeNote, now)
		r.Anomaly = true
		return nil
	default:
		return err
	}

	var receipt string
	if entity.ReceiptID() != nil {
		receipt = *entity.ReceiptID()
	}
	paymentID := entity.ID()
	return enqueueNotification(ctx, tx, shared.TopicPaymentConfirmed, shared.NotificationPayload{
		ReservationID: entity.ReservationID(),
		UserID:        entity.UserID(),
		PaymentID:     &paymentID,
		ReceiptID:     receipt,
	}, now)
}

func (p *paymentUseCaseImpl) CheckStatus(ctx context.Context, checkoutRequestID string, callerID uuid.UUID, callerIsAdmin bool) (*payment.Payment, error) {
	entity, err := p.uow.CommandReads().PaymentByCheckoutID(ctx, checkoutRequestID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	if !callerIsAdmin && !entity.IsOwnedBy(callerID) {
		return nil, ErrPaymentForbidden
	}
	if entity.Status().IsTerminal() {
		return entity, nil
	}

	gwCtx, cancel := p.gatewayContext(ctx)
	status, err := p.gateway.QueryStatus(gwCtx, checkoutRequestID)
	cancel()
	if err != nil {
		return nil, errs.Wrap(err, "query payment status")
	}
	if status.Processing {
		return entity, nil
	}

	outcome := status.Outcome
	outcome.CheckoutRequestID = checkoutRequestID
	result, err := p.Reconcile(ctx, SourceQuery, outcome)
	if err != nil {
		return nil, err
	}
	if result.Resolution == payment.ResolutionAmountMismatch {
		return nil, ErrAmountMismatch
	}
	return result.Payment, nil
}

func (p *paymentUseCaseImpl) HandleCallback(ctx context.Context, body []byte, token string) CallbackAck {
	if p.settings.CallbackToken != "" &&
		subtle.ConstantTimeCompare([]byte(token), []byte(p.settings.CallbackToken)) != 1 {
		slog.Warn("payment callback ignored", "error", ErrCallbackUnauthentic.Error())
		return SuccessAck
	}

	outcome, err := p.gateway.ParseCallback(body)
	if err != nil {
		slog.Warn("payment callback could not be parsed", "error", err.Error())
		return SuccessAck
	}

	if _, err := p.Reconcile(ctx, SourceCallback, outcome); err != nil {
		level := slog.LevelError
		if errs.Is(err, errs.ErrNotFound) {
			level = slog.LevelWarn
		}
		slog.Log(ctx, level, "payment callback not reconciled",
			"checkout_request_id", outcome.CheckoutRequestID,
			"error", err.Error())
	}
	return SuccessAck
}

func (p *paymentUseCaseImpl) gatewayContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.settings.GatewayTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.settings.GatewayTimeout)
}

func logReconciliation(source string, outcome payment.Outcome, r *ReconcileResult) {
	attrs := []any{
		"source", source,
		"checkout_request_id", outcome.CheckoutRequestID,
		"payment_id", r.Payment.ID(),
		"resolution", r.Resolution.String(),
		"status", r.Payment.Status().String(),
	}
	if r.Anomaly {
		if note := r.Payment.ReviewNote(); note != nil {
			attrs = append(attrs, "review_note", *note)
		}
		slog.Warn("payment reconciliation anomaly", attrs...)
		return
	}
	slog.Info("payment reconciled", attrs...)
}
