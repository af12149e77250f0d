//go:build unit

package commands_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"tourism-booking/internal/domain/money"
	"tourism-booking/internal/domain/payment"
	"tourism-booking/internal/domain/reservation"
	"tourism-booking/internal/pkg/clock"
	"tourism-booking/internal/pkg/errs"
	"tourism-booking/internal/usecase/commands"
	"tourism-booking/internal/usecase/shared"
	"tourism-booking/tests/common/builder"
	"tourism-booking/tests/common/memstore"
	commandsmock "tourism-booking/tests/mock/commands"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const callbackToken = "cb-secret"

type engineFixture struct {
	store    *memstore.Store
	clock    *clock.MockClock
	gateway  *commandsmock.MockPaymentGateway
	uc       commands.PaymentCommands
	resource shared.ResourceSnapshot
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	store := memstore.New()
	clk := clock.NewMockClock(testNow)
	gw := commandsmock.NewMockPaymentGateway(ctrl)

	factory := reservation.NewFactory(clk, reservation.NewNightlyPriceCalculator(), 30*time.Minute)
	allocator := commands.NewReservationUseCase(store, factory, clk, nil)

	res := builder.NewResourceBuilder().BuildSnapshot()
	store.AddResource(res)

	return &engineFixture{
		store:   store,
		clock:   clk,
		gateway: gw,
		uc: commands.NewPaymentUseCase(store, gw, allocator, clk, nil, commands.PaymentSettings{
			Currency:       "KES",
			CountryCode:    "254",
			HoldTTL:        30 * time.Minute,
			GatewayTimeout: time.Second,
			CallbackToken:  callbackToken,
		}),
		resource: res,
	}
}

func (f *engineFixture) seedReservation(mutate ...func(b *builder.ReservationBuilder)) *reservation.Reservation {
	b := builder.NewReservationBuilder()
	b.ResourceID = f.resource.ID
	b.HoldExpiresAt = testNow.Add(10 * time.Minute)
	for _, m := range mutate {
		m(b)
	}
	r := b.BuildDomain()
	f.store.PutReservation(r)
	return r
}

func (f *engineFixture) seedPayment(r *reservation.Reservation, mutate ...func(b *builder.PaymentBuilder)) *payment.Payment {
	b := builder.NewPaymentBuilder().ForReservation(r.ID(), r.UserID(), r.TotalPrice().Cents())
	for _, m := range mutate {
		m(b)
	}
	p := b.BuildDomain()
	f.store.PutPayment(p)
	return p
}

func success(checkoutID string, receipt string, amountUnits float64) payment.Outcome {
	amt := money.FromUnits(amountUnits)
	at := testNow.Add(-time.Minute)
	return payment.Outcome{
		CheckoutRequestID: checkoutID,
		Success:           true,
		ReceiptID:         receipt,
		TransactionAt:     &at,
		Amount:            &amt,
		Phone:             "254712345678",
	}
}

func failure(checkoutID, reason string) payment.Outcome {
	return payment.Outcome{CheckoutRequestID: checkoutID, ResultCode: 1032, FailureReason: reason}
}

// =============================================================================
// Initiate Tests
// =============================================================================

func TestPaymentCommands_Initiate(t *testing.T) {
	ctx := context.Background()

	t.Run("success: push accepted, pending payment recorded, hold extended", func(t *testing.T) {
		f := newEngineFixture(t)
		r := f.seedReservation()

		f.gateway.EXPECT().InitiatePush(gomock.Any(), commands.PushRequest{
			Phone:       "254712345678",
			Amount:      r.TotalPrice(),
			Reference:   "Booking-" + r.ID().String(),
			Description: "Payment for " + f.resource.Name,
		}).Return(&commands.PushResponse{
			MerchantRequestID: "m-1",
			CheckoutRequestID: "ws_CO_1",
			CustomerMessage:   "Success. Request accepted for processing",
		}, nil)

		got, err := f.uc.Initiate(ctx, commands.InitiateInput{
			ReservationID: r.ID(),
			CallerID:      r.UserID(),
			PhoneNumber:   "0712 345 678",
		})

		require.NoError(t, err)
		assert.Equal(t, "ws_CO_1", got.CheckoutRequestID)
		assert.Equal(t, payment.StatusPending, got.Payment.Status())

		stored, ok := f.store.Payment("ws_CO_1")
		require.True(t, ok)
		assert.Equal(t, "m-1", stored.MerchantRequestID())
		assert.Equal(t, r.TotalPrice(), stored.Amount())
		assert.Equal(t, "254712345678", stored.PhoneNumber())
		assert.Equal(t, "KES", stored.Currency())

		held, _ := f.store.Reservation(r.ID())
		assert.Equal(t, testNow.Add(30*time.Minute), held.HoldExpiresAt())
	})

	t.Run("success: admin may initiate for another user", func(t *testing.T) {
		f := newEngineFixture(t)
		r := f.seedReservation()
		f.gateway.EXPECT().InitiatePush(gomock.Any(), gomock.Any()).
			Return(&commands.PushResponse{MerchantRequestID: "m-2", CheckoutRequestID: "ws_CO_2"}, nil)

		got, err := f.uc.Initiate(ctx, commands.InitiateInput{
			ReservationID: r.ID(),
			CallerID:      uuid.New(),
			CallerIsAdmin: true,
			PhoneNumber:   "+254712345678",
		})

		require.NoError(t, err)
		assert.Equal(t, r.UserID(), got.Payment.UserID())
	})

	t.Run("error: gateway failure persists nothing and keeps the cause", func(t *testing.T) {
		f := newEngineFixture(t)
		r := f.seedReservation()
		f.gateway.EXPECT().InitiatePush(gomock.Any(), gomock.Any()).
			Return(nil, errs.MarkAll(errs.New("deadline"), errs.ErrTimeout))

		_, err := f.uc.Initiate(ctx, commands.InitiateInput{ReservationID: r.ID(), CallerID: r.UserID(), PhoneNumber: "0712345678"})

		require.Error(t, err)
		assert.True(t, errs.Is(err, errs.ErrPaymentInitiationFailed))
		assert.True(t, errs.Is(err, errs.ErrTimeout))
		assert.True(t, errs.IsRetryable(err))
		assert.Equal(t, 0, f.store.PaymentCount())

		held, _ := f.store.Reservation(r.ID())
		assert.Equal(t, r.HoldExpiresAt(), held.HoldExpiresAt())
	})

	testCases := []struct {
		name     string
		seed     func(b *builder.ReservationBuilder)
		caller   func(r *reservation.Reservation) uuid.UUID
		phone    string
		wantKind error
	}{
		{
			name:     "error: other user",
			caller:   func(*reservation.Reservation) uuid.UUID { return uuid.New() },
			phone:    "0712345678",
			wantKind: errs.ErrForbidden,
		},
		{
			name:     "error: already paid",
			seed:     func(b *builder.ReservationBuilder) { b.AsPaid() },
			phone:    "0712345678",
			wantKind: errs.ErrInvalidState,
		},
		{
			name:     "error: cancelled reservation",
			seed:     func(b *builder.ReservationBuilder) { b.AsCancelled("changed plans") },
			phone:    "0712345678",
			wantKind: errs.ErrInvalidState,
		},
		{
			name:     "error: malformed phone",
			phone:    "12ab",
			wantKind: errs.ErrValidation,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newEngineFixture(t)
			var mutates []func(b *builder.ReservationBuilder)
			if tc.seed != nil {
				mutates = append(mutates, tc.seed)
			}
			r := f.seedReservation(mutates...)
			caller := r.UserID()
			if tc.caller != nil {
				caller = tc.caller(r)
			}

			_, err := f.uc.Initiate(ctx, commands.InitiateInput{ReservationID: r.ID(), CallerID: caller, PhoneNumber: tc.phone})

			require.Error(t, err)
			assert.True(t, errs.Is(err, tc.wantKind), "got %v", err)
			assert.Equal(t, 0, f.store.PaymentCount())
		})
	}

	t.Run("error: unknown reservation", func(t *testing.T) {
		f := newEngineFixture(t)
		_, err := f.uc.Initiate(ctx, commands.InitiateInput{ReservationID: uuid.New(), CallerID: uuid.New(), PhoneNumber: "0712345678"})
		assert.True(t, errs.Is(err, errs.ErrNotFound))
	})
}

// =============================================================================
// Reconcile Tests
// =============================================================================

func TestPaymentCommands_Reconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("success: completes payment and confirms reservation", func(t *testing.T) {
		f := newEngineFixture(t)
		r := f.seedReservation()
		p := f.seedPayment(r)

		got, err := f.uc.Reconcile(ctx, commands.SourceCallback, success(p.CheckoutRequestID(), "NLJ7RT61SV", 300))

		require.NoError(t, err)
		assert.Equal(t, payment.ResolutionCompleted, got.Resolution)
		assert.False(t, got.Duplicate)
		assert.False(t, got.Anomaly)

		stored, _ := f.store.Payment(p.CheckoutRequestID())
		assert.Equal(t, payment.StatusCompleted, stored.Status())
		assert.Equal(t, "NLJ7RT61SV", *stored.ReceiptID())
		assert.Equal(t, "254712345678", *stored.ReportedPhone())

		res, _ := f.store.Reservation(r.ID())
		assert.Equal(t, reservation.PaymentPaid, res.PaymentState())
		assert.Equal(t, reservation.LifecycleConfirmed, res.LifecycleState())

		jobs := f.store.Jobs(shared.TopicPaymentConfirmed)
		require.Len(t, jobs, 1)
		assert.Contains(t, string(jobs[0].Payload), "NLJ7RT61SV")
	})

	t.Run("success: failure outcome leaves the reservation untouched", func(t *testing.T) {
		f := newEngineFixture(t)
		r := f.seedReservation()
		p := f.seedPayment(r)

		got, err := f.uc.Reconcile(ctx, commands.SourceQuery, failure(p.CheckoutRequestID(), "Request cancelled by user"))

		require.NoError(t, err)
		assert.Equal(t, payment.ResolutionFailed, got.Resolution)

		stored, _ := f.store.Payment(p.CheckoutRequestID())
		assert.Equal(t, payment.StatusFailed, stored.Status())
		assert.Equal(t, "Request cancelled by user", *stored.FailureReason())

		res, _ := f.store.Reservation(r.ID())
		assert.Equal(t, reservation.PaymentUnpaid, res.PaymentState())
		assert.Equal(t, reservation.LifecyclePending, res.LifecycleState())
		assert.Empty(t, f.store.Jobs(shared.TopicPaymentConfirmed))
	})

	t.Run("success: duplicate success applies once", func(t *testing.T) {
		f := newEngineFixture(t)
		r := f.seedReservation()
		p := f.seedPayment(r)
		o := success(p.CheckoutRequestID(), "NLJ7RT61SV", 300)

		_, err := f.uc.Reconcile(ctx, commands.SourceCallback, o)
		require.NoError(t, err)
		f.clock.Add(time.Minute)
		second, err := f.uc.Reconcile(ctx, commands.SourceQuery, o)

		require.NoError(t, err)
		assert.True(t, second.Duplicate)
		assert.False(t, second.Anomaly)
		assert.Len(t, f.store.Jobs(shared.TopicPaymentConfirmed), 1)

		stored, _ := f.store.Payment(p.CheckoutRequestID())
		assert.Equal(t, testNow, stored.UpdatedAt())
	})

	t.Run("success: contradicting outcome is recorded as anomaly without change", func(t *testing.T) {
		f := newEngineFixture(t)
		r := f.seedReservation()
		p := f.seedPayment(r)

		_, err := f.uc.Reconcile(ctx, commands.SourceCallback, success(p.CheckoutRequestID(), "NLJ7RT61SV", 300))
		require.NoError(t, err)
		got, err := f.uc.Reconcile(ctx, commands.SourceQuery, failure(p.CheckoutRequestID(), "DS timeout"))

		require.NoError(t, err)
		assert.Equal(t, payment.ResolutionContradiction, got.Resolution)
		assert.True(t, got.Duplicate)
		assert.True(t, got.Anomaly)

		stored, _ := f.store.Payment(p.CheckoutRequestID())
		assert.Equal(t, payment.StatusCompleted, stored.Status())
		res, _ := f.store.Reservation(r.ID())
		assert.Equal(t, reservation.PaymentPaid, res.PaymentState())
	})

	t.Run("success: amount mismatch keeps payment pending with review note", func(t *testing.T) {
		f := newEngineFixture(t)
		r := f.seedReservation()
		p := f.seedPayment(r)

		got, err := f.uc.Reconcile(ctx, commands.SourceCallback, success(p.CheckoutRequestID(), "NLJ7RT61SV", 1))

		require.NoError(t, err)
		assert.Equal(t, payment.ResolutionAmountMismatch, got.Resolution)
		assert.True(t, got.Anomaly)
		assert.False(t, got.Duplicate)

		stored, _ := f.store.Payment(p.CheckoutRequestID())
		assert.Equal(t, payment.StatusPending, stored.Status())
		require.NotNil(t, stored.ReviewNote())
		res, _ := f.store.Reservation(r.ID())
		assert.Equal(t, reservation.PaymentUnpaid, res.PaymentState())
	})

	t.Run("success: completion after hold release is flagged, reservation stays cancelled", func(t *testing.T) {
		f := newEngineFixture(t)
		r := f.seedReservation(func(b *builder.ReservationBuilder) { b.AsCancelled(reservation.HoldExpiredReason) })
		p := f.seedPayment(r)

		got, err := f.uc.Reconcile(ctx, commands.SourceCallback, success(p.CheckoutRequestID(), "NLJ7RT61SV", 300))

		require.NoError(t, err)
		assert.Equal(t, payment.ResolutionCompleted, got.Resolution)
		assert.True(t, got.Anomaly)

		stored, _ := f.store.Payment(p.CheckoutRequestID())
		assert.Equal(t, payment.StatusCompleted, stored.Status())
		require.NotNil(t, stored.ReviewNote())

		res, _ := f.store.Reservation(r.ID())
		assert.Equal(t, reservation.LifecycleCancelled, res.LifecycleState())
		assert.Equal(t, reservation.PaymentUnpaid, res.PaymentState())
		assert.Empty(t, f.store.Jobs(shared.TopicPaymentConfirmed))
	})

	t.Run("success: second charge on a paid reservation is flagged for refund", func(t *testing.T) {
		f := newEngineFixture(t)
		r := f.seedReservation()
		first := f.seedPayment(r)
		second := f.seedPayment(r)

		_, err := f.uc.Reconcile(ctx, commands.SourceCallback, success(first.CheckoutRequestID(), "NLJ7RT61SV", 300))
		require.NoError(t, err)
		got, err := f.uc.Reconcile(ctx, commands.SourceCallback, success(second.CheckoutRequestID(), "NLJ7RT62TW", 300))

		require.NoError(t, err)
		assert.Equal(t, payment.ResolutionCompleted, got.Resolution)
		assert.True(t, got.Anomaly)

		stored, _ := f.store.Payment(second.CheckoutRequestID())
		assert.Equal(t, payment.StatusCompleted, stored.Status())
		require.NotNil(t, stored.ReviewNote())
		assert.Contains(t, *stored.ReviewNote(), "already paid")

		kept, _ := f.store.Payment(first.CheckoutRequestID())
		assert.Nil(t, kept.ReviewNote())
		res, _ := f.store.Reservation(r.ID())
		assert.Equal(t, reservation.PaymentPaid, res.PaymentState())
		assert.Len(t, f.store.Jobs(shared.TopicPaymentConfirmed), 1)
	})

	t.Run("success: success without amount is held for review", func(t *testing.T) {
		f := newEngineFixture(t)
		r := f.seedReservation()
		p := f.seedPayment(r)
		o := success(p.CheckoutRequestID(), "NLJ7RT61SV", 300)
		o.Amount = nil

		got, err := f.uc.Reconcile(ctx, commands.SourceCallback, o)

		require.NoError(t, err)
		assert.Equal(t, payment.ResolutionAmountMismatch, got.Resolution)
		assert.True(t, got.Anomaly)
		stored, _ := f.store.Payment(p.CheckoutRequestID())
		assert.Equal(t, payment.StatusPending, stored.Status())
		res, _ := f.store.Reservation(r.ID())
		assert.Equal(t, reservation.PaymentUnpaid, res.PaymentState())
		assert.Empty(t, f.store.Jobs(shared.TopicPaymentConfirmed))
	})

	t.Run("error: unknown checkout id", func(t *testing.T) {
		f := newEngineFixture(t)
		_, err := f.uc.Reconcile(ctx, commands.SourceCallback, success("ws_CO_missing", "X", 1))
		assert.True(t, errs.Is(err, errs.ErrNotFound))
	})

	t.Run("error: failed commit leaves no partial state", func(t *testing.T) {
		f := newEngineFixture(t)
		r := f.seedReservation()
		p := f.seedPayment(r)
		f.store.CommitErr = errs.New("connection reset")

		_, err := f.uc.Reconcile(ctx, commands.SourceCallback, success(p.CheckoutRequestID(), "NLJ7RT61SV", 300))

		require.Error(t, err)
		stored, _ := f.store.Payment(p.CheckoutRequestID())
		assert.Equal(t, payment.StatusPending, stored.Status())
		res, _ := f.store.Reservation(r.ID())
		assert.Equal(t, reservation.PaymentUnpaid, res.PaymentState())
		assert.Empty(t, f.store.Jobs(""))
	})
}

func TestPaymentCommands_Reconcile_ConcurrentChannels(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	r := f.seedReservation()
	p := f.seedPayment(r)
	o := success(p.CheckoutRequestID(), "NLJ7RT61SV", 300)

	const n = 16
	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		transitions int
	)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			source := commands.SourceCallback
			if i%2 == 0 {
				source = commands.SourceQuery
			}
			got, err := f.uc.Reconcile(ctx, source, o)
			if !assert.NoError(t, err) {
				return
			}
			if got.Resolution.Transitioned() {
				mu.Lock()
				transitions++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, transitions)
	assert.Len(t, f.store.Jobs(shared.TopicPaymentConfirmed), 1)
	res, _ := f.store.Reservation(r.ID())
	assert.Equal(t, reservation.PaymentPaid, res.PaymentState())
}

// =============================================================================
// CheckStatus Tests
// =============================================================================

func TestPaymentCommands_CheckStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("success: terminal payment is returned without a gateway call", func(t *testing.T) {
		f := newEngineFixture(t)
		r := f.seedReservation(func(b *builder.ReservationBuilder) { b.AsPaid() })
		p := f.seedPayment(r, func(b *builder.PaymentBuilder) { b.AsCompleted("NLJ7RT61SV") })

		got, err := f.uc.CheckStatus(ctx, p.CheckoutRequestID(), r.UserID(), false)

		require.NoError(t, err)
		assert.Equal(t, payment.StatusCompleted, got.Status())
	})

	t.Run("success: still processing stays pending", func(t *testing.T) {
		f := newEngineFixture(t)
		r := f.seedReservation()
		p := f.seedPayment(r)
		f.gateway.EXPECT().QueryStatus(gomock.Any(), p.CheckoutRequestID()).
			Return(&commands.StatusResult{Processing: true}, nil)

		got, err := f.uc.CheckStatus(ctx, p.CheckoutRequestID(), r.UserID(), false)

		require.NoError(t, err)
		assert.Equal(t, payment.StatusPending, got.Status())
	})

	t.Run("success: query outcome is reconciled", func(t *testing.T) {
		f := newEngineFixture(t)
		r := f.seedReservation()
		p := f.seedPayment(r)
		f.gateway.EXPECT().QueryStatus(gomock.Any(), p.CheckoutRequestID()).
			Return(&commands.StatusResult{Outcome: success(p.CheckoutRequestID(), "NLJ7RT61SV", 300)}, nil)

		got, err := f.uc.CheckStatus(ctx, p.CheckoutRequestID(), r.UserID(), false)

		require.NoError(t, err)
		assert.Equal(t, payment.StatusCompleted, got.Status())
		res, _ := f.store.Reservation(r.ID())
		assert.Equal(t, reservation.LifecycleConfirmed, res.LifecycleState())
	})

	t.Run("error: gateway timeout is retryable and changes nothing", func(t *testing.T) {
		f := newEngineFixture(t)
		r := f.seedReservation()
		p := f.seedPayment(r)
		f.gateway.EXPECT().QueryStatus(gomock.Any(), p.CheckoutRequestID()).
			Return(nil, errs.MarkAll(errs.New("deadline exceeded"), errs.ErrTimeout))

		_, err := f.uc.CheckStatus(ctx, p.CheckoutRequestID(), r.UserID(), false)

		require.Error(t, err)
		assert.True(t, errs.Is(err, errs.ErrTimeout))
		assert.True(t, errs.IsRetryable(err))
		stored, _ := f.store.Payment(p.CheckoutRequestID())
		assert.Equal(t, payment.StatusPending, stored.Status())
	})

	t.Run("error: amount mismatch surfaces as invalid state", func(t *testing.T) {
		f := newEngineFixture(t)
		r := f.seedReservation()
		p := f.seedPayment(r)
		f.gateway.EXPECT().QueryStatus(gomock.Any(), p.CheckoutRequestID()).
			Return(&commands.StatusResult{Outcome: success(p.CheckoutRequestID(), "NLJ7RT61SV", 5)}, nil)

		_, err := f.uc.CheckStatus(ctx, p.CheckoutRequestID(), r.UserID(), false)

		assert.True(t, errs.Is(err, errs.ErrInvalidState))
	})

	t.Run("error: other user", func(t *testing.T) {
		f := newEngineFixture(t)
		r := f.seedReservation()
		p := f.seedPayment(r)

		_, err := f.uc.CheckStatus(ctx, p.CheckoutRequestID(), uuid.New(), false)

		assert.True(t, errs.Is(err, errs.ErrForbidden))
	})

	t.Run("error: unknown checkout id", func(t *testing.T) {
		f := newEngineFixture(t)
		_, err := f.uc.CheckStatus(ctx, "ws_CO_missing", uuid.New(), true)
		assert.True(t, errs.Is(err, errs.ErrNotFound))
	})
}

// =============================================================================
// HandleCallback Tests
// =============================================================================

func TestPaymentCommands_HandleCallback(t *testing.T) {
	ctx := context.Background()
	body := []byte(`{"Body":{"stkCallback":{}}}`)

	t.Run("success: reconciles and acks", func(t *testing.T) {
		f := newEngineFixture(t)
		r := f.seedReservation()
		p := f.seedPayment(r)
		f.gateway.EXPECT().ParseCallback(body).Return(success(p.CheckoutRequestID(), "NLJ7RT61SV", 300), nil)

		ack := f.uc.HandleCallback(ctx, body, callbackToken)

		assert.Equal(t, commands.SuccessAck, ack)
		stored, _ := f.store.Payment(p.CheckoutRequestID())
		assert.Equal(t, payment.StatusCompleted, stored.Status())
	})

	t.Run("success: token mismatch is acked without processing", func(t *testing.T) {
		f := newEngineFixture(t)

		ack := f.uc.HandleCallback(ctx, body, "wrong")

		assert.Equal(t, commands.SuccessAck, ack)
	})

	t.Run("success: unparseable body is acked", func(t *testing.T) {
		f := newEngineFixture(t)
		f.gateway.EXPECT().ParseCallback(gomock.Any()).Return(payment.Outcome{}, errs.New("bad json"))

		assert.Equal(t, commands.SuccessAck, f.uc.HandleCallback(ctx, []byte("{"), callbackToken))
	})

	t.Run("success: unknown payment is acked", func(t *testing.T) {
		f := newEngineFixture(t)
		f.gateway.EXPECT().ParseCallback(body).Return(success("ws_CO_missing", "X", 1), nil)

		assert.Equal(t, commands.SuccessAck, f.uc.HandleCallback(ctx, body, callbackToken))
	})
}

// =============================================================================
// End-to-end flows
// =============================================================================

func TestPaymentFlow_ReserveInitiateCallback(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	factory := reservation.NewFactory(f.clock, reservation.NewNightlyPriceCalculator(), 30*time.Minute)
	allocator := commands.NewReservationUseCase(f.store, factory, f.clock, nil)

	guest := uuid.New()
	start := time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)
	res, err := allocator.Reserve(ctx, commands.ReserveInput{
		ResourceID: f.resource.ID, UserID: guest,
		Start: start, End: start.Add(3 * day),
		Adults: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(30000), res.TotalPrice().Cents())

	f.gateway.EXPECT().InitiatePush(gomock.Any(), gomock.Any()).
		Return(&commands.PushResponse{MerchantRequestID: "m-1", CheckoutRequestID: "ws_CO_flow"}, nil)
	_, err = f.uc.Initiate(ctx, commands.InitiateInput{ReservationID: res.ID(), CallerID: guest, PhoneNumber: "0712345678"})
	require.NoError(t, err)

	body := []byte("callback")
	f.gateway.EXPECT().ParseCallback(body).Return(success("ws_CO_flow", "NLJ7RT61SV", 300), nil)
	assert.Equal(t, commands.SuccessAck, f.uc.HandleCallback(ctx, body, callbackToken))

	// the poller arrives late and sees the terminal payment without asking the gateway
	got, err := f.uc.CheckStatus(ctx, "ws_CO_flow", guest, false)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusCompleted, got.Status())

	stored, _ := f.store.Reservation(res.ID())
	assert.Equal(t, reservation.PaymentPaid, stored.PaymentState())
	assert.Equal(t, reservation.LifecycleConfirmed, stored.LifecycleState())

	_, err = allocator.Reserve(ctx, commands.ReserveInput{
		ResourceID: f.resource.ID, UserID: uuid.New(),
		Start: start.Add(day), End: start.Add(2 * day),
		Adults: 1,
	})
	assert.True(t, errs.Is(err, errs.ErrConflict))
}

func TestPaymentFlow_FailedPaymentThenRetry(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	r := f.seedReservation()

	f.gateway.EXPECT().InitiatePush(gomock.Any(), gomock.Any()).
		Return(&commands.PushResponse{MerchantRequestID: "m-1", CheckoutRequestID: "ws_CO_a"}, nil)
	_, err := f.uc.Initiate(ctx, commands.InitiateInput{ReservationID: r.ID(), CallerID: r.UserID(), PhoneNumber: "0712345678"})
	require.NoError(t, err)

	f.gateway.EXPECT().QueryStatus(gomock.Any(), "ws_CO_a").
		Return(&commands.StatusResult{Outcome: failure("ws_CO_a", "Request cancelled by user")}, nil)
	failed, err := f.uc.CheckStatus(ctx, "ws_CO_a", r.UserID(), false)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusFailed, failed.Status())

	stored, _ := f.store.Reservation(r.ID())
	assert.Equal(t, reservation.LifecyclePending, stored.LifecycleState())

	f.gateway.EXPECT().InitiatePush(gomock.Any(), gomock.Any()).
		Return(&commands.PushResponse{MerchantRequestID: "m-2", CheckoutRequestID: "ws_CO_b"}, nil)
	_, err = f.uc.Initiate(ctx, commands.InitiateInput{ReservationID: r.ID(), CallerID: r.UserID(), PhoneNumber: "0712345678"})
	require.NoError(t, err)
	assert.Equal(t, 2, f.store.PaymentCount())
}
