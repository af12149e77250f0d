//go:build e2e

package payment_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	nethttptest "net/http/httptest"
	"testing"

	"tourism-booking/internal/domain/user"
	"tourism-booking/internal/handler/api"
	"tourism-booking/internal/handler/dto/request"
	"tourism-booking/internal/handler/dto/response"
	"tourism-booking/internal/usecase/shared"
	"tourism-booking/tests/common/authtest"
	"tourism-booking/tests/common/dbtest"
	"tourism-booking/tests/common/httptest"
	"tourism-booking/tests/e2e"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const (
	reserveURL      = "/api/resources/%s/reservations"
	paymentsURL     = "/api/payments"
	statusURL       = "/api/payments/status/%s"
	callbackURL     = "/api/payments/callback"
	userPaymentsURL = "/api/users/%s/payments"

	nightlyRate = int64(250_000)
	// two nights in whole shillings
	stayAmount = float64(5_000)
)

type PaymentSuite struct {
	e2e.SharedSuite
}

func (s *PaymentSuite) SetupSubTest() {
	s.SharedSuite.SetupSubTest()
}

func TestPaymentSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(PaymentSuite))
}

type booking struct {
	userID        uuid.UUID
	token         string
	resourceID    uuid.UUID
	reservationID uuid.UUID
}

// reserve books two nights for a fresh user.
func (s *PaymentSuite) reserve(t *testing.T, email string) booking {
	t.Helper()

	userID := dbtest.CreateTestUser(t, s.DB, "Payer", email, string(user.RoleUser))
	resourceID := dbtest.CreateTestResource(t, s.DB, dbtest.ResourceFixture{
		Name:             "Savannah Tent",
		NightlyRateCents: nightlyRate,
	})
	token := authtest.NewJWTHelper(s.Config.JWT).GenerateToken(t, userID, user.RoleUser)

	w := httptest.PerformRequest(t, s.Router, http.MethodPost, fmt.Sprintf(reserveURL, resourceID),
		request.CreateReservationRequest{StartDate: "2027-03-01", EndDate: "2027-03-03", Adults: 2}, token)
	var created response.ReservationResponse
	httptest.AssertSuccessResponse(t, w, http.StatusCreated, &created)
	require.Equal(t, 2*nightlyRate, created.TotalPriceCents)

	return booking{userID: userID, token: token, resourceID: resourceID, reservationID: created.ID}
}

func (s *PaymentSuite) initiate(t *testing.T, b booking) response.InitiatePaymentResponse {
	t.Helper()

	w := httptest.PerformRequest(t, s.Router, http.MethodPost, paymentsURL,
		request.InitiatePaymentRequest{ReservationID: b.reservationID, PhoneNumber: "0712345678"}, b.token)
	var got response.InitiatePaymentResponse
	httptest.AssertSuccessResponse(t, w, http.StatusCreated, &got)
	require.NotEmpty(t, got.CheckoutRequestID)
	return got
}

func (s *PaymentSuite) callback(t *testing.T, token string, body any) map[string]string {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := nethttptest.NewRequest(http.MethodPost, callbackURL, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(api.CallbackTokenHeader, token)
	}
	w := nethttptest.NewRecorder()
	s.Router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var ack map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ack))
	return ack
}

func (s *PaymentSuite) status(t *testing.T, b booking, checkoutID string) *nethttptest.ResponseRecorder {
	t.Helper()
	return httptest.PerformRequest(t, s.Router, http.MethodGet, fmt.Sprintf(statusURL, checkoutID), nil, b.token)
}

func (s *PaymentSuite) reviewNote(t *testing.T, checkoutID string) *string {
	t.Helper()

	var note *string
	err := s.DB.QueryRow(context.Background(),
		"SELECT review_note FROM payments WHERE checkout_request_id = $1", checkoutID).Scan(&note)
	require.NoError(t, err)
	return note
}

func success(receipt string) e2e.QueryAnswer {
	return e2e.QueryAnswer{
		ResultCode: 0,
		ResultDesc: "The service request is processed successfully.",
		Amount:     stayAmount,
		Receipt:    receipt,
		Phone:      "254712345678",
	}
}

// =============================================================================
// TestInitiate
// =============================================================================

func (s *PaymentSuite) TestInitiate() {
	s.Run("Normal case: pending payment with the stored total and a normalized phone", func() {
		t := s.T()
		b := s.reserve(t, "payer@example.com")

		got := s.initiate(t, b)
		require.NotNil(t, got.Payment)
		assert.Equal(t, "pending", got.Payment.Status)
		assert.Equal(t, 2*nightlyRate, got.Payment.AmountCents)
		assert.Equal(t, "254712345678", got.Payment.PhoneNumber)
		assert.Equal(t, got.CheckoutRequestID, got.Payment.CheckoutRequestID)

		pushes := s.Daraja.Pushes()
		require.Len(t, pushes, 1)
		assert.EqualValues(t, stayAmount, pushes[0]["Amount"])
		assert.Equal(t, "254712345678", pushes[0]["PhoneNumber"])
		assert.Equal(t, "Booking-"+b.reservationID.String(), pushes[0]["AccountReference"])
		assert.Equal(t, "Payment for Savannah Tent", pushes[0]["TransactionDesc"])
	})

	s.Run("Error case: gateway rejection persists nothing", func() {
		t := s.T()
		b := s.reserve(t, "payer@example.com")
		s.Daraja.RejectPushes(true)

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, paymentsURL,
			request.InitiatePaymentRequest{ReservationID: b.reservationID, PhoneNumber: "0712345678"}, b.token)
		httptest.AssertErrorResponse(t, w, http.StatusBadGateway, "")

		var count int
		require.NoError(t, s.DB.QueryRow(context.Background(),
			"SELECT count(*) FROM payments WHERE reservation_id = $1", b.reservationID).Scan(&count))
		assert.Zero(t, count)
	})

	s.Run("Error case: another user cannot pay for the reservation", func() {
		t := s.T()
		b := s.reserve(t, "payer@example.com")
		other := dbtest.CreateTestUser(t, s.DB, "Other", "other@example.com", string(user.RoleUser))
		otherToken := authtest.NewJWTHelper(s.Config.JWT).GenerateToken(t, other, user.RoleUser)

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, paymentsURL,
			request.InitiatePaymentRequest{ReservationID: b.reservationID, PhoneNumber: "0712345678"}, otherToken)
		assert.Equal(t, http.StatusForbidden, w.Code, w.Body.String())
		assert.Empty(t, s.Daraja.Pushes())
	})
}

// =============================================================================
// TestReconciliation: callback and poller racing to report one outcome
// =============================================================================

func (s *PaymentSuite) TestReconciliation() {
	s.Run("Normal case: callback completes, the poll observes it, and the dates are taken", func() {
		t := s.T()
		b := s.reserve(t, "payer@example.com")
		checkoutID := s.initiate(t, b).CheckoutRequestID

		w := s.status(t, b, checkoutID)
		var pending response.PaymentResponse
		httptest.AssertSuccessResponse(t, w, http.StatusOK, &pending)
		assert.Equal(t, "pending", pending.Status)

		ack := s.callback(t, e2e.CallbackToken, e2e.CallbackBody(checkoutID, success("QKJ1ABC")))
		assert.Equal(t, "00000000", ack["ResponseCode"])

		w = s.status(t, b, checkoutID)
		var done response.PaymentResponse
		httptest.AssertSuccessResponse(t, w, http.StatusOK, &done)
		assert.Equal(t, "completed", done.Status)
		require.NotNil(t, done.ReceiptID)
		assert.Equal(t, "QKJ1ABC", *done.ReceiptID)

		pay, life := dbtest.ReservationStates(t, s.DB, b.reservationID)
		assert.Equal(t, "paid", pay)
		assert.Equal(t, "confirmed", life)
		assert.Equal(t, 1, dbtest.CountNotifications(t, s.DB, shared.TopicPaymentConfirmed))

		// a duplicate delivery is acknowledged and changes nothing
		ack = s.callback(t, e2e.CallbackToken, e2e.CallbackBody(checkoutID, success("QKJ1ABC")))
		assert.Equal(t, "00000000", ack["ResponseCode"])
		assert.Equal(t, 1, dbtest.CountNotifications(t, s.DB, shared.TopicPaymentConfirmed))

		other := dbtest.CreateTestUser(t, s.DB, "Late", "late@example.com", string(user.RoleUser))
		otherToken := authtest.NewJWTHelper(s.Config.JWT).GenerateToken(t, other, user.RoleUser)
		w = httptest.PerformRequest(t, s.Router, http.MethodPost, fmt.Sprintf(reserveURL, b.resourceID),
			request.CreateReservationRequest{StartDate: "2027-03-02", EndDate: "2027-03-04", Adults: 1}, otherToken)
		httptest.AssertErrorResponse(t, w, http.StatusConflict, "")
	})

	s.Run("Normal case: the poll reconciles first and the late callback is a duplicate", func() {
		t := s.T()
		b := s.reserve(t, "payer@example.com")
		checkoutID := s.initiate(t, b).CheckoutRequestID
		s.Daraja.Answer(checkoutID, success("QKJ2DEF"))

		w := s.status(t, b, checkoutID)
		var done response.PaymentResponse
		httptest.AssertSuccessResponse(t, w, http.StatusOK, &done)
		assert.Equal(t, "completed", done.Status)

		ack := s.callback(t, e2e.CallbackToken, e2e.CallbackBody(checkoutID, e2e.QueryAnswer{
			ResultCode: 1032,
			ResultDesc: "Request cancelled by user",
		}))
		assert.Equal(t, "00000000", ack["ResponseCode"])

		w = s.status(t, b, checkoutID)
		var still response.PaymentResponse
		httptest.AssertSuccessResponse(t, w, http.StatusOK, &still)
		assert.Equal(t, "completed", still.Status)

		pay, _ := dbtest.ReservationStates(t, s.DB, b.reservationID)
		assert.Equal(t, "paid", pay)
	})

	s.Run("Normal case: failed payment leaves the reservation open for a retry", func() {
		t := s.T()
		b := s.reserve(t, "payer@example.com")
		first := s.initiate(t, b).CheckoutRequestID

		s.callback(t, e2e.CallbackToken, e2e.CallbackBody(first, e2e.QueryAnswer{
			ResultCode: 1032,
			ResultDesc: "Request cancelled by user",
		}))

		w := s.status(t, b, first)
		var failed response.PaymentResponse
		httptest.AssertSuccessResponse(t, w, http.StatusOK, &failed)
		assert.Equal(t, "failed", failed.Status)
		require.NotNil(t, failed.FailureReason)
		assert.Equal(t, "Request cancelled by user", *failed.FailureReason)

		pay, life := dbtest.ReservationStates(t, s.DB, b.reservationID)
		assert.Equal(t, "unpaid", pay)
		assert.Equal(t, "pending", life)

		second := s.initiate(t, b).CheckoutRequestID
		require.NotEqual(t, first, second)
		s.callback(t, e2e.CallbackToken, e2e.CallbackBody(second, success("QKJ3GHI")))

		pay, life = dbtest.ReservationStates(t, s.DB, b.reservationID)
		assert.Equal(t, "paid", pay)
		assert.Equal(t, "confirmed", life)

		// a paid reservation cannot be paid again
		w = httptest.PerformRequest(t, s.Router, http.MethodPost, paymentsURL,
			request.InitiatePaymentRequest{ReservationID: b.reservationID, PhoneNumber: "0712345678"}, b.token)
		httptest.AssertErrorResponse(t, w, http.StatusConflict, "")
	})

	s.Run("Anomaly: amount mismatch stays pending and is held for review", func() {
		t := s.T()
		b := s.reserve(t, "payer@example.com")
		checkoutID := s.initiate(t, b).CheckoutRequestID

		short := success("QKJ4JKL")
		short.Amount = 1
		ack := s.callback(t, e2e.CallbackToken, e2e.CallbackBody(checkoutID, short))
		assert.Equal(t, "00000000", ack["ResponseCode"])

		assert.NotNil(t, s.reviewNote(t, checkoutID))
		pay, _ := dbtest.ReservationStates(t, s.DB, b.reservationID)
		assert.Equal(t, "unpaid", pay)

		s.Daraja.Answer(checkoutID, short)
		w := s.status(t, b, checkoutID)
		httptest.AssertErrorResponse(t, w, http.StatusConflict, "")
	})

	s.Run("Anomaly: completion after the hold was released is flagged for refund", func() {
		t := s.T()
		b := s.reserve(t, "payer@example.com")
		checkoutID := s.initiate(t, b).CheckoutRequestID

		dbtest.ExpireHold(t, s.DB, b.reservationID)
		s.Jobs.ReleaseExpiredHolds()
		_, life := dbtest.ReservationStates(t, s.DB, b.reservationID)
		require.Equal(t, "cancelled", life)

		s.callback(t, e2e.CallbackToken, e2e.CallbackBody(checkoutID, success("QKJ5MNO")))

		w := s.status(t, b, checkoutID)
		var done response.PaymentResponse
		httptest.AssertSuccessResponse(t, w, http.StatusOK, &done)
		assert.Equal(t, "completed", done.Status)
		assert.NotNil(t, s.reviewNote(t, checkoutID))

		_, life = dbtest.ReservationStates(t, s.DB, b.reservationID)
		assert.Equal(t, "cancelled", life)
	})

	s.Run("Anomaly: second charge for a paid reservation is flagged for refund", func() {
		t := s.T()
		b := s.reserve(t, "payer@example.com")
		first := s.initiate(t, b).CheckoutRequestID
		second := s.initiate(t, b).CheckoutRequestID

		s.callback(t, e2e.CallbackToken, e2e.CallbackBody(first, success("QKJ8VWX")))
		s.callback(t, e2e.CallbackToken, e2e.CallbackBody(second, success("QKJ9YZA")))

		assert.Nil(t, s.reviewNote(t, first))
		assert.NotNil(t, s.reviewNote(t, second))
		pay, life := dbtest.ReservationStates(t, s.DB, b.reservationID)
		assert.Equal(t, "paid", pay)
		assert.Equal(t, "confirmed", life)
		assert.Equal(t, 1, dbtest.CountNotifications(t, s.DB, shared.TopicPaymentConfirmed))
	})

	s.Run("Error case: callback without a result code is acked and ignored", func() {
		t := s.T()
		b := s.reserve(t, "payer@example.com")
		checkoutID := s.initiate(t, b).CheckoutRequestID

		ack := s.callback(t, e2e.CallbackToken, map[string]any{
			"Body": map[string]any{"stkCallback": map[string]any{"CheckoutRequestID": checkoutID}},
		})
		assert.Equal(t, "00000000", ack["ResponseCode"])

		pay, _ := dbtest.ReservationStates(t, s.DB, b.reservationID)
		assert.Equal(t, "unpaid", pay)
		assert.Nil(t, s.reviewNote(t, checkoutID))
	})

	s.Run("Error case: callback with a wrong token is acked and ignored", func() {
		t := s.T()
		b := s.reserve(t, "payer@example.com")
		checkoutID := s.initiate(t, b).CheckoutRequestID

		ack := s.callback(t, "forged", e2e.CallbackBody(checkoutID, success("QKJ6PQR")))
		assert.Equal(t, "00000000", ack["ResponseCode"])

		pay, _ := dbtest.ReservationStates(t, s.DB, b.reservationID)
		assert.Equal(t, "unpaid", pay)
	})

	s.Run("Error case: unknown checkout id is still acknowledged", func() {
		t := s.T()

		ack := s.callback(t, e2e.CallbackToken, e2e.CallbackBody("ws_CO_UNKNOWN", success("QKJ7STU")))
		assert.Equal(t, "00000000", ack["ResponseCode"])
	})
}

// =============================================================================
// TestListByUser
// =============================================================================

func (s *PaymentSuite) TestListByUser() {
	s.Run("Normal case: owner sees their payments and others are refused", func() {
		t := s.T()
		b := s.reserve(t, "payer@example.com")
		s.initiate(t, b)

		w := httptest.PerformRequest(t, s.Router, http.MethodGet, fmt.Sprintf(userPaymentsURL, b.userID), nil, b.token)
		var list response.PaymentListResponse
		httptest.AssertSuccessResponse(t, w, http.StatusOK, &list)
		require.Len(t, list.Payments, 1)
		assert.Equal(t, b.reservationID, list.Payments[0].ReservationID)

		other := dbtest.CreateTestUser(t, s.DB, "Other", "other@example.com", string(user.RoleUser))
		otherToken := authtest.NewJWTHelper(s.Config.JWT).GenerateToken(t, other, user.RoleUser)
		w = httptest.PerformRequest(t, s.Router, http.MethodGet, fmt.Sprintf(userPaymentsURL, b.userID), nil, otherToken)
		assert.Equal(t, http.StatusForbidden, w.Code, w.Body.String())
	})
}
