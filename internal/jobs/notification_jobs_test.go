//go:build unit

package jobs_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"tourism-booking/internal/domain/reservation"
	"tourism-booking/internal/jobs"
	"tourism-booking/internal/pkg/clock"
	"tourism-booking/internal/pkg/config"
	"tourism-booking/internal/pkg/errs"
	"tourism-booking/internal/usecase/commands"
	"tourism-booking/internal/usecase/shared"
	"tourism-booking/tests/common/builder"
	"tourism-booking/tests/common/memstore"
	queriesmock "tourism-booking/tests/mock/queries"
	sharedmock "tourism-booking/tests/mock/shared"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var now = time.Date(2030, 5, 1, 8, 0, 0, 0, time.UTC)

type runnerFixture struct {
	store    *memstore.Store
	clock    *clock.MockClock
	users    *queriesmock.MockUserQueries
	notifier *sharedmock.MockNotifier
	runner   *jobs.JobRunner
}

func newRunnerFixture(t *testing.T) *runnerFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	store := memstore.New()
	clk := clock.NewMockClock(now)
	users := queriesmock.NewMockUserQueries(ctrl)
	notifier := sharedmock.NewMockNotifier(ctrl)

	factory := reservation.NewFactory(clk, reservation.NewNightlyPriceCalculator(), 30*time.Minute)
	allocator := commands.NewReservationUseCase(store, factory, clk, nil)
	cfg := config.NewTestConfig().Notifier

	return &runnerFixture{
		store:    store,
		clock:    clk,
		users:    users,
		notifier: notifier,
		runner:   jobs.NewJobRunner(store, allocator, users, notifier, clk, cfg),
	}
}

func (f *runnerFixture) enqueue(t *testing.T, topic string, payload shared.NotificationPayload) {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	err = f.store.Within(context.Background(), func(ctx context.Context, tx shared.Tx) error {
		return tx.Notifications().CreateJob(ctx, shared.NotificationKindEmail, topic, body, now)
	})
	require.NoError(t, err)
}

func TestJobRunner_DispatchNotifications(t *testing.T) {
	t.Run("success: delivers and marks sent", func(t *testing.T) {
		f := newRunnerFixture(t)
		guest := builder.NewUserBuilder().BuildContactView()
		reservationID := uuid.New()
		f.enqueue(t, shared.TopicPaymentConfirmed, shared.NotificationPayload{
			ReservationID: reservationID,
			UserID:        guest.ID,
			ReceiptID:     "NLJ7RT61SV",
		})

		f.users.EXPECT().GetContact(gomock.Any(), guest.ID).Return(guest, nil)
		f.notifier.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, msg shared.EmailMessage) error {
				assert.Equal(t, guest.Email, msg.ToEmail)
				assert.Equal(t, "Payment confirmed", msg.Subject)
				assert.Contains(t, msg.PlainText, "NLJ7RT61SV")
				assert.Contains(t, msg.PlainText, reservationID.String())
				return nil
			})

		f.runner.DispatchNotifications()

		got := f.store.Jobs(shared.TopicPaymentConfirmed)
		require.Len(t, got, 1)
		assert.Equal(t, memstore.JobSent, got[0].Status)
	})

	t.Run("success: user text is escaped in the HTML part", func(t *testing.T) {
		f := newRunnerFixture(t)
		guest := builder.NewUserBuilder().With(func(b *builder.UserBuilder) { b.Name = "<b>Eve</b>" }).BuildContactView()
		f.enqueue(t, shared.TopicReservationCancelled, shared.NotificationPayload{
			ReservationID: uuid.New(),
			UserID:        guest.ID,
			Reason:        `<a href="https://evil.example">refund</a>`,
		})

		f.users.EXPECT().GetContact(gomock.Any(), guest.ID).Return(guest, nil)
		f.notifier.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, msg shared.EmailMessage) error {
				assert.NotContains(t, msg.HTML, "<b>")
				assert.NotContains(t, msg.HTML, "<a href")
				assert.Contains(t, msg.HTML, "&lt;b&gt;Eve&lt;/b&gt;")
				assert.Contains(t, msg.HTML, "<br>")
				assert.Contains(t, msg.PlainText, "<b>Eve</b>")
				return nil
			})

		f.runner.DispatchNotifications()
	})

	t.Run("success: a claimed job is leased and sent with no transaction open", func(t *testing.T) {
		f := newRunnerFixture(t)
		guest := builder.NewUserBuilder().BuildContactView()
		f.enqueue(t, shared.TopicReservationCreated, shared.NotificationPayload{ReservationID: uuid.New(), UserID: guest.ID})

		f.users.EXPECT().GetContact(gomock.Any(), guest.ID).Return(guest, nil)
		f.notifier.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, _ shared.EmailMessage) error {
				// the store lock is free, and a second dispatcher finds nothing due
				leased := f.store.Jobs(shared.TopicReservationCreated)
				require.Len(t, leased, 1)
				assert.True(t, leased[0].RunAt.After(now))
				err := f.store.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
					again, err := tx.Notifications().ClaimDue(ctx, now, now.Add(time.Minute), 10)
					assert.Empty(t, again)
					return err
				})
				require.NoError(t, err)
				return nil
			})

		f.runner.DispatchNotifications()

		got := f.store.Jobs(shared.TopicReservationCreated)
		require.Len(t, got, 1)
		assert.Equal(t, memstore.JobSent, got[0].Status)
	})

	t.Run("error: failed delivery is retried later", func(t *testing.T) {
		f := newRunnerFixture(t)
		guest := builder.NewUserBuilder().BuildContactView()
		f.enqueue(t, shared.TopicReservationCreated, shared.NotificationPayload{ReservationID: uuid.New(), UserID: guest.ID})

		f.users.EXPECT().GetContact(gomock.Any(), guest.ID).Return(guest, nil)
		f.notifier.EXPECT().Send(gomock.Any(), gomock.Any()).Return(errs.New("smtp down"))

		f.runner.DispatchNotifications()

		got := f.store.Jobs(shared.TopicReservationCreated)
		require.Len(t, got, 1)
		assert.Equal(t, memstore.JobQueued, got[0].Status)
		assert.Equal(t, int32(1), got[0].Attempts)
		assert.True(t, got[0].RunAt.After(now))
		assert.Contains(t, got[0].LastError, "smtp down")

		// not due yet: no second delivery attempt
		f.runner.DispatchNotifications()
	})

	t.Run("error: gives up after max attempts", func(t *testing.T) {
		f := newRunnerFixture(t)
		guest := builder.NewUserBuilder().BuildContactView()
		f.enqueue(t, shared.TopicReservationCancelled, shared.NotificationPayload{ReservationID: uuid.New(), UserID: guest.ID, Reason: "r"})

		maxAttempts := int(config.NewTestConfig().Notifier.MaxAttempts)
		f.users.EXPECT().GetContact(gomock.Any(), guest.ID).Return(guest, nil).Times(maxAttempts)
		f.notifier.EXPECT().Send(gomock.Any(), gomock.Any()).Return(errs.New("rejected")).Times(maxAttempts)

		for range maxAttempts {
			f.runner.DispatchNotifications()
			f.clock.Add(time.Hour)
		}

		got := f.store.Jobs(shared.TopicReservationCancelled)
		require.Len(t, got, 1)
		assert.Equal(t, memstore.JobDead, got[0].Status)
	})

	t.Run("error: unknown topic is dead immediately", func(t *testing.T) {
		f := newRunnerFixture(t)
		guest := builder.NewUserBuilder().BuildContactView()
		f.enqueue(t, "mystery", shared.NotificationPayload{UserID: guest.ID})
		f.users.EXPECT().GetContact(gomock.Any(), guest.ID).Return(guest, nil)

		f.runner.DispatchNotifications()

		got := f.store.Jobs("mystery")
		require.Len(t, got, 1)
		assert.Equal(t, memstore.JobDead, got[0].Status)
	})

	t.Run("error: malformed recipient address is dead immediately", func(t *testing.T) {
		f := newRunnerFixture(t)
		guest := builder.NewUserBuilder().WithEmail("not-an-address").BuildContactView()
		f.enqueue(t, shared.TopicPaymentConfirmed, shared.NotificationPayload{ReservationID: uuid.New(), UserID: guest.ID})
		f.users.EXPECT().GetContact(gomock.Any(), guest.ID).Return(guest, nil)

		f.runner.DispatchNotifications()

		got := f.store.Jobs(shared.TopicPaymentConfirmed)
		require.Len(t, got, 1)
		assert.Equal(t, memstore.JobDead, got[0].Status)
		assert.Contains(t, got[0].LastError, "invalid email")
	})
}

func TestJobRunner_ReleaseExpiredHolds(t *testing.T) {
	f := newRunnerFixture(t)
	r := builder.NewReservationBuilder().With(func(b *builder.ReservationBuilder) {
		b.HoldExpiresAt = now.Add(-time.Minute)
	}).BuildDomain()
	f.store.PutReservation(r)

	f.runner.ReleaseExpiredHolds()

	got, ok := f.store.Reservation(r.ID())
	require.True(t, ok)
	assert.Equal(t, reservation.LifecycleCancelled, got.LifecycleState())
	assert.Len(t, f.store.Jobs(shared.TopicReservationCancelled), 1)
}
