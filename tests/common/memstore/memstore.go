// Package memstore is an in-memory shared.UnitOfWork for unit tests. Transactions
// run one at a time and roll back on error, and reservation inserts enforce the
// same no-overlap rule as the database exclusion constraint.
package memstore

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"tourism-booking/internal/domain/payment"
	"tourism-booking/internal/domain/reservation"
	"tourism-booking/internal/infra"
	"tourism-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

const (
	JobQueued = "queued"
	JobSent   = "sent"
	JobDead   = "dead"
)

type Job struct {
	shared.NotificationJob
	Status    string
	LastError string
}

type state struct {
	resources    map[uuid.UUID]shared.ResourceSnapshot
	reservations map[uuid.UUID]reservation.Reservation
	payments     map[string]payment.Payment
	jobs         map[uuid.UUID]Job
	jobOrder     []uuid.UUID
}

func (s *state) clone() *state {
	return &state{
		resources:    maps.Clone(s.resources),
		reservations: maps.Clone(s.reservations),
		payments:     maps.Clone(s.payments),
		jobs:         maps.Clone(s.jobs),
		jobOrder:     append([]uuid.UUID(nil), s.jobOrder...),
	}
}

type Store struct {
	mu sync.Mutex
	st *state

	// CommitErr, when set, fails the next transaction after fn succeeded.
	CommitErr error
}

var _ shared.UnitOfWork = (*Store)(nil)

func New() *Store {
	return &Store{st: &state{
		resources:    map[uuid.UUID]shared.ResourceSnapshot{},
		reservations: map[uuid.UUID]reservation.Reservation{},
		payments:     map[string]payment.Payment{},
		jobs:         map[uuid.UUID]Job{},
	}}
}

func (s *Store) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	backup := s.st.clone()
	if err := fn(ctx, &memTx{st: s.st}); err != nil {
		s.st = backup
		return err
	}
	if s.CommitErr != nil {
		err := s.CommitErr
		s.CommitErr = nil
		s.st = backup
		return err
	}
	return nil
}

func (s *Store) CommandReads() shared.CommandReads {
	return &lockedReads{store: s}
}

func (s *Store) AddResource(r shared.ResourceSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.resources[r.ID] = r
}

func (s *Store) PutReservation(r *reservation.Reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.reservations[r.ID()] = *r
}

func (s *Store) PutPayment(p *payment.Payment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.payments[p.CheckoutRequestID()] = *p
}

func (s *Store) Reservation(id uuid.UUID) (*reservation.Reservation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.st.reservations[id]
	return &r, ok
}

func (s *Store) Reservations() []*reservation.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*reservation.Reservation, 0, len(s.st.reservations))
	for _, r := range s.st.reservations {
		out = append(out, &r)
	}
	return out
}

func (s *Store) Payment(checkoutRequestID string) (*payment.Payment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.st.payments[checkoutRequestID]
	return &p, ok
}

func (s *Store) PaymentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.payments)
}

// Jobs returns outbox rows in insertion order, filtered by topic when one is given.
func (s *Store) Jobs(topic string) []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Job
	for _, id := range s.st.jobOrder {
		j := s.st.jobs[id]
		if topic == "" || j.Topic == topic {
			out = append(out, j)
		}
	}
	return out
}

type lockedReads struct {
	store *Store
}

func (r *lockedReads) ResourceByID(ctx context.Context, id uuid.UUID) (*shared.ResourceSnapshot, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return (&reads{st: r.store.st}).ResourceByID(ctx, id)
}

func (r *lockedReads) ReservationByID(ctx context.Context, id uuid.UUID) (*reservation.Reservation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return (&reads{st: r.store.st}).ReservationByID(ctx, id)
}

func (r *lockedReads) PaymentByCheckoutID(ctx context.Context, checkoutRequestID string) (*payment.Payment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return (&reads{st: r.store.st}).PaymentByCheckoutID(ctx, checkoutRequestID)
}

type reads struct {
	st *state
}

func (r *reads) ResourceByID(_ context.Context, id uuid.UUID) (*shared.ResourceSnapshot, error) {
	res, ok := r.st.resources[id]
	if !ok {
		return nil, infra.WrapRepoErr("resource not found", nil, infra.KindNotFound)
	}
	return &res, nil
}

func (r *reads) ReservationByID(_ context.Context, id uuid.UUID) (*reservation.Reservation, error) {
	res, ok := r.st.reservations[id]
	if !ok {
		return nil, infra.WrapRepoErr("reservation not found", nil, infra.KindNotFound)
	}
	return &res, nil
}

func (r *reads) PaymentByCheckoutID(_ context.Context, checkoutRequestID string) (*payment.Payment, error) {
	p, ok := r.st.payments[checkoutRequestID]
	if !ok {
		return nil, infra.WrapRepoErr("payment not found", nil, infra.KindNotFound)
	}
	return &p, nil
}

type memTx struct {
	st *state
}

func (t *memTx) Reservations() shared.ReservationRepository   { return &reservationRepo{st: t.st} }
func (t *memTx) Payments() shared.PaymentRepository           { return &paymentRepo{st: t.st} }
func (t *memTx) Notifications() shared.NotificationRepository { return &notificationRepo{st: t.st} }
func (t *memTx) Reads() shared.CommandReads                   { return &reads{st: t.st} }

type reservationRepo struct {
	st *state
}

func (r *reservationRepo) Create(_ context.Context, res *reservation.Reservation) error {
	for _, existing := range r.st.reservations {
		if existing.ResourceID() != res.ResourceID() || existing.IsCancelled() {
			continue
		}
		if existing.Stay().Overlaps(res.Stay()) {
			return infra.WrapRepoErr("reservation overlaps an existing stay", nil, infra.KindConflict)
		}
	}
	r.st.reservations[res.ID()] = *res
	return nil
}

func (r *reservationRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*reservation.Reservation, error) {
	return (&reads{st: r.st}).ReservationByID(ctx, id)
}

func (r *reservationRepo) Update(_ context.Context, res *reservation.Reservation) error {
	if _, ok := r.st.reservations[res.ID()]; !ok {
		return infra.WrapRepoErr("reservation not found", nil, infra.KindNotFound)
	}
	r.st.reservations[res.ID()] = *res
	return nil
}

func (r *reservationRepo) LockExpiredHolds(_ context.Context, now time.Time, limit int32) ([]*reservation.Reservation, error) {
	var out []*reservation.Reservation
	for _, res := range r.st.reservations {
		if res.HoldExpired(now) {
			out = append(out, &res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HoldExpiresAt().Before(out[j].HoldExpiresAt()) })
	if limit > 0 && len(out) > int(limit) {
		out = out[:limit]
	}
	return out, nil
}

type paymentRepo struct {
	st *state
}

func (r *paymentRepo) Create(_ context.Context, p *payment.Payment) error {
	if _, ok := r.st.payments[p.CheckoutRequestID()]; ok {
		return infra.WrapRepoErr("duplicate checkout request id", nil, infra.KindDuplicateKey)
	}
	if _, ok := r.st.reservations[p.ReservationID()]; !ok {
		return infra.WrapRepoErr("reservation does not exist", nil, infra.KindForeignKeyViolated)
	}
	r.st.payments[p.CheckoutRequestID()] = *p
	return nil
}

func (r *paymentRepo) FindByCheckoutIDForUpdate(ctx context.Context, checkoutRequestID string) (*payment.Payment, error) {
	return (&reads{st: r.st}).PaymentByCheckoutID(ctx, checkoutRequestID)
}

func (r *paymentRepo) Update(_ context.Context, p *payment.Payment) error {
	if _, ok := r.st.payments[p.CheckoutRequestID()]; !ok {
		return infra.WrapRepoErr("payment not found", nil, infra.KindNotFound)
	}
	r.st.payments[p.CheckoutRequestID()] = *p
	return nil
}

type notificationRepo struct {
	st *state
}

func (r *notificationRepo) CreateJob(_ context.Context, kind, topic string, payload []byte, runAt time.Time) error {
	id := uuid.New()
	r.st.jobs[id] = Job{
		NotificationJob: shared.NotificationJob{
			ID:      id,
			Kind:    kind,
			Topic:   topic,
			Payload: append([]byte(nil), payload...),
			RunAt:   runAt,
		},
		Status: JobQueued,
	}
	r.st.jobOrder = append(r.st.jobOrder, id)
	return nil
}

func (r *notificationRepo) ClaimDue(_ context.Context, now, leaseUntil time.Time, limit int32) ([]shared.NotificationJob, error) {
	var out []shared.NotificationJob
	for _, id := range r.st.jobOrder {
		j := r.st.jobs[id]
		if j.Status != JobQueued || j.RunAt.After(now) {
			continue
		}
		j.RunAt = leaseUntil
		r.st.jobs[id] = j
		out = append(out, j.NotificationJob)
		if limit > 0 && len(out) == int(limit) {
			break
		}
	}
	return out, nil
}

func (r *notificationRepo) MarkSent(_ context.Context, id uuid.UUID) error {
	return r.update(id, func(j *Job) {
		j.Status = JobSent
		j.Attempts++
	})
}

func (r *notificationRepo) MarkRetry(_ context.Context, id uuid.UUID, lastError string, nextRunAt time.Time) error {
	return r.update(id, func(j *Job) {
		j.Attempts++
		j.LastError = lastError
		j.RunAt = nextRunAt
	})
}

func (r *notificationRepo) MarkDead(_ context.Context, id uuid.UUID, lastError string) error {
	return r.update(id, func(j *Job) {
		j.Status = JobDead
		j.Attempts++
		j.LastError = lastError
	})
}

func (r *notificationRepo) update(id uuid.UUID, fn func(j *Job)) error {
	j, ok := r.st.jobs[id]
	if !ok {
		return infra.WrapRepoErr("notification job not found", nil, infra.KindNotFound)
	}
	fn(&j)
	r.st.jobs[id] = j
	return nil
}
