//go:build unit || e2e

package dbtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// DBLike is satisfied by both a pool and a transaction.
type DBLike interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DefaultAdminID is reseeded after every reset.
var DefaultAdminID = uuid.MustParse("00000000-0000-0000-0000-00000000a001")

func CreateTestUser(t *testing.T, db DBLike, name, email, role string) uuid.UUID {
	t.Helper()

	userID := uuid.New()
	ctx := context.Background()

	tag, err := db.Exec(ctx, "INSERT INTO users (id, name, email, role) VALUES ($1, $2, $3, $4) ON CONFLICT (email) DO NOTHING",
		userID, name, email, role)
	require.NoError(t, err)

	if tag.RowsAffected() == 0 {
		_ = db.QueryRow(ctx, "SELECT id FROM users WHERE email = $1", email).Scan(&userID)
	}

	return userID
}

type ResourceFixture struct {
	Name             string
	Capacity         int
	NightlyRateCents int64
	SpecialRateCents *int64
	SpecialFrom      *time.Time
	SpecialTo        *time.Time
}

func CreateTestResource(t *testing.T, db DBLike, f ResourceFixture) uuid.UUID {
	t.Helper()

	if f.Name == "" {
		f.Name = "Test Resource"
	}
	if f.Capacity == 0 {
		f.Capacity = 4
	}

	resourceID := uuid.New()
	_, err := db.Exec(context.Background(), `
		INSERT INTO resources (id, name, capacity, nightly_rate_cents, special_rate_cents, special_from, special_to)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		resourceID, f.Name, f.Capacity, f.NightlyRateCents, f.SpecialRateCents, f.SpecialFrom, f.SpecialTo)
	require.NoError(t, err)

	return resourceID
}

// ReservationStates reads both state columns straight from storage.
func ReservationStates(t *testing.T, db DBLike, reservationID uuid.UUID) (payment, lifecycle string) {
	t.Helper()

	err := db.QueryRow(context.Background(),
		"SELECT payment_state, lifecycle_state FROM reservations WHERE id = $1", reservationID).
		Scan(&payment, &lifecycle)
	require.NoError(t, err)
	return payment, lifecycle
}

// ExpireHold moves a reservation's hold into the past.
func ExpireHold(t *testing.T, db DBLike, reservationID uuid.UUID) {
	t.Helper()

	tag, err := db.Exec(context.Background(),
		"UPDATE reservations SET hold_expires_at = now() - interval '1 minute' WHERE id = $1", reservationID)
	require.NoError(t, err)
	require.EqualValues(t, 1, tag.RowsAffected())
}

func CountNotifications(t *testing.T, db DBLike, topic string) int {
	t.Helper()

	var n int
	err := db.QueryRow(context.Background(),
		"SELECT count(*) FROM notification_jobs WHERE topic = $1", topic).Scan(&n)
	require.NoError(t, err)
	return n
}

// inserts basic reference data needed by tests
func SeedReferenceData(pool *pgxpool.Pool) error {
	ctx := context.Background()

	_, err := pool.Exec(ctx, `
		INSERT INTO users (id, name, email, role) VALUES ($1, 'Default Admin', 'admin@example.com', 'admin')
		ON CONFLICT (email) DO NOTHING;
	`, DefaultAdminID)
	if err != nil {
		return err
	}

	return nil
}

var (
	buildTruncateOnce sync.Once
	truncateSQL       atomic.Value // string
)

// truncates all tables and reseeds reference data
func ResetDB(pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	buildTruncateOnce.Do(func() {
		rows, err := pool.Query(ctx, `
		  SELECT 'public.' || quote_ident(tablename)
		  FROM pg_tables
		  WHERE schemaname = 'public'
		    AND tablename NOT IN ('schema_migrations')`)
		if err != nil {
			truncateSQL.Store("")
			return
		}
		defer rows.Close()
		var tables []string
		for rows.Next() {
			var t string
			if err := rows.Scan(&t); err != nil {
				truncateSQL.Store("")
				return
			}
			tables = append(tables, t)
		}
		if rows.Err() != nil {
			truncateSQL.Store("")
			return
		}
		if len(tables) == 0 {
			truncateSQL.Store("SELECT 1")
			return
		}
		truncateSQL.Store("TRUNCATE " + strings.Join(tables, ", ") + " RESTART IDENTITY CASCADE;")
	})
	sqlAny := truncateSQL.Load()
	if sqlAny == nil || sqlAny.(string) == "" {
		return fmt.Errorf("failed to build TRUNCATE SQL")
	}
	if _, err := pool.Exec(ctx, sqlAny.(string)); err != nil {
		return err
	}

	return SeedReferenceData(pool)
}
