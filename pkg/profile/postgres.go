package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/backdrop/pkg/pg"
)

const selectColumns = `user_id, email, COALESCE(billing_customer_id, ''), subscription_id,
	subscription_status, subscription_plan, subscription_period_end, created_at, updated_at`

// PostgresStore implements Store on a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore panics if pool is nil.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("profile: pool is required")
	}
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	if userID == uuid.Nil {
		return nil, ErrInvalidUserID
	}
	return s.scanOne(ctx, `SELECT `+selectColumns+` FROM profiles WHERE user_id = $1`, userID)
}

func (s *PostgresStore) GetProfileByCustomerID(ctx context.Context, customerID string) (*Profile, error) {
	if customerID == "" {
		return nil, ErrProfileNotFound
	}
	return s.scanOne(ctx, `SELECT `+selectColumns+` FROM profiles WHERE billing_customer_id = $1`, customerID)
}

// UpdateProfile upserts: a missing row is created with the given fields so
// a customer id created by the provider is never dropped.
func (s *PostgresStore) UpdateProfile(ctx context.Context, userID uuid.UUID, upd Update) error {
	if userID == uuid.Nil {
		return ErrInvalidUserID
	}
	if upd.IsEmpty() {
		return nil
	}

	query, args := buildUpsert(userID, upd)
	_, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return errors.Join(ErrDuplicateCustomerID, err)
		}
		return errors.Join(ErrQueryFailed, err)
	}
	return nil
}

type column struct {
	name  string
	value any
}

// updateColumns lists only the fields set in upd, so the upsert never
// touches a column the caller left nil.
func updateColumns(upd Update) []column {
	var cols []column
	if upd.Email != nil {
		cols = append(cols, column{"email", *upd.Email})
	}
	if upd.BillingCustomerID != nil {
		// NULL keeps the unique index free for profiles without a customer.
		var v *string
		if *upd.BillingCustomerID != "" {
			v = upd.BillingCustomerID
		}
		cols = append(cols, column{"billing_customer_id", v})
	}
	if upd.SubscriptionID != nil {
		cols = append(cols, column{"subscription_id", *upd.SubscriptionID})
	}
	if upd.SubscriptionStatus != nil {
		cols = append(cols, column{"subscription_status", *upd.SubscriptionStatus})
	}
	if upd.SubscriptionPlan != nil {
		cols = append(cols, column{"subscription_plan", *upd.SubscriptionPlan})
	}
	if upd.SubscriptionPeriodEnd != nil {
		cols = append(cols, column{"subscription_period_end", *upd.SubscriptionPeriodEnd})
	}
	return cols
}

func buildUpsert(userID uuid.UUID, upd Update) (string, []any) {
	cols := updateColumns(upd)

	names := make([]string, 0, len(cols)+1)
	placeholders := make([]string, 0, len(cols)+1)
	sets := make([]string, 0, len(cols)+1)
	args := make([]any, 0, len(cols)+1)

	names = append(names, "user_id")
	placeholders = append(placeholders, "$1")
	args = append(args, userID)

	for i, c := range cols {
		names = append(names, c.name)
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+2))
		sets = append(sets, c.name+" = EXCLUDED."+c.name)
		args = append(args, c.value)
	}
	sets = append(sets, "updated_at = NOW()")

	query := "INSERT INTO profiles (" + strings.Join(names, ", ") + ") VALUES (" +
		strings.Join(placeholders, ", ") + ") ON CONFLICT (user_id) DO UPDATE SET " +
		strings.Join(sets, ", ")
	return query, args
}

func (s *PostgresStore) scanOne(ctx context.Context, query string, args ...any) (*Profile, error) {
	var p Profile
	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&p.UserID, &p.Email, &p.BillingCustomerID, &p.SubscriptionID,
		&p.SubscriptionStatus, &p.SubscriptionPlan, &p.SubscriptionPeriodEnd,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrProfileNotFound
		}
		return nil, errors.Join(ErrQueryFailed, err)
	}
	return &p, nil
}

var _ Store = (*PostgresStore)(nil)
