package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amaxoft/portal-gateway/internal/domain"
)

// ErrEmailTaken is returned by Create when the email is already registered.
var ErrEmailTaken = errors.New("email already registered")

const uniqueViolation = "23505"

// UserFilter narrows user listings.
type UserFilter struct {
	Role   *domain.Role
	Active *bool
	Limit  int
	Offset int
}

// UserRepository defines persistence access for portal accounts.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]domain.User, int, error)
	Create(ctx context.Context, user domain.NewUser) (*domain.User, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id::text, COALESCE(custom_id, ''), email, name, password_hash, role, is_active,
        has_completed_purchase, current_membership_id, company_name, profile_photo, created_at, updated_at`

// GetByID accepts either the primary key or the custom id.
func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id::text=$1 OR custom_id=$1 LIMIT 1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email)=lower($1)`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]domain.User, int, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	const where = `WHERE ($1::text IS NULL OR role=$1) AND ($2::boolean IS NULL OR is_active=$2)`
	var role *string
	if filter.Role != nil {
		s := string(*filter.Role)
		role = &s
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users `+where, role, filter.Active).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + userColumns + ` FROM users ` + where + ` ORDER BY created_at DESC LIMIT $3 OFFSET $4`
	rows, err := r.pool.Query(ctx, query, role, filter.Active, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *user)
	}
	return users, total, rows.Err()
}

// Create inserts the account and assigns the next custom id for its role in
// the same transaction.
func (r *userRepository) Create(ctx context.Context, nu domain.NewUser) (*domain.User, error) {
	var created *domain.User
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		prefix := nu.Role.CustomIDPrefix()
		var seq int
		if err := tx.QueryRow(ctx, `INSERT INTO user_id_sequences (role_prefix, last_number) VALUES ($1, 1)
            ON CONFLICT (role_prefix) DO UPDATE SET last_number = user_id_sequences.last_number + 1
            RETURNING last_number`, prefix).Scan(&seq); err != nil {
			return err
		}

		query := `INSERT INTO users (custom_id, email, name, phone, password_hash, role,
            accepted_data_policy, accepted_terms, accepted_marketing, data_consent_date, terms_consent_date)
            VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8, $9, NOW(), NOW())
            RETURNING ` + userColumns
		user, err := scanUser(tx.QueryRow(ctx, query,
			domain.FormatCustomID(prefix, seq),
			nu.Email,
			nu.Name,
			nu.Phone,
			nu.PasswordHash,
			string(nu.Role),
			nu.AcceptedDataPolicy,
			nu.AcceptedTerms,
			nu.AcceptedMarketing,
		))
		if err != nil {
			return err
		}
		created = user
		return nil
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return created, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		user domain.User
		role string
	)
	if err := row.Scan(
		&user.ID,
		&user.CustomID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&role,
		&user.IsActive,
		&user.HasCompletedPurchase,
		&user.CurrentMembershipID,
		&user.CompanyName,
		&user.ProfilePhoto,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	user.Role = domain.Role(role)
	return &user, nil
}
