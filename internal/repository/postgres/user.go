package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/msomdec/userdesk/internal/domain"
	"github.com/msomdec/userdesk/internal/repository/query"
)

// DBTX is the subset of database/sql used by the repository.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const userColumns = "id, name, email, role, password_hash, photo, created_at"

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// UserRepository implements domain.UserRepository on PostgreSQL.
type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = domain.RoleUser
	}

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (id, name, email, role, password_hash, photo)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		user.ID, user.Name, user.Email, user.Role, user.PasswordHash, user.Photo,
	).Scan(&user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	// The id column is a UUID; anything else cannot match.
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE email = $1", email)
}

func (r *UserRepository) getOne(ctx context.Context, q string, arg any) (*domain.User, error) {
	u := &domain.User{}
	err := r.db.QueryRowContext(ctx, q, arg).
		Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.PasswordHash, &u.Photo, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (r *UserRepository) List(ctx context.Context, q domain.UserQuery) (*domain.UserPage, error) {
	where, args, err := query.Where(q, query.Dollar)
	if err != nil {
		return nil, err
	}
	order, err := query.OrderBy(q)
	if err != nil {
		return nil, err
	}

	page := &domain.UserPage{Users: []domain.User{}}
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users"+where, args...).Scan(&page.Total); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	limit := fmt.Sprintf(" LIMIT %s OFFSET %s", query.Dollar(len(args)+1), query.Dollar(len(args)+2))
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users"+where+order+limit,
		append(args, q.Limit, q.Offset())...,
	)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.PasswordHash, &u.Photo, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		page.Users = append(page.Users, u)
	}
	return page, rows.Err()
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	if _, err := uuid.Parse(user.ID); err != nil {
		return domain.ErrNotFound
	}
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET name = $1, email = $2, role = $3, password_hash = $4, photo = $5
		 WHERE id = $6`,
		user.Name, user.Email, user.Role, user.PasswordHash, user.Photo, user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateEmail
		}
		return fmt.Errorf("update user: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UserRepository) UpdatePhoto(ctx context.Context, id, photo string) error {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, "UPDATE users SET photo = $1 WHERE id = $2", photo, id); err != nil {
		return fmt.Errorf("update user photo: %w", err)
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
