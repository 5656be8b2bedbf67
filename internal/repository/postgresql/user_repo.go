package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/tejaswanole/automated-smart-parking-system/internal/domain"
	"github.com/tejaswanole/automated-smart-parking-system/internal/repository"
)

type pgUserRepository struct {
	db *sql.DB
}

func NewPgUserRepository(db *sql.DB) repository.UserRepository {
	return &pgUserRepository{db: db}
}

func (r *pgUserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `INSERT INTO users (name, email, password_hash, phone, role, coins, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, TRUE, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, coins, is_active, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, user.Name, user.Email, user.Password, user.Phone, user.Role).
		Scan(&user.ID, &user.Coins, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, fmt.Errorf("%w: email '%s' is already registered", repository.ErrDuplicateEntry, user.Email)
		}
		return nil, fmt.Errorf("UserRepository.Create: %w", err)
	}
	user.CreatedAt = user.CreatedAt.In(time.UTC)
	user.UpdatedAt = user.UpdatedAt.In(time.UTC)
	return user, nil
}

func (r *pgUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findBy(ctx, "email = $1", email)
}

func (r *pgUserRepository) FindByID(ctx context.Context, id int) (*domain.User, error) {
	return r.findBy(ctx, "id = $1", id)
}

func (r *pgUserRepository) findBy(ctx context.Context, where string, arg any) (*domain.User, error) {
	user := &domain.User{}
	query := `SELECT id, name, email, password_hash, phone, role, coins, is_active, created_at, updated_at
		FROM users WHERE ` + where
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Name, &user.Email, &user.Password, &user.Phone,
		&user.Role, &user.Coins, &user.IsActive, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("UserRepository.Find: %w", err)
	}
	user.CreatedAt = user.CreatedAt.In(time.UTC)
	user.UpdatedAt = user.UpdatedAt.In(time.UTC)
	return user, nil
}

// AddCoins is a single conditional update so concurrent reward payouts and
// deductions never lose each other's writes.
func (r *pgUserRepository) AddCoins(ctx context.Context, id int, delta int) (int, error) {
	query := `UPDATE users SET coins = coins + $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND coins + $2 >= 0
		RETURNING coins`
	var balance int
	err := r.db.QueryRowContext(ctx, query, id, delta).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			var exists bool
			if lookupErr := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); lookupErr != nil {
				return 0, fmt.Errorf("UserRepository.AddCoins (checking existence): %w", lookupErr)
			}
			if !exists {
				return 0, repository.ErrNotFound
			}
			return 0, repository.ErrInsufficientCoins
		}
		return 0, fmt.Errorf("UserRepository.AddCoins: %w", err)
	}
	return balance, nil
}
