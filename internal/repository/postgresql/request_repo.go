package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tejaswanole/automated-smart-parking-system/internal/domain"
	"github.com/tejaswanole/automated-smart-parking-system/internal/repository"
)

const requestColumns = `id, user_id, request_type, status, title, description, latitude, longitude, address,
	capacity_car, capacity_bus_truck, capacity_bike,
	coins_earned, reviewed_by, reviewed_at, review_note, created_at, updated_at`

type pgRequestRepository struct {
	db *sql.DB
}

func NewPgRequestRepository(db *sql.DB) repository.RequestRepository {
	return &pgRequestRepository{db: db}
}

func scanRequest(row rowScanner) (*domain.Request, error) {
	req := &domain.Request{}
	err := row.Scan(
		&req.ID, &req.UserID, &req.RequestType, &req.Status, &req.Title, &req.Description,
		&req.Latitude, &req.Longitude, &req.Address,
		&req.Capacity.Car, &req.Capacity.BusTruck, &req.Capacity.Bike,
		&req.CoinsEarned, &req.ReviewedBy, &req.ReviewedAt, &req.ReviewNote,
		&req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	req.CreatedAt = req.CreatedAt.In(time.UTC)
	req.UpdatedAt = req.UpdatedAt.In(time.UTC)
	return req, nil
}

func (r *pgRequestRepository) Create(ctx context.Context, request *domain.Request) (*domain.Request, error) {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	query := `INSERT INTO requests (id, user_id, request_type, status, title, description, latitude, longitude, address,
			capacity_car, capacity_bus_truck, capacity_bike)
		VALUES ($1, $2, $3, 'pending', $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + requestColumns
	row := r.db.QueryRowContext(ctx, query,
		request.ID, request.UserID, request.RequestType, request.Title, request.Description,
		request.Latitude, request.Longitude, request.Address,
		request.Capacity.Car, request.Capacity.BusTruck, request.Capacity.Bike,
	)
	created, err := scanRequest(row)
	if err != nil {
		return nil, fmt.Errorf("RequestRepository.Create: %w", err)
	}
	return created, nil
}

func (r *pgRequestRepository) FindByID(ctx context.Context, id string) (*domain.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE id = $1`
	req, err := scanRequest(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("RequestRepository.FindByID: %w", err)
	}
	return req, nil
}

func (r *pgRequestRepository) FindByUser(ctx context.Context, userID int) ([]domain.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE user_id = $1 ORDER BY created_at DESC`
	return r.collect(ctx, query, "RequestRepository.FindByUser", userID)
}

func (r *pgRequestRepository) FindByStatus(ctx context.Context, status domain.RequestStatus) ([]domain.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE status = $1 ORDER BY created_at`
	return r.collect(ctx, query, "RequestRepository.FindByStatus", status)
}

func (r *pgRequestRepository) collect(ctx context.Context, query, op string, args ...any) ([]domain.Request, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var requests []domain.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("%s (scanning row): %w", op, err)
		}
		requests = append(requests, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s (rows error): %w", op, err)
	}
	return requests, nil
}

// UpdateStatus only matches pending rows, so a second review of the same
// request reports ErrNotFound instead of paying the reward twice.
func (r *pgRequestRepository) UpdateStatus(ctx context.Context, id string, status domain.RequestStatus, reviewerID int, note string, coins int, at time.Time) (*domain.Request, error) {
	query := `UPDATE requests SET status = $2, reviewed_by = $3, reviewed_at = $4, review_note = $5, coins_earned = $6,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + requestColumns
	req, err := scanRequest(r.db.QueryRowContext(ctx, query, id, status, reviewerID, at, note, coins))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("RequestRepository.UpdateStatus: %w", err)
	}
	return req, nil
}
