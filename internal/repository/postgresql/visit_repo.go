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

const visitColumns = `id, user_id, parking_id, visit_date, coins_earned, latitude, longitude,
	distance_meters, is_verified, verification_method, notes, created_at`

type pgVisitRepository struct {
	db *sql.DB
}

func NewPgVisitRepository(db *sql.DB) repository.VisitRepository {
	return &pgVisitRepository{db: db}
}

func scanVisit(row rowScanner) (*domain.Visit, error) {
	v := &domain.Visit{}
	err := row.Scan(
		&v.ID, &v.UserID, &v.ParkingID, &v.VisitDate, &v.CoinsEarned,
		&v.Latitude, &v.Longitude, &v.DistanceMeters,
		&v.IsVerified, &v.VerificationMethod, &v.Notes, &v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	v.VisitDate = v.VisitDate.In(time.UTC)
	v.CreatedAt = v.CreatedAt.In(time.UTC)
	return v, nil
}

func (r *pgVisitRepository) Create(ctx context.Context, visit *domain.Visit) (*domain.Visit, error) {
	if visit.ID == "" {
		visit.ID = uuid.NewString()
	}
	query := `INSERT INTO visits (id, user_id, parking_id, visit_date, coins_earned, latitude, longitude,
			distance_meters, is_verified, verification_method, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + visitColumns
	row := r.db.QueryRowContext(ctx, query,
		visit.ID, visit.UserID, visit.ParkingID, visit.VisitDate, visit.CoinsEarned,
		visit.Latitude, visit.Longitude, visit.DistanceMeters,
		visit.IsVerified, visit.VerificationMethod, visit.Notes,
	)
	created, err := scanVisit(row)
	if err != nil {
		return nil, fmt.Errorf("VisitRepository.Create: %w", err)
	}
	return created, nil
}

func (r *pgVisitRepository) FindByID(ctx context.Context, id string) (*domain.Visit, error) {
	query := `SELECT ` + visitColumns + ` FROM visits WHERE id = $1`
	v, err := scanVisit(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("VisitRepository.FindByID: %w", err)
	}
	return v, nil
}

func (r *pgVisitRepository) FindByUser(ctx context.Context, userID int) ([]domain.Visit, error) {
	query := `SELECT ` + visitColumns + ` FROM visits WHERE user_id = $1 ORDER BY visit_date DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("VisitRepository.FindByUser: %w", err)
	}
	defer rows.Close()

	var visits []domain.Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, fmt.Errorf("VisitRepository.FindByUser (scanning row): %w", err)
		}
		visits = append(visits, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("VisitRepository.FindByUser (rows error): %w", err)
	}
	return visits, nil
}

func (r *pgVisitRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM visits WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("VisitRepository.Delete: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("VisitRepository.Delete: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *pgVisitRepository) CountVerifiedSince(ctx context.Context, userID int, parkingID string, since time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM visits WHERE user_id = $1 AND parking_id = $2 AND is_verified AND visit_date >= $3`
	err := r.db.QueryRowContext(ctx, query, userID, parkingID, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("VisitRepository.CountVerifiedSince: %w", err)
	}
	return count, nil
}
