package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/tejaswanole/automated-smart-parking-system/internal/domain"
	"github.com/tejaswanole/automated-smart-parking-system/internal/repository"
)

// Count and capacity columns per vehicle class. Column names are taken from
// this table only, never from request input.
var vehicleColumns = map[domain.VehicleType]struct {
	count    string
	capacity string
}{
	domain.VehicleCar:      {count: "count_car", capacity: "capacity_car"},
	domain.VehicleBusTruck: {count: "count_bus_truck", capacity: "capacity_bus_truck"},
	domain.VehicleBike:     {count: "count_bike", capacity: "capacity_bike"},
}

const parkingColumns = `id, parking_code, name, description, latitude, longitude, address,
	parking_type, payment_type, ownership_type,
	capacity_car, capacity_bus_truck, capacity_bike,
	count_car, count_bus_truck, count_bike,
	rate_car, rate_bus_truck, rate_bike,
	owner_id, is_active, is_approved, approved_by, approved_at,
	last_updated, created_at, updated_at`

type pgParkingRepository struct {
	db *sql.DB
}

func NewPgParkingRepository(db *sql.DB) repository.ParkingRepository {
	return &pgParkingRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParking(row rowScanner) (*domain.Parking, error) {
	p := &domain.Parking{}
	err := row.Scan(
		&p.ID, &p.ParkingCode, &p.Name, &p.Description, &p.Latitude, &p.Longitude, &p.Address,
		&p.ParkingType, &p.PaymentType, &p.OwnershipType,
		&p.Capacity.Car, &p.Capacity.BusTruck, &p.Capacity.Bike,
		&p.CurrentCount.Car, &p.CurrentCount.BusTruck, &p.CurrentCount.Bike,
		&p.HourlyRate.Car, &p.HourlyRate.BusTruck, &p.HourlyRate.Bike,
		&p.OwnerID, &p.IsActive, &p.IsApproved, &p.ApprovedBy, &p.ApprovedAt,
		&p.LastUpdated, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.LastUpdated = p.LastUpdated.In(time.UTC)
	p.CreatedAt = p.CreatedAt.In(time.UTC)
	p.UpdatedAt = p.UpdatedAt.In(time.UTC)
	return p, nil
}

func (r *pgParkingRepository) Create(ctx context.Context, parking *domain.Parking) (*domain.Parking, error) {
	if parking.ID == "" {
		parking.ID = uuid.NewString()
	}
	if parking.ParkingCode == "" {
		parking.ParkingCode = domain.ShortCodeFromID(parking.ID)
	}

	query := `INSERT INTO parkings (id, parking_code, name, description, latitude, longitude, address,
			parking_type, payment_type, ownership_type,
			capacity_car, capacity_bus_truck, capacity_bike,
			rate_car, rate_bus_truck, rate_bike,
			owner_id, is_active, is_approved, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, TRUE, FALSE, CURRENT_TIMESTAMP)
		RETURNING ` + parkingColumns
	row := r.db.QueryRowContext(ctx, query,
		parking.ID, parking.ParkingCode, parking.Name, parking.Description,
		parking.Latitude, parking.Longitude, parking.Address,
		parking.ParkingType, parking.PaymentType, parking.OwnershipType,
		parking.Capacity.Car, parking.Capacity.BusTruck, parking.Capacity.Bike,
		parking.HourlyRate.Car, parking.HourlyRate.BusTruck, parking.HourlyRate.Bike,
		parking.OwnerID,
	)
	created, err := scanParking(row)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, fmt.Errorf("%w: parking code '%s' already exists", repository.ErrDuplicateEntry, parking.ParkingCode)
		}
		return nil, fmt.Errorf("ParkingRepository.Create: %w", err)
	}
	return created, nil
}

func filterClause(filter repository.ParkingFilter, args []any) (string, []any) {
	clause := ""
	if filter.ApprovedOnly {
		clause += " AND is_approved"
	}
	if filter.OwnerID != 0 {
		args = append(args, filter.OwnerID)
		clause += fmt.Sprintf(" AND owner_id = $%d", len(args))
	}
	return clause, args
}

func (r *pgParkingRepository) FindByRef(ctx context.Context, ref string, filter repository.ParkingFilter) (*domain.Parking, error) {
	// Internal id first when the ref parses as one, then fall back to the
	// short code so stale codes that happen to look like UUIDs still resolve.
	if _, err := uuid.Parse(ref); err == nil {
		p, err := r.findByColumn(ctx, "id", ref, filter)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}
	return r.findByColumn(ctx, "parking_code", ref, filter)
}

func (r *pgParkingRepository) findByColumn(ctx context.Context, column, value string, filter repository.ParkingFilter) (*domain.Parking, error) {
	args := []any{value}
	clause, args := filterClause(filter, args)
	query := `SELECT ` + parkingColumns + ` FROM parkings WHERE ` + column + ` = $1 AND is_active` + clause
	p, err := scanParking(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingRepository.FindByRef: %w", err)
	}
	return p, nil
}

func (r *pgParkingRepository) FindAll(ctx context.Context, filter repository.ParkingFilter) ([]domain.Parking, error) {
	var args []any
	clause, args := filterClause(filter, args)
	query := `SELECT ` + parkingColumns + ` FROM parkings WHERE is_active` + clause + ` ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ParkingRepository.FindAll: %w", err)
	}
	defer rows.Close()
	return collectParkings(rows, "ParkingRepository.FindAll")
}

func (r *pgParkingRepository) FindNearby(ctx context.Context, lat, lng float64, radiusMeters float64, filter repository.ParkingFilter) ([]domain.Parking, error) {
	args := []any{lat, lng}
	clause, args := filterClause(filter, args)
	args = append(args, radiusMeters)
	// Haversine distance in meters; mean earth radius 6371 km.
	query := fmt.Sprintf(`SELECT %s FROM (
			SELECT *, (6371000 * acos(least(1.0,
				cos(radians($1)) * cos(radians(latitude)) * cos(radians(longitude) - radians($2)) +
				sin(radians($1)) * sin(radians(latitude))))) AS distance_m
			FROM parkings
			WHERE is_active%s
		) nearby WHERE distance_m <= $%d ORDER BY distance_m`, parkingColumns, clause, len(args))
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ParkingRepository.FindNearby: %w", err)
	}
	defer rows.Close()
	return collectParkings(rows, "ParkingRepository.FindNearby")
}

func collectParkings(rows *sql.Rows, op string) ([]domain.Parking, error) {
	var parkings []domain.Parking
	for rows.Next() {
		p, err := scanParking(rows)
		if err != nil {
			return nil, fmt.Errorf("%s (scanning row): %w", op, err)
		}
		parkings = append(parkings, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s (rows error): %w", op, err)
	}
	return parkings, nil
}

func (r *pgParkingRepository) Update(ctx context.Context, parking *domain.Parking) (*domain.Parking, error) {
	query := `UPDATE parkings SET name = $1, description = $2, latitude = $3, longitude = $4, address = $5,
			parking_type = $6, payment_type = $7, ownership_type = $8,
			rate_car = $9, rate_bus_truck = $10, rate_bike = $11,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $12 AND is_active
		RETURNING ` + parkingColumns
	row := r.db.QueryRowContext(ctx, query,
		parking.Name, parking.Description, parking.Latitude, parking.Longitude, parking.Address,
		parking.ParkingType, parking.PaymentType, parking.OwnershipType,
		parking.HourlyRate.Car, parking.HourlyRate.BusTruck, parking.HourlyRate.Bike,
		parking.ID,
	)
	updated, err := scanParking(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingRepository.Update: %w", err)
	}
	return updated, nil
}

func (r *pgParkingRepository) Deactivate(ctx context.Context, id string) error {
	query := `UPDATE parkings SET is_active = FALSE, updated_at = CURRENT_TIMESTAMP WHERE id = $1 AND is_active`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("ParkingRepository.Deactivate: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ParkingRepository.Deactivate (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *pgParkingRepository) Approve(ctx context.Context, id string, adminID int, at time.Time) (*domain.Parking, error) {
	query := `UPDATE parkings SET is_approved = TRUE, approved_by = $2, approved_at = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND is_active
		RETURNING ` + parkingColumns
	p, err := scanParking(r.db.QueryRowContext(ctx, query, id, adminID, at))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingRepository.Approve: %w", err)
	}
	return p, nil
}

// SetCount bounds-checks and writes in one statement so two concurrent
// mutators can never interleave a read-modify-write.
func (r *pgParkingRepository) SetCount(ctx context.Context, id string, vehicle domain.VehicleType, count int) (*domain.Parking, error) {
	cols, ok := vehicleColumns[vehicle]
	if !ok {
		return nil, domain.ErrInvalidVehicleType
	}
	query := fmt.Sprintf(`UPDATE parkings SET %s = $2, last_updated = CURRENT_TIMESTAMP
		WHERE id = $1 AND is_active AND $2 <= %s
		RETURNING %s`, cols.count, cols.capacity, parkingColumns)
	p, err := scanParking(r.db.QueryRowContext(ctx, query, id, count))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.classifyCountFailure(ctx, id, vehicle, count, false)
		}
		return nil, fmt.Errorf("ParkingRepository.SetCount: %w", err)
	}
	return p, nil
}

func (r *pgParkingRepository) AddCount(ctx context.Context, id string, vehicle domain.VehicleType, delta int) (*domain.Parking, error) {
	cols, ok := vehicleColumns[vehicle]
	if !ok {
		return nil, domain.ErrInvalidVehicleType
	}
	query := fmt.Sprintf(`UPDATE parkings SET %s = %s + $2, last_updated = CURRENT_TIMESTAMP
		WHERE id = $1 AND is_active AND %s + $2 >= 0 AND %s + $2 <= %s
		RETURNING %s`, cols.count, cols.count, cols.count, cols.count, cols.capacity, parkingColumns)
	p, err := scanParking(r.db.QueryRowContext(ctx, query, id, delta))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.classifyCountFailure(ctx, id, vehicle, delta, true)
		}
		return nil, fmt.Errorf("ParkingRepository.AddCount: %w", err)
	}
	return p, nil
}

func (r *pgParkingRepository) SetAllCounts(ctx context.Context, id string, counts domain.VehicleCounts, capacity *domain.VehicleCounts) (*domain.Parking, error) {
	// COALESCE applies the new ceilings before the counts are validated, so a
	// detection update that raises capacity and count together is judged
	// against the capacity it carries.
	var capCar, capBusTruck, capBike sql.NullInt64
	if capacity != nil {
		capCar = sql.NullInt64{Int64: int64(capacity.Car), Valid: true}
		capBusTruck = sql.NullInt64{Int64: int64(capacity.BusTruck), Valid: true}
		capBike = sql.NullInt64{Int64: int64(capacity.Bike), Valid: true}
	}
	query := `UPDATE parkings SET
			capacity_car = COALESCE($5, capacity_car),
			capacity_bus_truck = COALESCE($6, capacity_bus_truck),
			capacity_bike = COALESCE($7, capacity_bike),
			count_car = $2, count_bus_truck = $3, count_bike = $4,
			last_updated = CURRENT_TIMESTAMP
		WHERE id = $1 AND is_active
			AND $2 <= COALESCE($5, capacity_car)
			AND $3 <= COALESCE($6, capacity_bus_truck)
			AND $4 <= COALESCE($7, capacity_bike)
		RETURNING ` + parkingColumns
	row := r.db.QueryRowContext(ctx, query, id,
		counts.Car, counts.BusTruck, counts.Bike,
		capCar, capBusTruck, capBike,
	)
	p, err := scanParking(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if exists, lookupErr := r.activeExists(ctx, id); lookupErr != nil {
				return nil, lookupErr
			} else if !exists {
				return nil, repository.ErrNotFound
			}
			return nil, domain.ErrCapacityExceeded
		}
		return nil, fmt.Errorf("ParkingRepository.SetAllCounts: %w", err)
	}
	return p, nil
}

// classifyCountFailure re-reads the row to turn a zero-row conditional update
// into the caller-facing error. The ledger was not modified on this path.
func (r *pgParkingRepository) classifyCountFailure(ctx context.Context, id string, vehicle domain.VehicleType, value int, isDelta bool) error {
	cols := vehicleColumns[vehicle]
	var current, capacity int
	query := fmt.Sprintf(`SELECT %s, %s FROM parkings WHERE id = $1 AND is_active`, cols.count, cols.capacity)
	err := r.db.QueryRowContext(ctx, query, id).Scan(&current, &capacity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("ParkingRepository (classifying count failure): %w", err)
	}
	result := value
	if isDelta {
		result = current + value
	}
	if result < 0 {
		return domain.ErrInvalidCount
	}
	if result > capacity {
		return domain.ErrCapacityExceeded
	}
	// The update raced with a concurrent writer; report it as a capacity
	// rejection so the caller re-reads rather than retrying blindly.
	return domain.ErrCapacityExceeded
}

func (r *pgParkingRepository) activeExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM parkings WHERE id = $1 AND is_active)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ParkingRepository (checking existence): %w", err)
	}
	return exists, nil
}

func (r *pgParkingRepository) AssignStaff(ctx context.Context, parkingID string, userID int) error {
	query := `INSERT INTO parking_staff (parking_id, user_id)
		SELECT $1, $2
		WHERE (SELECT COUNT(*) FROM parking_staff WHERE parking_id = $1) < $3`
	result, err := r.db.ExecContext(ctx, query, parkingID, userID, domain.MaxStaffPerParking)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code.Name() {
			case "unique_violation":
				return fmt.Errorf("%w: user %d is already staff for parking %s", repository.ErrDuplicateEntry, userID, parkingID)
			case "foreign_key_violation":
				return repository.ErrNotFound
			}
		}
		return fmt.Errorf("ParkingRepository.AssignStaff: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ParkingRepository.AssignStaff (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrStaffLimitExceeded
	}
	return nil
}

func (r *pgParkingRepository) RemoveStaff(ctx context.Context, parkingID string, userID int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM parking_staff WHERE parking_id = $1 AND user_id = $2`, parkingID, userID)
	if err != nil {
		return fmt.Errorf("ParkingRepository.RemoveStaff: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ParkingRepository.RemoveStaff (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *pgParkingRepository) ListStaff(ctx context.Context, parkingID string) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id FROM parking_staff WHERE parking_id = $1 ORDER BY user_id`, parkingID)
	if err != nil {
		return nil, fmt.Errorf("ParkingRepository.ListStaff: %w", err)
	}
	defer rows.Close()

	var staff []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ParkingRepository.ListStaff (scanning row): %w", err)
		}
		staff = append(staff, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ParkingRepository.ListStaff (rows error): %w", err)
	}
	return staff, nil
}

func (r *pgParkingRepository) IsStaff(ctx context.Context, parkingID string, userID int) (bool, error) {
	var isStaff bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM parking_staff WHERE parking_id = $1 AND user_id = $2)`,
		parkingID, userID).Scan(&isStaff)
	if err != nil {
		return false, fmt.Errorf("ParkingRepository.IsStaff: %w", err)
	}
	return isStaff, nil
}
