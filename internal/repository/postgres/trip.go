package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// TripRepository is a PostgreSQL implementation of repository.TripRepository.
type TripRepository struct {
	q Querier
}

// NewTripRepository creates a new PostgreSQL trip repository.
func NewTripRepository(db *sql.DB) *TripRepository {
	return &TripRepository{q: db}
}

// NewTripRepositoryWithTx creates a trip repository using a transaction.
func NewTripRepositoryWithTx(tx *sql.Tx) *TripRepository {
	return &TripRepository{q: tx}
}

const tripColumns = `id, rider_id, driver_id, car_id,
	pickup_address, pickup_lat, pickup_lng,
	dropoff_address, dropoff_lat, dropoff_lng,
	driver_lat, driver_lng,
	planned_duration_min, planned_distance_m,
	actual_duration_min, actual_distance_m,
	estimated_fare, toll_fee, final_fare, extra_charge,
	status, cancellation_reason, peak_applied, coupon_applied,
	created_at, accepted_at, arrived_at, started_at, completed_at`

// Create persists a new trip.
func (r *TripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	query := `
		INSERT INTO trips (` + tripColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29)
	`

	_, err := r.q.ExecContext(ctx, query,
		trip.ID,
		trip.RiderID,
		nullString(trip.DriverID),
		nullString(trip.CarID),
		trip.PickupAddress,
		trip.PickupLat,
		trip.PickupLng,
		trip.DropoffAddress,
		trip.DropoffLat,
		trip.DropoffLng,
		trip.DriverLat,
		trip.DriverLng,
		trip.PlannedDurationMin,
		trip.PlannedDistanceM,
		trip.ActualDurationMin,
		trip.ActualDistanceM,
		trip.EstimatedFare,
		trip.TollFee,
		trip.FinalFare,
		trip.ExtraCharge,
		trip.Status,
		pq.Array(trip.CancellationReason),
		trip.PeakApplied,
		trip.CouponApplied,
		trip.CreatedAt,
		nullTime(trip.AcceptedAt),
		nullTime(trip.ArrivedAt),
		nullTime(trip.StartedAt),
		nullTime(trip.CompletedAt),
	)

	return err
}

// GetByID retrieves a trip by ID.
func (r *TripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`

	trip, err := scanTrip(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return trip, nil
}

// UpdateIf applies update to the trip only if its status still equals
// expectedStatus. The condition and the write happen in one statement,
// so writers racing on the same trip are serialized by the database
// and the loser sees ErrConflict.
func (r *TripRepository) UpdateIf(ctx context.Context, id string, expectedStatus domain.TripStatus, update repository.TripUpdate) (*domain.Trip, error) {
	var (
		sets []string
		args []any
	)

	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.Status != nil {
		set("status", *update.Status)
	}
	if update.DriverID != nil {
		set("driver_id", *update.DriverID)
	}
	if update.CarID != nil {
		set("car_id", *update.CarID)
	}
	if update.DriverLat != nil {
		set("driver_lat", *update.DriverLat)
	}
	if update.DriverLng != nil {
		set("driver_lng", *update.DriverLng)
	}
	if update.AcceptedAt != nil {
		set("accepted_at", *update.AcceptedAt)
	}
	if update.ArrivedAt != nil {
		set("arrived_at", *update.ArrivedAt)
	}
	if update.StartedAt != nil {
		set("started_at", *update.StartedAt)
	}
	if update.CompletedAt != nil {
		set("completed_at", *update.CompletedAt)
	}
	if update.ActualDurationMin != nil {
		set("actual_duration_min", *update.ActualDurationMin)
	}
	if update.ActualDistanceM != nil {
		set("actual_distance_m", *update.ActualDistanceM)
	}
	if update.FinalFare != nil {
		set("final_fare", *update.FinalFare)
	}
	if update.ExtraCharge != nil {
		set("extra_charge", *update.ExtraCharge)
	}
	if update.CancellationReason != nil {
		set("cancellation_reason", pq.Array(update.CancellationReason))
	}

	if len(sets) == 0 {
		return nil, errors.New("empty trip update")
	}

	args = append(args, id, expectedStatus)
	query := fmt.Sprintf(
		"UPDATE trips SET %s WHERE id = $%d AND status = $%d",
		strings.Join(sets, ", "), len(args)-1, len(args),
	)

	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}

	if rowsAffected == 0 {
		return nil, repository.ErrConflict
	}

	return r.GetByID(ctx, id)
}

// UpdateDriverLocation sets the trip's live driver coordinates.
func (r *TripRepository) UpdateDriverLocation(ctx context.Context, id string, lat, lng float64) (*domain.Trip, error) {
	query := `UPDATE trips SET driver_lat = $1, driver_lng = $2 WHERE id = $3`

	result, err := r.q.ExecContext(ctx, query, lat, lng, id)
	if err != nil {
		return nil, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}

	if rowsAffected == 0 {
		return nil, repository.ErrNotFound
	}

	return r.GetByID(ctx, id)
}

// AdjustTollFee adds delta to the toll fee, clamping at zero.
func (r *TripRepository) AdjustTollFee(ctx context.Context, id string, delta int64) (*domain.Trip, error) {
	query := `UPDATE trips SET toll_fee = GREATEST(0, toll_fee + $1) WHERE id = $2`

	result, err := r.q.ExecContext(ctx, query, delta, id)
	if err != nil {
		return nil, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}

	if rowsAffected == 0 {
		return nil, repository.ErrNotFound
	}

	return r.GetByID(ctx, id)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrip(row rowScanner) (*domain.Trip, error) {
	var (
		trip        domain.Trip
		driverID    sql.NullString
		carID       sql.NullString
		reasons     pq.StringArray
		acceptedAt  sql.NullTime
		arrivedAt   sql.NullTime
		startedAt   sql.NullTime
		completedAt sql.NullTime
	)

	err := row.Scan(
		&trip.ID,
		&trip.RiderID,
		&driverID,
		&carID,
		&trip.PickupAddress,
		&trip.PickupLat,
		&trip.PickupLng,
		&trip.DropoffAddress,
		&trip.DropoffLat,
		&trip.DropoffLng,
		&trip.DriverLat,
		&trip.DriverLng,
		&trip.PlannedDurationMin,
		&trip.PlannedDistanceM,
		&trip.ActualDurationMin,
		&trip.ActualDistanceM,
		&trip.EstimatedFare,
		&trip.TollFee,
		&trip.FinalFare,
		&trip.ExtraCharge,
		&trip.Status,
		&reasons,
		&trip.PeakApplied,
		&trip.CouponApplied,
		&trip.CreatedAt,
		&acceptedAt,
		&arrivedAt,
		&startedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	trip.DriverID = driverID.String
	trip.CarID = carID.String
	trip.CancellationReason = reasons
	if acceptedAt.Valid {
		trip.AcceptedAt = acceptedAt.Time
	}
	if arrivedAt.Valid {
		trip.ArrivedAt = arrivedAt.Time
	}
	if startedAt.Valid {
		trip.StartedAt = startedAt.Time
	}
	if completedAt.Valid {
		trip.CompletedAt = completedAt.Time
	}

	return &trip, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// Ensure TripRepository implements repository.TripRepository.
var _ repository.TripRepository = (*TripRepository)(nil)
