package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"slotbook/internal/domain"
	"slotbook/internal/models"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

const reservationColumns = "id, client_id, start_time, end_time, status, notes, created_at"

// insertResult classifies the outcome of a single reservation insert.
type insertResult int

const (
	inserted insertResult = iota
	constraintViolated
	insertFailed
)

func (r insertResult) String() string {
	switch r {
	case inserted:
		return "inserted"
	case constraintViolated:
		return "constraint_violated"
	default:
		return "insert_failed"
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (*models.Reservation, error) {
	var (
		r                  models.Reservation
		id, clientID       string
		start, end, create int64
		status             string
		notes              sql.NullString
	)
	if err := row.Scan(&id, &clientID, &start, &end, &status, &notes, &create); err != nil {
		return nil, err
	}

	var err error
	if r.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse reservation id %q: %w", id, err)
	}
	if r.ClientID, err = uuid.Parse(clientID); err != nil {
		return nil, fmt.Errorf("parse client id %q: %w", clientID, err)
	}
	r.Slot = models.TimeSlot{Start: fromNanos(start), End: fromNanos(end)}
	r.Status = models.ParseReservationStatus(status)
	if notes.Valid {
		n := notes.String
		r.Notes = &n
	}
	r.CreatedAt = fromNanos(create)
	return &r, nil
}

func scanReservations(rows *sql.Rows) ([]models.Reservation, error) {
	defer rows.Close()

	reservations := make([]models.Reservation, 0)
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, *r)
	}
	return reservations, rows.Err()
}

// IsSlotAvailable reports whether no confirmed reservation overlaps slot at
// the moment of the read. The answer may be stale by the time the caller
// acts on it; only CreateReservation is authoritative.
func (db *DB) IsSlotAvailable(ctx context.Context, slot models.TimeSlot) (bool, error) {
	if err := models.CheckRepresentable(slot.Start, slot.End); err != nil {
		return false, err
	}
	var count int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM reservations
		WHERE status = 'confirmed'
		AND start_time < ? AND ? < end_time`,
		toNanos(slot.End), toNanos(slot.Start),
	).Scan(&count)
	if err != nil {
		return false, domain.NewStorageError("check slot availability", err)
	}
	return count == 0, nil
}

// FindOverlapping returns confirmed reservations that overlap window, ordered
// by start time.
func (db *DB) FindOverlapping(ctx context.Context, window models.TimeSlot) ([]models.Reservation, error) {
	if err := models.CheckRepresentable(window.Start, window.End); err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT `+reservationColumns+` FROM reservations
		WHERE status = 'confirmed'
		AND start_time < ? AND ? < end_time
		ORDER BY start_time`,
		toNanos(window.End), toNanos(window.Start),
	)
	if err != nil {
		return nil, domain.NewStorageError("find overlapping reservations", err)
	}
	reservations, err := scanReservations(rows)
	if err != nil {
		return nil, domain.NewStorageError("find overlapping reservations", err)
	}
	return reservations, nil
}

// CreateReservation books slot for clientID inside a single transaction:
// the client must exist, then the row is inserted as confirmed and the
// overlap trigger decides. Bounds that do not fit in int64 nanoseconds are a
// ValidationError. A trigger rejection becomes domain.ErrReservationConflict;
// any other failure is a StorageError.
// Nothing is written unless the insert succeeds and the commit lands.
func (db *DB) CreateReservation(ctx context.Context, clientID uuid.UUID, slot models.TimeSlot, notes *string) (*models.Reservation, error) {
	if err := models.CheckRepresentable(slot.Start, slot.End); err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, domain.NewStorageError("begin reservation tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	// No delete path exists for clients, so this check cannot be invalidated
	// between here and the insert.
	exists, err := clientExists(ctx, tx, clientID)
	if err != nil {
		return nil, domain.NewStorageError("check client", err)
	}
	if !exists {
		return nil, &domain.ClientNotFoundError{ID: clientID}
	}

	reservation := &models.Reservation{
		ID:        uuid.New(),
		ClientID:  clientID,
		Slot:      models.TimeSlot{Start: slot.Start.UTC(), End: slot.End.UTC()},
		Status:    models.StatusConfirmed,
		Notes:     notes,
		CreatedAt: fromNanos(toNanos(time.Now())),
	}

	result, err := insertReservation(ctx, tx, reservation)
	switch result {
	case inserted:
		if err := tx.Commit(); err != nil {
			return nil, domain.NewStorageError("commit reservation", err)
		}
		return reservation, nil
	case constraintViolated:
		db.logger.Debug().
			Str("client_id", clientID.String()).
			Time("start", slot.Start).
			Time("end", slot.End).
			Msg("Reservation rejected by overlap constraint")
		return nil, domain.ErrReservationConflict
	case insertFailed:
		return nil, domain.NewStorageError("insert reservation", err)
	default:
		return nil, domain.NewStorageError("insert reservation", fmt.Errorf("unexpected insert result %d", result))
	}
}

// insertReservation is the only place a driver error is inspected for the
// overlap constraint.
func insertReservation(ctx context.Context, tx *sql.Tx, r *models.Reservation) (insertResult, error) {
	var notes sql.NullString
	if r.Notes != nil {
		notes = sql.NullString{String: *r.Notes, Valid: true}
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO reservations (`+reservationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID.String(), r.ClientID.String(),
		toNanos(r.Slot.Start), toNanos(r.Slot.End),
		string(r.Status), notes, toNanos(r.CreatedAt),
	)
	if err == nil {
		return inserted, nil
	}
	if isConstraint(err, overlapConstraint) {
		return constraintViolated, err
	}
	return insertFailed, err
}

func isConstraint(err error, name string) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	// RAISE(ABORT) surfaces as SQLITE_CONSTRAINT_TRIGGER carrying the
	// trigger's message.
	return sqliteErr.Code == sqlite3.ErrConstraint && strings.Contains(sqliteErr.Error(), name)
}

// GetReservation returns the reservation with id in any status.
func (db *DB) GetReservation(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	row := db.QueryRowContext(ctx,
		"SELECT "+reservationColumns+" FROM reservations WHERE id = ?", id.String())
	r, err := scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ReservationNotFoundError{ID: id}
	}
	if err != nil {
		return nil, domain.NewStorageError("get reservation", err)
	}
	return r, nil
}

// CancelReservation moves a confirmed reservation to cancelled and reports
// whether this call changed it. Cancelling an already cancelled reservation
// succeeds with changed == false; an unknown id yields
// ReservationNotFoundError.
func (db *DB) CancelReservation(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := db.ExecContext(ctx,
		"UPDATE reservations SET status = 'cancelled' WHERE id = ? AND status = 'confirmed'",
		id.String(),
	)
	if err != nil {
		return false, domain.NewStorageError("cancel reservation", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, domain.NewStorageError("cancel reservation", err)
	}
	if affected > 0 {
		return true, nil
	}

	var one int
	err = db.QueryRowContext(ctx, "SELECT 1 FROM reservations WHERE id = ?", id.String()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, &domain.ReservationNotFoundError{ID: id}
	}
	if err != nil {
		return false, domain.NewStorageError("cancel reservation", err)
	}

	// TODO: decide with API owners whether a repeated cancel should report
	// FailedPrecondition instead of succeeding silently.
	db.logger.Debug().Str("reservation_id", id.String()).Msg("Reservation already cancelled")
	return false, nil
}

// GetClientReservations returns all reservations of a client in any status,
// ordered by start time.
func (db *DB) GetClientReservations(ctx context.Context, clientID uuid.UUID) ([]models.Reservation, error) {
	exists, err := clientExists(ctx, db.DB, clientID)
	if err != nil {
		return nil, domain.NewStorageError("check client", err)
	}
	if !exists {
		return nil, &domain.ClientNotFoundError{ID: clientID}
	}

	rows, err := db.QueryContext(ctx,
		"SELECT "+reservationColumns+" FROM reservations WHERE client_id = ? ORDER BY start_time",
		clientID.String(),
	)
	if err != nil {
		return nil, domain.NewStorageError("list client reservations", err)
	}
	reservations, err := scanReservations(rows)
	if err != nil {
		return nil, domain.NewStorageError("list client reservations", err)
	}
	return reservations, nil
}
