package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const deviceColumns = `id, serial, name, branch_id, ip, secret, active`

func scanDevice(row interface{ Scan(dest ...any) error }) (Device, error) {
	var d Device
	err := row.Scan(&d.ID, &d.Serial, &d.Name, &d.BranchID, &d.IP, &d.Secret, &d.Active)
	return d, err
}

const getDeviceBySerial = `SELECT ` + deviceColumns + ` FROM devices WHERE serial = $1 AND active = true`

func (q *Queries) GetDeviceBySerial(ctx context.Context, serial string) (Device, error) {
	return scanDevice(q.db.QueryRow(ctx, getDeviceBySerial, serial))
}

const getDeviceByIP = `SELECT ` + deviceColumns + ` FROM devices WHERE ip = $1 AND active = true`

func (q *Queries) GetDeviceByIP(ctx context.Context, ip string) (Device, error) {
	return scanDevice(q.db.QueryRow(ctx, getDeviceByIP, ip))
}

type CreateDeviceParams struct {
	Serial   string
	Name     string
	BranchID uuid.UUID
	IP       pgtype.Text
	Secret   pgtype.Text
}

const createDevice = `
INSERT INTO devices (serial, name, branch_id, ip, secret)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + deviceColumns

func (q *Queries) CreateDevice(ctx context.Context, arg CreateDeviceParams) (Device, error) {
	row := q.db.QueryRow(ctx, createDevice, arg.Serial, arg.Name, arg.BranchID, arg.IP, arg.Secret)
	return scanDevice(row)
}

type CreateAttendanceEventParams struct {
	DeviceID    uuid.UUID
	UserID      uuid.UUID
	BiometricID string
	EventType   string
	OccurredAt  time.Time
}

const createAttendanceEvent = `
INSERT INTO attendance_events (device_id, user_id, biometric_id, event_type, occurred_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, device_id, user_id, biometric_id, event_type, occurred_at, created_at`

func (q *Queries) CreateAttendanceEvent(ctx context.Context, arg CreateAttendanceEventParams) (AttendanceEvent, error) {
	var e AttendanceEvent
	err := q.db.QueryRow(ctx, createAttendanceEvent,
		arg.DeviceID, arg.UserID, arg.BiometricID, arg.EventType, arg.OccurredAt,
	).Scan(&e.ID, &e.DeviceID, &e.UserID, &e.BiometricID, &e.EventType, &e.OccurredAt, &e.CreatedAt)
	return e, err
}

// GetLastAttendanceEvent returns the user's most recent event, used to
// alternate check-in / check-out when the device does not say which.
const getLastAttendanceEvent = `
SELECT id, device_id, user_id, biometric_id, event_type, occurred_at, created_at
FROM attendance_events WHERE user_id = $1
ORDER BY occurred_at DESC, created_at DESC
LIMIT 1`

func (q *Queries) GetLastAttendanceEvent(ctx context.Context, userID uuid.UUID) (AttendanceEvent, error) {
	var e AttendanceEvent
	err := q.db.QueryRow(ctx, getLastAttendanceEvent, userID).
		Scan(&e.ID, &e.DeviceID, &e.UserID, &e.BiometricID, &e.EventType, &e.OccurredAt, &e.CreatedAt)
	return e, err
}

type ListAttendanceEventsParams struct {
	UserID    uuid.UUID
	StartDate pgtype.Timestamptz
	EndDate   pgtype.Timestamptz
	Limit     int32
	Offset    int32
}

const listAttendanceEvents = `
SELECT id, device_id, user_id, biometric_id, event_type, occurred_at, created_at
FROM attendance_events
WHERE user_id = $1
  AND ($2::timestamptz IS NULL OR occurred_at >= $2)
  AND ($3::timestamptz IS NULL OR occurred_at < $3)
ORDER BY occurred_at DESC
LIMIT $4 OFFSET $5`

func (q *Queries) ListAttendanceEvents(ctx context.Context, arg ListAttendanceEventsParams) ([]AttendanceEvent, error) {
	rows, err := q.db.Query(ctx, listAttendanceEvents,
		arg.UserID, arg.StartDate, arg.EndDate, arg.Limit, arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []AttendanceEvent
	for rows.Next() {
		var e AttendanceEvent
		if err := rows.Scan(&e.ID, &e.DeviceID, &e.UserID, &e.BiometricID, &e.EventType, &e.OccurredAt, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
