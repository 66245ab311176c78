package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Violation is one persisted violation event.
type Violation struct {
	ID          string
	TrackID     string
	Source      string
	FrameNumber int64
	Timestamp   time.Time
	Type        string
	Confidence  float64
	FramePath   string
	Metadata    json.RawMessage
	CreatedAt   time.Time
}

// ViolationRepository provides CRUD operations for violations.
type ViolationRepository struct {
	db *sql.DB
}

// Violations returns the violation repository for this store.
func (s *Store) Violations() *ViolationRepository {
	return &ViolationRepository{db: s.db}
}

// Create inserts a new violation into the database.
func (r *ViolationRepository) Create(v *Violation) error {
	v.CreatedAt = time.Now()

	metadata := v.Metadata
	if metadata == nil {
		metadata = json.RawMessage("{}")
	}
	if v.Source == "" {
		v.Source = "default"
	}

	_, err := r.db.Exec(
		`INSERT INTO violations (id, track_id, source, frame_number, timestamp, violation_type, confidence, frame_path, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.TrackID, v.Source, v.FrameNumber, v.Timestamp, v.Type, v.Confidence, v.FramePath, string(metadata), v.CreatedAt,
	)
	return err
}

// GetByID retrieves a violation by its ID.
func (r *ViolationRepository) GetByID(id string) (*Violation, error) {
	v := &Violation{}
	var metadata string

	err := r.db.QueryRow(
		`SELECT id, track_id, source, frame_number, timestamp, violation_type, confidence, frame_path, metadata, created_at
		 FROM violations WHERE id = ?`,
		id,
	).Scan(&v.ID, &v.TrackID, &v.Source, &v.FrameNumber, &v.Timestamp, &v.Type, &v.Confidence, &v.FramePath, &metadata, &v.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	v.Metadata = json.RawMessage(metadata)
	return v, nil
}

// List retrieves violations newest first. A limit of 0 returns all rows.
func (r *ViolationRepository) List(limit int) ([]*Violation, error) {
	query := `SELECT id, track_id, source, frame_number, timestamp, violation_type, confidence, frame_path, metadata, created_at
		 FROM violations ORDER BY created_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var violations []*Violation
	for rows.Next() {
		v := &Violation{}
		var metadata string

		err := rows.Scan(&v.ID, &v.TrackID, &v.Source, &v.FrameNumber, &v.Timestamp, &v.Type, &v.Confidence, &v.FramePath, &metadata, &v.CreatedAt)
		if err != nil {
			return nil, err
		}

		v.Metadata = json.RawMessage(metadata)
		violations = append(violations, v)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return violations, nil
}

// Count returns the total number of persisted violations.
func (r *ViolationRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM violations`).Scan(&count)
	return count, err
}

// CountSince returns the number of violations recorded after the given time.
func (r *ViolationRepository) CountSince(since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM violations WHERE created_at >= ?`, since).Scan(&count)
	return count, err
}

// CountByType returns violation counts grouped by violation type.
func (r *ViolationRepository) CountByType() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT violation_type, COUNT(*) FROM violations GROUP BY violation_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var vType string
		var count int
		if err := rows.Scan(&vType, &count); err != nil {
			return nil, err
		}
		counts[vType] = count
	}

	return counts, rows.Err()
}
