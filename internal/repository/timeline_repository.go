package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/models"
)

// TimelineRepository is the durable store for finalized timelines. Each
// timeline is written as one JSON document in a single upsert, so readers see
// either the prior or the fully-updated record, never an interleaving.
type TimelineRepository struct {
	db *sql.DB
}

func NewTimelineRepository(db *sql.DB) *TimelineRepository {
	return &TimelineRepository{db: db}
}

// Save inserts the timeline, or overwrites it in place when the id already
// exists (used when a checkpoint is appended after finalize).
func (r *TimelineRepository) Save(timeline models.Timeline) error {
	data, err := json.Marshal(timeline)
	if err != nil {
		return fmt.Errorf("failed to marshal timeline: %w", err)
	}

	query := `
		INSERT INTO timelines (id, start_time, end_time, data, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			data = excluded.data,
			updated_at = excluded.updated_at
	`
	if _, err := r.db.Exec(query, timeline.ID, timeline.StartTime, timeline.EndTime, string(data), time.Now()); err != nil {
		return fmt.Errorf("failed to save timeline: %w", err)
	}
	return nil
}

// GetByID returns the timeline with the given id.
func (r *TimelineRepository) GetByID(id string) (*models.Timeline, error) {
	var data string
	err := r.db.QueryRow(`SELECT data FROM timelines WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("timeline not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get timeline: %w", err)
	}

	var timeline models.Timeline
	if err := json.Unmarshal([]byte(data), &timeline); err != nil {
		return nil, fmt.Errorf("failed to unmarshal timeline: %w", err)
	}
	return &timeline, nil
}

// List returns all timelines, newest first.
func (r *TimelineRepository) List() ([]models.Timeline, error) {
	rows, err := r.db.Query(`SELECT data FROM timelines ORDER BY start_time DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list timelines: %w", err)
	}
	defer rows.Close()

	var timelines []models.Timeline
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan timeline row: %w", err)
		}
		var timeline models.Timeline
		if err := json.Unmarshal([]byte(data), &timeline); err != nil {
			return nil, fmt.Errorf("failed to unmarshal timeline: %w", err)
		}
		timelines = append(timelines, timeline)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate timelines: %w", err)
	}
	return timelines, nil
}

// Delete removes the timeline with the given id.
func (r *TimelineRepository) Delete(id string) error {
	if _, err := r.db.Exec(`DELETE FROM timelines WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete timeline: %w", err)
	}
	return nil
}

// ClearAll removes every stored timeline.
func (r *TimelineRepository) ClearAll() error {
	if _, err := r.db.Exec(`DELETE FROM timelines`); err != nil {
		return fmt.Errorf("failed to clear timelines: %w", err)
	}
	return nil
}

// AppendCheckpoint appends a late-arriving checkpoint to an already-saved
// timeline. Read and overwrite run in one transaction; the checkpoint list is
// the only part of a finalized timeline that still grows.
func (r *TimelineRepository) AppendCheckpoint(id string, cp models.Checkpoint) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var data string
	err = tx.QueryRow(`SELECT data FROM timelines WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return fmt.Errorf("timeline not found: %w", err)
	}
	if err != nil {
		return fmt.Errorf("failed to get timeline: %w", err)
	}

	var timeline models.Timeline
	if err := json.Unmarshal([]byte(data), &timeline); err != nil {
		return fmt.Errorf("failed to unmarshal timeline: %w", err)
	}
	timeline.Checkpoints = append(timeline.Checkpoints, cp)

	updated, err := json.Marshal(timeline)
	if err != nil {
		return fmt.Errorf("failed to marshal timeline: %w", err)
	}
	if _, err := tx.Exec(`UPDATE timelines SET data = ?, updated_at = ? WHERE id = ?`, string(updated), time.Now(), id); err != nil {
		return fmt.Errorf("failed to update timeline: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
