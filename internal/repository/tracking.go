package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/whoamaiii/sensetrack/internal/models"
)

type sqliteTrackingRepository struct {
	db *DB
}

// NewTrackingRepository creates a SQLite-backed tracking repository.
func NewTrackingRepository(db *DB) TrackingRepository {
	return &sqliteTrackingRepository{db: db}
}

func (r *sqliteTrackingRepository) CreateEntry(ctx context.Context, entry *models.TrackingEntry) (*models.TrackingEntry, error) {
	now := time.Now().UTC()
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	envJSON, err := marshalNullable(entry.EnvironmentalData)
	if err != nil {
		return nil, fmt.Errorf("encoding environmental data: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tracking_entries (id, student_id, timestamp, environmental_data, notes, general_notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.StudentID, entry.Timestamp.UTC(), envJSON, entry.Notes, entry.GeneralNotes, entry.CreatedAt, entry.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert tracking entry: %w", err)
	}

	for i := range entry.Emotions {
		e := &entry.Emotions[i]
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		if e.StudentID == "" {
			e.StudentID = entry.StudentID
		}
		triggers, err := marshalNullable(e.Triggers)
		if err != nil {
			return nil, fmt.Errorf("encoding triggers: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO emotion_entries (id, entry_id, student_id, emotion, intensity, timestamp, triggers, notes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, e.ID, entry.ID, e.StudentID, e.Emotion, e.Intensity, e.Timestamp.UTC(), triggers, e.Notes)
		if err != nil {
			return nil, fmt.Errorf("insert emotion entry: %w", err)
		}
	}

	for i := range entry.SensoryInputs {
		s := &entry.SensoryInputs[i]
		if s.ID == "" {
			s.ID = uuid.New().String()
		}
		if s.StudentID == "" {
			s.StudentID = entry.StudentID
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sensory_entries (id, entry_id, student_id, sensory_type, response, intensity, timestamp, location, notes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, s.ID, entry.ID, s.StudentID, s.SensoryType, s.Response, s.Intensity, s.Timestamp.UTC(), s.Location, s.Notes)
		if err != nil {
			return nil, fmt.Errorf("insert sensory entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tracking entry: %w", err)
	}
	return entry, nil
}

func (r *sqliteTrackingRepository) GetEntryByID(ctx context.Context, id string) (*models.TrackingEntry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, student_id, timestamp, environmental_data, notes, general_notes, created_at, updated_at
		FROM tracking_entries
		WHERE id = ?
	`, id)
	entry, err := scanEntry(row)
	if err != nil {
		return nil, err
	}
	entries := []models.TrackingEntry{*entry}
	if err := r.attachRecords(ctx, entries); err != nil {
		return nil, err
	}
	return &entries[0], nil
}

func (r *sqliteTrackingRepository) GetEntriesByStudent(ctx context.Context, studentID string) ([]models.TrackingEntry, error) {
	return r.queryEntries(ctx, `
		SELECT id, student_id, timestamp, environmental_data, notes, general_notes, created_at, updated_at
		FROM tracking_entries
		WHERE student_id = ?
		ORDER BY timestamp ASC
	`, studentID)
}

func (r *sqliteTrackingRepository) GetEntriesByStudentAndDateRange(ctx context.Context, studentID string, start, end time.Time) ([]models.TrackingEntry, error) {
	return r.queryEntries(ctx, `
		SELECT id, student_id, timestamp, environmental_data, notes, general_notes, created_at, updated_at
		FROM tracking_entries
		WHERE student_id = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC
	`, studentID, start.UTC(), end.UTC())
}

func (r *sqliteTrackingRepository) GetEmotionsByStudent(ctx context.Context, studentID string) ([]models.EmotionEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, entry_id, student_id, emotion, intensity, timestamp, triggers, notes
		FROM emotion_entries
		WHERE student_id = ?
		ORDER BY timestamp ASC
	`, studentID)
	if err != nil {
		return nil, fmt.Errorf("query emotion entries: %w", err)
	}
	defer rows.Close()

	emotions := []models.EmotionEntry{}
	for rows.Next() {
		e, _, err := scanEmotion(rows)
		if err != nil {
			return nil, err
		}
		emotions = append(emotions, e)
	}
	return emotions, rows.Err()
}

func (r *sqliteTrackingRepository) GetSensoryByStudent(ctx context.Context, studentID string) ([]models.SensoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, entry_id, student_id, sensory_type, response, intensity, timestamp, location, notes
		FROM sensory_entries
		WHERE student_id = ?
		ORDER BY timestamp ASC
	`, studentID)
	if err != nil {
		return nil, fmt.Errorf("query sensory entries: %w", err)
	}
	defer rows.Close()

	sensory := []models.SensoryEntry{}
	for rows.Next() {
		s, _, err := scanSensory(rows)
		if err != nil {
			return nil, err
		}
		sensory = append(sensory, s)
	}
	return sensory, rows.Err()
}

func (r *sqliteTrackingRepository) DeleteEntry(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tracking_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete tracking entry: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *sqliteTrackingRepository) queryEntries(ctx context.Context, query string, args ...any) ([]models.TrackingEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tracking entries: %w", err)
	}
	defer rows.Close()

	entries := []models.TrackingEntry{}
	for rows.Next() {
		entry, err := scanEntryRows(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachRecords(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// attachRecords loads the nested emotion and sensory records for the given
// entries in two queries and groups them by entry id.
func (r *sqliteTrackingRepository) attachRecords(ctx context.Context, entries []models.TrackingEntry) error {
	if len(entries) == 0 {
		return nil
	}
	index := map[string]*models.TrackingEntry{}
	for i := range entries {
		entries[i].Emotions = []models.EmotionEntry{}
		entries[i].SensoryInputs = []models.SensoryEntry{}
		index[entries[i].ID] = &entries[i]
	}

	placeholders, args := inClause(entries)

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, entry_id, student_id, emotion, intensity, timestamp, triggers, notes
		FROM emotion_entries
		WHERE entry_id IN (`+placeholders+`)
		ORDER BY timestamp ASC
	`, args...)
	if err != nil {
		return fmt.Errorf("query nested emotions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		e, entryID, err := scanEmotion(rows)
		if err != nil {
			return err
		}
		if parent, ok := index[entryID]; ok {
			parent.Emotions = append(parent.Emotions, e)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	sensoryRows, err := r.db.QueryContext(ctx, `
		SELECT id, entry_id, student_id, sensory_type, response, intensity, timestamp, location, notes
		FROM sensory_entries
		WHERE entry_id IN (`+placeholders+`)
		ORDER BY timestamp ASC
	`, args...)
	if err != nil {
		return fmt.Errorf("query nested sensory records: %w", err)
	}
	defer sensoryRows.Close()
	for sensoryRows.Next() {
		s, entryID, err := scanSensory(sensoryRows)
		if err != nil {
			return err
		}
		if parent, ok := index[entryID]; ok {
			parent.SensoryInputs = append(parent.SensoryInputs, s)
		}
	}
	return sensoryRows.Err()
}

func inClause(entries []models.TrackingEntry) (string, []any) {
	placeholders := ""
	args := make([]any, 0, len(entries))
	for i, e := range entries {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
		args = append(args, e.ID)
	}
	return placeholders, args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row *sql.Row) (*models.TrackingEntry, error) {
	entry, err := scanEntryFrom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return entry, err
}

func scanEntryRows(rows *sql.Rows) (*models.TrackingEntry, error) {
	return scanEntryFrom(rows)
}

func scanEntryFrom(scanner rowScanner) (*models.TrackingEntry, error) {
	var entry models.TrackingEntry
	var envJSON sql.NullString
	err := scanner.Scan(&entry.ID, &entry.StudentID, &entry.Timestamp, &envJSON,
		&entry.Notes, &entry.GeneralNotes, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if envJSON.Valid && envJSON.String != "" {
		var env models.EnvironmentalData
		if err := json.Unmarshal([]byte(envJSON.String), &env); err != nil {
			return nil, fmt.Errorf("decoding environmental data: %w", err)
		}
		entry.EnvironmentalData = &env
	}
	return &entry, nil
}

func scanEmotion(scanner rowScanner) (models.EmotionEntry, string, error) {
	var e models.EmotionEntry
	var entryID, triggers sql.NullString
	err := scanner.Scan(&e.ID, &entryID, &e.StudentID, &e.Emotion, &e.Intensity,
		&e.Timestamp, &triggers, &e.Notes)
	if err != nil {
		return e, "", fmt.Errorf("scan emotion entry: %w", err)
	}
	if triggers.Valid && triggers.String != "" {
		if err := json.Unmarshal([]byte(triggers.String), &e.Triggers); err != nil {
			return e, "", fmt.Errorf("decoding triggers: %w", err)
		}
	}
	return e, entryID.String, nil
}

func scanSensory(scanner rowScanner) (models.SensoryEntry, string, error) {
	var s models.SensoryEntry
	var entryID sql.NullString
	err := scanner.Scan(&s.ID, &entryID, &s.StudentID, &s.SensoryType, &s.Response,
		&s.Intensity, &s.Timestamp, &s.Location, &s.Notes)
	if err != nil {
		return s, "", fmt.Errorf("scan sensory entry: %w", err)
	}
	return s, entryID.String, nil
}

func marshalNullable(v any) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	switch t := v.(type) {
	case *models.EnvironmentalData:
		if t == nil {
			return sql.NullString{}, nil
		}
	case []string:
		if len(t) == 0 {
			return sql.NullString{}, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
