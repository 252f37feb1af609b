package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/whoamaiii/sensetrack/internal/models"
)

type sqliteGoalRepository struct {
	db *DB
}

// NewGoalRepository creates a SQLite-backed goal repository.
func NewGoalRepository(db *DB) GoalRepository {
	return &sqliteGoalRepository{db: db}
}

func (r *sqliteGoalRepository) Create(ctx context.Context, goal *models.Goal) (*models.Goal, error) {
	now := time.Now().UTC()
	if goal.ID == "" {
		goal.ID = uuid.New().String()
	}
	if goal.CreatedAt.IsZero() {
		goal.CreatedAt = now
	}
	goal.UpdatedAt = now

	points, err := marshalDataPoints(goal.DataPoints)
	if err != nil {
		return nil, fmt.Errorf("encoding data points: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO goals (id, student_id, title, description, target_value, data_points, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, goal.ID, goal.StudentID, goal.Title, goal.Description, goal.TargetValue, points, goal.CreatedAt, goal.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert goal: %w", err)
	}
	return goal, nil
}

func (r *sqliteGoalRepository) GetByStudent(ctx context.Context, studentID string) ([]models.Goal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, student_id, title, description, target_value, data_points, created_at, updated_at
		FROM goals
		WHERE student_id = ?
		ORDER BY created_at ASC
	`, studentID)
	if err != nil {
		return nil, fmt.Errorf("query goals: %w", err)
	}
	defer rows.Close()

	goals := []models.Goal{}
	for rows.Next() {
		var g models.Goal
		var points sql.NullString
		err := rows.Scan(&g.ID, &g.StudentID, &g.Title, &g.Description, &g.TargetValue,
			&points, &g.CreatedAt, &g.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		if points.Valid && points.String != "" {
			if err := json.Unmarshal([]byte(points.String), &g.DataPoints); err != nil {
				return nil, fmt.Errorf("decoding data points: %w", err)
			}
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

func (r *sqliteGoalRepository) AddDataPoint(ctx context.Context, goalID string, point models.GoalDataPoint) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var points sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT data_points FROM goals WHERE id = ?`, goalID).Scan(&points)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("query goal data points: %w", err)
	}

	var existing []models.GoalDataPoint
	if points.Valid && points.String != "" {
		if err := json.Unmarshal([]byte(points.String), &existing); err != nil {
			return fmt.Errorf("decoding data points: %w", err)
		}
	}
	existing = append(existing, point)

	updated, err := marshalDataPoints(existing)
	if err != nil {
		return fmt.Errorf("encoding data points: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE goals SET data_points = ?, updated_at = ? WHERE id = ?
	`, updated, time.Now().UTC(), goalID)
	if err != nil {
		return fmt.Errorf("update goal data points: %w", err)
	}

	return tx.Commit()
}

func marshalDataPoints(points []models.GoalDataPoint) (sql.NullString, error) {
	if len(points) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(points)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
