package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/whoamaiii/sensetrack/internal/models"
)

type sqliteStudentRepository struct {
	db *DB
}

// NewStudentRepository creates a SQLite-backed student repository.
func NewStudentRepository(db *DB) StudentRepository {
	return &sqliteStudentRepository{db: db}
}

func (r *sqliteStudentRepository) Create(ctx context.Context, student *models.Student) (*models.Student, error) {
	now := time.Now().UTC()
	if student.ID == "" {
		student.ID = uuid.New().String()
	}
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO students (id, name, grade, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, student.ID, student.Name, student.Grade, student.Notes, student.CreatedAt, student.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert student: %w", err)
	}
	return student, nil
}

func (r *sqliteStudentRepository) GetByID(ctx context.Context, id string) (*models.Student, error) {
	var s models.Student
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, grade, notes, created_at, updated_at
		FROM students
		WHERE id = ?
	`, id).Scan(&s.ID, &s.Name, &s.Grade, &s.Notes, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query student: %w", err)
	}
	return &s, nil
}

func (r *sqliteStudentRepository) List(ctx context.Context, limit, offset int) ([]models.Student, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, grade, notes, created_at, updated_at
		FROM students
		ORDER BY name ASC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	students := []models.Student{}
	for rows.Next() {
		var s models.Student
		if err := rows.Scan(&s.ID, &s.Name, &s.Grade, &s.Notes, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

func (r *sqliteStudentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
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
