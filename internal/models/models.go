package models

import "time"

// Student represents a tracked student profile
type Student struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Grade     string    `json:"grade,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EmotionEntry represents a single observed emotion with an intensity rating.
// Intensity is a practically-0..10 scale; only finiteness is enforced.
type EmotionEntry struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id,omitempty"`
	Emotion   string    `json:"emotion"`
	Intensity float64   `json:"intensity"`
	Timestamp time.Time `json:"timestamp"`
	Triggers  []string  `json:"triggers,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
}

// SensoryEntry represents a single observed sensory response
type SensoryEntry struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"student_id,omitempty"`
	SensoryType string    `json:"sensory_type"`
	Response    string    `json:"response"`
	Intensity   *float64  `json:"intensity,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Location    *string   `json:"location,omitempty"`
	Notes       *string   `json:"notes,omitempty"`
}

// RoomConditions captures the measurable state of the room during a session
type RoomConditions struct {
	NoiseLevel  *float64 `json:"noise_level,omitempty"`
	Lighting    *string  `json:"lighting,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// EnvironmentalData captures the session environment
type EnvironmentalData struct {
	Location       *string         `json:"location,omitempty"`
	Activity       *string         `json:"activity,omitempty"`
	RoomConditions *RoomConditions `json:"room_conditions,omitempty"`
}

// TrackingEntry represents one tracking session for a student.
// It references its student by id only; deleting a student does not
// cascade through entries at this layer.
type TrackingEntry struct {
	ID                string             `json:"id"`
	StudentID         string             `json:"student_id"`
	Timestamp         time.Time          `json:"timestamp"`
	Emotions          []EmotionEntry     `json:"emotions"`
	SensoryInputs     []SensoryEntry     `json:"sensory_inputs"`
	EnvironmentalData *EnvironmentalData `json:"environmental_data,omitempty"`
	Notes             *string            `json:"notes,omitempty"`
	GeneralNotes      *string            `json:"general_notes,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// GoalDataPoint is one measured progress value toward a goal
type GoalDataPoint struct {
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// Goal represents a longer-term objective with measured progress
type Goal struct {
	ID          string          `json:"id"`
	StudentID   string          `json:"student_id"`
	Title       string          `json:"title"`
	Description *string         `json:"description,omitempty"`
	TargetValue float64         `json:"target_value"`
	DataPoints  []GoalDataPoint `json:"data_points,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CreateTrackingEntryRequest is the request body for recording a session
type CreateTrackingEntryRequest struct {
	Timestamp         time.Time          `json:"timestamp" binding:"required"`
	Emotions          []EmotionEntry     `json:"emotions"`
	SensoryInputs     []SensoryEntry     `json:"sensory_inputs"`
	EnvironmentalData *EnvironmentalData `json:"environmental_data"`
	Notes             *string            `json:"notes"`
	GeneralNotes      *string            `json:"general_notes"`
}

// RawCreateTrackingEntryRequest is the loosely-typed form of
// CreateTrackingEntryRequest used for manual parsing and aggregated
// field validation at the HTTP layer.
type RawCreateTrackingEntryRequest struct {
	Timestamp         string             `json:"timestamp"`
	Emotions          []EmotionEntry     `json:"emotions"`
	SensoryInputs     []SensoryEntry     `json:"sensory_inputs"`
	EnvironmentalData *EnvironmentalData `json:"environmental_data"`
	Notes             *string            `json:"notes"`
	GeneralNotes      *string            `json:"general_notes"`
}

// CreateStudentRequest is the request body for registering a student
type CreateStudentRequest struct {
	Name  string  `json:"name" binding:"required"`
	Grade string  `json:"grade"`
	Notes *string `json:"notes"`
}
