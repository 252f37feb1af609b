package worker

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/whoamaiii/sensetrack/internal/cachekey"
	"github.com/whoamaiii/sensetrack/internal/models"
)

// ExportPayload carries the records to export. From/To, when set, restrict
// the export to entries within the inclusive date range. Anonymize replaces
// student identifiers with stable pseudonyms and strips free-text notes.
type ExportPayload struct {
	Entries   []models.TrackingEntry `json:"entries"`
	Emotions  []models.EmotionEntry  `json:"emotions"`
	Sensory   []models.SensoryEntry  `json:"sensory_inputs"`
	From      *time.Time             `json:"from,omitempty"`
	To        *time.Time             `json:"to,omitempty"`
	Anonymize bool                   `json:"anonymize,omitempty"`
}

func (p ExportPayload) inRange(ts time.Time) bool {
	if p.From != nil && ts.Before(*p.From) {
		return false
	}
	if p.To != nil && ts.After(*p.To) {
		return false
	}
	return true
}

func (p ExportPayload) filtered() ExportPayload {
	out := ExportPayload{From: p.From, To: p.To, Anonymize: p.Anonymize}
	for _, e := range p.Entries {
		if p.inRange(e.Timestamp) {
			out.Entries = append(out.Entries, e)
		}
	}
	for _, e := range p.Emotions {
		if p.inRange(e.Timestamp) {
			out.Emotions = append(out.Emotions, e)
		}
	}
	for _, s := range p.Sensory {
		if p.inRange(s.Timestamp) {
			out.Sensory = append(out.Sensory, s)
		}
	}
	return out
}

// pseudonym derives a stable, non-reversible identifier so anonymized
// exports remain joinable across files.
func pseudonym(studentID string) string {
	if studentID == "" {
		return ""
	}
	return "student-" + cachekey.HashString(studentID)[:8]
}

func (p ExportPayload) anonymized() ExportPayload {
	out := p
	out.Entries = make([]models.TrackingEntry, len(p.Entries))
	for i, e := range p.Entries {
		e.StudentID = pseudonym(e.StudentID)
		e.Notes = nil
		e.GeneralNotes = nil
		e.Emotions = append([]models.EmotionEntry{}, e.Emotions...)
		for j := range e.Emotions {
			e.Emotions[j].StudentID = pseudonym(e.Emotions[j].StudentID)
			e.Emotions[j].Notes = nil
		}
		e.SensoryInputs = append([]models.SensoryEntry{}, e.SensoryInputs...)
		for j := range e.SensoryInputs {
			e.SensoryInputs[j].StudentID = pseudonym(e.SensoryInputs[j].StudentID)
			e.SensoryInputs[j].Notes = nil
		}
		out.Entries[i] = e
	}
	out.Emotions = make([]models.EmotionEntry, len(p.Emotions))
	for i, e := range p.Emotions {
		e.StudentID = pseudonym(e.StudentID)
		e.Notes = nil
		out.Emotions[i] = e
	}
	out.Sensory = make([]models.SensoryEntry, len(p.Sensory))
	for i, s := range p.Sensory {
		s.StudentID = pseudonym(s.StudentID)
		s.Notes = nil
		s.Location = nil
		out.Sensory[i] = s
	}
	return out
}

var csvHeader = []string{"record_type", "id", "student_id", "timestamp", "emotion", "intensity", "sensory_type", "response"}

func (p ExportPayload) renderCSV(emit func(float64, string)) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.Write(csvHeader); err != nil {
		return "", fmt.Errorf("writing csv header: %w", err)
	}

	for _, e := range p.Emotions {
		row := []string{"emotion", e.ID, e.StudentID, e.Timestamp.UTC().Format(time.RFC3339),
			e.Emotion, formatFloat(e.Intensity), "", ""}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("writing emotion row: %w", err)
		}
	}
	emit(0.7, "wrote emotion rows")

	for _, s := range p.Sensory {
		intensity := ""
		if s.Intensity != nil {
			intensity = formatFloat(*s.Intensity)
		}
		row := []string{"sensory", s.ID, s.StudentID, s.Timestamp.UTC().Format(time.RFC3339),
			"", intensity, s.SensoryType, s.Response}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("writing sensory row: %w", err)
		}
	}

	for _, e := range p.Entries {
		row := []string{"entry", e.ID, e.StudentID, e.Timestamp.UTC().Format(time.RFC3339),
			"", "", "", ""}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("writing entry row: %w", err)
		}
	}
	emit(0.9, "wrote session rows")

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flushing csv: %w", err)
	}
	return sb.String(), nil
}

func (p ExportPayload) renderJSON(emit func(float64, string)) (string, error) {
	doc := struct {
		GeneratedAt time.Time              `json:"generated_at"`
		Entries     []models.TrackingEntry `json:"entries"`
		Emotions    []models.EmotionEntry  `json:"emotions"`
		Sensory     []models.SensoryEntry  `json:"sensory_inputs"`
	}{
		GeneratedAt: time.Now().UTC(),
		Entries:     orEmptyEntries(p.Entries),
		Emotions:    orEmptyEmotions(p.Emotions),
		Sensory:     orEmptySensory(p.Sensory),
	}
	emit(0.9, "encoding json")

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding json export: %w", err)
	}
	return string(data), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func orEmptyEntries(in []models.TrackingEntry) []models.TrackingEntry {
	if in == nil {
		return []models.TrackingEntry{}
	}
	return in
}

func orEmptyEmotions(in []models.EmotionEntry) []models.EmotionEntry {
	if in == nil {
		return []models.EmotionEntry{}
	}
	return in
}

func orEmptySensory(in []models.SensoryEntry) []models.SensoryEntry {
	if in == nil {
		return []models.SensoryEntry{}
	}
	return in
}
