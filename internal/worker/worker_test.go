package worker

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/whoamaiii/sensetrack/internal/logger"
	"github.com/whoamaiii/sensetrack/internal/models"
)

var exportNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func notes(s string) *string { return &s }

func samplePayload() ExportPayload {
	return ExportPayload{
		Entries: []models.TrackingEntry{
			{ID: "t1", StudentID: "s1", Timestamp: exportNow, Notes: notes("private")},
		},
		Emotions: []models.EmotionEntry{
			{ID: "e1", StudentID: "s1", Emotion: "calm", Intensity: 2, Timestamp: exportNow},
			{ID: "e2", StudentID: "s1", Emotion: "anxious", Intensity: 4, Timestamp: exportNow.AddDate(0, 0, -30)},
		},
		Sensory: []models.SensoryEntry{
			{ID: "sn1", StudentID: "s1", SensoryType: "auditory", Response: "avoiding", Timestamp: exportNow},
		},
	}
}

func terminalMessages(msgs []Message) []Message {
	var out []Message
	for _, m := range msgs {
		if m.Type == MessageSuccess || m.Type == MessageError {
			out = append(out, m)
		}
	}
	return out
}

func TestHandleCSVSuccess(t *testing.T) {
	w := New(logger.Default(), 1)
	msgs := w.Handle(Request{ID: "r1", Kind: KindCSV, Payload: samplePayload()})

	terminals := terminalMessages(msgs)
	if len(terminals) != 1 || terminals[0].Type != MessageSuccess {
		t.Fatalf("expected exactly one success terminal, got %+v", terminals)
	}
	if terminals[0].ID != "r1" || terminals[0].Kind != KindCSV {
		t.Errorf("terminal not correlated: %+v", terminals[0])
	}
	content := terminals[0].Content
	if !strings.HasPrefix(content, "record_type,") {
		t.Errorf("missing csv header: %q", content)
	}
	if !strings.Contains(content, "calm") || !strings.Contains(content, "avoiding") {
		t.Errorf("missing records in csv: %q", content)
	}
}

func TestHandleJSONSuccess(t *testing.T) {
	w := New(logger.Default(), 1)
	msgs := w.Handle(Request{ID: "r2", Kind: KindJSON, Payload: samplePayload()})

	terminals := terminalMessages(msgs)
	if len(terminals) != 1 || terminals[0].Type != MessageSuccess {
		t.Fatalf("expected exactly one success terminal, got %+v", terminals)
	}
	var doc struct {
		Entries  []models.TrackingEntry `json:"entries"`
		Emotions []models.EmotionEntry  `json:"emotions"`
	}
	if err := json.Unmarshal([]byte(terminals[0].Content), &doc); err != nil {
		t.Fatalf("terminal content is not valid json: %v", err)
	}
	if len(doc.Entries) != 1 || len(doc.Emotions) != 2 {
		t.Errorf("unexpected export contents: %+v", doc)
	}
}

func TestHandleUnknownKind(t *testing.T) {
	w := New(logger.Default(), 1)
	msgs := w.Handle(Request{ID: "r3", Kind: "xml", Payload: samplePayload()})

	terminals := terminalMessages(msgs)
	if len(terminals) != 1 || terminals[0].Type != MessageError {
		t.Fatalf("expected exactly one error terminal, got %+v", terminals)
	}
	if terminals[0].Error == "" {
		t.Error("error terminal must describe the failure")
	}
}

func TestProgressMonotone(t *testing.T) {
	w := New(logger.Default(), 1)
	payload := samplePayload()
	payload.Anonymize = true
	msgs := w.Handle(Request{ID: "r4", Kind: KindCSV, Payload: payload})

	last := -1.0
	var progressCount int
	for _, m := range msgs {
		if m.Type != MessageProgress {
			continue
		}
		progressCount++
		if m.Progress < last {
			t.Fatalf("progress decreased: %v after %v", m.Progress, last)
		}
		if m.Progress < 0 || m.Progress > 1 {
			t.Fatalf("progress %v out of range", m.Progress)
		}
		last = m.Progress
	}
	if progressCount == 0 {
		t.Error("expected progress messages before the terminal")
	}
	if msgs[len(msgs)-1].Type != MessageSuccess {
		t.Errorf("terminal must come last, got %+v", msgs[len(msgs)-1])
	}
}

func TestDateRangeFilter(t *testing.T) {
	w := New(logger.Default(), 1)
	payload := samplePayload()
	from := exportNow.AddDate(0, 0, -7)
	payload.From = &from
	msgs := w.Handle(Request{ID: "r5", Kind: KindCSV, Payload: payload})

	content := terminalMessages(msgs)[0].Content
	if strings.Contains(content, "e2") {
		t.Error("out-of-range emotion e2 leaked into the export")
	}
	if !strings.Contains(content, "e1") {
		t.Error("in-range emotion e1 missing from the export")
	}
}

func TestAnonymization(t *testing.T) {
	w := New(logger.Default(), 1)
	payload := samplePayload()
	payload.Anonymize = true
	msgs := w.Handle(Request{ID: "r6", Kind: KindJSON, Payload: payload})

	content := terminalMessages(msgs)[0].Content
	if strings.Contains(content, `"s1"`) {
		t.Error("raw student id leaked into anonymized export")
	}
	if strings.Contains(content, "private") {
		t.Error("notes leaked into anonymized export")
	}
	if !strings.Contains(content, "student-") {
		t.Error("expected stable pseudonyms in anonymized export")
	}
	// The caller's payload must stay untouched.
	if payload.Entries[0].StudentID != "s1" || payload.Entries[0].Notes == nil {
		t.Error("anonymization mutated the input payload")
	}
}

func TestRunDeliversOverChannel(t *testing.T) {
	w := New(logger.Default(), 2)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	if err := w.Submit(ctx, Request{ID: "r7", Kind: KindJSON, Payload: samplePayload()}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-w.Messages():
			if msg.Type == MessageSuccess && msg.ID == "r7" {
				return
			}
			if msg.Type == MessageError {
				t.Fatalf("unexpected error terminal: %+v", msg)
			}
		case <-deadline:
			t.Fatal("no terminal message within deadline")
		}
	}
}
