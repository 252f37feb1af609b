// Package worker runs report exports off the request path. Each request is
// answered by zero or more progress messages followed by exactly one
// terminal success or error message, correlated by request ID.
package worker

import (
	"context"
	"fmt"

	"github.com/whoamaiii/sensetrack/internal/logger"
)

// Kind selects the export encoding.
type Kind string

const (
	KindCSV  Kind = "csv"
	KindJSON Kind = "json"
)

// MessageType tags a worker response.
type MessageType string

const (
	MessageProgress MessageType = "progress"
	MessageSuccess  MessageType = "success"
	MessageError    MessageType = "error"
)

// Request describes one export job.
type Request struct {
	ID      string        `json:"id"`
	Kind    Kind          `json:"kind"`
	Payload ExportPayload `json:"payload"`
}

// Message is one worker response. Progress messages carry Progress in
// [0,1], non-decreasing within a request. Success messages carry the
// rendered Content; error messages carry Error. Every request receives
// exactly one terminal message.
type Message struct {
	ID       string      `json:"id"`
	Type     MessageType `json:"type"`
	Progress float64     `json:"progress,omitempty"`
	Note     string      `json:"message,omitempty"`
	Content  string      `json:"content,omitempty"`
	Kind     Kind        `json:"kind,omitempty"`
	Error    string      `json:"error,omitempty"`
}

// Worker consumes requests from a channel and emits messages on another.
// One goroutine processes requests sequentially.
type Worker struct {
	requests chan Request
	messages chan Message
	log      logger.Logger
}

// New creates a Worker with the given queue depth.
func New(log logger.Logger, queueSize int) *Worker {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Worker{
		requests: make(chan Request, queueSize),
		messages: make(chan Message, queueSize*4),
		log:      log,
	}
}

// Messages is the response stream.
func (w *Worker) Messages() <-chan Message {
	return w.messages
}

// Submit enqueues a request. It blocks when the queue is full and returns
// the context error if ctx is cancelled first.
func (w *Worker) Submit(ctx context.Context, req Request) error {
	select {
	case w.requests <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes requests until ctx is cancelled, then closes the message
// stream.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.messages)
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-w.requests:
			for _, msg := range w.Handle(req) {
				select {
				case w.messages <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// Handle processes one request synchronously and returns its full message
// sequence. Panics during generation are recovered into the terminal error
// message, so a request can never go unanswered.
func (w *Worker) Handle(req Request) (out []Message) {
	progress := 0.0
	emit := func(p float64, note string) {
		if p < progress {
			p = progress
		}
		progress = p
		out = append(out, Message{ID: req.ID, Type: MessageProgress, Progress: p, Note: note})
	}

	defer func() {
		if r := recover(); r != nil {
			w.log.Error("export job panicked",
				logger.String("request_id", req.ID),
				logger.Any("panic", r),
			)
			out = append(out, Message{ID: req.ID, Type: MessageError, Error: fmt.Sprintf("export failed: %v", r)})
		}
	}()

	content, err := generate(req, emit)
	if err != nil {
		w.log.Error("export job failed",
			logger.String("request_id", req.ID),
			logger.Err(err),
		)
		return append(out, Message{ID: req.ID, Type: MessageError, Error: err.Error()})
	}

	return append(out, Message{ID: req.ID, Type: MessageSuccess, Content: content, Kind: req.Kind})
}

func generate(req Request, emit func(float64, string)) (string, error) {
	payload := req.Payload.filtered()
	emit(0.25, "filtered records")

	if req.Payload.Anonymize {
		payload = payload.anonymized()
		emit(0.5, "anonymized records")
	}

	switch req.Kind {
	case KindCSV:
		return payload.renderCSV(emit)
	case KindJSON:
		return payload.renderJSON(emit)
	default:
		return "", fmt.Errorf("unsupported export kind %q", req.Kind)
	}
}
