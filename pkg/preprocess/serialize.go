package preprocess

import (
	"encoding/json"
	"fmt"
)

// SerializedPipeline is the persisted form of a fitted pipeline. When
// predicates in the config do not survive serialization; Transform on a
// restored pipeline relies solely on the fitted step states.
type SerializedPipeline struct {
	Version  string       `json:"version"`
	Config   []StepConfig `json:"config"`
	IsFitted bool         `json:"is_fitted"`
	Fitted   []FittedStep `json:"fitted"`
	Metadata *Metadata    `json:"metadata,omitempty"`
}

// Serialize encodes the pipeline's config, fitted state and metadata as
// JSON. Restoring with Deserialize yields a pipeline whose Transform output
// deep-equals the original's for any input.
func (p *Pipeline) Serialize() ([]byte, error) {
	payload := SerializedPipeline{
		Version:  PipelineVersion,
		Config:   p.config,
		IsFitted: p.isFitted,
		Fitted:   p.fitted,
		Metadata: p.meta,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("serializing pipeline: %w", err)
	}
	return data, nil
}

// Deserialize restores a pipeline from its serialized form.
func Deserialize(data []byte) (*Pipeline, error) {
	var payload SerializedPipeline
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("deserializing pipeline: %w", err)
	}
	p := New(payload.Config...)
	// Blobs written before is_fitted existed carry fitted steps only.
	p.isFitted = payload.IsFitted || len(payload.Fitted) > 0
	p.fitted = payload.Fitted
	p.meta = payload.Metadata
	return p, nil
}
