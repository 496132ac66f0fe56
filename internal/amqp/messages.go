package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// CandidateMessage is one record proposed by the extraction step.
type CandidateMessage struct {
	RecordType string          `json:"recordType"`
	Payload    json.RawMessage `json:"payload"`
	Confidence *float64        `json:"confidence,omitempty"`
	Warnings   []string        `json:"warnings,omitempty"`
}

// CandidateBatchMessage carries the candidates extracted from one source
// document. The worker turns each batch into an import job awaiting review.
type CandidateBatchMessage struct {
	Source           string             `json:"source"`
	SourceDescriptor string             `json:"sourceDescriptor"`
	Actor            string             `json:"actor"`
	Model            string             `json:"model"`
	Candidates       []CandidateMessage `json:"candidates"`
	Timestamp        time.Time          `json:"timestamp"`
}

// CandidateBatchMessageFromJSON parses a batch, refusing bodies without candidates.
func CandidateBatchMessageFromJSON(data []byte) (*CandidateBatchMessage, error) {
	var msg CandidateBatchMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Candidates == nil {
		return nil, errors.New("candidate batch without candidates field")
	}
	return &msg, nil
}

// ImportConfirmedMessage announces a committed confirm call.
type ImportConfirmedMessage struct {
	JobID         string    `json:"jobId"`
	Status        string    `json:"status"`
	ApprovedCount int       `json:"approvedCount"`
	RejectedCount int       `json:"rejectedCount"`
	Revision      int64     `json:"revision"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewImportConfirmedMessage creates a confirmed event stamped with the current time
func NewImportConfirmedMessage(jobID, status string, approved, rejected int, revision int64) *ImportConfirmedMessage {
	return &ImportConfirmedMessage{
		JobID:         jobID,
		Status:        status,
		ApprovedCount: approved,
		RejectedCount: rejected,
		Revision:      revision,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ImportConfirmedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ImportConfirmedMessageFromJSON creates a message from JSON bytes
func ImportConfirmedMessageFromJSON(data []byte) (*ImportConfirmedMessage, error) {
	var msg ImportConfirmedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
