package queue

import (
	"encoding/json"
	"errors"
	"strings"
)

// MessageVersion is the payload version produced by this build.
const MessageVersion = 1

// ErrMissingDiagnosisID is returned for payloads without a diagnosis id.
var ErrMissingDiagnosisID = errors.New("message missing diagnosisId")

// Message asks a worker to render and deliver the report of a diagnosis.
type Message struct {
	DiagnosisID string `json:"diagnosisId"`
	RequestID   string `json:"requestId"`
	EnqueuedAt  string `json:"enqueuedAt"`
	Version     int    `json:"version"`
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	msg.DiagnosisID = strings.TrimSpace(msg.DiagnosisID)
	if msg.DiagnosisID == "" {
		return msg, ErrMissingDiagnosisID
	}
	return msg, nil
}
