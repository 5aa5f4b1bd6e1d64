package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"hse/internal/core"
)

// RecordCreatedMessage announces rows that were just inserted. It carries ids
// only; the consumer reads the rows back from the store.
type RecordCreatedMessage struct {
	Kind      core.RecordKind `json:"kind"`
	IDs       []int64         `json:"ids"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
}

// Sources of a RecordCreatedMessage.
const (
	SourceForm   = "form"
	SourceImport = "import"
)

func NewRecordCreatedMessage(kind core.RecordKind, ids []int64, source string) *RecordCreatedMessage {
	return &RecordCreatedMessage{
		Kind:      kind,
		IDs:       ids,
		Source:    source,
		Timestamp: time.Now(),
	}
}

func (m *RecordCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordCreatedMessageFromJSON decodes and sanity-checks a message body.
func RecordCreatedMessageFromJSON(data []byte) (*RecordCreatedMessage, error) {
	var msg RecordCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Kind {
	case core.KindIncident, core.KindInspection, core.KindTraining:
	default:
		return nil, fmt.Errorf("unknown record kind %q", msg.Kind)
	}
	if len(msg.IDs) == 0 {
		return nil, fmt.Errorf("message without ids")
	}
	return &msg, nil
}
