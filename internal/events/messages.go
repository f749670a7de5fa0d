package events

import (
	"encoding/json"
	"time"
)

// DatasetReplacedMessage announces that an upload replaced the session's
// canonical transaction set. Downstream consumers get the shape of the new
// dataset, not its rows; anyone needing the data queries the API.
type DatasetReplacedMessage struct {
	Rows       int       `json:"rows"`
	Categories []string  `json:"categories"`
	Years      []int     `json:"years"`
	Generation uint64    `json:"generation"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewDatasetReplacedMessage builds a message for a completed upload.
func NewDatasetReplacedMessage(rows int, categories []string, years []int, generation uint64) *DatasetReplacedMessage {
	return &DatasetReplacedMessage{
		Rows:       rows,
		Categories: categories,
		Years:      years,
		Generation: generation,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *DatasetReplacedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// DatasetReplacedMessageFromJSON decodes a message from JSON bytes.
func DatasetReplacedMessageFromJSON(data []byte) (*DatasetReplacedMessage, error) {
	var msg DatasetReplacedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
