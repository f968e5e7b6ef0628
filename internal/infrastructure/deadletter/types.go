package deadletter

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Item is one provider event whose handler failed. The webhook boundary
// acknowledges the provider regardless, so these journal entries are the only
// trace of the failure and the input to operator-driven redelivery.
type Item struct {
	ID         string          `json:"id"`
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	Payload    json.RawMessage `json:"payload"`
	Error      string          `json:"error"`
	Retries    int             `json:"retries"`
	ReceivedAt time.Time       `json:"received_at"`

	bucketKey []byte
}

func (i *Item) normalize() {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.ReceivedAt.IsZero() {
		i.ReceivedAt = time.Now()
	}
}
