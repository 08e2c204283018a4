package amqp

import (
	"encoding/json"
	"sort"
	"time"
)

// LedgerChangedMessage announces that an owner's ledger changed in the
// listed month periods. Consumers re-read the store; the message carries
// no rows.
type LedgerChangedMessage struct {
	OwnerID   string    `json:"ownerId"`
	Operation string    `json:"operation"`
	Periods   []string  `json:"periods"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerChangedMessage creates a message with the periods deduplicated
// and sorted.
func NewLedgerChangedMessage(owner, operation string, periods []string) *LedgerChangedMessage {
	seen := make(map[string]struct{}, len(periods))
	uniq := make([]string, 0, len(periods))
	for _, p := range periods {
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		uniq = append(uniq, p)
	}
	sort.Strings(uniq)
	return &LedgerChangedMessage{
		OwnerID:   owner,
		Operation: operation,
		Periods:   uniq,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangedMessageFromJSON creates a message from JSON bytes
func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
