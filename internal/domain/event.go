package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TicketID identifies a ticket in the ticketing backend. Webhook payloads
// carry it either as a JSON string or as a number.
type TicketID string

// UnmarshalJSON accepts "123" and 123 alike.
func (id *TicketID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = TicketID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("ticket id must be a string or number: %w", err)
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return fmt.Errorf("ticket id must be an integer: %w", err)
	}
	*id = TicketID(n.String())
	return nil
}

func (id TicketID) String() string { return string(id) }

// Empty reports whether the id is missing.
func (id TicketID) Empty() bool { return strings.TrimSpace(string(id)) == "" }

// InboundEvent is a single webhook delivery after authentication.
type InboundEvent struct {
	ID         string
	Message    string
	TicketID   TicketID
	Channel    string
	Transcript bool
	ReceivedAt time.Time
}
