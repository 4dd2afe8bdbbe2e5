package encounter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// UnmarshalJSON accepts a participant object or a bare contribution number,
// the shape older raid records stored per user.
func (p *Participant) UnmarshalJSON(data []byte) error {
	var amount float64
	if err := json.Unmarshal(data, &amount); err == nil {
		*p = Participant{Contribution: amount}
		return nil
	}

	type plain Participant
	aux := struct {
		*plain
		JoinedAt json.RawMessage `json:"joinedAt"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	t, err := decodeTime(aux.JoinedAt)
	if err != nil {
		return fmt.Errorf("joinedAt: %w", err)
	}
	p.JoinedAt = t
	return nil
}

// legacyFields are the keys older records wrote in a different shape.
type legacyFields struct {
	StartedAt   json.RawMessage `json:"startedAt"`
	Deadline    json.RawMessage `json:"deadline"`
	InitiatorID json.RawMessage `json:"startedBy"`
	Done        bool            `json:"done"`
	Completed   bool            `json:"completed"`
}

func (l legacyFields) apply(startedAt, deadline *time.Time, initiator *int64, state *State) error {
	var err error
	if *startedAt, err = decodeTime(l.StartedAt); err != nil {
		return fmt.Errorf("startedAt: %w", err)
	}
	if *deadline, err = decodeTime(l.Deadline); err != nil {
		return fmt.Errorf("deadline: %w", err)
	}
	if *initiator, err = decodeID(l.InitiatorID); err != nil {
		return fmt.Errorf("startedBy: %w", err)
	}
	if *state == "" && (l.Done || l.Completed) {
		*state = StateResolved
	}
	return nil
}

// UnmarshalJSON decodes a raid, also accepting epoch-millisecond timestamps,
// a string initiator id and the older done flag.
func (r *Raid) UnmarshalJSON(data []byte) error {
	type plain Raid
	aux := struct {
		*plain
		StartedAt   json.RawMessage `json:"startedAt"`
		Deadline    json.RawMessage `json:"deadline"`
		InitiatorID json.RawMessage `json:"startedBy"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	var legacy legacyFields
	if err := json.Unmarshal(data, &legacy); err != nil {
		return err
	}
	return legacy.apply(&r.StartedAt, &r.Deadline, &r.InitiatorID, &r.State)
}

// UnmarshalJSON decodes a hunt with the same leniency as Raid.
func (h *Hunt) UnmarshalJSON(data []byte) error {
	type plain Hunt
	aux := struct {
		*plain
		StartedAt   json.RawMessage `json:"startedAt"`
		Deadline    json.RawMessage `json:"deadline"`
		InitiatorID json.RawMessage `json:"startedBy"`
	}{plain: (*plain)(h)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	var legacy legacyFields
	if err := json.Unmarshal(data, &legacy); err != nil {
		return err
	}
	return legacy.apply(&h.StartedAt, &h.Deadline, &h.InitiatorID, &h.State)
}

// decodeTime reads an RFC 3339 string or epoch milliseconds. Absent and null
// values decode to the zero time.
func decodeTime(raw json.RawMessage) (time.Time, error) {
	if isNull(raw) {
		return time.Time{}, nil
	}
	var ms float64
	if err := json.Unmarshal(raw, &ms); err == nil {
		return time.UnixMilli(int64(ms)).UTC(), nil
	}
	var t time.Time
	err := json.Unmarshal(raw, &t)
	return t, err
}

// decodeID reads a user id written as a number or a numeric string.
func decodeID(raw json.RawMessage) (int64, error) {
	if isNull(raw) {
		return 0, nil
	}
	var id int64
	if err := json.Unmarshal(raw, &id); err == nil {
		return id, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}
