package history

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event is one audit record.
type Event struct {
	ID          int64
	Time        time.Time
	Actor       string
	Type        string
	PayloadJSON string
}

// LogEvent writes an audit event.
func (s *Store) LogEvent(actor string, eventType string, payload any) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	_, err = s.db.Exec(
		"INSERT INTO events (ts, actor, type, payload_json) VALUES (?, ?, ?, ?)",
		s.now().UTC().Format(timeLayout),
		actor,
		eventType,
		string(payloadJSON),
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}

	s.log.WithField("type", eventType).Debug("Audit event")
	return nil
}

// ListEvents returns up to limit events, newest first. An empty eventType
// matches every type.
func (s *Store) ListEvents(eventType string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, ts, actor, type, payload_json
		FROM events
		WHERE ? = '' OR type = ?
		ORDER BY id DESC
		LIMIT ?
	`, eventType, eventType, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		var ts string
		if err := rows.Scan(&ev.ID, &ts, &ev.Actor, &ev.Type, &ev.PayloadJSON); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Time, _ = time.Parse(timeLayout, ts)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}
