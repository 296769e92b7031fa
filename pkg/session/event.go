package session

import "time"

// Event types published while a participant works through a session.
const (
	EventSessionStarted       = "session_started"
	EventDemographicsRecorded = "demographics_recorded"
	EventTrialCompleted       = "trial_completed"
	EventSessionFinalized     = "session_finalized"
)

// Event is a notification about session progress. Events never carry
// demographic answers.
type Event struct {
	Type      string         `json:"type"`
	SessionID string         `json:"sessionId"`
	Sequence  int            `json:"sequence"`
	Timestamp string         `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// Observer receives session events. Publish must not block.
type Observer interface {
	Publish(Event)
}

func newEvent(typ, sessionID string, seq int, data map[string]any) Event {
	return Event{
		Type:      typ,
		SessionID: sessionID,
		Sequence:  seq,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      data,
	}
}
