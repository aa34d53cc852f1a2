package ws

import (
	"encoding/json"
	"time"

	"github.com/longlife4everest/energy-ai-dashboard/internal/model"
)

// Envelope wraps all WebSocket messages with a type discriminator.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Message type constants
const (
	// Client -> Server
	TypeScenarioRun   = "scenario:run"
	TypeReportRequest = "report:request"

	// Server -> Client
	TypeReportUpdate   = "report:update"
	TypeScenarioResult = "scenario:result"
	TypeSeriesLoaded   = "series:loaded"
	TypeError          = "error"
)

// Client -> Server messages

// ScenarioRunPayload accepts a strategy slug ("renewable") or display name.
type ScenarioRunPayload struct {
	Strategy     string  `json:"strategy"`
	ReductionPct float64 `json:"reduction_pct"`
}

// Server -> Client messages

type ScenarioResultPayload struct {
	model.ScenarioResult
	Payback string `json:"payback"`
}

type SeriesLoadedPayload struct {
	Source  string `json:"source"`
	Months  int    `json:"months"`
	Start   string `json:"start,omitempty"`
	End     string `json:"end,omitempty"`
	Version uint64 `json:"version"`
}

type ErrorPayload struct {
	Request string `json:"request,omitempty"`
	Message string `json:"message"`
}

func NewEnvelope(msgType string, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		var err error
		raw, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}
	return json.Marshal(Envelope{Type: msgType, Payload: raw})
}

func ScenarioResultFrom(r model.ScenarioResult) ScenarioResultPayload {
	return ScenarioResultPayload{ScenarioResult: r, Payback: r.PaybackLabel()}
}

// SeriesLoadedFrom summarizes a series snapshot.
func SeriesLoadedFrom(series []model.SeriesPoint, source string, version uint64) SeriesLoadedPayload {
	p := SeriesLoadedPayload{Source: source, Months: len(series), Version: version}
	if len(series) > 0 {
		p.Start = series[0].Date.Format(time.DateOnly)
		p.End = series[len(series)-1].Date.Format(time.DateOnly)
	}
	return p
}
