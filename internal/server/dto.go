package server

import (
	"encoding/json"

	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/domain"
)

type ConvertRequest struct {
	Name     string `json:"name" minLength:"1" maxLength:"128" example:"p01" doc:"Instance name used in the output and the ledger"`
	Instance string `json:"instance" minLength:"1" doc:"Cordeau instance file contents (type 2 or 6)"`
	Format   string `json:"format,omitempty" enum:"text,json" default:"text"`
	Seed     *int64 `json:"seed,omitempty" doc:"Overrides the configured seed"`
}

type ConvertResponse struct {
	Run    domain.Run   `json:"run"`
	Stats  domain.Stats `json:"stats"`
	Output string       `json:"output"`
}

type EventResponse struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts" format:"date-time"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id,omitempty"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

type WhoAmIResponse struct {
	ActorID string `json:"actor_id"`
	Source  string `json:"source" enum:"jwt,api_key,none"`
}

type paginatedRuns struct {
	Items      []domain.Run `json:"items"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

type paginatedEvents struct {
	Items      []EventResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

func eventResponse(e domain.Event) EventResponse {
	return EventResponse{
		ID:         e.ID,
		TS:         e.TS,
		Type:       e.Type,
		EntityKind: e.EntityKind,
		EntityID:   e.EntityID,
		ActorID:    e.ActorID,
		Payload:    decodeJSONMap(e.Payload),
	}
}

func decodeJSONMap(raw string) map[string]any {
	out := map[string]any{}
	if raw == "" {
		return out
	}
	_ = json.Unmarshal([]byte(raw), &out)
	return out
}
