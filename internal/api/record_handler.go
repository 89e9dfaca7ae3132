package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mzeiler/audittrail/internal/core"
	"github.com/mzeiler/audittrail/internal/store"
)

type RecordResponse struct {
	RecordID   string                `json:"record_id"`
	EntityType string                `json:"entity_type"`
	EntityID   string                `json:"entity_id"`
	Action     string                `json:"action"`
	Actor      string                `json:"actor"`
	Timestamp  string                `json:"ts"`
	Changes    []core.PropertyChange `json:"changes,omitempty"`
	Children   []RecordResponse      `json:"children,omitempty"`
}

// ListRecords lists audit records, newest first, with optional filters.
func (a *API) ListRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	f := store.Filter{
		EntityType: q.Get("entity_type"),
		EntityID:   q.Get("entity_id"),
		Limit:      parseLimit(q.Get("limit"), 20, 100),
	}
	for _, raw := range q["action"] {
		switch action := core.Action(raw); action {
		case core.ActionCreated, core.ActionUpdated, core.ActionDeleted:
			f.Actions = append(f.Actions, action)
		default:
			WriteError(w, core.NewAppError(core.ErrBadRequest, "unknown action "+raw))
			return
		}
	}
	var err error
	if f.Since, err = parseTime(q.Get("since")); err != nil {
		WriteError(w, core.NewAppError(core.ErrBadRequest, "invalid since"))
		return
	}
	if f.Until, err = parseTime(q.Get("until")); err != nil {
		WriteError(w, core.NewAppError(core.ErrBadRequest, "invalid until"))
		return
	}
	if c := q.Get("cursor"); c != "" {
		cur, err := decodeCursor(c)
		if err != nil {
			WriteError(w, core.NewAppError(core.ErrBadRequest, "invalid cursor"))
			return
		}
		f.Cursor = &cur
	}

	records, err := a.records.ListRecords(ctx, f)
	if err != nil {
		a.log.Error("list records failed", zap.Error(err))
		WriteError(w, core.NewAppError(core.ErrInternal, "failed to list records"))
		return
	}

	resp := make([]RecordResponse, len(records))
	for i, rec := range records {
		resp[i] = recordToResponse(rec)
	}

	// Build next cursor
	var nextCursor string
	if len(records) == f.Limit {
		last := records[len(records)-1]
		nextCursor = encodeCursor(store.Cursor{Ts: last.Timestamp, RecordID: last.RecordID})
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"records":     resp,
		"next_cursor": nextCursor,
	})
}

// GetRecord gets a single audit record with its children.
func (a *API) GetRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recordID := chi.URLParam(r, "record_id")

	rec, err := a.records.GetRecord(ctx, recordID)
	if err != nil {
		WriteError(w, core.NewAppError(core.ErrNotFound, "record not found"))
		return
	}

	WriteJSON(w, http.StatusOK, recordToResponse(rec))
}

func recordToResponse(rec *core.AuditRecord) RecordResponse {
	resp := RecordResponse{
		RecordID:   rec.RecordID,
		EntityType: rec.EntityType,
		EntityID:   rec.EntityID,
		Action:     string(rec.Action),
		Actor:      rec.Actor,
		Timestamp:  rec.Timestamp.Format(time.RFC3339Nano),
		Changes:    rec.Changes,
	}
	for _, child := range rec.Children {
		resp.Children = append(resp.Children, recordToResponse(child))
	}
	return resp
}

func parseLimit(s string, def, max int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

func parseTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
