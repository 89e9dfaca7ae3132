package api

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/mzeiler/audittrail/internal/api/middleware"
	"github.com/mzeiler/audittrail/internal/core"
	"github.com/mzeiler/audittrail/internal/store"
)

// RecordStore is the read surface the API serves from.
type RecordStore interface {
	ListRecords(ctx context.Context, f store.Filter) ([]*core.AuditRecord, error)
	GetRecord(ctx context.Context, recordID string) (*core.AuditRecord, error)
}

type API struct {
	records RecordStore
	log     *zap.Logger
}

func NewAPI(records RecordStore, log *zap.Logger) *API {
	return &API{
		records: records,
		log:     log,
	}
}

func (a *API) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Metrics)
	r.Use(middleware.Recoverer(a.log))
	r.Use(middleware.Logger)
	r.Use(chiMiddleware.AllowContentType("application/json"))

	// Health endpoints
	r.Get("/healthz", a.HealthHandler)
	r.Get("/readyz", a.ReadyHandler)

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		r.Get("/records", a.ListRecords)
		r.Get("/records/{record_id}", a.GetRecord)
	})

	return r
}

// encodeCursor encodes a page boundary as a base64 cursor. The record id is
// part of the boundary because all records of one transaction share a
// timestamp.
func encodeCursor(c store.Cursor) string {
	return base64.StdEncoding.EncodeToString([]byte(c.Ts.Format(time.RFC3339Nano) + "|" + c.RecordID))
}

// decodeCursor decodes a base64 cursor to a page boundary.
func decodeCursor(s string) (store.Cursor, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return store.Cursor{}, err
	}
	ts, id, ok := strings.Cut(string(b), "|")
	if !ok {
		return store.Cursor{}, errors.New("malformed cursor")
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return store.Cursor{}, err
	}
	return store.Cursor{Ts: t, RecordID: id}, nil
}
