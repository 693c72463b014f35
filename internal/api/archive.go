package api

import (
	"context"
	"database/sql"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-parks/internal/db"
	"github.com/joeblew999/plat-parks/internal/service"
)

// QueryTimeout bounds one ad-hoc archive query.
const QueryTimeout = 10 * time.Second

// ArchiveHandler exposes the DuckDB park archive. A nil connection answers 503.
type ArchiveHandler struct {
	conn    *sql.DB
	archive *db.Archive
}

// NewArchiveHandler creates a handler over conn, which may be nil.
func NewArchiveHandler(conn *sql.DB) *ArchiveHandler {
	h := &ArchiveHandler{conn: conn}
	if conn != nil {
		h.archive = db.NewArchive(conn)
	}
	return h
}

// RegisterRoutes registers archive routes with Huma.
func (h *ArchiveHandler) RegisterRoutes(api huma.API) {
	tags := huma.OperationTags("archive")
	huma.Get(api, "/api/v1/archive/parks", h.ArchivedParks, tags)
	huma.Get(api, "/api/v1/tables", h.ListTables, tags)
	huma.Post(api, "/api/v1/query", h.Query, tags)
}

type TablesOutput struct {
	Body struct {
		Tables []string `json:"tables" doc:"List of table names"`
	}
}

type ArchivedParksOutput struct {
	Body struct {
		Parks []service.ParkData `json:"parks" doc:"Every park fetched so far, by name"`
	}
}

// QueryInput is the input for SQL queries.
type QueryInput struct {
	Body struct {
		Query string `json:"query" required:"true" minLength:"1" doc:"SQL query to execute" example:"SELECT park_type, count(*) AS n FROM parks GROUP BY park_type"`
	}
}

type QueryOutput struct {
	Body struct {
		Columns []string         `json:"columns" doc:"Column names"`
		Rows    []map[string]any `json:"rows" doc:"Query results"`
		Count   int              `json:"count" doc:"Number of rows returned"`
	}
}

func (h *ArchiveHandler) available() error {
	if h.conn == nil {
		return huma.Error503ServiceUnavailable("Database not available")
	}
	return nil
}

func (h *ArchiveHandler) ArchivedParks(ctx context.Context, input *struct{}) (*ArchivedParksOutput, error) {
	if err := h.available(); err != nil {
		return nil, err
	}
	parks, err := h.archive.Parks(ctx)
	if err != nil {
		return nil, huma.Error503ServiceUnavailable("Reading archive failed", err)
	}
	out := &ArchivedParksOutput{}
	out.Body.Parks = parks
	if out.Body.Parks == nil {
		out.Body.Parks = []service.ParkData{}
	}
	return out, nil
}

// ListTables returns all archive tables.
func (h *ArchiveHandler) ListTables(ctx context.Context, input *struct{}) (*TablesOutput, error) {
	if err := h.available(); err != nil {
		return nil, err
	}
	rows, err := h.conn.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list tables", err)
	}
	defer rows.Close()

	out := &TablesOutput{}
	out.Body.Tables = []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err == nil {
			out.Body.Tables = append(out.Body.Tables, name)
		}
	}
	return out, nil
}

// Query executes a SQL query against the archive.
func (h *ArchiveHandler) Query(ctx context.Context, input *QueryInput) (*QueryOutput, error) {
	if err := h.available(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	rows, err := h.conn.QueryContext(ctx, input.Body.Query)
	if err != nil {
		return nil, huma.Error400BadRequest("Query failed: " + err.Error())
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to get columns", err)
	}

	out := &QueryOutput{}
	out.Body.Columns = columns
	out.Body.Rows = []map[string]any{}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			continue
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		out.Body.Rows = append(out.Body.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, huma.Error400BadRequest("Query failed: " + err.Error())
	}
	out.Body.Count = len(out.Body.Rows)
	return out, nil
}
