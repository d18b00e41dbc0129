package web

import (
	"database/sql"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/hpungsan/keep/internal/db"
	"github.com/hpungsan/keep/internal/errors"
	"github.com/hpungsan/keep/internal/ops"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	db       *sql.DB
	ledger   *ops.Ledger
	renderer *Renderer
}

// HandleList handles GET /capsules — list the public capsule set.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	input := ops.PublicInput{
		Limit:  parseIntParam(r, "limit", 20),
		Offset: parseIntParam(r, "offset", 0),
	}

	result, err := h.ledger.Public(input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, r, "list", ListPageData{
		PageData: PageData{
			Title:   "Capsules",
			Version: h.renderer.version,
			Nav:     "capsules",
		},
		Items:      result.Items,
		Pagination: result.Pagination,
		Now:        time.Now().Unix(),
	})
}

// HandleDetail handles GET /capsules/{id} — view a single capsule's record.
// The payload is rendered only for a capsule that is both registered public
// and past its unlock time; everyone else sees record fields only.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	record, err := h.ledger.Show(ops.ShowInput{ID: id})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	var rendered template.HTML
	if record.Public && !record.Locked {
		c, err := db.GetCapsule(h.db, id)
		if err != nil {
			h.renderer.renderError(w, r, err)
			return
		}
		rendered = renderMarkdown(c.Payload)
	}

	// The audit slot may be empty for capsules minted before the log existed
	audit, err := h.ledger.Audit(ops.AuditInput{ID: id})
	if err != nil {
		audit = nil
	}

	h.renderer.renderPage(w, r, "detail", DetailPageData{
		PageData: PageData{
			Title:   "Capsule " + strconv.FormatUint(id, 10),
			Version: h.renderer.version,
			Nav:     "capsules",
		},
		Capsule:      record,
		RenderedHTML: rendered,
		Audit:        audit,
	})
}

// HandleStats handles GET /stats — ledger aggregates.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.ledger.Stats()
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, r, "stats", StatsPageData{
		PageData: PageData{
			Title:   "Stats",
			Version: h.renderer.version,
			Nav:     "stats",
		},
		Stats: stats,
	})
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// parseIDParam parses the {id} path segment as a capsule id.
func parseIDParam(r *http.Request) (uint64, error) {
	s := r.PathValue("id")
	if s == "" {
		return 0, errors.NewInvalidRequest("capsule id is required")
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, errors.NewInvalidRequest("capsule id must be a positive integer")
	}
	return id, nil
}
