package http

import (
	"fmt"
	nethttp "net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jszwec/csvutil"

	"github.com/mwengren/glider-dac-status/internal/config"
	"github.com/mwengren/glider-dac-status/internal/connectors/history"
	"github.com/mwengren/glider-dac-status/internal/dacstatus"
	"github.com/mwengren/glider-dac-status/internal/poller"
)

// parseSelector maps request query parameters onto a filter selector. A
// per-value filter takes precedence over the view parameter, matching the
// navigation menus where each entry is one or the other.
func parseSelector(r *nethttp.Request, cfg config.Config) (dacstatus.Selector, error) {
	q := r.URL.Query()

	fields := []struct {
		param string
		field dacstatus.FilterField
	}{
		{"institution", dacstatus.FieldInstitution},
		{"operator", dacstatus.FieldOperator},
		{"provider", dacstatus.FieldProvider},
		{"wmo_id", dacstatus.FieldWMOID},
	}
	for _, f := range fields {
		if v := strings.TrimSpace(q.Get(f.param)); v != "" {
			return dacstatus.ByField(f.field, v), nil
		}
	}

	latestBy := dacstatus.LatestByCoverageEnd
	if strings.EqualFold(strings.TrimSpace(cfg.LatestBy), string(dacstatus.LatestByCreated)) {
		latestBy = dacstatus.LatestByCreated
	}

	latestLimit := cfg.LatestLimit
	if raw := q.Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 1000 {
			latestLimit = parsed
		}
	}

	return dacstatus.ParseView(q.Get("view"), latestLimit, latestBy)
}

func datasetsHandler(cfg config.Config, p *poller.Poller) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		snap := p.Current()
		if snap == nil {
			writeJSON(w, nethttp.StatusServiceUnavailable, map[string]any{
				"error": "no dataset snapshot available yet",
			})
			return
		}

		sel, err := parseSelector(r, cfg)
		if err != nil {
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}

		matched := dacstatus.Query(snap.Classified, sel)
		limit := parseLimit(r, cfg.DefaultViewLimit)
		if sel.Kind != dacstatus.SelectLatest && len(matched) > limit {
			matched = matched[:limit]
		}

		rows := dacstatus.Assemble(matched, time.Now().UTC())
		status := p.Status()

		meta := map[string]any{
			"cycle_id":   snap.CycleID,
			"fetched_at": snap.FetchedAt,
			"view":       string(sel.Kind),
			"count":      len(rows),
			"total":      len(snap.Classified),
		}
		if sel.Kind == dacstatus.SelectByField {
			meta["filter_field"] = string(sel.Field)
			meta["filter_value"] = sel.Value
		}
		if status.LastError != "" {
			meta["stale"] = true
			meta["fetch_error"] = status.LastError
		}

		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": meta,
			"data": rows,
		})
	}
}

func datasetDetailHandler(p *poller.Poller) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		snap := p.Current()
		if snap == nil {
			writeJSON(w, nethttp.StatusServiceUnavailable, map[string]any{
				"error": "no dataset snapshot available yet",
			})
			return
		}

		id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/datasets/"), "/")
		if id == "" {
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": "dataset id is required"})
			return
		}

		for _, d := range snap.Classified {
			if d.DatasetID == id {
				writeJSON(w, nethttp.StatusOK, map[string]any{
					"meta": map[string]any{"cycle_id": snap.CycleID, "fetched_at": snap.FetchedAt},
					"data": d,
				})
				return
			}
		}

		writeJSON(w, nethttp.StatusNotFound, map[string]any{"error": fmt.Sprintf("dataset not found: %s", id)})
	}
}

func indexHandler(p *poller.Poller) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		snap := p.Current()
		if snap == nil {
			writeJSON(w, nethttp.StatusServiceUnavailable, map[string]any{
				"error": "no dataset snapshot available yet",
			})
			return
		}

		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": map[string]any{
				"cycle_id":   snap.CycleID,
				"fetched_at": snap.FetchedAt,
			},
			"data": snap.Index,
		})
	}
}

func summaryHandler(p *poller.Poller) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		snap := p.Current()
		if snap == nil {
			writeJSON(w, nethttp.StatusServiceUnavailable, map[string]any{
				"error": "no dataset snapshot available yet",
			})
			return
		}

		status := p.Status()
		meta := map[string]any{"cycle_id": snap.CycleID}
		if status.LastError != "" {
			meta["stale"] = true
			meta["fetch_error"] = status.LastError
		}

		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": meta,
			"data": snap.Summarize(),
		})
	}
}

func historyHandler(defaultLimit int, store *history.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if store == nil {
			writeJSON(w, nethttp.StatusServiceUnavailable, map[string]any{
				"error": "history integration disabled (set APP_HISTORY_SQLITE_PATH)",
			})
			return
		}

		limit := parseLimit(r, defaultLimit)
		start := time.Now()
		items, err := store.ListRecent(r.Context(), limit)
		recordDBQuery("history", "ListRecent", time.Since(start).Seconds(), err)
		if err != nil {
			writeJSON(w, nethttp.StatusInternalServerError, map[string]any{"error": "failed to fetch cycle history"})
			return
		}

		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": map[string]any{"limit": limit, "count": len(items)},
			"data": items,
		})
	}
}

func exportCSVHandler(cfg config.Config, p *poller.Poller) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		snap := p.Current()
		if snap == nil {
			writeJSON(w, nethttp.StatusServiceUnavailable, map[string]any{
				"error": "no dataset snapshot available yet",
			})
			return
		}

		sel, err := parseSelector(r, cfg)
		if err != nil {
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}

		rows := dacstatus.Assemble(dacstatus.Query(snap.Classified, sel), time.Now().UTC())
		blob, err := csvutil.Marshal(rows)
		if err != nil {
			writeJSON(w, nethttp.StatusInternalServerError, map[string]any{"error": "failed to encode CSV export"})
			return
		}

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="glider-dac-status.csv"`)
		w.WriteHeader(nethttp.StatusOK)
		_, _ = w.Write(blob)
	}
}

func refreshHandler(p *poller.Poller) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			writeJSON(w, nethttp.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
			return
		}

		p.ForceRefresh()
		writeJSON(w, nethttp.StatusAccepted, map[string]any{
			"meta": map[string]any{"requested_at": time.Now().UTC()},
		})
	}
}

func parseLimit(r *nethttp.Request, defaultLimit int) int {
	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err == nil && parsed > 0 && parsed <= 1000 {
			limit = parsed
		}
	}
	return limit
}
