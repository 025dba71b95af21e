package http

import (
	nethttp "net/http"

	"github.com/mwengren/glider-dac-status/internal/config"
)

func classificationSettingsHandler(cfg config.Config) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"data": map[string]any{
				"freshness_fresh_max_hours": 6,
				"freshness_warn_max_hours":  24,
				"created_new_max_hours":     12,
				"created_recent_max_hours":  24,
				"created_aging_max_hours":   36,
				"created_old_max_hours":     72,
				"latest_by":                 cfg.LatestBy,
				"latest_limit":              cfg.LatestLimit,
				"fetch_interval_sec":        int(cfg.FetchInterval.Seconds()),
				"ui_refresh_sec":            cfg.UIRefreshSeconds,
			},
		})
	}
}
