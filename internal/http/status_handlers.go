package http

import (
	"context"
	nethttp "net/http"
	"time"

	"github.com/mwengren/glider-dac-status/internal/connectors/cache"
	"github.com/mwengren/glider-dac-status/internal/connectors/dacdb"
	"github.com/mwengren/glider-dac-status/internal/connectors/endpoints"
	"github.com/mwengren/glider-dac-status/internal/connectors/history"
	"github.com/mwengren/glider-dac-status/internal/connectors/statusapi"
	"github.com/mwengren/glider-dac-status/internal/poller"
)

func servicesStatusHandler(p *poller.Poller, apiClient *statusapi.Client, dbStore *dacdb.Store, histStore *history.Store, snapCache *cache.SnapshotCache, prober *endpoints.Prober) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
		defer cancel()

		payload := map[string]any{
			"generated_at": time.Now().UTC(),
			"poller":       p.Status(),
			"services":     map[string]any{},
		}
		services := payload["services"].(map[string]any)

		services["status_api"] = statusAPIStatus(ctx, apiClient)
		services["dac_db"] = dacDBStatus(ctx, dbStore)
		services["history"] = historyStatus(ctx, histStore)
		services["snapshot_cache"] = cacheStatus(ctx, snapCache)
		services["endpoints"] = proberStatus(ctx, prober)

		writeJSON(w, nethttp.StatusOK, payload)
	}
}

func statusAPIStatus(ctx context.Context, client *statusapi.Client) map[string]any {
	if client == nil || !client.Enabled() {
		return map[string]any{"enabled": false, "ok": false, "error": "status api integration disabled"}
	}

	start := time.Now()
	stats, err := client.ServiceStats(ctx)
	recordExternalProbe("status_api", "ServiceStats", time.Since(start).Seconds(), err)
	if err != nil {
		return map[string]any{"enabled": true, "ok": false, "error": err.Error()}
	}
	return map[string]any{"enabled": true, "ok": true, "stats": stats}
}

func dacDBStatus(ctx context.Context, store *dacdb.Store) map[string]any {
	if store == nil {
		return map[string]any{"enabled": false, "ok": false, "error": "database integration disabled"}
	}

	start := time.Now()
	stats, err := store.ServiceStats(ctx)
	recordDBQuery("dacdb", "ServiceStats", time.Since(start).Seconds(), err)
	if err != nil {
		return map[string]any{"enabled": true, "ok": false, "error": err.Error()}
	}
	return map[string]any{"enabled": true, "ok": true, "stats": stats}
}

func historyStatus(ctx context.Context, store *history.Store) map[string]any {
	if store == nil {
		return map[string]any{"enabled": false, "ok": false, "error": "history integration disabled"}
	}

	start := time.Now()
	stats, err := store.ServiceStats(ctx)
	recordDBQuery("history", "ServiceStats", time.Since(start).Seconds(), err)
	if err != nil {
		return map[string]any{"enabled": true, "ok": false, "error": err.Error()}
	}
	return map[string]any{"enabled": true, "ok": true, "stats": stats}
}

func cacheStatus(ctx context.Context, snapCache *cache.SnapshotCache) map[string]any {
	if snapCache == nil || !snapCache.Enabled() {
		return map[string]any{"enabled": false, "ok": false, "error": "snapshot cache disabled"}
	}

	start := time.Now()
	pingMS, err := snapCache.Ping(ctx)
	recordExternalProbe("redis", "Ping", time.Since(start).Seconds(), err)
	if err != nil {
		return map[string]any{"enabled": true, "ok": false, "error": err.Error()}
	}
	return map[string]any{"enabled": true, "ok": true, "ping_ms": pingMS}
}

func proberStatus(ctx context.Context, prober *endpoints.Prober) map[string]any {
	if prober == nil || !prober.Enabled() {
		return map[string]any{"enabled": false, "ok": false, "error": "endpoint probing disabled"}
	}

	start := time.Now()
	probes := prober.ProbeTargets(ctx)
	recordExternalProbe("endpoints", "ProbeTargets", time.Since(start).Seconds(), nil)

	up := 0
	for _, p := range probes {
		if p.OK {
			up++
		}
	}

	return map[string]any{
		"enabled":       true,
		"ok":            up == len(probes) && len(probes) > 0,
		"targets_total": len(probes),
		"targets_up":    up,
		"targets":       probes,
	}
}

func endpointProbesHandler(prober *endpoints.Prober) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if prober == nil || !prober.Enabled() {
			writeJSON(w, nethttp.StatusServiceUnavailable, map[string]any{
				"error": "endpoint probing disabled (set APP_ERDDAP_TARGETS / APP_THREDDS_TARGETS)",
			})
			return
		}

		probes := prober.Last()
		if len(probes) == 0 || r.URL.Query().Get("refresh") == "true" {
			ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
			defer cancel()
			start := time.Now()
			probes = prober.ProbeTargets(ctx)
			recordExternalProbe("endpoints", "ProbeTargets", time.Since(start).Seconds(), nil)
		}

		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": map[string]any{"count": len(probes)},
			"data": probes,
		})
	}
}
