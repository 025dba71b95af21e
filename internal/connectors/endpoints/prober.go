// Package endpoints probes the downstream ERDDAP and THREDDS servers the
// dashboard reports reachability for.
package endpoints

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// TargetStatus is a single endpoint probe result.
type TargetStatus struct {
	Target       string    `json:"target"`
	Kind         string    `json:"kind"`
	OK           bool      `json:"ok"`
	Error        string    `json:"error,omitempty"`
	HTTPStatus   int       `json:"http_status,omitempty"`
	PingMS       int64     `json:"ping_ms"`
	CatalogLinks int       `json:"catalog_links,omitempty"`
	CheckedAt    time.Time `json:"checked_at"`
}

type target struct {
	url  string
	kind string
}

// Prober checks ERDDAP and THREDDS endpoints independently of the record
// reachability flags the status backend reports, so the dashboard can tell a
// backend-side flag from a server that is actually down.
type Prober struct {
	client  *http.Client
	targets []target

	mu   sync.RWMutex
	last []TargetStatus
}

func NewProber(erddapTargets, threddsTargets []string, timeout time.Duration) *Prober {
	targets := make([]target, 0, len(erddapTargets)+len(threddsTargets))
	for _, t := range erddapTargets {
		t = strings.TrimSpace(t)
		if t != "" {
			targets = append(targets, target{url: t, kind: "erddap"})
		}
	}
	for _, t := range threddsTargets {
		t = strings.TrimSpace(t)
		if t != "" {
			targets = append(targets, target{url: t, kind: "thredds"})
		}
	}
	return &Prober{
		client:  &http.Client{Timeout: timeout},
		targets: targets,
	}
}

func (p *Prober) Enabled() bool {
	return p != nil && len(p.targets) > 0
}

// ProbeTargets checks every configured target and caches the results.
func (p *Prober) ProbeTargets(ctx context.Context) []TargetStatus {
	if !p.Enabled() {
		return nil
	}

	now := time.Now().UTC()
	out := make([]TargetStatus, 0, len(p.targets))
	for _, t := range p.targets {
		item := TargetStatus{Target: t.url, Kind: t.kind, CheckedAt: now}

		start := time.Now()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.url, nil)
		if err != nil {
			item.Error = err.Error()
			out = append(out, item)
			continue
		}

		resp, err := p.client.Do(req)
		item.PingMS = time.Since(start).Milliseconds()
		if err != nil {
			item.Error = err.Error()
			out = append(out, item)
			continue
		}

		item.HTTPStatus = resp.StatusCode
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 2048))
			_ = resp.Body.Close()
			item.Error = fmt.Sprintf("unexpected status %d", resp.StatusCode)
			out = append(out, item)
			continue
		}

		if t.kind == "thredds" {
			links, err := countCatalogLinks(resp.Body)
			_ = resp.Body.Close()
			if err != nil {
				item.Error = err.Error()
				out = append(out, item)
				continue
			}
			item.CatalogLinks = links
		} else {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 8192))
			_ = resp.Body.Close()
		}

		item.OK = true
		out = append(out, item)
	}

	p.mu.Lock()
	p.last = out
	p.mu.Unlock()
	return out
}

// Last returns the most recent probe results without issuing new requests.
func (p *Prober) Last() []TargetStatus {
	if p == nil {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]TargetStatus, len(p.last))
	copy(out, p.last)
	return out
}

// VerifyDatasetInCatalog fetches a THREDDS catalog page and reports whether
// the dataset ID appears in its listing.
func (p *Prober) VerifyDatasetInCatalog(ctx context.Context, catalogURL, datasetID string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, catalogURL, nil)
	if err != nil {
		return false, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, fmt.Errorf("thredds catalog status=%d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return false, err
	}

	found := false
	doc.Find("a").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if strings.Contains(sel.Text(), datasetID) {
			found = true
			return false
		}
		if href, ok := sel.Attr("href"); ok && strings.Contains(href, datasetID) {
			found = true
			return false
		}
		return true
	})
	return found, nil
}

// countCatalogLinks parses a THREDDS catalog HTML page and counts its anchor
// entries. An empty catalog page usually means the server is up but the
// dataset tree failed to load.
func countCatalogLinks(r io.Reader) (int, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return 0, err
	}
	return doc.Find("a").Length(), nil
}
