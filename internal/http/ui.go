package http

import (
	nethttp "net/http"
	"strconv"
	"strings"

	"github.com/mwengren/glider-dac-status/internal/config"
)

func dashboardHandler(cfg config.Config) nethttp.HandlerFunc {
	refresh := cfg.UIRefreshSeconds
	if refresh <= 0 {
		refresh = 3600
	}
	page := strings.ReplaceAll(dashboardHTML, "__REFRESH_SECONDS__", strconv.Itoa(refresh))
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.URL.Path != "/" {
			nethttp.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(nethttp.StatusOK)
		_, _ = w.Write([]byte(page))
	}
}

func faviconHandler(w nethttp.ResponseWriter, _ *nethttp.Request) {
	w.WriteHeader(nethttp.StatusNoContent)
}

const dashboardHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Glider DAC Dataset Status</title>
  <style>
    @import url("https://fonts.googleapis.com/css?family=Open+Sans:300,400,600,700");

    :root {
      --dac-blue: #00557f;
      --dac-blue-2: #0077a8;
      --bg: #f7f7f7;
      --paper: #fff;
      --text: #333;
      --muted: #777;
      --line: #ddd;
      --line-soft: #eee;
      --head: #f0f0f0;
      --ok-bg: #dff0d8;
      --ok-text: #3c763d;
      --bad-bg: #f2dede;
      --bad-text: #a94442;
    }

    * { box-sizing: border-box; }

    html { scroll-behavior: smooth; }

    body {
      margin: 0;
      background: var(--bg);
      color: var(--text);
      font-family: "Open Sans", "Helvetica Neue", Helvetica, Arial, sans-serif;
      font-size: 14px;
      line-height: 1.42857143;
    }

    a { color: #428bca; text-decoration: none; }
    a:hover { color: #2a6496; text-decoration: underline; }

    header {
      background: linear-gradient(to right, var(--dac-blue) 0, var(--dac-blue-2) 100%);
      border-bottom: 1px solid #00436a;
      box-shadow: 0 2px 5px rgba(0, 0, 0, 0.15);
    }

    .container {
      margin-right: auto;
      margin-left: auto;
      padding-left: 15px;
      padding-right: 15px;
      width: 100%;
      max-width: 1680px;
    }

    .header-inner {
      min-height: 70px;
      display: flex;
      align-items: center;
      justify-content: space-between;
      gap: 16px;
    }

    .navbar-brand {
      color: #fff;
      font-size: 22px;
      font-weight: 300;
      letter-spacing: 0.2px;
    }

    .navbar-brand strong { font-weight: 600; }

    .navbar-note {
      color: rgba(255, 255, 255, 0.88);
      font-size: 13px;
      font-weight: 300;
      text-align: right;
    }

    .clock-banner {
      text-align: center;
      background-color: #ffb400;
      padding: 9px 8px 8px;
      border-top: 1px solid #0b4eac;
      box-shadow: inset 1px 1px 1px rgba(125, 125, 125, 0.2);
      font-size: 13px;
      color: #222;
    }

    main { padding: 18px 0 32px; }
    .tabs {
      display: flex;
      gap: 8px;
      margin-bottom: 14px;
      border-bottom: 1px solid var(--line);
      padding-bottom: 8px;
      flex-wrap: wrap;
    }

    .tab-btn {
      border: 1px solid #c7d7e5;
      background: #f3f8fc;
      color: #00557f;
      padding: 6px 10px;
      font-size: 12px;
      font-weight: 600;
      cursor: pointer;
    }

    .tab-btn.active {
      background: #00557f;
      color: #fff;
      border-color: #00557f;
    }

    .tab-pane { display: none; }
    .tab-pane.active { display: block; }

    .row {
      display: flex;
      flex-wrap: wrap;
      margin-left: -15px;
      margin-right: -15px;
    }

    .col-main,
    .col-side {
      position: relative;
      min-height: 1px;
      padding-left: 15px;
      padding-right: 15px;
      width: 100%;
    }

    .page-body,
    .page-sidebar {
      background: var(--paper);
      border: 1px solid var(--line);
      box-shadow: 0 1px 2px rgba(0, 0, 0, 0.05);
      padding: 16px;
      margin-bottom: 16px;
    }

    h1 {
      margin: 0 0 12px;
      font-size: 30px;
      font-weight: 300;
      border-bottom: 1px solid var(--line-soft);
      padding-bottom: 8px;
      color: #444;
    }

    h2 {
      margin: 20px 0 10px;
      font-size: 22px;
      font-weight: 400;
      color: #444;
      border-bottom: 1px solid var(--line-soft);
      padding-bottom: 6px;
      scroll-margin-top: 84px;
    }

    h3 {
      margin: 0;
      font-size: 16px;
      font-weight: 600;
      color: #444;
    }

    .admonition {
      font-size: 0.9em;
      margin: 1em 0;
      border: 1px solid var(--line-soft);
      background-color: #f7f7f7;
      box-shadow: 0 8px 6px -8px #93a1a1;
    }

    .admonition-title {
      margin: 0;
      padding: 0.25em 0.6em;
      color: #fff;
      border-bottom: 1px solid #eee8d5;
      background-color: #cb4b16;
      font-weight: 600;
    }

    .admonition p {
      margin: 0.6em 1em;
      color: #444;
    }

    .kpi-grid {
      display: grid;
      gap: 12px;
      grid-template-columns: repeat(5, minmax(0, 1fr));
      margin: 10px 0 14px;
    }

    .kpi {
      border: 1px solid var(--line);
      background: var(--paper);
      padding: 10px 12px;
    }

    .kpi-label {
      color: var(--muted);
      font-size: 11px;
      text-transform: uppercase;
      letter-spacing: 0.5px;
    }

    .kpi-value {
      font-size: 22px;
      font-weight: 600;
      color: #333;
      margin-top: 2px;
    }

    .panel-grid {
      display: grid;
      gap: 14px;
      grid-template-columns: 1.2fr 1fr;
      margin-bottom: 14px;
    }

    .panel {
      border: 1px solid var(--line);
      background: var(--paper);
    }

    .panel-heading {
      padding: 10px 12px;
      border-bottom: 1px solid var(--line);
      background: var(--head);
    }

    .panel-body { padding: 10px 12px 12px; }

    table {
      width: 100%;
      max-width: 100%;
      border-collapse: collapse;
    }

    th,
    td {
      padding: 8px;
      line-height: 1.42857143;
      vertical-align: top;
      border-top: 1px solid var(--line);
      text-align: left;
      font-size: 13px;
    }

    thead th {
      vertical-align: bottom;
      border-bottom: 2px solid var(--line);
      border-top: 0;
      color: #555;
      font-size: 11px;
      text-transform: uppercase;
      letter-spacing: 0.5px;
      background: #fafafa;
    }

    tbody tr:nth-child(odd) td { background: #f9f9f9; }

    .row-click { cursor: pointer; }
    .row-click:hover td { background: #f5f5f5 !important; }
    .row-selected td {
      outline: 2px solid #00557f;
      outline-offset: -2px;
    }

    .pill {
      display: inline-block;
      border-radius: 2px;
      font-size: 11px;
      padding: 2px 6px;
      font-weight: 700;
      border: 1px solid transparent;
      text-transform: uppercase;
      letter-spacing: 0.2px;
    }

    .ok {
      color: var(--ok-text);
      background: var(--ok-bg);
      border-color: #d6e9c6;
    }

    .bad {
      color: var(--bad-text);
      background: var(--bad-bg);
      border-color: #ebccd1;
    }
    .warn {
      color: #8a6d3b;
      background: #fcf8e3;
      border-color: #faebcc;
    }
    .info {
      color: #31708f;
      background: #d9edf7;
      border-color: #bce8f1;
    }

    td.tier-fresh { background: #dff0d8 !important; }
    td.tier-warn { background: #fcf8e3 !important; }
    td.tier-stale { background: #f2dede !important; }
    td.tier-unknown { background: #eee !important; color: #888; }

    td.age-new { background: #d9edf7 !important; }
    td.age-recent { background: #dff0d8 !important; }
    td.age-aging { background: #fcf8e3 !important; }
    td.age-old { background: #fbe3cf !important; }
    td.age-ancient { background: #f2dede !important; }
    td.age-unknown { background: #eee !important; color: #888; }

    .mono {
      font-family: Menlo, Monaco, Consolas, "Liberation Mono", "Courier New", monospace;
      word-break: break-all;
    }

    .hint {
      margin-top: 8px;
      color: var(--muted);
      font-size: 12px;
    }

    .detail-summary {
      margin-bottom: 10px;
      border: 1px solid var(--line);
      background: #f9f9f9;
      padding: 8px;
      font-size: 12px;
    }

    .detail-summary table { margin: 0; }
    .detail-summary th,
    .detail-summary td {
      padding: 5px 6px;
      border-top: 1px solid #e7e7e7;
      font-size: 12px;
      background: transparent;
    }

    .detail-summary th {
      width: 42%;
      text-transform: none;
      letter-spacing: 0;
      font-weight: 600;
      color: #444;
      border-bottom: 0;
      background: transparent;
    }

    .detail-summary td { color: #333; }

    .service-kpis {
      display: grid;
      gap: 12px;
      grid-template-columns: repeat(4, minmax(0, 1fr));
      margin: 10px 0 14px;
    }

    .service-table td,
    .service-table th {
      font-size: 12px;
    }

    pre {
      margin: 0;
      padding: 10px;
      border: 1px solid var(--line);
      background: #fafafa;
      max-height: 340px;
      overflow: auto;
      font: 12px/1.35 Menlo, Monaco, Consolas, "Liberation Mono", "Courier New", monospace;
    }

    .toc-title {
      margin-top: 0;
      margin-bottom: 8px;
      font-size: 16px;
      font-weight: 600;
      color: #444;
      border-bottom: 1px solid var(--line-soft);
      padding-bottom: 6px;
    }

    .toc-tree {
      list-style: none;
      padding-left: 0;
      margin: 0;
    }

    .toc-tree li { margin-bottom: 7px; }

    .latest-update {
      margin-top: 10px;
      color: #777;
      font-size: 12px;
    }

    @media (max-width: 1024px) {
      .kpi-grid { grid-template-columns: repeat(2, minmax(0, 1fr)); }
      .panel-grid { grid-template-columns: 1fr; }
      .service-kpis { grid-template-columns: repeat(2, minmax(0, 1fr)); }
    }

    @media (max-width: 640px) {
      .header-inner {
        flex-direction: column;
        align-items: flex-start;
        justify-content: center;
        padding: 10px 0;
      }
      .navbar-note { text-align: left; }
      .kpi-grid { grid-template-columns: 1fr; }
      .service-kpis { grid-template-columns: 1fr; }
      h1 { font-size: 26px; }
      h2 { font-size: 20px; }
    }
  </style>
</head>
<body>
  <header>
    <div class="container header-inner">
      <div class="navbar-brand"><strong>Glider DAC</strong> Dataset Status</div>
      <div class="navbar-note">Deployment freshness, access endpoints and archival status</div>
    </div>
  </header>

  <div class="clock-banner">Current time UTC: <span id="clock-utc" class="mono">-</span> &middot; Snapshot fetched: <span id="clock-snapshot" class="mono">-</span></div>

  <main>
    <div class="container">
      <div class="row">
        <div class="col-main">
          <div class="page-body">
            <div class="tabs">
              <button class="tab-btn active" id="tab-btn-datasets" data-tab="datasets">Datasets</button>
              <button class="tab-btn" id="tab-btn-history" data-tab="history">Cycle History</button>
              <button class="tab-btn" id="tab-btn-services" data-tab="services">Services Status</button>
            </div>

            <section id="tab-datasets" class="tab-pane active">
            <h1 id="dataset-status">Dataset Status</h1>

            <div class="admonition">
              <p class="admonition-title">Important</p>
              <p>Freshness reflects the end of a deployment's time coverage; age reflects when the deployment record was created. Blacklisted deployments are excluded from ERDDAP/THREDDS harvesting.</p>
            </div>

            <div class="kpi-grid">
              <article class="kpi"><div class="kpi-label">Datasets</div><div class="kpi-value" id="kpi-total">-</div></article>
              <article class="kpi"><div class="kpi-label">Complete</div><div class="kpi-value" id="kpi-complete">-</div></article>
              <article class="kpi"><div class="kpi-label">Incomplete</div><div class="kpi-value" id="kpi-incomplete">-</div></article>
              <article class="kpi"><div class="kpi-label">Blacklisted</div><div class="kpi-value" id="kpi-blacklisted">-</div></article>
              <article class="kpi"><div class="kpi-label">Warnings</div><div class="kpi-value" id="kpi-warnings">-</div></article>
            </div>

            <article class="panel" style="margin-bottom:14px">
              <div class="panel-heading"><h3>Views and Filters</h3></div>
              <div class="panel-body">
                <div style="display:flex;flex-wrap:wrap;gap:8px;align-items:end">
                  <button class="tab-btn view-btn active" data-view="all" type="button">All Datasets</button>
                  <button class="tab-btn view-btn" data-view="status" type="button">Status</button>
                  <button class="tab-btn view-btn" data-view="latest" type="button">Latest</button>
                  <button class="tab-btn view-btn" data-view="blacklisted" type="button">Not Archiving</button>
                  <button class="tab-btn view-btn" data-view="warnings" type="button">Warnings</button>
                  <label>Institution<br>
                    <select id="filter-institution"><option value="">All institutions</option></select>
                  </label>
                  <label>Operator<br>
                    <select id="filter-operator"><option value="">All operators</option></select>
                  </label>
                  <label>Data Provider<br>
                    <select id="filter-provider"><option value="">All providers</option></select>
                  </label>
                  <label>WMO ID<br>
                    <select id="filter-wmo"><option value="">All WMO IDs</option></select>
                  </label>
                  <button class="tab-btn" id="btn-refresh" type="button">Refresh Now</button>
                  <a class="tab-btn" id="btn-export" href="/api/v1/export/datasets.csv">Export CSV</a>
                </div>
                <div class="hint" id="view-info">View: all</div>
              </div>
            </article>

            <section class="panel-grid">
              <article class="panel">
                <div class="panel-heading"><h3 id="dataset-table-title">Datasets</h3></div>
                <div class="panel-body">
                  <table>
                    <thead><tr><th>Dataset</th><th>Institution</th><th>Operator</th><th>WMO</th><th>Status</th><th>Coverage End</th><th>Created</th><th>Warn</th></tr></thead>
                    <tbody id="dataset-body"><tr><td colspan="8">Loading...</td></tr></tbody>
                  </table>
                  <div class="hint" id="dataset-meta">-</div>
                </div>
              </article>
              <article class="panel" id="dataset-details">
                <div class="panel-heading"><h3>Selected Dataset Details</h3></div>
                <div class="panel-body">
                  <div class="detail-summary">
                    <table>
                      <tbody>
                        <tr><th>Dataset ID</th><td id="dd-id">-</td></tr>
                        <tr><th>Institution</th><td id="dd-institution">-</td></tr>
                        <tr><th>Operator</th><td id="dd-operator">-</td></tr>
                        <tr><th>Data Provider</th><td id="dd-provider">-</td></tr>
                        <tr><th>WMO ID</th><td id="dd-wmo">-</td></tr>
                        <tr><th>Status</th><td id="dd-status">-</td></tr>
                        <tr><th>Freshness</th><td id="dd-freshness">-</td></tr>
                        <tr><th>Record Age</th><td id="dd-created">-</td></tr>
                        <tr><th>ERDDAP</th><td id="dd-erddap">-</td></tr>
                        <tr><th>THREDDS</th><td id="dd-thredds">-</td></tr>
                        <tr><th>Archiving</th><td id="dd-archiving">-</td></tr>
                      </tbody>
                    </table>
                  </div>
                  <pre id="dataset-json">Click a dataset row to load details.</pre>
                </div>
              </article>
            </section>
            </section>

            <section id="tab-history" class="tab-pane">
              <h1 id="cycle-history">Cycle History</h1>

              <div class="admonition">
                <p class="admonition-title">Important</p>
                <p>One row per completed fetch cycle. Counts are computed at fetch time and retained in the local history store.</p>
              </div>

              <article class="panel">
                <div class="panel-heading"><h3>Recent Fetch Cycles</h3></div>
                <div class="panel-body">
                  <table class="service-table">
                    <thead><tr><th>Fetched</th><th>Source</th><th>Total</th><th>Complete</th><th>Incomplete</th><th>Blacklisted</th><th>Warnings</th><th>Fresh</th><th>Stale</th><th>Dropped</th></tr></thead>
                    <tbody id="history-body"><tr><td colspan="10">Loading...</td></tr></tbody>
                  </table>
                  <div class="hint" id="history-hint">-</div>
                </div>
              </article>
            </section>

            <section id="tab-services" class="tab-pane">
              <h1 id="services-status">Services Status</h1>

              <div class="admonition">
                <p class="admonition-title">Important</p>
                <p>Service probes include the deployment source (status API or DAC database), the snapshot cache, the history store, and the public ERDDAP/THREDDS endpoints.</p>
              </div>

              <div class="service-kpis">
                <article class="kpi"><div class="kpi-label">Source</div><div class="kpi-value" id="svc-source">-</div></article>
                <article class="kpi"><div class="kpi-label">Cycles / Failures</div><div class="kpi-value" id="svc-cycles">-</div></article>
                <article class="kpi"><div class="kpi-label">Endpoints Up</div><div class="kpi-value" id="svc-endpoints-up">-</div></article>
                <article class="kpi"><div class="kpi-label">Last Check</div><div class="kpi-value" id="svc-updated">-</div></article>
              </div>

              <section class="panel-grid">
                <article class="panel">
                  <div class="panel-heading"><h3>Connectors</h3></div>
                  <div class="panel-body">
                    <table class="service-table">
                      <thead><tr><th>Service</th><th>Status</th><th>Ping</th><th>Main Stats</th></tr></thead>
                      <tbody id="services-core-body"><tr><td colspan="4">Loading...</td></tr></tbody>
                    </table>
                  </div>
                </article>

                <article class="panel">
                  <div class="panel-heading"><h3>ERDDAP / THREDDS Endpoints</h3></div>
                  <div class="panel-body">
                    <table class="service-table">
                      <thead><tr><th>Target</th><th>Kind</th><th>Status</th><th>HTTP</th><th>Ping</th><th>Catalog Links</th><th>Checked</th></tr></thead>
                      <tbody id="services-endpoints-body"><tr><td colspan="7">Loading...</td></tr></tbody>
                    </table>
                    <div style="margin-top:8px">
                      <button class="tab-btn" id="btn-probe-refresh" type="button">Re-probe Endpoints</button>
                    </div>
                  </div>
                </article>
              </section>

              <section class="panel-grid">
                <article class="panel">
                  <div class="panel-heading"><h3>App Metrics: Slow Endpoints</h3></div>
                  <div class="panel-body">
                    <table class="service-table">
                      <thead><tr><th>Method</th><th>Path</th><th>Status</th><th>Count</th><th>Avg ms</th></tr></thead>
                      <tbody id="services-app-http-body"><tr><td colspan="5">Loading...</td></tr></tbody>
                    </table>
                  </div>
                </article>
                <article class="panel">
                  <div class="panel-heading"><h3>App Metrics: Slow Store Ops</h3></div>
                  <div class="panel-body">
                    <table class="service-table">
                      <thead><tr><th>Connector</th><th>Operation</th><th>Count</th><th>Errors</th><th>Avg ms</th></tr></thead>
                      <tbody id="services-app-db-body"><tr><td colspan="5">Loading...</td></tr></tbody>
                    </table>
                    <div class="hint" id="services-app-errors">Errors: -</div>
                  </div>
                </article>
              </section>
            </section>
          </div>
        </div>

        <aside class="col-side">
          <div class="page-sidebar">
            <h3 class="toc-title">In This Page</h3>
            <ul class="toc-tree">
              <li><a href="#dataset-status">Dataset Status</a></li>
              <li><a href="#cycle-history">Cycle History</a></li>
              <li><a href="#services-status">Services Status</a></li>
            </ul>
            <div class="latest-update">Auto-refresh interval: __REFRESH_SECONDS__ seconds</div>
          </div>

          <div class="page-sidebar">
            <h3 class="toc-title">Data Endpoints</h3>
            <ul class="toc-tree">
              <li><span class="mono">/api/v1/datasets</span></li>
              <li><span class="mono">/api/v1/datasets/{id}</span></li>
              <li><span class="mono">/api/v1/index</span></li>
              <li><span class="mono">/api/v1/summary</span></li>
              <li><span class="mono">/api/v1/history</span></li>
              <li><span class="mono">/api/v1/status/services</span></li>
              <li><span class="mono">/api/v1/endpoints/probes</span></li>
              <li><span class="mono">/api/v1/export/datasets.csv</span></li>
              <li><span class="mono">/api/v1/settings/classification</span></li>
              <li><span class="mono">/api/v1/metrics/app</span></li>
              <li><span class="mono">/metrics</span></li>
            </ul>
          </div>
        </aside>
      </div>
    </div>
  </main>

  <script>
    const text = (id, v) => document.getElementById(id).textContent = v;
    const html = (id, v) => document.getElementById(id).innerHTML = v;
    const q = (s) => document.querySelector(s);
    const qq = (s) => Array.from(document.querySelectorAll(s));

    async function getJSON(url) {
      const r = await fetch(url);
      if (!r.ok) throw new Error(url + " -> " + r.status);
      return r.json();
    }

    function esc(v) {
      return String(v == null ? "" : v)
        .replaceAll("&", "&amp;")
        .replaceAll("<", "&lt;")
        .replaceAll(">", "&gt;");
    }

    function statusPill(ok) {
      return '<span class="pill ' + (ok ? 'ok' : 'bad') + '">' + (ok ? 'ok' : 'down') + '</span>';
    }

    function categoryPill(cat) {
      const cls = cat === 'complete' ? 'ok' : (cat === 'blacklisted' ? 'bad' : 'info');
      return '<span class="pill ' + cls + '">' + esc(cat) + '</span>';
    }

    function fmtWhen(iso) {
      if (!iso) return "-";
      const d = new Date(iso);
      if (Number.isNaN(d.getTime())) return "-";
      return d.toISOString().replace("T", " ").slice(0, 16) + "Z";
    }

    function switchTab(tab) {
      qq('.tab-btn[data-tab]').forEach((b) => b.classList.toggle('active', b.dataset.tab === tab));
      q('#tab-datasets').classList.toggle('active', tab === 'datasets');
      q('#tab-history').classList.toggle('active', tab === 'history');
      q('#tab-services').classList.toggle('active', tab === 'services');
      if (tab === 'history') {
        loadHistory();
      }
      if (tab === 'services') {
        loadServicesStatus();
      }
    }

    let currentView = 'all';
    let currentFilter = { field: '', value: '' };
    let selectedDatasetID = '';

    function datasetQueryURL() {
      const params = new URLSearchParams();
      if (currentFilter.field && currentFilter.value) {
        params.set(currentFilter.field, currentFilter.value);
      } else if (currentView && currentView !== 'all') {
        params.set('view', currentView);
      }
      const qs = params.toString();
      return '/api/v1/datasets' + (qs ? '?' + qs : '');
    }

    function renderDatasetRows(rows) {
      if (!rows.length) {
        html('dataset-body', '<tr><td colspan="8">No datasets in this view.</td></tr>');
        return;
      }
      html('dataset-body', rows.map((d) => {
        const sel = d.dataset_id === selectedDatasetID ? ' row-selected' : '';
        return '<tr class="row-click' + sel + '" data-id="' + esc(d.dataset_id) + '">' +
          '<td class="mono">' + esc(d.dataset_id) + '</td>' +
          '<td>' + esc(d.institution || '-') + '</td>' +
          '<td>' + esc(d.operator || '-') + '</td>' +
          '<td class="mono">' + esc(d.wmo_id || '-') + '</td>' +
          '<td>' + categoryPill(d.status) + (d.complete_icon ? ' &#10003;' : '') + '</td>' +
          '<td class="' + esc(d.freshness_class) + '">' + esc(d.coverage_age || '-') + '</td>' +
          '<td class="' + esc(d.created_class) + '">' + esc(d.created_age || '-') + '</td>' +
          '<td>' + (d.warning ? '<span class="pill warn">warn</span>' : '') + '</td>' +
          '</tr>';
      }).join(''));
      qq('#dataset-body tr[data-id]').forEach((tr) => {
        tr.addEventListener('click', () => loadDatasetDetail(tr.dataset.id));
      });
    }

    async function loadDatasets() {
      try {
        const res = await getJSON(datasetQueryURL());
        renderDatasetRows(res.data || []);
        const meta = res.meta || {};
        text('clock-snapshot', fmtWhen(meta.fetched_at));
        let info = 'View: ' + (meta.view || currentView);
        if (meta.filter_field) {
          info = 'Filter: ' + meta.filter_field + ' = ' + meta.filter_value;
        }
        text('view-info', info);
        let metaLine = 'Showing ' + (meta.count || 0) + ' of ' + (meta.total || 0) +
          ' datasets, cycle ' + (meta.cycle_id || '-');
        if (meta.stale) {
          metaLine += ' [STALE: ' + (meta.fetch_error || 'last fetch failed') + ']';
        }
        text('dataset-meta', metaLine);
      } catch (e) {
        html('dataset-body', '<tr><td colspan="8">Datasets unavailable: ' + esc(e.message) + '</td></tr>');
      }
    }

    async function loadSummary() {
      try {
        const res = await getJSON('/api/v1/summary');
        const s = res.data || {};
        text('kpi-total', s.dataset_count ?? '-');
        text('kpi-complete', s.complete_count ?? '-');
        text('kpi-incomplete', s.incomplete_count ?? '-');
        text('kpi-blacklisted', s.blacklisted_count ?? '-');
        text('kpi-warnings', s.warning_count ?? '-');
      } catch (e) {
        text('kpi-total', '-');
      }
    }

    function fillFilterSelect(id, values) {
      const sel = q('#' + id);
      const keep = sel.value;
      while (sel.options.length > 1) sel.remove(1);
      (values || []).forEach((v) => {
        const opt = document.createElement('option');
        opt.value = v;
        opt.textContent = v;
        sel.appendChild(opt);
      });
      sel.value = keep;
    }

    async function loadFilterIndex() {
      try {
        const res = await getJSON('/api/v1/index');
        const idx = res.data || {};
        fillFilterSelect('filter-institution', idx.institutions);
        fillFilterSelect('filter-operator', idx.operators);
        fillFilterSelect('filter-provider', idx.providers);
        fillFilterSelect('filter-wmo', idx.wmoIds);
      } catch (e) {
        // dropdowns stay empty until the first snapshot exists
      }
    }

    async function loadDatasetDetail(id) {
      selectedDatasetID = id;
      qq('#dataset-body tr[data-id]').forEach((tr) => {
        tr.classList.toggle('row-selected', tr.dataset.id === id);
      });
      try {
        const res = await getJSON('/api/v1/datasets/' + encodeURIComponent(id));
        const d = res.data || {};
        text('dd-id', d.datasetId || '-');
        text('dd-institution', d.institution || '-');
        text('dd-operator', d.operator || '-');
        text('dd-provider', d.provider || '-');
        text('dd-wmo', d.wmoId || '-');
        html('dd-status', categoryPill(d.statusCategory || '-'));
        text('dd-freshness', (d.freshness || '-'));
        text('dd-created', (d.created || '-'));
        html('dd-erddap', statusPill(!!d.erddapReachable));
        html('dd-thredds', statusPill(!!d.threddsReachable));
        html('dd-archiving', statusPill(!!d.archiving));
        text('dataset-json', JSON.stringify(res, null, 2));
      } catch (e) {
        text('dataset-json', 'Detail unavailable: ' + e.message);
      }
    }

    async function loadHistory() {
      try {
        const res = await getJSON('/api/v1/history?limit=50');
        const rows = res.data || [];
        if (!rows.length) {
          html('history-body', '<tr><td colspan="10">No cycle history recorded yet.</td></tr>');
          return;
        }
        html('history-body', rows.map((h) =>
          '<tr>' +
          '<td class="mono">' + fmtWhen(h.fetched_at) + '</td>' +
          '<td>' + esc(h.source) + '</td>' +
          '<td>' + esc(h.dataset_count) + '</td>' +
          '<td>' + esc(h.complete_count) + '</td>' +
          '<td>' + esc(h.incomplete_count) + '</td>' +
          '<td>' + esc(h.blacklisted_count) + '</td>' +
          '<td>' + esc(h.warning_count) + '</td>' +
          '<td>' + esc(h.fresh_count) + '</td>' +
          '<td>' + esc(h.stale_count) + '</td>' +
          '<td>' + esc(h.dropped_records) + '</td>' +
          '</tr>'
        ).join(''));
        text('history-hint', rows.length + ' cycles shown.');
      } catch (e) {
        html('history-body', '<tr><td colspan="10">History unavailable: ' + esc(e.message) + '</td></tr>');
      }
    }

    function serviceRow(name, svc) {
      if (!svc) return '';
      if (svc.enabled === false) {
        return '<tr><td>' + esc(name) + '</td><td><span class="pill info">disabled</span></td><td>-</td><td>' + esc(svc.hint || '') + '</td></tr>';
      }
      const stats = svc.stats || {};
      const statBits = Object.entries(stats)
        .filter(([k]) => k !== 'ping_ms')
        .map(([k, v]) => k + '=' + v)
        .join(', ');
      const pingMS = stats.ping_ms ?? svc.ping_ms;
      const ping = pingMS != null ? pingMS + 'ms' : '-';
      return '<tr><td>' + esc(name) + '</td><td>' + statusPill(!!svc.ok) + '</td>' +
        '<td>' + esc(ping) + '</td><td>' + esc(svc.error || statBits || '-') + '</td></tr>';
    }

    function renderEndpointProbes(probes) {
      if (!probes || !probes.length) {
        html('services-endpoints-body', '<tr><td colspan="7">No ERDDAP/THREDDS targets configured.</td></tr>');
        text('svc-endpoints-up', '-');
        return;
      }
      const up = probes.filter((p) => p.ok).length;
      text('svc-endpoints-up', up + '/' + probes.length);
      html('services-endpoints-body', probes.map((p) =>
        '<tr>' +
        '<td class="mono">' + esc(p.target) + '</td>' +
        '<td>' + esc(p.kind) + '</td>' +
        '<td>' + statusPill(!!p.ok) + '</td>' +
        '<td>' + esc(p.http_status || '-') + '</td>' +
        '<td>' + esc(p.ping_ms != null ? p.ping_ms + 'ms' : '-') + '</td>' +
        '<td>' + esc(p.catalog_links != null ? p.catalog_links : '-') + '</td>' +
        '<td class="mono">' + fmtWhen(p.checked_at) + '</td>' +
        '</tr>'
      ).join(''));
    }

    async function loadServicesStatus() {
      try {
        const res = await getJSON('/api/v1/status/services');
        const services = res.services || {};
        const pollerInfo = res.poller || {};

        text('svc-source', pollerInfo.source || '-');
        text('svc-cycles', (pollerInfo.cycles ?? '-') + ' / ' + (pollerInfo.failures ?? '-'));
        text('svc-updated', fmtWhen(res.generated_at));

        html('services-core-body',
          serviceRow('Status API', services.status_api) +
          serviceRow('DAC DB (MySQL)', services.dac_db) +
          serviceRow('History (SQLite)', services.history) +
          serviceRow('Snapshot Cache (Redis)', services.snapshot_cache));

        renderEndpointProbes((services.endpoints || {}).targets);
      } catch (e) {
        html('services-core-body', '<tr><td colspan="4">Status unavailable: ' + esc(e.message) + '</td></tr>');
      }

      try {
        const res = await getJSON('/api/v1/metrics/app');
        const data = res.data || {};
        const httpRows = data.top_http_slowest_avg_ms || [];
        html('services-app-http-body', httpRows.length ? httpRows.map((r) =>
          '<tr><td>' + esc(r.method) + '</td><td class="mono">' + esc(r.path) + '</td><td>' + esc(r.status) +
          '</td><td>' + esc(r.count) + '</td><td>' + Number(r.avg_ms).toFixed(1) + '</td></tr>'
        ).join('') : '<tr><td colspan="5">No requests observed yet.</td></tr>');
        const dbRows = data.top_db_slowest_avg_ms || [];
        html('services-app-db-body', dbRows.length ? dbRows.map((r) =>
          '<tr><td>' + esc(r.connector) + '</td><td>' + esc(r.operation) + '</td><td>' + esc(r.count) +
          '</td><td>' + esc(r.errors) + '</td><td>' + Number(r.avg_ms).toFixed(1) + '</td></tr>'
        ).join('') : '<tr><td colspan="5">No store operations observed yet.</td></tr>');
        const errs = data.errors || {};
        text('services-app-errors', 'Errors: store=' + (errs.db_query_total ?? 0) + ', probes=' + (errs.external_probe_total ?? 0));
      } catch (e) {
        text('services-app-errors', 'App metrics unavailable: ' + e.message);
      }
    }

    async function reprobeEndpoints() {
      try {
        const res = await getJSON('/api/v1/endpoints/probes?refresh=true');
        renderEndpointProbes(res.data || []);
      } catch (e) {
        html('services-endpoints-body', '<tr><td colspan="7">Probe failed: ' + esc(e.message) + '</td></tr>');
      }
    }

    async function forceRefresh() {
      try {
        await fetch('/api/v1/refresh', { method: 'POST' });
        text('view-info', 'Refresh requested, next cycle will run shortly.');
        setTimeout(loadAll, 3000);
      } catch (e) {
        text('view-info', 'Refresh failed: ' + e.message);
      }
    }

    function exportURL() {
      const params = new URLSearchParams();
      if (currentFilter.field && currentFilter.value) {
        params.set(currentFilter.field, currentFilter.value);
      } else if (currentView && currentView !== 'all') {
        params.set('view', currentView);
      }
      const qs = params.toString();
      return '/api/v1/export/datasets.csv' + (qs ? '?' + qs : '');
    }

    function onViewChange(view) {
      currentView = view;
      currentFilter = { field: '', value: '' };
      qq('.view-btn').forEach((b) => b.classList.toggle('active', b.dataset.view === view));
      qq('#filter-institution, #filter-operator, #filter-provider, #filter-wmo').forEach((sel) => sel.value = '');
      q('#btn-export').setAttribute('href', exportURL());
      loadDatasets();
    }

    function onFilterChange(field, selectID) {
      const value = q('#' + selectID).value;
      if (!value) {
        onViewChange('all');
        return;
      }
      currentFilter = { field, value };
      qq('.view-btn').forEach((b) => b.classList.remove('active'));
      q('#btn-export').setAttribute('href', exportURL());
      loadDatasets();
    }

    function loadAll() {
      loadSummary();
      loadFilterIndex();
      loadDatasets();
    }

    qq('.tab-btn[data-tab]').forEach((b) => b.addEventListener('click', () => switchTab(b.dataset.tab)));
    qq('.view-btn').forEach((b) => b.addEventListener('click', () => onViewChange(b.dataset.view)));
    q('#filter-institution').addEventListener('change', () => onFilterChange('institution', 'filter-institution'));
    q('#filter-operator').addEventListener('change', () => onFilterChange('operator', 'filter-operator'));
    q('#filter-provider').addEventListener('change', () => onFilterChange('provider', 'filter-provider'));
    q('#filter-wmo').addEventListener('change', () => onFilterChange('wmo_id', 'filter-wmo'));
    q('#btn-refresh').addEventListener('click', forceRefresh);
    q('#btn-probe-refresh').addEventListener('click', reprobeEndpoints);

    setInterval(() => {
      text('clock-utc', new Date().toISOString().replace('T', ' ').slice(0, 19) + 'Z');
    }, 1000);

    loadAll();
    setInterval(loadAll, __REFRESH_SECONDS__ * 1000);
  </script>
</body>
</html>
`
