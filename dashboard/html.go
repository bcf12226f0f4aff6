package dashboard

const dashboardHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Hookbench</title>
    <style>
        :root {
            --bg: #f9fafb;
            --border: #e5e7eb;
            --panel: #ffffff;
            --text-main: #1f2937;
            --text-sub: #6b7280;
            --primary: #2563eb;
            --success: #059669;
            --error: #dc2626;
            --warning: #d97706;
            --code-bg: #f3f4f6;
        }
        * { box-sizing: border-box; }
        body { margin: 0; font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; background: var(--bg); color: var(--text-main); height: 100vh; display: flex; overflow: hidden; }

        .sidebar { width: 420px; background: var(--panel); border-right: 1px solid var(--border); display: flex; flex-direction: column; }
        .main { flex: 1; background: var(--panel); display: flex; flex-direction: column; overflow: hidden; }

        .sidebar-header { padding: 14px 16px; border-bottom: 1px solid var(--border); display: flex; gap: 8px; align-items: center; }
        .sidebar-header h1 { font-size: 15px; margin: 0 auto 0 0; font-weight: 600; }
        .status-badge { font-size: 12px; padding: 2px 8px; background: #dbeafe; color: var(--primary); border-radius: 12px; }
        select, input[type=text] { font-size: 13px; padding: 4px 6px; border: 1px solid var(--border); border-radius: 4px; }
        .filter-row { padding: 8px 16px; border-bottom: 1px solid var(--border); }
        .filter-row input { width: 100%; }

        .entry-list { flex: 1; overflow-y: auto; }
        .entry-item { padding: 10px 16px; border-bottom: 1px solid var(--border); cursor: pointer; display: flex; align-items: center; gap: 10px; }
        .entry-item:hover { background: #f9fafb; }
        .entry-item.active { background: #eff6ff; border-left: 3px solid var(--primary); }
        .entry-method { font-size: 11px; font-weight: 700; width: 56px; text-transform: uppercase; }
        .entry-info { flex: 1; min-width: 0; }
        .entry-uri { font-size: 13px; font-family: 'Menlo', 'Monaco', monospace; white-space: nowrap; overflow: hidden; text-overflow: ellipsis; margin-bottom: 3px; }
        .entry-meta { font-size: 11px; color: var(--text-sub); display: flex; gap: 8px; }
        .status-dot { width: 8px; height: 8px; border-radius: 50%; }
        .s-pending { background: #9ca3af; }
        .s-2xx { background: var(--success); }
        .s-4xx { background: var(--warning); }
        .s-5xx { background: var(--error); }

        .empty-state { flex: 1; display: flex; align-items: center; justify-content: center; color: var(--text-sub); font-size: 14px; }
        .detail-view { display: none; flex-direction: column; height: 100%; overflow-y: auto; padding: 24px; gap: 24px; }
        .detail-view.visible { display: flex; }
        .section-title { font-size: 12px; text-transform: uppercase; letter-spacing: 0.5px; color: var(--text-sub); font-weight: 600; margin-bottom: 8px; border-bottom: 1px solid var(--border); padding-bottom: 4px; }
        .kv-grid { display: grid; grid-template-columns: auto 1fr; gap: 6px 16px; font-size: 13px; margin-bottom: 12px; }
        .kv-key { font-weight: 500; color: var(--text-sub); text-align: right; }
        .kv-val { font-family: 'Menlo', monospace; word-break: break-all; }
        pre { margin: 0; background: var(--code-bg); padding: 14px; border-radius: 6px; font-size: 12px; overflow-x: auto; border: 1px solid var(--border); white-space: pre-wrap; word-break: break-all; }
        .btn { padding: 5px 10px; background: var(--primary); color: white; border: none; border-radius: 4px; cursor: pointer; font-size: 12px; }
        .btn.danger { background: var(--error); }
    </style>
</head>
<body>
    <div class="sidebar">
        <div class="sidebar-header">
            <h1>Hookbench</h1>
            <select id="port-select" onchange="switchPort()"></select>
            <button class="btn danger" onclick="clearEntries()">Clear</button>
            <span id="live-badge" class="status-badge">Live</span>
        </div>
        <div class="filter-row">
            <input type="text" id="filter" placeholder="Filter: method, uri, status, body..." oninput="loadEntries()">
        </div>
        <div id="entry-list" class="entry-list"></div>
    </div>

    <div class="main">
        <div id="empty-state" class="empty-state">Select an entry to inspect the exchange</div>
        <div id="detail-view" class="detail-view"></div>
    </div>

    <script>
        let entries = [];
        let selectedId = null;
        let currentPort = null;

        function statusClass(e) {
            if (!e.has_response) return 's-pending';
            if (e.status_code >= 500) return 's-5xx';
            if (e.status_code >= 400) return 's-4xx';
            return 's-2xx';
        }

        function fmtDuration(ns) {
            if (!ns) return '';
            if (ns >= 1e9) return (ns / 1e9).toFixed(2) + 's';
            return (ns / 1e6).toFixed(1) + 'ms';
        }

        function loadSessions() {
            fetch('/api/sessions').then(r => r.json()).then(sessions => {
                const sel = document.getElementById('port-select');
                sel.replaceChildren();
                (sessions || []).forEach(s => {
                    const opt = document.createElement('option');
                    opt.value = s.port;
                    opt.textContent = s.port + ' (' + s.entries + ')';
                    sel.appendChild(opt);
                });
                if (currentPort === null && sessions && sessions.length > 0) {
                    currentPort = sessions[0].port;
                }
                if (currentPort !== null) sel.value = currentPort;
                loadEntries();
            });
        }

        function switchPort() {
            currentPort = parseInt(document.getElementById('port-select').value, 10);
            selectedId = null;
            loadEntries();
        }

        function loadEntries() {
            if (currentPort === null) return;
            const filter = encodeURIComponent(document.getElementById('filter').value);
            fetch('/api/sessions/' + currentPort + '/entries?filter=' + filter)
                .then(r => r.json())
                .then(data => { entries = data || []; renderList(); });
        }

        function clearEntries() {
            if (currentPort === null) return;
            fetch('/api/sessions/' + currentPort + '/entries', { method: 'DELETE' })
                .then(() => { selectedId = null; loadEntries(); });
        }

        function renderList() {
            const list = document.getElementById('entry-list');
            list.replaceChildren();
            entries.forEach(e => {
                const item = document.createElement('div');
                item.className = 'entry-item' + (e.id === selectedId ? ' active' : '');
                item.onclick = () => selectEntry(e.id);

                const dot = document.createElement('div');
                dot.className = 'status-dot ' + statusClass(e);
                item.appendChild(dot);

                const info = document.createElement('div');
                info.className = 'entry-info';

                const uriDiv = document.createElement('div');
                uriDiv.className = 'entry-uri';
                const methodSpan = document.createElement('span');
                methodSpan.className = 'entry-method';
                methodSpan.textContent = e.method || '';
                uriDiv.appendChild(methodSpan);
                uriDiv.appendChild(document.createTextNode(' ' + (e.uri || '')));
                info.appendChild(uriDiv);

                const meta = document.createElement('div');
                meta.className = 'entry-meta';
                const bits = [];
                bits.push(e.has_response ? String(e.status_code) : 'pending');
                if (e.has_response && e.has_request) bits.push(fmtDuration(e.duration_ns));
                bits.push('id ' + e.id);
                bits.forEach(b => {
                    const span = document.createElement('span');
                    span.textContent = b;
                    meta.appendChild(span);
                });
                info.appendChild(meta);

                item.appendChild(info);
                list.appendChild(item);
            });
        }

        function kvGrid(obj) {
            const grid = document.createElement('div');
            grid.className = 'kv-grid';
            Object.entries(obj || {}).forEach(([k, v]) => {
                const key = document.createElement('div');
                key.className = 'kv-key';
                key.textContent = k + ':';
                grid.appendChild(key);
                const val = document.createElement('div');
                val.className = 'kv-val';
                val.textContent = v;
                grid.appendChild(val);
            });
            return grid;
        }

        function jsonPre(data) {
            const pre = document.createElement('pre');
            if (data === undefined || data === null) {
                pre.textContent = 'No content';
            } else {
                pre.textContent = JSON.stringify(data, null, 2);
            }
            return pre;
        }

        function section(title) {
            const div = document.createElement('div');
            const t = document.createElement('div');
            t.className = 'section-title';
            t.textContent = title;
            div.appendChild(t);
            return div;
        }

        function selectEntry(id) {
            selectedId = id;
            const e = entries.find(x => x.id === id);
            if (!e) return;

            document.getElementById('empty-state').style.display = 'none';
            const view = document.getElementById('detail-view');
            view.classList.add('visible');
            view.replaceChildren();

            const reqSec = section('Request');
            if (e.has_request) {
                reqSec.appendChild(kvGrid({
                    Method: e.method, URI: e.uri,
                    Received: e.request_time,
                }));
                if (e.query_parameters && Object.keys(e.query_parameters).length) {
                    reqSec.appendChild(kvGrid(e.query_parameters));
                }
                reqSec.appendChild(kvGrid(e.request_headers));
                reqSec.appendChild(jsonPre(e.request_data));
            } else {
                reqSec.appendChild(jsonPre('Request not seen (orphaned response)'));
            }
            view.appendChild(reqSec);

            const resSec = section('Response');
            if (e.has_response) {
                resSec.appendChild(kvGrid({
                    Status: e.status_code + (e.response_message ? ' ' + e.response_message : ''),
                    Received: e.response_time,
                    Duration: fmtDuration(e.duration_ns),
                }));
                resSec.appendChild(jsonPre(e.response_data));
            } else {
                resSec.appendChild(jsonPre('Response pending'));
            }
            view.appendChild(resSec);

            renderList();
        }

        function initSSE() {
            const evtSource = new EventSource('/api/events');
            const badge = document.getElementById('live-badge');

            evtSource.addEventListener('connected', function() {
                badge.textContent = 'Live';
                badge.style.background = '#dcfce7';
                badge.style.color = '#059669';
            });

            evtSource.addEventListener('entry', function(ev) {
                try {
                    const entry = JSON.parse(ev.data);
                    if (entry.port === currentPort) loadEntries();
                    loadSessions();
                } catch (err) {
                    console.error('Failed to parse SSE data:', err);
                }
            });

            evtSource.onerror = function() {
                badge.textContent = 'Reconnecting...';
                badge.style.background = '#fef3c7';
                badge.style.color = '#d97706';
            };
        }

        loadSessions();
        initSSE();
    </script>
</body>
</html>
`
