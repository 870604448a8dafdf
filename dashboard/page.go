package dashboard

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Treasury Agent Dashboard</title>
{{if .Refresh}}<meta http-equiv="refresh" content="{{.Refresh}}">{{end}}
<style>
body { font-family: system-ui, sans-serif; margin: 0; background: #0f1115; color: #e6e6e6; }
header { display: flex; justify-content: space-between; padding: 12px 20px; border-bottom: 1px solid #2a2d34; }
.grid { display: grid; grid-template-columns: repeat(3, 1fr); gap: 16px; padding: 16px; }
.panel { background: #171a21; border-radius: 8px; padding: 12px; }
.wide { grid-column: 1 / -1; }
.card { border-left: 3px solid #555; padding: 6px 10px; margin: 8px 0; background: #1d2129; }
.kind-assistant_update { border-color: #6c8cff; }
.kind-result { border-color: #3ecf8e; }
.kind-tool_use { border-color: #f5a524; }
.kind-partner_message { border-color: #e05dd7; }
.meta { display: flex; justify-content: space-between; font-size: 12px; color: #9aa0aa; }
.status-open { color: #3ecf8e; } .status-connecting { color: #f5a524; } .status-error { color: #f55; }
.empty, .note { color: #9aa0aa; font-size: 13px; }
.presets { display: flex; gap: 8px; flex-wrap: wrap; }
button { background: #242936; color: inherit; border: 1px solid #3a4050; border-radius: 6px; padding: 8px; cursor: pointer; text-align: left; }
pre { white-space: pre-wrap; font-size: 12px; }
</style>
</head>
<body>
<header>
  <strong>Treasury Agent Demo</strong>
  <span>Events tracked {{.Tracked}}</span>
</header>
<section class="grid">
{{range $i, $col := .Columns}}
  {{if eq $i 1}}
  <div class="panel">
    <h2>A2A Communication</h2>
    {{range $.Flow}}
    <div class="card kind-partner_message flow-{{lower .Agent}}">
      <div class="meta"><span>{{.Agent}} {{label .Kind}}</span><span>{{clock .Timestamp}}</span></div>
      <div class="markdown">{{markdown .}}</div>
    </div>
    {{else}}
    <div class="empty">Trigger a scenario to see the conversation.</div>
    {{end}}
    <div class="note">Showing {{len $.Flow}} message events across all agents.</div>
  </div>
  {{end}}
  <div class="panel">
    <h2>{{$col.Agent}} Treasury Agent</h2>
    <div class="meta"><span class="status-{{$col.Status}}">{{$col.Status}}</span><span>{{$col.Total}} events</span></div>
    {{range $col.Recent}}
    <div class="card kind-{{.Kind}}">
      <div class="meta"><span>{{label .Kind}}</span><span>{{clock .Timestamp}}</span></div>
      {{if eq (print .Kind) "tool_use"}}<div class="tool">{{summary .Text 160}}</div>{{else}}<div class="markdown">{{markdown .}}</div>{{end}}
    </div>
    {{else}}
    <div class="empty">Waiting for {{$col.Agent}} agent activity.</div>
    {{end}}
  </div>
{{end}}
  <div class="panel wide">
    <h2>Trigger Scenarios</h2>
    <form method="post" action="/trigger" class="presets">
      {{range $i, $p := .Presets}}
      <button type="submit" name="preset" value="{{$i}}"><span>{{$p.Target}} agent</span><br><strong>{{$p.Title}}</strong><div class="note">{{$p.Detail}}</div></button>
      {{end}}
    </form>
    <form method="post" action="/trigger">
      <select name="target">{{range .Agents}}<option value="{{.}}">{{.}} agent</option>{{end}}</select>
      <input name="message" size="60" placeholder="Custom event message (e.g., Invoice for 400 HBAR)">
      <button type="submit">Send</button>
    </form>
    {{with .SendStatus}}<div class="note">{{.}}</div>{{end}}
  </div>
{{if .Debug}}
  <div class="panel wide">
    <h2>Stream Debug</h2>
    {{range .Columns}}
    <h3>{{.Agent}}</h3>
    <pre>status: {{.Status}}
records: {{.Records}}
lastEventType: {{.Debug.LastEventType}}
lastEventAt: {{clock .Debug.LastEventAt}}
lastRecentCount: {{.Debug.LastRecentCount}}
lastAddedCount: {{.Debug.LastAddedCount}}
currentEventCount: {{.Debug.CurrentCount}}
lastError: {{.Debug.LastError}}
lastRaw: {{.Debug.LastRaw}}</pre>
    {{end}}
  </div>
{{end}}
</section>
</body>
</html>
`
