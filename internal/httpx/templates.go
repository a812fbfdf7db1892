package httpx

const layoutTpl = `{{define "header"}}<!doctype html><html><head>
<meta charset="utf-8"><meta name="viewport" content="width=device-width,initial-scale=1">
{{if .Refresh}}<meta http-equiv="refresh" content="{{.Refresh}}">{{end}}
<title>Yukti · {{.Title}}</title>
<style>
body{font-family:system-ui,Segoe UI,Roboto,Inter,Arial;background:#0b1020;color:#e8ecff;margin:0;padding:20px}
nav a{color:#7aa2ff;margin-right:14px;text-decoration:none}
.card{background:#111837;border:1px solid #203063;border-radius:14px;padding:16px;margin:12px 0}
.grid{display:grid;grid-template-columns:repeat(auto-fit,minmax(240px,1fr));gap:12px}
h1{margin:10px 0} .muted{color:#9aa7cf} table{width:100%;border-collapse:collapse}
th,td{border-bottom:1px solid #22305f;padding:8px;vertical-align:top;text-align:left}
.good{color:#3ddc97} .bad{color:#ff6b6b}
.warn{border-color:#ffb86b} .err{border-color:#ff6b6b} .ok{border-color:#3ddc97}
.high{border-left:4px solid #ff6b6b} .medium{border-left:4px solid #ffb86b}
svg{max-width:100%}
button{background:#7aa2ff;color:#04102a;border:none;padding:8px 12px;border-radius:10px;cursor:pointer}
select,input{background:#0b1020;color:#e8ecff;border:1px solid #22305f;border-radius:8px;padding:6px}
</style>
</head><body>
<nav><a href="/diagnostics">Diagnostics</a><a href="/forecaster">Forecaster</a><a href="/alerts">Live Alerts</a></nav>
<h1>{{.Title}}</h1>
{{end}}
{{define "footer"}}</body></html>{{end}}`

const diagnosticsTpl = `{{template "header" .}}{{with .Body}}
<form class="card" method="GET" action="/diagnostics">
  <label>From <input type="date" name="start" value="{{if not .Scenario.Start.IsZero}}{{date .Scenario.Start}}{{end}}"></label>
  <label>To <input type="date" name="end" value="{{if not .Scenario.End.IsZero}}{{date .Scenario.End}}{{end}}"></label>
  <select name="city">{{$c := .Scenario.City}}{{range .Options.Cities}}<option{{if eq . $c}} selected{{end}}>{{.}}</option>{{end}}</select>
  <select name="product">{{$p := .Scenario.Product}}{{range .Options.Products}}<option{{if eq . $p}} selected{{end}}>{{.}}</option>{{end}}</select>
  <select name="sku">{{$s := .Scenario.SKU}}{{range .Options.SKUs}}<option{{if eq . $s}} selected{{end}}>{{.}}</option>{{end}}</select>
  <select name="time_slot">{{$t := .Scenario.TimeSlot}}{{range .Options.TimeSlots}}<option{{if eq . $t}} selected{{end}}>{{.}}</option>{{end}}</select>
  <div>{{$sel := .Selected}}{{range allCards}}<label><input type="checkbox" name="cards" value="{{.}}"{{if checked $sel .}} checked{{end}}> {{.}}</label> {{end}}</div>
  <label><input type="checkbox" name="narrate" value="true"> Executive summary</label>
  <button type="submit">Apply</button>
</form>
{{if .Message}}<div class="card err">{{.Message}}</div>{{else}}
<div class="grid">{{range .Cards}}
  <div class="card"><div class="muted">{{.Label}}</div>
  <h2>{{if .Value.Valid}}{{printf "%.2f" .Value.Value}}{{else}}n/a{{end}}</h2>
  <div class="{{if .Good}}good{{else}}bad{{end}}">{{printf "%+.2f" .Delta.Percent}}%{{if .Delta.PreviousMissing}} <span class="muted">(no prior period)</span>{{end}}</div>
  {{if .Target.Valid}}<div class="muted">Target {{printf "%.2f" .Target.Value}}</div>{{end}}
  {{spark .Spark}}</div>
{{end}}</div>
<div class="card {{if .Insight.Insufficient}}warn{{else}}ok{{end}}">
  <h3>AI Diagnostic Insight{{if .Insight.Period}} · {{.Insight.Period}}{{end}}</h3>
  <p><b>Symptom:</b> {{.Insight.Symptom}}</p>
  {{if .Insight.Cause}}<p class="warn"><b>Root cause:</b> {{.Insight.Cause}}</p>{{end}}
  {{if .Insight.Recommendation}}<p class="good"><b>Recommendation:</b> {{.Insight.Recommendation}}</p>{{end}}
  {{if .Summary}}<h4>Executive Summary (AI)</h4><p class="muted">{{.Summary}}</p>{{end}}
</div>
<div class="card"><h3>City Performance</h3>{{cityMap .Map}}
<table><thead><tr><th>City</th><th>ROAS</th><th>Target</th><th>Conversions</th></tr></thead><tbody>
{{range .Map}}<tr><td>{{.City}}</td><td>{{if .ActualROAS.Valid}}{{printf "%.2f" .ActualROAS.Value}}{{end}}</td><td>{{if .TargetROAS.Valid}}{{printf "%.2f" .TargetROAS.Value}}{{end}}</td><td>{{printf "%.0f" .Conversions}}</td></tr>{{end}}
</tbody></table></div>
{{if .Dropped}}<p class="muted">{{.Dropped}} rows without a valid date were skipped.</p>{{end}}
{{end}}{{end}}{{template "footer" .}}`

const forecasterTpl = `{{template "header" .}}{{with .Body}}{{$f := .Forecast}}
<form class="card" method="GET" action="/forecaster">
  <select name="city">{{$c := $f.Scenario.City}}{{range $f.Options.Cities}}<option{{if eq . $c}} selected{{end}}>{{.}}</option>{{end}}</select>
  <select name="product">{{$p := $f.Scenario.Product}}{{range $f.Options.Products}}<option{{if eq . $p}} selected{{end}}>{{.}}</option>{{end}}</select>
  <select name="sku">{{$s := $f.Scenario.SKU}}{{range $f.Options.SKUs}}<option{{if eq . $s}} selected{{end}}>{{.}}</option>{{end}}</select>
  <select name="ad_type">{{$a := $f.Scenario.AdType}}{{range $f.Options.AdTypes}}<option{{if eq . $a}} selected{{end}}>{{.}}</option>{{end}}</select>
  <select name="metric">{{$m := $f.Metric}}{{range $f.Metrics}}<option{{if eq . $m}} selected{{end}}>{{.}}</option>{{end}}</select>
  <button type="submit">Forecast</button>
</form>
<div class="card"><h3>Part 1: Predictive Forecast for {{$f.Metric}}</h3>
<p class="muted">Scenario: {{$f.Scenario.Product}} | {{$f.Scenario.SKU}} | {{$f.Scenario.City}} | {{$f.Scenario.AdType}}</p>
{{if $f.Message}}<div class="card warn">{{$f.Message}}</div>{{else}}{{chart $f.Result}}
{{with $f.Result}}<table><thead><tr><th>Date</th><th>Forecast</th></tr></thead><tbody>
{{range .Future}}<tr><td>{{date .Date}}</td><td>{{printf "%.3f" .Value}}</td></tr>{{end}}</tbody></table>
{{if .Weekly}}<h4>Weekly component</h4><table><tbody>{{range .Weekly}}<tr><td>{{.Weekday}}</td><td>{{printf "%+.3f" .Effect}}</td></tr>{{end}}</tbody></table>{{end}}{{end}}
{{end}}</div>
<form class="card" method="POST" action="/forecaster/plan">
  <h3>Part 2: AI-Powered Budget Allocator</h3>
  <p class="muted">Forecasts all ad types for {{$f.Scenario.Product}} ({{$f.Scenario.SKU}}) in {{$f.Scenario.City}}.</p>
  <input type="hidden" name="city" value="{{$f.Scenario.City}}"><input type="hidden" name="product" value="{{$f.Scenario.Product}}">
  <input type="hidden" name="sku" value="{{$f.Scenario.SKU}}"><input type="hidden" name="ad_type" value="{{$f.Scenario.AdType}}">
  <input type="hidden" name="metric" value="{{$f.Metric}}">
  {{$g := .Goal}}{{range $f.Goals}}<label><input type="radio" name="goal" value="{{.}}"{{if eq . $g}} checked{{end}}> {{.}}</label> {{end}}
  <label>Budget <input type="number" name="budget" min="10000" step="10000" value="{{printf "%.0f" .Budget}}"></label>
  <button type="submit">Generate AI Budget Plan</button>
</form>
{{if .Error}}<div class="card err">{{.Error}}</div>{{end}}
{{with .Plan}}{{with .Allocation}}<div class="card ok"><h3>Recommended Budget Allocation by Ad Type</h3>
<table><thead><tr><th>Ad type</th><th>Predicted performance</th><th>Budget</th></tr></thead><tbody>
{{range .Lines}}<tr><td>{{.AdType}}</td><td>{{printf "%.2f" .PredictedPerformance}}</td><td>{{money .RecommendedBudget}}</td></tr>{{end}}
</tbody></table>{{if .Excluded}}<p class="muted">Too little history: {{range .Excluded}}{{.}} {{end}}</p>{{end}}</div>{{end}}{{end}}
{{if .Plans}}<div class="card"><h3>Recent plans</h3><table><tbody>{{range .Plans}}<tr><td>{{date .CreatedAt}}</td><td>{{.Goal}}</td><td>{{.City}} · {{.Product}} · {{.SKU}}</td><td>{{money .TotalBudget}}</td></tr>{{end}}</tbody></table></div>{{end}}
{{end}}{{template "footer" .}}`

const alertsTpl = `{{template "header" .}}{{with .Body}}
<form class="card" method="POST" action="/alerts/auto">
  <input type="hidden" name="auto" value="{{if .Auto}}false{{else}}true{{end}}">
  <span>AI Auto-Resolve is <b>{{if .Auto}}on{{else}}off{{end}}</b></span>
  <button type="submit">{{if .Auto}}Switch to manual{{else}}Enable auto-resolve{{end}}</button>
</form>
{{range .Steps}}<div class="card {{if eq .Phase "failed"}}err{{else if eq .Phase "resolved"}}ok{{else}}warn{{end}}">{{.Message}}</div>{{end}}
{{if .Message}}<div class="card err">{{.Message}}</div>{{end}}
{{if .Awaiting}}<div class="card muted">Awaiting queue confirmation: {{range $i, $ts := .Awaiting}}{{if $i}}, {{end}}{{$ts}}{{end}}</div>{{end}}
{{if .AllClear}}<div class="card ok">All clear! No pending issues found in the queue.</div>{{end}}
{{$auto := .Auto}}{{range .Cards}}<div class="card {{.Priority}}">
  <b>{{.Title}}</b>
  <p>{{.Issue.Product}} · {{.Issue.SKU}} · {{.Issue.City}}</p>
  <p class="muted">{{.Issue.Details}}</p><p class="muted">{{.Issue.Timestamp}}</p>
  {{if not $auto}}<form method="POST" action="/alerts/resolve"><input type="hidden" name="timestamp" value="{{.Issue.Timestamp}}"><button type="submit">Mark as Resolved</button></form>{{end}}
</div>{{end}}
{{if .History}}<div class="card"><h3>Resolution history</h3><table><thead><tr><th>When</th><th>Issue</th><th>Mode</th><th>Result</th></tr></thead><tbody>
{{range .History}}<tr><td>{{.ResolvedAt.Format "2006-01-02 15:04"}}</td><td>{{.SKU}} in {{.City}}</td><td>{{.Mode}}</td><td>{{if .Success}}resolved{{else}}failed{{end}}</td></tr>{{end}}
</tbody></table></div>{{end}}
{{end}}{{template "footer" .}}`
