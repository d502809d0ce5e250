package report

import (
	"fmt"
	"html/template"
)

var dashboardTmpl = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"pct": func(v float64) string {
		return fmt.Sprintf("%.1f%%", v)
	},
}).Parse(dashboardTemplateStr))

const dashboardTemplateStr = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Session Analytics Dashboard</title>
<style>
:root {
  --bg-primary: #faf8f5;
  --bg-surface: #ffffff;
  --border-default: #e5e0db;
  --text-primary: #2c2825;
  --text-secondary: #5c5650;
  --text-muted: #8c8580;
  --accent-blue: #2563eb;
  --accent-green: #15803d;
  --accent-red: #b91c1c;
  --radius-sm: 6px;
  --font-sans: -apple-system, BlinkMacSystemFont, "Segoe UI",
    Roboto, "Helvetica Neue", sans-serif;
}
* { box-sizing: border-box; margin: 0; padding: 0; }
body {
  font-family: var(--font-sans);
  font-size: 13px;
  background: var(--bg-primary);
  color: var(--text-primary);
  line-height: 1.5;
}
header {
  background: var(--bg-surface);
  border-bottom: 1px solid var(--border-default);
  padding: 12px 24px;
}
.header-content {
  max-width: 1000px; margin: 0 auto;
  display: flex; align-items: baseline;
  justify-content: space-between; gap: 12px;
}
h1 { font-size: 15px; font-weight: 600; }
h2 {
  font-size: 13px; font-weight: 600;
  margin: 24px 0 8px;
  color: var(--text-secondary);
  text-transform: uppercase; letter-spacing: 0.04em;
}
.meta { font-size: 11px; color: var(--text-muted); }
main { max-width: 1000px; margin: 0 auto; padding: 16px 24px 48px; }
.cards {
  display: grid;
  grid-template-columns: repeat(auto-fill, minmax(170px, 1fr));
  gap: 8px;
}
.card {
  background: var(--bg-surface);
  border: 1px solid var(--border-default);
  border-radius: var(--radius-sm);
  padding: 12px 14px;
}
.card .value { font-size: 22px; font-weight: 600; }
.card .label {
  font-size: 11px; color: var(--text-muted);
  text-transform: uppercase; letter-spacing: 0.03em;
}
.card .value.good { color: var(--accent-green); }
.card .value.bad { color: var(--accent-red); }
table {
  width: 100%; border-collapse: collapse;
  background: var(--bg-surface);
  border: 1px solid var(--border-default);
  border-radius: var(--radius-sm);
}
th, td {
  text-align: left; padding: 6px 12px;
  border-bottom: 1px solid var(--border-default);
  font-size: 12px;
}
th {
  color: var(--text-muted); font-weight: 600;
  text-transform: uppercase; letter-spacing: 0.03em;
  font-size: 10px;
}
tr:last-child td { border-bottom: none; }
td.num { text-align: right; font-variant-numeric: tabular-nums; }
th.num { text-align: right; }
.empty { color: var(--text-muted); font-style: italic; padding: 8px 0; }
</style>
</head>
<body>
<header>
  <div class="header-content">
    <h1>Session Analytics Dashboard</h1>
    <div class="meta">
      snapshot {{.Snapshot}} &middot;
      generated {{.GeneratedAt.Format "2006-01-02 15:04 UTC"}}
    </div>
  </div>
</header>
<main>
  <h2>Overview</h2>
  <div class="cards">
    <div class="card">
      <div class="value">{{.Report.BasicStats.TotalSessions}}</div>
      <div class="label">Sessions</div>
    </div>
    <div class="card">
      <div class="value">{{.Report.BasicStats.SessionsWithMessages}}</div>
      <div class="label">With Messages</div>
    </div>
    <div class="card">
      <div class="value">{{.Report.BasicStats.ExperimentsCount}}</div>
      <div class="label">Experiments</div>
    </div>
    <div class="card">
      <div class="value">{{.Report.BasicStats.TeamsCount}}</div>
      <div class="label">Teams</div>
    </div>
    <div class="card">
      <div class="value">{{.Report.MessageStats.TotalMessages}}</div>
      <div class="label">Messages</div>
    </div>
  </div>
  {{with .Report.BasicStats.DateRange}}
  <p class="meta" style="margin-top:8px">
    {{.Earliest.Format "2006-01-02"}} to {{.Latest.Format "2006-01-02"}}
  </p>
  {{end}}

  <h2>Message Verbosity</h2>
  <div class="cards">
    <div class="card">
      <div class="value">{{printf "%.1f" .Report.MessageStats.MedianUserWords}}</div>
      <div class="label">Median User Words</div>
    </div>
    <div class="card">
      <div class="value">{{printf "%.1f" .Report.MessageStats.MedianAssistantWords}}</div>
      <div class="label">Median Bot Words</div>
    </div>
    <div class="card">
      <div class="value">{{printf "%.1f" .Report.MessageStats.AvgUserWords}}</div>
      <div class="label">Avg User Words</div>
    </div>
    <div class="card">
      <div class="value">{{printf "%.1f" .Report.MessageStats.AvgAssistantWords}}</div>
      <div class="label">Avg Bot Words</div>
    </div>
  </div>

  <h2>User Sentiment</h2>
  <div class="cards">
    <div class="card">
      <div class="value good">{{.Report.SentimentStats.AppreciationCount}}</div>
      <div class="label">Appreciation ({{pct .Report.SentimentStats.AppreciationPercentage}})</div>
    </div>
    <div class="card">
      <div class="value bad">{{.Report.SentimentStats.DissatisfactionCount}}</div>
      <div class="label">Dissatisfaction ({{pct .Report.SentimentStats.DissatisfactionPercentage}})</div>
    </div>
    <div class="card">
      <div class="value">{{.Report.SentimentStats.TotalUserMessages}}</div>
      <div class="label">User Messages</div>
    </div>
  </div>

  <h2>Experiments</h2>
  {{if .Experiments}}
  <table>
    <thead>
      <tr><th>Experiment</th><th>Versions</th><th class="num">Sessions</th></tr>
    </thead>
    <tbody>
      {{range .Experiments}}
      <tr>
        <td>{{if .Name}}{{.Name}}{{else}}{{.ID}}{{end}}</td>
        <td>{{range $i, $v := .Versions}}{{if $i}}, {{end}}v{{$v}}{{end}}</td>
        <td class="num">{{.Sessions}}</td>
      </tr>
      {{end}}
    </tbody>
  </table>
  {{else}}
  <p class="empty">No experiments in this dataset.</p>
  {{end}}

  <h2>Annotations</h2>
  <div class="cards">
    <div class="card">
      <div class="value">{{.Report.AnnotationStats.TotalTags}}</div>
      <div class="label">Total Tags</div>
    </div>
    <div class="card">
      <div class="value">{{.Report.AnnotationStats.UniqueTags}}</div>
      <div class="label">Unique Tags</div>
    </div>
    <div class="card">
      <div class="value">{{.Report.AnnotationStats.SessionsWithTags}}</div>
      <div class="label">Tagged Sessions</div>
    </div>
  </div>
  {{if .AnnotationRows}}
  <table style="margin-top:8px">
    <thead><tr><th>Tag</th><th class="num">Count</th></tr></thead>
    <tbody>
      {{range .AnnotationRows}}
      <tr><td>{{.Name}}</td><td class="num">{{.Count}}</td></tr>
      {{end}}
    </tbody>
  </table>
  {{end}}

  <h2>Coaching Quality</h2>
  {{if .CoachingRows}}
  <table>
    <thead>
      <tr><th>Tag</th><th class="num">Sessions</th><th class="num">Share</th></tr>
    </thead>
    <tbody>
      {{range .CoachingRows}}
      <tr>
        <td>{{.Name}}</td>
        <td class="num">{{.Count}}</td>
        <td class="num">{{pct .Percent}}</td>
      </tr>
      {{end}}
    </tbody>
  </table>
  {{else}}
  <p class="empty">No coaching annotations in this dataset.</p>
  {{end}}
</main>
<script type="application/json" id="report-data">{{.ReportJSON}}</script>
<script type="application/json" id="dataset-data">{{.DatasetJSON}}</script>
</body>
</html>
`
