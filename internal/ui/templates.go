package ui

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Template functions available in all templates.
var templateFuncs = template.FuncMap{
	"formatTime": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Format("2006-01-02 15:04:05")
	},
	"formatTimePtr": func(t *time.Time) string {
		if t == nil || t.IsZero() {
			return "-"
		}
		return t.Format("2006-01-02 15:04:05")
	},
	"ago": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return humanize.Time(t)
	},
	"bytes": func(n int) string {
		if n <= 0 {
			return "-"
		}
		return humanize.Bytes(uint64(n))
	},
	"stateColor": func(state string) string {
		switch strings.ToUpper(state) {
		case "QUEUED":
			return "#d97706"
		case "ACTIVE", "RENDERING":
			return "#2563eb"
		case "COMPLETED":
			return "#16a34a"
		default:
			return "#6b7280"
		}
	},
	"add": func(a, b int) int {
		return a + b
	},
	"sub": func(a, b int) int {
		return a - b
	},
}

// renderTemplate renders a named page inside the shared layout.
func renderTemplate(w io.Writer, name string, data map[string]any) error {
	content, ok := templates[name]
	if !ok {
		return fmt.Errorf("template not found: %s", name)
	}
	layout, ok := templates["layout"]
	if !ok {
		return fmt.Errorf("layout template not found")
	}

	tmpl, err := template.New("layout").Funcs(templateFuncs).Parse(layout)
	if err != nil {
		return fmt.Errorf("parse layout: %w", err)
	}
	if _, err := tmpl.New("content").Parse(content); err != nil {
		return fmt.Errorf("parse content: %w", err)
	}
	return tmpl.Execute(w, data)
}

var templates = map[string]string{
	"layout": `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        body { font-family: sans-serif; background: #f9fafb; margin: 0; }
        nav { background: #fff; border-bottom: 1px solid #e5e7eb; padding: 12px 24px; }
        nav a { color: #4f46e5; font-weight: bold; text-decoration: none; }
        main { max-width: 1100px; margin: 0 auto; padding: 24px; }
        .pill { display: inline-block; padding: 2px 8px; border-radius: 9999px; color: #fff; font-size: 12px; }
        .grid { display: grid; grid-template-columns: repeat(auto-fill, minmax(260px, 1fr)); gap: 16px; }
        .card { background: #fff; border: 1px solid #e5e7eb; border-radius: 6px; padding: 10px; }
        .card img { width: 240px; height: 160px; border: 1px solid #e5e7eb; }
        .placeholder { width: 240px; height: 160px; background: #f3f4f6; display: flex; align-items: center; justify-content: center; color: #9ca3af; }
        dl { display: grid; grid-template-columns: 140px 1fr; gap: 6px; }
    </style>
</head>
<body>
    <nav><a href="/">imagebuilder</a></nav>
    <main>
        {{template "content" .}}
    </main>
</body>
</html>`,

	"dashboard": `{{define "content"}}
<h1>Jobs</h1>
<p>
    <a href="/">All ({{.Total}})</a>
    {{range .Counts}}
    &middot; <a href="/?state={{.State}}"><span class="pill" style="background: {{stateColor .State}}">{{.State}}</span> {{.Count}}</a>
    {{end}}
</p>
{{if .Jobs}}
<div class="grid">
    {{range .Jobs}}
    <div class="card">
        <a href="/jobs/{{.ID}}">
        {{if gt .ImageSize 0}}
            <img src="/api/v1/jobs/{{.ID}}/image" alt="{{.Name}}">
        {{else}}
            <div class="placeholder">{{.State}}</div>
        {{end}}
        </a>
        <div><strong>{{.Name}}</strong></div>
        <div><span class="pill" style="background: {{stateColor (print .State)}}">{{.State}}</span> {{bytes .ImageSize}} &middot; {{ago .CreatedAt}}</div>
    </div>
    {{end}}
</div>
{{with .Pagination}}
<p>
    {{if gt .Offset 0}}<a href="/?offset={{sub .Offset .Limit}}&limit={{.Limit}}&state={{$.State}}">Previous</a>{{end}}
    {{if .HasMore}}<a href="/?offset={{add .Offset .Limit}}&limit={{.Limit}}&state={{$.State}}">Next</a>{{end}}
</p>
{{end}}
{{else}}
<p>No jobs found.</p>
{{end}}
<p style="color: #9ca3af">Up {{.Uptime}}</p>
{{end}}`,

	"jobs/detail": `{{define "content"}}
{{with .Job}}
<h1>{{.Name}}</h1>
{{if gt .ImageSize 0}}
<img src="/api/v1/jobs/{{.ID}}/image" alt="{{.Name}}" style="border: 1px solid #e5e7eb">
{{end}}
<dl>
    <dt>ID</dt><dd>{{.ID}}</dd>
    <dt>State</dt><dd><span class="pill" style="background: {{stateColor (print .State)}}">{{.State}}</span></dd>
    <dt>Scene</dt><dd>{{if .Rootless}}none{{else}}constructed{{end}}</dd>
    <dt>Builder steps</dt><dd>{{.Steps}}</dd>
    <dt>Preemptions</dt><dd>{{.Preemptions}}</dd>
    <dt>Image</dt><dd>{{bytes .ImageSize}}</dd>
    {{if .Location}}<dt>Location</dt><dd>{{.Location}}</dd>{{end}}
    <dt>Created</dt><dd>{{formatTime .CreatedAt}}</dd>
    <dt>Started</dt><dd>{{formatTimePtr .StartedAt}}</dd>
    <dt>Completed</dt><dd>{{formatTimePtr .CompletedAt}}</dd>
</dl>
{{end}}
{{end}}`,

	"error": `{{define "content"}}
<h1>Error</h1>
<p>{{.Message}}</p>
<p><a href="/">Back to jobs</a></p>
{{end}}`,
}
