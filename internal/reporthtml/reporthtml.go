// Package reporthtml renders a processed trace report as a standalone HTML
// document: a summary bar, a collapsible call tree with per-node durations,
// library badges for external calls and the slowest application function
// highlighted. It only reads the report.
package reporthtml

import (
	"fmt"
	"html/template"
	"io"

	"github.com/callprofiler/callprofiler/internal/calltree"
	"github.com/callprofiler/callprofiler/internal/trace"
)

type (
	page struct {
		Name          string
		TotalDuration string
		Slowest       string
		FunctionCount int
		WarningCount  int
		Roots         []*nodeView
	}

	nodeView struct {
		Name     string
		Location string
		Duration string
		Times    string
		Library  string
		External bool
		Slowest  bool
		Children []*nodeView
	}
)

// Render writes the HTML report for r to w.
func Render(w io.Writer, r trace.Report) error {
	return pageTemplate.Execute(w, buildPage(r))
}

func buildPage(r trace.Report) page {
	slowest := slowestApplicationNode(r.Forest)

	p := page{
		Name:          r.Name,
		TotalDuration: FormatDuration(r.DurationNS),
		FunctionCount: calltree.CountNodes(r.Forest),
		WarningCount:  len(r.Warnings),
	}
	if slowest != nil {
		p.Slowest = fmt.Sprintf("%s (%s)", slowest.Function, FormatDuration(slowest.DurationNS))
	}
	for _, root := range r.Forest {
		p.Roots = append(p.Roots, buildNodeView(root, slowest))
	}
	return p
}

func buildNodeView(n *calltree.Node, slowest *calltree.Node) *nodeView {
	v := nodeView{
		Name:     n.Function,
		Duration: FormatDuration(n.DurationNS),
		Times:    fmt.Sprintf("[start: %s | end: %s]", FormatDuration(n.StartNS), FormatDuration(n.EndNS)),
		External: n.IsExternal,
		Slowest:  n == slowest,
	}
	if n.Path != "" {
		v.Location = fmt.Sprintf("%s:%d", shortPath(n.Path), n.Line)
	}
	if n.IsExternal {
		v.Library = n.Library
	}
	for _, child := range n.Children {
		v.Children = append(v.Children, buildNodeView(child, slowest))
	}
	return &v
}

// slowestApplicationNode returns the non-root application node with the
// longest duration. Roots are excluded since the entry point always spans
// the whole trace, and external nodes are library time the caller cannot
// act on.
func slowestApplicationNode(forest []*calltree.Node) *calltree.Node {
	var slowest *calltree.Node
	calltree.Walk(forest, func(n *calltree.Node, depth int) {
		if depth == 0 || n.IsExternal {
			return
		}
		if slowest == nil || n.DurationNS > slowest.DurationNS {
			slowest = n
		}
	})
	return slowest
}

// FormatDuration pretty-prints nanoseconds with the unit scaled to the
// magnitude.
func FormatDuration(ns uint64) string {
	switch {
	case ns < 1_000:
		return fmt.Sprintf("%dns", ns)
	case ns < 1_000_000:
		return fmt.Sprintf("%.2fµs", float64(ns)/1_000)
	case ns < 1_000_000_000:
		return fmt.Sprintf("%.2fms", float64(ns)/1_000_000)
	default:
		return fmt.Sprintf("%.3fs", float64(ns)/1_000_000_000)
	}
}

func shortPath(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			return path[i+1:]
		}
	}
	return path
}

var pageTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>callprofiler: {{.Name}}</title>
<style>
* { margin: 0; padding: 0; box-sizing: border-box; }
body { font-family: 'Segoe UI', -apple-system, BlinkMacSystemFont, sans-serif; margin: 24px; background: #f8f9fa; color: #212529; }
h1 { font-size: 1.5rem; color: #1a1a2e; margin-bottom: 16px; padding-bottom: 10px; border-bottom: 3px solid #4361ee; }
.summary { background: #e9ecef; padding: 14px 20px; border-radius: 8px; margin-bottom: 20px; display: flex; gap: 32px; flex-wrap: wrap; font-size: 0.9rem; }
.summary .item { display: flex; align-items: center; gap: 6px; }
.summary .label { font-weight: 600; color: #495057; }
.summary .value { color: #212529; }
.summary .slowest-name { color: #e63946; font-weight: 700; }
.tree { font-size: 0.88rem; }
.tree ul { list-style: none; padding-left: 28px; border-left: 2px solid #dee2e6; margin: 0; }
.tree > ul { border-left: none; padding-left: 0; }
.tree li { position: relative; padding: 3px 0; }
.node { display: inline-flex; align-items: center; gap: 8px; padding: 5px 12px; border-radius: 6px; border: 1px solid #dee2e6; background: #fff; cursor: default; transition: all 0.15s; flex-wrap: wrap; }
.node:hover { box-shadow: 0 2px 8px rgba(0,0,0,0.08); }
.node.external { background: #f1f3f5; border-color: #ced4da; }
.node.external .func-name { color: #868e96; font-style: italic; }
.node.slowest { background: #e63946; border-color: #c1121f; }
.node.slowest .func-name { color: #fff; }
.node.slowest .location,
.node.slowest .duration,
.node.slowest .times { color: rgba(255,255,255,0.85); }
.func-name { font-weight: 600; color: #1a1a2e; font-family: 'SF Mono', 'Fira Code', 'Cascadia Code', monospace; }
.location { font-size: 0.82em; color: #6c757d; font-family: 'SF Mono', 'Fira Code', monospace; }
.duration { font-size: 0.82em; color: #4361ee; font-weight: 600; }
.times { font-size: 0.78em; color: #adb5bd; }
.lib-badge { font-size: 0.72em; background: #dee2e6; color: #495057; padding: 1px 8px; border-radius: 10px; font-weight: 500; }
.node.slowest .lib-badge { background: rgba(255,255,255,0.25); color: #fff; }
.toggle { display: inline-block; width: 18px; font-size: 0.75em; text-align: center; cursor: pointer; user-select: none; color: #868e96; font-weight: bold; flex-shrink: 0; }
.toggle:hover { color: #4361ee; }
.hidden { display: none; }
</style>
</head>
<body>
<h1>Call Profile: {{.Name}}</h1>
<div class="summary">
<div class="item"><span class="label">Total Duration:</span><span class="value">{{.TotalDuration}}</span></div>
{{if .Slowest}}<div class="item"><span class="label">Slowest Function:</span><span class="slowest-name">{{.Slowest}}</span></div>{{end}}
<div class="item"><span class="label">Functions:</span><span class="value">{{.FunctionCount}}</span></div>
{{if .WarningCount}}<div class="item"><span class="label">Warnings:</span><span class="value">{{.WarningCount}}</span></div>{{end}}
</div>
<div class="tree"><ul>
{{range .Roots}}{{template "node" .}}{{end}}
</ul></div>
<script>
function toggle(el) {
    var li = el.closest('li');
    var ul = li.querySelector(':scope > ul');
    if (!ul) return;
    if (ul.classList.contains('hidden')) {
        ul.classList.remove('hidden');
        el.textContent = '▼';
    } else {
        ul.classList.add('hidden');
        el.textContent = '▶';
    }
}
</script>
</body>
</html>
{{define "node"}}<li><div class="node{{if .External}} external{{end}}{{if .Slowest}} slowest{{end}}">{{if .Children}}<span class="toggle" onclick="toggle(this)">&#x25BC;</span>{{end}}<span class="func-name">{{.Name}}</span>{{if .Location}}<span class="location">{{.Location}}</span>{{end}}<span class="duration">{{.Duration}}</span><span class="times">{{.Times}}</span>{{if .Library}}<span class="lib-badge">{{.Library}}</span>{{end}}</div>{{if .Children}}<ul>{{range .Children}}{{template "node" .}}{{end}}</ul>{{end}}</li>
{{end}}`))
