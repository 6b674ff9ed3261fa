package main

import (
	"bytes"
	"html/template"
	"io"
	"sync"

	"github.com/ja7ad/reliability/pkg/recorder"
	"github.com/ja7ad/reliability/pkg/types"
)

// pointLog keeps recorded points in memory for the HTML report.
type pointLog struct {
	mu     sync.Mutex
	points []recorder.Point
}

func (l *pointLog) Record(p recorder.Point) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	p.R = append([]float64(nil), p.R...)
	l.points = append(l.points, p)
	return nil
}

func (l *pointLog) Flush() error { return nil }
func (l *pointLog) Close() error { return nil }

type reportRow struct {
	Sample int64
	Years  float64
	R      []float64
}

func writeHTML(w io.Writer, s summary, points []recorder.Point) error {
	type view struct {
		Summary summary
		Rows    []reportRow
	}

	rows := make([]reportRow, len(points))
	for i, p := range points {
		rows[i] = reportRow{Sample: p.Sample, Years: types.Hours(p.Hours).Years(), R: p.R}
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, view{Summary: s, Rows: rows}); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

var tpl = template.Must(template.New("rep").Parse(`<!doctype html>
<html lang="en"><meta charset="utf-8">
<title>Reliability Report</title>
<style>
body{font-family:system-ui,Segoe UI,Roboto,Helvetica,Arial,sans-serif;margin:20px}
h1,h2{margin:0 0 8px}
table{border-collapse:collapse;width:100%;font-size:14px}
th,td{border:1px solid #ddd;padding:6px 8px;text-align:right}
th:first-child,td:first-child{text-align:left}
ul{margin:6px 0 14px;padding-left:20px}
.small{color:#555}
.badge{display:inline-block;background:#eef;border:1px solid #ccd;padding:2px 6px;border-radius:6px;margin-right:6px;}
</style>

<h1><a href="https://github.com/ja7ad/reliability" target="_blank" rel="noopener noreferrer" style="color:inherit;text-decoration:none;">Reliability Report</a></h1>

<p class="small">
Mechanism: {{.Summary.Mechanism}} &nbsp;|&nbsp;
Samples: {{.Summary.Samples}} &nbsp;|&nbsp;
Simulated: {{printf "%.4f" .Summary.Years}} years
</p>

<h2>Summary</h2>
<ul>
{{if .Summary.Reached}}
<li>R &le; {{.Summary.RLimit}} reached by <span class="badge">{{.Summary.Weakest}}</span> after {{printf "%.4f" .Summary.Years}} years</li>
{{else}}
<li>R limit {{.Summary.RLimit}} not reached</li>
{{end}}
{{range .Summary.Components}}
<li><span class="badge">{{.Name}}</span> R = {{printf "%.6f" .R}}, area = {{printf "%.4f" .AreaYears}} years</li>
{{end}}
</ul>

{{if .Rows}}
<h2>Curve</h2>
<table>
<thead>
<tr>
<th>sample</th><th>years</th>
{{range .Summary.Components}}<th>{{.Name}}</th>{{end}}
</tr>
</thead>
<tbody>
{{range .Rows}}
<tr>
<td style="text-align:left">{{.Sample}}</td>
<td>{{printf "%.4f" .Years}}</td>
{{range .R}}<td>{{printf "%.6f" .}}</td>{{end}}
</tr>
{{end}}
</tbody>
</table>
{{end}}
</html>`))
