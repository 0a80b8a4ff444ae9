package status

import (
	"fmt"
	htmltemplate "html/template"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/sagestream/sagestream/config"
)

// StartHTTPServer serves the status page and /metrics on the default mux.
// The healthz handler registers itself on the same mux.
func StartHTTPServer(c config.Config) {
	if c.HTTP.Address == "" {
		logrus.Info("HTTP stats server disabled")
		return
	}
	logrus.WithField("address", c.HTTP.Address).Info("HTTP stats server enabled")
	http.Handle("/metrics", promhttp.Handler())
	http.Handle("/", &Page{
		c: c,
	})
	go func() {
		err := http.ListenAndServe(c.HTTP.Address, nil)
		logrus.Fatalf("HTTP server error: %v", err)
	}()
}

type Page struct {
	c config.Config
}

const statusTemplateString = `<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<title>sagestream status</title>
	<style>
		body          { font-family: sans-serif; }
		table, td, th { border: 1px solid #ccc; border-collapse: collapse; }
		td, th        { padding: 5px; text-align: left; }
		td.num        { text-align: right; }
		td.error      { background-color: #ffb8b8; }
		td.no-error   { background-color: #a6f3a6; }
		a             { text-decoration: none; color: #3c6ac5; }
	</style>
</head>
<body>
	<h1>sagestream status</h1>
	<p>
		<a href="/metrics">Prometheus metrics</a>
		| <a href="/healthz">Health</a>
	</p>

	<h2>Subscriptions</h2>
	<table>
		<tr><th>Program</th><th>Status</th><th>Highest slot</th></tr>
		{{- range .Loops }}
		<tr>
			<td>{{ .Name }}</td>
			{{- if or (eq .Status "failed") (eq .Status "stream_ended") }}
			<td class="error">{{ .Status }}</td>
			{{- else }}
			<td class="no-error">{{ .Status }}</td>
			{{- end }}
			<td class="num">{{ .HighestSlot }}</td>
		</tr>
		{{- end }}
	</table>

	<h2>Projection</h2>
	<table>
		<tr><th>Relation</th><th>Rows</th></tr>
		{{- range .Relations }}
		<tr>
			<td>{{ .Name }}</td>
			{{- if .Err }}
			<td class="error">{{ .Err }}</td>
			{{- else }}
			<td class="num">{{ .Rows }}</td>
			{{- end }}
		</tr>
		{{- end }}
	</table>

	<h2>Snapshot archives</h2>
	{{- if .BlobsErr }}
	<p>Error: {{ .BlobsErr }}</p>
	{{- else }}
	<table>
		<tr><th>Name</th><th>Size</th></tr>
		{{- range .Blobs }}
		<tr><td>{{ .Name }}</td><td class="num">{{ .Size.HR }}</td></tr>
		{{- end }}
	</table>
	{{- end }}

	<h2>Config</h2>
	<pre>{{ .Config.String }}</pre>

</body>
</html>`

var statusTemplate *htmltemplate.Template

func init() {
	var err error
	statusTemplate, err = htmltemplate.New("status").Parse(statusTemplateString)
	if err != nil {
		log.Fatalf("BUG: Error in status HTML template: %v", err)
	}
}

func (p *Page) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	ctx := r.Context()
	blobs, blobsErr := gi.ListBlobs(ctx)
	data := struct {
		Config    config.Config
		Loops     []LoopInfo
		Relations []RelationInfo
		Blobs     []BlobInfo
		BlobsErr  error
	}{
		Config:    p.c,
		Loops:     gi.Loops(),
		Relations: gi.Relations(ctx),
		Blobs:     blobs,
		BlobsErr:  blobsErr,
	}

	err := statusTemplate.Execute(w, data)
	if err != nil {
		w.WriteHeader(500)
		_, _ = w.Write([]byte(fmt.Sprintf("Template execution error: %v", err)))
	}
}
