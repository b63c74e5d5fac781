package status

import (
	"fmt"
	htmltemplate "html/template"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/wojas/go-healthz"

	"github.com/openproteomics/pepdb/config"
	"github.com/openproteomics/pepdb/ingest"
	"github.com/openproteomics/pepdb/partition"
)

func StartHTTPServer(c config.Config) {
	if c.HTTP.Address == "" {
		logrus.Info("HTTP stats server disabled")
		return
	}
	logrus.WithField("address", c.HTTP.Address).Info("HTTP stats server enabled")
	http.Handle("/metrics", promhttp.Handler())
	http.Handle("/healthz", healthz.Handler())
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
	<title>PepDB Status</title>
	<style>
		body          { font-family: sans-serif; }
		table, td, th { border: 1px solid #ccc; border-collapse: collapse; }
		td, th        { padding: 5px; text-align: left; }
		td.num        { text-align: right; }
		a             { text-decoration: none; color: #3c6ac5; }
	</style>
</head>
<body>
	<h1>PepDB Status</h1>
	<p>
		<a href="/metrics">Prometheus metrics</a> |
		<a href="/healthz">Health</a>
	</p>

	{{ if .HasStats }}
	<h2>Ingestion progress</h2>
	<table>
		<tr><th>Proteins read</th><td class="num">{{ .Stats.ProteinsRead }}</td></tr>
		<tr><th>New</th><td class="num">{{ .Stats.New }}</td></tr>
		<tr><th>Updated</th><td class="num">{{ .Stats.Updated }}</td></tr>
		<tr><th>Skipped</th><td class="num">{{ .Stats.Skipped }}</td></tr>
		<tr><th>Metadata only</th><td class="num">{{ .Stats.Metadata }}</td></tr>
		<tr><th>Merged</th><td class="num">{{ .Stats.Merged }}</td></tr>
		<tr><th>Unprocessable</th><td class="num">{{ .Stats.Unprocessable }}</td></tr>
		<tr><th>Failed</th><td class="num">{{ .Stats.Failed }}</td></tr>
		<tr><th>Peptides buffered</th><td class="num">{{ .Stats.PeptidesBuffered }}</td></tr>
		<tr><th>Batches written</th><td class="num">{{ .Stats.BatchesWritten }}</td></tr>
		<tr><th>Batch retries</th><td class="num">{{ .Stats.BatchRetries }}</td></tr>
	</table>
	{{ end }}

	{{ if .Partitions }}
	<h2>Partitions</h2>
	<p>
		Store type <b>{{ .StoreType }}</b> with <b>{{ len .Partitions }}</b> mass partitions,
		covering {{ .RangeLow }} to {{ .RangeHigh }}.
	</p>
	{{ end }}

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

	table, storeType := gi.partitions()
	data := struct {
		Config     config.Config
		Stats      ingest.Snapshot
		HasStats   bool
		Partitions partition.Table
		StoreType  string
		RangeLow   string
		RangeHigh  string
	}{
		Config:     p.c,
		Partitions: table,
		StoreType:  storeType,
	}
	data.Stats, data.HasStats = gi.snapshot()
	if len(table) > 0 {
		data.RangeLow = table[0].Lower.String()
		data.RangeHigh = table[len(table)-1].Upper.String()
	}

	err := statusTemplate.Execute(w, data)
	if err != nil {
		w.WriteHeader(500)
		_, _ = w.Write([]byte(fmt.Sprintf("Template execution error: %v", err)))
	}
}
