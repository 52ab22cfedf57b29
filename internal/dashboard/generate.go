// Package dashboard renders Grafana dashboards over the GreptimeDB tables a
// run writes.
package dashboard

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var templates embed.FS

// Panel is one Grafana panel backed by a SQL query.
type Panel struct {
	Title  string
	Type   string // timeseries, table, stat
	Format string // time_series or table
	SQL    string
}

// Panels are the default views over fanet_run_summary and fanet_queue_length.
var Panels = []Panel{
	{
		Title:  "Packet delivery ratio (%)",
		Type:   "timeseries",
		Format: "time_series",
		SQL:    "SELECT ts AS time, run_id, pdr_percent FROM fanet_run_summary ORDER BY ts",
	},
	{
		Title:  "Average end-to-end delay (ms)",
		Type:   "timeseries",
		Format: "time_series",
		SQL:    "SELECT ts AS time, run_id, avg_e2e_delay_ms FROM fanet_run_summary ORDER BY ts",
	},
	{
		Title:  "Routing load and collisions",
		Type:   "table",
		Format: "table",
		SQL:    "SELECT run_id, routing_load, collisions, control_packets, avg_hop_count FROM fanet_run_summary ORDER BY ts DESC LIMIT 50",
	},
	{
		Title:  "Queue length per node",
		Type:   "timeseries",
		Format: "time_series",
		SQL:    "SELECT ts AS time, node_id, length FROM fanet_queue_length WHERE run_id = '${run_id}' ORDER BY ts",
	},
}

// Render writes every dashboard template to outDir. The datasource uid comes
// from GREPTIMEDB_DATASOURCE_UID.
func Render(outDir string) error {
	uid := os.Getenv("GREPTIMEDB_DATASOURCE_UID")
	if uid == "" {
		return fmt.Errorf("environment variable GREPTIMEDB_DATASOURCE_UID not set")
	}
	funcMap := template.FuncMap{
		"inc": func(i int) int { return i + 1 },
		"col": func(i int) int { return (i % 2) * 12 },
		"row": func(i int) int { return (i / 2) * 8 },
		"json": func(s string) (string, error) {
			b, err := json.Marshal(s)
			return string(b), err
		},
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	names, err := templates.ReadDir("templates")
	if err != nil {
		return err
	}
	data := struct {
		DatasourceUID string
		Panels        []Panel
	}{uid, Panels}

	for _, entry := range names {
		name := entry.Name()
		t, err := template.New(name).Funcs(funcMap).ParseFS(templates, "templates/"+name)
		if err != nil {
			return err
		}
		outPath := filepath.Join(outDir, strings.TrimSuffix(name, ".tmpl"))
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		if err := t.Execute(f, data); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}
