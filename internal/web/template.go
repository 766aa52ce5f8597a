package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/castle/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"orUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>Castle</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.red { color: red; font-weight: bold; }
.green { color: green; font-weight: bold; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Castle</h1>

<h2>Door</h2>
<table>
<tr><th>Lock</th><td id="lock-state">{{orUnknown (printf "%s" .Lock)}}</td></tr>
<tr><th>Hinge</th><td id="hinge-state">{{orUnknown (printf "%s" .Hinge)}}</td></tr>
<tr><th>LED</th><td id="led-color" class="{{if .Color}}{{.Color}}{{else}}unknown{{end}}">{{orUnknown (printf "%s" .Color)}}</td></tr>
<tr><th>Ready</th><td>{{if .Observed}}yes{{else}}no{{end}}</td></tr>
<tr><th>Loop errors</th><td>{{.LoopErrors}}{{if .LastError}} ({{.LastError}}){{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<h2>Event Counts</h2>
<table>
<tr><th>LOCKED</th><td>{{.Counts.Locked}}</td></tr>
<tr><th>UNLOCKED</th><td>{{.Counts.Unlocked}}</td></tr>
<tr><th>OPENED</th><td>{{.Counts.Opened}}</td></tr>
<tr><th>CLOSED</th><td>{{.Counts.Closed}}</td></tr>
<tr><th>FORCED</th><td>{{.Counts.Forced}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>Driver</th><td>{{.Config.Driver}}{{if .Config.Device}} ({{.Config.Device}}){{end}}</td></tr>
<tr><th>LEDs</th><td>{{if .Config.LEDsActiveLow}}active-low{{else}}active-high{{end}}</td></tr>
</table>

<p><a href="{{.StatusPath}}">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot, mountPoint string) {
	statusPath := mountPoint + "/status"
	if mountPoint == "/" {
		statusPath = "/status"
	}
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime     time.Duration
		StatusPath string
	}{
		Snapshot:   snap,
		Uptime:     snap.Uptime(),
		StatusPath: statusPath,
	}
	indexTmpl.Execute(w, data)
}
