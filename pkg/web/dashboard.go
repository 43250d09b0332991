package web

import (
	"html"
	"strings"
)

const dashboardTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{TITLE}}</title>
<style>
body { background: #111; color: #ddd; font-family: sans-serif; margin: 0; padding: 1em; }
img { max-width: 100%; border: 1px solid #333; }
pre { background: #1b1b1b; padding: 0.5em; max-height: 40vh; overflow: auto; }
</style>
</head>
<body>
<h2>{{TITLE}}</h2>
<img src="/stream" alt="stream">
<pre id="telemetry">waiting for telemetry...</pre>
<script>
const out = document.getElementById("telemetry");
function connect() {
  const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws/telemetry");
  ws.onmessage = (ev) => { out.textContent = JSON.stringify(JSON.parse(ev.data), null, 2); };
  ws.onclose = () => setTimeout(connect, 1000);
}
connect();
</script>
</body>
</html>
`

func renderDashboard(title string) string {
	return strings.ReplaceAll(dashboardTemplate, "{{TITLE}}", html.EscapeString(title))
}
