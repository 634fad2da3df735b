package monitor

import (
	"os"

	"admissions-platform-api/config"

	"github.com/gin-gonic/gin"
)

func logsToken() string {
	if t := os.Getenv("MONITOR_TOKEN"); t != "" {
		return t
	}
	return "secret-token"
}

// RegisterMonitorPage mounts a small self-contained status page with live
// log tailing, for operators without dashboard access.
func RegisterMonitorPage(router *gin.Engine) {
	router.GET("/monitor", func(c *gin.Context) {
		c.Data(200, "text/html; charset=utf-8", []byte(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1.0" />
  <title>Admissions API Monitor</title>
  <style>
    * { margin: 0; padding: 0; box-sizing: border-box; }
    body {
      background: #0f172a;
      color: #e2e8f0;
      font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
      min-height: 100vh;
      padding: 20px;
    }
    .container { max-width: 1000px; margin: 0 auto; }
    h1 { font-size: 1.8rem; margin-bottom: 1.5rem; color: #a5b4fc; }
    .card {
      background: #1e293b;
      border: 1px solid #334155;
      border-radius: 12px;
      padding: 1.25rem;
      margin-bottom: 1.5rem;
    }
    #status { font-size: 1.1rem; font-weight: 600; }
    #logs {
      background: #020617;
      padding: 1rem;
      border-radius: 8px;
      max-height: 500px;
      overflow-y: auto;
      white-space: pre-wrap;
      font-family: 'Monaco', 'Consolas', monospace;
      font-size: 0.85rem;
      line-height: 1.5;
      color: #94a3b8;
    }
    button {
      padding: 0.5rem 1rem;
      background: #4f46e5;
      color: #fff;
      border: none;
      border-radius: 8px;
      cursor: pointer;
      font-weight: 600;
      margin-bottom: 0.75rem;
    }
    button.paused { background: #be123c; }
  </style>
</head>
<body>
  <div class="container">
    <h1>Admissions API Monitor</h1>
    <div class="card"><div id="status">Status: checking...</div></div>
    <div class="card">
      <button onclick="toggleLive()" id="toggleBtn">Pause Live Logs</button>
      <pre id="logs">Loading logs...</pre>
    </div>
  </div>

  <script>
    let liveLogs = true;
    const token = new URLSearchParams(location.search).get('token') || '';

    function fetchStatus() {
      fetch('/api/v1/health')
        .then(res => res.json())
        .then(data => {
          document.getElementById('status').textContent = 'Status: ' + (data.status === 'ok' ? 'online' : 'degraded');
        })
        .catch(() => {
          document.getElementById('status').textContent = 'Status: offline';
        });
    }

    function fetchLogs() {
      if (!liveLogs) return;
      fetch('/logs?token=' + token)
        .then(res => res.text())
        .then(data => {
          const el = document.getElementById('logs');
          el.textContent = data;
          el.scrollTop = el.scrollHeight;
        });
    }

    function toggleLive() {
      liveLogs = !liveLogs;
      const btn = document.getElementById('toggleBtn');
      btn.textContent = liveLogs ? 'Pause Live Logs' : 'Resume Live Logs';
      btn.classList.toggle('paused', !liveLogs);
    }

    fetchStatus();
    fetchLogs();
    setInterval(fetchStatus, 5000);
    setInterval(fetchLogs, 5000);
  </script>
</body>
</html>`))
	})
}

// RegisterLogsRoute exposes the backend log file behind a token check.
func RegisterLogsRoute(router *gin.Engine) {
	router.GET("/logs", func(c *gin.Context) {
		if c.Query("token") != logsToken() {
			c.JSON(401, gin.H{"error": "Unauthorized"})
			return
		}
		logData, err := os.ReadFile(config.LogFilePath())
		if err != nil {
			c.JSON(500, gin.H{"error": "Unable to read log"})
			return
		}
		c.Data(200, "text/plain; charset=utf-8", logData)
	})
}
