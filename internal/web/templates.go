package web

import (
	"html/template"
	"net/http"

	"github.com/ikramov/sitebot/internal/notifier"
)

type homeData struct {
	Title     string
	Flash     string
	FlashKind string
}

type webhookData struct {
	Title string
	Info  *notifier.WebhookInfo
}

var homeTemplate = template.Must(template.New("home").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}} - ikramov.uz</title>
<style>
body { font-family: sans-serif; max-width: 640px; margin: 2rem auto; padding: 0 1rem; }
label { display: block; margin-top: 1rem; }
input, textarea { width: 100%; padding: .5rem; box-sizing: border-box; }
button { margin-top: 1rem; padding: .5rem 1.5rem; }
.flash { padding: .75rem; margin-top: 1rem; border-radius: 4px; }
.flash.success { background: #d4edda; }
.flash.warning { background: #fff3cd; }
.flash.error { background: #f8d7da; }
</style>
</head>
<body>
<h1>Contact</h1>
{{if .Flash}}<div class="flash {{.FlashKind}}">{{.Flash}}</div>{{end}}
<form method="post" action="/">
<label>Name<input type="text" name="name" required></label>
<label>Email<input type="email" name="email" required></label>
<label>Subject<input type="text" name="subject" required></label>
<label>Message<textarea name="message" rows="6" required></textarea></label>
<button type="submit">Send</button>
</form>
</body>
</html>
`))

var webhookTemplate = template.Must(template.New("webhook").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; max-width: 640px; margin: 2rem auto; padding: 0 1rem; }
dt { font-weight: bold; margin-top: .75rem; }
</style>
</head>
<body>
<h1>Webhook status</h1>
{{if .Info}}
<dl>
<dt>URL</dt><dd>{{if .Info.URL}}{{.Info.URL}}{{else}}not set{{end}}</dd>
<dt>Pending updates</dt><dd>{{.Info.PendingUpdateCount}}</dd>
<dt>Last error</dt><dd>{{if .Info.LastErrorMessage}}{{.Info.LastErrorMessage}}{{else}}none{{end}}</dd>
</dl>
{{else}}
<p>Webhook info unavailable. Check the bot token.</p>
{{end}}
<form method="post" action="/bot/webhook/">
<button type="submit">Register webhook</button>
</form>
</body>
</html>
`))

func renderHTML(w http.ResponseWriter, tpl *template.Template, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = tpl.Execute(w, data)
}
