package renderer

import (
	"html/template"
	"strings"

	"github.com/conneroisu/markd/internal/errors"
)

// PageOptions control how a rendered document is wrapped into a full
// HTML page.
type PageOptions struct {
	// Theme selects the UI palette via the data-theme attribute.
	Theme string
	// LiveReload embeds the websocket reload client.
	LiveReload bool
	// InlineCSS, when set, is emitted in a style tag instead of the
	// /static stylesheet links. Exported pages use this so the output
	// is a standalone file.
	InlineCSS string
	// Path is the served file path shown in the page header.
	Path string
}

type pageData struct {
	Title      string
	Path       string
	Theme      string
	Content    template.HTML
	TOC        template.HTML
	LiveReload bool
	InlineCSS  template.CSS
}

// RenderPage wraps a rendered document into the preview page.
func (e *Engine) RenderPage(doc *Document, opts PageOptions) (string, error) {
	if opts.Theme == "" {
		opts.Theme = "light"
	}
	data := pageData{
		Title:      doc.Title,
		Path:       opts.Path,
		Theme:      opts.Theme,
		Content:    template.HTML(doc.HTML),
		TOC:        template.HTML(doc.TOC),
		LiveReload: opts.LiveReload,
		InlineCSS:  template.CSS(opts.InlineCSS),
	}
	if data.Title == "" {
		data.Title = "Markdown Preview"
	}

	var buf strings.Builder
	if err := e.page.Execute(&buf, data); err != nil {
		return "", errors.NewRenderError(errors.ErrCodeRenderFailed, "cannot execute page template", err)
	}
	return buf.String(), nil
}

const pageTemplate = `<!DOCTYPE html>
<html lang="en" data-theme="{{.Theme}}">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{.Title}}</title>
{{- if .InlineCSS}}
    <style>{{.InlineCSS}}</style>
{{- else}}
    <link rel="stylesheet" href="/static/app.css">
    <link rel="stylesheet" href="/static/highlight.css">
{{- end}}
</head>
<body>
    <div class="layout">
{{- if .TOC}}
        <nav class="sidebar">{{.TOC}}</nav>
{{- end}}
        <main class="content">
{{- if .Path}}
            <header class="page-header"><span class="page-path">{{.Path}}</span></header>
{{- end}}
            <article class="markdown-body">
{{.Content}}
            </article>
        </main>
    </div>
{{- if .LiveReload}}
    <div id="status" class="status disconnected">Disconnected</div>
    <script>
        let ws;
        let retryDelay = 1000;

        function connect() {
            const protocol = window.location.protocol === 'https:' ? 'wss:' : 'ws:';
            ws = new WebSocket(protocol + '//' + window.location.host + '/ws');

            ws.onopen = function() {
                retryDelay = 1000;
                setStatus('connected', 'Live');
            };

            ws.onmessage = function(event) {
                const message = JSON.parse(event.data);
                if (message.type === 'reload') {
                    window.location.reload();
                } else if (message.type === 'error') {
                    console.error('preview server:', message.message);
                }
            };

            ws.onclose = function() {
                setStatus('disconnected', 'Disconnected');
                setTimeout(connect, retryDelay);
                retryDelay = Math.min(retryDelay * 2, 15000);
            };

            ws.onerror = function() {
                setStatus('error', 'Error');
                ws.close();
            };
        }

        function setStatus(state, text) {
            const el = document.getElementById('status');
            if (el) {
                el.className = 'status ' + state;
                el.textContent = text;
            }
        }

        connect();
    </script>
{{- end}}
    <script src="https://cdn.jsdelivr.net/npm/mermaid@10/dist/mermaid.min.js"></script>
    <script>
        if (window.mermaid) {
            const dark = document.documentElement.dataset.theme === 'dark' ||
                document.documentElement.dataset.theme === 'catppuccin-mocha';
            mermaid.initialize({ startOnLoad: true, theme: dark ? 'dark' : 'default' });
        }
    </script>
    <script>
        window.MathJax = {
            tex: {
                inlineMath: [['$', '$'], ['\\(', '\\)']],
                displayMath: [['$$', '$$'], ['\\[', '\\]']]
            }
        };
    </script>
    <script src="https://cdn.jsdelivr.net/npm/mathjax@3/es5/tex-mml-chtml.js" async></script>
</body>
</html>
`
