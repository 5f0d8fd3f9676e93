package renderer

// AppCSS is the base stylesheet for preview pages. The server exposes it
// at /static/app.css and the exporter inlines it into standalone pages.
// Themes swap the palette through the data-theme attribute on <html>.
const AppCSS = `:root,
[data-theme="light"] {
    --bg: #ffffff;
    --fg: #1f2328;
    --muted: #59636e;
    --link: #0969da;
    --border: #d1d9e0;
    --surface: #f6f8fa;
    --accent: #0969da;
}

[data-theme="dark"] {
    --bg: #0d1117;
    --fg: #e6edf3;
    --muted: #8d96a0;
    --link: #58a6ff;
    --border: #30363d;
    --surface: #161b22;
    --accent: #58a6ff;
}

[data-theme="catppuccin-mocha"] {
    --bg: #1e1e2e;
    --fg: #cdd6f4;
    --muted: #a6adc8;
    --link: #89b4fa;
    --border: #45475a;
    --surface: #313244;
    --accent: #cba6f7;
}

[data-theme="catppuccin-latte"] {
    --bg: #eff1f5;
    --fg: #4c4f69;
    --muted: #6c6f85;
    --link: #1e66f5;
    --border: #bcc0cc;
    --surface: #ccd0da;
    --accent: #8839ef;
}

* {
    box-sizing: border-box;
}

body {
    margin: 0;
    background: var(--bg);
    color: var(--fg);
    font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Helvetica, Arial, sans-serif;
    font-size: 16px;
    line-height: 1.6;
}

.layout {
    display: flex;
    max-width: 1200px;
    margin: 0 auto;
    padding: 0 24px;
}

.sidebar {
    flex: 0 0 240px;
    position: sticky;
    top: 0;
    align-self: flex-start;
    max-height: 100vh;
    overflow-y: auto;
    padding: 32px 24px 32px 0;
    font-size: 14px;
}

.sidebar .toc ul {
    list-style: none;
    margin: 0;
    padding-left: 14px;
}

.sidebar .toc > ul {
    padding-left: 0;
    border-left: 2px solid var(--border);
}

.sidebar .toc a {
    display: block;
    padding: 3px 8px;
    color: var(--muted);
    text-decoration: none;
}

.sidebar .toc a:hover {
    color: var(--accent);
}

.content {
    flex: 1;
    min-width: 0;
    padding: 32px 0;
}

.page-header {
    margin-bottom: 16px;
    font-size: 13px;
    color: var(--muted);
}

.page-path {
    font-family: ui-monospace, SFMono-Regular, Menlo, Consolas, monospace;
}

.markdown-body h1,
.markdown-body h2 {
    padding-bottom: 0.3em;
    border-bottom: 1px solid var(--border);
}

.markdown-body h1,
.markdown-body h2,
.markdown-body h3,
.markdown-body h4,
.markdown-body h5,
.markdown-body h6 {
    margin-top: 1.5em;
    margin-bottom: 0.5em;
    line-height: 1.25;
}

.markdown-body .headerlink {
    margin-left: 0.35em;
    color: var(--muted);
    opacity: 0;
    transition: opacity 0.15s ease-in-out;
}

.markdown-body h1:hover .headerlink,
.markdown-body h2:hover .headerlink,
.markdown-body h3:hover .headerlink,
.markdown-body h4:hover .headerlink,
.markdown-body h5:hover .headerlink,
.markdown-body h6:hover .headerlink {
    opacity: 1;
}

.markdown-body a {
    color: var(--link);
    text-decoration: none;
}

.markdown-body a:hover {
    text-decoration: underline;
}

.markdown-body img {
    max-width: 100%;
}

.markdown-body code {
    padding: 0.2em 0.4em;
    border-radius: 6px;
    background: var(--surface);
    font-family: ui-monospace, SFMono-Regular, Menlo, Consolas, monospace;
    font-size: 85%;
}

.markdown-body pre {
    padding: 16px;
    border-radius: 6px;
    background: var(--surface);
    overflow-x: auto;
    line-height: 1.45;
}

.markdown-body pre code {
    padding: 0;
    background: transparent;
    font-size: 100%;
}

.markdown-body .highlight pre {
    background: var(--surface);
}

.markdown-body blockquote {
    margin: 0;
    padding: 0 1em;
    border-left: 0.25em solid var(--border);
    color: var(--muted);
}

.markdown-body table {
    border-collapse: collapse;
    display: block;
    overflow-x: auto;
}

.markdown-body table th,
.markdown-body table td {
    padding: 6px 13px;
    border: 1px solid var(--border);
}

.markdown-body table tr:nth-child(2n) {
    background: var(--surface);
}

.markdown-body hr {
    height: 2px;
    margin: 24px 0;
    border: 0;
    background: var(--border);
}

.markdown-body ul.contains-task-list {
    list-style: none;
    padding-left: 1em;
}

.markdown-body .mermaid {
    text-align: center;
    background: transparent;
}

.status {
    position: fixed;
    top: 16px;
    right: 16px;
    padding: 6px 14px;
    border-radius: 4px;
    color: white;
    font-size: 13px;
    font-weight: 600;
    z-index: 1000;
    opacity: 0.9;
}

.status.connected { background: #28a745; }
.status.disconnected { background: #dc3545; }
.status.error { background: #ffc107; color: #333; }

@media (max-width: 900px) {
    .sidebar { display: none; }
}
`
