package server

import "net/http"

// routes builds the route table. Trailing-slash patterns own everything
// under their prefix; those handlers strip the prefix themselves.
func (s *PreviewServer) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/view/", s.handleView)
	mux.HandleFunc("/static/app.css", s.handleAppCSS)
	mux.HandleFunc("/static/highlight.css", s.handleHighlightCSS)
	mux.HandleFunc("/api/files", s.handleAPIFiles)
	mux.HandleFunc("/api/file/", s.handleAPIFile)
	mux.HandleFunc("/api/raw", s.handleAPIRaw)
	mux.HandleFunc("/api/raw/", s.handleAPIRaw)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	return mux
}

// requireMethod rejects requests with the wrong verb. Preflight OPTIONS
// requests never reach here; the CORS middleware answers them.
func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}
