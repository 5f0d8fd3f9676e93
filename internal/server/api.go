package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/conneroisu/markd/internal/errors"
	"github.com/conneroisu/markd/internal/renderer"
	"github.com/conneroisu/markd/internal/validation"
	"github.com/conneroisu/markd/internal/watcher"
)

// fileInfo is one markdown file in a tree listing. Path is relative to
// the served root, slash-separated.
type fileInfo struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Modified int64  `json:"modified"`
}

// treeNode is one directory in a tree listing. Files holds only
// markdown files; Subdirs holds every non-hidden directory, markdown
// inside or not.
type treeNode struct {
	Name    string      `json:"name"`
	Path    string      `json:"path"`
	Files   []fileInfo  `json:"files"`
	Subdirs []*treeNode `json:"subdirs"`
}

// buildTree scans dir recursively. rel is the node's path relative to
// the served root, "." for the root itself. Dot-directories are
// skipped and symlinked directories are not followed, matching the
// watcher's view of the tree.
func buildTree(dir, rel string) (*treeNode, error) {
	node := &treeNode{
		Name:    filepath.Base(dir),
		Path:    rel,
		Files:   []fileInfo{},
		Subdirs: []*treeNode{},
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeReadFailed, "cannot list directory", err).
			WithPath(dir)
	}

	for _, entry := range entries {
		name := entry.Name()
		childRel := name
		if rel != "." {
			childRel = rel + "/" + name
		}

		switch {
		case entry.IsDir():
			if strings.HasPrefix(name, ".") {
				continue
			}
			child, err := buildTree(filepath.Join(dir, name), childRel)
			if err != nil {
				return nil, err
			}
			node.Subdirs = append(node.Subdirs, child)
		case watcher.IsMarkdownFile(name):
			info, err := entry.Info()
			if err != nil {
				continue
			}
			node.Files = append(node.Files, fileInfo{
				Name:     name,
				Path:     childRel,
				Size:     info.Size(),
				Modified: info.ModTime().Unix(),
			})
		}
	}
	return node, nil
}

// handleAPIFiles returns the markdown tree as JSON. Directory mode
// only.
func (s *PreviewServer) handleAPIFiles(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	if s.singleFile != "" {
		writeJSON(w, http.StatusNotFound,
			map[string]string{"error": "Not available in single file mode"})
		return
	}

	tree, err := buildTree(s.root, ".")
	if err != nil {
		s.writeAPIError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"root":  s.root,
		"files": tree.Files,
		"tree":  tree,
	})
}

// handleAPIFile returns metadata for one file under the root,
// including a hash of its current content.
func (s *PreviewServer) handleAPIFile(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	rel := strings.TrimPrefix(r.URL.Path, "/api/file/")
	resolved, err := validation.Validate(rel, s.root)
	if err != nil {
		s.writeAPIError(w, r, err)
		return
	}

	info, err := os.Stat(resolved)
	if err != nil || !info.Mode().IsRegular() {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "File not found"})
		return
	}

	content, err := os.ReadFile(resolved)
	if err != nil {
		s.writeAPIError(w, r,
			errors.NewIOError(errors.ErrCodeReadFailed, "cannot read file", err))
		return
	}

	relOut, err := filepath.Rel(s.root, resolved)
	if err != nil {
		relOut = rel
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"path":         filepath.ToSlash(relOut),
		"name":         filepath.Base(resolved),
		"size":         info.Size(),
		"modified":     info.ModTime().Unix(),
		"content_hash": renderer.ContentHash(content),
		"is_markdown":  watcher.IsMarkdownFile(resolved),
	})
}

// handleAPIRaw serves unrendered markdown bytes. The endpoint exists
// only in single-file mode: /api/raw returns the served file itself,
// /api/raw/{path} any markdown sibling under the validation root.
func (s *PreviewServer) handleAPIRaw(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	if s.singleFile == "" {
		writeJSON(w, http.StatusForbidden,
			map[string]string{"error": "Raw content is only available when serving a single file"})
		return
	}

	rel := strings.TrimPrefix(r.URL.Path, "/api/raw")
	rel = strings.TrimPrefix(rel, "/")

	target := filepath.Join(s.root, s.singleFile)
	if rel != "" {
		resolved, err := validation.Validate(rel, s.root)
		if err != nil {
			s.writeAPIError(w, r, err)
			return
		}
		target = resolved
	}

	info, err := os.Stat(target)
	if err != nil || !info.Mode().IsRegular() {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "File not found"})
		return
	}
	if !watcher.IsMarkdownFile(target) {
		writeJSON(w, http.StatusBadRequest,
			map[string]string{"error": "Only markdown files are supported by the raw endpoint"})
		return
	}

	content, err := os.ReadFile(target)
	if err != nil {
		s.writeAPIError(w, r,
			errors.NewIOError(errors.ErrCodeReadFailed, "cannot read file", err))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="`+filepath.Base(target)+`"`)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	_, _ = w.Write(content)
}

// writeJSON writes payload with status. Encoding failures after the
// header is out can only be logged by the caller.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeAPIError maps pipeline errors onto JSON responses with the same
// status and body policy as the page handlers.
func (s *PreviewServer) writeAPIError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.IsSecurityError(err):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "Access forbidden"})
	case errors.IsNotFoundError(err):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "File not found"})
	case errors.HasCode(err, errors.ErrCodeFileTooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge,
			map[string]string{"error": "File too large"})
	default:
		s.log.Error(r.Context(), err, "api request failed", "path", r.URL.Path)
		writeJSON(w, http.StatusInternalServerError,
			map[string]string{"error": "Internal server error"})
	}
}
