// Package validation guards all filesystem access behind a containment
// check on the served root, and validates URLs and origins used by the
// server. Containment is computed on symlink-resolved paths; a plain
// prefix comparison is not enough because a symlink inside the root can
// point outside it.
package validation

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	goerrors "errors"

	"github.com/conneroisu/markd/internal/errors"
)

// Validate resolves requested against root and returns the canonical
// absolute path. It fails with a security error when the resolved path
// lies outside root, even for targets that do not exist, and with a
// not-found error when the path is inside root but missing. Safe for
// concurrent use; no side effects.
func Validate(requested, root string) (string, error) {
	if strings.ContainsRune(requested, 0) {
		return "", errors.NewSecurityError(errors.ErrCodeInvalidPath, "path contains a null byte")
	}

	canonicalRoot, err := canonicalizeRoot(root)
	if err != nil {
		return "", err
	}

	target := requested
	if !filepath.IsAbs(target) {
		target = filepath.Join(canonicalRoot, target)
	}
	target = filepath.Clean(target)

	resolved, err := resolveSymlinks(target)
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeInvalidPath, "cannot resolve path", err).
			WithContext("requested", requested)
	}

	if !contains(canonicalRoot, resolved) {
		return "", errors.ErrPathTraversal(requested)
	}

	if _, err := os.Stat(resolved); err != nil {
		if goerrors.Is(err, fs.ErrNotExist) {
			return "", errors.ErrPathNotFound(requested)
		}
		return "", errors.NewIOError(errors.ErrCodeInvalidPath, "cannot stat path", err).
			WithContext("requested", requested)
	}

	return resolved, nil
}

// ValidateTarget is Validate without the existence requirement. Export
// uses it to check not-yet-written output paths for containment.
func ValidateTarget(requested, root string) (string, error) {
	if strings.ContainsRune(requested, 0) {
		return "", errors.NewSecurityError(errors.ErrCodeInvalidPath, "path contains a null byte")
	}

	canonicalRoot, err := canonicalizeRoot(root)
	if err != nil {
		return "", err
	}

	target := requested
	if !filepath.IsAbs(target) {
		target = filepath.Join(canonicalRoot, target)
	}
	target = filepath.Clean(target)

	resolved, err := resolveSymlinks(target)
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeInvalidPath, "cannot resolve path", err).
			WithContext("requested", requested)
	}

	if !contains(canonicalRoot, resolved) {
		return "", errors.ErrPathTraversal(requested)
	}

	return resolved, nil
}

// IsSafePath is the predicate form of Validate for call sites that want
// a boolean instead of control flow.
func IsSafePath(requested, root string) bool {
	_, err := Validate(requested, root)
	return err == nil
}

// canonicalizeRoot resolves the serve root itself. The root must exist.
func canonicalizeRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", errors.NewConfigError(errors.ErrCodeConfigInvalid, "invalid root path: "+root)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", errors.NewConfigError(errors.ErrCodeConfigInvalid, "root path does not exist: "+root)
	}

	return resolved, nil
}

// resolveSymlinks is EvalSymlinks extended to paths that do not exist
// yet: the deepest existing ancestor is resolved and the missing suffix
// is reattached. Traversal through a symlinked ancestor is therefore
// still detected for nonexistent targets.
func resolveSymlinks(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}
	if !goerrors.Is(err, fs.ErrNotExist) {
		return "", err
	}

	parent := filepath.Dir(path)
	if parent == path {
		return path, nil
	}

	resolvedParent, err := resolveSymlinks(parent)
	if err != nil {
		return "", err
	}

	return filepath.Join(resolvedParent, filepath.Base(path)), nil
}

// contains reports whether target sits at or below root. Both arguments
// must already be absolute and symlink-resolved.
func contains(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
