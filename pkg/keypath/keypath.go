package keypath

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// SafeJoin joins one or more segments onto base and returns a normalized
// storage key. The joined result must stay inside base; a segment that
// resolves outside it (via "..", absolute paths or similar) fails with
// ErrPathEscape.
//
// The check is done purely on strings so it behaves identically whether the
// key addresses a local directory tree or an object-store namespace. A
// trailing separator on the last segment is preserved, and the leading
// separator is stripped so the result is directly usable as an object key.
func SafeJoin(base string, segments ...string) (string, error) {
	basePath := strings.TrimRight(base, "/")

	final := basePath + "/"
	for _, segment := range segments {
		var normalized string
		if path.IsAbs(segment) {
			// Mirrors POSIX join: an absolute segment discards what came
			// before it, and then has to survive the prefix check below.
			normalized = path.Clean(segment)
		} else {
			normalized = path.Clean(final + "/" + segment)
		}

		// Clean strips the trailing separator. Put it back when the segment
		// carried one, or when the segment was a no-op like "." or "".
		if strings.HasSuffix(segment, "/") || normalized+"/" == final {
			normalized += "/"
		}
		final = normalized
	}
	if final == basePath {
		final += "/"
	}

	// The joined key must start with base followed by a separator. Anything
	// else escaped the namespace.
	if !strings.HasPrefix(final, basePath) || len(final) <= len(basePath) || final[len(basePath)] != '/' {
		return "", fmt.Errorf("%w: %q is outside of %q", ErrPathEscape, strings.Join(segments, "/"), base)
	}

	joined := strings.TrimLeft(final, "/")
	if joined == "" && len(segments) > 0 {
		// Segments collapsed to the namespace root itself. An empty key is
		// never a valid join target; treating it as an escape keeps the
		// deletion guards from ever seeing a match-everything prefix.
		return "", fmt.Errorf("%w: %q resolves to the namespace root", ErrPathEscape, strings.Join(segments, "/"))
	}

	return joined, nil
}

// Project ids are UUID-shaped. The deletion guards refuse to touch any key
// that does not match these exact shapes, as a last line of defense against
// a malformed prefix wiping unrelated data.
var (
	projectPrefixRx = regexp.MustCompile(`^[0-9a-fA-F]{8}(-[0-9a-fA-F]{4}){3}-[0-9a-fA-F]{12}/$`)
	projectObjectRx = regexp.MustCompile(`^[0-9a-fA-F]{8}(-[0-9a-fA-F]{4}){3}-[0-9a-fA-F]{12}/.+$`)
	projectFileRx   = regexp.MustCompile(`^[0-9a-fA-F]{8}(-[0-9a-fA-F]{4}){3}-[0-9a-fA-F]{12}/files/.+$`)
	packagePrefixRx = regexp.MustCompile(`^[0-9a-fA-F]{8}(-[0-9a-fA-F]{4}){3}-[0-9a-fA-F]{12}/packages/[\w-]+/$`)
)

// IsProjectPrefix reports whether prefix addresses exactly one project's
// whole key space ("<project-id>/").
func IsProjectPrefix(prefix string) bool {
	return projectPrefixRx.MatchString(prefix)
}

// IsProjectObjectKey reports whether key addresses an object inside a
// project's key space ("<project-id>/<anything>").
func IsProjectObjectKey(key string) bool {
	return projectObjectRx.MatchString(key)
}

// IsProjectFileKey reports whether key addresses a project file
// ("<project-id>/files/<relative-path>").
func IsProjectFileKey(key string) bool {
	return projectFileRx.MatchString(key)
}

// IsPackagePrefix reports whether prefix addresses one stored package
// ("<project-id>/packages/<package-id>/").
func IsPackagePrefix(prefix string) bool {
	return packagePrefixRx.MatchString(prefix)
}
