package store

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrInvalidName is wrapped by every ValidatePromptName rejection, so callers
// can tell a bad name from an I/O failure with errors.Is.
var ErrInvalidName = errors.New("invalid prompt name")

// ValidatePromptName rejects names that could escape the store directory or
// smuggle in unexpected filesystem semantics. Names may contain forward-slash
// separated segments; traversal sequences, absolute paths, drive letters and
// encoded variants of those are all rejected.
func ValidatePromptName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	if strings.ContainsRune(name, 0) || strings.Contains(name, `\0`) {
		return fmt.Errorf("%w: name contains null byte", ErrInvalidName)
	}

	// Decode percent-encoding repeatedly so double-encoded traversal does not
	// slip through. A few rounds is enough for any practical encoding depth.
	decoded := name
	for i := 0; i < 3; i++ {
		next, err := url.QueryUnescape(decoded)
		if err != nil || next == decoded {
			break
		}
		decoded = next
	}
	if strings.Contains(decoded, "%") {
		return fmt.Errorf("%w: name contains unresolved percent-encoding", ErrInvalidName)
	}
	decoded = norm.NFC.String(decoded)

	if strings.ContainsRune(decoded, 0) || strings.Contains(decoded, `\0`) {
		return fmt.Errorf("%w: name contains null byte", ErrInvalidName)
	}
	if strings.HasPrefix(decoded, "/") || strings.HasPrefix(decoded, `\\`) {
		return fmt.Errorf("%w: name is an absolute path", ErrInvalidName)
	}
	if len(decoded) >= 2 && decoded[1] == ':' {
		return fmt.Errorf("%w: name contains a drive letter", ErrInvalidName)
	}
	if strings.HasSuffix(decoded, "/") || strings.HasSuffix(decoded, `\`) {
		return fmt.Errorf("%w: name ends with a path separator", ErrInvalidName)
	}
	if strings.Contains(decoded, "./") || strings.Contains(decoded, `.\`) {
		return fmt.Errorf("%w: name contains a relative path segment", ErrInvalidName)
	}

	for _, segment := range strings.Split(decoded, "/") {
		if segment == "" {
			return fmt.Errorf("%w: name contains an empty path segment", ErrInvalidName)
		}
		if isAllDots(segment) && len(segment) >= 2 {
			return fmt.Errorf("%w: name segment is only dots", ErrInvalidName)
		}
		if strings.HasPrefix(segment, "..") && !strings.HasPrefix(segment, "...") {
			return fmt.Errorf("%w: name segment starts with ..", ErrInvalidName)
		}
		if strings.HasSuffix(segment, "..") && !strings.HasSuffix(segment, "...") {
			return fmt.Errorf("%w: name segment ends with ..", ErrInvalidName)
		}
	}
	return nil
}

func isAllDots(s string) bool {
	for _, r := range s {
		if r != '.' {
			return false
		}
	}
	return len(s) > 0
}
