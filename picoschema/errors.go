package picoschema

import (
	"errors"
	"fmt"
	"strings"
)

// Issue codes (exported consts for IDE completion and type safety by convention)
const (
	// CodeUnresolvableType: a named-type reference was found but no resolver
	// was configured on the compiler.
	CodeUnresolvableType = "unresolvable_type"
	// CodeUnknownSchema: the resolver ran but reported no schema by that name.
	CodeUnknownSchema = "unknown_schema"
	// CodeInvalidStructure: a fragment is neither a string nor a mapping, or an
	// enum key's value is not a literal list.
	CodeInvalidStructure = "invalid_structure"
	// CodeInvalidAnnotation: a parenthetical key annotation other than
	// array/object/enum.
	CodeInvalidAnnotation = "invalid_annotation"
)

// Issue represents a single compilation error.
type Issue struct {
	Path    string // Pointer-style path from the document root (for example: /address(object)/street).
	Code    string // One of the codes listed above.
	Message string
}

// Issues is a collection of compilation errors that implements error.
// Compilation is fail-fast, so in practice it carries exactly one entry.
type Issues []Issue

func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	b := &strings.Builder{}
	for i, it := range iss {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(b, "%s at %s: %s", it.Code, it.Path, it.Message)
	}
	return b.String()
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// issueAt builds a single-entry Issues with the rendered path.
func issueAt(code string, path []string, format string, args ...any) Issues {
	return Issues{{
		Path:    renderPath(path),
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}}
}

// renderPath renders the accumulated key path pointer-style; the document root
// renders as "/".
func renderPath(path []string) string {
	if len(path) == 0 {
		return "/"
	}
	return "/" + strings.Join(path, "/")
}
