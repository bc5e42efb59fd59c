package picoprompt

import (
	"fmt"
	"strings"

	"github.com/aymerick/raymond"
	json "github.com/goccy/go-json"
)

// templateHelpers are registered on every template the engine compiles. Most
// of them emit inline markers that ToMessages later converts into message
// structure.
func templateHelpers() map[string]any {
	return map[string]any{
		"json":         jsonHelper,
		"role":         roleHelper,
		"history":      historyHelper,
		"section":      sectionHelper,
		"media":        mediaHelper,
		"ifEquals":     ifEqualsHelper,
		"unlessEquals": unlessEqualsHelper,
	}
}

// jsonHelper serializes a template value as JSON. An integer "indent" hash
// argument selects pretty printing with that many spaces.
func jsonHelper(value any, options *raymond.Options) raymond.SafeString {
	var (
		b   []byte
		err error
	)
	if indent, ok := indentOption(options); ok {
		b, err = json.MarshalIndent(value, "", strings.Repeat(" ", indent))
	} else {
		b, err = json.Marshal(value)
	}
	if err != nil {
		return raymond.SafeString(fmt.Sprintf("Error serializing JSON: %s", err))
	}
	return raymond.SafeString(b)
}

func indentOption(options *raymond.Options) (int, bool) {
	switch v := options.HashProp("indent").(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		// Handlebars hash arguments may arrive as strings.
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n, true
		}
	}
	return 0, false
}

func roleHelper(role string) raymond.SafeString {
	return raymond.SafeString(fmt.Sprintf("%s%s>>>", roleMarkerPrefix, role))
}

func historyHelper() raymond.SafeString {
	return raymond.SafeString(historyMarkerPrefix + ">>>")
}

func sectionHelper(name string) raymond.SafeString {
	return raymond.SafeString(fmt.Sprintf("%s %s>>>", sectionMarkerPrefix, name))
}

// mediaHelper emits a media marker from url and contentType hash arguments.
func mediaHelper(options *raymond.Options) raymond.SafeString {
	url, _ := options.HashProp("url").(string)
	contentType, _ := options.HashProp("contentType").(string)
	marker := fmt.Sprintf("%s %s", mediaMarkerPrefix, url)
	if contentType != "" {
		marker += " " + contentType
	}
	return raymond.SafeString(marker + ">>>")
}

func ifEqualsHelper(a, b any, options *raymond.Options) any {
	if equalValues(a, b) {
		return options.Fn()
	}
	return options.Inverse()
}

func unlessEqualsHelper(a, b any, options *raymond.Options) any {
	if equalValues(a, b) {
		return options.Inverse()
	}
	return options.Fn()
}

// equalValues compares helper arguments loosely enough that YAML and JSON
// numeric types agree.
func equalValues(a, b any) bool {
	if a == b {
		return true
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	case float32:
		return float64(t), true
	}
	return 0, false
}
