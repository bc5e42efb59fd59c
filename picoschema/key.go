package picoschema

import "strings"

// wildcardKey is the property key that maps to additionalProperties.
const wildcardKey = "(*)"

// extractDescription splits a shorthand token of the form "type, description"
// into its two halves. The split happens at the first comma; leading spaces on
// the remainder are dropped. found reports whether a comma was present at all:
// "string," yields a present-but-empty description, which callers must treat
// as absent when attaching. Commas inside descriptions cannot be escaped.
func extractDescription(input string) (token, desc string, found bool) {
	i := strings.IndexByte(input, ',')
	if i < 0 {
		return input, "", false
	}
	return input[:i], strings.TrimLeft(input[i+1:], " "), true
}

// keyDesc is the structured form of a Picoschema property key. The key
// micro-syntax (name?, name(type), name?(type, description), (*)) is parsed
// once per key into this descriptor instead of being re-derived inline during
// tree construction.
type keyDesc struct {
	Name        string
	Optional    bool
	Wildcard    bool
	Annotation  string // "" when no parenthetical annotation is present
	Description string // from the annotation, e.g. "tags(array, list of tags)"
}

// lexKey parses a raw mapping key into a keyDesc. It never fails: unknown
// annotations are carried through verbatim and rejected by the compiler with
// the offending path attached.
func lexKey(key string) keyDesc {
	if key == wildcardKey {
		return keyDesc{Wildcard: true}
	}
	name := key
	var annotation, desc string
	if i := strings.IndexByte(key, '('); i >= 0 {
		name = key[:i]
		inner := strings.TrimSuffix(key[i+1:], ")")
		annotation, desc, _ = extractDescription(inner)
	}
	kd := keyDesc{Annotation: annotation, Description: desc}
	if strings.HasSuffix(name, "?") {
		kd.Optional = true
		name = strings.TrimSuffix(name, "?")
	}
	kd.Name = name
	return kd
}
