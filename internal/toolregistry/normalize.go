package toolregistry

import "strings"

// normalizeArgName maps a backend-supplied argument key to the schema's
// canonical snake_case form: camelCase becomes snake_case and the whole
// registry boundary performs this once (spec.md 9's "implemented once, not
// leak into individual tools"), generalized from the teacher's
// StandardToolValidator hardcoded name table into a pure structural
// transform so it works for any tool, not a fixed list.
func normalizeArgName(name string) string {
	if name == "" {
		return name
	}
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// normalizeArgs rewrites every key in args to the schema field name it
// matches case-insensitively, either after the camelCase-to-snake_case
// mapping or as given, drops keys that match no schema field either way,
// and fills in each field's declared Default for any optional field absent
// from the result.
func normalizeArgs(args map[string]interface{}, schema ArgSchema) map[string]interface{} {
	known := make(map[string]string, len(schema.Fields))
	for _, f := range schema.Fields {
		known[strings.ToLower(f.Name)] = f.Name
	}
	out := make(map[string]interface{}, len(args))
	for k, v := range args {
		if name, ok := known[strings.ToLower(normalizeArgName(k))]; ok {
			out[name] = v
		} else if name, ok := known[strings.ToLower(k)]; ok {
			out[name] = v
		}
	}
	for _, f := range schema.Fields {
		if _, present := out[f.Name]; !present && f.Default != nil {
			out[f.Name] = f.Default
		}
	}
	return out
}

// normalizeToolName resolves a tool name case-insensitively against the
// registry's canonical names.
func normalizeToolName(name string, canonical map[string]string) (string, bool) {
	n, ok := canonical[strings.ToLower(name)]
	return n, ok
}
