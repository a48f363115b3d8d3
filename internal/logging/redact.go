package logging

import "encoding/json"

// RedactJSON returns body with the values of sensitive keys replaced, at
// any depth.  Bodies that are not JSON come back as a short placeholder so
// raw form posts never reach the log.
func RedactJSON(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return "[unparsed body]"
	}
	out, err := json.Marshal(redactValue(v))
	if err != nil {
		return "[unparsed body]"
	}
	return string(out)
}

func redactValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if IsSensitive(k) {
				t[k] = redacted
				continue
			}
			t[k] = redactValue(val)
		}
	case []any:
		for i := range t {
			t[i] = redactValue(t[i])
		}
	}
	return v
}
