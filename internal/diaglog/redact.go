package diaglog

import "strings"

// sensitiveKeys name payload fields that never reach the log file. Host
// passwords and the auth handshake values are the ones that matter here.
var sensitiveKeys = map[string]bool{
	"authentication": true,
	"password":       true,
	"secret":         true,
	"challenge":      true,
	"salt":           true,
	"auth":           true,
	"token":          true,
}

// Redact returns a copy of v with sensitive map values replaced by
// "[REDACTED]". Keys match case-insensitively. Non-container values are
// returned as is.
func Redact(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, child := range val {
			if sensitiveKeys[strings.ToLower(k)] {
				out[k] = "[REDACTED]"
			} else {
				out[k] = Redact(child)
			}
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, elem := range val {
			out[i] = Redact(elem)
		}
		return out
	default:
		return v
	}
}
