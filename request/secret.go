package request

import (
	"net/url"
	"strings"
)

// secretPlaceholder replaces every redacted occurrence of a hidden secret.
const secretPlaceholder = "[SECRET]"

// redactRawData walks data (the descriptor's original, pre-formatting
// value) and replaces verbatim occurrences of any secret found in string
// leaves. The shape of data is preserved; only string values are rewritten.
func redactRawData(data any, secrets []string) any {
	if len(secrets) == 0 {
		return data
	}
	switch v := data.(type) {
	case string:
		return redactVerbatim(v, secrets)
	case map[string]string:
		out := make(map[string]string, len(v))
		for k, s := range v {
			out[k] = redactVerbatim(s, secrets)
		}
		return out
	case map[string][]string:
		out := make(map[string][]string, len(v))
		for k, list := range v {
			rewritten := make([]string, len(list))
			for i, s := range list {
				rewritten[i] = redactVerbatim(s, secrets)
			}
			out[k] = rewritten
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, s := range v {
			out[k] = redactRawData(s, secrets)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = redactRawData(s, secrets)
		}
		return out
	case []string:
		out := make([]string, len(v))
		for i, s := range v {
			out[i] = redactVerbatim(s, secrets)
		}
		return out
	default:
		return v
	}
}

func redactVerbatim(s string, secrets []string) string {
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		s = strings.ReplaceAll(s, secret, secretPlaceholder)
	}
	return s
}

// redactFormattedText replaces secrets in the wire-formatted body text,
// encoding each secret the way the body encoding would have encoded it
// before searching.
func redactFormattedText(text string, dataType DataType, secrets []string) string {
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		search := secretSearchForm(secret, dataType)
		text = strings.ReplaceAll(text, search, secretPlaceholder)
	}
	return text
}

func secretSearchForm(secret string, dataType DataType) string {
	switch dataType {
	case DataForm:
		return url.QueryEscape(secret)
	case DataJSON:
		return strings.ReplaceAll(secret, `"`, `\"`)
	default:
		return secret
	}
}
