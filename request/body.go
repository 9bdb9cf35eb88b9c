package request

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
)

// formattedBody is the result of formatting a Descriptor's Data for the
// wire. For raw/form/json bodies, text holds the wire content and a fresh
// reader is created per dispatch (so 307/308 redirects can resend it);
// streamReader is the caller's original reader for the stream data type,
// which is one-shot by nature (retrying a streamed upload is out of scope).
type formattedBody struct {
	text         string
	rawBinary    []byte
	streamReader io.Reader
	isBinary     bool
	isStream     bool
	contentType  string
}

// hasBody reports whether this formattedBody carries any content at all.
func (b formattedBody) hasBody() bool {
	return b.isStream || b.isBinary || b.text != ""
}

// newReader builds a fresh io.Reader over the body content, safe to call
// once per redirect hop for raw/form/json/binary bodies.
func (b formattedBody) newReader() io.Reader {
	switch {
	case b.isStream:
		return b.streamReader
	case b.isBinary:
		return bytes.NewReader(b.rawBinary)
	case b.text != "":
		return strings.NewReader(b.text)
	default:
		return nil
	}
}

// formatBody builds the wire body for d per its DataType.
func formatBody(d *Descriptor) (formattedBody, *Error) {
	switch d.DataType {
	case DataStream:
		r, ok := d.Data.(io.Reader)
		if !ok {
			return formattedBody{}, newError(InvalidInput, "stream data type requires an io.Reader", nil, nil)
		}
		return formattedBody{streamReader: r, isStream: true}, nil

	case DataBinary:
		b, ok := d.Data.([]byte)
		if !ok {
			return formattedBody{}, newError(InvalidInput, "binary data type requires a []byte", nil, nil)
		}
		return formattedBody{rawBinary: b, isBinary: true}, nil

	case DataRaw:
		text := stringifyRaw(d.Data)
		return formattedBody{text: text}, nil

	case DataForm:
		text, err := encodeForm(d.Data)
		if err != nil {
			return formattedBody{}, err
		}
		return formattedBody{
			text:        text,
			contentType: "application/x-www-form-urlencoded",
		}, nil

	case DataJSON:
		text, err := encodeJSON(d.Data)
		if err != nil {
			return formattedBody{}, err
		}
		return formattedBody{
			text:        text,
			contentType: "application/json",
		}, nil

	default:
		return formattedBody{}, newError(InvalidInput, "invalid data type", nil, nil)
	}
}

func stringifyRaw(data any) string {
	if data == nil {
		return ""
	}
	if s, ok := data.(string); ok {
		return s
	}
	return fmt.Sprint(data)
}

func encodeJSON(data any) (string, *Error) {
	if data == nil {
		return "", nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "", newError(InvalidInput, "invalid data for data type json", err, nil)
	}
	return string(b), nil
}

func encodeForm(data any) (string, *Error) {
	values := url.Values{}

	switch m := data.(type) {
	case map[string]string:
		for k, v := range m {
			values.Set(k, v)
		}
	case map[string][]string:
		for k, vs := range m {
			for _, v := range vs {
				values.Add(k, v)
			}
		}
	case map[string]any:
		for k, v := range m {
			switch vv := v.(type) {
			case string:
				values.Set(k, vv)
			case []string:
				for _, s := range vv {
					values.Add(k, s)
				}
			case []any:
				for _, s := range vv {
					values.Add(k, fmt.Sprint(s))
				}
			default:
				values.Set(k, fmt.Sprint(vv))
			}
		}
	default:
		return "", newError(InvalidInput, "form data type requires a string-keyed mapping", nil, nil)
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := url.Values{}
	for _, k := range keys {
		ordered[k] = values[k]
	}
	return ordered.Encode(), nil
}
