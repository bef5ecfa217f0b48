package agentrun

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Output is what a decision procedure produced. It is either RawText or
// Structured.
type Output interface {
	isOutput()
}

// RawText is the final text the model wrote. It is expected to hold JSON.
type RawText string

// Structured is a value that is already decoded, such as the response of the
// last tool call when the model wrote no text.
type Structured struct {
	Value any
}

func (RawText) isOutput()    {}
func (Structured) isOutput() {}

// ErrNotObject is returned by DecodeObject for outputs that are not a JSON
// object.
var ErrNotObject = errors.New("output is not a JSON object")

// Decode turns o into a plain Go value: RawText is parsed as JSON, Structured
// is returned as is.
func Decode(o Output) (any, error) {
	switch v := o.(type) {
	case RawText:
		var out any
		if err := json.Unmarshal([]byte(stripFence(string(v))), &out); err != nil {
			return nil, fmt.Errorf("parse model output: %w", err)
		}
		return out, nil
	case Structured:
		return v.Value, nil
	case nil:
		return nil, errors.New("no output")
	default:
		return nil, fmt.Errorf("unsupported output %T", o)
	}
}

// DecodeObject is Decode restricted to JSON objects.
func DecodeObject(o Output) (map[string]any, error) {
	v, err := Decode(o)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrNotObject, v)
	}
	return obj, nil
}

// stripFence removes a surrounding markdown code fence, which models add
// around JSON even when told not to.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
