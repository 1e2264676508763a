package obligations

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ID is a server-assigned record identifier. The server may use numbers or
// strings; ID keeps whichever form it received so it encodes back unchanged.
type ID struct {
	value   string
	numeric bool
}

// StringID builds a string identifier.
func StringID(s string) ID { return ID{value: s} }

// IntID builds a numeric identifier.
func IntID(n int64) ID { return ID{value: strconv.FormatInt(n, 10), numeric: true} }

// ParseID interprets user input. Only canonical integers ("15", "-3") become
// numeric ids; forms such as "007" or "+5" stay strings so they encode as
// valid JSON.
func ParseID(s string) ID {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && strconv.FormatInt(n, 10) == s {
		return ID{value: s, numeric: true}
	}
	return ID{value: s}
}

// String returns the id as sent on the wire, without JSON quoting.
func (id ID) String() string { return id.value }

// IsZero reports whether the id is empty.
func (id ID) IsZero() bool { return id.value == "" }

// IsNumeric reports whether the id encodes as a JSON number.
func (id ID) IsNumeric() bool { return id.numeric }

func (id ID) MarshalJSON() ([]byte, error) {
	if id.numeric {
		return []byte(id.value), nil
	}
	return json.Marshal(id.value)
}

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ID{}
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode id: %w", err)
		}
		*id = ID{value: s}
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("decode id: %w", err)
		}
		*id = ID{value: n.String(), numeric: true}
		return nil
	}
}
