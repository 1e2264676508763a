package obligations

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// SummaryOnlyParam switches the list endpoint into aggregate-report mode.
const SummaryOnlyParam = "summary_only"

// FilterSet narrows a list query. Keys are sent verbatim as query parameters;
// nil values are omitted. An empty set means no filtering.
type FilterSet map[string]any

// Values renders the filter set as query parameters.
func (f FilterSet) Values() url.Values {
	if len(f) == 0 {
		return nil
	}
	out := make(url.Values, len(f))
	for key, raw := range f {
		switch v := raw.(type) {
		case nil:
			continue
		case []string:
			for _, s := range v {
				out.Add(key, s)
			}
		case []any:
			for _, item := range v {
				if item != nil {
					out.Add(key, formatValue(item))
				}
			}
		default:
			out.Set(key, formatValue(v))
		}
	}
	return out
}

// With returns a copy of the set with key set to value.
func (f FilterSet) With(key string, value any) FilterSet {
	out := make(FilterSet, len(f)+1)
	for k, v := range f {
		out[k] = v
	}
	out[key] = value
	return out
}

func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case uint:
		return strconv.FormatUint(uint64(t), 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case time.Time:
		return t.Format(time.RFC3339)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
