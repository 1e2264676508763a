package stubserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"
)

// record is one debt as the stub stores it: an open field map.
type record map[string]any

type store struct {
	mu     sync.RWMutex
	order  []string
	byID   map[string]record
	nextID int64
	now    func() time.Time
}

func newStore(now func() time.Time) *store {
	return &store{byID: make(map[string]record), nextID: 1, now: now}
}

func (s *store) list(filters map[string]string) []record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]record, 0, len(s.order))
	for _, id := range s.order {
		rec := s.byID[id]
		if matches(rec, filters) {
			out = append(out, clone(rec))
		}
	}
	return out
}

func (s *store) get(id string) (record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return clone(rec), true
}

func (s *store) create(fields record) record {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ts := s.now().UTC().Format(time.RFC3339)

	rec := clone(fields)
	rec["id"] = json.Number(strconv.FormatInt(id, 10))
	rec["created_at"] = ts
	rec["updated_at"] = ts

	key := strconv.FormatInt(id, 10)
	s.byID[key] = rec
	s.order = append(s.order, key)
	return clone(rec)
}

func (s *store) update(id string, fields record) (record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	for k, v := range fields {
		if k == "id" || k == "created_at" {
			continue
		}
		rec[k] = v
	}
	rec["updated_at"] = s.now().UTC().Format(time.RFC3339)
	return clone(rec), true
}

func (s *store) remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return false
	}
	delete(s.byID, id)
	for i, key := range s.order {
		if key == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// seed inserts records keeping any id they carry.
func (s *store) seed(recs ...record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range recs {
		rec := clone(r)
		raw, ok := rec["id"]
		if !ok {
			rec["id"] = json.Number(strconv.FormatInt(s.nextID, 10))
			raw = rec["id"]
		}
		key := formatField(raw)
		if _, dup := s.byID[key]; dup {
			return fmt.Errorf("duplicate debt id %q", key)
		}
		if n, err := strconv.ParseInt(key, 10, 64); err == nil && n >= s.nextID {
			s.nextID = n + 1
		}
		s.byID[key] = rec
		s.order = append(s.order, key)
	}
	return nil
}

type summary struct {
	Count            int                `json:"count"`
	TotalAmount      float64            `json:"total_amount"`
	TotalsByCurrency map[string]float64 `json:"totals_by_currency"`
	CountByStatus    map[string]int     `json:"count_by_status"`
}

func summarize(recs []record) summary {
	out := summary{
		Count:            len(recs),
		TotalsByCurrency: map[string]float64{},
		CountByStatus:    map[string]int{},
	}
	for _, rec := range recs {
		amount := amountOf(rec["amount"])
		out.TotalAmount += amount
		if cur, ok := rec["currency"].(string); ok && cur != "" {
			out.TotalsByCurrency[cur] += amount
		}
		if status, ok := rec["status"].(string); ok && status != "" {
			out.CountByStatus[status]++
		}
	}
	return out
}

func amountOf(v any) float64 {
	switch n := v.(type) {
	case json.Number:
		f, _ := n.Float64()
		return f
	case float64:
		return n
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	default:
		return 0
	}
}

func matches(rec record, filters map[string]string) bool {
	for key, want := range filters {
		got, ok := rec[key]
		if !ok || formatField(got) != want {
			return false
		}
	}
	return true
}

// formatField renders a stored value the way it would appear in a query string.
func formatField(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		data, _ := json.Marshal(t)
		return string(data)
	}
}

func decodeRecord(body []byte) (record, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var rec record
	if err := dec.Decode(&rec); err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("expected a JSON object")
	}
	return rec, nil
}

func clone(rec record) record {
	out := make(record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
