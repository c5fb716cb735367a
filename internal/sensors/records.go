package sensors

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// RawRecord is one untyped entry from the live-sensor or flood-zone store,
// keyed by its store id.
type RawRecord struct {
	ID     string
	Fields map[string]any
}

// number returns the first key holding a finite, non-zero numeric value.
// Accepts JSON numbers and numeric strings.
func (r RawRecord) number(keys ...string) (float64, bool) {
	for _, k := range keys {
		v, ok := r.Fields[k]
		if !ok || v == nil {
			continue
		}
		if f, ok := toFloat(v); ok && f != 0 {
			return f, true
		}
	}
	return 0, false
}

// numberOr returns the first numeric value under keys, zero included.
func (r RawRecord) numberOr(def float64, keys ...string) float64 {
	for _, k := range keys {
		if v, ok := r.Fields[k]; ok && v != nil {
			if f, ok := toFloat(v); ok {
				return f
			}
		}
	}
	return def
}

func (r RawRecord) text(keys ...string) string {
	for _, k := range keys {
		if s, ok := r.Fields[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// CatalogEntry is one flood-prone area from the static catalog file.
type CatalogEntry struct {
	ID        CatalogID      `json:"id"`
	Name      string         `json:"name"`
	Address   string         `json:"address,omitempty"`
	RiskLevel string         `json:"riskLevel"`
	Coords    *CatalogCoords `json:"coords"`
	Radius    float64        `json:"radius,omitempty"`
}

// CatalogCoords uses the lat/lng naming of the catalog file.
type CatalogCoords struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// CatalogID accepts both string and numeric ids.
type CatalogID string

func (c *CatalogID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*c = CatalogID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*c = CatalogID(n.String())
	return nil
}

type catalogFile struct {
	FloodPrones []CatalogEntry `json:"floodPrones"`
}
