package llmstream

import (
	"maps"
	"sort"

	"github.com/tidwall/gjson"
)

// Well-known counter names as they appear on the wire.
const (
	CounterInputTokens              = "input_tokens"
	CounterOutputTokens             = "output_tokens"
	CounterCacheCreationInputTokens = "cache_creation_input_tokens"
	CounterCacheReadInputTokens     = "cache_read_input_tokens"
)

// Counters is an open mapping from counter name to value. New counters
// introduced by the provider flow through without a schema change.
type Counters map[string]int64

// CountersFromJSON extracts every integer field of a usage object.
// Nested objects are flattened with dotted names
// ("server_tool_use.web_search_requests"); strings and nulls are skipped.
func CountersFromJSON(raw string) Counters {
	counters := Counters{}
	if raw == "" {
		return counters
	}
	collectCounters(counters, "", gjson.Parse(raw))
	return counters
}

func collectCounters(into Counters, prefix string, obj gjson.Result) {
	if !obj.IsObject() {
		return
	}
	obj.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if prefix != "" {
			name = prefix + "." + name
		}
		switch {
		case value.Type == gjson.Number:
			into[name] = value.Int()
		case value.IsObject():
			collectCounters(into, name, value)
		}
		return true
	})
}

// Usage accumulates counters across events. The zero value is ready to use.
// Counters only ever grow: Add sums the fields present in the delta and
// never resets a field the delta omits.
type Usage struct {
	counters Counters
}

// Add sums every field of delta into the running totals.
// Negative values are ignored.
func (u *Usage) Add(delta Counters) {
	if u.counters == nil {
		u.counters = Counters{}
	}
	for name, v := range delta {
		if v < 0 {
			continue
		}
		u.counters[name] += v
	}
}

// Get returns the running total of one counter.
func (u *Usage) Get(name string) int64 {
	return u.counters[name]
}

// Counters returns a copy of the running totals.
func (u *Usage) Counters() Counters {
	out := Counters{}
	maps.Copy(out, u.counters)
	return out
}

// Report summarizes the running totals.
func (u *Usage) Report() UsageReport {
	return NewUsageReport(u.counters)
}

// UsageReport is the caller-facing usage summary.
type UsageReport struct {
	Input  int64 `json:"input"`
	Output int64 `json:"output"`

	// Total is Input + Output. Cache counters are reported separately
	// and not folded in.
	Total int64 `json:"total"`

	// CachedInput is the number of input tokens read from the prompt cache.
	CachedInput int64 `json:"cached_input"`

	// CacheCreation is the number of input tokens written to the prompt cache.
	CacheCreation int64 `json:"cache_creation"`

	// Additional holds every other counter, e.g. server tool request counts.
	Additional map[string]int64 `json:"additional,omitempty"`
}

// NewUsageReport builds a report from a counter snapshot.
func NewUsageReport(c Counters) UsageReport {
	r := UsageReport{
		Input:         c[CounterInputTokens],
		Output:        c[CounterOutputTokens],
		CachedInput:   c[CounterCacheReadInputTokens],
		CacheCreation: c[CounterCacheCreationInputTokens],
	}
	r.Total = r.Input + r.Output

	for name, v := range c {
		switch name {
		case CounterInputTokens, CounterOutputTokens, CounterCacheReadInputTokens, CounterCacheCreationInputTokens:
			continue
		}
		if r.Additional == nil {
			r.Additional = map[string]int64{}
		}
		r.Additional[name] = v
	}
	return r
}

// AdditionalNames returns the names in Additional, sorted.
func (r UsageReport) AdditionalNames() []string {
	names := make([]string, 0, len(r.Additional))
	for name := range r.Additional {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
