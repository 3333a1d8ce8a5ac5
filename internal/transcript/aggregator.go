// Package transcript reconciles transcript fragments arriving from multiple
// gateway event kinds into one ordered conversation log.
package transcript

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/kpr17ch/aivoicechat/internal/numeric"
)

// Role identifies the speaker of a transcript entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleUnknown   Role = "unknown"
)

// Entry status values.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// NumericMeta is the numeric analysis stored on every entry.
type NumericMeta struct {
	Normalized           string   `json:"normalized"`
	PhoneCandidates      []string `json:"phone_candidates"`
	ValidPhoneCandidates []string `json:"valid_phone_candidates"`
}

// Metadata is the fixed-shape per-entry metadata record. Extra keeps the
// container extensible for gateway fields beyond the modeled ones.
type Metadata struct {
	Status       string          `json:"status,omitempty"`
	ContentTypes []string        `json:"content_types,omitempty"`
	Error        json.RawMessage `json:"error,omitempty"`
	Numeric      *NumericMeta    `json:"numeric,omitempty"`
	Extra        map[string]any  `json:"extra,omitempty"`
}

// Entry is one transcript line. Entries are append-only in first-observation
// order; an entry indexed by item id is updated in place, never duplicated.
type Entry struct {
	Timestamp      time.Time `json:"timestamp"`
	Role           Role      `json:"role,omitempty"`
	ItemID         string    `json:"item_id,omitempty"`
	Text           string    `json:"text,omitempty"`
	Status         string    `json:"status"`
	Sources        []string  `json:"sources"`
	NormalizedText string    `json:"normalized_text,omitempty"`
	UpdatedAt      time.Time `json:"updated_at,omitempty"`
	Metadata       Metadata  `json:"metadata"`
}

func (e *Entry) clone() Entry {
	out := *e
	out.Sources = append([]string(nil), e.Sources...)
	out.Metadata = e.Metadata.clone()
	return out
}

func (m Metadata) clone() Metadata {
	out := m
	out.ContentTypes = append([]string(nil), m.ContentTypes...)
	if m.Numeric != nil {
		n := *m.Numeric
		n.PhoneCandidates = append([]string(nil), m.Numeric.PhoneCandidates...)
		n.ValidPhoneCandidates = append([]string(nil), m.Numeric.ValidPhoneCandidates...)
		out.Numeric = &n
	}
	if m.Extra != nil {
		extra := make(map[string]any, len(m.Extra))
		for k, v := range m.Extra {
			extra[k] = v
		}
		out.Extra = extra
	}
	return out
}

// merge applies incoming metadata key-by-key, leaving absent fields alone.
func (m *Metadata) merge(in *Metadata) {
	if in == nil {
		return
	}
	if in.Status != "" {
		m.Status = in.Status
	}
	if in.ContentTypes != nil {
		m.ContentTypes = in.ContentTypes
	}
	if in.Error != nil {
		m.Error = in.Error
	}
	if in.Numeric != nil {
		m.Numeric = in.Numeric
	}
	for k, v := range in.Extra {
		if m.Extra == nil {
			m.Extra = make(map[string]any)
		}
		m.Extra[k] = v
	}
}

// Aggregator merges transcript fragments by item identity. One exclusive
// lock spans each full read-modify-write.
type Aggregator struct {
	mu      sync.Mutex
	entries []*Entry
	index   map[string]int
	now     func() time.Time
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		index: make(map[string]int),
		now:   time.Now,
	}
}

// Upsert records one fragment. An existing item id mutates its entry in
// place; a missing or unseen item id appends. The returned entry is a copy;
// textChanged reports whether the visible text changed, which callers use to
// gate persistence and log emission.
func (a *Aggregator) Upsert(role Role, source, itemID, text string, meta *Metadata) (Entry, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var entry *Entry
	textChanged := false

	if pos, ok := a.index[itemID]; itemID != "" && ok {
		entry = a.entries[pos]
		entry.addSource(source)
		if entry.Role == "" {
			entry.Role = role
		}
		if text != "" {
			if entry.Text != text {
				textChanged = true
			}
			entry.Text = text
			entry.Status = StatusCompleted
			entry.UpdatedAt = a.now()
		} else if entry.Text == "" {
			entry.Status = StatusPending
		}
		entry.Metadata.merge(meta)
	} else {
		status := StatusPending
		if text != "" {
			status = StatusCompleted
			textChanged = true
		}
		entry = &Entry{
			Timestamp: a.now(),
			Role:      role,
			ItemID:    itemID,
			Text:      text,
			Status:    status,
			Sources:   []string{source},
		}
		entry.Metadata.merge(meta)
		a.entries = append(a.entries, entry)
		if itemID != "" {
			a.index[itemID] = len(a.entries) - 1
		}
	}

	analysis := numeric.Normalize(entry.Text)
	entry.NormalizedText = analysis.Normalized
	entry.Metadata.Numeric = &NumericMeta{
		Normalized:           analysis.Normalized,
		PhoneCandidates:      analysis.PhoneCandidates,
		ValidPhoneCandidates: numeric.PlausibleCandidates(analysis.PhoneCandidates),
	}

	return entry.clone(), textChanged
}

func (e *Entry) addSource(source string) {
	for _, s := range e.Sources {
		if s == source {
			return
		}
	}
	e.Sources = append(e.Sources, source)
}

// Snapshot returns copies of all entries in first-observation order.
func (a *Aggregator) Snapshot() []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Entry, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.clone()
	}
	return out
}

// Len returns the number of entries.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

// Reset clears all entries and the item index for a fresh stream.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = nil
	a.index = make(map[string]int)
}
