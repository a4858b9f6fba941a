// SPDX-License-Identifier: AGPL-3.0-or-later

// Package errtrack records CLI errors with stable IDs and groups repeats
// of the same failure so noisy errors surface as one entry.
package errtrack

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/pyaythar-k/sam-plugin-sub000/internal/projection"
)

// Event is one captured error occurrence.
type Event struct {
	ErrorID   string            `json:"error_id"`
	GroupID   string            `json:"group_id"`
	Message   string            `json:"message"`
	Command   string            `json:"command,omitempty"`
	FeatureID string            `json:"feature_id,omitempty"`
	TaskID    string            `json:"task_id,omitempty"`
	Context   map[string]string `json:"context,omitempty"`
	Timestamp string            `json:"timestamp"`
}

// Group aggregates events that share a normalized message.
type Group struct {
	GroupID   string `json:"group_id"`
	Message   string `json:"message"`
	Count     int    `json:"count"`
	FirstSeen string `json:"first_seen"`
	LastSeen  string `json:"last_seen"`
}

type store struct {
	Events []Event          `json:"events"`
	Groups map[string]Group `json:"groups"`
}

// Tracker persists captured errors under the observability directory.
type Tracker struct {
	obsDir    string
	maxStored int
	mu        sync.Mutex
}

// NewTracker returns a tracker writing to {obsDir}/errors.json keeping at
// most maxStored events.
func NewTracker(obsDir string, maxStored int) *Tracker {
	if maxStored < 1 {
		maxStored = 500
	}
	return &Tracker{obsDir: obsDir, maxStored: maxStored}
}

func (t *Tracker) path() string {
	return filepath.Join(t.obsDir, "errors.json")
}

func (t *Tracker) load() (*store, error) {
	data, err := os.ReadFile(t.path())
	if os.IsNotExist(err) {
		return &store{Groups: map[string]Group{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading error log: %w", err)
	}
	var st store
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parsing error log: %w", err)
	}
	if st.Groups == nil {
		st.Groups = map[string]Group{}
	}
	return &st, nil
}

func (t *Tracker) save(st *store) error {
	return projection.AtomicWriteJSON(t.path(), st)
}

// Numbers, hex strings and quoted values vary between occurrences of the
// same logical error, so grouping strips them.
var (
	numberRe = regexp.MustCompile(`\b\d+\b`)
	hexRe    = regexp.MustCompile(`\b[0-9a-f]{8,}\b`)
	quoteRe  = regexp.MustCompile(`"[^"]*"|'[^']*'`)
)

func normalize(message string) string {
	out := quoteRe.ReplaceAllString(message, "<val>")
	out = hexRe.ReplaceAllString(out, "<hex>")
	out = numberRe.ReplaceAllString(out, "<n>")
	return out
}

func hashID(prefix, input string) string {
	h := fnv.New64a()
	h.Write([]byte(input))
	return fmt.Sprintf("%s_%012x", prefix, h.Sum64()&0xffffffffffff)
}

// Capture records err with optional context and returns the event. The
// error ID is unique per occurrence; the group ID is stable across repeats.
func (t *Tracker) Capture(err error, command string, context map[string]string) (*Event, error) {
	if err == nil {
		return nil, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	st, loadErr := t.load()
	if loadErr != nil {
		return nil, loadErr
	}

	now := time.Now().Format(time.RFC3339)
	message := err.Error()
	normalized := normalize(message)
	groupID := hashID("GRP", normalized)

	event := Event{
		ErrorID:   hashID("ERR", message+now),
		GroupID:   groupID,
		Message:   message,
		Command:   command,
		Context:   context,
		Timestamp: now,
	}
	if context != nil {
		event.FeatureID = context["feature_id"]
		event.TaskID = context["task_id"]
	}

	st.Events = append(st.Events, event)
	if len(st.Events) > t.maxStored {
		st.Events = st.Events[len(st.Events)-t.maxStored:]
	}

	group, ok := st.Groups[groupID]
	if !ok {
		group = Group{GroupID: groupID, Message: normalized, FirstSeen: now}
	}
	group.Count++
	group.LastSeen = now
	st.Groups[groupID] = group

	if err := t.save(st); err != nil {
		return nil, err
	}
	return &event, nil
}

// Groups returns all error groups, most frequent first.
func (t *Tracker) Groups() ([]Group, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, err := t.load()
	if err != nil {
		return nil, err
	}
	groups := make([]Group, 0, len(st.Groups))
	for _, g := range st.Groups {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return groups[i].GroupID < groups[j].GroupID
	})
	return groups, nil
}

// Recent returns the last n captured events, newest last.
func (t *Tracker) Recent(n int) ([]Event, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, err := t.load()
	if err != nil {
		return nil, err
	}
	if n <= 0 || n >= len(st.Events) {
		return st.Events, nil
	}
	return st.Events[len(st.Events)-n:], nil
}
