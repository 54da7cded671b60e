// Package filter owns the product listing criteria and decides when a
// filtered query may be dispatched.
//
// Any field mutation re-validates the price range. A violated range parks the
// machine in StateInvalid and suppresses dispatch until corrected. Valid
// criteria (re)start a single debounce timer; when it expires with no further
// mutation the machine returns to StateIdle and emits the criteria through
// its apply callback. Clearing all fields applies immediately.
package filter

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aviete/boutique/internal/model"
)

// DefaultWindow is the debounce delay between the last mutation and dispatch.
const DefaultWindow = 300 * time.Millisecond

// State is the machine's dispatch state.
type State int

const (
	StateIdle State = iota
	StatePendingApply
	StateInvalid
)

// Reason is the localized key for why criteria are invalid.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonNegativePrice     Reason = "negative_price"
	ReasonMinGreaterThanMax Reason = "min_greater_than_max"
)

// Machine validates and debounces filter criteria. Safe for concurrent use.
type Machine struct {
	mu      sync.Mutex
	name    string
	typeID  int64
	sizes   []int64
	colors  []int64
	minRaw  string
	maxRaw  string
	state   State
	reason  Reason
	window  time.Duration
	timer   *time.Timer
	gen     uint64
	onApply func(model.FilterCriteria)
}

// New creates a Machine emitting debounced criteria through onApply.
// window <= 0 falls back to DefaultWindow.
func New(window time.Duration, onApply func(model.FilterCriteria)) *Machine {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Machine{window: window, onApply: onApply}
}

// State returns the current dispatch state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Reason returns why the criteria are invalid, or ReasonNone.
func (m *Machine) Reason() Reason {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reason
}

// Criteria returns a snapshot of the current criteria.
func (m *Machine) Criteria() model.FilterCriteria {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.criteriaLocked()
}

// SetName mutates the name search term.
func (m *Machine) SetName(name string) { m.mutate(func() { m.name = strings.TrimSpace(name) }) }

// SetType mutates the type filter; 0 removes it.
func (m *Machine) SetType(typeID int64) { m.mutate(func() { m.typeID = typeID }) }

// AddSize adds a size to the filter set; duplicates are ignored.
func (m *Machine) AddSize(sizeID int64) {
	m.mutate(func() { m.sizes = addID(m.sizes, sizeID) })
}

// RemoveSize drops a size from the filter set.
func (m *Machine) RemoveSize(sizeID int64) {
	m.mutate(func() { m.sizes = removeID(m.sizes, sizeID) })
}

// AddColor adds a color to the filter set; duplicates are ignored.
func (m *Machine) AddColor(colorID int64) {
	m.mutate(func() { m.colors = addID(m.colors, colorID) })
}

// RemoveColor drops a color from the filter set.
func (m *Machine) RemoveColor(colorID int64) {
	m.mutate(func() { m.colors = removeID(m.colors, colorID) })
}

// SetMinPrice mutates the lower price bound from raw input; empty clears it.
func (m *Machine) SetMinPrice(raw string) { m.mutate(func() { m.minRaw = strings.TrimSpace(raw) }) }

// SetMaxPrice mutates the upper price bound from raw input; empty clears it.
func (m *Machine) SetMaxPrice(raw string) { m.mutate(func() { m.maxRaw = strings.TrimSpace(raw) }) }

// Clear resets every field to its default and applies immediately, skipping
// the debounce window.
func (m *Machine) Clear() {
	m.mu.Lock()
	m.name, m.typeID, m.sizes, m.colors, m.minRaw, m.maxRaw = "", 0, nil, nil, "", ""
	m.stopTimerLocked()
	m.state = StateIdle
	m.reason = ReasonNone
	crit := m.criteriaLocked()
	apply := m.onApply
	m.mu.Unlock()
	if apply != nil {
		apply(crit)
	}
}

// Stop cancels any pending apply. Used on teardown.
func (m *Machine) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopTimerLocked()
	if m.state == StatePendingApply {
		m.state = StateIdle
	}
}

func (m *Machine) mutate(apply func()) {
	m.mu.Lock()
	apply()

	m.reason = m.validateLocked()
	m.stopTimerLocked()
	if m.reason != ReasonNone {
		m.state = StateInvalid
		m.mu.Unlock()
		return
	}

	m.state = StatePendingApply
	m.gen++
	gen := m.gen
	m.timer = time.AfterFunc(m.window, func() { m.fire(gen) })
	m.mu.Unlock()
}

func (m *Machine) fire(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.state != StatePendingApply {
		m.mu.Unlock()
		return
	}
	m.state = StateIdle
	m.timer = nil
	crit := m.criteriaLocked()
	apply := m.onApply
	m.mu.Unlock()
	if apply != nil {
		apply(crit)
	}
}

func (m *Machine) stopTimerLocked() {
	m.gen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// validateLocked checks the price range invariants: both bounds >= 0 and
// min <= max when both are present.
func (m *Machine) validateLocked() Reason {
	min, hasMin := parsePrice(m.minRaw)
	max, hasMax := parsePrice(m.maxRaw)
	if (hasMin && min < 0) || (hasMax && max < 0) {
		return ReasonNegativePrice
	}
	if hasMin && hasMax && min > max {
		return ReasonMinGreaterThanMax
	}
	return ReasonNone
}

func (m *Machine) criteriaLocked() model.FilterCriteria {
	crit := model.FilterCriteria{
		Name:     m.name,
		TypeID:   m.typeID,
		SizeIDs:  append([]int64(nil), m.sizes...),
		ColorIDs: append([]int64(nil), m.colors...),
	}
	if v, ok := parsePrice(m.minRaw); ok {
		crit.MinPrice = &v
	}
	if v, ok := parsePrice(m.maxRaw); ok {
		crit.MaxPrice = &v
	}
	return crit
}

// parsePrice treats empty or unparseable input as an absent bound.
func parsePrice(raw string) (float64, bool) {
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func addID(ids []int64, id int64) []int64 {
	for _, v := range ids {
		if v == id {
			return ids
		}
	}
	return append(ids, id)
}

func removeID(ids []int64, id int64) []int64 {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
