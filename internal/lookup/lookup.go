// Package lookup resolves site, event-type and state names to the small
// integer codes the store schema uses. The table is built once at
// startup and shared read-only.
package lookup

import (
	"context"
	"fmt"
	"strconv"
)

// NotFound is returned for any name the table does not know. Codes are
// stable and non-negative, so callers test with < 0.
const NotFound = -1

// Source loads one enumeration from a backing store. The map key is the
// lookup name column; pct_complete_lu is keyed by the event-type id
// rendered as a string.
type Source interface {
	LookupItems(ctx context.Context, table string) (map[string]int, error)
}

// Table holds the five enumerations. Immutable after construction.
type Table struct {
	sites          map[string]int
	eventTypes     map[string]int
	stateTypes     map[string]int
	instanceStates map[string]int
	pctComplete    map[int]int
}

// Defaults returns the compiled-in table matching the production schema.
func Defaults() *Table {
	return &Table{
		sites: map[string]int{
			"RENCI":        0,
			"TACC":         1,
			"LSU":          2,
			"UCF":          3,
			"George Mason": 4,
			"Penguin":      5,
			"LONI":         6,
			"Seahorse":     7,
			"QB2":          8,
			"CCT":          9,
			"PSC":          10,
			"UGA":          11,
			"TWI":          12,
		},
		eventTypes: map[string]int{
			"RSTR": 0,
			"PRE1": 1,
			"NOWC": 2,
			"PRE2": 3,
			"FORE": 4,
			"POST": 5,
			"REND": 6,
			"STRT": 7,
			"HIND": 8,
			"EXIT": 9,
			"FSTR": 10,
			"FEND": 11,
			"PNOW": 12,
		},
		stateTypes:     defaultStates(),
		instanceStates: defaultStates(),
		pctComplete: map[int]int{
			0: 0, 1: 5, 2: 20, 3: 40, 4: 60, 5: 90, 6: 100,
			7: 0, 8: 0, 9: 0, 10: 40, 11: 90, 12: 20,
		},
	}
}

func defaultStates() map[string]int {
	return map[string]int{
		"INIT":    0,
		"RUNN":    1,
		"PEND":    2,
		"FAIL":    3,
		"WARN":    4,
		"IDLE":    5,
		"CMPL":    6,
		"NONE":    7,
		"WAIT":    8,
		"EXIT":    9,
		"STALLED": 10,
	}
}

// FromSource builds the table from the store's lookup tables. Any load
// error aborts the build; callers fall back to Defaults.
func FromSource(ctx context.Context, src Source) (*Table, error) {
	t := &Table{pctComplete: make(map[int]int)}

	var err error
	if t.sites, err = src.LookupItems(ctx, "site_lu"); err != nil {
		return nil, fmt.Errorf("loading site_lu: %w", err)
	}
	if t.eventTypes, err = src.LookupItems(ctx, "event_type_lu"); err != nil {
		return nil, fmt.Errorf("loading event_type_lu: %w", err)
	}
	if t.stateTypes, err = src.LookupItems(ctx, "state_type_lu"); err != nil {
		return nil, fmt.Errorf("loading state_type_lu: %w", err)
	}
	if t.instanceStates, err = src.LookupItems(ctx, "instance_state_type_lu"); err != nil {
		return nil, fmt.Errorf("loading instance_state_type_lu: %w", err)
	}

	pct, err := src.LookupItems(ctx, "pct_complete_lu")
	if err != nil {
		return nil, fmt.Errorf("loading pct_complete_lu: %w", err)
	}
	for k, v := range pct {
		id, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("pct_complete_lu key %q is not an event type id", k)
		}
		t.pctComplete[id] = v
	}
	return t, nil
}

// Site resolves a site name.
func (t *Table) Site(name string) int { return resolve(t.sites, name) }

// EventType resolves an event-type code.
func (t *Table) EventType(name string) int { return resolve(t.eventTypes, name) }

// StateType resolves a run-state code.
func (t *Table) StateType(name string) int { return resolve(t.stateTypes, name) }

// InstanceState resolves an instance-state code.
func (t *Table) InstanceState(name string) int { return resolve(t.instanceStates, name) }

// PctComplete returns the percent-complete for an event-type id.
func (t *Table) PctComplete(eventTypeID int) int {
	if v, ok := t.pctComplete[eventTypeID]; ok {
		return v
	}
	return NotFound
}

// SiteNames returns every known site name.
func (t *Table) SiteNames() []string {
	names := make([]string, 0, len(t.sites))
	for name := range t.sites {
		names = append(names, name)
	}
	return names
}

// SiteCodes resolves a list of site names to their codes, skipping any
// unknown names.
func (t *Table) SiteCodes(names []string) map[int]bool {
	codes := make(map[int]bool, len(names))
	for _, name := range names {
		if id := t.Site(name); id >= 0 {
			codes[id] = true
		}
	}
	return codes
}

func resolve(m map[string]int, name string) int {
	if v, ok := m[name]; ok {
		return v
	}
	return NotFound
}
