// Package testutil provides in-memory test doubles and polling helpers.
package testutil

import (
	"context"
	"strconv"
	"sync"

	"github.com/surgewatch/runmon/internal/store"
)

type instanceRow struct {
	ID           int64
	SiteID       int
	ProcessID    int
	InstanceName string
	StateID      int
	EndTimestamp string
	RunParams    string
}

type groupRow struct {
	ID         int64
	InstanceID int64
	StateID    int
	AdvisoryID string
	StormName  string
}

// MockGateway is an in-memory store.Gateway recording every operation.
type MockGateway struct {
	mu sync.Mutex

	nextID    int64
	instances []instanceRow
	groups    []groupRow
	events    []store.Event
	config    map[string]map[string]string // instanceID:uid -> items
	rawSaved  [][]byte

	// Err, when set, is returned by every mutating operation.
	Err error
}

// NewMockGateway creates an empty mock gateway.
func NewMockGateway() *MockGateway {
	return &MockGateway{config: make(map[string]map[string]string)}
}

func (m *MockGateway) FindOpenInstance(_ context.Context, siteID, processID int, instanceName string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return store.NotFound, m.Err
	}
	for i := len(m.instances) - 1; i >= 0; i-- {
		row := m.instances[i]
		if row.SiteID == siteID && row.ProcessID == processID && row.InstanceName == instanceName && row.StateID != 9 {
			return row.ID, nil
		}
	}
	return store.NotFound, nil
}

func (m *MockGateway) CreateInstance(_ context.Context, stateID, siteID, processID int, instanceName, runParams, _ string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return store.NotFound, m.Err
	}
	m.nextID++
	m.instances = append(m.instances, instanceRow{
		ID:           m.nextID,
		SiteID:       siteID,
		ProcessID:    processID,
		InstanceName: instanceName,
		StateID:      stateID,
		RunParams:    runParams,
	})
	return m.nextID, nil
}

func (m *MockGateway) UpdateInstance(_ context.Context, instanceID int64, stateID int, endTimestamp, runParams string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for i := range m.instances {
		if m.instances[i].ID == instanceID {
			m.instances[i].StateID = stateID
			m.instances[i].EndTimestamp = endTimestamp
			m.instances[i].RunParams = runParams
		}
	}
	return nil
}

func (m *MockGateway) FindEventGroup(_ context.Context, instanceID int64, advisoryID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return store.NotFound, m.Err
	}
	for i := len(m.groups) - 1; i >= 0; i-- {
		row := m.groups[i]
		if row.InstanceID == instanceID && row.AdvisoryID == advisoryID {
			return row.ID, nil
		}
	}
	return store.NotFound, nil
}

func (m *MockGateway) CreateEventGroup(_ context.Context, stateID int, instanceID int64, _, stormName, _, advisoryID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return store.NotFound, m.Err
	}
	m.nextID++
	m.groups = append(m.groups, groupRow{
		ID:         m.nextID,
		InstanceID: instanceID,
		StateID:    stateID,
		AdvisoryID: advisoryID,
		StormName:  stormName,
	})
	return m.nextID, nil
}

func (m *MockGateway) UpdateEventGroupState(_ context.Context, groupID int64, stateID int, stormName, advisoryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for i := range m.groups {
		if m.groups[i].ID == groupID {
			m.groups[i].StateID = stateID
			m.groups[i].StormName = stormName
			m.groups[i].AdvisoryID = advisoryID
		}
	}
	return nil
}

func (m *MockGateway) InsertEvent(_ context.Context, ev store.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.events = append(m.events, ev)
	return nil
}

func (m *MockGateway) ReplaceConfigItems(_ context.Context, instanceID int64, uid string, items map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	copied := make(map[string]string, len(items))
	for k, v := range items {
		copied[k] = v
	}
	m.config[configKey(instanceID, uid)] = copied
	return nil
}

func (m *MockGateway) SaveRawMessage(_ context.Context, _ string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.rawSaved = append(m.rawSaved, body)
	return nil
}

func (m *MockGateway) LookupItems(_ context.Context, _ string) (map[string]int, error) {
	return nil, nil
}

func (m *MockGateway) Ping(_ context.Context) error { return m.Err }
func (m *MockGateway) Close() error                 { return nil }

// OpenInstanceCount returns the number of non-EXIT instances for a key.
func (m *MockGateway) OpenInstanceCount(siteID, processID int, instanceName string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, row := range m.instances {
		if row.SiteID == siteID && row.ProcessID == processID && row.InstanceName == instanceName && row.StateID != 9 {
			n++
		}
	}
	return n
}

// InstanceCount returns the total number of instances created.
func (m *MockGateway) InstanceCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.instances)
}

// GroupCount returns the number of event groups for an instance.
func (m *MockGateway) GroupCount(instanceID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, row := range m.groups {
		if row.InstanceID == instanceID {
			n++
		}
	}
	return n
}

// GroupState returns the state id of a group, or -1 if unknown.
func (m *MockGateway) GroupState(groupID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.groups {
		if row.ID == groupID {
			return row.StateID
		}
	}
	return -1
}

// Events returns a copy of the recorded events.
func (m *MockGateway) Events() []store.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Event, len(m.events))
	copy(out, m.events)
	return out
}

// ConfigItems returns the current items for (instanceID, uid).
func (m *MockGateway) ConfigItems(instanceID int64, uid string) map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config[configKey(instanceID, uid)]
}

// RawSaved returns the number of archived raw messages.
func (m *MockGateway) RawSaved() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rawSaved)
}

func configKey(instanceID int64, uid string) string {
	return uid + "@" + strconv.FormatInt(instanceID, 10)
}
