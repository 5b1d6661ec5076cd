// Package store defines the persistence gateway the reconciler writes
// through. Backends live in subpackages; all statements are
// parameterized.
package store

import "context"

// NotFound is the sentinel id returned by the Find operations when no
// row matches. Surrogate ids are always positive.
const NotFound = int64(-1)

// Event is one immutable lifecycle fact.
type Event struct {
	SiteID         int
	GroupID        int64
	EventTypeID    int
	Timestamp      string
	AdvisoryID     string
	PctComplete    int
	SubPctComplete string
	Process        string
	RawMessage     string
}

// Gateway maps reconciler decisions onto store statements. Find
// operations return NotFound (never an error) when no row matches;
// every operation returns an error on store failure so callers fail
// closed.
type Gateway interface {
	// FindOpenInstance returns the newest instance for the key that is
	// not in the terminal EXIT state.
	FindOpenInstance(ctx context.Context, siteID, processID int, instanceName string) (int64, error)
	CreateInstance(ctx context.Context, stateID, siteID, processID int, instanceName, runParams, timestamp string) (int64, error)
	UpdateInstance(ctx context.Context, instanceID int64, stateID int, endTimestamp, runParams string) error

	// FindEventGroup returns the most recently created group for the
	// (instance, advisory) pair.
	FindEventGroup(ctx context.Context, instanceID int64, advisoryID string) (int64, error)
	CreateEventGroup(ctx context.Context, stateID int, instanceID int64, timestamp, stormName, stormNumber, advisoryID string) (int64, error)
	UpdateEventGroupState(ctx context.Context, groupID int64, stateID int, stormName, advisoryID string) error

	InsertEvent(ctx context.Context, ev Event) error

	// ReplaceConfigItems deletes every row for (instance, uid) and
	// inserts the new batch in one transaction.
	ReplaceConfigItems(ctx context.Context, instanceID int64, uid string, items map[string]string) error

	// SaveRawMessage archives an untouched inbound message body.
	SaveRawMessage(ctx context.Context, queue string, body []byte) error

	// LookupItems loads one lookup table as name -> code.
	LookupItems(ctx context.Context, table string) (map[string]int, error)

	Ping(ctx context.Context) error
	Close() error
}
