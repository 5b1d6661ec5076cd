// Package metrics exposes runtime counters via expvar.
package metrics

import "expvar"

var (
	MessagesReceived    = expvar.NewInt("messages_received")
	MessagesFailed      = expvar.NewInt("messages_failed")
	InstancesCreated    = expvar.NewInt("instances_created")
	InstancesUpdated    = expvar.NewInt("instances_updated")
	EventGroupsCreated  = expvar.NewInt("event_groups_created")
	EventsInserted      = expvar.NewInt("events_inserted")
	ConfigItemsReplaced = expvar.NewInt("config_items_replaced")
	RelaysAttempted     = expvar.NewInt("relays_attempted")
	RelaysFailed        = expvar.NewInt("relays_failed")
	AlertsDispatched    = expvar.NewInt("alerts_dispatched")
	AlertsFailed        = expvar.NewInt("alerts_failed")
)
