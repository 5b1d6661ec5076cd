// Package types defines the public domain types for the runmon message monitor.
package types

// EventType is the short code naming a model-run lifecycle event.
type EventType string

// EventType values enumerate the known model-run lifecycle events.
const (
	EventRestart     EventType = "RSTR"
	EventPreprocess1 EventType = "PRE1"
	EventNowcast     EventType = "NOWC"
	EventPreprocess2 EventType = "PRE2"
	EventForecast    EventType = "FORE"
	EventPostprocess EventType = "POST"
	EventRunEnd      EventType = "REND"
	EventStart       EventType = "STRT"
	EventHindcast    EventType = "HIND"
	EventExit        EventType = "EXIT"
	EventForecastStr EventType = "FSTR"
	EventForecastEnd EventType = "FEND"
	EventPartialNow  EventType = "PNOW"
)

// StateType is the short code naming a run or instance state.
type StateType string

// StateType values enumerate the run/instance states.
const (
	StateInit     StateType = "INIT"
	StateRunning  StateType = "RUNN"
	StatePending  StateType = "PEND"
	StateFailed   StateType = "FAIL"
	StateWarning  StateType = "WARN"
	StateIdle     StateType = "IDLE"
	StateComplete StateType = "CMPL"
	StateNone     StateType = "NONE"
	StateWaiting  StateType = "WAIT"
	StateExit     StateType = "EXIT"
	StateStalled  StateType = "STALLED"
)

// WorkflowType tags which message dialect produced a run-properties batch.
type WorkflowType string

const (
	WorkflowASGS   WorkflowType = "ASGS"
	WorkflowECFlow WorkflowType = "ECFLOW"
	WorkflowHECRAS WorkflowType = "HECRAS"
)

// AlertLevel classifies the severity of a dispatched alert.
type AlertLevel string

const (
	AlertLevelError   AlertLevel = "error"
	AlertLevelWarning AlertLevel = "warning"
	AlertLevelInfo    AlertLevel = "info"
)

// AlertType defines the alert sink type.
type AlertType string

// AlertType values enumerate the supported alert sink backends.
const (
	AlertConsole AlertType = "console"
	AlertSlack   AlertType = "slack"
	AlertFile    AlertType = "file"
)

// StoreBackend selects the relational store implementation.
type StoreBackend string

const (
	StorePostgres StoreBackend = "postgres"
	StoreSQLite   StoreBackend = "sqlite"
)
