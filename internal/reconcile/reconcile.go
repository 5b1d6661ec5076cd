// Package reconcile implements the run-lifecycle decision logic: given
// a normalized message, find or create the target run instance and
// event group and append the event fact.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/surgewatch/runmon/internal/lookup"
	"github.com/surgewatch/runmon/internal/metrics"
	"github.com/surgewatch/runmon/internal/store"
	"github.com/surgewatch/runmon/pkg/types"
)

// AlertFunc receives a notification about a failed message.
type AlertFunc func(context.Context, types.Alert)

// Reconciler applies create-vs-update decisions for run instances and
// event groups. All decisions for one instance key are serialized.
type Reconciler struct {
	gateway  store.Gateway
	lookup   *lookup.Table
	accepted map[int]bool
	logger   *slog.Logger
	alertFn  AlertFunc
	now      func() time.Time
	keys     *keyMutex
}

// New creates a Reconciler. accepted is the set of site codes allowed
// to submit run-properties messages; nil accepts every site.
func New(gw store.Gateway, lu *lookup.Table, accepted map[int]bool, logger *slog.Logger, alertFn AlertFunc) *Reconciler {
	return &Reconciler{
		gateway:  gw,
		lookup:   lu,
		accepted: accepted,
		logger:   logger,
		alertFn:  alertFn,
		now:      time.Now,
		keys:     newKeyMutex(),
	}
}

// Result reports what a status message resolved to.
type Result struct {
	InstanceID      int64
	GroupID         int64
	CreatedInstance bool
	CreatedGroup    bool
}

// ProcessStatus reconciles one status/event message. A lookup miss or
// an absent advisory id rejects the message before any persistence.
func (r *Reconciler) ProcessStatus(ctx context.Context, queue string, msg types.Message) (*Result, error) {
	siteName := msg.Field("physical_location")
	eventName := msg.Field("event_type")
	stateName := msg.Field("state")
	advisory := msg.FieldOr("advisory_number", "N/A")

	siteID := r.lookup.Site(siteName)
	eventID := r.lookup.EventType(eventName)
	stateID := r.lookup.StateType(stateName)

	if siteID < 0 || eventID < 0 || stateID < 0 || advisory == "N/A" {
		return nil, r.reject(ctx, queue,
			"invalid status message: site=%q event=%q state=%q advisory=%q",
			siteName, eventName, stateName, advisory)
	}

	processID, err := msg.ProcessID()
	if err != nil {
		return nil, r.reject(ctx, queue, "invalid status message: %v", err)
	}

	instanceName := msg.FieldOr("instance_name", "N/A")
	runParams := msg.FieldOr("run_params", "N/A")
	timestamp := msg.Timestamp(r.now())
	event := types.EventType(eventName)
	state := types.StateType(stateName)

	unlock := r.keys.lock(siteID, processID, instanceName)
	defer unlock()

	res := &Result{}

	instanceID, err := r.gateway.FindOpenInstance(ctx, siteID, processID, instanceName)
	if err != nil {
		return nil, r.fail(ctx, queue, "looking up instance", err)
	}

	instState := r.lookup.InstanceState(stateName)
	if instanceID < 0 || (event == types.EventStart && state == types.StateRunning) {
		instanceID, err = r.gateway.CreateInstance(ctx, instState, siteID, processID, instanceName, runParams, timestamp)
		if err != nil {
			return nil, r.fail(ctx, queue, "creating instance", err)
		}
		res.CreatedInstance = true
		metrics.InstancesCreated.Add(1)
	} else {
		if err := r.gateway.UpdateInstance(ctx, instanceID, instState, timestamp, runParams); err != nil {
			return nil, r.fail(ctx, queue, "updating instance", err)
		}
		metrics.InstancesUpdated.Add(1)
	}

	if instanceID < 0 {
		return nil, r.reject(ctx, queue,
			"no usable instance id for site=%d process=%d name=%q", siteID, processID, instanceName)
	}
	res.InstanceID = instanceID

	stormName := msg.FieldOr("storm", "N/A")
	stormNumber := msg.FieldOr("storm_number", "N/A")

	groupID, err := r.gateway.FindEventGroup(ctx, instanceID, advisory)
	if err != nil {
		return nil, r.fail(ctx, queue, "looking up event group", err)
	}

	if groupID < 0 || event == types.EventRestart {
		groupID, err = r.gateway.CreateEventGroup(ctx, stateID, instanceID, timestamp, stormName, stormNumber, advisory)
		if err != nil {
			return nil, r.fail(ctx, queue, "creating event group", err)
		}
		if groupID < 0 {
			return nil, r.reject(ctx, queue, "no usable event group id for instance=%d advisory=%q", instanceID, advisory)
		}
		res.CreatedGroup = true
		metrics.EventGroupsCreated.Add(1)
	} else {
		groupState := stateID
		if event == types.EventForecastEnd || event == types.EventRunEnd {
			groupState = r.lookup.StateType(string(types.StateExit))
		}
		if err := r.gateway.UpdateEventGroupState(ctx, groupID, groupState, stormName, advisory); err != nil {
			return nil, r.fail(ctx, queue, "updating event group", err)
		}
	}
	res.GroupID = groupID

	pct := r.lookup.PctComplete(eventID)
	subPct := msg.Field("subpctcomplete")
	if subPct != "" {
		if n, convErr := strconv.Atoi(subPct); convErr == nil {
			pct = n
		}
	}

	ev := store.Event{
		SiteID:         siteID,
		GroupID:        groupID,
		EventTypeID:    eventID,
		Timestamp:      timestamp,
		AdvisoryID:     advisory,
		PctComplete:    pct,
		SubPctComplete: subPct,
		Process:        msg.FieldOr("process", "N/A"),
		RawMessage:     stripRaw(msg.Field("message")),
	}
	if err := r.gateway.InsertEvent(ctx, ev); err != nil {
		return nil, r.fail(ctx, queue, "inserting event", err)
	}
	metrics.EventsInserted.Add(1)

	r.logger.Info("status message reconciled",
		"queue", queue,
		"instance_id", instanceID,
		"group_id", groupID,
		"event_type", eventName,
		"created_instance", res.CreatedInstance,
		"created_group", res.CreatedGroup)

	return res, nil
}

// ProcessRunProperties replaces the configuration items for the run the
// message belongs to. The run instance must already exist; this path
// never creates one.
func (r *Reconciler) ProcessRunProperties(ctx context.Context, queue string, workflow types.WorkflowType, params map[string]string) error {
	siteName := params["physical_location"]
	siteID := r.lookup.Site(siteName)
	if siteID < 0 {
		return r.reject(ctx, queue, "invalid run-properties message: unknown site %q", siteName)
	}
	if r.accepted != nil && !r.accepted[siteID] {
		return r.reject(ctx, queue, "run-properties message from non-accepted site %q", siteName)
	}

	processID, err := parseProcessID(params["uid"])
	if err != nil {
		return r.reject(ctx, queue, "invalid run-properties message: %v", err)
	}
	instanceName := valueOr(params["instance_name"], "N/A")

	unlock := r.keys.lock(siteID, processID, instanceName)
	defer unlock()

	instanceID, err := r.gateway.FindOpenInstance(ctx, siteID, processID, instanceName)
	if err != nil {
		return r.fail(ctx, queue, "looking up instance", err)
	}
	if instanceID < 0 {
		return r.reject(ctx, queue,
			"no open instance for run-properties message: site=%q process=%d name=%q",
			siteName, processID, instanceName)
	}

	advisory := params["advisory"]
	enstorm := params["enstorm"]
	if enstorm == "" {
		enstorm = params["asgs.enstorm"]
	}
	// Without both there is no uid to key the batch by; the original
	// handler drops such batches rather than guessing.
	if advisory == "" || enstorm == "" {
		return r.reject(ctx, queue,
			"run-properties message missing advisory or enstorm: advisory=%q enstorm=%q", advisory, enstorm)
	}
	uid := advisory + "-" + enstorm

	items := make(map[string]string, len(params)+4)
	for k, v := range params {
		items[k] = v
	}
	items["workflow_type"] = string(workflow)
	items["supervisor_job_status"] = "new"
	items["insertion_date"] = r.now().Format(types.TimeLayout)
	if workflow == types.WorkflowASGS {
		items["product_code"] = "asgs"
	}

	if err := r.gateway.ReplaceConfigItems(ctx, instanceID, uid, items); err != nil {
		return r.fail(ctx, queue, "replacing config items", err)
	}
	metrics.ConfigItemsReplaced.Add(1)

	r.logger.Info("run properties reconciled",
		"queue", queue,
		"instance_id", instanceID,
		"uid", uid,
		"workflow", workflow,
		"items", len(items))

	return nil
}

func (r *Reconciler) reject(ctx context.Context, queue, format string, args ...any) error {
	err := fmt.Errorf(format, args...)
	r.logger.Error("message rejected", "queue", queue, "error", err)
	r.alert(ctx, queue, err.Error())
	return err
}

func (r *Reconciler) fail(ctx context.Context, queue, op string, err error) error {
	wrapped := fmt.Errorf("%s: %w", op, err)
	r.logger.Error("reconciliation failed", "queue", queue, "error", wrapped)
	r.alert(ctx, queue, wrapped.Error())
	return wrapped
}

func (r *Reconciler) alert(ctx context.Context, queue, message string) {
	if r.alertFn == nil {
		return
	}
	r.alertFn(ctx, types.Alert{
		Level:     types.AlertLevelError,
		Queue:     queue,
		Message:   message,
		Timestamp: r.now(),
	})
}

func parseProcessID(uid string) (int, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return 0, nil
	}
	id, err := strconv.Atoi(uid)
	if err != nil {
		return 0, fmt.Errorf("non-numeric uid %q: %w", uid, err)
	}
	return id, nil
}

func valueOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// stripRaw removes the characters the store schema cannot carry in the
// raw message column.
func stripRaw(s string) string {
	return strings.NewReplacer(`\`, "", `'`, "", `"`, "").Replace(s)
}
