package handler

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surgewatch/runmon/internal/lookup"
	"github.com/surgewatch/runmon/internal/queue"
	"github.com/surgewatch/runmon/internal/reconcile"
	"github.com/surgewatch/runmon/internal/store"
	"github.com/surgewatch/runmon/internal/store/sqlite"
	"github.com/surgewatch/runmon/pkg/types"
)

type capturePublisher struct {
	mu        sync.Mutex
	published []*message.Message
	err       error
}

func (p *capturePublisher) Publish(_ string, msgs ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, msgs...)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

type fixture struct {
	handler *Handler
	gateway store.Gateway
	pub     *capturePublisher
	alerts  *[]types.Alert
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	client, err := sqlite.Open(":memory:", slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	lu := lookup.Defaults()
	alerts := &[]types.Alert{}
	alertFn := func(_ context.Context, a types.Alert) { *alerts = append(*alerts, a) }

	rec := reconcile.New(client, lu, nil, slog.Default(), alertFn)

	pub := &capturePublisher{}
	relay := queue.NewRelay(pub, "relay_queue", true, "", slog.Default())

	return &fixture{
		handler: New(rec, client, relay, slog.Default(), alertFn),
		gateway: client,
		pub:     pub,
		alerts:  alerts,
	}
}

func TestStatusHandler_EndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	body := []byte(`{"physical_location":"RENCI","event_type":"RSTR","state":"RUNN","advisory_number":"01","uid":"100","instance_name":"run1"}`)
	require.NoError(t, f.handler.Status("status")(ctx, body))

	// One open instance for the key, one event group for the advisory,
	// and one relay attempt.
	instanceID, err := f.gateway.FindOpenInstance(ctx, 0, 100, "run1")
	require.NoError(t, err)
	assert.Greater(t, instanceID, int64(0))

	groupID, err := f.gateway.FindEventGroup(ctx, instanceID, "01")
	require.NoError(t, err)
	assert.Greater(t, groupID, int64(0))

	assert.Equal(t, 1, f.pub.count())
	assert.Empty(t, *f.alerts)
}

func TestStatusHandler_MalformedBody(t *testing.T) {
	f := newFixture(t)

	err := f.handler.Status("status")(context.Background(), []byte(`{not json`))
	require.Error(t, err)
	assert.Zero(t, f.pub.count())
	assert.Len(t, *f.alerts, 1)
}

func TestStatusHandler_RejectedMessageIsNotRelayed(t *testing.T) {
	f := newFixture(t)

	body := []byte(`{"physical_location":"NOWHERE","event_type":"RSTR","state":"RUNN","advisory_number":"01","uid":"100"}`)
	err := f.handler.Status("status")(context.Background(), body)
	require.Error(t, err)
	assert.Zero(t, f.pub.count())
}

func TestStatusHandler_RelayFailureFailsHandler(t *testing.T) {
	f := newFixture(t)
	f.pub.err = assert.AnError
	ctx := context.Background()

	body := []byte(`{"physical_location":"RENCI","event_type":"RSTR","state":"RUNN","advisory_number":"01","uid":"100","instance_name":"run1"}`)
	err := f.handler.Status("status")(ctx, body)
	require.Error(t, err)

	// The event insert is not rolled back by the relay failure.
	instanceID, findErr := f.gateway.FindOpenInstance(ctx, 0, 100, "run1")
	require.NoError(t, findErr)
	assert.Greater(t, instanceID, int64(0))
}

func TestASGSRunPropertiesHandler(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	status := []byte(`{"physical_location":"RENCI","event_type":"STRT","state":"RUNN","advisory_number":"2024091612","uid":"100","instance_name":"run1"}`)
	require.NoError(t, f.handler.Status("status")(ctx, status))

	// The legacy dialect carries the identity fields at the top level
	// and param_list as ["key", "value"] pairs.
	props := []byte(`{"physical_location":"RENCI","uid":"100","instance_name":"run1","param_list":[
		["advisory","2024091612"],
		["enstorm","namforecast"],
		["ADCIRCgrid","ec95d"]
	]}`)
	require.NoError(t, f.handler.ASGSRunProperties("asgs_props")(ctx, props))

	assert.Equal(t, 2, f.pub.count())
	assert.Empty(t, *f.alerts)
}

func TestECFlowRunTimeStatusHandler(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// ECFLOW run-time status messages carry the status dialect on their
	// own queue and run through the same pipeline.
	body := []byte(`{"physical_location":"RENCI","event_type":"STRT","state":"RUNN","advisory_number":"2024091612","uid":"555","instance_name":"rt1"}`)
	require.NoError(t, f.handler.Status("ecflow_rt")(ctx, body))

	instanceID, err := f.gateway.FindOpenInstance(ctx, 0, 555, "rt1")
	require.NoError(t, err)
	assert.Greater(t, instanceID, int64(0))
	assert.Equal(t, 1, f.pub.count())
}

func TestECFlowRunPropertiesHandler_NormalizesSuiteKeys(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	status := []byte(`{"physical_location":"RENCI","event_type":"STRT","state":"RUNN","advisory_number":"2024091612","uid":"89436","instance_name":"ec95d"}`)
	require.NoError(t, f.handler.Status("status")(ctx, status))

	// The ECFLOW dialect carries suite-scoped keys; the normalizer must
	// surface the legacy names before reconciliation.
	props := []byte(`{
		"suite.physical_location":"RENCI",
		"suite.uid":"89436",
		"suite.instance_name":"ec95d",
		"forcing.advisory":"2024091612",
		"forcing.ensemblename":"NAMforecast"
	}`)
	require.NoError(t, f.handler.ECFlowRunProperties("ecflow_rp")(ctx, props))
	assert.Empty(t, *f.alerts)
}

func TestHECRASRunPropertiesHandler_NoOpenInstance(t *testing.T) {
	f := newFixture(t)

	props := []byte(`{"suite.physical_location":"RENCI","suite.uid":"1","suite.instance_name":"missing"}`)
	err := f.handler.HECRASRunProperties("hecras_rp")(context.Background(), props)
	require.Error(t, err)
	assert.Zero(t, f.pub.count())
	assert.Len(t, *f.alerts, 1)
}
