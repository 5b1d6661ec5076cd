// Package handler adapts each message dialect onto the shared
// reconciler: decode, normalize, reconcile, relay.
package handler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/surgewatch/runmon/internal/normalize"
	"github.com/surgewatch/runmon/internal/queue"
	"github.com/surgewatch/runmon/internal/reconcile"
	"github.com/surgewatch/runmon/internal/store"
	"github.com/surgewatch/runmon/pkg/types"
)

// Handler builds the per-queue handler functions. All dialects share
// one reconciler; the handlers differ only in decoding and
// normalization.
type Handler struct {
	reconciler *reconcile.Reconciler
	gateway    store.Gateway
	relay      *queue.Relay
	logger     *slog.Logger
	alertFn    reconcile.AlertFunc
}

// New creates a Handler. relay may be nil when relaying is not wired.
func New(rec *reconcile.Reconciler, gw store.Gateway, relay *queue.Relay, logger *slog.Logger, alertFn reconcile.AlertFunc) *Handler {
	return &Handler{
		reconciler: rec,
		gateway:    gw,
		relay:      relay,
		logger:     logger,
		alertFn:    alertFn,
	}
}

// Status handles the legacy status/event dialect. A relay failure fails
// the handler result; the event insert is not rolled back.
func (h *Handler) Status(queueName string) queue.HandlerFunc {
	return func(ctx context.Context, body []byte) error {
		msg, err := h.decode(ctx, queueName, body)
		if err != nil {
			return err
		}
		h.archive(ctx, queueName, body)

		if _, err := h.reconciler.ProcessStatus(ctx, queueName, msg); err != nil {
			return err
		}
		return h.relayBody(ctx, queueName, body)
	}
}

// identityFields are carried at the top level of a legacy ASGS
// run-properties message, outside its param_list.
var identityFields = []string{"physical_location", "uid", "instance_name"}

// ASGSRunProperties handles the legacy pair-list run-properties
// dialect. Its keys already carry the legacy names, so no alias
// normalization applies; the top-level identity fields are folded into
// the parameter map.
func (h *Handler) ASGSRunProperties(queueName string) queue.HandlerFunc {
	return func(ctx context.Context, body []byte) error {
		msg, err := h.decode(ctx, queueName, body)
		if err != nil {
			return err
		}
		h.archive(ctx, queueName, body)

		params, err := types.DecodePairList(msg)
		if err != nil {
			return h.malformed(ctx, queueName, err)
		}
		for _, key := range identityFields {
			if msg.Has(key) {
				params[key] = msg.Field(key)
			}
		}

		if err := h.reconciler.ProcessRunProperties(ctx, queueName, types.WorkflowASGS, params); err != nil {
			return err
		}
		return h.relayBody(ctx, queueName, body)
	}
}

// ECFlowRunProperties handles the ECFLOW flat dialect.
func (h *Handler) ECFlowRunProperties(queueName string) queue.HandlerFunc {
	return h.flatRunProperties(queueName, types.WorkflowECFlow, normalize.ECFlowRules())
}

// HECRASRunProperties handles the HEC/RAS flat dialect.
func (h *Handler) HECRASRunProperties(queueName string) queue.HandlerFunc {
	return h.flatRunProperties(queueName, types.WorkflowHECRAS, normalize.HECRASRules())
}

func (h *Handler) flatRunProperties(queueName string, workflow types.WorkflowType, rules normalize.Rules) queue.HandlerFunc {
	return func(ctx context.Context, body []byte) error {
		msg, err := h.decode(ctx, queueName, body)
		if err != nil {
			return err
		}
		h.archive(ctx, queueName, body)

		params := rules.Apply(msg.Params())

		if err := h.reconciler.ProcessRunProperties(ctx, queueName, workflow, params); err != nil {
			return err
		}
		return h.relayBody(ctx, queueName, body)
	}
}

func (h *Handler) decode(ctx context.Context, queueName string, body []byte) (types.Message, error) {
	msg, err := types.DecodeMessage(body)
	if err != nil {
		return nil, h.malformed(ctx, queueName, err)
	}
	return msg, nil
}

func (h *Handler) malformed(ctx context.Context, queueName string, err error) error {
	wrapped := fmt.Errorf("malformed message: %w", err)
	h.logger.Error("dropping malformed message", "queue", queueName, "error", err)
	if h.alertFn != nil {
		h.alertFn(ctx, types.Alert{
			Level:     types.AlertLevelError,
			Queue:     queueName,
			Message:   wrapped.Error(),
			Timestamp: time.Now(),
		})
	}
	return wrapped
}

// archive is best effort; a full archive table must not block message
// processing.
func (h *Handler) archive(ctx context.Context, queueName string, body []byte) {
	if err := h.gateway.SaveRawMessage(ctx, queueName, body); err != nil {
		h.logger.Warn("raw message archive failed", "queue", queueName, "error", err)
	}
}

func (h *Handler) relayBody(ctx context.Context, queueName string, body []byte) error {
	if h.relay == nil {
		return nil
	}
	if err := h.relay.Publish(ctx, body, false); err != nil {
		h.logger.Error("relay failed", "queue", queueName, "error", err)
		if h.alertFn != nil {
			h.alertFn(ctx, types.Alert{
				Level:     types.AlertLevelError,
				Queue:     queueName,
				Message:   err.Error(),
				Timestamp: time.Now(),
			})
		}
		return err
	}
	return nil
}
