// Package stream consumes the preference table's DynamoDB stream and
// invalidates cached views for owners whose rows changed outside this
// process. Deploy [Handler.HandleChange] as a Lambda handler behind the
// table's stream when views are cached across processes; a single-process
// deployment does not need it, since the facade invalidates its own cache
// on every write.
package stream

import (
	"context"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"
)

// ownerAttr is the table's partition key attribute. It holds the owner id.
const ownerAttr = "pk"

// Invalidator drops one owner's cached view.
type Invalidator interface {
	Invalidate(ctx context.Context, ownerID string) error
}

// Handler turns table change records into cache invalidations.
type Handler struct {
	inv    Invalidator
	logger *slog.Logger
}

// NewHandler creates a Handler over the given invalidator. A nil logger
// falls back to slog.Default().
func NewHandler(inv Invalidator, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{inv: inv, logger: logger}
}

// HandleChange invalidates the cached view of every owner the batch
// touches, once per owner. Inserts, modifies, and removes all count: each
// changes what the owner's assembled view would contain. Invalidation is
// best effort; failures are logged and the batch never fails, since the
// cache TTL bounds how long a stale view can live.
func (h *Handler) HandleChange(ctx context.Context, event events.DynamoDBEvent) error {
	if h.inv == nil {
		return nil
	}

	seen := make(map[string]struct{}, len(event.Records))
	for _, record := range event.Records {
		ownerID := getStringAttr(record.Change.Keys, ownerAttr)
		if ownerID == "" {
			h.logger.Warn("stream record without owner key", "eventID", record.EventID)
			continue
		}
		if _, done := seen[ownerID]; done {
			continue
		}
		seen[ownerID] = struct{}{}

		if err := h.inv.Invalidate(ctx, ownerID); err != nil {
			h.logger.Warn("cache invalidation failed", "ownerID", ownerID, "error", err)
			continue
		}
		h.logger.Debug("invalidated cached view", "ownerID", ownerID)
	}
	return nil
}

// getStringAttr extracts a string attribute from a stream image, returning
// "" when the attribute is absent or not a string.
func getStringAttr(image map[string]events.DynamoDBAttributeValue, key string) string {
	attr, ok := image[key]
	if !ok || attr.DataType() != events.DataTypeString {
		return ""
	}
	return attr.String()
}
