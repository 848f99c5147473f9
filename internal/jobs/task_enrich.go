package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"streamvault/internal/metadata"
)

type enrichPayload struct {
	MediaItemID int64 `json:"mediaItemId"`
}

// DispatchEnrich enqueues an async metadata fetch for a newly-indexed item,
// satisfying the indexer.EnrichDispatcher interface.
func (q *Queue) DispatchEnrich(ctx context.Context, mediaItemID int64) error {
	_, err := q.EnqueueUnique(TaskMetadataEnrich, enrichPayload{MediaItemID: mediaItemID},
		fmt.Sprintf("enrich:%d", mediaItemID))
	return err
}

// enrichHandler adapts a metadata.Enricher into an asynq.Handler.
type enrichHandler struct {
	enricher *metadata.Enricher
	logger   *slog.Logger
}

func NewEnrichHandler(enricher *metadata.Enricher, logger *slog.Logger) asynq.Handler {
	return &enrichHandler{enricher: enricher, logger: logger}
}

func (h *enrichHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload enrichPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal enrich payload: %w", err)
	}
	if err := h.enricher.Enrich(ctx, payload.MediaItemID); err != nil {
		h.logger.Warn("metadata enrichment failed", "media_item_id", payload.MediaItemID, "err", err)
		return err
	}
	return nil
}
