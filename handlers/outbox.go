package handlers

import (
	"net/http"

	"bitbucket.org/mmdatafocus/bakery_backend/models"
	"github.com/gin-gonic/gin"
)

func (h *Handler) listOutbox(c *gin.Context) {
	status := c.DefaultQuery("status", models.OutboxPublishStatusDead)
	records, err := h.Outbox.ListByStatus(c.Request.Context(), principal(c), status)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Outbox records", records)
}

func (h *Handler) replayOutbox(c *gin.Context) {
	recordId, ok := pathId(c, "recordId")
	if !ok {
		return
	}
	record, err := h.Outbox.Replay(c.Request.Context(), principal(c), recordId)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Outbox record requeued", record)
}
