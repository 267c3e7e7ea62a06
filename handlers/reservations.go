package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"bitbucket.org/mmdatafocus/bakery_backend/models"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (h *Handler) createReservation(c *gin.Context) {
	var input models.NewReservation
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	reservation, err := h.Reservations.Create(c.Request.Context(), principal(c), input)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Reservation placed", reservation)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) updateReservationStatus(c *gin.Context) {
	id, ok := pathId(c, "reservationId")
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	reservation, err := h.Reservations.UpdateStatus(c.Request.Context(), principal(c), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Reservation updated", reservation)
}

func (h *Handler) cancelReservation(c *gin.Context) {
	id, ok := pathId(c, "reservationId")
	if !ok {
		return
	}
	reservation, err := h.Reservations.Cancel(c.Request.Context(), principal(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Reservation cancelled", reservation)
}

func (h *Handler) listReservationsForAdmin(c *gin.Context) {
	reservations, err := h.Reservations.ListForAdmin(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Reservations", reservations)
}

func (h *Handler) listReservationsForCustomer(c *gin.Context) {
	reservations, err := h.Reservations.ListForCustomer(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Reservations", reservations)
}

func (h *Handler) listBoughtCakes(c *gin.Context) {
	bought, err := h.Reservations.ListBoughtCakes(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Bought cakes", bought)
}

func (h *Handler) listBoughtCakesForCustomer(c *gin.Context) {
	bought, err := h.Reservations.ListBoughtCakesForCustomer(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Bought cakes", bought)
}

// exportBoughtCakes renders the whole workbook before writing so a failure still gets a JSON error.
func (h *Handler) exportBoughtCakes(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.Reservations.ExportBoughtCakes(c.Request.Context(), principal(c), &buf); err != nil {
		respondError(c, err)
		return
	}
	filename := fmt.Sprintf("bought-cakes-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
