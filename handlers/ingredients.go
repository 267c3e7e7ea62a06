package handlers

import (
	"net/http"

	"bitbucket.org/mmdatafocus/bakery_backend/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func (h *Handler) createIngredient(c *gin.Context) {
	var input models.NewIngredient
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	ingredient, err := h.Catalog.CreateIngredient(c.Request.Context(), principal(c), input)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Ingredient added", ingredient)
}

func (h *Handler) updateIngredient(c *gin.Context) {
	id, ok := pathId(c, "ingredientId")
	if !ok {
		return
	}
	var input models.NewIngredient
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	ingredient, err := h.Catalog.UpdateIngredient(c.Request.Context(), principal(c), id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Ingredient updated", ingredient)
}

func (h *Handler) deleteIngredient(c *gin.Context) {
	id, ok := pathId(c, "ingredientId")
	if !ok {
		return
	}
	ingredient, err := h.Catalog.DeleteIngredient(c.Request.Context(), principal(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Ingredient deleted", ingredient)
}

func (h *Handler) getIngredient(c *gin.Context) {
	id, ok := pathId(c, "ingredientId")
	if !ok {
		return
	}
	ingredient, err := h.Catalog.GetIngredient(c.Request.Context(), principal(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Ingredient", ingredient)
}

func (h *Handler) listIngredients(c *gin.Context) {
	ingredients, err := h.Catalog.ListIngredients(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Ingredients", ingredients)
}

type stockRequest struct {
	Amount *decimal.Decimal `json:"amount"`
}

func (h *Handler) increaseStock(c *gin.Context) {
	h.adjustStock(c, true)
}

func (h *Handler) decreaseStock(c *gin.Context) {
	h.adjustStock(c, false)
}

func (h *Handler) adjustStock(c *gin.Context, increase bool) {
	id, ok := pathId(c, "ingredientId")
	if !ok {
		return
	}
	var req stockRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Amount == nil {
		badRequest(c, "amount is required")
		return
	}

	ctx, p := c.Request.Context(), principal(c)
	var ingredient *models.Ingredient
	var err error
	if increase {
		ingredient, err = h.Catalog.IncreaseStock(ctx, p, id, *req.Amount)
	} else {
		ingredient, err = h.Catalog.DecreaseStock(ctx, p, id, *req.Amount)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Stock updated", ingredient)
}
