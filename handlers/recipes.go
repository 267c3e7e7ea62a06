package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type recipeLineRequest struct {
	Quantity *decimal.Decimal `json:"quantity"`
}

func (h *Handler) upsertRecipeLine(c *gin.Context) {
	cakeId, ok := pathId(c, "cakeId")
	if !ok {
		return
	}
	ingredientId, ok := pathId(c, "ingredientId")
	if !ok {
		return
	}
	var req recipeLineRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Quantity == nil {
		badRequest(c, "quantity is required")
		return
	}
	line, err := h.Catalog.UpsertRecipeLine(c.Request.Context(), principal(c), cakeId, ingredientId, *req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Recipe updated", line)
}

func (h *Handler) removeRecipeLine(c *gin.Context) {
	cakeId, ok := pathId(c, "cakeId")
	if !ok {
		return
	}
	ingredientId, ok := pathId(c, "ingredientId")
	if !ok {
		return
	}
	if err := h.Catalog.RemoveRecipeLine(c.Request.Context(), principal(c), cakeId, ingredientId); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Ingredient removed from recipe", nil)
}

func (h *Handler) listRecipeLines(c *gin.Context) {
	cakeId, ok := pathId(c, "cakeId")
	if !ok {
		return
	}
	lines, err := h.Catalog.ListRecipeLines(c.Request.Context(), principal(c), cakeId)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Recipe", lines)
}

func (h *Handler) listRecipes(c *gin.Context) {
	recipes, err := h.Catalog.ListRecipes(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Recipes", recipes)
}

func (h *Handler) listIngredientsInCake(c *gin.Context) {
	cakeId, ok := pathId(c, "cakeId")
	if !ok {
		return
	}
	ingredients, err := h.Catalog.ListIngredientsInCake(c.Request.Context(), principal(c), cakeId)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Ingredients in cake", ingredients)
}

func (h *Handler) listIngredientsNotInCake(c *gin.Context) {
	cakeId, ok := pathId(c, "cakeId")
	if !ok {
		return
	}
	ingredients, err := h.Catalog.ListIngredientsNotInCake(c.Request.Context(), principal(c), cakeId)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Ingredients not in cake", ingredients)
}
