package handlers

import (
	"bitbucket.org/mmdatafocus/bakery_backend/middlewares"
	"bitbucket.org/mmdatafocus/bakery_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Handler exposes the workflow services over HTTP.
type Handler struct {
	Users        *workflow.Users
	Catalog      *workflow.Catalog
	Production   *workflow.ProductionScaler
	Reservations *workflow.ReservationLifecycle
	Outbox       *workflow.OutboxOps
	Logger       *logrus.Logger
}

func principal(c *gin.Context) *workflow.Principal {
	return middlewares.CtxPrincipal(c.Request.Context())
}

// Register mounts every endpoint under group. Everything except register and login needs a principal.
func (h *Handler) Register(group *gin.RouterGroup) {
	users := group.Group("/users")
	users.POST("/register", h.register)
	users.POST("/login", h.login)

	authed := group.Group("", middlewares.RequireAuth())
	authed.GET("/users/me", h.me)
	authed.GET("/rights", h.myRights)

	cakes := authed.Group("/cakes")
	cakes.GET("", h.listCakes)
	cakes.GET("/available", h.listAvailableCakes)
	cakes.GET("/remaining", h.listRemainingCakes)
	cakes.POST("", h.createCake)
	cakes.POST("/photo", h.uploadCakePhoto)
	cakes.GET("/:cakeId", h.getCake)
	cakes.PUT("/:cakeId", h.updateCake)
	cakes.DELETE("/:cakeId", h.deleteCake)
	cakes.POST("/:cakeId/produce", h.produce)
	cakes.GET("/:cakeId/recipe", h.listRecipeLines)
	cakes.PUT("/:cakeId/recipe/:ingredientId", h.upsertRecipeLine)
	cakes.DELETE("/:cakeId/recipe/:ingredientId", h.removeRecipeLine)
	cakes.GET("/:cakeId/ingredients", h.listIngredientsInCake)
	cakes.GET("/:cakeId/ingredients/missing", h.listIngredientsNotInCake)
	authed.GET("/recipes", h.listRecipes)

	ingredients := authed.Group("/ingredients")
	ingredients.GET("", h.listIngredients)
	ingredients.POST("", h.createIngredient)
	ingredients.GET("/:ingredientId", h.getIngredient)
	ingredients.PUT("/:ingredientId", h.updateIngredient)
	ingredients.DELETE("/:ingredientId", h.deleteIngredient)
	ingredients.POST("/:ingredientId/increase", h.increaseStock)
	ingredients.POST("/:ingredientId/decrease", h.decreaseStock)

	reservations := authed.Group("/reservations")
	reservations.POST("", h.createReservation)
	reservations.GET("", h.listReservationsForAdmin)
	reservations.GET("/mine", h.listReservationsForCustomer)
	reservations.PUT("/:reservationId/status", h.updateReservationStatus)
	reservations.DELETE("/:reservationId", h.cancelReservation)

	reports := authed.Group("/reports")
	reports.GET("/bought-cakes", h.listBoughtCakes)
	reports.GET("/bought-cakes/mine", h.listBoughtCakesForCustomer)
	reports.GET("/bought-cakes/export", h.exportBoughtCakes)

	ops := authed.Group("/ops/outbox")
	ops.GET("", h.listOutbox)
	ops.POST("/:recordId/replay", h.replayOutbox)
}
