package handlers

import (
	"net/http"

	"bitbucket.org/mmdatafocus/bakery_backend/middlewares"
	"bitbucket.org/mmdatafocus/bakery_backend/models"
	"github.com/gin-gonic/gin"
)

func (h *Handler) register(c *gin.Context) {
	var input models.NewUser
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	user, err := h.Users.Register(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Account created", user)
}

func (h *Handler) login(c *gin.Context) {
	var input models.LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	info, err := h.Users.Login(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header(middlewares.AuthTokenHeader, info.Token)
	respond(c, http.StatusOK, "Successfully logged in", info)
}

func (h *Handler) me(c *gin.Context) {
	user, err := h.Users.Me(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Signed in", user)
}

func (h *Handler) myRights(c *gin.Context) {
	rights, err := h.Users.MyRights(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Rights", rights)
}
