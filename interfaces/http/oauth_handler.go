package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"postbridge/domain/repository"
	"postbridge/infrastructure/logger"
	"postbridge/usecase"
)

type IOAuthHandler interface {
	Connections(c *gin.Context)
	DeleteConnection(c *gin.Context)
	Start(c *gin.Context)
	Callback(c *gin.Context)
	Status(c *gin.Context)
	Select(c *gin.Context)
	Confirm(c *gin.Context)
	Reset(c *gin.Context)
}

type OAuthHandler struct {
	linkUsecase usecase.ILinkUsecase
	platformAPI repository.IPlatformAPI
	providers   map[string]struct{}
}

func NewOAuthHandler(linkUsecase usecase.ILinkUsecase, platformAPI repository.IPlatformAPI, providers []string) IOAuthHandler {
	allowed := make(map[string]struct{}, len(providers))
	for _, p := range providers {
		allowed[p] = struct{}{}
	}
	return &OAuthHandler{linkUsecase: linkUsecase, platformAPI: platformAPI, providers: allowed}
}

func (h *OAuthHandler) provider(c *gin.Context) (string, bool) {
	provider := c.Param("provider")
	if _, ok := h.providers[provider]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Unknown provider."})
		return "", false
	}
	return provider, true
}

func (h *OAuthHandler) Connections(c *gin.Context) {
	res, err := h.platformAPI.Connections(c.Request.Context())
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("failed listing connections")
		c.JSON(http.StatusBadGateway, gin.H{"message": "Unable to load your connected accounts right now."})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *OAuthHandler) DeleteConnection(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid connection id."})
		return
	}
	if err := h.platformAPI.DeleteConnection(c.Request.Context(), id); err != nil {
		logger.GetLogger().WithField("connectionId", id).WithField("error", err).Error("failed deleting connection")
		c.JSON(http.StatusBadGateway, gin.H{"message": "Unable to disconnect that account right now."})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *OAuthHandler) Start(c *gin.Context) {
	provider, ok := h.provider(c)
	if !ok {
		return
	}
	status := h.linkUsecase.Start(c.Request.Context(), provider)
	c.JSON(http.StatusOK, status)
}

// Callback is the browser redirect target for every provider. It never errors
// at the HTTP level: the flow status carries the outcome, including failures.
func (h *OAuthHandler) Callback(c *gin.Context) {
	provider, ok := h.provider(c)
	if !ok {
		return
	}
	status := h.linkUsecase.HandleCallback(c.Request.Context(), provider, c.Request.URL.Query())
	c.JSON(http.StatusOK, status)
}

func (h *OAuthHandler) Status(c *gin.Context) {
	provider, ok := h.provider(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.linkUsecase.Status(provider))
}

func (h *OAuthHandler) Select(c *gin.Context) {
	provider, ok := h.provider(c)
	if !ok {
		return
	}
	var req struct {
		CandidateID string `json:"candidateId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	status := h.linkUsecase.SelectCandidate(c.Request.Context(), provider, req.CandidateID)
	c.JSON(http.StatusOK, status)
}

func (h *OAuthHandler) Confirm(c *gin.Context) {
	provider, ok := h.provider(c)
	if !ok {
		return
	}
	status := h.linkUsecase.ConfirmSelection(c.Request.Context(), provider)
	c.JSON(http.StatusOK, status)
}

func (h *OAuthHandler) Reset(c *gin.Context) {
	provider, ok := h.provider(c)
	if !ok {
		return
	}
	h.linkUsecase.Reset(provider)
	c.Status(http.StatusNoContent)
}
