package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"postbridge/domain/model"
	"postbridge/infrastructure/logger"
	"postbridge/usecase"
)

type IPublishingHandler interface {
	List(c *gin.Context)
	Attempts(c *gin.Context)
	Retry(c *gin.Context)
	Cancel(c *gin.Context)
	Create(c *gin.Context)
	Remove(c *gin.Context)
}

type PublishingHandler struct {
	publishingUsecase usecase.IPublishingUsecase
}

func NewPublishingHandler(publishingUsecase usecase.IPublishingUsecase) IPublishingHandler {
	return &PublishingHandler{publishingUsecase: publishingUsecase}
}

func jobID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid job id."})
		return 0, false
	}
	return id, true
}

func (h *PublishingHandler) List(c *gin.Context) {
	var opts model.JobListOptions
	if err := c.ShouldBindQuery(&opts); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	jobs, err := h.publishingUsecase.Refresh(c.Request.Context(), opts)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("failed refreshing job list")
		c.JSON(http.StatusBadGateway, gin.H{"message": "Unable to load your publishing jobs right now."})
		return
	}
	c.JSON(http.StatusOK, jobs)
}

func (h *PublishingHandler) Attempts(c *gin.Context) {
	id, ok := jobID(c)
	if !ok {
		return
	}
	attempts, err := h.publishingUsecase.Attempts(c.Request.Context(), id)
	if err != nil {
		logger.GetLogger().WithField("jobId", id).WithField("error", err).Error("failed loading attempt history")
		c.JSON(http.StatusBadGateway, gin.H{"message": "Unable to load the attempt history right now."})
		return
	}
	c.JSON(http.StatusOK, attempts)
}

func (h *PublishingHandler) Retry(c *gin.Context) {
	id, ok := jobID(c)
	if !ok {
		return
	}
	if err := h.publishingUsecase.Retry(c.Request.Context(), id); err != nil {
		h.renderMutationError(c, id, err, "Unable to retry that job right now.")
		return
	}
	c.JSON(http.StatusOK, h.publishingUsecase.Jobs())
}

func (h *PublishingHandler) Cancel(c *gin.Context) {
	id, ok := jobID(c)
	if !ok {
		return
	}
	if err := h.publishingUsecase.Cancel(c.Request.Context(), id); err != nil {
		h.renderMutationError(c, id, err, "Unable to cancel that job right now.")
		return
	}
	c.JSON(http.StatusOK, h.publishingUsecase.Jobs())
}

func (h *PublishingHandler) Create(c *gin.Context) {
	var req model.ReqCreateJob
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.GetLogger().WithField("error", err).Error(ErrorUnmarshal)
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	job, err := h.publishingUsecase.Create(c.Request.Context(), req)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("failed creating job")
		c.JSON(http.StatusBadGateway, gin.H{"message": "Unable to schedule that post right now."})
		return
	}
	c.JSON(http.StatusCreated, job)
}

func (h *PublishingHandler) Remove(c *gin.Context) {
	id, ok := jobID(c)
	if !ok {
		return
	}
	h.publishingUsecase.RemoveLocally(id)
	c.Status(http.StatusNoContent)
}

func (h *PublishingHandler) renderMutationError(c *gin.Context, id int, err error, fallback string) {
	if errors.Is(err, usecase.ErrOperationInFlight) {
		c.JSON(http.StatusConflict, gin.H{"message": "That job already has a retry or cancel running."})
		return
	}
	logger.GetLogger().WithField("jobId", id).WithField("error", err).Error("job mutation failed")
	message := fallback
	if apiErr, ok := model.AsAPIError(err); ok && apiErr.Detail != "" {
		message = apiErr.Detail
	}
	c.JSON(http.StatusBadGateway, gin.H{"message": message})
}
