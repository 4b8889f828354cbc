package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"socialhub/domain/dto"
	"socialhub/usecase"
)

type IPublishHandler interface {
	Publish(ctx *gin.Context)
	PublishFanOut(ctx *gin.Context)
	Posts(ctx *gin.Context)
	Comments(ctx *gin.Context)
	Analytics(ctx *gin.Context)
}

type publishHandler struct {
	publishUsecase usecase.IPublishUsecase
}

func NewPublishHandler(publishUsecase usecase.IPublishUsecase) IPublishHandler {
	return &publishHandler{publishUsecase: publishUsecase}
}

func (h *publishHandler) Publish(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: "invalid account id"})
		return
	}
	var body dto.PublishRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: err.Error()})
		return
	}
	result, err := h.publishUsecase.Publish(c.Request.Context(), id, &body)
	if err != nil {
		h.publishError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "Success", Data: result})
}

// PublishFanOut pushes one payload to several accounts; per-target results
// are returned even when some targets fail.
func (h *publishHandler) PublishFanOut(c *gin.Context) {
	var body struct {
		AccountIDs []int64            `json:"account_ids" binding:"required"`
		Post       dto.PublishRequest `json:"post" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: err.Error()})
		return
	}
	results := h.publishUsecase.PublishFanOut(c.Request.Context(), body.AccountIDs, &body.Post)
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "Success", Data: results})
}

func (h *publishHandler) Posts(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: "invalid account id"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "25"))
	result, err := h.publishUsecase.FetchPosts(c.Request.Context(), id, c.Query("cursor"), limit)
	if err != nil {
		h.publishError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "Success", Data: result})
}

func (h *publishHandler) Comments(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: "invalid account id"})
		return
	}
	postID := c.Param("postId")
	result, err := h.publishUsecase.FetchComments(c.Request.Context(), id, postID, c.Query("cursor"))
	if err != nil {
		h.publishError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "Success", Data: result})
}

func (h *publishHandler) Analytics(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: "invalid account id"})
		return
	}
	result, err := h.publishUsecase.GetAnalytics(c.Request.Context(), id)
	if err != nil {
		h.publishError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "Success", Data: result})
}

func (h *publishHandler) publishError(c *gin.Context, err error) {
	if errors.Is(err, usecase.ErrAccountNotFound) {
		c.JSON(http.StatusNotFound, dto.Res{ResponseCode: "404", ResponseMessage: err.Error()})
		return
	}
	c.JSON(http.StatusBadGateway, dto.Res{ResponseCode: "502", ResponseMessage: err.Error()})
}
