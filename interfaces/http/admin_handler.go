package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"socialhub/domain/dto"
	"socialhub/domain/model"
	"socialhub/infrastructure/logger"
	"socialhub/usecase"
)

type IAdminHandler interface {
	ForceReauthorization(ctx *gin.Context)
}

type adminHandler struct {
	forceReauth usecase.IForceReauthUsecase
}

func NewAdminHandler(forceReauth usecase.IForceReauthUsecase) IAdminHandler {
	return &adminHandler{forceReauth: forceReauth}
}

// ForceReauthorization bulk-revokes accounts on the named platforms across
// all tenants. Admin-gated by the router.
func (h *adminHandler) ForceReauthorization(c *gin.Context) {
	var body struct {
		Platforms []string `json:"platforms"`
		Reason    string   `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: err.Error()})
		return
	}
	platforms := make([]model.Platform, 0, len(body.Platforms))
	for _, raw := range body.Platforms {
		p, err := model.ParsePlatform(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: err.Error()})
			return
		}
		platforms = append(platforms, p)
	}

	result, err := h.forceReauth.Execute(c.Request.Context(), platforms, body.Reason, c.GetString("user_id"))
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while executing force reauthorization")
		c.JSON(http.StatusInternalServerError, dto.Res{ResponseCode: "500", ResponseMessage: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "Success", Data: result})
}
