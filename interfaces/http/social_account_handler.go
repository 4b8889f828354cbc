package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"socialhub/domain/dto"
	"socialhub/infrastructure/logger"
	"socialhub/usecase"
)

type ISocialAccountHandler interface {
	Connect(ctx *gin.Context)
	Disconnect(ctx *gin.Context)
	Refresh(ctx *gin.Context)
	List(ctx *gin.Context)
	Health(ctx *gin.Context)
	Expiring(ctx *gin.Context)
}

type socialAccountHandler struct {
	accountUsecase usecase.ISocialAccountUsecase
}

func NewSocialAccountHandler(accountUsecase usecase.ISocialAccountUsecase) ISocialAccountHandler {
	return &socialAccountHandler{accountUsecase: accountUsecase}
}

// Connect persists the account after a successful callback exchange. The
// workspace comes from the caller's token, not the request body.
func (h *socialAccountHandler) Connect(c *gin.Context) {
	var body dto.ConnectAccountData
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: err.Error()})
		return
	}
	workspaceID := c.GetInt64("workspace_id")
	userID := c.GetString("user_id")

	account, err := h.accountUsecase.Connect(c.Request.Context(), workspaceID, userID, &body)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while connecting account")
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "Success", Data: account})
}

func (h *socialAccountHandler) Disconnect(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: "invalid account id"})
		return
	}
	revoke := c.DefaultQuery("revoke", "true") == "true"
	if err := h.accountUsecase.Disconnect(c.Request.Context(), id, revoke); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, usecase.ErrAccountNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, dto.Res{ResponseCode: strconv.Itoa(status), ResponseMessage: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "Success"})
}

func (h *socialAccountHandler) Refresh(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: "invalid account id"})
		return
	}
	account, err := h.accountUsecase.Refresh(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrAccountNotFound):
			c.JSON(http.StatusNotFound, dto.Res{ResponseCode: "404", ResponseMessage: err.Error()})
		case errors.Is(err, usecase.ErrNoRefreshToken):
			c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: err.Error()})
		default:
			c.JSON(http.StatusBadGateway, dto.Res{ResponseCode: "502", ResponseMessage: err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "Success", Data: account})
}

func (h *socialAccountHandler) List(c *gin.Context) {
	accounts, err := h.accountUsecase.ListByWorkspace(c.Request.Context(), c.GetInt64("workspace_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.Res{ResponseCode: "500", ResponseMessage: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "Success", Data: accounts})
}

func (h *socialAccountHandler) Health(c *gin.Context) {
	health, err := h.accountUsecase.HealthStatus(c.Request.Context(), c.GetInt64("workspace_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.Res{ResponseCode: "500", ResponseMessage: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "Success", Data: health})
}

// Expiring reports connected accounts whose token expires within the given
// horizon (hours, default one week). Admin tooling polls this.
func (h *socialAccountHandler) Expiring(c *gin.Context) {
	hours, err := strconv.Atoi(c.DefaultQuery("within_hours", "168"))
	if err != nil || hours <= 0 {
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: "invalid within_hours"})
		return
	}
	accounts, err := h.accountUsecase.ExpiringTokens(c.Request.Context(), time.Duration(hours)*time.Hour)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.Res{ResponseCode: "500", ResponseMessage: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "Success", Data: accounts})
}
