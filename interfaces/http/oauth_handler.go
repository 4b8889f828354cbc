package http

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"socialhub/domain/dto"
	"socialhub/domain/model"
	"socialhub/infrastructure/logger"
	"socialhub/usecase"
)

type IOAuthHandler interface {
	GetAuthURL(ctx *gin.Context)
	Callback(ctx *gin.Context)
}

type oauthHandler struct {
	oauthUsecase usecase.IOAuthUsecase
}

func NewOAuthHandler(oauthUsecase usecase.IOAuthUsecase) IOAuthHandler {
	return &oauthHandler{oauthUsecase: oauthUsecase}
}

func randomState() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// GetAuthURL mints the state and returns the platform's authorize URL for
// the admin's browser to follow.
func (h *oauthHandler) GetAuthURL(c *gin.Context) {
	platform, err := model.ParsePlatform(c.Param("platform"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: err.Error()})
		return
	}
	state := c.Query("state")
	if state == "" {
		state = randomState()
	}
	authURL, err := h.oauthUsecase.GetAuthorizationURL(c.Request.Context(), platform, state)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while building authorization URL")
		c.JSON(http.StatusInternalServerError, dto.Res{ResponseCode: "500", ResponseMessage: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "Success", Data: authURL})
}

// Callback consumes the state and exchanges the authorization code. The
// returned token data feeds the subsequent connect call; it is not logged.
func (h *oauthHandler) Callback(c *gin.Context) {
	platform, err := model.ParsePlatform(c.Param("platform"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: err.Error()})
		return
	}
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: "code and state are required"})
		return
	}

	tok, err := h.oauthUsecase.HandleCallback(c.Request.Context(), platform, code, state)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrInvalidState), errors.Is(err, usecase.ErrPlatformMismatch):
			c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: err.Error()})
		default:
			logger.GetLogger().
				WithField("platform", platform).
				WithField("error", err).
				Error("Error while handling oauth callback")
			c.JSON(http.StatusBadGateway, dto.Res{ResponseCode: "502", ResponseMessage: err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "Success", Data: tok})
}
