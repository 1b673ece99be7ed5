// internal/handlers/oauth.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/levaja/levaja-backend/internal/config"
	"github.com/levaja/levaja-backend/internal/i18n"
	"github.com/levaja/levaja-backend/internal/repository"
	"github.com/levaja/levaja-backend/internal/services"
	"github.com/levaja/levaja-backend/internal/utils"
)

// OAuthHandler drives the establishment connection flow against the gateway.
type OAuthHandler struct {
	credentials *services.CredentialService
	config      *config.Config
}

func NewOAuthHandler(credentials *services.CredentialService, cfg *config.Config) *OAuthHandler {
	return &OAuthHandler{credentials: credentials, config: cfg}
}

// Authorize handles GET /v1/marketplace/oauth/authorize/:establishmentId and
// redirects the seller to the gateway consent page.
func (h *OAuthHandler) Authorize(c *gin.Context) {
	establishmentID, err := uuid.Parse(c.Param("establishmentId"))
	if err != nil {
		utils.BadRequestResponse(c, "", "invalid establishment id")
		return
	}

	authURL, err := h.credentials.GenerateAuthorizationURL(c.Request.Context(), establishmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.NotFoundResponse(c, "establishment")
			return
		}
		utils.InternalErrorResponse(c, "")
		return
	}

	c.Redirect(http.StatusFound, authURL)
}

// Callback handles GET /v1/marketplace/oauth/callback. The gateway redirects here
// with code and state; on success the seller lands back on the frontend.
func (h *OAuthHandler) Callback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")
	lang := utils.GetLangFromContext(c)

	if code == "" || state == "" {
		utils.BadRequestResponse(c, "", "code and state are required")
		return
	}

	est, err := h.credentials.HandleCallback(c.Request.Context(), code, state)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidOAuthState):
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyOAuthInvalidState), nil)
		case errors.Is(err, services.ErrOAuthExchangeFailed):
			utils.UnprocessableResponse(c, "OAUTH_EXCHANGE_FAILED", i18n.T(lang, i18n.KeyOAuthExchangeFailed))
		case errors.Is(err, repository.ErrNotFound):
			utils.NotFoundResponse(c, "establishment")
		default:
			utils.InternalErrorResponse(c, "")
		}
		return
	}

	c.Redirect(http.StatusFound, h.config.Frontend.BaseURL+"/establishments/"+est.ID.String()+"/connected")
}

// Status handles GET /v1/marketplace/oauth/status/:establishmentId
func (h *OAuthHandler) Status(c *gin.Context) {
	establishmentID, err := uuid.Parse(c.Param("establishmentId"))
	if err != nil {
		utils.BadRequestResponse(c, "", "invalid establishment id")
		return
	}

	status, err := h.credentials.Status(c.Request.Context(), establishmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.NotFoundResponse(c, "establishment")
			return
		}
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, status)
}

// Refresh handles POST /v1/marketplace/oauth/refresh/:establishmentId
func (h *OAuthHandler) Refresh(c *gin.Context) {
	establishmentID, err := uuid.Parse(c.Param("establishmentId"))
	if err != nil {
		utils.BadRequestResponse(c, "", "invalid establishment id")
		return
	}

	if err := h.credentials.RefreshAccessToken(c.Request.Context(), establishmentID); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			utils.NotFoundResponse(c, "establishment")
		case errors.Is(err, services.ErrEstablishmentNotConnected):
			lang := utils.GetLangFromContext(c)
			utils.UnprocessableResponse(c, "SELLER_NOT_CONNECTED", i18n.T(lang, i18n.KeyPaymentSellerNotConnected))
		case errors.Is(err, services.ErrTokenInvalid):
			utils.UnprocessableResponse(c, "TOKEN_INVALID", err.Error())
		default:
			utils.InternalErrorResponse(c, "")
		}
		return
	}

	utils.SuccessResponse(c, gin.H{"refreshed": true})
}

// Disconnect handles POST /v1/marketplace/oauth/disconnect/:establishmentId
func (h *OAuthHandler) Disconnect(c *gin.Context) {
	establishmentID, err := uuid.Parse(c.Param("establishmentId"))
	if err != nil {
		utils.BadRequestResponse(c, "", "invalid establishment id")
		return
	}

	lang := utils.GetLangFromContext(c)
	if err := h.credentials.Disconnect(c.Request.Context(), establishmentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.NotFoundResponse(c, "establishment")
			return
		}
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, gin.H{"message": i18n.T(lang, i18n.KeyOAuthDisconnected)})
}
