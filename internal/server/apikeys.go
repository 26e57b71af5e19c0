package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Wolverine971/bubble-search/internal/store"
)

// KeyStore is the slice of the store the API-key handler needs.
type KeyStore interface {
	ListAPIKeys(ctx context.Context, userID string) ([]store.APIKey, error)
	UpsertAPIKey(ctx context.Context, userID, serviceName, apiKey string) (store.APIKey, error)
}

type APIKeysHandler struct {
	Store KeyStore
}

func (h *APIKeysHandler) Register(g *echo.Group) {
	g.GET("", h.list)
	g.POST("", h.upsert)
}

// ListAPIKeys
//
//	@Summary	List the caller's service API keys
//	@Tags		keys
//	@Security	BearerAuth
//	@Security	CookieAuth
//	@Produce	json
//	@Success	200	{array}		store.APIKey
//	@Failure	401	{object}	HTTPError
//	@Failure	500	{object}	HTTPError
//	@Router		/api/keys [get]
func (h *APIKeysHandler) list(c echo.Context) error {
	userID, _ := c.Get("user_id").(string)
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	keys, err := h.Store.ListAPIKeys(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if keys == nil {
		keys = []store.APIKey{}
	}
	return c.JSON(http.StatusOK, keys)
}

// UpsertAPIKey
//
//	@Summary	Save a service API key for the caller
//	@Tags		keys
//	@Security	BearerAuth
//	@Security	CookieAuth
//	@Accept		json
//	@Produce	json
//	@Param		payload	body		APIKeyUpsertRequest	true	"Key payload"
//	@Success	200		{object}	store.APIKey
//	@Failure	400		{object}	HTTPError
//	@Failure	401		{object}	HTTPError
//	@Failure	500		{object}	HTTPError
//	@Router		/api/keys [post]
func (h *APIKeysHandler) upsert(c echo.Context) error {
	userID, _ := c.Get("user_id").(string)
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	var req APIKeyUpsertRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.ServiceName) == "" || strings.TrimSpace(req.APIKey) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "service_name and api_key are required")
	}
	key, err := h.Store.UpsertAPIKey(c.Request().Context(), userID, req.ServiceName, req.APIKey)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, key)
}
