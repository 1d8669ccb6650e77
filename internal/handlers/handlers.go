package handlers

import (
	"log/slog"
	"net/http"

	"felicity/internal/apperrors"
	"felicity/internal/cache"
	"felicity/internal/middleware"
	"felicity/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handlers struct {
	services     *service.Services
	valkeyClient *cache.ValkeyClient
}

func NewHandlers(services *service.Services, valkeyClient *cache.ValkeyClient) *Handlers {
	return &Handlers{
		services:     services,
		valkeyClient: valkeyClient,
	}
}

// principal pulls the authenticated Principal out of the request
// context. JWTAuth guarantees it is there on protected routes.
func principal(c *gin.Context) middleware.Principal {
	p, _ := middleware.PrincipalFromContext(c.Request.Context())
	return p
}

// pathID parses the :id path parameter. A malformed id aborts with 400.
func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return uuid.Nil, false
	}
	return id, true
}

// respondError maps service errors onto HTTP responses. Domain errors
// carry their own status and code; anything else is a 500.
func respondError(c *gin.Context, err error, logMsg string) {
	if appErr, ok := apperrors.From(err); ok {
		c.JSON(appErr.Status, gin.H{"error": appErr.Msg, "code": appErr.Code})
		return
	}

	slog.Error(logMsg, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": logMsg})
}
