package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/openedu-labs/geoc-api/internal/middleware"
	"github.com/openedu-labs/geoc-api/internal/models"
	appErrors "github.com/openedu-labs/geoc-api/pkg/errors"
	"github.com/openedu-labs/geoc-api/pkg/response"
)

// actorFromContext rebuilds the acting user from validated JWT claims.
// Aborts with 401 when the middleware did not run or the claims are missing.
func actorFromContext(c *gin.Context) (*models.User, bool) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	return &models.User{
		ID:       claims.UserID,
		Email:    claims.Email,
		FullName: claims.FullName,
		Role:     claims.Role,
		Active:   true,
	}, true
}
