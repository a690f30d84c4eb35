package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/internal/middleware"
	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/internal/models"
	appErrors "github.com/Patrickjoshanedez/Capstone-management-system-sub000/pkg/errors"
	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.Claims(c)
	if !ok {
		return nil
	}
	return claims
}

// requireClaims writes a 401 and returns nil when the request is anonymous.
func requireClaims(c *gin.Context) *models.JWTClaims {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
	}
	return claims
}
