package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/crs-api/internal/middleware"
	"github.com/noah-isme/crs-api/internal/models"
	appErrors "github.com/noah-isme/crs-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

// actorID names the caller for ledger entries and audit lines.
func actorID(c *gin.Context) string {
	if claims := claimsFromContext(c); claims != nil {
		if claims.Email != "" {
			return claims.Email
		}
		return claims.UserID
	}
	return ""
}

func bindJSON(c *gin.Context, dst interface{}, message string) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
	}
	return nil
}

func indexParam(c *gin.Context, name string) (int, error) {
	idx, err := strconv.Atoi(c.Param(name))
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, name+" must be an integer")
	}
	return idx, nil
}
