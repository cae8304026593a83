package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/roads-authority/roadworks-api/internal/dto"
	"github.com/roads-authority/roadworks-api/internal/middleware"
)

func actorFromContext(c *gin.Context) dto.Actor {
	claims := middleware.ClaimsFromContext(c)
	if claims == nil {
		return dto.Actor{}
	}
	return dto.Actor{UserID: claims.UserID, Email: claims.Email}
}
