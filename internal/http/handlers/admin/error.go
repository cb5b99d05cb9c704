package admin

import (
	handlershared "github.com/sarvcast-next/internal/http/handlers/shared"
	"github.com/sarvcast-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

func respondServiceError(c *gin.Context, err error) {
	handlershared.RespondServiceError(c, err)
}

func respondBindError(c *gin.Context, err error) {
	handlershared.RespondError(c, response.CodeBadRequest, "invalid request body: "+err.Error(), nil)
}
