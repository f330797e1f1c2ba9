package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shopopti/backend/internal/interfaces/http/dto"
)

// DefaultBodyLimit accommodates captured page markup in extraction and
// import requests; product pages rarely exceed a few megabytes.
const DefaultBodyLimit int64 = 8 << 20

// BodyLimit rejects requests whose declared body size exceeds maxBytes and
// caps streaming bodies at the same bound. Zero or negative maxBytes falls
// back to DefaultBodyLimit.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	if maxBytes <= 0 {
		maxBytes = DefaultBodyLimit
	}
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				dto.NewErrorResponse(dto.ErrCodeBadRequest, "Request body exceeds the maximum allowed size"))
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
