package middlewares

import "github.com/gin-gonic/gin"

// abortError stops the chain with the same envelope handlers.RespondError
// writes, so clients see one error shape whichever layer rejected them.
func abortError(c *gin.Context, status int, code, message string, details any) {
	body := gin.H{"code": code, "message": message}
	if reqID := c.GetString(CtxRequestID); reqID != "" {
		body["requestId"] = reqID
	}
	if details != nil {
		body["details"] = details
	}
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}
