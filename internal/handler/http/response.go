package http

import "github.com/gin-gonic/gin"

func ErrorResponse(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"error": message})
}

// RedirectResponse is an error telling the UI where to navigate.
func RedirectResponse(c *gin.Context, code int, message, route string) {
	c.JSON(code, gin.H{"error": message, "redirect": route})
}

func SuccessResponse(c *gin.Context, code int, data interface{}) {
	c.JSON(code, data)
}
