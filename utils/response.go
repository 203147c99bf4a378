package utils

import "github.com/gin-gonic/gin"

func JSONSuccess(c *gin.Context, code int, data interface{}) {
	c.JSON(code, gin.H{"success": true, "data": data})
}

func JSONError(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"success": false, "error": message})
}

// JSONErrorCode adds a machine readable code and optional details.
func JSONErrorCode(c *gin.Context, code int, errCode, message string, details map[string]string) {
	body := gin.H{"success": false, "error": message, "code": errCode}
	if len(details) > 0 {
		body["details"] = details
	}
	c.JSON(code, body)
}
