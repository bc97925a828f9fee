package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// EscrowIDValidator проверяет, что параметр с указанным именем является
// положительным целым идентификатором сделки.
// Использование: router.GET("/escrows/:id", EscrowIDValidator("id"), handler.GetEscrow)
func EscrowIDValidator(paramName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		idStr := c.Param(paramName)
		if idStr == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "параметр " + paramName + " обязателен",
			})
			c.Abort()
			return
		}

		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "параметр " + paramName + " должен быть положительным числом",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
