package middleware

import (
	"strconv"
	"time"

	"edusloth/app/metrics"

	"github.com/gin-gonic/gin"
)

// Prometheus 为 Gin 添加 Prometheus 指标
func Prometheus() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// 继续处理请求
		c.Next()

		statusCode := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method + " " + c.FullPath()

		metrics.RecordRequest(method, statusCode, time.Since(start))
	}
}
