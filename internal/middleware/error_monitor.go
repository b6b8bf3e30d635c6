package middleware

import (
	stderrors "errors"
	"strconv"
	"sync"

	"socialverse-backend/internal/errors"
	"socialverse-backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var requestErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "socialverse_http_errors_total",
		Help: "Request errors by application error code.",
	},
	[]string{"code"},
)

type ErrorMonitor struct {
	errorCounts map[errors.ErrorCode]int
	mu          sync.RWMutex
}

func NewErrorMonitor() *ErrorMonitor {
	return &ErrorMonitor{
		errorCounts: make(map[errors.ErrorCode]int),
	}
}

func (m *ErrorMonitor) RecordError(err error) {
	code := errors.Code(err)
	m.mu.Lock()
	m.errorCounts[code]++
	m.mu.Unlock()
	requestErrors.WithLabelValues(strconv.Itoa(int(code))).Inc()
}

func (m *ErrorMonitor) GetErrorCounts() map[errors.ErrorCode]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[errors.ErrorCode]int, len(m.errorCounts))
	for code, count := range m.errorCounts {
		counts[code] = count
	}
	return counts
}

func ErrorMonitorMiddleware(monitor *ErrorMonitor) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		for _, e := range c.Errors {
			monitor.RecordError(e.Err)

			var appErr *errors.AppError
			if !stderrors.As(e.Err, &appErr) {
				util.Logger.Error("请求处理错误", zap.Error(e.Err),
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method))
				continue
			}
			// 校验失败是预期内的，不按错误级别记录
			log := util.Logger.Error
			if errors.IsValidation(appErr) || errors.Status(appErr.Code) < 500 {
				log = util.Logger.Info
			}
			log("请求处理错误",
				zap.Int("error_code", int(appErr.Code)),
				zap.String("error_message", appErr.Message),
				zap.Error(appErr.Err),
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method))
		}
	}
}
