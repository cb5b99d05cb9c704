package router

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sarvcast-next/internal/config"
	"github.com/sarvcast-next/internal/http/response"
	"github.com/sarvcast-next/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDKey = response.RequestIDKey
const requestIDHeader = "X-Request-ID"

var (
	defaultCORSMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	defaultCORSHeaders = []string{"Content-Type", "Accept", "Authorization", "X-Requested-With", requestIDHeader}
)

// corsPolicy 预先整理好的跨域策略
type corsPolicy struct {
	wildcard         bool
	origins          map[string]struct{}
	allowCredentials bool
	methods          string
	headers          string
	maxAge           string
}

func newCORSPolicy(cfg config.CORSConfig) corsPolicy {
	policy := corsPolicy{
		origins:          make(map[string]struct{}, len(cfg.AllowedOrigins)),
		allowCredentials: cfg.AllowCredentials,
		methods:          strings.Join(orDefault(cfg.AllowedMethods, defaultCORSMethods), ", "),
		headers:          strings.Join(orDefault(cfg.AllowedHeaders, defaultCORSHeaders), ", "),
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	for _, origin := range origins {
		origin = strings.ToLower(strings.TrimSpace(origin))
		if origin == "*" {
			policy.wildcard = true
			continue
		}
		if origin != "" {
			policy.origins[origin] = struct{}{}
		}
	}
	if cfg.MaxAge > 0 {
		policy.maxAge = strconv.Itoa(cfg.MaxAge)
	}
	return policy
}

// allowOrigin 返回应写入 Access-Control-Allow-Origin 的值，空串表示不允许
// 通配且需要携带凭证时回显请求来源。
func (p corsPolicy) allowOrigin(origin string) string {
	if p.wildcard {
		if p.allowCredentials && origin != "" {
			return origin
		}
		return "*"
	}
	if origin == "" {
		return ""
	}
	if _, ok := p.origins[strings.ToLower(origin)]; ok {
		return origin
	}
	return ""
}

// CORSMiddleware 跨域中间件
func CORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	policy := newCORSPolicy(cfg)
	return func(c *gin.Context) {
		header := c.Writer.Header()
		if allowed := policy.allowOrigin(c.GetHeader("Origin")); allowed != "" {
			header.Set("Access-Control-Allow-Origin", allowed)
			if allowed != "*" {
				header.Add("Vary", "Origin")
			}
		}
		if policy.allowCredentials {
			header.Set("Access-Control-Allow-Credentials", "true")
		}
		header.Set("Access-Control-Allow-Headers", policy.headers)
		header.Set("Access-Control-Allow-Methods", policy.methods)
		if policy.maxAge != "" {
			header.Set("Access-Control-Max-Age", policy.maxAge)
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func orDefault(values, fallback []string) []string {
	if len(values) == 0 {
		return fallback
	}
	return values
}

// RequestIDMiddleware 请求 ID 中间件
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Next()
	}
}

// LoggerMiddleware 结构化请求日志中间件
// 同时把带 request_id 的 logger 放入请求 context，服务层通过 logger.FromContext 取用。
func LoggerMiddleware(base *zap.Logger) gin.HandlerFunc {
	if base == nil {
		base = zap.L()
	}
	sugar := base.Sugar()
	return func(c *gin.Context) {
		start := time.Now()
		scoped := sugar.With("request_id", getRequestID(c))
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), scoped))
		c.Next()

		log := scoped.With(
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
		if len(c.Errors) > 0 {
			log.Errorw("request", "errors", c.Errors.String())
			return
		}
		log.Infow("request")
	}
}

func getRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
