package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/sarvcast-next/internal/config"
	"github.com/sarvcast-next/internal/http/response"
	"github.com/sarvcast-next/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitKeyFunc 生成限流 key 的函数
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 固定窗口限流规则
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
}

// NewRateLimitRule 由配置构造规则
func NewRateLimitRule(prefix string, cfg config.RateLimitRuleConfig) RateLimitRule {
	return RateLimitRule{Prefix: prefix, WindowSeconds: cfg.WindowSeconds, MaxRequests: cfg.MaxRequests}
}

func (r RateLimitRule) enabled() bool {
	return r.WindowSeconds > 0 && r.MaxRequests > 0
}

func (r RateLimitRule) window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

func (r RateLimitRule) key(raw string) string {
	if r.Prefix == "" {
		return raw
	}
	return r.Prefix + ":" + raw
}

// hit 计数并返回当前窗口内的请求数与剩余秒数
func (r RateLimitRule) hit(ctx context.Context, client *redis.Client, key string) (int64, int, error) {
	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, r.window())
		ttl = pipe.TTL(ctx, key)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	retryAfter := int(ttl.Val() / time.Second)
	if retryAfter < 1 {
		retryAfter = r.WindowSeconds
	}
	return incr.Val(), retryAfter, nil
}

// RateLimitMiddleware Redis 频率限制中间件，Redis 出错时放行
func RateLimitMiddleware(client *redis.Client, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil || !rule.enabled() {
			c.Next()
			return
		}

		var raw string
		if keyFunc != nil {
			raw = strings.TrimSpace(keyFunc(c))
		}
		if raw == "" {
			raw = c.ClientIP()
		}
		key := rule.key(raw)
		log := logger.FromContext(c.Request.Context())

		count, retryAfter, err := rule.hit(c.Request.Context(), client, key)
		if err != nil {
			log.Warnw("rate_limit_unavailable", "key", key, "error", err)
			c.Next()
			return
		}
		if count > int64(rule.MaxRequests) {
			log.Warnw("rate_limited", "key", key, "count", count)
			response.ErrorWithData(c, response.CodeTooManyRequests, "too many requests", gin.H{"retry_after_seconds": retryAfter})
			c.Abort()
			return
		}
		c.Next()
	}
}

// KeyByIPAndJSONField 以 "字段值|IP" 作为 key，字段值统一大写
func KeyByIPAndJSONField(field string) RateLimitKeyFunc {
	return func(c *gin.Context) string {
		value := strings.ToUpper(peekJSONString(c, field))
		if value == "" {
			return c.ClientIP()
		}
		return value + "|" + c.ClientIP()
	}
}

// peekJSONString 读取请求体中的字符串字段，并把请求体放回去供后续绑定
func peekJSONString(c *gin.Context, field string) string {
	if c == nil || c.Request == nil || c.Request.Body == nil {
		return ""
	}
	body, err := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil || len(body) == 0 {
		return ""
	}
	var payload map[string]json.RawMessage
	if json.Unmarshal(body, &payload) != nil {
		return ""
	}
	var text string
	if json.Unmarshal(payload[field], &text) != nil {
		return ""
	}
	return strings.TrimSpace(text)
}
