package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/signaldesk-ledger/internal/http/response"
	"github.com/signaldesk-ledger/internal/i18n"
	"github.com/signaldesk-ledger/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// RateLimitKeyFunc 生成限流 key 的函数
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 限流规则
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	BlockSeconds  int
	MessageKey    string
}

// 超限且配置了封禁时写入 block key，封禁期内直接拒绝
var rateLimitScript = redis.NewScript(`
local blocked = redis.call("TTL", KEYS[2])
if blocked > 0 then
	return {-1, blocked}
end
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
local block = tonumber(ARGV[3])
if current > tonumber(ARGV[2]) and block > 0 then
	redis.call("SET", KEYS[2], 1, "EX", block)
	return {current, block}
end
local ttl = redis.call("TTL", KEYS[1])
return {current, ttl}
`)

const localLimiterMaxKeys = 10000

// localRateLimiter Redis 不可用时的进程内令牌桶
type localRateLimiter struct {
	mu    sync.Mutex
	rule  RateLimitRule
	items map[string]*localLimiterEntry
	now   func() time.Time
}

type localLimiterEntry struct {
	limiter      *rate.Limiter
	blockedUntil time.Time
	lastSeen     time.Time
}

func newLocalRateLimiter(rule RateLimitRule) *localRateLimiter {
	return &localRateLimiter{
		rule:  rule,
		items: make(map[string]*localLimiterEntry),
		now:   time.Now,
	}
}

// allow 返回是否放行，以及拒绝时建议等待秒数
func (l *localRateLimiter) allow(key string) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	window := time.Duration(l.rule.WindowSeconds) * time.Second
	entry, ok := l.items[key]
	if !ok {
		if len(l.items) >= localLimiterMaxKeys {
			l.prune(now, window)
		}
		every := window / time.Duration(l.rule.MaxRequests)
		entry = &localLimiterEntry{limiter: rate.NewLimiter(rate.Every(every), l.rule.MaxRequests)}
		l.items[key] = entry
	}
	entry.lastSeen = now

	if now.Before(entry.blockedUntil) {
		return false, ceilSeconds(entry.blockedUntil.Sub(now))
	}
	reservation := entry.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return false, l.rule.WindowSeconds
	}
	delay := reservation.DelayFrom(now)
	if delay <= 0 {
		return true, 0
	}
	reservation.CancelAt(now)
	if l.rule.BlockSeconds > 0 {
		entry.blockedUntil = now.Add(time.Duration(l.rule.BlockSeconds) * time.Second)
		return false, l.rule.BlockSeconds
	}
	return false, ceilSeconds(delay)
}

func (l *localRateLimiter) prune(now time.Time, window time.Duration) {
	for key, entry := range l.items {
		if now.Sub(entry.lastSeen) > 2*window && !now.Before(entry.blockedUntil) {
			delete(l.items, key)
		}
	}
}

func ceilSeconds(d time.Duration) int {
	seconds := int(math.Ceil(d.Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}

// rateLimiter allow 返回是否放行与拒绝时建议等待的秒数
type rateLimiter interface {
	allow(ctx context.Context, key string) (bool, int, error)
}

// redisRateLimiter 固定窗口计数，多实例共享
type redisRateLimiter struct {
	client *redis.Client
	rule   RateLimitRule
}

func (l *redisRateLimiter) allow(ctx context.Context, key string) (bool, int, error) {
	values, err := rateLimitScript.Run(ctx, l.client, []string{key, key + ":block"},
		l.rule.WindowSeconds, l.rule.MaxRequests, l.rule.BlockSeconds).Int64Slice()
	if err != nil {
		return false, 0, err
	}
	if len(values) < 2 {
		return false, 0, fmt.Errorf("unexpected rate limit reply: %v", values)
	}
	count, ttl := values[0], values[1]
	if count < 0 || count > int64(l.rule.MaxRequests) {
		return false, int(ttl), nil
	}
	return true, 0, nil
}

// rateLimiterFunc 把进程内限流适配为 rateLimiter
type rateLimiterFunc func(key string) (bool, int)

func (f rateLimiterFunc) allow(_ context.Context, key string) (bool, int, error) {
	ok, wait := f(key)
	return ok, wait, nil
}

func (r RateLimitRule) enabled() bool {
	return r.WindowSeconds > 0 && r.MaxRequests > 0
}

func (r RateLimitRule) retryMessage(c *gin.Context, waitSeconds int) string {
	if waitSeconds < 1 {
		waitSeconds = max(r.WindowSeconds, 1)
	}
	key := strings.TrimSpace(r.MessageKey)
	if key == "" {
		key = "error.too_many_requests_retry"
	}
	return i18n.Sprintf(i18n.ResolveLocale(c), key, waitSeconds)
}

// RateLimitMiddleware 频率限制中间件，client 为空时退回进程内限流；Redis 出错时拒绝请求
func RateLimitMiddleware(client *redis.Client, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	if !rule.enabled() {
		return func(c *gin.Context) { c.Next() }
	}
	var limiter rateLimiter = rateLimiterFunc(newLocalRateLimiter(rule).allow)
	if client != nil {
		limiter = &redisRateLimiter{client: client, rule: rule}
	}

	return func(c *gin.Context) {
		key := ""
		if keyFunc != nil {
			key = strings.TrimSpace(keyFunc(c))
		}
		if key == "" {
			key = c.ClientIP()
		}
		if rule.Prefix != "" {
			key = rule.Prefix + ":" + key
		}

		ok, wait, err := limiter.allow(c.Request.Context(), key)
		if err != nil {
			logger.Warnw("rate_limit_check_failed", "prefix", rule.Prefix, "error", err)
			response.Error(c, response.CodeServiceUnavailable, i18n.T(i18n.ResolveLocale(c), "error.resource_unavailable"))
			c.Abort()
			return
		}
		if !ok {
			response.Error(c, response.CodeTooManyRequests, rule.retryMessage(c, wait))
			c.Abort()
			return
		}
		c.Next()
	}
}

// KeyByIP 使用 IP 作为限流 key
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

// KeyByIPAndJSONField 使用 IP + JSON 字段作为限流 key
func KeyByIPAndJSONField(field string) RateLimitKeyFunc {
	return func(c *gin.Context) string {
		value := strings.ToLower(strings.TrimSpace(readJSONField(c, field)))
		if value == "" {
			return c.ClientIP()
		}
		return value + "|" + c.ClientIP()
	}
}

func readJSONField(c *gin.Context, field string) string {
	if c == nil || c.Request == nil || c.Request.Body == nil {
		return ""
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
	if len(body) == 0 {
		return ""
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	value, ok := payload[field]
	if !ok {
		return ""
	}
	if text, ok := value.(string); ok {
		return strings.TrimSpace(text)
	}
	return ""
}
