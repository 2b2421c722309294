package middleware

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Redis keys for request stats, shared with the health handlers.
const (
	KeyReqTotal  = "health:global:req_total"
	KeyReqErrors = "health:global:req_errors"
	KeyConflicts = "health:global:req_conflicts"
	KeyResTime   = "health:global:res_time_total"
	KeyResCount  = "health:global:res_count"
	KeyStartTime = "health:global:start_time"
	KeyLastReq   = "health:global:last_request"
	KeyErrorLog  = "health:global:error_log"
)

// HealthKeys lists every stats key, for reset.
var HealthKeys = []string{KeyReqTotal, KeyReqErrors, KeyConflicts, KeyResTime, KeyResCount, KeyStartTime, KeyLastReq, KeyErrorLog}

const errorLogSize = 50

type requestMark struct {
	Time    time.Time `json:"time"`
	IP      string    `json:"ip,omitempty"`
	Path    string    `json:"path"`
	Method  string    `json:"method"`
	Status  int       `json:"status,omitempty"`
	TraceID string    `json:"trace_id,omitempty"`
}

// HealthMarker records request stats in Redis, one pipeline per request after the handler ran.
// 409s (lost auction races, taken emails) are counted apart from 5xx. /health* and favicon are
// skipped; a nil client disables it.
func HealthMarker(rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		if rdb == nil || strings.HasPrefix(path, "/health") || strings.HasPrefix(path, "/favicon") {
			return c.Next()
		}

		start := time.Now().UTC()
		err := c.Next()
		elapsed := time.Since(start).Milliseconds()

		status := c.Response().StatusCode()
		mark := requestMark{Time: start, IP: c.IP(), Path: c.OriginalURL(), Method: c.Method()}
		last, _ := json.Marshal(mark)

		ctx := c.UserContext()
		pipe := rdb.Pipeline()
		pipe.Set(ctx, KeyLastReq, last, 0)
		pipe.Incr(ctx, KeyReqTotal)
		pipe.Incr(ctx, KeyResCount)
		pipe.IncrByFloat(ctx, KeyResTime, float64(elapsed))
		switch {
		case status >= fiber.StatusInternalServerError || err != nil:
			mark.IP = ""
			mark.Status = status
			mark.TraceID = GetTraceID(c)
			entry, _ := json.Marshal(mark)
			pipe.Incr(ctx, KeyReqErrors)
			pipe.LPush(ctx, KeyErrorLog, entry)
			pipe.LTrim(ctx, KeyErrorLog, 0, errorLogSize-1)
		case status == fiber.StatusConflict:
			pipe.Incr(ctx, KeyConflicts)
		}
		_, _ = pipe.Exec(ctx)
		return err
	}
}
