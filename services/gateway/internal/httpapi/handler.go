// Package httpapi exposes the node over HTTP: one GET route per radio
// command plus status, journal and an SSE event stream.
package httpapi

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rfnode-go/bus"
	"rfnode-go/errcode"
	"rfnode-go/services/gateway/internal/journal"
	"rfnode-go/services/gateway/internal/metrics"
	"rfnode-go/services/gateway/internal/radiolink"
	"rfnode-go/services/gateway/internal/status"
	"rfnode-go/types"
)

// Input ranges accepted at the HTTP edge.
const (
	MaxAngle   = 180
	MaxMinutes = 720
)

// Exchanger runs one radio exchange; radiolink.Client implements it.
type Exchanger interface {
	Do(ctx context.Context, command string) (types.ExchangeResult, error)
}

// Presence reports how long the node stays unreachable.
type Presence interface {
	Check(ctx context.Context) (time.Duration, error)
}

type Handler struct {
	Radio    Exchanger
	Presence Presence
	Journal  journal.Store
	Conn     *bus.Connection
	Metrics  *metrics.GatewayMetrics
	Log      *zap.Logger
	// Timeout bounds one exchange including queueing behind others.
	Timeout time.Duration
}

func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/", h.root)
	r.GET("/on", h.on)
	r.GET("/off", h.off)
	r.GET("/servo/:angle", h.servo)
	r.GET("/btlvl", h.battery)
	r.GET("/rdoff/:minutes", h.rdoff)
	r.GET("/status", h.nodeStatus)
	r.GET("/journal", h.recent)
	r.GET("/events", h.events)
}

func (h *Handler) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"service": "rf24", "status": "running"})
}

func (h *Handler) on(c *gin.Context)      { h.command(c, "on", "LED turned on") }
func (h *Handler) off(c *gin.Context)     { h.command(c, "off", "LED turned off") }
func (h *Handler) battery(c *gin.Context) { h.command(c, "btlvl", "Battery level") }

func (h *Handler) servo(c *gin.Context) {
	angle, ok := intParam(c, "angle", 0, MaxAngle, "Angle must be between 0 and 180")
	if !ok {
		return
	}
	h.command(c, "servo "+strconv.Itoa(angle), fmt.Sprintf("Servo moved to %d°", angle))
}

func (h *Handler) rdoff(c *gin.Context) {
	minutes, ok := intParam(c, "minutes", 0, MaxMinutes, "Minutes must be between 0 and 720")
	if !ok {
		return
	}
	h.command(c, "rdoff "+strconv.Itoa(minutes), fmt.Sprintf("RD off for %d min", minutes))
}

func intParam(c *gin.Context, name string, lo, hi int, detail string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": name + " must be an integer"})
		return 0, false
	}
	if v < lo || v > hi {
		c.JSON(http.StatusBadRequest, gin.H{"detail": detail})
		return 0, false
	}
	return v, true
}

func (h *Handler) command(c *gin.Context, cmd, message string) {
	ctx := c.Request.Context()
	if h.Presence != nil {
		left, err := h.Presence.Check(ctx)
		if err != nil {
			h.Log.Warn("presence check failed", zap.Error(err))
		}
		if left > 0 {
			h.Metrics.Reject("asleep")
			h.fail(c, cmd, &errcode.E{C: errcode.NodeAsleep, Op: "httpapi", Msg: "node asleep for " + left.Round(time.Second).String()}, left)
			return
		}
	}

	ctx, cancel := context.WithTimeout(ctx, h.Timeout)
	defer cancel()
	res, err := h.Radio.Do(ctx, cmd)
	if err != nil {
		h.fail(c, cmd, err, 0)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": message, "reply": res.Reply})
}

func (h *Handler) fail(c *gin.Context, cmd string, err error, retryAfter time.Duration) {
	code := errcode.Of(err)
	st := httpStatus(code)
	if st >= http.StatusInternalServerError {
		h.Log.Warn("command failed", zap.String("command", cmd), zap.String("code", string(code)), zap.Error(err))
	}
	if retryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
	}
	c.JSON(st, gin.H{"detail": err.Error(), "code": string(code)})
}

func httpStatus(c errcode.Code) int {
	switch c {
	case errcode.InvalidParams:
		return http.StatusBadRequest
	case errcode.NodeAsleep:
		return http.StatusServiceUnavailable
	case errcode.NoReply, errcode.Timeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) nodeStatus(c *gin.Context) {
	c.JSON(http.StatusOK, status.Snapshot(h.Conn))
}

func (h *Handler) recent(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	list, err := h.Journal.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"exchanges": list})
}

// events streams every exchange as an SSE "exchange" event.
func (h *Handler) events(c *gin.Context) {
	sub := h.Conn.Subscribe(radiolink.TopicEvent)
	defer h.Conn.Unsubscribe(sub)

	// The server's WriteTimeout would cut long-lived streams.
	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("hello", gin.H{"service": "rf24"})
	c.Writer.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-sub.Channel():
			if !ok {
				return
			}
			c.SSEvent("exchange", m.Payload)
			c.Writer.Flush()
		}
	}
}
