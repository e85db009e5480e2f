package radiolink

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rfnode-go/bus"
	"rfnode-go/errcode"
	"rfnode-go/types"
)

var (
	TopicExchange = bus.T("radio", "exchange")
	TopicState    = bus.T("radio", "state")
	TopicEvent    = bus.T("node", "event")
)

// State is the retained payload on radio/state.
type State struct {
	Level  string    `json:"level"` // "up", "down", "error"
	Status string    `json:"status"`
	Error  string    `json:"error,omitempty"`
	TS     time.Time `json:"ts"`
}

// Worker serves exchange requests from the bus one at a time.
type Worker struct {
	conn *bus.Connection
	x    *Exchanger
	log  *zap.Logger

	ready atomic.Bool
}

func NewWorker(conn *bus.Connection, x *Exchanger, log *zap.Logger) *Worker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker{conn: conn, x: x, log: log}
}

// Run starts the radio and blocks until ctx ends. A radio that fails to
// start is reported on radio/state and returned.
func (w *Worker) Run(ctx context.Context) error {
	sub := w.conn.Subscribe(TopicExchange)
	defer w.conn.Unsubscribe(sub)

	if err := w.x.Start(); err != nil {
		w.publishState("error", "start_failed", err)
		return err
	}
	w.ready.Store(true)
	w.publishState("up", "ready", nil)
	w.log.Info("radio ready")

	for {
		select {
		case <-ctx.Done():
			w.ready.Store(false)
			_ = w.x.Stop()
			w.publishState("down", "stopped", nil)
			return nil
		case msg, ok := <-sub.Channel():
			if !ok {
				return nil
			}
			w.handle(ctx, msg)
		}
	}
}

// Ready reports whether the radio started and the worker is serving.
func (w *Worker) Ready() bool { return w.ready.Load() }

func (w *Worker) handle(ctx context.Context, msg *bus.Message) {
	ex, ok := msg.Payload.(types.Exchange)
	if !ok {
		w.conn.Reply(msg, types.ExchangeResult{Code: string(errcode.InvalidParams), Error: "payload is not an exchange"}, false)
		return
	}
	if ex.ID == "" {
		ex.ID = uuid.NewString()
	}

	start := time.Now()
	res := types.ExchangeResult{ID: ex.ID, Command: ex.Command, StartedAt: start}

	var err error
	if !ex.Deadline.IsZero() && !start.Before(ex.Deadline) {
		err = &errcode.E{C: errcode.Timeout, Op: "radiolink.Worker", Msg: "requester gave up"}
	} else {
		xctx := ctx
		if !ex.Deadline.IsZero() {
			var cancel context.CancelFunc
			xctx, cancel = context.WithDeadline(ctx, ex.Deadline)
			defer cancel()
		}
		res.Reply, err = w.x.Exchange(xctx, ex.Command)
	}
	res.Latency = time.Since(start)
	res.Code = string(errcode.Of(err))
	if err != nil {
		res.Error = err.Error()
		w.log.Warn("exchange failed", zap.String("id", ex.ID), zap.String("command", ex.Command), zap.Error(err))
	} else {
		w.log.Info("exchange", zap.String("id", ex.ID), zap.String("command", ex.Command),
			zap.String("reply", res.Reply), zap.Duration("latency", res.Latency))
	}

	w.conn.Reply(msg, res, false)
	w.conn.Publish(w.conn.NewMessage(TopicEvent, res, false))
}

func (w *Worker) publishState(level, status string, err error) {
	st := State{Level: level, Status: status, TS: time.Now()}
	if err != nil {
		st.Error = err.Error()
	}
	w.conn.Publish(w.conn.NewMessage(TopicState, st, true))
}

// Client submits exchanges to the worker.
type Client struct {
	conn *bus.Connection
}

func NewClient(conn *bus.Connection) *Client { return &Client{conn: conn} }

// Do runs one exchange. ctx bounds the wait; a result with a non-ok code is
// returned together with the matching errcode error.
func (c *Client) Do(ctx context.Context, command string) (types.ExchangeResult, error) {
	ex := types.Exchange{ID: uuid.NewString(), Command: command}
	if dl, ok := ctx.Deadline(); ok {
		ex.Deadline = dl
	}
	m, err := c.conn.RequestWait(ctx, c.conn.NewMessage(TopicExchange, ex, false))
	if err != nil {
		return types.ExchangeResult{ID: ex.ID, Command: command, Code: string(errcode.Timeout)},
			errcode.Wrap(errcode.Timeout, "radiolink.Do", err)
	}
	res, ok := m.Payload.(types.ExchangeResult)
	if !ok {
		return types.ExchangeResult{ID: ex.ID, Command: command, Code: string(errcode.Error)},
			&errcode.E{C: errcode.Error, Op: "radiolink.Do", Msg: "bad reply payload"}
	}
	if !res.OK() {
		return res, &errcode.E{C: errcode.Code(res.Code), Op: "radio", Msg: res.Error}
	}
	return res, nil
}
