package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

const (
	sendChanSize = 512

	DefaultHeartbeatInterval = 5 * time.Second
	DefaultIdleTimeout       = 5 * time.Minute
)

// Responder sends messages to the client that sent the message being
// handled.
type Responder interface {
	Send(typ string, data any) error
}

// MessageHandler handles a message received from a client.
type MessageHandler func(ctx context.Context, respond Responder, msg Message) error

// Options configures how a connection is handled.
type Options struct {
	// The feed whose messages are forwarded to the client. Can be nil.
	Feed *Feed

	// The interval between each heartbeat sent to the client.
	HeartbeatInterval time.Duration

	// The time a client is idle before being disconnected.
	IdleTimeout time.Duration

	// Handles the messages sent by the client. An error is reported to the
	// client in an error message and does not close the connection.
	HandleMessage MessageHandler
}

// Handle serves a WebSocket connection until it is closed, idle or ctx is
// done.
func Handle(ctx context.Context, conn *websocket.Conn, opts Options) {
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}

	h := handler{
		Conn:    conn,
		Options: opts,
	}
	h.Handle(ctx)
}

type handler struct {
	Conn *websocket.Conn
	Options

	clientAddr     string
	sendChan       chan []byte
	receiveChan    chan Message
	disconnectChan chan error
}

func (h *handler) Handle(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if req := h.Conn.Request(); req != nil {
		h.clientAddr = req.RemoteAddr
	}
	wsConnectedClients.Inc()
	logs.WithTag("client_addr", h.clientAddr).Debug("client connected")

	h.disconnectChan = make(chan error, 8)
	defer func() {
		for len(h.disconnectChan) != 0 {
			<-h.disconnectChan
		}
	}()

	var wg sync.WaitGroup

	h.sendChan = make(chan []byte, sendChanSize)
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.startSending(ctx)
	}()

	h.receiveChan = make(chan Message, sendChanSize)
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.startReceiving(ctx)
	}()

	var feed <-chan []byte
	if h.Feed != nil {
		sub := h.Feed.Subscribe(sendChanSize)
		defer sub.Close()
		feed = sub.Messages()
	}

	idleTimer := time.NewTimer(h.IdleTimeout)
	defer idleTimer.Stop()

	heartbeatTicker := time.NewTicker(h.HeartbeatInterval)
	defer heartbeatTicker.Stop()

	responder := responseSender{send: h.send}

	for ctx.Err() == nil {
		select {
		case <-ctx.Done():
			h.handleDisconnect(ctx.Err())

		case <-idleTimer.C:
			h.disconnect(errors.New("idle connection").WithTag("duration", h.IdleTimeout))

		case <-heartbeatTicker.C:
			if err := responder.Send(MsgTypeHeartbeat, nil); err != nil {
				h.disconnect(errors.New("sending heartbeat failed").Wrap(err))
			}

		case b := <-feed:
			h.enqueue(b)

		case msg := <-h.receiveChan:
			idleTimer.Stop()
			idleTimer.Reset(h.IdleTimeout)
			h.handleMessage(ctx, msg, responder)

		case err := <-h.disconnectChan:
			h.handleDisconnect(err)
			if ctx.Err() == nil {
				// cancel context so go routines can cleanly exit
				cancel()
			}
		}
	}

	wg.Wait()
}

func (h *handler) send(typ string, data any) error {
	msg, err := NewMessage(typ, data)
	if err != nil {
		return err
	}

	b, err := json.Marshal(msg)
	if err != nil {
		return errors.New("encoding message failed").
			WithTag("type", typ).
			Wrap(err)
	}

	h.enqueue(b)
	return nil
}

func (h *handler) enqueue(b []byte) {
	select {
	case h.sendChan <- b:
	default:
		instrumentDroppedMsg(queueClient)
	}
}

func (h *handler) startSending(ctx context.Context) {
	defer func() {
		for len(h.sendChan) != 0 {
			<-h.sendChan
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case b := <-h.sendChan:
			if err := websocket.Message.Send(h.Conn, string(b)); err != nil {
				h.disconnect(errors.New("sending message failed").Wrap(err))
				return
			}
			instrumentSentMsg(len(b))
		}
	}
}

func (h *handler) startReceiving(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		default:
			var b []byte
			if err := websocket.Message.Receive(h.Conn, &b); err != nil {
				h.disconnect(errors.New("receiving message failed").Wrap(err))
				return
			}

			var msg Message
			if err := json.Unmarshal(b, &msg); err != nil {
				err = errors.New("decoding message failed").
					WithType(ErrTypeInvalidMessage).
					Wrap(err)
				instrumentReceiveError(err)
				h.enqueueError(err)
				continue
			}
			instrumentReceivedMsg(msg.Type)

			select {
			case h.receiveChan <- msg:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (h *handler) handleMessage(ctx context.Context, msg Message, respond Responder) {
	if h.HandleMessage == nil {
		return
	}

	if err := h.HandleMessage(ctx, respond, msg); err != nil {
		logs.WithTag("client_addr", h.clientAddr).
			WithTag("type", msg.Type).
			Debug(errors.New("handling message failed").Wrap(err))
		h.enqueueError(err)
	}
}

func (h *handler) enqueueError(err error) {
	if err := h.send(MsgTypeError, ErrorData{
		Type:    errors.Type(err),
		Message: err.Error(),
	}); err != nil {
		logs.WithTag("client_addr", h.clientAddr).Error(err)
	}
}

func (h *handler) disconnect(err error) {
	select {
	case h.disconnectChan <- err:
	default:
	}
}

func (h *handler) handleDisconnect(err error) {
	h.Conn.Close()
	wsConnectedClients.Dec()
	logs.WithTag("client_addr", h.clientAddr).
		WithTag("reason", err).
		Debug("client disconnected")
}

// ErrorData is the data of the error messages sent to clients.
type ErrorData struct {
	Type    string `json:"type,omitempty"`
	Message string `json:"message"`
}

type responseSender struct {
	send func(typ string, data any) error
}

func (r responseSender) Send(typ string, data any) error {
	return r.send(typ, data)
}
