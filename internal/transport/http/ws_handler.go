package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/yousefmohseen/chatroom/internal/core"
	"github.com/yousefmohseen/chatroom/internal/proto"
	"github.com/yousefmohseen/chatroom/internal/utils"
)

// WSOptions tunes per-connection limits.
type WSOptions struct {
	// RateLimitPerMinute caps chat messages per connection. Zero disables it.
	RateLimitPerMinute int
	// MaxMessageBytes bounds a chat message; frames get some headroom on top.
	MaxMessageBytes int
}

// WSHandler upgrades HTTP connections and bridges them to core.Client.
type WSHandler struct {
	hub  core.Hub
	opts WSOptions
	log  *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub core.Hub, opts WSOptions, logger *zerolog.Logger) stdhttp.Handler {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &WSHandler{hub: hub, opts: opts, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.CloseNow()
	if h.opts.MaxMessageBytes > 0 {
		conn.SetReadLimit(int64(h.opts.MaxMessageBytes)*4 + 1024)
	}

	client := core.NewClient(utils.NewID())
	h.hub.RegisterClient(client)
	h.log.Debug().Str("client_id", client.ID).Msg("ws connected")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	readErr := make(chan error, 1)
	go func() {
		readErr <- h.readLoop(ctx, conn, client)
	}()
	writeErr := make(chan error, 1)
	go func() {
		writeErr <- h.writeLoop(ctx, conn, client)
	}()

	select {
	case err = <-readErr:
		// The hub closes Events once unregistered, which ends the write loop.
		h.hub.UnregisterClient(client)
		close(client.Commands)
		cancel()
		<-writeErr
	case err = <-writeErr:
		cancel()
		<-readErr
		h.hub.UnregisterClient(client)
		close(client.Commands)
	}

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = "internal error"
			h.log.Warn().Err(err).Str("client_id", client.ID).Msg("ws connection closed with error")
		}
	}

	h.log.Debug().Str("client_id", client.ID).Msg("ws disconnected")
	_ = conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	limiter := newRateLimiter(h.opts.RateLimitPerMinute)
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}

		cmd, protoErr, err := inboundToCommand(client, inbound)
		if err != nil {
			h.log.Warn().Err(err).Str("client_id", client.ID).Msg("failed to map inbound")
			return err
		}
		if protoErr == nil && cmd != nil && cmd.Kind == core.CommandSendMessage && !limiter.Allow() {
			protoErr = &proto.Error{Code: core.ErrCodeRateLimited, Msg: "slow down"}
		}
		if protoErr != nil {
			if writeErr := wsjson.Write(ctx, conn, proto.Outbound{
				Type:  proto.OutboundTypeError,
				Error: protoErr,
			}); writeErr != nil {
				return writeErr
			}
			continue
		}
		if cmd == nil {
			continue
		}
		select {
		case client.Commands <- cmd:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			out, err := outboundFromEvent(event)
			if err != nil {
				h.log.Error().Err(err).Str("client_id", client.ID).Msg("encode ws event")
				continue
			}
			if err := wsjson.Write(ctx, conn, out); err != nil {
				h.log.Error().Err(err).Str("client_id", client.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
