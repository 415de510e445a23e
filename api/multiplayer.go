package api

import (
	"context"
	"net/http"
	"sync"

	"github.com/nijks777/sudoku/game"
	"github.com/nijks777/sudoku/log"
	"github.com/sagernet/sing/common/json"
	"github.com/sagernet/ws"
	"github.com/sagernet/ws/wsutil"

	"github.com/go-chi/render"
	"github.com/gofrs/uuid/v5"
)

var _ game.Sender = (*wsConnection)(nil)

// wsConnection bridges one websocket to the game handler. Sends are
// enqueued without blocking: the handler calls Send under its lock, so a
// slow client drops events instead of stalling every room.
type wsConnection struct {
	writeQueue chan *game.Event
	done       chan struct{}
	closeOnce  sync.Once
}

func newWSConnection() *wsConnection {
	return &wsConnection{
		writeQueue: make(chan *game.Event, 64),
		done:       make(chan struct{}),
	}
}

func (c *wsConnection) Send(event *game.Event) {
	select {
	case c.writeQueue <- event:
	case <-c.done:
	default:
	}
}

func (c *wsConnection) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func multiplayer(logger log.ContextLogger, handler *game.Handler) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if !isWebsocketUpgrade(r) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, newError("websocket upgrade required"))
			return
		}
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			return
		}
		connectionID, err := uuid.NewV4()
		if err != nil {
			conn.Close()
			return
		}
		// The request context dies with the hijacked connection, so the
		// session carries its own.
		ctx := log.ContextWithNewID(context.Background())
		connection := newWSConnection()
		handler.Attach(connectionID, connection)
		logger.InfoContext(ctx, "connection ", connectionID, " opened")

		go func() {
			defer conn.Close()
			for {
				select {
				case <-connection.done:
					return
				case event := <-connection.writeQueue:
					content, err := json.Marshal(event)
					if err != nil {
						logger.ErrorContext(ctx, "encode event ", event.Type, ": ", err)
						continue
					}
					err = wsutil.WriteServerText(conn, content)
					if err != nil {
						return
					}
				}
			}
		}()
		defer func() {
			connection.close()
			conn.Close()
			handler.Disconnect(ctx, connectionID)
			logger.InfoContext(ctx, "connection ", connectionID, " closed")
		}()

		for {
			data, err := wsutil.ReadClientText(conn)
			if err != nil {
				return
			}
			var request game.Request
			decodeErr := json.Unmarshal(data, &request)
			if decodeErr != nil || request.Type == "" {
				connection.Send(&game.Event{Type: game.EventTypeError, Payload: game.ErrorEvent{Message: "invalid request envelope"}})
				continue
			}
			handler.Dispatch(ctx, connectionID, request)
		}
	}
}
