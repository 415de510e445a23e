package api

import (
	"bytes"
	"net"
	"net/http"

	"github.com/nijks777/sudoku/log"
	"github.com/sagernet/sing/common/json"
	"github.com/sagernet/ws"
	"github.com/sagernet/ws/wsutil"

	"github.com/go-chi/render"
)

type logEntry struct {
	Type    string `json:"type"`
	Payload string `json:"payload"`
}

func getLogs(logFactory log.ObservableFactory) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		levelText := r.URL.Query().Get("level")
		if levelText == "" {
			levelText = "info"
		}

		level, err := log.ParseLevel(levelText)
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, ErrBadRequest)
			return
		}

		subscription, done, err := logFactory.Subscribe()
		if err != nil {
			render.Status(r, http.StatusNoContent)
			return
		}
		defer logFactory.UnSubscribe(subscription)

		var wsConn net.Conn
		if isWebsocketUpgrade(r) {
			conn, _, _, err := ws.UpgradeHTTP(r, w)
			if err != nil {
				return
			}
			defer conn.Close()
			wsConn = conn
		} else {
			w.Header().Set("Content-Type", "application/json")
			render.Status(r, http.StatusOK)
		}

		buf := &bytes.Buffer{}
		var entry log.Entry
		for {
			select {
			case <-done:
				return
			case <-r.Context().Done():
				return
			case entry = <-subscription:
			}
			if entry.Level > level {
				continue
			}
			buf.Reset()
			err = json.NewEncoder(buf).Encode(logEntry{
				Type:    log.FormatLevel(entry.Level),
				Payload: entry.Message,
			})
			if err != nil {
				break
			}
			if wsConn == nil {
				_, err = w.Write(buf.Bytes())
				w.(http.Flusher).Flush()
			} else {
				err = wsutil.WriteServerText(wsConn, buf.Bytes())
			}
			if err != nil {
				break
			}
		}
	}
}
