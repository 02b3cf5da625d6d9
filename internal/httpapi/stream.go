package httpapi

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/conduit-lang/izruna/internal/clean"
	"github.com/conduit-lang/izruna/internal/orchestrator"
	"github.com/gorilla/websocket"
)

// Streaming heartbeat timings, a single connection with no hub or
// room registry: one socket in, one socket out, no broadcast.
const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = (streamPongWait * 9) / 10
	streamMaxMessage = 64 * 1024
)

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleWebsocketStream upgrades the connection and transcribes each
// newline-delimited word the client sends, writing back one JSON
// result per line — for bulk/interactive use without per-request HTTP
// overhead.
func (a *API) handleWebsocketStream(w http.ResponseWriter, r *http.Request) {
	sep := formValue(r, "sep")
	encoderName := formValue(r, "fmt", "encoder")
	o, err := a.orchestratorFor(encoderName)
	if err != nil {
		renderBadRequest(w, err.Error())
		return
	}

	conn, err := streamUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	var writeMu sync.Mutex
	done := make(chan struct{})
	go streamWritePing(conn, &writeMu, done)
	defer close(done)

	conn.SetReadLimit(streamMaxMessage)
	conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(streamPongWait))
		return nil
	})

	ctx := r.Context()
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}
		for _, line := range strings.Split(string(message), "\n") {
			word := strings.TrimSpace(line)
			if word == "" {
				continue
			}
			resp := transcribeOne(ctx, o, clean.Text(word), sep, encoderName)

			writeMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			err := conn.WriteJSON(resp)
			writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func transcribeOne(ctx context.Context, o *orchestrator.CachingOrchestrator, word, sep, encoderName string) transcribeResponse {
	result, err := o.Transcribe(ctx, word, sep)
	if err != nil {
		return transcribeResponse{Word: word, Error: err.Error(), Encoder: encoderName}
	}
	return transcribeResponse{Word: word, Result: result, Encoder: encoderName}
}

func streamWritePing(conn *websocket.Conn, writeMu *sync.Mutex, done <-chan struct{}) {
	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			writeMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
