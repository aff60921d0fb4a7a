/*
	Copyright (c) 2015-2016 Christopher Young
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	status.go: HTTP status, live sample websocket and driver notifications.
*/

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/websocket"

	"github.com/b3nn0/ms5525/hal"
)

type textMessage struct {
	Time     time.Time
	Severity string
	Text     string
}

// textLog keeps the most recent driver notifications for the status page and
// passes them on.
type textLog struct {
	mu   sync.Mutex
	msgs []textMessage
	max  int
	next hal.TextSink
}

func newTextLog(max int, next hal.TextSink) *textLog {
	return &textLog{max: max, next: next}
}

func (t *textLog) SendText(sev hal.Severity, format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	t.mu.Lock()
	t.msgs = append(t.msgs, textMessage{Time: time.Now(), Severity: sev.String(), Text: text})
	if len(t.msgs) > t.max {
		t.msgs = t.msgs[len(t.msgs)-t.max:]
	}
	t.mu.Unlock()
	if t.next != nil {
		t.next.SendText(sev, "%s", text)
	}
}

func (t *textLog) recent() []textMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]textMessage(nil), t.msgs...)
}

type broadcaster struct {
	sockets    []*websocket.Conn
	sockets_mu sync.Mutex
	messages   chan []byte
}

func newBroadcaster() *broadcaster {
	return &broadcaster{messages: make(chan []byte, 1024)}
}

// Send queues msg for all sockets. Messages are dropped while the queue is full.
func (b *broadcaster) Send(msg []byte) {
	select {
	case b.messages <- msg:
	default:
	}
}

func (b *broadcaster) AddSocket(sock *websocket.Conn) {
	b.sockets_mu.Lock()
	b.sockets = append(b.sockets, sock)
	b.sockets_mu.Unlock()
}

func (b *broadcaster) writer(ctx context.Context) {
	for {
		var msg []byte
		select {
		case <-ctx.Done():
			return
		case msg = <-b.messages:
		}
		// Keep a list of the writeable sockets.
		p := make([]*websocket.Conn, 0)
		b.sockets_mu.Lock()
		for _, sock := range b.sockets {
			err := sock.SetWriteDeadline(time.Now().Add(time.Second))
			_, err2 := sock.Write(msg)
			if err == nil && err2 == nil {
				p = append(p, sock)
			}
		}
		b.sockets = p
		b.sockets_mu.Unlock()
	}
}

func (a *airData) handleStatusRequest(w http.ResponseWriter, r *http.Request) {
	setNoCache(w)
	w.Header().Set("Content-Type", "application/json")
	statusJSON, _ := json.Marshal(a.snapshot())
	w.Write(statusJSON)
}

// handleLiveConnection sends the current status, then every sample until the
// client goes away.
func (a *airData) handleLiveConnection(conn *websocket.Conn) {
	a.live.AddSocket(conn)
	if err := websocket.JSON.Send(conn, a.snapshot()); err != nil {
		return
	}
	var msg json.RawMessage
	for {
		// Clients have nothing to say; reading only notices the close.
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			return
		}
	}
}

func setNoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
}

func (a *airData) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", a.handleStatusRequest)
	mux.HandleFunc("/status", a.handleStatusRequest)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/live",
		func(w http.ResponseWriter, req *http.Request) {
			s := websocket.Server{
				Handler: websocket.Handler(a.handleLiveConnection)}
			s.ServeHTTP(w, req)
		})
	return mux
}
