package eventstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/skyarray/device-agent/internal/constants"
	"github.com/skyarray/device-agent/internal/entities"
)

const subscriberBufferSize = 32

// Service is the push side of attribute change events: a websocket endpoint
// that fans every change out to all connected subscribers. A subscriber that
// cannot keep up is dropped rather than allowed to stall the fan-out.
type Service struct {
	addr     string
	upgrader websocket.Upgrader
	server   *http.Server

	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
}

type subscriber struct {
	conn *websocket.Conn
	send chan entities.AttributeChange
	done chan struct{}
	once sync.Once
}

func NewService(addr string) *Service {
	return &Service{
		addr: addr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		subscribers: make(map[*subscriber]struct{}),
	}
}

// Start serves the subscription endpoint until the context is cancelled.
// Blocking; run on its own goroutine.
func (s *Service) Start(ctx context.Context) {
	if s.addr == "" {
		log.Info().Msg("Start: event stream disabled, no listen address")
		return
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/events", s.handleSubscribe)

	s.server = &http.Server{Addr: s.addr, Handler: mux}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.EventStreamWriteWait)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Start: event stream shutdown error")
		}
	}()

	log.Info().Str("addr", s.addr).Msg("Start: event stream listening")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("Start: event stream serve error")
	}
}

func (s *Service) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("handleSubscribe: upgrade error")
		return
	}

	sub := &subscriber{
		conn: conn,
		send: make(chan entities.AttributeChange, subscriberBufferSize),
		done: make(chan struct{}),
	}

	s.mu.Lock()
	s.subscribers[sub] = struct{}{}
	count := len(s.subscribers)
	s.mu.Unlock()

	log.Info().
		Str("remote", conn.RemoteAddr().String()).
		Int("subscribers", count).
		Msg("handleSubscribe: subscriber connected")

	go s.writeLoop(sub)
	go s.readLoop(sub)
}

// writeLoop pushes changes and keepalive pings to one subscriber.
func (s *Service) writeLoop(sub *subscriber) {
	ticker := time.NewTicker(constants.EventStreamPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-sub.done:
			return

		case change := <-sub.send:
			payload, err := json.Marshal(change)
			if err != nil {
				log.Error().Err(err).Msg("writeLoop: marshal change error")
				continue
			}

			_ = sub.conn.SetWriteDeadline(time.Now().Add(constants.EventStreamWriteWait))
			if err = sub.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.drop(sub, fmt.Sprintf("write error: %v", err))
				return
			}

		case <-ticker.C:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(constants.EventStreamWriteWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.drop(sub, fmt.Sprintf("ping error: %v", err))
				return
			}
		}
	}
}

// readLoop discards inbound frames; its only job is detecting disconnects.
func (s *Service) readLoop(sub *subscriber) {
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			s.drop(sub, "subscriber disconnected")
			return
		}
	}
}

// Broadcast queues a change for every subscriber. Non-blocking: a full buffer
// drops the subscriber.
func (s *Service) Broadcast(change entities.AttributeChange) {
	s.mu.Lock()
	subs := make([]*subscriber, 0, len(s.subscribers))
	for sub := range s.subscribers {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub.send <- change:
		default:
			s.drop(sub, "subscriber too slow")
		}
	}
}

func (s *Service) drop(sub *subscriber, reason string) {
	s.mu.Lock()
	if _, exists := s.subscribers[sub]; !exists {
		s.mu.Unlock()
		return
	}

	delete(s.subscribers, sub)
	s.mu.Unlock()

	sub.once.Do(func() { close(sub.done) })
	_ = sub.conn.Close()

	log.Info().
		Str("remote", sub.conn.RemoteAddr().String()).
		Str("reason", reason).
		Msg("drop: subscriber dropped")
}

func (s *Service) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.subscribers)
}
