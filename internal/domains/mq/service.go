package mq

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

const (
	reconnectWait = 2 * time.Second
)

// Handler consumes one broker message and returns the reply payload. A nil
// reply suppresses the response even on request/reply subjects.
type Handler func(m *nats.Msg) (resp any)

// Service owns the broker connection and the subject/handler table. Handlers
// are registered up front and activated individually, so a device can expose
// subjects only in the modes that admit them.
type Service struct {
	url string

	mu       sync.Mutex
	conn     *nats.Conn
	handlers map[string]Handler
	subs     map[string]*nats.Subscription
}

func NewService(url string) *Service {
	return &Service{
		url:      url,
		handlers: make(map[string]Handler),
		subs:     make(map[string]*nats.Subscription),
	}
}

func (s *Service) RegisterHandlers(handlers map[string]Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for subject, handler := range handlers {
		s.handlers[subject] = handler
	}
}

func (s *Service) Connect() (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return nil
	}

	if s.conn, err = nats.Connect(s.url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("Connect: broker connection lost")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("Connect: broker connection restored")
		}),
	); err != nil {
		return fmt.Errorf("Connect: %w", err)
	}

	return nil
}

// ActivateHandler subscribes the registered handler for a subject. Replies are
// JSON-encoded and sent back when the message carries a reply subject.
func (s *Service) ActivateHandler(subject string) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return fmt.Errorf("ActivateHandler: not connected")
	}

	handler, exists := s.handlers[subject]
	if !exists {
		return fmt.Errorf("ActivateHandler: no handler registered for subject %s", subject)
	}

	if _, active := s.subs[subject]; active {
		return nil
	}

	sub, err := s.conn.Subscribe(subject, func(m *nats.Msg) {
		resp := handler(m)
		if resp == nil || m.Reply == "" {
			return
		}

		payload, err := json.Marshal(resp)
		if err != nil {
			log.Error().Err(err).Str("subject", m.Subject).Msg("ActivateHandler: marshal reply error")
			return
		}

		if err = m.Respond(payload); err != nil {
			log.Error().Err(err).Str("subject", m.Subject).Msg("ActivateHandler: respond error")
		}
	})
	if err != nil {
		return fmt.Errorf("ActivateHandler: %w", err)
	}

	s.subs[subject] = sub

	log.Debug().Str("subject", subject).Msg("ActivateHandler: subject activated")

	return nil
}

func (s *Service) ActivateAllHandlers() (err error) {
	s.mu.Lock()
	subjects := make([]string, 0, len(s.handlers))
	for subject := range s.handlers {
		subjects = append(subjects, subject)
	}
	s.mu.Unlock()

	for _, subject := range subjects {
		if err = s.ActivateHandler(subject); err != nil {
			return fmt.Errorf("ActivateAllHandlers: %w", err)
		}
	}

	return nil
}

func (s *Service) DeactivateHandler(subject string) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, active := s.subs[subject]
	if !active {
		return nil
	}

	delete(s.subs, subject)

	if err = sub.Unsubscribe(); err != nil {
		return fmt.Errorf("DeactivateHandler: %w", err)
	}

	return nil
}

// Publish fires a JSON-encoded payload at a subject, no reply expected.
func (s *Service) Publish(subject string, payload any) (err error) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("Publish: not connected")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("Publish: %w", err)
	}

	if err = conn.Publish(subject, data); err != nil {
		return fmt.Errorf("Publish: %w", err)
	}

	return nil
}

func (s *Service) Close() (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}

	if err = s.conn.Drain(); err != nil {
		return fmt.Errorf("Close: %w", err)
	}

	s.conn = nil
	s.subs = make(map[string]*nats.Subscription)

	return nil
}
