//go:build linux

package ircreactor

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

// Manager connects the configured servers, logs in and runs the reactor.
type Manager struct {
	ctx     context.Context
	config  *Config
	client  *Client
	servers map[SessionId]ServerConfig
}

func NewManager(ctx context.Context, config *Config) (*Manager, error) {
	reactor := config.Reactor.withDefaults()
	err := checkLoginCapacity(len(config.Servers), reactor.ActionQueueSize)
	if err != nil {
		return nil, err
	}
	raiseOpenFilesLimit(uint64(len(config.Servers)) + 1024)
	client, err := NewClient(reactor)
	if err != nil {
		return nil, err
	}
	m := &Manager{
		ctx:     ctx,
		config:  config,
		client:  client,
		servers: make(map[SessionId]ServerConfig),
	}
	for _, server := range config.Servers {
		err = m.connect(server)
		if err != nil {
			log.Error().Msgf("can't connect to server %s (%s): %+v", server.Name, server.Address, err)
			_ = client.Close()
			return nil, err
		}
	}
	return m, nil
}

func (m *Manager) connect(server ServerConfig) error {
	server = server.withDefaults()
	conn, err := DialConnection(server)
	if err != nil {
		return err
	}
	id, err := m.client.AddSession(NewLineSession(conn))
	if err != nil {
		_ = conn.Close()
		return err
	}
	m.servers[id] = server
	log.Info().Msgf("[session %d] connected to %s (%s)", id.index, server.Name, conn.RemoteAddr())
	return m.login(id, server)
}

// login queues the registration commands; they go out on the first wake of
// the reactor.
func (m *Manager) login(id SessionId, server ServerConfig) error {
	handle := m.Handle()
	nick, err := NewMessage("NICK", server.Nick)
	if err != nil {
		return err
	}
	user, err := NewMessage("USER", server.User, "0", "*", server.RealName)
	if err != nil {
		return err
	}
	for _, msg := range []Message{nick, user} {
		err = handle.Send(m.ctx, id, msg)
		if err != nil {
			return err
		}
	}
	return nil
}

// Server returns the configuration a session was created from.
func (m *Manager) Server(id SessionId) (ServerConfig, bool) {
	server, ok := m.servers[id]
	return server, ok
}

func (m *Manager) Handle() ClientHandle {
	return m.client.Handle()
}

// Run blocks until the reactor stops. Cancelling the manager context asks the
// reactor to shut down.
func (m *Manager) Run(handler MessageHandler) error {
	if m.config.Global.StatsPeriodSec > 0 {
		go m.client.ReportStats(m.ctx, time.Duration(m.config.Global.StatsPeriodSec)*time.Second)
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-m.ctx.Done():
			err := m.Handle().Shutdown()
			if err != nil && !errors.Is(err, ErrClientClosed) {
				log.Error().Msgf("can't request reactor shutdown: %+v", err)
			}
		case <-done:
		}
	}()
	err := m.client.Run(handler)
	close(done)
	closeErr := m.client.Close()
	if err != nil {
		return err
	}
	return closeErr
}
