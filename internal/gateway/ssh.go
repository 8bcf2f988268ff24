package gateway

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
)

// SSHConfig holds configuration for the SSH gateway.
type SSHConfig struct {
	// Addr is the host:port to listen on (e.g., ":2222").
	Addr string

	// HostKeyPath is the path to the host key file. If empty, a key is
	// auto-generated at ~/.paddle-arena/host_key.
	HostKeyPath string

	// IdleTimeout is how long to wait before closing idle connections.
	IdleTimeout time.Duration
}

// SSHServer serves the arena protocol as newline-delimited JSON over
// SSH session streams. The SSH username is the player identity.
type SSHServer struct {
	config   SSHConfig
	server   *ssh.Server
	services Services
	logger   *log.Logger
}

// NewSSHServer creates an SSH gateway bound to the given services.
func NewSSHServer(cfg SSHConfig, svc Services) (*SSHServer, error) {
	logger := svc.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.With("transport", "ssh")
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 30 * time.Minute
	}

	srv := &SSHServer{
		config:   cfg,
		services: svc,
		logger:   logger,
	}

	// Resolve host key path
	hostKeyPath := cfg.HostKeyPath
	if hostKeyPath == "" {
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return nil, fmt.Errorf("cannot get home directory: %w", homeErr)
		}
		hostKeyPath = filepath.Join(home, ".paddle-arena", "host_key")
	}

	// Ensure host key directory exists
	if mkdirErr := os.MkdirAll(filepath.Dir(hostKeyPath), 0o700); mkdirErr != nil {
		return nil, fmt.Errorf("cannot create host key directory: %w", mkdirErr)
	}

	server, err := wish.NewServer(
		wish.WithAddress(cfg.Addr),
		wish.WithHostKeyPath(hostKeyPath),
		wish.WithIdleTimeout(cfg.IdleTimeout),
		wish.WithMiddleware(
			srv.bridgeMiddleware,
			srv.loggingMiddleware,
		),
	)
	if err != nil {
		return nil, fmt.Errorf("cannot create SSH server: %w", err)
	}

	srv.server = server
	return srv, nil
}

// bridgeMiddleware runs the protocol bridge for the session stream.
func (s *SSHServer) bridgeMiddleware(next ssh.Handler) ssh.Handler {
	return func(sshSession ssh.Session) {
		user := sshSession.User()
		if user == "" {
			fmt.Fprintln(sshSession, `{"type":"error","message":"username required"}`)
			return
		}

		NewBridge(newSSHConn(sshSession), user, s.services).Run()
		next(sshSession)
	}
}

// loggingMiddleware logs SSH session events.
func (s *SSHServer) loggingMiddleware(next ssh.Handler) ssh.Handler {
	return func(sshSession ssh.Session) {
		s.logger.Info("session started",
			"user", sshSession.User(),
			"remote", sshSession.RemoteAddr().String(),
		)
		next(sshSession)
		s.logger.Info("session ended",
			"user", sshSession.User(),
			"remote", sshSession.RemoteAddr().String(),
		)
	}
}

// ListenAndServe starts the SSH server and blocks until Shutdown.
func (s *SSHServer) ListenAndServe() error {
	s.logger.Info("starting SSH gateway", "address", s.config.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *SSHServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Addr returns the server's listen address string.
func (s *SSHServer) Addr() string {
	return s.config.Addr
}

// sshConn frames the arena protocol as JSON lines over a session
// stream.
type sshConn struct {
	sess    ssh.Session
	scanner *bufio.Scanner
}

func newSSHConn(sess ssh.Session) *sshConn {
	scanner := bufio.NewScanner(sess)
	scanner.Buffer(make([]byte, 0, 4096), 1<<16)
	return &sshConn{sess: sess, scanner: scanner}
}

// Read returns the next well-formed command. Lines that do not parse
// are skipped rather than ending the session.
func (c *sshConn) Read() (ClientMessage, error) {
	for c.scanner.Scan() {
		line := bytes.TrimSpace(c.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var msg ClientMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			continue
		}
		return msg, nil
	}
	if err := c.scanner.Err(); err != nil {
		return ClientMessage{}, err
	}
	return ClientMessage{}, io.EOF
}

func (c *sshConn) Write(msg ServerMessage) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = c.sess.Write(append(raw, '\n'))
	return err
}

func (c *sshConn) Close() error {
	return c.sess.Close()
}

var _ Conn = (*sshConn)(nil)
