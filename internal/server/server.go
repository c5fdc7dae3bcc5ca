// Package server exposes warden's HTTP surface: single-utterance processing,
// batch execution, background human-in-the-loop execution, status polling,
// and resume. Handlers are thin; all policy and orchestration lives in the
// collaborator packages.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/mboyd/warden/internal/confirm"
	"github.com/mboyd/warden/internal/engine"
	"github.com/mboyd/warden/internal/history"
	"github.com/mboyd/warden/internal/policy"
)

// DefaultPort is the port the orchestrator listens on.
const DefaultPort = 8090

// Extractor turns transcripts into commands. A false/empty return means no
// command was found; extraction never errors.
type Extractor interface {
	Command(ctx context.Context, transcript string) (string, bool)
	Commands(ctx context.Context, transcripts []string) []string
}

// Validator decides whether a command may run.
type Validator interface {
	Validate(cmd string) policy.Result
}

// CommandRunner executes a single validated command via the agent.
type CommandRunner interface {
	Run(ctx context.Context, message string, timeout time.Duration) (string, error)
}

// Executor is the background execution engine.
type Executor interface {
	Start(ctx context.Context, commands []string, transcript string) string
	Snapshot(sessionID string) (engine.Snapshot, error)
	SubmitAnswer(sessionID, answer string) error
}

// Server handles orchestrator HTTP requests.
type Server struct {
	// Addr is the address to listen on (e.g. ":8090").
	Addr string

	// Extractor extracts commands from transcripts. Required.
	Extractor Extractor

	// Validator enforces the command policy. Required.
	Validator Validator

	// Runner executes single validated commands. Required.
	Runner CommandRunner

	// Engine runs background sessions. Required.
	Engine Executor

	// Confirmations holds commands pending operator confirmation. Required.
	Confirmations *confirm.Store

	// History records processed commands. May be nil to disable.
	History *history.Store

	// CommandTimeout bounds a single validated command.
	CommandTimeout time.Duration

	baseCtx  context.Context
	server   *http.Server
	listener net.Listener
	mu       sync.Mutex
	running  bool
}

// Start begins accepting connections. The context is retained as the base
// context for background execution sessions; canceling it stops their run
// loops at the next suspension point.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("server already running")
	}
	if s.Addr == "" {
		s.Addr = fmt.Sprintf(":%d", DefaultPort)
	}
	if s.CommandTimeout <= 0 {
		s.CommandTimeout = 30 * time.Second
	}
	s.baseCtx = ctx

	listener, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.Addr, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /process", s.handleProcess)
	mux.HandleFunc("POST /execute", s.handleExecute)
	mux.HandleFunc("POST /execute/background", s.handleBackground)
	mux.HandleFunc("GET /context/{id}", s.handleContext)
	mux.HandleFunc("POST /resume/{id}", s.handleResume)
	mux.HandleFunc("GET /history", s.handleHistory)

	s.listener = listener
	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 30 * time.Second,
	}
	s.running = true

	go func() {
		_ = s.server.Serve(listener)
	}()

	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false
	return s.server.Shutdown(ctx)
}

// ListenAddr returns the actual listen address, useful when started with
// port 0. Empty if the server is not running.
func (s *Server) ListenAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
