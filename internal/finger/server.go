package finger

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/goatkit/fingerd/internal/models"
)

const (
	// maxQueryLine bounds how much of a request line is read before
	// the connection is answered; finger queries are one short line.
	maxQueryLine = 1024

	defaultReadTimeout = 30 * time.Second
)

// Server accepts finger connections on one or more binds and answers
// them through a Source and a Formatter.
type Server struct {
	hostname  string
	binds     []Bind
	source    Source
	formatter Formatter
	logger    *log.Logger
	timeout   time.Duration
	metrics   *serverMetrics

	mu        sync.Mutex
	listeners []net.Listener
	running   bool
	wg        sync.WaitGroup
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets a custom logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithSource sets the data source answering queries.
func WithSource(src Source) Option {
	return func(s *Server) { s.source = src }
}

// WithFormatter sets the answer formatter.
func WithFormatter(f Formatter) Option {
	return func(s *Server) { s.formatter = f }
}

// WithReadTimeout bounds how long a connection may take to submit
// its query line.
func WithReadTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

// NewServer validates the hostname and bind list and returns a server
// ready to Start. Without options it serves the DummySource through
// the default text formatter.
func NewServer(binds, hostname string, opts ...Option) (*Server, error) {
	hostname = strings.ToUpper(hostname)
	if hostname == "" || !isLDH(hostname) {
		return nil, &HostnameError{Hostname: hostname}
	}

	parsed, err := ParseBinds(binds)
	if err != nil {
		return nil, err
	}

	s := &Server{
		hostname:  hostname,
		binds:     parsed,
		source:    DummySource{},
		formatter: NewTextFormatter(nil),
		logger:    log.Default(),
		timeout:   defaultReadTimeout,
		metrics:   globalServerMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Hostname returns the validated, upper-cased hostname.
func (s *Server) Hostname() string { return s.hostname }

// Addrs returns the addresses the server is currently listening on.
// Useful when a bind used port 0.
func (s *Server) Addrs() []net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	addrs := make([]net.Addr, 0, len(s.listeners))
	for _, ln := range s.listeners {
		addrs = append(addrs, ln.Addr())
	}
	return addrs
}

// Start binds all configured endpoints and begins serving in the
// background. Binds that fail with "address in use" or a privilege
// error are logged and skipped; Start fails only when no endpoint
// could be bound at all.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	var listeners []net.Listener
	for _, bind := range s.binds {
		ln, err := net.Listen("tcp", bind.Addr())
		if err != nil {
			s.logger.Printf("finger: could not bind to %s: %v", bind.Addr(), err)
			continue
		}
		s.logger.Printf("finger: listening on %s", ln.Addr())
		listeners = append(listeners, ln)
	}
	if len(listeners) == 0 {
		return fmt.Errorf("finger: could not bind any of %d configured endpoints", len(s.binds))
	}

	s.running = true
	s.listeners = listeners
	for _, ln := range listeners {
		s.wg.Add(1)
		go s.acceptLoop(ln)
	}
	return nil
}

// Stop closes all listeners and waits for in-flight connections.
func (s *Server) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	for _, ln := range s.listeners {
		ln.Close()
		s.logger.Printf("finger: stopped listening on %s", ln.Addr())
	}
	s.listeners = nil
	s.mu.Unlock()

	s.wg.Wait()
}

// Shutdown is an alias for Stop.
func (s *Server) Shutdown() { s.Stop() }

// ServeForever starts the server and blocks until an interrupt or
// termination signal arrives, then stops it.
func (s *Server) ServeForever() error {
	if err := s.Start(); err != nil {
		return err
	}
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)
	<-sig
	s.Stop()
	return nil
}

func (s *Server) acceptLoop(ln net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Printf("finger: accept on %s: %v", ln.Addr(), err)
			continue
		}
		s.metrics.connections.Inc()
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

// handleConn drives one connection: read the query line, decode,
// dispatch to the source, format and write the answer. Faults are
// contained here; nothing that happens on one connection may take
// down the listener or other connections.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	id := uuid.NewString()[:8]
	src := conn.RemoteAddr().String()

	defer func() {
		if r := recover(); r != nil {
			s.metrics.faults.Inc()
			s.logger.Printf("finger: [%s] panic while handling %s: %v", id, src, r)
			_, _ = io.WriteString(conn, "An internal exception has occurred.\r\n")
		}
	}()

	if s.timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(s.timeout))
	}

	line, err := readQueryLine(conn)
	if err != nil && len(line) == 0 {
		s.logger.Printf("finger: [%s] %s submitted no query (possible scan)", id, src)
		return
	}

	answer := s.answer(id, src, line)
	if _, err := io.WriteString(conn, crlfNormalize(answer)); err != nil {
		s.metrics.faults.Inc()
		s.logger.Printf("finger: [%s] write to %s: %v", id, src, err)
	}
}

// answer resolves one raw query line into the reply text.
func (s *Server) answer(id, src string, line []byte) string {
	query, err := DecodeQuery(line)
	if err != nil {
		s.metrics.malformed.Inc()
		var mqe *MalformedQueryError
		if errors.As(err, &mqe) {
			s.logger.Printf("finger: [%s] %s made a bad request: %s in %q", id, src, mqe.Reason, mqe.Query)
			return s.formatter.FormatQueryError(s.hostname, mqe.Query)
		}
		s.logger.Printf("finger: [%s] %s made a bad request: %v", id, src, err)
		return s.formatter.FormatQueryError(s.hostname, string(line))
	}

	if query.Host != nil {
		username := deref(query.Username)
		if username != "" {
			s.logger.Printf("finger: [%s] %s requested transmitting user query for %q at %q", id, src, username, *query.Host)
		} else {
			s.logger.Printf("finger: [%s] %s requested transmitting user query to %q", id, src, *query.Host)
		}
		s.metrics.recordQuery("relay")
		return s.source.TransmitQuery(*query.Host, username, query.Verbose)
	}

	users := s.searchUsers(id, src, query)
	if query.Username != nil || query.Verbose {
		return s.formatter.FormatLong(s.hostname, query.Raw, users)
	}
	return s.formatter.FormatShort(s.hostname, query.Raw, users)
}

func (s *Server) searchUsers(id, src string, query *Query) []*models.User {
	if query.Username != nil {
		users := s.source.SearchUsers(query.Username, nil)
		s.metrics.recordQuery("user")
		s.logger.Printf("finger: [%s] %s requested user %q: found %s", id, src, *query.Username, countUsers(len(users)))
		return users
	}
	active := true
	users := s.source.SearchUsers(nil, &active)
	s.metrics.recordQuery("list")
	s.logger.Printf("finger: [%s] %s requested connected users: found %s", id, src, countUsers(len(users)))
	return users
}

func countUsers(n int) string {
	switch n {
	case 0:
		return "no user"
	case 1:
		return "1 user"
	default:
		return fmt.Sprintf("%d users", n)
	}
}

// readQueryLine reads up to one line from the connection, without
// requiring a terminator before EOF.
func readQueryLine(conn net.Conn) ([]byte, error) {
	r := bufio.NewReaderSize(io.LimitReader(conn, maxQueryLine), maxQueryLine)
	line, err := r.ReadBytes('\n')
	if err == io.EOF && len(line) > 0 {
		// A query without a terminator is still a query.
		return line, nil
	}
	return line, err
}

// crlfNormalize re-terminates every line with CRLF so formatters may
// emit bare newlines without leaking them onto the wire.
func crlfNormalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimSuffix(s, "\n")
	return strings.Join(strings.Split(s, "\n"), "\r\n") + "\r\n"
}

// isLDH reports whether the hostname is limited to letters, digits,
// hyphens and dots.
func isLDH(hostname string) bool {
	for _, c := range hostname {
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '.':
		default:
			return false
		}
	}
	return true
}
