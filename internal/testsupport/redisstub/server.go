// Package redisstub is a minimal in-process Redis speaking enough RESP2 for
// go-redis clients to PING, PUBLISH and SUBSCRIBE.
package redisstub

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
)

type Server struct {
	listener net.Listener
	addr     string
	mu       sync.Mutex
	subs     map[string]map[*conn]struct{}
	closed   chan struct{}
}

type conn struct {
	net.Conn
	mu     sync.Mutex
	writer *bufio.Writer
}

func (c *conn) write(fn func(w *bufio.Writer) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := fn(c.writer); err != nil {
		return err
	}
	return c.writer.Flush()
}

func Start() (*Server, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	server := &Server{
		listener: ln,
		addr:     ln.Addr().String(),
		subs:     make(map[string]map[*conn]struct{}),
		closed:   make(chan struct{}),
	}
	go server.serve()
	return server, nil
}

func (s *Server) Addr() string {
	return s.addr
}

func (s *Server) Close() error {
	s.mu.Lock()
	select {
	case <-s.closed:
		s.mu.Unlock()
		return nil
	default:
	}
	close(s.closed)
	s.mu.Unlock()
	return s.listener.Close()
}

func (s *Server) serve() {
	for {
		nc, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closed:
				return
			default:
			}
			continue
		}
		go s.handleConnection(&conn{Conn: nc, writer: bufio.NewWriter(nc)})
	}
}

func (s *Server) handleConnection(c *conn) {
	defer func() {
		s.dropSubscriber(c)
		_ = c.Close()
	}()
	reader := bufio.NewReader(c)
	for {
		args, err := readArray(reader)
		if err != nil {
			return
		}
		if len(args) == 0 {
			continue
		}
		if !s.dispatch(c, args) {
			return
		}
	}
}

func (s *Server) dispatch(c *conn, args []string) bool {
	var err error
	switch strings.ToUpper(args[0]) {
	case "PING":
		err = c.write(func(w *bufio.Writer) error { return writeSimpleString(w, "PONG") })
	case "SELECT", "AUTH":
		err = c.write(func(w *bufio.Writer) error { return writeSimpleString(w, "OK") })
	case "PUBLISH":
		if len(args) != 3 {
			err = c.write(func(w *bufio.Writer) error { return writeError(w, "ERR wrong number of arguments for 'publish'") })
			break
		}
		delivered := s.publish(args[1], args[2])
		err = c.write(func(w *bufio.Writer) error { return writeInteger(w, int64(delivered)) })
	case "SUBSCRIBE":
		for i, channel := range args[1:] {
			s.subscribe(c, channel)
			count := int64(i + 1)
			if err = c.write(func(w *bufio.Writer) error {
				return writeArray(w, "subscribe", channel, count)
			}); err != nil {
				break
			}
		}
	case "UNSUBSCRIBE":
		s.dropSubscriber(c)
		err = c.write(func(w *bufio.Writer) error {
			return writeArray(w, "unsubscribe", nil, int64(0))
		})
	case "QUIT":
		_ = c.write(func(w *bufio.Writer) error { return writeSimpleString(w, "OK") })
		return false
	default:
		// HELLO, CLIENT SETINFO and friends; go-redis falls back to RESP2
		err = c.write(func(w *bufio.Writer) error { return writeError(w, "ERR unknown command '"+args[0]+"'") })
	}
	return err == nil
}

func (s *Server) subscribe(c *conn, channel string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs[channel] == nil {
		s.subs[channel] = make(map[*conn]struct{})
	}
	s.subs[channel][c] = struct{}{}
}

func (s *Server) dropSubscriber(c *conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conns := range s.subs {
		delete(conns, c)
	}
}

func (s *Server) publish(channel, message string) int {
	s.mu.Lock()
	targets := make([]*conn, 0, len(s.subs[channel]))
	for c := range s.subs[channel] {
		targets = append(targets, c)
	}
	s.mu.Unlock()

	delivered := 0
	for _, c := range targets {
		err := c.write(func(w *bufio.Writer) error {
			return writeArray(w, "message", channel, message)
		})
		if err == nil {
			delivered++
		}
	}
	return delivered
}

func readArray(r *bufio.Reader) ([]string, error) {
	prefix, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if prefix != '*' {
		return nil, fmt.Errorf("unexpected prefix %q", prefix)
	}
	length, err := readLength(r)
	if err != nil {
		return nil, err
	}
	args := make([]string, 0, length)
	for i := 0; i < length; i++ {
		arg, err := readBulkString(r)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	return args, nil
}

func readLength(r *bufio.Reader) (int, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return 0, err
	}
	line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
	return strconv.Atoi(line)
}

func readBulkString(r *bufio.Reader) (string, error) {
	prefix, err := r.ReadByte()
	if err != nil {
		return "", err
	}
	if prefix != '$' {
		return "", fmt.Errorf("unexpected prefix %q", prefix)
	}
	length, err := readLength(r)
	if err != nil {
		return "", err
	}
	if length < 0 {
		return "", nil
	}
	buf := make([]byte, length+2)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf[:length]), nil
}

func writeSimpleString(w *bufio.Writer, value string) error {
	_, err := fmt.Fprintf(w, "+%s\r\n", value)
	return err
}

func writeInteger(w *bufio.Writer, value int64) error {
	_, err := fmt.Fprintf(w, ":%d\r\n", value)
	return err
}

func writeError(w *bufio.Writer, msg string) error {
	_, err := fmt.Fprintf(w, "-%s\r\n", msg)
	return err
}

func writeArray(w *bufio.Writer, values ...any) error {
	if _, err := fmt.Fprintf(w, "*%d\r\n", len(values)); err != nil {
		return err
	}
	for _, value := range values {
		var err error
		switch v := value.(type) {
		case nil:
			_, err = w.WriteString("$-1\r\n")
		case int64:
			err = writeInteger(w, v)
		case string:
			_, err = fmt.Fprintf(w, "$%d\r\n%s\r\n", len(v), v)
		default:
			s := fmt.Sprint(v)
			_, err = fmt.Fprintf(w, "$%d\r\n%s\r\n", len(s), s)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
