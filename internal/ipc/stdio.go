// Package ipc carries command requests to the host application over
// line-delimited JSON on stdio or over a websocket.
package ipc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/homewiseai/hwprobe/internal/command"
	"github.com/homewiseai/hwprobe/internal/errors"
	"github.com/homewiseai/hwprobe/internal/logging"
)

// maxLineSize bounds a single request line.
const maxLineSize = 1 << 20

// Dispatcher answers one request.
type Dispatcher interface {
	Dispatch(ctx context.Context, req command.Request) command.Response
}

// StdioServer reads one JSON request per line and writes one JSON response
// per line. Requests run concurrently, so responses may come back out of
// order and are matched by id.
type StdioServer struct {
	dispatcher Dispatcher
	in         io.Reader
	out        io.Writer
	logger     logging.Logger

	writeMu sync.Mutex
	enc     *json.Encoder
}

// NewStdioServer creates a server reading from in and writing to out.
func NewStdioServer(d Dispatcher, in io.Reader, out io.Writer, logger logging.Logger) *StdioServer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StdioServer{
		dispatcher: d,
		in:         in,
		out:        out,
		logger:     logger,
		enc:        json.NewEncoder(out),
	}
}

// Serve handles requests until the input ends or ctx is done, then waits
// for in-flight requests. A read error other than EOF is returned.
func (s *StdioServer) Serve(ctx context.Context) error {
	const op = "ipc.Serve"

	lines := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(s.in)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
		close(lines)
	}()

	s.logger.Info("stdio transport ready")

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stdio transport stopping", "reason", ctx.Err())
			return nil
		case line, ok := <-lines:
			if !ok {
				if err := <-readErr; err != nil {
					return errors.Wrap(errors.System, "reading stdin", err).WithOp(op)
				}
				s.logger.Info("stdin closed")
				return nil
			}
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}

			var req command.Request
			if err := json.Unmarshal(line, &req); err != nil {
				s.logger.Warn("invalid request line", "error", err)
				s.write(command.Response{Error: "invalid request: " + err.Error()})
				continue
			}

			wg.Add(1)
			go func() {
				defer wg.Done()
				s.write(s.dispatcher.Dispatch(ctx, req))
			}()
		}
	}
}

func (s *StdioServer) write(resp command.Response) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.enc.Encode(resp); err != nil {
		s.logger.Error("failed to write response", "error", err)
	}
}
