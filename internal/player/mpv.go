package player

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/ytloop/internal/models"
	"github.com/desertthunder/ytloop/internal/shared"
)

const (
	rpcDeadline   = 2 * time.Second
	startDeadline = 5 * time.Second
)

var errPropertyUnavailable = errors.New("property unavailable")

type mpvRequest struct {
	Command   []any `json:"command"`
	RequestID int   `json:"request_id"`
}

type mpvMessage struct {
	Error     string          `json:"error"`
	Data      json.RawMessage `json:"data,omitempty"`
	RequestID int             `json:"request_id"`
	Event     string          `json:"event"`
	Reason    string          `json:"reason"`
}

// MPVOptions configures [NewMPV].
type MPVOptions struct {
	// Path is the mpv binary. Empty uses "mpv" from PATH.
	Path string

	// Socket is the IPC socket path. Empty uses a file in the temp directory.
	Socket string

	Logger *log.Logger
}

// MPV controls an mpv process over its JSON IPC socket.
type MPV struct {
	mu     sync.Mutex
	path   string
	socket string
	logger *log.Logger
	cmd    *exec.Cmd
	conn   net.Conn
	reader *bufio.Reader
	nextID int
	ended  bool
}

// NewMPV creates a player that starts mpv on the first Load.
func NewMPV(opts MPVOptions) *MPV {
	path := opts.Path
	if path == "" {
		path = "mpv"
	}
	socket := opts.Socket
	if socket == "" {
		socket = filepath.Join(os.TempDir(), fmt.Sprintf("ytloop-mpv-%d.sock", os.Getpid()))
	}
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &MPV{path: path, socket: socket, logger: logger}
}

// AttachMPV wraps an existing IPC connection, such as one to an mpv started with --input-ipc-server.
func AttachMPV(conn net.Conn, logger *log.Logger) *MPV {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &MPV{conn: conn, reader: bufio.NewReader(conn), logger: logger}
}

func (m *MPV) ensureStarted(ctx context.Context) error {
	if m.conn != nil {
		return nil
	}

	_ = os.Remove(m.socket)
	cmd := exec.Command(m.path, "--idle=yes", "--really-quiet", "--force-window=yes", "--input-ipc-server="+m.socket)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start mpv: %w", err)
	}
	m.cmd = cmd

	deadline := time.Now().Add(startDeadline)
	var dialer net.Dialer
	for {
		conn, err := dialer.DialContext(ctx, "unix", m.socket)
		if err == nil {
			m.conn = conn
			m.reader = bufio.NewReader(conn)
			m.logger.Debug("connected to mpv", "socket", m.socket)
			return nil
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
			m.cmd = nil
			return fmt.Errorf("mpv did not open its IPC socket: %w", err)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

// send writes one command and reads messages until its reply, recording end-of-file events on the way.
func (m *MPV) send(ctx context.Context, args ...any) (json.RawMessage, error) {
	if m.conn == nil {
		return nil, fmt.Errorf("mpv is not running")
	}

	m.nextID++
	id := m.nextID
	b, err := json.Marshal(mpvRequest{Command: args, RequestID: id})
	if err != nil {
		return nil, err
	}
	b = append(b, '\n')

	deadline := time.Now().Add(rpcDeadline)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = m.conn.SetDeadline(deadline)

	if _, err := m.conn.Write(b); err != nil {
		return nil, fmt.Errorf("mpv write: %w", err)
	}

	for {
		line, err := m.reader.ReadBytes('\n')
		if err != nil {
			return nil, fmt.Errorf("mpv read: %w", err)
		}

		var msg mpvMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			m.logger.Debug("skipping malformed mpv message", "error", err)
			continue
		}

		if msg.Event != "" {
			m.handleEvent(msg)
			continue
		}
		if msg.RequestID != id {
			continue
		}

		switch msg.Error {
		case "success":
			return msg.Data, nil
		case "property unavailable":
			return nil, errPropertyUnavailable
		default:
			return nil, fmt.Errorf("mpv error: %s", msg.Error)
		}
	}
}

func (m *MPV) handleEvent(msg mpvMessage) {
	switch msg.Event {
	case "end-file":
		if msg.Reason == "eof" {
			m.ended = true
		}
	case "start-file":
		m.ended = false
	}
}

func (m *MPV) Load(ctx context.Context, videoID string, volume int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureStarted(ctx); err != nil {
		return err
	}
	if _, err := m.send(ctx, "set_property", "volume", models.ClampVolume(volume)); err != nil {
		return err
	}
	if _, err := m.send(ctx, "loadfile", WatchURL(videoID), "replace"); err != nil {
		return fmt.Errorf("failed to load %s: %w", videoID, err)
	}
	m.ended = false
	return nil
}

func (m *MPV) Progress(ctx context.Context) (models.Sample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var s models.Sample
	pos, err := m.floatProperty(ctx, "time-pos")
	if err != nil {
		return s, err
	}
	dur, err := m.floatProperty(ctx, "duration")
	if err != nil {
		return s, err
	}
	idle, err := m.boolProperty(ctx, "idle-active")
	if err != nil {
		return s, err
	}
	paused, err := m.boolProperty(ctx, "pause")
	if err != nil {
		return s, err
	}
	caching, err := m.boolProperty(ctx, "paused-for-cache")
	if err != nil {
		return s, err
	}

	s.Position = seconds(pos)
	s.Duration = seconds(dur)
	switch {
	case m.ended:
		s.State = models.StateEnded
		s.Position = s.Duration
	case idle:
		s.State = models.StateUnstarted
	case caching:
		s.State = models.StateBuffering
	case paused:
		s.State = models.StatePaused
	default:
		s.State = models.StatePlaying
	}
	return s, nil
}

func (m *MPV) floatProperty(ctx context.Context, name string) (float64, error) {
	data, err := m.send(ctx, "get_property", name)
	if errors.Is(err, errPropertyUnavailable) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return 0, nil
	}
	return f, nil
}

func (m *MPV) boolProperty(ctx context.Context, name string) (bool, error) {
	data, err := m.send(ctx, "get_property", name)
	if errors.Is(err, errPropertyUnavailable) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	var b bool
	if err := json.Unmarshal(data, &b); err != nil {
		return false, nil
	}
	return b, nil
}

func seconds(f float64) time.Duration {
	if f <= 0 {
		return 0
	}
	return time.Duration(f * float64(time.Second))
}

func (m *MPV) SetVolume(ctx context.Context, volume int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == nil {
		return nil
	}
	_, err := m.send(ctx, "set_property", "volume", models.ClampVolume(volume))
	return err
}

func (m *MPV) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == nil {
		return nil
	}
	m.ended = false
	_, err := m.send(ctx, "stop")
	return err
}

// Close asks mpv to quit and waits for a process it started.
func (m *MPV) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == nil {
		return nil
	}

	if m.cmd != nil {
		if _, err := m.send(context.Background(), "quit"); err != nil {
			m.logger.Debug("mpv quit failed", "error", err)
		}
	}
	err := m.conn.Close()
	m.conn = nil
	m.reader = nil

	if m.cmd != nil {
		_ = m.cmd.Wait()
		m.cmd = nil
		_ = os.Remove(m.socket)
	}
	return err
}
