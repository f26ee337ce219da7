package socket

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/corey/tagger/internal/ports"
)

// maxMessage bounds one newline-delimited message in either direction.
const maxMessage = 16 * 1024 * 1024

// ErrIDMismatch is returned when a response answers a different request.
var ErrIDMismatch = errors.New("response id mismatch")

// Client connects to the tagger daemon over a Unix socket.
type Client struct {
	sockPath string
}

// NewClient creates a client that will connect to the given socket path.
func NewClient(sockPath string) *Client {
	return &Client{sockPath: sockPath}
}

// Tag sends a tag request and returns the result.
func (c *Client) Tag(req ports.TagRequest) (*TagResult, error) {
	resp, err := c.call(MethodTag, req, 30*time.Second)
	if err != nil {
		return nil, err
	}
	return decodeResult[TagResult](resp)
}

// Health sends a health check request.
func (c *Client) Health() (*HealthResult, error) {
	resp, err := c.call(MethodHealth, nil, 5*time.Second)
	if err != nil {
		return nil, err
	}
	return decodeResult[HealthResult](resp)
}

// Info asks the daemon which dictionary it is serving.
func (c *Client) Info() (*InfoResult, error) {
	resp, err := c.call(MethodInfo, nil, 5*time.Second)
	if err != nil {
		return nil, err
	}
	return decodeResult[InfoResult](resp)
}

// Reload asks the daemon to rebuild its dictionary from source, with an
// extended timeout.
func (c *Client) Reload() (*ReloadResult, error) {
	resp, err := c.call(MethodReload, nil, 10*time.Minute)
	if err != nil {
		return nil, err
	}
	return decodeResult[ReloadResult](resp)
}

// Shutdown sends a shutdown request to the daemon.
func (c *Client) Shutdown() error {
	_, err := c.call(MethodShutdown, nil, 5*time.Second)
	return err
}

// Ping checks if the daemon is reachable.
func (c *Client) Ping() bool {
	conn, err := net.DialTimeout("unix", c.sockPath, 500*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func (c *Client) call(method string, params any, timeout time.Duration) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.sockPath, 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	// Set deadline for the whole request/response
	conn.SetDeadline(time.Now().Add(timeout))

	req := Request{ID: uuid.NewString(), Method: method, Params: params}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 1024*1024), maxMessage)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
		return nil, fmt.Errorf("empty response")
	}

	var resp Response
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("server error: %s", resp.Error)
	}
	if resp.ID != req.ID {
		return nil, fmt.Errorf("%w: sent %s, got %s", ErrIDMismatch, req.ID, resp.ID)
	}
	return &resp, nil
}

// decodeResult re-marshals a generic result into its typed form.
func decodeResult[T any](resp *Response) (*T, error) {
	resultJSON, err := json.Marshal(resp.Result)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	var result T
	if err := json.Unmarshal(resultJSON, &result); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return &result, nil
}
