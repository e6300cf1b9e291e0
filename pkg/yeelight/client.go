// Package yeelight implements the subset of the Yeelight inter-operation
// protocol needed to control a bulb over the LAN: a JSON command channel on
// TCP port 55443 with newline-delimited request/response pairs.
//
// "LAN Control" must be enabled on the bulb for this to work.
package yeelight

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
)

const DefaultPort = 55443

const minEffectDuration = 30 * time.Millisecond

var ErrNotConnected = errors.New("yeelight: not connected")

type command struct {
	ID     int32  `json:"id"`
	Method string `json:"method"`
	Params []any  `json:"params"`
}

type result struct {
	ID     int      `json:"id"`
	Result []any    `json:"result,omitempty"`
	Error  *cmdError `json:"error,omitempty"`
}

type cmdError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *cmdError) Error() string {
	return fmt.Sprintf("yeelight: command failed: %s (code %d)", e.Message, e.Code)
}

// Client is a connection to a single bulb. All commands are serialized: the
// protocol has no pipelining and bulbs drop connections on overlapping
// writes.
type Client struct {
	addr    string
	timeout time.Duration
	logger  *zap.Logger

	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
	nextID int32
}

func NewClient(host string, port uint, timeout time.Duration, logger *zap.Logger) *Client {
	if port == 0 {
		port = DefaultPort
	}
	return &Client{
		addr:    fmt.Sprintf("%s:%d", host, port),
		timeout: timeout,
		logger:  logger.With(zap.String("device", "yeelight"), zap.String("addr", fmt.Sprintf("%s:%d", host, port))),
	}
}

func (c *Client) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return nil
	}
	conn, err := net.DialTimeout("tcp", c.addr, c.timeout)
	if err != nil {
		return fmt.Errorf("yeelight: connect %s: %w", c.addr, err)
	}
	c.conn = conn
	c.reader = bufio.NewReader(conn)
	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.reader = nil
	return err
}

// GetProps reads bulb properties ("power", "bright", "ct", "rgb", "hue",
// "sat", "color_mode", ...). Values come back as strings in request order;
// unknown properties come back empty.
func (c *Client) GetProps(props ...string) (map[string]string, error) {
	params := make([]any, len(props))
	for i, p := range props {
		params[i] = p
	}
	res, err := c.call("get_prop", params...)
	if err != nil {
		return nil, err
	}
	values := make(map[string]string, len(props))
	for i, p := range props {
		if i < len(res.Result) {
			values[p] = fmt.Sprintf("%v", res.Result[i])
		}
	}
	return values, nil
}

func (c *Client) SetPower(on bool, transition time.Duration) error {
	state := "off"
	if on {
		state = "on"
	}
	effect, ms := effectParams(transition)
	_, err := c.call("set_power", state, effect, ms)
	return err
}

// SetBrightness sets brightness as a percentage in [1, 100].
func (c *Client) SetBrightness(percent int, transition time.Duration) error {
	if percent < 1 {
		percent = 1
	}
	if percent > 100 {
		percent = 100
	}
	effect, ms := effectParams(transition)
	_, err := c.call("set_bright", percent, effect, ms)
	return err
}

// SetColorTemp sets the white color temperature in Kelvin (1700-6500).
func (c *Client) SetColorTemp(kelvin int, transition time.Duration) error {
	if kelvin < 1700 {
		kelvin = 1700
	}
	if kelvin > 6500 {
		kelvin = 6500
	}
	effect, ms := effectParams(transition)
	_, err := c.call("set_ct_abx", kelvin, effect, ms)
	return err
}

// SetHSV sets hue in [0, 359] and saturation in [0, 100].
func (c *Client) SetHSV(hue, sat int, transition time.Duration) error {
	if hue > 359 {
		hue = 359
	}
	effect, ms := effectParams(transition)
	_, err := c.call("set_hsv", hue, sat, effect, ms)
	return err
}

func (c *Client) SetRGB(r, g, b uint8, transition time.Duration) error {
	value := int(r)<<16 | int(g)<<8 | int(b)
	effect, ms := effectParams(transition)
	_, err := c.call("set_rgb", value, effect, ms)
	return err
}

func (c *Client) call(method string, params ...any) (*result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil, ErrNotConnected
	}

	c.nextID++
	cmd := command{ID: c.nextID, Method: method, Params: params}
	payload, err := json.Marshal(cmd)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(c.timeout)
	_ = c.conn.SetDeadline(deadline)

	c.logger.Debug("yeelight send", zap.ByteString("payload", payload))
	if _, err := c.conn.Write(append(payload, '\r', '\n')); err != nil {
		c.dropLocked()
		return nil, fmt.Errorf("yeelight: write: %w", err)
	}

	// the bulb pushes unsolicited "props" notifications on the same
	// connection, skip those until our reply shows up
	for {
		line, err := c.reader.ReadBytes('\n')
		if err != nil {
			c.dropLocked()
			return nil, fmt.Errorf("yeelight: read: %w", err)
		}
		var res result
		if err := json.Unmarshal(line, &res); err != nil {
			c.logger.Debug("yeelight skipping unparsable line", zap.ByteString("line", line))
			continue
		}
		if res.ID != int(cmd.ID) {
			continue
		}
		if res.Error != nil {
			return nil, res.Error
		}
		return &res, nil
	}
}

func (c *Client) dropLocked() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = nil
	c.reader = nil
}

func effectParams(transition time.Duration) (string, int) {
	if transition < minEffectDuration {
		return "sudden", 0
	}
	return "smooth", int(transition.Milliseconds())
}
