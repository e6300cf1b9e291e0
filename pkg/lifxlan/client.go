package lifxlan

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrNotConnected = errors.New("lifxlan: not connected")

// State is a bulb state snapshot as reported by a LightState message.
type State struct {
	Color HSBK
	On    bool
	Label string
}

// Device is a discovery result.
type Device struct {
	Addr *net.UDPAddr
	// Target is the bulb's serial, used to address it in unicast messages.
	Target [8]byte
}

// Serial renders the bulb's serial the way the LIFX app shows it: the six
// meaningful target bytes as lowercase hex.
func (d Device) Serial() string {
	return fmt.Sprintf("%02x%02x%02x%02x%02x%02x",
		d.Target[0], d.Target[1], d.Target[2], d.Target[3], d.Target[4], d.Target[5])
}

// Client talks to a single bulb over unicast UDP. Requests are serialized,
// responses are matched on source id and sequence number.
type Client struct {
	addr    string
	timeout time.Duration
	logger  *zap.Logger

	mu       sync.Mutex
	conn     *net.UDPConn
	source   uint32
	sequence uint8
	target   [8]byte
}

func NewClient(host string, port uint, logger *zap.Logger) *Client {
	if port == 0 {
		port = Port
	}
	return &Client{
		addr:    fmt.Sprintf("%s:%d", host, port),
		timeout: 2 * time.Second,
		logger:  logger.With(zap.String("device", "lifx"), zap.String("addr", fmt.Sprintf("%s:%d", host, port))),
	}
}

// NewClientForDevice builds a client for a discovered bulb, addressing it
// by its target serial.
func NewClientForDevice(dev Device, logger *zap.Logger) *Client {
	return &Client{
		addr:    dev.Addr.String(),
		timeout: 2 * time.Second,
		target:  dev.Target,
		logger:  logger.With(zap.String("device", "lifx"), zap.String("addr", dev.Addr.String())),
	}
}

func (c *Client) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return nil
	}
	raddr, err := net.ResolveUDPAddr("udp4", c.addr)
	if err != nil {
		return fmt.Errorf("lifxlan: resolve %s: %w", c.addr, err)
	}
	conn, err := net.DialUDP("udp4", nil, raddr)
	if err != nil {
		return fmt.Errorf("lifxlan: dial %s: %w", c.addr, err)
	}
	c.conn = conn
	c.source = rand.Uint32()
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
	return err
}

// GetState queries the bulb for its current color, power and label.
func (c *Client) GetState() (*State, error) {
	payload, err := c.request(typeGetColor, nil, typeLightState)
	if err != nil {
		return nil, err
	}
	ls := payload.(*lightState)
	return &State{
		Color: ls.Color,
		On:    ls.Power != PowerOff,
		Label: label(ls.Label),
	}, nil
}

// SetColor fades the bulb to the given HSBK over the given duration. The
// bulb replies with its pre-change state, which is discarded.
func (c *Client) SetColor(color HSBK, transition time.Duration) error {
	msg := setColor{Color: color, Duration: uint32(transition.Milliseconds())}
	_, err := c.request(typeSetColor, &msg, typeLightState)
	return err
}

// SetPower turns the bulb on or off over the given duration.
func (c *Client) SetPower(on bool, transition time.Duration) error {
	level := PowerOff
	if on {
		level = PowerOn
	}
	msg := setPower{Level: level, Duration: uint32(transition.Milliseconds())}
	_, err := c.request(typeSetPower, &msg, typeStatePower)
	return err
}

func (c *Client) request(msgType uint16, payload any, wantType uint16) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil, ErrNotConnected
	}

	c.sequence++
	datagram, err := marshal(msgType, c.source, c.target, c.sequence, false, false, payload)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(c.timeout)
	_ = c.conn.SetDeadline(deadline)

	if _, err := c.conn.Write(datagram); err != nil {
		return nil, fmt.Errorf("lifxlan: write: %w", err)
	}

	buf := make([]byte, 1024)
	for {
		n, err := c.conn.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("lifxlan: read: %w", err)
		}
		h, resp, err := unmarshal(buf[:n])
		if err != nil {
			c.logger.Debug("lifx skipping bad datagram", zap.Error(err))
			continue
		}
		if h.Source != c.source || h.Sequence != c.sequence {
			continue
		}
		if h.Type != wantType {
			continue
		}
		return resp, nil
	}
}

// Discover broadcasts a GetService message and collects every bulb that
// answers before the timeout.
func Discover(timeout time.Duration, logger *zap.Logger) ([]Device, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
	if err != nil {
		return nil, fmt.Errorf("lifxlan: listen: %w", err)
	}
	defer conn.Close()

	source := rand.Uint32()
	datagram, err := marshal(typeGetService, source, [8]byte{}, 1, true, false, nil)
	if err != nil {
		return nil, err
	}

	baddr := &net.UDPAddr{IP: net.IPv4bcast, Port: Port}
	if _, err := conn.WriteToUDP(datagram, baddr); err != nil {
		return nil, fmt.Errorf("lifxlan: broadcast: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(timeout))

	var devices []Device
	seen := map[string]bool{}
	buf := make([]byte, 1024)
	for {
		n, raddr, err := conn.ReadFromUDP(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return devices, nil
			}
			return devices, err
		}
		h, payload, err := unmarshal(buf[:n])
		if err != nil || h.Source != source {
			continue
		}
		svc, ok := payload.(*stateService)
		if !ok || svc.Service != 1 { // 1 = UDP
			continue
		}
		key := raddr.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		logger.Debug("lifx discovered device", zap.String("addr", raddr.String()))
		devices = append(devices, Device{
			Addr:   &net.UDPAddr{IP: raddr.IP, Port: int(svc.Port)},
			Target: h.Target,
		})
	}
}
