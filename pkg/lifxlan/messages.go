// Package lifxlan implements the small slice of the LIFX LAN protocol needed
// to discover and control bulbs: binary little-endian messages over UDP port
// 56700.
package lifxlan

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	// Port is the UDP port bulbs listen on.
	Port = 56700

	protocolNumber = 1024
	headerSize     = 36
)

// Message type ids from the LAN protocol documentation.
const (
	typeGetService   = 2
	typeStateService = 3
	typeAcknowledge  = 45
	typeGetColor     = 101
	typeSetColor     = 102
	typeLightState   = 107
	typeSetPower     = 117
	typeStatePower   = 118
)

// PowerOn and PowerOff are the only valid power levels.
const (
	PowerOn  uint16 = 0xFFFF
	PowerOff uint16 = 0x0000
)

// HSBK is the LIFX native color representation. Hue maps 0-360 degrees onto
// the full uint16 range, saturation and brightness map 0-100% the same way.
// Kelvin is only meaningful when saturation is low.
type HSBK struct {
	Hue        uint16
	Saturation uint16
	Brightness uint16
	Kelvin     uint16
}

type header struct {
	Size      uint16
	Protocol  uint16 // protocol(12) | addressable(1) | tagged(1) | origin(2)
	Source    uint32
	Target    [8]byte
	Reserved1 [6]byte
	Flags     uint8 // res_required(1) | ack_required(1)
	Sequence  uint8
	Reserved2 [8]byte
	Type      uint16
	Reserved3 [2]byte
}

type stateService struct {
	Service uint8
	Port    uint32
}

type setColor struct {
	Reserved uint8
	Color    HSBK
	Duration uint32 // milliseconds
}

type lightState struct {
	Color     HSBK
	Reserved1 int16
	Power     uint16
	Label     [32]byte
	Reserved2 uint64
}

type setPower struct {
	Level    uint16
	Duration uint32
}

type statePower struct {
	Level uint16
}

// marshal builds a full wire message: header plus optional payload struct.
func marshal(msgType uint16, source uint32, target [8]byte, sequence uint8, tagged, ackRequired bool, payload any) ([]byte, error) {
	var body bytes.Buffer
	if payload != nil {
		if err := binary.Write(&body, binary.LittleEndian, payload); err != nil {
			return nil, fmt.Errorf("lifxlan: marshal payload: %w", err)
		}
	}

	h := header{
		Size:     uint16(headerSize + body.Len()),
		Protocol: protocolNumber | 1<<12, // addressable is always set
		Source:   source,
		Target:   target,
		Sequence: sequence,
		Type:     msgType,
	}
	if tagged {
		h.Protocol |= 1 << 13
	}
	h.Flags = 1 // res_required
	if ackRequired {
		h.Flags |= 1 << 1
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, h); err != nil {
		return nil, fmt.Errorf("lifxlan: marshal header: %w", err)
	}
	buf.Write(body.Bytes())
	return buf.Bytes(), nil
}

// unmarshal splits a datagram into its header and decodes the payload for
// the message types the client understands. Unknown types return a nil
// payload with no error so callers can skip them.
func unmarshal(datagram []byte) (*header, any, error) {
	if len(datagram) < headerSize {
		return nil, nil, fmt.Errorf("lifxlan: datagram too short: %d bytes", len(datagram))
	}
	var h header
	r := bytes.NewReader(datagram)
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, nil, fmt.Errorf("lifxlan: unmarshal header: %w", err)
	}

	var payload any
	switch h.Type {
	case typeStateService:
		payload = &stateService{}
	case typeLightState:
		payload = &lightState{}
	case typeStatePower:
		payload = &statePower{}
	case typeAcknowledge:
		return &h, &struct{}{}, nil
	default:
		return &h, nil, nil
	}
	if err := binary.Read(r, binary.LittleEndian, payload); err != nil {
		return nil, nil, fmt.Errorf("lifxlan: unmarshal type %d payload: %w", h.Type, err)
	}
	return &h, payload, nil
}

func label(b [32]byte) string {
	i := bytes.IndexByte(b[:], 0)
	if i < 0 {
		i = len(b)
	}
	return string(b[:i])
}
