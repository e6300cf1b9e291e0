package lifxlan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalHeader(t *testing.T) {
	datagram, err := marshal(typeGetService, 0xdeadbeef, [8]byte{}, 7, true, false, nil)
	require.NoError(t, err)
	require.Len(t, datagram, headerSize)

	h, payload, err := unmarshal(datagram)
	require.NoError(t, err)
	assert.Nil(t, payload) // GetService has no decodable payload
	assert.Equal(t, uint16(headerSize), h.Size)
	assert.Equal(t, uint32(0xdeadbeef), h.Source)
	assert.Equal(t, uint8(7), h.Sequence)
	assert.Equal(t, uint16(typeGetService), h.Type)
	// protocol 1024, addressable, tagged
	assert.Equal(t, uint16(protocolNumber|1<<12|1<<13), h.Protocol)
}

func TestLightStateRoundTrip(t *testing.T) {
	var lbl [32]byte
	copy(lbl[:], "kitchen")
	in := lightState{
		Color: HSBK{Hue: 21845, Saturation: 65535, Brightness: 32768, Kelvin: 3500},
		Power: PowerOn,
		Label: lbl,
	}
	datagram, err := marshal(typeLightState, 1, [8]byte{1, 2, 3}, 9, false, false, &in)
	require.NoError(t, err)

	h, payload, err := unmarshal(datagram)
	require.NoError(t, err)
	assert.Equal(t, uint16(typeLightState), h.Type)
	assert.Equal(t, [8]byte{1, 2, 3}, h.Target)

	out, ok := payload.(*lightState)
	require.True(t, ok)
	assert.Equal(t, in.Color, out.Color)
	assert.Equal(t, PowerOn, out.Power)
	assert.Equal(t, "kitchen", label(out.Label))
}

func TestUnmarshalRejectsShortDatagram(t *testing.T) {
	_, _, err := unmarshal([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestDeviceSerial(t *testing.T) {
	dev := Device{Target: [8]byte{0xd0, 0x73, 0xd5, 0x01, 0x23, 0xab, 0, 0}}
	assert.Equal(t, "d073d50123ab", dev.Serial())
}
