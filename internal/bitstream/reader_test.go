package bitstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderByteAligned(t *testing.T) {
	data := []byte{0x01, 0x34, 0x12, 0x78, 0x56, 0x34, 0x12, 0xFF}
	r := NewReader(data)

	b, err := r.ReadUint8()
	require.NoError(t, err)
	assert.Equal(t, uint8(0x01), b)

	u16, err := r.ReadUint16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), u16)

	u32, err := r.ReadUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x12345678), u32)

	i8, err := r.ReadInt8()
	require.NoError(t, err)
	assert.Equal(t, int8(-1), i8)

	assert.False(t, r.HasMore())
	assert.Equal(t, 0, r.Remaining())
}

func TestReaderSigned(t *testing.T) {
	// -2 as little-endian int16 and int32
	r := NewReader([]byte{0xFE, 0xFF, 0xFE, 0xFF, 0xFF, 0xFF})

	i16, err := r.ReadInt16()
	require.NoError(t, err)
	assert.Equal(t, int16(-2), i16)

	i32, err := r.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, int32(-2), i32)
}

func TestReaderOutOfRange(t *testing.T) {
	tests := []struct {
		name string
		read func(r *Reader) error
		data []byte
	}{
		{"u8 empty", func(r *Reader) error { _, err := r.ReadUint8(); return err }, nil},
		{"u16 short", func(r *Reader) error { _, err := r.ReadUint16(); return err }, []byte{0x01}},
		{"u32 short", func(r *Reader) error { _, err := r.ReadUint32(); return err }, []byte{0x01, 0x02, 0x03}},
		{"bytes short", func(r *Reader) error { _, err := r.ReadBytes(3); return err }, []byte{0x01, 0x02}},
		{"skip short", func(r *Reader) error { return r.Skip(5) }, []byte{0x01}},
		{"bits short", func(r *Reader) error { _, err := r.ReadBits(16); return err }, []byte{0x01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.read(NewReader(tt.data))
			assert.ErrorIs(t, err, ErrOutOfRange)
		})
	}
}

func TestReadBits(t *testing.T) {
	// 0xB5 = 1011_0101: low nibble 0101 = 5, high nibble 1011 = 0xB
	r := NewReader([]byte{0xB5, 0x03})

	lo, err := r.ReadBits(4)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x5), lo)

	hi, err := r.ReadBits(4)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xB), hi)

	// Crosses into the second byte
	next, err := r.ReadBits(2)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x3), next)
}

func TestReadBitsTooWide(t *testing.T) {
	r := NewReader([]byte{0x00, 0x00, 0x00, 0x00, 0x00})
	_, err := r.ReadBits(33)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestReaderReset(t *testing.T) {
	r := NewReader([]byte{0xAA, 0xBB})
	_, err := r.ReadUint16()
	require.NoError(t, err)
	require.Equal(t, 2, r.Position())

	r.Reset()
	assert.Equal(t, 0, r.Position())

	b, err := r.ReadUint8()
	require.NoError(t, err)
	assert.Equal(t, uint8(0xAA), b)
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, uint16(0xFFFA), LE16([]byte{0xFA, 0xFF}))
	assert.Equal(t, uint32(0x00497737), LE32([]byte{0x37, 0x77, 0x49, 0x00}))
}
