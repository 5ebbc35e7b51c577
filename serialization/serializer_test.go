package serial_test

import (
	"testing"

	serial "github.com/ZutrixPog/llmdispatch/serialization"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	ID      string
	Request []byte
}

func TestCodecs(t *testing.T) {
	cases := []struct {
		desc  string
		codec serial.Codec
	}{
		{desc: "gob", codec: serial.Gob{}},
		{desc: "json", codec: serial.JSON{}},
	}

	in := entry{ID: "T0001", Request: []byte("输入：{\"a\": 1}")}

	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			data, err := c.codec.Encode(in)
			require.NoError(t, err)

			var out entry
			require.NoError(t, c.codec.Decode(data, &out))
			assert.Equal(t, in, out)

			err = c.codec.Decode([]byte("\x00garbage"), &out)
			assert.ErrorIs(t, err, serial.ErrDeserialization)
		})
	}
}

func TestJSONEncodeRejectsUnsupported(t *testing.T) {
	_, err := serial.JSON{}.Encode(make(chan int))
	assert.ErrorIs(t, err, serial.ErrSerialization)
}

func TestForName(t *testing.T) {
	cases := []struct {
		desc  string
		name  string
		codec serial.Codec
		err   error
	}{
		{desc: "gob", name: "gob", codec: serial.Gob{}},
		{desc: "default", name: "", codec: serial.Gob{}},
		{desc: "json", name: "json", codec: serial.JSON{}},
		{desc: "unknown", name: "msgpack", err: serial.ErrUnknownCodec},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			codec, err := serial.ForName(tc.name)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.codec, codec)
		})
	}
}
