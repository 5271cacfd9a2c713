package ktest

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// handBuilt is a version 3 file with one argument and two objects.
func handBuilt() []byte {
	var b bytes.Buffer
	be := func(v uint32) { _ = binary.Write(&b, binary.BigEndian, v) }
	b.WriteString("KTEST")
	be(3)
	be(1)
	be(8)
	b.WriteString("resource")
	be(0)
	be(0)
	be(2)
	be(4)
	b.WriteString("task")
	be(4)
	b.Write([]byte{2, 0, 0, 0})
	be(1)
	b.WriteString("X")
	be(4)
	b.Write([]byte{0xff, 0xff, 0xff, 0xff})
	return b.Bytes()
}

func TestDecode(t *testing.T) {
	f, err := Decode(bytes.NewReader(handBuilt()))
	require.NoError(t, err)

	assert.Equal(t, uint32(3), f.Version)
	assert.Equal(t, []string{"resource"}, f.Args)
	require.Len(t, f.Objects, 2)

	task, ok := f.Object(TaskObject)
	require.True(t, ok)
	idx, err := task.Value()
	require.NoError(t, err)
	assert.Equal(t, uint32(2), idx)

	x, _ := f.Object("X")
	v, err := x.Value()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xFFFFFFFF), v)
}

func TestEncode_MatchesHandBuilt(t *testing.T) {
	f := &File{
		Version: Version,
		Args:    []string{"resource"},
		Objects: []Object{
			{Name: TaskObject, Bytes: Uint32(2)},
			{Name: "X", Bytes: Uint32(0xFFFFFFFF)},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, f.Encode(&buf))
	assert.Equal(t, handBuilt(), buf.Bytes())
}

func TestDecode_Version1HasNoSymArgv(t *testing.T) {
	var b bytes.Buffer
	b.WriteString("BOUT\n")
	_ = binary.Write(&b, binary.BigEndian, []uint32{1, 0, 1, 1})
	b.WriteString("Y")
	_ = binary.Write(&b, binary.BigEndian, uint32(1))
	b.WriteByte(9)

	f, err := Decode(&b)
	require.NoError(t, err)
	require.Len(t, f.Objects, 1)
	v, err := f.Objects[0].Value()
	require.NoError(t, err)
	assert.Equal(t, uint32(9), v)
}

func TestDecode_Errors(t *testing.T) {
	good := handBuilt()
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad magic", append([]byte("KTESX"), good[5:]...)},
		{"future version", append([]byte("KTEST\x00\x00\x00\x04"), good[9:]...)},
		{"truncated", good[:len(good)-2]},
		{"huge length", []byte("KTEST\x00\x00\x00\x03\x7f\xff\xff\xff")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(bytes.NewReader(tt.data))
			assert.ErrorIs(t, err, ErrFormat)
		})
	}
}

func TestObjectValue_Sizes(t *testing.T) {
	_, err := Object{Name: "X"}.Value()
	assert.ErrorIs(t, err, ErrFormat)

	_, err = Object{Name: "X", Bytes: make([]byte, 8)}.Value()
	assert.ErrorIs(t, err, ErrFormat)

	v, err := Object{Name: "X", Bytes: []byte{0x34, 0x12}}.Value()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x1234), v)
}
