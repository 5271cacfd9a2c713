// Package ktest reads and writes test vectors in the KLEE .ktest format,
// so they can be exchanged with off-the-shelf symbolic execution tools.
//
// A file is the magic "KTEST", a version, the program arguments, two
// symbolic-argv counters and a list of named byte objects. Header
// integers are big-endian. One object named "task" carries the index of
// the task in tasks.txt order; every other object is a resource value as
// a little-endian 4-byte integer.
package ktest

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Version is the format version written. Versions 1 through 3 are read.
const Version = 3

// TaskObject names the object holding the task index.
const TaskObject = "task"

var (
	magic       = []byte("KTEST")
	legacyMagic = []byte("BOUT\n")
)

// ErrFormat is wrapped by every decoding error.
var ErrFormat = errors.New("malformed ktest")

// maxLen bounds any length field so that a corrupt header cannot request
// an enormous allocation.
const maxLen = 1 << 20

// File is one decoded .ktest file.
type File struct {
	Version    uint32
	Args       []string
	SymArgvs   uint32
	SymArgvLen uint32
	Objects    []Object
}

// Object is a named symbolic input.
type Object struct {
	Name  string
	Bytes []byte
}

// Object returns the object with the given name.
func (f *File) Object(name string) (Object, bool) {
	for _, o := range f.Objects {
		if o.Name == name {
			return o, true
		}
	}
	return Object{}, false
}

// Decode reads one file.
func Decode(r io.Reader) (*File, error) {
	d := decoder{r: bufio.NewReader(r)}

	hdr := d.bytes(5)
	if d.err == nil && !bytes.Equal(hdr, magic) && !bytes.Equal(hdr, legacyMagic) {
		return nil, fmt.Errorf("%w: unrecognized header %q", ErrFormat, hdr)
	}
	f := &File{Version: d.u32()}
	if d.err == nil && (f.Version == 0 || f.Version > Version) {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrFormat, f.Version)
	}

	n := d.length()
	for i := uint32(0); i < n && d.err == nil; i++ {
		f.Args = append(f.Args, string(d.bytes(d.length())))
	}
	if f.Version >= 2 {
		f.SymArgvs = d.u32()
		f.SymArgvLen = d.u32()
	}

	n = d.length()
	for i := uint32(0); i < n && d.err == nil; i++ {
		name := string(d.bytes(d.length()))
		data := d.bytes(d.length())
		f.Objects = append(f.Objects, Object{Name: name, Bytes: data})
	}
	if d.err != nil {
		return nil, d.err
	}
	return f, nil
}

// Encode writes f in the current version.
func (f *File) Encode(w io.Writer) error {
	var buf bytes.Buffer
	buf.Write(magic)
	be := func(v uint32) { buf.Write(binary.BigEndian.AppendUint32(nil, v)) }
	str := func(b []byte) {
		be(uint32(len(b)))
		buf.Write(b)
	}

	be(Version)
	be(uint32(len(f.Args)))
	for _, a := range f.Args {
		str([]byte(a))
	}
	be(f.SymArgvs)
	be(f.SymArgvLen)
	be(uint32(len(f.Objects)))
	for _, o := range f.Objects {
		str([]byte(o.Name))
		str(o.Bytes)
	}

	_, err := w.Write(buf.Bytes())
	return err
}

// Uint32 encodes a value as a 4-byte little-endian payload.
func Uint32(v uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, v)
}

// Value decodes a little-endian payload of at most 4 bytes.
func (o Object) Value() (uint32, error) {
	if len(o.Bytes) == 0 || len(o.Bytes) > 4 {
		return 0, fmt.Errorf("%w: object %s has %d bytes, want 1 to 4", ErrFormat, o.Name, len(o.Bytes))
	}
	var b [4]byte
	copy(b[:], o.Bytes)
	return binary.LittleEndian.Uint32(b[:]), nil
}

type decoder struct {
	r   *bufio.Reader
	err error
}

func (d *decoder) u32() uint32 {
	if d.err != nil {
		return 0
	}
	var b [4]byte
	if _, err := io.ReadFull(d.r, b[:]); err != nil {
		d.err = fmt.Errorf("%w: %v", ErrFormat, err)
		return 0
	}
	return binary.BigEndian.Uint32(b[:])
}

func (d *decoder) length() uint32 {
	n := d.u32()
	if d.err == nil && n > maxLen {
		d.err = fmt.Errorf("%w: length %d too large", ErrFormat, n)
		return 0
	}
	return n
}

func (d *decoder) bytes(n uint32) []byte {
	if d.err != nil {
		return nil
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(d.r, b); err != nil {
		d.err = fmt.Errorf("%w: %v", ErrFormat, err)
		return nil
	}
	return b
}
