package fbx

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/zlib"
)

const (
	magic     = "Kaydara FBX Binary  \x00"
	headerLen = 27

	// From this version on, record headers use 64-bit fields.
	wideRecordVersion = 7500

	// Upper bound of the zlib expansion ratio; a compressed array claiming
	// more than this is rejected before allocating.
	maxInflateRatio = 1032
)

// ReadHeader reads the fixed-size header of a binary FBX file and returns
// the raw version number it declares.
func ReadHeader(r io.Reader) (uint32, error) {
	var h [headerLen]byte
	n, err := io.ReadFull(r, h[:])
	if bytes.HasPrefix(h[:n], []byte("; FBX")) {
		return 0, ErrASCII
	}
	if err != nil {
		return 0, ErrNotFBX
	}
	if string(h[:len(magic)]) != magic || h[21] != 0x1a || h[22] != 0 {
		return 0, ErrNotFBX
	}
	return binary.LittleEndian.Uint32(h[23:]), nil
}

// Decode parses a whole binary FBX file and returns its version number and
// top-level elements.
func Decode(data []byte) (uint32, []*Element, error) {
	version, err := ReadHeader(bytes.NewReader(data))
	if err != nil {
		return 0, nil, err
	}
	d := decoder{data: data, pos: headerLen, wide: version >= wideRecordVersion}
	var elems []*Element
	for {
		if d.pos >= len(d.data) {
			return version, nil, fmt.Errorf("fbx: missing end record")
		}
		e := d.record(0)
		if d.err != nil {
			return version, nil, d.err
		}
		if e == nil {
			// footer data after the end record is ignored
			return version, elems, nil
		}
		elems = append(elems, e)
	}
}

// Maximum nesting accepted by the decoder.
const maxDepth = 512

type decoder struct {
	data []byte
	pos  int
	wide bool
	err  error
}

func (d *decoder) fail(format string, args ...any) {
	if d.err == nil {
		d.err = fmt.Errorf("fbx: "+format+" at offset %d", append(args, d.pos)...)
	}
}

func (d *decoder) take(n uint64) []byte {
	if d.err != nil {
		return nil
	}
	if n > uint64(len(d.data)-d.pos) {
		d.fail("unexpected end of data (need %d bytes)", n)
		return nil
	}
	b := d.data[d.pos : d.pos+int(n)]
	d.pos += int(n)
	return b
}

func (d *decoder) u8() uint8 {
	if b := d.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (d *decoder) u16() uint16 {
	if b := d.take(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (d *decoder) u32() uint32 {
	if b := d.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (d *decoder) u64() uint64 {
	if b := d.take(8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

func (d *decoder) offset() uint64 {
	if d.wide {
		return d.u64()
	}
	return uint64(d.u32())
}

// record decodes one node record. It returns nil for the null record that
// terminates a list.
func (d *decoder) record(depth int) *Element {
	if depth > maxDepth {
		d.fail("records nested deeper than %d", maxDepth)
		return nil
	}
	start := d.pos
	end := d.offset()
	nprops := d.offset()
	plen := d.offset()
	nameLen := d.u8()
	if d.err != nil {
		return nil
	}
	if end == 0 {
		if nprops != 0 || plen != 0 || nameLen != 0 {
			d.fail("malformed null record")
		}
		return nil
	}
	if end <= uint64(start) || end > uint64(len(d.data)) {
		d.fail("record end offset %d out of range", end)
		return nil
	}
	e := &Element{Name: string(d.take(uint64(nameLen)))}
	propsEnd := uint64(d.pos) + plen
	if propsEnd > end {
		d.fail("property list of %q overruns its record", e.Name)
		return nil
	}
	if nprops > plen {
		d.fail("record %q declares %d properties in %d bytes", e.Name, nprops, plen)
		return nil
	}
	if nprops > 0 {
		e.Properties = make([]Property, 0, nprops)
	}
	for i := uint64(0); i < nprops && d.err == nil; i++ {
		e.Properties = append(e.Properties, d.property())
	}
	if d.err != nil {
		return nil
	}
	if uint64(d.pos) != propsEnd {
		d.fail("property list of %q has wrong length", e.Name)
		return nil
	}
	for uint64(d.pos) < end {
		c := d.record(depth + 1)
		if d.err != nil {
			return nil
		}
		if c == nil {
			break
		}
		e.Children = append(e.Children, c)
	}
	if uint64(d.pos) != end {
		d.fail("record %q does not end at offset %d", e.Name, end)
		return nil
	}
	return e
}

func (d *decoder) property() Property {
	t := d.u8()
	switch t {
	case TypeInt16:
		return Int16(int16(d.u16()))
	case TypeBool:
		return Bool(d.u8()&1 != 0)
	case TypeInt32:
		return Int32(int32(d.u32()))
	case TypeFloat32:
		return Float32(math.Float32frombits(d.u32()))
	case TypeFloat64:
		return Float64(math.Float64frombits(d.u64()))
	case TypeInt64:
		return Int64(int64(d.u64()))
	case TypeString:
		return String(string(d.take(uint64(d.u32()))))
	case TypeRaw:
		return Raw(bytes.Clone(d.take(uint64(d.u32()))))
	case TypeFloat32Arr, TypeFloat64Arr, TypeInt64Arr, TypeInt32Arr, TypeBoolArr:
		return d.array(t)
	}
	if d.err == nil {
		d.fail("unknown property type %q", t)
	}
	return Property{}
}

func elemSize(t byte) uint64 {
	switch t {
	case TypeFloat64Arr, TypeInt64Arr:
		return 8
	case TypeFloat32Arr, TypeInt32Arr:
		return 4
	}
	return 1
}

func (d *decoder) array(t byte) Property {
	n := uint64(d.u32())
	encoding := d.u32()
	clen := uint64(d.u32())
	payload := d.take(clen)
	if d.err != nil {
		return Property{}
	}
	size := n * elemSize(t)
	var raw []byte
	switch encoding {
	case 0:
		if clen != size {
			d.fail("raw array of %d elements has %d bytes", n, clen)
			return Property{}
		}
		raw = payload
	case 1:
		if size > clen*maxInflateRatio {
			d.fail("compressed array of %d elements is implausibly small", n)
			return Property{}
		}
		zr, err := zlib.NewReader(bytes.NewReader(payload))
		if err != nil {
			d.fail("bad zlib array: %v", err)
			return Property{}
		}
		raw = make([]byte, size)
		_, err = io.ReadFull(zr, raw)
		zr.Close()
		if err != nil {
			d.fail("bad zlib array: %v", err)
			return Property{}
		}
	default:
		d.fail("unknown array encoding %d", encoding)
		return Property{}
	}
	return decodeArray(t, int(n), raw)
}

func decodeArray(t byte, n int, raw []byte) Property {
	le := binary.LittleEndian
	switch t {
	case TypeFloat32Arr:
		v := make([]float32, n)
		for i := range v {
			v[i] = math.Float32frombits(le.Uint32(raw[i*4:]))
		}
		return Float32s(v)
	case TypeFloat64Arr:
		v := make([]float64, n)
		for i := range v {
			v[i] = math.Float64frombits(le.Uint64(raw[i*8:]))
		}
		return Float64s(v)
	case TypeInt64Arr:
		v := make([]int64, n)
		for i := range v {
			v[i] = int64(le.Uint64(raw[i*8:]))
		}
		return Int64s(v)
	case TypeInt32Arr:
		v := make([]int32, n)
		for i := range v {
			v[i] = int32(le.Uint32(raw[i*4:]))
		}
		return Int32s(v)
	default:
		v := make([]bool, n)
		for i := range v {
			v[i] = raw[i]&1 != 0
		}
		return Bools(v)
	}
}
