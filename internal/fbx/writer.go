package fbx

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/zlib"
)

// Encoder writes binary FBX files.
type Encoder struct {
	// Version is the file version number written to the header (e.g. 7400).
	Version uint32
	// CompressArrays zlib-encodes array properties.
	CompressArrays bool
}

// Encode writes elems as a binary FBX file of the given version.
func Encode(w io.Writer, version uint32, elems []*Element) error {
	return (&Encoder{Version: version}).Encode(w, elems)
}

// Encode writes elems as a complete binary FBX file.
func (enc *Encoder) Encode(w io.Writer, elems []*Element) error {
	e := encoder{wide: enc.Version >= wideRecordVersion, compress: enc.CompressArrays}
	e.buf = append(e.buf, magic...)
	e.buf = append(e.buf, 0x1a, 0)
	e.buf = binary.LittleEndian.AppendUint32(e.buf, enc.Version)
	for _, el := range elems {
		if err := e.record(el); err != nil {
			return err
		}
	}
	e.null()
	_, err := w.Write(e.buf)
	return err
}

type encoder struct {
	buf      []byte
	wide     bool
	compress bool
}

func (e *encoder) offset(v uint64) {
	if e.wide {
		e.buf = binary.LittleEndian.AppendUint64(e.buf, v)
	} else {
		e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(v))
	}
}

func (e *encoder) patch(at int, v uint64) {
	if e.wide {
		binary.LittleEndian.PutUint64(e.buf[at:], v)
	} else {
		binary.LittleEndian.PutUint32(e.buf[at:], uint32(v))
	}
}

func (e *encoder) null() {
	n := 13
	if e.wide {
		n = 25
	}
	e.buf = append(e.buf, make([]byte, n)...)
}

func (e *encoder) record(el *Element) error {
	if len(el.Name) > math.MaxUint8 {
		return fmt.Errorf("fbx: element name %q too long", el.Name)
	}
	fieldLen := 4
	if e.wide {
		fieldLen = 8
	}
	start := len(e.buf)
	e.offset(0) // end offset
	e.offset(uint64(len(el.Properties)))
	e.offset(0) // property list length
	e.buf = append(e.buf, byte(len(el.Name)))
	e.buf = append(e.buf, el.Name...)
	propStart := len(e.buf)
	for _, p := range el.Properties {
		if err := e.property(p); err != nil {
			return fmt.Errorf("fbx: element %q: %w", el.Name, err)
		}
	}
	e.patch(start+2*fieldLen, uint64(len(e.buf)-propStart))
	for _, c := range el.Children {
		if err := e.record(c); err != nil {
			return err
		}
	}
	if len(el.Children) > 0 || len(el.Properties) == 0 {
		e.null()
	}
	e.patch(start, uint64(len(e.buf)))
	return nil
}

func valueType(v any) byte {
	switch v.(type) {
	case int16:
		return TypeInt16
	case bool:
		return TypeBool
	case int32:
		return TypeInt32
	case float32:
		return TypeFloat32
	case float64:
		return TypeFloat64
	case int64:
		return TypeInt64
	case string:
		return TypeString
	case []byte:
		return TypeRaw
	case []float32:
		return TypeFloat32Arr
	case []float64:
		return TypeFloat64Arr
	case []int64:
		return TypeInt64Arr
	case []int32:
		return TypeInt32Arr
	case []bool:
		return TypeBoolArr
	}
	return 0
}

func (e *encoder) property(p Property) error {
	if t := valueType(p.Value); t == 0 || t != p.Type {
		return fmt.Errorf("property type %q does not match value %T", p.Type, p.Value)
	}
	le := binary.LittleEndian
	e.buf = append(e.buf, p.Type)
	switch v := p.Value.(type) {
	case int16:
		e.buf = le.AppendUint16(e.buf, uint16(v))
	case bool:
		b := byte(0)
		if v {
			b = 1
		}
		e.buf = append(e.buf, b)
	case int32:
		e.buf = le.AppendUint32(e.buf, uint32(v))
	case float32:
		e.buf = le.AppendUint32(e.buf, math.Float32bits(v))
	case float64:
		e.buf = le.AppendUint64(e.buf, math.Float64bits(v))
	case int64:
		e.buf = le.AppendUint64(e.buf, uint64(v))
	case string:
		e.buf = le.AppendUint32(e.buf, uint32(len(v)))
		e.buf = append(e.buf, v...)
	case []byte:
		e.buf = le.AppendUint32(e.buf, uint32(len(v)))
		e.buf = append(e.buf, v...)
	case []float32:
		raw := make([]byte, 0, len(v)*4)
		for _, x := range v {
			raw = le.AppendUint32(raw, math.Float32bits(x))
		}
		return e.array(len(v), raw)
	case []float64:
		raw := make([]byte, 0, len(v)*8)
		for _, x := range v {
			raw = le.AppendUint64(raw, math.Float64bits(x))
		}
		return e.array(len(v), raw)
	case []int64:
		raw := make([]byte, 0, len(v)*8)
		for _, x := range v {
			raw = le.AppendUint64(raw, uint64(x))
		}
		return e.array(len(v), raw)
	case []int32:
		raw := make([]byte, 0, len(v)*4)
		for _, x := range v {
			raw = le.AppendUint32(raw, uint32(x))
		}
		return e.array(len(v), raw)
	case []bool:
		raw := make([]byte, len(v))
		for i, x := range v {
			if x {
				raw[i] = 1
			}
		}
		return e.array(len(v), raw)
	}
	return nil
}

func (e *encoder) array(n int, raw []byte) error {
	le := binary.LittleEndian
	e.buf = le.AppendUint32(e.buf, uint32(n))
	if !e.compress {
		e.buf = le.AppendUint32(e.buf, 0)
		e.buf = le.AppendUint32(e.buf, uint32(len(raw)))
		e.buf = append(e.buf, raw...)
		return nil
	}
	var z bytes.Buffer
	zw := zlib.NewWriter(&z)
	if _, err := zw.Write(raw); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	e.buf = le.AppendUint32(e.buf, 1)
	e.buf = le.AppendUint32(e.buf, uint32(z.Len()))
	e.buf = append(e.buf, z.Bytes()...)
	return nil
}
