package matfile

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"time"
	"unicode/utf16"
)

// NewScalar returns a 1x1 double array.
func NewScalar(v float64) *Array {
	return &Array{Class: ClassDouble, Dims: []int{1, 1}, Real: []float64{v}}
}

// NewChar returns a 1xN char array.
func NewChar(s string) *Array {
	return &Array{Class: ClassChar, Dims: []int{1, len(utf16.Encode([]rune(s)))}, Text: s}
}

// NewStruct returns an Nx1 struct array with one element per entry of elems.
func NewStruct(name string, fields []string, elems [][]*Array) *Array {
	return &Array{Name: name, Class: ClassStruct, Dims: []int{len(elems), 1}, Fields: fields, Elems: elems}
}

// Writer encodes variables into a little-endian Level 5 MAT-file.
type Writer struct {
	w           io.Writer
	compress    bool
	wroteHeader bool
}

// NewWriter returns a Writer; compress selects the v7 (zlib) layout.
func NewWriter(w io.Writer, compress bool) *Writer {
	return &Writer{w: w, compress: compress}
}

// Write appends one named top-level variable.
func (w *Writer) Write(a *Array) error {
	if a.Name == "" {
		return fmt.Errorf("top-level variable needs a name")
	}
	if !w.wroteHeader {
		if err := w.header(); err != nil {
			return err
		}
		w.wroteHeader = true
	}

	body, err := encodeMatrix(a)
	if err != nil {
		return err
	}
	var elem bytes.Buffer
	putElement(&elem, miMATRIX, body, false)
	if !w.compress {
		_, err := w.w.Write(elem.Bytes())
		return err
	}

	var z bytes.Buffer
	zw := zlib.NewWriter(&z)
	if _, err := zw.Write(elem.Bytes()); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	var tag [8]byte
	binary.LittleEndian.PutUint32(tag[0:], miCOMPRESSED)
	binary.LittleEndian.PutUint32(tag[4:], uint32(z.Len()))
	if _, err := w.w.Write(tag[:]); err != nil {
		return err
	}
	_, err = w.w.Write(z.Bytes())
	return err
}

func (w *Writer) header() error {
	var h [headerSize]byte
	text := fmt.Sprintf("MATLAB 5.0 MAT-file, Platform: GLNXA64, Created on: %s", time.Now().UTC().Format(time.ANSIC))
	copy(h[:116], bytes.Repeat([]byte{' '}, 116))
	copy(h[:116], text)
	binary.LittleEndian.PutUint16(h[124:], 0x0100)
	copy(h[126:], "IM")
	_, err := w.w.Write(h[:])
	return err
}

// WriteFile writes vars to path.
func WriteFile(path string, compress bool, vars ...*Array) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := NewWriter(f, compress)
	for _, v := range vars {
		if err := w.Write(v); err != nil {
			f.Close()
			return err
		}
	}
	return f.Close()
}

func encodeMatrix(a *Array) ([]byte, error) {
	var buf bytes.Buffer

	flags := make([]byte, 8)
	v := uint32(a.Class)
	if len(a.Imag) > 0 {
		v |= 0x0800
	}
	binary.LittleEndian.PutUint32(flags, v)
	putElement(&buf, miUINT32, flags, false)

	dims := make([]byte, 4*len(a.Dims))
	for i, d := range a.Dims {
		binary.LittleEndian.PutUint32(dims[4*i:], uint32(int32(d)))
	}
	putElement(&buf, miINT32, dims, false)
	putElement(&buf, miINT8, []byte(a.Name), true)

	switch {
	case a.Class.Numeric():
		putElement(&buf, miDOUBLE, doubles(a.Real), false)
		if len(a.Imag) > 0 {
			putElement(&buf, miDOUBLE, doubles(a.Imag), false)
		}
	case a.Class == ClassChar:
		units := utf16.Encode([]rune(a.Text))
		data := make([]byte, 2*len(units))
		for i, u := range units {
			binary.LittleEndian.PutUint16(data[2*i:], u)
		}
		putElement(&buf, miUINT16, data, false)
	case a.Class == ClassStruct:
		width := 32
		for _, f := range a.Fields {
			if len(f)+1 > width {
				width = len(f) + 1
			}
		}
		wb := make([]byte, 4)
		binary.LittleEndian.PutUint32(wb, uint32(width))
		putElement(&buf, miINT32, wb, true)
		names := make([]byte, width*len(a.Fields))
		for i, f := range a.Fields {
			copy(names[i*width:], f)
		}
		putElement(&buf, miINT8, names, false)
		for i, elem := range a.Elems {
			if len(elem) != len(a.Fields) {
				return nil, fmt.Errorf("struct element %d has %d values for %d fields", i, len(elem), len(a.Fields))
			}
			for _, f := range elem {
				if err := putChild(&buf, f); err != nil {
					return nil, err
				}
			}
		}
	case a.Class == ClassCell:
		for _, c := range a.Cells {
			if err := putChild(&buf, c); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("cannot encode class %s", a.Class)
	}
	return buf.Bytes(), nil
}

// putChild writes a nested, unnamed array. nil encodes as an empty matrix.
func putChild(buf *bytes.Buffer, a *Array) error {
	if a == nil {
		putElement(buf, miMATRIX, nil, false)
		return nil
	}
	child := *a
	child.Name = ""
	body, err := encodeMatrix(&child)
	if err != nil {
		return err
	}
	putElement(buf, miMATRIX, body, false)
	return nil
}

// putElement writes a tagged data element, using the small element format
// when allowed and the payload fits in four bytes.
func putElement(buf *bytes.Buffer, typ uint32, data []byte, small bool) {
	var tag [8]byte
	if small && len(data) > 0 && len(data) <= 4 {
		binary.LittleEndian.PutUint32(tag[0:], uint32(len(data))<<16|typ)
		copy(tag[4:], data)
		buf.Write(tag[:])
		return
	}
	binary.LittleEndian.PutUint32(tag[0:], typ)
	binary.LittleEndian.PutUint32(tag[4:], uint32(len(data)))
	buf.Write(tag[:])
	buf.Write(data)
	buf.Write(make([]byte, padding(len(data))))
}

func doubles(vs []float64) []byte {
	out := make([]byte, 8*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint64(out[8*i:], math.Float64bits(v))
	}
	return out
}
