package matfile

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"
	"unicode/utf16"
)

const headerSize = 128

// maxInflated bounds the decompressed size of one compressed variable.
const maxInflated = 1 << 30

// Decode parses a complete MAT-file held in memory.
func Decode(data []byte) (*File, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrFormat, len(data))
	}
	desc := trimHeader(data[:116])
	if strings.HasPrefix(desc, "MATLAB 7.3") {
		return nil, fmt.Errorf("%w: v7.3 (HDF5) files are not supported; save with -v7", ErrFormat)
	}

	var order binary.ByteOrder
	switch string(data[126:128]) {
	case "IM":
		order = binary.LittleEndian
	case "MI":
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("%w: missing endian indicator", ErrFormat)
	}

	f := &File{Description: desc}
	r := &elementReader{order: order, buf: data[headerSize:]}
	for !r.done() {
		typ, body, err := r.next()
		if err != nil {
			return nil, err
		}
		switch typ {
		case miCOMPRESSED:
			arr, err := r.inflate(body)
			if err != nil {
				return nil, err
			}
			f.Vars = append(f.Vars, arr)
		case miMATRIX:
			arr, err := r.matrix(body)
			if err != nil {
				return nil, err
			}
			f.Vars = append(f.Vars, arr)
		default:
			// Top-level elements other than arrays carry nothing we read.
		}
	}
	return f, nil
}

// elementReader walks a sequence of data elements.
type elementReader struct {
	order binary.ByteOrder
	buf   []byte
	off   int
}

func (r *elementReader) done() bool { return r.off >= len(r.buf) }

func (r *elementReader) remaining() int { return len(r.buf) - r.off }

func (r *elementReader) sub(body []byte) *elementReader {
	return &elementReader{order: r.order, buf: body}
}

// next returns the type and payload of the next data element, handling the
// small element format and 8-byte padding.
func (r *elementReader) next() (uint32, []byte, error) {
	rest := len(r.buf) - r.off
	if rest < 8 {
		return 0, nil, fmt.Errorf("%w: truncated tag at offset %d", ErrFormat, r.off)
	}
	first := r.order.Uint32(r.buf[r.off:])
	if n := first >> 16; n != 0 {
		if n > 4 {
			return 0, nil, fmt.Errorf("%w: small element of %d bytes", ErrFormat, n)
		}
		body := r.buf[r.off+4 : r.off+4+int(n)]
		r.off += 8
		return first & 0xffff, body, nil
	}

	n := int(r.order.Uint32(r.buf[r.off+4:]))
	r.off += 8
	if n < 0 || n > len(r.buf)-r.off {
		return 0, nil, fmt.Errorf("%w: element of %d bytes overruns data", ErrFormat, n)
	}
	body := r.buf[r.off : r.off+n]
	r.off += n
	if first != miCOMPRESSED {
		r.off += padding(n)
		if r.off > len(r.buf) {
			r.off = len(r.buf)
		}
	}
	return first, body, nil
}

// expect reads the next element and checks its type against allowed.
func (r *elementReader) expect(what string, allowed ...uint32) (uint32, []byte, error) {
	typ, body, err := r.next()
	if err != nil {
		return 0, nil, fmt.Errorf("%s: %w", what, err)
	}
	for _, a := range allowed {
		if typ == a {
			return typ, body, nil
		}
	}
	return 0, nil, fmt.Errorf("%w: %s has data type %d", ErrFormat, what, typ)
}

func (r *elementReader) inflate(body []byte) (*Array, error) {
	zr, err := zlib.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: compressed element: %v", ErrFormat, err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(io.LimitReader(zr, maxInflated+1))
	if err != nil {
		return nil, fmt.Errorf("%w: compressed element: %v", ErrFormat, err)
	}
	if len(raw) > maxInflated {
		return nil, fmt.Errorf("%w: compressed element inflates past %d bytes", ErrFormat, maxInflated)
	}
	inner := r.sub(raw)
	if _, body, err = inner.expect("compressed variable", miMATRIX); err != nil {
		return nil, err
	}
	return inner.matrix(body)
}

// matrix decodes the payload of a miMATRIX element.
func (r *elementReader) matrix(body []byte) (*Array, error) {
	if len(body) == 0 {
		return &Array{Class: ClassDouble, Dims: []int{0, 0}}, nil
	}
	m := r.sub(body)

	_, flagData, err := m.expect("array flags", miUINT32)
	if err != nil {
		return nil, err
	}
	if len(flagData) < 4 {
		return nil, fmt.Errorf("%w: array flags too short", ErrFormat)
	}
	flags := r.order.Uint32(flagData)
	arr := &Array{Class: Class(flags & 0xff)}
	complexFlag := flags&0x0800 != 0

	typ, dimData, err := m.expect("dimensions", miINT32)
	if err != nil {
		return nil, err
	}
	dims, err := r.numbers(typ, dimData)
	if err != nil {
		return nil, err
	}
	for _, d := range dims {
		if d < 0 {
			return nil, fmt.Errorf("%w: negative dimension", ErrFormat)
		}
		arr.Dims = append(arr.Dims, int(d))
	}
	numel, ok := elementCount(arr.Dims)
	if !ok {
		return nil, fmt.Errorf("%w: dimensions %v are too large", ErrFormat, arr.Dims)
	}

	_, name, err := m.expect("array name", miINT8, miUINT8, miUTF8)
	if err != nil {
		return nil, err
	}
	arr.Name = string(name)

	switch {
	case arr.Class.Numeric():
		if numel == 0 && m.done() {
			return arr, nil
		}
		typ, data, err := m.next()
		if err != nil {
			return nil, fmt.Errorf("real part: %w", err)
		}
		if arr.Real, err = r.numbers(typ, data); err != nil {
			return nil, err
		}
		if complexFlag {
			typ, data, err := m.next()
			if err != nil {
				return nil, fmt.Errorf("imaginary part: %w", err)
			}
			if arr.Imag, err = r.numbers(typ, data); err != nil {
				return nil, err
			}
		}
	case arr.Class == ClassChar:
		if numel == 0 && m.done() {
			return arr, nil
		}
		typ, data, err := m.next()
		if err != nil {
			return nil, fmt.Errorf("char data: %w", err)
		}
		runes, err := r.chars(typ, data)
		if err != nil {
			return nil, err
		}
		arr.Text = charRows(runes, arr.Dims)
	case arr.Class == ClassStruct:
		if err := r.structFields(m, arr, numel); err != nil {
			return nil, err
		}
	case arr.Class == ClassCell:
		// Every cell is a tagged element of at least 8 bytes.
		if numel > m.remaining()/8 {
			return nil, fmt.Errorf("%w: %d cells do not fit in %d bytes", ErrFormat, numel, m.remaining())
		}
		for i := 0; i < numel; i++ {
			_, body, err := m.expect("cell element", miMATRIX)
			if err != nil {
				return nil, err
			}
			c, err := r.matrix(body)
			if err != nil {
				return nil, err
			}
			arr.Cells = append(arr.Cells, c)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported array class %s", ErrFormat, arr.Class)
	}
	return arr, nil
}

// maxFieldlessElements bounds struct arrays without fields, whose elements
// occupy no bytes in the file.
const maxFieldlessElements = 1 << 16

func (r *elementReader) structFields(m *elementReader, arr *Array, numel int) error {
	typ, lenData, err := m.expect("field name length", miINT32)
	if err != nil {
		return err
	}
	lens, err := r.numbers(typ, lenData)
	if err != nil {
		return err
	}
	if len(lens) != 1 || lens[0] <= 0 {
		return fmt.Errorf("%w: invalid field name length", ErrFormat)
	}
	width := int(lens[0])

	_, names, err := m.expect("field names", miINT8, miUINT8)
	if err != nil {
		return err
	}
	if len(names)%width != 0 {
		return fmt.Errorf("%w: field names are not a multiple of %d bytes", ErrFormat, width)
	}
	for i := 0; i < len(names); i += width {
		arr.Fields = append(arr.Fields, strings.TrimRight(string(names[i:i+width]), "\x00"))
	}

	// Every field value is a tagged element of at least 8 bytes.
	switch n := len(arr.Fields); {
	case n == 0 && numel > maxFieldlessElements:
		return fmt.Errorf("%w: %d elements in a struct without fields", ErrFormat, numel)
	case n > 0 && numel > m.remaining()/(8*n):
		return fmt.Errorf("%w: %d struct elements of %d fields do not fit in %d bytes", ErrFormat, numel, n, m.remaining())
	}

	for i := 0; i < numel; i++ {
		elem := make([]*Array, len(arr.Fields))
		for j := range arr.Fields {
			_, body, err := m.expect("struct field "+arr.Fields[j], miMATRIX)
			if err != nil {
				return err
			}
			if len(body) == 0 {
				continue
			}
			if elem[j], err = r.matrix(body); err != nil {
				return err
			}
		}
		arr.Elems = append(arr.Elems, elem)
	}
	return nil
}

// numbers converts a numeric data element to float64 values.
func (r *elementReader) numbers(typ uint32, data []byte) ([]float64, error) {
	size := elementSize(typ)
	if size == 0 {
		return nil, fmt.Errorf("%w: data type %d is not numeric", ErrFormat, typ)
	}
	if len(data)%size != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of %d", ErrFormat, len(data), size)
	}
	out := make([]float64, 0, len(data)/size)
	for i := 0; i < len(data); i += size {
		b := data[i : i+size]
		var v float64
		switch typ {
		case miINT8:
			v = float64(int8(b[0]))
		case miUINT8:
			v = float64(b[0])
		case miINT16:
			v = float64(int16(r.order.Uint16(b)))
		case miUINT16:
			v = float64(r.order.Uint16(b))
		case miINT32:
			v = float64(int32(r.order.Uint32(b)))
		case miUINT32:
			v = float64(r.order.Uint32(b))
		case miSINGLE:
			v = float64(math.Float32frombits(r.order.Uint32(b)))
		case miDOUBLE:
			v = math.Float64frombits(r.order.Uint64(b))
		case miINT64:
			v = float64(int64(r.order.Uint64(b)))
		case miUINT64:
			v = float64(r.order.Uint64(b))
		}
		out = append(out, v)
	}
	return out, nil
}

// chars decodes char data, which MATLAB stores as UTF-16 code units or UTF-8.
func (r *elementReader) chars(typ uint32, data []byte) ([]rune, error) {
	switch typ {
	case miUTF8, miUINT8, miINT8:
		return []rune(string(data)), nil
	case miUINT16, miUTF16:
		if len(data)%2 != 0 {
			return nil, fmt.Errorf("%w: odd-length UTF-16 data", ErrFormat)
		}
		units := make([]uint16, len(data)/2)
		for i := range units {
			units[i] = r.order.Uint16(data[2*i:])
		}
		return utf16.Decode(units), nil
	case miUTF32, miUINT32, miINT32:
		if len(data)%4 != 0 {
			return nil, fmt.Errorf("%w: UTF-32 data is not a multiple of 4", ErrFormat)
		}
		runes := make([]rune, len(data)/4)
		for i := range runes {
			runes[i] = rune(r.order.Uint32(data[4*i:]))
		}
		return runes, nil
	default:
		return nil, fmt.Errorf("%w: data type %d is not text", ErrFormat, typ)
	}
}

// charRows converts column-major char data into "\n"-joined rows.
func charRows(runes []rune, dims []int) string {
	if len(dims) < 2 || dims[0] <= 1 {
		return string(runes)
	}
	rows, cols := dims[0], len(runes)/dims[0]
	lines := make([]string, rows)
	for i := 0; i < rows; i++ {
		line := make([]rune, cols)
		for j := 0; j < cols; j++ {
			line[j] = runes[i+j*rows]
		}
		lines[i] = string(line)
	}
	return strings.Join(lines, "\n")
}

func elementSize(typ uint32) int {
	switch typ {
	case miINT8, miUINT8:
		return 1
	case miINT16, miUINT16:
		return 2
	case miINT32, miUINT32, miSINGLE:
		return 4
	case miDOUBLE, miINT64, miUINT64:
		return 8
	default:
		return 0
	}
}

func padding(n int) int {
	if rem := n % 8; rem != 0 {
		return 8 - rem
	}
	return 0
}
