// Package matfile reads and writes MATLAB Level 5 MAT-files (the format
// produced by save -v6 and save -v7, including zlib-compressed variables).
// HDF5-based v7.3 files are not supported.
package matfile

import (
	"errors"
	"fmt"
	"strings"
)

// ErrFormat is wrapped by every error caused by malformed file content.
var ErrFormat = errors.New("malformed MAT-file")

// Data types of a data element tag.
const (
	miINT8       = 1
	miUINT8      = 2
	miINT16      = 3
	miUINT16     = 4
	miINT32      = 5
	miUINT32     = 6
	miSINGLE     = 7
	miDOUBLE     = 9
	miINT64      = 12
	miUINT64     = 13
	miMATRIX     = 14
	miCOMPRESSED = 15
	miUTF8       = 16
	miUTF16      = 17
	miUTF32      = 18
)

// Class is the MATLAB array class.
type Class uint8

const (
	ClassCell   Class = 1
	ClassStruct Class = 2
	ClassObject Class = 3
	ClassChar   Class = 4
	ClassSparse Class = 5
	ClassDouble Class = 6
	ClassSingle Class = 7
	ClassInt8   Class = 8
	ClassUint8  Class = 9
	ClassInt16  Class = 10
	ClassUint16 Class = 11
	ClassInt32  Class = 12
	ClassUint32 Class = 13
	ClassInt64  Class = 14
	ClassUint64 Class = 15
)

var classNames = map[Class]string{
	ClassCell:   "cell",
	ClassStruct: "struct",
	ClassObject: "object",
	ClassChar:   "char",
	ClassSparse: "sparse",
	ClassDouble: "double",
	ClassSingle: "single",
	ClassInt8:   "int8",
	ClassUint8:  "uint8",
	ClassInt16:  "int16",
	ClassUint16: "uint16",
	ClassInt32:  "int32",
	ClassUint32: "uint32",
	ClassInt64:  "int64",
	ClassUint64: "uint64",
}

// String returns the MATLAB name of the class.
func (c Class) String() string {
	if n, ok := classNames[c]; ok {
		return n
	}
	return fmt.Sprintf("class(%d)", uint8(c))
}

// Numeric reports whether the class holds numbers.
func (c Class) Numeric() bool {
	return c >= ClassDouble && c <= ClassUint64
}

// Array is one MATLAB array. Which fields are populated depends on Class.
type Array struct {
	Name  string
	Class Class
	Dims  []int

	// Real and Imag hold numeric data in column-major order.
	Real []float64
	Imag []float64

	// Text holds char data; rows of a multi-row char array are joined by "\n".
	Text string

	// Fields and Elems describe a struct array: Elems[i][j] is field j of
	// element i (column-major element order). A nil entry is an empty value.
	Fields []string
	Elems  [][]*Array

	// Cells holds cell array contents in column-major order.
	Cells []*Array
}

// maxElements bounds the element count of one array.
const maxElements = 1<<31 - 1

// Numel returns the number of elements implied by Dims, or -1 when their
// product exceeds the largest array MATLAB can save.
func (a *Array) Numel() int {
	n, ok := elementCount(a.Dims)
	if !ok {
		return -1
	}
	return n
}

func elementCount(dims []int) (int, bool) {
	if len(dims) == 0 {
		return 0, true
	}
	n := 1
	for _, d := range dims {
		if d < 0 {
			return 0, false
		}
		if d != 0 && n > maxElements/d {
			return 0, false
		}
		n *= d
	}
	return n, true
}

// Empty reports whether a has no elements.
func (a *Array) Empty() bool {
	return a == nil || a.Numel() == 0
}

// Scalar returns the single value of a 1x1 numeric array.
func (a *Array) Scalar() (float64, error) {
	if a == nil {
		return 0, fmt.Errorf("%w: empty value where a number was expected", ErrFormat)
	}
	if !a.Class.Numeric() {
		return 0, fmt.Errorf("%w: %s value where a number was expected", ErrFormat, a.Class)
	}
	if len(a.Real) != 1 {
		return 0, fmt.Errorf("%w: %d values where a scalar was expected", ErrFormat, len(a.Real))
	}
	return a.Real[0], nil
}

// Chars returns the text of a char array. An empty value of any class
// yields "" since MATLAB writes [] for unset text.
func (a *Array) Chars() (string, error) {
	if a == nil {
		return "", nil
	}
	if a.Class == ClassChar {
		return a.Text, nil
	}
	if a.Empty() {
		return "", nil
	}
	return "", fmt.Errorf("%w: %s value where text was expected", ErrFormat, a.Class)
}

// File is a decoded MAT-file.
type File struct {
	// Description is the trimmed 116-byte header text.
	Description string
	Vars        []*Array
}

// Var returns the top-level variable with the given name.
func (f *File) Var(name string) (*Array, bool) {
	for _, v := range f.Vars {
		if v.Name == name {
			return v, true
		}
	}
	return nil, false
}

// Names lists the top-level variable names in file order.
func (f *File) Names() []string {
	names := make([]string, len(f.Vars))
	for i, v := range f.Vars {
		names[i] = v.Name
	}
	return names
}

func trimHeader(b []byte) string {
	return strings.TrimRight(strings.TrimRight(string(b), "\x00"), " ")
}
