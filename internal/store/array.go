package store

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
)

// Array is an n-dimensional float64 array stored in row-major order.
type Array struct {
	Shape []int
	Data  []float64
}

// NewArray allocates a zero-filled array with the given shape.
func NewArray(shape ...int) Array {
	size := 1
	for _, dim := range shape {
		size *= dim
	}
	return Array{Shape: shape, Data: make([]float64, size)}
}

// Vector wraps a 1-D slice as an Array without copying.
func Vector(data []float64) Array {
	return Array{Shape: []int{len(data)}, Data: data}
}

// Matrix wraps a row-major 2-D slice as an Array without copying.
func Matrix(rows, cols int, data []float64) Array {
	return Array{Shape: []int{rows, cols}, Data: data}
}

// ColumnStack builds a 2-D array from equally sized columns.
func ColumnStack(columns ...[]float64) Array {
	if len(columns) == 0 {
		return Array{}
	}

	rows := len(columns[0])
	arr := NewArray(rows, len(columns))

	for j, col := range columns {
		for i, v := range col {
			arr.Data[i*len(columns)+j] = v
		}
	}

	return arr
}

// Size returns the total number of elements.
func (a Array) Size() int {
	size := 1
	for _, dim := range a.Shape {
		size *= dim
	}
	return size
}

// NDim returns the number of dimensions.
func (a Array) NDim() int {
	return len(a.Shape)
}

// At returns the element at the given indices.
func (a Array) At(indices ...int) float64 {
	return a.Data[a.offset(indices)]
}

// Set assigns the element at the given indices.
func (a Array) Set(value float64, indices ...int) {
	a.Data[a.offset(indices)] = value
}

func (a Array) offset(indices []int) int {
	if len(indices) != len(a.Shape) {
		panic(fmt.Sprintf("array: %d indices for %d dimensions", len(indices), len(a.Shape)))
	}

	offset := 0
	for i, idx := range indices {
		if idx < 0 || idx >= a.Shape[i] {
			panic(fmt.Sprintf("array: index %d out of range for axis %d (size %d)", idx, i, a.Shape[i]))
		}
		offset = offset*a.Shape[i] + idx
	}
	return offset
}

// Row returns row i of a 2-D array as a copy.
func (a Array) Row(i int) []float64 {
	if a.NDim() != 2 {
		panic("array: Row requires a 2-D array")
	}
	cols := a.Shape[1]
	row := make([]float64, cols)
	copy(row, a.Data[i*cols:(i+1)*cols])
	return row
}

// Column returns column j of a 2-D array as a copy.
func (a Array) Column(j int) []float64 {
	if a.NDim() != 2 {
		panic("array: Column requires a 2-D array")
	}
	cols := a.Shape[1]
	col := make([]float64, a.Shape[0])
	for i := range col {
		col[i] = a.Data[i*cols+j]
	}
	return col
}

// AppendColumn returns a new 2-D array with one extra trailing column.
func (a Array) AppendColumn(column []float64) Array {
	if a.NDim() != 2 {
		panic("array: AppendColumn requires a 2-D array")
	}
	if len(column) != a.Shape[0] {
		panic("array: column length does not match the number of rows")
	}

	rows, cols := a.Shape[0], a.Shape[1]
	out := NewArray(rows, cols+1)

	for i := 0; i < rows; i++ {
		copy(out.Data[i*(cols+1):], a.Data[i*cols:(i+1)*cols])
		out.Data[i*(cols+1)+cols] = column[i]
	}

	return out
}

// Reshape returns a view of the array with a new shape of equal size.
func (a Array) Reshape(shape ...int) Array {
	size := 1
	for _, dim := range shape {
		size *= dim
	}
	if size != a.Size() {
		panic(fmt.Sprintf("array: cannot reshape %v into %v", a.Shape, shape))
	}
	return Array{Shape: shape, Data: a.Data}
}

// Clone returns a deep copy of the array.
func (a Array) Clone() Array {
	out := Array{Shape: append([]int(nil), a.Shape...), Data: make([]float64, len(a.Data))}
	copy(out.Data, a.Data)
	return out
}

// encodeArray serializes the element data as little-endian float64 bytes.
func encodeArray(a Array) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 8*len(a.Data)))
	if err := binary.Write(buf, binary.LittleEndian, a.Data); err != nil {
		return nil, fmt.Errorf("encode array: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeArray deserializes element data written by encodeArray.
func decodeArray(shape []int, blob []byte) (Array, error) {
	arr := Array{Shape: shape, Data: make([]float64, len(blob)/8)}
	if err := binary.Read(bytes.NewReader(blob), binary.LittleEndian, arr.Data); err != nil {
		return Array{}, fmt.Errorf("decode array: %w", err)
	}
	if arr.Size() != len(arr.Data) {
		return Array{}, fmt.Errorf("decode array: shape %v does not match %d elements", shape, len(arr.Data))
	}
	return arr, nil
}

// encodeShape serializes a shape as JSON for the shape column.
func encodeShape(shape []int) (string, error) {
	data, err := json.Marshal(shape)
	if err != nil {
		return "", fmt.Errorf("encode shape: %w", err)
	}
	return string(data), nil
}

// decodeShape deserializes a shape column value.
func decodeShape(value string) ([]int, error) {
	var shape []int
	if err := json.Unmarshal([]byte(value), &shape); err != nil {
		return nil, fmt.Errorf("decode shape: %w", err)
	}
	return shape, nil
}
