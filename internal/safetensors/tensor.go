// Package safetensors reads and writes the safetensors container used to
// hand prepared tensors to an external learner: an 8-byte little-endian
// header length, a JSON header, then the raw little-endian tensor data.
package safetensors

import "fmt"

// DType is a safetensors element type.
type DType string

const (
	F32 DType = "F32"
	I32 DType = "I32"
)

func (d DType) size() (int, error) {
	switch d {
	case F32, I32:
		return 4, nil
	default:
		return 0, fmt.Errorf("unsupported dtype %q", string(d))
	}
}

// Tensor is a named tensor. Exactly one of F32 and I32 is populated,
// matching DType.
type Tensor struct {
	Name  string
	DType DType
	Shape []int64
	F32   []float32
	I32   []int32
}

// Float32 returns an F32 tensor.
func Float32(name string, shape []int64, data []float32) Tensor {
	return Tensor{Name: name, DType: F32, Shape: shape, F32: data}
}

// Int32 returns an I32 tensor.
func Int32(name string, shape []int64, data []int32) Tensor {
	return Tensor{Name: name, DType: I32, Shape: shape, I32: data}
}

// Len is the number of stored elements.
func (t Tensor) Len() int {
	if t.DType == I32 {
		return len(t.I32)
	}
	return len(t.F32)
}
