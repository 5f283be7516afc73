package onnx

import (
	"fmt"
	"math"
	"strings"
)

type TensorDType string

const (
	DTypeFloat32 TensorDType = "float32"
	DTypeInt64   TensorDType = "int64"
)

type Tensor struct {
	dtype TensorDType
	shape []int64
	data  any
}

func NewTensor[T ~int64 | ~float32](data []T, shape []int64) (*Tensor, error) {
	dtype, err := dtypeFromSlice(data)
	if err != nil {
		return nil, err
	}
	if err := validateShapeAgainstData(shape, len(data)); err != nil {
		return nil, err
	}

	t := &Tensor{
		dtype: dtype,
		shape: append([]int64(nil), shape...),
	}
	switch dtype {
	case DTypeFloat32:
		converted := make([]float32, len(data))
		for i, v := range data {
			converted[i] = float32(v)
		}
		t.data = converted
	case DTypeInt64:
		converted := make([]int64, len(data))
		for i, v := range data {
			converted[i] = int64(v)
		}
		t.data = converted
	default:
		return nil, fmt.Errorf("unsupported tensor dtype %q", dtype)
	}
	return t, nil
}

// NewIDTensor packs padded id rows into a (rows, width) tensor of dtype.
// Every row must have the same width.
func NewIDTensor(rows [][]int32, dtype TensorDType) (*Tensor, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("no rows to pack")
	}
	width := len(rows[0])
	shape := []int64{int64(len(rows)), int64(width)}

	switch dtype {
	case DTypeInt64:
		flat := make([]int64, 0, len(rows)*width)
		for i, r := range rows {
			if len(r) != width {
				return nil, fmt.Errorf("row %d has width %d, want %d", i, len(r), width)
			}
			for _, id := range r {
				flat = append(flat, int64(id))
			}
		}
		return NewTensor(flat, shape)
	case DTypeFloat32:
		flat := make([]float32, 0, len(rows)*width)
		for i, r := range rows {
			if len(r) != width {
				return nil, fmt.Errorf("row %d has width %d, want %d", i, len(r), width)
			}
			for _, id := range r {
				flat = append(flat, float32(id))
			}
		}
		return NewTensor(flat, shape)
	default:
		return nil, fmt.Errorf("unsupported tensor dtype %q", dtype)
	}
}

func (t *Tensor) DType() TensorDType {
	return t.dtype
}

func (t *Tensor) Shape() []int64 {
	return append([]int64(nil), t.shape...)
}

func ExtractFloat32(t *Tensor) ([]float32, error) {
	if t == nil {
		return nil, fmt.Errorf("expected float32 tensor, got nil")
	}
	data, ok := t.data.([]float32)
	if !ok {
		return nil, fmt.Errorf("expected float32 tensor, got %s", t.dtype)
	}
	return append([]float32(nil), data...), nil
}

func ExtractInt64(t *Tensor) ([]int64, error) {
	if t == nil {
		return nil, fmt.Errorf("expected int64 tensor, got nil")
	}
	data, ok := t.data.([]int64)
	if !ok {
		return nil, fmt.Errorf("expected int64 tensor, got %s", t.dtype)
	}
	return append([]int64(nil), data...), nil
}

func dtypeFromSlice[T ~int64 | ~float32](data []T) (TensorDType, error) {
	var zero T
	switch any(zero).(type) {
	case int64:
		return DTypeInt64, nil
	case float32:
		return DTypeFloat32, nil
	default:
		return "", fmt.Errorf("unsupported tensor data type %T", zero)
	}
}

// ParseDType accepts the dtype spellings used in ONNX metadata and config.
func ParseDType(raw string) (TensorDType, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.TrimPrefix(normalized, "tensor(")
	normalized = strings.TrimSuffix(normalized, ")")
	switch normalized {
	case "float", "float32":
		return DTypeFloat32, nil
	case "int64", "long":
		return DTypeInt64, nil
	default:
		return "", fmt.Errorf("unsupported tensor dtype %q", raw)
	}
}

func validateShapeAgainstData(shape []int64, dataLen int) error {
	count, err := elementCount(shape)
	if err != nil {
		return err
	}
	if count != dataLen {
		return fmt.Errorf("shape %v expects %d elements, got %d", shape, count, dataLen)
	}
	return nil
}

func elementCount(shape []int64) (int, error) {
	if len(shape) == 0 {
		return 1, nil
	}
	count := int64(1)
	for i, dim := range shape {
		if dim < 1 {
			return 0, fmt.Errorf("shape[%d]=%d is not positive", i, dim)
		}
		if count > math.MaxInt64/dim {
			return 0, fmt.Errorf("shape %v overflows element count", shape)
		}
		count *= dim
	}
	if count > int64(math.MaxInt) {
		return 0, fmt.Errorf("shape %v exceeds platform int capacity", shape)
	}
	return int(count), nil
}
