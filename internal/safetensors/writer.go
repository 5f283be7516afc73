package safetensors

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const metadataKey = "__metadata__"

// EncodeTensors serializes tensors into safetensors format. Tensors are
// laid out in name order. metadata may be nil.
func EncodeTensors(tensors []Tensor, metadata map[string]string) ([]byte, error) {
	if len(tensors) == 0 {
		return nil, errors.New("safetensors: no tensors to encode")
	}

	sorted := make([]Tensor, len(tensors))
	copy(sorted, tensors)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	header := make(map[string]any, len(sorted)+1)
	raw := make([]byte, 0, estimateTensorBytes(sorted))

	for _, tensor := range sorted {
		name := strings.TrimSpace(tensor.Name)
		if name == "" || name == metadataKey {
			return nil, fmt.Errorf("safetensors: invalid tensor name %q", tensor.Name)
		}

		if _, exists := header[name]; exists {
			return nil, fmt.Errorf("safetensors: duplicate tensor name %q", name)
		}

		elemCount, err := shapeElementCount(tensor.Shape)
		if err != nil {
			return nil, fmt.Errorf("safetensors: tensor %q: %w", name, err)
		}

		if int64(tensor.Len()) != elemCount {
			return nil, fmt.Errorf(
				"safetensors: tensor %q shape %v expects %d elements, got %d",
				name,
				tensor.Shape,
				elemCount,
				tensor.Len(),
			)
		}

		start := len(raw)

		switch tensor.DType {
		case F32:
			raw = append(raw, make([]byte, len(tensor.F32)*4)...)
			for i, v := range tensor.F32 {
				binary.LittleEndian.PutUint32(raw[start+i*4:], math.Float32bits(v))
			}
		case I32:
			raw = append(raw, make([]byte, len(tensor.I32)*4)...)
			for i, v := range tensor.I32 {
				binary.LittleEndian.PutUint32(raw[start+i*4:], uint32(v))
			}
		default:
			return nil, fmt.Errorf("safetensors: tensor %q has unsupported dtype %q", name, tensor.DType)
		}

		header[name] = storeHeaderEntry{
			DType:   string(tensor.DType),
			Shape:   append([]int64{}, tensor.Shape...),
			Offsets: [2]int{start, len(raw)},
		}
	}

	if len(metadata) > 0 {
		header[metadataKey] = metadata
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("safetensors: encode header: %w", err)
	}

	out := make([]byte, 0, 8+len(headerJSON)+len(raw))
	lenPrefix := make([]byte, 8)
	binary.LittleEndian.PutUint64(lenPrefix, uint64(len(headerJSON)))
	out = append(out, lenPrefix...)
	out = append(out, headerJSON...)
	out = append(out, raw...)

	return out, nil
}

// WriteFile writes tensors to path. The data goes to a temporary file in
// the same directory first, so path is either absent or complete.
func WriteFile(path string, tensors []Tensor, metadata map[string]string) error {
	data, err := EncodeTensors(tensors, metadata)
	if err != nil {
		return err
	}

	return writeAtomic(path, data)
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("safetensors: create temp for %s: %w", path, err)
	}

	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("safetensors: chmod %s: %w", tmpName, err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("safetensors: write %s: %w", path, err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("safetensors: close %s: %w", path, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("safetensors: rename into %s: %w", path, err)
	}

	return nil
}

func estimateTensorBytes(tensors []Tensor) int {
	total := 0
	for _, tensor := range tensors {
		total += tensor.Len() * 4
	}

	return total
}
