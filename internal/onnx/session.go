//go:build !windows

package onnx

import (
	"context"
	"fmt"

	ort "github.com/shota3506/onnxruntime-purego/onnxruntime"
)

// Session holds one ORT session over a classifier graph. It satisfies
// GraphRunner.
type Session struct {
	model string
	rt    *ort.Runtime
	env   *ort.Env
	sess  *ort.Session
}

// OpenSession loads libPath and then the graph at model.
func OpenSession(libPath string, apiVersion uint32, model string) (*Session, error) {
	if apiVersion == 0 {
		apiVersion = DefaultAPIVersion
	}

	s := &Session{model: model}

	var err error
	if s.rt, err = ort.NewRuntime(libPath, apiVersion); err != nil {
		return nil, fmt.Errorf("load onnx runtime %s (api %d): %w", libPath, apiVersion, err)
	}
	if s.env, err = s.rt.NewEnv("sentiprep", ort.LoggingLevelWarning); err != nil {
		s.Close()
		return nil, fmt.Errorf("onnx env: %w", err)
	}
	if s.sess, err = s.rt.NewSession(s.env, model, nil); err != nil {
		s.Close()
		return nil, fmt.Errorf("load classifier %s: %w", model, err)
	}

	return s, nil
}

// Run feeds inputs to the graph and copies every output back into Go memory.
func (s *Session) Run(ctx context.Context, inputs map[string]*Tensor) (map[string]*Tensor, error) {
	in := make(values, len(inputs))
	defer in.close()

	for name, t := range inputs {
		v, err := s.toORT(t)
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", name, err)
		}
		in[name] = v
	}

	out, err := s.sess.Run(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", s.model, err)
	}
	defer values(out).close()

	results := make(map[string]*Tensor, len(out))
	for name, v := range out {
		t, err := fromORT(v)
		if err != nil {
			return nil, fmt.Errorf("output %q: %w", name, err)
		}
		results[name] = t
	}

	return results, nil
}

// Close releases the session, env and library. Safe to call repeatedly.
func (s *Session) Close() {
	if s.sess != nil {
		s.sess.Close()
		s.sess = nil
	}
	if s.env != nil {
		s.env.Close()
		s.env = nil
	}
	if s.rt != nil {
		_ = s.rt.Close()
		s.rt = nil
	}
}

type values map[string]*ort.Value

func (vs values) close() {
	for _, v := range vs {
		if v != nil {
			v.Close()
		}
	}
}

func (s *Session) toORT(t *Tensor) (*ort.Value, error) {
	switch data := t.data.(type) {
	case []int64:
		return ort.NewTensorValue(s.rt, data, t.shape)
	case []float32:
		return ort.NewTensorValue(s.rt, data, t.shape)
	default:
		return nil, fmt.Errorf("unsupported tensor dtype %q", t.dtype)
	}
}

func fromORT(v *ort.Value) (*Tensor, error) {
	typ, err := v.GetTensorElementType()
	if err != nil {
		return nil, fmt.Errorf("element type: %w", err)
	}

	switch typ {
	case ort.ONNXTensorElementDataTypeFloat:
		return copyValue[float32](v)
	case ort.ONNXTensorElementDataTypeInt64:
		return copyValue[int64](v)
	default:
		return nil, fmt.Errorf("unsupported output element type %d", typ)
	}
}

func copyValue[T int64 | float32](v *ort.Value) (*Tensor, error) {
	data, shape, err := ort.GetTensorData[T](v)
	if err != nil {
		return nil, err
	}
	return NewTensor(data, shape)
}
