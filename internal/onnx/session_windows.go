//go:build windows

package onnx

import (
	"context"
	"fmt"
)

// Session is unavailable in windows builds.
type Session struct {
	model string
}

// OpenSession always fails in windows builds.
func OpenSession(_ string, _ uint32, model string) (*Session, error) {
	return nil, fmt.Errorf("onnx sessions are not supported on windows (model %s)", model)
}

// Run always fails in windows builds.
func (s *Session) Run(context.Context, map[string]*Tensor) (map[string]*Tensor, error) {
	return nil, fmt.Errorf("onnx sessions are not supported on windows (model %s)", s.model)
}

// Close is a no-op.
func (s *Session) Close() {}
