package testutils

import (
	"context"
	"fmt"

	"github.com/foliodocs/folio/pkg/generation"
)

// MockGenerator is a test generator that records prompts and returns a
// configurable answer.
type MockGenerator struct {
	// Prompts accumulates all prompts passed to Generate.
	Prompts []generation.Prompt

	// Answer is returned by Generate.
	Answer string

	// Fail causes Generate to return an error.
	Fail bool
}

func NewMockGenerator(answer string) *MockGenerator {
	return &MockGenerator{Answer: answer}
}

func (m *MockGenerator) Generate(_ context.Context, prompt generation.Prompt) (generation.Result, error) {
	m.Prompts = append(m.Prompts, prompt)

	if m.Fail {
		return generation.Result{}, fmt.Errorf("mock generation failure")
	}

	return generation.Result{Text: m.Answer, TokensIn: 10, TokensOut: 5}, nil
}

func (m *MockGenerator) Close() error {
	return nil
}

var _ generation.Generator = (*MockGenerator)(nil)
