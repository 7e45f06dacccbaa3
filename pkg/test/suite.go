// Package test provides a thin testify suite wrapper shared across this
// module's package tests, so each suite gets a ready context without
// repeating SetupTest boilerplate.
package test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

// Suite wraps testify's suite with a per-test context.
type Suite struct {
	suite.Suite
	Ctx context.Context
}

// SetupTest is called before each test in the suite.
func (s *Suite) SetupTest() {
	s.Ctx = context.Background()
}

// NewSuite creates a new test suite.
func NewSuite() *Suite {
	return &Suite{}
}

// Assert exposes the underlying assertions for callers that prefer it
// over the embedded methods.
func (s *Suite) Assert() *assert.Assertions {
	return s.Assertions
}

// Run runs a suite from a standard Test* function.
func Run(t *testing.T, s suite.TestingSuite) {
	suite.Run(t, s)
}
