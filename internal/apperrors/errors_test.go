package apperrors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/chris-alexander-pop/cloudstub/internal/apperrors"
	"github.com/chris-alexander-pop/cloudstub/pkg/test"
)

type ErrorsSuite struct {
	*test.Suite
}

func TestErrorsSuite(t *testing.T) {
	test.Run(t, &ErrorsSuite{Suite: test.NewSuite()})
}

func (s *ErrorsSuite) TestIsMatchesCodeThroughWrap() {
	base := apperrors.NoSuchBucket("photos")
	wrapped := errors.New("context: " + base.Error())
	s.False(apperrors.Is(wrapped, apperrors.CodeNoSuchBucket))
	s.True(apperrors.Is(base, apperrors.CodeNoSuchBucket))
	chained := fmt.Errorf("context: %w", base)
	s.True(apperrors.Is(chained, apperrors.CodeNoSuchBucket))
}

func (s *ErrorsSuite) TestAsExtractsAppError() {
	err := apperrors.MessageTooLong("body exceeds 262144 bytes")
	ae, ok := apperrors.As(err)
	s.True(ok)
	s.Equal(apperrors.CodeMessageTooLong, ae.Code)
	s.Equal(apperrors.KindClientInput, ae.Kind)
}

func (s *ErrorsSuite) TestWrapPreservesCauseViaUnwrap() {
	cause := errors.New("disk full")
	wrapped := apperrors.Wrap(cause, "failed to load config")
	s.Equal(cause, errors.Unwrap(wrapped))
	s.True(errors.Is(wrapped, cause))
}

func (s *ErrorsSuite) TestErrorMessageIncludesCauseWhenPresent() {
	cause := errors.New("boom")
	err := apperrors.Internal("setup failed", cause)
	s.Contains(err.Error(), "setup failed")
	s.Contains(err.Error(), "boom")
}

func (s *ErrorsSuite) TestKindClassificationMatchesTaxonomy() {
	s.Equal(apperrors.KindNotFound, apperrors.NonExistentQueue("orders").Kind)
	s.Equal(apperrors.KindState, apperrors.MessageNotInflight().Kind)
	s.Equal(apperrors.KindConflict, apperrors.QueueNameExists("orders").Kind)
}
