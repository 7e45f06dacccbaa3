package filter_test

import (
	"testing"

	"github.com/chris-alexander-pop/cloudstub/internal/filter"
	"github.com/chris-alexander-pop/cloudstub/pkg/test"
)

type FilterSuite struct {
	*test.Suite
}

func TestFilterSuite(t *testing.T) {
	test.Run(t, &FilterSuite{Suite: test.NewSuite()})
}

func (s *FilterSuite) parse(policyJSON string) filter.Policy {
	p, err := filter.Parse(policyJSON)
	s.Require().NoError(err)
	return p
}

func (s *FilterSuite) TestEmptyPolicyAlwaysMatches() {
	s.True(filter.Match(filter.Policy{}, map[string]any{"store": "example"}))
}

func (s *FilterSuite) TestExactStringMatch() {
	policy := s.parse(`{"store":["example_corp"]}`)
	s.True(filter.Match(policy, map[string]any{"store": "example_corp"}))
	s.False(filter.Match(policy, map[string]any{"store": "other"}))
}

func (s *FilterSuite) TestExistsCondition() {
	policy := s.parse(`{"store":[{"exists":true}]}`)
	s.True(filter.Match(policy, map[string]any{"store": "x"}))
	s.False(filter.Match(policy, map[string]any{}))

	policyFalse := s.parse(`{"store":[{"exists":false}]}`)
	s.True(filter.Match(policyFalse, map[string]any{}))
	s.False(filter.Match(policyFalse, map[string]any{"store": "x"}))
}

func (s *FilterSuite) TestPrefixSuffixAndEqualsIgnoreCase() {
	prefix := s.parse(`{"store":[{"prefix":"exa"}]}`)
	s.True(filter.Match(prefix, map[string]any{"store": "example"}))
	s.False(filter.Match(prefix, map[string]any{"store": "nope"}))

	suffix := s.parse(`{"store":[{"suffix":"orp"}]}`)
	s.True(filter.Match(suffix, map[string]any{"store": "example_corp"}))

	eic := s.parse(`{"store":[{"equals-ignore-case":"EXAMPLE"}]}`)
	s.True(filter.Match(eic, map[string]any{"store": "example"}))
}

func (s *FilterSuite) TestWildcard() {
	policy := s.parse(`{"store":[{"wildcard":"ex*le"}]}`)
	s.True(filter.Match(policy, map[string]any{"store": "example"}))
	s.False(filter.Match(policy, map[string]any{"store": "nope"}))
}

func (s *FilterSuite) TestNumericRange() {
	policy := s.parse(`{"price":[{"numeric":[">=", 10, "<", 20]}]}`)
	s.True(filter.Match(policy, map[string]any{"price": 15.0}))
	s.False(filter.Match(policy, map[string]any{"price": 25.0}))
	s.False(filter.Match(policy, map[string]any{"price": 5.0}))
}

func (s *FilterSuite) TestAnythingBut() {
	policy := s.parse(`{"store":[{"anything-but":"example_corp"}]}`)
	s.True(filter.Match(policy, map[string]any{"store": "other"}))
	s.False(filter.Match(policy, map[string]any{"store": "example_corp"}))
}

func (s *FilterSuite) TestOrTopLevel() {
	policy := s.parse(`{"$or":[{"store":["a"]},{"store":["b"]}]}`)
	s.True(filter.Match(policy, map[string]any{"store": "a"}))
	s.True(filter.Match(policy, map[string]any{"store": "b"}))
	s.False(filter.Match(policy, map[string]any{"store": "c"}))
}

func (s *FilterSuite) TestNestedBodyScope() {
	policy := s.parse(`{"customer":{"tier":["gold"]}}`)
	s.True(filter.Match(policy, map[string]any{"customer": map[string]any{"tier": "gold"}}))
	s.False(filter.Match(policy, map[string]any{"customer": map[string]any{"tier": "silver"}}))
}

func (s *FilterSuite) TestDocumentFromAttributesParsesNumberType() {
	doc := filter.DocumentFromAttributes(map[string]filter.Attribute{
		"price": {DataType: "Number", StringValue: "42"},
		"store": {DataType: "String", StringValue: "example"},
	})
	s.Equal(42.0, doc["price"])
	s.Equal("example", doc["store"])
}

func (s *FilterSuite) TestDocumentFromBodyRejectsNonObject() {
	_, ok := filter.DocumentFromBody(`not json`)
	s.False(ok)

	doc, ok := filter.DocumentFromBody(`{"a":1}`)
	s.True(ok)
	s.Equal(1.0, doc["a"])
}

func (s *FilterSuite) TestMultiValueAttributeMatchesAny() {
	policy := s.parse(`{"tags":["blue"]}`)
	s.True(filter.Match(policy, map[string]any{"tags": []any{"red", "blue"}}))
}
