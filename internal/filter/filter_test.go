package filter

import (
	"testing"

	"github.com/edgevec/edgevec/internal/metadata"
	"github.com/edgevec/edgevec/internal/verrors"
)

func TestParseAndEvaluate(t *testing.T) {
	cases := []struct {
		name string
		expr string
		meta map[string]metadata.Value
		want bool
	}{
		{"equality true", `category = "x"`, map[string]metadata.Value{"category": "x"}, true},
		{"equality false", `category = "x"`, map[string]metadata.Value{"category": "y"}, false},
		{"and", `category = "x" AND score > 0.5`, map[string]metadata.Value{"category": "x", "score": 0.9}, true},
		{"and short circuit false", `category = "x" AND score > 0.5`, map[string]metadata.Value{"category": "y", "score": 0.9}, false},
		{"or", `category = "x" OR category = "y"`, map[string]metadata.Value{"category": "y"}, true},
		{"not", `NOT (category = "x")`, map[string]metadata.Value{"category": "y"}, true},
		{"between", `score BETWEEN 0.1 AND 0.9`, map[string]metadata.Value{"score": 0.5}, true},
		{"in", `category IN ("x", "y")`, map[string]metadata.Value{"category": "z"}, false},
		{"not in", `category NOT IN ("x", "y")`, map[string]metadata.Value{"category": "z"}, true},
		{"is null present", `category IS NULL`, map[string]metadata.Value{"category": "z"}, false},
		{"is null missing", `category IS NULL`, map[string]metadata.Value{}, true},
		{"is not null missing", `category IS NOT NULL`, map[string]metadata.Value{}, false},
		{"contains", `name CONTAINS "bar"`, map[string]metadata.Value{"name": "foobarbaz"}, true},
		{"starts with", `name STARTS WITH "foo"`, map[string]metadata.Value{"name": "foobar"}, true},
		{"ends with", `name ENDS WITH "baz"`, map[string]metadata.Value{"name": "foobarbaz"}, true},
		{"missing attribute comparison", `score > 0.5`, map[string]metadata.Value{}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			expr, err := Parse(tc.expr)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tc.expr, err)
			}
			got := Evaluate(expr, tc.meta)
			if got != tc.want {
				t.Fatalf("Evaluate(%q) = %v, want %v", tc.expr, got, tc.want)
			}
		})
	}
}

func TestParseOperatorTypoSuggestion(t *testing.T) {
	_, err := Parse(`score >> 0.5`)
	if err == nil {
		t.Fatalf("expected parse error")
	}
	ve, ok := verrors.As(err)
	if !ok || ve.Code != verrors.CodeFilterSyntax {
		t.Fatalf("expected a FilterSyntax error, got %v", err)
	}
	if ve.Suggestion != "> or >=" {
		t.Fatalf("suggestion = %q, want %q", ve.Suggestion, "> or >=")
	}
}

func TestSelectivityComposition(t *testing.T) {
	hist := NewHistograms()
	for i := 0; i < 100; i++ {
		val := "y"
		if i < 20 {
			val = "x"
		}
		hist.Observe("category", val)
	}

	eq, _ := Parse(`category = "x"`)
	s := EstimateSelectivity(eq, hist)
	if s < 0.15 || s > 0.25 {
		t.Fatalf("selectivity = %v, want ~0.2", s)
	}

	and, _ := Parse(`category = "x" AND score > 0.5`)
	sAnd := EstimateSelectivity(and, hist)
	if sAnd <= 0 || sAnd >= s {
		t.Fatalf("AND selectivity %v should be smaller than leaf %v", sAnd, s)
	}

	not, _ := Parse(`NOT (category = "x")`)
	sNot := EstimateSelectivity(not, hist)
	if got, want := sNot, 1-s; got < want-1e-9 || got > want+1e-9 {
		t.Fatalf("NOT selectivity = %v, want %v", got, want)
	}
}

func TestParseParenthesesAndPrecedence(t *testing.T) {
	expr, err := Parse(`(category = "x" OR category = "y") AND score > 0.5`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	meta := map[string]metadata.Value{"category": "y", "score": 0.9}
	if !Evaluate(expr, meta) {
		t.Fatalf("expected match")
	}
}
