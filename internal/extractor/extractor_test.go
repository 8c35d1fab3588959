package extractor

import (
	"reflect"
	"regexp"
	"testing"
)

func TestExtract(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "two mutations",
			text: "patients carrying G1043D and G14313D showed reduced activity",
			want: []string{"G1043D", "G14313D"},
		},
		{
			name: "duplicates collapse",
			text: "V600E is common; V600E and K601E were both seen. V600E again.",
			want: []string{"K601E", "V600E"},
		},
		{
			name: "no match",
			text: "no mutation tokens in this abstract",
			want: []string{},
		},
		{
			name: "empty",
			text: "",
			want: []string{},
		},
		{
			name: "too many digits is not truncated",
			text: "A123456B should not match and neither should A1B",
			want: []string{},
		},
		{
			name: "lowercase is ignored",
			text: "g1043d and G1043d and g1043D",
			want: []string{},
		},
		{
			name: "alphanumeric context blocks match",
			text: "XG1043D G1043DX 1G1043D G1043D1",
			want: []string{},
		},
		{
			name: "punctuation boundaries",
			text: "(p.R132H), R132H-positive, [E545K]",
			want: []string{"E545K", "R132H"},
		},
		{
			name: "two digit and five digit bounds",
			text: "A12B Z99999Y",
			want: []string{"A12B", "Z99999Y"},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Extract(tc.text)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Extract(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}
}

func TestExtractReturnsSetOfGrammarTokens(t *testing.T) {
	t.Parallel()

	grammar := regexp.MustCompile(`^[A-Z][0-9]{2,5}[A-Z]$`)
	text := "T790M T790M,L858R;C797S  T790M\tG12345C G12345CC AB12C"

	got := New().Extract(text)
	seen := map[string]bool{}
	for _, token := range got {
		if seen[token] {
			t.Fatalf("duplicate token %s in %v", token, got)
		}
		seen[token] = true
		if !grammar.MatchString(token) {
			t.Fatalf("token %s does not match grammar", token)
		}
	}

	want := []string{"C797S", "G12345C", "L858R", "T790M"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}
