package course

import (
	"errors"
	"testing"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		query   string
		want    Filter
		wantErr bool
	}{
		{query: "math", want: Filter{Category: "math"}},
		{query: "Science", want: Filter{Category: "science"}},
		{query: " ICT ", want: Filter{Category: "ict"}},
		{query: "6", want: Filter{Grade: 6}},
		{query: "8", want: Filter{Grade: 8}},
		{query: "12", want: Filter{Grade: 12}},
		{query: "7", wantErr: true},
		{query: "history", wantErr: true},
		{query: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := ParseFilter(tt.query)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidFilter) {
					t.Fatalf("expected ErrInvalidFilter, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFilterMatchesAndKeys(t *testing.T) {
	c := Course{Category: "math", Grade: 10}

	if !(Filter{}).Matches(c) {
		t.Fatalf("zero filter should match everything")
	}
	if !(Filter{Category: "math"}).Matches(c) || (Filter{Category: "ict"}).Matches(c) {
		t.Fatalf("category filter mismatch")
	}
	if !(Filter{Grade: 10}).Matches(c) || (Filter{Grade: 6}).Matches(c) {
		t.Fatalf("grade filter mismatch")
	}

	if (Filter{Category: "math"}).CacheKey() == (Filter{Grade: 6}).CacheKey() {
		t.Fatalf("distinct filters must not share a cache key")
	}
}
