package indexer

import (
	"reflect"
	"testing"
)

func TestSplitRange(t *testing.T) {
	cases := []struct {
		name      string
		from, to  uint64
		batchSize uint64
		want      []BlockRange
	}{
		{
			name: "even split", from: 100, to: 105, batchSize: 2,
			want: []BlockRange{{100, 101}, {102, 103}, {104, 105}},
		},
		{
			name: "short tail", from: 0, to: 10, batchSize: 4,
			want: []BlockRange{{0, 3}, {4, 7}, {8, 10}},
		},
		{
			name: "single block", from: 5, to: 5, batchSize: 1000,
			want: []BlockRange{{5, 5}},
		},
		{
			name: "batch larger than span", from: 7, to: 9, batchSize: 1000,
			want: []BlockRange{{7, 9}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := SplitRange(tc.from, tc.to, tc.batchSize)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("ranges mismatch: %+v != %+v", got, tc.want)
			}
		})
	}
}

func TestSplitRangeRejectsBadInput(t *testing.T) {
	if _, err := SplitRange(10, 9, 1); err == nil {
		t.Fatalf("expected error for inverted range")
	}
	if _, err := SplitRange(1, 10, 0); err == nil {
		t.Fatalf("expected error for zero batch size")
	}
}
