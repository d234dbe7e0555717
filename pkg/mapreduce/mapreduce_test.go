package mapreduce

import (
	"reflect"
	"testing"

	"github.com/dtnitsch/article-analyzer/pkg/analytics"
)

func TestMapReduce(t *testing.T) {
	a := &analytics.Analytics{}
	counts := Reduce(MapAll([]string{
		"Solar panels and solar storage",
		"Storage prices fall",
	}, a))

	want := map[string]int{"solar": 2, "panels": 1, "storage": 2, "prices": 1, "fall": 1}
	if !reflect.DeepEqual(counts, want) {
		t.Errorf("Reduce() = %v, want %v", counts, want)
	}
}

func TestTopKeywords(t *testing.T) {
	tests := []struct {
		name   string
		counts map[string]int
		n      int
		want   []string
	}{
		{
			name:   "ordered by count then word",
			counts: map[string]int{"storage": 2, "solar": 2, "fall": 1},
			n:      2,
			want:   []string{"solar:2", "storage:2"},
		},
		{
			name:   "malformed tokens dropped",
			counts: map[string]int{"func(": 9, "key:": 5, "grid": 1},
			n:      5,
			want:   []string{"grid:1"},
		},
		{
			name:   "non-positive n",
			counts: map[string]int{"grid": 1},
			n:      -1,
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TopKeywords(tt.counts, tt.n)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("TopKeywords() = %v, want %v", got, tt.want)
			}
		})
	}
}
