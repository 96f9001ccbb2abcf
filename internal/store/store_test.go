package store

import (
	"reflect"
	"testing"
)

func TestReorder(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		want     []string
	}{
		{name: "down", from: 0, to: 2, want: []string{"b", "c", "a", "d"}},
		{name: "up", from: 3, to: 1, want: []string{"a", "d", "b", "c"}},
		{name: "same", from: 1, to: 1, want: []string{"a", "b", "c", "d"}},
		{name: "clamped", from: 0, to: 10, want: []string{"b", "c", "d", "a"}},
		{name: "bad from", from: 7, to: 0, want: []string{"a", "b", "c", "d"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reorder([]string{"a", "b", "c", "d"}, tt.from, tt.to)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestInsertAt(t *testing.T) {
	if got := InsertAt([]int{1, 2, 3}, 9, 1); !reflect.DeepEqual(got, []int{1, 9, 2, 3}) {
		t.Fatalf("unexpected insert %v", got)
	}
	if got := InsertAt([]int{1, 2}, 9, Append); !reflect.DeepEqual(got, []int{1, 2, 9}) {
		t.Fatalf("unexpected append %v", got)
	}
}
