package progress

import "testing"

func TestPercent(t *testing.T) {
	tests := []struct {
		correct   int64
		attempted int64
		want      int
	}{
		{correct: 0, attempted: 0, want: 0},
		{correct: 5, attempted: 0, want: 0},
		{correct: -1, attempted: 10, want: 0},
		{correct: 5, attempted: 10, want: 50},
		{correct: 1, attempted: 3, want: 33},
		{correct: 10, attempted: 10, want: 100},
		// swapped operands upstream must still clamp, never exceed 100
		{correct: 20, attempted: 10, want: 100},
	}

	for _, tt := range tests {
		if got := Percent(tt.correct, tt.attempted); got != tt.want {
			t.Fatalf("Percent(%d, %d) = %d, want %d", tt.correct, tt.attempted, got, tt.want)
		}
	}
}
