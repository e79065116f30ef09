package lock

import "testing"

func TestCompositeKey(t *testing.T) {
	tests := []struct {
		name        string
		screeningID int
		seatIDs     []int
		want        string
	}{
		{
			name:        "single seat",
			screeningID: 42,
			seatIDs:     []int{7},
			want:        "hold_lock:42:7",
		},
		{
			name:        "seats already sorted",
			screeningID: 1,
			seatIDs:     []int{3, 5, 9},
			want:        "hold_lock:1:3-5-9",
		},
		{
			name:        "seats out of order canonicalize",
			screeningID: 1,
			seatIDs:     []int{9, 3, 5},
			want:        "hold_lock:1:3-5-9",
		},
		{
			name:        "empty seat list",
			screeningID: 8,
			seatIDs:     nil,
			want:        "hold_lock:8:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CompositeKey(tt.screeningID, tt.seatIDs)
			if got != tt.want {
				t.Errorf("CompositeKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCompositeKeyOrderIndependence(t *testing.T) {
	a := CompositeKey(5, []int{12, 4, 31, 7})
	b := CompositeKey(5, []int{7, 31, 4, 12})

	if a != b {
		t.Errorf("same combination produced different keys: %q vs %q", a, b)
	}
}

func TestCompositeKeyDoesNotMutateInput(t *testing.T) {
	seatIDs := []int{9, 3, 5}

	CompositeKey(1, seatIDs)

	if seatIDs[0] != 9 || seatIDs[1] != 3 || seatIDs[2] != 5 {
		t.Errorf("input slice was reordered: %v", seatIDs)
	}
}
