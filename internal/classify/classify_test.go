package classify

import (
	"net/netip"
	"testing"

	"routewatch/internal/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		info      model.RouteInfo
		threshold int64
		want      model.Status
	}{
		{
			name:      "absent route is missing",
			info:      model.RouteInfo{Exists: false},
			threshold: 60,
			want:      model.StatusMissing,
		},
		{
			name:      "absent route is missing regardless of stale age field",
			info:      model.RouteInfo{Exists: false, AgeSeconds: 5000},
			threshold: 60,
			want:      model.StatusMissing,
		},
		{
			name:      "young route is flapping",
			info:      model.RouteInfo{Exists: true, AgeSeconds: 5},
			threshold: 60,
			want:      model.StatusFlapping,
		},
		{
			name:      "age one below threshold is flapping",
			info:      model.RouteInfo{Exists: true, AgeSeconds: 59},
			threshold: 60,
			want:      model.StatusFlapping,
		},
		{
			name:      "age exactly at threshold is stable",
			info:      model.RouteInfo{Exists: true, AgeSeconds: 60},
			threshold: 60,
			want:      model.StatusStable,
		},
		{
			name:      "old route is stable",
			info:      model.RouteInfo{Exists: true, AgeSeconds: 86400},
			threshold: 60,
			want:      model.StatusStable,
		},
		{
			name:      "zero threshold makes any existing route stable",
			info:      model.RouteInfo{Exists: true, AgeSeconds: 0},
			threshold: 0,
			want:      model.StatusStable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.info, tt.threshold)
			if got != tt.want {
				t.Errorf("Classify(%+v, %d) = %s, want %s", tt.info, tt.threshold, got, tt.want)
			}
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	info := model.RouteInfo{
		Exists:     true,
		AgeSeconds: 42,
		NextHop:    netip.MustParseAddr("192.0.2.1"),
		Metric:     100,
	}
	first := Classify(info, 60)
	for i := 0; i < 100; i++ {
		if got := Classify(info, 60); got != first {
			t.Fatalf("Classify returned %s on iteration %d, want %s every time", got, i, first)
		}
	}
}

func TestClassifyBoundaryAcrossThresholds(t *testing.T) {
	// The equal-age case must land on STABLE for every threshold value.
	for _, threshold := range []int64{0, 1, 60, 300, 3600} {
		info := model.RouteInfo{Exists: true, AgeSeconds: threshold}
		if got := Classify(info, threshold); got != model.StatusStable {
			t.Errorf("Classify(age=%d, threshold=%d) = %s, want STABLE", threshold, threshold, got)
		}
	}
}
