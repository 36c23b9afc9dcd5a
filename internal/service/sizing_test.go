package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeVolume(t *testing.T) {
	tests := []struct {
		name string
		in   SizingInputs
		want float64
	}{
		{
			name: "proportional scaling with allocation",
			in: SizingInputs{
				MasterVolume:  0.10,
				MasterBalance: 10000,
				Allocation:    1000,
				RiskFactor:    1.0,
			},
			want: 0.01,
		},
		{
			name: "allocation overrides real balance",
			in: SizingInputs{
				MasterVolume:    1.00,
				MasterBalance:   10000,
				FollowerBalance: 20000,
				Allocation:      5000,
				RiskFactor:      1.0,
			},
			want: 0.50,
		},
		{
			name: "real balance used when no allocation",
			in: SizingInputs{
				MasterVolume:    1.00,
				MasterBalance:   10000,
				FollowerBalance: 2500,
				RiskFactor:      1.0,
			},
			want: 0.25,
		},
		{
			name: "risk factor multiplies",
			in: SizingInputs{
				MasterVolume:    1.00,
				MasterBalance:   10000,
				FollowerBalance: 2500,
				RiskFactor:      2.0,
			},
			want: 0.50,
		},
		{
			name: "zero risk factor defaults to 1.0",
			in: SizingInputs{
				MasterVolume:    1.00,
				MasterBalance:   10000,
				FollowerBalance: 2500,
			},
			want: 0.25,
		},
		{
			name: "never above master volume",
			in: SizingInputs{
				MasterVolume:    0.10,
				MasterBalance:   1000,
				FollowerBalance: 50000,
				RiskFactor:      1.0,
			},
			want: 0.10,
		},
		{
			name: "never below minimum lot",
			in: SizingInputs{
				MasterVolume:    0.50,
				MasterBalance:   1000000,
				FollowerBalance: 100,
				RiskFactor:      1.0,
			},
			want: 0.01,
		},
		{
			name: "missing master balance falls back to minimum",
			in: SizingInputs{
				MasterVolume:    5.00,
				FollowerBalance: 50000,
				RiskFactor:      1.0,
			},
			want: 0.01,
		},
		{
			name: "missing follower balance falls back to minimum",
			in: SizingInputs{
				MasterVolume:  5.00,
				MasterBalance: 10000,
				RiskFactor:    1.0,
			},
			want: 0.01,
		},
		{
			name: "rounds half away from zero",
			in: SizingInputs{
				MasterVolume:  1.00,
				MasterBalance: 10000,
				Allocation:    1250,
				RiskFactor:    1.0,
			},
			// 1.00 * 0.125 = 0.125 -> 0.13
			want: 0.13,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ComputeVolume(tt.in), 1e-9)
		})
	}
}

func TestComputeVolumeBounds(t *testing.T) {
	// For any inputs, the result stays inside [MinLot, masterVolume].
	inputs := []SizingInputs{
		{MasterVolume: 0.01, MasterBalance: 1, FollowerBalance: 1e9, RiskFactor: 100},
		{MasterVolume: 10, MasterBalance: 1e9, FollowerBalance: 1, RiskFactor: 0.001},
		{MasterVolume: 3.33, MasterBalance: 7777, FollowerBalance: 1234.56, RiskFactor: 1.7},
		{MasterVolume: 0.02},
	}
	for _, in := range inputs {
		got := ComputeVolume(in)
		assert.GreaterOrEqual(t, got, MinLot)
		assert.LessOrEqual(t, got, in.MasterVolume)
	}
}

func TestInvertOrderType(t *testing.T) {
	assert.Equal(t, "SELL", invertOrderType("BUY"))
	assert.Equal(t, "BUY", invertOrderType("SELL"))
	assert.Equal(t, "SELL_LIMIT", invertOrderType("BUY_LIMIT"))
	assert.Equal(t, "BUY_STOP", invertOrderType("SELL_STOP"))
	assert.Equal(t, "UNKNOWN", invertOrderType("UNKNOWN"))
}
