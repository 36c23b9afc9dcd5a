package numbers

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFloat(t *testing.T) {
	cases := []struct {
		name    string
		in      any
		want    float64
		wantErr bool
	}{
		{name: "float64", in: 1.2345, want: 1.2345},
		{name: "float32", in: float32(0.5), want: 0.5},
		{name: "int", in: 7, want: 7},
		{name: "int64", in: int64(42), want: 42},
		{name: "json number", in: json.Number("0.10"), want: 0.10},
		{name: "quoted string", in: "1.1000", want: 1.1},
		{name: "empty string", in: "", wantErr: true},
		{name: "garbage string", in: "abc", wantErr: true},
		{name: "nil", in: nil, wantErr: true},
		{name: "bool", in: true, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractFloat(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestExtractInt(t *testing.T) {
	got, err := ExtractInt(json.Number("1714496400"))
	require.NoError(t, err)
	assert.Equal(t, int64(1714496400), got)

	got, err = ExtractInt("1714496400")
	require.NoError(t, err)
	assert.Equal(t, int64(1714496400), got)

	_, err = ExtractInt("12.5")
	assert.Error(t, err)

	_, err = ExtractInt(nil)
	assert.Error(t, err)
}

func TestExtractTicket(t *testing.T) {
	cases := []struct {
		name    string
		in      any
		want    string
		wantErr bool
	}{
		{name: "string", in: "123456789", want: "123456789"},
		{name: "json number keeps digits", in: json.Number("9007199254740993"), want: "9007199254740993"},
		{name: "int64", in: int64(555), want: "555"},
		{name: "integral float", in: float64(1000), want: "1000"},
		{name: "fractional float", in: 12.5, wantErr: true},
		{name: "empty string", in: "", wantErr: true},
		{name: "bool", in: false, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractTicket(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
