package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRawTradeTime(t *testing.T) {
	want := time.Unix(1700000000, 0).UTC()

	cases := []struct {
		name  string
		value any
	}{
		{"float seconds", float64(1700000000)},
		{"millis", int64(1700000000000)},
		{"json integer", json.Number("1700000000")},
		{"json fraction", json.Number("1700000000.5")},
		{"string fraction", "1700000000.5"},
		{"rfc3339", "2023-11-14T22:13:20Z"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts, present, err := RawTrade{"closeTime": tc.value}.Time(CloseTimeFields)
			require.NoError(t, err)
			require.True(t, present)
			require.Equal(t, want, *ts)
		})
	}
}

func TestRawTradeTimeAbsent(t *testing.T) {
	for _, v := range []any{"", "0", float64(0), json.Number("0"), "0001-01-01T00:00:00Z"} {
		ts, present, err := RawTrade{"closeTime": v}.Time(CloseTimeFields)
		require.NoError(t, err)
		require.False(t, present)
		require.Nil(t, ts)
	}
}

func TestRawTradeTimeRejectsGarbage(t *testing.T) {
	_, present, err := RawTrade{"closeTime": "yesterday"}.Time(CloseTimeFields)
	require.Error(t, err)
	require.True(t, present)

	_, _, err = RawTrade{"closeTime": "NaN"}.Time(CloseTimeFields)
	require.Error(t, err)
}
