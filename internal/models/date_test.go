package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want Date
	}{
		{"2025-03-15", Date{2025, time.March, 15}},
		{"2025-01-31T23:30:00-05:00", Date{2025, time.January, 31}},
		{"2025-02-01T00:30:00+09:00", Date{2025, time.February, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseDate("15/03/2025")
	assert.Error(t, err)
}

func TestDateJSON(t *testing.T) {
	b, err := json.Marshal(NewDate(2025, time.April, 1))
	require.NoError(t, err)
	assert.Equal(t, `"2025-04-01"`, string(b))

	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2024-02-29"`), &d))
	assert.Equal(t, Date{2024, time.February, 29}, d)
}

func TestDateScan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2025-06-01", d.String())

	require.NoError(t, d.Scan([]byte("2025-07-01")))
	assert.Equal(t, "2025-07-01", d.String())

	require.NoError(t, d.Scan("2025-08-01T00:00:00Z"))
	assert.Equal(t, "2025-08-01", d.String())

	assert.Error(t, d.Scan(int64(5)))

	v, err := NewDate(2025, 13, 1).Value()
	require.NoError(t, err)
	assert.Equal(t, "2026-01-01", v)
}
