package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeWWN(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "bare hex", input: "10000000c9a1b2c3", want: "10:00:00:00:c9:a1:b2:c3"},
		{name: "upper case", input: "10000000C9A1B2C3", want: "10:00:00:00:c9:a1:b2:c3"},
		{name: "colon separated", input: "50:05:07:68:01:40:A1:B2", want: "50:05:07:68:01:40:a1:b2"},
		{name: "dash separated", input: "50-05-07-68-01-40-a1-b2", want: "50:05:07:68:01:40:a1:b2"},
		{name: "0x prefix", input: "0x500507680140a1b2", want: "50:05:07:68:01:40:a1:b2"},
		{name: "surrounding space", input: "  10000000c9a1b2c3 ", want: "10:00:00:00:c9:a1:b2:c3"},
		{name: "too short", input: "1234", wantErr: true},
		{name: "too long", input: "10000000c9a1b2c3ff", wantErr: true},
		{name: "non hex", input: "10000000c9a1b2zz", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeWWN(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidWWN)
				assert.False(t, IsWWN(tt.input))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Len(t, got, 23)
		})
	}
}
