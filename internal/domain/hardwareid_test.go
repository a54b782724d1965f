package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyHardwareID(t *testing.T) {
	tests := []struct {
		code      string
		want      HardwareIDType
		initiator EdgeType
		target    EdgeType
		linked    bool
	}{
		{"1", HardwareIDOther, "", "", false},
		{"2", HardwareIDPortWWN, EdgeTypeFCConnect, EdgeTypeFCConnect, true},
		{"3", HardwareIDNodeWWN, EdgeTypeFCConnect, EdgeTypeFCConnect, true},
		{"4", HardwareIDHostname, "", "", false},
		{"5", HardwareIDISCSIName, EdgeTypeISCSIInitiator, EdgeTypeISCSITarget, true},
		{"6", HardwareIDSwitchWWN, EdgeTypeFCConnect, EdgeTypeFCConnect, true},
		{"7", HardwareIDSASAddress, "", "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			got, ok := ClassifyHardwareID(tt.code)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)

			initiator, ok := got.InitiatorLink()
			assert.Equal(t, tt.linked, ok)
			assert.Equal(t, tt.initiator, initiator)

			target, ok := got.TargetLink()
			assert.Equal(t, tt.linked, ok)
			assert.Equal(t, tt.target, target)
		})
	}

	t.Run("unknown code", func(t *testing.T) {
		_, ok := ClassifyHardwareID("42")
		assert.False(t, ok)
	})
}

func TestNormalizeHardwareID(t *testing.T) {
	id, err := NormalizeHardwareID(HardwareIDPortWWN, "2100001B32A1B2C3")
	require.NoError(t, err)
	assert.Equal(t, "21:00:00:1b:32:a1:b2:c3", id)

	_, err = NormalizeHardwareID(HardwareIDNodeWWN, "wwnX")
	require.ErrorIs(t, err, ErrInvalidWWN)

	id, err = NormalizeHardwareID(HardwareIDISCSIName, " IQN.1994-05.com.redhat:host1 ")
	require.NoError(t, err)
	assert.Equal(t, "iqn.1994-05.com.redhat:host1", id)

	_, err = NormalizeHardwareID(HardwareIDISCSIName, " ")
	require.ErrorIs(t, err, ErrInvalidAttribute)
}

func TestHardwareIDTypeAccepts(t *testing.T) {
	tests := []struct {
		name   string
		idType HardwareIDType
		raw    string
		want   bool
	}{
		{"wwn on fc view", HardwareIDPortWWN, "500507680140A1B2", true},
		{"malformed wwn on fc view", HardwareIDNodeWWN, "1234", true},
		{"iqn on fc view", HardwareIDPortWWN, "iqn.1986-03.com.example:target0", false},
		{"iqn on iscsi view", HardwareIDISCSIName, "IQN.1986-03.com.example:target0", true},
		{"eui on iscsi view", HardwareIDISCSIName, "eui.02004567A425678D", true},
		{"wwn on iscsi view", HardwareIDISCSIName, "500507680140A1B2", false},
		{"bare prefix", HardwareIDISCSIName, "iqn.", false},
		{"hostname", HardwareIDHostname, "host1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.idType.Accepts(tt.raw))
		})
	}
}
