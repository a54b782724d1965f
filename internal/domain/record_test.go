package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawEntityRecordUint64(t *testing.T) {
	rec := RawEntityRecord{
		Class: "CIM_StorageVolume",
		Attributes: map[string]any{
			"BlockSize":      "512",
			"NumberOfBlocks": float64(2097152),
			"Blank":          "  ",
			"Negative":       -1,
			"Fraction":       1.5,
			"Garbage":        "lots",
			"Native":         uint64(7),
		},
	}

	tests := []struct {
		attr    string
		want    uint64
		ok      bool
		wantErr bool
	}{
		{attr: "BlockSize", want: 512, ok: true},
		{attr: "NumberOfBlocks", want: 2097152, ok: true},
		{attr: "Native", want: 7, ok: true},
		{attr: "Missing"},
		{attr: "Blank"},
		{attr: "Negative", wantErr: true},
		{attr: "Fraction", wantErr: true},
		{attr: "Garbage", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.attr, func(t *testing.T) {
			got, ok, err := rec.Uint64(tt.attr)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidAttribute)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRawEntityRecordStrings(t *testing.T) {
	rec := RawEntityRecord{
		Class: "CIM_FCPort",
		Attributes: map[string]any{
			"ElementName":      "  port1 ",
			"PermanentAddress": "",
			"Speed":            float64(8e9),
			"Thin":             "TRUE",
		},
		References: map[string]Reference{"System": SystemRef("sysA")},
	}

	assert.Equal(t, "port1", rec.String("ElementName"))
	assert.Equal(t, "8000000000", rec.String("Speed"))
	assert.Equal(t, "port1", rec.FirstString("PermanentAddress", "ElementName"))
	assert.True(t, rec.Has("PermanentAddress"))
	assert.False(t, rec.Has("Nope"))

	_, err := rec.RequireString("PermanentAddress")
	require.ErrorIs(t, err, ErrMissingAttribute)

	b, ok, err := rec.Bool("Thin")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, b)

	assert.Equal(t, Reference{Scope: "sysA"}, rec.Ref("System"))
	assert.True(t, rec.Ref("Other").IsZero())
}

func TestReferenceString(t *testing.T) {
	assert.Equal(t, "sysA", SystemRef("sysA").String())
	assert.Equal(t, "sysA/dev7", Reference{Scope: "sysA", LocalID: "dev7"}.String())
}

func TestInstanceRef(t *testing.T) {
	assert.Equal(t, Reference{Scope: "sysA+", LocalID: "pool0"}, InstanceRef("sysA+pool0"))
	assert.Equal(t, Reference{Scope: "a+b+", LocalID: "c"}, InstanceRef("a+b+c"))
	assert.Equal(t, Reference{LocalID: "hw1"}, InstanceRef(" hw1 "))
}

func TestRawEntityRecordPathRef(t *testing.T) {
	tests := []struct {
		name  string
		attrs map[string]any
		want  Reference
	}{
		{"device", map[string]any{"SystemName": "sysA", "DeviceID": "dev7", "Name": "600507680"}, Reference{Scope: "sysA", LocalID: "dev7"}},
		{"named component", map[string]any{"SystemName": "sysA", "Name": "rsap1"}, Reference{Scope: "sysA", LocalID: "rsap1"}},
		{"filesystem", map[string]any{"CSName": "nas1", "Name": "/fs1"}, Reference{Scope: "nas1", LocalID: "/fs1"}},
		{"instance", map[string]any{"InstanceID": "sysA+pool0"}, Reference{Scope: "sysA+", LocalID: "pool0"}},
		{"system", map[string]any{"Name": "sysA"}, Reference{Scope: "sysA"}},
		{"nothing", map[string]any{"ElementName": "x"}, Reference{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RawEntityRecord{Attributes: tt.attrs}.PathRef())
		})
	}
}
