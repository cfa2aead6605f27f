package gpu

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homewiseai/hwprobe/internal/errors"
)

func TestParseVendor(t *testing.T) {
	tests := []struct {
		input    string
		expected Vendor
		wantErr  bool
	}{
		{"nvidia", VendorNVIDIA, false},
		{" NVIDIA ", VendorNVIDIA, false},
		{"Apple", VendorApple, false},
		{"none", VendorNone, false},
		{"amd", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, err := ParseVendor(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.Validation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, v)
		})
	}
}

func TestVendor_DisplayName(t *testing.T) {
	assert.Equal(t, "NVIDIA", VendorNVIDIA.DisplayName())
	assert.Equal(t, "Apple Silicon", VendorApple.DisplayName())
	assert.Equal(t, "No accelerator", VendorNone.DisplayName())
}

func TestCapabilityRecord_Normalize(t *testing.T) {
	tests := []struct {
		name     string
		in       CapabilityRecord
		wantUsed *uint64
		wantFree *uint64
	}{
		{
			name:     "consistent record untouched",
			in:       CapabilityRecord{Vendor: VendorNVIDIA, MemoryTotalMB: 8192, MemoryUsedMB: Ptr(uint64(2048)), MemoryFreeMB: Ptr(uint64(6144))},
			wantUsed: Ptr(uint64(2048)),
			wantFree: Ptr(uint64(6144)),
		},
		{
			name:     "free recomputed from used",
			in:       CapabilityRecord{Vendor: VendorNVIDIA, MemoryTotalMB: 8192, MemoryUsedMB: Ptr(uint64(2000)), MemoryFreeMB: Ptr(uint64(6000))},
			wantUsed: Ptr(uint64(2000)),
			wantFree: Ptr(uint64(6192)),
		},
		{
			name:     "free derived when only used is known",
			in:       CapabilityRecord{Vendor: VendorApple, MemoryTotalMB: 16384, MemoryUsedMB: Ptr(uint64(4096))},
			wantUsed: Ptr(uint64(4096)),
			wantFree: Ptr(uint64(12288)),
		},
		{
			name: "used above total drops both",
			in:   CapabilityRecord{Vendor: VendorNVIDIA, MemoryTotalMB: 1024, MemoryUsedMB: Ptr(uint64(4096)), MemoryFreeMB: Ptr(uint64(10))},
		},
		{
			name: "free above total dropped",
			in:   CapabilityRecord{Vendor: VendorNVIDIA, MemoryTotalMB: 1024, MemoryFreeMB: Ptr(uint64(2048))},
		},
		{
			name: "no memory details",
			in:   CapabilityRecord{Vendor: VendorApple, MemoryTotalMB: 8192},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := tt.in.Clone().Normalize()
			assert.Equal(t, tt.wantUsed, rec.MemoryUsedMB)
			assert.Equal(t, tt.wantFree, rec.MemoryFreeMB)
			assert.NoError(t, rec.Validate())
		})
	}
}

func TestCapabilityRecord_NormalizeNoneClearsFields(t *testing.T) {
	rec := &CapabilityRecord{Vendor: VendorNone, MemoryTotalMB: 12, Name: Ptr("ghost"), TemperatureC: Ptr(1.0)}

	rec.Normalize()

	assert.Equal(t, NoAccelerator(), rec)
}

func TestCapabilityRecord_Validate(t *testing.T) {
	assert.NoError(t, NoAccelerator().Validate())
	assert.NoError(t, Fixture(VendorNVIDIA).Validate())
	assert.NoError(t, Fixture(VendorApple).Validate())

	err := (&CapabilityRecord{Vendor: VendorNone, MemoryTotalMB: 1}).Validate()
	assert.True(t, errors.IsCode(err, errors.Validation))

	err = (&CapabilityRecord{Vendor: VendorNVIDIA, MemoryTotalMB: 10, MemoryUsedMB: Ptr(uint64(4)), MemoryFreeMB: Ptr(uint64(4))}).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "!= total")

	err = (&CapabilityRecord{Vendor: "amd"}).Validate()
	assert.Error(t, err)
}

func TestCapabilityRecord_CloneIsDeep(t *testing.T) {
	orig := Fixture(VendorNVIDIA)
	clone := orig.Clone()
	*clone.TemperatureC = 99
	*clone.Name = "changed"

	assert.Equal(t, 45.0, *orig.TemperatureC)
	assert.Equal(t, "Test NVIDIA GPU", *orig.Name)
	assert.Nil(t, (*CapabilityRecord)(nil).Clone())
}

func TestCapabilityRecord_JSONShape(t *testing.T) {
	data, err := json.Marshal(NoAccelerator())
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "none", fields["gpu_type"])
	assert.Equal(t, 0.0, fields["memory_total_mb"])
	assert.Contains(t, fields, "driver_version")
	assert.Nil(t, fields["driver_version"])
	assert.Nil(t, fields["temperature_c"])
}

func TestCapabilityRecord_Summary(t *testing.T) {
	assert.Equal(t, "No accelerator", NoAccelerator().Summary())
	assert.Equal(t, "Test NVIDIA GPU (8192 MiB)", Fixture(VendorNVIDIA).Summary())
	assert.Equal(t, "Apple Silicon (4096 MiB)", (&CapabilityRecord{Vendor: VendorApple, MemoryTotalMB: 4096}).Summary())
}

func TestFixturesAreDeterministic(t *testing.T) {
	a := Fixture(VendorApple)
	b := Fixture(VendorApple)
	assert.Equal(t, a, b)
	assert.NotSame(t, a, b)

	assert.Equal(t, uint64(16384), a.MemoryTotalMB)
	assert.Equal(t, 40.0, *a.TemperatureC)
	assert.Equal(t, 8.5, *a.PowerUsageW)
	assert.Equal(t, 12.0, *a.UtilizationPercent)
	assert.Equal(t, "Test Driver", *a.DriverVersion)
	assert.Equal(t, NoAccelerator(), Fixture(VendorNone))
}

// =============================================================================
// Cache
// =============================================================================

func TestResultCache(t *testing.T) {
	c := NewResultCache()

	_, ok := c.Get()
	assert.False(t, ok)
	assert.True(t, c.StoredAt().IsZero())

	c.Set(NoAccelerator())
	_, ok = c.Get()
	assert.False(t, ok, "no-accelerator records are never cached")

	rec := Fixture(VendorNVIDIA)
	c.Set(rec)
	rec.MemoryTotalMB = 1

	got, ok := c.Get()
	require.True(t, ok)
	assert.Equal(t, uint64(8192), got.MemoryTotalMB)
	assert.False(t, c.StoredAt().IsZero())

	c.Clear()
	_, ok = c.Get()
	assert.False(t, ok)
}
