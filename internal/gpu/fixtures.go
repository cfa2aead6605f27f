package gpu

// Fixture returns the fixed record served in test mode for v. The values
// never change between calls and involve no I/O.
func Fixture(v Vendor) *CapabilityRecord {
	switch v {
	case VendorNVIDIA:
		return &CapabilityRecord{
			Vendor:             VendorNVIDIA,
			Name:               Ptr("Test NVIDIA GPU"),
			DriverVersion:      Ptr("Test Driver"),
			CUDAVersion:        Ptr("12.4"),
			ComputeCapability:  Ptr("8.6"),
			TemperatureC:       Ptr(45.0),
			PowerUsageW:        Ptr(15.0),
			UtilizationPercent: Ptr(30.0),
			MemoryTotalMB:      8192,
			MemoryUsedMB:       Ptr(uint64(2048)),
			MemoryFreeMB:       Ptr(uint64(6144)),
		}
	case VendorApple:
		return &CapabilityRecord{
			Vendor:             VendorApple,
			Name:               Ptr("Apple M1"),
			DriverVersion:      Ptr("Test Driver"),
			TemperatureC:       Ptr(40.0),
			PowerUsageW:        Ptr(8.5),
			UtilizationPercent: Ptr(12.0),
			MemoryTotalMB:      16384,
			MemoryUsedMB:       Ptr(uint64(4096)),
			MemoryFreeMB:       Ptr(uint64(12288)),
		}
	default:
		return NoAccelerator()
	}
}
