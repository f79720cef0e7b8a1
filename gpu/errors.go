package gpu

import "errors"

// Error sentinels for GPU acquisition and operation. Callers classify
// failures with errors.Is and choose fallback content accordingly.
var (
	// ErrCapabilityAbsent indicates the runtime offers no WebGPU entry
	// point at all. The condition is permanent for the process.
	ErrCapabilityAbsent = errors.New("gpu: capability absent")

	// ErrAdapterUnavailable indicates the capability exists but no
	// adapter could be obtained at any power preference tier.
	ErrAdapterUnavailable = errors.New("gpu: no suitable adapter")

	// ErrSurfaceConfig indicates the presentation surface could not be
	// created or configured for the device.
	ErrSurfaceConfig = errors.New("gpu: surface configuration failed")

	// ErrDeviceLost indicates the device was lost after acquisition.
	// Resources created from the device are invalid.
	ErrDeviceLost = errors.New("gpu: device lost")

	// ErrDeviceClosed indicates an operation on a closed device.
	ErrDeviceClosed = errors.New("gpu: device closed")

	// ErrInvalidResource indicates an operation referenced an ID that
	// does not name a live resource.
	ErrInvalidResource = errors.New("gpu: invalid resource")
)
