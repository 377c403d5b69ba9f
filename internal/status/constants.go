// Package status mirrors the node status into a Modbus holding register
// block.
package status

// Status block layout. The layout is fixed and not configurable.
const (
	SlotHealthCode  = 0
	SlotStateCode   = 1
	SlotOutputs     = 2
	SlotTransitions = 3

	BlockSize = 4
)

// Health codes
const (
	HealthUnknown  uint16 = 0
	HealthOK       uint16 = 1
	HealthError    uint16 = 2
	HealthStale    uint16 = 3
	HealthDisabled uint16 = 4
)
