package hardware

// Default blinker relay wiring.
const (
	DefaultChip      = "gpiochip0"
	DefaultLeftLine  = 32
	DefaultRightLine = 33

	Consumer = "cluster-service"
)
