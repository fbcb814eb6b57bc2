package fmi

// LogFunc receives log messages emitted by the FMU binary.
type LogFunc func(status Status, category, message string)

// InstantiateOptions controls slave instantiation.
type InstantiateOptions struct {
	InstanceName string
	LoggingOn    bool
	Visible      bool
	Logger       LogFunc
}

// Slave is a co-simulation instance of a loaded FMU.
type Slave interface {
	Instantiate(opts InstantiateOptions) error
	// EnterInitializationMode sets up the experiment on [start, stop]; stop <= start
	// means no stop time is defined.
	EnterInitializationMode(start, stop float64) error
	ExitInitializationMode() error
	DoStep(currentTime, stepSize float64) error
	GetFloat64(vrs []ValueReference) ([]float64, error)
	SetFloat64(vrs []ValueReference, values []float64) error
	GetString(vrs []ValueReference) ([]string, error)
	SetString(vrs []ValueReference, values []string) error
	Terminate() error
	FreeInstance()
}
