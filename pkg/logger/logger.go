package logger

// Logger defines the interface for logging backends. Components receive a
// Logger explicitly at construction time; there is no process-wide singleton.
type Logger interface {
	Log(message string, keyvals ...any)
	Debug(message string, keyvals ...any)
	Info(message string, keyvals ...any)
	Warn(message string, keyvals ...any)
	Error(message string, keyvals ...any)
	Fatal(message string, keyvals ...any)
}

// Multi dispatches every log call to multiple backends.
type Multi struct {
	instances []Logger
}

// NewMulti creates a logger that forwards each call to all given backends.
func NewMulti(instances ...Logger) *Multi {
	return &Multi{instances: instances}
}

// Log writes a message at the default log level to all configured backends.
func (m *Multi) Log(message string, keyvals ...any) {
	for _, instance := range m.instances {
		instance.Log(message, keyvals...)
	}
}

// Debug writes a message at DEBUG level to all configured backends.
func (m *Multi) Debug(message string, keyvals ...any) {
	for _, instance := range m.instances {
		instance.Debug(message, keyvals...)
	}
}

// Info writes a message at INFO level to all configured backends.
func (m *Multi) Info(message string, keyvals ...any) {
	for _, instance := range m.instances {
		instance.Info(message, keyvals...)
	}
}

// Warn writes a message at WARN level to all configured backends.
func (m *Multi) Warn(message string, keyvals ...any) {
	for _, instance := range m.instances {
		instance.Warn(message, keyvals...)
	}
}

// Error writes a message at ERROR level to all configured backends.
func (m *Multi) Error(message string, keyvals ...any) {
	for _, instance := range m.instances {
		instance.Error(message, keyvals...)
	}
}

// Fatal writes a message at FATAL level and terminates the program.
func (m *Multi) Fatal(message string, keyvals ...any) {
	for _, instance := range m.instances {
		instance.Fatal(message, keyvals...)
	}
}

// Nop is a Logger that discards everything. Used as the default in tests
// and wherever a component is constructed without an explicit backend.
type Nop struct{}

func (Nop) Log(string, ...any)   {}
func (Nop) Debug(string, ...any) {}
func (Nop) Info(string, ...any)  {}
func (Nop) Warn(string, ...any)  {}
func (Nop) Error(string, ...any) {}
func (Nop) Fatal(string, ...any) {}
