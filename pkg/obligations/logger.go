package obligations

import "time"

// Logger defines the logging surface the client relies on.
type Logger interface {
	DebugObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

type noopLogger struct{}

func (noopLogger) DebugObj(string, string, interface{}) {}
func (noopLogger) ErrorObj(string, string, interface{}) {}

// Call describes one completed remote call.
type Call struct {
	Op         string
	Method     string
	Path       string
	StatusCode int
	Elapsed    time.Duration
	Err        error
}

// Observer receives every completed call, failed or not, before the result
// reaches the caller.
type Observer interface {
	ObserveCall(call Call)
}

type noopObserver struct{}

func (noopObserver) ObserveCall(Call) {}
