package core

// Logger is any service that can log messages with additional context args.
// An arg may be an error, a map of extra data or a domain object known to
// the implementation (eg. the logged-in user).
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}
