package core

// Logger is implemented by the logging services.
// args may hold errors, a map[string]interface{} of extra fields and the coach.Coach the log is about.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Person identifies the authenticated coach attached to a log entry.
type Person interface {
	PersonID() string
	PersonUsername() string
	PersonEmail() string
}
