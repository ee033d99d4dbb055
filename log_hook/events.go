package loghook

// Lifecycle events. Each constant corresponds to one plugin hook and can
// be passed to WithEvents to narrow what gets logged.
const (
	EventInvocationStart = "invocation.start"
	EventInvocationEnd   = "invocation.end"
	EventDetectionStart  = "detection.start"
	EventDetectionEnd    = "detection.end"
	EventHandlerStart    = "handler.start"
	EventHandlerEnd      = "handler.end"
	EventJobStart        = "job.start"
	EventJobEnd          = "job.end"
	EventError           = "error"
)
