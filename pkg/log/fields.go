package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Service
	FieldService   = "service"
	FieldComponent = "component"

	// Live session
	FieldSessionID = "session_id"
	FieldHost      = "host"
	FieldUsername  = "username"
	FieldClientID  = "client_id"
	FieldChannel   = "channel"
	FieldEventType = "event_type"
)
