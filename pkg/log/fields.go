package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor (matches pkg/middleware context keys)
	FieldUserID = "user_id"

	// Chat domain
	FieldSessionID    = "session_id"
	FieldBookingID    = "booking_id"
	FieldMessageID    = "message_id"
	FieldConnectionID = "connection_id"

	// Service
	FieldService = "service"

	// Log type (for audit log)
	FieldLogType = "log_type"
	LogTypeAudit = "audit"
)
