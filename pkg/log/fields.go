package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor (matches pkg/middleware/auth.go keys)
	FieldUserID = "user_id"

	// Service
	FieldService = "service"

	// Profile image state machine
	FieldImageSize = "image_size"
	FieldFrom      = "from"
	FieldTo        = "to"
	FieldAssetID   = "asset_id"
	FieldCycle     = "cycle"
	FieldTask      = "task"

	// Calls
	FieldConversationID = "conversation_id"

	// Log type (for audit log)
	FieldLogType = "log_type"
	LogTypeAudit = "audit"
)
