package contextkey

// key is a private type to avoid context key collisions across packages.
type key string

const (
	TraceID   key = "trace_id"
	RequestID key = "request_id"
	UserID    key = "user_id"
	Role      key = "role"
)

// Gin context keys mirror the context keys for handlers that read c.Get.
const (
	GinTraceID   = "trace_id"
	GinRequestID = "request_id"
	GinUserID    = "user_id"
	GinRole      = "role"
	GinToken     = "access_token"
)
