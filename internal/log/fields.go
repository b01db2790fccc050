package log

// Common field names for structured logging.
const (
	FieldComponent = "component"
	FieldRequestID = "request_id"
	FieldClientIP  = "client_ip"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldDuration  = "duration_ms"
	FieldUserAgent = "user_agent"
	FieldError     = "error"
	FieldOperation = "operation"
	FieldBillID    = "bill_id"
	FieldBillName  = "bill_name"
	FieldEmail     = "email"
	FieldFileName  = "file_name"
	FieldExportRef = "export_ref"
)

// Components defines standard component names.
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentRouter  = "router"
	ComponentBills   = "bills"
	ComponentSession = "session"
	ComponentStore   = "store"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentOAuth   = "oauth"
	ComponentExport  = "export"
	ComponentCache   = "cache"
)

// Operations defines standard operation names.
const (
	OpCreate   = "create"
	OpUpdate   = "update"
	OpList     = "list"
	OpUpload   = "upload"
	OpSubmit   = "submit"
	OpNavigate = "navigate"
	OpExport   = "export"
	OpRender   = "render"
)
