package log

import "errors"

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldQuery       = "query"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldUserAgent   = "user_agent"
	FieldSuccess     = "success"
	FieldError       = "error"
	FieldErrorCode   = "error_code"
	FieldOperation   = "operation"
	FieldPublishID   = "publish_id"
	FieldKind        = "kind"
	FieldPeriod      = "period"
	FieldBlobKey     = "blob_key"
	FieldRowsTotal   = "rows_total"
	FieldRowsKept    = "rows_kept"
	FieldIntegrityOK = "integrity_ok"
	FieldEncoding    = "encoding"
	FieldDelimiter   = "delimiter"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentCampaign  = "campaign"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentExport    = "export"
	ComponentCache     = "cache"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
	ComponentBackend   = "backend"
	ComponentTelemetry = "telemetry"
)

// Operations defines standard operation names
const (
	OpRead     = "read"
	OpParse    = "parse"
	OpMetrics  = "metrics"
	OpPublish  = "publish"
	OpMonthly  = "monthly"
	OpExport   = "export"
	OpValidate = "validate"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds the error text, and its code when it carries one.
func (f LogFields) WithError(err error) LogFields {
	if err == nil {
		return f
	}
	f[FieldError] = err.Error()
	var coded interface{ ErrorCode() string }
	if errors.As(err, &coded) {
		f[FieldErrorCode] = coded.ErrorCode()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithPublish adds the fields identifying one published document.
func (f LogFields) WithPublish(publishID, kind, period, key string) LogFields {
	f[FieldPublishID] = publishID
	f[FieldKind] = kind
	if period != "" {
		f[FieldPeriod] = period
	}
	f[FieldBlobKey] = key
	return f
}

// WithRows adds row accounting of a parsed upload.
func (f LogFields) WithRows(total, kept int) LogFields {
	f[FieldRowsTotal] = total
	f[FieldRowsKept] = kept
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to a slice for slog. The component field is
// left out since the Logger stamps its own.
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		if k == FieldComponent {
			continue
		}
		slice = append(slice, k, v)
	}
	return slice
}
