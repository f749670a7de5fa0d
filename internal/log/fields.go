package log

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
	FieldOperation   = "operation"
	FieldRows        = "rows"
	FieldYears       = "years"
	FieldCategories  = "categories"
	FieldGranularity = "granularity"
	FieldPeriod      = "period"
	FieldCategory    = "category"
	FieldCurrency    = "currency"
	FieldGeneration  = "generation"
	FieldAmountCents = "amount_cents"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentPipeline  = "pipeline"
	ComponentSession   = "session"
	ComponentEvents    = "events"
	ComponentCache     = "cache"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
	ComponentTemplate  = "template"
)

// Operations defines standard operation names
const (
	OpUpload    = "upload"
	OpAggregate = "aggregate"
	OpSummary   = "summary"
	OpResolve   = "resolve"
	OpDetails   = "details"
)

// LogFields is a helper for building structured log field sets
type LogFields map[string]any

// NewLogFields creates a new LogFields map
func NewLogFields() LogFields {
	return make(LogFields)
}

// WithRequest adds request tracing fields
func (f LogFields) WithRequest(requestID, clientIP string) LogFields {
	f[FieldRequestID] = requestID
	f[FieldClientIP] = clientIP
	return f
}

// WithQueryOptions adds the pipeline query options
func (f LogFields) WithQueryOptions(granularity, currency string, coarse bool) LogFields {
	f[FieldGranularity] = granularity
	f[FieldCurrency] = currency
	f["use_higher_category"] = coarse
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
