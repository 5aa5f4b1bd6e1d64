package log

import "sort"

// Attribute keys
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldReferer    = "referer"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldUser       = "user"
	FieldKind       = "kind"
	FieldRecordIDs  = "record_ids"
	FieldCount      = "count"
	FieldSource     = "source"
	FieldFilename   = "filename"
	FieldTable      = "table"
)

// Component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentRecords  = "records"
	ComponentImport   = "import"
	ComponentStorage  = "storage"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
	ComponentSheets   = "sheets"
	ComponentAuth     = "auth"
	ComponentSecurity = "security"
	ComponentTrace    = "trace"
	ComponentBackend  = "backend"
	ComponentTemplate = "template"
	ComponentCLI      = "cli"
)

// Operation names
const (
	OpCreate   = "create"
	OpList     = "list"
	OpImport   = "import"
	OpExecSQL  = "exec_sql"
	OpAppend   = "append"
	OpSync     = "sync"
	OpParse    = "parse"
	OpRender   = "render"
	OpLogin    = "login"
)

// LogFields collects attributes for one log record.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithClientIP(ip string) LogFields {
	if ip != "" {
		f[FieldClientIP] = ip
	}
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithRecords describes rows written by a form submit or an import.
func (f LogFields) WithRecords(kind string, ids []int64, source string) LogFields {
	f[FieldKind] = kind
	f[FieldRecordIDs] = ids
	f[FieldCount] = len(ids)
	f[FieldSource] = source
	return f
}

// WithHTTPRequest skips empty query, user agent and referer values.
func (f LogFields) WithHTTPRequest(method, path, query, userAgent, referer string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	for k, v := range map[string]string{FieldQuery: query, FieldUserAgent: userAgent, FieldReferer: referer} {
		if v != "" {
			f[k] = v
		}
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
	return f
}

// ToSlice flattens the fields into slog key/value pairs, sorted by key
// so records read the same every time.
func (f LogFields) ToSlice() []any {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]any, 0, len(f)*2)
	for _, k := range keys {
		out = append(out, k, f[k])
	}
	return out
}
