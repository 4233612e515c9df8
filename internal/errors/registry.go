package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

// Error codes.
const (
	// Config (E100-E199)
	ErrConfigNotFound    = "E101"
	ErrConfigRead        = "E102"
	ErrConfigSyntax      = "E103"
	ErrConfigPort        = "E110"
	ErrConfigMode        = "E111"
	ErrConfigArchive     = "E112"
	ErrConfigLogLevel    = "E113"
	ErrConfigLogFormat   = "E114"
	ErrConfigQueue       = "E115"
	ErrConfigMetricsPath = "E116"

	// Render (E200-E299)
	ErrUnknownComponent = "E201"
	ErrRenderFault      = "E202"
	ErrRenderTimeout    = "E203"

	// Archive (E300-E399)
	ErrArchiveWrite   = "E301"
	ErrArchiveBackend = "E302"
)

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Config Errors (E100-E199)
	// ============================================

	ErrConfigNotFound: {
		Category:   CategoryConfig,
		Message:    "Config file not found",
		Detail:     "No vango-stream.json was found in the current directory or any parent directory.",
		Suggestion: "Create vango-stream.json at the project root, or pass --config.",
	},
	ErrConfigRead: {
		Category: CategoryConfig,
		Message:  "Config file could not be read",
	},
	ErrConfigSyntax: {
		Category:   CategoryConfig,
		Message:    "Invalid JSON in config file",
		Suggestion: "Check for trailing commas and unquoted keys.",
	},
	ErrConfigPort: {
		Category:   CategoryConfig,
		Message:    "Invalid server port",
		Detail:     "server.port must be between 1 and 65535.",
		Suggestion: `Use a value such as "port": 8080.`,
	},
	ErrConfigMode: {
		Category:   CategoryConfig,
		Message:    "Invalid render mode",
		Suggestion: `stream.mode must be "streaming" or "static".`,
	},
	ErrConfigArchive: {
		Category: CategoryConfig,
		Message:  "Invalid archive configuration",
		Detail:   `archive.backend must be "disk" (with archive.dir) or "s3" (with archive.bucket and archive.region).`,
	},
	ErrConfigLogLevel: {
		Category:   CategoryConfig,
		Message:    "Invalid log level",
		Suggestion: `log.level must be one of "debug", "info", "warn", "error".`,
	},
	ErrConfigLogFormat: {
		Category:   CategoryConfig,
		Message:    "Invalid log format",
		Suggestion: `log.format must be "text" or "json".`,
	},
	ErrConfigQueue: {
		Category: CategoryConfig,
		Message:  "Invalid dispatch queue size",
		Detail:   "stream.dispatchQueue must not be negative.",
	},
	ErrConfigMetricsPath: {
		Category:   CategoryConfig,
		Message:    "Invalid metrics path",
		Suggestion: `metrics.path must start with "/".`,
	},

	// ============================================
	// Render Errors (E200-E299)
	// ============================================

	ErrUnknownComponent: {
		Category:   CategoryRender,
		Message:    "Unknown component",
		Suggestion: "Run `vango-stream components` to list the registered names.",
	},
	ErrRenderFault: {
		Category: CategoryRender,
		Message:  "Component failed to render",
		Detail:   "A component panicked or returned an error while rendering or loading.",
	},
	ErrRenderTimeout: {
		Category:   CategoryRender,
		Message:    "Render did not finish in time",
		Suggestion: "Raise --timeout or check the component's data source.",
	},

	// ============================================
	// Archive Errors (E300-E399)
	// ============================================

	ErrArchiveWrite: {
		Category: CategoryArchive,
		Message:  "Could not write archived page",
	},
	ErrArchiveBackend: {
		Category: CategoryArchive,
		Message:  "Archive backend unavailable",
		Detail:   "The archive store could not be created from the configuration.",
	},
}

// GetAllCodes returns all registered error codes in order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
