package errors

import (
	"sort"
	"strings"
)

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

const docBase = "https://waypoint.vango.dev/docs/errors/"

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Config Errors (E100-E119)
	// ============================================

	"E100": {
		Category: CategoryConfig,
		Message:  "Config file not found",
		Detail:   "No waypoint.json was found in the current directory or any parent directory.",
		DocURL:   docBase + "E100",
	},
	"E101": {
		Category: CategoryConfig,
		Message:  "Invalid config file",
		Detail:   "waypoint.json could not be parsed as JSON.",
		DocURL:   docBase + "E101",
	},
	"E102": {
		Category: CategoryConfig,
		Message:  "Invalid config value",
		Detail:   "A value in waypoint.json is out of range or has the wrong form.",
		DocURL:   docBase + "E102",
	},

	// ============================================
	// Manifest Errors (E120-E139)
	// ============================================

	"E120": {
		Category: CategoryManifest,
		Message:  "Manifest parse failed",
		Detail:   "The route manifest is not valid YAML or JSON, or uses a field that does not exist.",
		DocURL:   docBase + "E120",
	},
	"E121": {
		Category: CategoryManifest,
		Message:  "Invalid guard expression",
		Detail:   "A route guard expression failed to compile.",
		DocURL:   docBase + "E121",
	},
	"E122": {
		Category: CategoryManifest,
		Message:  "Route tree is invalid",
		Detail:   "Two routes share a full path, or a route path cannot be canonicalized. The first registration wins at runtime, so later duplicates are unreachable.",
		DocURL:   docBase + "E122",
	},
	"E123": {
		Category: CategoryManifest,
		Message:  "Manifest not found",
		Detail:   "The manifest location does not exist or could not be read.",
		DocURL:   docBase + "E123",
	},
	"E124": {
		Category: CategoryManifest,
		Message:  "Invalid S3 location",
		Detail:   "S3 manifest locations have the form s3://bucket/key.",
		DocURL:   docBase + "E124",
	},

	// ============================================
	// Navigation Errors (E140-E159)
	// ============================================

	"E140": {
		Category: CategoryNavigation,
		Message:  "Navigation aborted",
		Detail:   "A guard aborted the navigation. The current route is unchanged.",
		DocURL:   docBase + "E140",
	},
	"E141": {
		Category: CategoryNavigation,
		Message:  "Redirect loop",
		Detail:   "Guards redirected more times than the router allows. Check guards that redirect to a route whose own guard redirects back.",
		DocURL:   docBase + "E141",
	},
	"E142": {
		Category: CategoryNavigation,
		Message:  "Invalid navigation target",
		Detail:   "The target path contains a backslash, a null byte, a malformed percent escape, or climbs above the root.",
		DocURL:   docBase + "E142",
	},
	"E143": {
		Category: CategoryNavigation,
		Message:  "Location store error",
		Detail:   "The location store rejected a push or replace.",
		DocURL:   docBase + "E143",
	},

	// ============================================
	// Protocol Errors (E160-E169)
	// ============================================

	"E160": {
		Category: CategoryProtocol,
		Message:  "Browser handshake failed",
		Detail:   "The browser did not send a hello frame with its current location.",
		DocURL:   docBase + "E160",
	},

	// ============================================
	// CLI Errors (E170-E189)
	// ============================================

	"E170": {
		Category: CategoryCLI,
		Message:  "Server failed to start",
		Detail:   "The serve command could not listen on the configured address.",
		DocURL:   docBase + "E170",
	},
	"E171": {
		Category: CategoryCLI,
		Message:  "Invalid arguments",
		Detail:   "The command was given the wrong number or form of arguments.",
		DocURL:   docBase + "E171",
	},
}

// Codes returns every registered code in ascending order.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Lookup returns the template for a code. Codes are matched without regard
// to case, so "e121" finds E121.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[strings.ToUpper(code)]
	return t, ok
}
