// @title vdns API
// @description vdns API

// @contact.name vdns@github
// @contact.url https://github.com/quietdns/vdns

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @BasePath /api/
package api

const (
	PathQueryPath = "/api/query"

	PathListsRefresh = "/api/lists/refresh"

	PathBlockingStatusPath  = "/api/blocking/status"
	PathBlockingEnablePath  = "/api/blocking/enable"
	PathBlockingDisablePath = "/api/blocking/disable"

	PathClientDNSResolverStatusPath  = "/api/clientDnsResolver/status"
	PathClientDNSResolverEnablePath  = "/api/clientDnsResolver/enable"
	PathClientDNSResolverDisablePath = "/api/clientDnsResolver/disable"
)

type BlockingStatus struct {
	// True if blocking is enabled
	Enabled bool `json:"enabled"`
	// If blocking is temporary disabled: amount of seconds until blocking will be enabled
	AutoEnableInSec uint `json:"autoEnableInSec"`
}

// QueryRequest represents a request to resolve a single DNS question via the API.
type QueryRequest struct {
	// Query is the domain name to resolve
	Query string `json:"query"`
	// Type is the query type (A, AAAA, ...)
	Type string `json:"type"`
}

// QueryResult represents the outcome of a QueryRequest.
type QueryResult struct {
	// Reason for the resolution result
	Reason string `json:"reason"`
	// ResponseType is the type of the answer, e.g. CACHED, RESOLVED, BLOCKED
	ResponseType string `json:"responseType"`
	// Response is a human readable representation of the answer
	Response string `json:"response"`
	// ReturnCode is the DNS return code, e.g. NOERROR, NXDOMAIN
	ReturnCode string `json:"returnCode"`
}
