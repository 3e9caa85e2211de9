package rfc9111

import "net/http"

// §  4.3.3.  Handling a Validation Response
// §
// §     Cache handling of a response to a conditional request depends upon
// §     its status code:
// §
// §     *  A 304 (Not Modified) response status code indicates that the
// §        stored response can be updated and reused; see Section 4.3.4.
// §
// §     *  A full response (i.e., one containing content) indicates that none
// §        of the stored responses nominated in the conditional request are
// §        suitable.  Instead, the cache MUST use the full response to
// §        satisfy the request.  The cache MAY store such a full response,
// §        subject to its constraints (see Section 3).
// §
// §     *  However, if a cache receives a 5xx (Server Error) response while
// §        attempting to validate a response, it can either forward this
// §        response to the requesting client or act as if the server failed
// §        to respond.  In the latter case, the cache can send a previously
// §        stored response, subject to its constraints on doing so (see
// §        Section 4.2.4), or retry the validation request.

// ValidationResult tells a cache what to do with the response to a
// (possibly) conditional request.
type ValidationResult int

const (
	// The response carries content that replaces any stored response.
	ValidationFull ValidationResult = iota
	// The stored response is still current and can be reused.
	ValidationNotModified
	// The server failed; the cache may act as if it did not respond.
	ValidationFailed
)

func (v ValidationResult) String() string {
	switch v {
	case ValidationFull:
		return "full"
	case ValidationNotModified:
		return "not-modified"
	default:
		return "failed"
	}
}

// HandleValidationResponse classifies the response to a validation request.
// Only 2xx responses count as full responses; anything else that is not a
// 304 is treated as the server having failed to respond.
func HandleValidationResponse(res *http.Response) ValidationResult {
	switch {
	case res == nil:
		return ValidationFailed
	case res.StatusCode == http.StatusNotModified:
		return ValidationNotModified
	case res.StatusCode >= 200 && res.StatusCode < 300:
		return ValidationFull
	default:
		return ValidationFailed
	}
}
