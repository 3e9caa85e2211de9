package rfc9111

import (
	"net/http"
	"testing"
)

func TestAddValidationHeaders(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "http://example.com/artworks", nil)
	AddValidationHeaders(req, "")
	if req.Header.Get("If-None-Match") != "" {
		t.Fatal("Empty etag made request conditional")
	}

	AddValidationHeaders(req, `W/"v1"`)
	if v := req.Header.Get("If-None-Match"); v != `W/"v1"` {
		t.Fatalf("If-None-Match is %s", v)
	}
}

func TestHandleValidationResponse(t *testing.T) {
	tests := map[int]ValidationResult{
		http.StatusOK:                  ValidationFull,
		http.StatusNoContent:           ValidationFull,
		http.StatusNotModified:         ValidationNotModified,
		http.StatusFound:               ValidationFailed,
		http.StatusNotFound:            ValidationFailed,
		http.StatusInternalServerError: ValidationFailed,
	}
	for status, want := range tests {
		if got := HandleValidationResponse(&http.Response{StatusCode: status}); got != want {
			t.Fatalf("%d classified as %s", status, got)
		}
	}
	if HandleValidationResponse(nil) != ValidationFailed {
		t.Fatal("Missing response not failed")
	}
}
