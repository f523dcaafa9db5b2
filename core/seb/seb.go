// Package seb checks that requests come from the Safe Exam Browser.
package seb

import (
	"net/http"
	"strings"

	"github.com/trezcool/darasa/core"
)

const minRequestHashLength = 16

var (
	// errors
	ErrHeaderMissing      = core.Forbidden("SEB header missing")
	ErrRequestHashMissing = core.Forbidden("SEB request hash missing")

	tokenHeaders       = []string{"X-SEB-Token", "X-Safe-Exam-Browser"}
	requestHashHeaders = []string{
		"X-SafeExamBrowser-RequestHash",
		"X-Safe-Exam-Browser-RequestHash",
		"X-SafeExamBrowser-Request-Hash",
	}
)

// CheckToken passes when a SEB token header holds a non-blank value.
func CheckToken(h http.Header) error {
	if _, ok := firstHeader(h, tokenHeaders); !ok {
		return ErrHeaderMissing
	}
	return nil
}

// CheckRequestHash passes when the first request hash header found holds a hash of at least 16 characters,
// or when the User-Agent is the one of the Safe Exam Browser.
func CheckRequestHash(h http.Header) error {
	if strings.Contains(strings.ToLower(h.Get("User-Agent")), "safeexambrowser") {
		return nil
	}
	hash, ok := firstHeader(h, requestHashHeaders)
	if !ok || len(strings.TrimSpace(hash)) < minRequestHashLength {
		return ErrRequestHashMissing
	}
	return nil
}

// firstHeader returns the first non-blank value of the `names` headers.
func firstHeader(h http.Header, names []string) (string, bool) {
	for _, name := range names {
		for _, v := range h.Values(name) {
			if strings.TrimSpace(v) != "" {
				return v, true
			}
		}
	}
	return "", false
}
