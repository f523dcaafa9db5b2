package seb

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func header(kv ...string) http.Header {
	h := http.Header{}
	for i := 0; i < len(kv); i += 2 {
		h.Set(kv[i], kv[i+1])
	}
	return h
}

func TestCheckToken(t *testing.T) {
	tests := []struct {
		name    string
		header  http.Header
		wantErr error
	}{
		{name: "no header", header: header(), wantErr: ErrHeaderMissing},
		{name: "seb token", header: header("X-SEB-Token", "abc")},
		{name: "safe exam browser", header: header("x-safe-exam-browser", "1")},
		{name: "empty value", header: header("X-SEB-Token", ""), wantErr: ErrHeaderMissing},
		{name: "blank value", header: header("X-SEB-Token", "  "), wantErr: ErrHeaderMissing},
		{name: "empty then token", header: header("X-SEB-Token", "", "X-Safe-Exam-Browser", "1")},
		{name: "unrelated", header: header("X-Token", "abc"), wantErr: ErrHeaderMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, CheckToken(tt.header))
		})
	}
}

func TestCheckRequestHash(t *testing.T) {
	hash := "0123456789abcdef"

	tests := []struct {
		name    string
		header  http.Header
		wantErr error
	}{
		{name: "nothing", header: header(), wantErr: ErrRequestHashMissing},
		{name: "request hash", header: header("X-SafeExamBrowser-RequestHash", hash)},
		{name: "dashed request hash", header: header("X-Safe-Exam-Browser-RequestHash", hash)},
		{name: "request-hash", header: header("X-SafeExamBrowser-Request-Hash", hash)},
		{name: "empty then dashed hash", header: header("X-SafeExamBrowser-RequestHash", "", "X-Safe-Exam-Browser-RequestHash", hash)},
		{name: "short hash", header: header("X-SafeExamBrowser-RequestHash", "0123"), wantErr: ErrRequestHashMissing},
		{name: "blank padded hash", header: header("X-SafeExamBrowser-RequestHash", "   0123456789   "), wantErr: ErrRequestHashMissing},
		{name: "seb user agent", header: header("User-Agent", "Mozilla/5.0 SafeExamBrowser/3.4")},
		{name: "lower case user agent", header: header("User-Agent", "safeexambrowser")},
		{name: "browser", header: header("User-Agent", "Mozilla/5.0 Firefox/120.0"), wantErr: ErrRequestHashMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, CheckRequestHash(tt.header))
		})
	}
}
