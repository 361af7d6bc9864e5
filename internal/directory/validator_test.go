package directory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeValidator_Normalize(t *testing.T) {
	v := NewCodeValidator("http://unused", nil)
	ctx := context.Background()

	tests := []struct {
		in   string
		want string
	}{
		{"C50.1", "C50.1"},
		{"c50.1", "C50.1"},
		{" C50.1 ", "C50.1"},
		{"C501", "C50.1"},
		{"C50-", "C50"},
		{"C50", "C50"},
		{"urn:whatever", "urn:whatever"},
		{"5A00", "5A00"}, // ICD-11 style, passes through
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, v.Normalize(ctx, tt.in), "input %q", tt.in)
	}
}

func TestCodeValidator_IsValidCode(t *testing.T) {
	known := map[string]bool{"urn:miriam:icd:C50.1": true}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		code := q[len("id=="):]
		w.Header().Set("Content-Type", "application/json")
		if known[code] {
			_, _ = w.Write([]byte(`{"items":[{"id":"` + code + `"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"items":[]}`))
	}))
	defer srv.Close()

	v := NewCodeValidator(srv.URL, nil)
	ctx := context.Background()

	assert.True(t, v.IsValidCode(ctx, "urn:miriam:icd:C50.1"))
	assert.False(t, v.IsValidCode(ctx, "urn:miriam:icd:ZZZ"))
}

func TestCodeValidator_FailsSoftWhenUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // deliberately dead endpoint

	v := NewCodeValidator(srv.URL, nil)
	assert.False(t, v.IsValidCode(context.Background(), "urn:miriam:icd:C50.1"))
}
