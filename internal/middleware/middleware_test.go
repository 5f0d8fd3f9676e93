package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/markd/internal/logging"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

func TestChainAppliesInAdditionOrder(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	chain := NewChain(tag("outer"))
	chain.Use(tag("inner"))
	require.Equal(t, 2, chain.Len())

	handler := chain.Apply(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestChainEmptyPassesThrough(t *testing.T) {
	recorder := httptest.NewRecorder()
	NewChain().Apply(okHandler()).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestSecurityHeaders(t *testing.T) {
	recorder := httptest.NewRecorder()
	SecurityHeaders()(okHandler()).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", recorder.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", recorder.Header().Get("X-Frame-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", recorder.Header().Get("Referrer-Policy"))
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestCORS(t *testing.T) {
	testCases := []struct {
		name           string
		origin         string
		allowed        []string
		method         string
		expectedStatus int
		expectedOrigin string
	}{
		{
			name:           "localhost origin reflected",
			origin:         "http://localhost:8000",
			method:         http.MethodGet,
			expectedStatus: http.StatusOK,
			expectedOrigin: "http://localhost:8000",
		},
		{
			name:           "allowed host reflected",
			origin:         "https://docs.example.com",
			allowed:        []string{"docs.example.com"},
			method:         http.MethodGet,
			expectedStatus: http.StatusOK,
			expectedOrigin: "https://docs.example.com",
		},
		{
			name:           "unknown origin gets no header",
			origin:         "https://evil.example.com",
			method:         http.MethodGet,
			expectedStatus: http.StatusOK,
			expectedOrigin: "",
		},
		{
			name:           "no origin passes through",
			origin:         "",
			method:         http.MethodGet,
			expectedStatus: http.StatusOK,
			expectedOrigin: "",
		},
		{
			name:           "preflight answered without reaching handler",
			origin:         "http://127.0.0.1:8000",
			method:         http.MethodOptions,
			expectedStatus: http.StatusOK,
			expectedOrigin: "http://127.0.0.1:8000",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			handlerHit := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerHit = true
				w.WriteHeader(http.StatusOK)
			})

			request := httptest.NewRequest(tc.method, "/api/files", nil)
			if tc.origin != "" {
				request.Header.Set("Origin", tc.origin)
			}
			recorder := httptest.NewRecorder()

			CORS(tc.allowed)(next).ServeHTTP(recorder, request)

			assert.Equal(t, tc.expectedStatus, recorder.Code)
			assert.Equal(t, tc.expectedOrigin, recorder.Header().Get("Access-Control-Allow-Origin"))
			if tc.method == http.MethodOptions {
				assert.False(t, handlerHit)
			} else {
				assert.True(t, handlerHit)
			}
		})
	}
}

func TestRequestLogging(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.LevelDebug,
		Format: "text",
		Output: &buf,
	})

	handler := RequestLogging(log)(okHandler())
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/view/readme.md", nil))

	logged := buf.String()
	assert.Contains(t, logged, "request handled")
	assert.Contains(t, logged, "GET")
	assert.Contains(t, logged, "/view/readme.md")
}
