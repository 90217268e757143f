package test

import (
	"Wanna/pkg/log"
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// Format of Request helper ExecuteAPITest() handles
type RequestAPITest struct {
	Method       string            // Method of API request - [GET, POST, PUT, DELETE . . .]
	Path         string            // API Path
	Body         *bytes.Reader     // Request Body
	WantResponse []int             // Expected Response according to request
	Headers      map[string]string // Request headers
}

// Helper to execute API tests in Wanna, returns the recorded response for further assertions.
func ExecuteAPITest(logger log.Logger, t *testing.T, router *gin.Engine, request RequestAPITest) *httptest.ResponseRecorder {
	if request.Body == nil {
		request.Body = bytes.NewReader(nil)
	}
	// Setup the test request
	req, reqerr := http.NewRequest(request.Method, request.Path, request.Body)
	if reqerr != nil {
		// Error in NewRequest
		logger.Error().Err(reqerr).Msg("Error occured during calling NewRequest in ExecuteAPITest()")
		t.FailNow()
	}
	for key, val := range request.Headers {
		req.Header.Set(key, val)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	// Assert the response
	assert.Contains(t, request.WantResponse, w.Code)
	return w
}
