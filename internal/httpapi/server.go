package httpapi

import (
	"fmt"
	"net/http"
	"time"
)

// NewServer wraps handler in an http.Server listening on port. timeout
// bounds header reads and idle keep-alives.
func NewServer(port int, handler http.Handler, timeout time.Duration) *http.Server {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: timeout,
		ReadTimeout:       timeout,
		WriteTimeout:      timeout + 5*time.Second,
		IdleTimeout:       2 * timeout,
	}
}
