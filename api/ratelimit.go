package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/httprate"
)

// fixedWindowCounter counts requests per window and ignores the previous
// window, so a client's quota resets in full when a new window starts.
type fixedWindowCounter struct {
	httprate.LimitCounter
}

func newFixedWindowCounter(window time.Duration) fixedWindowCounter {
	return fixedWindowCounter{LimitCounter: httprate.NewLocalLimitCounter(window)}
}

func (c fixedWindowCounter) Get(key string, currentWindow, previousWindow time.Time) (int, int, error) {
	curr, _, err := c.LimitCounter.Get(key, currentWindow, previousWindow)
	return curr, 0, err
}

// clientKey keys the rate limit on the socket address, or on header when a
// trusted proxy sets it. A proxy appends the address it saw, so only the last
// entry of a list is used.
func clientKey(header string) httprate.KeyFunc {
	if header == "" {
		return httprate.KeyByIP
	}
	return func(r *http.Request) (string, error) {
		v := r.Header.Get(header)
		if i := strings.LastIndex(v, ","); i >= 0 {
			v = v[i+1:]
		}
		if v = strings.TrimSpace(v); v != "" {
			return v, nil
		}
		return httprate.KeyByIP(r)
	}
}
