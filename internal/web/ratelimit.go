package web

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// rateLimiter allows rate requests per client address in each fixed window.
type rateLimiter struct {
	mu      sync.Mutex
	clients map[string]*window
	rate    int
	period  time.Duration
	done    chan struct{}
	once    sync.Once
}

type window struct {
	start time.Time
	used  int
}

func newRateLimiter(rate int, period time.Duration) *rateLimiter {
	rl := &rateLimiter{
		clients: make(map[string]*window),
		rate:    rate,
		period:  period,
		done:    make(chan struct{}),
	}
	go rl.sweep()
	return rl
}

// sweep drops clients idle for two periods until stop is called.
func (rl *rateLimiter) sweep() {
	ticker := time.NewTicker(rl.period)
	defer ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case now := <-ticker.C:
			rl.mu.Lock()
			for k, w := range rl.clients {
				if now.Sub(w.start) > 2*rl.period {
					delete(rl.clients, k)
				}
			}
			rl.mu.Unlock()
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.once.Do(func() { close(rl.done) })
}

// allow consumes one request for client and reports whether it fit.
func (rl *rateLimiter) allow(client string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.clients[client]
	if !ok || now.Sub(w.start) >= rl.period {
		rl.clients[client] = &window{start: now, used: 1}
		return true
	}
	if w.used >= rl.rate {
		return false
	}
	w.used++
	return true
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := r.RemoteAddr
		if host, _, err := net.SplitHostPort(client); err == nil {
			client = host
		}
		if !rl.allow(client, time.Now()) {
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.period.Seconds())))
			writeJSON(w, http.StatusTooManyRequests, ErrorResponse{
				Error:   "rate limit exceeded",
				Message: "Too many requests",
				Action:  "Wait a minute and try again",
				Code:    "HTTP429",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
