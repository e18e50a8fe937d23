package middleware

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"time"
)

// accessLine is the JSON shape of one request log line.
type accessLine struct {
	Time      string `json:"time"`
	RequestID string `json:"request_id,omitempty"`
	TenantID  string `json:"tenant_id,omitempty"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	Status    int    `json:"status"`
	Bytes     int    `json:"bytes"`
	ElapsedMS int64  `json:"elapsed_ms"`
	ClientIP  string `json:"ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// AccessLog writes one JSON line per request to the standard logger.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next.ServeHTTP(rec, r)

		line, err := json.Marshal(accessLine{
			Time:      start.UTC().Format(time.RFC3339Nano),
			RequestID: GetRequestID(r.Context()),
			TenantID:  callerTenant(r),
			Method:    r.Method,
			Path:      r.URL.Path,
			Status:    rec.statusCode(),
			Bytes:     rec.bytes,
			ElapsedMS: time.Since(start).Milliseconds(),
			ClientIP:  clientIP(r),
			UserAgent: r.UserAgent(),
		})
		if err != nil {
			log.Printf("access log: marshal: %v", err)
			return
		}
		log.Println(string(line))
	})
}

// clientIP prefers proxy-supplied addresses over the raw socket peer.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
