package middleware

import "net/http"

// statusRecorder captures the status code and body size a handler writes
// so logging, metrics, and tracing middleware can report them.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// statusCode returns the recorded status, defaulting to 200 when the
// handler never called WriteHeader.
func (r *statusRecorder) statusCode() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

// callerTenant resolves the tenant behind a request, preferring the
// authenticated identity over the forwarded header.
func callerTenant(r *http.Request) string {
	if id := GetIdentity(r.Context()).TenantID; id != "" {
		return id
	}
	return r.Header.Get("X-Tenant-ID")
}
