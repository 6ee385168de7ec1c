package runtime

import (
	"context"
	"net/http"
	"time"
)

const checkTimeout = 2 * time.Second

// ReadyCheck is a named dependency probe reported on /readyz.
type ReadyCheck struct {
	Name  string
	Check func(context.Context) error
}

// NewBaseMuxWithReady returns a mux pre-wired with /healthz (liveness, always
// ok) and /readyz (runs every check with a short timeout; any failure turns
// the endpoint 503 and lists the failing dependencies).
func NewBaseMuxWithReady(checks ...ReadyCheck) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeText(w, http.StatusOK, "ok")
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		body := "ok"
		status := http.StatusOK
		for _, c := range checks {
			if c.Check == nil {
				continue
			}
			if err := runCheck(r.Context(), c); err != nil {
				name := c.Name
				if name == "" {
					name = "dependency"
				}
				if status == http.StatusOK {
					status = http.StatusServiceUnavailable
					body = ""
				} else {
					body += "; "
				}
				body += name + ": " + err.Error()
			}
		}
		writeText(w, status, body)
	})
	return mux
}

func runCheck(ctx context.Context, c ReadyCheck) error {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	return c.Check(ctx)
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
