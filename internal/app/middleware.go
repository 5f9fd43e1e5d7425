package app

import (
	"net/http"
	"runtime/debug"

	"github.com/gorilla/mux"
	"github.com/klokku/reminder/internal/rest"
	log "github.com/sirupsen/logrus"
)

// SetupMiddleware wires all HTTP middlewares for the application.
func SetupMiddleware(r *mux.Router) {
	r.Use(recoverPanics)
}

// recoverPanics turns a handler panic into a generic 500 so no internal detail
// reaches the caller.
func recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.Errorf("panic serving %s %s: %v", req.Method, req.URL.Path, rec)
				log.Debugf("%s", debug.Stack())
				rest.WriteError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
			}
		}()
		next.ServeHTTP(w, req)
	})
}
