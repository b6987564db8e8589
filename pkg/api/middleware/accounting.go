package middleware

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/marmos91/dittocore/internal/logger"
	"github.com/marmos91/dittocore/pkg/api/handlers"
	"github.com/marmos91/dittocore/pkg/lifecycle"
)

// Accounting runs every request as one handle-stage unit on counters. A
// panicking handler is recovered, counted, and answered with 500 if no
// response has been written yet.
func Accounting(counters *lifecycle.Counters) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww, ok := w.(middleware.WrapResponseWriter)
			if !ok {
				ww = middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			}

			err := counters.Guard(lifecycle.StageHandle, func() error {
				next.ServeHTTP(ww, r)
				return nil
			})
			if err == nil {
				return
			}

			var pe *lifecycle.PanicError
			if errors.As(err, &pe) && pe.Recovered.Value == http.ErrAbortHandler {
				// net/http's own abort sentinel; let the server drop the connection.
				panic(http.ErrAbortHandler)
			}

			logger.ErrorCtx(r.Context(), "Handler panicked",
				logger.KeyPath, r.URL.Path,
				logger.Err(err))
			if ww.Status() == 0 {
				handlers.InternalServerError(ww, "Internal server error")
			}
		})
	}
}
