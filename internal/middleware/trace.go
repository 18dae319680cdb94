// Package middleware provides HTTP middleware for invoiceflow.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/Strob0t/invoiceflow/internal/logger"
)

// HeaderTraceID carries the trace id on requests and responses.
const HeaderTraceID = "X-Trace-ID"

// TraceID takes X-Trace-ID from the request or generates one, stores it in
// the context and echoes it on the response. Pipeline runs started by the
// request inherit it.
func TraceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderTraceID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderTraceID, id)
		next.ServeHTTP(w, r.WithContext(logger.WithTraceID(r.Context(), id)))
	})
}
