package middleware

import (
	"mime"
	"net/http"
	"strings"

	"github.com/schedulehub/p2p/internal/api/models"
)

// ContentTypeJSON sets the Content-Type header to application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/json")
		}
		next.ServeHTTP(w, r)
	})
}

// AcceptJSON answers 406 when the Accept header rules out JSON.
func AcceptJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if accept := r.Header.Get("Accept"); accept != "" && !acceptsJSON(accept) {
			problem := models.NewProblem(
				models.ProblemTypeNotAcceptable,
				"Not acceptable",
				http.StatusNotAcceptable,
				GetRequestID(r.Context()),
			).WithDetail("responses are application/json").WithInstance(r.URL.Path)
			problem.Write(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func acceptsJSON(accept string) bool {
	for _, part := range strings.Split(accept, ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		switch mediaType {
		case "*/*", "application/*", "application/json", "application/problem+json":
			return true
		}
	}
	return false
}
