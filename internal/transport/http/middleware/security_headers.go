package middleware

import (
	"net/http"
	"strings"
)

type HeaderOptions struct {
	Production bool
	// ImageOrigins are extra origins allowed to serve images, such as the
	// public avatar bucket.
	ImageOrigins []string
}

func SecureHeaders(opts HeaderOptions) func(http.Handler) http.Handler {
	imgSrc := append([]string{"'self'", "data:"}, opts.ImageOrigins...)
	csp := strings.Join([]string{
		"default-src 'self'",
		"base-uri 'self'",
		"form-action 'self'",
		"frame-ancestors 'none'",
		"object-src 'none'",
		"img-src " + strings.Join(imgSrc, " "),
		"style-src 'self' 'unsafe-inline'",
		"script-src 'self'",
	}, "; ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			headers := w.Header()
			headers.Set("X-Content-Type-Options", "nosniff")
			headers.Set("X-Frame-Options", "DENY")
			headers.Set("Referrer-Policy", "no-referrer")
			headers.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
			headers.Set("Content-Security-Policy", csp)
			headers.Set("Cross-Origin-Opener-Policy", "same-origin")
			if opts.Production {
				headers.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains; preload")
			}
			next.ServeHTTP(w, r)
		})
	}
}
