package middleware

import (
	"os"
	"strings"

	"github.com/gin-gonic/gin"
)

// wildcardOrigin is a parsed origin pattern of the form
// scheme://*.domain.tld matching exactly one subdomain label.
type wildcardOrigin struct {
	scheme string
	suffix string
}

// parseWildcardOrigin parses pattern into a wildcardOrigin. It returns
// nil when pattern is not a valid single-label wildcard origin.
func parseWildcardOrigin(pattern string) *wildcardOrigin {
	var scheme string
	switch {
	case strings.HasPrefix(pattern, "https://"):
		scheme = "https://"
	case strings.HasPrefix(pattern, "http://"):
		scheme = "http://"
	default:
		return nil
	}

	host := strings.TrimPrefix(pattern, scheme)
	if !strings.HasPrefix(host, "*.") || strings.Count(host, "*") != 1 {
		return nil
	}

	suffix := host[1:]
	// The fixed part needs at least two labels; "*.com" is too broad.
	if strings.Count(suffix[1:], ".") < 1 {
		return nil
	}

	return &wildcardOrigin{scheme: scheme, suffix: suffix}
}

// matches reports whether origin is scheme + exactly one label + suffix.
func (w *wildcardOrigin) matches(origin string) bool {
	if !strings.HasPrefix(origin, w.scheme) {
		return false
	}
	host := strings.TrimPrefix(origin, w.scheme)
	if !strings.HasSuffix(host, w.suffix) {
		return false
	}
	label := strings.TrimSuffix(host, w.suffix)
	return label != "" && !strings.ContainsAny(label, "./")
}

// CORS middleware to handle cross-origin requests
// Reads CORS_ALLOWED_ORIGINS environment variable to restrict origins.
// Entries may be exact origins or single-label wildcards like
// https://*.example.com. If not set, defaults to "*" (allow all origins).
func CORS() gin.HandlerFunc {
	allowedOriginsStr := os.Getenv("CORS_ALLOWED_ORIGINS")
	allowAll := allowedOriginsStr == ""

	var exactOrigins []string
	var wildcardOrigins []*wildcardOrigin
	if !allowAll {
		for _, origin := range strings.Split(allowedOriginsStr, ",") {
			origin = strings.TrimSpace(origin)
			if origin == "" {
				continue
			}
			if wildcard := parseWildcardOrigin(origin); wildcard != nil {
				wildcardOrigins = append(wildcardOrigins, wildcard)
				continue
			}
			exactOrigins = append(exactOrigins, origin)
		}
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if allowAll {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			allowed := false
			for _, exact := range exactOrigins {
				if origin == exact {
					allowed = true
					break
				}
			}
			if !allowed {
				for _, wildcard := range wildcardOrigins {
					if wildcard.matches(origin) {
						allowed = true
						break
					}
				}
			}

			if allowed {
				c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
				c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			} else {
				// Origin not allowed, but still need to set headers for preflight
				if c.Request.Method == "OPTIONS" {
					c.AbortWithStatus(403)
					return
				}
			}
		}

		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
