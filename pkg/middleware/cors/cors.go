package cors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Config controls cross-origin access. Admin routes honour AllowedOrigins;
// paths under a PublicPrefixes entry serve the public roadworks feed to any
// origin, read-only and without credentials.
type Config struct {
	AllowedOrigins []string
	PublicPrefixes []string
}

// New returns a CORS middleware for the admin console, the public map and the
// chatbot widget. An empty allow-list admits every origin.
func New(cfg Config) gin.HandlerFunc {
	allowAll := len(cfg.AllowedOrigins) == 0
	originSet := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		originSet[strings.TrimRight(origin, "/")] = struct{}{}
	}

	return func(c *gin.Context) {
		header := c.Writer.Header()
		if isPublic(cfg.PublicPrefixes, c.Request.URL.Path) {
			header.Set("Access-Control-Allow-Origin", "*")
			header.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
			header.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		} else {
			origin := c.GetHeader("Origin")
			if origin != "" {
				if allowAll || hasOrigin(originSet, origin) {
					header.Set("Access-Control-Allow-Origin", origin)
				}
			} else if allowAll {
				header.Set("Access-Control-Allow-Origin", "*")
			}
			header.Set("Vary", "Origin")
			header.Set("Access-Control-Allow-Credentials", "true")
			header.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With, X-Request-ID")
			header.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		}

		// Content-Disposition carries the export and KML file names.
		header.Set("Access-Control-Expose-Headers", "X-Request-ID, Content-Disposition")
		header.Set("Access-Control-Max-Age", "600")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func isPublic(prefixes []string, path string) bool {
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func hasOrigin(originSet map[string]struct{}, origin string) bool {
	if len(originSet) == 0 {
		return true
	}

	origin = strings.TrimRight(origin, "/")
	_, ok := originSet[origin]
	return ok
}
