package guard

import (
	"net/http"
	"path"
	"strings"

	"github.com/dmitrymomot/backdrop/handler"
	"github.com/dmitrymomot/backdrop/pkg/session"
)

// Class is the classification of a request path.
type Class int

const (
	ClassUnclassified Class = iota
	ClassProtected
	ClassAuthOnly
)

func (c Class) String() string {
	switch c {
	case ClassProtected:
		return "protected"
	case ClassAuthOnly:
		return "auth_only"
	default:
		return "unclassified"
	}
}

// Guard redirects requests based on the path class and whether the request
// carries a session. It keeps no state between requests.
type Guard struct {
	protected   []string
	authOnly    []string
	loginPath   string
	landingPath string
}

// New creates a Guard. Every entry matches the path itself and everything
// below it. Protected wins when both lists match.
func New(protected, authOnly []string, loginPath, landingPath string) *Guard {
	if loginPath == "" {
		loginPath = "/login"
	}
	if landingPath == "" {
		landingPath = "/dashboard"
	}
	return &Guard{
		protected:   normalize(protected),
		authOnly:    normalize(authOnly),
		loginPath:   loginPath,
		landingPath: landingPath,
	}
}

// Classify returns the class of urlPath after cleaning it, so "//dashboard"
// and "/x/../dashboard" classify like "/dashboard".
func (g *Guard) Classify(urlPath string) Class {
	urlPath = cleanPath(urlPath)
	for _, p := range g.protected {
		if matchPrefix(urlPath, p) {
			return ClassProtected
		}
	}
	for _, p := range g.authOnly {
		if matchPrefix(urlPath, p) {
			return ClassAuthOnly
		}
	}
	return ClassUnclassified
}

// Decide returns the redirect target for a request, or "" to let it through.
func (g *Guard) Decide(path string, hasSession bool) string {
	switch g.Classify(path) {
	case ClassProtected:
		if !hasSession {
			return g.loginPath
		}
	case ClassAuthOnly:
		if hasSession {
			return g.landingPath
		}
	}
	return ""
}

// Middleware applies Decide to every request. It must run after
// session.Middleware.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasSession := session.UserIDFromContext(r.Context())
		target := g.Decide(r.URL.Path, hasSession)
		if target == "" {
			next.ServeHTTP(w, r)
			return
		}
		_ = handler.Redirect(target).Render(w, r)
	})
}

func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	return path.Clean(p)
}

// matchPrefix matches whole path segments: "/dashboard" matches
// "/dashboard" and "/dashboard/billing" but not "/dashboards".
func matchPrefix(path, prefix string) bool {
	if prefix == "/" {
		return true
	}
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}

func normalize(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		if len(p) > 1 {
			p = strings.TrimRight(p, "/")
			if p == "" {
				p = "/"
			}
		}
		out = append(out, p)
	}
	return out
}
