package gateway

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"smartpos/internal/domain"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pipeline authenticates and authorizes every inbound request, then forwards
// it unchanged. It owns no identity data and caches no decision across
// requests: tokens can be revoked between two requests, so each one
// re-validates against the owning identity service.
type Pipeline struct {
	routes    []Route
	resolvers map[domain.Space]roleResolver
	clients   map[domain.Space]IdentityClient
	proxy     *httputil.ReverseProxy
	logger    *zap.Logger
}

// New builds the pipeline in front of the backend at target.
func New(target *url.URL, clients map[domain.Space]IdentityClient, routes []Route, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	resolvers := make(map[domain.Space]roleResolver, len(clients))
	for space, client := range clients {
		resolvers[space] = roleResolver{space: space, client: client}
	}
	return &Pipeline{
		routes:    routes,
		resolvers: resolvers,
		clients:   clients,
		proxy:     httputil.NewSingleHostReverseProxy(target),
		logger:    logger,
	}
}

// Handler returns the gateway's HTTP handler.
func (p *Pipeline) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.NoRoute(p.handle)
	return router
}

func (p *Pipeline) handle(c *gin.Context) {
	path := c.Request.URL.Path
	authHeader := c.GetHeader("Authorization")

	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		p.logger.Warn("missing or malformed authorization header", zap.String("path", path))
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	route := match(p.routes, path)
	if route == nil {
		// Internal endpoints fall back to the staff space, authentication only.
		route = &Route{Prefix: "/", Spaces: []domain.Space{domain.SpaceUser}}
	}

	ctx := c.Request.Context()

	// Step 1: authenticate against the route's spaces in order; the first
	// space that accepts the credential authenticates the request. Routes
	// spanning both populations (a cashier paying a customer's bill) need
	// this walk because each identity service rejects the other space's
	// tokens. Any failure, network included, reads as unauthenticated.
	authenticated := false
	for _, space := range route.Spaces {
		client, ok := p.clients[space]
		if !ok {
			p.logger.Error("no identity client for space", zap.String("space", string(space)))
			continue
		}
		if err := client.Validate(ctx, authHeader); err != nil {
			p.logger.Debug("authentication attempt failed",
				zap.String("path", path),
				zap.String("space", string(space)),
				zap.Error(err))
			continue
		}
		authenticated = true
		break
	}
	if !authenticated {
		p.logger.Warn("authentication failed", zap.String("path", path))
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	// Step 2: resolve the role against each space in order; first grant wins
	// and is never re-queried, each alternate space is tried at most once.
	if len(route.AllowedRoles) > 0 {
		sawDenial := false
		authorized := false
		for _, space := range route.Spaces {
			resolver, ok := p.resolvers[space]
			if !ok {
				continue
			}
			result, role := resolver.resolve(ctx, authHeader, route.AllowedRoles)
			switch result {
			case granted:
				p.logger.Info("access granted",
					zap.String("path", path),
					zap.String("space", string(space)),
					zap.String("role", role))
				authorized = true
			case denied:
				p.logger.Warn("role not permitted",
					zap.String("path", path),
					zap.String("space", string(space)),
					zap.String("role", role))
				sawDenial = true
			case unreachable:
				p.logger.Warn("role resolution unreachable",
					zap.String("path", path),
					zap.String("space", string(space)))
			}
			if authorized {
				break
			}
		}
		if !authorized {
			if sawDenial {
				c.AbortWithStatus(http.StatusForbidden)
			} else {
				c.AbortWithStatus(http.StatusUnauthorized)
			}
			return
		}
	}

	// Step 3: forward unchanged; the credential header is not rewritten.
	p.proxy.ServeHTTP(c.Writer, c.Request)
}
