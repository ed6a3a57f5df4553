package router

import (
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
)

// RouteRegistrar mounts its routes on the versioned API group
type RouteRegistrar interface {
	RegisterRoutes(api *gin.RouterGroup)
}

// Router mounts domain route groups under /api/{version}
type Router struct {
	engine  *gin.Engine
	version string
	groups  []RouteRegistrar
}

// NewRouter creates a Router for the given API version. An empty version
// defaults to v1.
func NewRouter(engine *gin.Engine, version string) *Router {
	if version == "" {
		version = "v1"
	}
	return &Router{engine: engine, version: version}
}

// Register queues groups for Setup
func (r *Router) Register(groups ...RouteRegistrar) *Router {
	r.groups = append(r.groups, groups...)
	return r
}

// Setup mounts every registered group
func (r *Router) Setup() {
	api := r.engine.Group(r.BasePath())
	for _, g := range r.groups {
		g.RegisterRoutes(api)
	}
}

// BasePath returns the versioned API prefix
func (r *Router) BasePath() string {
	return path.Join("/api", r.version)
}

type route struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// DomainGroup collects the routes of one domain under a shared prefix.
// Routes are mounted in declaration order.
type DomainGroup struct {
	name       string
	prefix     string
	routes     []route
	middleware []gin.HandlerFunc
}

// NewDomainGroup creates an empty group
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{name: name, prefix: prefix}
}

// Use adds group-scoped middleware
func (g *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	g.middleware = append(g.middleware, middleware...)
	return g
}

// Handle declares a route
func (g *DomainGroup) Handle(method, relativePath string, handlers ...gin.HandlerFunc) *DomainGroup {
	g.routes = append(g.routes, route{method: method, path: relativePath, handlers: handlers})
	return g
}

// GET declares a GET route
func (g *DomainGroup) GET(relativePath string, handlers ...gin.HandlerFunc) *DomainGroup {
	return g.Handle(http.MethodGet, relativePath, handlers...)
}

// POST declares a POST route
func (g *DomainGroup) POST(relativePath string, handlers ...gin.HandlerFunc) *DomainGroup {
	return g.Handle(http.MethodPost, relativePath, handlers...)
}

// RegisterRoutes implements RouteRegistrar
func (g *DomainGroup) RegisterRoutes(api *gin.RouterGroup) {
	rg := api.Group(g.prefix, g.middleware...)
	for _, rt := range g.routes {
		rg.Handle(rt.method, rt.path, rt.handlers...)
	}
}

// Name returns the group name
func (g *DomainGroup) Name() string { return g.name }

// Routes lists the declared routes as "METHOD /prefix/path"
func (g *DomainGroup) Routes() []string {
	out := make([]string, 0, len(g.routes))
	for _, rt := range g.routes {
		out = append(out, rt.method+" "+path.Join(g.prefix, rt.path))
	}
	return out
}
