package bgcf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"callrouter/internal/logger"
	"callrouter/pkg/metrics"
)

var (
	ErrInvalidDocument = errors.New("invalid BGCF document")
	ErrMalformedRoute  = errors.New("malformed BGCF route")
)

type rawDocument struct {
	Routes *[]json.RawMessage `json:"routes"`
}

type rawRoute struct {
	Name   string  `json:"name"`
	Domain *string `json:"domain"`
	Route  *string `json:"route"`
}

// Route sends calls for Domain to the breakout gateway at Route.
type Route struct {
	Name   string
	Domain string
	Route  string
}

type routeTable struct {
	routes []Route
	byName map[string]string
}

// Service answers "which gateway handles this domain" from a static JSON
// route table.
type Service struct {
	path   string
	table  atomic.Pointer[routeTable]
	logger logger.Logger
}

// NewService loads path. A document-level fault is logged and leaves the
// service with no routes.
func NewService(path string, log logger.Logger) *Service {
	s := &Service{
		path:   path,
		logger: log,
	}

	table, err := s.load()
	if err != nil {
		table = &routeTable{byName: map[string]string{}}
	}
	s.store(table)

	return s
}

// Reload replaces the route table. On a document-level fault the current
// table is kept and the error returned.
func (s *Service) Reload() error {
	table, err := s.load()
	if err != nil {
		return err
	}
	s.store(table)
	s.logger.Infow("Reloaded BGCF routes",
		"file", s.path,
		"routes", len(table.routes),
	)
	return nil
}

// GetRoute returns the gateway for domain, or "" when none is configured.
func (s *Service) GetRoute(ctx context.Context, domain string) string {
	route, ok := s.table.Load().byName[strings.ToLower(domain)]
	if !ok {
		s.logger.DebugwCtx(ctx, "No BGCF route for domain", "domain", domain)
		return ""
	}
	return route
}

func (s *Service) Routes() []Route {
	table := s.table.Load()
	out := make([]Route, len(table.routes))
	copy(out, table.routes)
	return out
}

func (s *Service) store(table *routeTable) {
	s.table.Store(table)
	metrics.SetBGCFRoutes(len(table.routes))
}

func (s *Service) load() (*routeTable, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		s.logger.Errorw("Failed to read BGCF configuration data",
			"file", s.path,
			"error", err,
		)
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	var doc rawDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Errorw("Badly formed BGCF configuration data",
			"file", s.path,
			"error", err,
		)
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	if doc.Routes == nil {
		s.logger.Errorw("Badly formed BGCF configuration data - missing routes object",
			"file", s.path,
		)
		return nil, fmt.Errorf("%w: missing routes", ErrInvalidDocument)
	}

	table := &routeTable{
		routes: make([]Route, 0, len(*doc.Routes)),
		byName: make(map[string]string, len(*doc.Routes)),
	}
	for i, raw := range *doc.Routes {
		route, err := compileRoute(raw)
		if err != nil {
			s.logger.Warnw("Badly formed BGCF route",
				"file", s.path,
				"index", i,
				"error", err,
			)
			continue
		}

		key := strings.ToLower(route.Domain)
		if _, dup := table.byName[key]; dup {
			s.logger.Warnw("Duplicate BGCF route ignored",
				"file", s.path,
				"domain", route.Domain,
				"name", route.Name,
			)
			continue
		}
		table.byName[key] = route.Route
		table.routes = append(table.routes, route)
	}

	return table, nil
}

func compileRoute(raw json.RawMessage) (Route, error) {
	var rr rawRoute
	if err := json.Unmarshal(raw, &rr); err != nil {
		return Route{}, fmt.Errorf("%w: %v", ErrMalformedRoute, err)
	}
	if rr.Domain == nil || strings.TrimSpace(*rr.Domain) == "" {
		return Route{}, fmt.Errorf("%w: missing domain", ErrMalformedRoute)
	}
	if rr.Route == nil || strings.TrimSpace(*rr.Route) == "" {
		return Route{}, fmt.Errorf("%w: route %q has no target", ErrMalformedRoute, rr.Name)
	}

	return Route{
		Name:   rr.Name,
		Domain: strings.TrimSpace(*rr.Domain),
		Route:  strings.TrimSpace(*rr.Route),
	}, nil
}
