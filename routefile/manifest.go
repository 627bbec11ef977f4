// Package routefile loads declarative route manifests written in YAML and
// registers them on a mux.Router.
//
// A manifest lists routes, nested groups and redirects:
//
//	routes:
//	  - methods: [GET]
//	    uri: /users/{id}
//	    action: UserController@show
//	    name: users.show
//	    where: {id: number}
//	groups:
//	  - prefix: admin
//	    name: admin.
//	    middleware: [auth]
//	    routes:
//	      - uri: /stats
//	        action: StatsController
//	redirects:
//	  - from: /home
//	    to: /
//	    status: 301
//
// Constraint values naming a known macro (number, alpha, uuid, ...) are
// expanded with mux.LookupConstraint; anything else is used as a regular
// expression.
package routefile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/vitalvas/waypoint/mux"
	"gopkg.in/yaml.v3"
)

// Manifest is the root of a route file.
type Manifest struct {
	Routes    []RouteSpec    `yaml:"routes" validate:"dive"`
	Groups    []GroupSpec    `yaml:"groups" validate:"dive"`
	Redirects []RedirectSpec `yaml:"redirects" validate:"dive"`
}

// RouteSpec declares one route. Empty Methods registers GET and HEAD. A
// fallback route ignores Methods and URI.
type RouteSpec struct {
	Methods           []string          `yaml:"methods" validate:"dive,verb"`
	URI               string            `yaml:"uri" validate:"required_without=Fallback"`
	Action            string            `yaml:"action" validate:"required"`
	Name              string            `yaml:"name"`
	Domain            string            `yaml:"domain"`
	Where             map[string]string `yaml:"where" validate:"dive,keys,required,endkeys,required"`
	Defaults          map[string]string `yaml:"defaults"`
	Middleware        []string          `yaml:"middleware" validate:"dive,required"`
	WithoutMiddleware []string          `yaml:"without_middleware" validate:"dive,required"`
	Fallback          bool              `yaml:"fallback"`
}

// GroupSpec declares shared attributes for the routes and groups it
// contains.
type GroupSpec struct {
	Prefix            string            `yaml:"prefix"`
	Name              string            `yaml:"name"`
	Controller        string            `yaml:"controller"`
	Namespace         string            `yaml:"namespace"`
	Domain            string            `yaml:"domain"`
	Middleware        []string          `yaml:"middleware" validate:"dive,required"`
	WithoutMiddleware []string          `yaml:"without_middleware" validate:"dive,required"`
	Where             map[string]string `yaml:"where" validate:"dive,keys,required,endkeys,required"`
	Routes            []RouteSpec       `yaml:"routes" validate:"dive"`
	Groups            []GroupSpec       `yaml:"groups" validate:"dive"`
}

// RedirectSpec declares a redirect route. Status defaults to 302.
type RedirectSpec struct {
	From   string `yaml:"from" validate:"required"`
	To     string `yaml:"to" validate:"required"`
	Status int    `yaml:"status" validate:"omitempty,min=300,max=308"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("verb", func(fl validator.FieldLevel) bool {
		return slices.Contains(mux.Verbs, strings.ToUpper(fl.Field().String()))
	})
	return v
}

// Parse decodes and validates a manifest. Unknown keys are rejected.
func Parse(r io.Reader) (*Manifest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("routefile: decode: %w", err)
	}

	if err := validate.Struct(&m); err != nil {
		return nil, fmt.Errorf("routefile: %w", err)
	}
	return &m, nil
}

// Load reads the manifest at path.
func Load(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("routefile: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Register declares every route of m on r. Errors of individual routes are
// joined; routes without errors are still registered.
func (m *Manifest) Register(r *mux.Router) error {
	var errs []error

	for _, rs := range m.Routes {
		errs = append(errs, registerRoute(r, rs))
	}
	for _, gs := range m.Groups {
		errs = append(errs, registerGroup(r, gs))
	}
	for _, rd := range m.Redirects {
		errs = append(errs, r.Redirect(rd.From, rd.To, rd.Status).Err())
	}

	return errors.Join(errs...)
}

func registerGroup(r *mux.Router, gs GroupSpec) error {
	var errs []error

	r.Group(mux.GroupAttributes{
		Name:              gs.Name,
		Prefix:            gs.Prefix,
		Controller:        gs.Controller,
		Namespace:         gs.Namespace,
		Domain:            gs.Domain,
		Middleware:        gs.Middleware,
		WithoutMiddleware: gs.WithoutMiddleware,
		Where:             expandConstraints(gs.Where),
	}, func(r *mux.Router) {
		for _, rs := range gs.Routes {
			errs = append(errs, registerRoute(r, rs))
		}
		for _, child := range gs.Groups {
			errs = append(errs, registerGroup(r, child))
		}
	})

	return errors.Join(errs...)
}

func registerRoute(r *mux.Router, rs RouteSpec) error {
	var b *mux.RouteBuilder
	if rs.Fallback {
		b = r.Fallback(rs.Action)
	} else {
		b = r.Match(rs.Methods, rs.URI, rs.Action)
	}

	for param, pattern := range expandConstraints(rs.Where) {
		b.Where(param, pattern)
	}
	for param, value := range rs.Defaults {
		b.Defaults(param, value)
	}
	if rs.Domain != "" {
		b.Domain(rs.Domain)
	}
	if len(rs.Middleware) > 0 {
		b.Middleware(rs.Middleware...)
	}
	if len(rs.WithoutMiddleware) > 0 {
		b.WithoutMiddleware(rs.WithoutMiddleware...)
	}
	if rs.Name != "" {
		b.Name(rs.Name)
	}

	if err := b.Err(); err != nil {
		return fmt.Errorf("routefile: route %s: %w", rs.URI, err)
	}
	return nil
}

// expandConstraints replaces constraint macros with their patterns.
func expandConstraints(where map[string]string) map[string]string {
	if len(where) == 0 {
		return nil
	}

	out := make(map[string]string, len(where))
	for param, value := range where {
		if pattern, ok := mux.LookupConstraint(value); ok {
			value = pattern
		}
		out[param] = value
	}
	return out
}
