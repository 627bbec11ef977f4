// Package mux implements a route registration and dispatch engine for
// matching incoming HTTP requests to controller actions.
//
// The package implements routing semantics based on:
//   - RFC 9110 (HTTP Semantics)
//   - RFC 3986 (URIs)
//   - RFC 5891 (IDNA host names)
//
// # Router
//
// Create a router and declare routes with the verb helpers:
//
//	r := mux.NewRouter(mux.WithContainer(container))
//	r.Get("/articles/{category}/{id}", "ArticleController@show").WhereNumber("id")
//	r.Post("/articles", "ArticleController@store").Name("articles.store")
//	http.Handle("/", r)
//
// A verb helper returns a RouteBuilder. Builder methods configure the route
// (constraints, name, domain, middleware) and the route is finalised when
// the router boots, on the first request or an explicit Boot call.
//
// # Path Parameters
//
// A template declares parameters in curly braces. A trailing question mark
// makes a parameter optional; the text before it is still required, so
// "/users/{id?}" matches "/users/" and "/users/7" but not "/users":
//
//	r.Get("/posts/{slug}/{page?}", handler).Defaults("page", "1")
//
// Parameters match any run of characters except a slash unless constrained
// with Where or one of the typed helpers:
//
//	WhereNumber       - decimal digits (e.g. 42)
//	WhereAlpha        - ASCII letters (e.g. hello)
//	WhereAlphaNumeric - ASCII letters and digits (e.g. abc123)
//	WhereUUID         - RFC 9562 UUID (e.g. 550e8400-e29b-41d4-a716-446655440000)
//	WhereULID         - ULID (e.g. 01ARZ3NDEKTSV4RRFFQ69G5FAV)
//	WhereIn           - one of a fixed set of values
//
// An invalid constraint is reported as a *PatternError by the first match
// that reaches the route.
//
// Matched parameters are stored in the request context:
//
//	id, ok := mux.VarGet(r, "id")
//	route := mux.CurrentRoute(r)
//
// # Groups
//
// Group shares attributes between routes. Prefixes are joined with a
// slash, names with a dot, middleware lists are concatenated and the
// innermost controller, namespace and domain win:
//
//	r.Group(mux.GroupAttributes{Prefix: "admin", Name: "admin.", Middleware: []string{"auth"}}, func(r *mux.Router) {
//		r.Get("users", "UserController@index").Name("users")
//	})
//
// # Matching
//
// Routes of the request method are tried in registration order and the
// first match wins; fallback routes are tried last. When nothing matches,
// the other verbs are tried with the same path. A match under another verb
// produces 405 Method Not Allowed with an Allow header (RFC 9110 Section
// 15.5.6), except for OPTIONS requests, which are answered with 200 and the
// Allow header. Otherwise the response is 404 Not Found.
//
// # Middleware
//
// Routes declare middleware by identifier. The MiddlewareResolver expands
// aliases and groups, drops duplicates and exclusions and applies the
// priority order; the MiddlewareRegistry maps the resulting identifiers to
// MiddlewareFunc implementations. Parameters follow a colon:
//
//	r.Resolver().Alias("throttle", "rate.Limit")
//	r.Registry().RegisterFactory("rate.Limit", newRateLimit)
//	r.Get("/api", handler).Middleware("throttle:60,1")
//
// Global middleware added with Use wraps the whole dispatch and runs before
// the request is matched.
//
// # Actions
//
// A route action is an http.Handler, a "Class@method" pair or the name of
// an invokable class. Class actions are made through the router's
// Container when the route is first dispatched.
//
// # Compiled Routes
//
// Compile captures the booted routes in a CompiledTable that can be
// marshalled with MarshalBinary and loaded back with LoadCompiled, skipping
// route declaration on start-up. Routes with in-process handlers cannot be
// compiled.
//
// # Reverse Routing
//
// URL builds the URL of a named route:
//
//	u, err := r.URL("articles.show", "category", "go", "id", "42")
package mux
