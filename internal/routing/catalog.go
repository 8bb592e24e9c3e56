package routing

import (
	"slices"
	"strings"
)

const (
	RouteSales            = "sales"
	RouteMarketing        = "marketing"
	RouteTechnicalSupport = "technical_support"
	RouteOrderLogistics   = "order_logistics"
	RouteCustomerService  = "customer_service"
)

// Route is one specialised handling path.
type Route struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Suggestions []string `json:"suggestions"`
}

var defaultSuggestions = []string{
	"How can I track my order?",
	"What promotions are currently active?",
	"Tell me about your return policy",
}

// DefaultRoutes is the built-in route set.
func DefaultRoutes() []Route {
	return []Route{
		{
			Name:        RouteSales,
			Description: "Product information, pricing, recommendations and purchase decisions",
			Suggestions: []string{
				"Can you compare this with similar products?",
				"Are there any bundles or accessories available?",
				"What's the warranty on this product?",
			},
		},
		{
			Name:        RouteMarketing,
			Description: "Promotions, discounts, loyalty programs and campaigns",
			Suggestions: []string{
				"How do I join the loyalty program?",
				"Are there any upcoming sales?",
				"Can I combine multiple discount codes?",
			},
		},
		{
			Name:        RouteTechnicalSupport,
			Description: "Troubleshooting, setup help, defects and warranty repairs",
			Suggestions: []string{
				"What if this doesn't solve my problem?",
				"How do I check my warranty status?",
				"Can I schedule a repair appointment?",
			},
		},
		{
			Name:        RouteOrderLogistics,
			Description: "Order tracking, shipping, delivery, returns and exchanges",
			Suggestions: []string{
				"Can I change my delivery address?",
				"How do I track my package?",
				"What's your return policy?",
			},
		},
		{
			Name:        RouteCustomerService,
			Description: "General inquiries, account questions, complaints and store policies",
			Suggestions: []string{
				"What are your store hours?",
				"Do you offer price matching?",
				"How can I contact customer support?",
			},
		},
	}
}

// Catalog is an immutable set of known routes plus the fallback route.
type Catalog struct {
	routes       []Route
	byName       map[string]Route
	defaultRoute string
}

// NewCatalog lowercases route names. An empty routes slice means DefaultRoutes; an
// empty defaultRoute means customer_service. A default route missing from routes is
// appended so the fallback is always a member of the set.
func NewCatalog(routes []Route, defaultRoute string) *Catalog {
	if len(routes) == 0 {
		routes = DefaultRoutes()
	}
	defaultRoute = strings.ToLower(strings.TrimSpace(defaultRoute))
	if defaultRoute == "" {
		defaultRoute = RouteCustomerService
	}

	c := &Catalog{byName: make(map[string]Route, len(routes)), defaultRoute: defaultRoute}
	for _, r := range routes {
		r.Name = strings.ToLower(strings.TrimSpace(r.Name))
		if r.Name == "" {
			continue
		}
		if _, dup := c.byName[r.Name]; dup {
			continue
		}
		r.Suggestions = slices.Clone(r.Suggestions)
		c.byName[r.Name] = r
		c.routes = append(c.routes, r)
	}
	if _, ok := c.byName[defaultRoute]; !ok {
		r := Route{Name: defaultRoute}
		c.byName[defaultRoute] = r
		c.routes = append(c.routes, r)
	}
	return c
}

func (c *Catalog) Default() string { return c.defaultRoute }

func (c *Catalog) Has(name string) bool {
	_, ok := c.byName[name]
	return ok
}

func (c *Catalog) Names() []string {
	out := make([]string, len(c.routes))
	for i, r := range c.routes {
		out[i] = r.Name
	}
	return out
}

func (c *Catalog) Routes() []Route {
	out := make([]Route, len(c.routes))
	for i, r := range c.routes {
		r.Suggestions = slices.Clone(r.Suggestions)
		out[i] = r
	}
	return out
}

func (c *Catalog) Describe(name string) string {
	return c.byName[name].Description
}

// Suggestions returns follow-up prompts for a route, or the generic set when the route
// has none.
func (c *Catalog) Suggestions(name string) []string {
	if r, ok := c.byName[name]; ok && len(r.Suggestions) > 0 {
		return slices.Clone(r.Suggestions)
	}
	return slices.Clone(defaultSuggestions)
}
