package openshift

import "strings"

type Route struct {
	*Object
}

func (r *Route) Host() string {
	return r.String("spec", "host")
}

// Termination is the TLS termination, "" for plain http routes
func (r *Route) Termination() string {
	return r.String("spec", "tls", "termination")
}

// ServiceName is the service the route sends traffic to
func (r *Route) ServiceName() string {
	return r.String("spec", "to", "name")
}

// Address is the URL the route is reachable at
func (r *Route) Address() string {
	scheme := "http"
	if r.Termination() != "" {
		scheme = "https"
	}
	return scheme + "://" + strings.TrimSuffix(r.Host(), "/")
}
