package snapshot

import (
	"fmt"
	"strings"
)

// Route is an origin/destination pair of IATA codes, written "BCN-MAD".
type Route struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
}

// ParseRoute parses "BCN-MAD" (also accepts "BCN/MAD" and "BCN→MAD").
func ParseRoute(s string) (Route, error) {
	s = strings.TrimSpace(s)
	for _, sep := range []string{"-", "/", "→", " "} {
		origin, destination, ok := strings.Cut(s, sep)
		if !ok {
			continue
		}
		r := Route{
			Origin:      strings.ToUpper(strings.TrimSpace(origin)),
			Destination: strings.ToUpper(strings.TrimSpace(destination)),
		}
		if err := r.Validate(); err != nil {
			return Route{}, err
		}
		return r, nil
	}
	return Route{}, fmt.Errorf("invalid route %q: expected ORIGIN-DESTINATION", s)
}

func (r Route) String() string {
	return r.Origin + "-" + r.Destination
}

// FileName is the per-route breakdown file name, e.g. "bcn_mad_prices.csv".
func (r Route) FileName() string {
	return strings.ToLower(r.Origin) + "_" + strings.ToLower(r.Destination) + "_prices.csv"
}

func (r Route) Validate() error {
	if !isIATA(r.Origin) {
		return fmt.Errorf("invalid origin %q: expected a 3-letter IATA code", r.Origin)
	}
	if !isIATA(r.Destination) {
		return fmt.Errorf("invalid destination %q: expected a 3-letter IATA code", r.Destination)
	}
	if r.Origin == r.Destination {
		return fmt.Errorf("invalid route %s: origin equals destination", r)
	}
	return nil
}

func (r Route) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Route) UnmarshalText(b []byte) error {
	parsed, err := ParseRoute(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func isIATA(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, c := range code {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}
