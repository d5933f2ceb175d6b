// Package eligibility rejects cart items the registrar would refuse: TLDs
// that require manual documentation, and registration periods below a TLD's
// minimum term.
package eligibility

import (
	"strconv"
	"strings"

	"github.com/PawanKumar-Dev/domainflow/internal/domain"
)

// defaultRestrictedTLDs are TLDs the registrar only provisions after manual
// document verification.
var defaultRestrictedTLDs = map[string]string{
	"bank":      "requires banking license verification",
	"insurance": "requires insurance regulator verification",
	"pharmacy":  "requires pharmacy license verification",
	"edu":       "requires accredited institution verification",
	"gov":       "restricted to government entities",
	"mil":       "restricted to military entities",
}

// defaultMinimumYears are registries that do not sell one-year terms.
var defaultMinimumYears = map[string]int{
	"ai": 2,
	"nu": 2,
	"tm": 10,
}

// Filter checks cart items against a restricted-TLD deny-list and per-TLD
// minimum registration periods.
type Filter struct {
	restricted map[string]string
	minYears   map[string]int
}

type Option func(*Filter)

// WithMinimumYears replaces the built-in TLD minimum-period table. Keys are
// normalized the same way as deny-list TLDs.
func WithMinimumYears(minYears map[string]int) Option {
	return func(f *Filter) {
		normalized := make(map[string]int, len(minYears))
		for tld, years := range minYears {
			tld = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tld), "."))
			if tld == "" || years < 2 {
				continue
			}
			normalized[tld] = years
		}
		f.minYears = normalized
	}
}

// NewFilter builds a filter for the given TLDs. An empty list falls back to
// the built-in deny-list; custom TLDs get a generic reason.
func NewFilter(tlds []string, opts ...Option) *Filter {
	f := &Filter{minYears: defaultMinimumYears}
	if len(tlds) == 0 {
		f.restricted = defaultRestrictedTLDs
	} else {
		restricted := make(map[string]string, len(tlds))
		for _, tld := range tlds {
			tld = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tld), "."))
			if tld == "" {
				continue
			}
			restricted[tld] = "TLD ." + tld + " requires manual verification"
		}
		f.restricted = restricted
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Check returns one restriction per ineligible cart item, in cart order.
// Any restriction rejects the entire cart upstream: a mixed cart must not be
// partially registered, because the refund path needs the whole charge intact.
func (f *Filter) Check(items []domain.CartItem) []domain.RestrictedDomain {
	var restricted []domain.RestrictedDomain
	for _, item := range items {
		tld := tldOf(item.DomainName)
		if reason, ok := f.restricted[tld]; ok {
			restricted = append(restricted, domain.RestrictedDomain{
				DomainName: item.DomainName,
				Reason:     reason,
			})
			continue
		}
		if min, ok := f.minYears[tld]; ok && item.Period < min {
			restricted = append(restricted, domain.RestrictedDomain{
				DomainName: item.DomainName,
				Reason:     "TLD ." + tld + " requires a minimum registration period of " + strconv.Itoa(min) + " years",
			})
		}
	}
	return restricted
}

func tldOf(domainName string) string {
	name := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(domainName), "."))
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return ""
	}
	return name[idx+1:]
}
