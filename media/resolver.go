package media

import (
	"context"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

// DefaultMaxAttempts bounds collision probing per resolution.
const DefaultMaxAttempts = 5000

var numericSuffix = regexp.MustCompile(`-(\d+)$`)

// URLLookup answers whether another entity already holds url in field.
// excludeID identifies the entity being written; zero excludes nothing.
type URLLookup interface {
	MediaURLExists(ctx context.Context, entity EntityType, field Field, url string, excludeID int64) (bool, error)
}

// Resolver produces collision-free storage URLs.
type Resolver struct {
	registry    *Registry
	lookup      URLLookup
	maxAttempts int
}

// NewResolver creates a Resolver. A non-positive maxAttempts uses DefaultMaxAttempts.
func NewResolver(registry *Registry, lookup URLLookup, maxAttempts int) *Resolver {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Resolver{registry: registry, lookup: lookup, maxAttempts: maxAttempts}
}

// Resolve returns base_path+filename, suffixed with -1, -2, ... until no
// entity other than excludeID holds it. A nil filename resolves to nil.
func (r *Resolver) Resolve(ctx context.Context, filename *string, entity EntityType, field Field, excludeID int64) (*string, error) {
	if filename == nil {
		return nil, nil
	}

	spec, err := r.registry.Lookup(entity, field)
	if err != nil {
		return nil, err
	}

	candidate := spec.BasePath + *filename
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		taken, err := r.lookup.MediaURLExists(ctx, entity, field, candidate, excludeID)
		if err != nil {
			return nil, fmt.Errorf("check %s.%s url %q: %w", entity, field, candidate, err)
		}
		if !taken {
			return &candidate, nil
		}
		candidate = NextCandidate(candidate)
	}

	return nil, fmt.Errorf("%w: %s.%s %q after %d attempts", ErrSuffixExhausted, entity, field, *filename, r.maxAttempts)
}

// NextCandidate bumps a trailing -<digits> on the stem, or appends -1.
//
//	a.jpg   -> a-1.jpg
//	a-1.jpg -> a-2.jpg
//	a-09    -> a-10
func NextCandidate(url string) string {
	stem, ext := splitExt(url)
	if m := numericSuffix.FindStringSubmatchIndex(stem); m != nil {
		n, _ := new(big.Int).SetString(stem[m[2]:m[3]], 10)
		n.Add(n, big.NewInt(1))
		return stem[:m[2]] + n.String() + ext
	}
	return stem + "-1" + ext
}

// splitExt splits the extension off the last path element. Leading dots of
// the element are not an extension, so ".png" has none.
func splitExt(p string) (string, string) {
	sep := strings.LastIndex(p, "/")
	dot := strings.LastIndex(p, ".")
	if dot <= sep {
		return p, ""
	}
	for i := sep + 1; i < dot; i++ {
		if p[i] != '.' {
			return p[:dot], p[dot:]
		}
	}
	return p, ""
}
