package media

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// PresignExpiry is the lifetime of every issued URL.
const PresignExpiry = 300 * time.Second

// Operation is the access granted by a presigned URL.
type Operation string

const (
	OpRead  Operation = "read"
	OpWrite Operation = "write"
)

// ObjectPresigner is the object store credential service.
type ObjectPresigner interface {
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
	PresignPut(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// URLCache holds read URLs for less than PresignExpiry.
type URLCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, url string)
}

// Issuer mints presigned URLs for stored media URLs.
type Issuer struct {
	presigner ObjectPresigner
	baseURL   string
	timeout   time.Duration
	cache     URLCache
}

// IssuerOption configures an Issuer.
type IssuerOption func(*Issuer)

// WithReadCache caches read URLs. Write URLs are never cached.
func WithReadCache(c URLCache) IssuerOption {
	return func(i *Issuer) { i.cache = c }
}

// WithTimeout bounds each call to the presigner.
func WithTimeout(d time.Duration) IssuerOption {
	return func(i *Issuer) { i.timeout = d }
}

// NewIssuer creates an Issuer. baseURL is stripped from stored URLs to obtain the object key.
func NewIssuer(presigner ObjectPresigner, baseURL string, opts ...IssuerOption) *Issuer {
	i := &Issuer{
		presigner: presigner,
		baseURL:   baseURL,
		timeout:   10 * time.Second,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Key converts a stored URL (or bare key) to an object key.
func (i *Issuer) Key(url string) string {
	return strings.TrimPrefix(url, i.baseURL)
}

// Issue returns a presigned URL for url, or nil when url is nil.
func (i *Issuer) Issue(ctx context.Context, url *string, op Operation) (*string, error) {
	if url == nil {
		return nil, nil
	}
	if op != OpRead && op != OpWrite {
		return nil, fmt.Errorf("%w: %q (choices: read, write)", ErrInvalidOperation, op)
	}

	key := i.Key(*url)
	if op == OpRead && i.cache != nil {
		if cached, ok := i.cache.Get(ctx, key); ok {
			return &cached, nil
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	var (
		signed string
		err    error
	)
	if op == OpRead {
		signed, err = i.presigner.PresignGet(callCtx, key, PresignExpiry)
	} else {
		signed, err = i.presigner.PresignPut(callCtx, key, PresignExpiry)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrPresign, op, key, err)
	}

	if op == OpRead && i.cache != nil {
		i.cache.Set(ctx, key, signed)
	}
	return &signed, nil
}
