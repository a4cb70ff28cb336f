package media

import (
	"context"
	"errors"
	"fmt"

	"soundhub/logger"
)

// Entity is a model carrying media fields.
type Entity interface {
	MediaEntityType() EntityType
	// MediaID is the primary key, zero before the first insert.
	MediaID() int64
	MediaURL(field Field) *string
	SetMediaURL(field Field, url string)
}

// Filenames holds the `<field>_filename` values of one request. A key is
// present only when the caller sent that field.
type Filenames map[Field]*string

// Requested reports whether the caller supplied a filename for field.
func (f Filenames) Requested(field Field) bool {
	name, ok := f[field]
	return ok && name != nil
}

// Uploader composes validation, URL resolution and presigning for entity
// create/update requests.
type Uploader struct {
	registry *Registry
	resolver *Resolver
	issuer   *Issuer
}

func NewUploader(registry *Registry, resolver *Resolver, issuer *Issuer) *Uploader {
	return &Uploader{registry: registry, resolver: resolver, issuer: issuer}
}

// Validate checks every requested filename of entity. The first failure aborts.
func (u *Uploader) Validate(entity EntityType, filenames Filenames) error {
	for field := range filenames {
		if _, err := u.registry.Lookup(entity, field); err != nil {
			return err
		}
	}

	for _, field := range u.registry.Fields(entity) {
		if !filenames.Requested(field) {
			continue
		}
		spec, err := u.registry.Lookup(entity, field)
		if err != nil {
			return err
		}
		if err := ValidateFilename(field, *filenames[field], spec.MediaType); err != nil {
			return err
		}
	}
	return nil
}

// Stage validates and resolves every requested field and assigns the results
// on e. Nothing is assigned unless all fields validate.
func (u *Uploader) Stage(ctx context.Context, e Entity, filenames Filenames) error {
	entity := e.MediaEntityType()
	if err := u.Validate(entity, filenames); err != nil {
		return err
	}

	resolved := make(map[Field]string, len(filenames))
	for _, field := range u.registry.Fields(entity) {
		url, err := u.resolver.Resolve(ctx, filenames[field], entity, field, e.MediaID())
		if err != nil {
			return err
		}
		if url != nil {
			resolved[field] = *url
		}
	}

	for field, url := range resolved {
		e.SetMediaURL(field, url)
	}
	return nil
}

// Apply stages e and calls persist. When persist reports ErrConflict the URLs
// are resolved again and persist retried once.
func (u *Uploader) Apply(ctx context.Context, e Entity, filenames Filenames, persist func(ctx context.Context) error) error {
	if err := u.Stage(ctx, e, filenames); err != nil {
		return err
	}

	err := persist(ctx)
	if err == nil || !errors.Is(err, ErrConflict) || len(filenames) == 0 {
		return err
	}

	logger.Warn("media url conflict, resolving again",
		logger.String("entity", string(e.MediaEntityType())),
		logger.Int64("id", e.MediaID()),
		logger.ErrorField(err))

	if err := u.Stage(ctx, e, filenames); err != nil {
		return err
	}
	if err := persist(ctx); err != nil {
		if errors.Is(err, ErrConflict) {
			return fmt.Errorf("%w: retry failed: %v", ErrConflict, err)
		}
		return err
	}
	return nil
}

// UploadTargets returns a write URL for every media field of e whose filename
// was supplied; other fields map to nil.
func (u *Uploader) UploadTargets(ctx context.Context, e Entity, filenames Filenames) (map[Field]*string, error) {
	targets := make(map[Field]*string)
	for _, field := range u.registry.Fields(e.MediaEntityType()) {
		if !filenames.Requested(field) {
			targets[field] = nil
			continue
		}
		url, err := u.issuer.Issue(ctx, e.MediaURL(field), OpWrite)
		if err != nil {
			return nil, err
		}
		targets[field] = url
	}
	return targets, nil
}

// DownloadURL returns a read URL for a stored media URL, nil for nil.
func (u *Uploader) DownloadURL(ctx context.Context, stored *string) (*string, error) {
	return u.issuer.Issue(ctx, stored, OpRead)
}
