package media

import "fmt"

// EntityType names a model that owns media fields.
type EntityType string

const (
	EntityTrack EntityType = "track"
	EntitySet   EntityType = "set"
	EntityUser  EntityType = "user"
)

// Field names a media column on an entity.
type Field string

const (
	FieldAudio        Field = "audio"
	FieldImage        Field = "image"
	FieldImageProfile Field = "image_profile"
	FieldImageHeader  Field = "image_header"
)

// FilenameKey is the request key carrying the desired filename for f.
func (f Field) FilenameKey() string {
	return string(f) + "_filename"
}

// PresignedKey is the response key carrying the upload target for f.
func (f Field) PresignedKey() string {
	return string(f) + "_presigned_url"
}

// MediaType selects the extension whitelist used for a field.
type MediaType string

const (
	MediaAudio MediaType = "audio"
	MediaImage MediaType = "image"
)

// FieldSpec is the static storage description of one (entity, field) pair.
type FieldSpec struct {
	BasePath  string
	MediaType MediaType
}

// Dirs are the per-field storage directories, relative to the base URL.
type Dirs struct {
	TrackAudio  string
	TrackImage  string
	SetImage    string
	UserProfile string
	UserHeader  string
}

type fieldEntry struct {
	field Field
	spec  FieldSpec
}

// Registry maps (entity, field) to its FieldSpec. It is built once at start-up
// and never mutated afterwards, so it is safe for concurrent use.
type Registry struct {
	entries map[EntityType][]fieldEntry
}

// NewRegistry builds the media path table. Every base path is baseURL + dir.
func NewRegistry(baseURL string, dirs Dirs) *Registry {
	return &Registry{
		entries: map[EntityType][]fieldEntry{
			EntityTrack: {
				{FieldAudio, FieldSpec{BasePath: baseURL + dirs.TrackAudio, MediaType: MediaAudio}},
				{FieldImage, FieldSpec{BasePath: baseURL + dirs.TrackImage, MediaType: MediaImage}},
			},
			EntitySet: {
				{FieldImage, FieldSpec{BasePath: baseURL + dirs.SetImage, MediaType: MediaImage}},
			},
			EntityUser: {
				{FieldImageProfile, FieldSpec{BasePath: baseURL + dirs.UserProfile, MediaType: MediaImage}},
				{FieldImageHeader, FieldSpec{BasePath: baseURL + dirs.UserHeader, MediaType: MediaImage}},
			},
		},
	}
}

// Lookup returns the spec for (entity, field) or ErrUnregisteredField.
func (r *Registry) Lookup(entity EntityType, field Field) (FieldSpec, error) {
	for _, e := range r.entries[entity] {
		if e.field == field {
			return e.spec, nil
		}
	}
	return FieldSpec{}, fmt.Errorf("%w: %s.%s (entities: track, set, user; fields: audio, image, image_profile, image_header)",
		ErrUnregisteredField, entity, field)
}

// Fields lists the media fields of entity in declaration order.
func (r *Registry) Fields(entity EntityType) []Field {
	entries := r.entries[entity]
	fields := make([]Field, 0, len(entries))
	for _, e := range entries {
		fields = append(fields, e.field)
	}
	return fields
}

// BasePaths returns every configured base path, in a stable order.
func (r *Registry) BasePaths() []string {
	var paths []string
	for _, entity := range []EntityType{EntityTrack, EntitySet, EntityUser} {
		for _, e := range r.entries[entity] {
			paths = append(paths, e.spec.BasePath)
		}
	}
	return paths
}
