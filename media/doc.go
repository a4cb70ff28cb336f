// Package media implements the upload pipeline shared by tracks, sets and
// users: filename validation against per-media-type whitelists, collision-free
// storage URL resolution, and presigned URL issuance for the object store.
//
// The pieces are stateless apart from their collaborators and are composed by
// Uploader, which request handlers receive as an injected dependency.
package media
