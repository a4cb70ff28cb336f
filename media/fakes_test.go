package media

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const testBaseURL = "https://bucket.example.com/"

func testRegistry() *Registry {
	return NewRegistry(testBaseURL, Dirs{
		TrackAudio:  "music/tracks/",
		TrackImage:  "images/tracks/",
		SetImage:    "images/sets/",
		UserProfile: "images/users/profile/",
		UserHeader:  "images/users/header/",
	})
}

type stored struct {
	entity EntityType
	field  Field
	url    string
}

// fakeLookup records which entity id holds each url.
type fakeLookup struct {
	owners map[stored]int64
	calls  int
	err    error
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{owners: make(map[stored]int64)}
}

func (f *fakeLookup) put(entity EntityType, field Field, url string, id int64) {
	f.owners[stored{entity, field, url}] = id
}

func (f *fakeLookup) MediaURLExists(_ context.Context, entity EntityType, field Field, url string, excludeID int64) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	id, ok := f.owners[stored{entity, field, url}]
	if !ok {
		return false, nil
	}
	return excludeID == 0 || id != excludeID, nil
}

type fakePresigner struct {
	gets, puts int
	err        error
}

func (p *fakePresigner) PresignGet(_ context.Context, key string, expiry time.Duration) (string, error) {
	p.gets++
	if p.err != nil {
		return "", p.err
	}
	return fmt.Sprintf("https://signed.example.com/%s?op=get&expires=%d", key, int(expiry.Seconds())), nil
}

func (p *fakePresigner) PresignPut(_ context.Context, key string, expiry time.Duration) (string, error) {
	p.puts++
	if p.err != nil {
		return "", p.err
	}
	return fmt.Sprintf("https://signed.example.com/%s?op=put&expires=%d", key, int(expiry.Seconds())), nil
}

type memCache map[string]string

func (c memCache) Get(_ context.Context, key string) (string, bool) {
	v, ok := c[key]
	return v, ok
}

func (c memCache) Set(_ context.Context, key, url string) {
	c[key] = url
}

var errStore = errors.New("store unavailable")

type fakeEntity struct {
	entity EntityType
	id     int64
	urls   map[Field]*string
}

func newFakeEntity(entity EntityType, id int64) *fakeEntity {
	return &fakeEntity{entity: entity, id: id, urls: make(map[Field]*string)}
}

func (e *fakeEntity) MediaEntityType() EntityType { return e.entity }
func (e *fakeEntity) MediaID() int64              { return e.id }
func (e *fakeEntity) MediaURL(field Field) *string { return e.urls[field] }
func (e *fakeEntity) SetMediaURL(field Field, url string) {
	e.urls[field] = &url
}

func strPtr(s string) *string { return &s }
