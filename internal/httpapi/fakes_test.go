package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/easylease/sublease/internal/auth"
	"github.com/easylease/sublease/internal/data"
	"github.com/easylease/sublease/internal/geocode"
	"github.com/easylease/sublease/internal/listing"
	"github.com/easylease/sublease/internal/pg"
	"github.com/easylease/sublease/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeUniversities struct {
	unis []listing.University
	err  error
}

func (f *fakeUniversities) List(ctx context.Context) ([]listing.University, error) {
	return f.unis, f.err
}

func (f *fakeUniversities) FindByName(ctx context.Context, name string) (*listing.University, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.unis {
		if u.Name == name {
			u := u
			return &u, nil
		}
	}
	return nil, data.ErrNotFound
}

type fakeLegacy struct {
	listings []data.LegacyListing
	err      error
}

func (f *fakeLegacy) List(ctx context.Context) ([]data.LegacyListing, error) {
	return f.listings, f.err
}

func (f *fakeLegacy) Create(ctx context.Context, l data.LegacyListing) (*data.LegacyListing, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.listings = append(f.listings, l)
	return &l, nil
}

// fakePlatform is an in-memory stand-in for pg.Store.
type fakePlatform struct {
	mu        sync.Mutex
	nextID    int
	listings  map[string]*listing.Listing
	favorites map[string][]string
	profiles  map[string]*pg.Profile

	// beforeAppend runs inside AppendImages, standing in for a concurrent
	// upload to the same listing.
	beforeAppend func(l *listing.Listing)
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		listings:  map[string]*listing.Listing{},
		favorites: map[string][]string{},
		profiles:  map[string]*pg.Profile{},
	}
}

func (f *fakePlatform) ListListings(ctx context.Context) ([]listing.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []listing.Listing{}
	for i := 1; i <= f.nextID; i++ {
		if l, ok := f.listings[fmt.Sprint(i)]; ok {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (f *fakePlatform) ListingsByOwner(ctx context.Context, userID string) ([]listing.Listing, error) {
	all, _ := f.ListListings(ctx)
	out := []listing.Listing{}
	for _, l := range all {
		if l.OwnerID == userID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakePlatform) GetListing(ctx context.Context, id string) (*listing.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.listings[id]
	if !ok {
		return nil, pg.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (f *fakePlatform) CreateListing(ctx context.Context, l *listing.Listing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	l.ID = fmt.Sprint(f.nextID)
	l.CreatedAt = time.Now()
	cp := *l
	f.listings[l.ID] = &cp
	return nil
}

func (f *fakePlatform) owned(ownerID, id string) (*listing.Listing, error) {
	l, ok := f.listings[id]
	if !ok {
		return nil, pg.ErrNotFound
	}
	if l.OwnerID != ownerID {
		return nil, pg.ErrForbidden
	}
	return l, nil
}

func (f *fakePlatform) UpdateListing(ctx context.Context, ownerID string, l *listing.Listing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, err := f.owned(ownerID, l.ID)
	if err != nil {
		return err
	}
	updated := *l
	updated.OwnerID = cur.OwnerID
	updated.ImageURLs = cur.ImageURLs
	updated.CreatedAt = cur.CreatedAt
	f.listings[l.ID] = &updated
	return nil
}

func (f *fakePlatform) DeleteListing(ctx context.Context, ownerID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.owned(ownerID, id); err != nil {
		return err
	}
	delete(f.listings, id)
	return nil
}

func (f *fakePlatform) AppendImages(ctx context.Context, ownerID, id string, urls []string) ([]string, []string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, err := f.owned(ownerID, id)
	if err != nil {
		return nil, nil, err
	}
	if f.beforeAppend != nil {
		f.beforeAppend(l)
	}
	var dropped []string
	for _, u := range urls {
		if len(l.ImageURLs) >= listing.MaxImages {
			dropped = append(dropped, u)
			continue
		}
		l.ImageURLs = append(l.ImageURLs, u)
	}
	return append([]string(nil), l.ImageURLs...), dropped, nil
}

func (f *fakePlatform) AddFavorite(ctx context.Context, userID, listingID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.listings[listingID]; !ok {
		return pg.ErrNotFound
	}
	for _, id := range f.favorites[userID] {
		if id == listingID {
			return nil
		}
	}
	f.favorites[userID] = append(f.favorites[userID], listingID)
	return nil
}

func (f *fakePlatform) RemoveFavorite(ctx context.Context, userID, listingID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := f.favorites[userID][:0]
	for _, id := range f.favorites[userID] {
		if id != listingID {
			ids = append(ids, id)
		}
	}
	f.favorites[userID] = ids
	return nil
}

func (f *fakePlatform) ListFavorites(ctx context.Context, userID string) ([]listing.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []listing.Listing{}
	for _, id := range f.favorites[userID] {
		if l, ok := f.listings[id]; ok {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (f *fakePlatform) GetProfile(ctx context.Context, userID string) (*pg.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return nil, pg.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePlatform) UpdateProfile(ctx context.Context, userID, first, last, uni string) (*pg.Profile, error) {
	f.mu.Lock()
	p, ok := f.profiles[userID]
	if !ok {
		f.mu.Unlock()
		return nil, pg.ErrNotFound
	}
	p.FirstName, p.LastName, p.University = first, last, uni
	f.mu.Unlock()
	return f.GetProfile(ctx, userID)
}

func (f *fakePlatform) SetAvatar(ctx context.Context, userID, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return pg.ErrNotFound
	}
	p.AvatarURL = url
	return nil
}

// fakeImages stores uploads in memory and fails any file whose body is
// "corrupt".
type fakeImages struct {
	mu   sync.Mutex
	keys []string
}

func (f *fakeImages) Upload(ctx context.Context, key string, r io.Reader, contentType string) error {
	body, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if string(body) == "corrupt" {
		return errors.New("put object: checksum mismatch")
	}
	f.mu.Lock()
	f.keys = append(f.keys, key)
	f.mu.Unlock()
	return nil
}

func (f *fakeImages) PublicURL(key string) string {
	return "https://cdn.test/" + key
}

func (f *fakeImages) UploadAll(ctx context.Context, prefix string, files []storage.File) storage.UploadReport {
	report := storage.UploadReport{Uploaded: []string{}, Failed: []storage.UploadFailure{}}
	for _, file := range files {
		r, err := file.Open()
		if err == nil {
			key := prefix + "/" + file.Name
			err = f.Upload(ctx, key, r, file.ContentType)
			r.Close()
			if err == nil {
				report.Uploaded = append(report.Uploaded, f.PublicURL(key))
				continue
			}
		}
		report.Failed = append(report.Failed, storage.UploadFailure{File: file.Name, Error: err.Error()})
	}
	return report
}

type fakeGeocoder struct {
	loc geocode.Location
	err error
}

func (f *fakeGeocoder) Lookup(ctx context.Context, address string) (geocode.Location, error) {
	return f.loc, f.err
}

type testEnv struct {
	router   *gin.Engine
	jwt      *auth.JWTManager
	unis     *fakeUniversities
	legacy   *fakeLegacy
	platform *fakePlatform
	images   *fakeImages
	geocoder *fakeGeocoder
}

func newTestEnv(t *testing.T) *testEnv {
	env := &testEnv{
		jwt: auth.NewJWTManager("test-secret", time.Hour),
		unis: &fakeUniversities{unis: []listing.University{
			{Name: "University of Georgia", Lat: 33.9480, Lng: -83.3773},
		}},
		legacy:   &fakeLegacy{},
		platform: newFakePlatform(),
		images:   &fakeImages{},
		geocoder: &fakeGeocoder{loc: geocode.Location{Lat: 33.95, Lng: -83.37}},
	}
	env.router = New(Deps{
		Universities: env.unis,
		Legacy:       env.legacy,
		Listings:     env.platform,
		Favorites:    env.platform,
		Profiles:     env.platform,
		Images:       env.images,
		Geocoder:     env.geocoder,
		JWT:          env.jwt,
	}).Router()
	return env
}

func (e *testEnv) token(t *testing.T, userID string) string {
	tok, _, err := e.jwt.GenerateToken(userID, userID+"@uga.edu")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	return tok
}

// do sends a request and returns the recorder. body may be nil, a
// *bytes.Buffer with contentType, or any value encoded as JSON.
func (e *testEnv) do(t *testing.T, method, path, token string, body any, contentType string) *httptest.ResponseRecorder {
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case *bytes.Buffer:
		r = b
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(raw)
		contentType = "application/json"
	}

	req := httptest.NewRequest(method, path, r)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

type upload struct {
	name, contentType, body string
}

func multipartBody(t *testing.T, field string, files ...upload) (*bytes.Buffer, string) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, f.name))
		h.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		part.Write([]byte(f.body))
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func bytesBody(s string) *bytes.Buffer {
	return bytes.NewBufferString(s)
}
