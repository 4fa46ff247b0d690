package web_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/propertydesk/internal/admin"
	"github.com/vbonduro/propertydesk/internal/auth"
	"github.com/vbonduro/propertydesk/internal/blobstore/local"
	"github.com/vbonduro/propertydesk/internal/catalog"
	"github.com/vbonduro/propertydesk/internal/db"
	"github.com/vbonduro/propertydesk/internal/enquiry"
	"github.com/vbonduro/propertydesk/internal/events"
	"github.com/vbonduro/propertydesk/internal/listing"
	"github.com/vbonduro/propertydesk/internal/metrics"
	"github.com/vbonduro/propertydesk/internal/store"
	"github.com/vbonduro/propertydesk/internal/web"
	"github.com/vbonduro/propertydesk/internal/web/templates"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "correct horse battery"
)

// minimalPNG is the PNG signature followed by zeros.
// http.DetectContentType identifies PNG from the eight signature bytes.
var minimalPNG = func() []byte {
	b := make([]byte, 64)
	copy(b, "\x89PNG\r\n\x1a\n")
	return b
}()

var site = fstest.MapFS{
	"index.html":           {Data: []byte("<html>home page</html>")},
	"css/style.css":        {Data: []byte("body{}")},
	"admin/login.html":     {Data: []byte("<html>login form</html>")},
	"admin/dashboard.html": {Data: []byte("<html>dashboard</html>")},
	"admin/admin.css":      {Data: []byte(".admin{}")},
}

// newTestServer sets up a real web.Server backed by in-memory SQLite and a
// temporary local blob store.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	database, err := db.OpenForTesting()
	require.NoError(t, err)

	blobs, err := local.NewLocalBlobStore(t.TempDir(), "/media")
	require.NoError(t, err)

	m := metrics.New()
	repo := listing.NewRepository(
		store.NewListingStore(database),
		blobs,
		store.NewOrphanStore(database),
		events.Noop{},
		m,
		logger,
	)
	authenticator := auth.NewAuthenticator(
		store.NewAdminStore(database),
		auth.NewTokenIssuer("test-secret", time.Hour),
		auth.NewMemoryRevoker(),
		auth.NewBroker(),
		m,
		logger,
	)
	require.NoError(t, authenticator.EnsureAdmin(context.Background(), adminEmail, adminPassword))

	srv := httptest.NewServer(web.NewServer(web.Options{
		Listings:     repo,
		Catalog:      catalog.New(repo, nil, 6, "919800000000", logger),
		Auth:         authenticator,
		Workspaces:   admin.NewWorkspaces(repo, admin.DefaultMaxImageBytes, logger),
		Enquiries:    enquiry.NewService(store.NewEnquiryStore(database), enquiry.NewLogMailer(logger), "", logger),
		Media:        blobs,
		Metrics:      m,
		Templates:    templates.FS,
		Site:         site,
		AdminEnabled: true,
		Logger:       logger,
	}))
	t.Cleanup(func() {
		srv.Close()
		_ = database.Close()
	})
	return srv
}

// newClient returns a client with a cookie jar that does not follow
// redirects, so tests can assert on them.
func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar:     jar,
		Timeout: 10 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func do(t *testing.T, c *http.Client, method, target string, body io.Reader, contentType string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, target, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func signIn(t *testing.T, srv *httptest.Server, c *http.Client) {
	t.Helper()
	body := `{"email":"` + adminEmail + `","password":"` + adminPassword + `"}`
	resp, b := do(t, c, http.MethodPost, srv.URL+"/admin/api/session", strings.NewReader(body), "application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(b))
}

type formFile struct {
	name string
	data []byte
}

// buildMultipartBody creates a multipart/form-data body with the given
// fields and "images" files.
func buildMultipartBody(t *testing.T, fields url.Values, files ...formFile) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, vs := range fields {
		for _, v := range vs {
			require.NoError(t, w.WriteField(k, v))
		}
	}
	for _, f := range files {
		fw, err := w.CreateFormFile("images", f.name)
		require.NoError(t, err)
		_, err = fw.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

type listingJSON struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	BHK         string `json:"bhk"`
	BHKOptions  []struct {
		Type  string `json:"type"`
		Price string `json:"price"`
	} `json:"bhkOptions"`
	Images []string `json:"images"`
}

type dashboardJSON struct {
	Available bool          `json:"available"`
	Listings  []listingJSON `json:"listings"`
	Stats     struct {
		Total      int            `json:"total"`
		ByLocation map[string]int `json:"byLocation"`
	} `json:"stats"`
	Notices []admin.Notice `json:"notices"`
}

func decodeDashboard(t *testing.T, b []byte) dashboardJSON {
	t.Helper()
	var d dashboardJSON
	require.NoError(t, json.Unmarshal(b, &d), string(b))
	return d
}

func createListing(t *testing.T, srv *httptest.Server, c *http.Client, title string, files ...formFile) dashboardJSON {
	t.Helper()
	body, ct := buildMultipartBody(t, url.Values{
		"title":        {title},
		"location":     {"Virar"},
		"propertyType": {"Residential"},
		"price":        {"45 L onwards"},
		"bhk3":         {"on"},
		"price3bhk":    {"90 L"},
		"bhk1":         {"on"},
		"price1bhk":    {"40 L"},
	}, files...)
	resp, b := do(t, c, http.MethodPost, srv.URL+"/admin/api/properties", body, ct)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(b))
	return decodeDashboard(t, b)
}

func TestIntegration_StaticSite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)
	c := newClient(t)

	resp, b := do(t, c, http.MethodGet, srv.URL+"/", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(b), "home page")
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	resp, b = do(t, c, http.MethodGet, srv.URL+"/properties/some/deep/link", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(b), "home page")

	resp, b = do(t, c, http.MethodGet, srv.URL+"/css/style.css", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "body{}", string(b))

	resp, _ = do(t, c, http.MethodGet, srv.URL+"/admin", nil, "")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/admin/login.html", resp.Header.Get("Location"))

	resp, b = do(t, c, http.MethodGet, srv.URL+"/admin/missing.html", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(b), "Admin page not found")

	resp, b = do(t, c, http.MethodGet, srv.URL+"/admin/admin.css", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, ".admin{}", string(b))

	resp, b = do(t, c, http.MethodGet, srv.URL+"/admin/login.html", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(b), "login form")
}

func TestIntegration_AdminRequiresSession(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)
	c := newClient(t)

	resp, _ := do(t, c, http.MethodGet, srv.URL+"/admin/dashboard.html", nil, "")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin/login.html", resp.Header.Get("Location"))

	resp, b := do(t, c, http.MethodGet, srv.URL+"/admin/api/properties", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, string(b), `"redirect":"/admin/login.html"`)
}

func TestIntegration_SignIn(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)
	c := newClient(t)

	resp, b := do(t, c, http.MethodPost, srv.URL+"/admin/api/session",
		strings.NewReader(url.Values{"email": {adminEmail}, "password": {"nope"}}.Encode()),
		"application/x-www-form-urlencoded")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, string(b), "Incorrect password")

	resp, b = do(t, c, http.MethodPost, srv.URL+"/admin/api/session",
		strings.NewReader(`{"email":"","password":""}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(b), "Please fill in all fields")

	signIn(t, srv, c)

	resp, _ = do(t, c, http.MethodGet, srv.URL+"/admin/login.html", nil, "")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin/dashboard.html", resp.Header.Get("Location"))

	resp, b = do(t, c, http.MethodGet, srv.URL+"/admin/dashboard.html", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(b), "dashboard")

	resp, b = do(t, c, http.MethodGet, srv.URL+"/admin/api/session", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(b), adminEmail)
}

func TestIntegration_BearerToken(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)

	body := `{"email":"` + adminEmail + `","password":"` + adminPassword + `"}`
	resp, b := do(t, newClient(t), http.MethodPost, srv.URL+"/admin/api/session", strings.NewReader(body), "application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var session struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(b, &session))
	require.NotEmpty(t, session.Token)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/admin/api/properties", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestIntegration_CreateListing(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)
	c := newClient(t)
	signIn(t, srv, c)

	d := createListing(t, srv, c, "Palm Residency",
		formFile{"front.png", minimalPNG},
		formFile{"animation.gif", []byte("GIF89a\x01\x00\x01\x00")},
	)

	assert.Equal(t, []admin.Notice{
		admin.Failure("Invalid file type. Use JPG, PNG, or WEBP"),
		admin.Success("Property added successfully"),
	}, d.Notices)
	require.Len(t, d.Listings, 1)
	l := d.Listings[0]
	assert.Equal(t, "Palm Residency", l.Title)
	assert.Equal(t, "1 BHK, 3 BHK", l.BHK)
	require.Len(t, l.BHKOptions, 2)
	assert.Equal(t, "1 BHK", l.BHKOptions[0].Type)
	assert.Equal(t, "40 L", l.BHKOptions[0].Price)
	assert.Equal(t, "3 BHK", l.BHKOptions[1].Type)
	require.Len(t, l.Images, 1)
	assert.True(t, strings.HasPrefix(l.Images[0], "/media/properties/"), l.Images[0])
	assert.True(t, strings.HasSuffix(l.Images[0], "_front.png"), l.Images[0])
	assert.Equal(t, 1, d.Stats.Total)
	assert.Equal(t, 1, d.Stats.ByLocation["Virar"])

	resp, b := do(t, c, http.MethodGet, srv.URL+l.Images[0], nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, minimalPNG, b)
}

func TestIntegration_CreateListingValidation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)
	c := newClient(t)
	signIn(t, srv, c)

	body, ct := buildMultipartBody(t, url.Values{"title": {"No price"}, "location": {"Virar"}, "propertyType": {"Plot"}})
	resp, b := do(t, c, http.MethodPost, srv.URL+"/admin/api/properties", body, ct)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(b), "Please fill in all required fields")
}

func TestIntegration_UpdateListingMergesImages(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)
	c := newClient(t)
	signIn(t, srv, c)

	d := createListing(t, srv, c, "Sea Breeze", formFile{"a.png", minimalPNG}, formFile{"b.png", minimalPNG})
	require.Len(t, d.Listings, 1)
	l := d.Listings[0]
	require.Len(t, l.Images, 2)
	a, b := l.Images[0], l.Images[1]

	body, ct := buildMultipartBody(t, url.Values{
		"title":        {"Sea Breeze Phase 2"},
		"location":     {"Saphale"},
		"propertyType": {"Residential"},
		"price":        {"50 L"},
		"keepImages":   {b},
	}, formFile{"c.png", minimalPNG})
	resp, raw := do(t, c, http.MethodPut, srv.URL+"/admin/api/properties/"+l.ID, body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	d = decodeDashboard(t, raw)
	assert.Equal(t, []admin.Notice{admin.Success("Property updated successfully")}, d.Notices)
	require.Len(t, d.Listings, 1)
	updated := d.Listings[0]
	assert.Equal(t, "Sea Breeze Phase 2", updated.Title)
	assert.Empty(t, updated.BHKOptions)
	require.Len(t, updated.Images, 2)
	assert.Equal(t, b, updated.Images[0])
	assert.NotEqual(t, a, updated.Images[1])
	assert.True(t, strings.HasSuffix(updated.Images[1], "_c.png"))
	assert.Equal(t, 1, d.Stats.ByLocation["Saphale"])
}

func TestIntegration_UpdateListingRemovesAllImages(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)
	c := newClient(t)
	signIn(t, srv, c)

	d := createListing(t, srv, c, "Palm Court", formFile{"a.png", minimalPNG}, formFile{"b.png", minimalPNG})
	require.Len(t, d.Listings, 1)
	l := d.Listings[0]
	require.Len(t, l.Images, 2)

	body, ct := buildMultipartBody(t, url.Values{
		"title":        {"Palm Court"},
		"location":     {"Virar"},
		"propertyType": {"Residential"},
		"price":        {"40 L"},
	})
	resp, raw := do(t, c, http.MethodPut, srv.URL+"/admin/api/properties/"+l.ID, body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	d = decodeDashboard(t, raw)
	require.Len(t, d.Listings, 1)
	assert.Empty(t, d.Listings[0].Images)
}

func TestIntegration_UpdateMissingListing(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)
	c := newClient(t)
	signIn(t, srv, c)

	body, ct := buildMultipartBody(t, url.Values{"title": {"x"}})
	resp, _ := do(t, c, http.MethodPut, srv.URL+"/admin/api/properties/does-not-exist", body, ct)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIntegration_DeleteListing(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)
	c := newClient(t)
	signIn(t, srv, c)

	d := createListing(t, srv, c, "Doomed", formFile{"x.png", minimalPNG})
	require.Len(t, d.Listings, 1)
	l := d.Listings[0]

	resp, raw := do(t, c, http.MethodDelete, srv.URL+"/admin/api/properties/"+l.ID, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	d = decodeDashboard(t, raw)
	assert.Equal(t, []admin.Notice{admin.Success("Property deleted successfully")}, d.Notices)
	assert.Empty(t, d.Listings)
	assert.Zero(t, d.Stats.Total)

	resp, _ = do(t, c, http.MethodGet, srv.URL+l.Images[0], nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, raw = do(t, c, http.MethodDelete, srv.URL+"/admin/api/properties/"+l.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(raw), "Error deleting property")
}

func TestIntegration_AdminSearch(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)
	c := newClient(t)
	signIn(t, srv, c)

	createListing(t, srv, c, "Palm Residency")
	createListing(t, srv, c, "Lake View")

	resp, raw := do(t, c, http.MethodGet, srv.URL+"/admin/api/properties?q=palm", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	d := decodeDashboard(t, raw)
	assert.True(t, d.Available)
	require.Len(t, d.Listings, 1)
	assert.Equal(t, "Palm Residency", d.Listings[0].Title)
	assert.Equal(t, 2, d.Stats.Total)
}

func TestIntegration_PublicCatalog(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)
	c := newClient(t)

	resp, raw := do(t, c, http.MethodGet, srv.URL+"/api/properties", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), catalog.EmptyCatalog)

	signIn(t, srv, c)
	d := createListing(t, srv, c, "Palm Residency", formFile{"a.png", minimalPNG}, formFile{"b.png", minimalPNG})
	id := d.Listings[0].ID

	var page struct {
		Available bool           `json:"available"`
		Cards     []catalog.Card `json:"cards"`
		Empty     string         `json:"empty"`
	}
	resp, raw = do(t, c, http.MethodGet, srv.URL+"/api/properties?filter=virar", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &page))
	assert.True(t, page.Available)
	require.Len(t, page.Cards, 1)
	assert.Equal(t, 2, page.Cards[0].GalleryCount)

	resp, raw = do(t, c, http.MethodGet, srv.URL+"/api/properties?filter=Saphale", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &page))
	assert.Empty(t, page.Cards)
	assert.Equal(t, catalog.EmptyFilter, page.Empty)

	resp, raw = do(t, c, http.MethodGet, srv.URL+"/partials/properties?filter=all", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "Palm Residency")
	assert.Contains(t, string(raw), "2 photos")

	resp, raw = do(t, c, http.MethodGet, srv.URL+"/api/properties/"+id+"?image=1", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var detail catalog.Detail
	require.NoError(t, json.Unmarshal(raw, &detail))
	assert.Equal(t, 1, detail.Primary)
	assert.Contains(t, detail.WhatsAppURL, "https://wa.me/919800000000?text=")

	resp, raw = do(t, c, http.MethodGet, srv.URL+"/partials/properties/"+id, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "gallery-thumbs")
	assert.Contains(t, string(raw), "1 BHK")

	resp, _ = do(t, c, http.MethodGet, srv.URL+"/api/properties/"+id+"?image=7", nil, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, c, http.MethodGet, srv.URL+"/api/properties/unknown-id", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIntegration_Enquiry(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)
	c := newClient(t)

	form := url.Values{"name": {"Asha"}, "phone": {"98000"}, "email": {"asha@example.com"}, "interest": {"Plot"}}
	resp, raw := do(t, c, http.MethodPost, srv.URL+"/api/enquiries", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(raw), enquiry.MsgMissingFields)

	form.Set("message", "Call me after 6pm")
	resp, raw = do(t, c, http.MethodPost, srv.URL+"/api/enquiries", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Contains(t, string(raw), enquiry.MsgThanks)
}

func TestIntegration_SessionEventsEndOnSignOut(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)
	c := newClient(t)
	signIn(t, srv, c)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/admin/api/session/events", nil)
	require.NoError(t, err)
	resp, err := c.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	scanner := bufio.NewScanner(resp.Body)
	waitFor := func(event string) {
		t.Helper()
		for scanner.Scan() {
			if scanner.Text() == "event: "+event {
				return
			}
		}
		t.Fatalf("stream ended before %q event: %v", event, scanner.Err())
	}

	waitFor("signed-in")

	srvURL, err := url.Parse(srv.URL)
	require.NoError(t, err)
	cookies := c.Jar.Cookies(srvURL)
	require.Len(t, cookies, 1)

	signOutResp, raw := do(t, c, http.MethodDelete, srv.URL+"/admin/api/session", nil, "")
	require.Equal(t, http.StatusOK, signOutResp.StatusCode, string(raw))

	waitFor("signed-out")

	// Replaying the old cookie is refused once the session is revoked.
	replay, err := http.NewRequest(http.MethodGet, srv.URL+"/admin/api/properties", nil)
	require.NoError(t, err)
	replay.AddCookie(cookies[0])
	resp2, err := http.DefaultClient.Do(replay)
	require.NoError(t, err)
	_ = resp2.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
}

func TestIntegration_OrphanSweep(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)
	c := newClient(t)
	signIn(t, srv, c)

	d := createListing(t, srv, c, "Trim", formFile{"a.png", minimalPNG}, formFile{"b.png", minimalPNG})
	l := d.Listings[0]

	body, ct := buildMultipartBody(t, url.Values{
		"title": {"Trim"}, "location": {"Virar"}, "propertyType": {"Plot"}, "price": {"1"},
		"keepImages": {l.Images[1]},
	})
	resp, raw := do(t, c, http.MethodPut, srv.URL+"/admin/api/properties/"+l.ID, body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	resp, raw = do(t, c, http.MethodPost, srv.URL+"/admin/api/orphans/sweep", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	assert.JSONEq(t, `{"swept":1}`, string(raw))

	resp, _ = do(t, c, http.MethodGet, srv.URL+l.Images[0], nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = do(t, c, http.MethodGet, srv.URL+l.Images[1], nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, c, http.MethodPost, srv.URL+"/admin/api/orphans/sweep?limit=zero", nil, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIntegration_Metrics(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)
	c := newClient(t)

	do(t, c, http.MethodGet, srv.URL+"/api/properties", nil, "")
	resp, raw := do(t, c, http.MethodGet, srv.URL+"/metrics", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), `propertydesk_http_requests_total{method="GET",route="/api/properties",status="200"} 1`)
}
