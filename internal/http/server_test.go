package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"billed/internal/core"
	"billed/internal/log"
	"billed/internal/router"
	"billed/internal/session"
	"billed/internal/store"
	"billed/internal/store/memory"
	appweb "billed/web"
)

func newTestServer(t *testing.T, st store.BillStore) *Server {
	t.Helper()
	logger := log.New(log.Config{
		Handler: slog.NewTextHandler(io.Discard, nil),
	}).WithComponent(log.ComponentHTTP)
	sessions := session.NewManager(time.Hour)
	rt, err := router.New(appweb.TemplatesFS, sessions, logger.WithComponent(log.ComponentRouter))
	if err != nil {
		t.Fatalf("router.New: %v", err)
	}
	return NewServer(":0", rt, st, 4<<20, logger)
}

func doRequest(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

// loginEmployee posts the employee login form and returns the session
// cookies to replay on subsequent requests.
func loginEmployee(t *testing.T, srv *Server, email string) []*http.Cookie {
	t.Helper()
	form := url.Values{"role": {core.RoleEmployee}, "email": {email}, "password": {"x"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := doRequest(srv, req)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("login status = %d, want 303", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("login should set a session cookie")
	}
	return cookies
}

func withCookies(req *http.Request, cookies []*http.Cookie) *http.Request {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func seedBill(t *testing.T, mem *memory.Store, email, name, date, status string) core.Bill {
	t.Helper()
	created, err := mem.Create(context.Background(), core.Bill{
		Email:  email,
		Name:   name,
		Type:   "Transports",
		Date:   date,
		Amount: core.Money{Cents: 10000},
		Pct:    20,
		Status: status,
	})
	if err != nil {
		t.Fatalf("seed bill: %v", err)
	}
	return created
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, memory.New())

	rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/healthz = %d", rec.Code)
	}

	rec = doRequest(srv, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/readyz = %d", rec.Code)
	}
}

func TestReadyWithoutStore(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("/readyz without store = %d, want 503", rec.Code)
	}
}

func TestLoginPage(t *testing.T) {
	srv := newTestServer(t, memory.New())
	rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/login", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /login = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, marker := range []string{`data-testid="form-employee"`, `data-testid="form-admin"`} {
		if !strings.Contains(body, marker) {
			t.Errorf("login page missing %s", marker)
		}
	}
}

func TestLoginAdminRejected(t *testing.T) {
	srv := newTestServer(t, memory.New())
	form := url.Values{"role": {core.RoleAdmin}, "email": {"rh@test.tld"}, "password": {"x"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := doRequest(srv, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin login = %d, want re-rendered login page", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `data-testid="login-error"`) {
		t.Error("admin login should render an error")
	}
}

func TestGuardRedirectsAnonymous(t *testing.T) {
	srv := newTestServer(t, memory.New())

	for _, path := range []string{"/bills", "/bills/new"} {
		rec := doRequest(srv, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusSeeOther {
			t.Errorf("GET %s anonymous = %d, want 303", path, rec.Code)
		}
		if loc := rec.Header().Get("Location"); loc != "/login" {
			t.Errorf("GET %s redirects to %q, want /login", path, loc)
		}
	}
}

func TestBillsPageDisplayedOrder(t *testing.T) {
	mem := memory.New()
	seedBill(t, mem, "employee@test.tld", "Abonnement", "2022-01-01", core.StatusPending)
	seedBill(t, mem, "employee@test.tld", "Vol Paris Londres", "2023-05-05", core.StatusAccepted)
	seedBill(t, mem, "employee@test.tld", "Restaurant", "2022-08-15", core.StatusRefused)
	seedBill(t, mem, "someone-else@test.tld", "Hôtel", "2023-01-01", core.StatusPending)

	srv := newTestServer(t, mem)
	cookies := loginEmployee(t, srv, "employee@test.tld")

	rec := doRequest(srv, withCookies(httptest.NewRequest(http.MethodGet, "/bills", nil), cookies))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /bills = %d", rec.Code)
	}
	body := rec.Body.String()

	// Rows come latest expense first.
	isoRe := regexp.MustCompile(`data-date-iso="([0-9-]+)"`)
	var dates []string
	for _, m := range isoRe.FindAllStringSubmatch(body, -1) {
		dates = append(dates, m[1])
	}
	if len(dates) != 3 {
		t.Fatalf("expected 3 rows, got %v", dates)
	}
	for i := 1; i < len(dates); i++ {
		if dates[i] > dates[i-1] {
			t.Fatalf("rows not in latest-to-earliest order: %v", dates)
		}
	}

	if strings.Contains(body, "someone-else") || strings.Contains(body, "Hôtel") {
		t.Error("another user's bill leaked into the page")
	}
	if !strings.Contains(body, "5 Mai. 23") {
		t.Error("dates should be rendered in short French form")
	}
	if !strings.Contains(body, "Accepté") {
		t.Error("statuses should be rendered as display labels")
	}
}

func TestBillsPageIdempotentRerender(t *testing.T) {
	mem := memory.New()
	seedBill(t, mem, "employee@test.tld", "Vol Paris Londres", "2023-05-05", core.StatusPending)
	srv := newTestServer(t, mem)
	cookies := loginEmployee(t, srv, "employee@test.tld")

	first := doRequest(srv, withCookies(httptest.NewRequest(http.MethodGet, "/bills", nil), cookies))
	second := doRequest(srv, withCookies(httptest.NewRequest(http.MethodGet, "/bills", nil), cookies))

	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("statuses = %d, %d", first.Code, second.Code)
	}
	if !bytes.Equal(first.Body.Bytes(), second.Body.Bytes()) {
		t.Error("navigating to the same page twice should render identical output")
	}
}

func multipartUpload(t *testing.T, fileName string, content []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestChangeFileValidUpload(t *testing.T) {
	mem := memory.New()
	srv := newTestServer(t, mem)
	cookies := loginEmployee(t, srv, "employee@test.tld")

	body, contentType := multipartUpload(t, "facture.png", []byte("png-bytes"))
	req := withCookies(httptest.NewRequest(http.MethodPost, "/bills/new/file", body), cookies)
	req.Header.Set("Content-Type", contentType)

	rec := doRequest(srv, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload = %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "fileUrl") {
		t.Error("upload response should carry the stored file reference")
	}

	// The upload opens a draft bill.
	all, err := mem.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 1 || all[0].Status != "" {
		t.Fatalf("expected one draft bill, got %v", all)
	}
}

func TestChangeFileRejectedExtension(t *testing.T) {
	mem := memory.New()
	srv := newTestServer(t, mem)
	cookies := loginEmployee(t, srv, "employee@test.tld")

	body, contentType := multipartUpload(t, "facture.pdf", []byte("%PDF"))
	req := withCookies(httptest.NewRequest(http.MethodPost, "/bills/new/file", body), cookies)
	req.Header.Set("Content-Type", contentType)

	rec := doRequest(srv, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("rejected upload = %d, want 422", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "jpg, jpeg ou png") {
		t.Errorf("422 body should carry the alert message, got %q", rec.Body.String())
	}

	all, err := mem.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 0 {
		t.Fatal("a rejected file must not reach the store")
	}
}

func TestChangeFileRequiresSession(t *testing.T) {
	srv := newTestServer(t, memory.New())
	body, contentType := multipartUpload(t, "facture.png", []byte("png"))
	req := httptest.NewRequest(http.MethodPost, "/bills/new/file", body)
	req.Header.Set("Content-Type", contentType)

	rec := doRequest(srv, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous upload = %d, want 401", rec.Code)
	}
}

func submitForm(t *testing.T, srv *Server, cookies []*http.Cookie, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	mw.Close()
	req := withCookies(httptest.NewRequest(http.MethodPost, "/bills/new", &buf), cookies)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return doRequest(srv, req)
}

func TestSubmitAfterUpload(t *testing.T) {
	mem := memory.New()
	srv := newTestServer(t, mem)
	cookies := loginEmployee(t, srv, "employee@test.tld")

	body, contentType := multipartUpload(t, "facture.jpg", []byte("jpg-bytes"))
	req := withCookies(httptest.NewRequest(http.MethodPost, "/bills/new/file", body), cookies)
	req.Header.Set("Content-Type", contentType)
	if rec := doRequest(srv, req); rec.Code != http.StatusOK {
		t.Fatalf("upload = %d", rec.Code)
	}

	rec := submitForm(t, srv, cookies, map[string]string{
		"expense-type": "Transports",
		"expense-name": "Vol Paris Londres",
		"datepicker":   "2023-04-04",
		"amount":       "348",
		"pct":          "20",
		"commentary":   "",
	})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("submit = %d: %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/bills" {
		t.Errorf("submit redirects to %q, want /bills", loc)
	}

	all, err := mem.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("the draft must be finalized, not duplicated: %v", all)
	}
	bill := all[0]
	if bill.Status != core.StatusPending {
		t.Errorf("status = %q, want pending", bill.Status)
	}
	if bill.Name != "Vol Paris Londres" || bill.FileName != "facture.jpg" {
		t.Errorf("bill fields lost: %+v", bill)
	}

	// The stored proof is reachable for the preview modal.
	fileReq := withCookies(httptest.NewRequest(http.MethodGet, bill.FileURL, nil), cookies)
	fileRec := doRequest(srv, fileReq)
	if fileRec.Code != http.StatusOK {
		t.Fatalf("GET %s = %d", bill.FileURL, fileRec.Code)
	}
	if got := fileRec.Header().Get("Content-Type"); got != "image/jpeg" {
		t.Errorf("proof content type = %q", got)
	}
}

func TestSubmitWithoutUploadCreates(t *testing.T) {
	mem := memory.New()
	srv := newTestServer(t, mem)
	cookies := loginEmployee(t, srv, "employee@test.tld")

	rec := submitForm(t, srv, cookies, map[string]string{
		"expense-type": "Restaurants et bars",
		"expense-name": "Déjeuner client",
		"datepicker":   "2023-06-10",
		"amount":       "42,50",
	})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("submit = %d: %s", rec.Code, rec.Body.String())
	}

	all, err := mem.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 1 || all[0].Amount.Cents != 4250 {
		t.Fatalf("expected one bill at 4250 cents, got %v", all)
	}
}

// hookedStore runs a callback before each bill write, letting tests
// interleave other server calls with an in-flight submit.
type hookedStore struct {
	store.BillStore
	beforeWrite func()
}

func (h *hookedStore) Create(ctx context.Context, b core.Bill) (core.Bill, error) {
	h.beforeWrite()
	return h.BillStore.Create(ctx, b)
}

func (h *hookedStore) Update(ctx context.Context, id string, b core.Bill) (core.Bill, error) {
	h.beforeWrite()
	return h.BillStore.Update(ctx, id, b)
}

func TestSubmitEvictsListCachedDuringWrite(t *testing.T) {
	hook := &hookedStore{BillStore: memory.New(), beforeWrite: func() {}}
	srv := newTestServer(t, hook)
	cookies := loginEmployee(t, srv, "employee@test.tld")

	// A list request lands while the submit's store write is still in
	// flight and caches the pre-submit view.
	hook.beforeWrite = func() {
		_, _ = srv.billViews(context.Background(), "employee@test.tld")
	}

	rec := submitForm(t, srv, cookies, map[string]string{
		"expense-type": "Transports",
		"expense-name": "Vol Paris Londres",
		"datepicker":   "2023-04-04",
		"amount":       "348",
	})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("submit = %d: %s", rec.Code, rec.Body.String())
	}

	req := withCookies(httptest.NewRequest(http.MethodGet, "/bills", nil), cookies)
	page := doRequest(srv, req)
	if page.Code != http.StatusOK {
		t.Fatalf("GET /bills = %d", page.Code)
	}
	if !strings.Contains(page.Body.String(), "Vol Paris Londres") {
		t.Error("submitted bill missing from the list, stale cached view was served")
	}
}

func TestSubmitInvalidAmountRerendersForm(t *testing.T) {
	mem := memory.New()
	srv := newTestServer(t, mem)
	cookies := loginEmployee(t, srv, "employee@test.tld")

	rec := submitForm(t, srv, cookies, map[string]string{
		"expense-type": "Transports",
		"expense-name": "Vol Paris Londres",
		"datepicker":   "2023-04-04",
		"amount":       "abc",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid submit = %d, want 422", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "montant") {
		t.Errorf("form should re-render with a French amount error, got %q", rec.Body.String()[:200])
	}
	if rec.Header().Get("Location") != "" {
		t.Error("a rejected submit must not navigate")
	}
}

func TestLogout(t *testing.T) {
	srv := newTestServer(t, memory.New())
	cookies := loginEmployee(t, srv, "employee@test.tld")

	rec := doRequest(srv, withCookies(httptest.NewRequest(http.MethodPost, "/logout", nil), cookies))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
		t.Fatalf("logout = %d -> %q", rec.Code, rec.Header().Get("Location"))
	}

	// The old session no longer opens the bills page.
	after := doRequest(srv, withCookies(httptest.NewRequest(http.MethodGet, "/bills", nil), cookies))
	if after.Code != http.StatusSeeOther {
		t.Errorf("GET /bills after logout = %d, want redirect to login", after.Code)
	}
}

func TestRateLimitOnWrites(t *testing.T) {
	srv := newTestServer(t, memory.New())

	var last int
	for i := 0; i < 61; i++ {
		form := url.Values{"role": {core.RoleEmployee}, "email": {fmt.Sprintf("u%d@test.tld", i)}, "password": {"x"}}
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		last = doRequest(srv, req).Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("61st POST from one IP = %d, want 429", last)
	}
}
