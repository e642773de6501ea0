package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/services"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/storage"
)

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "http.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	dash := services.NewDashboardService(repo, time.Minute)
	srv := NewServer(":0", Services{
		Dashboard:   dash,
		Bfko:        services.NewBfkoService(repo, nil, dash),
		Cards:       services.NewCardService(repo, nil, dash),
		ServiceFees: services.NewServiceFeeService(repo, nil, dash),
	}, repo, opts)
	t.Cleanup(func() {
		srv.cacheManager.Stop()
		srv.rateLimiter.Stop()
	})
	return srv
}

func do(t *testing.T, srv *Server, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

const paymentJSON = `{"nip":"1001","nama":"Andi","jabatan":"Staf","unit":"UID","bulan":"Januari","tahun":"2024","nilai_angsuran":1500000}`

func createPayment(t *testing.T, srv *Server) int64 {
	t.Helper()
	rec := do(t, srv, http.MethodPost, "/bfko/payments", "application/json", paymentJSON)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create payment status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var out struct {
		ID int64 `json:"id"`
	}
	decode(t, rec, &out)
	return out.ID
}

func multipartBody(t *testing.T, field, filename, content string, extra map[string]string) (string, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(content))
	for k, v := range extra {
		mw.WriteField(k, v)
	}
	mw.Close()
	return mw.FormDataContentType(), &buf
}

func TestHealthReadyMetrics(t *testing.T) {
	srv := newTestServer(t, Options{})

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := do(t, srv, http.MethodGet, path, "", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d, body = %s", path, rec.Code, rec.Body.String())
		}
	}

	rec := do(t, srv, http.MethodGet, "/readyz", "", "")
	var ready struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	decode(t, rec, &ready)
	if ready.Status != "ready" || ready.Checks["database"] != "ok" || ready.Checks["templates"] != "ok" {
		t.Errorf("ready = %+v", ready)
	}

	rec = do(t, srv, http.MethodGet, "/metrics", "", "")
	body := rec.Body.String()
	for _, want := range []string{"http_requests_total ", "dashboard_cache_entries 0", "rate_limit_hits_total 0"} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q:\n%s", want, body)
		}
	}
}

func TestIndexRendersDashboard(t *testing.T) {
	srv := newTestServer(t, Options{})
	createPayment(t, srv)

	rec := do(t, srv, http.MethodGet, "/", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("index status = %d, body = %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{"Dashboard Monitoring", "Angsuran BFKO - Januari 2024", "Rp1.5Jt", "Rp 1.500.000"} {
		if !strings.Contains(body, want) {
			t.Errorf("index missing %q", want)
		}
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("security headers not applied")
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("request id header missing")
	}
}

func TestDashboardAPI(t *testing.T) {
	srv := newTestServer(t, Options{})
	createPayment(t, srv)

	rec := do(t, srv, http.MethodGet, "/api/dashboard?year=2024&month=1", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Success bool `json:"success"`
		Summary struct {
			Bfko struct {
				Total     string `json:"total"`
				Count     int    `json:"count"`
				Employees int    `json:"employees"`
			} `json:"bfko"`
		} `json:"summary"`
		MonthlyData []struct {
			Month string `json:"month"`
		} `json:"monthlyData"`
		Recent     []map[string]interface{} `json:"recentTransactions"`
		GrandTotal string                   `json:"grandTotal"`
	}
	decode(t, rec, &out)
	if !out.Success || out.Summary.Bfko.Count != 1 || out.Summary.Bfko.Employees != 1 || out.Summary.Bfko.Total != "1500000" {
		t.Errorf("summary = %+v", out.Summary)
	}
	if len(out.MonthlyData) != 12 || out.MonthlyData[0].Month != "Jan" {
		t.Errorf("monthly = %+v", out.MonthlyData)
	}
	if len(out.Recent) != 1 || out.GrandTotal != "Rp 1.500.000" {
		t.Errorf("recent = %v, grand = %q", out.Recent, out.GrandTotal)
	}

	rec = do(t, srv, http.MethodGet, "/api/dashboard?year=2023", "", "")
	decode(t, rec, &out)
	if out.Summary.Bfko.Count != 0 {
		t.Errorf("2023 count = %d, want 0", out.Summary.Bfko.Count)
	}

	tests := []struct {
		query string
		want  int
	}{
		{"year=abc", http.StatusUnprocessableEntity},
		{"month=13", http.StatusBadRequest},
		{"month=Smarch", http.StatusBadRequest},
		{"year=all&month=maret", http.StatusOK},
	}
	for _, tt := range tests {
		rec := do(t, srv, http.MethodGet, "/api/dashboard?"+tt.query, "", "")
		if rec.Code != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.query, rec.Code, tt.want)
		}
	}
}

func TestBfkoPaymentLifecycle(t *testing.T) {
	srv := newTestServer(t, Options{})
	id := createPayment(t, srv)

	rec := do(t, srv, http.MethodPut, fmt.Sprintf("/bfko/payments/%d", id), "application/x-www-form-urlencoded",
		"bulan=Februari&tahun=2024&nilai_angsuran=1750000")
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if trig := rec.Header().Get("HX-Trigger"); !strings.Contains(trig, `"records:changed"`) || !strings.Contains(trig, `"bfko"`) {
		t.Errorf("HX-Trigger = %q", trig)
	}

	rec = do(t, srv, http.MethodGet, "/bfko?tahun=2024&format=json", "", "")
	var ov services.BfkoOverview
	decode(t, rec, &ov)
	if ov.Summary.TotalRecords != 1 || ov.Summary.TotalPayments.String() != "1750000" {
		t.Errorf("overview summary = %+v", ov.Summary)
	}

	rec = do(t, srv, http.MethodGet, "/bfko/employees/1001?tahun=all", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"nama":"Andi"`) {
		t.Errorf("employee detail status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = do(t, srv, http.MethodGet, "/bfko", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Monitoring BFKO") {
		t.Errorf("bfko page status = %d", rec.Code)
	}

	path := fmt.Sprintf("/bfko/payments/%d", id)
	if rec := do(t, srv, http.MethodDelete, path, "", ""); rec.Code != http.StatusOK {
		t.Errorf("delete status = %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodDelete, path, "", ""); rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
	if rec := do(t, srv, http.MethodDelete, "/bfko/payments/abc", "", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/bfko/employees/9999", "", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing employee status = %d, want 404", rec.Code)
	}
}

func TestBfkoValidation(t *testing.T) {
	srv := newTestServer(t, Options{})

	rec := do(t, srv, http.MethodPost, "/bfko/payments", "application/json", `{"nip":"1001","bulan":"Januari","tahun":"2024","nilai_angsuran":"10"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	var out struct {
		Fields map[string]string `json:"fields"`
	}
	decode(t, rec, &out)
	if out.Fields["nama"] != "required" || out.Fields["jabatan"] != "required" {
		t.Errorf("fields = %v", out.Fields)
	}

	rec = do(t, srv, http.MethodPost, "/bfko/payments", "application/json", `{"nip":`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/bfko/payments", strings.NewReader("nip=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	hx := httptest.NewRecorder()
	srv.Handler.ServeHTTP(hx, req)
	if hx.Code != http.StatusUnprocessableEntity || !strings.Contains(hx.Body.String(), `class="error"`) {
		t.Errorf("htmx validation = %d %s", hx.Code, hx.Body.String())
	}
}

func TestBfkoImportExportAndDelete(t *testing.T) {
	srv := newTestServer(t, Options{})

	csv := strings.Join([]string{
		"nip,nama,jabatan,unit,bulan,tahun,nilai_angsuran,tanggal_bayar,status_angsuran",
		"1001,Andi,Staf,UID,Januari,2024,1200000,2024-01-20,Lunas",
		"1002,Budi,Staf,UID,Februari,2024,900000,,",
	}, "\n")
	ct, body := multipartBody(t, "file", "bfko.csv", csv, nil)
	rec := do(t, srv, http.MethodPost, "/bfko/import", ct, body.String())
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var summary struct {
		Inserted int    `json:"inserted"`
		Message  string `json:"message"`
	}
	decode(t, rec, &summary)
	if summary.Inserted != 2 || !strings.HasPrefix(summary.Message, "Import berhasil!") {
		t.Errorf("summary = %+v", summary)
	}

	rec = do(t, srv, http.MethodGet, "/bfko/export/excel?tahun=2024", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("excel status = %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, `attachment; filename="BFKO_2024_`) {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if rec.Body.Len() == 0 {
		t.Error("empty spreadsheet")
	}

	rec = do(t, srv, http.MethodGet, "/bfko/export/pdf?tahun=all", "", "")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/pdf" {
		t.Errorf("pdf status = %d, type = %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Error("body is not a PDF")
	}

	rec = do(t, srv, http.MethodDelete, "/bfko/employees/1001?year=2024", "", "")
	if rec.Code != http.StatusOK {
		t.Errorf("delete employee status = %d", rec.Code)
	}
	rec = do(t, srv, http.MethodDelete, "/bfko", "", "")
	var del struct {
		Deleted int `json:"deleted"`
	}
	decode(t, rec, &del)
	if del.Deleted != 1 {
		t.Errorf("deleted = %d, want 1", del.Deleted)
	}
}

func TestImportRejectsBadUploads(t *testing.T) {
	srv := newTestServer(t, Options{ImportMaxBytes: 256})

	ct, body := multipartBody(t, "other", "x.csv", "a,b\n1,2", nil)
	if rec := do(t, srv, http.MethodPost, "/bfko/import", ct, body.String()); rec.Code != http.StatusBadRequest {
		t.Errorf("missing field status = %d, want 400", rec.Code)
	}

	ct, body = multipartBody(t, "file", "big.csv", strings.Repeat("x", 4096), nil)
	rec := do(t, srv, http.MethodPost, "/bfko/import", ct, body.String())
	if rec.Code == http.StatusOK || rec.Code >= 500 {
		t.Errorf("oversized upload status = %d, want a 4xx", rec.Code)
	}
}

const cardJSON = `{"employee_name":"Budi Santoso","personel_number":"P200","trip_number":"T-01",
"origin":"Jakarta","destination":"Surabaya","departure_date":"2024-03-05","return_date":"2024-03-08",
"payment_amount":"2500000","transaction_type":"payment","custom_month":"Maret","custom_year":"2024","cc_number":"5657"}`

func TestCardEndpoints(t *testing.T) {
	srv := newTestServer(t, Options{})

	rec := do(t, srv, http.MethodPost, "/cc-card/transactions", "application/json", cardJSON)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Data struct {
			ID    int64  `json:"id"`
			Sheet string `json:"sheet"`
		} `json:"data"`
	}
	decode(t, rec, &created)
	if created.Data.Sheet != "Maret 2024 - CC 5657" {
		t.Errorf("sheet = %q", created.Data.Sheet)
	}

	rec = do(t, srv, http.MethodGet, "/cc-card/transactions?year=2024&month=3", "", "")
	var page services.CardPage
	decode(t, rec, &page)
	if len(page.Transactions) != 1 || len(page.Sheets) != 1 || len(page.Fees) != 1 {
		t.Errorf("page = %+v", page)
	}

	rec = do(t, srv, http.MethodGet, fmt.Sprintf("/cc-card/transactions/%d", created.Data.ID), "", "")
	if rec.Code != http.StatusOK {
		t.Errorf("get status = %d", rec.Code)
	}

	rec = do(t, srv, http.MethodGet, "/cc-card/autocomplete?q=santo", "", "")
	var sugg []services.Suggestion
	decode(t, rec, &sugg)
	if len(sugg) != 1 || sugg[0].PersonelNumber != "P200" {
		t.Errorf("suggestions = %+v", sugg)
	}

	rec = do(t, srv, http.MethodPut, "/cc-card/fees", "application/json",
		`[{"sheet_name":"Maret 2024 - CC 5657","biaya_adm_bunga":"10000","biaya_transfer":"","iuran_tahunan":5000}]`)
	if rec.Code != http.StatusOK {
		t.Fatalf("save fees status = %d, body = %s", rec.Code, rec.Body.String())
	}
	rec = do(t, srv, http.MethodGet, "/cc-card/fees", "", "")
	if !strings.Contains(rec.Body.String(), `"biaya_adm_bunga":"10000"`) {
		t.Errorf("fees = %s", rec.Body.String())
	}

	rec = do(t, srv, http.MethodGet, "/cc-card", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Budi Santoso") {
		t.Errorf("card page status = %d", rec.Code)
	}

	rec = do(t, srv, http.MethodDelete, "/cc-card/sheets", "application/json", `{"sheet_name":""}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("blank sheet status = %d, want 422", rec.Code)
	}
	rec = do(t, srv, http.MethodDelete, "/cc-card/sheets", "application/json", `{"sheet_name":"Maret 2024 - CC 5657"}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Berhasil menghapus 1 transaksi") {
		t.Errorf("delete sheet = %d %s", rec.Code, rec.Body.String())
	}
}

func TestCardImport(t *testing.T) {
	srv := newTestServer(t, Options{})

	csv := strings.Join([]string{
		"no,booking_id,employee_name,personel_number,trip_number,origin,destination,trip_destination_full,departure_date,return_date,duration_days,payment_amount,transaction_type,sheet",
		"1,BK001,Andi,P100,TR1,Jakarta,Bali,Jakarta - Bali,1/5/2024,1/8/2024,3,2500000,Payment,Januari 2024 - CC 5657",
	}, "\n")
	ct, body := multipartBody(t, "csv_file", "cards.csv", csv, map[string]string{
		"update_existing":     "1",
		"override_sheet_name": "Januari 2024 - CC 9386",
	})
	rec := do(t, srv, http.MethodPost, "/cc-card/import", ct, body.String())
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = do(t, srv, http.MethodGet, "/cc-card/transactions", "", "")
	var page services.CardPage
	decode(t, rec, &page)
	if len(page.Transactions) != 1 || page.Transactions[0].Sheet != "Januari 2024 - CC 9386" {
		t.Errorf("transactions = %+v", page.Transactions)
	}
}

func TestServiceFeeEndpoints(t *testing.T) {
	srv := newTestServer(t, Options{})

	rec := do(t, srv, http.MethodPost, "/service-fees", "application/x-www-form-urlencoded",
		"employee_name=Andi&service_type=hotel&hotel_name=Hotel+Majapahit&transaction_amount=750000&transaction_time=2024-06-02")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Data struct {
			ID int64 `json:"id"`
		} `json:"data"`
	}
	decode(t, rec, &created)

	req := httptest.NewRequest(http.MethodGet, "/service-fees?year=2024", nil)
	req.Header.Set("Accept", "application/json")
	list := httptest.NewRecorder()
	srv.Handler.ServeHTTP(list, req)
	var fees []map[string]interface{}
	decode(t, list, &fees)
	if len(fees) != 1 {
		t.Errorf("fees = %v", fees)
	}

	rec = do(t, srv, http.MethodGet, "/service-fees", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Hotel Majapahit") {
		t.Errorf("page status = %d", rec.Code)
	}

	rec = do(t, srv, http.MethodPost, "/service-fees", "application/json", `{"employee_name":"X","service_type":"train","transaction_amount":"1"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid type status = %d, want 422", rec.Code)
	}

	path := fmt.Sprintf("/service-fees/%d", created.Data.ID)
	if rec := do(t, srv, http.MethodDelete, path, "", ""); rec.Code != http.StatusOK {
		t.Errorf("delete status = %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodDelete, path, "", ""); rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestMutationInvalidatesDashboardCache(t *testing.T) {
	srv := newTestServer(t, Options{})

	do(t, srv, http.MethodGet, "/api/dashboard", "", "")
	if n := srv.dashboard.Cache().Size(); n != 1 {
		t.Fatalf("cache size = %d, want 1", n)
	}
	createPayment(t, srv)
	if n := srv.dashboard.Cache().Size(); n != 0 {
		t.Errorf("cache size after write = %d, want 0", n)
	}
}

func TestRateLimitAndScreening(t *testing.T) {
	srv := newTestServer(t, Options{RequestsPerMinute: 1})

	createPayment(t, srv)
	rec := do(t, srv, http.MethodPost, "/bfko/payments", "application/json", paymentJSON)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second write status = %d, want 429", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/api/dashboard", "", ""); rec.Code != http.StatusOK {
		t.Errorf("reads must not be limited, got %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/.env", "", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("suspicious path status = %d, want 400", rec.Code)
	}
}
