package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	ports "github.com/FirjiAchmad24/dashmonitoring-pln/internal/sheets"
)

// fakeSheets serves the three values endpoints the client uses.
type fakeSheets struct {
	mu      sync.Mutex
	values  [][]interface{}
	clears  int
	lastGet string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":clear"):
		f.clears++
		f.values = nil
		_, _ = w.Write([]byte(`{}`))
	case r.Method == http.MethodPut:
		var vr gsheet.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.values = vr.Values
		_ = json.NewEncoder(w).Encode(gsheet.UpdateValuesResponse{UpdatedRows: int64(len(vr.Values))})
	case r.Method == http.MethodGet:
		f.lastGet = r.URL.Path
		_ = json.NewEncoder(w).Encode(gsheet.ValueRange{Values: f.values})
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T) (*Client, *fakeSheets) {
	t.Helper()
	fake := &fakeSheets{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	c, err := New(svc, "sheet-id", "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c, fake
}

func TestClientWriteAndReadRecap(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	recap := ports.Recap{Rows: [][]string{
		{"Dashboard Monitoring", "Diperbarui", "02-05-2024 14:05:09"},
		{"BFKO", "2000000", "1", "50.00"},
	}}
	if err := c.WriteRecap(ctx, recap); err != nil {
		t.Fatalf("WriteRecap() error = %v", err)
	}
	if fake.clears != 1 {
		t.Errorf("clears = %d, want 1", fake.clears)
	}

	got, err := c.ReadRecap(ctx)
	if err != nil {
		t.Fatalf("ReadRecap() error = %v", err)
	}
	if !got.SameData(recap) {
		t.Errorf("read back %v, want %v", got.Rows, recap.Rows)
	}
	if !strings.Contains(fake.lastGet, "'Recap'!A:Z") {
		t.Errorf("read range path = %q", fake.lastGet)
	}
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	if _, err := New(nil, " ", "Recap"); err == nil {
		t.Fatal("expected an error for a blank spreadsheet id")
	}
	if _, err := NewFromEnv(context.Background(), "", ""); err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("NewFromEnv() error = %v", err)
	}
}

func TestNewFromEnvMissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := NewFromEnv(context.Background(), "sheet-id", "")
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("NewFromEnv() error = %v", err)
	}
}

func TestClientWithoutService(t *testing.T) {
	c := &Client{spreadsheetID: "x", sheetName: DefaultSheetName}
	if err := c.WriteRecap(context.Background(), ports.Recap{}); err == nil {
		t.Error("WriteRecap without service should fail")
	}
	if _, err := c.ReadRecap(context.Background()); err == nil {
		t.Error("ReadRecap without service should fail")
	}
}
