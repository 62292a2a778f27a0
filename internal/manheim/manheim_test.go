package manheim

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stupiduntilnot/auctionbot/internal/valuation"
)

const testVIN = "WBA3C1C5XFP853102"

func tokenHandler(calls *int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.PostForm.Get("grant_type") != "client_credentials" {
			http.Error(w, "bad grant type", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-123",
			"expires_in":   3600,
		})
	}
}

func TestByVIN_RequestShapeAndDecode(t *testing.T) {
	var tokenCalls int32
	var gotPath, gotAuth, gotQuery string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth2/token" {
			tokenHandler(&tokenCalls)(w, r)
			return
		}
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode(map[string]any{
			"vehicle": map[string]any{
				"year": 2015, "make": "BMW", "model": "328i", "vin": testVIN,
			},
			"wholesaleAverages": map[string]any{
				"aggregateAverage": map[string]any{"average": 18500, "rough": 16200, "clean": 20100},
			},
			"marketSummary": map[string]any{
				"transactions": []map[string]any{
					{
						"price": 18750, "saleDate": "2024-11-02T00:00:00Z",
						"odometer": 38112, "conditionGrade": 37,
						"location": "Manheim Pennsylvania", "region": "NE",
						"sellerType": "Lease", "doors": 4,
					},
				},
			},
		})
	}))
	defer srv.Close()

	c := NewClient("id", "secret", srv.URL, 5*time.Second)
	grade := 4.0
	miles := 45000
	rec, err := c.ByVIN(valuation.VINRequest{
		VIN:       testVIN,
		Subseries: "SE",
		Filters:   valuation.Filters{Color: "BLACK", Grade: &grade, Odometer: &miles},
	})
	if err != nil {
		t.Fatal(err)
	}

	if gotPath != "/valuations/vin/"+testVIN+"/SE" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("auth header = %q", gotAuth)
	}
	for _, want := range []string{"color=BLACK", "grade=4", "odometer=45000"} {
		if !containsParam(gotQuery, want) {
			t.Errorf("query %q missing %q", gotQuery, want)
		}
	}

	if rec.Vehicle.Model != "328i" || rec.Vehicle.VIN != testVIN {
		t.Errorf("vehicle = %+v", rec.Vehicle)
	}
	if rec.Wholesale == nil || rec.Wholesale.AggregateAverage.Average != 18500 {
		t.Errorf("wholesale = %+v", rec.Wholesale)
	}
	txs := rec.Market.Transactions
	if len(txs) != 1 {
		t.Fatalf("transactions = %d, want 1", len(txs))
	}
	tx := txs[0]
	if tx.ConditionGrade != 37 {
		t.Errorf("grade stored as %g, want the wire value 37", tx.ConditionGrade)
	}
	if tx.SaleDate.Format("2006-01-02") != "2024-11-02" {
		t.Errorf("sale date = %v", tx.SaleDate)
	}
	if tx.Extra["sellerType"] != "Lease" || tx.Extra["doors"] != "4" {
		t.Errorf("extra fields = %v", tx.Extra)
	}
}

func TestByYMM_Path(t *testing.T) {
	var tokenCalls int32
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth2/token" {
			tokenHandler(&tokenCalls)(w, r)
			return
		}
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(map[string]any{"vehicle": map[string]any{"year": 2015}})
	}))
	defer srv.Close()

	c := NewClient("id", "secret", srv.URL, 5*time.Second)
	if _, err := c.ByYMM(valuation.YMMRequest{Year: 2015, Make: "BMW", Model: "328i"}); err != nil {
		t.Fatal(err)
	}
	if gotPath != "/valuations/years/2015/makes/BMW/models/328i" {
		t.Errorf("path = %q", gotPath)
	}
}

func TestToken_CachedAcrossCalls(t *testing.T) {
	var tokenCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth2/token" {
			tokenHandler(&tokenCalls)(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"vehicle": map[string]any{"vin": testVIN}})
	}))
	defer srv.Close()

	c := NewClient("id", "secret", srv.URL, 5*time.Second)
	for i := 0; i < 3; i++ {
		if _, err := c.ByVIN(valuation.VINRequest{VIN: testVIN}); err != nil {
			t.Fatal(err)
		}
	}
	if n := atomic.LoadInt32(&tokenCalls); n != 1 {
		t.Errorf("token fetched %d times, want 1", n)
	}
}

func TestByVIN_NotFound(t *testing.T) {
	var tokenCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth2/token" {
			tokenHandler(&tokenCalls)(w, r)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewClient("id", "secret", srv.URL, 5*time.Second)
	_, err := c.ByVIN(valuation.VINRequest{VIN: testVIN})
	if !errors.Is(err, valuation.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestByVIN_ServerFailureIsProviderError(t *testing.T) {
	var tokenCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth2/token" {
			tokenHandler(&tokenCalls)(w, r)
			return
		}
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient("id", "secret", srv.URL, 5*time.Second)
	_, err := c.ByVIN(valuation.VINRequest{VIN: testVIN})
	var pe *valuation.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("got %T %v, want *valuation.ProviderError", err, err)
	}
	if errors.Is(err, valuation.ErrNotFound) {
		t.Error("server failure misclassified as not-found")
	}
}

func TestByVIN_MalformedBodyIsProviderError(t *testing.T) {
	var tokenCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth2/token" {
			tokenHandler(&tokenCalls)(w, r)
			return
		}
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	c := NewClient("id", "secret", srv.URL, 5*time.Second)
	_, err := c.ByVIN(valuation.VINRequest{VIN: testVIN})
	var pe *valuation.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("got %v, want *valuation.ProviderError", err)
	}
}

func containsParam(query, param string) bool {
	for _, p := range strings.Split(query, "&") {
		if p == param {
			return true
		}
	}
	return false
}
