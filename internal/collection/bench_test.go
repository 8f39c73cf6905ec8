package collection

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/partnerdesk/internal/partners"
	"github.com/odyssey-erp/partnerdesk/internal/platform/cache"
)

func seedRecords(n int) []partners.Record {
	records := make([]partners.Record, n)
	for i := range records {
		records[i] = partners.Record{
			ID:      int64(i + 1),
			Name:    fmt.Sprintf("Partner %d", i),
			TaxID:   fmt.Sprintf("%011d", i),
			Contact: "contact@example.com",
		}
	}
	return records
}

func benchmarkList(b *testing.B, listCache ListCache) {
	svc, err := NewService(ServiceConfig{
		Schema: partners.CustomerSchema,
		Repo:   NewMemoryRepository(seedRecords(500)...),
		Cache:  listCache,
	})
	if err != nil {
		b.Fatal(err)
	}
	r := chi.NewRouter()
	r.Route("/api/v1/cliente", NewHandler(svc, nil).MountRoutes)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cliente/get", nil)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req.WithContext(context.Background()))
		if rec.Code != http.StatusOK {
			b.Fatalf("status %d", rec.Code)
		}
	}
}

func BenchmarkListUncached(b *testing.B) {
	benchmarkList(b, nil)
}

func BenchmarkListCached(b *testing.B) {
	mr := miniredis.RunT(b)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	benchmarkList(b, cache.NewVersioned(client, "bench:customer", time.Minute))
}
