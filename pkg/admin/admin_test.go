package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/admin-api-client/internal/testutil"
	"github.com/Sternrassler/admin-api-client/pkg/client"
	"github.com/Sternrassler/admin-api-client/pkg/features"
	"github.com/Sternrassler/admin-api-client/pkg/navigation"
	"github.com/Sternrassler/admin-api-client/pkg/pagination"
	"github.com/Sternrassler/admin-api-client/pkg/session"
	"github.com/Sternrassler/admin-api-client/pkg/store"
	"github.com/Sternrassler/admin-api-client/pkg/table"
)

func setupService(t *testing.T) (*Service, *testutil.MockAdmin, *client.Client) {
	t.Helper()

	mock := testutil.NewMockAdmin()
	t.Cleanup(mock.Close)

	ctx := context.Background()
	st := store.NewMemory()
	c, err := client.New(
		client.DefaultConfig(mock.URL()),
		session.New(ctx, st, session.Config{Timezone: "UTC"}),
		features.New(ctx, st),
		navigation.NewRouter("/admin/promo-codes"),
	)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return New(c), mock, c
}

func promoItems(n int) []any {
	items := make([]any, n)
	for i := range items {
		items[i] = PromoCode{ID: int64(i + 1), Code: "CODE" + string(rune('A'+i%26)), Status: PromoStatusActive}
	}
	return items
}

func TestPromo_List(t *testing.T) {
	svc, mock, _ := setupService(t)
	mock.SetList("GET /admin/promo-codes", promoItems(25))

	page, err := svc.Promo.List(context.Background(), 2, 10, PromoFilters{Status: PromoStatusActive})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	if len(page.Items) != 10 || page.Items[0].ID != 11 {
		t.Errorf("items = %+v", page.Items)
	}
	if page.Total != 25 || page.Pages != 3 {
		t.Errorf("total/pages = %d/%d, want 25/3", page.Total, page.Pages)
	}

	q := mock.GetLastQuery()
	if q.Get("page") != "2" || q.Get("page_size") != "10" || q.Get("status") != "active" {
		t.Errorf("query = %v", q)
	}
	if q.Has("search") {
		t.Error("empty search filter was sent")
	}
	if q.Get("timezone") != "UTC" {
		t.Errorf("timezone = %q", q.Get("timezone"))
	}
}

func TestPromo_CRUD(t *testing.T) {
	svc, mock, _ := setupService(t)
	ctx := context.Background()
	expires := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)

	mock.SetResponse("POST /admin/promo-codes", testutil.NewEnvelopeResponse(PromoCode{ID: 9, Code: "WINTER", BonusAmount: 5, MaxUses: 100, Status: PromoStatusActive, ExpiresAt: &expires}))
	mock.SetResponse("GET /admin/promo-codes/9", testutil.NewEnvelopeResponse(PromoCode{ID: 9, Code: "WINTER"}))
	mock.SetResponse("PUT /admin/promo-codes/9", testutil.NewEnvelopeResponse(PromoCode{ID: 9, Code: "WINTER", Status: PromoStatusDisabled}))
	mock.SetResponse("DELETE /admin/promo-codes/9", testutil.NewEnvelopeResponse(MessageResponse{Message: "deleted"}))

	created, err := svc.Promo.Create(ctx, CreatePromoCodeRequest{Code: "WINTER", BonusAmount: 5, MaxUses: 100, ExpiresAt: &expires})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID != 9 || created.ExpiresAt == nil || !created.ExpiresAt.Equal(expires) {
		t.Errorf("created = %+v", created)
	}
	var sent map[string]any
	if err := json.Unmarshal(mock.GetLastBody(), &sent); err != nil {
		t.Fatalf("request body: %v", err)
	}
	if sent["code"] != "WINTER" || sent["max_uses"] != float64(100) {
		t.Errorf("create body = %v", sent)
	}
	if mock.GetLastQuery().Has("timezone") {
		t.Error("timezone attached to POST")
	}

	got, err := svc.Promo.GetByID(ctx, 9)
	if err != nil || got.Code != "WINTER" {
		t.Fatalf("GetByID = %+v, %v", got, err)
	}

	status := PromoStatusDisabled
	updated, err := svc.Promo.Update(ctx, 9, UpdatePromoCodeRequest{Status: &status})
	if err != nil || updated.Status != PromoStatusDisabled {
		t.Fatalf("Update = %+v, %v", updated, err)
	}
	if strings.TrimSpace(string(mock.GetLastBody())) != `{"status":"disabled"}` {
		t.Errorf("update body = %s, want only the changed field", mock.GetLastBody())
	}

	msg, err := svc.Promo.Delete(ctx, 9)
	if err != nil || msg.Message != "deleted" {
		t.Fatalf("Delete = %+v, %v", msg, err)
	}
}

func TestPromo_Usages(t *testing.T) {
	svc, mock, _ := setupService(t)
	mock.SetList("GET /admin/promo-codes/3/usages", []any{
		PromoCodeUsage{ID: 1, PromoCodeID: 3, UserID: 7, BonusAmount: 2.5, User: &UsageUser{ID: 7, Email: "a@example.com"}},
	})

	page, err := svc.Promo.Usages(context.Background(), 3, 1, 20)
	if err != nil {
		t.Fatalf("Usages failed: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].User == nil || page.Items[0].User.Email != "a@example.com" {
		t.Errorf("usages = %+v", page.Items)
	}
}

func TestPromo_APIErrorIsWrapped(t *testing.T) {
	svc, mock, _ := setupService(t)
	mock.SetResponse("GET /admin/promo-codes", testutil.NewAPIErrorResponse(4001, "invalid filter"))

	_, err := svc.Promo.List(context.Background(), 1, 20, PromoFilters{Status: "bogus"})

	apiErr, ok := client.AsAPIError(err)
	if !ok {
		t.Fatalf("err = %v, want wrapped *client.APIError", err)
	}
	if code, _ := apiErr.IntCode(); code != 4001 || apiErr.Message != "invalid filter" {
		t.Errorf("error = %+v", apiErr)
	}
}

func TestPromo_TableLoader(t *testing.T) {
	svc, mock, _ := setupService(t)
	mock.SetList("GET /admin/promo-codes", promoItems(45))

	loader := table.New(svc.Promo.TableFetch(), table.Options[PromoFilters]{PageSize: 20, Name: "promo-codes"})
	defer loader.Close()
	ctx := context.Background()

	if err := loader.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if p := loader.Pagination(); p.Total != 45 || p.Pages != 3 {
		t.Errorf("pagination = %+v", p)
	}

	if err := loader.HandlePageChange(ctx, 99); err != nil {
		t.Fatalf("HandlePageChange failed: %v", err)
	}
	if items := loader.Items(); len(items) != 5 || items[0].ID != 41 {
		t.Errorf("last page items = %d starting at %v", len(items), items)
	}
}

func TestPromo_PagesFetchAll(t *testing.T) {
	svc, mock, _ := setupService(t)
	mock.SetList("GET /admin/promo-codes", promoItems(23))

	fetcher := pagination.NewBatchFetcher(svc.Promo.Pages(PromoFilters{}), pagination.Config{PageSize: 5, MaxConcurrency: 2})
	codes, err := fetcher.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if len(codes) != 23 {
		t.Fatalf("len = %d, want 23", len(codes))
	}
	for i, c := range codes {
		if c.ID != int64(i+1) {
			t.Fatalf("codes[%d].ID = %d, out of order", i, c.ID)
		}
	}
}

func TestSettings_FeatureSettingsRefreshFlags(t *testing.T) {
	svc, mock, c := setupService(t)
	mock.SetResponse("GET /admin/settings", testutil.NewEnvelopeResponse(map[string]any{
		"site_name":                       "Admin",
		"ops_monitoring_enabled":          false,
		"ops_realtime_monitoring_enabled": true,
		"ops_query_mode_default":          "raw",
	}))

	if err := c.Flags().Refresh(context.Background(), svc.Settings, true); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	flags := c.Flags()
	if flags.OpsMonitoringEnabled() || !flags.OpsRealtimeMonitoringEnabled() || flags.OpsQueryModeDefault() != "raw" {
		t.Errorf("flags = %v/%v/%q", flags.OpsMonitoringEnabled(), flags.OpsRealtimeMonitoringEnabled(), flags.OpsQueryModeDefault())
	}
}

func TestAuth_LoginLogout(t *testing.T) {
	svc, mock, c := setupService(t)
	ctx := context.Background()

	mock.SetResponse("POST /auth/login", testutil.NewEnvelopeResponse(map[string]any{
		"access_token": "jwt-123",
		"token_type":   "Bearer",
		"user":         map[string]any{"id": 1, "email": "admin@example.com", "role": "admin"},
	}))
	mock.SetResponse("GET /admin/settings", testutil.NewEnvelopeResponse(map[string]any{}))

	resp, err := svc.Auth.Login(ctx, "admin@example.com", "secret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if resp.AccessToken != "jwt-123" || c.Session().Token() != "jwt-123" {
		t.Errorf("token = %q / session %q", resp.AccessToken, c.Session().Token())
	}

	if _, err := svc.Settings.Get(ctx); err != nil {
		t.Fatalf("Get settings failed: %v", err)
	}
	if h := mock.GetLastRequestHeader().Get("Authorization"); h != "Bearer jwt-123" {
		t.Errorf("Authorization after login = %q", h)
	}

	if err := svc.Auth.Logout(ctx); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if c.Session().Token() != "" {
		t.Error("token kept after Logout")
	}
}

func TestAuth_LoginRejected(t *testing.T) {
	svc, mock, c := setupService(t)
	mock.SetResponse("POST /auth/login", testutil.MockResponse{
		StatusCode: http.StatusUnauthorized,
		Body:       `{"code":"INVALID_CREDENTIALS","message":"invalid email or password"}`,
	})

	_, err := svc.Auth.Login(context.Background(), "admin@example.com", "wrong")
	if !client.IsKind(err, client.KindHTTP) {
		t.Fatalf("err = %v, want a plain http error", err)
	}
	if c.Session().ConsumeExpired(context.Background()) {
		t.Error("a rejected login must not mark the session expired")
	}
}

func TestAuth_LoginWithoutToken(t *testing.T) {
	svc, mock, _ := setupService(t)
	mock.SetResponse("POST /auth/login", testutil.NewEnvelopeResponse(map[string]any{"user": nil}))

	if _, err := svc.Auth.Login(context.Background(), "a", "b"); !errors.Is(err, ErrNoToken) {
		t.Errorf("err = %v, want ErrNoToken", err)
	}
}
