package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tourista/backend/internal/logging"
	"github.com/tourista/backend/internal/metrics"
	"github.com/tourista/backend/internal/models"
	"github.com/tourista/backend/internal/services"
)

const phone = "1234567890"

type testServer struct {
	router    http.Handler
	store     services.ProfileStore
	collector *metrics.Collector
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithStore(t, services.NewMemoryProfileStore())
}

func newTestServerWithStore(t *testing.T, store services.ProfileStore) *testServer {
	t.Helper()
	collector, err := metrics.NewCollector(metrics.PhoneLabelRaw)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	svc := services.NewProfileService(store, collector)
	return &testServer{
		router:    NewRouter(svc, collector, RouterConfig{RequestTimeout: 5 * time.Second}),
		store:     store,
		collector: collector,
	}
}

func (s *testServer) do(t *testing.T, method, path, body string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec.Code, rec.Body.Bytes()
}

func (s *testServer) seed(t *testing.T, field string, value any) {
	t.Helper()
	if _, err := s.store.SetField(context.Background(), phone, field, value); err != nil {
		t.Fatalf("seed %s: %v", field, err)
	}
}

func decode(t *testing.T, raw []byte) any {
	t.Helper()
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("response is not JSON: %v (%q)", err, raw)
	}
	return v
}

func message(m string) any {
	return map[string]any{"message": m}
}

func assertResponse(t *testing.T, gotStatus int, gotBody []byte, wantStatus int, wantBody any) {
	t.Helper()
	if gotStatus != wantStatus {
		t.Errorf("status = %d, want %d (body %s)", gotStatus, wantStatus, gotBody)
	}
	if got := decode(t, gotBody); !reflect.DeepEqual(got, wantBody) {
		t.Errorf("body = %#v, want %#v", got, wantBody)
	}
}

func TestGetUserPlaces_ExistingUser(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, models.FieldPlaces, []any{
		map[string]any{"title": "Place 1"},
		map[string]any{"title": "Place 2"},
	})

	status, body := s.do(t, http.MethodGet, "/api/users/"+phone+"/places", "")
	assertResponse(t, status, body, http.StatusOK, []any{
		map[string]any{"title": "Place 1"},
		map[string]any{"title": "Place 2"},
	})
}

func TestGetUserPlaces_UserNotFound(t *testing.T) {
	s := newTestServer(t)
	status, body := s.do(t, http.MethodGet, "/api/users/"+phone+"/places", "")
	assertResponse(t, status, body, http.StatusNotFound, message("User not found"))
}

func TestGetUserPlaces_UserWithoutPlaces(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, models.FieldLanguage, "en")

	status, body := s.do(t, http.MethodGet, "/api/users/"+phone+"/places", "")
	assertResponse(t, status, body, http.StatusOK, []any{})
}

func TestUpdateUserPlaces(t *testing.T) {
	s := newTestServer(t)
	path := "/api/users/" + phone + "/places"

	status, body := s.do(t, http.MethodPatch, path, `{"places": [{"title": "Place 1"}, {"title": "Place 2"}]}`)
	assertResponse(t, status, body, http.StatusCreated, message("New user created successfully"))

	status, body = s.do(t, http.MethodPatch, path, `{"places": [{"title": "Place 3"}]}`)
	assertResponse(t, status, body, http.StatusOK, message("Places updated successfully"))
}

func TestPlacesFullReplaceScenario(t *testing.T) {
	s := newTestServer(t)
	path := "/api/users/5550001/places"

	status, body := s.do(t, http.MethodPost, path, `{"places":["P1","P2"]}`)
	assertResponse(t, status, body, http.StatusCreated, message("New user created successfully"))

	status, body = s.do(t, http.MethodPatch, path, `{"places":["P3"]}`)
	assertResponse(t, status, body, http.StatusOK, message("Places updated successfully"))

	status, body = s.do(t, http.MethodGet, path, "")
	assertResponse(t, status, body, http.StatusOK, []any{"P3"})
}

func TestUpdateUserPlaces_InvalidData(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing places", `{"place": []}`},
		{"places not a list", `{"places": "Paris"}`},
		{"places null", `{"places": null}`},
		{"not json", `places=Paris`},
		{"empty body", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			status, body := s.do(t, http.MethodPatch, "/api/users/"+phone+"/places", tt.body)
			assertResponse(t, status, body, http.StatusBadRequest, message("Invalid data"))

			if _, err := s.store.FindByPhone(context.Background(), phone); !errors.Is(err, services.ErrUserNotFound) {
				t.Errorf("invalid write created a profile: %v", err)
			}
		})
	}
}

func TestGetUserLocation(t *testing.T) {
	s := newTestServer(t)
	path := "/api/users/" + phone + "/location"

	status, body := s.do(t, http.MethodGet, path, "")
	assertResponse(t, status, body, http.StatusNotFound, message("User not found or location not available"))

	s.seed(t, models.FieldInterest, "art")
	status, body = s.do(t, http.MethodGet, path, "")
	assertResponse(t, status, body, http.StatusNotFound, message("User not found or location not available"))

	s.seed(t, models.FieldLocation, models.Location{Lat: 40.7128, Long: -74.006, StreetAddress: "New York City, NY"})
	status, body = s.do(t, http.MethodGet, path, "")
	assertResponse(t, status, body, http.StatusOK, map[string]any{
		"lat":            40.7128,
		"long":           -74.006,
		"street_address": "New York City, NY",
	})
}

func TestUpdateUserLocation(t *testing.T) {
	s := newTestServer(t)
	path := "/api/users/" + phone + "/location"
	payload := `{"location": {"lat": 40.7128, "long": -74.0060, "street_address": "New York City, NY"}}`

	status, body := s.do(t, http.MethodPatch, path, payload)
	assertResponse(t, status, body, http.StatusOK, message("New user created successfully"))

	status, body = s.do(t, http.MethodPatch, path, payload)
	assertResponse(t, status, body, http.StatusOK, message("Location updated successfully"))
}

func TestUpdateUserLocation_InvalidLeavesExisting(t *testing.T) {
	s := newTestServer(t)
	path := "/api/users/" + phone + "/location"
	s.seed(t, models.FieldLocation, models.Location{Lat: 1, Long: 2, StreetAddress: "Main St"})

	for _, payload := range []string{
		`{"location": {"lat": 5, "long": 6}}`,
		`{"location": {"lat": "north", "long": 6, "street_address": "x"}}`,
		`{"location": "Paris"}`,
		`{}`,
	} {
		status, body := s.do(t, http.MethodPatch, path, payload)
		assertResponse(t, status, body, http.StatusBadRequest, message("Invalid data"))
	}

	status, body := s.do(t, http.MethodGet, path, "")
	assertResponse(t, status, body, http.StatusOK, map[string]any{
		"lat": 1.0, "long": 2.0, "street_address": "Main St",
	})
}

func TestRemoveTopmostPlace(t *testing.T) {
	s := newTestServer(t)
	path := "/api/users/" + phone + "/places/remove"

	status, body := s.do(t, http.MethodPatch, path, "")
	assertResponse(t, status, body, http.StatusNotFound, message("User not found"))

	s.seed(t, models.FieldInterest, "food")
	status, body = s.do(t, http.MethodPatch, path, "")
	assertResponse(t, status, body, http.StatusBadRequest, message("No places found for the user or places list is empty"))

	s.seed(t, models.FieldPlaces, []any{"A", "B", "C"})
	status, body = s.do(t, http.MethodPatch, path, "")
	assertResponse(t, status, body, http.StatusOK, map[string]any{"place": "A"})

	status, body = s.do(t, http.MethodGet, "/api/users/"+phone+"/places", "")
	assertResponse(t, status, body, http.StatusOK, []any{"B", "C"})
}

func TestRemovePlaceByName(t *testing.T) {
	s := newTestServer(t)
	base := "/api/users/" + phone + "/places/remove/"

	status, body := s.do(t, http.MethodPatch, base+"B", "")
	assertResponse(t, status, body, http.StatusNotFound, message("User not found"))

	s.seed(t, models.FieldPlaces, []any{
		map[string]any{"title": "A"},
		map[string]any{"title": "B"},
		map[string]any{"title": "Eiffel Tower"},
	})

	status, body = s.do(t, http.MethodPatch, base+"B", "")
	assertResponse(t, status, body, http.StatusOK, message("Place 'B' removed successfully"))

	status, body = s.do(t, http.MethodPatch, base+"B", "")
	assertResponse(t, status, body, http.StatusNotFound, message("Place 'B' not found"))

	status, body = s.do(t, http.MethodPatch, base+"Eiffel%20Tower", "")
	assertResponse(t, status, body, http.StatusOK, message("Place 'Eiffel Tower' removed successfully"))

	status, body = s.do(t, http.MethodGet, "/api/users/"+phone+"/places", "")
	assertResponse(t, status, body, http.StatusOK, []any{map[string]any{"title": "A"}})

	s.seed(t, models.FieldPlaces, []any{})
	status, body = s.do(t, http.MethodPatch, base+"A", "")
	assertResponse(t, status, body, http.StatusBadRequest, message("No places found for the user or places list is empty"))
}

func TestChatHistory(t *testing.T) {
	s := newTestServer(t)
	path := "/api/users/" + phone + "/chat_history"

	status, body := s.do(t, http.MethodGet, path, "")
	assertResponse(t, status, body, http.StatusNotFound, message("User not found or chat history not available"))

	status, body = s.do(t, http.MethodPatch, path, `{"chat_history": {"role": "user"}}`)
	assertResponse(t, status, body, http.StatusBadRequest, message("Invalid data"))

	status, body = s.do(t, http.MethodPatch, path, `{"chat_history": [{"role": "user", "content": "Best ramen nearby?"}]}`)
	assertResponse(t, status, body, http.StatusOK, message("New user created successfully"))

	status, body = s.do(t, http.MethodPatch, path, `{"chat_history": [{"role": "assistant", "content": "Try Ichiran."}]}`)
	assertResponse(t, status, body, http.StatusOK, message("Chat history updated successfully"))

	status, body = s.do(t, http.MethodGet, path, "")
	assertResponse(t, status, body, http.StatusOK, []any{
		map[string]any{"role": "assistant", "content": "Try Ichiran."},
	})
}

func TestInterestAndLanguage(t *testing.T) {
	tests := []struct {
		field       string
		notFoundMsg string
		updatedMsg  string
	}{
		{"interest", "User not found or interest not available", "Interest updated successfully"},
		{"language", "User not found or language not available", "Language updated successfully"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			s := newTestServer(t)
			path := "/api/users/" + phone + "/" + tt.field

			status, body := s.do(t, http.MethodGet, path, "")
			assertResponse(t, status, body, http.StatusNotFound, message(tt.notFoundMsg))

			status, body = s.do(t, http.MethodPost, path, `{"`+tt.field+`": 7}`)
			assertResponse(t, status, body, http.StatusBadRequest, message("Invalid data"))

			status, body = s.do(t, http.MethodPost, path, `{"`+tt.field+`": "x"}`)
			assertResponse(t, status, body, http.StatusOK, message("New user created successfully"))

			status, body = s.do(t, http.MethodPost, path, `{"`+tt.field+`": "y"}`)
			assertResponse(t, status, body, http.StatusOK, message(tt.updatedMsg))

			status, body = s.do(t, http.MethodGet, path, "")
			assertResponse(t, status, body, http.StatusOK, map[string]any{tt.field: "y"})
		})
	}
}

func TestPhoneNumberTakenVerbatim(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(t, http.MethodPost, "/api/users/+44-20-7946%200958/interest", `{"interest": "tea"}`)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if _, err := s.store.FindByPhone(context.Background(), "+44-20-7946 0958"); err != nil {
		t.Errorf("profile not stored under verbatim phone: %v", err)
	}
}

// failingStore fails every call, standing in for an unreachable database.
type failingStore struct{}

var errStoreDown = errors.New("connection refused")

func (failingStore) FindByPhone(context.Context, string) (*models.Profile, error) {
	return nil, errStoreDown
}

func (failingStore) SetField(context.Context, string, string, any) (bool, error) {
	return false, errStoreDown
}

func (failingStore) PopFirstPlace(context.Context, string) (any, error) {
	return nil, errStoreDown
}

func (failingStore) RemovePlaceByTitle(context.Context, string, string) (any, error) {
	return nil, errStoreDown
}

func (failingStore) Close(context.Context) error { return nil }

func TestStoreFailureIsInternalError(t *testing.T) {
	s := newTestServerWithStore(t, failingStore{})

	tests := []struct {
		method, path, body string
	}{
		{http.MethodGet, "/api/users/" + phone + "/places", ""},
		{http.MethodPatch, "/api/users/" + phone + "/places", `{"places": []}`},
		{http.MethodPatch, "/api/users/" + phone + "/places/remove", ""},
		{http.MethodPatch, "/api/users/" + phone + "/places/remove/A", ""},
		{http.MethodGet, "/api/users/" + phone + "/location", ""},
		{http.MethodPost, "/api/users/" + phone + "/language", `{"language": "en"}`},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			status, body := s.do(t, tt.method, tt.path, tt.body)
			assertResponse(t, status, body, http.StatusInternalServerError, message("Internal server error"))
		})
	}
}

func TestRootHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodGet, "/", "")
	if status != http.StatusOK || string(body) != "Hello, World!" {
		t.Errorf("root = %d %q", status, body)
	}
	status, body = s.do(t, http.MethodGet, "/health", "")
	if status != http.StatusOK || string(body) != "OK" {
		t.Errorf("health = %d %q", status, body)
	}

	s.do(t, http.MethodPost, "/api/users/"+phone+"/interest", `{"interest": "hiking"}`)
	status, body = s.do(t, http.MethodGet, "/metrics", "")
	if status != http.StatusOK {
		t.Fatalf("metrics status = %d", status)
	}
	for _, want := range []string{
		`tourista_operations_total{operation="update_interest",phone="1234567890"} 1`,
		`tourista_operation_duration_seconds_count{operation="update_interest",phone="1234567890"} 1`,
		`route="/api/users/{phone}/interest"`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}

func TestRateLimit(t *testing.T) {
	collector, _ := metrics.NewCollector(metrics.PhoneLabelNone)
	svc := services.NewProfileService(services.NewMemoryProfileStore(), collector)
	router := NewRouter(svc, collector, RouterConfig{RateLimit: 2})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/users/"+phone+"/interest", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("status codes = %v, want third request limited", codes)
	}
}

func TestEmptyPhoneSegmentIsNotFound(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodPatch, "/api/users//places", `{"places": ["x"]}`)
	assertResponse(t, status, body, http.StatusNotFound, message("User not found"))

	status, body = s.do(t, http.MethodPost, "/api/users//interest", `{"interest": "art"}`)
	assertResponse(t, status, body, http.StatusNotFound, message("User not found"))

	status, body = s.do(t, http.MethodGet, "/api/users//location", "")
	assertResponse(t, status, body, http.StatusNotFound, message("User not found or location not available"))

	if _, err := s.store.FindByPhone(context.Background(), ""); !errors.Is(err, services.ErrUserNotFound) {
		t.Errorf("profile stored under empty phone: %v", err)
	}
}

func TestTrailingDataAfterBodyRejected(t *testing.T) {
	s := newTestServer(t)
	path := "/api/users/" + phone + "/places"

	for _, payload := range []string{
		`{"places": []} garbage`,
		`{"places": []}{"places": ["x"]}`,
	} {
		status, body := s.do(t, http.MethodPatch, path, payload)
		assertResponse(t, status, body, http.StatusBadRequest, message("Invalid data"))
	}
	if _, err := s.store.FindByPhone(context.Background(), phone); !errors.Is(err, services.ErrUserNotFound) {
		t.Errorf("rejected body created a profile: %v", err)
	}

	status, body := s.do(t, http.MethodPatch, path, "{\"places\": []}\n")
	assertResponse(t, status, body, http.StatusCreated, message("New user created successfully"))
}

func TestWriteJSON_LogsEncodeFailure(t *testing.T) {
	var logs bytes.Buffer
	logging.Init(logging.Config{Level: "debug", Output: &logs})
	defer logging.Init(logging.Config{})

	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, map[string]any{"bad": make(chan int)})

	if !strings.Contains(logs.String(), "failed to write response body") {
		t.Errorf("encode failure not logged: %q", logs.String())
	}
}
