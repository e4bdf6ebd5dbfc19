package router

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/franciscosanchezn/gin-food-delivery-api/internal/auth"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/config"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/lifecycle"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/metrics"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/models"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/services"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/store/storetest"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/upload"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)

func init() {
	gin.SetMode(gin.TestMode)
}

type testAPI struct {
	t      *testing.T
	router *gin.Engine
}

func setupAPI(t *testing.T) *testAPI {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	cfg := &config.Config{
		UploadDir:         filepath.Join(t.TempDir(), "images"),
		MaxUploadMB:       1,
		CORSAllowedOrigin: "*",
		AdminAPIPrefix:    "/api/v1",
		UserAPIPrefix:     "/api/v2",
		RiderAPIPrefix:    "/api/v3",
		GeneralAPIPrefix:  "/api",
	}
	s := storetest.NewSQLite(t)
	tokens := auth.NewTokenManager("router-test-secret", time.Hour)
	collectors := metrics.New()
	uploads, err := upload.NewStorage(cfg.UploadDir, int64(cfg.MaxUploadMB)<<20, log)
	require.NoError(t, err)

	router, err := New(Dependencies{
		Config:   cfg,
		Accounts: services.NewAccountService(s, tokens, log),
		Catalog:  services.NewCatalogService(s, log),
		Engine:   lifecycle.NewEngine(s, collectors, log),
		Uploads:  uploads,
		Tokens:   tokens,
		Metrics:  collectors,
		Log:      log,
	})
	require.NoError(t, err)
	return &testAPI{t: t, router: router}
}

func (a *testAPI) do(req *http.Request, token string) (int, map[string]interface{}) {
	a.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var body map[string]interface{}
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(w.Body.Bytes(), &body)
	}
	return w.Code, body
}

func (a *testAPI) json(method, path, token string, payload interface{}) (int, map[string]interface{}) {
	a.t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(a.t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	return a.do(req, token)
}

func (a *testAPI) multipart(path, token string, fields map[string]string, fileField string, files ...[]byte) (int, map[string]interface{}) {
	a.t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(a.t, w.WriteField(k, v))
	}
	for i, content := range files {
		part, err := w.CreateFormFile(fileField, "image-"+strconv.Itoa(i)+".png")
		require.NoError(a.t, err)
		_, err = part.Write(content)
		require.NoError(a.t, err)
	}
	require.NoError(a.t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return a.do(req, token)
}

func data(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	d, ok := body["data"].(map[string]interface{})
	require.True(t, ok, "response has no data object: %v", body)
	return d
}

func account(email, tel string) map[string]string {
	return map[string]string{
		"email":     email,
		"firstname": "Test",
		"lastname":  "Account",
		"tel":       tel,
		"address":   "1 Main Street",
		"password":  "password123",
	}
}

func (a *testAPI) adminToken() string {
	a.t.Helper()
	status, body := a.multipart("/api/v1/signup", "", account("admin@example.com", "5550000"), "photo", pngBytes)
	require.Equal(a.t, http.StatusCreated, status, body)

	status, body = a.json(http.MethodPost, "/api/v1/login", "", map[string]string{
		"email": "admin@example.com", "password": "password123",
	})
	require.Equal(a.t, http.StatusOK, status, body)
	assert.NotContains(a.t, body["adminDetails"], "password")
	return body["adminToken"].(string)
}

func (a *testAPI) userToken() string {
	a.t.Helper()
	status, body := a.json(http.MethodPost, "/api/v2/signup", "", account("user@example.com", "5550001"))
	require.Equal(a.t, http.StatusCreated, status, body)

	status, body = a.json(http.MethodPost, "/api/v2/login", "", map[string]string{
		"email": "user@example.com", "password": "password123",
	})
	require.Equal(a.t, http.StatusOK, status, body)
	return body["userToken"].(string)
}

func (a *testAPI) approvedRiderToken(adminToken string) string {
	a.t.Helper()
	status, body := a.json(http.MethodPost, "/api/v3/signup", "", account("rider@example.com", "5550002"))
	require.Equal(a.t, http.StatusCreated, status, body)

	login := map[string]string{"email": "rider@example.com", "password": "password123"}
	status, body = a.json(http.MethodPost, "/api/v3/login", "", login)
	require.Equal(a.t, http.StatusNotAcceptable, status, body)
	assert.Equal(a.t, "1103", body["code"])

	status, body = a.json(http.MethodGet, "/api/v1/pending-riders", adminToken, nil)
	require.Equal(a.t, http.StatusOK, status, body)
	riders := data(a.t, body)["riders"].([]interface{})
	require.Len(a.t, riders, 1)
	riderID := riders[0].(map[string]interface{})["id"].(string)

	status, body = a.json(http.MethodPut, "/api/v1/approve-rider", adminToken, map[string]string{"riderId": riderID})
	require.Equal(a.t, http.StatusCreated, status, body)

	status, body = a.json(http.MethodPost, "/api/v3/login", "", login)
	require.Equal(a.t, http.StatusOK, status, body)
	return data(a.t, body)["riderToken"].(string)
}

func (a *testAPI) createFood(adminToken string, stock int) string {
	a.t.Helper()
	status, body := a.multipart("/api/v1/create-food", adminToken, map[string]string{
		"name":               "margherita",
		"category":           "Pizza",
		"stock":              strconv.Itoa(stock),
		"priceInCents":       "1250",
		"discountPercentage": "0",
	}, "images[]", pngBytes)
	require.Equal(a.t, http.StatusCreated, status, body)
	food := data(a.t, body)
	assert.Equal(a.t, "pizza", food["category"])
	return food["id"].(string)
}

func TestOrderToDeliveryFlow(t *testing.T) {
	api := setupAPI(t)
	admin := api.adminToken()
	user := api.userToken()
	rider := api.approvedRiderToken(admin)
	foodID := api.createFood(admin, 3)

	status, body := api.json(http.MethodPost, "/api/v2/create-order", user, map[string]interface{}{
		"foodId": foodID, "quantity": 2, "deliveryAddress": "221B Baker Street",
	})
	require.Equal(t, http.StatusCreated, status, body)
	created := data(t, body)
	orderID := created["order"].(map[string]interface{})["id"].(string)
	deliveryID := created["delivery"].(map[string]interface{})["id"].(string)
	assert.Equal(t, float64(1250), created["order"].(map[string]interface{})["pricePaidInCents"])

	status, body = api.json(http.MethodGet, "/api/food/"+foodID, "", nil)
	require.Equal(t, http.StatusOK, status, body)
	food := data(t, body)["food"].(map[string]interface{})
	assert.Equal(t, float64(1), food["stock"])
	assert.NotContains(t, food, "createdBy")

	status, body = api.json(http.MethodPost, "/api/v2/create-order", user, map[string]interface{}{
		"foodId": foodID, "quantity": 2, "deliveryAddress": "221B Baker Street",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "1202", body["code"])

	// an UNAVAILABLE rider cannot pick up
	status, body = api.json(http.MethodPost, "/api/v3/pickup-delivery/"+deliveryID, rider, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "1302", body["code"])

	status, body = api.json(http.MethodPost, "/api/v3/update-availability/1", rider, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "AVAILABLE", data(t, body)["availability"])

	status, body = api.json(http.MethodGet, "/api/v3/available-deliveries", rider, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Len(t, data(t, body)["deliveries"], 1)

	status, body = api.json(http.MethodPost, "/api/v3/pickup-delivery/"+deliveryID, rider, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "DISPATCHED", data(t, body)["delivery"].(map[string]interface{})["status"])

	status, body = api.json(http.MethodPost, "/api/v3/update-availability/0", rider, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "1303", body["code"])

	status, body = api.json(http.MethodPost, "/api/v3/confirm-delivery/"+deliveryID, rider, nil)
	require.Equal(t, http.StatusOK, status, body)

	status, body = api.json(http.MethodPost, "/api/v3/report-delivery-failure/"+deliveryID, rider, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "1304", body["code"])

	status, body = api.json(http.MethodGet, "/api/v2/delivery-status/"+deliveryID, user, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "DELIVERED", data(t, body)["delivery"].(map[string]interface{})["status"])

	status, body = api.json(http.MethodGet, "/api/v3/get-rider", rider, nil)
	require.Equal(t, http.StatusOK, status, body)
	details := body["riderDetails"].(map[string]interface{})
	assert.Equal(t, "AVAILABLE", details["availability"])
	assert.Equal(t, float64(1), details["deliveries"])

	status, body = api.json(http.MethodGet, "/api/v2/get-order?id="+orderID, user, nil)
	require.Equal(t, http.StatusOK, status, body)

	status, body = api.json(http.MethodGet, "/api/v2/get-orders", user, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "user orders successfully retrieved", body["message"])
	assert.Len(t, body["data"], 1)
}

func TestAuthentication(t *testing.T) {
	api := setupAPI(t)
	user := api.userToken()

	tests := []struct {
		name  string
		path  string
		token string
	}{
		{"missing token", "/api/v2/get-user", ""},
		{"garbage token", "/api/v2/get-user", "not-a-token"},
		{"user token on admin routes", "/api/v1/get-admin", user},
		{"user token on rider routes", "/api/v3/get-rider", user},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := api.json(http.MethodGet, tt.path, tt.token, nil)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, "Cannot verify token. token is invalid or expired", body["message"])
		})
	}

	status, body := api.json(http.MethodGet, "/api/v2/get-user", user, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "user@example.com", body["userDetails"].(map[string]interface{})["email"])
}

func TestRequestValidation(t *testing.T) {
	api := setupAPI(t)
	user := api.userToken()

	status, body := api.json(http.MethodPost, "/api/v2/create-order", user, map[string]interface{}{
		"foodId": "short", "quantity": 0, "deliveryAddress": "x",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "1000", body["code"])
	assert.ElementsMatch(t, []interface{}{
		"'foodId' field must be a 24 character id",
		"'quantity' field is required",
		"'deliveryAddress' field value is too short. Must be 3 characters or more",
	}, body["details"])

	status, body = api.json(http.MethodPost, "/api/v2/signup", "", account("user@example.com", "5559999"))
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "1100", body["code"])

	status, body = api.json(http.MethodGet, "/api/v2/delivery-status/"+models.NewID(), user, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "1204", body["code"])
}

func TestCreateFood_RejectsUploads(t *testing.T) {
	api := setupAPI(t)
	admin := api.adminToken()
	fields := map[string]string{"name": "calzone", "category": "pizza", "stock": "4", "priceInCents": "900"}

	status, body := api.multipart("/api/v1/create-food", admin, fields, "images[]")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "1208", body["code"])

	status, body = api.multipart("/api/v1/create-food", admin, fields, "images[]", []byte("definitely not an image"))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "ADERFL1001", body["code"])
	assert.Equal(t, "FILE", body["type"])
}

func TestCatalogAdministration(t *testing.T) {
	api := setupAPI(t)
	admin := api.adminToken()
	foodID := api.createFood(admin, 1)

	status, body := api.json(http.MethodPut, "/api/v1/update-food/"+foodID, admin, map[string]interface{}{
		"restock": 4, "priceInCents": 1400,
	})
	require.Equal(t, http.StatusOK, status, body)
	food := data(t, body)
	assert.Equal(t, float64(5), food["stock"])
	assert.Equal(t, float64(1400), food["priceInCents"])

	status, body = api.json(http.MethodGet, "/api/get-foods?page=-0&limit=-5", "", nil)
	require.Equal(t, http.StatusOK, status, body)
	page := data(t, body)
	assert.Equal(t, float64(5), page["limit"])
	assert.Len(t, page["foods"], 1)

	status, _ = api.json(http.MethodDelete, "/api/v1/delete-food?id="+foodID, admin, nil)
	require.Equal(t, http.StatusOK, status)

	status, body = api.json(http.MethodDelete, "/api/v1/delete-food?id="+foodID, admin, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "1201", body["code"])
}

func TestInfrastructureRoutes(t *testing.T) {
	api := setupAPI(t)

	status, body := api.json(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])

	status, body = api.json(http.MethodGet, "/no/such/route", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, map[string]interface{}{"status": "error", "message": "route not found"}, body)

	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "food_delivery_http_requests_total")
}
