package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/bakery_backend/config"
	"bitbucket.org/mmdatafocus/bakery_backend/middlewares"
	"bitbucket.org/mmdatafocus/bakery_backend/models"
	"bitbucket.org/mmdatafocus/bakery_backend/utils"
	"bitbucket.org/mmdatafocus/bakery_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	users  *workflow.Users
	access *workflow.AccessPolicy
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	db, err := config.OpenSQLite("file::memory:")
	require.NoError(t, err)
	require.NoError(t, models.MigrateTable(db))
	require.NoError(t, models.SeedRights(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	tokens := utils.NewTokenIssuer("test-secret", time.Hour)
	access := workflow.NewAccessPolicy(db, nil, time.Minute, logger)
	policy := config.Policy{}
	h := &Handler{
		Users:        workflow.NewUsers(db, logger, access, tokens),
		Catalog:      workflow.NewCatalog(db, logger, policy, utils.NewLocalPhotoStore(t.TempDir(), "/uploads")),
		Production:   workflow.NewProductionScaler(db, logger, policy),
		Reservations: workflow.NewReservationLifecycle(db, logger, policy),
		Outbox:       workflow.NewOutboxOps(db, logger),
		Logger:       logger,
	}

	r := gin.New()
	r.Use(middlewares.CorrelationMiddleware())
	r.Use(middlewares.AuthMiddleware(tokens, access, logger))
	h.Register(r.Group("/api"))
	return &testServer{router: r, db: db, users: h.Users, access: access}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return s.send(t, req, token)
}

func (s *testServer) send(t *testing.T, req *http.Request, token string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	var resp Response
	if bytes.HasPrefix(bytes.TrimSpace(w.Body.Bytes()), []byte("{")) {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

// signUp registers through the API, optionally grants admin, and logs in.
func (s *testServer) signUp(t *testing.T, name, phone string, admin bool) string {
	t.Helper()
	email := name + "@example.ro"
	w, _ := s.do(t, http.MethodPost, "/api/users/register", "", gin.H{
		"name": name, "email": email, "password": "secret1", "confirm_password": "secret1", "phone": phone,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	if admin {
		user, err := models.FetchUserByEmail(s.db, email)
		require.NoError(t, err)
		require.NoError(t, s.access.GrantRight(t.Context(), user.ID, workflow.RoleAdmin))
	}

	w, resp := s.do(t, http.MethodPost, "/api/users/login", "", gin.H{"email": email, "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.True(t, resp.Success)
	token := w.Header().Get(middlewares.AuthTokenHeader)
	require.NotEmpty(t, token)
	return token
}

func dataMap(t *testing.T, resp Response) map[string]interface{} {
	t.Helper()
	m, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "data is %T", resp.Data)
	return m
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 400, 300))))
	return buf.Bytes()
}

func TestStatusForMapsEveryKind(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{utils.Unauthorized("x"), http.StatusUnauthorized},
		{utils.Forbidden("x"), http.StatusForbidden},
		{utils.NotFound("x"), http.StatusNotFound},
		{utils.Validation("x"), http.StatusBadRequest},
		{utils.OutOfStock("x"), http.StatusConflict},
		{&utils.InsufficientStockError{}, http.StatusUnprocessableEntity},
		{utils.NewError(utils.ErrInsufficientStock, "x"), http.StatusUnprocessableEntity},
		{utils.Conflict("x"), http.StatusConflict},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		status, _ := StatusFor(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
	}
}

func TestBakeryFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	admin := s.signUp(t, "admin", "0722000001", true)
	customer := s.signUp(t, "ana", "0722000002", false)

	// cake with an uploaded photo
	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	for k, v := range map[string]string{"name": "Savarina", "description": "syrup soaked", "price": "25", "kcal": "320", "grams_per_piece": "250"} {
		require.NoError(t, mw.WriteField(k, v))
	}
	part, err := mw.CreateFormFile("photo", "savarina.png")
	require.NoError(t, err)
	_, err = part.Write(pngBytes(t))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/cakes", &form)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w, resp := s.send(t, req, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	cake := dataMap(t, resp)
	cakeId := int(cake["id"].(float64))
	assert.Equal(t, "100", cake["price_per_kg"])
	assert.Contains(t, cake["photo"], "/uploads/cakes/")

	w, resp = s.do(t, http.MethodPost, "/api/ingredients", admin, gin.H{"name": "flour", "unit": "g"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	flourId := int(dataMap(t, resp)["id"].(float64))

	w, _ = s.do(t, http.MethodPut, pathf("/api/cakes/%d/recipe/%d", cakeId, flourId), admin, gin.H{"quantity": "100"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// not enough flour yet
	w, resp = s.do(t, http.MethodPost, pathf("/api/cakes/%d/produce", cakeId), admin, gin.H{"batch_size": 3})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "insufficient_stock", resp.Code)
	shortages, ok := resp.Data.([]interface{})
	require.True(t, ok)
	assert.Len(t, shortages, 1)

	w, _ = s.do(t, http.MethodPost, pathf("/api/ingredients/%d/increase", flourId), admin, gin.H{"amount": "300"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w, resp = s.do(t, http.MethodPost, pathf("/api/cakes/%d/produce", cakeId), admin, gin.H{"batch_size": 3})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 3, dataMap(t, resp)["cake"].(map[string]interface{})["total_quantity"])

	// customers cannot produce
	w, resp = s.do(t, http.MethodPost, pathf("/api/cakes/%d/produce", cakeId), customer, gin.H{"batch_size": 1})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", resp.Code)

	w, resp = s.do(t, http.MethodPost, "/api/reservations", customer, gin.H{"cake_id": cakeId, "quantity": 2, "date": "2026-10-20"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reservationId := int(dataMap(t, resp)["id"].(float64))

	w, resp = s.do(t, http.MethodPost, "/api/reservations", customer, gin.H{"cake_id": cakeId, "quantity": 2})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, resp = s.do(t, http.MethodGet, "/api/cakes/available", customer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	menu := resp.Data.([]interface{})
	require.Len(t, menu, 1)
	assert.EqualValues(t, 1, menu[0].(map[string]interface{})["total_quantity"])

	w, _ = s.do(t, http.MethodDelete, pathf("/api/cakes/%d", cakeId), admin, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = s.do(t, http.MethodPut, pathf("/api/reservations/%d/status", reservationId), admin, gin.H{"status": "picked_up"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w, resp = s.do(t, http.MethodPut, pathf("/api/reservations/%d/status", reservationId), admin, gin.H{"status": "cancelled"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_error", resp.Code)

	w, _ = s.do(t, http.MethodGet, "/api/reports/bought-cakes/export", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "bought-cakes-")

	w, resp = s.do(t, http.MethodGet, "/api/reports/bought-cakes/mine", customer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, resp.Data, 1)
}

func TestReservationOnEmptyCakeIsOutOfStock(t *testing.T) {
	s := newTestServer(t)
	admin := s.signUp(t, "admin", "0722000001", true)
	customer := s.signUp(t, "ana", "0722000002", false)

	w, resp := s.do(t, http.MethodPost, "/api/cakes", admin, gin.H{
		"name": "Ecler", "description": "choux", "price": "8", "kcal": "250", "grams_per_piece": 80,
		"photo": "https://cdn.example.ro/ecler.png",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	cakeId := int(dataMap(t, resp)["id"].(float64))

	w, resp = s.do(t, http.MethodPost, "/api/reservations", customer, gin.H{"cake_id": cakeId, "quantity": 1})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "out_of_stock", resp.Code)
	assert.False(t, resp.Success)
}

func TestAuthAndInputErrors(t *testing.T) {
	s := newTestServer(t)
	customer := s.signUp(t, "ana", "0722000002", false)

	w, resp := s.do(t, http.MethodGet, "/api/cakes", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", resp.Code)

	w, _ = s.do(t, http.MethodGet, "/api/cakes", customer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/cakes/abc", customer, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = s.do(t, http.MethodGet, "/api/cakes/42", customer, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, resp = s.do(t, http.MethodPost, "/api/users/login", "", gin.H{"email": "ana@example.ro", "password": "wrong12"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, w.Header().Get(middlewares.AuthTokenHeader))

	w, resp = s.do(t, http.MethodGet, "/api/users/me", customer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ana@example.ro", dataMap(t, resp)["email"])
	_, hasPassword := dataMap(t, resp)["password"]
	assert.False(t, hasPassword)

	w, resp = s.do(t, http.MethodGet, "/api/rights", customer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, resp.Data, 1)
}

func TestOutboxOpsOverHTTP(t *testing.T) {
	s := newTestServer(t)
	admin := s.signUp(t, "admin", "0722000001", true)
	customer := s.signUp(t, "ana", "0722000002", false)

	require.NoError(t, models.WriteOutboxEvent(t.Context(), s.db, models.EventTypeCakeProduced, "cake", 1, gin.H{"cake_id": 1}))
	require.NoError(t, s.db.Model(&models.OutboxRecord{}).Where("aggregate_id = ?", 1).
		Update("publish_status", models.OutboxPublishStatusDead).Error)

	w, _ := s.do(t, http.MethodGet, "/api/ops/outbox", customer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = s.do(t, http.MethodGet, "/api/ops/outbox?status=LOST", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp := s.do(t, http.MethodGet, "/api/ops/outbox", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	records, ok := resp.Data.([]interface{})
	require.True(t, ok)
	require.Len(t, records, 1)
	recordId := int(records[0].(map[string]interface{})["id"].(float64))

	w, resp = s.do(t, http.MethodPost, pathf("/api/ops/outbox/%d/replay", recordId), admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.OutboxPublishStatusFailed, dataMap(t, resp)["publish_status"])

	w, resp = s.do(t, http.MethodPost, pathf("/api/ops/outbox/%d/replay", recordId), admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodPost, "/api/ops/outbox/999/replay", admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func pathf(format string, args ...interface{}) string {
	return fmt.Sprintf(format, args...)
}
