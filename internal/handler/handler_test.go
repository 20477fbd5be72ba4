package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"colab-review-server/internal/domain"
	"colab-review-server/internal/middleware"
	"colab-review-server/pkg/response"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testServer struct {
	router    *mux.Router
	docs      *fakeDocumentService
	revisions *fakeRevisionService
}

func newTestServer() *testServer {
	resolver := &fakeResolver{orgs: map[string]string{"u1": "eng", "u2": "ops"}}
	docs := newFakeDocumentService()
	revisions := &fakeRevisionService{}
	logger := zap.NewNop()

	documentHandler := NewDocumentHandler(docs, resolver, logger)
	revisionHandler := NewRevisionHandler(revisions, docs, resolver, logger)
	organizationHandler := NewOrganizationHandler(resolver, logger)

	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := r.Header.Get("X-Test-User")
			if userID == "" {
				next.ServeHTTP(w, r)
				return
			}
			sess := &domain.Session{User: &domain.User{ID: userID}}
			next.ServeHTTP(w, r.WithContext(middleware.WithSession(r.Context(), sess)))
		})
	})

	api.HandleFunc("/organization", organizationHandler.Get).Methods("GET")
	api.HandleFunc("/documents", documentHandler.List).Methods("GET")
	api.HandleFunc("/documents", documentHandler.Create).Methods("POST")
	api.HandleFunc("/documents/{id}", documentHandler.Get).Methods("GET")
	api.HandleFunc("/documents/{id}", documentHandler.Update).Methods("PUT")
	api.HandleFunc("/documents/{id}/revisions", revisionHandler.List).Methods("GET")
	api.HandleFunc("/documents/{id}/revisions", revisionHandler.Submit).Methods("POST")

	return &testServer{router: r, docs: docs, revisions: revisions}
}

func (s *testServer) do(t *testing.T, method, path, user, body string) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var resp response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func decodeData(t *testing.T, resp response.Response, v interface{}) {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, v))
}

func TestOrganizationHandler(t *testing.T) {
	s := newTestServer()

	rec, resp := s.do(t, http.MethodGet, "/api/v1/organization", "u1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"org_id": "eng"}, resp.Data)

	rec, _ = s.do(t, http.MethodGet, "/api/v1/organization", "stranger", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/v1/organization", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDocumentHandlers(t *testing.T) {
	s := newTestServer()

	rec, _ := s.do(t, http.MethodPost, "/api/v1/documents", "u1", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, resp := s.do(t, http.MethodPost, "/api/v1/documents", "u1", `{"title":"Design","content":"draft"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created domain.Document
	decodeData(t, resp, &created)
	assert.Equal(t, "eng", created.OrgID)

	s.do(t, http.MethodPost, "/api/v1/documents", "u2", `{"title":"Runbook"}`)

	rec, resp = s.do(t, http.MethodGet, "/api/v1/documents", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []domain.Document
	decodeData(t, resp, &listed)
	require.Len(t, listed, 2)
	assert.Equal(t, "Design", listed[0].Title)
	assert.Equal(t, "New Document 1", listed[1].Title)

	rec, _ = s.do(t, http.MethodGet, "/api/v1/documents/"+created.ID, "u2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "documents of other organizations are invisible")

	rec, _ = s.do(t, http.MethodPut, "/api/v1/documents/"+created.ID, "u1", `{"title":"","content":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, resp = s.do(t, http.MethodPut, "/api/v1/documents/"+created.ID, "u1", `{"title":"Design v2","content":"final"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated domain.Document
	decodeData(t, resp, &updated)
	assert.Equal(t, "final", updated.Content)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
}

func TestRevisionHandlers(t *testing.T) {
	s := newTestServer()

	_, resp := s.do(t, http.MethodPost, "/api/v1/documents", "u1", `{"title":"Design"}`)
	var doc domain.Document
	decodeData(t, resp, &doc)
	path := "/api/v1/documents/" + doc.ID + "/revisions"

	rec, _ := s.do(t, http.MethodPost, path, "u1", `{"status":"merged"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, http.MethodPost, path, "u2", `{"status":"approved"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 0, s.revisions.count())

	rec, resp = s.do(t, http.MethodPost, path, "u1", `{"comments":""}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var rev domain.Revision
	decodeData(t, resp, &rev)
	assert.Equal(t, domain.RevisionStatusPending, rev.Status)
	assert.Equal(t, "u1", rev.ReviewerID)

	rec, resp = s.do(t, http.MethodGet, path, "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history domain.RevisionHistory
	decodeData(t, resp, &history)
	require.Len(t, history.Revisions, 1)
	assert.Equal(t, "Ada", history.Names["u1"])
}
