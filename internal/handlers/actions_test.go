package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"proclog-backend/internal/repository/mocks"
	"proclog-backend/internal/service/actions"
	"proclog-backend/pkg/api"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	repo := mocks.NewMockRepository()
	identities := mocks.NewMockIdentityStore()
	svc := actions.NewService(repo, identities, nil, nil, zap.NewNop())
	handler := NewActionHandler(svc, zap.NewNop())

	r := chi.NewRouter()
	r.Mount("/processing-actions", handler.Routes())

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func validBody() map[string]interface{} {
	return map[string]interface{}{
		"name":            "Issue permit",
		"operationName":   "Handle application",
		"processingId":    "proc-1",
		"activityId":      "act-1",
		"confidentiality": "normal",
		"occurredAt":      "2024-04-05T12:00:00Z",
		"processedObjects": []map[string]interface{}{
			{
				"objectType": "person",
				"objectKind": "BSN",
				"objectId":   "1234567",
				"dataCategories": []map[string]string{
					{"category": "name and address"},
				},
			},
		},
	}
}

func doJSON(t *testing.T, method, url string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func createAction(t *testing.T, srv *httptest.Server) map[string]interface{} {
	t.Helper()
	resp := doJSON(t, http.MethodPost, srv.URL+"/processing-actions", validBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created map[string]interface{}
	decodeBody(t, resp, &created)
	return created
}

func TestCreateAction(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/processing-actions", validBody())
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, api.Version, resp.Header.Get("API-Version"))

	var created map[string]interface{}
	decodeBody(t, resp, &created)
	assert.NotEmpty(t, created["actionId"])

	objects := created["processedObjects"].([]interface{})
	obj := objects[0].(map[string]interface{})
	assert.NotEqual(t, "1234567", obj["objectId"], "raw identifier must be pseudonymized")
	assert.NotEmpty(t, obj["syntheticId"])
}

func TestCreateActionValidation(t *testing.T) {
	srv := newTestServer(t)

	cases := []struct {
		name   string
		mutate func(map[string]interface{})
	}{
		{"MissingConfidentiality", func(b map[string]interface{}) { delete(b, "confidentiality") }},
		{"NoObjects", func(b map[string]interface{}) { b["processedObjects"] = []interface{}{} }},
		{"MissingOccurredAt", func(b map[string]interface{}) { delete(b, "occurredAt") }},
		{"BadTimestamp", func(b map[string]interface{}) { b["occurredAt"] = "yesterday" }},
		{"EmptyDataCategories", func(b map[string]interface{}) {
			obj := b["processedObjects"].([]map[string]interface{})[0]
			obj["dataCategories"] = []map[string]string{}
		}},
		{"MissingDataCategories", func(b map[string]interface{}) {
			obj := b["processedObjects"].([]map[string]interface{})[0]
			delete(obj, "dataCategories")
		}},
		{"ServerAssignedID", func(b map[string]interface{}) { b["actionId"] = "client-chosen" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := validBody()
			tc.mutate(body)
			resp := doJSON(t, http.MethodPost, srv.URL+"/processing-actions", body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))

			var problem api.Problem
			decodeBody(t, resp, &problem)
			assert.Equal(t, http.StatusBadRequest, problem.Status)
			assert.NotEmpty(t, problem.Title)
		})
	}
}

func TestCreateActionWithoutOptionalNames(t *testing.T) {
	srv := newTestServer(t)

	body := validBody()
	delete(body, "name")
	delete(body, "operationName")

	resp := doJSON(t, http.MethodPost, srv.URL+"/processing-actions", body)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestCreateActionMalformedJSON(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/processing-actions", "application/json", bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListActions(t *testing.T) {
	srv := newTestServer(t)
	createAction(t, srv)

	t.Run("ByRawIdentifier", func(t *testing.T) {
		url := srv.URL + "/processing-actions?objectType=person&objectKind=BSN&objectId=1234567"
		resp, err := http.Get(url)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var list struct {
			Items []map[string]interface{} `json:"items"`
		}
		decodeBody(t, resp, &list)
		assert.Len(t, list.Items, 1)
	})

	t.Run("NoMatchReturnsEmptyList", func(t *testing.T) {
		url := srv.URL + "/processing-actions?objectType=person&objectKind=BSN&objectId=0000000"
		resp, err := http.Get(url)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var list struct {
			Items []map[string]interface{} `json:"items"`
		}
		decodeBody(t, resp, &list)
		assert.NotNil(t, list.Items)
		assert.Empty(t, list.Items)
	})

	t.Run("MissingKeyParams", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/processing-actions?objectType=person")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("BadDate", func(t *testing.T) {
		url := srv.URL + "/processing-actions?objectType=person&objectKind=BSN&objectId=1234567&beginDate=notadate"
		resp, err := http.Get(url)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("DateRange", func(t *testing.T) {
		url := srv.URL + "/processing-actions?objectType=person&objectKind=BSN&objectId=1234567&beginDate=2024-04-01&endDate=2024-04-30"
		resp, err := http.Get(url)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var list struct {
			Items []map[string]interface{} `json:"items"`
		}
		decodeBody(t, resp, &list)
		assert.Len(t, list.Items, 1)
	})
}

func TestGetAction(t *testing.T) {
	srv := newTestServer(t)
	created := createAction(t, srv)
	actionID := created["actionId"].(string)

	resp, err := http.Get(srv.URL + "/processing-actions/" + actionID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list struct {
		Items []map[string]interface{} `json:"items"`
	}
	decodeBody(t, resp, &list)
	require.Len(t, list.Items, 1)
	assert.Equal(t, actionID, list.Items[0]["actionId"])
}

func TestGetActionNotFound(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/processing-actions/unknown-id")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))
}

func TestReplaceAction(t *testing.T) {
	srv := newTestServer(t)
	created := createAction(t, srv)
	actionID := created["actionId"].(string)

	body := validBody()
	body["confidentiality"] = "confidential"
	resp := doJSON(t, http.MethodPut, srv.URL+"/processing-actions/"+actionID, body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var replaced map[string]interface{}
	decodeBody(t, resp, &replaced)
	assert.Equal(t, actionID, replaced["actionId"])
	assert.Equal(t, "confidential", replaced["confidentiality"])
}

func TestReplaceActionIDMismatch(t *testing.T) {
	srv := newTestServer(t)
	created := createAction(t, srv)
	actionID := created["actionId"].(string)

	body := validBody()
	body["actionId"] = "someone-else"
	resp := doJSON(t, http.MethodPut, srv.URL+"/processing-actions/"+actionID, body)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReplaceUnknownActionReturns404(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodPut, srv.URL+"/processing-actions/unknown-id", validBody())
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestReclassifyAction(t *testing.T) {
	srv := newTestServer(t)
	createAction(t, srv)

	resp := doJSON(t, http.MethodPatch, srv.URL+"/processing-actions?processingId=proc-1",
		map[string]string{"confidentiality": "confidential"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result api.ReclassifyResponse
	decodeBody(t, resp, &result)
	assert.Equal(t, 1, result.Updated)
}

func TestReclassifyValidation(t *testing.T) {
	srv := newTestServer(t)
	createAction(t, srv)

	t.Run("MissingProcessingID", func(t *testing.T) {
		resp := doJSON(t, http.MethodPatch, srv.URL+"/processing-actions",
			map[string]string{"confidentiality": "x"})
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("EmptyUpdate", func(t *testing.T) {
		resp := doJSON(t, http.MethodPatch, srv.URL+"/processing-actions?processingId=proc-1",
			map[string]string{})
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("UnknownProcessing", func(t *testing.T) {
		resp := doJSON(t, http.MethodPatch, srv.URL+"/processing-actions?processingId=proc-nope",
			map[string]string{"confidentiality": "x"})
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestRevokeAction(t *testing.T) {
	srv := newTestServer(t)
	created := createAction(t, srv)
	actionID := created["actionId"].(string)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/processing-actions/"+actionID, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list struct {
		Items []map[string]interface{} `json:"items"`
	}
	decodeBody(t, resp, &list)
	require.Len(t, list.Items, 1)
	assert.Equal(t, true, list.Items[0]["revoked"])

	// The action now resolves to its revoked version.
	getResp, err := http.Get(fmt.Sprintf("%s/processing-actions/%s", srv.URL, actionID))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, getResp.StatusCode)
	var after struct {
		Items []map[string]interface{} `json:"items"`
	}
	decodeBody(t, getResp, &after)
	require.Len(t, after.Items, 1)
	assert.Equal(t, true, after.Items[0]["revoked"])
}
