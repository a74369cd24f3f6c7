// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/distillery"
	aimock "github.com/poiesic/distillery/ai/mock"
	"github.com/poiesic/distillery/core"
	extractmock "github.com/poiesic/distillery/extract/mock"
)

func newTestApp(t *testing.T) (*fiber.App, *distillery.Library) {
	t.Helper()

	lib, err := distillery.NewLibrary("",
		distillery.WithInMemory(),
		distillery.WithExtractor(extractmock.NewMockExtractor()),
		distillery.WithDistiller(aimock.NewMockDistiller()),
		distillery.WithSpoolDir(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { lib.Close() })

	return NewServer(lib).App(), lib
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, int(5*time.Second/time.Millisecond))
	require.NoError(t, err)

	decoded := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

// waitForStatus polls the library until the record reaches the status.
func waitForStatus(t *testing.T, lib *distillery.Library, id string, status core.Status) {
	t.Helper()
	require.Eventually(t, func() bool {
		d, err := lib.Get(context.Background(), id)
		return err == nil && d.Status == status
	}, 5*time.Second, 10*time.Millisecond)
}

func TestSubmitTextRoundTrip(t *testing.T) {
	app, lib := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/api/distillations/text",
		map[string]string{"text": "the quick brown fox jumps over the lazy dog"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "queued", body["status"])
	id, ok := body["id"].(string)
	require.True(t, ok)

	waitForStatus(t, lib, id, core.StatusCompleted)

	resp, body = doJSON(t, app, http.MethodGet, "/api/distillations/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "completed", body["status"])
	assert.Equal(t, "THE QUICK BROWN FOX JUMPS", body["content"])
	assert.Nil(t, body["error"])
	assert.NotNil(t, body["completedAt"])
	assert.NotEmpty(t, body["logs"])
}

func TestSubmitURLInvalid(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/api/distillations/url",
		map[string]string{"url": "not a url"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "invalid input")
}

func TestSubmitFileMultipart(t *testing.T) {
	app, lib := newTestApp(t)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("uploaded notes worth distilling"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/distillations/file", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := app.Test(req, int(5*time.Second/time.Millisecond))
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var receipt struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&receipt))
	assert.Equal(t, "queued", receipt.Status)

	waitForStatus(t, lib, receipt.ID, core.StatusCompleted)
}

func TestGetUnknownID(t *testing.T) {
	app, _ := newTestApp(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/api/distillations/no-such-id", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRetryMapping(t *testing.T) {
	app, lib := newTestApp(t)

	// Unknown id maps to 404.
	resp, _ := doJSON(t, app, http.MethodPost, "/api/distillations/no-such-id/retry", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// A terminal record with nothing usable maps to 409.
	husk := &core.Distillation{
		ID:          core.NewID(),
		Title:       "husk",
		SourceType:  core.SourceTypeText,
		Status:      core.StatusError,
		RawContent:  "short",
		Error:       "it broke",
		CompletedAt: time.Now().UTC(),
	}
	require.NoError(t, lib.Repository().Add(context.Background(), husk))
	resp, body := doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/distillations/%s/retry", husk.ID), nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, body["error"], "nothing to retry")
}

func TestListAndSearch(t *testing.T) {
	app, lib := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/api/distillations/text",
		map[string]string{"text": "alpha document body"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	waitForStatus(t, lib, body["id"].(string), core.StatusCompleted)

	resp, body = doJSON(t, app, http.MethodGet, "/api/distillations", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["count"])

	resp, body = doJSON(t, app, http.MethodGet, "/api/distillations?q=ALPHA", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["count"])

	resp, body = doJSON(t, app, http.MethodGet, "/api/distillations?q=zebra", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 0, body["count"])
}

func TestDelete(t *testing.T) {
	app, lib := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/api/distillations/text",
		map[string]string{"text": "to be deleted shortly"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	id := body["id"].(string)
	waitForStatus(t, lib, id, core.StatusCompleted)

	resp, _ = doJSON(t, app, http.MethodDelete, "/api/distillations/"+id, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/distillations/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
