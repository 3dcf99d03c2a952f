// Copyright (C) 2024 The hsp authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package rest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/hspdev/hsp/internal/config"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := config.Default()
	r := gin.New()
	r.GET("/api/v1/ping", getPing)
	r.POST("/api/v1/orders", func(c *gin.Context) { postOrder(c, cfg) })
	return r
}

func TestPing(t *testing.T) {
	r := newTestRouter()
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/ping", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d; want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "pong") {
		t.Errorf("body %q; want pong", w.Body.String())
	}
}

func TestPostOrderRejectsBadDocument(t *testing.T) {
	r := newTestRouter()
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/orders", strings.NewReader(`{"input": []}`))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status %d; want 400", w.Code)
	}
}

func TestPostOrderAcceptsCommentedJSON(t *testing.T) {
	r := newTestRouter()
	w := httptest.NewRecorder()
	// parses fine; processing then fails on the missing file and reports it
	// in the streamed log rather than the status code
	doc := `{
  // nightly reprocessing
  "input": [{"filename": "/nonexistent/a.dat", "raw": false},],
  "output": ["/nonexistent/out.tif",],
}`
	req := httptest.NewRequest("POST", "/api/v1/orders", strings.NewReader(doc))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d; want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "0/1 inputs succeeded") {
		t.Errorf("log %q; want failure count", w.Body.String())
	}
}
