package tags

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodgram/pkg/foodgram/testutil"
	"gorm.io/gorm"
)

func setupTestRouter(db *gorm.DB) *gin.Engine {
	r := testutil.NewRouter()
	handler := NewHandler(db)
	handler.RegisterRoutes(r.Group("/api"))
	return r
}

func TestListTags(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := setupTestRouter(db)

	testutil.CreateTag(t, db, "Завтрак", "breakfast")
	testutil.CreateTag(t, db, "Обед", "lunch")

	req, _ := http.NewRequest("GET", "/api/tags", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var tags []TagResponse
	json.Unmarshal(resp.Body.Bytes(), &tags)

	if len(tags) != 2 {
		t.Fatalf("Expected 2 tags, got %d", len(tags))
	}
	if tags[0].Slug != "breakfast" || tags[1].Slug != "lunch" {
		t.Errorf("Expected tags ordered by id, got %+v", tags)
	}
}

func TestListTagsEmpty(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := setupTestRouter(db)

	req, _ := http.NewRequest("GET", "/api/tags", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Body.String() != "[]" {
		t.Errorf("Expected empty JSON array, got %s", resp.Body.String())
	}
}

func TestGetTag(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := setupTestRouter(db)
	tag := testutil.CreateTag(t, db, "Ужин", "dinner")

	req, _ := http.NewRequest("GET", "/api/tags/"+jsonID(tag.ID), nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}

	var got TagResponse
	json.Unmarshal(resp.Body.Bytes(), &got)
	if got.Name != "Ужин" || got.Slug != "dinner" {
		t.Errorf("Unexpected tag %+v", got)
	}
}

func TestGetTagNotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := setupTestRouter(db)

	for _, path := range []string{"/api/tags/99", "/api/tags/abc"} {
		req, _ := http.NewRequest("GET", path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)

		if resp.Code != http.StatusNotFound {
			t.Errorf("%s: expected status 404, got %d", path, resp.Code)
		}
	}
}

func jsonID(id uint) string {
	b, _ := json.Marshal(id)
	return string(b)
}
