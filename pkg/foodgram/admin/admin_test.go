package admin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodgram/pkg/foodgram/auth"
	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"github.com/mikepea/foodgram/pkg/foodgram/testutil"
	"gorm.io/gorm"
)

func setupTestRouter(db *gorm.DB, store *testutil.MemoryStore) *gin.Engine {
	r := testutil.NewRouter()
	NewHandler(db, store).RegisterRoutes(r.Group("/api/admin", auth.RequireAuth(), auth.RequireAdmin()))
	return r
}

func createAdmin(t *testing.T, db *gorm.DB) models.User {
	admin := testutil.CreateUser(t, db, "admin")
	if err := db.Model(&admin).Update("role", models.RoleAdmin).Error; err != nil {
		t.Fatalf("Failed to promote admin: %v", err)
	}
	admin.Role = models.RoleAdmin
	return admin
}

func doRequest(t *testing.T, r *gin.Engine, method, path string, user models.User, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", testutil.AuthHeader(t, user))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := setupTestRouter(db, testutil.NewMemoryStore())
	user := testutil.CreateUser(t, db, "cook")

	resp := doRequest(t, r, "GET", "/api/admin/stats", user, nil)
	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", resp.Code)
	}

	req, _ := http.NewRequest("GET", "/api/admin/stats", nil)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", resp.Code)
	}
}

func TestListUsers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := setupTestRouter(db, testutil.NewMemoryStore())
	admin := createAdmin(t, db)
	cook := testutil.CreateUser(t, db, "cook")
	testutil.CreateUser(t, db, "baker")
	testutil.CreateRecipe(t, db, cook.ID, "суп", nil)

	resp := doRequest(t, r, "GET", "/api/admin/users", admin, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}
	var users []UserResponse
	json.Unmarshal(resp.Body.Bytes(), &users)
	if len(users) != 3 {
		t.Fatalf("Expected 3 users, got %d", len(users))
	}

	resp = doRequest(t, r, "GET", "/api/admin/users?q=coo", admin, nil)
	json.Unmarshal(resp.Body.Bytes(), &users)
	if len(users) != 1 || users[0].Username != "cook" {
		t.Fatalf("Expected only cook, got %+v", users)
	}
	if users[0].RecipeCount != 1 {
		t.Errorf("Expected recipe count 1, got %d", users[0].RecipeCount)
	}

	resp = doRequest(t, r, "GET", "/api/admin/users?role=admin", admin, nil)
	json.Unmarshal(resp.Body.Bytes(), &users)
	if len(users) != 1 || users[0].ID != admin.ID {
		t.Errorf("Expected only the admin, got %+v", users)
	}
}

func TestUpdateUserRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := setupTestRouter(db, testutil.NewMemoryStore())
	admin := createAdmin(t, db)
	cook := testutil.CreateUser(t, db, "cook")

	resp := doRequest(t, r, "PUT", fmt.Sprintf("/api/admin/users/%d", cook.ID), admin, UpdateUserRequest{Role: "admin"})
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var updated models.User
	db.First(&updated, cook.ID)
	if updated.Role != models.RoleAdmin {
		t.Errorf("Expected role admin, got %s", updated.Role)
	}

	resp = doRequest(t, r, "PUT", fmt.Sprintf("/api/admin/users/%d", cook.ID), admin, UpdateUserRequest{Role: "chef"})
	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for unknown role, got %d", resp.Code)
	}

	resp = doRequest(t, r, "PUT", fmt.Sprintf("/api/admin/users/%d", admin.ID), admin, UpdateUserRequest{Role: "user"})
	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 when demoting self, got %d", resp.Code)
	}
}

func TestDeleteUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := testutil.NewMemoryStore()
	r := setupTestRouter(db, store)
	admin := createAdmin(t, db)
	cook := testutil.CreateUser(t, db, "cook")

	recipe := testutil.CreateRecipe(t, db, cook.ID, "суп", nil)
	store.Objects[recipe.Image] = []byte("png")

	resp := doRequest(t, r, "DELETE", fmt.Sprintf("/api/admin/users/%d", admin.ID), admin, nil)
	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 when deleting self, got %d", resp.Code)
	}

	resp = doRequest(t, r, "DELETE", fmt.Sprintf("/api/admin/users/%d", cook.ID), admin, nil)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d: %s", resp.Code, resp.Body.String())
	}

	var count int64
	db.Model(&models.Recipe{}).Count(&count)
	if count != 0 {
		t.Errorf("Expected recipes to be deleted with their author, found %d", count)
	}
	if store.Has(recipe.Image) {
		t.Error("Expected recipe image to be removed from storage")
	}

	resp = doRequest(t, r, "DELETE", "/api/admin/users/999", admin, nil)
	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.Code)
	}
}

func TestGetStats(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := setupTestRouter(db, testutil.NewMemoryStore())
	admin := createAdmin(t, db)
	cook := testutil.CreateUser(t, db, "cook")
	salt := testutil.CreateIngredient(t, db, "соль", models.UnitPinch)
	tag := testutil.CreateTag(t, db, "Завтрак", "breakfast")
	recipe := testutil.CreateRecipe(t, db, cook.ID, "омлет", []uint{tag.ID}, testutil.Item{IngredientID: salt.ID, Amount: 1})
	db.Create(&models.Favorite{AuthorID: admin.ID, RecipeID: recipe.ID})
	db.Create(&models.Follow{SubscriberID: admin.ID, AuthorID: cook.ID})

	resp := doRequest(t, r, "GET", "/api/admin/stats", admin, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}
	var stats StatsResponse
	json.Unmarshal(resp.Body.Bytes(), &stats)

	expected := StatsResponse{
		TotalUsers:       2,
		AdminUsers:       1,
		TotalRecipes:     1,
		TotalTags:        1,
		TotalIngredients: 1,
		TotalFavorites:   1,
		TotalFollows:     1,
	}
	if stats != expected {
		t.Errorf("Expected %+v, got %+v", expected, stats)
	}
}

func TestTagLifecycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := setupTestRouter(db, testutil.NewMemoryStore())
	admin := createAdmin(t, db)

	resp := doRequest(t, r, "POST", "/api/admin/tags", admin, TagRequest{Name: "<b>Завтрак</b>", Slug: "breakfast"})
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var created struct {
		ID   uint   `json:"id"`
		Name string `json:"name"`
	}
	json.Unmarshal(resp.Body.Bytes(), &created)
	if created.Name != "Завтрак" {
		t.Errorf("Expected markup stripped from name, got %q", created.Name)
	}

	resp = doRequest(t, r, "POST", "/api/admin/tags", admin, TagRequest{Name: "Другой", Slug: "breakfast"})
	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for duplicate slug, got %d", resp.Code)
	}
	resp = doRequest(t, r, "POST", "/api/admin/tags", admin, TagRequest{Name: "Обед", Slug: "обед"})
	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for invalid slug, got %d", resp.Code)
	}

	resp = doRequest(t, r, "PUT", fmt.Sprintf("/api/admin/tags/%d", created.ID), admin, TagRequest{Name: "Поздний завтрак", Slug: "brunch"})
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var tag models.Tag
	db.First(&tag, created.ID)
	if tag.Slug != "brunch" {
		t.Errorf("Expected slug brunch, got %s", tag.Slug)
	}

	resp = doRequest(t, r, "DELETE", fmt.Sprintf("/api/admin/tags/%d", created.ID), admin, nil)
	if resp.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", resp.Code)
	}
	resp = doRequest(t, r, "DELETE", fmt.Sprintf("/api/admin/tags/%d", created.ID), admin, nil)
	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.Code)
	}
}

func TestIngredientLifecycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := setupTestRouter(db, testutil.NewMemoryStore())
	admin := createAdmin(t, db)

	resp := doRequest(t, r, "POST", "/api/admin/ingredients", admin, IngredientRequest{Name: "мука", MeasurementUnit: "г"})
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var created struct {
		ID uint `json:"id"`
	}
	json.Unmarshal(resp.Body.Bytes(), &created)

	resp = doRequest(t, r, "POST", "/api/admin/ingredients", admin, IngredientRequest{Name: "мука", MeasurementUnit: "г"})
	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for duplicate ingredient, got %d", resp.Code)
	}
	resp = doRequest(t, r, "POST", "/api/admin/ingredients", admin, IngredientRequest{Name: "сахар", MeasurementUnit: "пуд"})
	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for unknown unit, got %d", resp.Code)
	}

	resp = doRequest(t, r, "PUT", fmt.Sprintf("/api/admin/ingredients/%d", created.ID), admin, IngredientRequest{Name: "мука", MeasurementUnit: "кг"})
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var ingredient models.Ingredient
	db.First(&ingredient, created.ID)
	if ingredient.MeasurementUnit != models.Unit("кг") {
		t.Errorf("Expected unit кг, got %s", ingredient.MeasurementUnit)
	}

	resp = doRequest(t, r, "DELETE", fmt.Sprintf("/api/admin/ingredients/%d", created.ID), admin, nil)
	if resp.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", resp.Code)
	}
}
