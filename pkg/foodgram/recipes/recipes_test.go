package recipes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodgram/pkg/foodgram/apierror"
	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"github.com/mikepea/foodgram/pkg/foodgram/pagination"
	"github.com/mikepea/foodgram/pkg/foodgram/presenter"
	"github.com/mikepea/foodgram/pkg/foodgram/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db     *gorm.DB
	store  *testutil.MemoryStore
	router *gin.Engine
	author models.User
	reader models.User
	lunch  models.Tag
	dinner models.Tag
	potato models.Ingredient
	salt   models.Ingredient
}

func setup(t *testing.T) *fixture {
	db := testutil.SetupTestDB(t)
	store := testutil.NewMemoryStore()

	router := testutil.NewRouter()
	NewHandler(db, store, pagination.New(6, 10)).RegisterRoutes(router.Group("/api"))

	return &fixture{
		db:     db,
		store:  store,
		router: router,
		author: testutil.CreateUser(t, db, "author"),
		reader: testutil.CreateUser(t, db, "reader"),
		lunch:  testutil.CreateTag(t, db, "Обед", "lunch"),
		dinner: testutil.CreateTag(t, db, "Ужин", "dinner"),
		potato: testutil.CreateIngredient(t, db, "картофель", models.UnitGram),
		salt:   testutil.CreateIngredient(t, db, "соль", models.UnitPinch),
	}
}

func (f *fixture) do(t *testing.T, method, path string, user *models.User, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req.Header.Set("Authorization", testutil.AuthHeader(t, *user))
	}
	resp := httptest.NewRecorder()
	f.router.ServeHTTP(resp, req)
	return resp
}

func (f *fixture) validBody() map[string]interface{} {
	return map[string]interface{}{
		"ingredients": []map[string]interface{}{
			{"id": f.potato.ID, "amount": 500},
			{"id": f.salt.ID, "amount": 1},
		},
		"tags":         []uint{f.lunch.ID, f.dinner.ID},
		"image":        testutil.PNGDataURI,
		"name":         "Пюре",
		"text":         "Boil and mash",
		"cooking_time": 30,
	}
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	var out T
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out), resp.Body.String())
	return out
}

func TestCreateRecipe(t *testing.T) {
	f := setup(t)

	resp := f.do(t, "POST", "/api/recipes", &f.author, f.validBody())
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	got := decode[RecipeResponse](t, resp)
	assert.NotZero(t, got.ID)
	assert.Equal(t, "Пюре", got.Name)
	assert.Equal(t, 30, got.CookingTime)
	assert.Equal(t, f.author.ID, got.Author.ID)
	assert.False(t, got.Author.IsSubscribed)
	assert.False(t, got.IsFavorited)
	assert.False(t, got.IsInShoppingCart)
	assert.True(t, strings.HasPrefix(got.Image, testutil.BaseURL+"/media/recipes/images/"))
	assert.Len(t, f.store.Objects, 1)

	require.Len(t, got.Tags, 2)
	assert.Equal(t, "lunch", got.Tags[0].Slug)
	require.Len(t, got.Ingredients, 2)
	assert.Equal(t, IngredientLine{ID: f.potato.ID, Name: "картофель", MeasurementUnit: "г", Amount: 500}, got.Ingredients[0])
}

func TestCreateRecipeRequiresAuth(t *testing.T) {
	f := setup(t)
	resp := f.do(t, "POST", "/api/recipes", nil, f.validBody())
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestCreateRecipeStripsMarkup(t *testing.T) {
	f := setup(t)
	body := f.validBody()
	body["name"] = "<b>Пюре</b>"
	body["text"] = `<script>alert(1)</script>Boil & mash`

	resp := f.do(t, "POST", "/api/recipes", &f.author, body)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	got := decode[RecipeResponse](t, resp)
	assert.Equal(t, "Пюре", got.Name)
	assert.Equal(t, "Boil & mash", got.Text)
}

func TestCreateRecipeValidation(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name   string
		mutate func(b map[string]interface{})
		field  string
	}{
		{"no tags", func(b map[string]interface{}) { b["tags"] = []uint{} }, "tags"},
		{"duplicate tags", func(b map[string]interface{}) { b["tags"] = []uint{f.lunch.ID, f.lunch.ID} }, "tags"},
		{"unknown tag", func(b map[string]interface{}) { b["tags"] = []uint{999} }, "tags"},
		{"no ingredients", func(b map[string]interface{}) { b["ingredients"] = []interface{}{} }, "ingredients"},
		{"duplicate ingredients", func(b map[string]interface{}) {
			b["ingredients"] = []map[string]interface{}{{"id": f.salt.ID, "amount": 1}, {"id": f.salt.ID, "amount": 2}}
		}, "ingredients"},
		{"unknown ingredient", func(b map[string]interface{}) {
			b["ingredients"] = []map[string]interface{}{{"id": 999, "amount": 1}}
		}, "ingredients"},
		{"zero amount", func(b map[string]interface{}) {
			b["ingredients"] = []map[string]interface{}{{"id": f.salt.ID, "amount": 0}}
		}, "ingredients[0].amount"},
		{"zero cooking time", func(b map[string]interface{}) { b["cooking_time"] = 0 }, "cooking_time"},
		{"long name", func(b map[string]interface{}) { b["name"] = strings.Repeat("a", 257) }, "name"},
		{"blank name", func(b map[string]interface{}) { b["name"] = "<p></p>" }, "name"},
		{"missing image", func(b map[string]interface{}) { delete(b, "image") }, "image"},
		{"bad image", func(b map[string]interface{}) { b["image"] = "not-an-image" }, "image"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := f.validBody()
			tt.mutate(body)

			resp := f.do(t, "POST", "/api/recipes", &f.author, body)
			require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
			errResp := decode[apierror.Response](t, resp)
			assert.Contains(t, errResp.Fields, tt.field)
		})
	}

	var count int64
	f.db.Model(&models.Recipe{}).Count(&count)
	assert.Zero(t, count)
	assert.Empty(t, f.store.Objects)
}

func TestGetRecipe(t *testing.T) {
	f := setup(t)
	recipe := testutil.CreateRecipe(t, f.db, f.author.ID, "soup", []uint{f.lunch.ID},
		testutil.Item{IngredientID: f.salt.ID, Amount: 2})

	resp := f.do(t, "GET", fmt.Sprintf("/api/recipes/%d", recipe.ID), nil, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	got := decode[RecipeResponse](t, resp)
	assert.Equal(t, "soup", got.Name)
	assert.Len(t, got.Tags, 1)
	assert.Len(t, got.Ingredients, 1)

	resp = f.do(t, "GET", "/api/recipes/999", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestListNewestFirstWithPagination(t *testing.T) {
	f := setup(t)
	for _, name := range []string{"first", "second", "third"} {
		testutil.CreateRecipe(t, f.db, f.author.ID, name, []uint{f.lunch.ID})
	}

	resp := f.do(t, "GET", "/api/recipes?limit=2", nil, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	page := decode[pagination.Page[RecipeResponse]](t, resp)

	assert.Equal(t, int64(3), page.Count)
	require.Len(t, page.Results, 2)
	assert.Equal(t, "third", page.Results[0].Name)
	assert.Equal(t, "second", page.Results[1].Name)
	require.NotNil(t, page.Next)
	assert.Nil(t, page.Previous)

	resp = f.do(t, "GET", "/api/recipes?limit=2&page=2", nil, nil)
	page = decode[pagination.Page[RecipeResponse]](t, resp)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "first", page.Results[0].Name)

	resp = f.do(t, "GET", "/api/recipes?limit=2&page=3", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func names(page pagination.Page[RecipeResponse]) []string {
	out := make([]string, len(page.Results))
	for i, r := range page.Results {
		out[i] = r.Name
	}
	return out
}

func TestListFilters(t *testing.T) {
	f := setup(t)
	breakfast := testutil.CreateTag(t, f.db, "Завтрак", "breakfast")

	both := testutil.CreateRecipe(t, f.db, f.author.ID, "both", []uint{f.lunch.ID, f.dinner.ID})
	lunchOnly := testutil.CreateRecipe(t, f.db, f.author.ID, "lunch-only", []uint{f.lunch.ID})
	testutil.CreateRecipe(t, f.db, f.reader.ID, "breakfast", []uint{breakfast.ID})

	list := func(query string, user *models.User) []string {
		resp := f.do(t, "GET", "/api/recipes"+query, user, nil)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		return names(decode[pagination.Page[RecipeResponse]](t, resp))
	}

	// OR across tags, each recipe once
	assert.Equal(t, []string{"lunch-only", "both"}, list("?tags=lunch&tags=dinner", nil))
	assert.Equal(t, []string{"breakfast"}, list("?tags=breakfast", nil))
	assert.Equal(t, []string{"breakfast"}, list(fmt.Sprintf("?author=%d", f.reader.ID), nil))

	require.NoError(t, f.db.Create(&models.Favorite{AuthorID: f.reader.ID, RecipeID: both.ID}).Error)
	require.NoError(t, f.db.Create(&models.ShoppingListEntry{AuthorID: f.reader.ID, RecipeID: lunchOnly.ID}).Error)

	assert.Equal(t, []string{"both"}, list("?is_favorited=1", &f.reader))
	assert.Equal(t, []string{"lunch-only"}, list("?is_in_shopping_cart=true", &f.reader))
	assert.Empty(t, list("?is_favorited=1&is_in_shopping_cart=1", &f.reader))

	// Anonymous callers ignore the per-user flags
	assert.Len(t, list("?is_favorited=1", nil), 3)

	resp := f.do(t, "GET", "/api/recipes?author=abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestListFlagsForViewer(t *testing.T) {
	f := setup(t)
	recipe := testutil.CreateRecipe(t, f.db, f.author.ID, "soup", []uint{f.lunch.ID})
	require.NoError(t, f.db.Create(&models.Favorite{AuthorID: f.reader.ID, RecipeID: recipe.ID}).Error)
	require.NoError(t, f.db.Create(&models.Follow{SubscriberID: f.reader.ID, AuthorID: f.author.ID}).Error)

	resp := f.do(t, "GET", "/api/recipes", &f.reader, nil)
	page := decode[pagination.Page[RecipeResponse]](t, resp)
	require.Len(t, page.Results, 1)
	assert.True(t, page.Results[0].IsFavorited)
	assert.False(t, page.Results[0].IsInShoppingCart)
	assert.True(t, page.Results[0].Author.IsSubscribed)

	resp = f.do(t, "GET", "/api/recipes", nil, nil)
	page = decode[pagination.Page[RecipeResponse]](t, resp)
	assert.False(t, page.Results[0].IsFavorited)
	assert.False(t, page.Results[0].Author.IsSubscribed)
}

func TestUpdateRecipe(t *testing.T) {
	f := setup(t)
	created := decode[RecipeResponse](t, f.do(t, "POST", "/api/recipes", &f.author, f.validBody()))

	body := f.validBody()
	delete(body, "image")
	body["name"] = "Новое пюре"
	body["tags"] = []uint{f.dinner.ID}
	body["ingredients"] = []map[string]interface{}{{"id": f.salt.ID, "amount": 3}}

	resp := f.do(t, "PATCH", fmt.Sprintf("/api/recipes/%d", created.ID), &f.author, body)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	got := decode[RecipeResponse](t, resp)
	assert.Equal(t, "Новое пюре", got.Name)
	assert.Equal(t, created.Image, got.Image)
	require.Len(t, got.Tags, 1)
	assert.Equal(t, "dinner", got.Tags[0].Slug)
	require.Len(t, got.Ingredients, 1)
	assert.Equal(t, 3, got.Ingredients[0].Amount)

	var lines int64
	f.db.Model(&models.RecipeIngredient{}).Where("recipe_id = ?", created.ID).Count(&lines)
	assert.Equal(t, int64(1), lines)
}

func TestUpdateRecipeValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(f *fixture, body map[string]interface{})
		field  string
	}{
		{"empty tags", func(f *fixture, b map[string]interface{}) { b["tags"] = []uint{} }, "tags"},
		{"duplicate ingredient", func(f *fixture, b map[string]interface{}) {
			b["ingredients"] = []map[string]interface{}{
				{"id": f.potato.ID, "amount": 1},
				{"id": f.potato.ID, "amount": 2},
			}
		}, "ingredients"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			created := decode[RecipeResponse](t, f.do(t, "POST", "/api/recipes", &f.author, f.validBody()))
			require.Len(t, f.store.Objects, 1)

			body := f.validBody()
			body["name"] = "Испорченное пюре"
			tt.modify(f, body)

			resp := f.do(t, "PATCH", fmt.Sprintf("/api/recipes/%d", created.ID), &f.author, body)
			require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
			assert.Contains(t, decode[apierror.Response](t, resp).Fields, tt.field)

			var tagRows, lineRows int64
			f.db.Model(&models.RecipeTag{}).Where("recipe_id = ?", created.ID).Count(&tagRows)
			f.db.Model(&models.RecipeIngredient{}).Where("recipe_id = ?", created.ID).Count(&lineRows)
			assert.Equal(t, int64(2), tagRows)
			assert.Equal(t, int64(2), lineRows)
			assert.Len(t, f.store.Objects, 1, "no new image stored")

			got := decode[RecipeResponse](t, f.do(t, "GET", fmt.Sprintf("/api/recipes/%d", created.ID), nil, nil))
			assert.Equal(t, "Пюре", got.Name)
			assert.Equal(t, created.Image, got.Image)
		})
	}
}

func TestUpdateRecipeReplacesImage(t *testing.T) {
	f := setup(t)
	created := decode[RecipeResponse](t, f.do(t, "POST", "/api/recipes", &f.author, f.validBody()))
	require.Len(t, f.store.Objects, 1)

	resp := f.do(t, "PATCH", fmt.Sprintf("/api/recipes/%d", created.ID), &f.author, f.validBody())
	require.Equal(t, http.StatusOK, resp.Code)
	got := decode[RecipeResponse](t, resp)

	assert.NotEqual(t, created.Image, got.Image)
	assert.Len(t, f.store.Objects, 1)
}

func TestUpdateRecipeByOtherUser(t *testing.T) {
	f := setup(t)
	created := decode[RecipeResponse](t, f.do(t, "POST", "/api/recipes", &f.author, f.validBody()))

	resp := f.do(t, "PATCH", fmt.Sprintf("/api/recipes/%d", created.ID), &f.reader, f.validBody())
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = f.do(t, "DELETE", fmt.Sprintf("/api/recipes/%d", created.ID), &f.reader, nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = f.do(t, "PATCH", "/api/recipes/999", &f.author, f.validBody())
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestDeleteRecipe(t *testing.T) {
	f := setup(t)
	created := decode[RecipeResponse](t, f.do(t, "POST", "/api/recipes", &f.author, f.validBody()))
	require.NoError(t, f.db.Create(&models.Favorite{AuthorID: f.reader.ID, RecipeID: created.ID}).Error)

	resp := f.do(t, "DELETE", fmt.Sprintf("/api/recipes/%d", created.ID), &f.author, nil)
	require.Equal(t, http.StatusNoContent, resp.Code)
	assert.Empty(t, f.store.Objects)

	var favorites, lines int64
	f.db.Model(&models.Favorite{}).Count(&favorites)
	f.db.Model(&models.RecipeIngredient{}).Count(&lines)
	assert.Zero(t, favorites)
	assert.Zero(t, lines)

	resp = f.do(t, "GET", fmt.Sprintf("/api/recipes/%d", created.ID), nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestFavoriteAndCartToggle(t *testing.T) {
	for _, kind := range []string{"favorite", "shopping_cart"} {
		t.Run(kind, func(t *testing.T) {
			f := setup(t)
			recipe := testutil.CreateRecipe(t, f.db, f.author.ID, "soup", []uint{f.lunch.ID})
			path := fmt.Sprintf("/api/recipes/%d/%s", recipe.ID, kind)

			resp := f.do(t, "POST", path, &f.reader, nil)
			require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
			short := decode[presenter.RecipeShort](t, resp)
			assert.Equal(t, recipe.ID, short.ID)
			assert.Equal(t, "soup", short.Name)
			assert.Equal(t, 10, short.CookingTime)

			resp = f.do(t, "POST", path, &f.reader, nil)
			assert.Equal(t, http.StatusBadRequest, resp.Code)

			got := decode[RecipeResponse](t, f.do(t, "GET", fmt.Sprintf("/api/recipes/%d", recipe.ID), &f.reader, nil))
			if kind == "favorite" {
				assert.True(t, got.IsFavorited)
			} else {
				assert.True(t, got.IsInShoppingCart)
			}

			resp = f.do(t, "DELETE", path, &f.reader, nil)
			assert.Equal(t, http.StatusNoContent, resp.Code)

			resp = f.do(t, "DELETE", path, &f.reader, nil)
			assert.Equal(t, http.StatusNotFound, resp.Code)

			missing := fmt.Sprintf("/api/recipes/999/%s", kind)
			assert.Equal(t, http.StatusNotFound, f.do(t, "POST", missing, &f.reader, nil).Code)
			assert.Equal(t, http.StatusNotFound, f.do(t, "DELETE", missing, &f.reader, nil).Code)
			assert.Equal(t, http.StatusUnauthorized, f.do(t, "POST", path, nil, nil).Code)
		})
	}
}
