package user

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	usersvc "trubid-backend/internal/application/user"
	"trubid-backend/internal/domain"
	"trubid-backend/internal/middleware"
	"trubid-backend/internal/pkg/constants"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupUserTest(t *testing.T) (*Handlers, *redis.Client, *gorm.DB) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}))
	handlers := &Handlers{
		Service: &usersvc.Service{DB: db, Rdb: rdb},
		Config:  middleware.SessionConfig{},
	}
	return handlers, rdb, db
}

func asUser(id uuid.UUID, role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user", map[string]interface{}{"user_id": id.String(), "role": role, "email": "x@test.com"})
		return c.Next()
	}
}

func seedUser(t *testing.T, db *gorm.DB, name, role string) uuid.UUID {
	u := &domain.User{UserName: name, Email: name + "@test.com", PasswordHash: "x", Fullname: name, Role: role}
	require.NoError(t, db.Create(u).Error)
	return u.UserID
}

func send(t *testing.T, app *fiber.App, method, path string, v interface{}) (int, map[string]interface{}) {
	body, _ := json.Marshal(v)
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	var out map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestCreateUser_SetsSession(t *testing.T) {
	h, rdb, _ := setupUserTest(t)
	app := fiber.New()
	app.Post("/create-user", h.CreateUser)

	status, out := send(t, app, "POST", "/create-user", map[string]string{
		"user_name": "bidder1", "email": "Bidder1@Test.com", "password": "Pass1!word", "fullname": "jane doe",
	})
	require.Equal(t, fiber.StatusCreated, status)
	user := out["data"].(map[string]interface{})["user"].(map[string]interface{})
	assert.Equal(t, "bidder1@test.com", user["email"])
	assert.Equal(t, "Jane Doe", user["fullname"])
	assert.Equal(t, constants.User, user["role"])
	assert.NotContains(t, user, "password_hash")

	keys, err := rdb.Keys(context.Background(), middleware.UserSessionsPrefix+"*").Result()
	require.NoError(t, err)
	assert.Len(t, keys, 1)

	status, _ = send(t, app, "POST", "/create-user", map[string]string{
		"user_name": "bidder2", "email": "bidder1@test.com", "password": "Pass1!word", "fullname": "Jane Two",
	})
	assert.Equal(t, fiber.StatusConflict, status)
}

func TestViewUser_RequiresSession(t *testing.T) {
	h, _, _ := setupUserTest(t)
	app := fiber.New()
	app.Get("/view-user", h.ViewUser)

	status, _ := send(t, app, "GET", "/view-user", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestUpdateRole_ForbiddenForUser(t *testing.T) {
	h, _, db := setupUserTest(t)
	actor := seedUser(t, db, "plain", constants.User)
	target := seedUser(t, db, "target", constants.User)

	app := fiber.New()
	app.Use(asUser(actor, constants.User))
	app.Use(middleware.AuthorizePermission(constants.AssignRole))
	app.Patch("/update-role", h.UpdateRole)

	status, _ := send(t, app, "PATCH", "/update-role", map[string]string{"user_id": target.String(), "role": constants.Admin})
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestUpdateRole_AdminPromotes(t *testing.T) {
	h, _, db := setupUserTest(t)
	admin := seedUser(t, db, "admin", constants.Admin)
	target := seedUser(t, db, "target", constants.User)

	app := fiber.New()
	app.Use(asUser(admin, constants.Admin))
	app.Use(middleware.AuthorizePermission(constants.AssignRole))
	app.Patch("/update-role", h.UpdateRole)

	status, out := send(t, app, "PATCH", "/update-role", map[string]string{"user_id": target.String(), "role": constants.Admin})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, constants.Admin, out["data"].(map[string]interface{})["user"].(map[string]interface{})["role"])

	status, _ = send(t, app, "PATCH", "/update-role", map[string]string{"user_id": admin.String(), "role": constants.User})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = send(t, app, "PATCH", "/update-role", map[string]string{"user_id": uuid.NewString(), "role": constants.User})
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestRemoveUser(t *testing.T) {
	h, _, db := setupUserTest(t)
	admin := seedUser(t, db, "admin", constants.Admin)
	target := seedUser(t, db, "target", constants.User)

	app := fiber.New()
	app.Use(asUser(admin, constants.Admin))
	app.Use(middleware.AuthorizePermission(constants.RemoveUser))
	app.Delete("/remove-user", h.RemoveUser)

	status, _ := send(t, app, "DELETE", "/remove-user", map[string]string{"user_id": "not-a-uuid"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = send(t, app, "DELETE", "/remove-user", map[string]string{"user_id": target.String()})
	assert.Equal(t, fiber.StatusOK, status)

	var count int64
	require.NoError(t, db.Model(&domain.User{}).Where("user_id = ?", target).Count(&count).Error)
	assert.Zero(t, count)
}
