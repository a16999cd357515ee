package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/geocoder89/userhub/internal/cache"
	"github.com/geocoder89/userhub/internal/config"
	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/gin-gonic/gin"
)

const usersListCacheKey = "users:list:v1"

type UserManager interface {
	List(ctx context.Context) ([]user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	Create(ctx context.Context, req user.CreateUserRequest) (user.User, error)
	Update(ctx context.Context, id string, req user.UpdateUserRequest) (user.User, error)
	Delete(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id string, req user.UpdatePasswordRequest) error
}

type UsersHandler struct {
	svc   UserManager
	cache *cache.Cache
}

func NewUsersHandler(svc UserManager) *UsersHandler {
	return &UsersHandler{svc: svc}
}

func NewUsersHandlerWithCache(svc UserManager, c *cache.Cache) *UsersHandler {
	return &UsersHandler{svc: svc, cache: c}
}

// any successful mutation makes the cached list stale
func (h *UsersHandler) invalidateList() {
	if h.cache != nil {
		h.cache.Delete(usersListCacheKey)
	}
}

func (h *UsersHandler) ListUsers(ctx *gin.Context) {
	if h.cache != nil {
		if cached, ok := h.cache.Get(usersListCacheKey); ok {
			RespondJSONWithETag(ctx, http.StatusOK, cached)
			return
		}
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	users, err := h.svc.List(cctx)

	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	payload := gin.H{
		"items": users,
		"count": len(users),
	}

	if h.cache != nil {
		h.cache.Set(usersListCacheKey, payload)
	}

	RespondJSONWithETag(ctx, http.StatusOK, payload)
}

func (h *UsersHandler) GetUserById(ctx *gin.Context) {
	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := h.svc.GetByID(cctx, id)

	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, u)
}

func (h *UsersHandler) CreateUser(ctx *gin.Context) {
	var req user.CreateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, err := h.svc.Create(cctx, req)

	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	h.invalidateList()

	// password never echoed back
	ctx.JSON(http.StatusCreated, gin.H{
		"id":    u.ID,
		"name":  u.Name,
		"email": u.Email,
	})
}

func (h *UsersHandler) UpdateUser(ctx *gin.Context) {
	id := ctx.Param("id")

	var req user.UpdateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, err := h.svc.Update(cctx, id, req)

	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	h.invalidateList()

	ctx.JSON(http.StatusOK, gin.H{"id": u.ID})
}

func (h *UsersHandler) DeleteUser(ctx *gin.Context) {
	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	err := h.svc.Delete(cctx, id)

	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	h.invalidateList()

	ctx.JSON(http.StatusOK, gin.H{"id": id})
}

func (h *UsersHandler) UpdatePassword(ctx *gin.Context) {
	id := ctx.Param("id")

	var req user.UpdatePasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	err := h.svc.UpdatePassword(cctx, id, req)

	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	h.invalidateList()

	ctx.JSON(http.StatusOK, gin.H{
		"id":      id,
		"message": "Password updated",
	})
}
