package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inkwell/inkwell/internal/config"
	"github.com/inkwell/inkwell/internal/domain/user"
	"github.com/inkwell/inkwell/internal/http/middlewares"
)

type RoleUpdater interface {
	UpdateRole(ctx context.Context, id string, role user.Role) (user.User, error)
}

// UsersHandler is the admin surface for account management. Role changes
// take effect on the target's next gated request.
type UsersHandler struct {
	users RoleUpdater
}

func NewUsersHandler(users RoleUpdater) *UsersHandler {
	return &UsersHandler{users: users}
}

type updateRoleRequest struct {
	Role user.Role `json:"role" binding:"required,oneof=user author admin"`
}

func (h *UsersHandler) UpdateRole(ctx *gin.Context) {
	id := ctx.Param("id")

	var req updateRoleRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if actorID, ok := middlewares.UserIDFromContext(ctx); ok && actorID == id {
		// an admin stripping their own role would lock the last key inside
		RespondBadRequest(ctx, "You cannot change your own role", nil)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, err := h.users.UpdateRole(cctx, id, req.Role)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not update role")
		return
	}

	ctx.JSON(http.StatusOK, u)
}
