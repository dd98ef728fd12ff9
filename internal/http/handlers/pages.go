package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// PagesHandler serves minimal JSON shells for the browser routes so the
// route guard has something real to protect. A separate frontend renders
// the actual pages against /api.
type PagesHandler struct{}

func NewPagesHandler() *PagesHandler {
	return &PagesHandler{}
}

func (h *PagesHandler) page(name string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"page": name})
	}
}

func (h *PagesHandler) Home(ctx *gin.Context)      { h.page("home")(ctx) }
func (h *PagesHandler) About(ctx *gin.Context)     { h.page("about")(ctx) }
func (h *PagesHandler) SignIn(ctx *gin.Context)    { h.page("signin")(ctx) }
func (h *PagesHandler) Dashboard(ctx *gin.Context) { h.page("dashboard")(ctx) }
func (h *PagesHandler) Admin(ctx *gin.Context)     { h.page("admin")(ctx) }
func (h *PagesHandler) Profile(ctx *gin.Context)   { h.page("profile")(ctx) }
func (h *PagesHandler) Settings(ctx *gin.Context)  { h.page("settings")(ctx) }
