package admin

import (
	"github.com/gin-gonic/gin"
	handlers "github.com/stevensoneremeh/eriggalive-sub000/internal/http/api/admin/handlers"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/http/api/apiutil"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/ledger"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/session"
	"gorm.io/gorm"
)

// Deps bundles the services the admin routes need.
type Deps struct {
	DB       *gorm.DB
	Sessions *session.Manager
	Ledger   *ledger.Engine
}

// RegisterAdminRoutes registers admin routes, middleware, and handlers.
func RegisterAdminRoutes(r *gin.Engine, deps Deps) {
	if r == nil || deps.DB == nil || deps.Sessions == nil || deps.Ledger == nil {
		return
	}

	authed := r.Group("/v0/admin")
	authed.Use(apiutil.RequireAuth(deps.Sessions))
	authed.Use(apiutil.RequireAdmin())

	userHandler := handlers.NewUserHandler(deps.DB, deps.Sessions, deps.Ledger)
	authed.GET("/users", userHandler.List)
	authed.GET("/users/:id", userHandler.Get)
	authed.POST("/users/:id/ban", userHandler.Ban)
	authed.POST("/users/:id/unban", userHandler.Unban)
	authed.POST("/users/:id/activate", userHandler.Activate)
	authed.POST("/users/:id/deactivate", userHandler.Deactivate)
	authed.POST("/users/:id/coins", userHandler.AdjustCoins)

	withdrawalHandler := handlers.NewWithdrawalHandler(deps.Ledger)
	authed.GET("/withdrawals", withdrawalHandler.List)
	authed.POST("/withdrawals/:id/approve", withdrawalHandler.Approve)
	authed.POST("/withdrawals/:id/reject", withdrawalHandler.Reject)

	settingHandler := handlers.NewSettingHandler(deps.DB)
	authed.POST("/settings", settingHandler.Create)
	authed.GET("/settings", settingHandler.List)
	authed.GET("/settings/:key", settingHandler.Get)
	authed.PUT("/settings/:key", settingHandler.Update)
	authed.DELETE("/settings/:key", settingHandler.Delete)
}
