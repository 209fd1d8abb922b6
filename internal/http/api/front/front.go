package front

import (
	"github.com/gin-gonic/gin"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/http/api/apiutil"
	handlers "github.com/stevensoneremeh/eriggalive-sub000/internal/http/api/front/handlers"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/ledger"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/payments"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/ratelimit"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/session"
	"gorm.io/gorm"
)

// Deps bundles the services the member-facing routes need.
type Deps struct {
	DB       *gorm.DB
	Sessions *session.Manager
	Ledger   *ledger.Engine
	Payments *payments.Service
	Limiter  *ratelimit.Manager
}

// RegisterFrontRoutes registers the member-facing /v0 routes.
func RegisterFrontRoutes(r *gin.Engine, deps Deps) {
	if r == nil || deps.Sessions == nil || deps.Ledger == nil {
		return
	}
	rejectLimited := func(c *gin.Context, err error) { apiutil.Error(c, err) }

	v0 := r.Group("/v0")

	authHandler := handlers.NewAuthHandler(deps.Sessions)
	v0.POST("/auth/login", ratelimit.Middleware(deps.Limiter, ratelimit.ScopeLogin, ratelimit.ClientIP, rejectLimited), authHandler.Login)
	v0.POST("/auth/refresh", authHandler.Refresh)
	v0.POST("/auth/logout", authHandler.Logout)
	v0.GET("/auth/session", authHandler.Session)

	authed := v0.Group("")
	authed.Use(apiutil.RequireAuth(deps.Sessions))

	authed.POST("/auth/logout-all", authHandler.LogoutAll)
	authed.GET("/auth/sessions", authHandler.Sessions)
	authed.DELETE("/auth/sessions/:id", authHandler.RevokeSession)

	authed.GET("/me", handlers.Me)

	postHandler := handlers.NewPostHandler(deps.DB, deps.Ledger)
	authed.POST("/posts", postHandler.Create)
	authed.GET("/posts", postHandler.List)
	authed.GET("/posts/:id", postHandler.Get)

	voteHandler := handlers.NewVoteHandler(deps.Ledger)
	authed.POST("/vote", ratelimit.Middleware(deps.Limiter, ratelimit.ScopeVote, apiutil.UserSubject, rejectLimited), voteHandler.Vote)

	walletHandler := handlers.NewWalletHandler(deps.Ledger, deps.Payments)
	authed.GET("/wallet", walletHandler.Wallet)
	authed.GET("/wallet/transactions", walletHandler.Transactions)
	authed.POST("/wallet/purchases/verify", walletHandler.VerifyPurchase)
	authed.POST("/wallet/withdrawals", walletHandler.RequestWithdrawal)
	authed.GET("/wallet/withdrawals", walletHandler.ListWithdrawals)
}
