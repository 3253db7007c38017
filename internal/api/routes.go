package api

import (
	"github.com/gin-gonic/gin"

	"realestate/internal/api/middleware"
)

type routeHandlers struct {
	auth     *AuthHandler
	listings *ListingHandler
	public   *PublicHandler
	ws       *WsHandler
}

func registerRoutes(router *gin.Engine, h routeHandlers, identify gin.HandlerFunc) {
	site := router.Group("/")
	site.Use(identify)

	site.GET("/", h.public.Home)
	site.GET("/categories/:id", h.public.Category)
	site.POST("/search", h.public.Search)
	site.GET("/listing/:id", h.public.Listing)
	site.POST("/listing/:id", middleware.RequireIdentity(), h.public.PostMessage)
	site.GET("/404", h.public.NotFoundPage)
	site.GET("/api/listings", h.public.PublishedListings)

	authGroup := site.Group("/auth")
	{
		guest := middleware.RedirectAuthenticated(dashboardPath)
		authGroup.GET("/login", guest, h.auth.LoginForm)
		authGroup.POST("/login", guest, h.auth.Login)
		authGroup.POST("/logout", h.auth.Logout)
		authGroup.GET("/register", guest, h.auth.RegisterForm)
		authGroup.POST("/register", guest, h.auth.Register)
		authGroup.GET("/confirm/:token", h.auth.Confirm)
		authGroup.GET("/forgot-password", h.auth.ForgotForm)
		authGroup.POST("/forgot-password", h.auth.Forgot)
		authGroup.GET("/forgot-password/:token", h.auth.ResetForm)
		authGroup.POST("/forgot-password/:token", h.auth.Reset)
	}

	owner := site.Group("/")
	owner.Use(middleware.RequireIdentity())
	{
		owner.GET("/my-listings", h.listings.Dashboard)
		owner.GET("/listings/create", h.listings.CreateForm)
		owner.POST("/listings/create", h.listings.Create)
		owner.GET("/listings/:id/image", h.listings.ImageForm)
		owner.POST("/listings/:id/image", h.listings.AttachImage)
		owner.GET("/listings/:id/edit", h.listings.EditForm)
		owner.POST("/listings/:id/edit", h.listings.Edit)
		owner.POST("/listings/:id/delete", h.listings.Delete)
		owner.PUT("/listings/:id", h.listings.Toggle)
		owner.GET("/messages/:id", h.listings.Messages)
		owner.GET("/ws", h.ws.HandleConnection)
	}
}
