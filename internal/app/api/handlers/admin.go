package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/fatflowers/gymdesk/internal/app/api/middleware"
	"github.com/fatflowers/gymdesk/internal/app/service/admin"
	"github.com/fatflowers/gymdesk/internal/platform/identity"
	"github.com/fatflowers/gymdesk/pkg/apperr"
)

// @Summary      Log in
// @Description  Issues a session token. The first login of an administrator without a password sets it.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body admin.LoginInput true "Credentials"
// @Success      200  {object}  handlers.RespLogin
// @Router       /api/v1/auth/login [post]
func ApiLogin(svc *admin.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req admin.LoginInput
		if !bindJSON(c, &req) {
			return
		}
		res, err := svc.Login(c.Request.Context(), req)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, res)
	}
}

// @Summary      Current session
// @Tags         Auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespSession
// @Router       /api/v1/me [get]
func ApiMe(c *gin.Context) {
	sess, found := identity.SessionFrom(c.Request.Context())
	if !found {
		fail(c, apperr.ErrUnauthenticated)
		return
	}
	ok(c, sess)
}

// @Summary      List administrators
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespAdmins
// @Router       /api/v1/admins [get]
func ApiListAdmins(svc *admin.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		admins, err := svc.List(c.Request.Context())
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, admins)
	}
}

// @Summary      Add administrator
// @Description  Creates the login of a new administrator, stamped as added by the caller.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body admin.AddInput true "New administrator"
// @Success      200  {object}  handlers.RespAdmin
// @Router       /api/v1/admins [post]
func ApiAddAdmin(svc *admin.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req admin.AddInput
		if !bindJSON(c, &req) {
			return
		}
		a, err := svc.Add(c.Request.Context(), req)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, a)
	}
}

// @Summary      Remove administrator
// @Description  Removing your own record is refused.
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        email path string true "Administrator email"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admins/{email} [delete]
func ApiRemoveAdmin(svc *admin.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Remove(c.Request.Context(), c.Param("email")); err != nil {
			fail(c, err)
			return
		}
		ok[any](c, nil)
	}
}

// RegisterAuthRoutes mounts the public login endpoint behind the limiter.
func RegisterAuthRoutes(r gin.IRouter, svc *admin.Service, limiter *middleware.RateLimiter) {
	r.POST("/auth/login", middleware.RateLimitMiddleware(limiter), ApiLogin(svc))
}

func RegisterAdminRoutes(r gin.IRouter, svc *admin.Service) {
	r.GET("/me", ApiMe)
	r.GET("/admins", ApiListAdmins(svc))
	r.POST("/admins", ApiAddAdmin(svc))
	r.DELETE("/admins/:email", ApiRemoveAdmin(svc))
}
