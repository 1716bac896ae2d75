package httpserver

import (
	"net/http"

	"smartpos/internal/service/identity"

	"github.com/gin-gonic/gin"
)

type registrationMode int

const (
	staffRegistration registrationMode = iota
	customerRegistration
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// registerIdentityRoutes wires one identity space under its path namespace.
// The user and customer spaces get the same surface apart from registration:
// staff accounts are provisioned with generated credentials, customers sign
// themselves up.
func registerIdentityRoutes(g *gin.RouterGroup, svc IdentityService, mode registrationMode) {
	auth := g.Group("/auth")
	{
		auth.POST("/login", loginHandler(svc))
		auth.POST("/refresh", refreshHandler(svc))
		auth.POST("/logout", logoutHandler(svc))
	}

	if mode == staffRegistration {
		g.POST("/register", registerStaffHandler(svc))
	} else {
		g.POST("/register", registerCustomerHandler(svc))
	}

	profile := g.Group("/profile")
	{
		profile.GET("", profileHandler(svc))
		profile.GET("/validate", validateHandler(svc))
		profile.GET("/role", roleHandler(svc))
		profile.GET("/username", usernameHandler(svc))
	}
}

func loginHandler(svc IdentityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username and password required"})
			return
		}
		result, err := svc.Login(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func refreshHandler(svc IdentityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req refreshRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "refreshToken required"})
			return
		}
		result, err := svc.Refresh(c.Request.Context(), req.RefreshToken)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func logoutHandler(svc IdentityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			return
		}
		if err := svc.Logout(c.Request.Context(), token); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
	}
}

func registerStaffHandler(svc IdentityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req identity.RegisterStaffInput
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid registration payload"})
			return
		}
		registeredBy := ""
		if token, ok := bearerToken(c); ok {
			if subject, err := svc.ExtractSubject(token); err == nil {
				registeredBy = subject
			}
		}
		result, err := svc.RegisterStaff(c.Request.Context(), req, registeredBy)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, result)
	}
}

func registerCustomerHandler(svc IdentityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req identity.RegisterCustomerInput
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid registration payload"})
			return
		}
		p, err := svc.RegisterCustomer(c.Request.Context(), req)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"username": p.Username,
			"message":  "Registration successful",
		})
	}
}

func profileHandler(svc IdentityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			return
		}
		p, err := svc.Profile(c.Request.Context(), token)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

func validateHandler(svc IdentityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			return
		}
		if err := svc.Validate(c.Request.Context(), token); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Token is valid"})
	}
}

func roleHandler(svc IdentityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			return
		}
		role, err := svc.ExtractRole(token)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"role": string(role)})
	}
}

func usernameHandler(svc IdentityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			return
		}
		username, err := svc.ExtractSubject(token)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"username": username})
	}
}
