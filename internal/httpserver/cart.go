package httpserver

import (
	"net/http"

	cartsvc "smartpos/internal/service/cart"

	"github.com/gin-gonic/gin"
)

// callerSubject resolves the acting principal from the bearer token. Claims
// are space-agnostic at parse time, so either identity instance can read them;
// session and role enforcement already happened at the gateway.
func callerSubject(c *gin.Context, deps Deps) (string, bool) {
	token, ok := bearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
		return "", false
	}
	svc := deps.CustomerIdentity
	if svc == nil {
		svc = deps.UserIdentity
	}
	subject, err := svc.ExtractSubject(token)
	if err != nil {
		writeError(c, err)
		return "", false
	}
	return subject, true
}

func listCartHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, ok := callerSubject(c, deps)
		if !ok {
			return
		}
		lines, err := deps.Cart.List(c.Request.Context(), username)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, lines)
	}
}

func addCartHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, ok := callerSubject(c, deps)
		if !ok {
			return
		}
		var in cartsvc.LineInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cart payload"})
			return
		}
		line, err := deps.Cart.Add(c.Request.Context(), username, in)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, line)
	}
}

func updateCartHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, ok := callerSubject(c, deps)
		if !ok {
			return
		}
		var in cartsvc.LineInput
		if err := c.ShouldBindJSON(&in); err != nil || in.ID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cart line id required"})
			return
		}
		line, err := deps.Cart.Update(c.Request.Context(), username, in)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, line)
	}
}

func deleteCartHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, ok := callerSubject(c, deps)
		if !ok {
			return
		}
		if err := deps.Cart.Delete(c.Request.Context(), username, c.Param("id")); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Item removed"})
	}
}
