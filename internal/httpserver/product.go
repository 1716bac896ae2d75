package httpserver

import (
	"net/http"

	"smartpos/internal/domain"

	"github.com/gin-gonic/gin"
)

type addProductRequest struct {
	Barcode string  `json:"barcode" binding:"required"`
	Name    string  `json:"name" binding:"required"`
	Price   float64 `json:"price" binding:"required"`
	Weight  float64 `json:"weight"`
}

func getProductHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		product, err := deps.Catalog.GetByBarcode(c.Request.Context(), c.Param("barcode"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

func addProductHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req addProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "barcode, name and price required"})
			return
		}
		createdBy := ""
		if token, ok := bearerToken(c); ok && deps.UserIdentity != nil {
			if subject, err := deps.UserIdentity.ExtractSubject(token); err == nil {
				createdBy = subject
			}
		}
		product, err := deps.Catalog.Create(c.Request.Context(), domain.Product{
			Barcode:   req.Barcode,
			Name:      req.Name,
			Price:     req.Price,
			Weight:    req.Weight,
			CreatedBy: createdBy,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, product)
	}
}
