package httpserver

import (
	"net/http"

	"smartpos/internal/domain"

	"github.com/gin-gonic/gin"
)

type payBillRequest struct {
	BillID        string `json:"billId" binding:"required"`
	Username      string `json:"username"`
	PaymentMethod string `json:"paymentMethod" binding:"required"`
}

type billDeltaRequest struct {
	Username string  `json:"username" binding:"required"`
	Amount   float64 `json:"amount" binding:"required"`
	CartRef  string  `json:"cartRef"`
}

func viewBillHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, ok := callerSubject(c, deps)
		if !ok {
			return
		}
		bill, err := deps.Ledger.View(c.Request.Context(), username)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, bill)
	}
}

// payBillHandler finalizes a bill. A cashier pays on the customer's behalf by
// naming the owner in the body; the approver is always the token subject.
func payBillHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		approver, ok := callerSubject(c, deps)
		if !ok {
			return
		}
		var req payBillRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "billId and paymentMethod required"})
			return
		}
		method := domain.PaymentMethod(req.PaymentMethod)
		if method != domain.PaymentCash && method != domain.PaymentCard {
			c.JSON(http.StatusBadRequest, gin.H{"error": "paymentMethod must be CASH or CARD"})
			return
		}
		owner := req.Username
		if owner == "" {
			owner = approver
		}
		bill, err := deps.Ledger.Pay(c.Request.Context(), req.BillID, owner, method, approver)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, bill)
	}
}

// updateBillHandler is the delta endpoint consumed by the cart coordinator on
// split deployments. The named bill owner must be the token subject; a caller
// can never adjust another principal's bill.
func updateBillHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject, ok := callerSubject(c, deps)
		if !ok {
			return
		}
		var req billDeltaRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username and amount required"})
			return
		}
		if req.Username != subject {
			writeError(c, domain.ErrForbidden)
			return
		}
		bill, err := deps.Ledger.ApplyDelta(c.Request.Context(), req.Username, req.Amount, req.CartRef)
		if err != nil {
			writeError(c, err)
			return
		}
		if bill == nil {
			c.JSON(http.StatusOK, gin.H{"message": "Bill deleted"})
			return
		}
		c.JSON(http.StatusOK, bill)
	}
}
