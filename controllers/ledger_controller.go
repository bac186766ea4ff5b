package controllers

import (
	"net/http"
	"strconv"

	"account-service/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ConsumeRequest is the balance debit body: the consuming user and the
// number of tokens to deduct.
type ConsumeRequest struct {
	UID    string `json:"uid"`
	Amount int    `json:"amount"`
}

type LedgerController struct {
	Ledger *services.LedgerService
}

func NewLedgerController(ledger *services.LedgerService) *LedgerController {
	return &LedgerController{Ledger: ledger}
}

// Consume handles POST /api/consume. An optional Idempotency-Key header
// makes retried requests safe to re-send.
func (lc *LedgerController) Consume(c *gin.Context) {
	var req ConsumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return
	}

	if req.UID == "" || req.Amount == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "UID and amount are required"})
		return
	}

	userID, err := uuid.Parse(req.UID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid UID format"})
		return
	}

	idemKey := c.GetHeader("Idempotency-Key")

	newBalance, svcErr := lc.Ledger.Debit(c.Request.Context(), userID, req.Amount, idemKey)
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Balance deducted successfully",
		"newBalance": newBalance,
	})
}

// GetBalance handles GET /api/users/:id/balance.
func (lc *LedgerController) GetBalance(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format"})
		return
	}

	balance, svcErr := lc.Ledger.Balance(c.Request.Context(), userID)
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"uid":     userID.String(),
		"balance": balance,
	})
}

// GetHistory handles GET /api/users/:id/ledger.
func (lc *LedgerController) GetHistory(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	entries, total, svcErr := lc.Ledger.History(c.Request.Context(), userID, page, limit)
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}
