package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/zedbingo/bingo-engine/models"
)

type depositRequest struct {
	TelegramID int64   `json:"telegram_id" binding:"required"`
	Amount     float64 `json:"amount" binding:"required,gt=0"`
}

// Deposit adds funds to a user's cash balance.
func (a *API) Deposit(c *gin.Context) {
	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := a.Users.GetByTelegramID(c.Request.Context(), req.TelegramID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	after, err := a.Users.Credit(c.Request.Context(), user.ID, models.SourceCash, req.Amount)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to deposit"})
		return
	}
	tx := &models.Transaction{
		UserID:       user.ID,
		Type:         models.DepositTransaction,
		Amount:       req.Amount,
		Source:       models.SourceCash,
		BalanceAfter: after,
	}
	if _, err := a.Txs.Record(c.Request.Context(), tx); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record transaction"})
		return
	}
	c.JSON(http.StatusCreated, tx)
}

type withdrawRequest struct {
	TelegramID int64   `json:"telegram_id" binding:"required"`
	Amount     float64 `json:"amount" binding:"required,gt=0"`
}

// Withdraw takes funds out of the cash balance; bonus funds are not
// withdrawable.
func (a *API) Withdraw(c *gin.Context) {
	var req withdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := a.Users.GetByTelegramID(c.Request.Context(), req.TelegramID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	ok, err := a.Users.DebitIfSufficient(c.Request.Context(), user.ID, models.SourceCash, req.Amount)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to withdraw"})
		return
	}
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "insufficient balance"})
		return
	}

	fresh, _ := a.Users.GetByID(c.Request.Context(), user.ID)
	after := 0.0
	if fresh != nil {
		after = fresh.CashBalance
	}
	tx := &models.Transaction{
		UserID:       user.ID,
		Type:         models.WithdrawTransaction,
		Amount:       req.Amount,
		Source:       models.SourceCash,
		BalanceAfter: after,
	}
	if _, err := a.Txs.Record(c.Request.Context(), tx); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record transaction"})
		return
	}
	c.JSON(http.StatusCreated, tx)
}

// ListTransactions returns a user's recent ledger entries.
func (a *API) ListTransactions(c *gin.Context) {
	tid, err := strconv.ParseInt(c.Param("telegram_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid telegram_id"})
		return
	}
	user, err := a.Users.GetByTelegramID(c.Request.Context(), tid)
	if err != nil || user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	txs, err := a.Txs.ListByUser(c.Request.Context(), user.ID, 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}
	c.JSON(http.StatusOK, txs)
}
