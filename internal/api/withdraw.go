package api

import (
	"context"       // Context for Redis operations
	"encoding/json" // Arbitrary precision JSON numbers
	"errors"        // Error inspection
	"math/big"      // Wei scale amounts
	"net/http"      // HTTP status codes
	"regexp"        // Regular expressions
	"strings"       // String manipulation

	"blockchain_api/internal/chain"   // Chain access
	"blockchain_api/internal/domain"  // Importing domain models
	"blockchain_api/internal/ledger"  // Balance arithmetic
	"blockchain_api/internal/metrics" // Prometheus metrics
	"blockchain_api/internal/utils"   // Utility functions
	"blockchain_api/internal/wallet"  // Signing wallet

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
	"gorm.io/gorm/clause"          // Row locking
)

// Transferer signs and submits a transfer from one derived account
type Transferer interface {
	Transfer(ctx context.Context, token, to string, amount *big.Int) (*domain.Transaction, error)
}

// WalletFactory builds the signing wallet for an address index
type WalletFactory func(index uint32) (Transferer, error)

// PendingQueue receives submitted transactions for receipt polling
type PendingQueue interface {
	Enqueue(t domain.Transaction)
}

// WithdrawRequest represents a withdrawal request
type WithdrawRequest struct {
	FromAddress string      `json:"from_address" binding:"required"` // Tracked sender address
	ToAddress   string      `json:"to_address" binding:"required"`   // Recipient address
	Amount      json.Number `json:"amount" binding:"required"`       // Amount in base units
	Token       string      `json:"token" binding:"required"`        // ETH or USDC
}

// errInsufficientFunds marks a balance check failure inside the transaction
var errInsufficientFunds = errors.New("insufficient funds")

// isValidAddress checks a 0x prefixed 20 byte hex address
func isValidAddress(address string) bool {
	matched, _ := regexp.MatchString(`^0x[0-9a-fA-F]{40}$`, address) // Regex for Ethereum addresses
	return matched
}

// numOrNil converts a stored decimal string to a JSON number
func numOrNil(s *string) any {
	if s == nil {
		return nil
	}
	return json.Number(*s)
}

// WithdrawHandler signs and submits a transfer from a tracked address
// and records it for receipt confirmation
func WithdrawHandler(db *gorm.DB, rdb *redis.Client, walletFor WalletFactory, queue PendingQueue, network chain.Network) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req WithdrawRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Validate address formats
		if !isValidAddress(req.FromAddress) || !isValidAddress(req.ToAddress) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid address format"})
			return
		}
		from := strings.ToLower(req.FromAddress) // Addresses are stored lowercase
		to := strings.ToLower(req.ToAddress)
		// Prevent transferring to self
		if from == to {
			c.JSON(http.StatusBadRequest, gin.H{"error": "From and to addresses cannot be the same"})
			return
		}
		// Validate the token symbol
		if !chain.ValidToken(req.Token) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid token"})
			return
		}
		// Parse and validate the amount
		amount, ok := new(big.Int).SetString(req.Amount.String(), 10)
		if !ok || amount.Sign() <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
			return
		}
		var t *domain.Transaction // Submitted transaction record
		// Lock the sender row, check funds, submit and record atomically
		err := db.Transaction(func(tx *gorm.DB) error {
			var addr domain.Address // Sender address row
			// Lock the row to serialize concurrent withdrawals
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("address = ?", from).First(&addr).Error; err != nil {
				return err // Not found or query failure
			}
			// Available balance excludes pending obligations
			available, err := ledger.Available(tx, from, network.ChainID, req.Token)
			if err != nil {
				return err // Return error to rollback
			}
			// Check sufficient funds
			if available.Cmp(amount) < 0 {
				return errInsufficientFunds
			}
			// Derive the signing wallet for this address index
			w, err := walletFor(addr.Index)
			if err != nil {
				return err // Return error to rollback
			}
			// Sign and submit the transfer
			t, err = w.Transfer(c.Request.Context(), req.Token, to, amount)
			if err != nil {
				return err // Return error to rollback
			}
			// Save the pending transaction record
			if err := tx.Create(t).Error; err != nil {
				return err // Return error to rollback
			}
			// The withdrawal's own hash must never be re-credited as a deposit
			return tx.Create(&domain.ProcessedTransaction{Hash: t.Hash, ChainID: t.ChainID}).Error
		})
		// Handle transaction result
		if err != nil {
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				// Unknown sender address
				c.JSON(http.StatusNotFound, gin.H{"error": "Address not found"})
			case errors.Is(err, errInsufficientFunds):
				// Not enough available balance
				c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient funds"})
			case errors.Is(err, wallet.ErrUnsupportedToken):
				// Token slipped past validation
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid token"})
			case errors.Is(err, wallet.ErrProviderUnavailable):
				// Node unreachable
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Web3 provider is not connected"})
			default:
				// Log the error with context
				logrus.WithFields(logrus.Fields{
					"from_address": from,        // Sender address
					"to_address":   to,          // Recipient address
					"amount":       req.Amount,  // Requested amount
					"token":        req.Token,   // Token symbol
					"error":        err.Error(), // Error message
				}).Error("Withdrawal failed") // Log withdrawal failure
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Withdrawal failed"})
			}
			return
		}
		queue.Enqueue(*t) // Balance updates happen when the receipt confirms
		metrics.WithdrawalsSubmitted.WithLabelValues(req.Token).Inc()
		// Log successful submission
		logrus.WithFields(logrus.Fields{
			"hash":         t.Hash,     // Submitted transaction
			"from_address": from,       // Sender address
			"to_address":   to,         // Recipient address
			"amount":       req.Amount, // Requested amount
			"token":        req.Token,  // Token symbol
		}).Info("Withdrawal submitted")
		// Invalidate cached history for both parties
		ctx := context.Background() // Context for Redis operations
		_ = utils.DeleteCacheByPrefix(ctx, rdb, "history:"+from)
		_ = utils.DeleteCacheByPrefix(ctx, rdb, "history:"+to)
		// Return success response
		c.JSON(http.StatusOK, gin.H{
			"success":      true,                 // Operation succeeded
			"hash":         t.Hash,               // Submitted transaction
			"from_address": from,                 // Sender address
			"to_address":   to,                   // Recipient address
			"amount":       req.Amount,           // Requested amount
			"token":        req.Token,            // Token symbol
			"network":      network.Name,         // Network name
			"chain_id":     network.ChainID,      // Chain ID
			"status":       t.Status,             // Always pending at submission
			"gas_used":     t.GasUsed,            // Gas limit until the receipt is seen
			"gas_price":    numOrNil(t.GasPrice), // Gas price in wei
			"fee":          numOrNil(t.Fee),      // Estimated fee in wei
		})
	}
}
