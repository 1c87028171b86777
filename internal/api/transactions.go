package api

import (
	"context"       // Context for Redis operations
	"encoding/json" // Arbitrary precision JSON numbers
	"errors"        // Error inspection
	"net/http"      // HTTP status codes
	"regexp"        // Regular expressions
	"strings"       // String manipulation

	"blockchain_api/internal/chain"   // Chain access and deposit detection
	"blockchain_api/internal/domain"  // Importing domain models
	"blockchain_api/internal/ledger"  // Balance arithmetic
	"blockchain_api/internal/metrics" // Prometheus metrics
	"blockchain_api/internal/utils"   // Utility functions

	"github.com/ethereum/go-ethereum"        // Sentinel errors
	"github.com/ethereum/go-ethereum/common" // Hash parsing
	"github.com/gin-gonic/gin"               // Gin web framework
	"github.com/google/uuid"                 // Transaction record IDs
	"github.com/redis/go-redis/v9"           // Redis client
	"github.com/sirupsen/logrus"             // Logging library
	"gorm.io/gorm"                           // GORM ORM library
)

// ProcessTransactionRequest represents a deposit detection request
type ProcessTransactionRequest struct {
	Hash string `json:"hash" binding:"required"` // Transaction hash to analyze
}

// depositEntry is one credited transfer in the response
type depositEntry struct {
	Address string      `json:"address"` // Credited address
	Amount  json.Number `json:"amount"`  // Amount in base units
	Token   string      `json:"token"`   // ETH or USDC
}

// isValidTxHash checks a 0x prefixed 32 byte hex hash
func isValidTxHash(hash string) bool {
	matched, _ := regexp.MatchString(`^0x[0-9a-fA-F]{64}$`, hash) // Regex for transaction hashes
	return matched                                                // Return whether it matched
}

// ProcessTransactionHandler analyzes a transaction and credits every
// transfer whose recipient is a tracked address
func ProcessTransactionHandler(db *gorm.DB, rdb *redis.Client, detector chain.Detector, network chain.Network) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ProcessTransactionRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Validate the hash format
		if !isValidTxHash(req.Hash) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction hash"})
			return
		}
		hash := strings.ToLower(req.Hash) // Hashes are stored lowercase
		// Reject hashes that were already processed
		var processed domain.ProcessedTransaction
		if err := db.Where("hash = ? AND chain_id = ?", hash, network.ChainID).First(&processed).Error; err == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "Transaction has already been processed"})
			return
		}
		// Resolve the transfers the transaction executed
		result, err := detector.AnalyzeTransaction(c.Request.Context(), common.HexToHash(hash))
		if err != nil {
			// Unknown hashes and unmined transactions are client errors
			if errors.Is(err, ethereum.NotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
				return
			}
			if errors.Is(err, chain.ErrNotMined) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Transaction not yet mined"})
				return
			}
			// Log the error with context
			logrus.WithFields(logrus.Fields{
				"hash":  hash,        // Analyzed transaction
				"error": err.Error(), // Error message
			}).Error("Transaction analysis failed") // Log analysis failure
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to analyze transaction"})
			return
		}
		// Collect the recipients we track
		recipients := make([]string, 0, len(result.Transfers))
		for _, transfer := range result.Transfers {
			recipients = append(recipients, transfer.ToAddress)
		}
		tracked := map[string]bool{} // Tracked recipient set
		if len(recipients) > 0 {
			var rows []domain.Address
			if err := db.Where("address IN ?", recipients).Find(&rows).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up addresses"})
				return
			}
			for _, row := range rows {
				tracked[row.Address] = true
			}
		}
		deposits := make([]depositEntry, 0) // Credited transfers
		// Credit deposits and mark the hash processed atomically
		err = db.Transaction(func(tx *gorm.DB) error {
			for _, transfer := range result.Transfers {
				if !tracked[transfer.ToAddress] {
					continue // Not one of ours
				}
				t := domain.Transaction{
					ID:          uuid.NewString(),         // Record ID
					Hash:        hash,                     // On-chain hash
					FromAddress: transfer.FromAddress,     // Sender
					ToAddress:   transfer.ToAddress,       // Credited address
					Amount:      transfer.Amount.String(), // Amount in base units
					ChainID:     network.ChainID,          // Chain
					Token:       transfer.Token,           // Token symbol
					Status:      domain.StatusConfirmed,   // Deposits are only visible once mined
				}
				// Save the deposit record
				if err := tx.Create(&t).Error; err != nil {
					return err // Return error to rollback
				}
				// Credit the recipient's balance
				if err := ledger.Credit(tx, transfer.ToAddress, network.ChainID, transfer.Token, transfer.Amount); err != nil {
					return err // Return error to rollback
				}
				deposits = append(deposits, depositEntry{
					Address: transfer.ToAddress,                    // Credited address
					Amount:  json.Number(transfer.Amount.String()), // Amount in base units
					Token:   transfer.Token,                        // Token symbol
				})
			}
			// Mark the hash processed even when nothing was credited
			return tx.Create(&domain.ProcessedTransaction{Hash: hash, ChainID: network.ChainID}).Error
		})
		// Handle transaction result
		if err != nil {
			// Log the error with context
			logrus.WithFields(logrus.Fields{
				"hash":  hash,        // Analyzed transaction
				"error": err.Error(), // Error message
			}).Error("Deposit processing failed") // Log processing failure
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process transaction"})
			return
		}
		ctx := context.Background() // Context for Redis operations
		// Log and count each credited deposit
		for _, deposit := range deposits {
			metrics.DepositsDetected.WithLabelValues(deposit.Token).Inc() // Count the deposit
			logrus.WithFields(logrus.Fields{
				"hash":    hash,            // Funding transaction
				"address": deposit.Address, // Credited address
				"amount":  deposit.Amount,  // Amount in base units
				"token":   deposit.Token,   // Token symbol
			}).Info("Deposit credited") // Log the credit
			// Invalidate cached history for the credited address
			_ = utils.DeleteCacheByPrefix(ctx, rdb, "history:"+deposit.Address)
		}
		// Return success response
		c.JSON(http.StatusOK, gin.H{
			"success":  true,            // Operation succeeded
			"hash":     hash,            // Analyzed transaction
			"network":  network.Name,    // Network name
			"chain_id": network.ChainID, // Chain ID
			"deposits": deposits,        // Credited transfers
		})
	}
}
