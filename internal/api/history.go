package api

import (
	"context"  // Context for Redis operations
	"net/http" // HTTP status codes
	"strconv"  // Integer formatting
	"strings"  // String manipulation
	"time"     // Cache TTL and timestamps

	"blockchain_api/internal/chain"  // Chain access
	"blockchain_api/internal/domain" // Importing domain models
	"blockchain_api/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library
)

// historyTransaction is one row of the transaction history response
type historyTransaction struct {
	Hash        string  `json:"hash"`         // Transaction hash
	FromAddress string  `json:"from_address"` // Sender address
	ToAddress   string  `json:"to_address"`   // Recipient address
	Amount      string  `json:"amount"`       // Amount in base units
	Token       string  `json:"token"`        // Token symbol
	Status      string  `json:"status"`       // Transaction status
	GasUsed     *string `json:"gas_used"`     // Gas used as string
	GasPrice    *string `json:"gas_price"`    // Gas price as string
	Fee         *string `json:"fee"`          // Fee as string
	CreatedAt   string  `json:"created_at"`   // RFC3339 timestamp
}

// HistoryHandler lists transactions where a tracked address is sender
// or recipient, filtered by token and chain, newest first
func HistoryHandler(db *gorm.DB, rdb *redis.Client, network chain.Network) gin.HandlerFunc {
	return func(c *gin.Context) {
		address := c.Query("address") // Address query parameter
		token := c.Query("token")     // Token query parameter
		// Validate address format
		if !isValidAddress(address) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid address format"})
			return
		}
		address = strings.ToLower(address) // Addresses are stored lowercase
		// Validate the token symbol
		if !chain.ValidToken(token) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid token"})
			return
		}
		// Parse pagination parameters
		skip, limit, ok := parsePagination(c, MaxTransactionsPerRequest)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid pagination parameters"})
			return
		}
		// The address must be tracked
		var addr domain.Address
		if err := db.Where("address = ?", address).First(&addr).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Address not found"})
			return
		}
		ctx := context.Background() // Context for Redis operations
		cacheKey := "history:" + address + ":" + token +
			":skip:" + strconv.Itoa(skip) + ":limit:" + strconv.Itoa(limit)
		// Serve from cache when present
		var cached gin.H
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, cached)
			return
		}
		cond := "(from_address = ? OR to_address = ?) AND token = ? AND chain_id = ?"
		// Count matching transactions
		var total int64
		if err := db.Model(&domain.Transaction{}).
			Where(cond, address, address, token, network.ChainID).
			Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load transactions"})
			return
		}
		// Load the requested page, newest first
		var list []domain.Transaction
		if err := db.Where(cond, address, address, token, network.ChainID).
			Order("created_at desc").Offset(skip).Limit(limit).
			Find(&list).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load transactions"})
			return
		}
		// Build response rows with string amounts and gas fields
		rows := make([]historyTransaction, 0, len(list))
		for _, t := range list {
			var gasUsed *string
			if t.GasUsed != nil {
				s := strconv.FormatUint(*t.GasUsed, 10) // Gas used as decimal string
				gasUsed = &s
			}
			rows = append(rows, historyTransaction{
				Hash:        t.Hash,                                 // Transaction hash
				FromAddress: t.FromAddress,                          // Sender address
				ToAddress:   t.ToAddress,                            // Recipient address
				Amount:      t.Amount,                               // Amount in base units
				Token:       t.Token,                                // Token symbol
				Status:      t.Status,                               // Transaction status
				GasUsed:     gasUsed,                                // Gas used as string
				GasPrice:    t.GasPrice,                             // Gas price as string
				Fee:         t.Fee,                                  // Fee as string
				CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339), // RFC3339 timestamp
			})
		}
		// Build response payload
		response := gin.H{
			"success":      true,            // Operation succeeded
			"address":      address,         // Queried address
			"token":        token,           // Token filter
			"network":      network.Name,    // Network name
			"chain_id":     network.ChainID, // Chain ID
			"skip":         skip,            // Pagination offset
			"limit":        limit,           // Pagination limit
			"total":        total,           // Total matching transactions
			"transactions": rows,            // Transaction rows
		}
		// Cache the response for one minute
		_ = utils.SetCache(ctx, rdb, cacheKey, response, 60*time.Second)
		c.JSON(http.StatusOK, response) // Return response
	}
}
