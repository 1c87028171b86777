package api

import (
	"context"  // Context for Redis operations
	"errors"   // Error inspection
	"io"       // EOF detection for empty bodies
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Time durations

	"blockchain_api/internal/domain"  // Importing domain models
	"blockchain_api/internal/metrics" // Prometheus metrics
	"blockchain_api/internal/utils"   // Utility functions
	"blockchain_api/internal/wallet"  // Key derivation

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// Generation and listing limits per request
const (
	MaxAddressesPerRequest    = 100
	MaxListedPerRequest       = 100
	MaxTransactionsPerRequest = 100
)

// GenerateAddressesRequest represents an address generation request
type GenerateAddressesRequest struct {
	Quantity *int `json:"quantity"` // Number of addresses to derive (defaults to the maximum)
}

// parsePagination reads skip and limit query parameters
func parsePagination(c *gin.Context, maxLimit int) (int, int, bool) {
	skip, err := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if err != nil || skip < 0 {
		return 0, 0, false
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(maxLimit)))
	if err != nil || limit < 1 || limit > maxLimit {
		return 0, 0, false
	}
	return skip, limit, true
}

// GenerateAddressesHandler derives the next quantity addresses from the
// configured mnemonic and stores them
func GenerateAddressesHandler(db *gorm.DB, rdb *redis.Client, mnemonic string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req GenerateAddressesRequest // Bind JSON request to struct
		// An empty body means default quantity
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		quantity := MaxAddressesPerRequest
		if req.Quantity != nil {
			quantity = *req.Quantity
		}
		// Validate quantity range
		if quantity < 1 || quantity > MaxAddressesPerRequest {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid quantity"})
			return
		}
		var totalAfter int64 // Address count after the batch
		// Derive and store the batch atomically
		err := db.Transaction(func(tx *gorm.DB) error {
			var total int64 // Current address count, the next derivation index
			if err := tx.Model(&domain.Address{}).Count(&total).Error; err != nil {
				return err // Return error to rollback
			}
			for i := 0; i < quantity; i++ {
				index := uint32(total) + uint32(i) // Derivation continues where the last batch stopped
				keypair, err := wallet.DeriveKeypair(mnemonic, index)
				if err != nil {
					return err // Return error to rollback
				}
				// Store the lowercase address with its index
				if err := tx.Create(&domain.Address{Address: keypair.Address, Index: index}).Error; err != nil {
					return err // Return error to rollback
				}
			}
			return tx.Model(&domain.Address{}).Count(&totalAfter).Error
		})
		// Handle transaction result
		if err != nil {
			// Log the error with context
			logrus.WithFields(logrus.Fields{
				"quantity": quantity,    // Requested batch size
				"error":    err.Error(), // Error message
			}).Error("Address generation failed") // Log generation failure
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate addresses"})
			return
		}
		metrics.AddressesGenerated.Add(float64(quantity)) // Count derived addresses
		// Log successful generation
		logrus.WithFields(logrus.Fields{
			"generated": quantity,   // Addresses derived in this batch
			"total":     totalAfter, // Addresses tracked overall
		}).Info("Addresses generated")
		// Invalidate cached address listings
		ctx := context.Background() // Context for Redis operations
		_ = utils.DeleteCacheByPrefix(ctx, rdb, "addresses:")
		// Return success response
		c.JSON(http.StatusOK, gin.H{
			"success":   true,       // Operation succeeded
			"generated": quantity,   // Addresses derived in this batch
			"total":     totalAfter, // Addresses tracked overall
		})
	}
}

// ListAddressesHandler returns tracked addresses ordered by derivation index
func ListAddressesHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		skip, limit, ok := parsePagination(c, MaxListedPerRequest)
		if !ok {
			// If pagination is invalid, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid pagination parameters"})
			return
		}
		ctx := context.Background() // Context for Redis operations
		// Redis cache key
		cacheKey := "addresses:skip:" + strconv.Itoa(skip) + ":limit:" + strconv.Itoa(limit)
		var cached gin.H // Cached response payload
		// Try to get from cache
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, cached) // Return cached listing
			return
		}
		var total int64 // Total count of addresses
		// Count total addresses for pagination
		if err := db.Model(&domain.Address{}).Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count addresses"})
			return
		}
		var rows []domain.Address // Slice to hold address rows
		// Fetch the page ordered by derivation index
		if err := db.Order("`index` asc").Offset(skip).Limit(limit).Find(&rows).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch addresses"})
			return
		}
		addresses := make([]string, 0, len(rows)) // Address strings only
		for _, row := range rows {
			addresses = append(addresses, row.Address)
		}
		resp := gin.H{
			"success":   true,      // Operation succeeded
			"skip":      skip,      // Requested offset
			"limit":     limit,     // Requested page size
			"total":     total,     // Total tracked addresses
			"addresses": addresses, // Page of addresses
		}
		// Cache the result for 60 seconds
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, 60*time.Second)
		c.JSON(http.StatusOK, resp) // Return address listing
	}
}
