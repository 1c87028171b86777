package api

import (
	"net/http" // HTTP status codes

	"blockchain_api/internal/chain" // Chain access

	"github.com/gin-gonic/gin" // Gin web framework
)

// HealthHandler reports service liveness and the configured network
func HealthHandler(network chain.Network) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",            // Service is up
			"network":  network.Name,    // Network name
			"chain_id": network.ChainID, // Chain ID
		})
	}
}
