package api

import (
	"net/http" // HTTP status codes

	"blockchain_api/internal/utils" // Utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"golang.org/x/crypto/bcrypt" // API key hashing
)

// Request struct for token issuance
type TokenRequest struct {
	APIKey string `json:"api_key" binding:"required"` // API key must be provided
}

// Response struct for authentication
type AuthResponse struct {
	Token string `json:"token"` // JWT token
}

// TokenHandler verifies the API key and returns a JWT token
func TokenHandler(apiKeyHash, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TokenRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Compare provided key with the configured hash
		if err := bcrypt.CompareHashAndPassword([]byte(apiKeyHash), []byte(req.APIKey)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
			return
		}
		// Generate JWT token
		token, err := utils.GenerateJWT(jwtSecret)
		if err != nil {
			// If token generation fails, return internal server error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}
		// Return the token in the response
		c.JSON(http.StatusOK, AuthResponse{Token: token})
	}
}
