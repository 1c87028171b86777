package api

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"blockchain_api/internal/chain"
	"blockchain_api/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func historyRouter(gdb *gorm.DB, rdb *redis.Client, network chain.Network) *gin.Engine {
	r := gin.New()
	r.GET("/history", HistoryHandler(gdb, rdb, network))
	return r
}

func fakeHash(digit string) string {
	return "0x" + strings.Repeat(digit, 64)
}

// seedHistory stores a deposit and a withdrawal involving addrZero plus
// rows the ETH history of addrZero must not contain
func seedHistory(t *testing.T, gdb *gorm.DB) {
	t.Helper()
	trackAddress(t, gdb, addrZero, 0)

	gasUsed := uint64(21000)
	gasPrice := "120"
	fee := "2520000"
	rows := []domain.Transaction{
		{
			ID:          uuid.NewString(),
			Hash:        fakeHash("1"),
			FromAddress: "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
			ToAddress:   addrZero,
			Amount:      "1000000",
			ChainID:     11155111,
			Token:       chain.TokenETH,
			Status:      domain.StatusConfirmed,
			CreatedAt:   time.Date(2026, 2, 10, 10, 0, 0, 0, time.UTC),
		},
		{
			ID:          uuid.NewString(),
			Hash:        fakeHash("2"),
			FromAddress: addrZero,
			ToAddress:   addrOne,
			Amount:      "250000",
			ChainID:     11155111,
			Token:       chain.TokenETH,
			Status:      domain.StatusPending,
			GasUsed:     &gasUsed,
			GasPrice:    &gasPrice,
			Fee:         &fee,
			CreatedAt:   time.Date(2026, 2, 10, 11, 0, 0, 0, time.UTC),
		},
		{
			ID:          uuid.NewString(),
			Hash:        fakeHash("3"),
			FromAddress: "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
			ToAddress:   addrZero,
			Amount:      "700",
			ChainID:     11155111,
			Token:       chain.TokenUSDC,
			Status:      domain.StatusConfirmed,
			CreatedAt:   time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC),
		},
		{
			ID:          uuid.NewString(),
			Hash:        fakeHash("4"),
			FromAddress: "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
			ToAddress:   addrZero,
			Amount:      "800",
			ChainID:     1,
			Token:       chain.TokenETH,
			Status:      domain.StatusConfirmed,
			CreatedAt:   time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC),
		},
		{
			ID:          uuid.NewString(),
			Hash:        fakeHash("5"),
			FromAddress: "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
			ToAddress:   "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
			Amount:      "900",
			ChainID:     11155111,
			Token:       chain.TokenETH,
			Status:      domain.StatusConfirmed,
			CreatedAt:   time.Date(2026, 2, 10, 9, 45, 0, 0, time.UTC),
		},
	}
	for i := range rows {
		require.NoError(t, gdb.Create(&rows[i]).Error)
	}
}

func TestHistory(t *testing.T) {
	t.Run("Success - Filtered by token and chain, newest first", func(t *testing.T) {
		gdb, rdb, _ := setupTest(t)
		seedHistory(t, gdb)
		r := historyRouter(gdb, rdb, testNetwork(t))

		w := doJSON(t, r, http.MethodGet, "/history?address="+addrZero+"&token=ETH", "")
		assert.Equal(t, http.StatusOK, w.Code)
		expected := fmt.Sprintf(`{
			"success": true, "address": "%s", "token": "ETH",
			"network": "sepolia", "chain_id": 11155111,
			"skip": 0, "limit": 100, "total": 2,
			"transactions": [
				{
					"hash": "%s", "from_address": "%s", "to_address": "%s",
					"amount": "250000", "token": "ETH", "status": "pending",
					"gas_used": "21000", "gas_price": "120", "fee": "2520000",
					"created_at": "2026-02-10T11:00:00Z"
				},
				{
					"hash": "%s", "from_address": "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", "to_address": "%s",
					"amount": "1000000", "token": "ETH", "status": "confirmed",
					"gas_used": null, "gas_price": null, "fee": null,
					"created_at": "2026-02-10T10:00:00Z"
				}
			]
		}`, addrZero, fakeHash("2"), addrZero, addrOne, fakeHash("1"), addrZero)
		assert.JSONEq(t, expected, w.Body.String())
	})

	t.Run("Success - USDC history", func(t *testing.T) {
		gdb, rdb, _ := setupTest(t)
		seedHistory(t, gdb)
		r := historyRouter(gdb, rdb, testNetwork(t))

		w := doJSON(t, r, http.MethodGet, "/history?address="+addrZero+"&token=USDC", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"total":1`)
		assert.Contains(t, w.Body.String(), fakeHash("3"))
	})

	t.Run("Success - Pagination", func(t *testing.T) {
		gdb, rdb, _ := setupTest(t)
		seedHistory(t, gdb)
		r := historyRouter(gdb, rdb, testNetwork(t))

		w := doJSON(t, r, http.MethodGet, "/history?address="+addrZero+"&token=ETH&skip=1&limit=1", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"total":2`)
		assert.Contains(t, w.Body.String(), fakeHash("1"), "second page holds the older row")
		assert.NotContains(t, w.Body.String(), fakeHash("2"))
	})

	t.Run("Success - Normalizes address case", func(t *testing.T) {
		gdb, rdb, _ := setupTest(t)
		seedHistory(t, gdb)
		r := historyRouter(gdb, rdb, testNetwork(t))

		upper := "0x" + strings.ToUpper(addrZero[2:])
		w := doJSON(t, r, http.MethodGet, "/history?address="+upper+"&token=ETH", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), fmt.Sprintf(`"address":"%s"`, addrZero))
	})

	t.Run("Success - Serves repeated queries from cache", func(t *testing.T) {
		gdb, rdb, mr := setupTest(t)
		seedHistory(t, gdb)
		r := historyRouter(gdb, rdb, testNetwork(t))

		first := doJSON(t, r, http.MethodGet, "/history?address="+addrZero+"&token=ETH", "")
		assert.Equal(t, http.StatusOK, first.Code)
		assert.True(t, mr.Exists("history:"+addrZero+":ETH:skip:0:limit:100"))

		// A row added behind the cache's back stays invisible until expiry
		extra := domain.Transaction{
			ID:          uuid.NewString(),
			Hash:        fakeHash("6"),
			FromAddress: "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
			ToAddress:   addrZero,
			Amount:      "1",
			ChainID:     11155111,
			Token:       chain.TokenETH,
			Status:      domain.StatusConfirmed,
		}
		require.NoError(t, gdb.Create(&extra).Error)

		second := doJSON(t, r, http.MethodGet, "/history?address="+addrZero+"&token=ETH", "")
		assert.Equal(t, http.StatusOK, second.Code)
		assert.JSONEq(t, first.Body.String(), second.Body.String())
	})

	t.Run("Error - Unknown address", func(t *testing.T) {
		gdb, rdb, _ := setupTest(t)
		r := historyRouter(gdb, rdb, testNetwork(t))

		w := doJSON(t, r, http.MethodGet, "/history?address="+addrOne+"&token=ETH", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"error": "Address not found"}`, w.Body.String())
	})

	t.Run("Error - Invalid address format", func(t *testing.T) {
		gdb, rdb, _ := setupTest(t)
		r := historyRouter(gdb, rdb, testNetwork(t))

		for _, query := range []string{"/history?token=ETH", "/history?address=abc&token=ETH"} {
			w := doJSON(t, r, http.MethodGet, query, "")
			assert.Equal(t, http.StatusBadRequest, w.Code, query)
			assert.JSONEq(t, `{"error": "Invalid address format"}`, w.Body.String())
		}
	})

	t.Run("Error - Invalid token", func(t *testing.T) {
		gdb, rdb, _ := setupTest(t)
		trackAddress(t, gdb, addrZero, 0)
		r := historyRouter(gdb, rdb, testNetwork(t))

		for _, query := range []string{
			"/history?address=" + addrZero,
			"/history?address=" + addrZero + "&token=BTC",
		} {
			w := doJSON(t, r, http.MethodGet, query, "")
			assert.Equal(t, http.StatusBadRequest, w.Code, query)
			assert.JSONEq(t, `{"error": "Invalid token"}`, w.Body.String())
		}
	})

	t.Run("Error - Invalid pagination", func(t *testing.T) {
		gdb, rdb, _ := setupTest(t)
		trackAddress(t, gdb, addrZero, 0)
		r := historyRouter(gdb, rdb, testNetwork(t))

		w := doJSON(t, r, http.MethodGet, "/history?address="+addrZero+"&token=ETH&skip=-1", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error": "Invalid pagination parameters"}`, w.Body.String())
	})
}
