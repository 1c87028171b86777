package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"blockchain_api/internal/chain"
	"blockchain_api/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testMnemonic = "clinic flight consider display dash rubber subject language glare duck replace snack"
	// First two addresses the test mnemonic derives
	addrZero = "0xf39b278078f5488ca53b57eea65a9186d17e06e3"
	addrOne  = "0x4bb67806f3d073d5d57c2015401af5934db5a16c"
)

func setupTest(t *testing.T) (*gorm.DB, *redis.Client, *miniredis.Miniredis) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&domain.Address{}, &domain.Balance{}, &domain.Transaction{}, &domain.ProcessedTransaction{}))
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return gdb, rdb, mr
}

func testNetwork(t *testing.T) chain.Network {
	t.Helper()
	network, err := chain.LookupNetwork("sepolia")
	require.NoError(t, err)
	return network
}

// doJSON performs a request against the router and records the response
func doJSON(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// trackAddress stores an address row as if it had been derived
func trackAddress(t *testing.T, gdb *gorm.DB, address string, index uint32) {
	t.Helper()
	require.NoError(t, gdb.Create(&domain.Address{Address: address, Index: index}).Error)
}
