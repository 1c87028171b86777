package worker

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"blockchain_api/internal/chain"
	"blockchain_api/internal/domain"
	"blockchain_api/internal/ledger"
	"blockchain_api/internal/metrics"
	"blockchain_api/internal/utils"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ReceiptProcessor polls receipts for submitted transactions and settles
// them: confirmed transactions get their balances debited, reverted ones
// are marked failed. Handlers enqueue, the loop drains.
type ReceiptProcessor struct {
	db       *gorm.DB
	rdb      *redis.Client
	backend  chain.Backend
	network  chain.Network
	interval time.Duration

	mu      sync.Mutex
	pending []domain.Transaction

	stop chan struct{}
	done chan struct{}
}

// NewReceiptProcessor builds a stopped processor
func NewReceiptProcessor(gdb *gorm.DB, rdb *redis.Client, backend chain.Backend, network chain.Network, interval time.Duration) *ReceiptProcessor {
	return &ReceiptProcessor{
		db:       gdb,
		rdb:      rdb,
		backend:  backend,
		network:  network,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Enqueue adds a submitted transaction to the poll queue. Safe for
// concurrent use.
func (p *ReceiptProcessor) Enqueue(t domain.Transaction) {
	p.mu.Lock()
	p.pending = append(p.pending, t)
	n := len(p.pending)
	p.mu.Unlock()
	metrics.PendingTransactions.Set(float64(n))
}

// Start re-queues every pending transaction from the database and begins
// the poll loop in its own goroutine.
func (p *ReceiptProcessor) Start() {
	logrus.Info("Starting receipt processor")
	p.resync()
	go p.run()
}

// Stop terminates the poll loop and waits for the current round to end
func (p *ReceiptProcessor) Stop() {
	close(p.stop)
	<-p.done
	logrus.Info("Receipt processor stopped")
}

// resync reloads pending transactions of the active network after a
// restart. Rows from other chains stay untouched, the connected node
// cannot resolve their receipts.
func (p *ReceiptProcessor) resync() {
	var pending []domain.Transaction
	if err := p.db.Where("status = ? AND chain_id = ?", domain.StatusPending, p.network.ChainID).Find(&pending).Error; err != nil {
		logrus.Errorf("Failed to load pending transactions: %v", err)
		return
	}
	logrus.Infof("Found %d pending transactions", len(pending))
	for _, t := range pending {
		p.Enqueue(t)
	}
}

func (p *ReceiptProcessor) run() {
	defer close(p.done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		p.processPending(context.Background())
		select {
		case <-p.stop:
			return
		case <-ticker.C:
		}
	}
}

// processPending runs one poll round over a snapshot of the queue.
// Transactions that are not settled yet go back in.
func (p *ReceiptProcessor) processPending(ctx context.Context) {
	p.mu.Lock()
	batch := p.pending
	p.pending = nil
	p.mu.Unlock()

	var remaining []domain.Transaction
	for _, t := range batch {
		if !p.processOne(ctx, t) {
			remaining = append(remaining, t)
		}
	}

	p.mu.Lock()
	p.pending = append(remaining, p.pending...)
	n := len(p.pending)
	p.mu.Unlock()
	metrics.PendingTransactions.Set(float64(n))
}

// processOne settles a single transaction. It reports true when the
// transaction reached a terminal state and can leave the queue.
func (p *ReceiptProcessor) processOne(ctx context.Context, t domain.Transaction) bool {
	receipt, err := p.backend.TransactionReceipt(ctx, common.HexToHash(t.Hash))
	if errors.Is(err, ethereum.NotFound) {
		logrus.WithField("hash", t.Hash).Warn("Transaction not found on chain yet")
		return false
	}
	if err != nil {
		metrics.ReceiptPollErrors.Inc()
		logrus.WithFields(logrus.Fields{"hash": t.Hash, "error": err}).Error("Failed to fetch receipt")
		return false
	}

	gasUsed := receipt.GasUsed
	gasPrice := receipt.EffectiveGasPrice
	if gasPrice == nil && t.GasPrice != nil {
		gasPrice, _ = new(big.Int).SetString(*t.GasPrice, 10)
	}
	if gasPrice == nil {
		gasPrice = big.NewInt(0)
	}
	fee := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(gasUsed))
	updates := map[string]any{
		"gas_used":  gasUsed,
		"gas_price": gasPrice.String(),
		"fee":       fee.String(),
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		updates["status"] = domain.StatusFailed
		if err := p.db.Model(&domain.Transaction{}).Where("id = ?", t.ID).Updates(updates).Error; err != nil {
			metrics.ReceiptPollErrors.Inc()
			logrus.WithFields(logrus.Fields{"hash": t.Hash, "error": err}).Error("Failed to mark transaction failed")
			return false
		}
		metrics.ReceiptsFailed.Inc()
		logrus.WithFields(logrus.Fields{
			"hash":  t.Hash,
			"from":  t.FromAddress,
			"token": t.Token,
		}).Warn("Transaction reverted on chain")
		p.invalidateHistory(ctx, t)
		return true
	}

	updates["status"] = domain.StatusConfirmed
	err = p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.Transaction{}).Where("id = ?", t.ID).Updates(updates).Error; err != nil {
			return err
		}
		return ledger.DebitConfirmed(tx, &t, fee)
	})
	if err != nil {
		metrics.ReceiptPollErrors.Inc()
		logrus.WithFields(logrus.Fields{"hash": t.Hash, "error": err}).Error("Failed to confirm transaction")
		return false
	}
	metrics.ReceiptsConfirmed.Inc()
	logrus.WithFields(logrus.Fields{
		"hash":     t.Hash,
		"from":     t.FromAddress,
		"to":       t.ToAddress,
		"token":    t.Token,
		"gas_used": gasUsed,
		"fee":      fee.String(),
	}).Info("Transaction confirmed")
	p.invalidateHistory(ctx, t)
	return true
}

// invalidateHistory drops cached history pages of both parties. Cache
// errors are not fatal.
func (p *ReceiptProcessor) invalidateHistory(ctx context.Context, t domain.Transaction) {
	_ = utils.DeleteCacheByPrefix(ctx, p.rdb, "history:"+t.FromAddress)
	_ = utils.DeleteCacheByPrefix(ctx, p.rdb, "history:"+t.ToAddress)
}
