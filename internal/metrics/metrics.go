// Package metrics provides Prometheus metrics for the wallet service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AddressesGenerated counts derived addresses.
	AddressesGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blockchain_api_addresses_generated_total",
		Help: "Total number of addresses derived and stored.",
	})

	// DepositsDetected counts credited deposits by token.
	DepositsDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blockchain_api_deposits_detected_total",
		Help: "Total number of deposits credited, by token.",
	}, []string{"token"})

	// WithdrawalsSubmitted counts submitted withdrawals by token.
	WithdrawalsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blockchain_api_withdrawals_submitted_total",
		Help: "Total number of withdrawal transactions submitted, by token.",
	}, []string{"token"})

	// ReceiptsConfirmed counts withdrawals confirmed by the receipt worker.
	ReceiptsConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blockchain_api_receipts_confirmed_total",
		Help: "Total number of transactions confirmed on chain.",
	})

	// ReceiptsFailed counts withdrawals that reverted on chain.
	ReceiptsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blockchain_api_receipts_failed_total",
		Help: "Total number of transactions that reverted on chain.",
	})

	// ReceiptPollErrors counts receipt poll rounds that errored.
	ReceiptPollErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blockchain_api_receipt_poll_errors_total",
		Help: "Total number of errors while polling transaction receipts.",
	})

	// PendingTransactions tracks the receipt worker queue length.
	PendingTransactions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "blockchain_api_pending_transactions",
		Help: "Current number of transactions awaiting a receipt.",
	})
)
