/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package listener

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"cloud-mining-ledger-go/internal/models"

	"go.uber.org/zap"
)

// QueueSource is the part of the ledger the monitor reads from.
type QueueSource interface {
	PendingTransactions(ctx context.Context, adminId string) ([]models.Transaction, error)
	Quote(ctx context.Context, symbol string) (models.Quote, error)
}

// QueueMonitorConfig contains configuration for QueueMonitor
type QueueMonitorConfig struct {
	Source          QueueSource
	AdminId         string
	Symbols         []string
	PollingInterval time.Duration
	Out             io.Writer
}

// QueueMonitor polls the approval queue and the price feed and publishes
// what it sees as metrics and console lines.
type QueueMonitor struct {
	source  QueueSource
	adminId string
	symbols []string
	out     io.Writer
	outMu   sync.Mutex

	// Requests already announced, keyed by transaction id
	seenTxIds       map[string]time.Time
	mutex           sync.RWMutex
	pollingInterval time.Duration

	// Control channels
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewQueueMonitor creates a new approval queue monitor
func NewQueueMonitor(cfg QueueMonitorConfig) *QueueMonitor {
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	return &QueueMonitor{
		source:          cfg.Source,
		adminId:         cfg.AdminId,
		symbols:         cfg.Symbols,
		out:             out,
		seenTxIds:       make(map[string]time.Time),
		pollingInterval: cfg.PollingInterval,
		stopChan:        make(chan struct{}),
		doneChan:        make(chan struct{}),
	}
}

func (m *QueueMonitor) printf(format string, args ...any) {
	m.outMu.Lock()
	defer m.outMu.Unlock()
	if _, err := fmt.Fprintf(m.out, format, args...); err != nil {
		zap.L().Debug("Failed to write monitor output", zap.Error(err))
	}
}

func (m *QueueMonitor) isTransactionSeen(txId string) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	_, exists := m.seenTxIds[txId]
	return exists
}

func (m *QueueMonitor) markTransactionSeen(txId string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.seenTxIds[txId] = time.Now()
}

// forgetSettled drops ids that are no longer pending and returns how many left the queue.
func (m *QueueMonitor) forgetSettled(pending map[string]bool) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	removed := 0
	for txId, seenAt := range m.seenTxIds {
		if pending[txId] {
			continue
		}
		delete(m.seenTxIds, txId)
		removed++
		zap.L().Debug("Request left the approval queue",
			zap.String("transaction_id", txId),
			zap.Duration("waited", time.Since(seenAt)))
	}
	return removed
}
