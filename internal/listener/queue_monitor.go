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
	"sync"
	"time"

	"cloud-mining-ledger-go/internal/metrics"
	"cloud-mining-ledger-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// QueueSnapshot summarizes one poll of the approval queue.
type QueueSnapshot struct {
	Count  map[models.TransactionKind]int
	Amount map[models.TransactionKind]decimal.Decimal
	New    []models.Transaction
	Left   int
}

// Start begins the queue monitoring process
func (m *QueueMonitor) Start(ctx context.Context) error {
	zap.L().Info("Starting approval queue monitor")

	if m.source == nil {
		return fmt.Errorf("queue monitor requires a source")
	}
	if m.pollingInterval <= 0 {
		return fmt.Errorf("polling interval must be positive, got %v", m.pollingInterval)
	}

	// Fail fast when the configured administrator cannot read the queue
	if _, err := m.source.PendingTransactions(ctx, m.adminId); err != nil {
		return fmt.Errorf("unable to read approval queue: %w", err)
	}

	go m.pollLoop(ctx)

	zap.L().Info("Approval queue monitor started successfully",
		zap.Duration("polling_interval", m.pollingInterval),
		zap.Strings("symbols", m.symbols))

	return nil
}

// Stop gracefully stops the monitor
func (m *QueueMonitor) Stop() {
	zap.L().Info("Stopping approval queue monitor")
	close(m.stopChan)
	<-m.doneChan
	zap.L().Info("Approval queue monitor stopped")
}

func (m *QueueMonitor) pollLoop(ctx context.Context) {
	defer close(m.doneChan)

	ticker := time.NewTicker(m.pollingInterval)
	defer ticker.Stop()

	m.poll(ctx)

	for {
		select {
		case <-ticker.C:
			m.poll(ctx)
		case <-m.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// ANSI color helpers for console output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

// poll refreshes the queue and every monitored price concurrently
func (m *QueueMonitor) poll(ctx context.Context) {
	m.printf("\n%s[%s] Polling approval queue and %d prices%s\n",
		colorCyan, time.Now().Format("15:04:05"), len(m.symbols), colorReset)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := m.pollQueue(ctx); err != nil {
			m.printf("  %s✗ queue: %s%s\n", colorRed, err, colorReset)
			zap.L().Error("Failed to poll approval queue", zap.Error(err))
		}
	}()

	for _, symbol := range m.symbols {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			if err := m.pollPrice(ctx, sym); err != nil {
				m.printf("  %s✗ %s: %s%s\n", colorRed, sym, err, colorReset)
				zap.L().Warn("Failed to refresh price", zap.String("symbol", sym), zap.Error(err))
			}
		}(symbol)
	}

	wg.Wait()
}

// pollQueue reads the pending requests, updates the queue gauges and
// announces requests that were not pending on the previous poll.
func (m *QueueMonitor) pollQueue(ctx context.Context) (*QueueSnapshot, error) {
	pending, err := m.source.PendingTransactions(ctx, m.adminId)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending transactions: %w", err)
	}

	snap := &QueueSnapshot{
		Count: map[models.TransactionKind]int{
			models.KindDeposit:  0,
			models.KindWithdraw: 0,
		},
		Amount: map[models.TransactionKind]decimal.Decimal{
			models.KindDeposit:  decimal.Zero,
			models.KindWithdraw: decimal.Zero,
		},
	}

	ids := make(map[string]bool, len(pending))
	for _, tx := range pending {
		ids[tx.Id] = true
		snap.Count[tx.Kind]++
		snap.Amount[tx.Kind] = snap.Amount[tx.Kind].Add(tx.Amount)

		if m.isTransactionSeen(tx.Id) {
			continue
		}
		m.markTransactionSeen(tx.Id)
		snap.New = append(snap.New, tx)

		color := colorGreen
		if tx.Kind == models.KindWithdraw {
			color = colorYellow
		}
		m.printf("  %s+ %s %s USDT | %s %s | %s%s\n",
			color, tx.Kind, tx.Amount.StringFixed(2), tx.AccountEmail, tx.Network, tx.Id, colorReset)
		zap.L().Info("New request in approval queue",
			zap.String("transaction_id", tx.Id),
			zap.String("account_id", tx.AccountId),
			zap.String("kind", string(tx.Kind)),
			zap.String("amount", tx.Amount.String()))
	}
	snap.Left = m.forgetSettled(ids)

	for kind, count := range snap.Count {
		metrics.PendingTransactions.WithLabelValues(string(kind)).Set(float64(count))
		metrics.PendingAmount.WithLabelValues(string(kind)).Set(snap.Amount[kind].InexactFloat64())
	}

	if len(snap.New) == 0 {
		m.printf("  %s· %d pending, %d settled since last poll%s\n", colorGray, len(pending), snap.Left, colorReset)
	}
	return snap, nil
}

func (m *QueueMonitor) pollPrice(ctx context.Context, symbol string) error {
	q, err := m.source.Quote(ctx, symbol)
	if err != nil {
		return err
	}
	metrics.AssetPrice.WithLabelValues(q.Symbol, q.Source).Set(q.Price.InexactFloat64())

	color := colorGreen
	if q.Source != models.QuoteSourceLive {
		color = colorYellow
	}
	m.printf("  %s$ %s %s (%s%%) [%s]%s\n",
		color, q.Symbol, q.Price.String(), q.ChangePercent.StringFixed(2), q.Source, colorReset)
	return nil
}
