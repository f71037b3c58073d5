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

package database

const (
	accountColumns = `
		id, email, secret_hash, primary_balance, secondary_balance, tier, last_yield_time,
		total_earned, referral_code, referred_by, referral_count, referral_earnings,
		blocked, join_date, version`

	// Account queries
	queryGetAccountById = `
		SELECT` + accountColumns + `
		FROM accounts
		WHERE id = ?`

	queryGetAccountByEmail = `
		SELECT` + accountColumns + `
		FROM accounts
		WHERE email = ?`

	queryGetAccountByReferralCode = `
		SELECT` + accountColumns + `
		FROM accounts
		WHERE referral_code = ? AND referral_code != ''`

	queryListAccounts = `
		SELECT` + accountColumns + `
		FROM accounts
		ORDER BY join_date, id`

	queryInsertAccount = `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`

	queryUpdateAccount = `
		UPDATE accounts
		SET email = ?, secret_hash = ?, primary_balance = ?, secondary_balance = ?, tier = ?,
		    last_yield_time = ?, total_earned = ?, referral_code = ?, referred_by = ?,
		    referral_count = ?, referral_earnings = ?, blocked = ?, version = version + 1
		WHERE id = ? AND version = ?`

	queryAccountExists = `
		SELECT 1 FROM accounts WHERE id = ?`

	queryDeleteAccount = `
		DELETE FROM accounts WHERE id = ?`

	queryRekeyAccount = `
		UPDATE accounts SET id = ?, version = version + 1 WHERE id = ?`

	queryRekeyChildren = `
		UPDATE accounts SET referred_by = ?, version = version + 1 WHERE referred_by = ?`

	queryRekeyTransactions = `
		UPDATE transactions SET account_id = ? WHERE account_id = ?`

	queryRekeyJournal = `
		UPDATE journal_entries SET account_id = ? WHERE account_id = ?`

	queryRekeySession = `
		UPDATE sessions SET account_id = ? WHERE account_id = ?`

	// Transaction queries
	transactionColumns = `
		id, account_id, account_email, kind, amount, status, network, proof, created_at, settled_at`

	queryGetTransaction = `
		SELECT` + transactionColumns + `
		FROM transactions
		WHERE id = ?`

	queryListAccountTransactions = `
		SELECT` + transactionColumns + `
		FROM transactions
		WHERE account_id = ?
		ORDER BY created_at DESC, id DESC`

	queryListAllTransactions = `
		SELECT` + transactionColumns + `
		FROM transactions
		ORDER BY created_at DESC, id DESC`

	queryInsertTransaction = `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryUpdateTransaction = `
		UPDATE transactions
		SET status = ?, settled_at = ?
		WHERE id = ?`

	// Journal queries
	queryInsertJournalEntry = `
		INSERT INTO journal_entries (id, reference, account_id, currency, amount, entry_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	queryListAccountJournal = `
		SELECT id, reference, account_id, currency, amount, entry_type, created_at
		FROM journal_entries
		WHERE account_id = ?
		ORDER BY created_at, id`

	queryListAllJournal = `
		SELECT id, reference, account_id, currency, amount, entry_type, created_at
		FROM journal_entries
		ORDER BY created_at, id`

	// Session queries
	sessionSlot = "current"

	queryGetSession = `
		SELECT account_id FROM sessions WHERE slot = ?`

	queryUpsertSession = `
		INSERT INTO sessions (slot, account_id) VALUES (?, ?)
		ON CONFLICT(slot) DO UPDATE SET account_id = excluded.account_id`

	queryDeleteSession = `
		DELETE FROM sessions WHERE slot = ?`
)
