package workers

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"
)

// LedgerAuditWorker periodically re-derives every balance from the ledger
// and compares it to the stored column. The two are written in the same
// transaction, so a mismatch means a bug or manual tampering; the worker
// reports it loudly and leaves the data alone.
type LedgerAuditWorker struct {
	db       *gorm.DB
	interval time.Duration
}

func NewLedgerAuditWorker(db *gorm.DB, interval time.Duration) *LedgerAuditWorker {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &LedgerAuditWorker{db: db, interval: interval}
}

func (w *LedgerAuditWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting Ledger Audit Worker…")
	go w.run(ctx)
}

func (w *LedgerAuditWorker) run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.auditOnce(); err != nil {
				log.Printf("❌ Ledger audit pass failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("⏹️ Ledger Audit Worker stopped")
			return
		}
	}
}

type balanceMismatch struct {
	UserID    string
	Balance   int64
	LedgerSum int64
}

func (w *LedgerAuditWorker) auditOnce() error {
	var mismatches []balanceMismatch
	err := w.db.Raw(`
		SELECT a.id AS user_id, a.balance,
		       COALESCE(SUM(e.amount), 0) AS ledger_sum
		FROM player_accounts a
		LEFT JOIN ledger_entries e ON e.user_id = a.id
		WHERE a.deleted_at IS NULL
		GROUP BY a.id, a.balance
		HAVING a.balance <> COALESCE(SUM(e.amount), 0)
	`).Scan(&mismatches).Error
	if err != nil {
		return err
	}

	if len(mismatches) == 0 {
		log.Println("[AUDIT] ✅ All balances match their ledger sums")
		return nil
	}

	for _, m := range mismatches {
		log.Printf("[AUDIT] ❌ Balance mismatch for user=%s: stored=%d, ledger=%d (drift=%d)",
			m.UserID, m.Balance, m.LedgerSum, m.Balance-m.LedgerSum)
	}
	return nil
}
