package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"wager-settlement-system/utils"

	"gorm.io/gorm"
)

// SubscriptionChange is one row from the subscription service feed.
// Fee exemption at settlement time is decided from the mirrored copy, so
// the engine never blocks a payout on a cross-service call.
type SubscriptionChange struct {
	UserID    string     `json:"user_id"`
	Active    bool       `json:"active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type subscriptionChangesResponse struct {
	Subscriptions []SubscriptionChange `json:"subscriptions"`
}

type SubscriptionSyncWorker struct {
	db           *gorm.DB
	interval     time.Duration
	baseURL      string
	endpointPath string
	serviceToken string
	httpClient   *http.Client
}

func NewSubscriptionSyncWorker(db *gorm.DB, baseURL, endpointPath, serviceToken string) *SubscriptionSyncWorker {
	return &SubscriptionSyncWorker{
		db:           db,
		interval:     1 * time.Minute,
		baseURL:      baseURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
		httpClient:   utils.HTTPClient,
	}
}

func (w *SubscriptionSyncWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting Subscription Sync Worker (subscription-service → player_accounts)…")
	go w.run(ctx)
}

func (w *SubscriptionSyncWorker) run(ctx context.Context) {
	// Backfill from a day back so a restart never misses a window.
	lastSync := time.Now().UTC().Add(-24 * time.Hour)
	if err := w.syncBatch(ctx, lastSync); err != nil {
		log.Printf("⚠️ Initial subscription sync failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tickTime := time.Now().UTC()
			if err := w.syncBatch(ctx, lastSync); err != nil {
				log.Printf("❌ Subscription sync batch failed: %v", err)
				// Keep lastSync so the same window is retried next tick.
				continue
			}
			lastSync = tickTime
		case <-ctx.Done():
			log.Println("⏹️ Subscription Sync Worker stopped")
			return
		}
	}
}

func (w *SubscriptionSyncWorker) syncBatch(ctx context.Context, since time.Time) error {
	base, err := url.Parse(w.baseURL)
	if err != nil {
		return fmt.Errorf("invalid subscription service URL '%s': %w", w.baseURL, err)
	}
	endpointURL := base.JoinPath(w.endpointPath)
	q := endpointURL.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	endpointURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", endpointURL.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request to subscription service failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("subscription service returned %d: %s", resp.StatusCode, string(body))
	}

	var response subscriptionChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return fmt.Errorf("failed to decode subscription service response: %w", err)
	}

	if len(response.Subscriptions) == 0 {
		return nil
	}

	var updated, errored int
	for _, change := range response.Subscriptions {
		res := w.db.Table("player_accounts").
			Where("id = ?", change.UserID).
			Updates(map[string]interface{}{
				"subscription_active":  change.Active,
				"subscription_expires": change.ExpiresAt,
			})
		if res.Error != nil {
			errored++
			log.Printf("[SUB_SYNC] ⚠️ Failed to mirror subscription for user=%s: %v", change.UserID, res.Error)
			continue
		}
		// Accounts we have never seen are skipped; the account service
		// creates them on first contact and the next window catches up.
		if res.RowsAffected > 0 {
			updated++
		}
	}

	log.Printf("[SUB_SYNC] ✅ Mirrored %d subscription change(s) (%d applied, %d errors)",
		len(response.Subscriptions), updated, errored)
	return nil
}
