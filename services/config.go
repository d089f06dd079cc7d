package services

import (
	"log"
	"os"
	"strconv"
	"time"
)

// SettlementConfig carries the engine tunables. Singleton accounts and
// bonus amounts are configuration handed to the engine, not constants baked
// into call sites.
type SettlementConfig struct {
	FeeRate         float64       // platform cut of the pot, e.g. 0.07
	FeeAccountID    string        // PlayerAccount that collects fees
	ReferralBonus   int64         // paid to both sides of a referral
	PendingMatchTTL time.Duration // join-to-confirm window before auto-abandon
	NoShowGrace     time.Duration // wait after scheduled time before claims open
}

func DefaultSettlementConfig() SettlementConfig {
	return SettlementConfig{
		FeeRate:         0.07,
		FeeAccountID:    "fee_wallet_user",
		ReferralBonus:   1000,
		PendingMatchTTL: 5 * time.Minute,
		NoShowGrace:     10 * time.Minute,
	}
}

// LoadSettlementConfig reads overrides from the environment, falling back
// to the defaults above.
func LoadSettlementConfig() SettlementConfig {
	cfg := DefaultSettlementConfig()

	if v := os.Getenv("FEE_RATE"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil || rate < 0 || rate >= 1 {
			log.Fatalf("invalid FEE_RATE %q", v)
		}
		cfg.FeeRate = rate
	}
	if v := os.Getenv("FEE_ACCOUNT_ID"); v != "" {
		cfg.FeeAccountID = v
	}
	if v := os.Getenv("REFERRAL_BONUS"); v != "" {
		bonus, err := strconv.ParseInt(v, 10, 64)
		if err != nil || bonus < 0 {
			log.Fatalf("invalid REFERRAL_BONUS %q", v)
		}
		cfg.ReferralBonus = bonus
	}
	if v := os.Getenv("PENDING_MATCH_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Fatalf("invalid PENDING_MATCH_TTL %q", v)
		}
		cfg.PendingMatchTTL = d
	}
	if v := os.Getenv("NO_SHOW_GRACE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Fatalf("invalid NO_SHOW_GRACE %q", v)
		}
		cfg.NoShowGrace = d
	}

	return cfg
}
