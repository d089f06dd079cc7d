package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"wager-settlement-system/models"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const leaderboardTTL = 30 * time.Second

// LeaderboardRow is the public slice of an account shown on rankings.
type LeaderboardRow struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Elo      int    `json:"elo"`
	Division string `json:"division"`
	Wins     int64  `json:"wins"`
	Losses   int64  `json:"losses"`
}

// LeaderboardService serves division rankings with a short redis
// cache in front of the accounts table. A nil redis client disables the
// cache and every read hits the database, which is what the tests do.
type LeaderboardService struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewLeaderboardService(db *gorm.DB, rdb *redis.Client) *LeaderboardService {
	return &LeaderboardService{DB: db, Redis: rdb}
}

func leaderboardKey(division string) string {
	return "leaderboard:" + division
}

// TopByDivision returns up to limit players ranked by elo. Cache misses
// and cache errors both fall through to the database; redis being down
// slows rankings, it never breaks them.
func (s *LeaderboardService) TopByDivision(ctx context.Context, division string, limit int) ([]LeaderboardRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	if s.Redis != nil {
		cached, err := s.Redis.Get(ctx, leaderboardKey(division)).Result()
		if err == nil {
			var rows []LeaderboardRow
			if json.Unmarshal([]byte(cached), &rows) == nil && len(rows) >= limit {
				return rows[:limit], nil
			}
		} else if err != redis.Nil {
			log.Printf("[leaderboard] redis read failed: %v", err)
		}
	}

	var rows []LeaderboardRow
	err := s.DB.Model(&models.PlayerAccount{}).
		Select("id AS user_id, username, elo, division, wins, losses").
		Where("division = ?", division).
		Order("elo DESC").
		Limit(100).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	if s.Redis != nil {
		if payload, err := json.Marshal(rows); err == nil {
			if err := s.Redis.Set(ctx, leaderboardKey(division), payload, leaderboardTTL).Err(); err != nil {
				log.Printf("[leaderboard] redis write failed: %v", err)
			}
		}
	}

	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (s *LeaderboardService) LeaderboardHandler(c *fiber.Ctx) error {
	division := c.Params("division")
	if _, err := EloForDivision(division); err != nil {
		return httpError(c, err)
	}
	rows, err := s.TopByDivision(c.Context(), division, c.QueryInt("limit", 50))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(fiber.Map{"division": division, "players": rows})
}
