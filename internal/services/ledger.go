package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"baccarat-live-backend/internal/config"
	"baccarat-live-backend/internal/models"
)

var (
	ErrUnknownUser = errors.New("unknown user")
	ErrUserExists  = errors.New("username already taken")
)

// Ledger is the persisted store of identities. Settlement is the only
// balance mutation and is applied as a single all-or-nothing unit together
// with the history append.
type Ledger interface {
	CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error)
	GetUser(ctx context.Context, username string) (*models.User, error)

	// ApplySettlement atomically applies one resolved bet: on a win,
	// balance += amount, wins += 1, profit += amount; on a loss,
	// balance -= amount, losses += 1, profit -= amount. The history entry
	// is appended in the same unit; on any failure no partial state is
	// observable. Returns the updated user.
	ApplySettlement(ctx context.Context, username string, won bool, amount float64, entry models.HistoryEntry) (*models.User, error)

	History(ctx context.Context, username string, limit int64) ([]models.HistoryEntry, error)

	// Rankings returns the leaderboard snapshot, profit descending,
	// at most limit rows.
	Rankings(ctx context.Context, limit int64) ([]models.RankingRow, error)
}

// RedisLedger stores user records as JSON values and keeps the profit
// ordering in a sorted set so ranking snapshots stay a single range read.
type RedisLedger struct {
	client          *redis.Client
	startingBalance float64
}

func NewRedisLedger(cfg *config.Config) (*RedisLedger, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisLedger{
		client:          client,
		startingBalance: cfg.StartingBalance,
	}, nil
}

func (l *RedisLedger) Close() error {
	return l.client.Close()
}

func (l *RedisLedger) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	id, err := l.client.Incr(ctx, KeyNextUserID).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to allocate user id: %w", err)
	}

	user := &models.User{
		ID:           id,
		Username:     username,
		PasswordHash: passwordHash,
		Balance:      l.startingBalance,
		CreatedAt:    time.Now().Unix(),
	}

	data, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal user: %w", err)
	}

	key := fmt.Sprintf(KeyUser, username)
	created, err := l.client.SetNX(ctx, key, data, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	if !created {
		return nil, ErrUserExists
	}

	if err := l.client.ZAdd(ctx, KeyProfitRank, redis.Z{Score: 0, Member: username}).Err(); err != nil {
		return nil, fmt.Errorf("failed to seed ranking entry: %w", err)
	}

	return user, nil
}

func (l *RedisLedger) GetUser(ctx context.Context, username string) (*models.User, error) {
	data, err := l.client.Get(ctx, fmt.Sprintf(KeyUser, username)).Result()
	if err == redis.Nil {
		return nil, ErrUnknownUser
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	var user models.User
	if err := json.Unmarshal([]byte(data), &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}

	return &user, nil
}

// settleScript applies the balance/statistics update, the history append
// and the ranking score in one script execution, so a bet can never be
// half-applied even with concurrent settlements for the same user.
var settleScript = redis.NewScript(`
	local userKey = KEYS[1]
	local historyKey = KEYS[2]
	local rankKey = KEYS[3]
	local won = ARGV[1] == "1"
	local amount = tonumber(ARGV[2])
	local entry = ARGV[3]
	local username = ARGV[4]
	local historyLimit = tonumber(ARGV[5])

	local data = redis.call("GET", userKey)
	if not data then
		return redis.error_reply("user not found")
	end

	local user = cjson.decode(data)

	if won then
		user.balance = user.balance + amount
		user.wins = (user.wins or 0) + 1
		user.profit = (user.profit or 0) + amount
	else
		if user.balance < amount then
			return redis.error_reply("insufficient balance")
		end
		user.balance = user.balance - amount
		user.losses = (user.losses or 0) + 1
		user.profit = (user.profit or 0) - amount
	end

	local updated = cjson.encode(user)
	redis.call("SET", userKey, updated)
	redis.call("LPUSH", historyKey, entry)
	redis.call("LTRIM", historyKey, 0, historyLimit - 1)
	redis.call("ZADD", rankKey, user.profit, username)

	return updated
`)

func (l *RedisLedger) ApplySettlement(ctx context.Context, username string, won bool, amount float64, entry models.HistoryEntry) (*models.User, error) {
	entryData, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal history entry: %w", err)
	}

	wonArg := "0"
	if won {
		wonArg = "1"
	}

	keys := []string{
		fmt.Sprintf(KeyUser, username),
		fmt.Sprintf(KeyUserHistory, username),
		KeyProfitRank,
	}

	data, err := settleScript.Run(ctx, l.client, keys, wonArg, amount, entryData, username, HistoryLimit).Text()
	if err != nil {
		if strings.Contains(err.Error(), "user not found") {
			return nil, ErrUnknownUser
		}
		return nil, fmt.Errorf("settlement failed: %w", err)
	}

	var user models.User
	if err := json.Unmarshal([]byte(data), &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settled user: %w", err)
	}

	return &user, nil
}

func (l *RedisLedger) History(ctx context.Context, username string, limit int64) ([]models.HistoryEntry, error) {
	if limit <= 0 || limit > HistoryLimit {
		limit = HistoryLimit
	}

	key := fmt.Sprintf(KeyUserHistory, username)
	raw, err := l.client.LRange(ctx, key, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}

	entries := make([]models.HistoryEntry, 0, len(raw))
	for _, item := range raw {
		var entry models.HistoryEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func (l *RedisLedger) Rankings(ctx context.Context, limit int64) ([]models.RankingRow, error) {
	if limit <= 0 || limit > RankingLimit {
		limit = RankingLimit
	}

	ranked, err := l.client.ZRevRangeWithScores(ctx, KeyProfitRank, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read rankings: %w", err)
	}

	rows := make([]models.RankingRow, 0, len(ranked))
	for _, z := range ranked {
		username, ok := z.Member.(string)
		if !ok {
			continue
		}

		user, err := l.GetUser(ctx, username)
		if err != nil {
			continue
		}

		rows = append(rows, models.RankingRow{
			Username: username,
			Profit:   user.Profit,
			Games:    user.GamesPlayed(),
			WinRate:  user.WinRate(),
		})
	}

	return rows, nil
}

// DeleteUser removes a user record and its derived keys. Test helper.
func (l *RedisLedger) DeleteUser(ctx context.Context, username string) error {
	if err := l.client.Del(ctx,
		fmt.Sprintf(KeyUser, username),
		fmt.Sprintf(KeyUserHistory, username),
	).Err(); err != nil {
		return err
	}
	return l.client.ZRem(ctx, KeyProfitRank, username).Err()
}
