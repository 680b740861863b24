package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"baccarat-live-backend/internal/baccarat"
	"baccarat-live-backend/internal/models"
)

var ErrInsufficientBalance = errors.New("invalid bet amount")

// GameEngine owns the table of in-flight bets and runs the resolution
// pipeline: admission, deferred outcome, atomic ledger settlement and
// fan-out. Settlement runs on a timer so a waiting bet never blocks other
// users' logins, bets or chat.
type GameEngine struct {
	ledger       Ledger
	broadcaster  Broadcaster
	dealer       baccarat.Dealer
	resolveDelay time.Duration

	mu      sync.Mutex
	pending map[string]*models.PendingBet
}

func NewGameEngine(ledger Ledger, broadcaster Broadcaster, dealer baccarat.Dealer, resolveDelay time.Duration) *GameEngine {
	return &GameEngine{
		ledger:       ledger,
		broadcaster:  broadcaster,
		dealer:       dealer,
		resolveDelay: resolveDelay,
		pending:      make(map[string]*models.PendingBet),
	}
}

// PlaceBet admits a wager for username. On success the bet is committed to
// the table, announced to everyone and scheduled for settlement after the
// resolve delay. A returned error means nothing was mutated; the caller
// reports it to the bettor only.
func (ge *GameEngine) PlaceBet(ctx context.Context, username string, req *models.BetRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	user, err := ge.ledger.GetUser(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}

	if req.Amount > user.Balance {
		return ErrInsufficientBalance
	}

	bet := &models.PendingBet{
		ID:       models.NewGameID(),
		Username: username,
		Choice:   req.Choice,
		Bet:      req.Amount,
		Status:   models.BetStatusStarted,
		PlacedAt: time.Now().UnixMilli(),
	}

	ge.mu.Lock()
	ge.pending[bet.ID] = bet
	ge.mu.Unlock()

	ge.broadcaster.EmitToAll("game_started", map[string]any{
		"gameId": bet.ID,
		"player": bet.Username,
		"choice": bet.Choice,
		"bet":    bet.Bet,
	})

	time.AfterFunc(ge.resolveDelay, func() {
		ge.settle(bet)
	})

	return nil
}

// settle resolves one pending bet. Once admitted a bet always resolves;
// there is no cancellation path.
func (ge *GameEngine) settle(bet *models.PendingBet) {
	ctx := context.Background()

	res := baccarat.Play(ge.dealer, bet.Choice, bet.Bet)

	amount := bet.Bet
	winLose := "lose"
	if res.IsWin {
		amount = res.WinAmount
		winLose = "win"
	}

	entry := models.HistoryEntry{
		Result:      bet.Choice,
		Amount:      amount,
		WinLose:     winLose,
		PlayerScore: res.PlayerScore,
		BankerScore: res.BankerScore,
		Time:        time.Now().Unix(),
	}

	user, err := ge.ledger.ApplySettlement(ctx, bet.Username, res.IsWin, amount, entry)
	if err != nil {
		log.Printf("settlement failed for game %s (user %s): %v", bet.ID, bet.Username, err)
		ge.discard(bet.ID)
		ge.broadcaster.EmitToUser(bet.Username, "error", map[string]any{
			"message": "failed to save the game result",
		})
		return
	}

	ge.mu.Lock()
	bet.Status = models.BetStatusCompleted
	bet.PlayerScore = res.PlayerScore
	bet.BankerScore = res.BankerScore
	bet.IsWin = res.IsWin
	ge.mu.Unlock()

	ge.broadcaster.EmitToUser(bet.Username, "game_result", map[string]any{
		"gameId":      bet.ID,
		"playerCards": res.PlayerCards,
		"bankerCards": res.BankerCards,
		"playerScore": res.PlayerScore,
		"bankerScore": res.BankerScore,
		"isWin":       res.IsWin,
		"winAmount":   res.WinAmount,
		"bet":         bet.Bet,
		"newBalance":  user.Balance,
		"historyItem": entry.Line(),
	})

	ge.broadcaster.EmitToAll("game_completed", map[string]any{
		"gameId":      bet.ID,
		"player":      bet.Username,
		"isWin":       res.IsWin,
		"playerScore": res.PlayerScore,
		"bankerScore": res.BankerScore,
	})

	ge.RefreshRankings(ctx)

	ge.discard(bet.ID)
}

func (ge *GameEngine) discard(gameID string) {
	ge.mu.Lock()
	delete(ge.pending, gameID)
	ge.mu.Unlock()
}

// PendingCount reports how many bets are awaiting resolution.
func (ge *GameEngine) PendingCount() int {
	ge.mu.Lock()
	defer ge.mu.Unlock()
	return len(ge.pending)
}

// RefreshRankings recomputes the leaderboard from the ledger and
// broadcasts it to everyone.
func (ge *GameEngine) RefreshRankings(ctx context.Context) {
	rows, err := ge.ledger.Rankings(ctx, RankingLimit)
	if err != nil {
		log.Printf("rankings refresh failed: %v", err)
		return
	}

	ge.broadcaster.EmitToAll("rankings_update", rows)
}
