package services_test

import (
	"context"
	"errors"
	"sort"
	"sync"

	"baccarat-live-backend/internal/baccarat"
	"baccarat-live-backend/internal/models"
	"baccarat-live-backend/internal/services"
)

// fakeLedger is an in-memory Ledger for engine and auth tests.
type fakeLedger struct {
	mu        sync.Mutex
	nextID    int64
	users     map[string]*models.User
	histories map[string][]models.HistoryEntry

	failSettlement bool
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		users:     make(map[string]*models.User),
		histories: make(map[string][]models.HistoryEntry),
	}
}

func (l *fakeLedger) addUser(username string, balance float64) *models.User {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	u := &models.User{ID: l.nextID, Username: username, Balance: balance}
	l.users[username] = u
	return u
}

func (l *fakeLedger) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.users[username]; ok {
		return nil, services.ErrUserExists
	}

	l.nextID++
	u := &models.User{ID: l.nextID, Username: username, PasswordHash: passwordHash, Balance: 1000}
	l.users[username] = u
	copied := *u
	return &copied, nil
}

func (l *fakeLedger) GetUser(ctx context.Context, username string) (*models.User, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	u, ok := l.users[username]
	if !ok {
		return nil, services.ErrUnknownUser
	}
	copied := *u
	return &copied, nil
}

func (l *fakeLedger) ApplySettlement(ctx context.Context, username string, won bool, amount float64, entry models.HistoryEntry) (*models.User, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.failSettlement {
		return nil, errors.New("ledger unavailable")
	}

	u, ok := l.users[username]
	if !ok {
		return nil, services.ErrUnknownUser
	}

	if won {
		u.Balance += amount
		u.Wins++
		u.Profit += amount
	} else {
		u.Balance -= amount
		u.Losses++
		u.Profit -= amount
	}

	l.histories[username] = append([]models.HistoryEntry{entry}, l.histories[username]...)

	copied := *u
	return &copied, nil
}

func (l *fakeLedger) History(ctx context.Context, username string, limit int64) ([]models.HistoryEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := l.histories[username]
	if int64(len(entries)) > limit {
		entries = entries[:limit]
	}
	return append([]models.HistoryEntry(nil), entries...), nil
}

func (l *fakeLedger) Rankings(ctx context.Context, limit int64) ([]models.RankingRow, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows := make([]models.RankingRow, 0, len(l.users))
	for _, u := range l.users {
		rows = append(rows, models.RankingRow{
			Username: u.Username,
			Profit:   u.Profit,
			Games:    u.GamesPlayed(),
			WinRate:  u.WinRate(),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Profit > rows[j].Profit })
	if int64(len(rows)) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

type emitted struct {
	target  string // "" means broadcast
	event   string
	payload any
}

// fakeBroadcaster records emitted events and signals each one on a channel
// so tests can wait for asynchronous settlements.
type fakeBroadcaster struct {
	mu     sync.Mutex
	events []emitted
	ch     chan emitted
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{ch: make(chan emitted, 64)}
}

func (b *fakeBroadcaster) EmitToAll(event string, payload any) {
	b.record(emitted{event: event, payload: payload})
}

func (b *fakeBroadcaster) EmitToUser(username, event string, payload any) {
	b.record(emitted{target: username, event: event, payload: payload})
}

func (b *fakeBroadcaster) record(e emitted) {
	b.mu.Lock()
	b.events = append(b.events, e)
	b.mu.Unlock()
	b.ch <- e
}

func (b *fakeBroadcaster) byEvent(event string) []emitted {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []emitted
	for _, e := range b.events {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

// scriptedDealer feeds a fixed card sequence, repeating when exhausted.
type scriptedDealer struct {
	mu    sync.Mutex
	cards []baccarat.Card
	next  int
}

func (d *scriptedDealer) Draw() baccarat.Card {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := d.cards[d.next%len(d.cards)]
	d.next++
	return c
}

func card(value string) baccarat.Card {
	return baccarat.Card{Value: value, Suit: baccarat.Spades}
}

// constDealer always deals the same card, so concurrent settlements get a
// deterministic outcome no matter how their draws interleave.
type constDealer struct {
	c baccarat.Card
}

func (d constDealer) Draw() baccarat.Card {
	return d.c
}
