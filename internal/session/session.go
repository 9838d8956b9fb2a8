package session

import (
	"coingecko-telegram-bot/internal/types"
	"strconv"
	"sync"

	gocache "github.com/patrickmn/go-cache"
)

// Store keeps per-user sessions in memory. Nothing expires and nothing survives a restart.
type Store struct {
	mu    sync.Mutex
	items *gocache.Cache
}

func NewStore() *Store {
	return &Store{items: gocache.New(gocache.NoExpiration, 0)}
}

// Get returns the session of userID, creating a default one on first access.
func (s *Store) Get(userID int64) types.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.getLocked(userID)
}

func (s *Store) SetFiatCurrency(userID int64, currency types.FiatCurrency) types.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getLocked(userID)
	sess.FiatCurrency = currency
	s.items.Set(key(userID), sess, gocache.NoExpiration)
	return sess
}

func (s *Store) SetSelectedCoin(userID int64, coin types.CoinSymbol) types.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getLocked(userID)
	sess.SelectedCoin = coin
	s.items.Set(key(userID), sess, gocache.NoExpiration)
	return sess
}

func (s *Store) Len() int {
	return s.items.ItemCount()
}

func (s *Store) getLocked(userID int64) types.Session {
	if v, found := s.items.Get(key(userID)); found {
		return v.(types.Session)
	}

	sess := types.Session{FiatCurrency: types.DefaultCurrency}
	s.items.Set(key(userID), sess, gocache.NoExpiration)
	return sess
}

func key(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
