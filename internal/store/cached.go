package store

import (
	"context"
	"time"

	"splitledger/internal/cache"
	"splitledger/internal/core"
)

// CachedAccounts wraps an AccountStore with a read-through LRU. Writes
// go straight to the underlying store and invalidate the cached entry;
// list operations bypass the cache entirely.
type CachedAccounts struct {
	next  AccountStore
	cache *cache.LRU[core.Account]
}

func NewCachedAccounts(next AccountStore, size int, ttl time.Duration) *CachedAccounts {
	return &CachedAccounts{
		next:  next,
		cache: cache.NewLRU[core.Account](size, ttl),
	}
}

func (c *CachedAccounts) GetAccount(ctx context.Context, id string) (core.Account, error) {
	if account, ok := c.cache.Get(id); ok {
		return account.Clone(), nil
	}
	account, err := c.next.GetAccount(ctx, id)
	if err != nil {
		return core.Account{}, err
	}
	c.cache.Set(id, account.Clone())
	return account, nil
}

func (c *CachedAccounts) PutAccount(ctx context.Context, account core.Account) error {
	if err := c.next.PutAccount(ctx, account); err != nil {
		return err
	}
	c.cache.Invalidate(account.ID)
	return nil
}

func (c *CachedAccounts) ListAccounts(ctx context.Context) ([]core.Account, error) {
	return c.next.ListAccounts(ctx)
}

func (c *CachedAccounts) ListAccountsByMember(ctx context.Context, memberID string) ([]core.Account, error) {
	return c.next.ListAccountsByMember(ctx, memberID)
}
