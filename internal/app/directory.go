package app

import (
	"context"
	"strings"
	"sync"
)

// UserLookup is the one store capability the directory needs.
type UserLookup interface {
	GetUser(ctx context.Context, userID string) (User, error)
}

// Directory memoizes user-id to email-domain lookups for one run. Safe for
// concurrent use.
type Directory struct {
	users UserLookup
	log   Logger

	mu    sync.Mutex
	cache map[string]domainEntry
}

type domainEntry struct {
	domain string
	ok     bool
}

// NewDirectory creates an empty directory cache.
func NewDirectory(users UserLookup, log Logger) *Directory {
	return &Directory{
		users: users,
		log:   log,
		cache: map[string]domainEntry{},
	}
}

// ResolveDomain returns the member's email domain. ok is false when the user
// cannot contribute one: lookup failed, account deleted, bot account, or no
// usable email on the profile. Misses are cached like hits, a user resolves
// the same way for the whole run.
func (d *Directory) ResolveDomain(ctx context.Context, userID string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if e, ok := d.cache[userID]; ok {
		return e.domain, e.ok
	}

	domain, ok := d.lookup(ctx, userID)
	d.cache[userID] = domainEntry{domain: domain, ok: ok}
	return domain, ok
}

func (d *Directory) lookup(ctx context.Context, userID string) (string, bool) {
	usr, err := d.users.GetUser(ctx, userID)
	if err != nil {
		d.log.Debugf("directory: lookup of user %s failed: %v", userID, err)
		return "", false
	}
	if usr.Deleted || usr.IsBot {
		return "", false
	}
	return EmailDomain(usr.Email)
}

// EmailDomain extracts the lowercased domain part of an email address.
func EmailDomain(email string) (string, bool) {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "", false
	}
	return strings.ToLower(email[at+1:]), true
}
