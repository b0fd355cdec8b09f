package tracker

import (
	"context"
	"fmt"
	"time"
)

// PutUser writes a user profile, overwriting any existing record for the id.
func (c *Client) PutUser(ctx context.Context, u *User) (*User, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}
	u.UpdatedAt = time.Now().UTC()

	hash, err := UserToHash(u)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize user: %w", err)
	}
	if err := c.rdb.HSet(ctx, UserKey(c.namespace, u.ID), hash).Err(); err != nil {
		return nil, fmt.Errorf("failed to write user %s: %w", u.ID, err)
	}
	return u, nil
}

// GetUser retrieves a user profile by id.
// Returns ErrUserNotFound if the user doesn't exist.
func (c *Client) GetUser(ctx context.Context, userID string) (*User, error) {
	hash, ok, err := c.getHash(ctx, UserKey(c.namespace, userID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUserNotFound
	}
	return HashToUser(hash)
}
