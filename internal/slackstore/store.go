// Package slackstore talks to the Slack Web API on behalf of the archive
// service. It owns cursor pagination and rate-limit backoff, callers see
// complete collections and final errors only.
package slackstore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/slack-go/slack"

	"github.com/ericzzh/slack-channel-prune/internal/app"
)

const (
	// pageLimit is the page size for cursor-paginated listings.
	pageLimit = 200
	// historyLimit bounds the single newest-first history page used to
	// find the last activity.
	historyLimit = 100
	// maxAttempts caps how often one request is repeated after
	// rate-limit responses before it fails for good.
	maxAttempts = 3
)

// Store implements app.WorkspaceStore against a Slack Web API client.
type Store struct {
	client *slack.Client
	log    app.Logger
}

// Identity is the authenticated identity reported by the service.
type Identity struct {
	Team string
	User string
	URL  string
}

func New(client *slack.Client, log app.Logger) *Store {
	return &Store{client: client, log: log}
}

// do runs one API call, sleeping out rate-limit responses. The service
// names the wait. Everything else maps to an app.RemoteError and is never
// retried.
func (s *Store) do(ctx context.Context, op string, call func() error) error {
	for attempt := 1; ; attempt++ {
		err := call()
		if err == nil {
			return nil
		}

		var limited *slack.RateLimitedError
		if !errors.As(err, &limited) {
			return remoteError(op, err)
		}

		if attempt >= maxAttempts {
			s.log.Warnf("slackstore: %s still rate limited after %d attempts, giving up", op, attempt)
			return &app.RemoteError{Op: op, Code: app.CodeRateLimited, Err: err}
		}

		s.log.Debugf("slackstore: %s rate limited, retrying after %s", op, limited.RetryAfter)

		select {
		case <-time.After(limited.RetryAfter):
		case <-ctx.Done():
			return remoteError(op, ctx.Err())
		}
	}
}

func remoteError(op string, err error) error {
	var serr slack.SlackErrorResponse
	if errors.As(err, &serr) {
		return &app.RemoteError{Op: op, Code: serr.Err, Err: err}
	}
	return &app.RemoteError{Op: op, Err: err}
}

// AuthTest verifies the token and returns who the service thinks we are.
func (s *Store) AuthTest(ctx context.Context) (Identity, error) {
	var resp *slack.AuthTestResponse

	err := s.do(ctx, "auth.test", func() error {
		var err error
		resp, err = s.client.AuthTestContext(ctx)
		return err
	})
	if err != nil {
		return Identity{}, err
	}

	return Identity{Team: resp.Team, User: resp.User, URL: resp.URL}, nil
}

// ListChannels returns every non-archived public channel, following the
// listing cursor to exhaustion and preserving the service's order.
func (s *Store) ListChannels(ctx context.Context) ([]app.Channel, error) {
	var channels []app.Channel

	params := &slack.GetConversationsParameters{
		ExcludeArchived: true,
		Limit:           pageLimit,
		Types:           []string{"public_channel"},
	}

	for {
		var (
			page []slack.Channel
			next string
		)
		err := s.do(ctx, "conversations.list", func() error {
			var err error
			page, next, err = s.client.GetConversationsContext(ctx, params)
			return err
		})
		if err != nil {
			return nil, err
		}

		for _, ch := range page {
			channels = append(channels, app.Channel{
				ID:         ch.ID,
				Name:       ch.Name,
				Created:    createdTime(ch.Created),
				Archived:   ch.IsArchived,
				NumMembers: ch.NumMembers,
				IsMember:   ch.IsMember,
			})
		}

		if next == "" {
			break
		}
		params.Cursor = next
	}

	s.log.Debugf("slackstore: listed %d channels", len(channels))
	return channels, nil
}

// ListMembers returns all member user ids of a channel, cursor followed to
// exhaustion.
func (s *Store) ListMembers(ctx context.Context, channelID string) ([]string, error) {
	var members []string

	params := &slack.GetUsersInConversationParameters{
		ChannelID: channelID,
		Limit:     pageLimit,
	}

	for {
		var (
			page []string
			next string
		)
		err := s.do(ctx, "conversations.members", func() error {
			var err error
			page, next, err = s.client.GetUsersInConversationContext(ctx, params)
			return err
		})
		if err != nil {
			return nil, err
		}

		members = append(members, page...)

		if next == "" {
			break
		}
		params.Cursor = next
	}

	return members, nil
}

// RecentHistory returns the newest page of channel messages, most recent
// first. One bounded page is enough to find the last activity.
func (s *Store) RecentHistory(ctx context.Context, channelID string) ([]app.Message, error) {
	var resp *slack.GetConversationHistoryResponse

	err := s.do(ctx, "conversations.history", func() error {
		var err error
		resp, err = s.client.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
			ChannelID: channelID,
			Limit:     historyLimit,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	msgs := make([]app.Message, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		msgs = append(msgs, app.Message{
			User:      m.User,
			SubType:   m.SubType,
			Timestamp: parseTS(m.Timestamp),
		})
	}
	return msgs, nil
}

// GetUser resolves one user id to its directory entry.
func (s *Store) GetUser(ctx context.Context, userID string) (app.User, error) {
	var usr *slack.User

	err := s.do(ctx, "users.info", func() error {
		var err error
		usr, err = s.client.GetUserInfoContext(ctx, userID)
		return err
	})
	if err != nil {
		return app.User{}, err
	}

	return app.User{
		ID:      usr.ID,
		Name:    usr.Name,
		Email:   usr.Profile.Email,
		Deleted: usr.Deleted,
		IsBot:   usr.IsBot,
	}, nil
}

// JoinChannel joins the calling identity into a channel so its history
// becomes readable.
func (s *Store) JoinChannel(ctx context.Context, channelID string) error {
	return s.do(ctx, "conversations.join", func() error {
		_, _, _, err := s.client.JoinConversationContext(ctx, channelID)
		return err
	})
}

// ArchiveChannel archives a channel. The service call is idempotent only at
// the caller's level, an already archived channel comes back as an error
// code.
func (s *Store) ArchiveChannel(ctx context.Context, channelID string) error {
	return s.do(ctx, "conversations.archive", func() error {
		return s.client.ArchiveConversationContext(ctx, channelID)
	})
}

func createdTime(ts slack.JSONTime) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return ts.Time()
}
