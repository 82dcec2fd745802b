package app

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/pkg/errors"
)

// ArchiveService runs one archive pass over the workspace.
type ArchiveService interface {
	Run(ctx context.Context) (*Result, error)
}

// WorkspaceStore is the remote workspace surface the service depends on.
// Implementations own pagination and rate-limit backoff, every returned
// collection is complete and every returned error is final.
type WorkspaceStore interface {
	ListChannels(ctx context.Context) ([]Channel, error)
	ListMembers(ctx context.Context, channelID string) ([]string, error)
	RecentHistory(ctx context.Context, channelID string) ([]Message, error)
	GetUser(ctx context.Context, userID string) (User, error)
	JoinChannel(ctx context.Context, channelID string) error
	ArchiveChannel(ctx context.Context, channelID string) error
}

// Logger is the leveled logging surface the service writes to.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Action is what the run did about one channel.
type Action string

const (
	ActionNone      Action = "none"
	ActionSimulated Action = "simulated"
	ActionArchived  Action = "archived"
	ActionFailed    Action = "failed"
)

// ChannelResult is the outcome for one channel. Every scanned channel gets
// exactly one, in listing order.
type ChannelResult struct {
	ID      string
	Name    string
	Verdict Verdict
	Action  Action
	Reason  string
	Error   error
}

// MarshalJSON renders Error as its message, a bare error value would
// serialize as an empty object.
func (r ChannelResult) MarshalJSON() ([]byte, error) {
	type plain ChannelResult
	out := struct {
		plain
		Error string `json:",omitempty"`
	}{plain: plain(r)}
	if r.Error != nil {
		out.Error = r.Error.Error()
	}
	return json.Marshal(out)
}

type Stats struct {
	Scanned   int
	Kept      int
	Simulated int
	Archived  int
	Failed    int
}

// Result is the whole run outcome, the only artifact handed to the report
// sinks.
type Result struct {
	Channels []ChannelResult
	Stats    Stats
}

type archiveService struct {
	policy    Policy
	store     WorkspaceStore
	directory *Directory
	logger    Logger
	now       func() time.Time
}

type Option func(*archiveService)

// WithBaseTime fixes the reference time activity ages are computed against.
func WithBaseTime(t time.Time) Option {
	return func(s *archiveService) {
		s.now = func() time.Time { return t }
	}
}

func NewArchiveService(pol Policy, store WorkspaceStore, dir *Directory, logger Logger, opts ...Option) ArchiveService {
	s := &archiveService{
		policy:    pol,
		store:     store,
		directory: dir,
		logger:    logger,
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// archiveRun carries the state of one Run invocation.
type archiveRun struct {
	*archiveService
	baseTime time.Time
	res      Result
}

func (s *archiveService) Run(ctx context.Context) (*Result, error) {
	s.logger.Debugf("archive: starting run")

	run := &archiveRun{
		archiveService: s,
		baseTime:       s.now(),
	}

	channels, err := s.store.ListChannels(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list channels")
	}

	s.logger.Infof("archive: scanning %d channels", len(channels))

	for _, ch := range channels {
		run.res.Channels = append(run.res.Channels, run.processChannel(ctx, ch))
	}

	run.tally()
	return &run.res, nil
}

// processChannel evaluates and acts on one channel. It never returns an
// error, a channel's failure ends up in its result record and the run moves
// on.
func (run *archiveRun) processChannel(ctx context.Context, ch Channel) ChannelResult {
	run.logger.Debugf("archive: processing channel %s id:%s members:%d member:%v", ch.Name, ch.ID, ch.NumMembers, ch.IsMember)

	cr := ChannelResult{ID: ch.ID, Name: ch.Name, Verdict: VerdictKeep, Action: ActionNone}

	if run.policy.Excluded(ch.Name) {
		cr.Reason = "excluded by policy"
		return cr
	}

	domains, err := run.memberDomains(ctx, ch)
	if err != nil {
		run.logger.Warnf("archive: channel %s: %v", ch.Name, err)
		cr.Reason = "member data unavailable"
		cr.Error = err
		return cr
	}

	age, ageKnown := run.activityAge(ctx, ch)

	cls := Classify(Observation{
		Archived: ch.Archived,
		Age:      age,
		AgeKnown: ageKnown,
		Domains:  domains,
	}, run.policy)

	cr.Verdict = cls.Verdict
	cr.Reason = cls.Reason

	if !cls.Verdict.ShouldArchive() {
		return cr
	}

	if !run.policy.Live {
		cr.Action = ActionSimulated
		return cr
	}

	if err := run.store.ArchiveChannel(ctx, ch.ID); err != nil {
		run.logger.Errorf("archive: failed to archive channel %s: %v", ch.Name, err)
		cr.Action = ActionFailed
		cr.Error = err
		return cr
	}

	run.logger.Infof("archive: archived channel %s", ch.Name)
	cr.Action = ActionArchived
	return cr
}

// memberDomains resolves the channel members to their distinct email
// domains, sorted for stable reasons. Members without a resolvable domain
// are skipped.
func (run *archiveRun) memberDomains(ctx context.Context, ch Channel) ([]string, error) {
	members, err := run.store.ListMembers(ctx, ch.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list members of channel %s", ch.ID)
	}

	seen := map[string]bool{}
	var domains []string
	for _, id := range members {
		domain, ok := run.directory.ResolveDomain(ctx, id)
		if !ok || seen[domain] {
			continue
		}
		seen[domain] = true
		domains = append(domains, domain)
	}
	sort.Strings(domains)
	return domains, nil
}

// activityAge returns the age of the newest channel message relative to the
// run's base time. Known is false when the inactivity rule is off, the
// history is empty or unreadable, or the join fallback did not help.
func (run *archiveRun) activityAge(ctx context.Context, ch Channel) (age time.Duration, known bool) {
	if run.policy.Threshold == 0 {
		return 0, false
	}

	msgs, err := run.store.RecentHistory(ctx, ch.ID)
	if err != nil && run.policy.JoinChannels && HasCode(err, CodeNotInChannel) {
		if jerr := run.store.JoinChannel(ctx, ch.ID); jerr != nil {
			run.logger.Warnf("archive: failed to join channel %s: %v", ch.Name, jerr)
			return 0, false
		}
		run.logger.Infof("archive: joined channel %s", ch.Name)
		msgs, err = run.store.RecentHistory(ctx, ch.ID)
	}
	if err != nil {
		run.logger.Warnf("archive: failed to fetch history of channel %s: %v", ch.Name, err)
		return 0, false
	}
	if len(msgs) == 0 || msgs[0].Timestamp.IsZero() {
		return 0, false
	}

	return run.baseTime.Sub(msgs[0].Timestamp), true
}

func (run *archiveRun) tally() {
	run.res.Stats.Scanned = len(run.res.Channels)
	for _, cr := range run.res.Channels {
		switch cr.Action {
		case ActionSimulated:
			run.res.Stats.Simulated++
		case ActionArchived:
			run.res.Stats.Archived++
		case ActionFailed:
			run.res.Stats.Failed++
		default:
			run.res.Stats.Kept++
		}
	}
}
