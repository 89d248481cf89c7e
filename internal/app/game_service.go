package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"trivia-service/internal/domain"
	"trivia-service/internal/engine"
	"trivia-service/internal/metrics"
)

// SessionRepository abstracts where active rounds live between requests.
type SessionRepository interface {
	GetOrCreate(player string) *Session
	Get(player string) (*Session, bool)
	DeleteIfIdle(player string)
}

// CatalogRepository loads subject content (from cache/backing store).
type CatalogRepository interface {
	GetSubject(ctx context.Context, name string) (domain.Subject, error)
	ListSubjects(ctx context.Context) ([]domain.Subject, error)
}

// ProfileStore persists player profiles. A missing profile is reported with found=false.
type ProfileStore interface {
	LoadProfile(ctx context.Context, name string) (profile domain.Profile, found bool, err error)
	SaveProfile(ctx context.Context, profile domain.Profile) error
	DeleteProfile(ctx context.Context, name string) error
}

// ResultLog is the append-only log of finished rounds.
type ResultLog interface {
	AppendEntry(ctx context.Context, entry domain.LeaderboardEntry) error
	Entries(ctx context.Context) ([]domain.LeaderboardEntry, error)
}

// Options carries the tunables of a GameService.
type Options struct {
	Rules            engine.Rules
	Defaults         domain.ProfileDefaults
	HistoryLimit     int
	LeaderboardLimit int
	// Prices maps lifeline kinds to their coin cost.
	Prices map[string]int
	// Avatars maps cosmetic avatars to their coin cost.
	Avatars map[string]int
	Source  engine.Source
	Now     func() time.Time
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// GameService contains the quiz use cases: rounds, lifelines, store, leaderboard and stats.
type GameService struct {
	sessions SessionRepository
	catalog  CatalogRepository
	profiles ProfileStore
	results  ResultLog

	engine  *engine.Engine
	opts    Options
	now     func() time.Time
	log     *zap.Logger
	metrics *metrics.Metrics

	cacheMu sync.Mutex
	cache   map[string]domain.Profile
	locks   sync.Map // player -> *sync.Mutex

	journal journal
	feed    *feed
}

func NewGameService(sessions SessionRepository, catalog CatalogRepository, profiles ProfileStore, results ResultLog, opts Options) *GameService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 50
	}
	if opts.LeaderboardLimit <= 0 {
		opts.LeaderboardLimit = 20
	}
	return &GameService{
		sessions: sessions,
		catalog:  catalog,
		profiles: profiles,
		results:  results,
		engine:   engine.New(opts.Rules, opts.Source),
		opts:     opts,
		now:      opts.Now,
		log:      opts.Logger,
		metrics:  opts.Metrics,
		cache:    make(map[string]domain.Profile),
		feed:     newFeed(),
	}
}

// Subjects lists the catalog for the subject picker.
func (s *GameService) Subjects(ctx context.Context) ([]domain.SubjectSummary, error) {
	subjects, err := s.catalog.ListSubjects(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.SubjectSummary, 0, len(subjects))
	for _, subj := range subjects {
		out = append(out, subj.Summary())
	}
	return out, nil
}

// Profile returns the player's profile, creating a first-run one when none is stored.
func (s *GameService) Profile(ctx context.Context, player string) (domain.Profile, error) {
	name, err := playerName(player)
	if err != nil {
		return domain.Profile{}, err
	}
	profile, _ := s.loadProfile(ctx, name)
	return profile, nil
}

// StartRound draws a new round for subject/tier. Any round already in
// progress for the player is abandoned.
func (s *GameService) StartRound(ctx context.Context, player, subject string, tier int) (RoundView, error) {
	name, err := playerName(player)
	if err != nil {
		return RoundView{}, err
	}
	subj, err := s.catalog.GetSubject(ctx, subject)
	if err != nil {
		return RoundView{}, err
	}
	profile, _ := s.loadProfile(ctx, name)
	round, err := s.engine.StartRound(profile, subj, tier, s.now())
	if err != nil {
		return RoundView{}, err
	}

	session := s.sessions.GetOrCreate(name)
	session.mu.Lock()
	defer session.mu.Unlock()
	session.round = round

	s.metrics.RoundStarted(subj.Name)
	s.log.Debug("round started",
		zap.String("player", name),
		zap.String("subject", subj.Name),
		zap.Int("tier", tier),
		zap.Int("questions", len(round.Questions)))
	return newRoundView(round), nil
}

// Round returns the player's round as it stands.
func (s *GameService) Round(_ context.Context, player string) (RoundView, error) {
	var view RoundView
	err := s.withRound(player, func(_ string, r *engine.Round) error {
		view = newRoundView(r)
		return nil
	})
	return view, err
}

// SubmitAnswer records the player's selection for the current question.
func (s *GameService) SubmitAnswer(_ context.Context, player string, selection int) (domain.Outcome, error) {
	var outcome domain.Outcome
	err := s.withRound(player, func(_ string, r *engine.Round) error {
		var err error
		outcome, err = s.engine.RecordAnswer(r, selection)
		return err
	})
	if err != nil {
		return domain.Outcome{}, err
	}
	s.metrics.AnswerRecorded(outcome.Correct)
	return outcome, nil
}

// TickResult is the clock state after a Tick. Outcome is set when the tick
// expired the question.
type TickResult struct {
	Remaining time.Duration   `json:"remaining"`
	State     string          `json:"state"`
	Outcome   *domain.Outcome `json:"outcome,omitempty"`
}

// Tick advances the player's question clock by step.
func (s *GameService) Tick(_ context.Context, player string, step time.Duration) (TickResult, error) {
	var res TickResult
	err := s.withRound(player, func(_ string, r *engine.Round) error {
		if outcome, expired := s.engine.Tick(r, step); expired {
			res.Outcome = &outcome
		}
		res.Remaining = r.Clock.Remaining()
		res.State = r.Clock.State().String()
		return nil
	})
	if err != nil {
		return TickResult{}, err
	}
	if res.Outcome != nil {
		s.metrics.AnswerRecorded(false)
	}
	return res, nil
}

// UseLifeline spends one lifeline on the current question. Inventory changes
// are saved immediately, so a persistence error may accompany an applied result.
func (s *GameService) UseLifeline(ctx context.Context, player string, kind domain.LifelineKind) (engine.LifelineResult, error) {
	var res engine.LifelineResult
	var saveErr error
	err := s.withRound(player, func(name string, r *engine.Round) error {
		_, err := s.mutateProfile(ctx, name, func(p *domain.Profile) error {
			var err error
			res, err = s.engine.UseLifeline(r, p, kind)
			if err == nil && !res.Applied {
				return errNotApplied
			}
			return err
		}, &saveErr)
		if errors.Is(err, errNotApplied) {
			return nil
		}
		return err
	})
	if err != nil {
		return engine.LifelineResult{}, err
	}
	if res.Applied {
		s.metrics.LifelineUsed(string(kind))
	}
	return res, saveErr
}

// NextQuestion moves past an answered question. more is false once the round
// has no questions left and FinishRound should be called.
func (s *GameService) NextQuestion(_ context.Context, player string) (RoundView, bool, error) {
	var (
		view RoundView
		more bool
	)
	err := s.withRound(player, func(_ string, r *engine.Round) error {
		var err error
		more, err = r.Advance()
		view = newRoundView(r)
		return err
	})
	return view, more, err
}

// FinishRound settles a completed round: coins, unlocks and mastery go to the
// profile and an entry goes to the leaderboard. When persistence fails the
// result is still returned, alongside an error matching domain.ErrPersistence.
func (s *GameService) FinishRound(ctx context.Context, player string) (domain.RoundResult, error) {
	name, err := playerName(player)
	if err != nil {
		return domain.RoundResult{}, err
	}
	session, ok := s.sessions.Get(name)
	if !ok {
		return domain.RoundResult{}, domain.ErrNoActiveRound
	}

	session.mu.Lock()
	round, ok := session.activeLocked()
	if !ok {
		session.mu.Unlock()
		return domain.RoundResult{}, domain.ErrNoActiveRound
	}
	if !round.Complete() {
		session.mu.Unlock()
		return domain.RoundResult{}, domain.ErrRoundIncomplete
	}

	now := s.now()
	var (
		result  domain.RoundResult
		avatar  string
		saveErr error
	)
	_, err = s.mutateProfile(ctx, name, func(p *domain.Profile) error {
		var err error
		result, err = s.engine.FinishRound(round, p, now)
		avatar = p.Avatar
		return err
	}, &saveErr)
	if err != nil {
		session.mu.Unlock()
		return domain.RoundResult{}, err
	}
	session.round = nil
	session.mu.Unlock()
	s.sessions.DeleteIfIdle(name)

	elapsed := result.ElapsedSeconds
	entry := domain.LeaderboardEntry{
		ID:          uuid.NewString(),
		Player:      name,
		Subject:     result.Subject,
		Tier:        result.Tier,
		Score:       result.Score,
		Total:       result.Total,
		Time:        &elapsed,
		Avatar:      avatar,
		CompletedAt: now,
	}
	submitErr := s.SubmitResult(ctx, entry)

	s.metrics.RoundFinished(result.Subject, result.Passed)
	s.log.Info("round finished",
		zap.String("player", name),
		zap.String("subject", result.Subject),
		zap.Int("tier", result.Tier),
		zap.Int("score", result.Score),
		zap.Int("total", result.Total),
		zap.Bool("passed", result.Passed),
		zap.Bool("unlocked", result.Unlocked))
	return result, errors.Join(saveErr, submitErr)
}

// AbandonRound discards the player's round. Lifelines already spent stay spent.
func (s *GameService) AbandonRound(_ context.Context, player string) error {
	name, err := playerName(player)
	if err != nil {
		return err
	}
	session, ok := s.sessions.Get(name)
	if !ok {
		return domain.ErrNoActiveRound
	}
	session.mu.Lock()
	had := session.round != nil
	session.round = nil
	session.mu.Unlock()
	s.sessions.DeleteIfIdle(name)
	if !had {
		return domain.ErrNoActiveRound
	}
	return nil
}

// SubmitResult validates and appends a finished-round entry. On a failed
// write the entry is journaled, stays visible in views and RetryPending can
// persist it later.
func (s *GameService) SubmitResult(ctx context.Context, entry domain.LeaderboardEntry) error {
	entry.Player = strings.TrimSpace(entry.Player)
	if err := entry.Validate(); err != nil {
		return err
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CompletedAt.IsZero() {
		entry.CompletedAt = s.now()
	}
	entry.Percentage = engine.EntryPercentage(entry)

	if _, err := s.RetryPending(ctx); err != nil {
		s.log.Debug("pending entries still unwritten", zap.Error(err))
	}

	var out error
	if err := s.results.AppendEntry(ctx, entry); err != nil {
		s.journal.add(entry)
		s.metrics.PersistenceFailed("append_entry")
		s.log.Warn("leaderboard entry not persisted",
			zap.String("entry", entry.ID),
			zap.String("player", entry.Player),
			zap.Error(err))
		out = domain.NewPersistenceError("append_entry", entry.ID, err)
	}

	s.feed.broadcast(entry.Subject, func(filter string) domain.Leaderboard {
		return s.snapshot(ctx, filter)
	})
	return out
}

// RetryPending rewrites journaled entries and returns how many remain unwritten.
func (s *GameService) RetryPending(ctx context.Context) (int, error) {
	left, err := s.journal.drain(func(e domain.LeaderboardEntry) error {
		return s.results.AppendEntry(ctx, e)
	})
	if err != nil {
		return left, domain.NewPersistenceError("retry_pending", "", err)
	}
	return left, nil
}

// Leaderboard returns the ranked top entries for subject ("All" or "" for
// every subject). A failed read still returns what is known, with the error.
func (s *GameService) Leaderboard(ctx context.Context, subject string, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = s.opts.LeaderboardLimit
	}
	entries, err := s.entries(ctx)
	return engine.Top(entries, subject, limit), err
}

// PlayerStats folds every entry of player into aggregates. found is false
// when the player has no recorded rounds.
func (s *GameService) PlayerStats(ctx context.Context, player string) (domain.PlayerStats, bool, error) {
	name, err := playerName(player)
	if err != nil {
		return domain.PlayerStats{}, false, err
	}
	entries, err := s.entries(ctx)
	stats, found := engine.Aggregate(name, entries, s.opts.HistoryLimit)
	return stats, found, err
}

// Players aggregates every player, best total score first.
func (s *GameService) Players(ctx context.Context) ([]domain.PlayerStats, error) {
	entries, err := s.entries(ctx)
	return engine.AggregateAll(entries, s.opts.HistoryLimit), err
}

// Dashboard is a player's profile and stats read together.
type Dashboard struct {
	Profile domain.Profile     `json:"profile"`
	Stats   domain.PlayerStats `json:"stats"`
}

// Dashboard loads the profile and the stats fold concurrently.
func (s *GameService) Dashboard(ctx context.Context, player string) (Dashboard, error) {
	name, err := playerName(player)
	if err != nil {
		return Dashboard{}, err
	}
	var (
		out     Dashboard
		statErr error
		g       errgroup.Group
	)
	g.Go(func() error {
		out.Profile, _ = s.loadProfile(ctx, name)
		return nil
	})
	g.Go(func() error {
		out.Stats, _, statErr = s.PlayerStats(ctx, name)
		return nil
	})
	_ = g.Wait()
	if out.Stats.Player == "" {
		out.Stats.Player = name
	}
	return out, statErr
}

// Subscribe returns a channel that receives leaderboard snapshots for subject.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *GameService) Subscribe(ctx context.Context, subject string) (<-chan domain.Leaderboard, func(), error) {
	if subject == engine.AllSubjects {
		subject = ""
	}
	if subject != "" {
		if _, err := s.catalog.GetSubject(ctx, subject); err != nil {
			return nil, nil, err
		}
	}
	ch, cancel := s.feed.subscribe(subject, s.snapshot(ctx, subject))
	return ch, cancel, nil
}

// PurchaseLifeline buys qty units of kind at the configured price.
func (s *GameService) PurchaseLifeline(ctx context.Context, player string, kind domain.LifelineKind, qty int) (domain.Profile, error) {
	price, ok := s.opts.Prices[string(kind)]
	if !kind.Valid() || !ok {
		return domain.Profile{}, domain.ErrUnknownItem
	}
	if qty <= 0 {
		qty = 1
	}
	return s.storeUpdate(ctx, player, func(p *domain.Profile) error {
		cost := price * qty
		if p.Coins < cost {
			return domain.ErrInsufficientCoins
		}
		p.Coins -= cost
		p.Lifelines[kind] += qty
		return nil
	})
}

// PurchaseAvatar buys a cosmetic avatar. Buying an owned avatar is a no-op.
func (s *GameService) PurchaseAvatar(ctx context.Context, player, avatar string) (domain.Profile, error) {
	price, ok := s.opts.Avatars[avatar]
	if !ok {
		return domain.Profile{}, domain.ErrUnknownItem
	}
	return s.storeUpdate(ctx, player, func(p *domain.Profile) error {
		if p.Owns(avatar) {
			return nil
		}
		if p.Coins < price {
			return domain.ErrInsufficientCoins
		}
		p.Coins -= price
		p.OwnedAvatars = append(p.OwnedAvatars, avatar)
		return nil
	})
}

// Equip selects an owned avatar.
func (s *GameService) Equip(ctx context.Context, player, avatar string) (domain.Profile, error) {
	if _, ok := s.opts.Avatars[avatar]; !ok {
		return domain.Profile{}, domain.ErrUnknownItem
	}
	return s.storeUpdate(ctx, player, func(p *domain.Profile) error {
		if !p.Owns(avatar) {
			return domain.ErrItemNotOwned
		}
		p.Avatar = avatar
		return nil
	})
}

// ResetProfile deletes the stored profile and any round in progress. The
// player's leaderboard entries are kept.
func (s *GameService) ResetProfile(ctx context.Context, player string) (domain.Profile, error) {
	name, err := playerName(player)
	if err != nil {
		return domain.Profile{}, err
	}
	_ = s.AbandonRound(ctx, name)

	mu := s.lockFor(name)
	mu.Lock()
	defer mu.Unlock()

	fresh := domain.NewProfile(name, s.opts.Defaults)
	s.cacheMu.Lock()
	s.cache[name] = fresh.Clone()
	s.cacheMu.Unlock()

	if err := s.profiles.DeleteProfile(ctx, name); err != nil {
		s.metrics.PersistenceFailed("delete_profile")
		return fresh, domain.NewPersistenceError("delete_profile", name, err)
	}
	return fresh, nil
}

func (s *GameService) storeUpdate(ctx context.Context, player string, fn func(*domain.Profile) error) (domain.Profile, error) {
	name, err := playerName(player)
	if err != nil {
		return domain.Profile{}, err
	}
	var saveErr error
	p, err := s.mutateProfile(ctx, name, fn, &saveErr)
	if err != nil {
		return domain.Profile{}, err
	}
	return p, saveErr
}

var errNotApplied = errors.New("not applied")

// withRound runs fn under the player's session lock.
func (s *GameService) withRound(player string, fn func(name string, r *engine.Round) error) error {
	name, err := playerName(player)
	if err != nil {
		return err
	}
	session, ok := s.sessions.Get(name)
	if !ok {
		return domain.ErrNoActiveRound
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	round, ok := session.activeLocked()
	if !ok {
		return domain.ErrNoActiveRound
	}
	return fn(name, round)
}

// mutateProfile applies fn to the player's profile and saves it when fn
// succeeds. A failed save is reported through saveErr; the cached profile
// keeps the change either way. When the stored profile could not be read the
// change applies to first-run defaults only and is neither cached nor saved.
func (s *GameService) mutateProfile(ctx context.Context, name string, fn func(*domain.Profile) error, saveErr *error) (domain.Profile, error) {
	mu := s.lockFor(name)
	mu.Lock()
	defer mu.Unlock()

	p, loadErr := s.loadProfile(ctx, name)
	if err := fn(&p); err != nil {
		return domain.Profile{}, err
	}
	p.UpdatedAt = s.now()
	if loadErr != nil {
		*saveErr = loadErr
		return p, nil
	}

	s.cacheMu.Lock()
	s.cache[name] = p.Clone()
	s.cacheMu.Unlock()

	if err := s.profiles.SaveProfile(ctx, p); err != nil {
		s.metrics.PersistenceFailed("save_profile")
		s.log.Warn("profile not persisted", zap.String("player", name), zap.Error(err))
		*saveErr = domain.NewPersistenceError("save_profile", name, err)
	}
	return p, nil
}

// loadProfile always yields a usable profile: a missing one is a first run.
// An unreadable one also yields defaults, but those are not cached and the
// read error is returned so callers do not persist them.
func (s *GameService) loadProfile(ctx context.Context, name string) (domain.Profile, error) {
	s.cacheMu.Lock()
	if p, ok := s.cache[name]; ok {
		s.cacheMu.Unlock()
		return p.Clone(), nil
	}
	s.cacheMu.Unlock()

	p, found, err := s.profiles.LoadProfile(ctx, name)
	switch {
	case err != nil:
		s.metrics.PersistenceFailed("load_profile")
		s.log.Warn("profile unreadable, using defaults", zap.String("player", name), zap.Error(err))
		return domain.NewProfile(name, s.opts.Defaults), domain.NewPersistenceError("load_profile", name, err)
	case !found:
		p = domain.NewProfile(name, s.opts.Defaults)
	default:
		p.Name = name
		p.Normalize(s.opts.Defaults)
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if cached, ok := s.cache[name]; ok {
		return cached.Clone(), nil
	}
	s.cache[name] = p.Clone()
	return p, nil
}

func (s *GameService) lockFor(name string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(name, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// entries returns stored plus journaled entries. A failed read is treated as
// an empty log and reported alongside whatever the journal holds.
func (s *GameService) entries(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	stored, err := s.results.Entries(ctx)
	if err != nil {
		s.metrics.PersistenceFailed("read_entries")
		s.log.Warn("leaderboard unreadable", zap.Error(err))
		return s.journal.merge(nil), domain.NewPersistenceError("read_entries", "", err)
	}
	return s.journal.merge(stored), nil
}

func (s *GameService) snapshot(ctx context.Context, subject string) domain.Leaderboard {
	entries, _ := s.entries(ctx)
	return domain.Leaderboard{
		Subject:   subject,
		Entries:   engine.Top(entries, subject, s.opts.LeaderboardLimit),
		UpdatedAt: s.now(),
	}
}

func playerName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", domain.ErrInvalidPlayer
	}
	return name, nil
}
