package connection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ovaphlow/pitchfork/service-neighbor/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-neighbor/internal/connection/entity"
	profentity "github.com/ovaphlow/pitchfork/service-neighbor/internal/profile/entity"
)

// Repository is the storage the workflow reads and writes. SaveConnection must
// report a lost optimistic-lock race as apperr.ErrConcurrencyConflict.
type Repository interface {
	GetConnection(ctx context.Context, userA, userB string) (*entity.Connection, error)
	GetConnectionByID(ctx context.Context, id string) (*entity.Connection, error)
	ListConnections(ctx context.Context, userID string, filter entity.Filter) ([]*entity.Connection, error)
	SaveConnection(ctx context.Context, c *entity.Connection) (*entity.Connection, error)
}

// ProfileReader loads the profiles a request is sent between.
type ProfileReader interface {
	GetProfile(ctx context.Context, id string) (*profentity.Profile, error)
}

// IDSource mints ids for new connection records.
type IDSource interface {
	NewID() string
}

// ChangeListener is called after every successful write.
type ChangeListener func(ctx context.Context, c *entity.Connection)

// Workflow actions, used in transition errors and metric labels.
const (
	ActionSend       = "send"
	ActionAccept     = "accept"
	ActionDecline    = "decline"
	ActionUpgrade    = "upgrade"
	ActionDisconnect = "disconnect"
	ActionBlock      = "block"
	ActionUnblock    = "unblock"
)

// Service runs the connection request state machine. Every transition is
// read, check, write; the repository's version check turns a concurrent
// writer into ErrConcurrencyConflict and nothing is written on failure.
type Service struct {
	conns     Repository
	profiles  ProfileReader
	ids       IDSource
	nearby    profentity.NearbyFunc
	logger    *zap.SugaredLogger
	listeners []ChangeListener
	now       func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithNearby sets the estate adjacency used for metadata snapshots.
func WithNearby(fn profentity.NearbyFunc) Option {
	return func(s *Service) { s.nearby = fn }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithListener registers a ChangeListener.
func WithListener(l ChangeListener) Option {
	return func(s *Service) { s.listeners = append(s.listeners, l) }
}

func NewService(conns Repository, profiles ProfileReader, ids IDSource, logger *zap.SugaredLogger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &Service{conns: conns, profiles: profiles, ids: ids, logger: logger, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SendRequest creates a pending request from -> to. It is legal when the pair
// has no record, or its record is in state none or declined.
func (s *Service) SendRequest(ctx context.Context, from, to string, typ entity.Type) (*entity.Connection, error) {
	if from == "" || to == "" {
		return nil, apperr.Validation("both users are required")
	}
	if from == to {
		return nil, apperr.Validation("cannot connect to yourself")
	}
	if !ValidType(typ) {
		return nil, apperr.Validation("unknown connection type %q", typ)
	}

	var (
		sender, recipient *profentity.Profile
		existing          *entity.Connection
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.profiles.GetProfile(gctx, from)
		sender = p
		return err
	})
	g.Go(func() error {
		p, err := s.profiles.GetProfile(gctx, to)
		recipient = p
		return err
	})
	g.Go(func() error {
		c, err := s.conns.GetConnection(gctx, from, to)
		if errors.Is(err, apperr.ErrNotFound) {
			return nil
		}
		existing = c
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if existing != nil && existing.Status != entity.StatusNone && existing.Status != entity.StatusDeclined {
		return nil, apperr.NewTransition(ActionSend, string(existing.Status))
	}
	if !recipient.Active || !recipient.Privacy.AllowConnections {
		return nil, fmt.Errorf("user %s: %w", to, apperr.ErrRecipientNotAcceptingConnections)
	}

	meta, err := s.snapshot(ctx, sender, recipient)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	var c *entity.Connection
	if existing != nil {
		c = existing.Clone()
	} else {
		c = &entity.Connection{ID: s.ids.NewID(), CreatedAt: now}
	}
	c.FromUserID = from
	c.ToUserID = to
	c.Type = typ
	c.Status = entity.StatusPending
	c.InitiatedBy = from
	c.BlockedBy = ""
	c.Metadata = meta
	c.AcceptedAt = nil
	c.UpdatedAt = now

	return s.save(ctx, ActionSend, c)
}

// Accept moves a pending request to accepted. Only the recipient may accept.
func (s *Service) Accept(ctx context.Context, actor, connectionID string) (*entity.Connection, error) {
	return s.respond(ctx, ActionAccept, actor, connectionID, entity.StatusAccepted)
}

// Decline moves a pending request to declined. The pair may send again later.
func (s *Service) Decline(ctx context.Context, actor, connectionID string) (*entity.Connection, error) {
	return s.respond(ctx, ActionDecline, actor, connectionID, entity.StatusDeclined)
}

func (s *Service) respond(ctx context.Context, action, actor, connectionID string, to entity.Status) (*entity.Connection, error) {
	c, err := s.conns.GetConnectionByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if c.Status != entity.StatusPending {
		return nil, apperr.NewTransition(action, string(c.Status))
	}
	if !c.Involves(actor) || actor == c.InitiatedBy {
		return nil, fmt.Errorf("%s connection %s as %s: %w", action, c.ID, actor, apperr.ErrNotPermitted)
	}
	now := s.now().UTC()
	c.Status = to
	c.UpdatedAt = now
	if to == entity.StatusAccepted {
		c.AcceptedAt = &now
	}
	return s.save(ctx, action, c)
}

// Upgrade changes the type of an accepted connection to a strictly higher
// level.
func (s *Service) Upgrade(ctx context.Context, actor, connectionID string, target entity.Type) (*entity.Connection, error) {
	if !ValidType(target) {
		return nil, apperr.Validation("unknown connection type %q", target)
	}
	c, err := s.conns.GetConnectionByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if c.Status != entity.StatusAccepted {
		return nil, apperr.NewTransition(ActionUpgrade, string(c.Status))
	}
	if !c.Involves(actor) {
		return nil, fmt.Errorf("upgrade connection %s as %s: %w", c.ID, actor, apperr.ErrNotPermitted)
	}
	if !CanUpgrade(c.Type, target) {
		return nil, fmt.Errorf("%w: %s -> %s", apperr.ErrInvalidUpgrade, c.Type, target)
	}
	c.Type = target
	c.UpdatedAt = s.now().UTC()
	return s.save(ctx, ActionUpgrade, c)
}

// Disconnect removes an accepted edge; the record returns to none.
func (s *Service) Disconnect(ctx context.Context, actor, connectionID string) (*entity.Connection, error) {
	c, err := s.conns.GetConnectionByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if c.Status != entity.StatusAccepted {
		return nil, apperr.NewTransition(ActionDisconnect, string(c.Status))
	}
	if !c.Involves(actor) {
		return nil, fmt.Errorf("disconnect connection %s as %s: %w", c.ID, actor, apperr.ErrNotPermitted)
	}
	clearEdge(c)
	c.Status = entity.StatusNone
	c.UpdatedAt = s.now().UTC()
	return s.save(ctx, ActionDisconnect, c)
}

// BlockConnection blocks the counterpart of actor on an existing record.
// Legal from any state; blocking an already blocked pair is a no-op.
func (s *Service) BlockConnection(ctx context.Context, actor, connectionID string) (*entity.Connection, error) {
	c, err := s.conns.GetConnectionByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if !c.Involves(actor) {
		return nil, fmt.Errorf("block connection %s as %s: %w", c.ID, actor, apperr.ErrNotPermitted)
	}
	return s.block(ctx, actor, c.Other(actor), c)
}

// BlockUser blocks target whether or not the pair has a record yet.
func (s *Service) BlockUser(ctx context.Context, actor, target string) (*entity.Connection, error) {
	if actor == "" || target == "" {
		return nil, apperr.Validation("both users are required")
	}
	if actor == target {
		return nil, apperr.Validation("cannot block yourself")
	}
	if _, err := s.profiles.GetProfile(ctx, target); err != nil {
		return nil, err
	}
	c, err := s.conns.GetConnection(ctx, actor, target)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
		c = &entity.Connection{ID: s.ids.NewID(), CreatedAt: s.now().UTC()}
	}
	return s.block(ctx, actor, target, c)
}

func (s *Service) block(ctx context.Context, actor, target string, c *entity.Connection) (*entity.Connection, error) {
	if c.Status == entity.StatusBlocked {
		return c, nil
	}
	clearEdge(c)
	c.FromUserID = actor
	c.ToUserID = target
	c.Status = entity.StatusBlocked
	c.BlockedBy = actor
	c.UpdatedAt = s.now().UTC()
	return s.save(ctx, ActionBlock, c)
}

// Unblock returns a blocked record to none. Only the blocker may unblock.
func (s *Service) Unblock(ctx context.Context, actor, connectionID string) (*entity.Connection, error) {
	c, err := s.conns.GetConnectionByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if c.Status != entity.StatusBlocked {
		return nil, apperr.NewTransition(ActionUnblock, string(c.Status))
	}
	if actor != c.BlockedBy {
		return nil, fmt.Errorf("unblock connection %s as %s: %w", c.ID, actor, apperr.ErrNotPermitted)
	}
	c.Status = entity.StatusNone
	c.BlockedBy = ""
	c.UpdatedAt = s.now().UTC()
	return s.save(ctx, ActionUnblock, c)
}

// Get returns a record the actor is party to.
func (s *Service) Get(ctx context.Context, actor, connectionID string) (*entity.Connection, error) {
	c, err := s.conns.GetConnectionByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if !c.Involves(actor) {
		return nil, fmt.Errorf("read connection %s as %s: %w", c.ID, actor, apperr.ErrNotPermitted)
	}
	return c, nil
}

// List returns the actor's records matching filter.
func (s *Service) List(ctx context.Context, actor string, filter entity.Filter) ([]*entity.Connection, error) {
	return s.conns.ListConnections(ctx, actor, filter)
}

func (s *Service) save(ctx context.Context, action string, c *entity.Connection) (*entity.Connection, error) {
	saved, err := s.conns.SaveConnection(ctx, c)
	if err != nil {
		s.logger.Debugw("connection save failed", "action", action, "id", c.ID, "err", err)
		return nil, err
	}
	s.logger.Infow("connection transition",
		"action", action,
		"id", saved.ID,
		"from", saved.FromUserID,
		"to", saved.ToUserID,
		"status", saved.Status,
		"version", saved.Version,
	)
	for _, l := range s.listeners {
		l(ctx, saved)
	}
	return saved, nil
}

// snapshot captures proximity, shared interests and the current mutual count
// at request time.
func (s *Service) snapshot(ctx context.Context, a, b *profentity.Profile) (*entity.Metadata, error) {
	mutuals, err := s.mutualCount(ctx, a.ID, b.ID)
	if err != nil {
		return nil, err
	}
	return &entity.Metadata{
		ProximityLevel:    string(profentity.Proximity(a, b, s.nearby)),
		SharedInterests:   a.SharedInterests(b),
		MutualConnections: mutuals,
	}, nil
}

func (s *Service) mutualCount(ctx context.Context, a, b string) (int, error) {
	accepted := entity.Filter{Statuses: []entity.Status{entity.StatusAccepted}}
	var ca, cb []*entity.Connection
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		ca, err = s.conns.ListConnections(gctx, a, accepted)
		return err
	})
	g.Go(func() (err error) {
		cb, err = s.conns.ListConnections(gctx, b, accepted)
		return err
	})
	if err := g.Wait(); err != nil {
		return 0, err
	}
	neighbors := make(map[string]struct{}, len(ca))
	for _, c := range ca {
		neighbors[c.Other(a)] = struct{}{}
	}
	n := 0
	for _, c := range cb {
		other := c.Other(b)
		if other == a {
			continue
		}
		if _, ok := neighbors[other]; ok {
			n++
		}
	}
	return n, nil
}

// clearEdge drops relationship data, keeping the pair ids and timestamps.
func clearEdge(c *entity.Connection) {
	c.Type = ""
	c.InitiatedBy = ""
	c.Metadata = nil
	c.AcceptedAt = nil
}
