// Package profile manages user accounts, keybinds and personal bests.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/kartrace/kartrace-go/log"
	"github.com/kartrace/kartrace-go/pkg/model"
	"github.com/kartrace/kartrace-go/pkg/utils/cache"
	"github.com/kartrace/kartrace-go/pkg/utils/cache/loadercache"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnknownField       = errors.New("unknown profile field")
)

// profile fields addressable by info1
const (
	FieldFriends  = "friends"
	FieldPBs      = "pbs"
	FieldKeybinds = "keybinds"
)

type (
	Option  func(*Service)
	Service struct {
		store    Store
		cacheTTL time.Duration
		cache    cache.Cache[string, model.UserProfile]
		locks    userLocks
		l        *log.Logger
	}
)

func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.cacheTTL = ttl
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Service) {
		s.l = l
	}
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:    store,
		cacheTTL: time.Minute,
		l:        log.Default().Named("profile"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cache = loadercache.New(
		loadercache.WithExpiration[string, model.UserProfile](s.cacheTTL),
		loadercache.WithLogger[string, model.UserProfile](s.l.Named("cache")),
		loadercache.WithLoader(func(ctx context.Context, username string) (*model.UserProfile, error) {
			return s.store.Load(ctx, username)
		}),
	)
	return s
}

func (s *Service) Signup(ctx context.Context, username, password string) (*model.UserProfile, error) {
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	p := model.NewUserProfile(username, string(hash))
	if err := s.store.Create(ctx, &p); err != nil {
		return nil, err
	}
	s.l.Info("user created", log.String("username", username))
	return &p, nil
}

func (s *Service) Login(ctx context.Context, username, password string) (*model.UserProfile, error) {
	p, err := s.Get(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(p.Password), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return p, nil
}

// Get returns a copy of the stored profile.
func (s *Service) Get(ctx context.Context, username string) (*model.UserProfile, error) {
	p, err := s.cache.Get(ctx, username)
	if err != nil {
		return nil, err
	}
	return clone(p), nil
}

// Read returns the JSON value addressed by info1 and info2.
func (s *Service) Read(ctx context.Context, username, info1, info2 string) (json.RawMessage, error) {
	p, err := s.Get(ctx, username)
	if err != nil {
		return nil, err
	}
	var v any
	switch info1 {
	case FieldFriends:
		v = p.Friends
	case FieldPBs:
		if info2 == "" {
			v = p.PBs
		} else {
			best, ok := p.PBs[info2]
			if !ok {
				best = model.NoPersonalBest
			}
			v = best
		}
	case FieldKeybinds:
		if info2 == "" {
			v = p.Keybinds
		} else {
			code, err := keybind(&p.Keybinds, info2)
			if err != nil {
				return nil, err
			}
			v = *code
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, info1)
	}
	return json.Marshal(v)
}

// Write replaces the value addressed by info1 and info2 with data.
func (s *Service) Write(ctx context.Context, username, info1, info2 string, data json.RawMessage) error {
	unlock := s.locks.lock(username)
	defer unlock()
	p, err := s.Get(ctx, username)
	if err != nil {
		return err
	}
	switch info1 {
	case FieldFriends:
		var friends []string
		if err := json.Unmarshal(data, &friends); err != nil {
			return fmt.Errorf("decode friends: %w", err)
		}
		p.Friends = friends
	case FieldPBs:
		if info2 == "" {
			return fmt.Errorf("%w: pbs needs a track name", ErrUnknownField)
		}
		var best string
		if err := json.Unmarshal(data, &best); err != nil {
			return fmt.Errorf("decode personal best: %w", err)
		}
		if _, ok := ParseTime(best); !ok {
			best = model.NoPersonalBest
		}
		p.PBs[info2] = best
	case FieldKeybinds:
		if info2 == "" {
			var kb model.Keybinds
			if err := json.Unmarshal(data, &kb); err != nil {
				return fmt.Errorf("decode keybinds: %w", err)
			}
			p.Keybinds = kb
			break
		}
		code, err := keybind(&p.Keybinds, info2)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(data, code); err != nil {
			return fmt.Errorf("decode keybind: %w", err)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, info1)
	}
	return s.save(ctx, p)
}

// RecordFinish stores elapsed as new personal best for trackName when it
// beats the stored one.
func (s *Service) RecordFinish(ctx context.Context, username, trackName string, elapsed time.Duration) (
	bool, error,
) {
	unlock := s.locks.lock(username)
	defer unlock()
	p, err := s.Get(ctx, username)
	if err != nil {
		return false, err
	}
	if !IsImprovement(p.PBs[trackName], elapsed) {
		return false, nil
	}
	p.PBs[trackName] = FormatTime(elapsed)
	if err := s.save(ctx, p); err != nil {
		return false, err
	}
	s.l.Info("new personal best",
		log.String("username", username),
		log.String("track", trackName),
		log.String("time", p.PBs[trackName]))
	return true, nil
}

func (s *Service) save(ctx context.Context, p *model.UserProfile) error {
	if err := s.store.Save(ctx, p); err != nil {
		s.cache.Invalidate(ctx, p.Username)
		return err
	}
	s.cache.Set(ctx, p.Username, clone(p))
	return nil
}

func keybind(k *model.Keybinds, name string) (*int, error) {
	switch name {
	case "forward":
		return &k.Forward, nil
	case "backward":
		return &k.Backward, nil
	case "left":
		return &k.Left, nil
	case "right":
		return &k.Right, nil
	case "brake":
		return &k.Brake, nil
	case "reset":
		return &k.Reset, nil
	}
	return nil, fmt.Errorf("%w: keybinds.%s", ErrUnknownField, name)
}
