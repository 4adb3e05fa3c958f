package profile

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kartrace/kartrace-go/pkg/model"
	profilerepos "github.com/kartrace/kartrace-go/pkg/repository/profile"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrUserExists = errors.New("user already exists")
)

type Store interface {
	Load(ctx context.Context, username string) (*model.UserProfile, error)
	Create(ctx context.Context, p *model.UserProfile) error
	Save(ctx context.Context, p *model.UserProfile) error
}

type MemoryStore struct {
	mu       sync.Mutex
	profiles map[string]model.UserProfile
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]model.UserProfile)}
}

func (s *MemoryStore) Load(_ context.Context, username string) (*model.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[username]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(&p), nil
}

func (s *MemoryStore) Create(_ context.Context, p *model.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[p.Username]; ok {
		return ErrUserExists
	}
	s.profiles[p.Username] = *clone(p)
	return nil
}

func (s *MemoryStore) Save(_ context.Context, p *model.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[p.Username]; !ok {
		return ErrNotFound
	}
	s.profiles[p.Username] = *clone(p)
	return nil
}

func clone(p *model.UserProfile) *model.UserProfile {
	c := *p
	c.Friends = append([]string{}, p.Friends...)
	c.PBs = make(map[string]string, len(p.PBs))
	for k, v := range p.PBs {
		c.PBs[k] = v
	}
	return &c
}

// PostgresStore keeps profiles in the profile table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Load(ctx context.Context, username string) (*model.UserProfile, error) {
	p, err := profilerepos.LoadByUsername(ctx, s.pool, username)
	if errors.Is(err, profilerepos.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p.Data, nil
}

func (s *PostgresStore) Create(ctx context.Context, p *model.UserProfile) error {
	err := profilerepos.Create(ctx, s.pool, &model.DbProfile{Username: p.Username, Data: *p})
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrUserExists
	}
	return err
}

func (s *PostgresStore) Save(ctx context.Context, p *model.UserProfile) error {
	n, err := profilerepos.Update(ctx, s.pool, &model.DbProfile{Username: p.Username, Data: *p})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
