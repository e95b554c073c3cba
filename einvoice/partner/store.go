package partner

import (
	"context"
	"sort"
	"sync"

	"github.com/alapierre/go-einvoice-client/einvoice"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("partner not found")

type Store interface {
	// FindByTin returns ErrNotFound when no partner has the TIN.
	FindByTin(ctx context.Context, tin string) (*einvoice.Partner, error)
	// CreateAccount stores a and fills in a.ID.
	CreateAccount(ctx context.Context, a *einvoice.Account) error
	// CreateWarehouse stores w and fills in w.ID.
	CreateWarehouse(ctx context.Context, w *einvoice.Warehouse) error
	// InsertOrGet inserts p unless a partner with p.Tin exists, in which case
	// the stored row is returned untouched. created reports which happened.
	InsertOrGet(ctx context.Context, p *einvoice.Partner) (stored *einvoice.Partner, created bool, err error)
	List(ctx context.Context) ([]einvoice.Partner, error)
}

// MemoryStore Store kept in process memory.
type MemoryStore struct {
	mu         sync.Mutex
	partners   map[string]einvoice.Partner
	accounts   map[uuid.UUID]einvoice.Account
	warehouses map[uuid.UUID]einvoice.Warehouse
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		partners:   make(map[string]einvoice.Partner),
		accounts:   make(map[uuid.UUID]einvoice.Account),
		warehouses: make(map[uuid.UUID]einvoice.Warehouse),
	}
}

func (s *MemoryStore) FindByTin(_ context.Context, tin string) (*einvoice.Partner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.partners[tin]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemoryStore) CreateAccount(_ context.Context, a *einvoice.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = uuid.New()
	s.accounts[a.ID] = *a
	return nil
}

func (s *MemoryStore) CreateWarehouse(_ context.Context, w *einvoice.Warehouse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w.ID = uuid.New()
	s.warehouses[w.ID] = *w
	return nil
}

func (s *MemoryStore) InsertOrGet(_ context.Context, p *einvoice.Partner) (*einvoice.Partner, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.partners[p.Tin]; ok {
		return &existing, false, nil
	}
	stored := *p
	stored.ID = uuid.New()
	s.partners[p.Tin] = stored
	return &stored, true, nil
}

func (s *MemoryStore) List(_ context.Context) ([]einvoice.Partner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]einvoice.Partner, 0, len(s.partners))
	for _, p := range s.partners {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tin < out[j].Tin })
	return out, nil
}

func (s *MemoryStore) Account(id uuid.UUID) (einvoice.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	return a, ok
}

func (s *MemoryStore) Warehouse(id uuid.UUID) (einvoice.Warehouse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.warehouses[id]
	return w, ok
}

// Counts number of partners, accounts and warehouses stored.
func (s *MemoryStore) Counts() (partners, accounts, warehouses int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.partners), len(s.accounts), len(s.warehouses)
}
