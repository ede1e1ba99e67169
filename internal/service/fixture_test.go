package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/checkin-facility/internal/clock"
	"github.com/iliyamo/checkin-facility/internal/model"
	"github.com/iliyamo/checkin-facility/internal/queue"
	"github.com/iliyamo/checkin-facility/internal/repository/memory"
)

var (
	t0    = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	staff = model.Actor{StaffID: "staff-1", DeviceID: "device-1", Role: model.RoleStaff}
	admin = model.Actor{StaffID: "admin-1", DeviceID: "device-admin", Role: model.RoleAdmin}
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.RegisterSessionEvent
	err    error
}

func (p *recordingPublisher) PublishRegisterSessionUpdated(_ context.Context, ev queue.RegisterSessionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Events() []queue.RegisterSessionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]queue.RegisterSessionEvent(nil), p.events...)
}

type fixture struct {
	t     *testing.T
	ctx   context.Context
	store *memory.Store
	clock *clock.Manual
	pub   *recordingPublisher
	core  *Core
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		t:     t,
		ctx:   context.Background(),
		store: memory.New(),
		clock: clock.NewManual(t0),
		pub:   &recordingPublisher{},
	}
	opts = append([]Option{WithClock(f.clock), WithLivenessPublisher(f.pub)}, opts...)
	f.core = NewCore(f.store, opts...)
	return f
}

func (f *fixture) item(typ model.InventoryType, name string) *model.InventoryItem {
	f.t.Helper()
	it, err := f.core.Inventory.CreateItem(f.ctx, CreateItemRequest{Type: typ, Name: name}, admin)
	require.NoError(f.t, err)
	return it
}

func (f *fixture) itemWithStatus(name string, status model.InventoryStatus) *model.InventoryItem {
	f.t.Helper()
	it, err := f.core.Inventory.CreateItem(f.ctx, CreateItemRequest{
		Type:   model.InventoryTypeRoom,
		Name:   name,
		Status: status,
		Notes:  "seeded",
	}, admin)
	require.NoError(f.t, err)
	return it
}

func (f *fixture) customer(name string) string {
	f.t.Helper()
	c, err := f.core.Customers.Create(f.ctx, name)
	require.NoError(f.t, err)
	return c.ID
}

func (f *fixture) visit(name string) *model.Visit {
	f.t.Helper()
	v, err := f.core.Visits.Open(f.ctx, f.customer(name), staff)
	require.NoError(f.t, err)
	return v
}

// assignedVisit opens a visit and places it on a fresh item of typ.
func (f *fixture) assignedVisit(name string, typ model.InventoryType) (*model.Visit, *model.InventoryItem) {
	f.t.Helper()
	v := f.visit(name)
	it := f.item(typ, name+"-"+string(typ))
	_, err := f.core.Visits.AssignInventory(f.ctx, v.ID, it.ID, staff)
	require.NoError(f.t, err)
	return v, it
}

func (f *fixture) status(itemID string) model.InventoryStatus {
	f.t.Helper()
	it, err := f.core.Inventory.Get(f.ctx, itemID)
	require.NoError(f.t, err)
	return it.Status
}
