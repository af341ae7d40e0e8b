package engine_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"cleanbot/internal/engine"
	"cleanbot/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is a mutex-guarded in-memory Store with the same conditional
// semantics as the Postgres implementation.
type memStore struct {
	mu        sync.Mutex
	nextID    int64
	orders    map[int64]*model.Order
	responses []model.Response
	photos    []model.OrderPhoto
}

func newMemStore() *memStore {
	return &memStore{nextID: 1, orders: map[int64]*model.Order{}}
}

func (m *memStore) CreateOrder(_ context.Context, o *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o.ID = m.nextID
	m.nextID++
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *memStore) OrderByID(_ context.Context, id int64) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *o
	return &cp, nil
}

// addResponse mirrors the unique (order, master) pair in the schema: a
// repeat response by the same master is a no-op.
func (m *memStore) addResponse(orderID, masterID int64) {
	for _, r := range m.responses {
		if r.OrderID == orderID && r.MasterID == masterID {
			return
		}
	}
	m.responses = append(m.responses, model.Response{OrderID: orderID, MasterID: masterID})
}

func (m *memStore) ClaimOrder(_ context.Context, orderID, masterID int64) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || o.MasterID.Valid || !o.Status.Claimable() {
		return nil, sql.ErrNoRows
	}
	o.MasterID = sql.NullInt64{Int64: masterID, Valid: true}
	o.Status = model.StatusAssigned
	m.addResponse(orderID, masterID)
	cp := *o
	return &cp, nil
}

func (m *memStore) ReassignOrder(_ context.Context, orderID, masterID int64) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	o.MasterID = sql.NullInt64{Int64: masterID, Valid: true}
	o.Status = model.StatusAssigned
	m.addResponse(orderID, masterID)
	cp := *o
	return &cp, nil
}

func (m *memStore) UnassignOrder(_ context.Context, orderID int64) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	o.MasterID = sql.NullInt64{}
	o.Status = model.StatusPublished
	cp := *o
	return &cp, nil
}

func (m *memStore) TransitionOrder(_ context.Context, orderID int64, from, to model.Status) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || o.Status != from {
		return nil, sql.ErrNoRows
	}
	o.Status = to
	cp := *o
	return &cp, nil
}

func (m *memStore) ForceOrderStatus(_ context.Context, orderID int64, to model.Status) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	o.Status = to
	cp := *o
	return &cp, nil
}

func (m *memStore) Orders(_ context.Context) ([]model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (m *memStore) OrdersRecent(ctx context.Context, status model.Status, limit int) ([]model.Order, error) {
	all, _ := m.Orders(ctx)
	var out []model.Order
	for _, o := range all {
		if status == "" || o.Status == status {
			out = append(out, o)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) OrdersByManager(ctx context.Context, managerID int64) ([]model.Order, error) {
	all, _ := m.Orders(ctx)
	var out []model.Order
	for _, o := range all {
		if o.ManagerID == managerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memStore) OrdersByMaster(ctx context.Context, masterID int64) ([]model.Order, error) {
	all, _ := m.Orders(ctx)
	var out []model.Order
	for _, o := range all {
		if o.MasterID.Valid && o.MasterID.Int64 == masterID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memStore) AddOrderPhoto(_ context.Context, p *model.OrderPhoto) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = int64(len(m.photos) + 1)
	m.photos = append(m.photos, *p)
	return nil
}

func (m *memStore) OrderPhotos(_ context.Context, orderID int64) ([]model.OrderPhoto, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.OrderPhoto
	for _, p := range m.photos {
		if p.OrderID == orderID {
			out = append(out, p)
		}
	}
	return out, nil
}

func draftOrder(managerID int64) *model.Order {
	return &model.Order{
		City:          "moscow",
		Address:       "Ленина 1",
		Date:          "01.09.2026",
		Time:          "14:00",
		Type:          "Генеральная уборка",
		Equipment:     "Свой инвентарь",
		Conditions:    "Обычные",
		ClientContact: "@client",
		ManagerID:     managerID,
	}
}

func publish(t *testing.T, e *engine.Engine) *model.Order {
	t.Helper()
	o, err := e.Publish(context.Background(), draftOrder(100))
	require.NoError(t, err)
	return o
}

func TestPublishSetsPublishedWithoutMaster(t *testing.T) {
	e := engine.New(newMemStore())
	o := publish(t, e)

	assert.Equal(t, model.StatusPublished, o.Status)
	assert.False(t, o.MasterID.Valid)
	assert.NotZero(t, o.ID)
}

func TestPublishRejectsIncompleteOrder(t *testing.T) {
	e := engine.New(newMemStore())
	o := draftOrder(100)
	o.Address = ""

	_, err := e.Publish(context.Background(), o)
	require.ErrorIs(t, err, engine.ErrValidation)
}

func TestClaimAssignsFreeOrder(t *testing.T) {
	st := newMemStore()
	e := engine.New(st)
	o := publish(t, e)

	claimed, err := e.Claim(context.Background(), o.ID, 200)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAssigned, claimed.Status)
	require.True(t, claimed.MasterID.Valid)
	assert.Equal(t, int64(200), claimed.MasterID.Int64)
	assert.Len(t, st.responses, 1)
}

func TestClaimTakenOrderFails(t *testing.T) {
	st := newMemStore()
	e := engine.New(st)
	o := publish(t, e)

	_, err := e.Claim(context.Background(), o.ID, 200)
	require.NoError(t, err)

	_, err = e.Claim(context.Background(), o.ID, 201)
	require.ErrorIs(t, err, engine.ErrAlreadyTaken)
	assert.Len(t, st.responses, 1, "losing claim must not record a response")
}

func TestClaimMissingOrder(t *testing.T) {
	e := engine.New(newMemStore())
	_, err := e.Claim(context.Background(), 999, 200)
	require.ErrorIs(t, err, engine.ErrNotFound)
}

func TestConcurrentClaimsExactlyOneWins(t *testing.T) {
	st := newMemStore()
	e := engine.New(st)
	o := publish(t, e)

	const masters = 16
	var wg sync.WaitGroup
	errs := make([]error, masters)
	for i := 0; i < masters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.Claim(context.Background(), o.ID, int64(300+i))
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			require.ErrorIs(t, err, engine.ErrAlreadyTaken)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Len(t, st.responses, 1, "exactly one response row for the winner")

	final, err := e.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.True(t, final.Consistent())
}

func TestAcceptRequiresCurrentMaster(t *testing.T) {
	e := engine.New(newMemStore())
	o := publish(t, e)
	_, err := e.Claim(context.Background(), o.ID, 200)
	require.NoError(t, err)

	_, err = e.Accept(context.Background(), o.ID, 999)
	require.ErrorIs(t, err, engine.ErrUnauthorized)

	accepted, err := e.Accept(context.Background(), o.ID, 200)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, accepted.Status)
	assert.True(t, accepted.Consistent())
}

func TestDeclineRepublishes(t *testing.T) {
	e := engine.New(newMemStore())
	o := publish(t, e)
	_, err := e.Claim(context.Background(), o.ID, 200)
	require.NoError(t, err)

	declined, err := e.Decline(context.Background(), o.ID, 200)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPublished, declined.Status)
	assert.False(t, declined.MasterID.Valid)

	// The freed order is claimable again.
	_, err = e.Claim(context.Background(), o.ID, 201)
	require.NoError(t, err)
}

func TestSameMasterReclaimsAfterDecline(t *testing.T) {
	st := newMemStore()
	e := engine.New(st)
	o := publish(t, e)

	_, err := e.Claim(context.Background(), o.ID, 200)
	require.NoError(t, err)
	_, err = e.Decline(context.Background(), o.ID, 200)
	require.NoError(t, err)

	// The original response row persists; re-claiming must not trip on it.
	claimed, err := e.Claim(context.Background(), o.ID, 200)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAssigned, claimed.Status)
	assert.Equal(t, int64(200), claimed.MasterID.Int64)
	assert.Len(t, st.responses, 1)
}

func TestFinishCompletesInProgress(t *testing.T) {
	e := engine.New(newMemStore())
	o := publish(t, e)
	_, err := e.Claim(context.Background(), o.ID, 200)
	require.NoError(t, err)
	_, err = e.Accept(context.Background(), o.ID, 200)
	require.NoError(t, err)

	// Zero photos is fine.
	done, err := e.Finish(context.Background(), o.ID, 200)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, done.Status)
	assert.True(t, done.Consistent())
}

func TestFinishRejectsWrongState(t *testing.T) {
	e := engine.New(newMemStore())
	o := publish(t, e)
	_, err := e.Claim(context.Background(), o.ID, 200)
	require.NoError(t, err)

	_, err = e.Finish(context.Background(), o.ID, 200)
	require.ErrorIs(t, err, engine.ErrValidation)
}

func TestUnassignIdempotent(t *testing.T) {
	e := engine.New(newMemStore())
	o := publish(t, e)
	_, err := e.Claim(context.Background(), o.ID, 200)
	require.NoError(t, err)

	first, err := e.Unassign(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPublished, first.Status)
	assert.False(t, first.MasterID.Valid)

	second, err := e.Unassign(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.MasterID, second.MasterID)
}

func TestReassignOverridesMaster(t *testing.T) {
	st := newMemStore()
	e := engine.New(st)
	o := publish(t, e)
	_, err := e.Claim(context.Background(), o.ID, 200)
	require.NoError(t, err)

	re, err := e.Reassign(context.Background(), o.ID, 300)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAssigned, re.Status)
	assert.Equal(t, int64(300), re.MasterID.Int64)
	assert.Len(t, st.responses, 2)
}

func TestForceStatusValidatesStatus(t *testing.T) {
	e := engine.New(newMemStore())
	o := publish(t, e)

	_, err := e.ForceStatus(context.Background(), o.ID, "bogus")
	require.ErrorIs(t, err, engine.ErrValidation)

	forced, err := e.ForceStatus(context.Background(), o.ID, model.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, forced.Status)
}

func TestAddPhotoGuards(t *testing.T) {
	e := engine.New(newMemStore())
	o := publish(t, e)
	_, err := e.Claim(context.Background(), o.ID, 200)
	require.NoError(t, err)

	// Not in progress yet.
	_, err = e.AddPhoto(context.Background(), o.ID, 200, "file-1", model.PhotoBefore)
	require.ErrorIs(t, err, engine.ErrValidation)

	_, err = e.Accept(context.Background(), o.ID, 200)
	require.NoError(t, err)

	_, err = e.AddPhoto(context.Background(), o.ID, 999, "file-1", model.PhotoBefore)
	require.ErrorIs(t, err, engine.ErrUnauthorized)

	_, err = e.AddPhoto(context.Background(), o.ID, 200, "file-1", "sideways")
	require.ErrorIs(t, err, engine.ErrValidation)

	p, err := e.AddPhoto(context.Background(), o.ID, 200, "file-1", model.PhotoBefore)
	require.NoError(t, err)
	assert.Equal(t, model.PhotoBefore, p.Type)

	photos, err := e.ListPhotos(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Len(t, photos, 1)
}

func TestInvariantHeldAfterEveryOperation(t *testing.T) {
	e := engine.New(newMemStore())
	ctx := context.Background()
	o := publish(t, e)

	steps := []func() (*model.Order, error){
		func() (*model.Order, error) { return e.Claim(ctx, o.ID, 200) },
		func() (*model.Order, error) { return e.Decline(ctx, o.ID, 200) },
		func() (*model.Order, error) { return e.Claim(ctx, o.ID, 201) },
		func() (*model.Order, error) { return e.Accept(ctx, o.ID, 201) },
		func() (*model.Order, error) { return e.Finish(ctx, o.ID, 201) },
	}
	for i, step := range steps {
		out, err := step()
		require.NoError(t, err, "step %d", i)
		assert.True(t, out.Consistent(), "step %d broke master/status consistency", i)
	}
}
