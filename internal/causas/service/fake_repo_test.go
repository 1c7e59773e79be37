package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	causaserrors "ejeapi/internal/causas/errors"
	"ejeapi/internal/causas/repository"
	"ejeapi/internal/causas/validator"
	"ejeapi/internal/events"
	"ejeapi/pkg/config"
	mongotx "ejeapi/pkg/db/mongo"
	apperrors "ejeapi/pkg/errors"
	"ejeapi/pkg/logger"
	"ejeapi/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// fakeRepo keeps causas in memory. Only the lookups the service relies on
// are modelled; Search ignores the filter.
type fakeRepo struct {
	mu     sync.Mutex
	causas map[primitive.ObjectID]*model.Causa

	failWith    error
	lastFilter  bson.M
	lastSort    bson.D
	lastLimit   int
	lastOffset  int64
	lastSet     bson.M
	markOK      *bool
	addedFolder []primitive.ObjectID
	removed     []model.UpdateHistoryEntry
	txCalls     int

	// sharedReads makes byID hand out the stored pointer, so later writes
	// show through records the service already read.
	sharedReads bool
}

var _ repository.CausaRepository = (*fakeRepo)(nil)

func newFakeRepo(causas ...*model.Causa) *fakeRepo {
	r := &fakeRepo{causas: make(map[primitive.ObjectID]*model.Causa)}
	for _, c := range causas {
		if c.ID.IsZero() {
			c.ID = primitive.NewObjectID()
		}
		r.causas[c.ID] = c
	}
	return r
}

// stored returns the record held by the fake. Reads hand out copies via
// byID and find, the way the Mongo repository decodes a fresh struct.
func (r *fakeRepo) stored(id string) (*model.Causa, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, causaserrors.ErrInvalidID
	}
	c, ok := r.causas[oid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", causaserrors.ErrNotFound, id)
	}
	return c, nil
}

func (r *fakeRepo) byID(id string) (*model.Causa, error) {
	c, err := r.stored(id)
	if err != nil || r.sharedReads {
		return c, err
	}
	return clone(c), nil
}

func (r *fakeRepo) find(match func(*model.Causa) bool) (*model.Causa, error) {
	for _, c := range r.causas {
		if match(c) {
			return clone(c), nil
		}
	}
	return nil, causaserrors.ErrNotFound
}

func clone(c *model.Causa) *model.Causa {
	cp := *c
	cp.FolderIDs = slices.Clone(c.FolderIDs)
	cp.UserCausaIDs = slices.Clone(c.UserCausaIDs)
	cp.UserUpdatesEnabled = slices.Clone(c.UserUpdatesEnabled)
	cp.PivotCausaIDs = slices.Clone(c.PivotCausaIDs)
	cp.UpdateHistory = slices.Clone(c.UpdateHistory)
	return &cp
}

func (r *fakeRepo) Create(ctx context.Context, c *model.Causa) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	c.ID = primitive.NewObjectID()
	r.causas[c.ID] = c
	return nil
}

func (r *fakeRepo) FindByID(ctx context.Context, id string) (*model.Causa, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	return r.byID(id)
}

func (r *fakeRepo) FindByCuij(ctx context.Context, cuij string) (*model.Causa, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(func(c *model.Causa) bool { return c.Cuij == cuij })
}

func (r *fakeRepo) FindByExactCuij(ctx context.Context, cuij string) (*model.Causa, error) {
	return r.FindByCuij(ctx, cuij)
}

func (r *fakeRepo) FindByNumeroAnio(ctx context.Context, numero, anio int) (*model.Causa, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	return r.find(func(c *model.Causa) bool { return c.Numero == numero && c.Anio == anio })
}

func (r *fakeRepo) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*model.Causa, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.Causa{}
	for _, id := range ids {
		if c, ok := r.causas[id]; ok {
			out = append(out, clone(c))
		}
	}
	return out, nil
}

func (r *fakeRepo) FindSection(ctx context.Context, id string, fields ...string) (*model.Causa, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeRepo) Search(ctx context.Context, filter bson.M, sort bson.D, limit int, offset int64) ([]*model.Causa, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	r.lastFilter, r.lastSort, r.lastLimit, r.lastOffset = filter, sort, limit, offset
	out := []*model.Causa{}
	for _, c := range r.causas {
		out = append(out, clone(c))
	}
	return out, nil
}

func (r *fakeRepo) Count(ctx context.Context, filter bson.M) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.causas)), nil
}

func (r *fakeRepo) Update(ctx context.Context, id string, set bson.M) (*model.Causa, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	c, err := r.stored(id)
	if err != nil {
		return nil, err
	}
	r.lastSet = set
	if v, ok := set["caratula"].(string); ok {
		c.Caratula = v
	}
	if v, ok := set["estado"].(string); ok {
		c.Estado = v
	}
	return clone(c), nil
}

func (r *fakeRepo) Delete(ctx context.Context, id string) (*model.Causa, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, err := r.stored(id)
	if err != nil {
		return nil, err
	}
	delete(r.causas, c.ID)
	return c, nil
}

func (r *fakeRepo) Stats(ctx context.Context) (*model.CausaStats, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	return &model.CausaStats{}, nil
}

func (r *fakeRepo) AddFolder(ctx context.Context, id primitive.ObjectID, folderID primitive.ObjectID, userID *primitive.ObjectID, entry model.UpdateHistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.causas[id]
	if !ok {
		return causaserrors.ErrNotFound
	}
	r.addedFolder = append(r.addedFolder, folderID)
	c.FolderIDs = append(c.FolderIDs, folderID)
	if userID != nil {
		c.UserCausaIDs = append(c.UserCausaIDs, *userID)
	}
	c.UpdateHistory = append(c.UpdateHistory, entry)
	return nil
}

func (r *fakeRepo) RemoveFolder(ctx context.Context, id primitive.ObjectID, folderID primitive.ObjectID, userID *primitive.ObjectID, entry model.UpdateHistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.causas[id]; !ok {
		return causaserrors.ErrNotFound
	}
	r.removed = append(r.removed, entry)
	return nil
}

func (r *fakeRepo) FindOneByFolder(ctx context.Context, folderID primitive.ObjectID) (*model.Causa, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(func(c *model.Causa) bool {
		for _, f := range c.FolderIDs {
			if f == folderID {
				return true
			}
		}
		return false
	})
}

func (r *fakeRepo) SetUserPreference(ctx context.Context, id primitive.ObjectID, userID primitive.ObjectID, enabled bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.causas[id]
	if !ok {
		return false, causaserrors.ErrNotFound
	}
	c.UserUpdatesEnabled = model.MergePreferences(nil, append(
		removeUser(c.UserUpdatesEnabled, userID),
		model.UserUpdatePreference{UserID: userID, Enabled: enabled},
	))
	c.Update = model.AnyUpdateEnabled(c.UserUpdatesEnabled)
	return c.Update, nil
}

func removeUser(prefs []model.UserUpdatePreference, userID primitive.ObjectID) []model.UserUpdatePreference {
	out := []model.UserUpdatePreference{}
	for _, p := range prefs {
		if p.UserID != userID {
			out = append(out, p)
		}
	}
	return out
}

func (r *fakeRepo) MergeInto(ctx context.Context, targetID primitive.ObjectID, folderIDs, userIDs []primitive.ObjectID, prefs []model.UserUpdatePreference, entry model.UpdateHistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.causas[targetID]
	if !ok {
		return causaserrors.ErrNotFound
	}
	c.FolderIDs = append(c.FolderIDs, folderIDs...)
	c.UserCausaIDs = append(c.UserCausaIDs, userIDs...)
	c.UserUpdatesEnabled = prefs
	c.Update = model.AnyUpdateEnabled(prefs)
	c.UpdateHistory = append(c.UpdateHistory, entry)
	return nil
}

func (r *fakeRepo) MarkResolved(ctx context.Context, pivotID, targetID primitive.ObjectID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.markOK != nil {
		return *r.markOK, nil
	}
	c, ok := r.causas[pivotID]
	if !ok || c.Resolved {
		return false, nil
	}
	c.Resolved = true
	c.ResolvedTo = &targetID
	c.FolderIDs = nil
	c.UserCausaIDs = nil
	return true, nil
}

func (r *fakeRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	r.txCalls++
	return fn(mongo.NewSessionContext(ctx, nil))
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, evt events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func testConfig() *config.Config {
	return &config.Config{
		Log:              logger.Discard(),
		DefaultPageLimit: 20,
		MaxPageLimit:     100,
	}
}

func newTestService(repo *fakeRepo) (*causaService, *recordingPublisher) {
	pub := &recordingPublisher{}
	svc := NewCausaService(repo, validator.NewCausaValidator(), pub, testConfig()).(*causaService)
	return svc, pub
}

func statusOf(err error) int {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return 0
	}
	return appErr.StatusCode()
}

func ptr[T any](v T) *T { return &v }
