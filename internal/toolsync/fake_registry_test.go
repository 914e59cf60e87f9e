package toolsync

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/bobmcallan/vire-tools/internal/client"
	"github.com/bobmcallan/vire-tools/internal/tools"
)

// fakeRegistry is an in-memory Registry that counts calls per operation.
type fakeRegistry struct {
	mu      sync.Mutex
	records map[string]*client.ToolRecord
	nextID  int

	findErr   error
	createErr error
	updateErr error
	delay     time.Duration

	finds, creates, updates int
	order                   []string
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{records: map[string]*client.ToolRecord{}}
}

func (f *fakeRegistry) seed(d tools.Descriptor) *client.ToolRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.store("", d)
}

func (f *fakeRegistry) store(id string, d tools.Descriptor) *client.ToolRecord {
	if id == "" {
		f.nextID++
		id = fmt.Sprintf("tool-%d", f.nextID)
	}
	params, _ := json.Marshal(d.Parameters)
	rec := &client.ToolRecord{
		ID:          id,
		Name:        d.Name,
		Description: d.Description,
		Endpoint:    d.Endpoint,
		Method:      d.Method,
		Parameters:  params,
		Kind:        d.Kind,
	}
	f.records[d.Name] = rec
	return rec
}

func (f *fakeRegistry) wait(ctx context.Context) error {
	if f.delay == 0 {
		return nil
	}
	select {
	case <-time.After(f.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeRegistry) Find(ctx context.Context, name string) (*client.ToolRecord, error) {
	f.mu.Lock()
	f.finds++
	f.order = append(f.order, "find:"+name)
	err := f.findErr
	f.mu.Unlock()

	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[name]
	if !ok {
		return nil, client.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeRegistry) Create(ctx context.Context, d tools.Descriptor) (*client.ToolRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	f.order = append(f.order, "create:"+d.Name)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.store("", d), nil
}

func (f *fakeRegistry) Update(ctx context.Context, id string, d tools.Descriptor) (*client.ToolRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	f.order = append(f.order, "update:"+d.Name)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return f.store(id, d), nil
}

func (f *fakeRegistry) writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates + f.updates
}
