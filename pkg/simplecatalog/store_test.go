package simplecatalog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// fakeStore is an in-package BlobStore with write counting and per-prefix
// failure injection.
type fakeStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	writes   map[string]int
	failList map[string]error
	failGet  map[string]error
	gates    map[string]listGate
}

type listGate struct {
	entered chan struct{}
	release chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects:  map[string][]byte{},
		writes:   map[string]int{},
		failList: map[string]error{},
		failGet:  map[string]error{},
		gates:    map[string]listGate{},
	}
}

// blockList makes the next List of prefix signal entered and then wait
// until release is called.
func (s *fakeStore) blockList(prefix string) (entered <-chan struct{}, release func()) {
	g := listGate{entered: make(chan struct{}, 1), release: make(chan struct{})}
	s.mu.Lock()
	s.gates[prefix] = g
	s.mu.Unlock()
	return g.entered, func() { close(g.release) }
}

func (s *fakeStore) put(key, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = []byte(content)
}

func (s *fakeStore) get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	return string(data), ok
}

func (s *fakeStore) writeCount(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes[key]
}

func (s *fakeStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok, nil
}

func (s *fakeStore) UploadWithParams(_ context.Context, r io.Reader, params UploadParams) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[params.ObjectKey] = data
	s.writes[params.ObjectKey]++
	return nil
}

func (s *fakeStore) Download(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failGet[key]; err != nil {
		return nil, err
	}
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *fakeStore) List(_ context.Context, prefix string) ([]ObjectMeta, error) {
	s.mu.Lock()
	gate, gated := s.gates[prefix]
	delete(s.gates, prefix)
	s.mu.Unlock()
	if gated {
		gate.entered <- struct{}{}
		<-gate.release
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failList[prefix]; err != nil {
		return nil, err
	}
	var out []ObjectMeta
	for key, data := range s.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, ObjectMeta{Key: key, Size: int64(len(data)), UpdatedAt: time.Unix(0, 0)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *fakeStore) GetObjectMeta(_ context.Context, key string) (*ObjectMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	return &ObjectMeta{Key: key, Size: int64(len(data))}, nil
}

// fakeCache is a Cache over a plain map, ignoring TTLs.
type fakeCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: map[string][]byte{}}
}

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	return v, ok, nil
}

func (c *fakeCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
	return nil
}

func (c *fakeCache) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			delete(c.items, k)
		}
	}
	return nil
}

func (c *fakeCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = map[string][]byte{}
	return nil
}

func (c *fakeCache) Close() error { return nil }

func (c *fakeCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

// newTestIndex wires an IndexStore over store with a fixed clock.
func newTestIndex(store BlobStore, cache Cache) *IndexStore {
	gw := NewGateway("fake", store, NewIOPool(4))
	idx := NewIndexStore(gw, NewGuard(), cache, nil)
	idx.now = func() time.Time { return fixedNow }
	return idx
}
