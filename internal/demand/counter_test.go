package demand

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
	"github.com/angelmondragon/storefront-checkout/pkg/redis"
)

type fakeStore struct {
	values  map[string]string
	ttls    map[string]time.Duration
	incrErr error
	getErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeStore) IncrWithTTL(_ context.Context, key string, ttl time.Duration) (int64, error) {
	if f.incrErr != nil {
		return 0, f.incrErr
	}
	n, _ := strconv.ParseInt(f.values[key], 10, 64)
	n++
	f.values[key] = strconv.FormatInt(n, 10)
	if n == 1 {
		f.ttls[key] = ttl
	}
	return n, nil
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	v, ok := f.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (f *fakeStore) CounterKey(parts ...string) string {
	return (&redis.Client{}).CounterKey(parts...)
}

var zone = uuid.MustParse("00000000-0000-0000-0000-000000000001")

func TestRecordAndSignal(t *testing.T) {
	store := newFakeStore()
	counter, err := NewCounter(store, 10*time.Minute)
	if err != nil {
		t.Fatalf("new counter: %v", err)
	}
	ctx := context.Background()

	if got, err := counter.Signal(ctx, zone); err != nil || got != 0 {
		t.Fatalf("expected empty window to read 0, got %d err=%v", got, err)
	}
	for i := 0; i < 3; i++ {
		if _, err := counter.Record(ctx, zone); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	got, err := counter.Signal(ctx, zone)
	if err != nil || got != 3 {
		t.Fatalf("expected 3 dispatches, got %d err=%v", got, err)
	}
	key := "sf:counter:demand:" + zone.String()
	if store.ttls[key] != 10*time.Minute {
		t.Fatalf("expected window ttl on %s, got %v", key, store.ttls)
	}
}

func TestRecordRejectsNilZone(t *testing.T) {
	counter, _ := NewCounter(newFakeStore(), time.Minute)
	if _, err := counter.Record(context.Background(), uuid.Nil); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRecordWrapsStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.incrErr = errors.New("connection refused")
	counter, _ := NewCounter(store, time.Minute)
	if _, err := counter.Record(context.Background(), zone); !pkgerrors.Is(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestSignalErrors(t *testing.T) {
	store := newFakeStore()
	counter, _ := NewCounter(store, time.Minute)
	store.values["sf:counter:demand:"+zone.String()] = "garbage"
	if _, err := counter.Signal(context.Background(), zone); err == nil {
		t.Fatal("expected parse error")
	}
	store.getErr = errors.New("timeout")
	if _, err := counter.Signal(context.Background(), zone); err == nil {
		t.Fatal("expected store error")
	}
}

func TestNewCounterValidates(t *testing.T) {
	if _, err := NewCounter(nil, time.Minute); err == nil {
		t.Fatal("expected error without store")
	}
	if _, err := NewCounter(newFakeStore(), 0); err == nil {
		t.Fatal("expected error without window")
	}
}
