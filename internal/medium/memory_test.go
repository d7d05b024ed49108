package medium

import (
	"errors"
	"reflect"
	"testing"
)

func TestMemoryCRUD(t *testing.T) {
	m := NewMemory()
	if _, err := m.Get("a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if err := m.Set("a", []byte("1")); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, err := m.Get("a")
	if err != nil || string(v) != "1" {
		t.Fatalf("get: %q %v", v, err)
	}
	v[0] = 'x'
	if again, _ := m.Get("a"); string(again) != "1" {
		t.Fatalf("Get must return a copy")
	}
	if err := m.Remove("a"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := m.Remove("a"); err != nil {
		t.Fatalf("second remove: %v", err)
	}
	if m.Len() != 0 || m.Used() != 0 {
		t.Fatalf("expected empty medium, len=%d used=%d", m.Len(), m.Used())
	}
}

func TestMemoryKeysByPrefix(t *testing.T) {
	m := NewMemory()
	for _, k := range []string{"p/b", "p/a", "q/a"} {
		_ = m.Set(k, []byte("v"))
	}
	got, err := m.Keys("p/")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"p/a", "p/b"}) {
		t.Fatalf("keys: %v", got)
	}
}

func TestMemoryQuota(t *testing.T) {
	m := NewMemory(WithMaxBytes(10))
	if err := m.Set("k", []byte("12345")); err != nil {
		t.Fatalf("set within quota: %v", err)
	}
	if err := m.Set("k2", []byte("123456")); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("want ErrQuotaExceeded, got %v", err)
	}
	// overwrite accounts for the replaced value
	if err := m.Set("k", []byte("123456789")); err != nil {
		t.Fatalf("overwrite within quota: %v", err)
	}
	if err := m.Set("k", []byte("1234567890")); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("want ErrQuotaExceeded on overwrite, got %v", err)
	}
	if v, _ := m.Get("k"); string(v) != "123456789" {
		t.Fatalf("rejected write must keep old value, got %q", v)
	}
}
