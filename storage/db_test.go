package storage

import (
	"errors"
	"testing"
)

func TestMemDBGetMissing(t *testing.T) {
	db := NewMemDB()
	defer db.Close()
	if _, err := db.Get([]byte("absent")); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestMemDBPutGetDelete(t *testing.T) {
	db := NewMemDB()
	defer db.Close()

	if err := db.Put([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := db.Get([]byte("k"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "v" {
		t.Fatalf("got %q, want %q", got, "v")
	}
	ok, err := db.Has([]byte("k"))
	if err != nil || !ok {
		t.Fatalf("has = %v, %v", ok, err)
	}
	if err := db.Delete([]byte("k")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := db.Get([]byte("k")); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound after delete, got %v", err)
	}
}

func TestMemDBIsolatesStoredBytes(t *testing.T) {
	db := NewMemDB()
	defer db.Close()

	value := []byte("original")
	if err := db.Put([]byte("k"), value); err != nil {
		t.Fatalf("put: %v", err)
	}
	value[0] = 'X'

	got, err := db.Get([]byte("k"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "original" {
		t.Fatalf("stored bytes aliased caller slice: %q", got)
	}
	got[0] = 'Y'
	again, err := db.Get([]byte("k"))
	if err != nil {
		t.Fatalf("re-get: %v", err)
	}
	if string(again) != "original" {
		t.Fatalf("returned bytes aliased stored slice: %q", again)
	}
}

func TestMemDBBatchWrite(t *testing.T) {
	db := NewMemDB()
	defer db.Close()

	if err := db.Put([]byte("drop"), []byte("1")); err != nil {
		t.Fatalf("seed: %v", err)
	}
	ops := []BatchOp{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("b"), Value: []byte("2")},
		{Key: []byte("drop"), Delete: true},
	}
	if err := db.Write(ops); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got, _ := db.Get([]byte("a")); string(got) != "1" {
		t.Fatalf("a = %q", got)
	}
	if got, _ := db.Get([]byte("b")); string(got) != "2" {
		t.Fatalf("b = %q", got)
	}
	if _, err := db.Get([]byte("drop")); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected drop deleted, got %v", err)
	}
	if db.Len() != 2 {
		t.Fatalf("len = %d, want 2", db.Len())
	}
}

func TestLevelDBRoundTrip(t *testing.T) {
	db, err := NewLevelDB(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	if _, err := db.Get([]byte("absent")); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
	if err := db.Put([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := db.Get([]byte("k"))
	if err != nil || string(got) != "v" {
		t.Fatalf("get = %q, %v", got, err)
	}
	if err := db.Write([]BatchOp{{Key: []byte("k"), Delete: true}, {Key: []byte("j"), Value: []byte("w")}}); err != nil {
		t.Fatalf("batch: %v", err)
	}
	if _, err := db.Get([]byte("k")); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected k deleted, got %v", err)
	}
	if got, _ := db.Get([]byte("j")); string(got) != "w" {
		t.Fatalf("j = %q", got)
	}
}
