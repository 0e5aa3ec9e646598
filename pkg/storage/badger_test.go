package storage

import (
	"bytes"
	"testing"
)

func TestBadgerStorageSetGetDelete(t *testing.T) {
	dir := t.TempDir()
	st, err := NewBadgerStorage(dir)
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}
	defer st.Close()

	txn, err := st.Begin(true)
	if err != nil {
		t.Fatalf("failed to begin txn: %v", err)
	}

	if err := txn.Set(TableDict, []byte("k1"), []byte("v1")); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	ro, err := st.Begin(false)
	if err != nil {
		t.Fatalf("failed to begin read txn: %v", err)
	}
	defer ro.Rollback()

	val, err := ro.Get(TableDict, []byte("k1"))
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !bytes.Equal(val, []byte("v1")) {
		t.Fatalf("expected v1, got %s", val)
	}

	if err := ro.Set(TableDict, []byte("k2"), []byte("v2")); err == nil {
		t.Fatal("expected ErrTransactionRO error writing to read-only transaction")
	}
}
