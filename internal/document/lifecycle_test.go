package document

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/tridinhbui/finpartner-ai/internal/logging"
	"github.com/tridinhbui/finpartner-ai/internal/storage/blobstore"
	"github.com/tridinhbui/finpartner-ai/internal/thread"
)

func newManager() *Manager {
	return NewManager(blobstore.NewRegistry(), logging.Nop())
}

func TestMintInstallsBytesAndHandleTogether(t *testing.T) {
	m := newManager()
	raw := []byte("%PDF-1.7 fake report")

	binding := m.Mint("q3.pdf", raw, "application/pdf")
	if binding.EncodedBytes != base64.StdEncoding.EncodeToString(raw) {
		t.Fatal("durable encoding mismatch")
	}
	got, ok := m.Resolve(binding.EphemeralRef)
	if !ok || !bytes.Equal(got, raw) {
		t.Fatal("handle does not resolve to source bytes")
	}
}

func TestRebindRevokesPreviousHandle(t *testing.T) {
	m := newManager()

	first := m.Mint("a.pdf", []byte("first"), "application/pdf")
	if m.Outstanding() != 1 {
		t.Fatalf("expected 1 outstanding, got %d", m.Outstanding())
	}

	// Binding a second document to the same slot must release the first
	// handle before or at the moment the second is installed.
	m.Release(&first)
	second := m.Mint("b.pdf", []byte("second"), "application/pdf")
	if m.Outstanding() != 1 {
		t.Fatalf("expected 1 outstanding after rebind, got %d", m.Outstanding())
	}
	if _, ok := m.Resolve(first.EphemeralRef); ok {
		t.Fatal("first handle still live")
	}
	if _, ok := m.Resolve(second.EphemeralRef); !ok {
		t.Fatal("second handle not live")
	}
}

func TestRehydrateRegeneratesUnconditionally(t *testing.T) {
	m := newManager()
	raw := []byte("spreadsheet bytes")
	binding := m.Mint("model.xlsx", raw, "application/vnd.ms-excel")
	stale := binding.EphemeralRef

	m.Rehydrate(&binding)
	if binding.EphemeralRef == "" || binding.EphemeralRef == stale {
		t.Fatalf("expected fresh handle, got %q (stale %q)", binding.EphemeralRef, stale)
	}
	if m.Outstanding() != 1 {
		t.Fatalf("stale handle leaked, outstanding=%d", m.Outstanding())
	}
	got, _ := m.Resolve(binding.EphemeralRef)
	if !bytes.Equal(got, raw) {
		t.Fatal("rehydrated bytes differ from durable encoding")
	}
}

func TestRehydrateAfterReload(t *testing.T) {
	m := newManager()
	raw := []byte("persisted content")

	// A binding loaded from storage carries durable bytes but no handle.
	binding := thread.DocumentBinding{
		FileName:     "saved.pdf",
		EncodedBytes: base64.StdEncoding.EncodeToString(raw),
		MimeType:     "application/pdf",
	}
	m.Rehydrate(&binding)
	got, ok := m.Resolve(binding.EphemeralRef)
	if !ok || !bytes.Equal(got, raw) {
		t.Fatal("reloaded binding did not regain a valid handle")
	}
}

func TestRehydrateDecodeFault(t *testing.T) {
	m := newManager()
	binding := thread.DocumentBinding{
		FileName:     "corrupt.pdf",
		EncodedBytes: "!!!not-base64!!!",
		MimeType:     "application/pdf",
	}
	m.Rehydrate(&binding)
	if binding.EphemeralRef != "" {
		t.Fatal("corrupt encoding produced a handle")
	}
	if m.Outstanding() != 0 {
		t.Fatal("decode fault leaked a handle")
	}
}

func TestRehydrateEmptyBindingOnlyReleases(t *testing.T) {
	m := newManager()
	binding := thread.DocumentBinding{EphemeralRef: "blob:stale"}
	m.Rehydrate(&binding)
	if binding.EphemeralRef != "" {
		t.Fatal("empty binding kept a handle")
	}
}
