// Package document bridges durable base64 document encodings and the
// ephemeral preview handles minted from them. It covers the three
// transition points of a binding's life: first upload, thread switch,
// and rehydration after reload from persisted storage.
package document

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tridinhbui/finpartner-ai/internal/logging"
	"github.com/tridinhbui/finpartner-ai/internal/storage/blobstore"
	"github.com/tridinhbui/finpartner-ai/internal/thread"
)

const defaultDecodeCacheSize = 32

// Manager owns handle lifecycle for every document binding in the
// process. Decoded bytes are cached by content digest so regenerating a
// handle on every thread switch stays cheap.
type Manager struct {
	blobs   *blobstore.Registry
	decoded *lru.Cache[string, []byte]
	logger  logging.Logger
}

// NewManager constructs a lifecycle manager over the given registry.
func NewManager(blobs *blobstore.Registry, logger logging.Logger) *Manager {
	cache, err := lru.New[string, []byte](defaultDecodeCacheSize)
	if err != nil {
		// Only reachable with a non-positive size constant.
		panic(err)
	}
	return &Manager{
		blobs:   blobs,
		decoded: cache,
		logger:  logging.OrNop(logger),
	}
}

// Mint builds a binding from freshly uploaded bytes: the handle is
// allocated directly from the source bytes and the durable encoding is
// produced alongside, so both land in the binding together.
func (m *Manager) Mint(fileName string, raw []byte, mimeType string) thread.DocumentBinding {
	return thread.DocumentBinding{
		FileName:     fileName,
		EncodedBytes: base64.StdEncoding.EncodeToString(raw),
		MimeType:     mimeType,
		EphemeralRef: m.blobs.Allocate(raw),
	}
}

// Rehydrate regenerates the binding's ephemeral handle from its durable
// bytes. The previous handle, if any, is revoked first; regeneration is
// unconditional so a stale handle carried across a reload can never leak
// into a render. On decode failure the binding is left without a handle
// and the viewer reports an unavailable preview.
func (m *Manager) Rehydrate(binding *thread.DocumentBinding) {
	m.Release(binding)
	if !binding.HasContent() {
		return
	}
	raw, err := m.decode(binding.EncodedBytes)
	if err != nil {
		m.logger.Error("decode document %q failed: %v", binding.FileName, err)
		return
	}
	binding.EphemeralRef = m.blobs.Allocate(raw)
}

// Release revokes the binding's handle. Used on thread switch-away,
// rebinding, thread deletion and teardown.
func (m *Manager) Release(binding *thread.DocumentBinding) {
	if binding.EphemeralRef == "" {
		return
	}
	m.blobs.Revoke(binding.EphemeralRef)
	binding.EphemeralRef = ""
}

// Resolve returns the preview bytes behind a handle.
func (m *Manager) Resolve(handle string) ([]byte, bool) {
	return m.blobs.Resolve(handle)
}

// Outstanding reports the number of live handles.
func (m *Manager) Outstanding() int {
	return m.blobs.Outstanding()
}

func (m *Manager) decode(encoded string) ([]byte, error) {
	sum := sha256.Sum256([]byte(encoded))
	key := hex.EncodeToString(sum[:])
	if raw, ok := m.decoded.Get(key); ok {
		return raw, nil
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	m.decoded.Add(key, raw)
	return raw, nil
}
