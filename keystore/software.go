package keystore

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/platkey/platkey/localauth"
)

const (
	pemType         = "PRIVATE KEY"
	policyPEMHeader = "Access-Policy"
	keyFileSuffix   = ".pem"
)

// Software is the software-backed KeyStore. Keys live in memory and,
// when a directory is configured, as PKCS#8 PEM files (0600) named by
// label so the agent keeps its keys across restarts. On platforms with a
// secure enclave this implementation is replaced behind the KeyStore
// interface.
type Software struct {
	dir string
	log *slog.Logger

	mu    sync.Mutex
	keys  map[string]*entry
	locks map[string]*sync.Mutex
}

type entry struct {
	key    *ecdsa.PrivateKey
	policy AccessPolicy
}

// SoftwareConfig configures the software store. Dir is optional; when
// empty the store is memory-only. Logger may be nil.
type SoftwareConfig struct {
	Dir    string
	Logger *slog.Logger
}

// NewSoftware opens the software key store, loading any keys persisted
// under cfg.Dir.
func NewSoftware(cfg SoftwareConfig) (*Software, error) {
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Software{
		dir:   cfg.Dir,
		log:   log,
		keys:  make(map[string]*entry),
		locks: make(map[string]*sync.Mutex),
	}
	if s.dir != "" {
		if err := os.MkdirAll(s.dir, 0o700); err != nil {
			return nil, newError(KindStoreFailed, StatusIO, err)
		}
		if err := s.loadDir(); err != nil {
			return nil, err
		}
		log.Debug("software key store opened", "dir", s.dir, "keys", len(s.keys))
	}
	return s, nil
}

func (s *Software) loadDir() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return newError(KindLoadFailed, StatusIO, err)
	}
	for _, de := range entries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), keyFileSuffix) {
			continue
		}
		label := strings.TrimSuffix(de.Name(), keyFileSuffix)
		raw, err := os.ReadFile(filepath.Join(s.dir, de.Name()))
		if err != nil {
			return newError(KindLoadFailed, StatusIO, err)
		}
		block, _ := pem.Decode(raw)
		if block == nil || block.Type != pemType {
			return newError(KindInvalidItem, StatusInternal, fmt.Errorf("malformed key file for label %q", label))
		}
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return newError(KindInvalidItem, StatusInternal, fmt.Errorf("parse key %q: %w", label, err))
		}
		key, ok := parsed.(*ecdsa.PrivateKey)
		if !ok || key.Curve != elliptic.P256() {
			return newError(KindInvalidItem, StatusInternal, fmt.Errorf("key %q is not ECDSA P-256", label))
		}
		policy := AccessPolicy(block.Headers[policyPEMHeader])
		if policy != PolicyBiometryCurrentSet && policy != PolicyUserPresence {
			return newError(KindInvalidItem, StatusInternal,
				fmt.Errorf("key %q has unrecognized access policy %q", label, policy))
		}
		s.keys[label] = &entry{key: key, policy: policy}
	}
	return nil
}

// GenerateKeyPair implements KeyStore. The grant is consumed before any
// key material is created.
func (s *Software) GenerateKeyPair(ctx context.Context, label string, policy AccessPolicy, grant *localauth.Grant) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, newError(KindStoreFailed, StatusInternal, err)
	}
	if err := grant.Use(); err != nil {
		return nil, newError(KindAccessFailed, StatusInternal, err)
	}
	if policy != PolicyBiometryCurrentSet && policy != PolicyUserPresence {
		return nil, newError(KindStoreFailed, StatusInternal, fmt.Errorf("unknown access policy %q", policy))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.keys[label]; ok && existing.policy != policy {
		return nil, newError(KindStoreFailed, StatusDuplicate,
			fmt.Errorf("label %q already exists with policy %q", label, existing.policy))
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, newError(KindStoreFailed, StatusInternal, err)
	}
	if err := s.persist(label, key, policy); err != nil {
		return nil, err
	}
	s.keys[label] = &entry{key: key, policy: policy}
	s.log.Debug("key pair generated", "label", label, "policy", string(policy))
	return &Handle{Label: label, Policy: policy}, nil
}

func (s *Software) persist(label string, key *ecdsa.PrivateKey, policy AccessPolicy) error {
	if s.dir == "" {
		return nil
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return newError(KindStoreFailed, StatusInternal, err)
	}
	block := &pem.Block{
		Type:    pemType,
		Headers: map[string]string{policyPEMHeader: string(policy)},
		Bytes:   der,
	}
	path := filepath.Join(s.dir, label+keyFileSuffix)
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		return newError(KindStoreFailed, StatusIO, err)
	}
	return nil
}

// PublicKey implements KeyStore.
func (s *Software) PublicKey(label string) ([]byte, error) {
	s.mu.Lock()
	e, ok := s.keys[label]
	s.mu.Unlock()
	if !ok {
		return nil, newError(KindLoadFailed, StatusNotFound, fmt.Errorf("no key for label %q", label))
	}
	raw := make([]byte, 65)
	raw[0] = 0x04
	e.key.PublicKey.X.FillBytes(raw[1:33])
	e.key.PublicKey.Y.FillBytes(raw[33:65])
	return raw, nil
}

// Sign implements KeyStore. A given label is never signed concurrently.
func (s *Software) Sign(ctx context.Context, label string, grant *localauth.Grant, message []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, newError(KindAccessFailed, StatusInternal, err)
	}
	if err := grant.Use(); err != nil {
		return nil, newError(KindAccessFailed, StatusInternal, err)
	}

	s.mu.Lock()
	e, ok := s.keys[label]
	if !ok {
		s.mu.Unlock()
		return nil, newError(KindInvalidItem, StatusNotFound, fmt.Errorf("no key for label %q", label))
	}
	lock, ok := s.locks[label]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[label] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	digest := sha256.Sum256(message)
	sig, err := ecdsa.SignASN1(rand.Reader, e.key, digest[:])
	if err != nil {
		return nil, newError(KindInvalidItem, StatusInternal, err)
	}
	return sig, nil
}

// Delete implements KeyStore. It is idempotent: a missing label is a
// success, mirroring platform delete-not-found behavior.
func (s *Software) Delete(label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, label)
	delete(s.locks, label)
	if s.dir == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, label+keyFileSuffix))
	if err != nil && !os.IsNotExist(err) {
		return newError(KindDeleteFailed, StatusIO, err)
	}
	return nil
}

// Labels returns the labels currently held, sorted. Used for inspection
// and by tests asserting no orphaned keys remain.
func (s *Software) Labels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	labels := make([]string, 0, len(s.keys))
	for l := range s.keys {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

// Close implements KeyStore.
func (s *Software) Close() error {
	return nil
}

var _ KeyStore = (*Software)(nil)
