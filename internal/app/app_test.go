package app

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/zalando/go-keyring"

	"github.com/guilded-university/tokenvault/internal/keymaterial"
	"github.com/guilded-university/tokenvault/internal/tokenerr"
)

const (
	testKey   = "12345678901234567890123456789012"
	testNonce = "123456789012345678901234"
)

func newTestConfig(t *testing.T) *Config {
	t.Helper()
	cfg := &Config{
		Token: TokenConfig{File: filepath.Join(t.TempDir(), ".token")},
	}
	if err := cfg.ApplyDefaults(); err != nil {
		t.Fatalf("ApplyDefaults: %v", err)
	}
	return cfg
}

func newTestApp(t *testing.T, cfg *Config) *App {
	t.Helper()
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func setKeyMaterialEnv(t *testing.T) {
	t.Helper()
	t.Setenv(keymaterial.DefaultKeyName, testKey)
	t.Setenv(keymaterial.DefaultNonceName, testNonce)
}

func TestStoreRetrieve(t *testing.T) {
	setKeyMaterialEnv(t)
	ctx := context.Background()
	a := newTestApp(t, newTestConfig(t))

	if err := a.Store(ctx, "hello"); err != nil {
		t.Fatalf("Store: %v", err)
	}

	got, err := a.Retrieve(ctx)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if got != "hello" {
		t.Errorf("Retrieve() = %q, want %q", got, "hello")
	}
}

func TestStoreWritesTagSuffixedBlob(t *testing.T) {
	setKeyMaterialEnv(t)
	cfg := newTestConfig(t)
	a := newTestApp(t, cfg)

	if err := a.Store(context.Background(), "hello"); err != nil {
		t.Fatalf("Store: %v", err)
	}

	data, err := os.ReadFile(cfg.Token.File)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(data) != len("hello")+16 {
		t.Errorf("file length = %d, want %d", len(data), len("hello")+16)
	}
	if strings.Contains(string(data), "hello") {
		t.Error("token file contains plaintext")
	}
}

func TestMissingKeyIsReportedOnBothPaths(t *testing.T) {
	setKeyMaterialEnv(t)
	ctx := context.Background()
	a := newTestApp(t, newTestConfig(t))

	if err := a.Store(ctx, "hello"); err != nil {
		t.Fatalf("Store: %v", err)
	}

	// Key material is re-read on every call
	os.Unsetenv(keymaterial.DefaultKeyName)

	err := a.Store(ctx, "again")
	if !tokenerr.IsEncryptionFailed(err) || !tokenerr.IsMissingKey(err) {
		t.Errorf("Store error = %v, want encryption failure caused by missing key", err)
	}

	_, err = a.Retrieve(ctx)
	if !tokenerr.IsDecryptionFailed(err) || !tokenerr.IsMissingKey(err) {
		t.Errorf("Retrieve error = %v, want decryption failure caused by missing key", err)
	}
	if errors.Is(err, tokenerr.ErrInvalidKeyLength) {
		t.Error("missing key must be distinct from a length error")
	}
}

func TestRetrieveWithoutToken(t *testing.T) {
	setKeyMaterialEnv(t)
	a := newTestApp(t, newTestConfig(t))

	if _, err := a.Retrieve(context.Background()); !tokenerr.IsReadFailed(err) {
		t.Errorf("Retrieve error = %v, want read failure", err)
	}
}

func TestKeyringKeySource(t *testing.T) {
	keyring.MockInit()
	ctx := context.Background()

	cfg := newTestConfig(t)
	cfg.Encryption.Source = KeySourceKeyring
	cfg.Encryption.KeyringService = "tokenvault-app-test"

	src, err := keymaterial.NewKeyringSource(cfg.Encryption.KeyringService)
	if err != nil {
		t.Fatalf("NewKeyringSource: %v", err)
	}
	if err := src.Set(cfg.Encryption.KeyName, testKey); err != nil {
		t.Fatalf("Set key: %v", err)
	}
	if err := src.Set(cfg.Encryption.NonceName, testNonce); err != nil {
		t.Fatalf("Set nonce: %v", err)
	}

	a := newTestApp(t, cfg)
	if err := a.Store(ctx, "from keyring"); err != nil {
		t.Fatalf("Store: %v", err)
	}
	got, err := a.Retrieve(ctx)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if got != "from keyring" {
		t.Errorf("Retrieve() = %q, want %q", got, "from keyring")
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Encryption.Source = "vault"

	if _, err := New(cfg); err == nil {
		t.Error("expected error for invalid config")
	}
}

func freePort(t *testing.T) uint16 {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer l.Close()
	return uint16(l.Addr().(*net.TCPAddr).Port)
}

func TestServe(t *testing.T) {
	setKeyMaterialEnv(t)

	cfg := newTestConfig(t)
	cfg.Server.Port = freePort(t)
	a := newTestApp(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()

	base := "http://127.0.0.1:" + strconv.Itoa(int(cfg.Server.Port)) + "/token"
	client := &http.Client{Timeout: time.Second}

	// Wait for the listener
	var resp *http.Response
	var err error
	for range 50 {
		req, _ := http.NewRequest(http.MethodPut, base, strings.NewReader("served"))
		resp, err = client.Do(req)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		cancel()
		t.Fatalf("PUT: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("PUT status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}

	resp, err = client.Get(base)
	if err != nil {
		cancel()
		t.Fatalf("GET: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if !strings.Contains(string(body), `"served"`) {
		t.Errorf("GET body = %s, want served token", body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not stop after cancel")
	}
}
