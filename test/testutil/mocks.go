package testutil

import (
	"errors"
	"os"
	"sync"

	"github.com/stretchr/testify/mock"
)

// MockOpener mocks the viewer launcher.
type MockOpener struct {
	mock.Mock
}

func NewMockOpener() *MockOpener {
	return &MockOpener{}
}

func (m *MockOpener) Open(path string) error {
	args := m.Called(path)
	return args.Error(0)
}

// RecordingOpener captures opened paths together with their content at
// the moment of opening.
type RecordingOpener struct {
	mu     sync.Mutex
	Paths  []string
	Bodies [][]byte
	Err    error
}

func (r *RecordingOpener) Open(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	body, _ := os.ReadFile(path)
	r.Paths = append(r.Paths, path)
	r.Bodies = append(r.Bodies, body)
	return r.Err
}

// Opened returns how many paths were opened.
func (r *RecordingOpener) Opened() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Paths)
}

// MockCryptoProvider mocks crypto operations.
type MockCryptoProvider struct {
	mock.Mock
}

func NewMockCryptoProvider() *MockCryptoProvider {
	return &MockCryptoProvider{}
}

func (m *MockCryptoProvider) Seal(plaintext, key []byte) ([]byte, []byte, error) {
	args := m.Called(plaintext, key)
	var nonce, sealed []byte
	if v := args.Get(0); v != nil {
		nonce = v.([]byte)
	}
	if v := args.Get(1); v != nil {
		sealed = v.([]byte)
	}
	return nonce, sealed, args.Error(2)
}

func (m *MockCryptoProvider) Open(nonce, sealed, key []byte) ([]byte, error) {
	args := m.Called(nonce, sealed, key)
	if data := args.Get(0); data != nil {
		return data.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

// FailingReader is an io.Reader that always fails.
type FailingReader struct{}

func (FailingReader) Read([]byte) (int, error) {
	return 0, errors.New("entropy source unavailable")
}
