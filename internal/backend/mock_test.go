package backend

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/ekisa-team/inferworker/internal/config"
)

// --- Mock types ---

type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) Provider() Provider {
	args := m.Called()
	return args.Get(0).(Provider)
}

func (m *MockBackend) Label() string {
	return m.Called().String(0)
}

func (m *MockBackend) ServerConfig(cfg *config.Config) ServerConfig {
	return m.Called(cfg).Get(0).(ServerConfig)
}

func (m *MockBackend) CompletionPath() string { return m.Called().String(0) }
func (m *MockBackend) ChatPath() string       { return m.Called().String(0) }
func (m *MockBackend) SupportsSampling() bool { return m.Called().Bool(0) }

func (m *MockBackend) PullArgs(model string) []string {
	args := m.Called(model)
	if v, ok := args.Get(0).([]string); ok {
		return v
	}
	return nil
}

type MockRunner struct {
	mock.Mock
}

func (m *MockBackend) PullEnv(cfg *config.Config) map[string]string {
	v, _ := m.Called(cfg).Get(0).(map[string]string)
	return v
}

func (m *MockRunner) Run(ctx context.Context, name string, args []string, env []string, stdin io.Reader) ([]byte, []byte, error) {
	ret := m.Called(name, args, env)
	stdout, _ := ret.Get(0).([]byte)
	stderr, _ := ret.Get(1).([]byte)
	return stdout, stderr, ret.Error(2)
}

func (m *MockRunner) Launch(ctx context.Context, name string, args []string, env []string, out io.Writer) (Process, error) {
	ret := m.Called(name, args, env)
	p, _ := ret.Get(0).(Process)
	return p, ret.Error(1)
}

type fakeProcess struct {
	done      chan struct{}
	once      sync.Once
	killed    bool
	exitDelay time.Duration
	mu        sync.Mutex
}

func newFakeProcess() *fakeProcess {
	return &fakeProcess{done: make(chan struct{})}
}

func (p *fakeProcess) Pid() int { return 4242 }

func (p *fakeProcess) Wait() error {
	<-p.done
	return nil
}

func (p *fakeProcess) Kill() error {
	p.mu.Lock()
	p.killed = true
	p.mu.Unlock()

	if p.exitDelay > 0 {
		time.AfterFunc(p.exitDelay, p.exit)
		return nil
	}
	p.exit()
	return nil
}

func (p *fakeProcess) exit() {
	p.once.Do(func() { close(p.done) })
}

func (p *fakeProcess) Killed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.killed
}
