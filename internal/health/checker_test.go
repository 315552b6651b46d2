package health

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

// fakeEngine reports a fixed running state for every container.
type fakeEngine struct {
	running bool
}

func (f *fakeEngine) BuildImage(ctx context.Context, dir string, tags, cacheFrom []string) error {
	return nil
}

func (f *fakeEngine) RunContainer(ctx context.Context, image, name string, hostPort, containerPort int) (string, error) {
	return "", nil
}

func (f *fakeEngine) StopContainer(ctx context.Context, name string) error   { return nil }
func (f *fakeEngine) RemoveContainer(ctx context.Context, name string) error { return nil }

func (f *fakeEngine) IsRunning(ctx context.Context, name string) (bool, error) {
	return f.running, nil
}

func (f *fakeEngine) ContainerLogs(ctx context.Context, name string, tail int) (string, error) {
	return "", nil
}

func serverPort(t *testing.T, srv *httptest.Server) int {
	t.Helper()
	_, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	if err != nil {
		t.Fatalf("split host port: %v", err)
	}
	port, _ := strconv.Atoi(portStr)
	return port
}

func TestCheckHealthyContainer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewChecker(&fakeEngine{running: true})
	if !c.Check(context.Background(), "todo-v1.0.0", serverPort(t, srv), 5*time.Second) {
		t.Error("healthy container reported unhealthy")
	}
}

func TestCheckServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewChecker(&fakeEngine{running: true})
	if c.Check(context.Background(), "todo-v1.0.0", serverPort(t, srv), 2*time.Second) {
		t.Error("container answering 500 reported healthy")
	}
}

func TestCheckContainerNeverStarts(t *testing.T) {
	c := NewChecker(&fakeEngine{running: false})

	start := time.Now()
	healthy := c.Check(context.Background(), "todo-v1.0.0", 59999, 2*time.Second)
	elapsed := time.Since(start)

	if healthy {
		t.Error("container that never started reported healthy")
	}
	if elapsed > 4*time.Second {
		t.Errorf("check blocked %v, budget was 2s", elapsed)
	}
}

func TestCheckNoListener(t *testing.T) {
	c := NewChecker(&fakeEngine{running: true})
	if c.Check(context.Background(), "todo-v1.0.0", 59998, 2*time.Second) {
		t.Error("closed port reported healthy")
	}
}
