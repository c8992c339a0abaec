package cli

import (
	"bytes"
	stdcontext "context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/portside/portside/internal/api"
	apihttp "github.com/portside/portside/internal/api/http"
	"github.com/portside/portside/internal/config"
)

func TestServeCommandReportsAPIServerError(t *testing.T) {
	path := "portside.yaml"
	ctx := &context{configPath: &path}
	ctx.cfg = config.Default()
	ctx.sup = newSupervisorWithHost(ctx.cfg, newFakeHost())
	t.Cleanup(ctx.sup.shutdown)

	cmd := newServeCmd(ctx)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	runCtx, cancel := stdcontext.WithCancel(stdcontext.Background())
	defer cancel()
	cmd.SetContext(runCtx)

	startErr := errors.New("serve failure")
	origNewAPIServer := newAPIServer
	t.Cleanup(func() {
		newAPIServer = origNewAPIServer
	})
	newAPIServer = func(cfg apihttp.Config) (*apihttp.Server, error) {
		cfg.Listener = &failingListener{addr: staticAddr("127.0.0.1:0"), err: startErr}
		return apihttp.NewServer(cfg)
	}

	err := cmd.Execute()
	if !errors.Is(err, startErr) {
		t.Fatalf("expected serve error %v, got %v (stderr: %s)", startErr, err, stderr.String())
	}
}

func TestServeCommandServesStatus(t *testing.T) {
	path := "portside.yaml"
	ctx := &context{configPath: &path}
	ctx.cfg = config.Default()
	ctx.sup = newSupervisorWithHost(ctx.cfg, newFakeHost())
	t.Cleanup(ctx.sup.shutdown)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	origNewAPIServer := newAPIServer
	t.Cleanup(func() {
		newAPIServer = origNewAPIServer
	})
	newAPIServer = func(cfg apihttp.Config) (*apihttp.Server, error) {
		cfg.Listener = listener
		return apihttp.NewServer(cfg)
	}

	cmd := newServeCmd(ctx)
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stdout)

	runCtx, cancel := stdcontext.WithCancel(stdcontext.Background())
	defer cancel()
	cmd.SetContext(runCtx)

	done := make(chan error, 1)
	go func() {
		done <- cmd.Execute()
	}()

	url := fmt.Sprintf("http://%s/api/v1/status", listener.Addr())
	var report api.StatusReport
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			decodeErr := json.NewDecoder(resp.Body).Decode(&report)
			resp.Body.Close()
			if decodeErr != nil {
				t.Fatalf("decode status: %v", decodeErr)
			}
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status endpoint returned %d", resp.StatusCode)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("status endpoint never came up: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	if report.Version == "" {
		t.Fatal("expected the status report to carry a version")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve exited with %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not exit on context cancel")
	}
}

type failingListener struct {
	addr net.Addr
	err  error
}

func (l *failingListener) Accept() (net.Conn, error) {
	return nil, l.err
}

func (l *failingListener) Close() error {
	return nil
}

func (l *failingListener) Addr() net.Addr {
	return l.addr
}

type staticAddr string

func (a staticAddr) Network() string { return "tcp" }

func (a staticAddr) String() string { return string(a) }
