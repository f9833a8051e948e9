package cli

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "migrate", "repair", "remind"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestNewLogger(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, newLogger("DEBUG").GetLevel())
	assert.Equal(t, logrus.InfoLevel, newLogger("bogus").GetLevel())
	_, ok := newLogger("info").Formatter.(*logrus.JSONFormatter)
	assert.True(t, ok)
}

func TestMaintenanceCommands(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_CONN", filepath.Join(t.TempDir(), "loans.db"))
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("SMTP_HOST", "")

	run := func(args ...string) string {
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetArgs(args)
		require.NoError(t, rootCmd.Execute())
		return out.String()
	}

	run("migrate")
	assert.Equal(t, "Repaired 0 loan(s)\n", run("repair"))
	assert.Equal(t, "Sent 0 reminder(s)\n", run("remind"))
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestServeUntilDone_ClosedServerIsCleanExit(t *testing.T) {
	server := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	done := make(chan error, 1)
	go func() { done <- serveUntilDone(context.Background(), server, quietLogger(), time.Second) }()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, server.Close())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not return after close")
	}
}

func TestServeUntilDone_ContextCancelShutsDown(t *testing.T) {
	server := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serveUntilDone(ctx, server, quietLogger(), time.Second) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServeUntilDone_ListenFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	server := &http.Server{Addr: ln.Addr().String(), Handler: http.NotFoundHandler()}
	err = serveUntilDone(context.Background(), server, quietLogger(), time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server failed")
	assert.NotContains(t, err.Error(), "%!w")
}

func TestStopScheduler_WaitsForRunningJob(t *testing.T) {
	c := cron.New(cron.WithSeconds())
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	_, err := c.AddFunc("* * * * * *", func() {
		once.Do(func() {
			close(started)
			<-release
		})
	})
	require.NoError(t, err)
	c.Start()

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job never started")
	}

	assert.False(t, stopScheduler(c, 50*time.Millisecond), "returned while the job was running")

	stopped := make(chan bool, 1)
	go func() { stopped <- stopScheduler(c, 2*time.Second) }()
	close(release)
	select {
	case ok := <-stopped:
		assert.True(t, ok)
	case <-time.After(3 * time.Second):
		t.Fatal("scheduler did not stop after the job returned")
	}
}
