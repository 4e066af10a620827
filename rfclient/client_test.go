package rfclient

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberinferno/rftool/command"
	"github.com/cyberinferno/rftool/datapath"
	"github.com/cyberinferno/rftool/logger"
	"github.com/cyberinferno/rftool/rfdc"
	"github.com/cyberinferno/rftool/session"
	"github.com/cyberinferno/rftool/status"
	"github.com/cyberinferno/rftool/tcpserver"
)

func startServer(t *testing.T) Config {
	t.Helper()

	log := logger.NewNop()
	ln := &tcpserver.PairListener{Logger: log, Name: "test", DataAddr: "127.0.0.1:0", CommandAddr: "127.0.0.1:0"}
	require.NoError(t, ln.Start())

	simCfg := datapath.DefaultSimConfig()
	simCfg.FrameInterval = time.Millisecond
	mover, err := datapath.NewSimMover(simCfg)
	require.NoError(t, err)

	m, err := session.NewManager(session.Config{
		Acceptor: ln,
		Processor: command.NewProcessor(command.NewDefaultRegistry(command.Deps{
			Converter: rfdc.NewSimulator(rfdc.ZCU208),
			Platform:  rfdc.NewPlatform(rfdc.ZCU208, nil),
			Version:   "test",
		}), log, nil),
		Worker: datapath.NewWorker(mover, 10*time.Millisecond, log, nil),
		Logger: log,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = m.Serve(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		ln.Stop()
	})

	data, cmd := ln.Addrs()
	cfg := DefaultConfig("127.0.0.1")
	cfg.DataAddress = data.String()
	cfg.CommandAddress = cmd.String()
	cfg.ResponseTimeout = 2 * time.Second
	return cfg
}

func TestClient_Session(t *testing.T) {
	cfg := startServer(t)
	ctx := context.Background()

	c := New(cfg)
	var received atomic.Int64
	c.OnDataReceived(func(e DataReceivedEvent) {
		received.Add(int64(e.Length))
	})

	require.NoError(t, c.Connect(ctx))
	assert.True(t, c.IsConnected())
	assert.ErrorIs(t, c.Connect(ctx), ErrAlreadyConnected)

	resp, err := c.Send("GetBoard")
	require.NoError(t, err)
	assert.Equal(t, "GetBoard ZCU208", resp)

	resp, err = c.Send("SetDecimationFactor 0")
	require.NoError(t, err)
	assert.Equal(t, status.Message(status.ArgumentCountError), resp)

	assert.Eventually(t, func() bool { return received.Load() > 0 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, c.Disconnect())
	assert.Equal(t, Disconnected, c.GetState())

	_, err = c.Send("GetBoard")
	assert.ErrorIs(t, err, ErrNotConnected)

	t.Run("reconnects after disconnect", func(t *testing.T) {
		require.NoError(t, c.Connect(ctx))
		resp, err := c.Send("getversion")
		require.NoError(t, err)
		assert.Equal(t, "GetVersion test", resp)
		require.NoError(t, c.Disconnect())
	})

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, Closed, c.GetState())
	assert.ErrorIs(t, c.Connect(ctx), ErrClosed)
}

func TestClient_CommandTooLong(t *testing.T) {
	cfg := startServer(t)
	c, err := Dial(context.Background(), cfg)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Send(string(make([]byte, status.MaxLineLength)))
	assert.Error(t, err)

	resp, err := c.Send("GetBoard")
	require.NoError(t, err)
	assert.Equal(t, "GetBoard ZCU208", resp)
}

func TestClient_DialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	cfg := DefaultConfig("127.0.0.1")
	cfg.DataAddress = addr
	cfg.CommandAddress = addr
	cfg.ConnectionTimeout = time.Second

	c := New(cfg)
	states := make(chan ConnectionState, 4)
	c.OnConnectionState(func(e ConnectionStateEvent) { states <- e.State })

	assert.Error(t, c.Connect(context.Background()))
	assert.Equal(t, Disconnected, c.GetState())
}

func TestClient_ServerDropsDataChannel(t *testing.T) {
	ln := &tcpserver.PairListener{Logger: logger.NewNop(), Name: "raw", DataAddr: "127.0.0.1:0", CommandAddr: "127.0.0.1:0"}
	require.NoError(t, ln.Start())
	defer ln.Stop()

	pairs := make(chan tcpserver.Pair, 1)
	go func() {
		p, err := ln.AcceptPair(context.Background())
		if err == nil {
			pairs <- p
		}
	}()

	data, cmd := ln.Addrs()
	cfg := DefaultConfig("127.0.0.1")
	cfg.DataAddress = data.String()
	cfg.CommandAddress = cmd.String()

	c := New(cfg)
	errs := make(chan error, 1)
	c.OnError(func(e ErrorEvent) { errs <- e.Error })
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	p := <-pairs
	_, err := p.Data.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, p.Close())

	select {
	case err := <-errs:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("no error event")
	}
	assert.Eventually(t, func() bool { return c.GetState() == Disconnected }, time.Second, 10*time.Millisecond)
}

func TestConnectionState_String(t *testing.T) {
	assert.Equal(t, "Connected", Connected.String())
	assert.Equal(t, "Unknown", ConnectionState(42).String())
}
