package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lcx/varuna/config"
	"github.com/lcx/varuna/log"
	"github.com/lcx/varuna/metrics"
)

type TCPTransportCfg struct {
	Tag             string `mapstructure:"tag"`
	Addr            string `mapstructure:"addr"`
	ConnType        string `mapstructure:"connType"`
	IdleTimeout     uint32 `mapstructure:"idleTimeout"`
	SendChannelSize uint32 `mapstructure:"sendChannelSize"`
	MaxPkgSize      int    `mapstructure:"maxPkgSize"`
	ReadBufSize     int    `mapstructure:"readBufSize"`
	AnomalyPerSec   int    `mapstructure:"anomalyPerSec"`
	AnomalyBurst    int    `mapstructure:"anomalyBurst"`
}

// GetName returns the configuration name for TCPTransportCfg
func (c *TCPTransportCfg) GetName() string {
	return "tcp_transport"
}

// Validate validates the TCPTransportCfg parameters
func (c *TCPTransportCfg) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("Addr cannot be empty")
	}
	if _, err := parseConnType(c.ConnType); err != nil {
		return err
	}
	if c.MaxPkgSize <= 0 {
		return fmt.Errorf("MaxPkgSize must be positive")
	}
	if c.ReadBufSize < PkgHeaderSize {
		// a partial header held with a full scratch buffer would size the
		// next read at zero and spin the recv loop
		return fmt.Errorf("ReadBufSize must be at least %d", PkgHeaderSize)
	}
	if c.SendChannelSize <= 0 {
		return fmt.Errorf("SendChannelSize must be positive")
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("IdleTimeout must be positive")
	}
	return nil
}

func parseConnType(s string) (Role, error) {
	switch s {
	case "client":
		return RoleClient, nil
	case "backend":
		return RoleBackend, nil
	case "server":
		return RoleServer, nil
	default:
		return 0, fmt.Errorf("unknown connType: %q", s)
	}
}

// TCPTransport a transport based on tcp, every connection gets a recv and
// a send goroutine. Inbound bytes feed a per-connection Reassembler, so a
// completed package is delivered no matter how the stream was chunked.
//
// The configuration lives behind an atomic pointer: connection goroutines
// read it lock-free, and hot reload swaps the whole struct at once.
type TCPTransport struct {
	cfg      atomic.Pointer[TCPTransportCfg]
	role     Role
	idToConn map[uint64]*tcpctx
	lock     sync.RWMutex
	receiver PkgReceiver
	cancel   context.CancelFunc
	nextID   atomic.Uint64
	listener *net.TCPListener
}

// NewTCPTransportWithConfigManager creates a TCPTransport that supports configuration hot-reload.
// This constructor initializes the transport with configuration from the config manager
// and registers it as a configuration change listener for dynamic updates.
func NewTCPTransportWithConfigManager(configManager config.ConfigManager) (*TCPTransport, error) {
	if configManager == nil {
		return nil, errors.New("configManager cannot be nil")
	}

	cfg := &TCPTransportCfg{}
	if err := configManager.LoadConfig("tcp_transport", cfg); err != nil {
		return nil, fmt.Errorf("failed to load tcp_transport config: %w", err)
	}

	transport, err := NewTCPTransportWithConfig(cfg)
	if err != nil {
		return nil, err
	}

	configManager.AddChangeListener(transport)

	return transport, nil
}

// NewTCPTransportWithConfig creates a TCPTransport with the provided configuration.
func NewTCPTransportWithConfig(cfg *TCPTransportCfg) (*TCPTransport, error) {
	role, err := parseConnType(cfg.ConnType)
	if err != nil {
		return nil, err
	}
	t := &TCPTransport{
		role:     role,
		idToConn: make(map[uint64]*tcpctx),
	}
	t.cfg.Store(cfg)
	return t, nil
}

func (t *TCPTransport) config() *TCPTransportCfg {
	return t.cfg.Load()
}

// OnConfigChanged implements the ConfigChangeListener interface for TCPTransport.
// It handles dynamic updates to transport settings without requiring service restart.
// The listen address and connection role of a running transport are fixed; changes
// to them are rejected.
func (t *TCPTransport) OnConfigChanged(configName string, newConfig, oldConfig config.Config) error {
	if configName != "tcp_transport" {
		return nil
	}

	newCfg, ok := newConfig.(*TCPTransportCfg)
	if !ok {
		return fmt.Errorf("invalid configuration type for TCPTransport")
	}

	if err := newCfg.Validate(); err != nil {
		return fmt.Errorf("invalid TCP transport configuration: %w", err)
	}

	cur := t.config()
	t.lock.Lock()
	if t.listener != nil && newCfg.Addr != cur.Addr {
		t.lock.Unlock()
		return errors.New("Addr cannot be changed while transport is running")
	}
	if newCfg.ConnType != cur.ConnType {
		t.lock.Unlock()
		return errors.New("ConnType cannot be changed")
	}
	t.cfg.Store(newCfg)
	conns := make([]*tcpctx, 0, len(t.idToConn))
	for _, tctx := range t.idToConn {
		conns = append(conns, tctx)
	}
	t.lock.Unlock()

	// existing connections pick up the new anomaly budget
	for _, tctx := range conns {
		tctx.limiter.Reload(newCfg.AnomalyPerSec, newCfg.AnomalyBurst)
	}

	log.Info().Str("configName", configName).Msg("TCP transport configuration updated successfully")
	return nil
}

// GetConfigName implements the ConfigChangeListener interface for TCPTransport.
func (t *TCPTransport) GetConfigName() string {
	return "tcp_transport"
}

// Start Transport interface.
func (t *TCPTransport) Start(opt TransportOption) error {
	metrics.IncrCounterWithGroup("net", "transport_start_total", 1)

	t.receiver = opt.Receiver

	cfg := t.config()
	if cfg == nil {
		metrics.IncrCounterWithDimGroup("net", "transport_start_error_total", 1, map[string]string{"error_type": "nil_config"})
		return errors.New("TCPTransportCfg is nil")
	}
	if t.receiver == nil {
		metrics.IncrCounterWithDimGroup("net", "transport_start_error_total", 1, map[string]string{"error_type": "nil_receiver"})
		return errors.New("Receiver is nil")
	}

	tcpAddr, err := net.ResolveTCPAddr("tcp", cfg.Addr)
	if err != nil {
		metrics.IncrCounterWithDimGroup("net", "transport_start_error_total", 1, map[string]string{"error_type": "resolve"})
		return errors.New("resolve: " + err.Error())
	}

	listener, err := net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		metrics.IncrCounterWithDimGroup("net", "transport_start_error_total", 1, map[string]string{"error_type": "listen"})
		return errors.New("listen fail: " + err.Error())
	}

	metrics.IncrCounterWithDimGroup("net", "transport_start_success_total", 1, map[string]string{"transport_type": "tcp"})

	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.lock.Lock()
	t.listener = listener
	t.lock.Unlock()
	go t.serve(ctx, listener)
	return nil
}

// ListenAddr returns the address the transport is listening on, or empty
// before Start. Useful when Addr was configured with port 0.
func (t *TCPTransport) ListenAddr() string {
	t.lock.RLock()
	defer t.lock.RUnlock()
	if t.listener == nil {
		return ""
	}
	return t.listener.Addr().String()
}

// Stop Transport interface.
func (t *TCPTransport) Stop() error {
	if t.cancel != nil {
		t.cancel()
	}
	t.lock.RLock()
	listener := t.listener
	conns := make([]*tcpctx, 0, len(t.idToConn))
	for _, tctx := range t.idToConn {
		conns = append(conns, tctx)
	}
	t.lock.RUnlock()
	if listener != nil {
		_ = listener.Close()
	}
	for _, tctx := range conns {
		tctx.close()
	}
	return nil
}

// StopRecv Transport interface.
func (t *TCPTransport) StopRecv() error {
	return errors.New("tcp transport not support stop recv")
}

func (t *TCPTransport) serve(ctx context.Context, listener *net.TCPListener) {
	var once sync.Once
	closeListener := func() {
		_ = listener.Close()
	}
	defer once.Do(closeListener)

	for {
		conn, err := listener.AcceptTCP()
		if err != nil {
			var e net.Error
			if errors.As(err, &e) && e.Timeout() {
				continue
			}
			return
		}

		cfg := t.config()
		if err = conn.SetReadBuffer(cfg.ReadBufSize); err != nil {
			log.Error().Int("BufSize", cfg.ReadBufSize).Err(err).Msg("Set read buffer err")
			if err = conn.Close(); err != nil {
				log.Error().Err(err).Msg("Set read buffer, close err")
			}
			continue
		}
		if err = conn.SetWriteBuffer(cfg.ReadBufSize); err != nil {
			log.Error().Int("BufSize", cfg.ReadBufSize).Err(err).Msg("Set write buffer err")
			if err = conn.Close(); err != nil {
				log.Error().Err(err).Msg("Set write buffer, close err")
			}
			continue
		}

		t.startConn(ctx, conn)
	}
}

// Connect dials a remote peer and runs the resulting connection through the
// same recv and send loops as an accepted one. Used for backend links to
// other nodes of the cluster.
func (t *TCPTransport) Connect(ctx context.Context, addr string) (uint64, error) {
	if t.receiver == nil {
		return 0, errors.New("transport not started")
	}
	d := net.Dialer{}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		metrics.IncrCounterWithDimGroup("net", "connect_error_total", 1, map[string]string{"error_type": "dial"})
		return 0, fmt.Errorf("dial %s: %w", addr, err)
	}
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		_ = conn.Close()
		return 0, errors.New("dial did not return a tcp connection")
	}
	tctx := t.startConn(context.Background(), tcpConn)
	return tctx.id, nil
}

func (t *TCPTransport) startConn(ctx context.Context, conn *net.TCPConn) *tcpctx {
	cfg := t.config()
	cancelCtx, cancel := context.WithCancel(ctx)
	tctx := &tcpctx{
		id:         t.nextID.Add(1),
		ctx:        ctx,
		cancelCtx:  cancelCtx,
		cancel:     cancel,
		conn:       conn,
		localAddr:  conn.LocalAddr(),
		remoteAddr: conn.RemoteAddr(),
		sendCh:     make(chan []byte, cfg.SendChannelSize),
		transport:  t,
		limiter:    NewAnomalyLimiter(cfg.AnomalyPerSec, cfg.AnomalyBurst),
	}
	tctx.vconn = NewConn(t.role, cfg.MaxPkgSize, tctx.deliver)
	tctx.vconn.Reasm().SetAnomalyLimiter(tctx.limiter)

	t.addConn(tctx.id, tctx)
	metrics.IncrCounterWithGroup("net", "connection_open_total", 1)
	metrics.UpdateGaugeWithGroup("net", "current_connections", metrics.Value(t.getCurrentConnCount()))
	log.Debug().Uint64("id", tctx.id).Str("remote", tctx.remoteAddr.String()).Str("role", t.role.String()).Msg("connection accepted")

	tctx.serve()
	return tctx
}

// SendTo queues an outbound package on the connection with the given id.
func (t *TCPTransport) SendTo(id uint64, pid uint32, tp uint16, body []byte) error {
	t.lock.RLock()
	tctx, ok := t.idToConn[id]
	t.lock.RUnlock()

	if !ok {
		return fmt.Errorf("tcp transport SendTo id %s: %w", strconv.FormatUint(id, 10), ErrConnClosed)
	}
	return tctx.sendPkg(pid, tp, body)
}

// CloseConn transport close connection.
func (t *TCPTransport) CloseConn(id uint64) error {
	t.lock.RLock()
	tctx, ok := t.idToConn[id]
	t.lock.RUnlock()
	if !ok {
		return fmt.Errorf("tcp transport CloseConn id %s: %w", strconv.FormatUint(id, 10), ErrConnClosed)
	}
	tctx.close()
	return nil
}

func (t *TCPTransport) removeConn(id uint64) {
	t.lock.Lock()
	defer t.lock.Unlock()

	delete(t.idToConn, id)
}

func (t *TCPTransport) addConn(id uint64, tctx *tcpctx) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.idToConn[id] = tctx
}

func (t *TCPTransport) getCurrentConnCount() int {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return len(t.idToConn)
}

type tcpctx struct {
	id            uint64
	ctx           context.Context
	cancelCtx     context.Context
	cancel        context.CancelFunc
	lastReadTime  time.Time
	lastWriteTime time.Time
	conn          net.Conn
	localAddr     net.Addr
	remoteAddr    net.Addr
	closeOnce     sync.Once
	sendCh        chan []byte
	transport     *TCPTransport
	vconn         *Conn
	limiter       *AnomalyLimiter
}

func (t *tcpctx) close() {
	t.closeOnce.Do(func() {
		t.transport.removeConn(t.id)
		metrics.IncrCounterWithGroup("net", "connection_close_total", 1)
		metrics.UpdateGaugeWithGroup("net", "current_connections", metrics.Value(t.transport.getCurrentConnCount()))

		// notify recv goroutine to exit
		t.cancel()
		_ = t.conn.Close()

		t.vconn.Destroy()
	})
}

func (t *tcpctx) serve() {
	go t.serveSend()
	go t.serveRecv()
}

// deliver is the completed-package callback wired into the reassembler.
func (t *tcpctx) deliver(c *Conn, pkg *Pkg) {
	metrics.IncrCounterWithGroup("net", "pkg_recv_total", 1)

	delivery := &Delivery{
		SendBack: t.sendPkg,
		Conn:     c,
		Pkg:      pkg,
	}
	if err := t.transport.receiver.OnRecvPkg(delivery); err != nil {
		log.Error().Uint64("id", t.id).Uint32("pid", pkg.Hdr.PID).Err(err).Msg("receiver rejected package")
	}
}

// recvChunk reads at most the reassembler-suggested number of bytes and
// feeds them to the stream state machine. A read error or a framing error
// tears the connection down.
func (t *tcpctx) recvChunk(scratch []byte) (quitLoop bool, _ error) {
	want := t.vconn.NextReadSize(len(scratch))
	if want > len(scratch) {
		want = len(scratch)
	}

	t.setReadDeadline()
	n, err := t.conn.Read(scratch[:want])
	if err != nil {
		return true, errors.New("is stopped by: " + err.Error())
	}

	if err := t.vconn.OnChunk(scratch[:n]); err != nil {
		metrics.IncrCounterWithDimGroup("net", "connection_error_total", 1, map[string]string{"error_type": "framing"})
		return true, fmt.Errorf("framing: %w", err)
	}
	return false, nil
}

func (t *tcpctx) serveRecv() {
	defer t.close()

	scratch := make([]byte, t.transport.config().ReadBufSize)

	for {
		select {
		case <-t.ctx.Done():
			return
		case <-t.cancelCtx.Done():
			return
		default:
			quit, err := t.recvChunk(scratch)
			if err != nil {
				log.Debug().Uint64("id", t.id).Err(err).Msg("recv loop exit")
			}
			if quit {
				return
			}
		}
	}
}

func (t *tcpctx) serveSend() {
	for {
		select {
		case <-t.ctx.Done():
			return
		case <-t.cancelCtx.Done():
			return
		case frame := <-t.sendCh:
			if err := t.send(frame); err != nil {
				return
			}
		}
	}
}

func (t *tcpctx) send(frame []byte) error {
	t.setWriteDeadline()
	if _, err := t.conn.Write(frame); err != nil {
		return errors.New("send pkg fail: " + err.Error())
	}
	return nil
}

func (t *tcpctx) setReadDeadline() {
	// timeout control, refer to the practice of trpc
	if idle := t.transport.config().IdleTimeout; idle > 0 {
		n := time.Now()
		if n.Sub(t.lastReadTime) > 5*time.Second {
			t.lastReadTime = n
			_ = t.conn.SetReadDeadline(n.Add(time.Duration(idle) * time.Second))
		}
	}
}

func (t *tcpctx) setWriteDeadline() {
	if idle := t.transport.config().IdleTimeout; idle > 0 {
		n := time.Now()
		if n.Sub(t.lastWriteTime) > 5*time.Second {
			t.lastWriteTime = n
			_ = t.conn.SetWriteDeadline(n.Add(time.Duration(idle) * time.Second))
		}
	}
}

// sendPkg encodes a package and queues it on the send channel.
func (t *tcpctx) sendPkg(pid uint32, tp uint16, body []byte) error {
	frame := EncodePkg(pid, tp, body)

	select {
	case t.sendCh <- frame:
		return nil
	default:
		metrics.IncrCounterWithGroup("net", "send_channel_full_total", 1)
		return errors.New("send channel is full")
	}
}
