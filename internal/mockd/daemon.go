package mockd

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/trctl/internal/auth"
	"github.com/danmuck/trctl/internal/observability"
	"github.com/danmuck/trctl/internal/protocol"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Config defines one daemon instance.
type Config struct {
	ID          string
	Addr        string
	RPCPath     string
	RPCVersion  int
	Version     string
	DownloadDir string

	SessionHeader string

	// NoSession serves requests without the 409 handshake, the way a
	// plain HTTP server would.
	NoSession bool

	// RotateEvery replaces the session id after that many accepted calls.
	RotateEvery int

	Username    string
	Password    string
	CORSOrigins []string
}

func DefaultConfig() Config {
	return Config{
		ID:            "trmockd",
		Addr:          ":9091",
		RPCPath:       "/transmission/rpc",
		RPCVersion:    17,
		Version:       "4.0.6 (mockd)",
		DownloadDir:   "/var/lib/trmockd/downloads",
		SessionHeader: protocol.HeaderSessionID,
	}
}

// WithDefaults fills zero fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if strings.TrimSpace(c.ID) == "" {
		c.ID = d.ID
	}
	if strings.TrimSpace(c.Addr) == "" {
		c.Addr = d.Addr
	}
	if strings.TrimSpace(c.RPCPath) == "" {
		c.RPCPath = d.RPCPath
	}
	if c.RPCVersion <= 0 {
		c.RPCVersion = d.RPCVersion
	}
	if strings.TrimSpace(c.Version) == "" {
		c.Version = d.Version
	}
	if strings.TrimSpace(c.DownloadDir) == "" {
		c.DownloadDir = d.DownloadDir
	}
	if strings.TrimSpace(c.SessionHeader) == "" {
		c.SessionHeader = d.SessionHeader
	}
	if c.RotateEvery < 0 {
		c.RotateEvery = 0
	}
	return c
}

// Daemon is a fake RPC daemon backed by an in-memory torrent registry.
type Daemon struct {
	cfg       Config
	router    *gin.Engine
	validator auth.Validator
	torrents  *TorrentRegistry
	methods   map[string]methodFunc
	appeared  time.Time

	routesOnce sync.Once

	mu        sync.Mutex
	sessionID string
	accepted  int
	conflicts int
	settings  map[string]any
}

func New(cfg Config) *Daemon {
	cfg = cfg.WithDefaults()
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(cfg.ID))
	r.Use(cors.New(cors.Config{
		AllowOrigins:  normalizeOrigins(cfg.CORSOrigins),
		AllowMethods:  []string{"GET", "POST"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", cfg.SessionHeader},
		ExposeHeaders: []string{cfg.SessionHeader},
		MaxAge:        12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	d := &Daemon{
		cfg:       cfg,
		router:    r,
		torrents:  NewTorrentRegistry(),
		appeared:  time.Now(),
		sessionID: newSessionID(),
		settings: map[string]any{
			"download-dir":             cfg.DownloadDir,
			"peer-port":                51413,
			"speed-limit-down":         100,
			"speed-limit-down-enabled": false,
			"speed-limit-up":           100,
			"speed-limit-up-enabled":   false,
		},
	}
	if cfg.Username != "" || cfg.Password != "" {
		d.validator = auth.Basic{Credentials: auth.Credentials{
			Username: cfg.Username,
			Password: cfg.Password,
		}}
	}
	d.methods = d.methodCatalog()
	return d
}

func (d *Daemon) Config() Config {
	return d.cfg
}

func (d *Daemon) HTTPRouter() *gin.Engine {
	return d.router
}

// Handler registers the routes on first use and returns the router.
func (d *Daemon) Handler() http.Handler {
	d.RegisterRoutes()
	return d.router
}

func (d *Daemon) Torrents() *TorrentRegistry {
	return d.torrents
}

// SessionID returns the id a request must carry to be accepted.
func (d *Daemon) SessionID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sessionID
}

// Rotate invalidates the current session id and returns the new one.
func (d *Daemon) Rotate() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sessionID = newSessionID()
	return d.sessionID
}

// Stats reports accepted calls and session conflicts served.
func (d *Daemon) Stats() (accepted, conflicts int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.accepted, d.conflicts
}

// RegisterRoutes is safe to call more than once.
func (d *Daemon) RegisterRoutes() {
	d.routesOnce.Do(func() {
		d.router.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":      "ok",
				"uptime":      time.Since(d.appeared).String(),
				"service":     d.cfg.ID,
				"version":     d.cfg.Version,
				"rpc_version": d.cfg.RPCVersion,
				"torrents":    d.torrents.Len(),
			})
		})

		d.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

		rpc := d.router.Group(d.cfg.RPCPath, d.authorize)
		rpc.GET("", d.handleDiscover)
		rpc.POST("", d.handleRPC)
	})
}

func (d *Daemon) Serve() error {
	d.RegisterRoutes()
	log.Info().
		Str("daemon", d.cfg.ID).
		Str("addr", d.cfg.Addr).
		Str("rpc_path", d.cfg.RPCPath).
		Int("rpc_version", d.cfg.RPCVersion).
		Msg("mock daemon listening")
	return d.router.Run(d.cfg.Addr)
}

func (d *Daemon) authorize(c *gin.Context) {
	if d.validator == nil {
		c.Next()
		return
	}
	if err := d.validator.Validate(c.GetHeader("Authorization")); err != nil {
		c.Header("WWW-Authenticate", `Basic realm="Transmission"`)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	c.Next()
}

// handleDiscover answers the handshake probe. Any GET yields the current id.
func (d *Daemon) handleDiscover(c *gin.Context) {
	if d.cfg.NoSession {
		c.JSON(http.StatusOK, gin.H{"service": d.cfg.ID})
		return
	}
	d.conflict(c, d.SessionID())
}

func (d *Daemon) handleRPC(c *gin.Context) {
	if !d.cfg.NoSession {
		current := d.SessionID()
		if got := strings.TrimSpace(c.GetHeader(d.cfg.SessionHeader)); got == "" || got != current {
			d.conflict(c, current)
			return
		}
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req, err := protocol.DecodeRequest(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out, err := d.dispatch(req.Method, req.Arguments)
	result := protocol.ResultSuccess
	if err != nil {
		result = err.Error()
		out = map[string]any{}
		log.Debug().
			Str("daemon", d.cfg.ID).
			Str("method", req.Method).
			Err(err).
			Msg("rpc method failed")
	}
	d.noteAccepted()
	c.JSON(http.StatusOK, protocol.Response{Result: result, Arguments: out})
}

func (d *Daemon) dispatch(method string, args map[string]any) (map[string]any, error) {
	fn, ok := d.methods[method]
	if !ok {
		return nil, errMethodNotRecognized
	}
	if args == nil {
		args = map[string]any{}
	}
	return fn(args)
}

func (d *Daemon) conflict(c *gin.Context, id string) {
	d.mu.Lock()
	d.conflicts++
	d.mu.Unlock()
	c.Header(d.cfg.SessionHeader, id)
	c.Data(http.StatusConflict, "text/html; charset=ISO-8859-1", []byte(
		"<h1>409: Conflict</h1><p>Your request had an invalid session-id header.</p>"+
			"<p><code>"+d.cfg.SessionHeader+": "+id+"</code></p>",
	))
}

// noteAccepted counts a served call and rotates the id when due.
func (d *Daemon) noteAccepted() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.accepted++
	if d.cfg.RotateEvery > 0 && d.accepted%d.cfg.RotateEvery == 0 {
		d.sessionID = newSessionID()
	}
}

var errMethodNotRecognized = errors.New("method name not recognized")

func newSessionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	}
	out := make([]string, 0, len(origins))
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		out = append(out, origin)
	}
	if len(out) == 0 {
		return []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	}
	return out
}
