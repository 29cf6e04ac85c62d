package arraysim

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/arrayops/acrctl/internal/observability"
)

// Config describes one simulated array.
type Config struct {
	ListenAddr  string
	Username    string
	Password    string
	CorsOrigins []string

	// Names seeded into the store at startup.
	Volumes           []string
	InitiatorGroups   []string
	ChapUsers         []string
	ProtocolEndpoints []string
	Snapshots         []string
}

// DefaultConfig uses the array's management port and lab credentials.
func DefaultConfig() Config {
	return Config{
		ListenAddr: ":5392",
		Username:   "admin",
		Password:   "admin",
	}
}

// Server simulates the v1 array management surface over an in-memory store.
type Server struct {
	cfg    Config
	store  *Store
	router *gin.Engine
	start  time.Time

	mu     sync.Mutex
	tokens map[string]struct{}
}

// New builds a simulator with routes registered and seed objects loaded.
func New(cfg Config) *Server {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(cfg.CorsOrigins),
		AllowMethods: []string{"GET", "POST", "DELETE"},
		AllowHeaders: []string{"Origin", "Content-Type", "X-Auth-Token"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		cfg:    cfg,
		store:  NewStore(),
		router: r,
		start:  time.Now(),
		tokens: make(map[string]struct{}),
	}
	s.seed()
	s.registerRoutes()
	return s
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) Store() *Store {
	return s.store
}

// Run serves until the listener fails.
func (s *Server) Run() error {
	addr := strings.TrimSpace(s.cfg.ListenAddr)
	if addr == "" {
		addr = DefaultConfig().ListenAddr
	}
	return s.router.Run(addr)
}

func (s *Server) seed() {
	for _, name := range s.cfg.Volumes {
		s.store.Add(ColVolumes, Object{"name": name})
	}
	for _, name := range s.cfg.InitiatorGroups {
		s.store.Add(ColInitiatorGroups, Object{"name": name})
	}
	for _, name := range s.cfg.ChapUsers {
		s.store.Add(ColChapUsers, Object{"name": name})
	}
	for _, name := range s.cfg.ProtocolEndpoints {
		s.store.Add(ColProtocolEndpoints, Object{"name": name})
	}
	for _, name := range s.cfg.Snapshots {
		s.store.Add(ColSnapshots, Object{"name": name})
	}
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.start).String(),
			"service": "arraysim",
			"version": "0.0.1",
		})
	})
	s.router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ready":   true,
			"uptime":  time.Since(s.start).String(),
			"service": "arraysim",
			"version": "0.0.1",
		})
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.POST("/v1/tokens", s.handleToken)

	v1 := s.router.Group("/v1", s.authRequired)
	v1.GET("/volumes/detail", s.handleDetail(ColVolumes, "name"))
	v1.POST("/volumes", s.handleCreate(ColVolumes))
	v1.GET("/initiator_groups/detail", s.handleDetail(ColInitiatorGroups, "name"))
	v1.POST("/initiator_groups", s.handleCreate(ColInitiatorGroups))
	v1.GET("/chap_users/detail", s.handleDetail(ColChapUsers, "name"))
	v1.POST("/chap_users", s.handleCreate(ColChapUsers))
	v1.GET("/protocol_endpoints/detail", s.handleDetail(ColProtocolEndpoints, "name"))
	v1.POST("/protocol_endpoints", s.handleCreate(ColProtocolEndpoints))
	v1.GET("/snapshots/detail", s.handleDetail(ColSnapshots, "name"))
	v1.POST("/snapshots", s.handleCreate(ColSnapshots))
	v1.GET("/access_control_records/detail", s.handleDetail(ColACRs, "vol_name"))
	v1.POST("/access_control_records", s.handleCreateACR)
	v1.DELETE("/access_control_records/:id", s.handleDeleteACR)
}

func (s *Server) handleToken(c *gin.Context) {
	var req struct {
		Data struct {
			Username string `json:"username"`
			Password string `json:"password"`
		} `json:"data"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apiFail(c, http.StatusBadRequest, "SM_invalid_request", "malformed token request")
		return
	}
	if req.Data.Username != s.cfg.Username || req.Data.Password != s.cfg.Password {
		apiFail(c, http.StatusUnauthorized, "SM_unauthorized", "invalid credentials")
		return
	}

	token := newToken()
	s.mu.Lock()
	s.tokens[token] = struct{}{}
	s.mu.Unlock()

	c.JSON(http.StatusCreated, gin.H{"data": gin.H{"session_token": token}})
}

func (s *Server) authRequired(c *gin.Context) {
	token := strings.TrimSpace(c.GetHeader("X-Auth-Token"))
	s.mu.Lock()
	_, ok := s.tokens[token]
	s.mu.Unlock()
	if !ok {
		apiFail(c, http.StatusUnauthorized, "SM_unauthorized", "missing or unknown session token")
		c.Abort()
		return
	}
	c.Next()
}

// handleDetail filters a collection on one query field, the way the array's
// /detail endpoints do.
func (s *Server) handleDetail(collection, field string) gin.HandlerFunc {
	return func(c *gin.Context) {
		value := c.Query(field)
		if strings.TrimSpace(value) == "" {
			apiFail(c, http.StatusBadRequest, "SM_missing_arg", field+" query parameter required")
			return
		}
		objs := s.store.FilterBy(collection, field, value)
		if objs == nil {
			objs = []Object{}
		}
		c.JSON(http.StatusOK, gin.H{"data": objs})
	}
}

func (s *Server) handleCreate(collection string) gin.HandlerFunc {
	return func(c *gin.Context) {
		obj, ok := bindData(c)
		if !ok {
			return
		}
		name, _ := obj["name"].(string)
		if strings.TrimSpace(name) == "" {
			apiFail(c, http.StatusBadRequest, "SM_missing_arg", "name required")
			return
		}
		if _, exists := s.store.FindBy(collection, "name", name); exists {
			apiFail(c, http.StatusConflict, "SM_eexist", "object named "+name+" already exists")
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": s.store.Add(collection, obj)})
	}
}

func (s *Server) handleCreateACR(c *gin.Context) {
	obj, ok := bindData(c)
	if !ok {
		return
	}
	groupID, _ := obj["initiator_group_id"].(string)
	volID, _ := obj["vol_id"].(string)
	if strings.TrimSpace(groupID) == "" || strings.TrimSpace(volID) == "" {
		apiFail(c, http.StatusBadRequest, "SM_missing_arg", "initiator_group_id and vol_id required")
		return
	}

	group, ok := s.store.FindBy(ColInitiatorGroups, "id", groupID)
	if !ok {
		apiFail(c, http.StatusNotFound, "SM_enoent", "initiator group "+groupID+" not found")
		return
	}
	vol, ok := s.store.FindBy(ColVolumes, "id", volID)
	if !ok {
		apiFail(c, http.StatusNotFound, "SM_enoent", "volume "+volID+" not found")
		return
	}

	if _, ok := obj["apply_to"]; !ok {
		obj["apply_to"] = "both"
	}
	obj["vol_name"] = vol["name"]
	obj["initiator_group_name"] = group["name"]
	c.JSON(http.StatusCreated, gin.H{"data": s.store.Add(ColACRs, obj)})
}

func (s *Server) handleDeleteACR(c *gin.Context) {
	id := c.Param("id")
	if !s.store.Delete(ColACRs, id) {
		apiFail(c, http.StatusNotFound, "SM_enoent", "access control record "+id+" not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"id": id}})
}

func bindData(c *gin.Context) (Object, bool) {
	var req struct {
		Data json.RawMessage `json:"data"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apiFail(c, http.StatusBadRequest, "SM_invalid_request", "malformed request body")
		return nil, false
	}
	var obj Object
	if err := json.Unmarshal(req.Data, &obj); err != nil {
		apiFail(c, http.StatusBadRequest, "SM_invalid_request", "malformed data object")
		return nil, false
	}
	return obj, true
}

func apiFail(c *gin.Context, status int, code, text string) {
	c.JSON(status, gin.H{"messages": []gin.H{{"code": code, "text": text}}})
}

func newToken() string {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, origin := range origins {
		v := strings.TrimSpace(origin)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return []string{"http://localhost:3000"}
	}
	return out
}
