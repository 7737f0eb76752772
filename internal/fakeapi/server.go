// Package fakeapi is an in-process stand-in for the NeverBounce v3 API.
//
// It implements the token exchange and a small set of endpoints with the same
// response contract as the real service: failures are reported in the body as
// {"success": false, "msg": ...}, and an invalid or expired access token is
// answered with the message "Authentication failed". Tests and the nbfake
// binary use it to exercise the client end to end.
package fakeapi

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	authFailedMessage = "Authentication failed"
	ctxAPIKey         = "nbfake_api_key"
)

// Single-check result codes.
const (
	ResultValid = iota
	ResultInvalid
	ResultDisposable
	ResultCatchall
	ResultUnknown
)

var disposableDomains = map[string]bool{
	"mailinator.com":    true,
	"guerrillamail.com": true,
	"10minutemail.com":  true,
}

// Config holds fake server configuration.
type Config struct {
	// Credentials maps API keys to their plaintext secrets.
	Credentials map[string]string
	Issuer      string
	TokenTTL    time.Duration
	// Credits is the starting balance; each single check costs one.
	Credits int64
	// RateLimitRPS enables per-key rate limiting when > 0.
	RateLimitRPS   int
	RateLimitBurst int
	// DebugRoutes adds endpoints that return deliberately broken bodies.
	DebugRoutes bool
}

// Server is the fake API.
type Server struct {
	cfg    Config
	tokens *TokenIssuer
	creds  *CredentialStore
	logger *zap.Logger
	engine *gin.Engine

	mu           sync.Mutex
	credits      int64
	singleChecks int64
}

// New builds a Server and its routes.
func New(cfg Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "nbfake"
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = cfg.RateLimitRPS * 2
	}

	tokens, err := NewTokenIssuer(cfg.Issuer, cfg.TokenTTL)
	if err != nil {
		return nil, err
	}
	creds := NewCredentialStore()
	for key, secret := range cfg.Credentials {
		if err := creds.Add(key, secret); err != nil {
			return nil, err
		}
	}

	s := &Server{
		cfg:     cfg,
		tokens:  tokens,
		creds:   creds,
		logger:  logger,
		credits: cfg.Credits,
	}
	s.engine = s.routes()
	return s, nil
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler { return s.engine }

// ExpireTokens invalidates every access token issued so far.
func (s *Server) ExpireTokens() error {
	return s.tokens.RotateKey()
}

// SingleChecks returns how many single checks were answered successfully.
func (s *Server) SingleChecks() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.singleChecks
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 1<<20)
		c.Next()
	})
	router.Use(prometheusMiddleware())
	router.Use(requestLogger(s.logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", metricsHandler())

	v3 := router.Group("/v3")
	v3.POST("/access_token", s.accessToken)

	api := v3.Group("", s.requireToken())
	if s.cfg.RateLimitRPS > 0 {
		api.Use(rateLimiter(s.cfg.RateLimitRPS, s.cfg.RateLimitBurst))
	}
	api.POST("/account", s.account)
	api.POST("/single", s.single)

	if s.cfg.DebugRoutes {
		api.POST("/debug/malformed", func(c *gin.Context) {
			c.Data(http.StatusBadGateway, "text/html", []byte("<html><body>502 Bad Gateway</body></html>"))
		})
		api.POST("/debug/legacy_error", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"success": false, "error_msg": "Legacy endpoint failure"})
		})
	}
	return router
}

// accessToken implements the client-credentials grant.
func (s *Server) accessToken(c *gin.Context) {
	apiKey, secret, ok := c.Request.BasicAuth()
	if !ok {
		recordAuthFailure("token_exchange")
		c.JSON(http.StatusUnauthorized, oauthError("invalid_client", "Client credentials were not supplied"))
		return
	}
	if err := s.creds.Check(apiKey, secret); err != nil {
		recordAuthFailure("token_exchange")
		s.logger.Warn("token exchange rejected", zap.String("api_key", apiKey), zap.Error(err))
		c.JSON(http.StatusUnauthorized, oauthError("invalid_client", "Client authentication failed"))
		return
	}
	if grant := c.PostForm("grant_type"); grant != "client_credentials" {
		c.JSON(http.StatusBadRequest, oauthError("unsupported_grant_type", "Grant type "+strconv.Quote(grant)+" is not supported"))
		return
	}

	scope := c.PostForm("scope")
	token, err := s.tokens.Issue(apiKey, scope)
	if err != nil {
		s.logger.Error("issue token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, oauthError("server_error", "Unable to issue token"))
		return
	}
	recordTokenIssued()
	s.logger.Info("access token issued", zap.String("api_key", apiKey))

	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"expires_in":   int(s.tokens.TTL().Seconds()),
		"scope":        scope,
	})
}

// requireToken verifies the access_token form field.
func (s *Server) requireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := s.tokens.Verify(c.PostForm("access_token"))
		if err != nil {
			recordAuthFailure("access_token")
			s.logger.Debug("access token rejected", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusOK, failure(authFailedMessage))
			return
		}
		c.Set(ctxAPIKey, claims.Subject)
		c.Next()
	}
}

func (s *Server) account(c *gin.Context) {
	start := time.Now()
	s.mu.Lock()
	credits := s.credits
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"credits":         strconv.FormatInt(credits, 10),
		"jobs_completed":  0,
		"jobs_processing": 0,
		"execution_time":  time.Since(start).Seconds(),
	})
}

func (s *Server) single(c *gin.Context) {
	start := time.Now()
	email := strings.TrimSpace(c.PostForm("email"))
	if email == "" {
		c.JSON(http.StatusOK, failure("Missing required parameter 'email'"))
		return
	}

	if !s.spendCredit() {
		c.JSON(http.StatusOK, failure("Insufficient credits"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"result":         classifyEmail(email),
		"result_details": 0,
		"execution_time": time.Since(start).Seconds(),
	})
}

func (s *Server) spendCredit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.credits <= 0 {
		return false
	}
	s.credits--
	s.singleChecks++
	return true
}

func classifyEmail(email string) int {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return ResultInvalid
	}
	domain := strings.ToLower(email[at+1:])
	switch {
	case !strings.Contains(domain, "."):
		return ResultInvalid
	case disposableDomains[domain]:
		return ResultDisposable
	case domain == "catchall.test":
		return ResultCatchall
	case domain == "unknown.test":
		return ResultUnknown
	default:
		return ResultValid
	}
}

func apiKeyFromCtx(c *gin.Context) string {
	v, _ := c.Get(ctxAPIKey)
	s, _ := v.(string)
	return s
}

func failure(msg string) gin.H {
	return gin.H{"success": false, "msg": msg}
}

func oauthError(code, description string) gin.H {
	return gin.H{"error": code, "error_description": description}
}

// requestLogger logs each request with zap.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
