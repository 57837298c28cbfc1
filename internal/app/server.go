package app

import (
	"context"
	"fmt"
	"log"

	"partymatch/cfg"
	"partymatch/internal/service/auth"
	"partymatch/internal/service/party"
	"partymatch/internal/service/quest"
	"partymatch/internal/service/rating"
	"partymatch/internal/service/tag"
	"partymatch/internal/service/user"
	"partymatch/pkg/cache"
	"partymatch/pkg/db"
	"partymatch/pkg/logger"
	"partymatch/pkg/oauth2"
	"partymatch/pkg/session"

	"github.com/gin-gonic/gin"
)

// Server holds all application dependencies
type Server struct {
	config        *cfg.Config
	router        *gin.Engine
	logger        *logger.AppLogger
	db            *db.SQLClient
	cache         cache.Cache
	sessionStore  session.Store
	oauth2Manager *oauth2.Manager
	shutdown      func(context.Context) error

	// internal service
	authService   *auth.Service
	userService   *user.Service
	tagService    *tag.Service
	partyService  *party.Service
	questService  *quest.Service
	ratingService *rating.Service
}

// NewServer creates and initializes a new server instance
func NewServer(ctx context.Context, config *cfg.Config) (*Server, error) {
	s := &Server{
		config: config,
	}

	shutdown, err := setupObservability(ctx, &config.Observability)
	if err != nil {
		return nil, fmt.Errorf("observability setup: %w", err)
	}
	s.shutdown = shutdown

	s.logger = logger.NewLogger(config.AppEnv)
	s.logger.Info(ctx, "Initializing server...")

	if err := s.initDatabase(); err != nil {
		return nil, fmt.Errorf("database init: %w", err)
	}

	if err := s.initCache(); err != nil {
		return nil, fmt.Errorf("cache init: %w", err)
	}

	s.sessionStore = session.NewInMemoryStore()

	if err := s.initOAuth2(ctx); err != nil {
		return nil, fmt.Errorf("oauth2 init: %w", err)
	}

	s.initServicesAndRoutes()

	s.logger.Info(ctx, "Server initialized successfully")
	return s, nil
}

func (s *Server) initDatabase() error {
	pg := s.config.Postgres
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		pg.User, pg.Password, pg.Host, pg.Port, pg.DBName, pg.SSLMode,
	)

	dbClient, err := db.NewSQLClient("postgres", dsn)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	s.db = dbClient

	if err := runMigrations(dsn); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	return nil
}

func (s *Server) initCache() error {
	addr := s.config.Redis.Host + ":" + s.config.Redis.Port
	s.cache = cache.NewRedisCache(addr)
	return nil
}

func (s *Server) initOAuth2(ctx context.Context) error {
	mgr, err := oauth2.NewManager(ctx, &s.config.OAuth2)
	if err != nil {
		return err
	}
	s.oauth2Manager = mgr
	return nil
}

func (s *Server) initServicesAndRoutes() {
	// Initialize User Service
	userRepo := user.NewRepository(s.db)
	s.userService = user.NewService(userRepo, s.logger)

	s.authService = auth.NewService(
		s.oauth2Manager,
		s.sessionStore,
		s.userService,
		s.logger,
	)

	// Wire up OAuth2 callback
	s.oauth2Manager.CallbackHandler = func(
		ctx context.Context,
		provider string,
		userInfo *oauth2.UserInfo,
		tokenSet *oauth2.TokenSet,
	) (*oauth2.CallbackInfo, error) {
		return s.authService.HandleCallback(ctx, provider, userInfo, tokenSet)
	}

	// Initialize Tag Service
	tagRepo := tag.NewRepository(s.db)
	s.tagService = tag.NewService(tagRepo, s.logger)

	// Initialize Party and Quest Services. The party service looks up
	// quest metadata through a directory backed by the quest repository.
	questRepo := quest.NewRepository(s.db)
	partyRepo := party.NewRepository(s.db)
	s.partyService = party.NewService(partyRepo, quest.NewPartyDirectory(questRepo), s.cache, s.logger)

	questMatcher := quest.NewTagMatcher(questRepo, tagRepo)
	s.questService = quest.NewService(questRepo, partyRepo, tagRepo, userRepo, questMatcher, s.logger)

	// Initialize Rating Service
	ratingRepo := rating.NewRepository(s.db)
	s.ratingService = rating.NewService(ratingRepo, partyRepo, userRepo, s.logger)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestIDMiddleware())
	routes := NewRoutes(r)
	routes.setupInfraRoutes()
	// Business logic endpoints
	authHandler := auth.NewHandler(s.authService)
	routes.setupAuthRoutes(authHandler, s.oauth2Manager)
	routes.setupUserRoutes(authHandler, s.userService, s.tagService)
	routes.setupTagRoutes(authHandler, s.tagService)
	routes.setupQuestRoutes(authHandler, s.questService)
	routes.setupPartyRoutes(authHandler, s.partyService, s.questService)
	routes.setupRatingRoutes(authHandler, s.ratingService)

	s.router = r
}

// Run starts the HTTP server
func (s *Server) Run(addr string) error {
	log.Printf("Server listening on %s", addr)
	return s.router.Run(addr)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdown != nil {
		if err := s.shutdown(ctx); err != nil {
			return fmt.Errorf("observability shutdown: %w", err)
		}
	}
	return nil
}
