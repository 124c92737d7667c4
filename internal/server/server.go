package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/victornm/trivia/internal/answer"
	"github.com/victornm/trivia/internal/api"
	"github.com/victornm/trivia/internal/content"
	"github.com/victornm/trivia/internal/event"
	"github.com/victornm/trivia/internal/journal"
	"github.com/victornm/trivia/internal/leaderboard"
	"github.com/victornm/trivia/internal/room"
	"github.com/victornm/trivia/internal/telemetry"
)

type Config struct {
	HTTP struct {
		Port int32
	}

	Auth struct {
		Secret string
	}

	Scoring struct {
		// Weighted awards each question's declared point value instead of a
		// flat point per correct answer.
		Weighted bool
	}

	Redis struct {
		Leaderboard struct {
			Addrs  []string
			Pass   string
			Prefix string
		}

		Pubsub struct {
			Addrs  []string
			Pass   string
			Prefix string
		}
	}

	Postgres struct {
		Journal struct {
			Addr string
			User string
			Pass string
			Name string
		}
	}
}

type Server struct {
	c Config

	eb *event.Bus

	infra struct {
		redis struct {
			leaderboard redis.UniversalClient
			pubsub      redis.UniversalClient
		}

		postgres struct {
			journal *pgxpool.Pool
		}
	}

	service struct {
		room    *room.Service
		mirror  *leaderboard.Mirror
		journal *journal.Service
	}

	http *http.Server
}

func Init(c Config) (*Server, error) {
	s := &Server{c: c}

	s.eb = event.NewBus()

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	s.initService()
	s.initAPI()
	return s, nil
}

func (s *Server) initInfra() error {
	if err := s.initRedis(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	if err := s.initPostgres(); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	return nil
}

func (s *Server) initRedis() error {
	connect := func(addrs []string, pass string) (redis.UniversalClient, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		r := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    addrs,
			Password: pass,
		})

		if err := telemetry.MonitorRedis(r); err != nil {
			return nil, err
		}

		if err := r.Ping(ctx).Err(); err != nil {
			return nil, err
		}

		return r, nil
	}

	var err error
	s.infra.redis.leaderboard, err = connect(s.c.Redis.Leaderboard.Addrs, s.c.Redis.Leaderboard.Pass)
	if err != nil {
		return fmt.Errorf("leaderboard: %w", err)
	}

	s.infra.redis.pubsub, err = connect(s.c.Redis.Pubsub.Addrs, s.c.Redis.Pubsub.Pass)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}

	return nil
}

func (s *Server) initPostgres() (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	j := s.c.Postgres.Journal
	cc, err := pgxpool.ParseConfig(fmt.Sprintf("postgres://%s:%s@%s/%s", j.User, j.Pass, j.Addr, j.Name))
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}

	db, err := pgxpool.NewWithConfig(ctx, cc)
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}

	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("journal: %w", err)
	}

	s.infra.postgres.journal = db
	return nil
}

func (s *Server) initService() {
	s.service.room = room.NewService(room.Config{
		EventBus:  s.eb,
		Storage:   content.InlineStorage{},
		Decrypter: content.StubDecrypter{Commit: answer.Commit},
		Scoring:   answer.Scoring{Weighted: s.c.Scoring.Weighted},
	})

	s.service.mirror = leaderboard.NewMirror(leaderboard.MirrorConfig{
		EventBus: s.eb,
		Redis:    s.infra.redis.leaderboard,
		Prefix:   s.c.Redis.Leaderboard.Prefix,
	})

	s.service.journal = journal.NewService(journal.Config{
		DB:       s.infra.postgres.journal,
		EventBus: s.eb,
	})
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery(), telemetry.HTTPLogger(slog.Default()))

	api.New(api.Config{
		Engine:       e,
		EventBus:     s.eb,
		Room:         s.service.room,
		Mirror:       s.service.mirror,
		Redis:        s.infra.redis.pubsub,
		PubsubPrefix: s.c.Redis.Pubsub.Prefix,
		AuthSecret:   s.c.Auth.Secret,
	})

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

func (s *Server) Start() {
	ctx := context.TODO()

	slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	s.eb.Stop()
	s.infra.postgres.journal.Close()

	slog.InfoContext(ctx, "server: shutdown completed")
}
