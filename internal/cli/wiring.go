package cli

import (
	"context"
	"time"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/config"
	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/infra/memory"
	pgstore "quiz-attempt-service/internal/infra/postgres"
	infraredis "quiz-attempt-service/internal/infra/redis"
	"quiz-attempt-service/internal/infra/sqlite"

	"github.com/golang/glog"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// quizSource reads and writes quiz documents in the configured backend.
type quizSource interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	PutQuiz(ctx context.Context, quiz domain.Quiz) error
}

// components is everything a command needs from the configured backends.
type components struct {
	driver  string
	store   app.Store
	source  quizSource
	quizzes app.QuizRepository
	locker  app.Locker
	redis   *redis.Client
	closers []func()
}

func (c *components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

// invalidate drops cached copies of a quiz after it was rewritten.
func (c *components) invalidate(ctx context.Context, quizID string) {
	switch repo := c.quizzes.(type) {
	case *infraredis.QuizRepository:
		if err := repo.Invalidate(ctx, quizID); err != nil {
			glog.Warningf("invalidate cached quiz %s: %v", quizID, err)
		}
	case *memory.QuizRepository:
		repo.Invalidate(quizID)
	}
}

func buildComponents(ctx context.Context, cfg config.Config) (*components, error) {
	c := &components{driver: cfg.StoreDriver()}

	switch c.driver {
	case config.DriverMemory:
		c.store = memory.NewStore()
		c.source = memory.NewStaticQuizLoader(nil)
	case config.DriverPostgres:
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return nil, err
		}
		db := openBun(cfg.Postgres.URL)
		c.closers = append(c.closers, func() { _ = db.Close() })
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			c.Close()
			return nil, errors.Wrap(err, "connect postgres")
		}
		c.closers = append(c.closers, pool.Close)
		c.store = pgstore.NewStore(db)
		c.source = pgstore.NewQuizLoader(pool)
	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		if err := sqlite.AutoMigrate(db); err != nil {
			return nil, errors.Wrap(err, "sqlite automigrate")
		}
		if sqlDB, err := db.DB(); err == nil {
			c.closers = append(c.closers, func() { _ = sqlDB.Close() })
		}
		c.store = sqlite.NewStore(db)
		c.source = sqlite.NewQuizStore(db)
	default:
		return nil, errors.Errorf("unknown store driver %q", c.driver)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	if cfg.Redis.Addr != "" {
		c.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		c.closers = append(c.closers, func() { _ = c.redis.Close() })
		c.quizzes = infraredis.NewQuizRepository(c.redis, c.source, config.TTLDuration(cfg.Redis.TTL, quizTTL))
		c.locker = infraredis.NewLocker(c.redis, config.TTLDuration(cfg.Locks.TTL, 10*time.Second))
	} else {
		c.quizzes = memory.NewQuizRepository(c.source, quizTTL)
		c.locker = memory.NewLocker()
	}

	glog.Infof("store driver %s, shared cache %t", c.driver, c.redis != nil)
	return c, nil
}
