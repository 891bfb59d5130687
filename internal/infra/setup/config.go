package setup

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"taskloop-sync/internal/config"
	"taskloop-sync/internal/infra/remote"
	filestate "taskloop-sync/internal/infra/state/file"
	redisstate "taskloop-sync/internal/infra/state/redis"
	"taskloop-sync/internal/repository"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// NewLogger builds the process logger: JSON in production, full-timestamp
// text otherwise. level must already be validated.
func NewLogger(appEnv, level string, out io.Writer) *logrus.Logger {
	log := logrus.New()
	if appEnv == "production" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	if out == nil {
		out = os.Stderr
	}
	log.SetOutput(out)
	return log
}

// ConfigureStandardLogger applies the same settings to the package-level
// logrus logger used by the service and infra packages.
func ConfigureStandardLogger(log *logrus.Logger) {
	logrus.SetFormatter(log.Formatter)
	logrus.SetLevel(log.GetLevel())
	logrus.SetOutput(log.Out)
}

// InitRedis connects to redis and checks the connection with a PING.
func InitRedis(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxConnAge:   30 * time.Minute,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	logrus.WithField("addr", addr).Info("Redis connected")
	return client, nil
}

// NewHTTPClient is the client used for every API call.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// Stores are the storage backends selected by configuration. Boards is nil
// for the file backend, which has no board cache. Close releases the redis
// connection when there is one.
type Stores struct {
	Device repository.DeviceStore
	Boards repository.BoardCache
	Redis  *redis.Client
}

func (s *Stores) Close() error {
	if s.Redis == nil {
		return nil
	}
	return s.Redis.Close()
}

// InitStores opens the configured device store backend.
func InitStores(cfg *config.Config) (*Stores, error) {
	switch cfg.Store.Backend {
	case config.BackendRedis:
		client, err := InitRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		repo := redisstate.NewRedisStateRepository(client, cfg.Store.KeyPrefix, cfg.Store.DeviceID)
		return &Stores{Device: repo, Boards: repo, Redis: client}, nil
	case config.BackendFile:
		return &Stores{Device: filestate.NewStore(cfg.Store.Path)}, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// APIs are the remote repositories sharing one HTTP client.
type APIs struct {
	Auth  *remote.AuthAPI
	Rooms *remote.RoomAPI
	Tasks *remote.TaskAPI
}

// InitAPIs builds the remote repositories. The token is read from device
// on every request, so a login takes effect without rebuilding them.
func InitAPIs(cfg *config.Config, device repository.DeviceStore) *APIs {
	client := remote.NewClient(cfg.API.BaseURL, NewHTTPClient(cfg.API.Timeout), remote.StoreTokens{Store: device})
	return &APIs{
		Auth:  remote.NewAuthAPI(client),
		Rooms: remote.NewRoomAPI(client),
		Tasks: remote.NewTaskAPI(client),
	}
}
