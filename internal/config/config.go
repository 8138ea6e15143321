package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodix/custodiad/internal/core/application"
	"github.com/custodix/custodiad/internal/core/ports"
	inmemoryarbitrator "github.com/custodix/custodiad/internal/infrastructure/arbitrator/inmemory"
	inmemorybank "github.com/custodix/custodiad/internal/infrastructure/assetbank/inmemory"
	inmemorycoupon "github.com/custodix/custodiad/internal/infrastructure/coupon/inmemory"
	"github.com/custodix/custodiad/internal/infrastructure/db"
	inmemorylivestore "github.com/custodix/custodiad/internal/infrastructure/live-store/inmemory"
	redislivestore "github.com/custodix/custodiad/internal/infrastructure/live-store/redis"
	timescheduler "github.com/custodix/custodiad/internal/infrastructure/scheduler/gocron"
	inmemorysuccession "github.com/custodix/custodiad/internal/infrastructure/succession/inmemory"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var (
	supportedDbs = supportedType{
		"badger": {},
	}
	supportedSchedulers = supportedType{
		"gocron": {},
	}
	supportedLiveStores = supportedType{
		"inmemory": {},
		"redis":    {},
	}
	// External collaborators (identity registry, arbitrators, coupon
	// ledger, asset bank) only ship with in-process adapters for now;
	// network-backed ones plug in through the same type dispatch.
	supportedCollaborators = supportedType{
		"inmemory": {},
	}
)

type Config struct {
	Datadir   string
	Port      uint32
	AdminPort uint32
	LogLevel  int

	DbType           string
	DbDir            string
	SchedulerType    string
	LiveStoreType    string
	RedisUrl         string
	CollaboratorType string

	AnswerTimeout      int64 // seconds
	MaxSuccessionDepth int
	WatcherInterval    int64 // seconds

	repo      ports.RepoManager
	svc       application.Service
	adminSvc  application.AdminService
	watcher   *application.TimeoutWatcher
	scheduler ports.SchedulerService
	liveStore ports.LiveStore

	registry    ports.SuccessionRegistry
	arbitrators ports.ArbitratorDirectory
	coupons     ports.CouponService
	bank        ports.AssetBank
}

func (c *Config) String() string {
	clone := *c
	json, err := json.MarshalIndent(clone, "", "  ")
	if err != nil {
		return fmt.Sprintf("error while marshalling config JSON: %s", err)
	}
	return string(json)
}

var (
	defaultDatadir          = "custodiad"
	DefaultPort             = 7080
	DefaultAdminPort        = 7081
	defaultDbType           = "badger"
	defaultSchedulerType    = "gocron"
	defaultLiveStoreType    = "inmemory"
	defaultCollaboratorType = "inmemory"
	defaultLogLevel         = 4
	defaultAnswerTimeout    = 172800 // 2 days
	defaultSuccessionDepth  = 32
	defaultWatcherInterval  = 60 // seconds
)

// env returns a list of strings prefixed with `CUSTODIAD_`.
// This is used as a syntax sugar for defining env vars.
func env(values ...string) []string {
	envs := make([]string, len(values))

	for i, value := range values {
		envs[i] = fmt.Sprintf("CUSTODIAD_%s", value)
	}

	return envs
}

var (
	Datadir = &cli.StringFlag{
		Usage: "Directory to store data",
		Name:  "datadir", EnvVars: env("DATADIR"),
		Value: defaultDatadir,
	}

	Port = &cli.UintFlag{
		Usage: "Port (public) to listen on",
		Name:  "port", EnvVars: env("PORT"),
		Value: uint(DefaultPort),
	}

	AdminPort = &cli.UintFlag{
		Usage: "Admin port (private) to listen on, fallback to service port if 0",
		Name:  "admin-port", EnvVars: env("ADMIN_PORT"),
		Value: uint(DefaultAdminPort),
	}

	LogLevel = &cli.IntFlag{
		Usage: "Logging level (0-6, where 6 is trace)",
		Name:  "log-level", EnvVars: env("LOG_LEVEL"),
		Value: defaultLogLevel,
	}

	DbType = &cli.StringFlag{
		Usage: "Database type (badger)",
		Name:  "db-type", EnvVars: env("DB_TYPE"),
		Value: defaultDbType,
	}

	SchedulerType = &cli.StringFlag{
		Usage: "Scheduler type (gocron)",
		Name:  "scheduler-type", EnvVars: env("SCHEDULER_TYPE"),
		Value: defaultSchedulerType,
	}

	LiveStoreType = &cli.StringFlag{
		Usage: "Cache service type (redis, inmemory)",
		Name:  "live-store-type", EnvVars: env("LIVE_STORE_TYPE"),
		Value: defaultLiveStoreType,
	}

	RedisUrl = &cli.StringFlag{
		Usage: "Redis db connection url if CUSTODIAD_LIVE_STORE_TYPE is set to redis",
		Name:  "redis-url", EnvVars: env("REDIS_URL"),
	}

	CollaboratorType = &cli.StringFlag{
		Usage: "External collaborator adapters type (inmemory)",
		Name:  "collaborator-type", EnvVars: env("COLLABORATOR_TYPE"),
		Value: defaultCollaboratorType,
	}

	AnswerTimeout = &cli.Int64Flag{
		Usage: "How long a recorded owner has to answer an ownership request (in seconds)",
		Name:  "answer-timeout", EnvVars: env("ANSWER_TIMEOUT"),
		Value: int64(defaultAnswerTimeout),

		DefaultText: fmt.Sprintf("%d (~%0.f days)", defaultAnswerTimeout,
			(time.Duration(defaultAnswerTimeout)*time.Second).Hours()/24),
	}

	MaxSuccessionDepth = &cli.IntFlag{
		Usage: "Upper bound on succession chain resolution",
		Name:  "max-succession-depth", EnvVars: env("MAX_SUCCESSION_DEPTH"),
		Value: defaultSuccessionDepth,
	}

	WatcherInterval = &cli.Int64Flag{
		Usage: "How often the timeout watcher scans unanswered requests (in seconds)",
		Name:  "watcher-interval", EnvVars: env("WATCHER_INTERVAL"),
		Value: int64(defaultWatcherInterval),
	}
)

func LoadConfig(c *cli.Context) (*Config, error) {
	if err := initDatadir(c); err != nil {
		return nil, fmt.Errorf("error while creating datadir: %s", err)
	}

	dbPath := filepath.Join(c.String(Datadir.Name), "db")

	var redisUrl string
	if c.String(LiveStoreType.Name) == "redis" {
		redisUrl = c.String(RedisUrl.Name)
		if redisUrl == "" {
			return nil, fmt.Errorf("live store type set to 'redis' but redis url is missing")
		}
	}

	// In case the admin port is unset, fallback to service port.
	adminPort := c.Uint(AdminPort.Name)
	if adminPort == 0 {
		adminPort = c.Uint(Port.Name)
	}

	return &Config{
		Datadir:            c.String(Datadir.Name),
		Port:               uint32(c.Uint(Port.Name)),
		AdminPort:          uint32(adminPort),
		LogLevel:           c.Int(LogLevel.Name),
		DbType:             c.String(DbType.Name),
		DbDir:              dbPath,
		SchedulerType:      c.String(SchedulerType.Name),
		LiveStoreType:      c.String(LiveStoreType.Name),
		RedisUrl:           redisUrl,
		CollaboratorType:   c.String(CollaboratorType.Name),
		AnswerTimeout:      c.Int64(AnswerTimeout.Name),
		MaxSuccessionDepth: c.Int(MaxSuccessionDepth.Name),
		WatcherInterval:    c.Int64(WatcherInterval.Name),
	}, nil
}

func initDatadir(c *cli.Context) error {
	datadir := c.String(Datadir.Name)
	return makeDirectoryIfNotExists(datadir)
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0o755)
	}
	return nil
}

func (c *Config) Validate() error {
	if !supportedDbs.supports(c.DbType) {
		return fmt.Errorf("db type not supported, please select one of: %s", supportedDbs)
	}
	if !supportedSchedulers.supports(c.SchedulerType) {
		return fmt.Errorf(
			"scheduler type not supported, please select one of: %s",
			supportedSchedulers,
		)
	}
	if len(c.LiveStoreType) > 0 && !supportedLiveStores.supports(c.LiveStoreType) {
		return fmt.Errorf(
			"live store type not supported, please select one of: %s",
			supportedLiveStores,
		)
	}
	if !supportedCollaborators.supports(c.CollaboratorType) {
		return fmt.Errorf(
			"collaborator type not supported, please select one of: %s",
			supportedCollaborators,
		)
	}
	if c.AnswerTimeout < 1 {
		return fmt.Errorf("invalid answer timeout, must be at least 1 second")
	}
	if c.MaxSuccessionDepth < 1 {
		return fmt.Errorf("invalid max succession depth, must be at least 1")
	}
	if c.WatcherInterval < 1 {
		return fmt.Errorf("invalid watcher interval, must be at least 1 second")
	}

	if err := c.repoManager(); err != nil {
		return err
	}
	if err := c.liveStoreService(); err != nil {
		return err
	}
	if err := c.schedulerService(); err != nil {
		return err
	}
	if err := c.collaboratorServices(); err != nil {
		return err
	}
	if err := c.adminService(); err != nil {
		return err
	}
	return nil
}

func (c *Config) AppService() (application.Service, error) {
	if c.svc == nil {
		if err := c.appService(); err != nil {
			return nil, err
		}
	}
	return c.svc, nil
}

func (c *Config) AdminService() application.AdminService {
	return c.adminSvc
}

func (c *Config) TimeoutWatcher() *application.TimeoutWatcher {
	if c.watcher == nil {
		c.watcher = application.NewTimeoutWatcher(
			c.repo, c.scheduler, time.Duration(c.WatcherInterval)*time.Second,
		)
	}
	return c.watcher
}

func (c *Config) RepoManager() ports.RepoManager {
	return c.repo
}

func (c *Config) repoManager() error {
	var dataStoreConfig []interface{}
	logger := log.New()

	switch c.DbType {
	case "badger":
		dataStoreConfig = []interface{}{c.DbDir, logger}
	default:
		return fmt.Errorf("unknown db type")
	}

	svc, err := db.NewService(db.ServiceConfig{
		DataStoreType:   c.DbType,
		DataStoreConfig: dataStoreConfig,
	})
	if err != nil {
		return err
	}

	c.repo = svc
	return nil
}

func (c *Config) liveStoreService() error {
	var liveStoreSvc ports.LiveStore
	switch c.LiveStoreType {
	case "inmemory":
		liveStoreSvc = inmemorylivestore.NewLiveStore()
	case "redis":
		redisOpts, err := redis.ParseURL(c.RedisUrl)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(redisOpts)
		liveStoreSvc = redislivestore.NewLiveStore(rdb)
	default:
		return fmt.Errorf("unknown liveStore type")
	}

	c.liveStore = liveStoreSvc
	return nil
}

func (c *Config) schedulerService() error {
	var svc ports.SchedulerService
	switch c.SchedulerType {
	case "gocron":
		svc = timescheduler.NewScheduler()
	default:
		return fmt.Errorf("unknown scheduler type")
	}

	c.scheduler = svc
	return nil
}

func (c *Config) collaboratorServices() error {
	switch c.CollaboratorType {
	case "inmemory":
		c.registry = inmemorysuccession.NewSuccessionRegistry()
		c.arbitrators = inmemoryarbitrator.NewDirectory()
		c.coupons = inmemorycoupon.NewCouponService()
		c.bank = inmemorybank.NewAssetBank()
	default:
		return fmt.Errorf("unknown collaborator type")
	}
	return nil
}

func (c *Config) appService() error {
	svc, err := application.NewService(
		c.repo, c.registry, c.arbitrators, c.coupons, c.bank, c.liveStore,
		time.Duration(c.AnswerTimeout)*time.Second, c.MaxSuccessionDepth,
	)
	if err != nil {
		return err
	}

	c.svc = svc
	return nil
}

func (c *Config) adminService() error {
	c.adminSvc = application.NewAdminService(c.repo, c.registry, c.bank)
	return nil
}

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	return strings.Join(types, " | ")
}

func (t supportedType) supports(typeStr string) bool {
	_, ok := t[typeStr]
	return ok
}
