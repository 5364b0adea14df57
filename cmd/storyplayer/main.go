package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/AaronLay10/StoryEngine/internal/api"
	"github.com/AaronLay10/StoryEngine/internal/config"
	"github.com/AaronLay10/StoryEngine/internal/events"
	"github.com/AaronLay10/StoryEngine/internal/mqtt"
	"github.com/AaronLay10/StoryEngine/internal/storage/postgres"
	"github.com/AaronLay10/StoryEngine/internal/story"
	"github.com/AaronLay10/StoryEngine/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to player.yaml")
	storyPath := flag.String("story", "", "story file (.json or .yaml), overrides the config")
	sessionID := flag.String("session", "", "session id for the journal")
	resume := flag.Bool("resume", false, "replay the journaled steps of the session")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "storyplayer: %v\n", err)
		os.Exit(1)
	}
	if *storyPath != "" {
		cfg.Story.Path = *storyPath
	}
	if *sessionID != "" {
		cfg.Session.ID = *sessionID
	}
	if *resume {
		cfg.Session.Resume = true
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "storyplayer: init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("storyplayer failed", zap.Error(err))
	}
}

func loadConfig(path string) (*config.PlayerConfig, error) {
	if path == "" {
		return config.Default()
	}
	return config.LoadPlayerConfig(path)
}

func newLogger(c config.LogConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	// The terminal belongs to the story, logs go to stderr.
	zc.OutputPaths = []string{"stderr"}
	if c.Level != "" {
		lvl, err := zapcore.ParseLevel(c.Level)
		if err != nil {
			return nil, err
		}
		zc.Level = zap.NewAtomicLevelAt(lvl)
	}
	return zc.Build()
}

func run(cfg *config.PlayerConfig, logger *zap.Logger) error {
	if cfg.Story.Path == "" {
		return errors.New("no story given (use -story or story.path)")
	}

	def, err := story.Load(cfg.Story.Path)
	if err != nil {
		return err
	}

	if cfg.Story.ID == "" {
		cfg.Story.ID = storyIDFromPath(cfg.Story.Path)
	}
	if cfg.Session.ID == "" {
		cfg.Session.ID = uuid.New().String()
	}
	logger = logger.With(zap.String("story_id", cfg.Story.ID), zap.String("session_id", cfg.Session.ID))

	hostname, _ := os.Hostname()
	events.Emit("info", "system.startup", "storyplayer starting", map[string]interface{}{
		"service":    "storyplayer",
		"version":    version.Version,
		"hostname":   hostname,
		"pid":        os.Getpid(),
		"story_id":   cfg.Story.ID,
		"session_id": cfg.Session.ID,
	})

	pg := openJournal(cfg, logger)
	if pg != nil {
		defer pg.Close()
	}

	engine, err := story.New(def,
		story.WithLogger(logger),
		story.WithSessionID(cfg.Session.ID),
	)
	if err != nil {
		return err
	}

	p := newPlayer(engine, os.Stdout)
	logger.Info("story loaded",
		zap.String("path", cfg.Story.Path),
		zap.String("start", engine.Definition().Start),
		zap.Int("nodes", len(engine.Definition().Nodes)),
	)

	board := api.NewStatusBoard(cfg.Story.ID, cfg.Session.ID)
	engine.SubscribeData(board.Observe)
	if cfg.API.Port > 0 {
		srv := api.NewServer(board, logger)
		if pg != nil {
			srv.SetJournal(pg)
		}
		srv.Start(cfg.API.Port)
	}

	var remote <-chan int
	if cfg.MQTT.Enabled {
		client, bridge, err := openBridge(cfg)
		if err != nil {
			api.SetMQTTState(false, true)
			logger.Warn("mqtt unavailable, continuing without bridge", zap.Error(err))
		} else {
			api.SetMQTTState(client.IsConnected(), false)
			defer client.Disconnect()
			engine.SubscribeData(bridge.PublishPayload)
			go bridge.ForwardEvents(events.Subscribe())
			remote = bridge.Choices()
		}
	}

	if err := begin(engine, pg, cfg, logger); err != nil {
		return err
	}
	api.SetStoryReady(true)

	err = loop(p, remote, logger)

	events.Emit("info", "system.shutdown", "storyplayer stopping", map[string]interface{}{
		"session_id": cfg.Session.ID,
		"node_id":    engine.CurrentNode(),
	})
	events.CloseAllSubscribers()
	return err
}

// openJournal connects the Postgres journal when enabled. Failure is not fatal:
// the player keeps the in-memory journal only.
func openJournal(cfg *config.PlayerConfig, logger *zap.Logger) *postgres.Client {
	if !cfg.Journal.Postgres {
		api.SetPostgresState(false, true)
		return nil
	}

	pgCfg, err := postgres.ConfigFromEnv()
	if err == nil {
		pgCfg.Password, err = config.ResolveSecret("PGPASSWORD")
	}
	if err != nil {
		logger.Warn("postgres config invalid", zap.Error(err))
		api.SetPostgresState(false, true)
		return nil
	}

	client, err := postgres.New(pgCfg, cfg.Story.ID)
	if err != nil {
		logger.Warn("postgres unavailable, journal stays in memory", zap.Error(err))
		api.SetPostgresState(false, true)
		return nil
	}

	events.SetPostgresClient(client)
	api.SetPostgresState(true, false)
	logger.Info("journal persisted to postgres", zap.String("host", pgCfg.Host))
	return client
}

func openBridge(cfg *config.PlayerConfig) (*mqtt.Client, *mqtt.Bridge, error) {
	password, err := config.ResolveSecret("MQTT_PASSWORD")
	if err != nil {
		return nil, nil, err
	}

	clientID := cfg.MQTT.ClientID
	if clientID == "" {
		clientID = "storyplayer-" + cfg.Session.ID
	}

	client := mqtt.NewClient(mqtt.Options{
		BrokerURL: cfg.MQTT.BrokerURL(),
		ClientID:  clientID,
		Username:  cfg.MQTT.Username,
		Password:  password,
		OnStateChange: func(connected bool) {
			api.SetMQTTState(connected, false)
		},
	})
	if err := client.Connect(); err != nil {
		// Stop the background connect retries.
		client.Disconnect()
		return nil, nil, err
	}

	bridge := mqtt.NewBridge(client, cfg.Prefix())
	if err := bridge.Listen(client); err != nil {
		client.Disconnect()
		return nil, nil, err
	}
	return client, bridge, nil
}

// begin starts a fresh playthrough, or replays the journaled choices and
// redirect follows of the session when resuming.
func begin(e *story.Engine, pg *postgres.Client, cfg *config.PlayerConfig, logger *zap.Logger) error {
	if !cfg.Session.Resume {
		return e.Start()
	}
	if pg == nil {
		logger.Warn("resume requested without a postgres journal, starting fresh")
		return e.Start()
	}

	steps, rows, err := story.RestoreSteps(pg, cfg.Session.ID, cfg.Journal.RestoreLimit)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	logger.Info("replaying session",
		zap.Int("journal_rows", rows),
		zap.Int("steps", len(steps)),
	)
	return story.Replay(e, steps)
}

// loop feeds terminal lines and remote choices to the player until quit,
// end of input or a signal.
func loop(p *player, remote <-chan int, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		var err error
		select {
		case <-ctx.Done():
			return nil

		case line, ok := <-lines:
			if !ok {
				return nil
			}
			err = p.handle(line)

		case idx := <-remote:
			logger.Debug("remote choice", zap.Int("choice_index", idx))
			err = p.choose(idx)
		}

		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(p.out, "  ! %v\n", err)
		}
	}
}
