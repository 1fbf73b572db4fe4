package main

import (
	"flag"
	"log"
	"log/slog"
	"path/filepath"
	"qreward/bot"
	"qreward/impl/auth"
	"qreward/impl/core"
	"qreward/internal/boltstore"
	"qreward/internal/config"
	"qreward/internal/database"
	"qreward/internal/http-server/api"
	"qreward/internal/sqlstore"
	"qreward/lib/logger"
	"qreward/lib/sl"
)

const logFileName = "qreward.log"

// storage is what every backend must provide: the engine operations plus
// the operator token lookup.
type storage interface {
	core.Database
	auth.Database
}

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	lg := logger.SetupLogger(conf.Env, filepath.Join(*logPath, logFileName))
	lg.Info("starting qreward", slog.String("config", *configPath), slog.String("env", conf.Env))

	if conf.Telegram.Enabled {
		tgBot, err := bot.NewTgBot(conf.Telegram.ApiKey, conf.Telegram.ChatIds, lg)
		if err != nil {
			lg.Error("telegram bot not started", sl.Err(err))
		} else {
			lg = slog.New(logger.NewTelegramHandler(lg.Handler(), tgBot, slog.LevelWarn))
			tgBot.SendMessage(bot.Sanitize("qreward started"))
		}
	}

	db := openStorage(conf, lg)

	engine := core.New(db, core.Config{
		BaseUrl:           conf.Engine.BaseUrl,
		DefaultExpiryDays: conf.Engine.DefaultExpiryDays,
	}, lg)
	engine.SetAuthService(auth.New(db))

	if err := api.New(conf, lg, engine); err != nil {
		lg.Error("api server stopped", sl.Err(err))
	}
}

func openStorage(conf *config.Config, lg *slog.Logger) storage {
	switch conf.Storage {
	case "mongo":
		db := database.NewMongoClient(conf)
		if db == nil {
			log.Fatal("mongo storage selected but disabled in configuration")
		}
		lg.Info("using mongo storage", slog.String("database", conf.Mongo.Database))
		return db
	case "mysql":
		db, err := sqlstore.New(conf)
		if err != nil {
			log.Fatal("mysql storage: ", err)
		}
		lg.Info("using mysql storage", slog.String("database", conf.MySql.Database))
		return db
	case "bolt":
		db, err := boltstore.New(conf.Bolt.Path)
		if err != nil {
			log.Fatal("bolt storage: ", err)
		}
		lg.Info("using bolt storage", slog.String("path", conf.Bolt.Path))
		return db
	default:
		log.Fatal("unknown storage backend: ", conf.Storage)
		return nil
	}
}
