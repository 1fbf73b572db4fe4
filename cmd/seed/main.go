// Command seed loads operator users, projects and business profiles into the
// configured storage backend. The production dashboard writes these rows
// itself; this tool covers local runs and fresh environments.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"qreward/entity"
	"qreward/internal/boltstore"
	"qreward/internal/config"
	"qreward/internal/database"
	"qreward/internal/sqlstore"
)

type seedData struct {
	Users    []entity.User            `json:"users"`
	Projects []entity.Project         `json:"projects"`
	Profiles []entity.BusinessProfile `json:"profiles"`
}

type storage interface {
	SaveUser(ctx context.Context, user *entity.User) error
	SaveProject(ctx context.Context, project *entity.Project) error
	SaveBusinessProfile(ctx context.Context, profile *entity.BusinessProfile) error
}

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	seedPath := flag.String("file", "seed.json", "path to seed file")
	flag.Parse()

	conf := config.MustLoad(*configPath)

	data, err := os.ReadFile(*seedPath)
	if err != nil {
		log.Fatal("read seed file: ", err)
	}
	var seed seedData
	if err = json.Unmarshal(data, &seed); err != nil {
		log.Fatal("parse seed file: ", err)
	}

	db := openStorage(conf)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for i := range seed.Users {
		if seed.Users[i].RegisteredAt.IsZero() {
			seed.Users[i].RegisteredAt = time.Now().UTC()
		}
		if err = db.SaveUser(ctx, &seed.Users[i]); err != nil {
			log.Fatal("save user: ", err)
		}
	}
	for i := range seed.Projects {
		if err = db.SaveProject(ctx, &seed.Projects[i]); err != nil {
			log.Fatal("save project: ", err)
		}
	}
	for i := range seed.Profiles {
		if err = db.SaveBusinessProfile(ctx, &seed.Profiles[i]); err != nil {
			log.Fatal("save business profile: ", err)
		}
	}

	log.Printf("seeded %d users, %d projects, %d profiles",
		len(seed.Users), len(seed.Projects), len(seed.Profiles))
}

func openStorage(conf *config.Config) storage {
	switch conf.Storage {
	case "mongo":
		db := database.NewMongoClient(conf)
		if db == nil {
			log.Fatal("mongo storage selected but disabled in configuration")
		}
		return db
	case "mysql":
		db, err := sqlstore.New(conf)
		if err != nil {
			log.Fatal("mysql storage: ", err)
		}
		return db
	case "bolt":
		db, err := boltstore.New(conf.Bolt.Path)
		if err != nil {
			log.Fatal("bolt storage: ", err)
		}
		return db
	default:
		log.Fatal("unknown storage backend: ", conf.Storage)
		return nil
	}
}
