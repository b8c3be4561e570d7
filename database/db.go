package database

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/jerry-enebeli/passbook/config"
	"github.com/jerry-enebeli/passbook/internal/cache"
	"github.com/jerry-enebeli/passbook/model"

	_ "github.com/lib/pq"
)

// Ensure the instance is not accessible outside the package.
var instance *Datasource
var once sync.Once

type Datasource struct {
	Conn  *sql.DB
	Cache cache.Cache
	// CacheTTL bounds how long account and category lists are served from Cache.
	CacheTTL time.Duration
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	con, err := GetDBConnection(configuration)
	if err != nil {
		return nil, err
	}
	return con, nil
}

// GetDBConnection provides a global access point to the instance and initializes it if it's not already.
// The directory cache is optional; the datasource works against Postgres alone when Redis is unavailable.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		con, errConn := ConnectDB(configuration.DataSource.Dns)
		if errConn != nil {
			err = errConn
			return
		}
		ds := &Datasource{Conn: con, CacheTTL: configuration.Ingest.DirectoryCacheTTL()}
		c, errCache := cache.NewCache()
		if errCache != nil {
			log.Printf("directory cache disabled: %v", errCache)
		} else {
			ds.Cache = c
		}
		instance = ds
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

// ConnectDB opens and pings the Postgres pool. Tables are managed by `passbook migrate`.
func ConnectDB(dns string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dns)
	if err != nil {
		return nil, err
	}

	// Workers and the CLI share one pool per process.
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	err = db.Ping()
	if err != nil {
		log.Printf("database Connection error ❌: %v", err)
		return nil, err
	}
	return db, nil
}

func GenerateUUIDWithSuffix(module string) string {
	return model.GenerateUUIDWithSuffix(module)
}
