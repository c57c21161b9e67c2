package health

import (
	"context"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// DBChecker pings the store and confirms the tracker tables exist, so a
// replica started before migrations ran reports unready instead of failing
// requests.
type DBChecker struct {
	db     *gorm.DB
	tables []string
}

func NewDBChecker(db *gorm.DB, tables ...string) Checker {
	if db == nil {
		return nil
	}
	return &DBChecker{db: db, tables: tables}
}

func (c *DBChecker) Check(ctx context.Context) CheckResult {
	res := CheckResult{Name: "db", Healthy: true}
	sqlDB, err := c.db.DB()
	if err != nil {
		return res.fail(err.Error())
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return res.fail(err.Error())
	}
	migrator := c.db.WithContext(ctx).Migrator()
	var missing []string
	for _, table := range c.tables {
		if !migrator.HasTable(table) {
			missing = append(missing, table)
		}
	}
	if len(missing) > 0 {
		return res.fail("missing tables: " + strings.Join(missing, ", "))
	}
	return res
}

// RedisChecker pings the shared redis client. A failure names the features
// that depend on it.
type RedisChecker struct {
	client redis.UniversalClient
	uses   []string
}

func NewRedisChecker(client redis.UniversalClient, uses ...string) Checker {
	if client == nil {
		return nil
	}
	sorted := append([]string(nil), uses...)
	sort.Strings(sorted)
	return &RedisChecker{client: client, uses: sorted}
}

func (c *RedisChecker) Check(ctx context.Context) CheckResult {
	res := CheckResult{Name: "redis", Healthy: true}
	if err := c.client.Ping(ctx).Err(); err != nil {
		msg := err.Error()
		if len(c.uses) > 0 {
			msg += " (affects " + strings.Join(c.uses, ", ") + ")"
		}
		return res.fail(msg)
	}
	return res
}

func (r CheckResult) fail(msg string) CheckResult {
	r.Healthy = false
	r.Error = msg
	return r
}
