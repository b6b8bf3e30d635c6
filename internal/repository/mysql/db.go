package mysql

import (
	"context"
	"database/sql"
	_ "embed"
	stderrors "errors"
	"strings"
	"time"

	"socialverse-backend/internal/common"
	"socialverse-backend/internal/model"
	"socialverse-backend/internal/repository/interfaces"
	"socialverse-backend/internal/util"

	driver "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

//go:embed schema.sql
var schema string

// MySQL 唯一键冲突
const errDupEntry = 1062

// DSN 按配置拼接连接串；时间统一按 UTC 存取
func DSN(user, password, host, port, name string) string {
	cfg := driver.NewConfig()
	cfg.User = user
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = host + ":" + port
	cfg.DBName = name
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// Open 连接数据库并配置连接池，启动阶段对临时错误重试
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	err = common.WithRetry(ctx, func() error {
		return db.PingContext(ctx)
	}, 5, time.Second)
	if err != nil {
		db.Close()
		return nil, err
	}

	util.Logger.Info("数据库连接成功")
	return db, nil
}

// EnsureSchema 建表（幂等）
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			util.Logger.Error("建表失败", zap.Error(err))
			return err
		}
	}
	return nil
}

func isDuplicate(err error) bool {
	var myErr *driver.MySQLError
	return stderrors.As(err, &myErr) && myErr.Number == errDupEntry
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, sql.ErrNoRows):
		return interfaces.ErrNotFound
	case isDuplicate(err):
		return interfaces.ErrDuplicate
	}
	return err
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(ids []string) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// profileCols 左连接 profiles 的列；资料行可能尚未创建
type profileCols struct {
	username, displayName, avatarURL sql.NullString
}

func (p *profileCols) dest() []interface{} {
	return []interface{}{&p.username, &p.displayName, &p.avatarURL}
}

func (p *profileCols) summary(id string) *model.ProfileSummary {
	return &model.ProfileSummary{
		ID:          id,
		Username:    p.username.String,
		DisplayName: p.displayName.String,
		AvatarURL:   p.avatarURL.String,
	}
}
