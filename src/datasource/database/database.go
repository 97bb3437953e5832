// database.go
package database

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"DataPrep/src/config"
	"DataPrep/src/dataset"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const (
	DefaultDriver = "postgres"
	pingTimeout   = 5 * time.Second
	timeLayout    = "2006-01-02 15:04:05"
)

// Open 建立连接并确认可用
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DefaultDriver
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	db, err := sqlx.ConnectContext(pingCtx, driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}
	return db, nil
}

// rowScanner *sqlx.Rows 中读取结果集用到的部分
type rowScanner interface {
	Columns() ([]string, error)
	Next() bool
	SliceScan() ([]interface{}, error)
	Err() error
}

// LoadQuery 执行查询并把结果集读成数据集，NULL 视为缺失
func LoadQuery(ctx context.Context, db *sqlx.DB, query string, args ...interface{}) (*dataset.Dataset, error) {
	rows, err := db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("执行查询失败: %w", err)
	}
	defer rows.Close()

	records, err := readRecords(rows)
	if err != nil {
		return nil, err
	}
	return dataset.FromRecords(records, dataset.Provenance{
		Kind:     dataset.SourceDatabase,
		Source:   query,
		ModTime:  time.Now(),
		LoadedAt: time.Now(),
	})
}

// readRecords 表头加每行的字符串形式
func readRecords(rows rowScanner) ([][]string, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("读取列名失败: %w", err)
	}
	records := [][]string{cols}
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("读取第 %d 行失败: %w", len(records), err)
		}
		rec := make([]string, len(cols))
		for i := range rec {
			if i < len(values) {
				rec[i] = formatValue(values[i])
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历结果集失败: %w", err)
	}
	return records, nil
}

// formatValue 驱动返回值转字符串；NULL 转为空串
func formatValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(timeLayout)
	default:
		return fmt.Sprint(x)
	}
}
