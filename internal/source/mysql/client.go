package mysql

import (
	"context"
	"fmt"
	"net"

	"github.com/fekuna/omnipos-catalog-service/config"
	"github.com/fekuna/omnipos-catalog-service/internal/apperr"
	"github.com/fekuna/omnipos-catalog-service/internal/logger"
	"github.com/fekuna/omnipos-catalog-service/internal/source"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const (
	storesQuery = `SELECT store_no AS id, COALESCE(address, '') AS address FROM stores`

	categoriesQuery = `SELECT group_id AS id, group_name AS name FROM item_groups`

	productsQuery = `
		SELECT item_id AS id, item_name AS name, sell_price AS price,
		       promo_price, COALESCE(unit, '') AS unit, group_id AS category_id
		FROM items`

	stockQuery = `SELECT item_id AS product_id, store_no AS store_id, qty AS quantity FROM item_stock`
)

// Opener opens a connection to the ERP. Tests replace it with sqlmock.
type Opener func(ctx context.Context, dsn string) (*sqlx.DB, error)

func connect(ctx context.Context, dsn string) (*sqlx.DB, error) {
	return sqlx.ConnectContext(ctx, "mysql", dsn)
}

// Client reads the ERP over a connection opened per call and closed before
// the call returns.
type Client struct {
	dsn    string
	cfg    *config.SourceConfig
	open   Opener
	logger logger.ZapLogger
}

func NewClient(cfg *config.SourceConfig, log logger.ZapLogger) *Client {
	return NewClientWithOpener(cfg, connect, log)
}

func NewClientWithOpener(cfg *config.SourceConfig, open Opener, log logger.ZapLogger) *Client {
	return &Client{dsn: DSN(cfg), cfg: cfg, open: open, logger: log}
}

// DSN renders the driver DSN. DECIMAL columns are read as text and parsed by
// shopspring/decimal, so no precision is lost at ingestion.
func DSN(cfg *config.SourceConfig) string {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, cfg.Port)
	mc.DBName = cfg.DBName
	mc.Timeout = cfg.ConnectTimeout
	mc.ReadTimeout = cfg.QueryTimeout
	mc.ParseTime = true
	return mc.FormatDSN()
}

func (c *Client) ListStores(ctx context.Context) ([]source.StoreRow, error) {
	var rows []source.StoreRow
	if err := c.selectAll(ctx, "stores", &rows, storesQuery); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) ListCategories(ctx context.Context) ([]source.CategoryRow, error) {
	var rows []source.CategoryRow
	if err := c.selectAll(ctx, "categories", &rows, categoriesQuery); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) ListProducts(ctx context.Context, ids []int64) ([]source.ProductRow, error) {
	query, args, err := filterByIDs(productsQuery, "item_id", ids)
	if err != nil {
		return nil, err
	}

	var rows []source.ProductRow
	if err := c.selectAll(ctx, "products", &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) ListStock(ctx context.Context, productIDs []int64) ([]source.StockRow, error) {
	query, args, err := filterByIDs(stockQuery, "item_id", productIDs)
	if err != nil {
		return nil, err
	}

	var rows []source.StockRow
	if err := c.selectAll(ctx, "stock", &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func filterByIDs(query, column string, ids []int64) (string, []any, error) {
	if len(ids) == 0 {
		return query, nil, nil
	}
	q, args, err := sqlx.In(query+" WHERE "+column+" IN (?)", ids)
	if err != nil {
		return "", nil, fmt.Errorf("%w: build id filter: %w", apperr.ErrSourceUnavailable, err)
	}
	return q, args, nil
}

func (c *Client) selectAll(ctx context.Context, entity string, dest any, query string, args ...any) error {
	if c.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.QueryTimeout)
		defer cancel()
	}

	db, err := c.open(ctx, c.dsn)
	if err != nil {
		c.logger.Error("Failed to connect to source", zap.String("entity", entity), zap.Error(err))
		return fmt.Errorf("%w: connect: %w", apperr.ErrSourceUnavailable, err)
	}
	defer db.Close()

	if err := sqlx.SelectContext(ctx, db, dest, query, args...); err != nil {
		c.logger.Error("Failed to query source", zap.String("entity", entity), zap.Error(err))
		return fmt.Errorf("%w: list %s: %w", apperr.ErrSourceUnavailable, entity, err)
	}
	return nil
}
