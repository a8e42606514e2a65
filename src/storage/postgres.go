package storage

import (
	"database/sql"
	"time"

	"pe-tracker/src/helpers"
	"pe-tracker/src/logger"
	"pe-tracker/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresStore struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresStore(cfg *models.MConfig, log *logger.Logger) (*PostgresStore, error) {
	return &PostgresStore{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	d.DB = db

	if err := d.createTables(); err != nil {
		return err
	}

	d.Logger.Info("PostgresStore initialized successfully")
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) createTables() error {
	query := `
		CREATE TABLE IF NOT EXISTS stock_cache (
			id BIGSERIAL PRIMARY KEY,
			ticker TEXT NOT NULL UNIQUE,
			company_name TEXT,
			pe_ratio DOUBLE PRECISION,
			price DOUBLE PRECISION,
			market_cap DOUBLE PRECISION,
			last_updated BIGINT NOT NULL,
			is_favorite BOOLEAN NOT NULL DEFAULT FALSE
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return helpers.NewDatabaseError("failed to create stock_cache", err)
	}

	query = `
		CREATE TABLE IF NOT EXISTS stock_history (
			id BIGSERIAL PRIMARY KEY,
			ticker TEXT NOT NULL,
			pe_ratio DOUBLE PRECISION,
			price DOUBLE PRECISION,
			market_cap DOUBLE PRECISION,
			timestamp BIGINT NOT NULL
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return helpers.NewDatabaseError("failed to create stock_history", err)
	}

	query = `CREATE INDEX IF NOT EXISTS idx_stock_history_ticker_ts ON stock_history (ticker, timestamp);`
	if _, err := d.DB.Exec(query); err != nil {
		return helpers.NewDatabaseError("failed to create history index", err)
	}

	return nil
}

// -----------------------------------------------------------------------------
// Latest-snapshot cache
// -----------------------------------------------------------------------------

const pgCacheColumns = "id, ticker, company_name, pe_ratio, price, market_cap, last_updated, is_favorite"

// -----------------------------------------------------------------------------

func (d *PostgresStore) GetCacheEntry(ticker string) (*models.MStockCacheEntry, error) {
	row := d.DB.QueryRow(`SELECT `+pgCacheColumns+` FROM stock_cache WHERE ticker = $1`, ticker)

	var e models.MStockCacheEntry
	var name sql.NullString
	var pe, price, mcap sql.NullFloat64
	var updated int64

	err := row.Scan(&e.ID, &e.Ticker, &name, &pe, &price, &mcap, &updated, &e.IsFavorite)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, helpers.NewDatabaseError("failed to read cache entry", err)
	}

	e.CompanyName = stringPtr(name)
	e.PERatio = floatPtr(pe)
	e.Price = floatPtr(price)
	e.MarketCap = floatPtr(mcap)
	e.LastUpdated = time.UnixMilli(updated).UTC()
	return &e, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) UpsertCacheEntry(snap models.MStockSnapshot, now time.Time) (*models.MStockCacheEntry, error) {
	query := `
		INSERT INTO stock_cache (ticker, company_name, pe_ratio, price, market_cap, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (ticker) DO UPDATE SET
			company_name = COALESCE(excluded.company_name, stock_cache.company_name),
			pe_ratio     = COALESCE(excluded.pe_ratio, stock_cache.pe_ratio),
			price        = COALESCE(excluded.price, stock_cache.price),
			market_cap   = COALESCE(excluded.market_cap, stock_cache.market_cap),
			last_updated = excluded.last_updated
	`
	_, err := d.DB.Exec(query,
		snap.Ticker, nullString(snap.CompanyName), nullFloat(snap.PERatio),
		nullFloat(snap.Price), nullFloat(snap.MarketCap), now.UTC().UnixMilli())
	if err != nil {
		return nil, helpers.NewDatabaseError("failed to upsert cache entry", err)
	}

	return d.GetCacheEntry(snap.Ticker)
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) RegisterCacheEntry(ticker string, companyName *string, lastUpdated time.Time) (bool, error) {
	query := `
		INSERT INTO stock_cache (ticker, company_name, last_updated)
		VALUES ($1, $2, $3)
		ON CONFLICT (ticker) DO NOTHING
	`
	res, err := d.DB.Exec(query, ticker, nullString(companyName), lastUpdated.UTC().UnixMilli())
	if err != nil {
		return false, helpers.NewDatabaseError("failed to register cache entry", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, helpers.NewDatabaseError("failed to read rows affected", err)
	}
	return affected > 0, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) ToggleFavorite(ticker string) (bool, error) {
	var fav bool
	err := d.DB.QueryRow(`
		UPDATE stock_cache SET is_favorite = NOT is_favorite
		WHERE ticker = $1
		RETURNING is_favorite`, ticker).Scan(&fav)
	if err == sql.ErrNoRows {
		return false, helpers.NewNotFoundError("stock not found: " + ticker)
	}
	if err != nil {
		return false, helpers.NewDatabaseError("failed to toggle favorite", err)
	}
	return fav, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) ListCachePage(filter string, page, perPage int) (*models.MPageResult, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	where := ""
	var args []interface{}
	if filter != "" {
		where = ` WHERE ticker ILIKE $1 OR COALESCE(company_name, '') ILIKE $1`
		args = append(args, "%"+filter+"%")
	}

	var total int
	if err := d.DB.QueryRow(`SELECT COUNT(*) FROM stock_cache`+where, args...).Scan(&total); err != nil {
		return nil, helpers.NewDatabaseError("failed to count cache entries", err)
	}

	pages := (total + perPage - 1) / perPage

	var query string
	if filter != "" {
		query = `SELECT ` + pgCacheColumns + ` FROM stock_cache` + where + ` ORDER BY ticker ASC LIMIT $2 OFFSET $3`
	} else {
		query = `SELECT ` + pgCacheColumns + ` FROM stock_cache ORDER BY ticker ASC LIMIT $1 OFFSET $2`
	}
	rows, err := d.DB.Query(query, append(args, perPage, (page-1)*perPage)...)
	if err != nil {
		return nil, helpers.NewDatabaseError("failed to list cache page", err)
	}
	defer rows.Close()

	stocks, err := scanCacheRows(rows)
	if err != nil {
		return nil, helpers.NewDatabaseError("failed to scan cache page", err)
	}

	return &models.MPageResult{
		Stocks:  stocks,
		Total:   total,
		Page:    page,
		PerPage: perPage,
		Pages:   pages,
		Query:   filter,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) ListFavorites() ([]models.MStockCacheEntry, error) {
	rows, err := d.DB.Query(`SELECT ` + pgCacheColumns + ` FROM stock_cache WHERE is_favorite ORDER BY ticker ASC`)
	if err != nil {
		return nil, helpers.NewDatabaseError("failed to list favorites", err)
	}
	defer rows.Close()

	favorites, err := scanCacheRows(rows)
	if err != nil {
		return nil, helpers.NewDatabaseError("failed to scan favorites", err)
	}
	return favorites, nil
}

// -----------------------------------------------------------------------------
// Historical series
// -----------------------------------------------------------------------------

func (d *PostgresStore) AppendHistory(snap models.MStockSnapshot, timestamp time.Time) (*models.MHistoricalRecord, error) {
	var id int64
	err := d.DB.QueryRow(`
		INSERT INTO stock_history (ticker, pe_ratio, price, market_cap, timestamp)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		snap.Ticker, nullFloat(snap.PERatio), nullFloat(snap.Price),
		nullFloat(snap.MarketCap), timestamp.UTC().UnixMilli()).Scan(&id)
	if err != nil {
		return nil, helpers.NewDatabaseError("failed to append history", err)
	}

	return &models.MHistoricalRecord{
		ID:        id,
		Ticker:    snap.Ticker,
		PERatio:   snap.PERatio,
		Price:     snap.Price,
		MarketCap: snap.MarketCap,
		Timestamp: timestamp.UTC(),
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) QueryHistory(ticker string, limit int) ([]models.MHistoricalRecord, error) {
	rows, err := d.DB.Query(`
		SELECT id, ticker, pe_ratio, price, market_cap, timestamp
		FROM stock_history
		WHERE ticker = $1
		ORDER BY timestamp DESC, id DESC
		LIMIT $2`, ticker, limit)
	if err != nil {
		return nil, helpers.NewDatabaseError("failed to query history", err)
	}
	defer rows.Close()

	records, err := scanHistoryRows(rows)
	if err != nil {
		return nil, helpers.NewDatabaseError("failed to scan history", err)
	}

	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) LatestHistory(tickers []string) (map[string]models.MHistoricalRecord, error) {
	latest := make(map[string]models.MHistoricalRecord)

	for _, ticker := range tickers {
		rows, err := d.DB.Query(`
			SELECT id, ticker, pe_ratio, price, market_cap, timestamp
			FROM stock_history
			WHERE ticker = $1
			ORDER BY timestamp DESC, id DESC
			LIMIT 1`, ticker)
		if err != nil {
			return nil, helpers.NewDatabaseError("failed to query latest history", err)
		}

		records, err := scanHistoryRows(rows)
		rows.Close()
		if err != nil {
			return nil, helpers.NewDatabaseError("failed to scan latest history", err)
		}
		if len(records) > 0 {
			latest[ticker] = records[0]
		}
	}

	return latest, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
