package storage

import (
	"database/sql"
	"strings"
	"time"

	"pe-tracker/src/helpers"
	"pe-tracker/src/logger"
	"pe-tracker/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type SQLiteStore struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSQLiteStore(cfg *models.MConfig, log *logger.Logger) (*SQLiteStore, error) {
	return &SQLiteStore{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteStore) Initialize() error {
	dsn := d.Config.Storage.DBPath

	// Open DB
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *SQLiteStore) createTables() error {
	// Tables survive restarts: stock_history is append-only and never pruned,
	// stock_cache keeps its rows across runs.
	// Timestamps are stored as unix milliseconds (INTEGER).
	query := `
		CREATE TABLE IF NOT EXISTS stock_cache (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ticker TEXT NOT NULL UNIQUE,
			company_name TEXT,
			pe_ratio REAL,
			price REAL,
			market_cap REAL,
			last_updated INTEGER NOT NULL,
			is_favorite INTEGER NOT NULL DEFAULT 0
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return helpers.NewDatabaseError("failed to create stock_cache", err)
	}

	query = `
		CREATE TABLE IF NOT EXISTS stock_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ticker TEXT NOT NULL,
			pe_ratio REAL,
			price REAL,
			market_cap REAL,
			timestamp INTEGER NOT NULL
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

const sqliteCacheColumns = "id, ticker, company_name, pe_ratio, price, market_cap, last_updated, is_favorite"

// -----------------------------------------------------------------------------

func (d *SQLiteStore) scanCacheEntry(row *sql.Row) (*models.MStockCacheEntry, error) {
	var e models.MStockCacheEntry
	var name sql.NullString
	var pe, price, mcap sql.NullFloat64
	var updated int64

	err := row.Scan(&e.ID, &e.Ticker, &name, &pe, &price, &mcap, &updated, &e.IsFavorite)
	if err != nil {
		return nil, err
	}

	e.CompanyName = stringPtr(name)
	e.PERatio = floatPtr(pe)
	e.Price = floatPtr(price)
	e.MarketCap = floatPtr(mcap)
	e.LastUpdated = time.UnixMilli(updated).UTC()
	return &e, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteStore) GetCacheEntry(ticker string) (*models.MStockCacheEntry, error) {
	row := d.DB.QueryRow(`SELECT `+sqliteCacheColumns+` FROM stock_cache WHERE ticker = ?`, ticker)
	entry, err := d.scanCacheEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, helpers.NewDatabaseError("failed to read cache entry", err)
	}
	return entry, nil
}

// -----------------------------------------------------------------------------

// UpsertCacheEntry is a single-statement read-modify-write: COALESCE keeps
// the previous value for every field the snapshot leaves nil, so two racing
// refreshes for the same ticker cannot lose known data.
func (d *SQLiteStore) UpsertCacheEntry(snap models.MStockSnapshot, now time.Time) (*models.MStockCacheEntry, error) {
	query := `
		INSERT INTO stock_cache (ticker, company_name, pe_ratio, price, market_cap, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)
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

func (d *SQLiteStore) RegisterCacheEntry(ticker string, companyName *string, lastUpdated time.Time) (bool, error) {
	query := `
		INSERT INTO stock_cache (ticker, company_name, last_updated)
		VALUES (?, ?, ?)
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

func (d *SQLiteStore) ToggleFavorite(ticker string) (bool, error) {
	res, err := d.DB.Exec(`UPDATE stock_cache SET is_favorite = 1 - is_favorite WHERE ticker = ?`, ticker)
	if err != nil {
		return false, helpers.NewDatabaseError("failed to toggle favorite", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, helpers.NewDatabaseError("failed to read rows affected", err)
	}
	if affected == 0 {
		return false, helpers.NewNotFoundError("stock not found: " + ticker)
	}

	var fav bool
	if err := d.DB.QueryRow(`SELECT is_favorite FROM stock_cache WHERE ticker = ?`, ticker).Scan(&fav); err != nil {
		return false, helpers.NewDatabaseError("failed to read favorite flag", err)
	}
	return fav, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteStore) ListCachePage(filter string, page, perPage int) (*models.MPageResult, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	where := ""
	var args []interface{}
	if filter != "" {
		where = ` WHERE LOWER(ticker) LIKE ? OR LOWER(COALESCE(company_name, '')) LIKE ?`
		pattern := "%" + strings.ToLower(filter) + "%"
		args = append(args, pattern, pattern)
	}

	var total int
	if err := d.DB.QueryRow(`SELECT COUNT(*) FROM stock_cache`+where, args...).Scan(&total); err != nil {
		return nil, helpers.NewDatabaseError("failed to count cache entries", err)
	}

	pages := (total + perPage - 1) / perPage

	query := `SELECT ` + sqliteCacheColumns + ` FROM stock_cache` + where + ` ORDER BY ticker ASC LIMIT ? OFFSET ?`
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

func (d *SQLiteStore) ListFavorites() ([]models.MStockCacheEntry, error) {
	rows, err := d.DB.Query(`SELECT ` + sqliteCacheColumns + ` FROM stock_cache WHERE is_favorite = 1 ORDER BY ticker ASC`)
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

func scanCacheRows(rows *sql.Rows) ([]models.MStockCacheEntry, error) {
	var entries []models.MStockCacheEntry
	for rows.Next() {
		var e models.MStockCacheEntry
		var name sql.NullString
		var pe, price, mcap sql.NullFloat64
		var updated int64

		if err := rows.Scan(&e.ID, &e.Ticker, &name, &pe, &price, &mcap, &updated, &e.IsFavorite); err != nil {
			return nil, err
		}
		e.CompanyName = stringPtr(name)
		e.PERatio = floatPtr(pe)
		e.Price = floatPtr(price)
		e.MarketCap = floatPtr(mcap)
		e.LastUpdated = time.UnixMilli(updated).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// -----------------------------------------------------------------------------
// Historical series
// -----------------------------------------------------------------------------

func (d *SQLiteStore) AppendHistory(snap models.MStockSnapshot, timestamp time.Time) (*models.MHistoricalRecord, error) {
	res, err := d.DB.Exec(`
		INSERT INTO stock_history (ticker, pe_ratio, price, market_cap, timestamp)
		VALUES (?, ?, ?, ?, ?)`,
		snap.Ticker, nullFloat(snap.PERatio), nullFloat(snap.Price),
		nullFloat(snap.MarketCap), timestamp.UTC().UnixMilli())
	if err != nil {
		return nil, helpers.NewDatabaseError("failed to append history", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, helpers.NewDatabaseError("failed to read inserted id", err)
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

// QueryHistory takes the `limit` most recent rows descending and reverses
// them; an ascending scan with LIMIT would return the oldest window instead.
func (d *SQLiteStore) QueryHistory(ticker string, limit int) ([]models.MHistoricalRecord, error) {
	rows, err := d.DB.Query(`
		SELECT id, ticker, pe_ratio, price, market_cap, timestamp
		FROM stock_history
		WHERE ticker = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`, ticker, limit)
	if err != nil {
		return nil, helpers.NewDatabaseError("failed to query history", err)
	}
	defer rows.Close()

	records, err := scanHistoryRows(rows)
	if err != nil {
		return nil, helpers.NewDatabaseError("failed to scan history", err)
	}

	// Reverse into ascending timestamp order
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteStore) LatestHistory(tickers []string) (map[string]models.MHistoricalRecord, error) {
	latest := make(map[string]models.MHistoricalRecord)

	for _, ticker := range tickers {
		rows, err := d.DB.Query(`
			SELECT id, ticker, pe_ratio, price, market_cap, timestamp
			FROM stock_history
			WHERE ticker = ?
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

func scanHistoryRows(rows *sql.Rows) ([]models.MHistoricalRecord, error) {
	var records []models.MHistoricalRecord
	for rows.Next() {
		var r models.MHistoricalRecord
		var pe, price, mcap sql.NullFloat64
		var ts int64

		if err := rows.Scan(&r.ID, &r.Ticker, &pe, &price, &mcap, &ts); err != nil {
			return nil, err
		}
		r.PERatio = floatPtr(pe)
		r.Price = floatPtr(price)
		r.MarketCap = floatPtr(mcap)
		r.Timestamp = time.UnixMilli(ts).UTC()
		records = append(records, r)
	}
	return records, rows.Err()
}

// -----------------------------------------------------------------------------

func (d *SQLiteStore) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
