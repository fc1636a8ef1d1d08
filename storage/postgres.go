package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "github.com/lib/pq"

	"opinion-etl/models"
	"opinion-etl/utils"
)

// PostgresRepository persists products, opinions and rates in PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository opens a connection to PostgreSQL, ensures the schema
// exists, and returns a ready-to-use repository.
func NewPostgresRepository(ctx context.Context, dsn string) (*PostgresRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	// the database may still be starting next to us
	ping := &utils.RetryConfig{MaxAttempts: 6, BaseDelay: 500 * time.Millisecond}
	if err := ping.Do(ctx, "postgres ping", db.PingContext); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	pr := &PostgresRepository{db: db}
	if err := pr.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: schema: %w", err)
	}
	return pr, nil
}

func (pr *PostgresRepository) ensureSchema(ctx context.Context) error {
	_, err := pr.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS products (
			seq             BIGSERIAL,
			product_id      BIGINT PRIMARY KEY,
			product_code    BIGINT NOT NULL DEFAULT 0,
			product_name_id TEXT   NOT NULL DEFAULT '',
			title           TEXT   NOT NULL DEFAULT '',
			brand           TEXT   NOT NULL DEFAULT '',
			category        TEXT   NOT NULL DEFAULT '',
			photo           TEXT   NOT NULL DEFAULT '',
			attributes      JSONB  NOT NULL DEFAULT '[]'
		);

		CREATE TABLE IF NOT EXISTS opinions (
			seq                     BIGSERIAL,
			opinion_id              TEXT PRIMARY KEY,
			product_id              BIGINT  NOT NULL,
			content                 TEXT    NOT NULL DEFAULT '',
			date_day                INT     NOT NULL DEFAULT 0,
			date_month              INT     NOT NULL DEFAULT 0,
			date_year               INT     NOT NULL DEFAULT 0,
			grades                  JSONB   NOT NULL DEFAULT '[]',
			not_useful_votes        INT     NOT NULL DEFAULT 0,
			opinion_title           TEXT    NOT NULL DEFAULT '',
			overall_numerical_grade INT     NOT NULL DEFAULT 0,
			overall_verbal_grade    TEXT    NOT NULL DEFAULT '',
			purchase_confirmed      BOOLEAN NOT NULL DEFAULT FALSE,
			reviewer_name           TEXT    NOT NULL DEFAULT '',
			total_usefulness_votes  INT     NOT NULL DEFAULT 0,
			useful_votes            INT     NOT NULL DEFAULT 0,
			usefulness_rate         INT     NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_opinions_product_id ON opinions(product_id);

		CREATE TABLE IF NOT EXISTS product_rates (
			product_id       BIGINT PRIMARY KEY,
			opinions_amount  INT           NOT NULL DEFAULT 0,
			overall_rate     NUMERIC(4,2)  NOT NULL DEFAULT 0,
			rated_attributes JSONB         NOT NULL DEFAULT '[]'
		);
	`)
	return err
}

func (pr *PostgresRepository) Close() error {
	return pr.db.Close()
}

func persistErr(op string, err error) error {
	return &models.PersistenceError{Op: op, Err: err}
}

const productColumns = `product_id, product_code, product_name_id, title, brand, category, photo, attributes`

func scanProduct(row interface{ Scan(...any) error }) (models.ProductRecord, error) {
	var (
		p     models.ProductRecord
		attrs []byte
	)
	if err := row.Scan(&p.ProductID, &p.ProductCode, &p.ProductNameID, &p.Title,
		&p.Brand, &p.Category, &p.Photo, &attrs); err != nil {
		return p, err
	}
	if err := json.Unmarshal(attrs, &p.Attributes); err != nil {
		return p, fmt.Errorf("decode attributes: %w", err)
	}
	return p, nil
}

func (pr *PostgresRepository) FindProduct(ctx context.Context, productID int64) (*models.ProductRecord, error) {
	row := pr.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE product_id = $1`, productID)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, productNotFound(productID)
	}
	if err != nil {
		return nil, persistErr("find product", err)
	}
	return &p, nil
}

func (pr *PostgresRepository) InsertProduct(ctx context.Context, p models.ProductRecord) (bool, error) {
	attrs, err := marshalJSON(p.Attributes)
	if err != nil {
		return false, persistErr("insert product", err)
	}
	res, err := pr.db.ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (product_id) DO NOTHING`,
		p.ProductID, p.ProductCode, p.ProductNameID, p.Title, p.Brand, p.Category, p.Photo, attrs)
	if err != nil {
		return false, persistErr("insert product", err)
	}
	return affected(res) == 1, nil
}

func (pr *PostgresRepository) UpdateProduct(ctx context.Context, p models.ProductRecord) error {
	attrs, err := marshalJSON(p.Attributes)
	if err != nil {
		return persistErr("update product", err)
	}
	res, err := pr.db.ExecContext(ctx, `
		UPDATE products
		SET product_code = $2, product_name_id = $3, title = $4, brand = $5, category = $6, photo = $7, attributes = $8
		WHERE product_id = $1`,
		p.ProductID, p.ProductCode, p.ProductNameID, p.Title, p.Brand, p.Category, p.Photo, attrs)
	if err != nil {
		return persistErr("update product", err)
	}
	if affected(res) == 0 {
		return productNotFound(p.ProductID)
	}
	return nil
}

func (pr *PostgresRepository) DeleteProduct(ctx context.Context, productID int64) (*models.ProductRecord, error) {
	row := pr.db.QueryRowContext(ctx, `DELETE FROM products WHERE product_id = $1 RETURNING `+productColumns, productID)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, productNotFound(productID)
	}
	if err != nil {
		return nil, persistErr("delete product", err)
	}
	return &p, nil
}

func (pr *PostgresRepository) ListProducts(ctx context.Context) ([]models.ProductRecord, error) {
	rows, err := pr.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY seq`)
	if err != nil {
		return nil, persistErr("list products", err)
	}
	defer rows.Close()

	products := []models.ProductRecord{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, persistErr("scan product", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list products", err)
	}
	return products, nil
}

func (pr *PostgresRepository) DeleteAllProducts(ctx context.Context) error {
	if _, err := pr.db.ExecContext(ctx, `DELETE FROM products`); err != nil {
		return persistErr("clear products", err)
	}
	return nil
}

const opinionColumns = `opinion_id, product_id, content, date_day, date_month, date_year, grades,
	not_useful_votes, opinion_title, overall_numerical_grade, overall_verbal_grade, purchase_confirmed,
	reviewer_name, total_usefulness_votes, useful_votes, usefulness_rate`

func scanOpinion(row interface{ Scan(...any) error }) (models.TransformedOpinion, error) {
	var (
		o      models.TransformedOpinion
		grades []byte
	)
	if err := row.Scan(&o.OpinionID, &o.ProductID, &o.Content, &o.Date.Day, &o.Date.Month, &o.Date.Year, &grades,
		&o.NotUsefulVotes, &o.OpinionTitle, &o.OverallNumericalGrade, &o.OverallVerbalGrade, &o.PurchaseConfirmed,
		&o.ReviewerName, &o.TotalUsefulnessVotes, &o.UsefulVotes, &o.UsefulnessRate); err != nil {
		return o, err
	}
	if err := json.Unmarshal(grades, &o.Grades); err != nil {
		return o, fmt.Errorf("decode grades: %w", err)
	}
	return o, nil
}

func (pr *PostgresRepository) FindOpinion(ctx context.Context, opinionID string) (*models.TransformedOpinion, error) {
	row := pr.db.QueryRowContext(ctx, `SELECT `+opinionColumns+` FROM opinions WHERE opinion_id = $1`, opinionID)
	o, err := scanOpinion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &models.NotFoundError{Kind: "Opinion", ID: opinionID}
	}
	if err != nil {
		return nil, persistErr("find opinion", err)
	}
	return &o, nil
}

func (pr *PostgresRepository) InsertOpinion(ctx context.Context, o models.TransformedOpinion) (bool, error) {
	grades, err := marshalJSON(o.Grades)
	if err != nil {
		return false, persistErr("insert opinion", err)
	}
	res, err := pr.db.ExecContext(ctx, `
		INSERT INTO opinions (`+opinionColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		ON CONFLICT (opinion_id) DO NOTHING`,
		o.OpinionID, o.ProductID, o.Content, o.Date.Day, o.Date.Month, o.Date.Year, grades,
		o.NotUsefulVotes, o.OpinionTitle, o.OverallNumericalGrade, o.OverallVerbalGrade, o.PurchaseConfirmed,
		o.ReviewerName, o.TotalUsefulnessVotes, o.UsefulVotes, o.UsefulnessRate)
	if err != nil {
		return false, persistErr("insert opinion", err)
	}
	return affected(res) == 1, nil
}

func (pr *PostgresRepository) DeleteOpinion(ctx context.Context, opinionID string) (*models.TransformedOpinion, error) {
	row := pr.db.QueryRowContext(ctx, `DELETE FROM opinions WHERE opinion_id = $1 RETURNING `+opinionColumns, opinionID)
	o, err := scanOpinion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &models.NotFoundError{Kind: "Opinion", ID: opinionID}
	}
	if err != nil {
		return nil, persistErr("delete opinion", err)
	}
	return &o, nil
}

func (pr *PostgresRepository) DeleteOpinionsByProduct(ctx context.Context, productID int64) (int, error) {
	res, err := pr.db.ExecContext(ctx, `DELETE FROM opinions WHERE product_id = $1`, productID)
	if err != nil {
		return 0, persistErr("delete opinions", err)
	}
	return int(affected(res)), nil
}

func (pr *PostgresRepository) queryOpinions(ctx context.Context, query string, args ...any) ([]models.TransformedOpinion, error) {
	rows, err := pr.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistErr("list opinions", err)
	}
	defer rows.Close()

	opinions := []models.TransformedOpinion{}
	for rows.Next() {
		o, err := scanOpinion(rows)
		if err != nil {
			return nil, persistErr("scan opinion", err)
		}
		opinions = append(opinions, o)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list opinions", err)
	}
	return opinions, nil
}

func (pr *PostgresRepository) ListOpinions(ctx context.Context) ([]models.TransformedOpinion, error) {
	return pr.queryOpinions(ctx, `SELECT `+opinionColumns+` FROM opinions ORDER BY seq`)
}

func (pr *PostgresRepository) ListOpinionsByProduct(ctx context.Context, productID int64) ([]models.TransformedOpinion, error) {
	return pr.queryOpinions(ctx, `SELECT `+opinionColumns+` FROM opinions WHERE product_id = $1 ORDER BY seq`, productID)
}

func (pr *PostgresRepository) DeleteAllOpinions(ctx context.Context) error {
	if _, err := pr.db.ExecContext(ctx, `DELETE FROM opinions`); err != nil {
		return persistErr("clear opinions", err)
	}
	return nil
}

func (pr *PostgresRepository) FindRate(ctx context.Context, productID int64) (*models.ProductRate, error) {
	var (
		r     models.ProductRate
		attrs []byte
	)
	err := pr.db.QueryRowContext(ctx, `
		SELECT product_id, opinions_amount, overall_rate, rated_attributes
		FROM product_rates WHERE product_id = $1`, productID).
		Scan(&r.ProductID, &r.OpinionsAmount, &r.OverallRate, &attrs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &models.NotFoundError{Kind: "ProductRate", ID: strconv.FormatInt(productID, 10)}
	}
	if err != nil {
		return nil, persistErr("find rate", err)
	}
	if err := json.Unmarshal(attrs, &r.RatedAttributes); err != nil {
		return nil, persistErr("decode rate", err)
	}
	return &r, nil
}

func (pr *PostgresRepository) InsertRate(ctx context.Context, r models.ProductRate) (bool, error) {
	attrs, err := marshalJSON(r.RatedAttributes)
	if err != nil {
		return false, persistErr("insert rate", err)
	}
	res, err := pr.db.ExecContext(ctx, `
		INSERT INTO product_rates (product_id, opinions_amount, overall_rate, rated_attributes)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (product_id) DO NOTHING`,
		r.ProductID, r.OpinionsAmount, r.OverallRate, attrs)
	if err != nil {
		return false, persistErr("insert rate", err)
	}
	return affected(res) == 1, nil
}

func (pr *PostgresRepository) UpdateRate(ctx context.Context, r models.ProductRate) error {
	attrs, err := marshalJSON(r.RatedAttributes)
	if err != nil {
		return persistErr("update rate", err)
	}
	res, err := pr.db.ExecContext(ctx, `
		UPDATE product_rates SET opinions_amount = $2, overall_rate = $3, rated_attributes = $4
		WHERE product_id = $1`,
		r.ProductID, r.OpinionsAmount, r.OverallRate, attrs)
	if err != nil {
		return persistErr("update rate", err)
	}
	if affected(res) == 0 {
		return &models.NotFoundError{Kind: "ProductRate", ID: strconv.FormatInt(r.ProductID, 10)}
	}
	return nil
}

func (pr *PostgresRepository) DeleteRate(ctx context.Context, productID int64) error {
	if _, err := pr.db.ExecContext(ctx, `DELETE FROM product_rates WHERE product_id = $1`, productID); err != nil {
		return persistErr("delete rate", err)
	}
	return nil
}

func (pr *PostgresRepository) DeleteAllRates(ctx context.Context) error {
	if _, err := pr.db.ExecContext(ctx, `DELETE FROM product_rates`); err != nil {
		return persistErr("clear rates", err)
	}
	return nil
}

// marshalJSON encodes v for a JSONB parameter. lib/pq sends []byte as bytea,
// so the document goes over the wire as text.
func marshalJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(b) == "null" {
		return "[]", nil
	}
	return string(b), nil
}

func affected(res sql.Result) int64 {
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return n
}
