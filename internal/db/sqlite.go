package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/RichardoC/gardenllm/internal/models"
	"github.com/RichardoC/gardenllm/internal/plants"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const schema = `
CREATE TABLE IF NOT EXISTS plants (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    location TEXT NOT NULL DEFAULT '',
    light_requirements TEXT NOT NULL DEFAULT '',
    frost_tolerance TEXT NOT NULL DEFAULT '',
    watering_needs TEXT NOT NULL DEFAULT '',
    soil_preferences TEXT NOT NULL DEFAULT '',
    pruning_instructions TEXT NOT NULL DEFAULT '',
    mulching_needs TEXT NOT NULL DEFAULT '',
    fertilizing_schedule TEXT NOT NULL DEFAULT '',
    winterizing_instructions TEXT NOT NULL DEFAULT '',
    spacing_requirements TEXT NOT NULL DEFAULT '',
    care_notes TEXT NOT NULL DEFAULT '',
    photo_url TEXT NOT NULL DEFAULT '',
    raw_photo_url TEXT NOT NULL DEFAULT '',
    last_updated TEXT NOT NULL DEFAULT ''
);

CREATE UNIQUE INDEX IF NOT EXISTS plants_name_idx ON plants(name COLLATE NOCASE);

CREATE VIRTUAL TABLE IF NOT EXISTS plants_fts USING fts4(
    name,
    description,
    location,
    care_notes,
    tokenize=porter
);

-- Triggers to keep the FTS index up to date
CREATE TRIGGER IF NOT EXISTS plants_ai AFTER INSERT ON plants BEGIN
    INSERT INTO plants_fts(docid, name, description, location, care_notes)
    VALUES (new.id, new.name, new.description, new.location, new.care_notes);
END;

CREATE TRIGGER IF NOT EXISTS plants_ad AFTER DELETE ON plants BEGIN
    DELETE FROM plants_fts WHERE docid = old.id;
END;

CREATE TRIGGER IF NOT EXISTS plants_au AFTER UPDATE ON plants BEGIN
    DELETE FROM plants_fts WHERE docid = old.id;
    INSERT INTO plants_fts(docid, name, description, location, care_notes)
    VALUES (new.id, new.name, new.description, new.location, new.care_notes);
END;`

// TimestampLayout is the format of the Last Updated column.
const TimestampLayout = "2006-01-02 15:04:05"

// columns maps sheet headers to plants table columns, in sheet order.
var columns = map[string]string{
	models.FieldID:                      "id",
	models.FieldName:                    "name",
	models.FieldDescription:             "description",
	models.FieldLocation:                "location",
	models.FieldLightRequirements:       "light_requirements",
	models.FieldFrostTolerance:          "frost_tolerance",
	models.FieldWateringNeeds:           "watering_needs",
	models.FieldSoilPreferences:         "soil_preferences",
	models.FieldPruningInstructions:     "pruning_instructions",
	models.FieldMulchingNeeds:           "mulching_needs",
	models.FieldFertilizingSchedule:     "fertilizing_schedule",
	models.FieldWinterizingInstructions: "winterizing_instructions",
	models.FieldSpacingRequirements:     "spacing_requirements",
	models.FieldCareNotes:               "care_notes",
	models.FieldPhotoURL:                "photo_url",
	models.FieldRawPhotoURL:             "raw_photo_url",
	models.FieldLastUpdated:             "last_updated",
}

var selectColumns = func() string {
	cols := make([]string, len(models.PlantFields))
	for i, f := range models.PlantFields {
		cols[i] = "p." + columns[f]
	}
	return strings.Join(cols, ", ")
}()

// Database is the SQLite plant repository.
type Database struct {
	db     *sql.DB
	now    func() time.Time
	logger *zap.Logger
}

var _ plants.Repository = (*Database)(nil)

type Option func(*Database)

func WithLogger(logger *zap.Logger) Option {
	return func(d *Database) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Database) {
		if now != nil {
			d.now = now
		}
	}
}

func New(dbPath string, opts ...Option) (*Database, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	d := &Database{db: db, now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

func (db *Database) Close() error {
	return db.db.Close()
}

func (db *Database) All(ctx context.Context) ([]models.Plant, error) {
	query := `SELECT ` + selectColumns + ` FROM plants p ORDER BY p.id`
	rows, err := db.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list plants: %w", err)
	}
	defer rows.Close()
	return scanPlants(rows)
}

// Find searches plant names through the FTS index and falls back to a
// substring match, so partial names still resolve.
func (db *Database) Find(ctx context.Context, names ...string) ([]models.Plant, error) {
	var terms []string
	for _, n := range names {
		terms = append(terms, plants.Variants(n)...)
	}
	if len(terms) == 0 {
		return db.All(ctx)
	}

	found := make(map[string]models.Plant)
	if match := ftsQuery(terms); match != "" {
		rows, err := db.db.QueryContext(ctx, `
			SELECT `+selectColumns+`
			FROM plants p
			JOIN plants_fts fts ON p.id = fts.docid
			WHERE fts.name MATCH ?`, match)
		if err != nil {
			db.logger.Warn("full text search failed, using substring match",
				zap.String("match", match), zap.Error(err))
		} else {
			hits, err := scanPlants(rows)
			rows.Close()
			if err != nil {
				return nil, err
			}
			for _, p := range hits {
				found[p.ID] = p
			}
		}
	}

	for _, term := range terms {
		rows, err := db.db.QueryContext(ctx,
			`SELECT `+selectColumns+` FROM plants p WHERE lower(p.name) LIKE ?`,
			"%"+term+"%")
		if err != nil {
			return nil, fmt.Errorf("failed to search plants: %w", err)
		}
		hits, err := scanPlants(rows)
		rows.Close()
		if err != nil {
			return nil, err
		}
		for _, p := range hits {
			found[p.ID] = p
		}
	}

	out := make([]models.Plant, 0, len(found))
	for _, p := range found {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		a, _ := strconv.Atoi(out[i].ID)
		b, _ := strconv.Atoi(out[j].ID)
		return a < b
	})
	return out, nil
}

// Upsert replaces the plant with the same name (case-insensitive) or inserts a new one.
func (db *Database) Upsert(ctx context.Context, p models.Plant) (models.Plant, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return models.Plant{}, fmt.Errorf("%w: plant name is required", plants.ErrInvalidPlant)
	}
	p.LastUpdated = db.now().Format(TimestampLayout)

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Plant{}, err
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM plants WHERE name = ? COLLATE NOCASE`, p.Name).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		cols, args := writableColumns(p)
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
		result, err := tx.ExecContext(ctx,
			`INSERT INTO plants (`+strings.Join(cols, ", ")+`) VALUES (`+placeholders+`)`, args...)
		if err != nil {
			return models.Plant{}, fmt.Errorf("failed to insert plant: %w", err)
		}
		if id, err = result.LastInsertId(); err != nil {
			return models.Plant{}, err
		}
	case err != nil:
		return models.Plant{}, fmt.Errorf("failed to look up plant: %w", err)
	default:
		cols, args := writableColumns(p)
		sets := make([]string, len(cols))
		for i, c := range cols {
			sets[i] = c + " = ?"
		}
		args = append(args, id)
		if _, err := tx.ExecContext(ctx,
			`UPDATE plants SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...); err != nil {
			return models.Plant{}, fmt.Errorf("failed to update plant: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Plant{}, err
	}
	p.ID = strconv.FormatInt(id, 10)
	db.logger.Info("saved plant", zap.String("id", p.ID), zap.String("name", p.Name))
	return p, nil
}

// UpdateField sets a single column. idOrName is a numeric id or an exact plant name.
func (db *Database) UpdateField(ctx context.Context, idOrName, field, value string) error {
	col, ok := columns[field]
	if !ok || field == models.FieldID || field == models.FieldLastUpdated {
		return fmt.Errorf("%w: %q", plants.ErrUnknownField, field)
	}

	where, key := "name = ? COLLATE NOCASE", any(strings.TrimSpace(idOrName))
	if id, err := strconv.ParseInt(strings.TrimSpace(idOrName), 10, 64); err == nil {
		where, key = "id = ?", id
	}

	result, err := db.db.ExecContext(ctx,
		`UPDATE plants SET `+col+` = ?, last_updated = ? WHERE `+where,
		value, db.now().Format(TimestampLayout), key)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", field, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", plants.ErrNotFound, idOrName)
	}
	return nil
}

func (db *Database) Delete(ctx context.Context, id string) error {
	result, err := db.db.ExecContext(ctx, "DELETE FROM plants WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", plants.ErrNotFound, id)
	}
	return nil
}

func writableColumns(p models.Plant) ([]string, []any) {
	var cols []string
	var args []any
	for _, f := range models.PlantFields {
		if f == models.FieldID {
			continue
		}
		v, _ := p.Field(f)
		cols = append(cols, columns[f])
		args = append(args, v)
	}
	return cols, args
}

func scanPlants(rows *sql.Rows) ([]models.Plant, error) {
	out := make([]models.Plant, 0)
	for rows.Next() {
		var id int64
		values := make([]string, len(models.PlantFields)-1)
		dest := make([]any, 0, len(models.PlantFields))
		dest = append(dest, &id)
		for i := range values {
			dest = append(dest, &values[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan plant: %w", err)
		}

		p := models.Plant{ID: strconv.FormatInt(id, 10)}
		for i, f := range models.PlantFields[1:] {
			p.SetField(f, values[i])
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ftsQuery ORs prefix queries for each term; multi-word terms become phrases.
func ftsQuery(terms []string) string {
	var parts []string
	for _, t := range terms {
		words := strings.FieldsFunc(t, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if len(words) == 0 {
			continue
		}
		if len(words) == 1 {
			parts = append(parts, words[0]+"*")
			continue
		}
		parts = append(parts, `"`+strings.Join(words, " ")+`"`)
	}
	return strings.Join(parts, " OR ")
}
