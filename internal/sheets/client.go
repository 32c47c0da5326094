// Package sheets stores garden plants in a Google Sheets spreadsheet. The
// first row of the configured range holds the column headers; every other
// row is one plant.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/RichardoC/gardenllm/internal/metrics"
	"github.com/RichardoC/gardenllm/internal/models"
	"github.com/RichardoC/gardenllm/internal/plants"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	DefaultRange             = "Plants!A1:P"
	DefaultRequestsPerMinute = 30

	valueInputOption = "USER_ENTERED"
	timestampLayout  = "2006-01-02 15:04:05"
)

type Config struct {
	SpreadsheetID     string
	Range             string
	CredentialsJSON   string
	CredentialsFile   string
	Endpoint          string // overrides the API endpoint, without authentication
	RequestsPerMinute int
	Location          *time.Location
}

type Client struct {
	svc           *sheets.Service
	spreadsheetID string
	rangeName     string
	sheetName     string
	limiter       *rate.Limiter
	loc           *time.Location
	now           func() time.Time
	logger        *zap.Logger
}

var _ plants.Repository = (*Client)(nil)

type Option func(*Client)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

func New(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("spreadsheet id is required")
	}
	if cfg.Range == "" {
		cfg.Range = DefaultRange
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	var clientOpts []option.ClientOption
	switch {
	case cfg.Endpoint != "":
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	case cfg.CredentialsJSON != "":
		clientOpts = append(clientOpts,
			option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)),
			option.WithScopes(sheets.SpreadsheetsScope))
	case cfg.CredentialsFile != "":
		clientOpts = append(clientOpts,
			option.WithCredentialsFile(cfg.CredentialsFile),
			option.WithScopes(sheets.SpreadsheetsScope))
	}

	svc, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	sheetName, _, _ := strings.Cut(cfg.Range, "!")
	c := &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		rangeName:     cfg.Range,
		sheetName:     sheetName,
		limiter:       rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), cfg.RequestsPerMinute),
		loc:           cfg.Location,
		now:           time.Now,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("sheets rate limit: %w", err)
	}
	return nil
}

// table is the header row plus the data rows of the plant range.
type table struct {
	header []string
	rows   [][]string
}

func (c *Client) read(ctx context.Context) (*table, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.rangeName).Context(ctx).Do()
	metrics.UpstreamRequests.WithLabelValues("sheets", metrics.Status(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", c.rangeName, err)
	}

	t := &table{}
	for i, row := range resp.Values {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = fmt.Sprint(v)
		}
		if i == 0 {
			t.header = cells
			continue
		}
		t.rows = append(t.rows, cells)
	}
	if len(t.header) == 0 {
		t.header = append([]string(nil), models.PlantFields...)
	}
	return t, nil
}

func (t *table) column(field string) int {
	for i, h := range t.header {
		if strings.EqualFold(strings.TrimSpace(h), field) {
			return i
		}
	}
	return -1
}

func (t *table) plant(row []string) models.Plant {
	var p models.Plant
	for i, h := range t.header {
		if i < len(row) {
			p.SetField(strings.TrimSpace(h), row[i])
		}
	}
	return p
}

// find returns the index into rows of the plant with the given id or name.
func (t *table) find(idOrName string) int {
	key := strings.TrimSpace(idOrName)
	idCol, nameCol := t.column(models.FieldID), t.column(models.FieldName)
	if _, err := strconv.Atoi(key); err == nil && idCol >= 0 {
		for i, row := range t.rows {
			if idCol < len(row) && row[idCol] == key {
				return i
			}
		}
		return -1
	}
	if nameCol < 0 {
		return -1
	}
	for i, row := range t.rows {
		if nameCol < len(row) && strings.EqualFold(strings.TrimSpace(row[nameCol]), key) {
			return i
		}
	}
	return -1
}

func (c *Client) All(ctx context.Context) ([]models.Plant, error) {
	t, err := c.read(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Plant, 0, len(t.rows))
	for _, row := range t.rows {
		p := t.plant(row)
		if strings.TrimSpace(p.Name) == "" {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (c *Client) Find(ctx context.Context, names ...string) ([]models.Plant, error) {
	all, err := c.All(ctx)
	if err != nil {
		return nil, err
	}
	return plants.Filter(all, names...), nil
}

// Upsert rewrites the row of the plant with the same name, or appends a new row.
func (c *Client) Upsert(ctx context.Context, p models.Plant) (models.Plant, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return models.Plant{}, fmt.Errorf("%w: plant name is required", plants.ErrInvalidPlant)
	}

	t, err := c.read(ctx)
	if err != nil {
		return models.Plant{}, err
	}

	idx := t.find(p.Name)
	if idx >= 0 {
		existing := t.plant(t.rows[idx])
		p.ID = existing.ID
	} else {
		p.ID = strconv.Itoa(len(t.rows) + 1)
	}
	p.LastUpdated = c.now().In(c.loc).Format(timestampLayout)

	row := make([]interface{}, len(t.header))
	for i, h := range t.header {
		v, _ := p.Field(strings.TrimSpace(h))
		row[i] = cellValue(strings.TrimSpace(h), v)
	}
	body := &sheets.ValueRange{Values: [][]interface{}{row}}

	if err := c.wait(ctx); err != nil {
		return models.Plant{}, err
	}
	if idx >= 0 {
		// +2: one for the header row, one for 1-based rows
		rowNum := idx + 2
		rng := fmt.Sprintf("%s!A%d:%s%d", c.sheetName, rowNum, ColumnLetter(len(t.header)-1), rowNum)
		_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, body).
			ValueInputOption(valueInputOption).Context(ctx).Do()
	} else {
		_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.rangeName, body).
			ValueInputOption(valueInputOption).InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	}
	metrics.UpstreamRequests.WithLabelValues("sheets", metrics.Status(err)).Inc()
	if err != nil {
		return models.Plant{}, fmt.Errorf("failed to write plant %s: %w", p.Name, err)
	}

	c.logger.Info("saved plant to sheet",
		zap.String("id", p.ID),
		zap.String("name", p.Name),
		zap.Bool("updated", idx >= 0))
	return p, nil
}

// UpdateField writes one cell of the plant identified by id or name.
func (c *Client) UpdateField(ctx context.Context, idOrName, field, value string) error {
	if _, ok := (models.Plant{}).Field(field); !ok || field == models.FieldID {
		return fmt.Errorf("%w: %q", plants.ErrUnknownField, field)
	}

	t, err := c.read(ctx)
	if err != nil {
		return err
	}
	col := t.column(field)
	if col < 0 {
		return fmt.Errorf("%w: %q is not a sheet column", plants.ErrUnknownField, field)
	}
	idx := t.find(idOrName)
	if idx < 0 {
		return fmt.Errorf("%w: %s", plants.ErrNotFound, idOrName)
	}

	if err := c.wait(ctx); err != nil {
		return err
	}
	rng := fmt.Sprintf("%s!%s%d", c.sheetName, ColumnLetter(col), idx+2)
	body := &sheets.ValueRange{Values: [][]interface{}{{cellValue(field, value)}}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, body).
		ValueInputOption(valueInputOption).Context(ctx).Do()
	metrics.UpstreamRequests.WithLabelValues("sheets", metrics.Status(err)).Inc()
	if err != nil {
		return fmt.Errorf("failed to update %s at %s: %w", field, rng, err)
	}
	c.logger.Info("updated plant field", zap.String("range", rng), zap.String("field", field))
	return nil
}

// cellValue renders photo URLs as an IMAGE formula so the sheet shows the picture.
func cellValue(field, value string) string {
	if field == models.FieldPhotoURL && value != "" && !strings.HasPrefix(value, "=") {
		return fmt.Sprintf(`=IMAGE("%s")`, value)
	}
	return value
}

// ColumnLetter converts a zero-based column index to A1 notation (0 → A, 26 → AA).
func ColumnLetter(idx int) string {
	var b []byte
	for idx >= 0 {
		b = append([]byte{byte('A' + idx%26)}, b...)
		idx = idx/26 - 1
	}
	return string(b)
}
