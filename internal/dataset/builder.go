// Package dataset implements the Dataset Builder: it cleans and joins the
// raw transactional, store-attribute, and external covariate sources into
// one flat table keyed by entity and date, and writes it to the fixed
// processed location shared by all subsequent pipeline runs.
package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"salesfc/internal/config"
	apperrors "salesfc/internal/errors"
	"salesfc/pkg/contracts/domain"
)

// Source file names. Raw and store files live in the raw directory, the oil
// covariate in the external directory, and the ingested output in the
// processed directory.
const (
	RawFile       = "train.csv"
	StoresFile    = "stores.csv"
	OilFile       = "oil.csv"
	ProcessedFile = "train.csv"
)

// categoricalFields are the string-valued columns a joined row carries.
// Grouping and categorical-encoding configuration must name columns from
// this set (or the numeric covariate columns, which cannot be grouped on).
var categoricalFields = []string{"store_nbr", "family", "city", "state", "type", "cluster"}

// row is one joined (entity, date) record before encoding.
type row struct {
	fields      map[string]string // categorical source values
	date        time.Time
	sales       float64
	onpromotion float64
	oil         float64
	oilKnown    bool
}

// Builder constructs the ingested dataset from the raw sources.
type Builder struct {
	cfg    config.DatasetConfig
	paths  config.PathsConfig
	logger *slog.Logger
}

// NewBuilder creates a dataset builder.
func NewBuilder(cfg config.DatasetConfig, paths config.PathsConfig, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{cfg: cfg, paths: paths, logger: logger}
}

// Build runs the full ingestion: filter, join, gap-fill, exclusion rules,
// entity identifier construction, categorical encoding, and the final CSV
// write. It returns the path of the written table.
func (b *Builder) Build(ctx context.Context) (string, error) {
	const op = "dataset.build"

	for _, col := range b.cfg.GroupBy {
		if !contains(categoricalFields, col) {
			return "", apperrors.Ef(apperrors.KindConfig, op, "unknown grouping column %q", col)
		}
	}
	for _, col := range b.cfg.CategoricalCols {
		if !contains(categoricalFields, col) {
			return "", apperrors.Ef(apperrors.KindConfig, op, "unknown categorical column %q", col)
		}
	}

	b.logger.InfoContext(ctx, "building dataset from raw sources",
		slog.String("raw_dir", b.paths.RawDir),
		slog.String("external_dir", b.paths.ExternalDir))

	rows, err := b.readRaw(filepath.Join(b.paths.RawDir, RawFile))
	if err != nil {
		return "", apperrors.E(apperrors.KindInput, op, err)
	}
	stores, err := b.readStores(filepath.Join(b.paths.RawDir, StoresFile))
	if err != nil {
		return "", apperrors.E(apperrors.KindInput, op, err)
	}
	oil, err := b.readOil(filepath.Join(b.paths.ExternalDir, OilFile))
	if err != nil {
		return "", apperrors.E(apperrors.KindInput, op, err)
	}

	// Pre-join fill so the covariate series itself has no gaps.
	fillOil(oil, b.cfg.FillMethod)

	keep := toSet(b.cfg.FilterFamilies)
	var joined []*row
	for _, r := range rows {
		if !keep[r.fields["family"]] {
			continue
		}
		if attrs, ok := stores[r.fields["store_nbr"]]; ok {
			for k, v := range attrs {
				r.fields[k] = v
			}
		}
		if v, ok := lookupOil(oil, r.date); ok {
			r.oil = v
			r.oilKnown = true
		}
		joined = append(joined, r)
	}

	sort.SliceStable(joined, func(i, j int) bool { return joined[i].date.Before(joined[j].date) })

	// Post-join fill: dates outside the covariate range inherit the nearest
	// known value in date order.
	fillJoinedOil(joined, b.cfg.FillMethod)

	joined = applyExclusions(joined, b.cfg.Exclusions)
	if len(joined) == 0 {
		return "", apperrors.Ef(apperrors.KindData, op, "no rows survived filtering and exclusions")
	}

	// Entity identifier from the raw string values, before any encoding, so
	// the same composite key always yields the same id across runs.
	for _, r := range joined {
		parts := make([]string, len(b.cfg.GroupBy))
		for i, col := range b.cfg.GroupBy {
			parts[i] = r.fields[col]
		}
		r.fields["id"] = strings.Join(parts, "_")
	}

	encodings := encodeCategoricals(joined, b.cfg.CategoricalCols)

	outPath := filepath.Join(b.paths.ProcessedDir, ProcessedFile)
	if err := b.write(outPath, joined, encodings); err != nil {
		return "", apperrors.E(apperrors.KindInput, op, err)
	}

	b.logger.InfoContext(ctx, "dataset written",
		slog.String("path", outPath),
		slog.Int("rows", len(joined)))
	return outPath, nil
}

// readRaw reads the transactional source file.
func (b *Builder) readRaw(path string) ([]*row, error) {
	records, header, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	idx, err := columnIndex(header, "store_nbr", "family", "date", "sales", "onpromotion")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var rows []*row
	for i, rec := range records {
		date, err := time.Parse(domain.DateLayout, rec[idx["date"]])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad date %q", path, i+2, rec[idx["date"]])
		}
		sales, err := strconv.ParseFloat(rec[idx["sales"]], 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad sales %q", path, i+2, rec[idx["sales"]])
		}
		promo, err := strconv.ParseFloat(rec[idx["onpromotion"]], 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad onpromotion %q", path, i+2, rec[idx["onpromotion"]])
		}

		rows = append(rows, &row{
			fields: map[string]string{
				"store_nbr": rec[idx["store_nbr"]],
				"family":    rec[idx["family"]],
			},
			date:        domain.Day(date),
			sales:       sales,
			onpromotion: promo,
		})
	}
	return rows, nil
}

// readStores reads the store-attribute table keyed by store number.
func (b *Builder) readStores(path string) (map[string]map[string]string, error) {
	records, header, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	idx, err := columnIndex(header, "store_nbr", "city", "state", "type", "cluster")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	stores := make(map[string]map[string]string)
	for _, rec := range records {
		stores[rec[idx["store_nbr"]]] = map[string]string{
			"city":    rec[idx["city"]],
			"state":   rec[idx["state"]],
			"type":    rec[idx["type"]],
			"cluster": rec[idx["cluster"]],
		}
	}
	return stores, nil
}

// oilPoint is one dated covariate observation; Known is false where the
// source left the value blank.
type oilPoint struct {
	date  time.Time
	value float64
	known bool
}

// readOil reads the external covariate file in date order.
func (b *Builder) readOil(path string) ([]oilPoint, error) {
	records, header, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	idx, err := columnIndex(header, "date", "dcoilwtico")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var points []oilPoint
	for i, rec := range records {
		date, err := time.Parse(domain.DateLayout, rec[idx["date"]])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad date %q", path, i+2, rec[idx["date"]])
		}
		p := oilPoint{date: domain.Day(date)}
		if raw := strings.TrimSpace(rec[idx["dcoilwtico"]]); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("%s row %d: bad dcoilwtico %q", path, i+2, raw)
			}
			p.value = v
			p.known = true
		}
		points = append(points, p)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].date.Before(points[j].date) })
	return points, nil
}

// fillOil resolves unknown covariate values in place. "ffill" carries the
// previous known value forward, then backward-fills any leading gap;
// "bfill" does the reverse.
func fillOil(points []oilPoint, method string) {
	forward := func() {
		var last float64
		var seen bool
		for i := range points {
			if points[i].known {
				last = points[i].value
				seen = true
			} else if seen {
				points[i].value = last
				points[i].known = true
			}
		}
	}
	backward := func() {
		var next float64
		var seen bool
		for i := len(points) - 1; i >= 0; i-- {
			if points[i].known {
				next = points[i].value
				seen = true
			} else if seen {
				points[i].value = next
				points[i].known = true
			}
		}
	}
	if method == "bfill" {
		backward()
		forward()
	} else {
		forward()
		backward()
	}
}

// lookupOil finds the covariate value for an exact date.
func lookupOil(points []oilPoint, date time.Time) (float64, bool) {
	i := sort.Search(len(points), func(i int) bool { return !points[i].date.Before(date) })
	if i < len(points) && points[i].date.Equal(date) && points[i].known {
		return points[i].value, true
	}
	return 0, false
}

// fillJoinedOil applies the gap-fill policy to rows whose date had no
// covariate observation at all. Rows must already be sorted by date.
func fillJoinedOil(rows []*row, method string) {
	forward := func() {
		var last float64
		var seen bool
		for _, r := range rows {
			if r.oilKnown {
				last = r.oil
				seen = true
			} else if seen {
				r.oil = last
				r.oilKnown = true
			}
		}
	}
	backward := func() {
		var next float64
		var seen bool
		for i := len(rows) - 1; i >= 0; i-- {
			if rows[i].oilKnown {
				next = rows[i].oil
				seen = true
			} else if seen {
				rows[i].oil = next
				rows[i].oilKnown = true
			}
		}
	}
	if method == "bfill" {
		backward()
		forward()
	} else {
		forward()
		backward()
	}
}

// applyExclusions drops rows matching any configured anomaly rule: family in
// the rule's set and date on or before the rule's cutoff.
func applyExclusions(rows []*row, rules []config.ExclusionRule) []*row {
	if len(rules) == 0 {
		return rows
	}
	kept := rows[:0]
	for _, r := range rows {
		drop := false
		for _, rule := range rules {
			cutoff, err := time.Parse(domain.DateLayout, rule.BeforeDate)
			if err != nil {
				continue // validated at config load
			}
			if contains(rule.Families, r.fields["family"]) && !r.date.After(domain.Day(cutoff)) {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, r)
		}
	}
	return kept
}

// encodeCategoricals assigns per-run integer codes to the configured columns
// in first-seen order. The encoding is opaque to downstream consumers and is
// not persisted across runs.
func encodeCategoricals(rows []*row, cols []string) map[string]map[string]int {
	encodings := make(map[string]map[string]int, len(cols))
	for _, col := range cols {
		codes := make(map[string]int)
		for _, r := range rows {
			v := r.fields[col]
			if _, ok := codes[v]; !ok {
				codes[v] = len(codes)
			}
		}
		encodings[col] = codes
	}
	return encodings
}

// outputColumns is the processed table schema, in write order.
var outputColumns = []string{"id", "date", "store_nbr", "family", "city", "state", "type", "cluster", "sales", "onpromotion", "dcoilwtico"}

// write emits the processed CSV sorted by date.
func (b *Builder) write(path string, rows []*row, encodings map[string]map[string]int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(outputColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, r := range rows {
		record := make([]string, 0, len(outputColumns))
		for _, col := range outputColumns {
			switch col {
			case "id":
				record = append(record, r.fields["id"])
			case "date":
				record = append(record, r.date.Format(domain.DateLayout))
			case "sales":
				record = append(record, strconv.FormatFloat(r.sales, 'f', -1, 64))
			case "onpromotion":
				record = append(record, strconv.FormatFloat(r.onpromotion, 'f', -1, 64))
			case "dcoilwtico":
				record = append(record, strconv.FormatFloat(r.oil, 'f', -1, 64))
			default:
				if codes, ok := encodings[col]; ok {
					record = append(record, strconv.Itoa(codes[r.fields[col]]))
				} else {
					record = append(record, r.fields[col])
				}
			}
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	return writer.Error()
}

// readCSV reads a whole CSV file and returns its data records and header.
func readCSV(path string) ([][]string, []string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	all, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("%s is empty", path)
	}
	return all[1:], all[0], nil
}

// columnIndex maps required column names to their positions in the header.
func columnIndex(header []string, required ...string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	for _, name := range required {
		if _, ok := idx[name]; !ok {
			return nil, fmt.Errorf("missing required column %q", name)
		}
	}
	return idx, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func toSet(list []string) map[string]bool {
	set := make(map[string]bool, len(list))
	for _, s := range list {
		set[s] = true
	}
	return set
}
