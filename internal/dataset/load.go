package dataset

import (
	"fmt"
	"strconv"
	"time"

	apperrors "salesfc/internal/errors"
	"salesfc/pkg/contracts/domain"
)

// LoadProcessed reads the ingested table back into memory. Every column
// except id and date must be numeric; id and date become the table keys.
func LoadProcessed(path string) (*domain.Table, error) {
	const op = "dataset.load"

	records, header, err := readCSV(path)
	if err != nil {
		return nil, apperrors.E(apperrors.KindInput, op, err)
	}
	idx, err := columnIndex(header, "id", "date")
	if err != nil {
		return nil, apperrors.E(apperrors.KindInput, op, fmt.Errorf("%s: %w", path, err))
	}

	table := &domain.Table{}
	for _, name := range header {
		if name != "id" && name != "date" {
			table.Columns = append(table.Columns, name)
		}
	}

	for i, rec := range records {
		date, err := time.Parse(domain.DateLayout, rec[idx["date"]])
		if err != nil {
			return nil, apperrors.Ef(apperrors.KindInput, op, "%s row %d: bad date %q", path, i+2, rec[idx["date"]])
		}
		obs := domain.Observation{
			ID:     rec[idx["id"]],
			Date:   domain.Day(date),
			Values: make(map[string]float64, len(table.Columns)),
		}
		for j, name := range header {
			if name == "id" || name == "date" {
				continue
			}
			v, err := strconv.ParseFloat(rec[j], 64)
			if err != nil {
				return nil, apperrors.Ef(apperrors.KindInput, op, "%s row %d: non-numeric %s %q", path, i+2, name, rec[j])
			}
			obs.Values[name] = v
		}
		table.Rows = append(table.Rows, obs)
	}

	return table, nil
}
