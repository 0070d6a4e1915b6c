package ledger

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/safer-cli/internal/model"
)

// ReadRows loads every data row of the result table at path, in file order.
// The header row is skipped; rows with a non-numeric identifier are
// rejected.
func ReadRows(path string) ([]model.LedgerRow, error) {
	var (
		raw [][]string
		err error
	)
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		raw, err = readCSV(path)
	} else {
		raw, err = readXLSX(path)
	}
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}

	rows := make([]model.LedgerRow, 0, len(raw)-1)
	for i, cells := range raw[1:] {
		if len(cells) == 0 || (len(cells) == 1 && cells[0] == "") {
			continue
		}
		row, err := parseRow(cells)
		if err != nil {
			return nil, eris.Wrapf(err, "ledger: row %d", i+2)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadHeader returns the first row of the table.
func ReadHeader(path string) ([]string, error) {
	var (
		raw [][]string
		err error
	)
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		raw, err = readCSV(path)
	} else {
		raw, err = readXLSX(path)
	}
	if err != nil || len(raw) == 0 {
		return nil, err
	}
	return raw[0], nil
}

func parseRow(cells []string) (model.LedgerRow, error) {
	get := func(i int) string {
		if i < len(cells) {
			return cells[i]
		}
		return model.Unavailable
	}

	id, err := strconv.Atoi(strings.TrimSpace(get(0)))
	if err != nil {
		return model.LedgerRow{}, eris.Wrapf(err, "parse identifier %q", get(0))
	}
	return model.LedgerRow{
		Identifier: id,
		Record: model.CarrierRecord{
			LegalName:          get(1),
			RegistrationNumber: get(2),
			Address:            get(3),
			Telephone:          get(4),
			Email:              get(5),
		},
		Followup: model.FollowupStatus(get(6)),
	}, nil
}
