package cli

import (
	"io"

	"github.com/gocarina/gocsv"

	"bullion-bell/internal/models"
)

// csvRecord is one exported calendar row. Null values export as empty cells.
type csvRecord struct {
	ID         string `csv:"id"`
	Date       string `csv:"date"`
	Time       string `csv:"time"`
	Zone       string `csv:"zone"`
	Currency   string `csv:"currency"`
	Importance string `csv:"importance"`
	Event      string `csv:"event"`
	Actual     string `csv:"actual"`
	Forecast   string `csv:"forecast"`
	Previous   string `csv:"previous"`
}

func writeCSV(w io.Writer, records []models.EventRecord) error {
	rows := make([]*csvRecord, 0, len(records))
	for _, r := range records {
		rows = append(rows, &csvRecord{
			ID:         string(r.ID),
			Date:       r.Date,
			Time:       r.ClockTime(),
			Zone:       r.Zone,
			Currency:   r.CurrencyCode(),
			Importance: string(r.Importance),
			Event:      r.Event,
			Actual:     r.Actual.String(),
			Forecast:   r.Forecast.String(),
			Previous:   r.Previous.String(),
		})
	}
	return gocsv.Marshal(&rows, w)
}
