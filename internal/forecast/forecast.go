// Package forecast predicts next-day hourly incoming and outgoing counts
// from an interval counts CSV. Counts are resampled to hourly totals,
// filtered to working hours, and fitted with a least-squares regression over
// calendar features. Sparse inputs fall back to a seasonal average.
package forecast

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/occupancy.report/internal/fsutil"
	"github.com/banshee-data/occupancy.report/internal/intervallog"
)

// MinTrainingRows is the smallest working-hour sample the regression will
// fit; below it the seasonal fallback is used.
const MinTrainingRows = 10

// seasonalPeriod is the fallback's repeat length in hours.
const seasonalPeriod = 24

// window is a half-open [Start, End) range of hours within a day.
type window struct {
	Start int
	End   int
}

// workingHours maps each weekday to the site's staffed hours.
var workingHours = map[time.Weekday]window{
	time.Monday:    {5, 21},
	time.Tuesday:   {5, 21},
	time.Wednesday: {5, 21},
	time.Thursday:  {5, 21},
	time.Friday:    {7, 21},
	time.Saturday:  {6, 19},
	time.Sunday:    {6, 19},
}

// HourlyRow is one hour of summed incoming and outgoing counts.
type HourlyRow struct {
	Timestamp time.Time
	Incoming  float64
	Outgoing  float64
}

// Row is one forecast hour with rounded predictions.
type Row struct {
	Timestamp time.Time `json:"timestamp"`
	Incoming  int       `json:"incoming_last_interval"`
	Outgoing  int       `json:"outgoing_last_interval"`
}

// IsWorkingHour reports whether t falls inside the site's staffed hours.
func IsWorkingHour(t time.Time) bool {
	w := workingHours[t.Weekday()]
	return t.Hour() >= w.Start && t.Hour() < w.End
}

// NextDayWorkingHours lists every working hour of the calendar day after
// last, on hour boundaries.
func NextDayWorkingHours(last time.Time) []time.Time {
	next := time.Date(last.Year(), last.Month(), last.Day()+1, 0, 0, 0, 0, last.Location())

	var hours []time.Time
	for h := 0; h < 24; h++ {
		ts := next.Add(time.Duration(h) * time.Hour)
		if IsWorkingHour(ts) {
			hours = append(hours, ts)
		}
	}
	return hours
}

// ReadCounts parses an interval counts CSV produced by the counting
// pipeline, keeping only the timestamp and delta columns.
func ReadCounts(filesystem fsutil.FileSystem, path string) ([]HourlyRow, error) {
	f, err := filesystem.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open counts file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read counts header: %w", err)
	}

	tsCol, inCol, outCol := -1, -1, -1
	for i, name := range header {
		switch name {
		case "timestamp":
			tsCol = i
		case "incoming_last_interval":
			inCol = i
		case "outgoing_last_interval":
			outCol = i
		}
	}
	if tsCol < 0 || inCol < 0 || outCol < 0 {
		return nil, fmt.Errorf("counts file %s is missing required columns", path)
	}

	var rows []HourlyRow
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("counts file %s line %d: %w", path, line, err)
		}

		ts, err := time.Parse(intervallog.TimestampLayout, record[tsCol])
		if err != nil {
			return nil, fmt.Errorf("counts file %s line %d: bad timestamp: %w", path, line, err)
		}
		incoming, err := strconv.ParseFloat(record[inCol], 64)
		if err != nil {
			return nil, fmt.Errorf("counts file %s line %d: bad incoming count: %w", path, line, err)
		}
		outgoing, err := strconv.ParseFloat(record[outCol], 64)
		if err != nil {
			return nil, fmt.Errorf("counts file %s line %d: bad outgoing count: %w", path, line, err)
		}

		rows = append(rows, HourlyRow{Timestamp: ts, Incoming: incoming, Outgoing: outgoing})
	}
	return rows, nil
}

// ResampleHourly sums interval rows into hour buckets, in timestamp order.
func ResampleHourly(rows []HourlyRow) []HourlyRow {
	var out []HourlyRow
	index := make(map[time.Time]int)
	for _, r := range rows {
		bucket := r.Timestamp.Truncate(time.Hour)
		i, ok := index[bucket]
		if !ok {
			i = len(out)
			index[bucket] = i
			out = append(out, HourlyRow{Timestamp: bucket})
		}
		out[i].Incoming += r.Incoming
		out[i].Outgoing += r.Outgoing
	}
	return out
}

// FilterWorkingHours drops rows outside staffed hours.
func FilterWorkingHours(rows []HourlyRow) []HourlyRow {
	var out []HourlyRow
	for _, r := range rows {
		if IsWorkingHour(r.Timestamp) {
			out = append(out, r)
		}
	}
	return out
}

// Forecast produces next-day predictions from raw interval rows. It returns
// an error when the input holds no working-hour data at all.
func Forecast(rows []HourlyRow) ([]Row, error) {
	working := FilterWorkingHours(ResampleHourly(rows))
	if len(working) == 0 {
		return nil, errors.New("no working-hour data to forecast from")
	}

	last := working[len(working)-1].Timestamp
	hours := NextDayWorkingHours(last)

	incoming := predictColumn(working, hours, func(r HourlyRow) float64 { return r.Incoming })
	outgoing := predictColumn(working, hours, func(r HourlyRow) float64 { return r.Outgoing })

	out := make([]Row, len(hours))
	for i, ts := range hours {
		out[i] = Row{
			Timestamp: ts,
			Incoming:  int(math.Round(math.Max(incoming[i], 0))),
			Outgoing:  int(math.Round(math.Max(outgoing[i], 0))),
		}
	}
	return out, nil
}

// predictColumn fits one count column and evaluates it at the forecast
// hours, falling back to the seasonal average on sparse or degenerate data.
func predictColumn(working []HourlyRow, hours []time.Time, value func(HourlyRow) float64) []float64 {
	series := make([]float64, len(working))
	for i, r := range working {
		series[i] = value(r)
	}

	if len(working) < MinTrainingRows {
		return seasonalFallback(series, len(hours))
	}

	coef, err := fitLeastSquares(working, series)
	if err != nil {
		return seasonalFallback(series, len(hours))
	}

	out := make([]float64, len(hours))
	for i, ts := range hours {
		out[i] = evaluate(coef, ts)
	}
	return out
}

// featureRow maps a timestamp to the regression features: intercept, day of
// month, hour, day of week (Monday=0), and a weekend flag.
func featureRow(ts time.Time) []float64 {
	dayOfWeek := (int(ts.Weekday()) + 6) % 7
	isWeekend := 0.0
	if dayOfWeek >= 5 {
		isWeekend = 1.0
	}
	return []float64{1, float64(ts.Day()), float64(ts.Hour()), float64(dayOfWeek), isWeekend}
}

func fitLeastSquares(working []HourlyRow, series []float64) (*mat.VecDense, error) {
	cols := len(featureRow(working[0].Timestamp))
	x := mat.NewDense(len(working), cols, nil)
	for i, r := range working {
		x.SetRow(i, featureRow(r.Timestamp))
	}
	y := mat.NewVecDense(len(series), series)

	var coef mat.VecDense
	if err := coef.SolveVec(x, y); err != nil {
		return nil, fmt.Errorf("least-squares fit failed: %w", err)
	}
	return &coef, nil
}

func evaluate(coef *mat.VecDense, ts time.Time) float64 {
	features := featureRow(ts)
	sum := 0.0
	for i, f := range features {
		sum += coef.AtVec(i) * f
	}
	return sum
}

// seasonalFallback tiles the last day of observations across the forecast
// window, or repeats the overall mean when less than a day is available.
func seasonalFallback(series []float64, n int) []float64 {
	out := make([]float64, n)
	if len(series) >= seasonalPeriod {
		last := series[len(series)-seasonalPeriod:]
		for i := range out {
			out[i] = math.Max(last[i%seasonalPeriod], 0)
		}
		return out
	}

	mean := 0.0
	for _, v := range series {
		mean += v
	}
	if len(series) > 0 {
		mean /= float64(len(series))
	}
	for i := range out {
		out[i] = math.Max(mean, 0)
	}
	return out
}

// WriteForecast writes the prediction rows as CSV.
func WriteForecast(filesystem fsutil.FileSystem, path string, rows []Row) error {
	f, err := filesystem.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create forecast file: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write([]string{"timestamp", "incoming_last_interval", "outgoing_last_interval"}); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			r.Timestamp.Format(intervallog.TimestampLayout),
			strconv.Itoa(r.Incoming),
			strconv.Itoa(r.Outgoing),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
