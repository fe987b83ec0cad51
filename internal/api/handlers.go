package api

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/google/uuid"

	"github.com/banshee-data/occupancy.report/internal/counter"
	"github.com/banshee-data/occupancy.report/internal/db"
	"github.com/banshee-data/occupancy.report/internal/httputil"
	"github.com/banshee-data/occupancy.report/internal/intervallog"
	"github.com/banshee-data/occupancy.report/internal/security"
)

// Upload form defaults, used when the optional fields are absent.
const (
	DefaultIntervalSeconds = 60
	DefaultFPS             = 30.0
	DefaultFrameWidth      = 640
	DefaultFrameHeight     = 480
)

// JobResponse acknowledges a newly queued job.
type JobResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// StatusResponse reports a job's state plus the most recent interval row.
type StatusResponse struct {
	Job        *db.Job           `json:"job"`
	LatestData *db.IntervalCount `json:"latest_data,omitempty"`
}

func (s *Server) root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		httputil.NotFound(w, "not found")
		return
	}
	httputil.WriteJSONOK(w, map[string]string{"message": "occupancy counter API is running"})
}

// startCounting accepts a multipart upload of a detections file plus the
// counting parameters, persists both, and queues the job for the worker.
func (s *Server) startCounting(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid multipart form: %v", err))
		return
	}

	dir := counter.DoorDirection(r.FormValue("door_direction"))
	if _, err := counter.OrientationForDoor(dir); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid configuration: %v", err))
		return
	}

	interval, err := formInt(r, "interval", DefaultIntervalSeconds)
	if err != nil || interval <= 0 {
		httputil.BadRequest(w, "invalid 'interval' parameter")
		return
	}
	fps, err := formFloat(r, "fps", DefaultFPS)
	if err != nil || fps <= 0 {
		httputil.BadRequest(w, "invalid 'fps' parameter")
		return
	}
	frameWidth, err := formInt(r, "frame_width", DefaultFrameWidth)
	if err != nil || frameWidth <= 0 {
		httputil.BadRequest(w, "invalid 'frame_width' parameter")
		return
	}
	frameHeight, err := formInt(r, "frame_height", DefaultFrameHeight)
	if err != nil || frameHeight <= 0 {
		httputil.BadRequest(w, "invalid 'frame_height' parameter")
		return
	}

	upload, header, err := r.FormFile("detections")
	if err != nil {
		httputil.BadRequest(w, "missing 'detections' file")
		return
	}
	defer upload.Close()

	filename, err := security.SanitizeFilename(header.Filename)
	if err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid upload filename: %v", err))
		return
	}

	jobID := uuid.New().String()
	detectionsPath := filepath.Join(s.inputDir, fmt.Sprintf("%s_%s", jobID, filename))
	csvPath := filepath.Join(s.outputDir, fmt.Sprintf("%s_counts.csv", jobID))

	if err := security.ValidatePathWithinDirectory(detectionsPath, s.inputDir); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid upload path: %v", err))
		return
	}

	if err := s.saveUpload(detectionsPath, upload); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to store upload: %v", err))
		return
	}

	job := &db.Job{
		ID:              jobID,
		DetectionsPath:  detectionsPath,
		CSVPath:         csvPath,
		Status:          db.StatusQueued,
		DoorDirection:   string(dir),
		IntervalSeconds: interval,
		FPS:             fps,
		FrameWidth:      frameWidth,
		FrameHeight:     frameHeight,
	}
	if err := s.db.CreateJob(r.Context(), job); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to create job: %v", err))
		return
	}

	if err := s.runner.Enqueue(jobID); err != nil {
		if dberr := s.db.MarkFailed(r.Context(), jobID, err.Error()); dberr != nil {
			httputil.InternalServerError(w, fmt.Sprintf("failed to mark job failed: %v", dberr))
			return
		}
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	httputil.WriteJSONOK(w, JobResponse{
		JobID:   jobID,
		Status:  db.StatusQueued,
		Message: "detections processing started",
	})
}

func (s *Server) saveUpload(path string, src io.Reader) error {
	if err := s.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	dst, err := s.fs.Create(path)
	if err != nil {
		return err
	}
	defer dst.Close()
	_, err = io.Copy(dst, src)
	return err
}

func (s *Server) jobStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/status/")
	if id == "" {
		httputil.BadRequest(w, "missing job id")
		return
	}

	job, err := s.db.Job(r.Context(), id)
	if errors.Is(err, db.ErrJobNotFound) {
		httputil.NotFound(w, "job not found")
		return
	}
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to load job: %v", err))
		return
	}

	latest, err := s.db.LatestIntervalCount(r.Context(), id)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to load latest interval: %v", err))
		return
	}

	httputil.WriteJSONOK(w, StatusResponse{Job: job, LatestData: latest})
}

// csvData returns the job's interval CSV parsed into keyed rows. A job that
// has not emitted any rows yet returns an empty data list, not an error.
func (s *Server) csvData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/csv-data/")
	if id == "" {
		httputil.BadRequest(w, "missing job id")
		return
	}

	job, err := s.db.Job(r.Context(), id)
	if errors.Is(err, db.ErrJobNotFound) {
		httputil.NotFound(w, "job not found")
		return
	}
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to load job: %v", err))
		return
	}

	if job.CSVPath == "" || !s.fs.Exists(job.CSVPath) {
		httputil.WriteJSONOK(w, map[string]interface{}{"data": []map[string]string{}})
		return
	}

	rows, err := s.readCSVRows(job.CSVPath)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("error reading CSV: %v", err))
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{"data": rows})
}

func (s *Server) readCSVRows(path string) ([]map[string]string, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return []map[string]string{}, nil
	}

	header := records[0]
	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(record) {
				row[name] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			httputil.BadRequest(w, "invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	list, err := s.db.ListJobs(r.Context(), limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list jobs: %v", err))
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{"jobs": list})
}

// chart renders the job's interval counts as an HTML line chart.
func (s *Server) chart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/chart/")
	if id == "" {
		httputil.BadRequest(w, "missing job id")
		return
	}

	if _, err := s.db.Job(r.Context(), id); errors.Is(err, db.ErrJobNotFound) {
		httputil.NotFound(w, "job not found")
		return
	} else if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to load job: %v", err))
		return
	}

	counts, err := s.db.IntervalCounts(r.Context(), id)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to load interval counts: %v", err))
		return
	}

	timestamps := make([]string, 0, len(counts))
	total := make([]opts.LineData, 0, len(counts))
	incoming := make([]opts.LineData, 0, len(counts))
	outgoing := make([]opts.LineData, 0, len(counts))
	for _, ic := range counts {
		timestamps = append(timestamps, ic.BucketTime.Format(intervallog.TimestampLayout))
		total = append(total, opts.LineData{Value: ic.Total})
		incoming = append(incoming, opts.LineData{Value: ic.Incoming})
		outgoing = append(outgoing, opts.LineData{Value: ic.Outgoing})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Occupancy Counts", Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Occupancy Counts", Subtitle: fmt.Sprintf("job=%s intervals=%d", id, len(counts))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	line.SetXAxis(timestamps).
		AddSeries("total_present_inside", total).
		AddSeries("incoming", incoming).
		AddSeries("outgoing", outgoing)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := line.Render(w); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
	}
}

func formInt(r *http.Request, key string, def int) (int, error) {
	v := r.FormValue(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func formFloat(r *http.Request, key string, def float64) (float64, error) {
	v := r.FormValue(key)
	if v == "" {
		return def, nil
	}
	return strconv.ParseFloat(v, 64)
}
