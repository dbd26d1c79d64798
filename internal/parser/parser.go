package parser

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"autocare-monitor/internal/models"
)

// maxSpeed is the sanity ceiling for a personal vehicle, in m/s (~300 km/h)
const maxSpeed = 85.0

// Parser handles parsing of recorded trip sample files
type Parser struct {
	format string
	log    *slog.Logger
}

// NewParser creates a new parser with the specified format
func NewParser(format string, log *slog.Logger) *Parser {
	return &Parser{format: strings.ToLower(format), log: log}
}

// FormatFromPath guesses the format from a file extension
func FormatFromPath(path string) string {
	switch {
	case strings.HasSuffix(path, ".csv"):
		return "csv"
	case strings.HasSuffix(path, ".json"), strings.HasSuffix(path, ".jsonl"), strings.HasSuffix(path, ".ndjson"):
		return "json"
	default:
		return "log"
	}
}

// ParseFile parses a sample file
func (p *Parser) ParseFile(filename string) ([]models.RawSample, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return p.Parse(file)
}

// Parse reads samples in the parser's format. Malformed rows are logged and skipped.
func (p *Parser) Parse(r io.Reader) ([]models.RawSample, error) {
	switch p.format {
	case "csv":
		return p.parseCSV(r)
	case "json":
		return p.parseJSON(r)
	case "log":
		return p.parseLog(r)
	default:
		return nil, fmt.Errorf("unsupported format: %s", p.format)
	}
}

func (p *Parser) skip(line int, err error) {
	p.log.Warn("skipping sample", "format", p.format, "line", line, "error", err)
}

// parseCSV parses CSV with a header row; columns are matched by name
func (p *Parser) parseCSV(r io.Reader) ([]models.RawSample, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	indices := make(map[string]int)
	for i, h := range header {
		indices[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := indices["timestamp"]; !ok {
		return nil, fmt.Errorf("header has no timestamp column")
	}

	var results []models.RawSample
	lineNum := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		lineNum++
		if err != nil {
			return results, fmt.Errorf("error at line %d: %w", lineNum, err)
		}

		s, err := recordToSample(record, indices)
		if err != nil {
			p.skip(lineNum, err)
			continue
		}
		results = append(results, s)
	}

	return results, nil
}

func recordToSample(record []string, indices map[string]int) (models.RawSample, error) {
	var s models.RawSample
	var err error

	getValue := func(key string) string {
		if idx, ok := indices[key]; ok && idx < len(record) {
			return strings.TrimSpace(record[idx])
		}
		return ""
	}

	s.VehicleID = getValue("vehicle_id")

	s.Timestamp, err = parseTimestamp(getValue("timestamp"))
	if err != nil {
		return s, fmt.Errorf("invalid timestamp: %w", err)
	}

	fields := []struct {
		key string
		dst *float64
	}{
		{"speed", &s.Speed},
		{"accel_x", &s.AccelX},
		{"accel_y", &s.AccelY},
		{"accel_z", &s.AccelZ},
		{"gyro_x", &s.GyroX},
		{"gyro_y", &s.GyroY},
		{"gyro_z", &s.GyroZ},
	}
	for _, f := range fields {
		v := getValue(f.key)
		if v == "" {
			continue
		}
		if *f.dst, err = strconv.ParseFloat(v, 64); err != nil {
			return s, fmt.Errorf("invalid %s: %q", f.key, v)
		}
	}

	return s, nil
}

// parseJSON accepts a JSON array or newline-delimited objects
func (p *Parser) parseJSON(r io.Reader) ([]models.RawSample, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var results []models.RawSample
		if err := json.Unmarshal(trimmed, &results); err == nil {
			return results, nil
		}
	}

	return p.parseJSONLines(bytes.NewReader(data))
}

func (p *Parser) parseJSONLines(r io.Reader) ([]models.RawSample, error) {
	var results []models.RawSample
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line == "[" || line == "]" {
			continue
		}

		line = strings.TrimSuffix(line, ",")

		var s models.RawSample
		if err := json.Unmarshal([]byte(line), &s); err != nil {
			p.skip(lineNum, err)
			continue
		}
		results = append(results, s)
	}

	return results, scanner.Err()
}

// parseLog parses the pipe format:
// timestamp|vehicle_id|speed|ax,ay,az|gx,gy,gz
// The motion groups are optional.
func (p *Parser) parseLog(r io.Reader) ([]models.RawSample, error) {
	var results []models.RawSample
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, "|")
		if len(parts) < 3 {
			p.skip(lineNum, fmt.Errorf("insufficient fields"))
			continue
		}

		var s models.RawSample
		var err error

		if s.Timestamp, err = parseTimestamp(strings.TrimSpace(parts[0])); err != nil {
			p.skip(lineNum, err)
			continue
		}
		s.VehicleID = strings.TrimSpace(parts[1])
		if s.Speed, err = strconv.ParseFloat(strings.TrimSpace(parts[2]), 64); err != nil {
			p.skip(lineNum, fmt.Errorf("invalid speed: %q", parts[2]))
			continue
		}
		if len(parts) > 3 {
			s.AccelX, s.AccelY, s.AccelZ = parseTriple(parts[3])
		}
		if len(parts) > 4 {
			s.GyroX, s.GyroY, s.GyroZ = parseTriple(parts[4])
		}

		results = append(results, s)
	}

	return results, scanner.Err()
}

func parseTriple(s string) (x, y, z float64) {
	v := strings.Split(s, ",")
	if len(v) != 3 {
		return 0, 0, 0
	}
	x, _ = strconv.ParseFloat(strings.TrimSpace(v[0]), 64)
	y, _ = strconv.ParseFloat(strings.TrimSpace(v[1]), 64)
	z, _ = strconv.ParseFloat(strings.TrimSpace(v[2]), 64)
	return x, y, z
}

// parseTimestamp tries multiple timestamp formats; results are UTC
func parseTimestamp(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.000",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
		"2006-01-02 15:04:05",
		"2006/01/02 15:04:05",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC(), nil
		}
	}

	// Unix seconds or milliseconds
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil {
		if ts > 1e11 {
			return time.UnixMilli(ts).UTC(), nil
		}
		return time.Unix(ts, 0).UTC(), nil
	}

	return time.Time{}, fmt.Errorf("unable to parse timestamp: %q", s)
}

// ValidateSample returns every problem found with a sample
func ValidateSample(s *models.RawSample) []string {
	var errors []string

	if s.VehicleID == "" {
		errors = append(errors, "vehicle_id is required")
	}
	if s.Timestamp.IsZero() {
		errors = append(errors, "timestamp is required")
	}
	if math.IsNaN(s.Speed) || math.IsInf(s.Speed, 0) {
		errors = append(errors, "speed must be a finite number")
	} else if s.Speed < 0 {
		errors = append(errors, "speed cannot be negative")
	} else if s.Speed > maxSpeed {
		errors = append(errors, fmt.Sprintf("speed cannot exceed %.0f m/s", maxSpeed))
	}
	for _, v := range []float64{s.AccelX, s.AccelY, s.AccelZ, s.GyroX, s.GyroY, s.GyroZ} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			errors = append(errors, "motion readings must be finite numbers")
			break
		}
	}

	return errors
}
