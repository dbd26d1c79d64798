package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"strconv"
	"time"

	"autocare-monitor/internal/models"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat/distuv"
)

// tripProfile drives the synthetic speed trace
type tripProfile struct {
	cruise     float64 // m/s
	aggression float64 // 0..1, chance weighting for harsh manoeuvres
	noise      distuv.Normal
	rng        *rand.Rand
}

// synthesize produces a trip of samples spaced interval apart: pull away,
// cruise with the odd harsh manoeuvre, then come to a stop.
func (p *tripProfile) synthesize(vehicleID string, start time.Time, duration, interval time.Duration) []models.RawSample {
	n := int(duration / interval)
	if n < 2 {
		n = 2
	}
	dt := interval.Seconds()
	rampDown := n - int(20/dt)

	samples := make([]models.RawSample, 0, n)
	speed := 0.0
	for i := 0; i < n; i++ {
		target := p.cruise
		if i >= rampDown {
			target = 0
		}

		accel := (target - speed) * 0.2
		switch r := p.rng.Float64(); {
		case i < rampDown && r < p.aggression*0.01:
			accel = -4.0 // hard brake
		case i < rampDown && r < p.aggression*0.02 && speed > 2:
			accel = 3.5 // hard launch
		}
		accel += p.noise.Rand()

		speed = math.Max(0, math.Min(speed+accel*dt, 60))

		samples = append(samples, models.RawSample{
			VehicleID: vehicleID,
			Timestamp: start.Add(time.Duration(i) * interval),
			Speed:     math.Round(speed*100) / 100,
			AccelX:    math.Round(accel*100) / 100,
			AccelY:    math.Round(p.noise.Rand()*100) / 100,
			AccelZ:    9.81,
			GyroZ:     math.Round(p.noise.Rand()*10) / 100,
		})
	}
	return samples
}

func writeSamples(w io.Writer, format string, samples []models.RawSample) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(samples)

	case "log":
		for _, s := range samples {
			_, err := fmt.Fprintf(w, "%s|%s|%.2f|%.2f,%.2f,%.2f|%.2f,%.2f,%.2f\n",
				s.Timestamp.Format(time.RFC3339Nano), s.VehicleID, s.Speed,
				s.AccelX, s.AccelY, s.AccelZ, s.GyroX, s.GyroY, s.GyroZ)
			if err != nil {
				return err
			}
		}
		return nil

	case "csv":
		cw := csv.NewWriter(w)
		cw.Write([]string{"timestamp", "vehicle_id", "speed", "accel_x", "accel_y", "accel_z", "gyro_x", "gyro_y", "gyro_z"})
		f := func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
		for _, s := range samples {
			cw.Write([]string{
				s.Timestamp.Format(time.RFC3339Nano), s.VehicleID, f(s.Speed),
				f(s.AccelX), f(s.AccelY), f(s.AccelZ), f(s.GyroX), f(s.GyroY), f(s.GyroZ),
			})
		}
		cw.Flush()
		return cw.Error()
	}
	return fmt.Errorf("unsupported format: %s", format)
}

// generateCmd writes synthetic trip samples for trying out segmentation
func generateCmd() *cobra.Command {
	var vehicleCount int
	var duration, interval time.Duration
	var cruiseKmh, aggression float64
	var format, output string
	var seed uint64

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate synthetic trip samples",
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 || duration < interval {
				return fmt.Errorf("--duration must be at least one --interval")
			}
			if aggression < 0 || aggression > 1 {
				return fmt.Errorf("--aggression must be between 0 and 1")
			}
			if seed == 0 {
				seed = uint64(time.Now().UnixNano())
			}
			src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)

			p := &tripProfile{
				cruise:     cruiseKmh / 3.6,
				aggression: aggression,
				noise:      distuv.Normal{Mu: 0, Sigma: 0.3, Src: src},
				rng:        rand.New(src),
			}

			start := time.Now().UTC().Add(-duration).Truncate(time.Second)
			var samples []models.RawSample
			for i := 1; i <= vehicleCount; i++ {
				samples = append(samples, p.synthesize(fmt.Sprintf("VEH-%03d", i), start, duration, interval)...)
			}

			w := io.Writer(os.Stdout)
			if output != "" {
				file, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("error creating output file: %w", err)
				}
				defer file.Close()
				w = file
			}
			if err := writeSamples(w, format, samples); err != nil {
				return err
			}
			if output != "" {
				logger.Info("generated samples", "count", len(samples), "vehicles", vehicleCount, "file", output)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&vehicleCount, "vehicles", "n", 1, "Number of vehicles, named VEH-001 and up")
	cmd.Flags().DurationVar(&duration, "duration", 15*time.Minute, "Trip length")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "Time between samples")
	cmd.Flags().Float64Var(&cruiseKmh, "cruise", 60, "Cruising speed, km/h")
	cmd.Flags().Float64Var(&aggression, "aggression", 0.3, "Share of harsh manoeuvres, 0 to 1")
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "Output format (csv, json, log)")
	cmd.Flags().StringVar(&output, "file", "", "Write to this file instead of stdout")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed (time based when 0)")
	return cmd
}
