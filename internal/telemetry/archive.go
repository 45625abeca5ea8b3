package telemetry

import (
	"compress/flate"
	"fmt"
	"log/slog"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"magnav-sim/internal/nav"
	"magnav-sim/internal/sim"
)

// Archive is a self-contained copy of one run, written as flate-compressed
// msgpack so runs can be moved between machines without the database.
type Archive struct {
	Run     Run
	Samples []sim.Sample
}

type archiveRecord struct {
	Run     Run            `msgpack:"run"`
	Samples []sampleRecord `msgpack:"samples"`
}

type sampleRecord struct {
	Step     int         `msgpack:"step"`
	T        float64     `msgpack:"t"`
	State    nav.State   `msgpack:"state"`
	Command  nav.Command `msgpack:"cmd"`
	Mode     string      `msgpack:"mode"`
	GPS      string      `msgpack:"gps"`
	Variance float64     `msgpack:"var"`
	Waypoint int         `msgpack:"wp"`
	Warning  string      `msgpack:"warn,omitempty"`
	Field    float64     `msgpack:"field"`
}

// WriteArchive replaces the file at path with a compressed archive.
func WriteArchive(path string, a Archive) error {
	rec := archiveRecord{Run: a.Run, Samples: make([]sampleRecord, len(a.Samples))}
	for i, s := range a.Samples {
		rec.Samples[i] = sampleRecord{
			Step: s.Step, T: s.T, State: s.State, Command: s.Command,
			Mode: s.Mode.String(), GPS: s.GPS.String(),
			Variance: s.Variance, Waypoint: s.WaypointIndex, Warning: s.Warning,
			Field: s.Field,
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fw, err := flate.NewWriter(f, flate.BestSpeed)
	if err != nil {
		return err
	}
	if err := msgpack.NewEncoder(fw).Encode(rec); err != nil {
		return fmt.Errorf("msgpack encode: %w", err)
	}
	if err := fw.Close(); err != nil {
		return err
	}
	return f.Close()
}

// ReadArchive loads an archive written by WriteArchive.
func ReadArchive(path string) (Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return Archive{}, err
	}
	defer f.Close()

	fr := flate.NewReader(f)
	defer fr.Close()

	var rec archiveRecord
	if err := msgpack.NewDecoder(fr).Decode(&rec); err != nil {
		return Archive{}, fmt.Errorf("msgpack decode: %w", err)
	}

	a := Archive{Run: rec.Run, Samples: make([]sim.Sample, len(rec.Samples))}
	for i, r := range rec.Samples {
		s := sim.Sample{
			Step: r.Step, T: r.T, State: r.State, Command: r.Command,
			Variance: r.Variance, WaypointIndex: r.Waypoint, Warning: r.Warning,
			Field: r.Field,
		}
		if err := s.Mode.UnmarshalText([]byte(r.Mode)); err != nil {
			return Archive{}, err
		}
		if err := s.GPS.UnmarshalText([]byte(r.GPS)); err != nil {
			return Archive{}, err
		}
		a.Samples[i] = s
	}
	return a, nil
}

// Export loads runID from the store and writes it to path.
func (s *Store) Export(runID, path string) error {
	run, err := s.Run(runID)
	if err != nil {
		return err
	}
	samples, err := s.Samples(runID)
	if err != nil {
		return err
	}
	return WriteArchive(path, Archive{Run: run, Samples: samples})
}

// Import stores an archive's run and samples in one transaction, so a
// failed import leaves nothing behind. It fails if the run id is already
// present.
func (s *Store) Import(a Archive) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := insertRun(tx, a.Run); err != nil {
		return err
	}
	if err := insertSamples(tx, a.Run.RunID, a.Samples); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	s.lg.Info("run imported", slog.String("run_id", a.Run.RunID), slog.Int("samples", len(a.Samples)))
	return nil
}

