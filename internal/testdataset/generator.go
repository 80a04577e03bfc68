package testdataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"github.com/okian/arcadeboard/internal/domain/model"
	"github.com/okian/arcadeboard/internal/domain/ranking"
)

// Distribution of generated rows, out of 100.
const (
	anonymousPercent = 15 // rows without a profile URL, keyed by name
	malformedPercent = 5  // rows with a non-numeric count
	maxSkillBadges   = 40
	maxArcadePoints  = 25
	filePermission   = 0o600
	dirPermission    = 0o750
)

// profileBase prefixes generated profile links.
const profileBase = "https://www.cloudskillsboost.google/public_profiles/"

// Generator produces synthetic campaign exports.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a generator. Equal seeds yield equal counts; names and
// profile links are always fresh.
func NewGenerator(seed uint64) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Generate returns n rows. Every row has a unique identity: either a profile
// URL or, for anonymous rows, a unique name.
func (g *Generator) Generate(n int) []Row {
	rows := make([]Row, n)
	for i := range rows {
		id := uuid.New()
		row := Row{
			Name:         "Player " + id.String()[:8],
			SkillBadges:  strconv.Itoa(g.rng.IntN(maxSkillBadges + 1)),
			ArcadePoints: strconv.Itoa(g.rng.IntN(maxArcadePoints + 1)),
		}
		if g.rng.IntN(100) >= anonymousPercent {
			row.ProfileURL = profileBase + id.String()
		} else {
			row.Name = "anon-" + id.String()
		}
		if g.rng.IntN(100) < malformedPercent {
			row.ArcadePoints = "n/a"
		}
		rows[i] = row
	}
	return rows
}

// Malformed counts rows whose counts will be coerced.
func Malformed(rows []Row) int {
	n := 0
	for _, r := range rows {
		if _, err := strconv.Atoi(r.ArcadePoints); err != nil {
			n++
		}
	}
	return n
}

// Records converts rows into the records the service parses from the file.
func Records(rows []Row) []model.RawRecord {
	cols := ranking.DefaultColumns()
	out := make([]model.RawRecord, len(rows))
	for i, r := range rows {
		out[i] = model.RawRecord{
			cols.Name:         r.Name,
			cols.SkillBadges:  r.SkillBadges,
			cols.ArcadePoints: r.ArcadePoints,
			cols.ProfileURL:   r.ProfileURL,
		}
	}
	return out
}

// WriteCSV writes rows with the default export header.
func WriteCSV(w io.Writer, rows []Row) error {
	cols := ranking.DefaultColumns()
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{cols.Name, cols.SkillBadges, cols.ArcadePoints, cols.ProfileURL}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range rows {
		if err := cw.Write([]string{r.Name, r.SkillBadges, r.ArcadePoints, r.ProfileURL}); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeDatasetFile replaces path atomically so the service never reads a
// half-written export.
func writeDatasetFile(path string, rows []Row) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPermission); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".dataset-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := WriteCSV(tmp, rows); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(filePermission); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
