package etl

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/traintrack/fdcsync/pkg/errors"
	"github.com/traintrack/fdcsync/pkg/mapper"
	"github.com/traintrack/fdcsync/pkg/store"
)

// ArtifactWriter serializes food records incrementally into the compact
// artifact format: a format-version tag, a code-to-category map, and an
// array of fixed-order tuples instead of field-named objects. Records are
// written as they arrive; the full set never exists in memory.
type ArtifactWriter struct {
	w     *bufio.Writer
	count int
}

// NewArtifactWriter writes the artifact prolog and returns a writer ready
// for Append calls.
func NewArtifactWriter(w io.Writer, version int, categoryMap map[string]string) (*ArtifactWriter, error) {
	cm, err := json.Marshal(categoryMap)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal category map")
	}

	bw := bufio.NewWriterSize(w, 1<<20)
	if _, err := fmt.Fprintf(bw, `{"v":%d,"categoryMap":%s,"foods":[`, version, cm); err != nil {
		return nil, errors.Wrap(err, "failed to write artifact header")
	}

	return &ArtifactWriter{w: bw}, nil
}

// Append writes one record as a fixed-order tuple:
// [fdcId, name, calories, protein, carbs, fat, servingLabel, servingGrams, categoryCode].
func (a *ArtifactWriter) Append(rec store.FoodRecord) error {
	tuple, err := json.Marshal([]any{
		rec.FDCID,
		rec.Name,
		rec.Calories,
		rec.Protein,
		rec.Carbs,
		rec.Fat,
		rec.ServingLabel,
		rec.ServingGrams,
		mapper.CodeFor(rec.Category),
	})
	if err != nil {
		return errors.Wrapf(err, "failed to marshal record %d", rec.FDCID)
	}

	if a.count > 0 {
		if err := a.w.WriteByte(','); err != nil {
			return errors.Wrap(err, "failed to write separator")
		}
	}
	if _, err := a.w.Write(tuple); err != nil {
		return errors.Wrap(err, "failed to write record")
	}
	a.count++
	return nil
}

// Count returns the number of records written so far.
func (a *ArtifactWriter) Count() int {
	return a.count
}

// Close writes the artifact epilog and flushes buffered output. It does not
// close the underlying writer.
func (a *ArtifactWriter) Close() error {
	if _, err := a.w.WriteString("]}"); err != nil {
		return errors.Wrap(err, "failed to write artifact footer")
	}
	return errors.Wrap(a.w.Flush(), "failed to flush artifact")
}
