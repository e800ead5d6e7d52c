package persistence

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/Barac9492/ideadroppro-1-sub001/internal/domain"
)

// GenerationLog appends generation records to a local CSV file. It stands in
// for GenerationRepo when no database is configured.
type GenerationLog struct {
	Path string

	mu sync.Mutex
}

func (l *GenerationLog) Insert(_ context.Context, record domain.GenerationRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.OpenFile(l.Path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return err
	}

	defer func() {
		if cerr := file.Close(); cerr != nil {
			slog.Error(fmt.Sprintf("Error occured: %s", cerr.Error()))
		}
	}()

	writer := csv.NewWriter(file)

	err = writer.Write(toRow(record))
	if err != nil {
		return err
	}

	writer.Flush()
	return writer.Error()
}

func toRow(record domain.GenerationRecord) []string {
	return []string{
		record.Id,
		record.RunId,
		strconv.Itoa(record.Generation),
		strconv.Itoa(record.PopulationSize),
		strconv.FormatFloat(record.BestFitness, 'f', -1, 64),
		strconv.FormatFloat(record.AverageFitness, 'f', -1, 64),
		strconv.FormatFloat(record.MutationRate, 'f', -1, 64),
		strconv.FormatFloat(record.CrossoverRate, 'f', -1, 64),
		record.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toGenerationRecord(row []string) (domain.GenerationRecord, error) {
	if len(row) != 9 {
		return domain.GenerationRecord{}, fmt.Errorf("generation log row has %d fields", len(row))
	}

	var errs []error
	atoi := func(s string) int {
		v, err := strconv.Atoi(s)
		errs = append(errs, err)
		return v
	}
	atof := func(s string) float64 {
		v, err := strconv.ParseFloat(s, 64)
		errs = append(errs, err)
		return v
	}

	record := domain.GenerationRecord{
		Id:             row[0],
		RunId:          row[1],
		Generation:     atoi(row[2]),
		PopulationSize: atoi(row[3]),
		BestFitness:    atof(row[4]),
		AverageFitness: atof(row[5]),
		MutationRate:   atof(row[6]),
		CrossoverRate:  atof(row[7]),
	}

	createdAt, err := time.Parse(time.RFC3339Nano, row[8])
	errs = append(errs, err)
	record.CreatedAt = createdAt

	return record, errors.Join(errs...)
}

// Read returns every logged record of the given run in file order. A log
// that has not been written yet holds no records.
func (l *GenerationLog) Read(_ context.Context, runId string) ([]domain.GenerationRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.Open(l.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	defer func() {
		if cerr := file.Close(); cerr != nil {
			slog.Error(fmt.Sprintf("Error occured: %s", cerr.Error()))
		}
	}()

	reader := csv.NewReader(file)

	var records []domain.GenerationRecord
	for {
		row, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}

		if len(row) < 2 || row[1] != runId {
			continue
		}

		record, err := toGenerationRecord(row)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, nil
}
