package scorer

import (
	"encoding/csv"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/iguard-io/mlpipe/pkg/predictmodel"
)

const outputFile = "scored_results.csv"

// frame is one CSV file in memory, header plus raw records.
// Records stay as strings so the output preserves the input verbatim.
type frame struct {
	header  []string
	records [][]string
}

// CollectInputs resolves the input path to the list of CSV files to score.
// A directory is filtered to .csv entries, non-recursively, in listing order.
// A plain file is scored as-is.
func CollectInputs(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	entries, err := ioutil.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), ".csv") {
			files = append(files, filepath.Join(path, entry.Name()))
		}
	}
	return files, nil
}

func readFrame(path string) (*frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return &frame{}, nil
	}
	return &frame{header: records[0], records: records[1:]}, nil
}

// features parses every record into a float row for the model.
func (f *frame) features() ([][]float64, error) {
	rows := make([][]float64, len(f.records))
	for i, record := range f.records {
		row := make([]float64, len(record))
		for j, cell := range record {
			value, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, err
			}
			row[j] = value
		}
		rows[i] = row
	}
	return rows, nil
}

// Run loads the model once, scores every input file and writes one combined
// CSV with an added prediction column. With no matching inputs it warns and
// writes nothing.
func Run(inputPath, outputPath, modelPath string) error {
	zap.S().Infow("batch scoring", "input", inputPath, "output", outputPath, "model", modelPath)
	model, err := predictmodel.Load(modelPath)
	if err != nil {
		return err
	}
	zap.S().Infow("model loaded", "features", len(model.Features))

	files, err := CollectInputs(inputPath)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		zap.S().Warnw("no results to save", "input", inputPath)
		return nil
	}

	var header []string
	var combined [][]string
	for _, file := range files {
		zap.S().Infow("processing", "file", file)
		fr, err := readFrame(file)
		if err != nil {
			return err
		}
		if header == nil && fr.header != nil {
			header = append(fr.header, "prediction")
		}
		rows, err := fr.features()
		if err != nil {
			return err
		}
		predictions := model.Predict(rows)
		for i, record := range fr.records {
			combined = append(combined, append(record, strconv.FormatFloat(predictions[i], 'g', -1, 64)))
		}
	}

	if err := os.MkdirAll(outputPath, os.ModePerm); err != nil {
		return err
	}
	target := filepath.Join(outputPath, outputFile)
	out, err := os.Create(target)
	if err != nil {
		return err
	}
	defer out.Close()
	writer := csv.NewWriter(out)
	if err := writer.Write(header); err != nil {
		return err
	}
	if err := writer.WriteAll(combined); err != nil {
		return err
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	zap.S().Infow("results saved", "file", target, "rows", len(combined))
	return nil
}
