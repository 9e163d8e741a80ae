package main

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lab-assistant/internal/model"
	"github.com/sells-group/lab-assistant/internal/pipeline"
)

// readReportText returns report text for path. "-" reads already-extracted
// text from stdin; anything else is treated as an uploaded document and run
// through extraction.
func readReportText(ctx context.Context, p *pipeline.Pipeline, path string, stdin io.Reader) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", eris.Wrap(err, "read stdin")
		}
		return string(data), nil
	}

	doc, err := readDocument(path)
	if err != nil {
		return "", err
	}
	return p.ExtractText(ctx, doc)
}

func readDocument(path string) (model.Document, error) {
	if _, err := model.ParseExtension(path); err != nil {
		return model.Document{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Document{}, eris.Wrapf(err, "read %s", path)
	}
	return model.NewDocument(filepath.Base(path), data)
}
