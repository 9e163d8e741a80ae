// Package guide renders a generated experiment guide as a self-contained,
// downloadable HTML document.
package guide

import (
	"bytes"
	"html"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"

	"github.com/sells-group/lab-assistant/internal/model"
)

const style = `body{font-family:Arial,Helvetica,sans-serif;max-width:46rem;margin:2rem auto;padding:0 1rem;color:#1f2937;line-height:1.5}` +
	`h1{text-align:center;font-size:1.6rem}h2{font-size:1.2rem;margin-top:1.5rem}` +
	`.field{white-space:pre-wrap}` +
	`.guide table{border-collapse:collapse}.guide th,.guide td{border:1px solid #d1d5db;padding:.3rem .5rem}`

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// FileName is the on-disk name of a guide written at now.
func FileName(now time.Time) string {
	return "experiment_guide_" + now.Format("20060102150405") + ".html"
}

// DownloadName is the name offered to the browser for a guide about the
// named experiment.
func DownloadName(experiment string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, strings.TrimSpace(experiment))
	if name == "" {
		name = "experiment"
	}
	return name + "_guide.html"
}

// Render builds the HTML document: experiment name, hypothesis, materials and
// procedure when given, then the guide text converted from Markdown. Raw HTML
// in the guide text is not passed through.
func Render(g model.Guide) ([]byte, error) {
	var content bytes.Buffer
	if err := md.Convert([]byte(g.Text), &content); err != nil {
		return nil, eris.Wrap(err, "guide: convert markdown")
	}

	e := g.Experiment
	var b strings.Builder
	b.WriteString("<!doctype html><html><head><meta charset='utf-8'>")
	b.WriteString("<title>" + html.EscapeString(strings.TrimSpace(e.Name)) + " guide</title>")
	b.WriteString("<style>" + style + "</style></head><body>")
	b.WriteString("<h1>Science Experiment Guide</h1>")
	b.WriteString("<h2>Experiment: " + html.EscapeString(strings.TrimSpace(e.Name)) + "</h2>")
	writeField(&b, "Hypothesis", e.Hypothesis)
	if strings.TrimSpace(e.Materials) != "" {
		writeField(&b, "Materials", e.Materials)
	}
	if strings.TrimSpace(e.Procedure) != "" {
		writeField(&b, "Procedure", e.Procedure)
	}
	b.WriteString("<h2>Experiment Guide:</h2><div class='guide'>")
	b.Write(content.Bytes())
	b.WriteString("</div></body></html>\n")

	return []byte(b.String()), nil
}

func writeField(b *strings.Builder, label, value string) {
	b.WriteString("<h3>" + label + ":</h3>")
	b.WriteString("<p class='field'>" + html.EscapeString(strings.TrimSpace(value)) + "</p>")
}

// Write renders g into dir and returns the written path.
func Write(dir string, g model.Guide, now time.Time) (string, error) {
	data, err := Render(g)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "guide: create dir %s", dir)
	}

	path := filepath.Join(dir, FileName(now))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", eris.Wrapf(err, "guide: write %s", path)
	}

	zap.L().Info("guide: written",
		zap.String("path", path),
		zap.Int("bytes", len(data)),
	)
	return path, nil
}
