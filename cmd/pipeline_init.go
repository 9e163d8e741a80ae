package main

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/lab-assistant/internal/ai"
	"github.com/sells-group/lab-assistant/internal/catalog"
	"github.com/sells-group/lab-assistant/internal/cost"
	"github.com/sells-group/lab-assistant/internal/ocr"
	"github.com/sells-group/lab-assistant/internal/pipeline"
)

// pipelineEnv holds the initialized collaborators shared by the commands.
type pipelineEnv struct {
	Pipeline *pipeline.Pipeline
	Catalog  *catalog.Catalog
}

// initPipeline builds the AI client, the text extractor, and the pipeline
// from the loaded config.
func initPipeline() (*pipelineEnv, error) {
	rates := cost.DefaultRates()
	for model, r := range cost.RatesFromConfig(cfg.Pricing) {
		rates[model] = r
	}

	completer, err := ai.New(cfg.AI, cost.NewCalculator(rates))
	if err != nil {
		return nil, err
	}

	extractor, err := ocr.New(cfg.OCR, cfg.PDF)
	if err != nil {
		return nil, eris.Wrap(err, "init extractor")
	}

	cat, err := catalog.Load()
	if err != nil {
		return nil, err
	}

	return &pipelineEnv{
		Pipeline: pipeline.New(extractor, completer),
		Catalog:  cat,
	}, nil
}
