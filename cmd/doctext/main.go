// Command doctext runs the document text recovery pipeline over a page dump:
// native text items and figure regions extracted upstream, serialized as
// JSON. It classifies each page, optionally OCRs the pages that need it, and
// emits the fused document model or a quality report.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/cliniscan/doctext/classify"
	"github.com/cliniscan/doctext/config"
	"github.com/cliniscan/doctext/geo"
	"github.com/cliniscan/doctext/layout"
	"github.com/cliniscan/doctext/metrics"
	"github.com/cliniscan/doctext/observability"
	"github.com/cliniscan/doctext/ocr"
	"github.com/cliniscan/doctext/ocr/tesseract"
	"github.com/cliniscan/doctext/pipeline"
	"github.com/cliniscan/doctext/report"
)

func main() {
	app := &cli.App{
		Name:  "doctext",
		Usage: "recover trustworthy page text from native extraction and OCR",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "YAML threshold overrides",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "debug logging",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "human-readable log output",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "process",
				Usage:     "build the document model from a page dump",
				ArgsUsage: "<pages.json>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "write the document model JSON here (default stdout)",
					},
					&cli.BoolFlag{
						Name:  "force-ocr",
						Usage: "OCR every page regardless of classification",
					},
					&cli.StringFlag{
						Name:  "engine",
						Value: "none",
						Usage: "OCR engine: none or tesseract",
					},
					&cli.StringFlag{
						Name:  "metrics-listen",
						Usage: "serve Prometheus metrics on this address",
					},
				},
				Action: processAction,
			},
			{
				Name:      "report",
				Usage:     "render a quality report from a document model",
				ArgsUsage: "<model.json>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "format",
						Value: "markdown",
						Usage: "markdown or html",
					},
				},
				Action: reportAction,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// pageDump is the on-disk page representation produced by the upstream
// extractor: positioned text items plus figure regions, and optionally a
// rendered page image for OCR.
type pageDump struct {
	PageIndex    int          `json:"pageIndex"`
	Width        float64      `json:"width"`
	Height       float64      `json:"height"`
	Items        []itemDump   `json:"items"`
	ImageRegions []regionDump `json:"imageRegions,omitempty"`
	ImageOpCount int          `json:"imageOpCount"`
	Override     string       `json:"override,omitempty"`
	ImageFile    string       `json:"imageFile,omitempty"`
}

type itemDump struct {
	Text   string  `json:"text"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type regionDump struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func newLogger(c *cli.Context) observability.Logger {
	level := "info"
	if c.Bool("verbose") {
		level = "debug"
	}
	return observability.NewZerologLogger(observability.ZerologConfig{
		Level:  level,
		Pretty: c.Bool("pretty"),
		Output: os.Stderr,
	})
}

func loadConfig(c *cli.Context) (config.Config, error) {
	if path := c.String("config"); path != "" {
		return config.Load(path)
	}
	return config.Default(), nil
}

func loadPages(path string) ([]pageDump, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading page dump: %w", err)
	}
	var pages []pageDump
	if err := json.Unmarshal(data, &pages); err != nil {
		return nil, fmt.Errorf("parsing page dump: %w", err)
	}
	return pages, nil
}

func toRawPages(dumps []pageDump) []pipeline.RawPage {
	raws := make([]pipeline.RawPage, 0, len(dumps))
	for _, d := range dumps {
		raw := pipeline.RawPage{
			PageIndex:    d.PageIndex,
			Width:        d.Width,
			Height:       d.Height,
			ImageOpCount: d.ImageOpCount,
			Override:     classify.Override(d.Override),
		}
		for i, it := range d.Items {
			raw.Items = append(raw.Items, layout.TextItem{
				Text: it.Text, X: it.X, Y: it.Y,
				Width: it.Width, Height: it.Height, Index: i,
			})
		}
		for _, r := range d.ImageRegions {
			raw.ImageRegions = append(raw.ImageRegions, geo.Region{
				X: r.X, Y: r.Y, Width: r.Width, Height: r.Height,
			})
		}
		raws = append(raws, raw)
	}
	return raws
}

func processAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: doctext process <pages.json>")
	}
	log := newLogger(c)
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	met := metrics.New(reg)
	if addr := c.String("metrics-listen"); addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(addr, mux); err != nil {
				log.Error("metrics server failed", observability.Error("error", err))
			}
		}()
	}

	dumps, err := loadPages(c.Args().First())
	if err != nil {
		return err
	}

	p := pipeline.New(cfg, pipeline.WithLogger(log), pipeline.WithMetrics(met))
	model := p.BuildDocumentModel(toRawPages(dumps), c.Bool("force-ocr"))

	if c.String("engine") == "tesseract" {
		if err := runOCR(c.Context, p, model, dumps, cfg, log, met); err != nil {
			return err
		}
	}

	p.Finalize(model)
	for _, page := range model.Pages {
		if page.Blocked {
			log.Warn("page text may be incomplete",
				observability.Int("page", page.PageIndex))
		}
	}

	out, err := json.MarshalIndent(model, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding document model: %w", err)
	}
	out = append(out, '\n')
	if path := c.String("output"); path != "" {
		return os.WriteFile(path, out, 0o644)
	}
	_, err = os.Stdout.Write(out)
	return err
}

func runOCR(ctx context.Context, p *pipeline.Pipeline, model *pipeline.DocumentModel,
	dumps []pageDump, cfg config.Config, log observability.Logger, met *metrics.Metrics) error {

	images := make(map[int]string, len(dumps))
	for _, d := range dumps {
		if d.ImageFile != "" {
			images[d.PageIndex] = d.ImageFile
		}
	}
	native := make(map[int]string, len(model.Pages))
	for _, page := range model.Pages {
		native[page.PageIndex] = page.NativeText
	}

	var inputs []ocr.Input
	for _, idx := range p.SelectPagesForOCR(model) {
		path, ok := images[idx]
		if !ok {
			log.Warn("page selected for OCR has no image",
				observability.Int("page", idx))
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading page image: %w", err)
		}
		in := ocr.Input{
			ID:        fmt.Sprintf("page-%d", idx),
			PageIndex: idx,
			Image:     data,
			Format:    ocr.ImageFormatPNG,
		}
		ocr.WithLanguages(ocr.LanguageHints(native[idx])...)(&in)
		inputs = append(inputs, in)
	}
	if len(inputs) == 0 {
		return nil
	}

	client := pipeline.NewClient(tesseract.New(), cfg.Client,
		pipeline.WithClientLogger(log), pipeline.WithClientMetrics(met))
	reply, err := client.Recognize(ctx, inputs)
	if err != nil {
		return fmt.Errorf("running OCR: %w", err)
	}
	p.ApplyOCRResults(model, reply.Pages)
	return nil
}

func reportAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: doctext report <model.json>")
	}
	data, err := os.ReadFile(c.Args().First())
	if err != nil {
		return fmt.Errorf("reading document model: %w", err)
	}
	var model pipeline.DocumentModel
	if err := json.Unmarshal(data, &model); err != nil {
		return fmt.Errorf("parsing document model: %w", err)
	}

	switch c.String("format") {
	case "markdown":
		fmt.Print(report.RenderMarkdown(&model))
	case "html":
		html, err := report.RenderHTML(&model)
		if err != nil {
			return err
		}
		fmt.Print(html)
	default:
		return fmt.Errorf("unknown format %q", c.String("format"))
	}
	return nil
}
