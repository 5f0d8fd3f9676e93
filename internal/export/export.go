// Package export renders markdown files and trees into standalone HTML.
// Exported pages inline every stylesheet so the output browses from
// disk without a server. Directory exports fan the files out over a
// small worker pool and report per-file results in a summary.
package export

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/conneroisu/markd/internal/errors"
	"github.com/conneroisu/markd/internal/logging"
	"github.com/conneroisu/markd/internal/renderer"
	"github.com/conneroisu/markd/internal/validation"
	"github.com/conneroisu/markd/internal/watcher"
)

const defaultWorkers = 4

// Options configures an Exporter.
type Options struct {
	// Theme is the UI palette baked into the exported pages.
	Theme string
	// SyntaxTheme selects the chroma style for highlighted code.
	SyntaxTheme string
	// Minify collapses whitespace outside preformatted blocks.
	Minify bool
	// Workers is the directory-export concurrency. Zero selects the
	// default.
	Workers int
	Logger  logging.Logger
}

// Result records the outcome of exporting one source file.
type Result struct {
	Source   string
	Output   string
	Bytes    int64
	Duration time.Duration
	Err      error
}

// Summary aggregates a directory export.
type Summary struct {
	Exported int
	Failed   int
	Bytes    int64
	Duration time.Duration
	// Results holds one entry per source file, sorted by source path.
	Results []Result
}

// job pairs one source file with its output path.
type job struct {
	source  string
	display string
	output  string
}

// Exporter renders markdown to standalone HTML files.
type Exporter struct {
	engine  *renderer.Engine
	css     string
	theme   string
	minify  bool
	workers int
	log     logging.Logger
}

// New creates an exporter. The inline stylesheet is assembled once, so
// a bad syntax theme fails here rather than per file.
func New(opts Options) (*Exporter, error) {
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	engine, err := renderer.New(renderer.Options{
		SyntaxTheme: opts.SyntaxTheme,
		Logger:      log,
	})
	if err != nil {
		return nil, err
	}
	highlightCSS, err := engine.StylesheetCSS()
	if err != nil {
		return nil, err
	}

	return &Exporter{
		engine:  engine,
		css:     renderer.AppCSS + "\n" + highlightCSS,
		theme:   opts.Theme,
		minify:  opts.Minify,
		workers: workers,
		log:     log.WithComponent("export"),
	}, nil
}

// ExportFile renders one markdown file into outputDir and returns the
// written path.
func (e *Exporter) ExportFile(ctx context.Context, source, outputDir string) (string, error) {
	info, err := os.Stat(source)
	if err != nil {
		return "", errors.ErrPathNotFound(source)
	}
	if info.IsDir() {
		return "", errors.NewConfigError(errors.ErrCodeInvalidPath,
			"source is a directory, not a file: "+source)
	}
	if !watcher.IsMarkdownFile(source) {
		return "", errors.NewConfigError(errors.ErrCodeInvalidPath,
			"source is not a markdown file: "+source)
	}

	output := filepath.Join(outputDir, htmlName(filepath.Base(source)))
	result := e.exportOne(ctx, job{
		source:  source,
		display: filepath.Base(source),
		output:  output,
	})
	if result.Err != nil {
		return "", result.Err
	}
	return result.Output, nil
}

// ExportDirectory renders every markdown file under sourceDir into
// outputDir, mirroring the tree. Dot-directories are skipped. Failures
// are recorded per file; the export keeps going.
func (e *Exporter) ExportDirectory(ctx context.Context, sourceDir, outputDir string) (*Summary, error) {
	info, err := os.Stat(sourceDir)
	if err != nil {
		return nil, errors.ErrPathNotFound(sourceDir)
	}
	if !info.IsDir() {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidPath,
			"source is not a directory: "+sourceDir)
	}

	jobs, err := e.collectJobs(sourceDir, outputDir)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	summary := e.runPool(ctx, jobs)
	summary.Duration = time.Since(start)

	e.log.Info(ctx, "export finished",
		"exported", summary.Exported,
		"failed", summary.Failed,
		"duration", summary.Duration.String())
	return summary, nil
}

// collectJobs walks the source tree and pairs every markdown file with
// its mirrored output path. Output paths are containment-checked
// against the output root before anything is written.
func (e *Exporter) collectJobs(sourceDir, outputDir string) ([]job, error) {
	var jobs []job
	err := filepath.WalkDir(sourceDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if path != sourceDir && strings.HasPrefix(entry.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !watcher.IsMarkdownFile(path) {
			return nil
		}

		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}
		output, err := validation.ValidateTarget(htmlName(rel), outputDir)
		if err != nil {
			return err
		}
		jobs = append(jobs, job{source: path, display: filepath.ToSlash(rel), output: output})
		return nil
	})
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeReadFailed, "cannot scan source tree", err).
			WithPath(sourceDir)
	}
	return jobs, nil
}

// runPool fans jobs out to the workers and folds their results into a
// summary. Completion order is nondeterministic; results are sorted
// before they are returned.
func (e *Exporter) runPool(ctx context.Context, jobs []job) *Summary {
	queue := make(chan job)
	results := make(chan Result)

	var workerWg sync.WaitGroup
	for i := 0; i < e.workers; i++ {
		workerWg.Add(1)
		go e.worker(ctx, queue, results, &workerWg)
	}

	summary := &Summary{}
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for result := range results {
			summary.Results = append(summary.Results, result)
			if result.Err != nil {
				summary.Failed++
				continue
			}
			summary.Exported++
			summary.Bytes += result.Bytes
		}
	}()

	for _, j := range jobs {
		queue <- j
	}
	close(queue)
	workerWg.Wait()
	close(results)
	<-collected

	sort.Slice(summary.Results, func(i, k int) bool {
		return summary.Results[i].Source < summary.Results[k].Source
	})
	return summary
}

func (e *Exporter) worker(ctx context.Context, queue <-chan job, results chan<- Result, wg *sync.WaitGroup) {
	defer wg.Done()
	for j := range queue {
		select {
		case <-ctx.Done():
			results <- Result{Source: j.source, Output: j.output, Err: ctx.Err()}
			continue
		default:
		}
		results <- e.exportOne(ctx, j)
	}
}

// exportOne renders a single file to its output path.
func (e *Exporter) exportOne(ctx context.Context, j job) Result {
	start := time.Now()
	result := Result{Source: j.source, Output: j.output}

	doc, err := e.engine.RenderFile(j.source)
	if err != nil {
		result.Err = err
		return result
	}
	page, err := e.engine.RenderPage(doc, renderer.PageOptions{
		Theme:     e.theme,
		InlineCSS: e.css,
		Path:      j.display,
	})
	if err != nil {
		result.Err = err
		return result
	}
	if e.minify {
		page = minifyHTML(page)
	}

	if err := os.MkdirAll(filepath.Dir(j.output), 0o755); err != nil {
		result.Err = errors.NewIOError(errors.ErrCodeWriteFailed, "cannot create output directory", err).
			WithPath(filepath.Dir(j.output))
		return result
	}
	if err := os.WriteFile(j.output, []byte(page), 0o644); err != nil {
		result.Err = errors.NewIOError(errors.ErrCodeWriteFailed, "cannot write output file", err).
			WithPath(j.output)
		return result
	}

	result.Bytes = int64(len(page))
	result.Duration = time.Since(start)
	e.log.Debug(ctx, "exported", "source", j.display, "output", j.output, "bytes", result.Bytes)
	return result
}

// htmlName swaps a markdown extension for .html, leaving the rest of
// the path untouched.
func htmlName(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".html"
}
