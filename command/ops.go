package command

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-errors"

	"github.com/goliatone/go-gridexport/session"
)

const (
	// DefaultMaxIdle is how long a table may sit untouched before it expires.
	DefaultMaxIdle = 2 * time.Hour
	// DefaultArtifactTTL is how long stored PDFs are kept.
	DefaultArtifactTTL = 24 * time.Hour
)

// BatchLoader loads table seeds from a source.
type BatchLoader func(ctx context.Context) ([]session.CreateInput, error)

// BatchCommand renders a list of tables into PDF files on disk.
type BatchCommand struct {
	service   session.Service
	loader    BatchLoader
	outputDir string
	cliConfig gcmd.CLIConfig
	limits    BatchLimits
	sleep     func(time.Duration)
}

// BatchOption customizes batch commands.
type BatchOption func(*BatchCommand)

// BatchLimits bounds batch execution throughput.
type BatchLimits struct {
	MaxTables   int
	MinInterval time.Duration
}

// WithBatchCLIConfig overrides CLI configuration.
func WithBatchCLIConfig(cfg gcmd.CLIConfig) BatchOption {
	return func(cmd *BatchCommand) {
		cmd.cliConfig = cfg
	}
}

// WithBatchLimits overrides batch execution limits.
func WithBatchLimits(limits BatchLimits) BatchOption {
	return func(cmd *BatchCommand) {
		cmd.limits = limits
	}
}

// WithBatchOutputDir sets where rendered PDFs are written.
func WithBatchOutputDir(dir string) BatchOption {
	return func(cmd *BatchCommand) {
		cmd.outputDir = dir
	}
}

// NewBatchCommand creates a CLI command that exports tables in bulk.
func NewBatchCommand(svc session.Service, loader BatchLoader, opts ...BatchOption) *BatchCommand {
	cmd := &BatchCommand{
		service:   svc,
		loader:    loader,
		outputDir: ".",
		cliConfig: gcmd.CLIConfig{
			Path:        []string{"tables-export"},
			Description: "Render tables from a JSON file into PDF files",
			Group:       "tables",
		},
		sleep: time.Sleep,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cmd)
		}
	}
	return cmd
}

// CLIHandler exposes the CLI handler.
func (c *BatchCommand) CLIHandler() any {
	return &batchCLI{cmd: c}
}

// CLIOptions returns CLI configuration.
func (c *BatchCommand) CLIOptions() gcmd.CLIConfig {
	if c == nil {
		return gcmd.CLIConfig{}
	}
	return c.cliConfig
}

func (c *BatchCommand) run(ctx context.Context, from, out string) ([]string, error) {
	if c == nil {
		return nil, errors.New("batch command is nil", errors.CategoryInternal).
			WithTextCode("BATCH_CMD_NIL")
	}
	if c.service == nil {
		return nil, serviceRequired()
	}
	if strings.TrimSpace(out) == "" {
		out = c.outputDir
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.CategoryExternal, "create output directory failed").
			WithTextCode("BATCH_OUTPUT_DIR")
	}

	inputs, err := c.loadInputs(ctx, from)
	if err != nil {
		return nil, err
	}

	var written []string
	for _, input := range inputs {
		if c.limits.MaxTables > 0 && len(written) >= c.limits.MaxTables {
			break
		}
		path, err := c.render(ctx, input, out)
		if err != nil {
			return written, err
		}
		written = append(written, path)
		if c.limits.MinInterval > 0 && c.sleep != nil {
			c.sleep(c.limits.MinInterval)
		}
	}
	return written, nil
}

func (c *BatchCommand) render(ctx context.Context, input session.CreateInput, out string) (string, error) {
	view, err := c.service.Create(ctx, input)
	if err != nil {
		return "", err
	}
	defer func() { _ = c.service.Close(ctx, view.ID) }()

	if _, err := c.service.RequestExport(ctx, view.ID); err != nil {
		return "", err
	}
	dl, err := c.service.Download(ctx, view.ID)
	if err != nil {
		return "", err
	}
	reader, _, err := c.service.Artifact(ctx, view.ID, dl.Key)
	if err != nil {
		return "", err
	}
	defer reader.Close()

	path, err := outputPath(out, dl.Filename)
	if err != nil {
		return "", err
	}
	file, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryExternal, "create output file failed").
			WithTextCode("BATCH_OUTPUT_FILE")
	}
	if _, err := io.Copy(file, reader); err != nil {
		_ = file.Close()
		return "", errors.Wrap(err, errors.CategoryExternal, "write output file failed").
			WithTextCode("BATCH_OUTPUT_FILE")
	}
	if err := file.Close(); err != nil {
		return "", errors.Wrap(err, errors.CategoryExternal, "close output file failed").
			WithTextCode("BATCH_OUTPUT_FILE")
	}
	return path, nil
}

func (c *BatchCommand) loadInputs(ctx context.Context, from string) ([]session.CreateInput, error) {
	if strings.TrimSpace(from) != "" {
		return loadBatchFile(from)
	}
	if c.loader == nil {
		return nil, errors.New("batch loader not configured", errors.CategoryValidation).
			WithTextCode("LOADER_REQUIRED")
	}
	return c.loader(ctx)
}

type batchCLI struct {
	cmd  *BatchCommand
	From string `kong:"name='from',help='Path to a JSON array of tables'"`
	Out  string `kong:"name='out',help='Directory for the rendered PDF files'"`
}

func (c *batchCLI) Run() error {
	if c == nil || c.cmd == nil {
		return errors.New("batch command is required", errors.CategoryInternal).
			WithTextCode("BATCH_CMD_NIL")
	}
	_, err := c.cmd.run(context.Background(), c.From, c.Out)
	return err
}

func loadBatchFile(path string) ([]session.CreateInput, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryExternal, "read batch file failed").
			WithTextCode("BATCH_FILE_READ")
	}

	var inputs []session.CreateInput
	if err := json.Unmarshal(content, &inputs); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "batch file invalid JSON").
			WithTextCode("BATCH_FILE_INVALID")
	}
	return inputs, nil
}

var pathSeparators = strings.NewReplacer("/", "_", "\\", "_")

// outputPath places filename inside dir whatever the table title contains.
func outputPath(dir, filename string) (string, error) {
	name := filepath.Base(pathSeparators.Replace(filename))
	if name == "." || name == ".." || name == string(filepath.Separator) {
		name = "export.pdf"
	}
	path := uniquePath(dir, name)
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel != filepath.Base(path) {
		return "", errors.New(fmt.Sprintf("output file %q escapes %q", filename, dir), errors.CategoryValidation).
			WithTextCode("BATCH_OUTPUT_PATH")
	}
	return path, nil
}

// uniquePath keeps tables sharing a title from overwriting each other.
func uniquePath(dir, filename string) string {
	path := filepath.Join(dir, filename)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	for i := 2; ; i++ {
		path = filepath.Join(dir, fmt.Sprintf("%s-%d%s", stem, i, ext))
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
	}
}

// CLIHandler exposes expiry via CLI.
func (h *ExpireTablesHandler) CLIHandler() any {
	return &expireCLI{handler: h}
}

// CLIOptions describes expiry CLI metadata.
func (h *ExpireTablesHandler) CLIOptions() gcmd.CLIConfig {
	return gcmd.CLIConfig{
		Path:        []string{"tables-expire"},
		Description: "Close idle tables and remove old PDF artifacts",
		Group:       "tables",
	}
}

type expireCLI struct {
	handler *ExpireTablesHandler
}

func (c *expireCLI) Run() error {
	if c == nil || c.handler == nil {
		return errors.New("expire handler is required", errors.CategoryInternal).
			WithTextCode("EXPIRE_HANDLER_REQUIRED")
	}
	return c.handler.Execute(context.Background(), ExpireTables{})
}
