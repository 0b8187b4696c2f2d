package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"trendrider/internal/app"
	"trendrider/internal/effects"
	"trendrider/internal/infra"
	"trendrider/internal/storage"
)

const usage = `usage: trendctl <command> [flags]

commands:
  categories                          list effect categories
  effects [-category slug]            list effects
  apply -image path -effect id [-out dir]
                                      apply an effect, wait for the result and
                                      save it under -out (STORAGE_PATH; "" skips)
  status -job id [-wait]              show a job, or wait until it finishes
`

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	logger := infra.NewLoggerTo(stderr, cfg.AppEnv, "trendctl").With().
		Str("run_id", uuid.NewString()).
		Str("cmd", args[0]).
		Logger()

	client, err := app.NewEffectsClient(cfg, logger, nil)
	if err != nil {
		fmt.Fprintf(stderr, "effects client: %v\n", err)
		return 1
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "categories":
		err = runCategories(ctx, client, rest, stdout)
	case "effects":
		err = runEffects(ctx, client, rest, stdout)
	case "apply":
		err = runApply(ctx, client, cfg.StoragePath, rest, stdout)
	case "status":
		err = runStatus(ctx, client, rest, stdout)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}

	var usageErr usageError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &usageErr):
		fmt.Fprintf(stderr, "%s: %v\n", cmd, err)
		return 2
	default:
		logger.Error().Err(err).Msg("command failed")
		fmt.Fprintf(stderr, "%s: %v\n", cmd, err)
		return 1
	}
}

type usageError string

func (e usageError) Error() string { return string(e) }

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func runCategories(ctx context.Context, client *effects.Client, args []string, stdout io.Writer) error {
	fs := newFlagSet("categories")
	if err := fs.Parse(args); err != nil {
		return usageError(err.Error())
	}
	categories, err := client.Categories(ctx)
	if err != nil {
		return err
	}
	return printJSON(stdout, categories)
}

func runEffects(ctx context.Context, client *effects.Client, args []string, stdout io.Writer) error {
	fs := newFlagSet("effects")
	category := fs.String("category", "", "category slug to filter by")
	if err := fs.Parse(args); err != nil {
		return usageError(err.Error())
	}
	list, err := client.Effects(ctx, *category)
	if err != nil {
		return err
	}
	return printJSON(stdout, list)
}

type applyOutput struct {
	*effects.JobResult
	SavedTo string `json:"saved_to,omitempty"`
}

func runApply(ctx context.Context, client *effects.Client, storagePath string, args []string, stdout io.Writer) error {
	fs := newFlagSet("apply")
	imagePath := fs.String("image", "", "path of the image to upload")
	effectID := fs.String("effect", "", "effect id to apply")
	outDir := fs.String("out", storagePath, "directory to download the result into, empty to skip")
	if err := fs.Parse(args); err != nil {
		return usageError(err.Error())
	}
	if strings.TrimSpace(*imagePath) == "" || strings.TrimSpace(*effectID) == "" {
		return usageError("-image and -effect are required")
	}

	data, err := os.ReadFile(*imagePath)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	result, err := client.Apply(ctx, effects.Asset{Data: data, Filename: filepath.Base(*imagePath)}, *effectID)
	if err != nil {
		return err
	}

	out := applyOutput{JobResult: result}
	if strings.TrimSpace(*outDir) != "" {
		if out.SavedTo, err = saveResult(ctx, client, *outDir, result); err != nil {
			return err
		}
	}
	return printJSON(stdout, out)
}

func saveResult(ctx context.Context, client *effects.Client, dir string, result *effects.JobResult) (string, error) {
	ref := result.ResultRef()
	if ref == "" {
		return "", errors.New("job completed without an image reference")
	}
	data, _, err := client.Download(ctx, ref)
	if err != nil {
		return "", err
	}
	store, err := storage.NewFileStore(dir)
	if err != nil {
		return "", err
	}
	key, err := store.WriteImage(ctx, result.JobID, data)
	if err != nil {
		return "", err
	}
	return store.Path(key)
}

func runStatus(ctx context.Context, client *effects.Client, args []string, stdout io.Writer) error {
	fs := newFlagSet("status")
	jobID := fs.String("job", "", "job id")
	wait := fs.Bool("wait", false, "poll until the job finishes")
	if err := fs.Parse(args); err != nil {
		return usageError(err.Error())
	}
	if strings.TrimSpace(*jobID) == "" {
		return usageError("-job is required")
	}
	if *wait {
		result, err := client.AwaitCompletion(ctx, *jobID)
		if err != nil {
			return err
		}
		return printJSON(stdout, result)
	}
	job, err := client.Status(ctx, *jobID)
	if err != nil {
		return err
	}
	return printJSON(stdout, map[string]any{
		"job_id":          job.ID,
		"status":          job.Status,
		"raw_status":      job.RawStatus,
		"processed_image": job.ProcessedImage,
		"original_image":  job.OriginalImage,
		"error_message":   job.ErrorMessage,
	})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
