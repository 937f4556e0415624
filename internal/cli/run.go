package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/forPelevin/reelcut/internal/config"
	"github.com/forPelevin/reelcut/internal/logging"
	"github.com/forPelevin/reelcut/internal/pipeline"
	"github.com/forPelevin/reelcut/internal/types"
)

type env struct {
	cfg      *config.Config
	log      zerolog.Logger
	pipeline *pipeline.Pipeline
}

func setup(ctx context.Context, cmd *cobra.Command) (*env, error) {
	tuning, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(tuning)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	log := logging.New(cfg.AppEnv, cmd.ErrOrStderr())

	p, err := pipeline.Build(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &env{cfg: cfg, log: log, pipeline: p}, nil
}

func newFinalizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "finalize <request.json>",
		Short: "Render one finalize request and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req types.FinalizeRequest
			if err := readRequest(args[0], &req); err != nil {
				return err
			}
			req.VideoID, _ = cmd.Flags().GetString("video-id")
			return runOnce(cmd, func(ctx context.Context, p *pipeline.Pipeline) (any, error) {
				return p.Finalize(ctx, req)
			})
		},
	}
	cmd.Flags().String("video-id", "", "Video record to update")
	return cmd
}

func newUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <request.json>",
		Short: "Upload a published video to YouTube",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req types.UploadRequest
			if err := readRequest(args[0], &req); err != nil {
				return err
			}
			req.VideoID, _ = cmd.Flags().GetString("video-id")
			return runOnce(cmd, func(ctx context.Context, p *pipeline.Pipeline) (any, error) {
				return p.Upload(ctx, req)
			})
		},
	}
	cmd.Flags().String("video-id", "", "Video record to update")
	return cmd
}

func runOnce(cmd *cobra.Command, fn func(context.Context, *pipeline.Pipeline) (any, error)) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer env.pipeline.Close()

	ctx, cancel := context.WithTimeout(ctx, env.cfg.FinalizeTimeout)
	defer cancel()

	res, err := fn(ctx, env.pipeline)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// readRequest reads a JSON request from path, or stdin when path is "-".
func readRequest(path string, v any) error {
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(os.Stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("read request: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("parse request %s: %w", path, err)
	}
	return nil
}
