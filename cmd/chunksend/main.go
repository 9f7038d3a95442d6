package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/docker/go-units"
	"github.com/urfave/cli/v2"

	"github.com/voxlane/chunkstream/transfer"
	"github.com/voxlane/chunkstream/transfer/payload"
)

func main() {
	logger := log.NewLogger()

	app := &cli.App{
		Name:  "chunksend",
		Usage: "send oversized payloads through a chunked transfer front door",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "api-url",
				Required: true,
				Usage:    "Front door base URL",
			},
			&cli.StringFlag{
				Name:     "token",
				Required: true,
				EnvVars:  []string{"CHUNKSEND_TOKEN"},
				Usage:    "Bearer token for the Authorization header",
			},
			&cli.IntFlag{
				Name:  "chunk-size",
				Usage: "Raw chunk size in bytes (0 uses the server-agreed default)",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Before: func(ctx *cli.Context) error {
			logger.EnableDebugLog(ctx.Bool("debug"))
			return nil
		},
		Commands: []*cli.Command{
			audioCmd(logger),
			jsonCmd(logger),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Errorf("%s", err)
		os.Exit(1)
	}
}

func audioCmd(logger log.Logger) *cli.Command {
	return &cli.Command{
		Name:      "audio",
		Usage:     "Send audio files as binary transfers",
		ArgsUsage: "<glob pattern> [pattern...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "destination",
				Value: "transcribe",
				Usage: "Destination route on the front door",
			},
		},
		Action: func(ctx *cli.Context) error {
			if ctx.NArg() == 0 {
				return fmt.Errorf("no input patterns given")
			}

			var paths []string
			for _, pattern := range ctx.Args().Slice() {
				matches, err := doublestar.FilepathGlob(pattern)
				if err != nil {
					return fmt.Errorf("bad pattern %q: %w", pattern, err)
				}
				paths = append(paths, matches...)
			}
			if len(paths) == 0 {
				return fmt.Errorf("no files matched the given patterns")
			}

			config := transfer.DefaultConfig()
			config.MaxChunkSizeBytes = ctx.Int("chunk-size")

			for _, path := range paths {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}

				logger.Infof("Sending %s (%s)", path, units.BytesSize(float64(len(data))))

				result, err := transfer.Send(ctx.Context, transfer.SendParams{
					APIBaseURL:  ctx.String("api-url"),
					Token:       ctx.String("token"),
					Destination: ctx.String("destination"),
					Payload:     payload.Binary{Data: data, MIMEHint: mimeHintFor(path)},
				}, config, logger)
				if err != nil {
					return fmt.Errorf("send %s: %w", path, err)
				}

				fmt.Println(string(result))
			}
			return nil
		},
	}
}

func jsonCmd(logger log.Logger) *cli.Command {
	return &cli.Command{
		Name:      "json",
		Usage:     "Send a JSON document as a structured transfer",
		ArgsUsage: "<file.json>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "destination",
				Required: true,
				Usage:    "Destination route on the front door",
			},
		},
		Action: func(ctx *cli.Context) error {
			if ctx.NArg() != 1 {
				return fmt.Errorf("expected exactly one JSON file argument")
			}
			path := ctx.Args().First()

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			if !json.Valid(data) {
				return fmt.Errorf("%s is not valid JSON", path)
			}

			config := transfer.DefaultConfig()
			config.MaxChunkSizeBytes = ctx.Int("chunk-size")

			logger.Infof("Sending %s (%s)", path, units.BytesSize(float64(len(data))))

			result, err := transfer.Send(ctx.Context, transfer.SendParams{
				APIBaseURL:  ctx.String("api-url"),
				Token:       ctx.String("token"),
				Destination: ctx.String("destination"),
				Payload:     payload.Structured{Value: json.RawMessage(data)},
			}, config, logger)
			if err != nil {
				return fmt.Errorf("send %s: %w", path, err)
			}

			fmt.Println(string(result))
			return nil
		},
	}
}

func mimeHintFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".m4a":
		return "audio/mp4"
	case ".ogg":
		return "audio/ogg"
	case ".webm":
		return "audio/webm"
	case ".flac":
		return "audio/flac"
	default:
		return "application/octet-stream"
	}
}
