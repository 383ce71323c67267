// Package main is the entry point for the protodyn CLI.
package main

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/axonops/protodyn/internal/anypack"
	"github.com/axonops/protodyn/internal/api"
	"github.com/axonops/protodyn/internal/config"
	"github.com/axonops/protodyn/internal/dynamic"
	"github.com/axonops/protodyn/internal/logging"
	"github.com/axonops/protodyn/internal/metrics"
	"github.com/axonops/protodyn/internal/registry"
	"github.com/axonops/protodyn/internal/schema"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

var (
	configPath string
	importPath string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "protodyn",
		Short: "Dynamic Protocol Buffers codec",
		Long:  `protodyn parses .proto schemas at runtime and encodes/decodes messages against the Protobuf wire format, as a CLI or as an HTTP service.`,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&importPath, "import-path", "I", "", "Local directory for resolving imports")

	rootCmd.AddCommand(serveCmd(), parseCmd(), encodeCmd(), decodeCmd(), versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("protodyn %s (commit: %s, built: %s)\n", version, commit, buildDate)
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the codec HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if importPath != "" {
				cfg.Imports.Path = importPath
			}

			logger, err := logging.New(cfg.Logging)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			if err := anypack.SetBackend(cfg.Packing.Backend); err != nil {
				return err
			}

			m := metrics.New()
			reg := registry.New(logger,
				registry.WithMetrics(m),
				registry.WithImportPath(cfg.Imports.Path),
				registry.WithRemoteBase(cfg.Imports.RemoteBase),
			)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if cfg.Schemas.Dir != "" {
				if err := reg.LoadDirectory(cfg.Schemas.Dir); err != nil {
					return err
				}
				logger.Info("schemas loaded",
					slog.String("dir", cfg.Schemas.Dir),
					slog.Int("count", reg.Len()),
				)
				if cfg.Schemas.Watch {
					go func() {
						if err := reg.Watch(ctx, cfg.Schemas.Dir); err != nil && ctx.Err() == nil {
							logger.Error("schema watcher stopped", slog.String("error", err.Error()))
						}
					}()
				}
			}

			logger.Info("starting protodyn",
				slog.String("version", version),
				slog.String("address", cfg.Address()),
				slog.String("packing_backend", cfg.Packing.Backend),
			)

			server := api.NewServer(cfg, reg, logger, m)
			return server.Start(ctx)
		},
	}
}

func parseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <schema.proto>",
		Short: "Parse a schema and print its resolved form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := parseSchemaFile(args[0])
			if err != nil {
				return err
			}
			fmt.Print(s.String())
			return nil
		},
	}
}

func encodeCmd() *cobra.Command {
	var outputHex bool
	cmd := &cobra.Command{
		Use:   "encode <schema.proto> <message> <fields.json>",
		Short: "Encode a JSON field map to Protobuf bytes",
		Long:  `Encode reads a schema, constructs an instance of the named message from a JSON document ("-" reads stdin), and writes the wire bytes to stdout.`,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := parseSchemaFile(args[0])
			if err != nil {
				return err
			}
			def, ok := s.Message(args[1])
			if !ok {
				return fmt.Errorf("schema has no message %q", args[1])
			}

			fields, err := readJSONFields(args[2])
			if err != nil {
				return err
			}
			m, err := dynamic.New(def, fields)
			if err != nil {
				return err
			}
			data, err := m.Encode()
			if err != nil {
				return err
			}
			if outputHex {
				fmt.Println(hex.EncodeToString(data))
				return nil
			}
			_, err = os.Stdout.Write(data)
			return err
		},
	}
	cmd.Flags().BoolVar(&outputHex, "hex", false, "Write hex instead of raw bytes")
	return cmd
}

func decodeCmd() *cobra.Command {
	var inputBase64 bool
	cmd := &cobra.Command{
		Use:   "decode <schema.proto> <message> <payload>",
		Short: "Decode Protobuf bytes into a JSON field map",
		Long:  `Decode reads a schema and a payload file ("-" reads stdin) and prints the decoded fields as JSON.`,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := parseSchemaFile(args[0])
			if err != nil {
				return err
			}
			def, ok := s.Message(args[1])
			if !ok {
				return fmt.Errorf("schema has no message %q", args[1])
			}

			data, err := readInput(args[2])
			if err != nil {
				return err
			}
			if inputBase64 {
				data, err = base64.StdEncoding.DecodeString(string(data))
				if err != nil {
					return err
				}
			}
			m, err := dynamic.Decode(def, data, nil)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(m.ToMap())
		},
	}
	cmd.Flags().BoolVar(&inputBase64, "base64", false, "Treat the payload as base64 text")
	return cmd
}

func parseSchemaFile(path string) (*schema.Schema, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- CLI argument
	if err != nil {
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}
	imp := schema.NewImporter(importPath)
	s, err := schema.ParseWithImporter(string(data), imp)
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	return s, nil
}

func readJSONFields(path string) (map[string]any, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to parse fields: %w", err)
	}
	return fields, nil
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path) // #nosec G304 -- CLI argument
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return data, nil
}
