package main

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ahrav/caom2-harvester/internal/infra/storage"
	caomStore "github.com/ahrav/caom2-harvester/internal/infra/storage/caom/postgres"
)

func newDumpCommand() *cobra.Command {
	var (
		fromSource bool
		depth      int
	)

	cmd := &cobra.Command{
		Use:   "dump <observation-id>",
		Short: "Print an observation tree from a catalogue as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid observation id: %w", err)
			}

			ctx := cmd.Context()
			cfg, err := loadConfig(ctx, cmd.Flags())
			if err != nil {
				return err
			}
			log := newLogger(cfg)

			endpoint := cfg.Destination
			if fromSource {
				endpoint = cfg.Source
			}
			pool, err := openPool(ctx, log, endpoint.DSN)
			if err != nil {
				return err
			}
			defer pool.Close()

			reader := caomStore.NewObservationReader(storage.PoolConn{Pool: pool}, storage.NoOpTracer())
			obs, err := reader.GetByID(ctx, id, depth)
			if err != nil {
				return fmt.Errorf("failed to read observation %s from %s: %w", id, endpoint.Name, err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(obs)
		},
	}
	cmd.Flags().BoolVar(&fromSource, "source", false, "read from the source catalogue instead of the destination")
	cmd.Flags().IntVar(&depth, "depth", caomStore.MaxDepth, "tree levels to load (1 observation only, 5 down to chunks)")

	return cmd
}
