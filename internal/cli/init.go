package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/organizational/internal/paths"
	"github.com/mesh-intelligence/organizational/pkg/sqlite"
	"github.com/mesh-intelligence/organizational/pkg/types"
)

func newInitCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration and storage",
		Long:  "Create the configuration and data directories, write a default config.yaml\nif none exists, then initialize the SQLite backend.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, flags)
		},
	}
}

func runInit(cmd *cobra.Command, flags *rootFlags) error {
	configDir, err := flags.resolveConfigDir()
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	cfg, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	dataDir, err := flags.resolveDataDir(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("resolve data dir: %w", err)
	}

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	wrote, err := writeConfigIfMissing(configDir, dataDir)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	if cfg.Backend == types.BackendSQLite {
		cfg.DataDir = dataDir
		store, err := sqlite.Open(cfg, zerolog.Nop())
		if err != nil {
			return fmt.Errorf("initialize storage: %w", err)
		}
		if err := store.Detach(); err != nil {
			return fmt.Errorf("finalize storage: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	if flags.jsonMode {
		return printJSON(out, map[string]any{
			"config_file":  paths.ConfigFile(configDir),
			"config_wrote": wrote,
			"data_dir":     dataDir,
		})
	}
	if wrote {
		fmt.Fprintf(out, "Wrote %s\n", paths.ConfigFile(configDir))
	}
	fmt.Fprintf(out, "Data directory: %s\n", dataDir)
	fmt.Fprintln(out, "Organizational store initialized successfully")
	return nil
}
