package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lcalzada-xor/wpsscan/internal/adapters/fingerprint"
	"github.com/lcalzada-xor/wpsscan/internal/logging"
)

func newImportOUICmd() *cobra.Command {
	var dbPath string
	var debug bool
	cmd := &cobra.Command{
		Use:   "import-oui <csv>",
		Short: "Load an OUI CSV export into the vendor database used by --oui-db",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.New(debug)
			if err != nil {
				return err
			}
			defer logger.Sync()
			return importOUI(cmd, logger, args[0], dbPath)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "data/oui/ieee_oui.db", "OUI database to create or update")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "debug logging")
	return cmd
}

func importOUI(cmd *cobra.Command, logger *zap.Logger, csvPath, dbPath string) error {
	f, err := os.Open(csvPath)
	if err != nil {
		return err
	}
	defer f.Close()

	db, err := fingerprint.NewOUIDatabase(dbPath, 16)
	if err != nil {
		return err
	}
	defer db.Close()

	res, err := fingerprint.ImportCSV(cmd.Context(), db, f)
	if err != nil {
		return err
	}
	stats, err := db.GetStats(cmd.Context())
	if err != nil {
		return err
	}
	logger.Info("OUI import complete",
		zap.String("db", dbPath),
		zap.Int("imported", res.Imported),
		zap.Int("skipped", res.Skipped),
		zap.Int("total", stats.TotalEntries))
	return nil
}
