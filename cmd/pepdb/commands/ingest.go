package commands

import (
	"os"

	"github.com/c2h5oh/datasize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/wojas/go-healthz"

	"github.com/openproteomics/pepdb/ingest"
	"github.com/openproteomics/pepdb/reader"
	"github.com/openproteomics/pepdb/report"
	"github.com/openproteomics/pepdb/status"
	"github.com/openproteomics/pepdb/store"
)

func init() {
	rootCmd.AddCommand(ingestCmd)
}

var ingestCmd = &cobra.Command{
	Use:   "ingest file...",
	Short: "Digest protein database files into the peptide store",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.GetBackend(conf.Store, conf.PartitionTable())
		if err != nil {
			return err
		}
		logrus.WithField("store_type", conf.Store.Type).Info("Store backend initialised")
		status.SetPartitions(st.Partitions(), conf.Store.Type)

		sink, err := report.New(rootCtx, conf.Report)
		if err != nil {
			return err
		}

		ing, err := ingest.New(conf, st, sink)
		if err != nil {
			return err
		}
		status.SetStats(ing.Stats())

		healthz.AddBuildInfo()
		if hostname, err := os.Hostname(); err == nil {
			healthz.SetMeta("hostname", hostname)
		}
		healthz.SetMeta("version", version)
		status.StartHTTPServer(conf)

		for _, fpath := range args {
			l := logrus.WithField("file", fpath)
			if fi, err := os.Stat(fpath); err == nil {
				l = l.WithField("size", datasize.ByteSize(fi.Size()).HumanReadable())
			}
			src, closer, err := reader.Open(fpath)
			if err != nil {
				return err
			}
			l.Info("Ingesting file")
			err = ing.Run(rootCtx, src)
			_ = closer.Close()
			if err != nil {
				return err
			}
		}

		if failed := ing.FailedAccessions(); len(failed) > 0 {
			logrus.WithField("proteins", len(failed)).
				Warn("Some proteins were lost to write failures, see the run report")
		}
		return nil
	},
}
