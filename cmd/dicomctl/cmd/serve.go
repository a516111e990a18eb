package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jas88/sharpdicom/internal/config"
	"github.com/jas88/sharpdicom/internal/logging"
	"github.com/jas88/sharpdicom/pkg/dicomuid"
	"github.com/jas88/sharpdicom/pkg/upperlayer/assoc"
	"github.com/jas88/sharpdicom/pkg/upperlayer/common"
	"github.com/jas88/sharpdicom/pkg/upperlayer/pdu"
)

// NewServeCmd runs a storage SCP that accepts every proposed presentation
// context and writes each stored dataset to --storage-dir.
func NewServeCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run a storage SCP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			var opts assoc.SCPOptions
			storageDir := "."
			if cfgPath != "" {
				cfg, err := config.LoadSCPConfig(cfgPath)
				if err != nil {
					return err
				}
				opts = cfg.ToSCPOptions()
				if cfg.StorageDirectory != "" {
					storageDir = cfg.StorageDirectory
				}
			} else {
				port, _ := cmd.Flags().GetInt("port")
				aeTitle, _ := cmd.Flags().GetString("ae-title")
				storageDir, _ = cmd.Flags().GetString("storage-dir")
				opts = assoc.SCPOptions{BindAddress: "0.0.0.0", Port: port, AETitle: aeTitle}
			}
			if err := os.MkdirAll(storageDir, 0o755); err != nil {
				return fmt.Errorf("creating storage directory: %w", err)
			}

			opts.AcceptanceHandler = func(ctx context.Context, req assoc.AssociateRequest) assoc.AcceptanceDecision {
				var contexts []pdu.PresentationContextAC
				for _, pc := range req.ProposedContexts {
					ts := ""
					if len(pc.TransferSyntaxes) > 0 {
						ts = pc.TransferSyntaxes[0]
					}
					contexts = append(contexts, pdu.PresentationContextAC{ID: pc.ID, Result: pdu.ResultAcceptance, TransferSyntax: ts})
				}
				return assoc.AcceptanceDecision{Accept: true, Contexts: contexts}
			}
			opts.StoreHandler = func(ctx context.Context, req assoc.StoreRequest) uint16 {
				name := req.AffectedSOPInstanceUID
				if name == "" {
					name = dicomuid.New()
				}
				path := filepath.Join(storageDir, name+".dcm")
				if err := os.WriteFile(path, req.Dataset, 0o644); err != nil {
					return common.StatusProcessingFailure
				}
				return common.StatusSuccess
			}

			logger := logging.Logger(os.Stdout, true, 0)
			scp, err := assoc.NewSCP(opts, logger)
			if err != nil {
				return err
			}
			if err := scp.Start(); err != nil {
				return err
			}
			logger.Info("SCP listening", "port", opts.Port, "ae_title", opts.AETitle, "storage_dir", storageDir)

			<-ctx.Done()
			logger.Info("shutting down")
			return scp.StopAsync(context.Background())
		},
	}
	pf := cmd.Flags()
	pf.String("config", "", "path to an SCP YAML config file")
	pf.Int("port", 11112, "bind port")
	pf.String("ae-title", "ANY-SCP", "AE title to present")
	pf.String("storage-dir", "./received", "directory to write received datasets to")
	return cmd
}
