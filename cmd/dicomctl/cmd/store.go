package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jas88/sharpdicom/internal/config"
	"github.com/jas88/sharpdicom/pkg/dicomuid"
	"github.com/jas88/sharpdicom/pkg/upperlayer/assoc"
)

// NewStoreCmd sends one dataset file via C-STORE.
func NewStoreCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store [file]",
		Short: "send a dataset to a DICOM SCP with C-STORE",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dataset, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading dataset: %w", err)
			}

			sopClassUID, _ := cmd.Flags().GetString("sop-class")
			sopInstanceUID, _ := cmd.Flags().GetString("sop-instance")
			if sopInstanceUID == "" {
				sopInstanceUID = dicomuid.Deterministic(dataset)
			}

			cfgPath, _ := cmd.Flags().GetString("config")
			var opts assoc.SCUOptions
			var contexts []assoc.ProposedContext
			if cfgPath != "" {
				cfg, err := config.LoadSCUConfig(cfgPath)
				if err != nil {
					return err
				}
				opts, contexts = cfg.ToSCUOptions()
			} else {
				host, _ := cmd.Flags().GetString("host")
				port, _ := cmd.Flags().GetInt("port")
				calledAE, _ := cmd.Flags().GetString("called-ae")
				callingAE, _ := cmd.Flags().GetString("calling-ae")
				opts = assoc.SCUOptions{
					Host: host, Port: port,
					CalledAE: calledAE, CallingAE: callingAE,
					ConnectTimeout: 10 * time.Second, AssociationTimeout: 30 * time.Second, DIMSETimeout: 60 * time.Second,
				}
				contexts = []assoc.ProposedContext{
					{ID: 1, AbstractSyntax: sopClassUID, TransferSyntaxes: []string{"1.2.840.10008.1.2"}},
				}
			}

			scu, err := assoc.Connect(opts, contexts)
			if err != nil {
				return fmt.Errorf("associate: %w", err)
			}
			defer scu.Release()

			status, err := scu.CStore(sopClassUID, sopInstanceUID, dataset)
			if err != nil {
				return fmt.Errorf("c-store: %w", err)
			}
			fmt.Printf("C-STORE status: 0x%04x, SOP Instance: %s\n", status, sopInstanceUID)
			return nil
		},
	}
	pf := cmd.Flags()
	pf.String("config", "", "path to an SCU YAML config file")
	pf.String("host", "127.0.0.1", "SCP host")
	pf.Int("port", 11112, "SCP port")
	pf.String("called-ae", "ANY-SCP", "called AE title")
	pf.String("calling-ae", "DICOMCTL", "calling AE title")
	pf.String("sop-class", "1.2.840.10008.5.1.4.1.1.7", "affected SOP class UID (default: Secondary Capture)")
	pf.String("sop-instance", "", "affected SOP instance UID (default: derived from dataset content)")
	return cmd
}
