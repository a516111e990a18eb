package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jas88/sharpdicom/internal/config"
	"github.com/jas88/sharpdicom/pkg/upperlayer/assoc"
	"github.com/jas88/sharpdicom/pkg/upperlayer/dimse"
)

// NewEchoCmd issues one C-ECHO over an association negotiated from a
// config file, or from --host/--port/--called-ae flags when no config is
// given.
func NewEchoCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "echo",
		Short: "verify connectivity to a DICOM SCP with C-ECHO",
		RunE: func(cmd *cobra.Command, args []string) error {
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
					ConnectTimeout: 10 * time.Second, AssociationTimeout: 30 * time.Second, DIMSETimeout: 30 * time.Second,
				}
				contexts = []assoc.ProposedContext{
					{ID: 1, AbstractSyntax: dimse.VerificationSOPClass, TransferSyntaxes: []string{"1.2.840.10008.1.2"}},
				}
			}

			scu, err := assoc.Connect(opts, contexts)
			if err != nil {
				return fmt.Errorf("associate: %w", err)
			}
			defer scu.Release()

			status, err := scu.CEcho()
			if err != nil {
				return fmt.Errorf("c-echo: %w", err)
			}
			fmt.Printf("C-ECHO status: 0x%04x\n", status)
			return nil
		},
	}
	pf := cmd.Flags()
	pf.String("config", "", "path to an SCU YAML config file")
	pf.String("host", "127.0.0.1", "SCP host")
	pf.Int("port", 11112, "SCP port")
	pf.String("called-ae", "ANY-SCP", "called AE title")
	pf.String("calling-ae", "DICOMCTL", "calling AE title")
	return cmd
}
