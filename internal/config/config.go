// Package config loads YAML configuration for the dicomctl SCU/SCP
// commands into the option structs pkg/upperlayer/assoc expects.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jas88/sharpdicom/pkg/upperlayer/assoc"
)

// PresentationContextConfig is the YAML shape for one proposed context.
type PresentationContextConfig struct {
	AbstractSyntax   string   `yaml:"abstractSyntax"`
	TransferSyntaxes []string `yaml:"transferSyntaxes"`
}

// SCUConfig is the YAML shape of an SCU invocation.
type SCUConfig struct {
	Host                  string                      `yaml:"host"`
	Port                  int                          `yaml:"port"`
	CalledAETitle         string                      `yaml:"calledAETitle"`
	CallingAETitle        string                      `yaml:"callingAETitle"`
	ConnectTimeoutSeconds int                          `yaml:"connectTimeoutSeconds"`
	AssocTimeoutSeconds   int                          `yaml:"associationTimeoutSeconds"`
	DIMSETimeoutSeconds   int                          `yaml:"dimseTimeoutSeconds"`
	MaxPDULength          uint32                       `yaml:"maxPDULength"`
	PresentationContexts  []PresentationContextConfig `yaml:"presentationContexts"`
}

// SCPConfig is the YAML shape of an SCP invocation.
type SCPConfig struct {
	BindAddress               string `yaml:"bindAddress"`
	Port                      int    `yaml:"port"`
	AETitle                   string `yaml:"aeTitle"`
	MaxConcurrentAssociations int    `yaml:"maxConcurrentAssociations"`
	ARTIMTimeoutSeconds       int    `yaml:"artimTimeoutSeconds"`
	ShutdownTimeoutSeconds    int    `yaml:"shutdownTimeoutSeconds"`
	MaxPDULength              uint32 `yaml:"maxPDULength"`
	StorageDirectory          string `yaml:"storageDirectory"`
}

// LoadSCUConfig reads and parses an SCU YAML config file.
func LoadSCUConfig(path string) (*SCUConfig, error) {
	var cfg SCUConfig
	if err := readYAML(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadSCPConfig reads and parses an SCP YAML config file.
func LoadSCPConfig(path string) (*SCPConfig, error) {
	var cfg SCPConfig
	if err := readYAML(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readYAML(path string, out any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// ToSCUOptions converts the parsed YAML config into assoc.SCUOptions,
// plus the list of proposed presentation contexts.
func (c *SCUConfig) ToSCUOptions() (assoc.SCUOptions, []assoc.ProposedContext) {
	opts := assoc.SCUOptions{
		Host:               c.Host,
		Port:               c.Port,
		CalledAE:           c.CalledAETitle,
		CallingAE:          c.CallingAETitle,
		ConnectTimeout:     durationOrDefault(c.ConnectTimeoutSeconds, 10*time.Second),
		AssociationTimeout: durationOrDefault(c.AssocTimeoutSeconds, 30*time.Second),
		DIMSETimeout:       durationOrDefault(c.DIMSETimeoutSeconds, 30*time.Second),
		MaxPDULength:       c.MaxPDULength,
	}
	contexts := make([]assoc.ProposedContext, 0, len(c.PresentationContexts))
	for i, pc := range c.PresentationContexts {
		contexts = append(contexts, assoc.ProposedContext{
			ID:               byte(2*i + 1),
			AbstractSyntax:   pc.AbstractSyntax,
			TransferSyntaxes: pc.TransferSyntaxes,
		})
	}
	return opts, contexts
}

// ToSCPOptions converts the parsed YAML config into assoc.SCPOptions. The
// handler fields are left for the caller to populate since they are Go
// closures, not YAML-representable values.
func (c *SCPConfig) ToSCPOptions() assoc.SCPOptions {
	return assoc.SCPOptions{
		BindAddress:               c.BindAddress,
		Port:                      c.Port,
		AETitle:                   c.AETitle,
		MaxConcurrentAssociations: c.MaxConcurrentAssociations,
		ARTIMTimeout:              durationOrDefault(c.ARTIMTimeoutSeconds, 30*time.Second),
		ShutdownTimeout:           durationOrDefault(c.ShutdownTimeoutSeconds, 30*time.Second),
		MaxPDULength:              c.MaxPDULength,
	}
}

func durationOrDefault(seconds int, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}
